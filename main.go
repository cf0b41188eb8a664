package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"log/slog"
	"os"

	"go-health-certificates/certificate"
	"go-health-certificates/logging"
	"go-health-certificates/storage"
)

type Config struct {
	ServerConfig ServerConfig `json:"server_config"`

	// PublicUrl is the origin shareable links are built on, e.g.
	// "https://certificates.example.com".
	PublicUrl string `json:"public_url"`

	AdminUsername     string `json:"admin_username"`
	AdminPassword     string `json:"admin_password"`
	JwtPrivateKeyPath string `json:"jwt_private_key_path"`
	IssuerId          string `json:"issuer_id"`

	// QrEndpoint is the optional remote chart-image endpoint; when empty
	// or unreachable QR codes are encoded locally.
	QrEndpoint string `json:"qr_endpoint,omitempty"`

	MirrorPath string `json:"mirror_path"`
	LogLevel   string `json:"log_level,omitempty"`

	StorageType         string                      `json:"storage_type"`
	RedisConfig         storage.RedisConfig         `json:"redis_config,omitempty"`
	RedisSentinelConfig storage.RedisSentinelConfig `json:"redis_sentinel_config,omitempty"`
}

func main() {
	configPath := flag.String("config", "", "Path for the config.json to use")
	flag.Parse()

	if *configPath == "" {
		slog.Error("please provide a config path using the --config flag")
		os.Exit(1)
	}

	slog.Info("using config", "path", *configPath)

	config, err := readConfigFile(*configPath)
	if err != nil {
		slog.Error("failed to read config file", "error", err)
		os.Exit(1)
	}

	logging.InitLogger(config.LogLevel)

	slog.Info("hosting on", "host", config.ServerConfig.Host, "port", config.ServerConfig.Port)

	tokenCreator, err := NewAdminTokenCreator(config.JwtPrivateKeyPath, config.IssuerId)
	if err != nil {
		slog.Error("failed to instantiate admin token creator", "error", err)
		os.Exit(1)
	}

	recordStore, err := createRecordStore(&config)
	if err != nil {
		slog.Error("failed to instantiate record store", "error", err)
		os.Exit(1)
	}

	mirror := storage.NewLocalMirror(config.MirrorPath)
	adapter := storage.NewStoreAdapter(recordStore, mirror)

	serverState := ServerState{
		adapter:       adapter,
		builder:       certificate.NewBuilder(adapter, config.PublicUrl),
		resolver:      certificate.NewResolver(adapter),
		tokenCreator:  tokenCreator,
		qrGenerator:   NewChartQRClient(config.QrEndpoint),
		adminUsername: config.AdminUsername,
		adminPassword: config.AdminPassword,
	}

	server, err := NewServer(&serverState, config.ServerConfig)
	if err != nil {
		slog.Error("failed to create server", "error", err)
		os.Exit(1)
	}

	err = server.ListenAndServe()
	if err != nil {
		slog.Error("failed to listen and serve", "error", err)
		os.Exit(1)
	}
}

func readConfigFile(path string) (Config, error) {
	configBytes, err := os.ReadFile(path)

	if err != nil {
		return Config{}, err
	}

	var config Config
	err = json.Unmarshal(configBytes, &config)

	if err != nil {
		return Config{}, err
	}

	return config, nil
}

func createRecordStore(config *Config) (storage.RecordStore, error) {
	if config.StorageType == "redis" {
		slog.Info("Using redis record store")
		client, err := storage.NewRedisClient(&config.RedisConfig)
		if err != nil {
			return nil, err
		}
		return storage.NewRedisRecordStore(client, config.RedisConfig.Namespace), nil
	}
	if config.StorageType == "redis_sentinel" {
		slog.Info("Using redis sentinel record store")
		client, err := storage.NewRedisSentinelClient(&config.RedisSentinelConfig)
		if err != nil {
			return nil, err
		}
		return storage.NewRedisRecordStore(client, config.RedisSentinelConfig.Namespace), nil
	}
	if config.StorageType == "memory" {
		slog.Info("Using in memory record store")
		return storage.NewInMemoryRecordStore(), nil
	}
	return nil, fmt.Errorf("%v is not a valid storage type", config.StorageType)
}
