package main

import (
	"bytes"
	"crypto/rand"
	"crypto/rsa"
	"crypto/x509"
	"encoding/base64"
	"encoding/json"
	"encoding/pem"
	"errors"
	"image"
	"image/color"
	"image/jpeg"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"testing"
	"time"

	"go-health-certificates/certificate"
	"go-health-certificates/storage"

	"github.com/stretchr/testify/require"
)

var testConfig = ServerConfig{
	Host:           "localhost",
	Port:           8081,
	UseTls:         false,
	TlsCertPath:    "",
	TlsPrivKeyPath: "",
}

const (
	testBaseURL       = "http://localhost:8081"
	testPublicURL     = "https://certificates.example"
	testAdminUsername = "admin"
	testAdminPassword = "correct-password"
)

// writeTestPrivateKey generates a throwaway RSA key and writes it as a PEM
// file for the token creator to load.
func writeTestPrivateKey(t *testing.T) string {
	t.Helper()

	key, err := rsa.GenerateKey(rand.Reader, 2048)
	require.NoError(t, err)

	block := &pem.Block{
		Type:  "RSA PRIVATE KEY",
		Bytes: x509.MarshalPKCS1PrivateKey(key),
	}
	path := filepath.Join(t.TempDir(), "jwt_private_key.pem")
	require.NoError(t, os.WriteFile(path, pem.EncodeToMemory(block), 0o600))
	return path
}

func newTestTokenCreator(t *testing.T) *AdminTokenCreator {
	t.Helper()

	creator, err := NewAdminTokenCreator(writeTestPrivateKey(t), "health-certificates-test")
	require.NoError(t, err)
	return creator
}

func startTestServer(t *testing.T, store storage.RecordStore) (*Server, *storage.StoreAdapter) {
	t.Helper()

	mirror := storage.NewLocalMirror(filepath.Join(t.TempDir(), "mirror.json"))
	adapter := storage.NewStoreAdapter(store, mirror)

	testState := &ServerState{
		adapter:       adapter,
		builder:       certificate.NewBuilder(adapter, testPublicURL),
		resolver:      certificate.NewResolver(adapter),
		tokenCreator:  newTestTokenCreator(t),
		qrGenerator:   NewChartQRClient(""),
		adminUsername: testAdminUsername,
		adminPassword: testAdminPassword,
	}

	srv, err := NewServer(testState, testConfig)
	require.NoError(t, err)

	go func() {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			t.Errorf("server error: %v", err)
		}
	}()

	waitUntilHealthy(t, testBaseURL+"/api/health")
	t.Cleanup(func() {
		if err := srv.Stop(); err != nil {
			t.Logf("error shutting down server: %v", err)
		}
	})
	return srv, adapter
}

func waitUntilHealthy(t *testing.T, url string) {
	t.Helper()
	const maxAttempts = 50
	for i := 0; i < maxAttempts; i++ {
		if resp, err := http.Get(url); err == nil {
			_ = resp.Body.Close()
			return
		}
		time.Sleep(50 * time.Millisecond)
	}
	t.Fatalf("server did not start in time")
}

func postJSON[T any](t *testing.T, url string, payload any, token string) (*http.Response, []byte, *T) {
	t.Helper()

	var body io.Reader
	if payload != nil {
		b, err := json.Marshal(payload)
		require.NoError(t, err)
		body = bytes.NewBuffer(b)
	}
	req, err := http.NewRequest(http.MethodPost, url, body)
	require.NoError(t, err)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)

	respBody, err := io.ReadAll(resp.Body)
	require.NoError(t, err)

	var v T
	_ = json.Unmarshal(respBody, &v)

	return resp, respBody, &v
}

func getJSON[T any](t *testing.T, url string, token string) (*http.Response, []byte, *T) {
	t.Helper()

	req, err := http.NewRequest(http.MethodGet, url, nil)
	require.NoError(t, err)
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)

	respBody, err := io.ReadAll(resp.Body)
	require.NoError(t, err)

	var v T
	_ = json.Unmarshal(respBody, &v)

	return resp, respBody, &v
}

func mustStatus(t *testing.T, resp *http.Response, want int, body []byte) {
	t.Helper()
	require.Equalf(t, want, resp.StatusCode, "body: %s", body)
}

// login bootstrap
func loginAsAdmin(t *testing.T) string {
	t.Helper()

	resp, body, lr := postJSON[LoginResponse](t, testBaseURL+"/api/login", LoginRequest{
		Username: testAdminUsername,
		Password: testAdminPassword,
	}, "")
	mustStatus(t, resp, http.StatusOK, body)
	require.NotEmpty(t, lr.Token)
	return lr.Token
}

func testPhotoBase64(t *testing.T) string {
	t.Helper()

	img := image.NewRGBA(image.Rect(0, 0, 64, 64))
	for x := 0; x < 64; x++ {
		for y := 0; y < 64; y++ {
			img.Set(x, y, color.RGBA{R: uint8(x * 4), G: uint8(y * 4), B: 64, A: 255})
		}
	}
	var buf bytes.Buffer
	require.NoError(t, jpeg.Encode(&buf, img, nil))
	return "data:image/jpeg;base64," + base64.StdEncoding.EncodeToString(buf.Bytes())
}
