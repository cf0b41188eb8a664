package logging

import (
	"io"
	"log/slog"
	"os"
	"strings"
)

var logger *slog.Logger

func init() {
	// Default to INFO level
	InitLogger("info")
}

// InitLogger initializes the global logger with the specified level
func InitLogger(level string) {
	InitLoggerWithWriter(level, os.Stderr)
}

// InitLoggerWithWriter initializes the global logger writing to w; used by
// tests to capture output.
func InitLoggerWithWriter(level string, w io.Writer) {
	opts := &slog.HandlerOptions{
		Level: parseLevel(level),
	}

	handler := slog.NewTextHandler(w, opts)
	logger = slog.New(handler)
	slog.SetDefault(logger)
}

func parseLevel(level string) slog.Level {
	switch strings.ToLower(level) {
	case "debug":
		return slog.LevelDebug
	case "info":
		return slog.LevelInfo
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// GetLogger returns the global logger instance
func GetLogger() *slog.Logger {
	return logger
}
