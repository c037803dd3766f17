package config

import (
	"fmt"
	"log/slog"
	"os"
	"strings"
)

type Config struct {
	ServerURL string
	Token     string
	DebugAddr string
	LogLevel  slog.Level
}

func Load() *Config {
	cfg := &Config{
		ServerURL: envOrDefault("SERVER_URL", "http://localhost:8080"),
		Token:     os.Getenv("RETROTERM_TOKEN"),
		DebugAddr: envOrDefault("DEBUG_ADDR", "127.0.0.1:9490"),
		LogLevel:  parseLogLevel(os.Getenv("LOG_LEVEL")),
	}

	var missing []string
	if cfg.Token == "" {
		missing = append(missing, "RETROTERM_TOKEN")
	}
	if len(missing) > 0 {
		panic(fmt.Sprintf("required environment variables not set: %s", strings.Join(missing, ", ")))
	}

	return cfg
}

func parseLogLevel(s string) slog.Level {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

func envOrDefault(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
