// Package config loads server settings from the environment, with an
// optional .env file for local development.
package config

import (
	"fmt"
	"os"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	// Addr is the host:port the HTTP API listens on.
	Addr string
	// DatabaseDSN selects storage: a Postgres DSN, or empty for the
	// in-memory repository.
	DatabaseDSN string
	// ShutdownTimeout bounds graceful shutdown once a signal arrives.
	ShutdownTimeout time.Duration
	// LogLevel is debug, info, warn or error.
	LogLevel string
}

func Load() (*Config, error) {
	_ = godotenv.Load()

	shutdown, err := time.ParseDuration(getEnv("SHUTDOWN_TIMEOUT", "10s"))
	if err != nil {
		return nil, fmt.Errorf("invalid SHUTDOWN_TIMEOUT: %w", err)
	}

	return &Config{
		Addr:            getEnv("ADDR", "0.0.0.0:8080"),
		DatabaseDSN:     getEnv("DATABASE_DSN", ""),
		ShutdownTimeout: shutdown,
		LogLevel:        getEnv("LOG_LEVEL", "info"),
	}, nil
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}
