// Package config loads the daemon configuration from ~/.stockwise and the
// environment.
package config

import (
	"os"
	"strconv"
	"strings"
)

// Environment overrides
const (
	EnvPort         = "STOCKWISE_PORT"
	EnvLogLevel     = "STOCKWISE_LOG_LEVEL"
	EnvStorage      = "STOCKWISE_STORAGE"
	EnvPostgresURL  = "STOCKWISE_POSTGRES_URL"
	EnvAMQPURL      = "STOCKWISE_AMQP_URL"
	EnvDemoFallback = "STOCKWISE_DEMO_FALLBACK"
)

// applyEnv overrides file values with STOCKWISE_* variables
func applyEnv(cfg *LocalConfig) {
	cfg.Daemon.Port = getEnvInt(EnvPort, cfg.Daemon.Port)
	cfg.Daemon.LogLevel = strings.ToLower(getEnv(EnvLogLevel, cfg.Daemon.LogLevel))
	cfg.Storage.Backend = strings.ToLower(getEnv(EnvStorage, cfg.Storage.Backend))
	cfg.Storage.PostgresURL = getEnv(EnvPostgresURL, cfg.Storage.PostgresURL)
	cfg.Services.DemoFallback = getEnvBool(EnvDemoFallback, cfg.Services.DemoFallback)

	if url := getEnv(EnvAMQPURL, ""); url != "" {
		cfg.Events.AMQPURL = url
		cfg.Events.Backend = EventsAMQP
	}
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if i, err := strconv.Atoi(value); err == nil {
			return i
		}
	}
	return defaultValue
}

func getEnvBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if b, err := strconv.ParseBool(value); err == nil {
			return b
		}
	}
	return defaultValue
}
