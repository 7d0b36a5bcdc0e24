package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"
)

// Storage backends
const (
	BackendJSON     = "json"
	BackendSQLite   = "sqlite"
	BackendPostgres = "postgres"
	BackendMemory   = "memory"
)

// Event backends
const (
	EventsLog  = "log"
	EventsAMQP = "amqp"
)

// LocalConfig holds configuration for local daemon mode
type LocalConfig struct {
	Daemon   DaemonConfig   `yaml:"daemon"`
	Storage  StorageConfig  `yaml:"storage"`
	Services ServicesConfig `yaml:"services"`
	Events   EventsConfig   `yaml:"events"`
}

// DaemonConfig holds daemon server settings
type DaemonConfig struct {
	Port     int    `yaml:"port"`
	Bind     string `yaml:"bind"`
	LogLevel string `yaml:"log_level"`
}

// StorageConfig selects the session store backend
type StorageConfig struct {
	Backend     string `yaml:"backend"`
	PostgresURL string `yaml:"postgres_url,omitempty"` // Usually loaded from secrets.yaml
}

// ServicesConfig holds prediction service addresses
type ServicesConfig struct {
	FraudURL       string `yaml:"fraud_url"`
	SupplierURL    string `yaml:"supplier_url"`
	ForecastURL    string `yaml:"forecast_url"`
	ProcurementURL string `yaml:"procurement_url"`
	TimeoutSeconds int    `yaml:"timeout_seconds"`
	DemoFallback   bool   `yaml:"demo_fallback"`
}

// Timeout returns the per-call timeout
func (s ServicesConfig) Timeout() time.Duration {
	return time.Duration(s.TimeoutSeconds) * time.Second
}

// EventsConfig selects where inventory events go
type EventsConfig struct {
	Backend  string `yaml:"backend"`
	AMQPURL  string `yaml:"amqp_url,omitempty"` // Usually loaded from secrets.yaml
	Exchange string `yaml:"exchange"`
}

// SecretsConfig holds connection strings loaded from secrets.yaml
type SecretsConfig struct {
	PostgresURL string `yaml:"postgres_url,omitempty"`
	AMQPURL     string `yaml:"amqp_url,omitempty"`
}

// StockwiseDir returns the path to ~/.stockwise
func StockwiseDir() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("get home dir: %w", err)
	}
	return filepath.Join(home, ".stockwise"), nil
}

// EnsureStockwiseDir creates ~/.stockwise and subdirectories if they don't exist
func EnsureStockwiseDir() (string, error) {
	dir, err := StockwiseDir()
	if err != nil {
		return "", err
	}

	subdirs := []string{
		"",
		"logs",
		"state",
	}

	for _, subdir := range subdirs {
		path := filepath.Join(dir, subdir)
		if err := os.MkdirAll(path, 0755); err != nil {
			return "", fmt.Errorf("create dir %s: %w", path, err)
		}
	}

	return dir, nil
}

// DefaultLocalConfig returns sensible defaults for local mode
func DefaultLocalConfig() *LocalConfig {
	return &LocalConfig{
		Daemon: DaemonConfig{
			Port:     7440,
			Bind:     "127.0.0.1",
			LogLevel: "info",
		},
		Storage: StorageConfig{
			Backend: BackendJSON,
		},
		Services: ServicesConfig{
			FraudURL:       "http://127.0.0.1:8005",
			SupplierURL:    "http://127.0.0.1:8001",
			ForecastURL:    "http://127.0.0.1:8003",
			ProcurementURL: "http://127.0.0.1:8001",
			TimeoutSeconds: 10,
			DemoFallback:   false,
		},
		Events: EventsConfig{
			Backend:  EventsLog,
			Exchange: "stockwise.events",
		},
	}
}

// Validate checks the values a daemon cannot start without
func (c *LocalConfig) Validate() error {
	var errs []error

	if c.Daemon.Port <= 0 || c.Daemon.Port > 65535 {
		errs = append(errs, fmt.Errorf("daemon.port %d out of range", c.Daemon.Port))
	}

	switch c.Storage.Backend {
	case BackendJSON, BackendSQLite, BackendMemory:
	case BackendPostgres:
		if c.Storage.PostgresURL == "" {
			errs = append(errs, errors.New("storage.postgres_url is required for the postgres backend"))
		}
	default:
		errs = append(errs, fmt.Errorf("unknown storage.backend %q", c.Storage.Backend))
	}

	switch c.Events.Backend {
	case EventsLog:
	case EventsAMQP:
		if c.Events.AMQPURL == "" {
			errs = append(errs, errors.New("events.amqp_url is required for the amqp backend"))
		}
	default:
		errs = append(errs, fmt.Errorf("unknown events.backend %q", c.Events.Backend))
	}

	if c.Services.TimeoutSeconds <= 0 {
		errs = append(errs, fmt.Errorf("services.timeout_seconds must be positive, got %d", c.Services.TimeoutSeconds))
	}

	return errors.Join(errs...)
}

// LoadLocalConfig loads configuration from ~/.stockwise/config.yaml, then
// secrets.yaml, then STOCKWISE_* environment overrides
func LoadLocalConfig() (*LocalConfig, error) {
	dir, err := StockwiseDir()
	if err != nil {
		return nil, err
	}

	cfg := DefaultLocalConfig()

	configPath := filepath.Join(dir, "config.yaml")
	data, err := os.ReadFile(configPath)
	switch {
	case os.IsNotExist(err):
		// defaults
	case err != nil:
		return nil, fmt.Errorf("read config: %w", err)
	default:
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parse config: %w", err)
		}
	}

	if err := loadSecrets(dir, cfg); err != nil {
		return nil, fmt.Errorf("load secrets: %w", err)
	}

	applyEnv(cfg)
	return cfg, nil
}

// loadSecrets loads connection strings from secrets.yaml
func loadSecrets(dir string, cfg *LocalConfig) error {
	secretsPath := filepath.Join(dir, "secrets.yaml")

	// If secrets file doesn't exist, skip
	if _, err := os.Stat(secretsPath); os.IsNotExist(err) {
		return nil
	}

	data, err := os.ReadFile(secretsPath)
	if err != nil {
		return fmt.Errorf("read secrets: %w", err)
	}

	var secrets SecretsConfig
	if err := yaml.Unmarshal(data, &secrets); err != nil {
		return fmt.Errorf("parse secrets: %w", err)
	}

	if secrets.PostgresURL != "" {
		cfg.Storage.PostgresURL = secrets.PostgresURL
	}
	if secrets.AMQPURL != "" {
		cfg.Events.AMQPURL = secrets.AMQPURL
	}

	return nil
}

// SaveLocalConfig saves configuration to ~/.stockwise/config.yaml.
// Connection strings belong in secrets.yaml and are not written here.
func SaveLocalConfig(cfg *LocalConfig) error {
	dir, err := EnsureStockwiseDir()
	if err != nil {
		return err
	}

	out := *cfg
	out.Storage.PostgresURL = ""
	out.Events.AMQPURL = ""

	data, err := yaml.Marshal(&out)
	if err != nil {
		return fmt.Errorf("marshal config: %w", err)
	}

	if err := os.WriteFile(filepath.Join(dir, "config.yaml"), data, 0644); err != nil {
		return fmt.Errorf("write config: %w", err)
	}

	return nil
}

// SaveSecrets saves connection strings to ~/.stockwise/secrets.yaml
func SaveSecrets(secrets SecretsConfig) error {
	dir, err := EnsureStockwiseDir()
	if err != nil {
		return err
	}

	data, err := yaml.Marshal(secrets)
	if err != nil {
		return fmt.Errorf("marshal secrets: %w", err)
	}

	// Write with restricted permissions (owner read/write only)
	if err := os.WriteFile(filepath.Join(dir, "secrets.yaml"), data, 0600); err != nil {
		return fmt.Errorf("write secrets: %w", err)
	}

	return nil
}
