// Package config provides configuration management for Casetrail. Settings
// come from an optional YAML file plus environment variables with the
// CASETRAIL_ prefix; environment variables take precedence over the file,
// and sensible defaults back everything.
package config

import (
	"fmt"
	"os"
	"strconv"

	"gopkg.in/yaml.v3"

	"github.com/scrypster/casetrail/pkg/types"
)

// Config holds all configuration settings for the Casetrail application.
type Config struct {
	Server   ServerConfig   `yaml:"server"`
	Storage  StorageConfig  `yaml:"storage"`
	Security SecurityConfig `yaml:"security"`
	Calendar CalendarConfig `yaml:"calendar"`
	Logging  LoggingConfig  `yaml:"logging"`
}

// ServerConfig contains HTTP server configuration.
type ServerConfig struct {
	Port int    `yaml:"port"` // Server port (default: 7070)
	Host string `yaml:"host"` // Server host (default: 127.0.0.1)
}

// StorageConfig contains database configuration.
type StorageConfig struct {
	// Engine selects the store backend: sqlite or postgres (default: sqlite).
	Engine string `yaml:"engine"`

	// DataPath is the directory holding the sqlite database file.
	DataPath string `yaml:"data_path"`

	// PostgresDSN is the connection string for the postgres backend.
	PostgresDSN string `yaml:"postgres_dsn"`
}

// SecurityConfig contains security and authentication settings.
type SecurityConfig struct {
	// Mode is "development" (no auth) or "production" (Bearer token required).
	Mode string `yaml:"mode"`

	// APIToken is the Bearer token required in production mode.
	APIToken string `yaml:"api_token"`
}

// CalendarConfig contains calendar aggregation settings.
type CalendarConfig struct {
	// UpcomingWindowDays is the default window for upcoming reminders.
	UpcomingWindowDays int `yaml:"upcoming_window_days"`

	// ImportantEventTypes is the set of timeline event types surfaced on
	// the calendar. Empty means types.DefaultImportantEventTypes.
	ImportantEventTypes []string `yaml:"important_event_types"`
}

// LoggingConfig contains logging settings.
type LoggingConfig struct {
	// Level is the zap log level: debug, info, warn, error (default: info).
	Level string `yaml:"level"`
}

// Load builds the configuration: defaults, overlaid by the YAML file at
// path (when non-empty), overlaid by environment variables.
func Load(path string) (*Config, error) {
	cfg := defaults()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("config: failed to read %s: %w", path, err)
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("config: failed to parse %s: %w", path, err)
		}
	}

	applyEnv(cfg)

	if len(cfg.Calendar.ImportantEventTypes) == 0 {
		cfg.Calendar.ImportantEventTypes = types.DefaultImportantEventTypes
	}
	if cfg.Calendar.UpcomingWindowDays <= 0 {
		cfg.Calendar.UpcomingWindowDays = 7
	}

	return cfg, nil
}

func defaults() *Config {
	return &Config{
		Server: ServerConfig{
			Port: 7070,
			Host: "127.0.0.1",
		},
		Storage: StorageConfig{
			Engine:   "sqlite",
			DataPath: "./data",
		},
		Security: SecurityConfig{
			Mode: "development",
		},
		Calendar: CalendarConfig{
			UpcomingWindowDays: 7,
		},
		Logging: LoggingConfig{
			Level: "info",
		},
	}
}

func applyEnv(cfg *Config) {
	cfg.Server.Port = getEnvInt("CASETRAIL_PORT", cfg.Server.Port)
	cfg.Server.Host = getEnv("CASETRAIL_HOST", cfg.Server.Host)
	cfg.Storage.Engine = getEnv("CASETRAIL_STORAGE_ENGINE", cfg.Storage.Engine)
	cfg.Storage.DataPath = getEnv("CASETRAIL_DATA_PATH", cfg.Storage.DataPath)
	cfg.Storage.PostgresDSN = getEnv("CASETRAIL_POSTGRES_DSN", cfg.Storage.PostgresDSN)
	cfg.Security.Mode = getEnv("CASETRAIL_SECURITY_MODE", cfg.Security.Mode)
	cfg.Security.APIToken = getEnv("CASETRAIL_API_TOKEN", cfg.Security.APIToken)
	cfg.Calendar.UpcomingWindowDays = getEnvInt("CASETRAIL_UPCOMING_WINDOW_DAYS", cfg.Calendar.UpcomingWindowDays)
	cfg.Logging.Level = getEnv("CASETRAIL_LOG_LEVEL", cfg.Logging.Level)
}

// getEnv retrieves a string environment variable or returns a default value.
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// getEnvInt retrieves an integer environment variable or returns a default
// value. Unparsable values fall back to the default.
func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
	}
	return defaultValue
}
