package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"failureforward/internal/errors"
)

// Storage backends
const (
	StorageSQL    = "sql"
	StorageMemory = "memory"
)

// Config represents the complete application configuration
type Config struct {
	Database DatabaseConfig
	Server   ServerConfig
	Upload   UploadConfig
	Matching MatchingConfig
	LogLevel string
}

// DatabaseConfig holds database connection settings
type DatabaseConfig struct {
	URL     string
	Storage string
	// Driver and DSN are derived from URL
	Driver string
	DSN    string
}

// ServerConfig holds web server settings
type ServerConfig struct {
	Port            string
	GinMode         string
	ShutdownTimeout time.Duration
}

// UploadConfig holds staging settings for uploaded spreadsheets
type UploadConfig struct {
	Dir      string
	TTL      time.Duration
	MaxBytes int64
}

// MatchingConfig holds column mapping settings
type MatchingConfig struct {
	MinConfidence float64
}

// Load reads configuration from environment variables and validates it
func Load() (*Config, error) {
	config := &Config{
		LogLevel: getEnvOrDefault("LOG_LEVEL", "INFO"),
	}

	dbConfig, err := loadDatabaseConfig()
	if err != nil {
		return nil, errors.Wrap(err, "failed to load database configuration")
	}
	config.Database = *dbConfig

	serverConfig, err := loadServerConfig()
	if err != nil {
		return nil, errors.Wrap(err, "failed to load server configuration")
	}
	config.Server = *serverConfig

	uploadConfig, err := loadUploadConfig()
	if err != nil {
		return nil, errors.Wrap(err, "failed to load upload configuration")
	}
	config.Upload = *uploadConfig

	matchingConfig, err := loadMatchingConfig()
	if err != nil {
		return nil, errors.Wrap(err, "failed to load matching configuration")
	}
	config.Matching = *matchingConfig

	if err := validateConfig(config); err != nil {
		return nil, errors.Wrap(err, "configuration validation failed")
	}

	return config, nil
}

func loadDatabaseConfig() (*DatabaseConfig, error) {
	cfg := &DatabaseConfig{
		URL:     getEnvOrDefault("DATABASE_URL", "sqlite://failure_forward.db"),
		Storage: strings.ToLower(getEnvOrDefault("STORAGE", StorageSQL)),
	}
	if cfg.Storage == StorageMemory {
		return cfg, nil
	}

	driver, dsn, err := ParseDatabaseURL(cfg.URL)
	if err != nil {
		return nil, err
	}
	cfg.Driver = driver
	cfg.DSN = dsn
	return cfg, nil
}

// ParseDatabaseURL picks the sql driver for a DATABASE_URL. postgres:// and
// postgresql:// URLs go to lib/pq unchanged; sqlite:// and file: URLs go to
// go-sqlite3 with the scheme stripped.
func ParseDatabaseURL(url string) (driver, dsn string, err error) {
	switch {
	case strings.HasPrefix(url, "postgres://"), strings.HasPrefix(url, "postgresql://"):
		return "postgres", url, nil
	case strings.HasPrefix(url, "sqlite://"):
		dsn = strings.TrimPrefix(url, "sqlite://")
	case strings.HasPrefix(url, "sqlite3://"):
		dsn = strings.TrimPrefix(url, "sqlite3://")
	case strings.HasPrefix(url, "file:"):
		dsn = url
	default:
		return "", "", errors.ConfigInvalid(fmt.Sprintf("unsupported DATABASE_URL scheme: %q", url))
	}
	if dsn == "" {
		return "", "", errors.ConfigInvalid("DATABASE_URL has an empty sqlite path")
	}
	return "sqlite3", dsn, nil
}

func loadServerConfig() (*ServerConfig, error) {
	timeout, err := getEnvDurationOrDefault("SHUTDOWN_TIMEOUT", 10*time.Second)
	if err != nil {
		return nil, err
	}
	return &ServerConfig{
		Port:            getEnvOrDefault("PORT", "8080"),
		GinMode:         getEnvOrDefault("GIN_MODE", "release"),
		ShutdownTimeout: timeout,
	}, nil
}

func loadUploadConfig() (*UploadConfig, error) {
	ttl, err := getEnvDurationOrDefault("UPLOAD_TTL", 24*time.Hour)
	if err != nil {
		return nil, err
	}
	maxMB, err := getEnvIntOrDefault("MAX_UPLOAD_MB", 50)
	if err != nil {
		return nil, err
	}
	return &UploadConfig{
		Dir:      getEnvOrDefault("UPLOAD_DIR", "uploads"),
		TTL:      ttl,
		MaxBytes: int64(maxMB) * 1024 * 1024,
	}, nil
}

func loadMatchingConfig() (*MatchingConfig, error) {
	confidence, err := getEnvFloatOrDefault("MATCH_MIN_CONFIDENCE", 0.35)
	if err != nil {
		return nil, err
	}
	return &MatchingConfig{MinConfidence: confidence}, nil
}

func validateConfig(config *Config) error {
	switch config.Database.Storage {
	case StorageSQL, StorageMemory:
	default:
		return errors.ConfigInvalid(fmt.Sprintf("STORAGE must be %q or %q, got %q", StorageSQL, StorageMemory, config.Database.Storage))
	}
	if config.Server.Port == "" {
		return errors.ConfigInvalid("PORT is required")
	}
	if _, err := strconv.Atoi(config.Server.Port); err != nil {
		return errors.ConfigInvalid(fmt.Sprintf("PORT must be numeric, got %q", config.Server.Port))
	}
	if config.Upload.Dir == "" {
		return errors.ConfigInvalid("UPLOAD_DIR is required")
	}
	if config.Server.ShutdownTimeout <= 0 {
		return errors.ConfigInvalid("SHUTDOWN_TIMEOUT must be positive")
	}
	if config.Upload.TTL <= 0 {
		return errors.ConfigInvalid("UPLOAD_TTL must be positive")
	}
	if config.Upload.MaxBytes <= 0 {
		return errors.ConfigInvalid("MAX_UPLOAD_MB must be positive")
	}
	if config.Matching.MinConfidence < 0 || config.Matching.MinConfidence > 1 {
		return errors.ConfigInvalid("MATCH_MIN_CONFIDENCE must be between 0 and 1")
	}
	return nil
}

// Helper functions for environment variable parsing
func getEnvOrDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// A set but malformed value is a configuration error, never the default.
func getEnvIntOrDefault(key string, defaultValue int) (int, error) {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue, nil
	}
	intValue, err := strconv.Atoi(value)
	if err != nil {
		return 0, errors.ConfigInvalid(fmt.Sprintf("%s must be an integer, got %q", key, value))
	}
	return intValue, nil
}

func getEnvFloatOrDefault(key string, defaultValue float64) (float64, error) {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue, nil
	}
	floatValue, err := strconv.ParseFloat(value, 64)
	if err != nil {
		return 0, errors.ConfigInvalid(fmt.Sprintf("%s must be a number, got %q", key, value))
	}
	return floatValue, nil
}

func getEnvDurationOrDefault(key string, defaultValue time.Duration) (time.Duration, error) {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue, nil
	}
	duration, err := time.ParseDuration(value)
	if err != nil {
		return 0, errors.ConfigInvalid(fmt.Sprintf("%s must be a duration such as 10s or 24h, got %q", key, value))
	}
	return duration, nil
}
