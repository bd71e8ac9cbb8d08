// Package config loads the storefront client configuration from an env file
// in the user's config directory, an optional YAML file and the environment.
package config

import (
	"errors"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"time"

	"github.com/ilyakaznacheev/cleanenv"
	"github.com/joho/godotenv"
)

const (
	AppName      = "storefront"
	EnvFileName  = "config.env"
	YAMLFileName = "storefront.yaml"
	DBFileName   = "storefront.db"

	BackendSQLite = "sqlite"
	BackendRedis  = "redis"
)

// Config is the client configuration. Sources, highest priority first:
// environment variables, then the YAML file (explicit path, CONFIG_PATH or
// storefront.yaml in the config directory), then defaults.
type Config struct {
	APIURL string `yaml:"api_url" env:"STOREFRONT_API_URL" env-default:"http://localhost:8000/api/v1/"`
	// TokenKey is the passphrase the at-rest encryption key is derived from.
	TokenKey    string         `yaml:"token_key" env:"STOREFRONT_TOKEN_KEY"`
	Storage     StorageConfig  `yaml:"storage"`
	Timeouts    TimeoutConfig  `yaml:"timeouts"`
	Watchdog    WatchdogConfig `yaml:"watchdog"`
	Log         LogConfig      `yaml:"log"`
	MetricsAddr string         `yaml:"metrics_addr" env:"STOREFRONT_METRICS_ADDR"`
	Debug       bool           `yaml:"debug" env:"STOREFRONT_DEBUG"`
}

type StorageConfig struct {
	Backend     string `yaml:"backend" env:"STOREFRONT_STORAGE" env-default:"sqlite"`
	DBPath      string `yaml:"db_path" env:"STOREFRONT_DB_PATH"`
	RedisURL    string `yaml:"redis_url" env:"STOREFRONT_REDIS_URL"`
	RedisPrefix string `yaml:"redis_prefix" env:"STOREFRONT_REDIS_PREFIX" env-default:"storefront"`
}

type TimeoutConfig struct {
	Request time.Duration `yaml:"request" env:"STOREFRONT_REQUEST_TIMEOUT" env-default:"30s"`
	Refresh time.Duration `yaml:"refresh" env:"STOREFRONT_REFRESH_TIMEOUT" env-default:"15s"`
}

type WatchdogConfig struct {
	Interval  time.Duration `yaml:"interval" env:"STOREFRONT_WATCHDOG_INTERVAL" env-default:"30s"`
	Threshold time.Duration `yaml:"threshold" env:"STOREFRONT_WATCHDOG_THRESHOLD" env-default:"60s"`
}

type LogConfig struct {
	Level string `yaml:"level" env:"STOREFRONT_LOG_LEVEL" env-default:"info"`
	File  string `yaml:"file" env:"STOREFRONT_LOG_FILE"`
}

// ConfigDir returns the XDG config directory for the app.
// Uses $XDG_CONFIG_HOME/storefront or ~/.config/storefront
func ConfigDir() string {
	if xdg := os.Getenv("XDG_CONFIG_HOME"); xdg != "" {
		return filepath.Join(xdg, AppName)
	}
	home, _ := os.UserHomeDir()
	return filepath.Join(home, ".config", AppName)
}

// ConfigPath returns the full path to a config file.
func ConfigPath(filename string) string {
	return filepath.Join(ConfigDir(), filename)
}

// EnsureConfigDir creates the config directory if it doesn't exist.
func EnsureConfigDir() error {
	return os.MkdirAll(ConfigDir(), 0700)
}

// LoadEnvFile loads environment variables from the config file in the user's
// config directory. Errors are ignored since the file may not exist.
// Variables already set in the environment win.
func LoadEnvFile() {
	_ = godotenv.Load(ConfigPath(EnvFileName))
}

// WriteEnvFile writes vars to the env file with restrictive permissions,
// since it holds the token key. Returns the path written.
func WriteEnvFile(vars map[string]string) (string, error) {
	if err := EnsureConfigDir(); err != nil {
		return "", fmt.Errorf("failed to create config directory: %w", err)
	}
	path := ConfigPath(EnvFileName)
	if err := godotenv.Write(vars, path); err != nil {
		return "", fmt.Errorf("failed to write config file: %w", err)
	}
	if err := os.Chmod(path, 0600); err != nil {
		return "", fmt.Errorf("failed to restrict config file permissions: %w", err)
	}
	return path, nil
}

// Load reads the configuration. path may be empty.
func Load(path string) (*Config, error) {
	var cfg Config

	if path == "" {
		path = os.Getenv("CONFIG_PATH")
	}
	if path == "" {
		if _, err := os.Stat(ConfigPath(YAMLFileName)); err == nil {
			path = ConfigPath(YAMLFileName)
		}
	}

	if path != "" {
		if _, err := os.Stat(path); err != nil {
			return nil, fmt.Errorf("config file does not exist: %s", path)
		}
		if err := cleanenv.ReadConfig(path, &cfg); err != nil {
			return nil, fmt.Errorf("failed to read config: %w", err)
		}
	} else if err := cleanenv.ReadEnv(&cfg); err != nil {
		return nil, fmt.Errorf("failed to read config from environment: %w", err)
	}

	if cfg.Storage.DBPath == "" {
		cfg.Storage.DBPath = ConfigPath(DBFileName)
	}
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// ErrMissingTokenKey is returned by Load when no token key is configured.
// The setup wizard can generate one.
var ErrMissingTokenKey = errors.New("STOREFRONT_TOKEN_KEY is required")

func (c *Config) validate() error {
	if c.TokenKey == "" {
		return ErrMissingTokenKey
	}
	u, err := url.Parse(c.APIURL)
	if err != nil || u.Scheme == "" || u.Host == "" {
		return fmt.Errorf("api_url must be an absolute URL: %q", c.APIURL)
	}
	switch c.Storage.Backend {
	case BackendSQLite:
	case BackendRedis:
		if c.Storage.RedisURL == "" {
			return fmt.Errorf("storage.redis_url is required for the redis backend")
		}
	default:
		return fmt.Errorf("storage.backend must be %q or %q, got %q", BackendSQLite, BackendRedis, c.Storage.Backend)
	}
	if c.Watchdog.Interval <= 0 {
		return fmt.Errorf("watchdog.interval must be > 0")
	}
	if c.Watchdog.Threshold <= 0 {
		return fmt.Errorf("watchdog.threshold must be > 0")
	}
	if c.Timeouts.Request <= 0 || c.Timeouts.Refresh <= 0 {
		return fmt.Errorf("timeouts must be > 0")
	}
	return nil
}
