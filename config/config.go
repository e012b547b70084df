package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"
)

// Config holds all application configuration
type Config struct {
	Env      string `yaml:"env"` // "development" or "production"
	LogLevel string `yaml:"logLevel"`

	// Data directory
	DataDir string `yaml:"dataDir"`

	// Database
	DatabasePath string `yaml:"databasePath"`

	Sync   SyncConfig   `yaml:"sync"`
	Remote RemoteConfig `yaml:"remote"`

	// Debug settings
	DBLogQueries bool `yaml:"dbLogQueries"`
}

// SyncConfig controls the shared-folder session sync.
// Sync is disabled unless explicitly turned on.
type SyncConfig struct {
	Enabled      bool          `yaml:"enabled"`
	Dir          string        `yaml:"dir"`
	Interval     time.Duration `yaml:"interval"`
	WatchEnabled bool          `yaml:"watch"`
}

// RemoteConfig controls the remote control endpoint and client
type RemoteConfig struct {
	Enabled bool   `yaml:"enabled"`
	Host    string `yaml:"host"`
	Port    int    `yaml:"port"`

	// Advertised address reported in /api/status (optional)
	Address string `yaml:"address"`

	// Base URL used by the remote client commands
	URL           string        `yaml:"url"`
	ClientTimeout time.Duration `yaml:"clientTimeout"`
}

const (
	DefaultRemotePort    = 8765
	DefaultClientTimeout = 5 * time.Second
	DefaultSyncInterval  = 5 * time.Minute
)

// Default returns the built-in configuration
func Default() *Config {
	home, err := os.UserHomeDir()
	if err != nil {
		home = "."
	}
	dataDir := filepath.Join(home, ".sessionhub")

	return &Config{
		Env:          "development",
		LogLevel:     "info",
		DataDir:      dataDir,
		Sync: SyncConfig{
			Enabled:      false,
			Interval:     DefaultSyncInterval,
			WatchEnabled: true,
		},
		Remote: RemoteConfig{
			Enabled:       true,
			Host:          "0.0.0.0",
			Port:          DefaultRemotePort,
			URL:           fmt.Sprintf("http://127.0.0.1:%d", DefaultRemotePort),
			ClientTimeout: DefaultClientTimeout,
		},
	}
}

// Load builds the configuration from defaults, an optional YAML file and
// environment variables, in that order of precedence (env wins).
// An empty path falls back to SESSIONHUB_CONFIG. The database lives in the
// data dir unless a path is set explicitly. A zero sync interval turns the
// periodic pass off.
func Load(path string) (*Config, error) {
	cfg := Default()

	if path == "" {
		path = os.Getenv("SESSIONHUB_CONFIG")
	}
	if path != "" {
		if err := loadFile(path, cfg); err != nil {
			return nil, err
		}
	}

	applyEnv(cfg)

	if cfg.DatabasePath == "" {
		cfg.DatabasePath = filepath.Join(cfg.DataDir, "sessionhub.sqlite")
	}
	if cfg.Remote.ClientTimeout <= 0 {
		cfg.Remote.ClientTimeout = DefaultClientTimeout
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func loadFile(path string, cfg *Config) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read config file: %w", err)
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return fmt.Errorf("failed to parse config file %s: %w", path, err)
	}
	return nil
}

func applyEnv(cfg *Config) {
	cfg.Env = getEnv("ENV", cfg.Env)
	cfg.LogLevel = getEnv("LOG_LEVEL", cfg.LogLevel)

	cfg.DataDir = getEnv("SESSIONHUB_DATA_DIR", cfg.DataDir)
	cfg.DatabasePath = getEnv("SESSIONHUB_DB_PATH", cfg.DatabasePath)

	cfg.Sync.Enabled = getEnvBool("SYNC_ENABLED", cfg.Sync.Enabled)
	cfg.Sync.Dir = getEnv("SYNC_DIR", cfg.Sync.Dir)
	cfg.Sync.Interval = getEnvDuration("SYNC_INTERVAL", cfg.Sync.Interval)
	cfg.Sync.WatchEnabled = getEnvBool("SYNC_WATCH", cfg.Sync.WatchEnabled)

	cfg.Remote.Enabled = getEnvBool("REMOTE_ENABLED", cfg.Remote.Enabled)
	cfg.Remote.Host = getEnv("REMOTE_HOST", cfg.Remote.Host)
	cfg.Remote.Port = getEnvInt("REMOTE_PORT", cfg.Remote.Port)
	cfg.Remote.Address = getEnv("REMOTE_ADDRESS", cfg.Remote.Address)
	cfg.Remote.URL = getEnv("REMOTE_URL", cfg.Remote.URL)
	cfg.Remote.ClientTimeout = getEnvDuration("REMOTE_CLIENT_TIMEOUT", cfg.Remote.ClientTimeout)

	cfg.DBLogQueries = getEnv("DB_LOG_QUERIES", "") == "1" || cfg.DBLogQueries
}

// Validate checks for inconsistent settings
func (c *Config) Validate() error {
	if c.Sync.Enabled && c.Sync.Dir == "" {
		return fmt.Errorf("sync is enabled but no sync dir is configured")
	}
	if c.Sync.Interval < 0 {
		return fmt.Errorf("invalid sync interval %v", c.Sync.Interval)
	}
	if c.Remote.Port < 0 || c.Remote.Port > 65535 {
		return fmt.Errorf("invalid remote port %d", c.Remote.Port)
	}
	return nil
}

// IsDevelopment returns true if running in development mode
func (c *Config) IsDevelopment() bool {
	return c.Env != "production"
}

// Helper functions

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

func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if d, err := time.ParseDuration(value); err == nil {
			return d
		}
	}
	return defaultValue
}
