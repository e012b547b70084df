package server

import (
	"time"

	"github.com/xiaoyuanzhu-com/sessionhub/config"
	"github.com/xiaoyuanzhu-com/sessionhub/db"
	"github.com/xiaoyuanzhu-com/sessionhub/remote"
	"github.com/xiaoyuanzhu-com/sessionhub/syncer"
)

// Config holds server configuration
type Config struct {
	Env     string // "development" or "production"
	Version string

	DatabasePath string

	// Sync settings
	SyncEnabled  bool
	SyncDir      string
	SyncInterval time.Duration
	SyncWatch    bool

	// Remote endpoint settings
	RemoteEnabled bool
	RemoteHost    string
	RemotePort    int
	RemoteAddress string // advertised in /api/status

	// Debug settings
	DBLogQueries bool
}

// FromAppConfig projects the loaded application config into server config
func FromAppConfig(cfg *config.Config, version string) *Config {
	return &Config{
		Env:           cfg.Env,
		Version:       version,
		DatabasePath:  cfg.DatabasePath,
		SyncEnabled:   cfg.Sync.Enabled,
		SyncDir:       cfg.Sync.Dir,
		SyncInterval:  cfg.Sync.Interval,
		SyncWatch:     cfg.Sync.WatchEnabled,
		RemoteEnabled: cfg.Remote.Enabled,
		RemoteHost:    cfg.Remote.Host,
		RemotePort:    cfg.Remote.Port,
		RemoteAddress: cfg.Remote.Address,
		DBLogQueries:  cfg.DBLogQueries,
	}
}

// IsDevelopment returns true if running in development mode
func (c *Config) IsDevelopment() bool {
	return c.Env != "production"
}

// ToDBConfig converts server config to database config
func (c *Config) ToDBConfig() db.Config {
	return db.Config{
		Path:            c.DatabasePath,
		MaxOpenConns:    1, // single writer
		MaxIdleConns:    1,
		ConnMaxLifetime: 0, // Never expire
		LogQueries:      c.DBLogQueries,
	}
}

// ToSyncConfig converts server config to sync engine config
func (c *Config) ToSyncConfig() syncer.Config {
	return syncer.Config{
		Enabled: c.SyncEnabled,
		Dir:     c.SyncDir,
	}
}

// ToSyncServiceConfig converts server config to sync scheduling config
func (c *Config) ToSyncServiceConfig() syncer.ServiceConfig {
	return syncer.ServiceConfig{
		Interval: c.SyncInterval,
		Watch:    c.SyncWatch,
	}
}

// ToRemoteConfig converts server config to remote listener config
func (c *Config) ToRemoteConfig() remote.Config {
	return remote.Config{
		Host: c.RemoteHost,
		Port: c.RemotePort,
	}
}
