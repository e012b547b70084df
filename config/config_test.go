package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestLoad_Defaults(t *testing.T) {
	t.Setenv("SESSIONHUB_CONFIG", "")
	t.Setenv("SYNC_ENABLED", "")
	t.Setenv("ENV", "")
	t.Setenv("REMOTE_PORT", "")
	t.Setenv("REMOTE_CLIENT_TIMEOUT", "")

	cfg, err := Load("")
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	if cfg.Sync.Enabled {
		t.Error("sync should be disabled by default")
	}
	if cfg.Remote.Port != DefaultRemotePort {
		t.Errorf("expected port %d, got %d", DefaultRemotePort, cfg.Remote.Port)
	}
	if cfg.Remote.ClientTimeout != DefaultClientTimeout {
		t.Errorf("expected client timeout %v, got %v", DefaultClientTimeout, cfg.Remote.ClientTimeout)
	}
	if !cfg.IsDevelopment() {
		t.Error("expected development env by default")
	}
}

func TestLoad_FileThenEnv(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	content := `
env: production
dataDir: /tmp/hub
sync:
  enabled: true
  dir: /tmp/shared
  interval: 30s
remote:
  port: 9000
`
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatal(err)
	}

	t.Setenv("REMOTE_PORT", "9100")
	t.Setenv("ENV", "")
	t.Setenv("SYNC_DIR", "")

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	if cfg.Env != "production" {
		t.Errorf("expected production env, got %s", cfg.Env)
	}
	if !cfg.Sync.Enabled || cfg.Sync.Dir != "/tmp/shared" {
		t.Errorf("unexpected sync config: %+v", cfg.Sync)
	}
	if cfg.Sync.Interval != 30*time.Second {
		t.Errorf("expected 30s interval, got %v", cfg.Sync.Interval)
	}
	if cfg.Remote.Port != 9100 {
		t.Errorf("env should override file port, got %d", cfg.Remote.Port)
	}
}

func TestLoad_SyncEnabledWithoutDir(t *testing.T) {
	t.Setenv("SESSIONHUB_CONFIG", "")
	t.Setenv("SYNC_ENABLED", "true")
	t.Setenv("SYNC_DIR", "")

	if _, err := Load(""); err == nil {
		t.Fatal("expected validation error when sync dir is missing")
	}
}

func TestLoad_MissingFile(t *testing.T) {
	if _, err := Load(filepath.Join(t.TempDir(), "nope.yaml")); err == nil {
		t.Fatal("expected error for missing config file")
	}
}

func TestLoad_DataDirDoesNotOverrideExplicitDatabasePath(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	content := `
databasePath: /var/lib/hub/explicit.sqlite
`
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatal(err)
	}
	t.Setenv("SESSIONHUB_DATA_DIR", "/tmp/elsewhere")
	t.Setenv("SESSIONHUB_DB_PATH", "")
	t.Setenv("SYNC_ENABLED", "")

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if cfg.DatabasePath != "/var/lib/hub/explicit.sqlite" {
		t.Errorf("explicit database path replaced: %s", cfg.DatabasePath)
	}
	if cfg.DataDir != "/tmp/elsewhere" {
		t.Errorf("expected data dir from env, got %s", cfg.DataDir)
	}
}

func TestLoad_DatabasePathFollowsDataDir(t *testing.T) {
	t.Setenv("SESSIONHUB_CONFIG", "")
	t.Setenv("SESSIONHUB_DATA_DIR", "/tmp/hubdata")
	t.Setenv("SESSIONHUB_DB_PATH", "")
	t.Setenv("SYNC_ENABLED", "")

	cfg, err := Load("")
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if cfg.DatabasePath != filepath.Join("/tmp/hubdata", "sessionhub.sqlite") {
		t.Errorf("unexpected database path %s", cfg.DatabasePath)
	}
}

func TestLoad_ZeroSyncIntervalDisablesTimer(t *testing.T) {
	t.Setenv("SESSIONHUB_CONFIG", "")
	t.Setenv("SYNC_ENABLED", "")
	t.Setenv("SYNC_INTERVAL", "0s")

	cfg, err := Load("")
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if cfg.Sync.Interval != 0 {
		t.Errorf("zero interval should be kept, got %v", cfg.Sync.Interval)
	}

	t.Setenv("SYNC_INTERVAL", "-1s")
	if _, err := Load(""); err == nil {
		t.Error("expected validation error for a negative interval")
	}
}
