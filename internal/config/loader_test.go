package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()

	if cfg.Version != "1" {
		t.Errorf("Expected version '1', got '%s'", cfg.Version)
	}
	if cfg.DocumentPath != ".taskmaster/tasks.json" {
		t.Errorf("Unexpected document path '%s'", cfg.DocumentPath)
	}
	if cfg.Sync.Interval != 30*time.Second {
		t.Errorf("Expected 30s sync interval, got %v", cfg.Sync.Interval)
	}
	if cfg.Sync.Debounce != 100*time.Millisecond {
		t.Errorf("Expected 100ms debounce, got %v", cfg.Sync.Debounce)
	}
	if cfg.Log.File != "" {
		t.Errorf("Expected stderr logging by default, got file '%s'", cfg.Log.File)
	}
}

func TestWriteDefault(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := WriteDefault(path); err != nil {
		t.Fatalf("WriteDefault failed: %v", err)
	}

	content, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("Failed to read config: %v", err)
	}
	if !strings.Contains(string(content), "document_path:") {
		t.Error("Expected document_path in default config")
	}

	// The written defaults must load back to the in-memory defaults.
	cfg, err := LoadFile(path)
	if err != nil {
		t.Fatalf("LoadFile failed: %v", err)
	}
	want := DefaultConfig()
	if cfg.DocumentPath != want.DocumentPath ||
		cfg.AccountID != want.AccountID ||
		cfg.Remote.DSN != want.Remote.DSN ||
		cfg.Sync.Interval != want.Sync.Interval {
		t.Errorf("written defaults loaded as %+v, want %+v", cfg, want)
	}
}

func TestLoadFileOverridesDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	content := `version: "1"
document_path: /data/tasks.json
account_id: team-a
remote:
  dsn: postgres://localhost/tasks
sync:
  interval: 5m
  debounce: 250ms
log:
  file: /var/log/tm.log
  max_size_mb: 50
`
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatal(err)
	}

	cfg, err := LoadFile(path)
	if err != nil {
		t.Fatalf("LoadFile failed: %v", err)
	}

	if cfg.DocumentPath != "/data/tasks.json" {
		t.Errorf("document_path = %s", cfg.DocumentPath)
	}
	if cfg.AccountID != "team-a" {
		t.Errorf("account_id = %s", cfg.AccountID)
	}
	if cfg.Remote.DSN != "postgres://localhost/tasks" {
		t.Errorf("remote.dsn = %s", cfg.Remote.DSN)
	}
	if cfg.Sync.Interval != 5*time.Minute {
		t.Errorf("sync.interval = %v", cfg.Sync.Interval)
	}
	if cfg.Sync.Debounce != 250*time.Millisecond {
		t.Errorf("sync.debounce = %v", cfg.Sync.Debounce)
	}
	if cfg.Log.File != "/var/log/tm.log" || cfg.Log.MaxSizeMB != 50 {
		t.Errorf("log = %+v", cfg.Log)
	}
	// Values the file omits keep their defaults.
	if cfg.Log.MaxBackups != 3 {
		t.Errorf("log.max_backups = %d, want default 3", cfg.Log.MaxBackups)
	}
}

func TestLoadFileMissing(t *testing.T) {
	if _, err := LoadFile(filepath.Join(t.TempDir(), "nope.yaml")); err == nil {
		t.Error("loading a missing explicit file must fail")
	}
}

func TestEnvOverrides(t *testing.T) {
	t.Setenv("TM_ACCOUNT_ID", "from-env")
	t.Setenv("TM_REMOTE_DSN", "libsql://example.turso.io")

	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := WriteDefault(path); err != nil {
		t.Fatal(err)
	}

	cfg, err := LoadFile(path)
	if err != nil {
		t.Fatalf("LoadFile failed: %v", err)
	}
	if cfg.AccountID != "from-env" {
		t.Errorf("account_id = %s, want env override", cfg.AccountID)
	}
	if cfg.Remote.DSN != "libsql://example.turso.io" {
		t.Errorf("remote.dsn = %s, want env override", cfg.Remote.DSN)
	}
}
