// Package config loads the engine configuration from global and
// project config files with environment variable overrides.
package config

import "time"

// Config represents the full engine configuration.
type Config struct {
	Version string `yaml:"version" mapstructure:"version"`

	// DocumentPath is the local task document.
	DocumentPath string `yaml:"document_path" mapstructure:"document_path"`

	// AccountID scopes every remote record.
	AccountID string `yaml:"account_id" mapstructure:"account_id"`

	// Remote repository configuration
	Remote RemoteConfig `yaml:"remote" mapstructure:"remote"`

	// Sync daemon configuration
	Sync SyncConfig `yaml:"sync" mapstructure:"sync"`

	// Log output configuration
	Log LogConfig `yaml:"log" mapstructure:"log"`
}

// RemoteConfig configures the remote relational repository.
type RemoteConfig struct {
	// DSN selects the backend: a *.db path or file: URL for embedded
	// SQLite, libsql://... for a hosted database, postgres://... for
	// Postgres.
	DSN string `yaml:"dsn" mapstructure:"dsn"`
}

// SyncConfig configures the reconciliation daemon.
type SyncConfig struct {
	// Interval between full reconciliations.
	Interval time.Duration `yaml:"interval" mapstructure:"interval"`

	// Debounce window applied to document change events.
	Debounce time.Duration `yaml:"debounce" mapstructure:"debounce"`
}

// LogConfig configures log output. With an empty File, logs go to
// stderr; otherwise they go to File with size-based rotation.
type LogConfig struct {
	File       string `yaml:"file" mapstructure:"file"`
	MaxSizeMB  int    `yaml:"max_size_mb" mapstructure:"max_size_mb"`
	MaxBackups int    `yaml:"max_backups" mapstructure:"max_backups"`
	MaxAgeDays int    `yaml:"max_age_days" mapstructure:"max_age_days"`
}
