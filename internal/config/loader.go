package config

import (
	"os"
	"path/filepath"

	"github.com/spf13/viper"
)

// envPrefix is the prefix for environment variable overrides, e.g.
// TM_ACCOUNT_ID overrides account_id.
const envPrefix = "TM"

// Load loads and merges configuration from global and project sources.
// The project config overrides the global one, and TM_* environment
// variables override both.
func Load() (*Config, error) {
	cfg := DefaultConfig()

	if home, err := os.UserHomeDir(); err == nil {
		globalPath := filepath.Join(home, ".taskmaster", "config.yaml")
		if err := loadFile(globalPath, cfg); err != nil && !os.IsNotExist(err) {
			return nil, err
		}
	}

	if cwd, err := os.Getwd(); err == nil {
		projectPath := filepath.Join(cwd, ".taskmaster", "config.yaml")
		if err := loadFile(projectPath, cfg); err != nil && !os.IsNotExist(err) {
			return nil, err
		}
	}

	applyEnv(cfg)
	return cfg, nil
}

// LoadFile loads configuration from a single explicit file on top of
// the defaults, then applies environment overrides.
func LoadFile(path string) (*Config, error) {
	cfg := DefaultConfig()
	if err := loadFile(path, cfg); err != nil {
		return nil, err
	}
	applyEnv(cfg)
	return cfg, nil
}

func loadFile(path string, cfg *Config) error {
	if _, err := os.Stat(path); os.IsNotExist(err) {
		return err
	}

	v := viper.New()
	v.SetConfigFile(path)
	v.SetConfigType("yaml")

	if err := v.ReadInConfig(); err != nil {
		return err
	}

	return v.Unmarshal(cfg)
}

// applyEnv overrides string settings from TM_* environment variables.
func applyEnv(cfg *Config) {
	v := viper.New()
	v.SetEnvPrefix(envPrefix)
	v.AutomaticEnv()

	if s := v.GetString("DOCUMENT_PATH"); s != "" {
		cfg.DocumentPath = s
	}
	if s := v.GetString("ACCOUNT_ID"); s != "" {
		cfg.AccountID = s
	}
	if s := v.GetString("REMOTE_DSN"); s != "" {
		cfg.Remote.DSN = s
	}
	if s := v.GetString("LOG_FILE"); s != "" {
		cfg.Log.File = s
	}
}

// ProjectConfigPath returns the path to the project config file.
func ProjectConfigPath() string {
	cwd, _ := os.Getwd()
	return filepath.Join(cwd, ".taskmaster", "config.yaml")
}

// ProjectDir returns the path to the project .taskmaster directory.
func ProjectDir() string {
	cwd, _ := os.Getwd()
	return filepath.Join(cwd, ".taskmaster")
}
