package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/adrg/xdg"
	"github.com/pelletier/go-toml/v2"
)

const appName = "pinup"

// Environment variables read by Load
const (
	EnvConfigPath = "PINUP_CONFIG"
	EnvDBPath     = "PINUP_DB_PATH"
	EnvLogLevel   = "PINUP_LOG_LEVEL"
	EnvLogFormat  = "PINUP_LOG_FORMAT"
)

// Config holds the runtime settings shared by every command
type Config struct {
	DBPath           string `toml:"db_path"`
	LogLevel         string `toml:"log_level"`
	LogFormat        string `toml:"log_format"`
	DefaultLimit     int    `toml:"default_limit"`
	MaxLimit         int    `toml:"max_limit"`
	CacheSize        int    `toml:"cache_size"`
	ReindexOnStartup bool   `toml:"reindex_on_startup"`
}

// Default returns the built-in configuration
func Default() *Config {
	return &Config{
		DBPath:           DefaultDBPath(),
		LogLevel:         "info",
		LogFormat:        "text",
		DefaultLimit:     20,
		MaxLimit:         200,
		CacheSize:        1000,
		ReindexOnStartup: true,
	}
}

// DefaultDBPath returns $XDG_DATA_HOME/pinup/pinup.db
func DefaultDBPath() string {
	xdg.Reload()
	return filepath.Join(xdg.DataHome, appName, appName+".db")
}

// DefaultConfigPath returns $XDG_CONFIG_HOME/pinup/config.toml
func DefaultConfigPath() string {
	xdg.Reload()
	return filepath.Join(xdg.ConfigHome, appName, "config.toml")
}

// Load resolves the configuration from defaults, the TOML file and the
// environment, in that order. path selects the file; when empty,
// PINUP_CONFIG and then the XDG default are used. A missing file is only an
// error when it was named explicitly.
func Load(path string) (*Config, error) {
	cfg := Default()

	explicit := path != ""
	if !explicit {
		if env := os.Getenv(EnvConfigPath); env != "" {
			path, explicit = env, true
		} else {
			path = DefaultConfigPath()
		}
	}

	if err := cfg.loadFile(path); err != nil && (explicit || !errors.Is(err, os.ErrNotExist)) {
		return nil, err
	}

	cfg.applyEnv()

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) loadFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("reading config file: %w", err)
	}
	if err := toml.Unmarshal(data, c); err != nil {
		return fmt.Errorf("unmarshaling config %s: %w", path, err)
	}
	return nil
}

func (c *Config) applyEnv() {
	if v := os.Getenv(EnvDBPath); v != "" {
		c.DBPath = v
	}
	if v := os.Getenv(EnvLogLevel); v != "" {
		c.LogLevel = v
	}
	if v := os.Getenv(EnvLogFormat); v != "" {
		c.LogFormat = v
	}
}

// Validate checks that every setting is usable
func (c *Config) Validate() error {
	c.LogLevel = strings.ToLower(strings.TrimSpace(c.LogLevel))
	c.LogFormat = strings.ToLower(strings.TrimSpace(c.LogFormat))

	if strings.TrimSpace(c.DBPath) == "" {
		return fmt.Errorf("db_path cannot be empty")
	}
	switch c.LogLevel {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("invalid log_level %q: must be debug, info, warn or error", c.LogLevel)
	}
	switch c.LogFormat {
	case "text", "json":
	default:
		return fmt.Errorf("invalid log_format %q: must be text or json", c.LogFormat)
	}
	if c.MaxLimit < 1 {
		return fmt.Errorf("max_limit must be positive, got %d", c.MaxLimit)
	}
	if c.DefaultLimit < 1 || c.DefaultLimit > c.MaxLimit {
		return fmt.Errorf("default_limit must be between 1 and max_limit (%d), got %d", c.MaxLimit, c.DefaultLimit)
	}
	if c.CacheSize < 0 {
		return fmt.Errorf("cache_size cannot be negative, got %d", c.CacheSize)
	}
	return nil
}

// EnsureDataDir creates the directory holding the database file
func (c *Config) EnsureDataDir() error {
	if c.DBPath == ":memory:" {
		return nil
	}
	if err := os.MkdirAll(filepath.Dir(c.DBPath), 0o755); err != nil {
		return fmt.Errorf("creating data directory: %w", err)
	}
	return nil
}
