// Package config loads resultgroups settings from defaults, an optional
// YAML file and RESULTGROUPS_* environment variables, in increasing order of
// precedence.
package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"

	"github.com/mmynk/resultgroups/internal/errors"
)

// EnvPrefix is prepended to every environment variable, e.g. RESULTGROUPS_DB_PATH.
const EnvPrefix = "RESULTGROUPS"

const (
	DefaultDBPath        = "./data/resultgroups.db"
	DefaultLogLevel      = "info"
	DefaultCacheSize     = 1024
	DefaultMaxOpenConns  = 1
	DefaultBusyTimeoutMs = 5000
)

// Config holds runtime settings.
type Config struct {
	// DBPath is the SQLite database file.
	DBPath string `mapstructure:"db_path"`

	// LogLevel is one of debug, info, warn, error.
	LogLevel string `mapstructure:"log_level"`

	// CacheSize is the number of groups kept in the read-through cache.
	// Zero disables the cache.
	CacheSize int `mapstructure:"cache_size"`

	// MaxOpenConns caps database connections.
	MaxOpenConns int `mapstructure:"max_open_conns"`

	// BusyTimeoutMs is how long SQLite waits on a locked database.
	BusyTimeoutMs int `mapstructure:"busy_timeout_ms"`
}

// BusyTimeout returns BusyTimeoutMs as a duration.
func (c *Config) BusyTimeout() time.Duration {
	return time.Duration(c.BusyTimeoutMs) * time.Millisecond
}

// Validate checks value ranges.
func (c *Config) Validate() error {
	if c.DBPath == "" {
		return errors.NewMissingField("db_path")
	}
	switch strings.ToLower(c.LogLevel) {
	case "debug", "info", "warn", "error":
	default:
		return errors.NewInvalidValue("log_level", c.LogLevel, "must be debug, info, warn or error")
	}
	if c.CacheSize < 0 {
		return errors.NewInvalidValue("cache_size", c.CacheSize, "must not be negative")
	}
	if c.MaxOpenConns < 1 {
		return errors.NewInvalidValue("max_open_conns", c.MaxOpenConns, "must be at least 1")
	}
	if c.BusyTimeoutMs < 0 {
		return errors.NewInvalidValue("busy_timeout_ms", c.BusyTimeoutMs, "must not be negative")
	}
	return nil
}

// Load reads the configuration. configFile may be empty, in which case only
// defaults and the environment are used.
func Load(configFile string) (*Config, error) {
	v := viper.New()
	v.SetDefault("db_path", DefaultDBPath)
	v.SetDefault("log_level", DefaultLogLevel)
	v.SetDefault("cache_size", DefaultCacheSize)
	v.SetDefault("max_open_conns", DefaultMaxOpenConns)
	v.SetDefault("busy_timeout_ms", DefaultBusyTimeoutMs)

	v.SetEnvPrefix(EnvPrefix)
	v.AutomaticEnv()

	if configFile != "" {
		v.SetConfigFile(configFile)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("failed to load configuration file. %w", err)
		}
	}

	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("failed unmarshal configuration. %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}
