package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mmynk/resultgroups/internal/errors"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, DefaultDBPath, cfg.DBPath)
	assert.Equal(t, DefaultLogLevel, cfg.LogLevel)
	assert.Equal(t, DefaultCacheSize, cfg.CacheSize)
	assert.Equal(t, DefaultMaxOpenConns, cfg.MaxOpenConns)
	assert.Equal(t, 5*time.Second, cfg.BusyTimeout())
}

func TestLoadFileAndEnv(t *testing.T) {
	path := filepath.Join(t.TempDir(), "resultgroups.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
db_path: /tmp/groups.db
log_level: debug
cache_size: 10
`), 0o644))

	t.Setenv("RESULTGROUPS_CACHE_SIZE", "0")

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "/tmp/groups.db", cfg.DBPath)
	assert.Equal(t, "debug", cfg.LogLevel)
	assert.Equal(t, 0, cfg.CacheSize, "environment overrides the file")
}

func TestLoadMissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	assert.Error(t, err)
}

func TestValidate(t *testing.T) {
	valid := Config{DBPath: "x.db", LogLevel: "warn", CacheSize: 1, MaxOpenConns: 1}
	require.NoError(t, valid.Validate())

	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{"empty db path", func(c *Config) { c.DBPath = "" }},
		{"bad log level", func(c *Config) { c.LogLevel = "loud" }},
		{"negative cache", func(c *Config) { c.CacheSize = -1 }},
		{"no connections", func(c *Config) { c.MaxOpenConns = 0 }},
		{"negative busy timeout", func(c *Config) { c.BusyTimeoutMs = -5 }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := valid
			tt.mutate(&c)
			err := c.Validate()
			require.Error(t, err)
			assert.True(t, errors.IsValidation(err))
		})
	}
}
