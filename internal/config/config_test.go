package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultIsValid(t *testing.T) {
	require.NoError(t, Default().Validate())
}

func TestLoadConfig_FileAndEnv(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
server:
  port: 9090
  read_timeout: 5s
database:
  driver: mysql
  port: 3306
analysis:
  language: id
cache:
  ttl: 2m
ingestion:
  jobs:
    - {name: gini, domain: "3400", var: "333", years: "2020:2023", category_id: 10}
`), 0o600))

	t.Setenv("CONFIG_PATH", path)
	t.Setenv("DB_HOST", "db.internal")
	t.Setenv("CACHE_ENABLED", "true")
	t.Setenv("SERVER_PORT", "")

	cfg, err := LoadConfig()
	require.NoError(t, err)

	assert.Equal(t, 9090, cfg.Server.Port)
	assert.Equal(t, 5*time.Second, cfg.Server.ReadTimeout)
	assert.Equal(t, 30*time.Second, cfg.Server.WriteTimeout)
	assert.Equal(t, "mysql", cfg.Database.Driver)
	assert.Equal(t, "db.internal", cfg.Database.Host)
	assert.Equal(t, "id", cfg.Analysis.Language)
	assert.Equal(t, 2*time.Minute, cfg.Cache.TTL)
	assert.True(t, cfg.Cache.Enabled)
	require.Len(t, cfg.Ingestion.Jobs, 1)
	assert.Equal(t, int64(10), cfg.Ingestion.Jobs[0].CategoryID)
	assert.NoError(t, cfg.Validate())
}

func TestLoadConfig_MissingExplicitFile(t *testing.T) {
	t.Setenv("CONFIG_PATH", filepath.Join(t.TempDir(), "nope.yaml"))
	_, err := LoadConfig()
	assert.Error(t, err)
}

func TestApplyEnv_BadValues(t *testing.T) {
	env := map[string]string{"DB_PORT": "five"}
	lookup := func(k string) (string, bool) {
		v, ok := env[k]
		return v, ok
	}

	assert.Error(t, Default().applyEnv(lookup))

	env = map[string]string{"CACHE_ENABLED": "maybe"}
	assert.Error(t, Default().applyEnv(lookup))
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
		want   string
	}{
		{"bad driver", func(c *Config) { c.Database.Driver = "sqlite" }, "database.driver"},
		{"bad port", func(c *Config) { c.Server.Port = 0 }, "server.port"},
		{"bad language", func(c *Config) { c.Analysis.Language = "fr" }, "analysis.language"},
		{"bad policy", func(c *Config) { c.Analysis.DuplicatePolicy = "merge" }, "analysis.duplicate_policy"},
		{"unknown category", func(c *Config) { c.Ingestion.Jobs[0].CategoryID = 999 }, "unknown category_id 999"},
		{"cache without addr", func(c *Config) { c.Cache.Enabled = true; c.Cache.Addr = "" }, "cache.addr"},
		{"zero rate", func(c *Config) { c.Ingestion.RequestsPerSecond = 0 }, "requests_per_second"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			tt.mutate(cfg)
			err := cfg.Validate()
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.want)
		})
	}
}
