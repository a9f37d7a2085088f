package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestLoadConfigDefaults(t *testing.T) {
	cfg, err := LoadConfig(t.TempDir())
	require.NoError(t, err)

	require.Equal(t, "info", cfg.Log.Level)
	require.Equal(t, "sqlite", cfg.Database.Driver)
	require.False(t, cfg.Cache.Redis.Enabled)
	require.Equal(t, 5*time.Second, cfg.Cache.Redis.Timeout)
	require.Equal(t, time.Hour, cfg.Permission.CacheTTL)
}

func TestLoadConfigReadsYAML(t *testing.T) {
	dir := t.TempDir()
	contents := []byte(`
log:
  level: debug
database:
  driver: postgres
  host: db.internal
  port: 5433
  user: app
  name: rowperm
cache:
  redis:
    enabled: true
    address: "redis.internal:6379"
permission:
  cache_ttl: 30m
`)
	require.NoError(t, os.WriteFile(filepath.Join(dir, "config.yaml"), contents, 0o600))

	cfg, err := LoadConfig(dir)
	require.NoError(t, err)

	require.Equal(t, "debug", cfg.Log.Level)
	require.Equal(t, "postgres", cfg.Database.Driver)
	require.Equal(t, "db.internal", cfg.Database.Host)
	require.Equal(t, 5433, cfg.Database.Port)
	require.True(t, cfg.Cache.Redis.Enabled)
	require.Equal(t, "redis.internal:6379", cfg.Cache.Redis.Address)
	require.Equal(t, 30*time.Minute, cfg.Permission.CacheTTL)
}

func TestValidateCollectsAllProblems(t *testing.T) {
	cfg := &Config{}
	cfg.Database.Driver = "oracle"
	cfg.Cache.Redis.Enabled = true
	cfg.Cache.Redis.Address = "  "
	cfg.Permission.CacheTTL = -time.Second

	err := cfg.Validate()
	require.Error(t, err)
	require.Contains(t, err.Error(), "unsupported database driver")
	require.Contains(t, err.Error(), "cache.redis.address")
	require.Contains(t, err.Error(), "cache_ttl")
}

func TestValidateAcceptsDefaults(t *testing.T) {
	cfg, err := LoadConfig(t.TempDir())
	require.NoError(t, err)
	require.NoError(t, cfg.Validate())
}

func TestDatabaseClientConfigTrimsFields(t *testing.T) {
	section := DatabaseConfig{Driver: " postgres ", Host: " db ", User: " app ", Name: " rowperm "}
	converted := section.DatabaseClientConfig()

	require.Equal(t, "postgres", converted.Driver)
	require.Equal(t, "db", converted.Host)
	require.Equal(t, "app", converted.User)
	require.Equal(t, "rowperm", converted.Name)
}
