package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestLoad_FileOverridesDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
log_level: debug
cache:
  dir: /tmp/market-cache
  ttl_days: 3
sync:
  concurrency: 8
providers:
  order: [tushare, eastmoney]
  tushare:
    enabled: true
    token: file-token
`), 0o644))

	cfg, err := Load(path)
	require.NoError(t, err)

	require.Equal(t, "debug", cfg.LogLevel)
	require.Equal(t, "/tmp/market-cache", cfg.Cache.Dir)
	require.Equal(t, 3, cfg.Cache.TTLDays)
	require.Equal(t, 8, cfg.Sync.Concurrency)
	require.Equal(t, []string{"tushare", "eastmoney"}, cfg.Providers.Order)
	// untouched fields keep their defaults
	require.Equal(t, int64(500), cfg.Cache.MaxSizeMB)
	require.Equal(t, 3, cfg.Sync.Retries)
	require.NoError(t, cfg.Validate())
}

func TestLoad_MissingFileUsesDefaults(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	require.NoError(t, err)
	require.Equal(t, Default().Sync.Concurrency, cfg.Sync.Concurrency)
}

func TestLoad_EnvOverrides(t *testing.T) {
	t.Setenv("LOG_LEVEL", "warn")
	t.Setenv("TUSHARE_TOKEN", "env-token")
	t.Setenv("SYNC_CONCURRENCY", "11")

	cfg, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	require.NoError(t, err)

	require.Equal(t, "warn", cfg.LogLevel)
	require.Equal(t, "env-token", cfg.Providers.Tushare.Token)
	require.True(t, cfg.Providers.Tushare.Enabled, "a token from the environment enables the provider")
	require.Equal(t, 11, cfg.Sync.Concurrency)
}

func TestValidate(t *testing.T) {
	cfg := Default()
	require.NoError(t, cfg.Validate())

	bad := Default()
	bad.Sync.Concurrency = 0
	require.Error(t, bad.Validate())

	bad = Default()
	bad.Providers.Order = []string{"eastmoney", "bloomberg"}
	require.Error(t, bad.Validate())

	bad = Default()
	bad.Providers.Tushare.Enabled = true
	require.ErrorContains(t, bad.Validate(), "token")
}
