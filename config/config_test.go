package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// isolate points the config directory at a temp dir and clears CONFIG_PATH.
func isolate(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	t.Setenv("XDG_CONFIG_HOME", dir)
	t.Setenv("CONFIG_PATH", "")
	return filepath.Join(dir, AppName)
}

func TestLoad_Defaults(t *testing.T) {
	dir := isolate(t)
	t.Setenv("STOREFRONT_TOKEN_KEY", "secret")

	cfg, err := Load("")

	require.NoError(t, err)
	assert.Equal(t, "http://localhost:8000/api/v1/", cfg.APIURL)
	assert.Equal(t, BackendSQLite, cfg.Storage.Backend)
	assert.Equal(t, filepath.Join(dir, DBFileName), cfg.Storage.DBPath)
	assert.Equal(t, 30*time.Second, cfg.Watchdog.Interval)
	assert.Equal(t, 60*time.Second, cfg.Watchdog.Threshold)
	assert.Equal(t, 30*time.Second, cfg.Timeouts.Request)
	assert.Equal(t, 15*time.Second, cfg.Timeouts.Refresh)
	assert.Equal(t, "info", cfg.Log.Level)
	assert.False(t, cfg.Debug)
}

func TestLoad_Env(t *testing.T) {
	isolate(t)
	t.Setenv("STOREFRONT_TOKEN_KEY", "secret")
	t.Setenv("STOREFRONT_API_URL", "https://shop.example.com/api/v1/")
	t.Setenv("STOREFRONT_STORAGE", "redis")
	t.Setenv("STOREFRONT_REDIS_URL", "redis://localhost:6379/0")
	t.Setenv("STOREFRONT_WATCHDOG_INTERVAL", "10s")
	t.Setenv("STOREFRONT_DEBUG", "true")

	cfg, err := Load("")

	require.NoError(t, err)
	assert.Equal(t, "https://shop.example.com/api/v1/", cfg.APIURL)
	assert.Equal(t, BackendRedis, cfg.Storage.Backend)
	assert.Equal(t, "redis://localhost:6379/0", cfg.Storage.RedisURL)
	assert.Equal(t, 10*time.Second, cfg.Watchdog.Interval)
	assert.True(t, cfg.Debug)
}

func TestLoad_YAMLWithEnvOverride(t *testing.T) {
	isolate(t)
	path := filepath.Join(t.TempDir(), "cfg.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
api_url: https://yaml.example.com/api/v1/
token_key: from-yaml
watchdog:
  interval: 5s
  threshold: 20s
log:
  level: debug
`), 0600))
	t.Setenv("STOREFRONT_LOG_LEVEL", "warn")

	cfg, err := Load(path)

	require.NoError(t, err)
	assert.Equal(t, "https://yaml.example.com/api/v1/", cfg.APIURL)
	assert.Equal(t, "from-yaml", cfg.TokenKey)
	assert.Equal(t, 5*time.Second, cfg.Watchdog.Interval)
	assert.Equal(t, 20*time.Second, cfg.Watchdog.Threshold)
	assert.Equal(t, "warn", cfg.Log.Level)
}

func TestLoad_YAMLFromConfigDir(t *testing.T) {
	dir := isolate(t)
	require.NoError(t, EnsureConfigDir())
	require.NoError(t, os.WriteFile(filepath.Join(dir, YAMLFileName), []byte("token_key: dir-key\n"), 0600))

	cfg, err := Load("")

	require.NoError(t, err)
	assert.Equal(t, "dir-key", cfg.TokenKey)
}

func TestLoad_Errors(t *testing.T) {
	t.Run("missing token key", func(t *testing.T) {
		isolate(t)
		t.Setenv("STOREFRONT_TOKEN_KEY", "")
		_, err := Load("")
		assert.ErrorIs(t, err, ErrMissingTokenKey)
	})

	t.Run("missing file", func(t *testing.T) {
		isolate(t)
		_, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
		assert.Error(t, err)
	})

	t.Run("redis without url", func(t *testing.T) {
		isolate(t)
		t.Setenv("STOREFRONT_TOKEN_KEY", "secret")
		t.Setenv("STOREFRONT_STORAGE", "redis")
		_, err := Load("")
		assert.ErrorContains(t, err, "redis_url")
	})

	t.Run("unknown backend", func(t *testing.T) {
		isolate(t)
		t.Setenv("STOREFRONT_TOKEN_KEY", "secret")
		t.Setenv("STOREFRONT_STORAGE", "postgres")
		_, err := Load("")
		assert.ErrorContains(t, err, "storage.backend")
	})

	t.Run("relative api url", func(t *testing.T) {
		isolate(t)
		t.Setenv("STOREFRONT_TOKEN_KEY", "secret")
		t.Setenv("STOREFRONT_API_URL", "api/v1")
		_, err := Load("")
		assert.ErrorContains(t, err, "api_url")
	})
}

func TestWriteAndLoadEnvFile(t *testing.T) {
	dir := isolate(t)
	t.Setenv("STOREFRONT_TOKEN_KEY", "")
	os.Unsetenv("STOREFRONT_TOKEN_KEY")

	path, err := WriteEnvFile(map[string]string{"STOREFRONT_TOKEN_KEY": "generated key"})
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(dir, EnvFileName), path)

	info, err := os.Stat(path)
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0600), info.Mode().Perm())

	LoadEnvFile()
	assert.Equal(t, "generated key", os.Getenv("STOREFRONT_TOKEN_KEY"))
}
