package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const validConfigYAML = `
server:
  host: "127.0.0.1"
  port: 8081
  read_timeout: 5s
redis:
  addr: "localhost:6379"
  default_ttl: 1h
log:
  level: debug
  format: console
metrics:
  enabled: true
flexophore:
  conformers: 50
  seed: 42
  workers: 2
`

func createTempConfigFile(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestLoad_FromFile_ValidConfig(t *testing.T) {
	cfg, err := Load(createTempConfigFile(t, validConfigYAML))
	require.NoError(t, err)

	assert.Equal(t, "127.0.0.1", cfg.Server.Host)
	assert.Equal(t, 8081, cfg.Server.Port)
	assert.Equal(t, 5*time.Second, cfg.Server.ReadTimeout)
	assert.Equal(t, time.Hour, cfg.Redis.DefaultTTL)
	assert.Equal(t, "debug", cfg.Log.Level)
	assert.True(t, cfg.Metrics.Enabled)
	assert.Equal(t, 50, cfg.Flexophore.Conformers)
	assert.Equal(t, int64(42), cfg.Flexophore.Seed)
	assert.Equal(t, 2, cfg.Flexophore.Workers)

	// defaults fill the rest
	assert.Equal(t, DefaultMaxTries, cfg.Flexophore.MaxTries)
	assert.Equal(t, DefaultRedisPrefix, cfg.Redis.KeyPrefix)
}

func TestLoad_FileNotFound(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.ErrorContains(t, err, "failed to read config file")
}

func TestLoad_InvalidYAML(t *testing.T) {
	_, err := Load(createTempConfigFile(t, "server: ["))
	assert.Error(t, err)
}

func TestLoad_ValidationFailure(t *testing.T) {
	_, err := Load(createTempConfigFile(t, "server:\n  port: 70000\n"))
	assert.ErrorContains(t, err, "validation failed")
}

func TestLoad_EnvOverride(t *testing.T) {
	t.Setenv("FLEXO_SERVER_PORT", "9999")
	t.Setenv("FLEXO_FLEXOPHORE_MAX_TRIES", "30")

	cfg, err := Load(createTempConfigFile(t, validConfigYAML))
	require.NoError(t, err)
	assert.Equal(t, 9999, cfg.Server.Port)
	assert.Equal(t, 30, cfg.Flexophore.MaxTries)
}

func TestLoadFromEnv(t *testing.T) {
	t.Setenv("FLEXO_LOG_LEVEL", "warn")
	t.Setenv("FLEXO_FLEXOPHORE_CONFORMERS", "100")

	cfg, err := LoadFromEnv()
	require.NoError(t, err)
	assert.Equal(t, "warn", cfg.Log.Level)
	assert.Equal(t, 100, cfg.Flexophore.Conformers)
	assert.Equal(t, DefaultServerPort, cfg.Server.Port)
}

func TestLoadOrDefault(t *testing.T) {
	cfg, err := LoadOrDefault("")
	require.NoError(t, err)
	assert.Equal(t, DefaultConformers, cfg.Flexophore.Conformers)

	cfg, err = LoadOrDefault(createTempConfigFile(t, validConfigYAML))
	require.NoError(t, err)
	assert.Equal(t, 50, cfg.Flexophore.Conformers)
}

func TestMustLoad(t *testing.T) {
	path := createTempConfigFile(t, validConfigYAML)
	assert.NotPanics(t, func() { MustLoad(path) })
	assert.Panics(t, func() { MustLoad(filepath.Join(t.TempDir(), "nope.yaml")) })
}

func TestWatch_MissingFile(t *testing.T) {
	err := Watch(filepath.Join(t.TempDir(), "nope.yaml"), func(*Config) {}, nil)
	assert.Error(t, err)
}

func TestWatch_ReloadsOnWrite(t *testing.T) {
	path := createTempConfigFile(t, validConfigYAML)
	changed := make(chan *Config, 4)
	require.NoError(t, Watch(path, func(c *Config) { changed <- c }, nil))

	updated := []byte("log:\n  level: error\n")
	require.NoError(t, os.WriteFile(path, updated, 0o644))

	select {
	case cfg := <-changed:
		assert.Equal(t, "error", cfg.Log.Level)
	case <-time.After(5 * time.Second):
		t.Skip("file watcher did not fire on this platform")
	}
}
