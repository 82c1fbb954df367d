package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/c360/cyclekit/errors"
)

func TestDefaultIsValid(t *testing.T) {
	cfg := Default()
	require.NoError(t, cfg.Validate())
	assert.Equal(t, "info", cfg.LogLevel)
	assert.Equal(t, 1, cfg.DispatchTurns)
	assert.Equal(t, 1, cfg.BootstrapTurns)
}

func TestLoadFromFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "cyclekit.yaml")
	data := []byte(`
log_level: debug
log_format: json
dispatch_turns: 2
http:
  addr: ":9090"
  rate_limit: 100
  rate_burst: 20
  shutdown_timeout: 5s
nats:
  url: "nats://localhost:4222"
  reconnect_wait: 1s
`)
	require.NoError(t, os.WriteFile(path, data, 0o600))

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "debug", cfg.LogLevel)
	assert.Equal(t, "json", cfg.LogFormat)
	assert.Equal(t, 2, cfg.DispatchTurns)
	assert.Equal(t, ":9090", cfg.HTTP.Addr)
	assert.Equal(t, 100.0, cfg.HTTP.RateLimit)
	assert.Equal(t, 20, cfg.HTTP.RateBurst)
	assert.Equal(t, 5*time.Second, cfg.HTTP.ShutdownTimeout)
	assert.Equal(t, "nats://localhost:4222", cfg.NATS.URL)
	assert.Equal(t, time.Second, cfg.NATS.ReconnectWait)

	// Unset fields keep their defaults.
	assert.Equal(t, 1, cfg.BootstrapTurns)
}

func TestLoadMissingFileFails(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	require.Error(t, err)
	assert.True(t, errors.IsConfig(err))
}

func TestLoadInvalidYAMLFails(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "bad.yaml")
	require.NoError(t, os.WriteFile(path, []byte("log_level: [broken"), 0o600))

	_, err := Load(path)
	require.Error(t, err)
	assert.True(t, errors.IsConfig(err))
}

func TestEnvironmentOverrides(t *testing.T) {
	t.Setenv("CYCLEKIT_LOG_LEVEL", "warn")
	t.Setenv("CYCLEKIT_HTTP_ADDR", ":7070")
	t.Setenv("CYCLEKIT_DISPATCH_TURNS", "3")
	t.Setenv("CYCLEKIT_RATE_LIMIT", "2.5")

	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, "warn", cfg.LogLevel)
	assert.Equal(t, ":7070", cfg.HTTP.Addr)
	assert.Equal(t, 3, cfg.DispatchTurns)
	assert.Equal(t, 2.5, cfg.HTTP.RateLimit)
}

func TestEnvironmentIgnoresUnparseableNumbers(t *testing.T) {
	t.Setenv("CYCLEKIT_DISPATCH_TURNS", "many")

	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, 1, cfg.DispatchTurns)
}

func TestValidateRejections(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(c *Config)
	}{
		{"bad log level", func(c *Config) { c.LogLevel = "loud" }},
		{"bad log format", func(c *Config) { c.LogFormat = "xml" }},
		{"zero dispatch turns", func(c *Config) { c.DispatchTurns = 0 }},
		{"zero bootstrap turns", func(c *Config) { c.BootstrapTurns = 0 }},
		{"negative rate limit", func(c *Config) { c.HTTP.RateLimit = -1 }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			tt.mutate(cfg)
			err := cfg.Validate()
			require.Error(t, err)
			assert.True(t, errors.IsConfig(err))
		})
	}
}
