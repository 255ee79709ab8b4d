package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "plugboard.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

func TestLoadFromPath(t *testing.T) {
	path := writeConfig(t, `
server:
  listen: ":9090"
store:
  alias: postgres
  dsn: postgres://localhost/plugboard
plugins:
  services:
    enabled: true
  sysinfo:
    enabled: false
`)

	cfg, err := LoadFromPath(path)
	require.NoError(t, err)

	assert.Equal(t, ":9090", cfg.Server.Listen)
	assert.Equal(t, "postgres", cfg.Store.Alias)
	assert.True(t, cfg.PluginEnabled("services"))
	assert.False(t, cfg.PluginEnabled("sysinfo"))

	// Defaults survive partial files.
	assert.Equal(t, 50, cfg.RateLimit.RequestsPerSecond)
}

func TestLoadFromPathMissing(t *testing.T) {
	_, err := LoadFromPath(filepath.Join(t.TempDir(), "absent.yaml"))
	assert.Error(t, err)
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{"missing listen", func(c *Config) { c.Server.Listen = "" }},
		{"auth without secret", func(c *Config) { c.Auth.Enabled = true; c.Auth.Secret = "" }},
		{"auth with zero ttl", func(c *Config) {
			c.Auth.Enabled = true
			c.Auth.Secret = "s"
			c.Auth.TokenTTLMinutes = 0
		}},
		{"negative rate limit", func(c *Config) { c.RateLimit.Burst = -1 }},
		{"missing store alias", func(c *Config) { c.Store.Alias = "" }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			tt.mutate(cfg)
			assert.Error(t, cfg.Validate())
		})
	}

	assert.NoError(t, Default().Validate())
}

func TestEnvOverrides(t *testing.T) {
	t.Setenv("PLUGBOARD_LISTEN", ":7070")
	t.Setenv("PLUGBOARD_STORE_DSN", "redis://localhost:6379/0")

	path := writeConfig(t, `
server:
  listen: ":9090"
store:
  alias: redis
`)

	cfg, err := LoadFromPath(path)
	require.NoError(t, err)

	assert.Equal(t, ":7070", cfg.Server.Listen)
	assert.Equal(t, "redis://localhost:6379/0", cfg.Store.DSN)
}

func TestPluginEnabledUnknown(t *testing.T) {
	assert.False(t, Default().PluginEnabled("unknown"))
}
