// Package config loads the console host configuration.
package config

import (
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

// Config is the root configuration for the console host.
type Config struct {
	Server    ServerConfig               `yaml:"server"`
	Auth      AuthConfig                 `yaml:"auth"`
	RateLimit RateLimitConfig            `yaml:"rate_limit"`
	Store     StoreConfig                `yaml:"store"`
	Sweep     SweepConfig                `yaml:"sweep"`
	Plugins   map[string]*PluginSettings `yaml:"plugins"`

	// ManifestDir holds *.manifest.json extension declarations.
	ManifestDir string `yaml:"manifest_dir"`
}

// ServerConfig configures the HTTP listener.
type ServerConfig struct {
	Listen         string   `yaml:"listen"`
	AllowedOrigins []string `yaml:"allowed_origins"`
}

// AuthConfig configures console authentication. When enabled, requests to
// the console require a bearer token issued by the login endpoint.
type AuthConfig struct {
	Enabled           bool   `yaml:"enabled"`
	Secret            string `yaml:"secret"`
	AdminUser         string `yaml:"admin_user"`
	AdminPasswordHash string `yaml:"admin_password_hash"` // bcrypt
	TokenTTLMinutes   int    `yaml:"token_ttl_minutes"`
}

// RateLimitConfig configures per-client request limits.
type RateLimitConfig struct {
	RequestsPerSecond int `yaml:"requests_per_second"`
	Burst             int `yaml:"burst"`
}

// StoreConfig selects the store provider by extension alias.
type StoreConfig struct {
	Alias string `yaml:"alias"`
	DSN   string `yaml:"dsn"`
}

// SweepConfig configures the periodic registry sweep.
type SweepConfig struct {
	Schedule string `yaml:"schedule"` // cron expression; empty disables
}

// PluginSettings controls one built-in plugin.
type PluginSettings struct {
	Enabled     bool   `yaml:"enabled"`
	Description string `yaml:"description"`
}

// Load loads the configuration from config/plugboard.yaml.
func Load() (*Config, error) {
	return LoadFromPath(filepath.Join("config", "plugboard.yaml"))
}

// LoadFromPath loads the configuration from a specific path.
func LoadFromPath(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config: %w", err)
	}

	cfg := Default()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}

	cfg.applyEnv()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// LoadOrDefault loads the configuration or returns the default when the
// file is missing.
func LoadOrDefault() *Config {
	cfg, err := Load()
	if err != nil {
		cfg = Default()
		cfg.applyEnv()
	}
	return cfg
}

// Default returns the default configuration with all built-in plugins
// enabled.
func Default() *Config {
	return &Config{
		Server: ServerConfig{
			Listen:         ":8080",
			AllowedOrigins: []string{"*"},
		},
		Auth: AuthConfig{
			Enabled:         false,
			TokenTTLMinutes: 60,
		},
		RateLimit: RateLimitConfig{
			RequestsPerSecond: 50,
			Burst:             100,
		},
		Store: StoreConfig{
			Alias: "memory",
		},
		Sweep: SweepConfig{
			Schedule: "@every 1m",
		},
		Plugins: map[string]*PluginSettings{
			"services": {Enabled: true, Description: "Service registry browser"},
			"sysinfo":  {Enabled: true, Description: "Host system information"},
			"events":   {Enabled: true, Description: "Live registry event stream"},
		},
	}
}

// Validate checks invariants that would otherwise fail at runtime.
func (c *Config) Validate() error {
	if c.Server.Listen == "" {
		return fmt.Errorf("config: server.listen is required")
	}
	if c.Auth.Enabled && c.Auth.Secret == "" {
		return fmt.Errorf("config: auth.secret is required when auth is enabled")
	}
	if c.Auth.Enabled && c.Auth.TokenTTLMinutes <= 0 {
		return fmt.Errorf("config: auth.token_ttl_minutes must be positive")
	}
	if c.RateLimit.RequestsPerSecond < 0 || c.RateLimit.Burst < 0 {
		return fmt.Errorf("config: rate limit values must not be negative")
	}
	if c.Store.Alias == "" {
		return fmt.Errorf("config: store.alias is required")
	}
	return nil
}

// PluginEnabled reports whether the named built-in plugin is enabled.
// Unknown plugins default to disabled.
func (c *Config) PluginEnabled(name string) bool {
	settings, ok := c.Plugins[name]
	return ok && settings.Enabled
}

// applyEnv applies PLUGBOARD_* environment overrides.
func (c *Config) applyEnv() {
	if v := os.Getenv("PLUGBOARD_LISTEN"); v != "" {
		c.Server.Listen = v
	}
	if v := os.Getenv("PLUGBOARD_AUTH_SECRET"); v != "" {
		c.Auth.Secret = v
	}
	if v := os.Getenv("PLUGBOARD_STORE_DSN"); v != "" {
		c.Store.DSN = v
	}
	if v := os.Getenv("PLUGBOARD_MANIFEST_DIR"); v != "" {
		c.ManifestDir = v
	}
}
