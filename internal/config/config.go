// Package config provides configuration loading for the chemviz client,
// combining a TOML file, environment variables, and built-in defaults.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/BurntSushi/toml"
)

const (
	// DefaultServerURL is used when no server is configured.
	DefaultServerURL = "http://localhost:8000"
	// DefaultTimeoutSeconds bounds every request to the server.
	DefaultTimeoutSeconds = 30

	envServer  = "CHEMVIZ_SERVER"
	envTimeout = "CHEMVIZ_TIMEOUT"
)

// Config holds the client settings.
type Config struct {
	// ServerURL is the base URL of the equipment analytics API.
	ServerURL string `toml:"server_url"`
	// TimeoutSeconds is the per-request timeout.
	TimeoutSeconds int `toml:"timeout_seconds"`
	// NoColor disables colored terminal output.
	NoColor bool `toml:"no_color"`
	// LogLevel sets the zap log level ("debug", "info", "warn", "error").
	LogLevel string `toml:"log_level"`
}

// Load reads the TOML config at path, applies environment overrides,
// and fills in defaults. A missing file is not an error.
func Load(path string) (*Config, error) {
	cfg := &Config{}

	if path != "" {
		if _, err := os.Stat(path); err == nil {
			if _, err := toml.DecodeFile(path, cfg); err != nil {
				return nil, fmt.Errorf("failed to decode config: %w", err)
			}
		} else if !os.IsNotExist(err) {
			return nil, fmt.Errorf("failed to stat config: %w", err)
		}
	}

	// Environment overrides take precedence over the file.
	if v := os.Getenv(envServer); v != "" {
		cfg.ServerURL = v
	}
	if v := os.Getenv(envTimeout); v != "" {
		secs, err := strconv.Atoi(v)
		if err != nil || secs <= 0 {
			return nil, fmt.Errorf("invalid %s value %q", envTimeout, v)
		}
		cfg.TimeoutSeconds = secs
	}

	if cfg.ServerURL == "" {
		cfg.ServerURL = DefaultServerURL
	}
	if cfg.TimeoutSeconds <= 0 {
		cfg.TimeoutSeconds = DefaultTimeoutSeconds
	}
	if cfg.LogLevel == "" {
		cfg.LogLevel = "info"
	}
	return cfg, nil
}

// Timeout returns the request timeout as a duration.
func (c *Config) Timeout() time.Duration {
	return time.Duration(c.TimeoutSeconds) * time.Second
}

// XDGConfigHome returns the XDG config home or a default fallback.
func XDGConfigHome() string {
	if v := os.Getenv("XDG_CONFIG_HOME"); v != "" {
		return v
	}
	home, err := os.UserHomeDir()
	if err != nil || home == "" {
		return "."
	}
	return filepath.Join(home, ".config")
}

// Dir returns the chemviz configuration directory.
func Dir() string {
	return filepath.Join(XDGConfigHome(), "chemviz")
}

// DefaultConfigPath returns the default TOML config path.
func DefaultConfigPath() string {
	return filepath.Join(Dir(), "config.toml")
}
