package config

import (
	"fmt"
	"time"

	"github.com/caarlos0/env/v9"
)

// Config holds all configuration for the application.
type Config struct {
	Server    ServerConfig
	Database  DatabaseConfig
	Durastore DurastoreConfig
	Session   SessionConfig
}

// ServerConfig holds HTTP server configuration.
type ServerConfig struct {
	Host string `env:"SERVER_HOST" envDefault:"0.0.0.0"`
	Port int    `env:"SERVER_PORT" envDefault:"8080"`
}

// DatabaseConfig holds the policy-version audit database configuration.
type DatabaseConfig struct {
	Driver string `env:"DB_DRIVER" envDefault:"sqlite3"`
	DSN    string `env:"DB_DSN" envDefault:"data/policy-manager.db"`
}

// DurastoreConfig holds the remote storage service configuration.
type DurastoreConfig struct {
	// ServiceDomain is the backend base domain; tenant APIs live at
	// https://{subdomain}.{ServiceDomain}/{APIRoot}.
	ServiceDomain string `env:"DURASTORE_DOMAIN" envDefault:"duracloud.org"`
	APIRoot       string `env:"DURASTORE_API_ROOT" envDefault:"durastore"`
	// PolicyPrefix is the optional space-name prefix for the policy
	// repository collection.
	PolicyPrefix string `env:"DURASTORE_POLICY_PREFIX"`
	// FileShim points at a directory used in place of the real backend for
	// local development and testing.
	FileShim string `env:"DURASTORE_FILE_SHIM"`
}

// SessionConfig holds HTTP session behavior configuration.
type SessionConfig struct {
	Duration time.Duration `env:"SESSION_DURATION" envDefault:"8h"`
}

// Load loads configuration from environment variables.
func Load() (*Config, error) {
	cfg := &Config{}

	if err := env.Parse(&cfg.Server); err != nil {
		return nil, fmt.Errorf("parsing server config: %w", err)
	}
	if err := env.Parse(&cfg.Database); err != nil {
		return nil, fmt.Errorf("parsing database config: %w", err)
	}
	if err := env.Parse(&cfg.Durastore); err != nil {
		return nil, fmt.Errorf("parsing durastore config: %w", err)
	}
	if err := env.Parse(&cfg.Session); err != nil {
		return nil, fmt.Errorf("parsing session config: %w", err)
	}

	return cfg, nil
}

// Addr returns the server address in host:port format.
func (c *ServerConfig) Addr() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}

// Validate checks if the configuration is valid.
func (c *Config) Validate() error {
	if c.Durastore.FileShim == "" {
		if c.Durastore.ServiceDomain == "" {
			return fmt.Errorf("DURASTORE_DOMAIN is required (or set DURASTORE_FILE_SHIM for testing)")
		}
		if c.Durastore.APIRoot == "" {
			return fmt.Errorf("DURASTORE_API_ROOT is required (or set DURASTORE_FILE_SHIM for testing)")
		}
	}
	if c.Session.Duration <= 0 {
		return fmt.Errorf("SESSION_DURATION must be positive")
	}
	return nil
}

// UseFileShim returns true if the file shim should be used instead of the
// real backend.
func (c *Config) UseFileShim() bool {
	return c.Durastore.FileShim != ""
}
