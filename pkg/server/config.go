// Package server assembles the StockTrail HTTP API: it opens the database,
// runs migrations under a cross-replica lock, wires the lifecycle engine,
// auth, audit, and websocket feed onto a single chi router, and owns the
// background retention workers.
package server

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/stocktrail/stocktrail/pkg/audit"
	"github.com/stocktrail/stocktrail/pkg/auth"
)

// Supported database drivers.
const (
	DriverSQLite   = "sqlite"
	DriverPostgres = "postgres"
	DriverMySQL    = "mysql"
)

// Config is the full server configuration. Values are layered: defaults,
// then the YAML file, then STOCKTRAIL_* environment variables.
type Config struct {
	Address  string         `yaml:"address" json:"address"`
	Database DatabaseConfig `yaml:"database" json:"database"`
	Auth     AuthConfig     `yaml:"auth" json:"auth"`
	Audit    AuditConfig    `yaml:"audit" json:"audit"`
	CORS     CORSConfig     `yaml:"cors" json:"cors"`
	Watch    WatchConfig    `yaml:"watch" json:"watch"`
}

// DatabaseConfig selects the backing database.
type DatabaseConfig struct {
	Driver string `yaml:"driver" json:"driver"` // sqlite, postgres, or mysql
	DSN    string `yaml:"dsn" json:"dsn"`
	// MigrationLock serializes AutoMigrate across replicas. Leave it on
	// unless exactly one replica ever runs migrations.
	MigrationLock bool `yaml:"migrationLock" json:"migrationLock"`
}

// AuthConfig is the YAML shape of the token settings. Durations are
// strings in time.ParseDuration syntax ("15m", "720h").
type AuthConfig struct {
	Secret        string `yaml:"secret" json:"-"`
	Issuer        string `yaml:"issuer" json:"issuer"`
	Audience      string `yaml:"audience" json:"audience"`
	AccessTTL     string `yaml:"accessTTL" json:"accessTTL"`
	RefreshTTL    string `yaml:"refreshTTL" json:"refreshTTL"`
	LoginAttempts int    `yaml:"loginAttempts" json:"loginAttempts"`
	LoginWindow   string `yaml:"loginWindow" json:"loginWindow"`
}

// AuditConfig is the YAML shape of the request audit settings.
type AuditConfig struct {
	Enabled       *bool `yaml:"enabled" json:"enabled"`
	RetentionDays int   `yaml:"retentionDays" json:"retentionDays"`
	LogDenied     *bool `yaml:"logDenied" json:"logDenied"`
}

// CORSConfig controls cross-origin access to the API.
type CORSConfig struct {
	AllowedOrigins []string `yaml:"allowedOrigins" json:"allowedOrigins"`
}

// WatchConfig controls the websocket event feed.
type WatchConfig struct {
	Enabled *bool `yaml:"enabled" json:"enabled"`
}

// DefaultConfig returns the built-in defaults: sqlite with its standard
// file path, audit and the event feed on, permissive CORS. The sqlite DSN
// stays empty here so a driver switch does not inherit the file path;
// OpenDatabase fills in "stocktrail.db" for sqlite.
func DefaultConfig() *Config {
	return &Config{
		Address: ":8080",
		Database: DatabaseConfig{
			Driver:        DriverSQLite,
			MigrationLock: true,
		},
		CORS: CORSConfig{
			AllowedOrigins: []string{"https://*", "http://*"},
		},
	}
}

// LoadConfig builds a Config from the YAML file at path, layered over the
// defaults and under the environment. A missing file is not an error; an
// empty path skips the file entirely.
func LoadConfig(path string) (*Config, error) {
	cfg := DefaultConfig()

	if path != "" {
		data, err := os.ReadFile(path)
		switch {
		case os.IsNotExist(err):
			// Fall through to env and defaults.
		case err != nil:
			return nil, fmt.Errorf("read config %s: %w", path, err)
		default:
			if err := yaml.Unmarshal(data, cfg); err != nil {
				return nil, fmt.Errorf("parse config %s: %w", path, err)
			}
		}
	}

	cfg.applyEnv()

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// applyEnv overrides server-level fields from STOCKTRAIL_* variables.
// Auth and audit sections get their env overlay when converted, so the
// same variables work whether or not a file is in play.
func (c *Config) applyEnv() {
	if v := os.Getenv("STOCKTRAIL_ADDRESS"); v != "" {
		c.Address = v
	}
	if v := os.Getenv("STOCKTRAIL_DB_DRIVER"); v != "" {
		c.Database.Driver = v
	}
	if v := os.Getenv("STOCKTRAIL_DB_DSN"); v != "" {
		c.Database.DSN = v
	}
	if v := os.Getenv("STOCKTRAIL_DB_MIGRATION_LOCK"); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			c.Database.MigrationLock = b
		}
	}
	if v := os.Getenv("STOCKTRAIL_CORS_ORIGINS"); v != "" {
		origins := strings.Split(v, ",")
		for i := range origins {
			origins[i] = strings.TrimSpace(origins[i])
		}
		c.CORS.AllowedOrigins = origins
	}
	if v := os.Getenv("STOCKTRAIL_WATCH_ENABLED"); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			c.Watch.Enabled = &b
		}
	}
}

// Validate rejects configurations the server cannot start with.
func (c *Config) Validate() error {
	switch c.Database.Driver {
	case DriverSQLite, DriverPostgres, DriverMySQL:
	default:
		return fmt.Errorf("unknown database driver %q (expected sqlite, postgres, or mysql)", c.Database.Driver)
	}
	if c.Database.Driver != DriverSQLite && c.Database.DSN == "" {
		return fmt.Errorf("database DSN is required for driver %q", c.Database.Driver)
	}
	if c.Auth.AccessTTL != "" {
		if _, err := time.ParseDuration(c.Auth.AccessTTL); err != nil {
			return fmt.Errorf("invalid auth.accessTTL %q: %w", c.Auth.AccessTTL, err)
		}
	}
	if c.Auth.RefreshTTL != "" {
		if _, err := time.ParseDuration(c.Auth.RefreshTTL); err != nil {
			return fmt.Errorf("invalid auth.refreshTTL %q: %w", c.Auth.RefreshTTL, err)
		}
	}
	if c.Auth.LoginWindow != "" {
		if _, err := time.ParseDuration(c.Auth.LoginWindow); err != nil {
			return fmt.Errorf("invalid auth.loginWindow %q: %w", c.Auth.LoginWindow, err)
		}
	}
	return nil
}

// AuthConfig converts the auth section into the auth package's config,
// with environment variables winning over file values.
func (c *Config) AuthConfig() *auth.Config {
	ac := auth.DefaultConfig()

	if c.Auth.Secret != "" {
		ac.Secret = c.Auth.Secret
	}
	if c.Auth.Issuer != "" {
		ac.Issuer = c.Auth.Issuer
	}
	if c.Auth.Audience != "" {
		ac.Audience = c.Auth.Audience
	}
	if d, err := time.ParseDuration(c.Auth.AccessTTL); err == nil && d > 0 {
		ac.AccessTTL = d
	}
	if d, err := time.ParseDuration(c.Auth.RefreshTTL); err == nil && d > 0 {
		ac.RefreshTTL = d
	}
	if c.Auth.LoginAttempts > 0 {
		ac.LoginAttempts = c.Auth.LoginAttempts
	}
	if d, err := time.ParseDuration(c.Auth.LoginWindow); err == nil && d > 0 {
		ac.LoginWindow = d
	}

	ac.ApplyEnv()
	return ac
}

// AuditConfig converts the audit section into the audit package's config,
// with environment variables winning over file values.
func (c *Config) AuditConfig() *audit.Config {
	ac := audit.DefaultConfig()

	if c.Audit.Enabled != nil {
		ac.Enabled = *c.Audit.Enabled
	}
	if c.Audit.RetentionDays > 0 {
		ac.RetentionDays = c.Audit.RetentionDays
	}
	if c.Audit.LogDenied != nil {
		ac.LogDenied = *c.Audit.LogDenied
	}

	ac.ApplyEnv()
	return ac
}

// WatchEnabled reports whether the websocket feed should be mounted.
// The feed is on unless explicitly disabled.
func (c *Config) WatchEnabled() bool {
	return c.Watch.Enabled == nil || *c.Watch.Enabled
}
