package audit

import (
	"os"
	"strconv"
)

// Config controls audit behavior.
type Config struct {
	RetentionDays int  // Default 90
	LogDenied     bool // Whether to log denied (401/403) requests
	Enabled       bool // Whether the audit middleware is active
}

// DefaultConfig returns the default configuration.
func DefaultConfig() *Config {
	return &Config{
		RetentionDays: 90,
		LogDenied:     true,
		Enabled:       true,
	}
}

// ConfigFromEnv loads config from environment variables.
// STOCKTRAIL_AUDIT_RETENTION_DAYS, STOCKTRAIL_AUDIT_LOG_DENIED,
// STOCKTRAIL_AUDIT_ENABLED
func ConfigFromEnv() *Config {
	cfg := DefaultConfig()
	cfg.ApplyEnv()
	return cfg
}

// ApplyEnv overrides fields from environment variables where set, so
// file-derived configs can be layered under the environment.
func (c *Config) ApplyEnv() {
	if v := os.Getenv("STOCKTRAIL_AUDIT_RETENTION_DAYS"); v != "" {
		if days, err := strconv.Atoi(v); err == nil && days > 0 {
			c.RetentionDays = days
		}
	}

	if v := os.Getenv("STOCKTRAIL_AUDIT_LOG_DENIED"); v != "" {
		c.LogDenied, _ = strconv.ParseBool(v)
	}

	if v := os.Getenv("STOCKTRAIL_AUDIT_ENABLED"); v != "" {
		c.Enabled, _ = strconv.ParseBool(v)
	}
}
