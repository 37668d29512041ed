package auth

import (
	"os"
	"strconv"
	"time"
)

// Config controls token issuance and login throttling.
type Config struct {
	Secret        string        // HS256 signing secret, required in production
	Issuer        string        // iss claim on issued tokens
	Audience      string        // aud claim on issued tokens
	AccessTTL     time.Duration // access token lifetime, default 15m
	RefreshTTL    time.Duration // refresh token lifetime, default 720h
	LoginAttempts int           // failed logins allowed per window, default 5
	LoginWindow   time.Duration // login throttle window, default 1m
}

// DefaultConfig returns the default configuration.
func DefaultConfig() *Config {
	return &Config{
		Issuer:        "stocktrail",
		Audience:      "stocktrail-api",
		AccessTTL:     15 * time.Minute,
		RefreshTTL:    30 * 24 * time.Hour,
		LoginAttempts: 5,
		LoginWindow:   time.Minute,
	}
}

// ConfigFromEnv loads config from environment variables.
// STOCKTRAIL_AUTH_SECRET, STOCKTRAIL_AUTH_ISSUER, STOCKTRAIL_AUTH_AUDIENCE,
// STOCKTRAIL_AUTH_ACCESS_TTL, STOCKTRAIL_AUTH_REFRESH_TTL,
// STOCKTRAIL_AUTH_LOGIN_ATTEMPTS, STOCKTRAIL_AUTH_LOGIN_WINDOW
func ConfigFromEnv() *Config {
	cfg := DefaultConfig()
	cfg.ApplyEnv()
	return cfg
}

// ApplyEnv overrides fields from environment variables where set. Values
// already on the config survive unless the corresponding variable is present,
// so file-derived configs can be layered under the environment.
func (c *Config) ApplyEnv() {
	if v := os.Getenv("STOCKTRAIL_AUTH_SECRET"); v != "" {
		c.Secret = v
	}
	if v := os.Getenv("STOCKTRAIL_AUTH_ISSUER"); v != "" {
		c.Issuer = v
	}
	if v := os.Getenv("STOCKTRAIL_AUTH_AUDIENCE"); v != "" {
		c.Audience = v
	}
	if v := os.Getenv("STOCKTRAIL_AUTH_ACCESS_TTL"); v != "" {
		if d, err := time.ParseDuration(v); err == nil && d > 0 {
			c.AccessTTL = d
		}
	}
	if v := os.Getenv("STOCKTRAIL_AUTH_REFRESH_TTL"); v != "" {
		if d, err := time.ParseDuration(v); err == nil && d > 0 {
			c.RefreshTTL = d
		}
	}
	if v := os.Getenv("STOCKTRAIL_AUTH_LOGIN_ATTEMPTS"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			c.LoginAttempts = n
		}
	}
	if v := os.Getenv("STOCKTRAIL_AUTH_LOGIN_WINDOW"); v != "" {
		if d, err := time.ParseDuration(v); err == nil && d > 0 {
			c.LoginWindow = d
		}
	}
}
