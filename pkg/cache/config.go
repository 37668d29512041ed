package cache

import (
	"os"
	"strconv"
	"strings"
	"time"
)

// Config controls the inventory response caches.
type Config struct {
	Enabled    bool          // master switch, default on
	LabelTTL   time.Duration // lifetime of rendered label images, default 1h
	StatsTTL   time.Duration // lifetime of the stats payload, default 5s
	MaxEntries int           // entries kept per cache, default 1024
}

// DefaultConfig returns the default cache configuration. Labels are
// immutable for a given code, so their TTL only bounds memory; the stats
// TTL is the longest a dashboard may see stale counts.
func DefaultConfig() *Config {
	return &Config{
		Enabled:    true,
		LabelTTL:   time.Hour,
		StatsTTL:   5 * time.Second,
		MaxEntries: 1024,
	}
}

// ConfigFromEnv loads cache configuration from environment variables.
// STOCKTRAIL_CACHE_ENABLED, STOCKTRAIL_CACHE_LABEL_TTL,
// STOCKTRAIL_CACHE_STATS_TTL, STOCKTRAIL_CACHE_MAX_ENTRIES
func ConfigFromEnv() *Config {
	cfg := DefaultConfig()
	cfg.ApplyEnv()
	return cfg
}

// ApplyEnv overrides fields from environment variables where set.
func (c *Config) ApplyEnv() {
	if v := os.Getenv("STOCKTRAIL_CACHE_ENABLED"); v != "" {
		c.Enabled = strings.EqualFold(v, "true") || v == "1"
	}
	if v := os.Getenv("STOCKTRAIL_CACHE_LABEL_TTL"); v != "" {
		if d, err := time.ParseDuration(v); err == nil && d > 0 {
			c.LabelTTL = d
		}
	}
	if v := os.Getenv("STOCKTRAIL_CACHE_STATS_TTL"); v != "" {
		if d, err := time.ParseDuration(v); err == nil && d > 0 {
			c.StatsTTL = d
		}
	}
	if v := os.Getenv("STOCKTRAIL_CACHE_MAX_ENTRIES"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			c.MaxEntries = n
		}
	}
}
