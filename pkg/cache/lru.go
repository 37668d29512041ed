// Package cache keeps frequently served inventory responses in memory:
// rendered label images, which never change for a given code, and the
// stats payload, which is recomputed at most once per TTL.
package cache

import (
	"sync"
	"time"
)

type entry struct {
	value      []byte
	expiresAt  time.Time
	insertedAt time.Time
}

// LRU is a small thread-safe byte cache with TTL and max-size eviction.
// At capacity the oldest entry by insertion time makes room; expired
// entries are dropped lazily on Get. A nil *LRU is a valid always-miss
// cache, so callers never have to branch on whether caching is enabled.
type LRU struct {
	mu         sync.Mutex
	entries    map[string]*entry
	maxEntries int
	ttl        time.Duration
}

// New creates a cache holding at most maxEntries values for up to ttl each.
func New(maxEntries int, ttl time.Duration) *LRU {
	if maxEntries < 1 {
		maxEntries = 1
	}
	if ttl <= 0 {
		ttl = time.Minute
	}
	return &LRU{
		entries:    make(map[string]*entry, maxEntries),
		maxEntries: maxEntries,
		ttl:        ttl,
	}
}

// Get returns the cached value for key, or (nil, false) when the key is
// absent, expired, or the receiver is nil.
func (c *LRU) Get(key string) ([]byte, bool) {
	if c == nil {
		return nil, false
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	e, ok := c.entries[key]
	if !ok {
		return nil, false
	}
	if time.Now().After(e.expiresAt) {
		delete(c.entries, key)
		return nil, false
	}
	return e.value, true
}

// Add stores value under key, evicting the oldest entry when full.
// A nil receiver ignores the call.
func (c *LRU) Add(key string, value []byte) {
	if c == nil {
		return
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	now := time.Now()

	if _, ok := c.entries[key]; !ok && len(c.entries) >= c.maxEntries {
		c.evictOldest()
	}
	c.entries[key] = &entry{
		value:      value,
		expiresAt:  now.Add(c.ttl),
		insertedAt: now,
	}
}

// Len reports the number of stored entries, counting expired ones that have
// not been lazily cleaned yet.
func (c *LRU) Len() int {
	if c == nil {
		return 0
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.entries)
}

// evictOldest removes the entry with the oldest insertion time.
// Callers hold c.mu.
func (c *LRU) evictOldest() {
	var oldestKey string
	var oldestTime time.Time
	first := true

	for k, e := range c.entries {
		if first || e.insertedAt.Before(oldestTime) {
			oldestKey = k
			oldestTime = e.insertedAt
			first = false
		}
	}
	if !first {
		delete(c.entries, oldestKey)
	}
}
