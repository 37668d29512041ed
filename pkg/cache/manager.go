package cache

// Manager bundles the caches the inventory API serves from, each with its
// own TTL. The zero value disables caching entirely: both fields are nil
// and every lookup misses.
//
// Cached bytes are only ever written after the handler has authenticated
// the request, so a hit cannot leak data to anonymous callers.
type Manager struct {
	// Labels holds rendered label PNGs keyed by item code. Codes are
	// immutable, so entries never go stale.
	Labels *LRU

	// Stats holds the marshaled stats payload under a single key.
	Stats *LRU
}

// NewManager builds a Manager from cfg. A nil or disabled config yields the
// zero Manager.
func NewManager(cfg *Config) Manager {
	if cfg == nil || !cfg.Enabled {
		return Manager{}
	}
	return Manager{
		Labels: New(cfg.MaxEntries, cfg.LabelTTL),
		Stats:  New(cfg.MaxEntries, cfg.StatsTTL),
	}
}

// Enabled reports whether any cache is active.
func (m Manager) Enabled() bool {
	return m.Labels != nil || m.Stats != nil
}
