package auth

import (
	"sync"
	"time"
)

// LoginLimiter throttles failed login attempts per username using a fixed
// window counter. Each username gets an independent window.
type LoginLimiter struct {
	mu      sync.Mutex
	windows map[string]*attemptWindow
	limit   int
	window  time.Duration
}

// attemptWindow tracks attempts for a single username.
type attemptWindow struct {
	start time.Time
	count int
}

// NewLoginLimiter creates a limiter that allows limit attempts per username
// per window. Defaults are 5 attempts per minute.
func NewLoginLimiter(limit int, window time.Duration) *LoginLimiter {
	if limit <= 0 {
		limit = 5
	}
	if window <= 0 {
		window = time.Minute
	}
	return &LoginLimiter{
		windows: make(map[string]*attemptWindow),
		limit:   limit,
		window:  window,
	}
}

// Allow records a login attempt for the username. It returns false with the
// duration until the window resets when the attempt budget is exhausted.
func (l *LoginLimiter) Allow(username string) (bool, time.Duration) {
	return l.allowAt(username, time.Now())
}

// allowAt is the testable core of Allow that accepts a "now" parameter.
func (l *LoginLimiter) allowAt(key string, now time.Time) (bool, time.Duration) {
	l.mu.Lock()
	defer l.mu.Unlock()

	w, ok := l.windows[key]
	if !ok || now.Sub(w.start) >= l.window {
		l.windows[key] = &attemptWindow{start: now, count: 1}
		return true, 0
	}

	if w.count >= l.limit {
		return false, w.start.Add(l.window).Sub(now)
	}

	w.count++
	return true, 0
}

// Clear forgets the window for a username. Called after a successful login so
// honest mistakes do not accumulate.
func (l *LoginLimiter) Clear(username string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	delete(l.windows, username)
}

// Reset removes all tracked windows. Useful for testing.
func (l *LoginLimiter) Reset() {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.windows = make(map[string]*attemptWindow)
}
