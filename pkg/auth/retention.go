package auth

import (
	"context"
	"log/slog"
	"time"
)

// TokenRetentionWorker periodically deletes refresh tokens that expired or
// were revoked long enough ago that nothing can exchange them.
type TokenRetentionWorker struct {
	store    *RefreshTokenStore
	grace    time.Duration
	interval time.Duration
	logger   *slog.Logger
}

// NewTokenRetentionWorker creates a worker that sweeps dead tokens once per
// hour. grace controls how long dead tokens linger for inspection; the
// default is 24 hours.
func NewTokenRetentionWorker(store *RefreshTokenStore, grace time.Duration, logger *slog.Logger) *TokenRetentionWorker {
	if grace <= 0 {
		grace = 24 * time.Hour
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &TokenRetentionWorker{
		store:    store,
		grace:    grace,
		interval: time.Hour,
		logger:   logger,
	}
}

// Run starts the worker. It runs until the context is cancelled.
func (w *TokenRetentionWorker) Run(ctx context.Context) {
	if w.store == nil {
		w.logger.Info("token retention worker disabled")
		return
	}

	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	w.logger.Info("token retention worker started",
		"grace", w.grace.String(),
		"interval", w.interval.String())

	for {
		select {
		case <-ctx.Done():
			w.logger.Info("token retention worker stopped")
			return
		case <-ticker.C:
			w.cleanup()
		}
	}
}

// cleanup performs a single sweep.
func (w *TokenRetentionWorker) cleanup() {
	cutoff := time.Now().Add(-w.grace)
	deleted, err := w.store.DeleteExpiredBefore(cutoff)
	if err != nil {
		w.logger.Error("token retention sweep failed", "error", err)
	} else if deleted > 0 {
		w.logger.Info("token retention sweep completed",
			"deleted", deleted,
			"cutoff", cutoff.Format(time.RFC3339))
	}
}
