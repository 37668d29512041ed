package auth

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewTokenRetentionWorkerDefaults(t *testing.T) {
	worker := NewTokenRetentionWorker(nil, 0, nil)

	if worker.grace != 24*time.Hour {
		t.Errorf("grace = %v, want 24h", worker.grace)
	}
	if worker.interval != time.Hour {
		t.Errorf("interval = %v, want 1h", worker.interval)
	}
}

func TestTokenRetentionCleanup(t *testing.T) {
	db := setupAuthTestDB(t)
	tokens := NewRefreshTokenStore(db)

	_, liveHash, err := NewRefreshToken()
	require.NoError(t, err)
	_, err = tokens.Create("user-1", liveHash, time.Now().Add(time.Hour))
	require.NoError(t, err)

	_, deadHash, err := NewRefreshToken()
	require.NoError(t, err)
	_, err = tokens.Create("user-1", deadHash, time.Now().Add(-72*time.Hour))
	require.NoError(t, err)

	worker := NewTokenRetentionWorker(tokens, 24*time.Hour, discardLogger())
	worker.cleanup()

	live, err := tokens.GetByHash(liveHash)
	require.NoError(t, err)
	assert.NotNil(t, live)

	dead, err := tokens.GetByHash(deadHash)
	require.NoError(t, err)
	assert.Nil(t, dead)
}

// Freshly revoked tokens survive the sweep until the grace period passes so
// operators can inspect recent session activity.
func TestTokenRetentionKeepsRecentlyRevoked(t *testing.T) {
	db := setupAuthTestDB(t)
	tokens := NewRefreshTokenStore(db)

	_, hash, err := NewRefreshToken()
	require.NoError(t, err)
	created, err := tokens.Create("user-1", hash, time.Now().Add(time.Hour))
	require.NoError(t, err)
	require.NoError(t, tokens.Revoke(created.ID))

	worker := NewTokenRetentionWorker(tokens, 24*time.Hour, discardLogger())
	worker.cleanup()

	kept, err := tokens.GetByHash(hash)
	require.NoError(t, err)
	assert.NotNil(t, kept)
}
