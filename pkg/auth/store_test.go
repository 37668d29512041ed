package auth

import (
	"testing"
	"time"

	"github.com/glebarez/sqlite"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/stocktrail/stocktrail/pkg/lifecycle"
)

func setupAuthTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)
	require.NoError(t, NewUserStore(db).AutoMigrate())
	return db
}

func mustCreateUser(t *testing.T, store *UserStore, username string, role lifecycle.Role) *User {
	t.Helper()
	hash, err := HashPassword("password-for-" + username)
	require.NoError(t, err)
	user, err := store.Create(username, username, hash, role)
	require.NoError(t, err)
	return user
}

func TestCreateUserAndLookup(t *testing.T) {
	store := NewUserStore(setupAuthTestDB(t))

	created := mustCreateUser(t, store, "alice", lifecycle.RoleOperator)
	assert.NotEmpty(t, created.ID)
	assert.True(t, created.Active)

	byID, err := store.GetByID(created.ID)
	require.NoError(t, err)
	require.NotNil(t, byID)
	assert.Equal(t, "alice", byID.Username)

	byName, err := store.GetByUsername("alice")
	require.NoError(t, err)
	require.NotNil(t, byName)
	assert.Equal(t, created.ID, byName.ID)
}

func TestCreateUserRejectsDuplicateUsername(t *testing.T) {
	store := NewUserStore(setupAuthTestDB(t))

	mustCreateUser(t, store, "alice", lifecycle.RoleViewer)
	_, err := store.Create("alice", "Alice Again", "hash", lifecycle.RoleViewer)
	assert.ErrorIs(t, err, ErrUsernameTaken)
}

func TestGetUserMissingReturnsNil(t *testing.T) {
	store := NewUserStore(setupAuthTestDB(t))

	user, err := store.GetByID("nope")
	require.NoError(t, err)
	assert.Nil(t, user)

	user, err = store.GetByUsername("nope")
	require.NoError(t, err)
	assert.Nil(t, user)
}

func TestUpdateRole(t *testing.T) {
	store := NewUserStore(setupAuthTestDB(t))

	created := mustCreateUser(t, store, "alice", lifecycle.RoleViewer)

	updated, err := store.UpdateRole(created.ID, lifecycle.RoleInspector)
	require.NoError(t, err)
	require.NotNil(t, updated)
	assert.Equal(t, lifecycle.RoleInspector, updated.Role)

	missing, err := store.UpdateRole("nope", lifecycle.RoleAdmin)
	require.NoError(t, err)
	assert.Nil(t, missing)
}

func TestSetActive(t *testing.T) {
	store := NewUserStore(setupAuthTestDB(t))

	created := mustCreateUser(t, store, "alice", lifecycle.RoleViewer)

	updated, err := store.SetActive(created.ID, false)
	require.NoError(t, err)
	require.NotNil(t, updated)
	assert.False(t, updated.Active)

	updated, err = store.SetActive(created.ID, true)
	require.NoError(t, err)
	assert.True(t, updated.Active)
}

func TestCountByRoleOnlyCountsActive(t *testing.T) {
	store := NewUserStore(setupAuthTestDB(t))

	mustCreateUser(t, store, "admin-one", lifecycle.RoleAdmin)
	second := mustCreateUser(t, store, "admin-two", lifecycle.RoleAdmin)
	mustCreateUser(t, store, "viewer", lifecycle.RoleViewer)

	count, err := store.CountByRole(lifecycle.RoleAdmin)
	require.NoError(t, err)
	assert.Equal(t, int64(2), count)

	_, err = store.SetActive(second.ID, false)
	require.NoError(t, err)

	count, err = store.CountByRole(lifecycle.RoleAdmin)
	require.NoError(t, err)
	assert.Equal(t, int64(1), count)
}

func TestListUsersPaginates(t *testing.T) {
	store := NewUserStore(setupAuthTestDB(t))

	for _, name := range []string{"alice", "bob", "carol"} {
		mustCreateUser(t, store, name, lifecycle.RoleViewer)
		time.Sleep(2 * time.Millisecond)
	}

	first, token, total, err := store.List(2, "")
	require.NoError(t, err)
	assert.Equal(t, 3, total)
	require.Len(t, first, 2)
	require.NotEmpty(t, token)
	assert.Equal(t, "carol", first[0].Username)

	second, token, _, err := store.List(2, token)
	require.NoError(t, err)
	require.Len(t, second, 1)
	assert.Empty(t, token)
	assert.Equal(t, "alice", second[0].Username)
}

func TestRefreshTokenLifecycle(t *testing.T) {
	db := setupAuthTestDB(t)
	users := NewUserStore(db)
	tokens := NewRefreshTokenStore(db)

	user := mustCreateUser(t, users, "alice", lifecycle.RoleViewer)

	plain, hash, err := NewRefreshToken()
	require.NoError(t, err)
	created, err := tokens.Create(user.ID, hash, time.Now().Add(time.Hour))
	require.NoError(t, err)

	stored, err := tokens.GetByHash(HashRefreshToken(plain))
	require.NoError(t, err)
	require.NotNil(t, stored)
	assert.Equal(t, created.ID, stored.ID)
	assert.True(t, stored.Usable(time.Now()))

	require.NoError(t, tokens.Revoke(stored.ID))
	revoked, err := tokens.GetByHash(hash)
	require.NoError(t, err)
	require.NotNil(t, revoked)
	assert.False(t, revoked.Usable(time.Now()))

	missing, err := tokens.GetByHash("unknown-hash")
	require.NoError(t, err)
	assert.Nil(t, missing)
}

func TestRefreshTokenExpiry(t *testing.T) {
	db := setupAuthTestDB(t)
	tokens := NewRefreshTokenStore(db)

	_, hash, err := NewRefreshToken()
	require.NoError(t, err)
	created, err := tokens.Create("user-1", hash, time.Now().Add(-time.Minute))
	require.NoError(t, err)

	assert.False(t, created.Usable(time.Now()))
}

func TestRevokeAllForUser(t *testing.T) {
	db := setupAuthTestDB(t)
	tokens := NewRefreshTokenStore(db)

	for i := 0; i < 3; i++ {
		_, hash, err := NewRefreshToken()
		require.NoError(t, err)
		_, err = tokens.Create("user-1", hash, time.Now().Add(time.Hour))
		require.NoError(t, err)
	}
	_, otherHash, err := NewRefreshToken()
	require.NoError(t, err)
	_, err = tokens.Create("user-2", otherHash, time.Now().Add(time.Hour))
	require.NoError(t, err)

	revoked, err := tokens.RevokeAllForUser("user-1")
	require.NoError(t, err)
	assert.Equal(t, int64(3), revoked)

	other, err := tokens.GetByHash(otherHash)
	require.NoError(t, err)
	require.NotNil(t, other)
	assert.True(t, other.Usable(time.Now()))
}

func TestDeleteExpiredBefore(t *testing.T) {
	db := setupAuthTestDB(t)
	tokens := NewRefreshTokenStore(db)

	_, liveHash, err := NewRefreshToken()
	require.NoError(t, err)
	_, err = tokens.Create("user-1", liveHash, time.Now().Add(time.Hour))
	require.NoError(t, err)

	_, deadHash, err := NewRefreshToken()
	require.NoError(t, err)
	_, err = tokens.Create("user-1", deadHash, time.Now().Add(-48*time.Hour))
	require.NoError(t, err)

	deleted, err := tokens.DeleteExpiredBefore(time.Now().Add(-24 * time.Hour))
	require.NoError(t, err)
	assert.Equal(t, int64(1), deleted)

	live, err := tokens.GetByHash(liveHash)
	require.NoError(t, err)
	assert.NotNil(t, live)

	dead, err := tokens.GetByHash(deadHash)
	require.NoError(t, err)
	assert.Nil(t, dead)
}
