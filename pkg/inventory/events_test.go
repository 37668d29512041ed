package inventory

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/stocktrail/stocktrail/pkg/lifecycle"
)

func TestAppendCreatesEvent(t *testing.T) {
	db := setupTestDB(t)
	log := NewEventLog(db)

	event, err := log.Append("item-1", lifecycle.StatusCreated, lifecycle.StatusStored, "actor-1", "status changed from created to stored")
	require.NoError(t, err)
	assert.Len(t, event.ID, 26)
	assert.Equal(t, "item-1", event.ItemID)
	assert.Equal(t, lifecycle.StatusCreated, event.FromStatus)
	assert.Equal(t, lifecycle.StatusStored, event.ToStatus)
	assert.Equal(t, "actor-1", event.ActorID)
	assert.Equal(t, "status changed from created to stored", event.Action)
	assert.False(t, event.CreatedAt.IsZero())
}

func TestEventIDsAreMonotonic(t *testing.T) {
	db := setupTestDB(t)
	log := NewEventLog(db)

	var last string
	for i := 0; i < 20; i++ {
		event, err := log.Append("item-1", lifecycle.StatusCreated, lifecycle.StatusStored, "actor-1", "")
		require.NoError(t, err)
		if last != "" {
			assert.Greater(t, event.ID, last, "event ids must be strictly increasing")
		}
		last = event.ID
	}
}

func TestListByItemNewestFirstWithPagination(t *testing.T) {
	db := setupTestDB(t)
	log := NewEventLog(db)

	for i := 0; i < 5; i++ {
		_, err := log.Append("item-1", lifecycle.StatusCreated, lifecycle.StatusStored, "actor-1", "")
		require.NoError(t, err)
		time.Sleep(2 * time.Millisecond)
	}
	_, err := log.Append("item-2", lifecycle.StatusCreated, lifecycle.StatusStored, "actor-1", "")
	require.NoError(t, err)

	page, next, total, err := log.ListByItem("item-1", 3, "")
	require.NoError(t, err)
	assert.Equal(t, 5, total)
	require.Len(t, page, 3)
	assert.NotEmpty(t, next)
	for i := 1; i < len(page); i++ {
		assert.False(t, page[i].CreatedAt.After(page[i-1].CreatedAt))
	}

	rest, next, total, err := log.ListByItem("item-1", 3, next)
	require.NoError(t, err)
	assert.Equal(t, 5, total)
	assert.Len(t, rest, 2)
	assert.Empty(t, next)
}

func TestChainForItemOldestFirst(t *testing.T) {
	db := setupTestDB(t)
	log := NewEventLog(db)

	steps := []struct {
		from lifecycle.Status
		to   lifecycle.Status
	}{
		{lifecycle.StatusCreated, lifecycle.StatusStored},
		{lifecycle.StatusStored, lifecycle.StatusVerified},
		{lifecycle.StatusVerified, lifecycle.StatusDispatched},
	}
	for _, step := range steps {
		_, err := log.Append("item-1", step.from, step.to, "actor-1", "")
		require.NoError(t, err)
	}

	chain, err := log.ChainForItem("item-1")
	require.NoError(t, err)
	require.Len(t, chain, 3)
	for i, step := range steps {
		assert.Equal(t, step.from, chain[i].FromStatus)
		assert.Equal(t, step.to, chain[i].ToStatus)
	}
}

func TestCountByItem(t *testing.T) {
	db := setupTestDB(t)
	log := NewEventLog(db)

	_, err := log.Append("item-1", lifecycle.StatusCreated, lifecycle.StatusStored, "actor-1", "")
	require.NoError(t, err)
	_, err = log.Append("item-1", lifecycle.StatusStored, lifecycle.StatusVerified, "actor-1", "")
	require.NoError(t, err)
	_, err = log.Append("item-2", lifecycle.StatusCreated, lifecycle.StatusStored, "actor-1", "")
	require.NoError(t, err)

	count, err := log.CountByItem("item-1")
	require.NoError(t, err)
	assert.Equal(t, int64(2), count)
}

func TestLatestIDAndListAfter(t *testing.T) {
	db := setupTestDB(t)
	log := NewEventLog(db)

	empty, err := log.LatestID()
	require.NoError(t, err)
	assert.Empty(t, empty)

	first, err := log.Append("item-1", lifecycle.StatusCreated, lifecycle.StatusStored, "actor-1", "")
	require.NoError(t, err)

	cursor, err := log.LatestID()
	require.NoError(t, err)
	assert.Equal(t, first.ID, cursor)

	second, err := log.Append("item-1", lifecycle.StatusStored, lifecycle.StatusVerified, "actor-1", "")
	require.NoError(t, err)
	third, err := log.Append("item-2", lifecycle.StatusCreated, lifecycle.StatusStored, "actor-1", "")
	require.NoError(t, err)

	after, err := log.ListAfter(cursor, 10)
	require.NoError(t, err)
	require.Len(t, after, 2)
	assert.Equal(t, second.ID, after[0].ID)
	assert.Equal(t, third.ID, after[1].ID)

	none, err := log.ListAfter(third.ID, 10)
	require.NoError(t, err)
	assert.Empty(t, none)
}
