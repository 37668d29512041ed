package inventory

import (
	"crypto/rand"
	"fmt"
	"io"
	"sync"
	"time"

	"github.com/oklog/ulid/v2"
	"gorm.io/gorm"

	"github.com/stocktrail/stocktrail/pkg/lifecycle"
)

// Event ids are ULIDs generated from a shared monotone entropy source, so
// ids stay lexicographically ordered even within the same millisecond. The
// mutex keeps the source safe across concurrent appends.
var (
	eventIDMu      sync.Mutex
	eventIDEntropy io.Reader = ulid.Monotonic(rand.Reader, 0)
)

// newEventID creates a new time-ordered event id.
func newEventID() (string, error) {
	eventIDMu.Lock()
	defer eventIDMu.Unlock()
	ms := ulid.Timestamp(time.Now())
	id, err := ulid.New(ms, eventIDEntropy)
	if err != nil {
		return "", fmt.Errorf("generate event id: %w", err)
	}
	return id.String(), nil
}

// EventLog provides append-only storage for transition events. The contract
// is insert-only: no update or delete operation exists, so immutability is
// enforced at the interface, not by convention. Constructing the log around
// a transaction handle scopes Append to that transaction.
type EventLog struct {
	db *gorm.DB
}

// NewEventLog creates a new EventLog.
func NewEventLog(db *gorm.DB) *EventLog {
	return &EventLog{db: db}
}

// Append creates a new immutable transition event.
func (l *EventLog) Append(itemID string, from, to lifecycle.Status, actorID, action string) (*TransitionEvent, error) {
	id, err := newEventID()
	if err != nil {
		return nil, err
	}

	event := &TransitionEvent{
		ID:         id,
		ItemID:     itemID,
		FromStatus: from,
		ToStatus:   to,
		ActorID:    actorID,
		Action:     action,
	}
	if err := l.db.Create(event).Error; err != nil {
		return nil, fmt.Errorf("append transition event: %w", err)
	}
	return event, nil
}

// ListByItem returns paginated transition events for an item, newest first.
// pageToken is an RFC3339 timestamp; events created before it are returned.
func (l *EventLog) ListByItem(itemID string, pageSize int, pageToken string) ([]TransitionEvent, string, int, error) {
	if pageSize <= 0 {
		pageSize = 20
	}
	if pageSize > 100 {
		pageSize = 100
	}

	var totalSize int64
	if err := l.db.Model(&TransitionEvent{}).Where("item_id = ?", itemID).Count(&totalSize).Error; err != nil {
		return nil, "", 0, fmt.Errorf("count transition events: %w", err)
	}

	query := l.db.Where("item_id = ?", itemID).Order("created_at DESC").Limit(pageSize + 1)
	if pageToken != "" {
		t, err := time.Parse(time.RFC3339Nano, pageToken)
		if err != nil {
			return nil, "", 0, fmt.Errorf("invalid page token: %w", err)
		}
		query = query.Where("created_at < ?", t)
	}

	var events []TransitionEvent
	if err := query.Find(&events).Error; err != nil {
		return nil, "", 0, fmt.Errorf("list transition events: %w", err)
	}

	var nextToken string
	if len(events) > pageSize {
		nextToken = events[pageSize-1].CreatedAt.Format(time.RFC3339Nano)
		events = events[:pageSize]
	}

	return events, nextToken, int(totalSize), nil
}

// ChainForItem returns the full event chain for an item, oldest first. Each
// event's from status equals the previous event's to status, so the chain is
// the item's complete linear history.
func (l *EventLog) ChainForItem(itemID string) ([]TransitionEvent, error) {
	var events []TransitionEvent
	if err := l.db.Where("item_id = ?", itemID).Order("id ASC").Find(&events).Error; err != nil {
		return nil, fmt.Errorf("load event chain: %w", err)
	}
	return events, nil
}

// CountByItem returns the number of events recorded for an item.
func (l *EventLog) CountByItem(itemID string) (int64, error) {
	var count int64
	if err := l.db.Model(&TransitionEvent{}).Where("item_id = ?", itemID).Count(&count).Error; err != nil {
		return 0, fmt.Errorf("count transition events: %w", err)
	}
	return count, nil
}

// LatestID returns the id of the newest event across all items, or "" when
// the log is empty. Used as the starting cursor for live feeds.
func (l *EventLog) LatestID() (string, error) {
	var event TransitionEvent
	err := l.db.Order("id DESC").First(&event).Error
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return "", nil
		}
		return "", fmt.Errorf("load latest event id: %w", err)
	}
	return event.ID, nil
}

// ListAfter returns up to limit events with ids greater than cursor, oldest
// first. An empty cursor returns events from the beginning of the log.
func (l *EventLog) ListAfter(cursor string, limit int) ([]TransitionEvent, error) {
	if limit <= 0 {
		limit = 100
	}
	query := l.db.Order("id ASC").Limit(limit)
	if cursor != "" {
		query = query.Where("id > ?", cursor)
	}

	var events []TransitionEvent
	if err := query.Find(&events).Error; err != nil {
		return nil, fmt.Errorf("list events after cursor: %w", err)
	}
	return events, nil
}
