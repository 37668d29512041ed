package audit

import (
	"errors"
	"fmt"
	"time"

	"gorm.io/gorm"
)

// Store provides append-only persistence for request records.
type Store struct {
	db *gorm.DB
}

// NewStore creates a new Store.
func NewStore(db *gorm.DB) *Store {
	return &Store{db: db}
}

// AutoMigrate creates or updates the audit table.
func (s *Store) AutoMigrate() error {
	return s.db.AutoMigrate(&RequestRecord{})
}

// Append persists a new immutable request record.
func (s *Store) Append(record *RequestRecord) error {
	if err := s.db.Create(record).Error; err != nil {
		return fmt.Errorf("append audit record: %w", err)
	}
	return nil
}

// GetByID retrieves a single record. Returns nil without error when missing.
func (s *Store) GetByID(id string) (*RequestRecord, error) {
	var record RequestRecord
	if err := s.db.First(&record, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, fmt.Errorf("get audit record: %w", err)
	}
	return &record, nil
}

// ListFilter narrows List results. Zero values match everything.
type ListFilter struct {
	ActorID string
	Action  string
	Outcome string
	ItemRef string
}

// List returns paginated records ordered by created_at DESC (newest first).
// pageToken is an RFC3339 timestamp; records older than it are returned.
func (s *Store) List(filter ListFilter, pageSize int, pageToken string) ([]RequestRecord, string, int, error) {
	if pageSize <= 0 {
		pageSize = 20
	}
	if pageSize > 100 {
		pageSize = 100
	}

	buildQuery := func() *gorm.DB {
		q := s.db.Model(&RequestRecord{})
		if filter.ActorID != "" {
			q = q.Where("actor_id = ?", filter.ActorID)
		}
		if filter.Action != "" {
			q = q.Where("action = ?", filter.Action)
		}
		if filter.Outcome != "" {
			q = q.Where("outcome = ?", filter.Outcome)
		}
		if filter.ItemRef != "" {
			q = q.Where("item_ref = ?", filter.ItemRef)
		}
		return q
	}

	var totalSize int64
	if err := buildQuery().Count(&totalSize).Error; err != nil {
		return nil, "", 0, fmt.Errorf("count audit records: %w", err)
	}

	query := buildQuery().Order("created_at DESC").Limit(pageSize + 1)
	if pageToken != "" {
		t, err := time.Parse(time.RFC3339Nano, pageToken)
		if err != nil {
			return nil, "", 0, fmt.Errorf("invalid page token: %w", err)
		}
		query = query.Where("created_at < ?", t)
	}

	var records []RequestRecord
	if err := query.Find(&records).Error; err != nil {
		return nil, "", 0, fmt.Errorf("list audit records: %w", err)
	}

	var nextToken string
	if len(records) > pageSize {
		nextToken = records[pageSize-1].CreatedAt.Format(time.RFC3339Nano)
		records = records[:pageSize]
	}

	return records, nextToken, int(totalSize), nil
}

// DeleteOlderThan deletes records created before the cutoff. Returns the
// number of deleted records.
func (s *Store) DeleteOlderThan(cutoff time.Time) (int64, error) {
	result := s.db.Where("created_at < ?", cutoff).Delete(&RequestRecord{})
	if result.Error != nil {
		return 0, fmt.Errorf("delete old audit records: %w", result.Error)
	}
	return result.RowsAffected, nil
}
