package inventory

import (
	"errors"
	"fmt"
	"time"

	"gorm.io/gorm"

	"github.com/stocktrail/stocktrail/pkg/lifecycle"
)

// ErrStatusConflict is returned by ConditionalUpdateStatus when the stored
// status no longer matches the expected value supplied by the caller.
var ErrStatusConflict = errors.New("item status does not match expected value")

// ErrCodeConflict is returned by Create when the derived scannable code
// already exists.
var ErrCodeConflict = errors.New("item code already exists")

// ItemStore provides durable keyed storage for item records. Constructing a
// store around a transaction handle scopes every operation to that
// transaction.
type ItemStore struct {
	db *gorm.DB
}

// NewItemStore creates a new ItemStore.
func NewItemStore(db *gorm.DB) *ItemStore {
	return &ItemStore{db: db}
}

// AutoMigrate creates or updates the items and transition_events tables.
func (s *ItemStore) AutoMigrate() error {
	if err := s.db.AutoMigrate(&Item{}); err != nil {
		return fmt.Errorf("auto-migrate items: %w", err)
	}
	if err := s.db.AutoMigrate(&TransitionEvent{}); err != nil {
		return fmt.Errorf("auto-migrate transition_events: %w", err)
	}
	return nil
}

// GetByID retrieves an item by its identifier.
// Returns nil, nil if no item exists.
func (s *ItemStore) GetByID(id string) (*Item, error) {
	var item Item
	err := s.db.Where("id = ?", id).First(&item).Error
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, nil
		}
		return nil, fmt.Errorf("get item: %w", err)
	}
	return &item, nil
}

// GetByCode retrieves an item by its scannable code.
// Returns nil, nil if no item exists.
func (s *ItemStore) GetByCode(code string) (*Item, error) {
	var item Item
	err := s.db.Where("code = ?", code).First(&item).Error
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, nil
		}
		return nil, fmt.Errorf("get item by code: %w", err)
	}
	return &item, nil
}

// Resolve retrieves an item by scannable code or raw id, whichever ref is.
// Returns nil, nil if no item exists.
func (s *ItemStore) Resolve(ref string) (*Item, error) {
	if IsItemCode(ref) {
		return s.GetByCode(ref)
	}
	return s.GetByID(ref)
}

// Create allocates a new item with a freshly derived scannable code and the
// initial created status. ErrCodeConflict is returned if the derived code is
// already taken.
func (s *ItemStore) Create(label string) (*Item, error) {
	id := NewItemID()
	code := CodeForID(id)

	existing, err := s.GetByCode(code)
	if err != nil {
		return nil, err
	}
	if existing != nil {
		return nil, ErrCodeConflict
	}

	item := &Item{
		ID:     id,
		Label:  label,
		Code:   code,
		Status: lifecycle.StatusCreated,
	}
	if err := s.db.Create(item).Error; err != nil {
		return nil, fmt.Errorf("create item: %w", err)
	}
	return item, nil
}

// ConditionalUpdateStatus sets the item's status to next only if the stored
// status still equals expected at the moment of the write. This guarded
// update is the serialization point that prevents lost updates when
// concurrent callers race on the same item. Returns ErrStatusConflict when
// the guard matches no row.
func (s *ItemStore) ConditionalUpdateStatus(id string, expected, next lifecycle.Status) (*Item, error) {
	result := s.db.Model(&Item{}).
		Where("id = ? AND status = ?", id, expected).
		Updates(map[string]any{
			"status":     next,
			"updated_at": time.Now(),
		})
	if result.Error != nil {
		return nil, fmt.Errorf("update item status: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		return nil, ErrStatusConflict
	}

	// Reload to return the updated record.
	var item Item
	if err := s.db.First(&item, "id = ?", id).Error; err != nil {
		return nil, fmt.Errorf("reload item: %w", err)
	}
	return &item, nil
}

// ListFilter defines filters for listing items.
type ListFilter struct {
	Status string
	Query  string
}

// List returns paginated items matching the filter, newest first.
// pageToken is an RFC3339 timestamp; items created before it are returned.
func (s *ItemStore) List(filter ListFilter, pageSize int, pageToken string) ([]Item, string, int, error) {
	if pageSize <= 0 {
		pageSize = 20
	}
	if pageSize > 100 {
		pageSize = 100
	}

	buildQuery := func(base *gorm.DB) *gorm.DB {
		q := base.Model(&Item{})
		if filter.Status != "" {
			q = q.Where("status = ?", filter.Status)
		}
		if filter.Query != "" {
			q = q.Where("label LIKE ?", "%"+filter.Query+"%")
		}
		return q
	}

	var totalSize int64
	if err := buildQuery(s.db).Count(&totalSize).Error; err != nil {
		return nil, "", 0, fmt.Errorf("count items: %w", err)
	}

	query := buildQuery(s.db).Order("created_at DESC").Limit(pageSize + 1)
	if pageToken != "" {
		t, err := time.Parse(time.RFC3339Nano, pageToken)
		if err != nil {
			return nil, "", 0, fmt.Errorf("invalid page token: %w", err)
		}
		query = query.Where("created_at < ?", t)
	}

	var items []Item
	if err := query.Find(&items).Error; err != nil {
		return nil, "", 0, fmt.Errorf("list items: %w", err)
	}

	var nextToken string
	if len(items) > pageSize {
		nextToken = items[pageSize-1].CreatedAt.Format(time.RFC3339Nano)
		items = items[:pageSize]
	}

	return items, nextToken, int(totalSize), nil
}

// StatusCounts returns the number of items currently in each status.
func (s *ItemStore) StatusCounts() (map[lifecycle.Status]int64, error) {
	type statusCount struct {
		Status lifecycle.Status
		Count  int64
	}
	var rows []statusCount
	err := s.db.Model(&Item{}).
		Select("status, count(*) as count").
		Group("status").
		Scan(&rows).Error
	if err != nil {
		return nil, fmt.Errorf("count items by status: %w", err)
	}

	counts := make(map[lifecycle.Status]int64, len(rows))
	for _, r := range rows {
		counts[r.Status] = r.Count
	}
	return counts, nil
}
