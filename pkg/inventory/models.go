// Package inventory implements item tracking: the item and transition event
// storage, the transition engine that moves items through the lifecycle
// atomically, and the HTTP surface that exposes both.
package inventory

import (
	"time"

	"github.com/stocktrail/stocktrail/pkg/lifecycle"
)

// Item is the GORM model for a tracked warehouse item. The scannable code is
// derived from the id at creation time and is immutable afterwards; no store
// operation ever rewrites it.
type Item struct {
	ID        string           `gorm:"primaryKey;column:id;type:varchar(36)"`
	Label     string           `gorm:"column:label;not null"`
	Code      string           `gorm:"column:code;uniqueIndex:idx_items_code;type:varchar(40);not null"`
	Status    lifecycle.Status `gorm:"column:status;index:idx_items_status;type:varchar(16);not null;default:created"`
	CreatedAt time.Time        `gorm:"column:created_at;index:idx_items_created;autoCreateTime"`
	UpdatedAt time.Time        `gorm:"column:updated_at;autoUpdateTime"`
}

// TableName returns the GORM table name.
func (Item) TableName() string { return "items" }

// TransitionEvent is an immutable record of one committed status transition.
// Events are insert-only; the log exposes no update or delete operation.
// IDs are ULIDs, so ascending id order is also chronological order.
type TransitionEvent struct {
	ID         string           `gorm:"primaryKey;column:id;type:varchar(26)"`
	ItemID     string           `gorm:"column:item_id;index:idx_events_item_time,priority:1;not null"`
	FromStatus lifecycle.Status `gorm:"column:from_status;type:varchar(16);not null"`
	ToStatus   lifecycle.Status `gorm:"column:to_status;type:varchar(16);not null"`
	ActorID    string           `gorm:"column:actor_id;index;not null"`
	Action     string           `gorm:"column:action"`
	CreatedAt  time.Time        `gorm:"column:created_at;index:idx_events_item_time,priority:2;autoCreateTime"`
}

// TableName returns the GORM table name.
func (TransitionEvent) TableName() string { return "transition_events" }
