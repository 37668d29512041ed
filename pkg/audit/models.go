// Package audit records who did what against the StockTrail API. Mutating
// requests are captured after they complete and kept for a configurable
// retention window; reads are not recorded.
package audit

import (
	"time"
)

// RequestRecord is the GORM model for one audited API request.
type RequestRecord struct {
	ID         string    `gorm:"primaryKey;column:id;type:varchar(36)"`
	RequestID  string    `gorm:"column:request_id;type:varchar(64)"`
	ActorID    string    `gorm:"column:actor_id;index:idx_audit_actor;type:varchar(36);not null"`
	ActorName  string    `gorm:"column:actor_name;type:varchar(128)"`
	Role       string    `gorm:"column:role;type:varchar(16)"`
	Method     string    `gorm:"column:method;type:varchar(8);not null"`
	Path       string    `gorm:"column:path;type:varchar(255);not null"`
	Action     string    `gorm:"column:action;index:idx_audit_action;type:varchar(32);not null"`
	ItemRef    string    `gorm:"column:item_ref;index:idx_audit_item;type:varchar(64)"`
	Outcome    string    `gorm:"column:outcome;type:varchar(16);not null"`
	StatusCode int       `gorm:"column:status_code"`
	DurationMs int64     `gorm:"column:duration_ms"`
	CreatedAt  time.Time `gorm:"column:created_at;index:idx_audit_time;not null"`
}

// TableName returns the GORM table name.
func (RequestRecord) TableName() string { return "request_audit" }
