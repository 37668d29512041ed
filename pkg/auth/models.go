// Package auth provides user accounts, password login, and bearer-token
// authentication for the StockTrail API. Access tokens are short-lived
// HS256 JWTs; refresh tokens are opaque values stored hashed and rotated
// on every use.
package auth

import (
	"time"

	"github.com/stocktrail/stocktrail/pkg/lifecycle"
)

// User is the GORM model for an account.
type User struct {
	ID           string         `gorm:"primaryKey;column:id;type:varchar(36)" json:"id"`
	Username     string         `gorm:"column:username;uniqueIndex:idx_users_username;type:varchar(64);not null" json:"username"`
	Name         string         `gorm:"column:name;type:varchar(128)" json:"name"`
	PasswordHash string         `gorm:"column:password_hash;type:varchar(100);not null" json:"-"`
	Role         lifecycle.Role `gorm:"column:role;type:varchar(16);not null;default:viewer" json:"role"`
	Active       bool           `gorm:"column:active;not null;default:true" json:"active"`
	CreatedAt    time.Time      `gorm:"column:created_at;autoCreateTime" json:"createdAt"`
	UpdatedAt    time.Time      `gorm:"column:updated_at;autoUpdateTime" json:"updatedAt"`
}

// TableName returns the GORM table name.
func (User) TableName() string { return "users" }

// Actor converts the account into the identity the transition engine consumes.
func (u *User) Actor() lifecycle.Actor {
	return lifecycle.Actor{
		ID:     u.ID,
		Name:   u.Name,
		Role:   u.Role,
		Active: u.Active,
	}
}

// RefreshToken is the GORM model for one issued refresh token. Only the
// SHA-256 hash of the opaque token is persisted.
type RefreshToken struct {
	ID        string     `gorm:"primaryKey;column:id;type:varchar(36)"`
	UserID    string     `gorm:"column:user_id;type:varchar(36);index:idx_refresh_user;not null"`
	TokenHash string     `gorm:"column:token_hash;uniqueIndex:idx_refresh_hash;type:varchar(64);not null"`
	ExpiresAt time.Time  `gorm:"column:expires_at;index:idx_refresh_expiry;not null"`
	RevokedAt *time.Time `gorm:"column:revoked_at"`
	CreatedAt time.Time  `gorm:"column:created_at;autoCreateTime"`
}

// TableName returns the GORM table name.
func (RefreshToken) TableName() string { return "refresh_tokens" }

// Usable reports whether the token can still be exchanged at the given time.
func (t *RefreshToken) Usable(now time.Time) bool {
	return t.RevokedAt == nil && now.Before(t.ExpiresAt)
}
