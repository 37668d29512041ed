package auth

import (
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/stocktrail/stocktrail/pkg/lifecycle"
)

// ErrUsernameTaken is returned when creating a user whose username exists.
var ErrUsernameTaken = errors.New("username already taken")

// UserStore provides persistence for accounts.
type UserStore struct {
	db *gorm.DB
}

// NewUserStore creates a new UserStore.
func NewUserStore(db *gorm.DB) *UserStore {
	return &UserStore{db: db}
}

// AutoMigrate creates or updates the auth tables.
func (s *UserStore) AutoMigrate() error {
	return s.db.AutoMigrate(&User{}, &RefreshToken{})
}

// Create persists a new account. The caller supplies the password hash.
func (s *UserStore) Create(username, name, passwordHash string, role lifecycle.Role) (*User, error) {
	existing, err := s.GetByUsername(username)
	if err != nil {
		return nil, err
	}
	if existing != nil {
		return nil, ErrUsernameTaken
	}

	user := &User{
		ID:           uuid.New().String(),
		Username:     username,
		Name:         name,
		PasswordHash: passwordHash,
		Role:         role,
		Active:       true,
	}
	if err := s.db.Create(user).Error; err != nil {
		return nil, fmt.Errorf("create user: %w", err)
	}
	return user, nil
}

// GetByID retrieves a user by ID. Returns nil without error when missing.
func (s *UserStore) GetByID(id string) (*User, error) {
	var user User
	if err := s.db.First(&user, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, fmt.Errorf("get user by id: %w", err)
	}
	return &user, nil
}

// GetByUsername retrieves a user by username. Returns nil without error when
// missing.
func (s *UserStore) GetByUsername(username string) (*User, error) {
	var user User
	if err := s.db.First(&user, "username = ?", username).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, fmt.Errorf("get user by username: %w", err)
	}
	return &user, nil
}

// List returns paginated accounts ordered by created_at DESC.
// pageToken is an RFC3339 timestamp from a previous page.
func (s *UserStore) List(pageSize int, pageToken string) ([]User, string, int, error) {
	if pageSize <= 0 {
		pageSize = 20
	}
	if pageSize > 100 {
		pageSize = 100
	}

	var totalSize int64
	if err := s.db.Model(&User{}).Count(&totalSize).Error; err != nil {
		return nil, "", 0, fmt.Errorf("count users: %w", err)
	}

	query := s.db.Order("created_at DESC").Limit(pageSize + 1)
	if pageToken != "" {
		t, err := time.Parse(time.RFC3339Nano, pageToken)
		if err != nil {
			return nil, "", 0, fmt.Errorf("invalid page token: %w", err)
		}
		query = query.Where("created_at < ?", t)
	}

	var users []User
	if err := query.Find(&users).Error; err != nil {
		return nil, "", 0, fmt.Errorf("list users: %w", err)
	}

	var nextToken string
	if len(users) > pageSize {
		nextToken = users[pageSize-1].CreatedAt.Format(time.RFC3339Nano)
		users = users[:pageSize]
	}

	return users, nextToken, int(totalSize), nil
}

// UpdateRole changes the role of an account.
func (s *UserStore) UpdateRole(id string, role lifecycle.Role) (*User, error) {
	result := s.db.Model(&User{}).Where("id = ?", id).
		Updates(map[string]any{"role": role, "updated_at": time.Now()})
	if result.Error != nil {
		return nil, fmt.Errorf("update user role: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		return nil, nil
	}
	return s.GetByID(id)
}

// SetActive activates or deactivates an account.
func (s *UserStore) SetActive(id string, active bool) (*User, error) {
	result := s.db.Model(&User{}).Where("id = ?", id).
		Updates(map[string]any{"active": active, "updated_at": time.Now()})
	if result.Error != nil {
		return nil, fmt.Errorf("set user active: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		return nil, nil
	}
	return s.GetByID(id)
}

// CountByRole returns the number of active accounts holding the given role.
func (s *UserStore) CountByRole(role lifecycle.Role) (int64, error) {
	var count int64
	err := s.db.Model(&User{}).Where("role = ? AND active = ?", role, true).Count(&count).Error
	if err != nil {
		return 0, fmt.Errorf("count users by role: %w", err)
	}
	return count, nil
}

// RefreshTokenStore provides persistence for refresh tokens.
type RefreshTokenStore struct {
	db *gorm.DB
}

// NewRefreshTokenStore creates a new RefreshTokenStore.
func NewRefreshTokenStore(db *gorm.DB) *RefreshTokenStore {
	return &RefreshTokenStore{db: db}
}

// Create persists a refresh token hash for a user.
func (s *RefreshTokenStore) Create(userID, tokenHash string, expiresAt time.Time) (*RefreshToken, error) {
	token := &RefreshToken{
		ID:        uuid.New().String(),
		UserID:    userID,
		TokenHash: tokenHash,
		ExpiresAt: expiresAt,
	}
	if err := s.db.Create(token).Error; err != nil {
		return nil, fmt.Errorf("create refresh token: %w", err)
	}
	return token, nil
}

// GetByHash retrieves a refresh token by its hash. Returns nil without error
// when missing.
func (s *RefreshTokenStore) GetByHash(tokenHash string) (*RefreshToken, error) {
	var token RefreshToken
	if err := s.db.First(&token, "token_hash = ?", tokenHash).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, fmt.Errorf("get refresh token: %w", err)
	}
	return &token, nil
}

// Revoke marks a single token as revoked.
func (s *RefreshTokenStore) Revoke(id string) error {
	err := s.db.Model(&RefreshToken{}).Where("id = ?", id).
		Update("revoked_at", time.Now()).Error
	if err != nil {
		return fmt.Errorf("revoke refresh token: %w", err)
	}
	return nil
}

// RevokeAllForUser revokes every live token belonging to a user. Used when an
// account is deactivated.
func (s *RefreshTokenStore) RevokeAllForUser(userID string) (int64, error) {
	result := s.db.Model(&RefreshToken{}).
		Where("user_id = ? AND revoked_at IS NULL", userID).
		Update("revoked_at", time.Now())
	if result.Error != nil {
		return 0, fmt.Errorf("revoke refresh tokens for user: %w", result.Error)
	}
	return result.RowsAffected, nil
}

// DeleteExpiredBefore removes tokens that expired or were revoked before the
// cutoff. Returns the number of deleted records.
func (s *RefreshTokenStore) DeleteExpiredBefore(cutoff time.Time) (int64, error) {
	result := s.db.Where("expires_at < ? OR revoked_at < ?", cutoff, cutoff).Delete(&RefreshToken{})
	if result.Error != nil {
		return 0, fmt.Errorf("delete expired refresh tokens: %w", result.Error)
	}
	return result.RowsAffected, nil
}
