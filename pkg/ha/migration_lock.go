// Package ha provides the coordination primitives StockTrail needs when it
// runs with more than one replica against a shared database.
package ha

import (
	"context"
	"fmt"
	"hash/crc32"
	"os"
	"time"

	"gorm.io/gorm"
)

// MigrationLocker serializes schema migrations so concurrent AutoMigrate
// calls from multiple replicas cannot interleave.
type MigrationLocker interface {
	// WithLock executes fn while holding the migration lock. It blocks until
	// the lock is acquired, then releases it after fn returns.
	WithLock(ctx context.Context, fn func() error) error
}

// NewMigrationLocker creates a MigrationLocker appropriate for the database
// dialect. PostgreSQL uses advisory locks; other databases use a table-based
// fallback. The lock table is created immediately for the fallback strategy.
func NewMigrationLocker(db *gorm.DB) MigrationLocker {
	if db == nil {
		return &noopMigrationLock{}
	}
	if db.Dialector.Name() == "postgres" {
		return &pgAdvisoryLock{
			db:     db,
			lockID: int64(crc32.ChecksumIEEE([]byte("stocktrail-migration"))),
		}
	}
	lock := &fallbackMigrationLock{db: db}
	// Create the lock table up front so concurrent callers never hit
	// "no such table" on their first WithLock call.
	_ = db.AutoMigrate(&migrationLockRecord{})
	return lock
}

// noopMigrationLock is used when no database is configured or locking is
// disabled.
type noopMigrationLock struct{}

func (n *noopMigrationLock) WithLock(_ context.Context, fn func() error) error {
	return fn()
}

// NoopLocker returns a MigrationLocker that runs fn without locking.
func NoopLocker() MigrationLocker { return &noopMigrationLock{} }

// pgAdvisoryLock serializes migrations with a PostgreSQL advisory lock.
type pgAdvisoryLock struct {
	db     *gorm.DB
	lockID int64
}

func (l *pgAdvisoryLock) WithLock(ctx context.Context, fn func() error) error {
	// pg_advisory_lock blocks until the lock is available.
	if err := l.db.WithContext(ctx).Exec("SELECT pg_advisory_lock(?)", l.lockID).Error; err != nil {
		return fmt.Errorf("failed to acquire migration advisory lock: %w", err)
	}

	defer func() {
		_ = l.db.Exec("SELECT pg_advisory_unlock(?)", l.lockID).Error
	}()

	return fn()
}

// migrationLockRecord is the table-based lock row for non-PostgreSQL
// databases.
type migrationLockRecord struct {
	ID       string    `gorm:"primaryKey;column:id"`
	LockedAt time.Time `gorm:"column:locked_at"`
	LockedBy string    `gorm:"column:locked_by"`
}

func (migrationLockRecord) TableName() string { return "migration_lock" }

// lockRowID is the single row the table-based lock contends on.
const lockRowID = "migration"

// fallbackMigrationLock uses a database table for locking on SQLite and
// MySQL. INSERT-or-fail semantics keep the holder unique; stale locks are
// swept so a crashed replica cannot wedge migrations forever.
type fallbackMigrationLock struct {
	db *gorm.DB
}

func (l *fallbackMigrationLock) WithLock(ctx context.Context, fn func() error) error {
	const (
		maxAttempts  = 30
		retryEvery   = time.Second
		staleLockAge = 5 * time.Minute
	)

	holder, _ := os.Hostname()
	if holder == "" {
		holder = "unknown"
	}

	var lastErr error
	for attempt := 0; attempt < maxAttempts; attempt++ {
		if attempt > 0 {
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(retryEvery):
			}
		}

		// A replica that crashed mid-migration leaves its row behind; sweep
		// anything older than staleLockAge before contending.
		l.db.WithContext(ctx).
			Where("id = ? AND locked_at < ?", lockRowID, time.Now().Add(-staleLockAge)).
			Delete(&migrationLockRecord{})

		row := migrationLockRecord{ID: lockRowID, LockedAt: time.Now(), LockedBy: holder}
		if err := l.db.WithContext(ctx).Create(&row).Error; err != nil {
			lastErr = err
			continue
		}

		defer func() {
			l.db.Where("id = ?", lockRowID).Delete(&migrationLockRecord{})
		}()
		return fn()
	}

	return fmt.Errorf("migration lock still held after %d attempts: %w", maxAttempts, lastErr)
}
