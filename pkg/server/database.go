package server

import (
	"fmt"
	"log/slog"

	"github.com/glebarez/sqlite"
	"gorm.io/driver/mysql"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"github.com/stocktrail/stocktrail/pkg/auth"
	"github.com/stocktrail/stocktrail/pkg/lifecycle"
)

// OpenDatabase opens a gorm connection for the configured driver.
// SQLite is embedded and needs no external server; postgres and mysql
// require a DSN.
func OpenDatabase(cfg DatabaseConfig) (*gorm.DB, error) {
	var dialector gorm.Dialector

	switch cfg.Driver {
	case DriverSQLite, "":
		dsn := cfg.DSN
		if dsn == "" {
			dsn = "stocktrail.db"
		}
		dialector = sqlite.Open(dsn)
	case DriverPostgres:
		if cfg.DSN == "" {
			return nil, fmt.Errorf("database DSN is required for driver %q", cfg.Driver)
		}
		dialector = postgres.Open(cfg.DSN)
	case DriverMySQL:
		if cfg.DSN == "" {
			return nil, fmt.Errorf("database DSN is required for driver %q", cfg.Driver)
		}
		dialector = mysql.Open(cfg.DSN)
	default:
		return nil, fmt.Errorf("unknown database driver %q (expected sqlite, postgres, or mysql)", cfg.Driver)
	}

	db, err := gorm.Open(dialector, &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Silent),
	})
	if err != nil {
		return nil, fmt.Errorf("open %s database: %w", cfg.Driver, err)
	}

	return db, nil
}

// seedAdminUser creates the bootstrap admin account when no admin exists.
// Registration only ever grants the viewer role, so a fresh deployment
// needs this seed before anyone can manage roles. The credentials come
// from STOCKTRAIL_ADMIN_USERNAME and STOCKTRAIL_ADMIN_PASSWORD; with no
// password set the seed is skipped with a warning.
func seedAdminUser(users *auth.UserStore, username, password string, logger *slog.Logger) error {
	count, err := users.CountByRole(lifecycle.RoleAdmin)
	if err != nil {
		return fmt.Errorf("count admin accounts: %w", err)
	}
	if count > 0 {
		return nil
	}

	if password == "" {
		logger.Warn("no admin account exists and STOCKTRAIL_ADMIN_PASSWORD is not set, skipping bootstrap seed")
		return nil
	}
	if username == "" {
		username = "admin"
	}

	if err := auth.CheckPasswordPolicy(password); err != nil {
		return fmt.Errorf("bootstrap admin password: %w", err)
	}
	hash, err := auth.HashPassword(password)
	if err != nil {
		return fmt.Errorf("hash bootstrap admin password: %w", err)
	}
	if _, err := users.Create(username, "Administrator", hash, lifecycle.RoleAdmin); err != nil {
		return fmt.Errorf("create bootstrap admin: %w", err)
	}

	logger.Info("created bootstrap admin account", "username", username)
	return nil
}
