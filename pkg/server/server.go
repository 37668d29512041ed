package server

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"gorm.io/gorm"

	"github.com/stocktrail/stocktrail/pkg/audit"
	"github.com/stocktrail/stocktrail/pkg/auth"
	"github.com/stocktrail/stocktrail/pkg/cache"
	"github.com/stocktrail/stocktrail/pkg/ha"
	"github.com/stocktrail/stocktrail/pkg/inventory"
	"github.com/stocktrail/stocktrail/pkg/lifecycle"
)

// Server owns every long-lived component of the StockTrail API process.
type Server struct {
	cfg    *Config
	db     *gorm.DB
	logger *slog.Logger
	router chi.Router

	engine     *inventory.Engine
	feed       *inventory.Feed
	users      *auth.UserStore
	tokens     *auth.RefreshTokenStore
	issuer     *auth.TokenIssuer
	authSvc    *auth.Service
	auditStore *audit.Store

	authConfig  *auth.Config
	auditConfig *audit.Config
	caches      cache.Manager

	migrationLocker ha.MigrationLocker
	startedAt       time.Time
	initDone        bool
	mu              sync.RWMutex
}

// ServerOption configures a Server.
type ServerOption func(*Server)

// WithMigrationLocker sets the MigrationLocker used to serialize database
// migrations across multiple replicas. If not set, Init picks one based on
// the database config.
func WithMigrationLocker(locker ha.MigrationLocker) ServerOption {
	return func(s *Server) {
		s.migrationLocker = locker
	}
}

// WithAuthConfig overrides the token settings derived from the server config.
func WithAuthConfig(cfg *auth.Config) ServerOption {
	return func(s *Server) {
		s.authConfig = cfg
	}
}

// WithAuditConfig overrides the audit settings derived from the server config.
func WithAuditConfig(cfg *audit.Config) ServerOption {
	return func(s *Server) {
		s.auditConfig = cfg
	}
}

// NewServer creates a server over an open database connection. Call Init
// before MountRoutes.
func NewServer(cfg *Config, db *gorm.DB, logger *slog.Logger, opts ...ServerOption) *Server {
	if cfg == nil {
		cfg = DefaultConfig()
	}
	if logger == nil {
		logger = slog.Default()
	}

	s := &Server{
		cfg:       cfg,
		db:        db,
		logger:    logger,
		startedAt: time.Now(),
	}

	for _, opt := range opts {
		opt(s)
	}

	return s
}

// Init migrates the schema and seeds the bootstrap admin, then builds the
// engine and services. Migrations run under the migration lock so that
// concurrent replicas cannot interleave schema changes.
func (s *Server) Init(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.authConfig == nil {
		s.authConfig = s.cfg.AuthConfig()
	}
	if s.auditConfig == nil {
		s.auditConfig = s.cfg.AuditConfig()
	}

	issuer, err := auth.NewTokenIssuer(
		[]byte(s.authConfig.Secret),
		s.authConfig.Issuer,
		s.authConfig.Audience,
		s.authConfig.AccessTTL,
		s.authConfig.RefreshTTL,
	)
	if err != nil {
		return fmt.Errorf("configure token issuer: %w", err)
	}
	s.issuer = issuer

	s.users = auth.NewUserStore(s.db)
	s.tokens = auth.NewRefreshTokenStore(s.db)
	s.auditStore = audit.NewStore(s.db)
	items := inventory.NewItemStore(s.db)

	migrateFn := func() error {
		if err := items.AutoMigrate(); err != nil {
			s.logger.Error("failed to auto-migrate inventory tables", "error", err)
		}
		if err := s.users.AutoMigrate(); err != nil {
			s.logger.Error("failed to auto-migrate auth tables", "error", err)
		}
		if err := s.auditStore.AutoMigrate(); err != nil {
			s.logger.Error("failed to auto-migrate audit table", "error", err)
		}
		return nil
	}

	if s.migrationLocker == nil {
		if s.cfg.Database.MigrationLock {
			s.migrationLocker = ha.NewMigrationLocker(s.db)
		} else {
			s.migrationLocker = ha.NoopLocker()
		}
	}
	if err := s.migrationLocker.WithLock(ctx, migrateFn); err != nil {
		return fmt.Errorf("migration lock error: %w", err)
	}

	if err := seedAdminUser(s.users,
		os.Getenv("STOCKTRAIL_ADMIN_USERNAME"),
		os.Getenv("STOCKTRAIL_ADMIN_PASSWORD"),
		s.logger); err != nil {
		return err
	}

	s.engine = inventory.NewEngine(s.db, s.logger)
	if s.cfg.WatchEnabled() {
		s.feed = inventory.NewFeed(s.engine, s.logger)
	}
	s.caches = cache.NewManager(cache.ConfigFromEnv())

	limiter := auth.NewLoginLimiter(s.authConfig.LoginAttempts, s.authConfig.LoginWindow)
	s.authSvc = auth.NewService(s.users, s.tokens, s.issuer, limiter, s.logger)

	s.initDone = true
	return nil
}

// MountRoutes creates the HTTP router with all API routes mounted.
func (s *Server) MountRoutes() chi.Router {
	s.mu.RLock()
	defer s.mu.RUnlock()

	s.router = chi.NewRouter()

	s.router.Use(middleware.RequestID)
	s.router.Use(middleware.RealIP)
	s.router.Use(middleware.Recoverer)
	s.router.Use(cors.Handler(cors.Options{
		AllowedOrigins:   s.cfg.CORS.AllowedOrigins,
		AllowedMethods:   []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		ExposedHeaders:   []string{"Link"},
		AllowCredentials: false,
		MaxAge:           300,
	}))

	// Resolve the acting user from the bearer token on every request.
	// Requests without a valid token pass through unauthenticated and the
	// endpoints decide whether that is acceptable.
	s.router.Use(auth.Middleware(s.users, s.issuer, s.logger))

	if s.auditStore != nil && s.auditConfig != nil && s.auditConfig.Enabled {
		s.router.Use(audit.Middleware(s.auditStore, s.auditConfig, s.logger))
		s.logger.Info("audit middleware enabled",
			"logDenied", s.auditConfig.LogDenied,
			"retentionDays", s.auditConfig.RetentionDays)
	}

	s.router.Mount("/auth", s.authSvc.Router())

	s.router.Mount("/api/v1", inventory.NewRouter(s.engine, s.feed, s.caches))
	if s.feed != nil {
		s.logger.Info("event feed enabled", "path", "/api/v1/events/watch")
	}

	s.router.Mount("/api/audit/v1", audit.Router(s.auditStore, auth.RequireRole(lifecycle.RoleAdmin)))

	s.router.Get("/healthz", s.healthHandler)
	s.router.Get("/livez", s.healthHandler)
	s.router.Get("/readyz", s.readyHandler)

	return s.router
}

// Start launches the background retention workers. They run until the
// context is cancelled.
func (s *Server) Start(ctx context.Context) {
	auditWorker := audit.NewRetentionWorker(s.auditStore, s.auditConfig.RetentionDays, s.logger)
	go auditWorker.Run(ctx)

	tokenWorker := auth.NewTokenRetentionWorker(s.tokens, 0, s.logger)
	go tokenWorker.Run(ctx)
}

// Router returns the underlying chi.Router.
func (s *Server) Router() chi.Router {
	return s.router
}

// Engine returns the transition engine. Exposed for tests and tooling.
func (s *Server) Engine() *inventory.Engine {
	return s.engine
}

// Auth returns the auth service. Exposed for tests and tooling.
func (s *Server) Auth() *auth.Service {
	return s.authSvc
}

// healthHandler returns the liveness status of the server.
func (s *Server) healthHandler(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)

	uptime := time.Since(s.startedAt).Round(time.Second).String()

	response := map[string]string{
		"status": "alive",
		"uptime": uptime,
	}

	_ = json.NewEncoder(w).Encode(response)
}

// readyHandler checks if the server is ready to serve traffic. It verifies
// DB connectivity and that Init completed.
func (s *Server) readyHandler(w http.ResponseWriter, r *http.Request) {
	s.mu.RLock()
	initDone := s.initDone
	s.mu.RUnlock()

	allReady := true

	dbStatus := map[string]string{"status": "up"}
	if s.db != nil {
		sqlDB, err := s.db.DB()
		if err != nil {
			dbStatus["status"] = "down"
			dbStatus["error"] = err.Error()
			allReady = false
		} else if err := sqlDB.Ping(); err != nil {
			dbStatus["status"] = "down"
			dbStatus["error"] = err.Error()
			allReady = false
		}
	} else {
		dbStatus["status"] = "not_configured"
		allReady = false
	}

	initStatus := map[string]string{"status": "complete"}
	if !initDone {
		initStatus["status"] = "pending"
		allReady = false
	}

	components := map[string]any{
		"database": dbStatus,
		"init":     initStatus,
	}

	status := "ready"
	if !allReady {
		status = "not_ready"
	}

	w.Header().Set("Content-Type", "application/json")

	if allReady {
		w.WriteHeader(http.StatusOK)
	} else {
		w.WriteHeader(http.StatusServiceUnavailable)
	}

	response := map[string]any{
		"status":     status,
		"components": components,
	}

	_ = json.NewEncoder(w).Encode(response)
}
