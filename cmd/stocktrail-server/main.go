// Package main provides the StockTrail API server entry point. It hosts
// the inventory lifecycle API, auth, audit, and the websocket event feed
// in a single process.
package main

import (
	"context"
	"flag"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/golang/glog"

	"github.com/stocktrail/stocktrail/pkg/server"
)

func main() {
	var (
		listenAddr string
		configPath string
		dbDriver   string
		dbDSN      string
		logLevel   string
	)

	flag.StringVar(&listenAddr, "listen", "", "Address to listen on (overrides config)")
	flag.StringVar(&configPath, "config", "", "Path to YAML config file")
	flag.StringVar(&dbDriver, "db-driver", "", "Database driver: sqlite, postgres, or mysql (overrides config)")
	flag.StringVar(&dbDSN, "db-dsn", "", "Database connection string (overrides config)")
	flag.StringVar(&logLevel, "log-level", "info", "Log level: debug, info, warn, or error")
	flag.Parse()

	// Initialize glog for backwards compatibility
	_ = flag.Set("logtostderr", "true")

	// Set up structured logger
	logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{
		Level: parseLogLevel(logLevel),
	}))
	slog.SetDefault(logger)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Handle shutdown signals
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		sig := <-sigCh
		logger.Info("received shutdown signal", "signal", sig)
		cancel()
	}()

	cfg, err := server.LoadConfig(configPath)
	if err != nil {
		glog.Fatalf("Failed to load config: %v", err)
	}

	// Flags win over both the config file and the environment.
	if listenAddr != "" {
		cfg.Address = listenAddr
	}
	if dbDriver != "" {
		cfg.Database.Driver = dbDriver
	}
	if dbDSN != "" {
		cfg.Database.DSN = dbDSN
	}
	if err := cfg.Validate(); err != nil {
		glog.Fatalf("Invalid configuration: %v", err)
	}

	logger.Info("starting stocktrail server",
		"listen", cfg.Address,
		"driver", cfg.Database.Driver,
		"config", configPath,
	)

	db, err := server.OpenDatabase(cfg.Database)
	if err != nil {
		glog.Fatalf("Failed to connect to database: %v", err)
	}

	srv := server.NewServer(cfg, db, logger)
	if err := srv.Init(ctx); err != nil {
		glog.Fatalf("Failed to initialize server: %v", err)
	}

	router := srv.MountRoutes()
	srv.Start(ctx)

	logger.Info("stocktrail server ready", "listen", cfg.Address)

	// Create HTTP server with graceful shutdown
	httpServer := &http.Server{
		Addr:    cfg.Address,
		Handler: router,
	}

	go func() {
		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			glog.Fatalf("HTTP server error: %v", err)
		}
	}()

	// Wait for shutdown signal
	<-ctx.Done()

	logger.Info("shutting down...")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()

	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		logger.Error("HTTP server shutdown error", "error", err)
	}

	logger.Info("stocktrail server stopped")
}

func parseLogLevel(level string) slog.Level {
	switch level {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
