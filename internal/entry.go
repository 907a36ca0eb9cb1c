// Package internal provides the main application initialization and
// runtime logic.
package internal

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"golang.org/x/sync/errgroup"

	"github.com/halvard/fehu/internal/api"
	"github.com/halvard/fehu/internal/audit"
	"github.com/halvard/fehu/internal/auth"
	"github.com/halvard/fehu/internal/catalog"
	"github.com/halvard/fehu/internal/mcpserver"
	"github.com/halvard/fehu/internal/sse"
	"github.com/halvard/fehu/internal/storage"
)

// Run starts the HTTP application with the given options.
func Run(ctx context.Context, opts ...Option) error {
	app := &application{}
	for _, opt := range opts {
		opt(app)
	}
	if app.config == nil {
		return fmt.Errorf("config is required")
	}
	cfg := app.config

	// Structured JSON logger.
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: cfg.App.LogLevel,
	}))
	slog.SetDefault(logger)

	logger.Info("Configuration loaded",
		slog.String("http_address", cfg.App.HTTP.Address()),
		slog.String("storage_path", cfg.Storage.Path),
		slog.Bool("locking", cfg.Storage.Locking.Enabled),
		slog.Bool("backup", cfg.Storage.Backup.Enabled),
		slog.String("log_level", cfg.App.LogLevel.String()))

	// Document store (bootstraps the data file on first run).
	store, err := storage.New(cfg.Storage.Path, cfg.Storage.Options(), logger)
	if err != nil {
		return fmt.Errorf("init storage: %w", err)
	}

	// Operation log.
	var auditLog *audit.Log
	if cfg.Audit.Path != "" {
		auditLog, err = audit.Open(cfg.Audit.Path)
		if err != nil {
			return fmt.Errorf("init audit log: %w", err)
		}
		defer auditLog.Close()
	}

	// SSE broker.
	broker := sse.NewBroker()
	defer broker.Close()

	// Catalog service wired to the broker.
	svc := newCatalogService(cfg, store, logger, broker)

	// Auth collaborators.
	authn := auth.NewStatic(cfg.Auth.CredentialTable())
	sessions := auth.NewSessionStore(cfg.Auth.SessionTTL())

	// Build API handler and router.
	handler := api.NewHandler(svc, authn, sessions, auditLog, cfg.Development)
	apiRouter := api.NewRouter(handler, sessions, cfg.Auth.Enabled(), broker)

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)

	// Health check endpoints (unauthenticated).
	r.Get("/health/live", func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"status":"ok"}`))
	})
	r.Get("/health/ready", func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"status":"ok"}`))
	})

	r.Mount("/api", apiRouter)

	httpServer := &http.Server{
		Addr:    cfg.App.HTTP.Address(),
		Handler: r,
	}

	g, gCtx := errgroup.WithContext(ctx)

	// Watch the data file for external modification.
	g.Go(func() error {
		err := catalog.Watch(gCtx, store.Path(), logger, broker.PublishCatalogChanged)
		if err != nil {
			logger.Warn("watcher failed", slog.String("error", err.Error()))
		}
		return nil
	})

	// Start HTTP server.
	g.Go(func() error {
		logger.Info("Starting HTTP server", slog.String("address", cfg.App.HTTP.Address()))
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("HTTP server error: %w", err)
		}
		return nil
	})

	// Handle shutdown signals.
	g.Go(func() error {
		quit := make(chan os.Signal, 1)
		signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

		select {
		case sig := <-quit:
			logger.Info("Received shutdown signal", slog.String("signal", sig.String()))
		case <-gCtx.Done():
			logger.Info("Context cancelled, initiating shutdown")
		}

		logger.Info("Shutting down server...")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := httpServer.Shutdown(shutdownCtx); err != nil {
			logger.Error("HTTP server shutdown error", slog.String("error", err.Error()))
		}

		return nil
	})

	if err := g.Wait(); err != nil {
		logger.Error("Application error", slog.String("error", err.Error()))
		return err
	}

	logger.Info("Server stopped successfully")
	return nil
}

// RunMCP starts the MCP stdio server over the same catalog service.
func RunMCP(_ context.Context, opts ...Option) error {
	app := &application{}
	for _, opt := range opts {
		opt(app)
	}
	if app.config == nil {
		return fmt.Errorf("config is required")
	}
	cfg := app.config

	// MCP uses stdout for the protocol; log to stderr.
	logger := slog.New(slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{
		Level: cfg.App.LogLevel,
	}))
	slog.SetDefault(logger)

	store, err := storage.New(cfg.Storage.Path, cfg.Storage.Options(), logger)
	if err != nil {
		return fmt.Errorf("init storage: %w", err)
	}

	svc := newCatalogService(cfg, store, logger, nil)
	return mcpserver.New(svc).ServeStdio()
}

func newCatalogService(cfg *Config, store storage.Store, logger *slog.Logger, broker *sse.Broker) *catalog.Service {
	svc := catalog.NewService(store, logger)
	svc.SetDefaults(cfg.Catalog.DefaultOrder, cfg.Catalog.DefaultPerPage)
	if broker != nil {
		svc.OnChange(broker.PublishProductEvent)
	}
	return svc
}
