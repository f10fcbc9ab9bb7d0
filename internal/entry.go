// Package internal provides the main application initialization and runtime logic.
package internal

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"golang.org/x/sync/errgroup"

	"github.com/starford/sowilo/internal/api"
	"github.com/starford/sowilo/internal/catalog"
	"github.com/starford/sowilo/internal/ingest"
	"github.com/starford/sowilo/internal/mcpserver"
	"github.com/starford/sowilo/internal/preview"
	"github.com/starford/sowilo/internal/snapshot"
	"github.com/starford/sowilo/internal/sse"
)

// Run starts the wallpaper service with the given options.
func Run(ctx context.Context, opts ...Option) error {
	app := &application{}

	for _, opt := range opts {
		opt(app)
	}

	if app.config == nil {
		return fmt.Errorf("config is required")
	}

	cfg := app.config

	// Initialize structured JSON logger.
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: cfg.App.LogLevel,
	}))
	slog.SetDefault(logger)

	logger.Info("Configuration loaded",
		slog.String("http_address", cfg.App.HTTP.Address()),
		slog.String("library_path", cfg.Library.Path),
		slog.String("snapshot_driver", cfg.Snapshot.Driver),
		slog.String("snapshot_path", cfg.Snapshot.Path),
		slog.String("log_level", cfg.App.LogLevel.String()))

	// Ensure the library directory exists.
	if err := os.MkdirAll(cfg.Library.Path, 0o755); err != nil {
		return fmt.Errorf("create library dir: %w", err)
	}
	libraryDir, err := filepath.Abs(cfg.Library.Path)
	if err != nil {
		return fmt.Errorf("resolve library dir: %w", err)
	}

	// Open the durable snapshot and load the catalog.
	snap, err := snapshot.New(cfg.Snapshot.Driver, cfg.Snapshot.Path)
	if err != nil {
		return fmt.Errorf("init snapshot: %w", err)
	}
	defer snap.Close()

	store := catalog.New(logger)
	records, err := snap.Load()
	if err != nil {
		return fmt.Errorf("load snapshot: %w", err)
	}
	store.Load(records)
	logger.Info("Catalog loaded", slog.Int("records", store.Len()))

	// Preview renderer.
	renderer, err := preview.NewRenderer(cfg.Previews.Path)
	if err != nil {
		return fmt.Errorf("init previews: %w", err)
	}

	// SSE broker.
	broker := sse.NewBroker()
	defer broker.Close()

	// Ingestion: watcher feeding a bounded worker pool.
	watcher, err := ingest.NewWatcher(libraryDir, cfg.Ingest.QueueSize, logger)
	if err != nil {
		return fmt.Errorf("init watcher: %w", err)
	}
	pipeline := ingest.NewPipeline(store, renderer, libraryDir,
		cfg.Ingest.Workers, cfg.Ingest.FileTimeout(), logger,
		func(kind, id string) {
			broker.PublishWallpaperEvent(kind, id)
		})

	// API handlers and router.
	handler := api.NewHandler(store, libraryDir, renderer.Dir())
	apiLimiter := api.NewLimiter(cfg.RateLimit.MaxAPI, cfg.RateLimit.Window())
	downloadLimiter := api.NewLimiter(cfg.RateLimit.MaxDownloads, cfg.RateLimit.Window())
	apiRouter := api.NewRouter(handler, apiLimiter, downloadLimiter, broker)

	// Build chi router.
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)

	// Health check endpoints (no rate limit).
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

	// Mount API routes under /api.
	r.Mount("/api", apiRouter)

	// Rendered previews are served as static files; record preview_url
	// locators point here.
	r.Handle("/previews/*", http.StripPrefix("/previews/",
		http.FileServer(http.Dir(renderer.Dir()))))

	httpServer := &http.Server{
		Addr:    cfg.App.HTTP.Address(),
		Handler: r,
	}

	logger.Info("Server starting...", slog.String("http_address", cfg.App.HTTP.Address()))

	// A signal cancels the run context itself, so every errgroup goroutine
	// observes shutdown and the persister gets its final snapshot write.
	ctx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	g, gCtx := errgroup.WithContext(ctx)

	// Watcher: backfill then live events.
	g.Go(func() error {
		return watcher.Run(gCtx)
	})

	// Ingestion worker pool.
	g.Go(func() error {
		return pipeline.Run(gCtx, watcher.Events())
	})

	// Snapshot persister (single writer).
	g.Go(func() error {
		return store.RunPersister(gCtx, snap)
	})

	// Start HTTP server.
	g.Go(func() error {
		logger.Info("Starting HTTP server", slog.String("address", cfg.App.HTTP.Address()))
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("HTTP server error: %w", err)
		}
		return nil
	})

	// Stop accepting HTTP traffic once shutdown begins, so ListenAndServe
	// returns and the group can drain.
	g.Go(func() error {
		<-gCtx.Done()
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

// RunMCP serves the catalog over MCP stdio. The catalog is loaded from the
// snapshot once; the watcher is not started, so the view is read-only.
func RunMCP(ctx context.Context, opts ...Option) error {
	app := &application{}

	for _, opt := range opts {
		opt(app)
	}

	if app.config == nil {
		return fmt.Errorf("config is required")
	}

	cfg := app.config

	// MCP speaks on stdout; keep logs on stderr.
	logger := slog.New(slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{
		Level: cfg.App.LogLevel,
	}))
	slog.SetDefault(logger)

	snap, err := snapshot.New(cfg.Snapshot.Driver, cfg.Snapshot.Path)
	if err != nil {
		return fmt.Errorf("init snapshot: %w", err)
	}
	defer snap.Close()

	store := catalog.New(logger)
	records, err := snap.Load()
	if err != nil {
		return fmt.Errorf("load snapshot: %w", err)
	}
	store.Load(records)
	logger.Info("Catalog loaded", slog.Int("records", store.Len()))

	srv := mcpserver.New(store)

	done := make(chan error, 1)
	go func() { done <- srv.ServeStdio() }()

	select {
	case <-ctx.Done():
		return nil
	case err := <-done:
		return err
	}
}
