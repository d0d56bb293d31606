// Package main is the entry point for the travel journal API server.
// Its sole responsibility is wiring dependencies together and starting the
// server. No business logic belongs here.
package main

import (
	"context"
	"database/sql"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/jackc/pgx/v5/pgxpool"
	_ "github.com/jackc/pgx/v5/stdlib" // registers "pgx" for goose's database/sql handle
	"github.com/pressly/goose/v3"

	"github.com/hugolin/travellog/backend/internal/config"
	"github.com/hugolin/travellog/backend/internal/handler"
	"github.com/hugolin/travellog/backend/internal/livesync"
	"github.com/hugolin/travellog/backend/internal/middleware"
	"github.com/hugolin/travellog/backend/internal/service"
	"github.com/hugolin/travellog/backend/internal/store"
	"github.com/hugolin/travellog/backend/internal/store/fire"
	"github.com/hugolin/travellog/backend/internal/store/pg"
	"github.com/hugolin/travellog/backend/migrations"
	"github.com/hugolin/travellog/backend/spec"
)

func main() {
	// --- Config -----------------------------------------------------------
	cfg, err := config.Load()
	if err != nil {
		slog.Error("configuration error", "error", err)
		os.Exit(1)
	}

	// --- Logger -----------------------------------------------------------
	// JSON handler writes machine-readable output suitable for log aggregators.
	var logLevel slog.Level
	if err := logLevel.UnmarshalText([]byte(cfg.LogLevel)); err != nil {
		logLevel = slog.LevelInfo
	}
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: logLevel,
	}))
	slog.SetDefault(logger)

	// --- Store ------------------------------------------------------------
	st, err := openStore(context.Background(), cfg, logger)
	if err != nil {
		slog.Error("failed to open store", "backend", cfg.StoreBackend, "error", err)
		os.Exit(1)
	}
	defer st.Close()
	slog.Info("store ready", "backend", cfg.StoreBackend)

	// --- Live sync --------------------------------------------------------
	ctrl := livesync.New(st, logger)
	if err := ctrl.Start(context.Background()); err != nil {
		slog.Error("failed to start live sync", "error", err)
		os.Exit(1)
	}
	defer ctrl.Close()

	// --- Service and routes -----------------------------------------------
	svc := service.NewTripService(st, st, nil, cfg.ConfirmToken, logger)
	server := handler.NewServer(svc, ctrl, spec.OpenAPI)

	// Middleware is applied in order: RequestID → RealIP → Logger → Recoverer
	// → CORS → body limit. Recoverer catches panics and returns HTTP 500
	// instead of crashing.
	r := chi.NewRouter()
	r.Use(chimiddleware.RequestID)
	r.Use(chimiddleware.RealIP)
	r.Use(middleware.NewSlogLogger(logger))
	r.Use(chimiddleware.Recoverer)
	r.Use(middleware.NewCORSHandler(cfg.CORSOrigins))
	r.Use(middleware.NewMaxBodySizeHandler(cfg.MaxUploadBytes))
	r.Mount("/", server.Routes())

	// --- HTTP Server ------------------------------------------------------
	// No WriteTimeout: /api/stream is a long-lived event stream and a write
	// deadline would cut every client off. Slow readers are bounded by the
	// coalescing ticks instead.
	srv := &http.Server{
		Addr:        ":" + cfg.Port,
		Handler:     r,
		ReadTimeout: 10 * time.Second,
		IdleTimeout: 60 * time.Second,
	}

	// Graceful shutdown: wait for OS signal, then give in-flight requests
	// up to 15 seconds to complete before forcefully closing.
	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		slog.Info("server starting", "addr", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			slog.Error("server error", "error", err)
			os.Exit(1)
		}
	}()

	<-stop
	slog.Info("shutting down server")

	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		slog.Error("shutdown error", "error", err)
		os.Exit(1)
	}
	slog.Info("server stopped")
}

// openStore builds the configured store backend.
func openStore(ctx context.Context, cfg config.Config, logger *slog.Logger) (store.Store, error) {
	switch cfg.StoreBackend {
	case config.BackendPostgres:
		if err := migrate(cfg.DatabaseURL); err != nil {
			return nil, err
		}
		pool, err := pgxpool.New(ctx, cfg.DatabaseURL)
		if err != nil {
			return nil, err
		}
		if err := pool.Ping(ctx); err != nil {
			pool.Close()
			return nil, err
		}
		return pg.New(pool, logger), nil

	case config.BackendFirestore:
		return fire.New(ctx, cfg.FirestoreProjectID, logger)

	default:
		if cfg.DataFile != "" {
			return store.NewFileStore(cfg.DataFile, logger)
		}
		return store.NewMemory(), nil
	}
}

// migrate applies any pending schema migrations before the pool opens.
func migrate(dsn string) error {
	db, err := sql.Open("pgx", dsn)
	if err != nil {
		return err
	}
	defer db.Close()

	provider, err := goose.NewProvider(goose.DialectPostgres, db, migrations.FS)
	if err != nil {
		return err
	}
	results, err := provider.Up(context.Background())
	if err != nil {
		return err
	}
	if len(results) > 0 {
		slog.Info("migrations applied", "count", len(results))
	}
	return nil
}
