// Status logging service for the financial advisor agent pipeline.
package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	chiMiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/joho/godotenv"
	"golang.org/x/sync/errgroup"

	"github.com/finadvisor/statuslog/internal/api"
	"github.com/finadvisor/statuslog/internal/config"
	"github.com/finadvisor/statuslog/internal/middleware"
	"github.com/finadvisor/statuslog/internal/proxy"
	"github.com/finadvisor/statuslog/internal/store"
	"github.com/finadvisor/statuslog/internal/stream"
)

func main() {
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: slog.LevelInfo,
	}))
	slog.SetDefault(logger)

	// Exiting from run keeps the deferred cleanup (proxy stop, repository
	// close) on the failure path; os.Exit here would skip it.
	if err := run(); err != nil {
		slog.Error("Server failed", "error", err)
		os.Exit(1)
	}

	slog.Info("Server stopped successfully")
}

func run() error {
	if err := godotenv.Load(); err != nil {
		slog.Info("No .env file found, using environment variables")
	}

	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load configuration: %w", err)
	}

	slog.Info("Starting status logging service",
		"host", cfg.HTTPHost, "port", cfg.HTTPPort, "driver", cfg.DBDriver)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// The proxy must be ready before any dependent traffic starts. A proxy
	// that never comes up is fatal: letting the service start anyway turns
	// every database error into an opaque request-time failure.
	if cfg.ProxyRequired() {
		supervisor := proxy.New(cfg.CloudSQLConnectionName, cfg.ProxyPort)
		if err := supervisor.Start(ctx); err != nil {
			return fmt.Errorf("cloud sql proxy for %s not ready: %w", cfg.CloudSQLConnectionName, err)
		}
		defer func() {
			if stopErr := supervisor.Stop(); stopErr != nil {
				slog.Error("Failed to stop Cloud SQL proxy", "error", stopErr)
			}
		}()
	}

	repo, err := store.Open(ctx, cfg)
	if err != nil {
		return fmt.Errorf("initialize database: %w", err)
	}
	defer func() {
		if closeErr := repo.Close(); closeErr != nil {
			slog.Error("Failed to close repository", "error", closeErr)
		}
	}()

	if err := repo.Ping(ctx); err != nil {
		slog.Warn("Database not reachable at startup, serving degraded", "error", err)
	} else {
		slog.Info("Database connected")
	}

	hub := stream.NewHub()

	// Initialize handlers.
	baseHandler := api.NewHandler(repo, hub)
	healthHandler := api.NewHealthHandler(repo)
	streamHandler := stream.NewHandler(hub)

	// Setup router.
	r := chi.NewRouter()
	r.Use(chiMiddleware.RequestID)
	r.Use(chiMiddleware.RealIP)
	r.Use(chiMiddleware.Logger)
	r.Use(chiMiddleware.Recoverer)
	if cfg.EnableCORS {
		r.Use(middleware.CORS(cfg.CORSOrigins))
	}

	healthHandler.RegisterHealth(r)
	baseHandler.RegisterRoutes(r)
	r.Get("/ws/logs", streamHandler.ServeHTTP)

	// Note: the /ws/logs stream holds connections open, so no WriteTimeout.
	srv := &http.Server{
		Addr:         net.JoinHostPort(cfg.HTTPHost, cfg.HTTPPort),
		Handler:      r,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 0,
		IdleTimeout:  120 * time.Second,
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		slog.Info("Server listening", "addr", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("serve: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		slog.Info("Shutting down gracefully...")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})

	return g.Wait()
}
