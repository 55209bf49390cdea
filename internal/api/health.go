package api

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/finadvisor/statuslog/internal/store"
)

const healthCheckTimeout = 5 * time.Second

// HealthHandler handles health check endpoints.
type HealthHandler struct {
	repo store.Repository
}

// NewHealthHandler creates a new health handler.
func NewHealthHandler(repo store.Repository) *HealthHandler {
	return &HealthHandler{repo: repo}
}

// Health reports overall service health and whether the database is
// currently reachable. It always answers 200: a down database is reported
// in the payload, never propagated as a server error.
func (h *HealthHandler) Health(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), healthCheckTimeout)
	defer cancel()

	connected := true
	if err := h.repo.Ping(ctx); err != nil {
		slog.Warn("Database health check failed", "error", err)
		connected = false
	}

	status := "ok"
	if !connected {
		status = "degraded"
	}

	JSON(w, http.StatusOK, map[string]any{
		"status":             status,
		"version":            ServiceVersion,
		"database_connected": connected,
	})
}

// RegisterHealth registers the health check route.
func (h *HealthHandler) RegisterHealth(r chi.Router) {
	r.Get("/health", h.Health)
}
