// Package api provides HTTP handlers for the status logging API.
package api

import (
	"encoding/json"
	"net/http"

	"github.com/finadvisor/statuslog/internal/store"
	"github.com/finadvisor/statuslog/internal/stream"
)

// Service identity reported by the root and health endpoints.
const (
	ServiceName    = "finadvisor-status-log"
	ServiceVersion = "1.0.0"
)

// Handler provides the logging API endpoints.
type Handler struct {
	repo store.Repository
	hub  *stream.Hub
}

// NewHandler creates a new Handler.
func NewHandler(repo store.Repository, hub *stream.Hub) *Handler {
	return &Handler{repo: repo, hub: hub}
}

// JSON writes a JSON response with the given status code.
func JSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		http.Error(w, `{"status": "error", "message": "failed to encode response"}`, http.StatusInternalServerError)
	}
}

// Error writes a structured error response. The message is what callers
// see; internal detail stays in the logs.
func Error(w http.ResponseWriter, status int, message string) {
	JSON(w, status, map[string]string{"status": "error", "message": message})
}
