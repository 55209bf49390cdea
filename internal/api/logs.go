package api

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/finadvisor/statuslog/internal/domain"
	"github.com/finadvisor/statuslog/internal/store"
)

// RegisterRoutes registers the logging API routes.
func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Get("/", h.Root)
	r.Post("/log_status", h.LogStatus)
	r.Get("/query_logs", h.QueryLogs)
}

type logStatusRequest struct {
	SessionID  string         `json:"session_id"`
	UserID     string         `json:"user_id"`
	AgentName  string         `json:"agent_name"`
	StatusType string         `json:"status_type"`
	Message    string         `json:"message"`
	Metadata   map[string]any `json:"metadata"`
}

// LogStatus records one status event. Validation failures never touch the
// database; database failures come back as structured errors so callers can
// treat a failed log call as non-fatal.
func (h *Handler) LogStatus(w http.ResponseWriter, r *http.Request) {
	var req logStatusRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		Error(w, http.StatusBadRequest, "invalid JSON body")
		return
	}

	event := domain.StatusEvent{
		SessionID:  req.SessionID,
		UserID:     req.UserID,
		AgentName:  req.AgentName,
		StatusType: req.StatusType,
		Message:    req.Message,
		Metadata:   req.Metadata,
	}
	if err := event.Validate(); err != nil {
		Error(w, http.StatusBadRequest, err.Error())
		return
	}

	id, err := h.repo.InsertEvent(r.Context(), &event)
	if err != nil {
		if store.IsConnectivityError(err) {
			slog.Error("Database unreachable while logging status", "error", err, "agent_name", event.AgentName)
		} else {
			slog.Error("Failed to insert status event", "error", err, "agent_name", event.AgentName)
		}
		Error(w, http.StatusInternalServerError, "failed to log status")
		return
	}

	h.hub.Publish(event)

	slog.Info("Status logged", "id", id, "agent_name", event.AgentName, "status_type", event.StatusType)
	JSON(w, http.StatusOK, map[string]any{"status": "success", "id": id})
}

// QueryLogs returns the most recent events matching the query parameters,
// newest first. Filters matching nothing yield an empty list, not an error.
func (h *Handler) QueryLogs(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	filter := domain.QueryFilter{
		AgentName:  q.Get("agent_name"),
		SessionID:  q.Get("session_id"),
		StatusType: q.Get("status_type"),
	}
	if raw := q.Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil {
			Error(w, http.StatusBadRequest, "limit must be an integer")
			return
		}
		filter.Limit = n
	}

	events, err := h.repo.QueryEvents(r.Context(), filter)
	if err != nil {
		slog.Error("Failed to query status events", "error", err)
		Error(w, http.StatusInternalServerError, "failed to query logs")
		return
	}

	JSON(w, http.StatusOK, map[string]any{
		"status": "success",
		"count":  len(events),
		"logs":   events,
	})
}

// Root reports basic service information and the endpoint map.
func (h *Handler) Root(w http.ResponseWriter, r *http.Request) {
	JSON(w, http.StatusOK, map[string]any{
		"service": ServiceName,
		"version": ServiceVersion,
		"status":  "running",
		"endpoints": map[string]string{
			"health":     "/health",
			"log_status": "/log_status",
			"query_logs": "/query_logs",
			"stream":     "/ws/logs",
		},
	})
}
