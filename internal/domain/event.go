// Package domain contains core domain types for the status logging service.
package domain

import (
	"fmt"
	"strings"
	"time"
)

// Conventional status types. The store accepts any string; these are the
// values the advisory agents emit in practice.
const (
	StatusInfo    = "info"
	StatusSuccess = "success"
	StatusWarning = "warning"
	StatusError   = "error"
)

// StatusEvent is one persisted record of an agent's reported status at a
// point in time. ID and Timestamp are assigned by the store on insert.
type StatusEvent struct {
	ID         int64          `json:"id,omitempty"`
	Timestamp  time.Time      `json:"timestamp,omitzero"`
	SessionID  string         `json:"session_id,omitempty"`
	UserID     string         `json:"user_id,omitempty"`
	AgentName  string         `json:"agent_name"`
	StatusType string         `json:"status_type,omitempty"`
	Message    string         `json:"message"`
	Metadata   map[string]any `json:"metadata,omitempty"`
}

// Validate checks the minimum viable event. Only agent_name and message are
// required; everything else is optional at the API boundary.
func (e *StatusEvent) Validate() error {
	if strings.TrimSpace(e.AgentName) == "" {
		return fmt.Errorf("agent_name is required")
	}
	if strings.TrimSpace(e.Message) == "" {
		return fmt.Errorf("message is required")
	}
	return nil
}

// Query limit bounds enforced server-side.
const (
	DefaultQueryLimit = 100
	MaxQueryLimit     = 1000
)

// QueryFilter narrows a query_logs call. Zero values mean "no filter".
type QueryFilter struct {
	Limit      int
	AgentName  string
	SessionID  string
	StatusType string
}

// Normalize clamps Limit to [1, MaxQueryLimit], applying the default when
// unset or negative.
func (f QueryFilter) Normalize() QueryFilter {
	if f.Limit <= 0 {
		f.Limit = DefaultQueryLimit
	}
	if f.Limit > MaxQueryLimit {
		f.Limit = MaxQueryLimit
	}
	return f
}
