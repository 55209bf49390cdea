package store

import (
	"context"
	"errors"
	"net"
	"strings"
)

// IsConnectivityError checks whether an error looks like the database or
// proxy being unreachable rather than a statement-level failure. Handlers
// use this to pick the right log message; the caller-facing response is the
// same structured error either way.
func IsConnectivityError(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	var netErr net.Error
	if errors.As(err, &netErr) {
		return true
	}
	msg := err.Error()
	return strings.Contains(msg, "connection refused") ||
		strings.Contains(msg, "connection reset") ||
		strings.Contains(msg, "failed to connect") ||
		strings.Contains(msg, "closed pool")
}
