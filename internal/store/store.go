// Package store provides data persistence interfaces and implementations.
package store

import (
	"context"
	"fmt"

	"github.com/finadvisor/statuslog/internal/config"
	"github.com/finadvisor/statuslog/internal/domain"
)

// Repository defines the interface for persisting status events. Events are
// insert-only; nothing is ever updated or deleted.
type Repository interface {
	// InsertEvent persists one status event and returns the assigned id.
	// The event's ID and Timestamp fields are populated on success.
	InsertEvent(ctx context.Context, event *domain.StatusEvent) (int64, error)

	// QueryEvents returns the most recent events matching the filter,
	// newest first. A filter matching nothing yields an empty slice.
	QueryEvents(ctx context.Context, filter domain.QueryFilter) ([]domain.StatusEvent, error)

	// Ping verifies database connectivity.
	Ping(ctx context.Context) error

	// Close closes the underlying connections.
	Close() error
}

// Open creates the repository selected by the configured driver.
func Open(ctx context.Context, cfg *config.Config) (Repository, error) {
	switch cfg.DBDriver {
	case "sqlite":
		return NewSQLite(cfg.SQLitePath, cfg.DBTimeout)
	case "postgres":
		return NewPostgres(ctx, cfg)
	default:
		return nil, fmt.Errorf("unsupported DB_DRIVER %q", cfg.DBDriver)
	}
}
