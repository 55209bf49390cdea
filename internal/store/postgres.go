package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/finadvisor/statuslog/internal/config"
	"github.com/finadvisor/statuslog/internal/domain"
)

// The agent_status_logs schema, embedded in the Go code. Indexes cover the
// three query patterns: by recency, by session, by agent.
const initSQL = `
CREATE TABLE IF NOT EXISTS agent_status_logs (
    id          SERIAL PRIMARY KEY,
    timestamp   TIMESTAMPTZ NOT NULL DEFAULT CURRENT_TIMESTAMP,
    session_id  VARCHAR(255),
    user_id     VARCHAR(255),
    agent_name  VARCHAR(100),
    status_type VARCHAR(50),
    message     TEXT,
    metadata    JSONB
);

CREATE INDEX IF NOT EXISTS idx_agent_status_logs_timestamp
ON agent_status_logs(timestamp);

CREATE INDEX IF NOT EXISTS idx_agent_status_logs_session_id
ON agent_status_logs(session_id);

CREATE INDEX IF NOT EXISTS idx_agent_status_logs_agent_name
ON agent_status_logs(agent_name);
`

// PostgresStore implements Repository on a pgx connection pool.
type PostgresStore struct {
	pool    *pgxpool.Pool
	timeout time.Duration
}

// NewPostgres creates a Postgres-backed repository. The pool connects
// lazily; an unreachable database at startup is not fatal, it only degrades
// health until the database comes back.
func NewPostgres(ctx context.Context, cfg *config.Config) (Repository, error) {
	pc, err := pgxpool.ParseConfig(cfg.DatabaseURL())
	if err != nil {
		return nil, fmt.Errorf("parse pgxpool config: %w", err)
	}

	pc.MinConns = int32(cfg.PoolMinConns)
	pc.MaxConns = int32(cfg.PoolMaxConns)
	pc.MaxConnIdleTime = 5 * time.Minute
	pc.MaxConnLifetime = 30 * time.Minute
	pc.HealthCheckPeriod = 1 * time.Minute
	pc.ConnConfig.ConnectTimeout = 10 * time.Second

	pool, err := pgxpool.NewWithConfig(ctx, pc)
	if err != nil {
		return nil, fmt.Errorf("create pgx pool: %w", err)
	}

	s := &PostgresStore{pool: pool, timeout: cfg.DBTimeout}

	initCtx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()
	if _, err := pool.Exec(initCtx, initSQL); err != nil {
		// The table usually exists already; endpoints report per-call
		// errors and health shows degraded until the database is back.
		slog.Warn("Failed to initialize schema, continuing without database", "error", err)
	}

	return s, nil
}

// InsertEvent persists one status event. Timestamp is assigned by the
// database, not the client.
func (s *PostgresStore) InsertEvent(ctx context.Context, event *domain.StatusEvent) (int64, error) {
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	var metadata []byte
	if event.Metadata != nil {
		var err error
		if metadata, err = json.Marshal(event.Metadata); err != nil {
			return 0, fmt.Errorf("encode metadata: %w", err)
		}
	}

	query := `
		INSERT INTO agent_status_logs (session_id, user_id, agent_name, status_type, message, metadata)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING id, timestamp`

	err := s.pool.QueryRow(ctx, query,
		nullable(event.SessionID), nullable(event.UserID), event.AgentName,
		nullable(event.StatusType), event.Message, metadata,
	).Scan(&event.ID, &event.Timestamp)
	if err != nil {
		return 0, fmt.Errorf("insert status event: %w", err)
	}

	return event.ID, nil
}

// QueryEvents returns the most recent matching events, newest first.
func (s *PostgresStore) QueryEvents(ctx context.Context, filter domain.QueryFilter) ([]domain.StatusEvent, error) {
	filter = filter.Normalize()
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	var (
		conditions []string
		args       []any
	)
	addFilter := func(column, value string) {
		if value == "" {
			return
		}
		args = append(args, value)
		conditions = append(conditions, fmt.Sprintf("%s = $%d", column, len(args)))
	}
	addFilter("session_id", filter.SessionID)
	addFilter("agent_name", filter.AgentName)
	addFilter("status_type", filter.StatusType)

	query := `
		SELECT id, timestamp, session_id, user_id, agent_name, status_type, message, metadata
		FROM agent_status_logs`
	if len(conditions) > 0 {
		query += " WHERE " + strings.Join(conditions, " AND ")
	}
	args = append(args, filter.Limit)
	query += fmt.Sprintf(" ORDER BY timestamp DESC, id DESC LIMIT $%d", len(args))

	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query status events: %w", err)
	}
	defer rows.Close()

	events := []domain.StatusEvent{}
	for rows.Next() {
		var (
			event                         domain.StatusEvent
			sessionID, userID, statusType sql.NullString
			metadata                      []byte
		)
		if err := rows.Scan(
			&event.ID, &event.Timestamp, &sessionID, &userID,
			&event.AgentName, &statusType, &event.Message, &metadata,
		); err != nil {
			return nil, fmt.Errorf("scan status event: %w", err)
		}

		event.SessionID = sessionID.String
		event.UserID = userID.String
		event.StatusType = statusType.String
		if len(metadata) > 0 {
			if err := json.Unmarshal(metadata, &event.Metadata); err != nil {
				return nil, fmt.Errorf("decode metadata: %w", err)
			}
		}
		events = append(events, event)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate status events: %w", err)
	}

	return events, nil
}

// Ping verifies database connectivity with a real round-trip.
func (s *PostgresStore) Ping(ctx context.Context) error {
	return s.pool.Ping(ctx)
}

// Close closes the connection pool.
func (s *PostgresStore) Close() error {
	s.pool.Close()
	return nil
}

// nullable maps empty strings to NULL so optional fields are stored as null
// rather than empty text.
func nullable(s string) any {
	if s == "" {
		return nil
	}
	return s
}
