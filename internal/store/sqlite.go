package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	_ "modernc.org/sqlite"

	"github.com/finadvisor/statuslog/internal/domain"
)

const sqliteInitSQL = `
CREATE TABLE IF NOT EXISTS agent_status_logs (
	id          INTEGER PRIMARY KEY AUTOINCREMENT,
	timestamp   INTEGER NOT NULL,
	session_id  TEXT,
	user_id     TEXT,
	agent_name  TEXT NOT NULL,
	status_type TEXT,
	message     TEXT NOT NULL,
	metadata    TEXT
);
CREATE INDEX IF NOT EXISTS idx_agent_status_logs_timestamp ON agent_status_logs(timestamp);
CREATE INDEX IF NOT EXISTS idx_agent_status_logs_session_id ON agent_status_logs(session_id);
CREATE INDEX IF NOT EXISTS idx_agent_status_logs_agent_name ON agent_status_logs(agent_name);
`

// SQLiteStore implements Repository using SQLite. It backs local
// development and tests where no Postgres instance is available.
type SQLiteStore struct {
	db      *sql.DB
	timeout time.Duration
}

// NewSQLite creates a new SQLite-backed repository.
func NewSQLite(dbPath string, timeout time.Duration) (Repository, error) {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0755); err != nil {
		return nil, fmt.Errorf("create database directory: %w", err)
	}

	// WAL mode keeps concurrent writers from tripping over each other.
	dsn := dbPath + "?_journal=WAL&_sync=NORMAL&_busy_timeout=5000"
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	db.SetMaxOpenConns(25)
	db.SetMaxIdleConns(5)
	db.SetConnMaxLifetime(5 * time.Minute)

	if err := db.Ping(); err != nil {
		return nil, fmt.Errorf("ping database: %w", err)
	}

	if _, err := db.Exec(sqliteInitSQL); err != nil {
		return nil, fmt.Errorf("initialize schema: %w", err)
	}

	return &SQLiteStore{db: db, timeout: timeout}, nil
}

// InsertEvent persists one status event with a millisecond insertion
// timestamp.
func (s *SQLiteStore) InsertEvent(ctx context.Context, event *domain.StatusEvent) (int64, error) {
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	var metadata any
	if event.Metadata != nil {
		encoded, err := json.Marshal(event.Metadata)
		if err != nil {
			return 0, fmt.Errorf("encode metadata: %w", err)
		}
		metadata = string(encoded)
	}

	now := time.Now()
	query := `
		INSERT INTO agent_status_logs (timestamp, session_id, user_id, agent_name, status_type, message, metadata)
		VALUES (?, ?, ?, ?, ?, ?, ?)`

	result, err := s.db.ExecContext(ctx, query,
		now.UnixMilli(), nullable(event.SessionID), nullable(event.UserID),
		event.AgentName, nullable(event.StatusType), event.Message, metadata,
	)
	if err != nil {
		return 0, fmt.Errorf("insert status event: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("get inserted id: %w", err)
	}

	event.ID = id
	event.Timestamp = now
	return id, nil
}

// QueryEvents returns the most recent matching events, newest first. Ties
// on the millisecond timestamp break on id so insertion order is preserved.
func (s *SQLiteStore) QueryEvents(ctx context.Context, filter domain.QueryFilter) ([]domain.StatusEvent, error) {
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
		conditions = append(conditions, column+" = ?")
		args = append(args, value)
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
	query += " ORDER BY timestamp DESC, id DESC LIMIT ?"
	args = append(args, filter.Limit)

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query status events: %w", err)
	}
	defer rows.Close()

	events := []domain.StatusEvent{}
	for rows.Next() {
		var (
			event                                   domain.StatusEvent
			timestamp                               int64
			sessionID, userID, statusType, metadata sql.NullString
		)
		if err := rows.Scan(
			&event.ID, &timestamp, &sessionID, &userID,
			&event.AgentName, &statusType, &event.Message, &metadata,
		); err != nil {
			return nil, fmt.Errorf("scan status event: %w", err)
		}

		event.Timestamp = time.UnixMilli(timestamp)
		event.SessionID = sessionID.String
		event.UserID = userID.String
		event.StatusType = statusType.String
		if metadata.Valid && metadata.String != "" {
			if err := json.Unmarshal([]byte(metadata.String), &event.Metadata); err != nil {
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

// Ping verifies database connectivity.
func (s *SQLiteStore) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

// Close closes the database connection.
func (s *SQLiteStore) Close() error {
	if err := s.db.Close(); err != nil {
		return fmt.Errorf("close database: %w", err)
	}
	return nil
}
