// Package sqlite implements the soltrace event store on an embedded
// SQLite database via modernc.org/sqlite, a pure-Go database/sql
// driver, using the same parameterized-SQL and wrapped-error style as
// the postgres backend.
package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	_ "modernc.org/sqlite"

	"github.com/lugondev/soltrace/internal/storage"
)

func parseTimestamp(s string) (time.Time, error) {
	t, err := time.Parse(timeLayout, s)
	if err != nil {
		return time.Time{}, fmt.Errorf("parse created_at: %w", err)
	}
	return t, nil
}

// EventStore is the SQLite-backed storage.Store implementation.
type EventStore struct {
	db *sql.DB
}

// Open opens (creating if absent) the SQLite database named by url's
// path, e.g. "sqlite:///var/lib/soltrace/events.db" or
// "sqlite://events.db" for a relative path. Call Initialize before
// first use.
func Open(ctx context.Context, url string) (*EventStore, error) {
	dsn := dsnOf(url)
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open: %w", err)
	}
	// modernc.org/sqlite serializes writers internally; a single
	// connection avoids "database is locked" errors under concurrent
	// InsertEvent calls from the pipeline.
	db.SetMaxOpenConns(1)
	return &EventStore{db: db}, nil
}

// dsnOf strips the sqlite:// / sqlite: scheme prefix, leaving a plain
// filesystem path modernc.org/sqlite's driver accepts directly.
func dsnOf(url string) string {
	for _, prefix := range []string{"sqlite://", "sqlite:"} {
		if strings.HasPrefix(url, prefix) {
			return strings.TrimPrefix(url, prefix)
		}
	}
	return url
}

// Initialize creates the events table and its unique index on
// signature if they do not already exist.
func (s *EventStore) Initialize(ctx context.Context) error {
	const schema = `
	CREATE TABLE IF NOT EXISTS events (
		signature TEXT PRIMARY KEY,
		program_id TEXT NOT NULL,
		event_name TEXT NOT NULL,
		discriminator TEXT NOT NULL,
		data TEXT NOT NULL,
		slot INTEGER NOT NULL,
		block_time INTEGER,
		created_at TEXT NOT NULL
	);
	CREATE INDEX IF NOT EXISTS idx_events_program_id ON events(program_id);
	CREATE INDEX IF NOT EXISTS idx_events_event_name ON events(event_name);
	`
	if _, err := s.db.ExecContext(ctx, schema); err != nil {
		return fmt.Errorf("create events schema: %w", err)
	}
	return nil
}

// InsertEvent inserts event, returning inserted=false (not an error)
// if its signature already exists.
func (s *EventStore) InsertEvent(ctx context.Context, event *storage.EventModel) (bool, error) {
	dataJSON, err := json.Marshal(event.Data)
	if err != nil {
		return false, fmt.Errorf("marshal event data: %w", err)
	}

	const query = `
	INSERT INTO events (signature, program_id, event_name, discriminator, data, slot, block_time, created_at)
	VALUES (?, ?, ?, ?, ?, ?, ?, ?)
	`
	_, err = s.db.ExecContext(ctx, query,
		event.Signature, event.ProgramID, event.EventName, event.Discriminator,
		string(dataJSON), event.Slot, event.BlockTime, event.CreatedAt.UTC().Format(timeLayout),
	)
	if err == nil {
		return true, nil
	}
	if isDuplicateSignature(err) {
		return false, nil
	}
	return false, fmt.Errorf("insert event: %w", err)
}

const timeLayout = "2006-01-02T15:04:05.000000000Z"

// isDuplicateSignature recognizes SQLite's unique-constraint error.
// modernc.org/sqlite's typed error varies across driver releases, so
// this matches the stable, documented SQLite error text rather than a
// version-specific error code, following the same "match what the
// backend stably reports" approach as the postgres/mongo backends'
// typed checks.
func isDuplicateSignature(err error) bool {
	return strings.Contains(err.Error(), "UNIQUE constraint failed")
}

// FindBySignature is used by tests to assert what InsertEvent wrote.
func (s *EventStore) FindBySignature(ctx context.Context, signature string) (*storage.EventModel, error) {
	const query = `
	SELECT signature, program_id, event_name, discriminator, data, slot, block_time, created_at
	FROM events WHERE signature = ?
	`
	row := s.db.QueryRowContext(ctx, query, signature)

	var ev storage.EventModel
	var dataJSON string
	var createdAt string
	if err := row.Scan(&ev.Signature, &ev.ProgramID, &ev.EventName, &ev.Discriminator, &dataJSON, &ev.Slot, &ev.BlockTime, &createdAt); err != nil {
		return nil, fmt.Errorf("find by signature: %w", err)
	}
	if err := json.Unmarshal([]byte(dataJSON), &ev.Data); err != nil {
		return nil, fmt.Errorf("unmarshal event data: %w", err)
	}
	t, err := parseTimestamp(createdAt)
	if err != nil {
		return nil, err
	}
	ev.CreatedAt = t
	return &ev, nil
}

// Close closes the underlying database handle.
func (s *EventStore) Close() error {
	return s.db.Close()
}

// Ping checks connectivity.
func (s *EventStore) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}
