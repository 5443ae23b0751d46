// Package postgres implements the soltrace event store on top of
// Postgres via jackc/pgx/v5.
package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/lugondev/soltrace/internal/storage"
)

// duplicateSignatureCode is the Postgres SQLSTATE for a unique
// violation (23505); returned when the events table's unique index on
// signature rejects a duplicate insert.
const duplicateSignatureCode = "23505"

// EventStore is the Postgres-backed storage.Store implementation.
type EventStore struct {
	pool *pgxpool.Pool
}

// Open connects to url (a postgres:// or postgresql:// DSN) and
// returns an unconnected-pool-free EventStore; call Initialize before
// first use.
func Open(ctx context.Context, url string) (*EventStore, error) {
	poolConfig, err := pgxpool.ParseConfig(url)
	if err != nil {
		return nil, fmt.Errorf("parse connection string: %w", err)
	}
	poolConfig.HealthCheckPeriod = time.Minute

	pool, err := pgxpool.NewWithConfig(ctx, poolConfig)
	if err != nil {
		return nil, fmt.Errorf("create connection pool: %w", err)
	}
	return &EventStore{pool: pool}, nil
}

// Initialize runs the migrator, which is idempotent: repeated calls
// across process restarts apply nothing once the schema is current.
func (s *EventStore) Initialize(ctx context.Context) error {
	return NewMigrator(s.pool).Up(ctx)
}

// InsertEvent inserts event, returning inserted=false (not an error)
// if its signature already exists.
func (s *EventStore) InsertEvent(ctx context.Context, event *storage.EventModel) (bool, error) {
	const query = `
	INSERT INTO events (signature, program_id, event_name, discriminator, data, slot, block_time, created_at)
	VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
	`
	_, err := s.pool.Exec(ctx, query,
		event.Signature, event.ProgramID, event.EventName, event.Discriminator,
		event.Data, event.Slot, event.BlockTime, event.CreatedAt,
	)
	if err == nil {
		return true, nil
	}
	if isDuplicateSignature(err) {
		return false, nil
	}
	return false, fmt.Errorf("insert event: %w", err)
}

// FindBySignature returns the stored row for signature; a missing row
// surfaces as a wrapped pgx.ErrNoRows.
func (s *EventStore) FindBySignature(ctx context.Context, signature string) (*storage.EventModel, error) {
	const query = `
	SELECT signature, program_id, event_name, discriminator, data, slot, block_time, created_at
	FROM events WHERE signature = $1
	`
	ev, err := QueryOne(s.pool, ctx, query, scanEvent, signature)
	if err != nil {
		return nil, fmt.Errorf("find by signature: %w", err)
	}
	return ev, nil
}

func scanEvent(row pgx.Row) (*storage.EventModel, error) {
	var ev storage.EventModel
	ev.Data = map[string]any{}
	if err := row.Scan(&ev.Signature, &ev.ProgramID, &ev.EventName, &ev.Discriminator, &ev.Data, &ev.Slot, &ev.BlockTime, &ev.CreatedAt); err != nil {
		return nil, err
	}
	return &ev, nil
}

func isDuplicateSignature(err error) bool {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code == duplicateSignatureCode
	}
	return false
}

// Close releases the connection pool.
func (s *EventStore) Close() error {
	s.pool.Close()
	return nil
}

// Ping checks connectivity.
func (s *EventStore) Ping(ctx context.Context) error {
	return s.pool.Ping(ctx)
}
