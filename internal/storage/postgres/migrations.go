package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
)

// migration is one forward-only schema step. There is no Down path;
// the schema never needs a rollback.
type migration struct {
	Version     int
	Description string
	Up          string
}

var migrations = []migration{
	{
		Version:     1,
		Description: "events table",
		Up: `
		CREATE TABLE IF NOT EXISTS events (
			signature TEXT PRIMARY KEY,
			program_id TEXT NOT NULL,
			event_name TEXT NOT NULL,
			discriminator TEXT NOT NULL,
			data JSONB NOT NULL,
			slot BIGINT NOT NULL,
			block_time BIGINT,
			created_at TIMESTAMPTZ NOT NULL
		);
		CREATE INDEX IF NOT EXISTS idx_events_program_id ON events(program_id);
		CREATE INDEX IF NOT EXISTS idx_events_event_name ON events(event_name);
		CREATE INDEX IF NOT EXISTS idx_events_data ON events USING GIN (data);
		`,
	},
}

// Migrator applies migrations in order, tracking progress in
// schema_migrations so repeated Initialize calls are cheap no-ops.
type Migrator struct {
	pool *pgxpool.Pool
}

func NewMigrator(pool *pgxpool.Pool) *Migrator {
	return &Migrator{pool: pool}
}

func (m *Migrator) createMigrationsTable(ctx context.Context) error {
	const query = `
	CREATE TABLE IF NOT EXISTS schema_migrations (
		version INT PRIMARY KEY,
		description TEXT NOT NULL,
		applied_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
	);
	`
	_, err := m.pool.Exec(ctx, query)
	return err
}

func (m *Migrator) currentVersion(ctx context.Context) (int, error) {
	var version int
	err := m.pool.QueryRow(ctx, "SELECT COALESCE(MAX(version), 0) FROM schema_migrations").Scan(&version)
	return version, err
}

// Up applies every migration newer than the recorded schema version.
func (m *Migrator) Up(ctx context.Context) error {
	if err := m.createMigrationsTable(ctx); err != nil {
		return fmt.Errorf("create migrations table: %w", err)
	}

	current, err := m.currentVersion(ctx)
	if err != nil {
		return fmt.Errorf("read schema version: %w", err)
	}

	tx, err := m.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin: %w", err)
	}
	defer tx.Rollback(ctx)

	for _, mig := range migrations {
		if mig.Version <= current {
			continue
		}
		if _, err := tx.Exec(ctx, mig.Up); err != nil {
			return fmt.Errorf("apply migration %d: %w", mig.Version, err)
		}
		if _, err := tx.Exec(ctx,
			"INSERT INTO schema_migrations (version, description) VALUES ($1, $2)",
			mig.Version, mig.Description,
		); err != nil {
			return fmt.Errorf("record migration %d: %w", mig.Version, err)
		}
	}

	return tx.Commit(ctx)
}
