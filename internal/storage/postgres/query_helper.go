package postgres

import (
	"context"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// QueryOne runs query against pool and scans the single resulting row
// with scanFunc.
func QueryOne[T any](
	pool *pgxpool.Pool,
	ctx context.Context,
	query string,
	scanFunc func(row pgx.Row) (*T, error),
	args ...any,
) (*T, error) {
	row := pool.QueryRow(ctx, query, args...)
	return scanFunc(row)
}
