package postgres

import (
	"context"

	"github.com/lugondev/soltrace/internal/storage"
)

// init registers this backend's factory under the postgres and
// postgresql schemes: a blank import of this package is what makes
// "postgres://..." and "postgresql://..." connection URLs resolvable
// by storage.Open.
func init() {
	factory := func(ctx context.Context, url string) (storage.Store, error) {
		return Open(ctx, url)
	}
	storage.RegisterFactory("postgres", factory)
	storage.RegisterFactory("postgresql", factory)
}
