package sqlite

import (
	"context"

	"github.com/lugondev/soltrace/internal/storage"
)

// init registers this backend's factory under the sqlite scheme: a
// blank import of this package is what makes "sqlite://..." and
// "sqlite:..." connection URLs resolvable by storage.Open.
func init() {
	storage.RegisterFactory("sqlite", func(ctx context.Context, url string) (storage.Store, error) {
		return Open(ctx, url)
	})
}
