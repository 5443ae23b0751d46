package mongo

import (
	"context"

	"github.com/lugondev/soltrace/internal/storage"
)

// init registers this backend's factory under the mongodb scheme: a
// blank import of this package is what makes "mongodb://..."
// connection URLs resolvable by storage.Open.
func init() {
	storage.RegisterFactory("mongodb", func(ctx context.Context, url string) (storage.Store, error) {
		return Open(ctx, url)
	})
}
