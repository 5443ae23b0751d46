package storage

import (
	"context"
	"fmt"

	sltrerrors "github.com/lugondev/soltrace/internal/errors"
)

// Factory opens a Store from a connection URL whose scheme the
// factory was registered for.
type Factory func(ctx context.Context, url string) (Store, error)

var factories = map[string]Factory{}

// RegisterFactory binds a Factory to a URL scheme. Backend packages
// call this from an init() so importing them for side effect (as
// cmd/soltrace-live and cmd/soltrace-backfill do with a blank import)
// is sufficient to make that backend available to Open.
func RegisterFactory(scheme string, factory Factory) {
	factories[scheme] = factory
}

// Open dispatches to the factory registered for url's scheme. It
// returns ErrUnsupportedScheme if no backend registered that scheme,
// which happens when the caller forgot to blank-import the backend
// package.
func Open(ctx context.Context, url string) (Store, error) {
	scheme, err := schemeOf(url)
	if err != nil {
		return nil, err
	}
	factory, ok := factories[scheme]
	if !ok {
		return nil, sltrerrors.ErrUnsupportedScheme.WithDetails(map[string]any{"scheme": scheme, "url": url})
	}
	store, err := factory(ctx, url)
	if err != nil {
		return nil, sltrerrors.Store(fmt.Sprintf("open %s", scheme), err)
	}
	if err := store.Ping(ctx); err != nil {
		return nil, sltrerrors.Store(fmt.Sprintf("ping %s", scheme), err)
	}
	return store, nil
}

func schemeOf(url string) (string, error) {
	for i := 0; i < len(url); i++ {
		if url[i] == ':' {
			return url[:i], nil
		}
	}
	return "", sltrerrors.ErrUnsupportedScheme.WithDetails(map[string]any{"url": url})
}
