package storage

import (
	"context"
	"fmt"
	"sync"
)

// Manager lazily opens a Store from a connection URL and memoizes it,
// so both the live and backfill binaries can share one open-once,
// initialize-once startup path instead of duplicating Open/Initialize
// calls.
type Manager struct {
	url string

	mu    sync.Mutex
	store Store
}

// NewManager returns a Manager bound to url. Connect is lazy; no I/O
// happens until the first Connect call.
func NewManager(url string) *Manager {
	return &Manager{url: url}
}

// Connect opens the store (if not already open), runs Initialize, and
// memoizes the result for subsequent calls.
func (m *Manager) Connect(ctx context.Context) (Store, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.store != nil {
		return m.store, nil
	}

	store, err := Open(ctx, m.url)
	if err != nil {
		return nil, fmt.Errorf("connect: %w", err)
	}
	if err := store.Initialize(ctx); err != nil {
		store.Close()
		return nil, fmt.Errorf("initialize: %w", err)
	}

	m.store = store
	return store, nil
}

// Close closes the underlying store, if one was ever opened.
func (m *Manager) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.store == nil {
		return nil
	}
	return m.store.Close()
}
