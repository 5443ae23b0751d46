package storage

import "context"

// EventRepository is the event-insert capability every backend
// implements. InsertEvent returns inserted=false, err=nil when the
// event's signature already exists; a duplicate is success, not an
// error, matching the exactly-once semantics the pipeline depends on.
type EventRepository interface {
	InsertEvent(ctx context.Context, event *EventModel) (inserted bool, err error)
	FindBySignature(ctx context.Context, signature string) (*EventModel, error)
}

// Store is the capability set a backend exposes once opened. Query-
// by-slot-range and latest-slot-for-program are left out: no
// ingestion operation (live or backfill) ever calls them, so they are
// not part of this interface; see DESIGN.md for the full rationale.
type Store interface {
	EventRepository
	Initialize(ctx context.Context) error
	Close() error
	Ping(ctx context.Context) error
}
