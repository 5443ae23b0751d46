package sqlite

import (
	"context"
	"testing"

	"github.com/lugondev/soltrace/internal/storage"
)

func openTestStore(t *testing.T) *EventStore {
	t.Helper()
	ctx := context.Background()
	s, err := Open(ctx, "sqlite::memory:")
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	if err := s.Initialize(ctx); err != nil {
		t.Fatalf("Initialize: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

func TestEventStore_InitializeIsIdempotent(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()
	if err := s.Initialize(ctx); err != nil {
		t.Fatalf("second Initialize: %v", err)
	}
}

func TestEventStore_InsertAndFind(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	ev := &storage.EventModel{
		Signature: "sig1",
		ProgramID: "prog1",
		EventName: "Transfer",
		Data:      map[string]any{"amount": "100"},
		Slot:      42,
	}

	inserted, err := s.InsertEvent(ctx, ev)
	if err != nil {
		t.Fatalf("InsertEvent: %v", err)
	}
	if !inserted {
		t.Fatalf("expected first insert to succeed")
	}

	got, err := s.FindBySignature(ctx, "sig1")
	if err != nil {
		t.Fatalf("FindBySignature: %v", err)
	}
	if got.EventName != "Transfer" || got.ProgramID != "prog1" {
		t.Fatalf("unexpected event: %+v", got)
	}
}

func TestEventStore_DuplicateSignatureIsNoOp(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	ev := &storage.EventModel{Signature: "dup", ProgramID: "prog1", EventName: "Transfer", Data: map[string]any{}}
	inserted, err := s.InsertEvent(ctx, ev)
	if err != nil || !inserted {
		t.Fatalf("first insert: inserted=%v err=%v", inserted, err)
	}

	inserted, err = s.InsertEvent(ctx, ev)
	if err != nil {
		t.Fatalf("duplicate insert returned error instead of no-op: %v", err)
	}
	if inserted {
		t.Fatalf("expected duplicate insert to report inserted=false")
	}
}
