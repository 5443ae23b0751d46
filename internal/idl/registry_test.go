package idl

import (
	"crypto/sha256"
	"testing"

	sltrerrors "github.com/lugondev/soltrace/internal/errors"
)

func TestComputeDiscriminator_TransferVector(t *testing.T) {
	got := ComputeDiscriminator("Transfer")
	sum := sha256.Sum256([]byte("event:Transfer"))
	if got != Discriminator(sum[:8]) {
		t.Fatalf("discriminator mismatch: got %x want %x", got[:], sum[:8])
	}
}

func TestRegistry_RegisterAndLookup(t *testing.T) {
	doc := Document{
		Address: "Prog1111111111111111111111111111111111111",
		Events: []Event{
			{Name: "Transfer", Fields: []Field{{Name: "amount", Type: Type{Kind: KindU64}}}},
			{Name: "Mint", Fields: []Field{{Name: "amount", Type: Type{Kind: KindU64}}}},
		},
	}

	reg := NewRegistry()
	if err := reg.Register(doc.Address, doc); err != nil {
		t.Fatalf("Register: %v", err)
	}

	disc := ComputeDiscriminator("Transfer")
	ev, ok := reg.Lookup(doc.Address, disc)
	if !ok {
		t.Fatalf("expected lookup to find Transfer event")
	}
	if ev.Name != "Transfer" {
		t.Fatalf("got event %q, want Transfer", ev.Name)
	}

	if _, ok := reg.Lookup(doc.Address, Discriminator{0xff}); ok {
		t.Fatalf("expected lookup miss for unknown discriminator")
	}
	if _, ok := reg.Lookup("unknown-program", disc); ok {
		t.Fatalf("expected lookup miss for unknown program")
	}
}

func TestRegistry_EventsForListsEveryRegisteredEvent(t *testing.T) {
	doc := Document{
		Address: "Prog1111111111111111111111111111111111111",
		Events: []Event{
			{Name: "Transfer"},
			{Name: "Mint"},
		},
	}

	reg := NewRegistry()
	if err := reg.Register(doc.Address, doc); err != nil {
		t.Fatalf("Register: %v", err)
	}

	events := reg.EventsFor(doc.Address)
	if len(events) != 2 {
		t.Fatalf("expected 2 events, got %d", len(events))
	}
	names := map[string]bool{}
	for _, ev := range events {
		names[ev.Name] = true
	}
	if !names["Transfer"] || !names["Mint"] {
		t.Fatalf("expected Transfer and Mint, got %v", names)
	}

	if got := reg.EventsFor("unknown-program"); got != nil {
		t.Fatalf("expected nil for an unknown program, got %v", got)
	}
}

func TestRegistry_DuplicateDiscriminatorRejected(t *testing.T) {
	doc := Document{
		Address: "Prog1111111111111111111111111111111111111",
		Events: []Event{
			{Name: "Transfer"},
			{Name: "Transfer"},
		},
	}

	reg := NewRegistry()
	err := reg.Register(doc.Address, doc)
	if err == nil {
		t.Fatalf("expected duplicate discriminator error")
	}
	if !sltrerrors.Is(err, sltrerrors.ErrDuplicateDiscriminator) {
		t.Fatalf("expected ErrDuplicateDiscriminator, got %v", err)
	}
}

func TestRegistry_ProgramMismatchRejected(t *testing.T) {
	doc := Document{Address: "OtherProgram11111111111111111111111111111"}
	reg := NewRegistry()
	err := reg.Register("Prog1111111111111111111111111111111111111", doc)
	if err == nil {
		t.Fatalf("expected program mismatch error")
	}
	if !sltrerrors.Is(err, sltrerrors.ErrProgramMismatch) {
		t.Fatalf("expected ErrProgramMismatch, got %v", err)
	}
}
