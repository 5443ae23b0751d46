package idl

import (
	"crypto/sha256"
	"fmt"
	"sync"

	sltrerrors "github.com/lugondev/soltrace/internal/errors"
)

// Discriminator is the 8-byte wire prefix that identifies an event's
// type on the account/log data stream.
type Discriminator [8]byte

// ComputeDiscriminator derives the Anchor event discriminator for name:
// the first 8 bytes of SHA-256("event:" + name).
func ComputeDiscriminator(name string) Discriminator {
	sum := sha256.Sum256([]byte("event:" + name))
	var d Discriminator
	copy(d[:], sum[:8])
	return d
}

// ResolvedEvent pairs an event definition with the program it belongs to,
// as returned by a registry lookup.
type ResolvedEvent struct {
	ProgramID string
	Event     Event
}

// Registry indexes loaded IDL documents by program address and, within
// each program, by event discriminator.
//
// A Registry is safe for concurrent use: Lookup is called from the
// pipeline's hot path while Register/Load happen at startup, but
// nothing here forbids a hot reload in the future.
type Registry struct {
	mu     sync.RWMutex
	events map[string]map[Discriminator]Event // programID -> discriminator -> event
	byProg map[string]Document
}

// NewRegistry returns an empty registry.
func NewRegistry() *Registry {
	return &Registry{
		events: make(map[string]map[Discriminator]Event),
		byProg: make(map[string]Document),
	}
}

// Register indexes every event in doc under programID. It returns
// ErrProgramMismatch if doc.Address is set and disagrees with programID,
// and ErrDuplicateDiscriminator if two events in doc collide on their
// computed discriminator.
func (r *Registry) Register(programID string, doc Document) error {
	if doc.Address != "" && doc.Address != programID {
		return sltrerrors.ErrProgramMismatch.WithDetails(map[string]any{
			"program_id":  programID,
			"idl_address": doc.Address,
		})
	}

	byDisc := make(map[Discriminator]Event, len(doc.Events))
	for _, ev := range doc.Events {
		d := ComputeDiscriminator(ev.Name)
		if existing, ok := byDisc[d]; ok {
			return sltrerrors.ErrDuplicateDiscriminator.WithDetails(map[string]any{
				"program_id":    programID,
				"event":         ev.Name,
				"collides_with": existing.Name,
			})
		}
		byDisc[d] = ev
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	r.byProg[programID] = doc
	r.events[programID] = byDisc
	return nil
}

// Lookup returns the event registered under programID whose discriminator
// matches disc. ok is false if the program is unknown or no event
// matches; the pipeline treats both as "unknown event" and skips the
// payload without inserting a row.
func (r *Registry) Lookup(programID string, disc Discriminator) (Event, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	byDisc, ok := r.events[programID]
	if !ok {
		return Event{}, false
	}
	ev, ok := byDisc[disc]
	return ev, ok
}

// EventsFor returns every event registered under programID, for
// diagnostics and tests.
func (r *Registry) EventsFor(programID string) []Event {
	r.mu.RLock()
	defer r.mu.RUnlock()
	byDisc, ok := r.events[programID]
	if !ok {
		return nil
	}
	out := make([]Event, 0, len(byDisc))
	for _, ev := range byDisc {
		out = append(out, ev)
	}
	return out
}

// Programs returns the set of program IDs currently registered.
func (r *Registry) Programs() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]string, 0, len(r.byProg))
	for id := range r.byProg {
		out = append(out, id)
	}
	return out
}

func (d Discriminator) String() string {
	return fmt.Sprintf("%x", d[:])
}
