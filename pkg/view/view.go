// Package view provides a zero-copy view over an event payload's
// wire format: an 8-byte discriminator followed by its encoded field
// data.
package view

import "errors"

// ErrInvalidBuffer is returned when a buffer is too short to hold a
// discriminator.
var ErrInvalidBuffer = errors.New("invalid buffer size")

// EventView is a thin window over a decoded "Program data:" payload.
type EventView struct {
	buffer        []byte
	discriminator [8]byte
}

// NewEventView wraps buffer, which must be at least 8 bytes long.
func NewEventView(buffer []byte) (*EventView, error) {
	if len(buffer) < 8 {
		return nil, ErrInvalidBuffer
	}

	var disc [8]byte
	copy(disc[:], buffer[:8])

	return &EventView{
		buffer:        buffer,
		discriminator: disc,
	}, nil
}

// Discriminator returns the payload's 8-byte discriminator prefix.
func (v *EventView) Discriminator() [8]byte {
	return v.discriminator
}

// Data returns the payload bytes following the discriminator.
func (v *EventView) Data() []byte {
	if len(v.buffer) <= 8 {
		return nil
	}
	return v.buffer[8:]
}

// FullData returns the entire payload, discriminator included.
func (v *EventView) FullData() []byte {
	return v.buffer
}
