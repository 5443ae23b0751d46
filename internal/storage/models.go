package storage

import "time"

// EventModel is the persisted shape of one decoded (or fallback) event.
//
// Signature alone is the natural key; a later composite
// (signature, discriminator) key is a documented extension point, not
// implemented here. Every backend enforces this as a unique
// constraint/index, so a duplicate-signature insert is a no-op rather
// than an error, matching the exactly-once insert contract.
type EventModel struct {
	Signature     string         `json:"signature" bson:"signature" db:"signature"`
	ProgramID     string         `json:"program_id" bson:"program_id" db:"program_id"`
	EventName     string         `json:"event_name" bson:"event_name" db:"event_name"`
	Discriminator string         `json:"discriminator" bson:"discriminator" db:"discriminator"`
	Data          map[string]any `json:"data" bson:"data" db:"data"`
	Slot          uint64         `json:"slot" bson:"slot" db:"slot"`
	BlockTime     *int64         `json:"block_time,omitempty" bson:"block_time,omitempty" db:"block_time"`
	CreatedAt     time.Time      `json:"created_at" bson:"created_at" db:"created_at"`
}
