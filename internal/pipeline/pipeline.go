// Package pipeline turns one raw transaction's log lines into
// persisted events: scan, decode, and store, with a single
// responsibility per transaction rather than a multi-stage pipe
// topology.
package pipeline

import (
	"context"
	"encoding/hex"
	"errors"
	"log/slog"
	"time"

	"github.com/lugondev/soltrace/internal/decode"
	sltrerrors "github.com/lugondev/soltrace/internal/errors"
	"github.com/lugondev/soltrace/internal/idl"
	"github.com/lugondev/soltrace/internal/logscan"
	"github.com/lugondev/soltrace/internal/storage"
	"github.com/lugondev/soltrace/pkg/view"
)

// RawEvent is one transaction's worth of data available to the
// pipeline: its signature, the program being attributed, the log
// lines produced during execution, and chain position metadata.
//
// Slot/BlockTime are filled by the caller; the live engine fills them
// with slot=0 and the current wall-clock time when the subscription
// payload omits them.
type RawEvent struct {
	Signature string
	ProgramID string
	LogLines  []string
	Slot      uint64
	BlockTime *int64
}

// DiscriminatorLen is the fixed-width wire prefix every event payload
// carries before its field data.
const DiscriminatorLen = 8

// errUnknownDiscriminator marks a payload whose discriminator matches
// no event in the program's loaded IDL. Unlike a field-decode failure
// against a known event, an unknown discriminator has no field list to
// fall back against, so it is a silent skip: no row, no error.
var errUnknownDiscriminator = errors.New("unknown discriminator")

// fieldDecodeError wraps a failure to decode a known event's fields,
// carrying the event name and discriminator so the fallback path can
// still record which event it was that failed to decode.
type fieldDecodeError struct {
	eventName     string
	discriminator string
	cause         error
}

func (e *fieldDecodeError) Error() string {
	return "decode " + e.eventName + ": " + e.cause.Error()
}

func (e *fieldDecodeError) Unwrap() error { return e.cause }

// Process scans raw's log lines for candidate event payloads, decodes
// each against registry, and inserts the first successfully decoded
// (or undecodable-fallback) event into store. It returns the number of
// rows actually inserted: 0, 1, or more than 1 if the store's
// uniqueness key is ever looser than signature-alone (it is not, by
// default).
//
// A transaction carrying multiple "Program data:" lines only ever
// contributes one persisted row: the store's unique constraint on
// signature makes every insert after the first a no-op, and this
// function does not treat that as an error.
func Process(ctx context.Context, raw RawEvent, registry *idl.Registry, store storage.Store, logger *slog.Logger) (int, error) {
	if logger == nil {
		logger = slog.Default()
	}

	inserted := 0
	for _, line := range raw.LogLines {
		payload, ok := logscan.Scan(line, raw.ProgramID)
		if !ok {
			continue
		}

		event, err := decodeEvent(raw, payload, registry)
		switch {
		case errors.Is(err, errUnknownDiscriminator):
			logger.Debug("unknown discriminator, skipped",
				"signature", raw.Signature, "program_id", raw.ProgramID)
			continue
		case err != nil:
			var fde *fieldDecodeError
			eventName, disc := "", ""
			if errors.As(err, &fde) {
				eventName, disc = fde.eventName, fde.discriminator
			}
			logger.Debug("event decode failed, storing raw fallback",
				"signature", raw.Signature, "program_id", raw.ProgramID, "err", err)
			event = fallbackEvent(raw, payload, eventName, disc)
		}

		event.CreatedAt = time.Now().UTC()
		ok, err = store.InsertEvent(ctx, event)
		if err != nil {
			return inserted, sltrerrors.Store("insert event", err).WithDetails(map[string]any{
				"signature": raw.Signature,
			})
		}
		if ok {
			inserted++
			logger.Info("inserted event", "signature", raw.Signature, "event_name", event.EventName)
		} else {
			logger.Debug("duplicate signature, skipped", "signature", raw.Signature)
		}
	}

	return inserted, nil
}

// decodeEvent extracts the discriminator from payload, looks up its
// event definition, and decodes the remaining bytes against that
// event's field list in order. A discriminator absent from registry
// yields errUnknownDiscriminator; a failure partway through a known
// event's fields yields a *fieldDecodeError carrying enough context
// for the caller to build a fallback row.
func decodeEvent(raw RawEvent, payload []byte, registry *idl.Registry) (*storage.EventModel, error) {
	payloadView, err := view.NewEventView(payload)
	if err != nil {
		return nil, sltrerrors.Decode("payload shorter than discriminator")
	}

	disc := idl.Discriminator(payloadView.Discriminator())
	ev, ok := registry.Lookup(raw.ProgramID, disc)
	if !ok {
		return nil, errUnknownDiscriminator
	}

	cursor := decode.NewCursor(payloadView.Data())
	data := make(map[string]any, len(ev.Fields))
	for _, field := range ev.Fields {
		v, err := decode.Value(field.Type, cursor)
		if err != nil {
			return nil, &fieldDecodeError{eventName: ev.Name, discriminator: disc.String(), cause: err}
		}
		data[field.Name] = v
	}

	return &storage.EventModel{
		Signature:     raw.Signature,
		ProgramID:     raw.ProgramID,
		EventName:     ev.Name,
		Discriminator: disc.String(),
		Data:          data,
		Slot:          raw.Slot,
		BlockTime:     raw.BlockTime,
	}, nil
}

// fallbackEvent is emitted when a known event's fields fail to decode:
// the event name carries over from the discriminator match (empty if
// unavailable) and data holds the hex-encoded raw payload minus
// discriminator.
func fallbackEvent(raw RawEvent, payload []byte, eventName, discriminator string) *storage.EventModel {
	rest := payload
	if discriminator == "" && len(payload) >= DiscriminatorLen {
		discriminator = hex.EncodeToString(payload[:DiscriminatorLen])
	}
	if len(rest) >= DiscriminatorLen {
		rest = rest[DiscriminatorLen:]
	}
	return &storage.EventModel{
		Signature:     raw.Signature,
		ProgramID:     raw.ProgramID,
		EventName:     eventName,
		Discriminator: discriminator,
		Data:          map[string]any{"raw": hex.EncodeToString(rest)},
		Slot:          raw.Slot,
		BlockTime:     raw.BlockTime,
	}
}
