// Package idl parses Anchor-style IDL documents and indexes their events
// by wire discriminator.
//
// The JSON schema handled here is deliberately narrower than a full
// Anchor IDL (no instructions, accounts, PDAs, or generics): soltrace
// only ever needs a program's address and its event/type grammar, so
// Document keeps just that subset.
package idl

import (
	"encoding/json"
	"fmt"
)

// Document is the on-disk IDL shape for one program.
type Document struct {
	Address string  `json:"address"`
	Events  []Event `json:"events"`
}

// Event is a single event definition: a name and an ordered field list.
type Event struct {
	Name   string  `json:"name"`
	Fields []Field `json:"fields"`
}

// Field is one named, typed member of an event (or, recursively, of a
// composite type's element).
type Field struct {
	Name string `json:"name"`
	Type Type   `json:"type"`
}

// Type is a node in the recursive Borsh type grammar.
//
// Primitive types are written as a bare JSON string ("u64", "bool", ...)
// and decode into Kind with Option/Vec/Array left nil. Composite types
// are written as a single-entry JSON object and decode into the
// matching pointer field; UnmarshalJSON below normalizes both shapes
// into this one struct.
type Type struct {
	Kind   string // "" when this node is a composite
	Option *Type  // set for {"option": T}
	Vec    *Type  // set for {"vec": T}
	Array  *Type  // element type, set for {"array": [T, N]}
	Len    int    // array length, valid only when Array != nil
}

// Primitive kind names recognized by the grammar.
const (
	KindBool      = "bool"
	KindU8        = "u8"
	KindU16       = "u16"
	KindU32       = "u32"
	KindU64       = "u64"
	KindU128      = "u128"
	KindI8        = "i8"
	KindI16       = "i16"
	KindI32       = "i32"
	KindI64       = "i64"
	KindI128      = "i128"
	KindString    = "string"
	KindBytes     = "bytes"
	KindPublicKey = "publicKey"
	KindPubkey    = "pubkey"
)

// UnmarshalJSON accepts both the bare-string primitive form ("u64")
// and the one-entry composite object form ({"vec": T}, {"option": T},
// {"array": [T, N]}).
func (t *Type) UnmarshalJSON(data []byte) error {
	var kind string
	if err := json.Unmarshal(data, &kind); err == nil {
		*t = Type{Kind: kind}
		return nil
	}

	var composite struct {
		Option *Type   `json:"option"`
		Vec    *Type   `json:"vec"`
		Array  *rawArr `json:"array"`
	}
	if err := json.Unmarshal(data, &composite); err != nil {
		return fmt.Errorf("idl: invalid type node: %w", err)
	}

	switch {
	case composite.Option != nil:
		*t = Type{Option: composite.Option}
	case composite.Vec != nil:
		*t = Type{Vec: composite.Vec}
	case composite.Array != nil:
		*t = Type{Array: composite.Array.Elem, Len: composite.Array.Len}
	default:
		return fmt.Errorf("idl: type node has no recognized shape")
	}
	return nil
}

// rawArr is the two-element tuple encoding of {"array": [T, N]}.
type rawArr struct {
	Elem *Type
	Len  int
}

func (r *rawArr) UnmarshalJSON(data []byte) error {
	var tuple [2]json.RawMessage
	if err := json.Unmarshal(data, &tuple); err != nil {
		return err
	}
	var elem Type
	if err := json.Unmarshal(tuple[0], &elem); err != nil {
		return err
	}
	var n int
	if err := json.Unmarshal(tuple[1], &n); err != nil {
		return err
	}
	r.Elem = &elem
	r.Len = n
	return nil
}

// IsPrimitive reports whether t is a leaf primitive (not option/vec/array).
func (t Type) IsPrimitive() bool {
	return t.Option == nil && t.Vec == nil && t.Array == nil
}

// String renders a Type in IDL-like notation, for error messages.
func (t Type) String() string {
	switch {
	case t.Option != nil:
		return fmt.Sprintf("option<%s>", t.Option.String())
	case t.Vec != nil:
		return fmt.Sprintf("vec<%s>", t.Vec.String())
	case t.Array != nil:
		return fmt.Sprintf("[%s;%d]", t.Array.String(), t.Len)
	default:
		return t.Kind
	}
}
