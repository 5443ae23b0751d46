// Package decode interprets the idl.Type grammar against a
// length-prefixed, little-endian binary cursor, producing structured
// values suitable for JSON encoding.
//
// Decoding is total on well-formed input: every byte consumed has a
// defined meaning, and a malformed encoding always fails loudly with
// one of the typed errors below rather than truncating silently.
package decode

import (
	"encoding/binary"
	"encoding/hex"
	"fmt"
	"math/big"
	"unicode/utf8"

	"github.com/gagliardetto/solana-go"

	"github.com/lugondev/soltrace/internal/idl"
)

// MaxLength bounds any length-prefixed element (string, bytes, vec) to
// guard against a corrupt or adversarial length field forcing a huge
// allocation before the cursor even has that many bytes.
const MaxLength = 16 * 1024 * 1024

// Kind enumerates the ways a Decode call can fail.
type Kind string

const (
	KindUnexpectedEof   Kind = "UnexpectedEof"
	KindUnknownType     Kind = "UnknownType"
	KindOversizedLength Kind = "OversizedLength"
	KindInvalidBool     Kind = "InvalidBool"
	KindInvalidUtf8     Kind = "InvalidUtf8"
	KindInvalidOption   Kind = "InvalidOption"
)

// Error reports a decode failure at a specific cursor offset.
type Error struct {
	Kind   Kind
	Offset int
	Detail string
}

func (e *Error) Error() string {
	if e.Detail != "" {
		return fmt.Sprintf("decode: %s at offset %d: %s", e.Kind, e.Offset, e.Detail)
	}
	return fmt.Sprintf("decode: %s at offset %d", e.Kind, e.Offset)
}

func fail(kind Kind, offset int, detail string) error {
	return &Error{Kind: kind, Offset: offset, Detail: detail}
}

// Cursor is a read-only view over a byte slice that tracks its own
// position. Its position is unspecified after any method returns an
// error; callers must not resume reading from a cursor that failed.
type Cursor struct {
	buf []byte
	pos int
}

// NewCursor wraps buf for decoding, starting at offset 0.
func NewCursor(buf []byte) *Cursor {
	return &Cursor{buf: buf}
}

// Remaining returns how many bytes are left to consume.
func (c *Cursor) Remaining() int { return len(c.buf) - c.pos }

func (c *Cursor) take(n int) ([]byte, error) {
	if n < 0 || n > c.Remaining() {
		return nil, fail(KindUnexpectedEof, c.pos, fmt.Sprintf("need %d bytes, have %d", n, c.Remaining()))
	}
	b := c.buf[c.pos : c.pos+n]
	c.pos += n
	return b, nil
}

func (c *Cursor) readU32() (uint32, error) {
	b, err := c.take(4)
	if err != nil {
		return 0, err
	}
	return binary.LittleEndian.Uint32(b), nil
}

// Value decodes one instance of t from c, following t's recursive
// type grammar.
func Value(t idl.Type, c *Cursor) (any, error) {
	switch {
	case t.Option != nil:
		return decodeOption(*t.Option, c)
	case t.Vec != nil:
		return decodeVec(*t.Vec, c)
	case t.Array != nil:
		return decodeArray(*t.Array, t.Len, c)
	default:
		return decodePrimitive(t.Kind, c)
	}
}

func decodeOption(inner idl.Type, c *Cursor) (any, error) {
	tag, err := c.take(1)
	if err != nil {
		return nil, err
	}
	switch tag[0] {
	case 0:
		return nil, nil
	case 1:
		return Value(inner, c)
	default:
		return nil, fail(KindInvalidOption, c.pos-1, fmt.Sprintf("tag=%d", tag[0]))
	}
}

func decodeVec(elem idl.Type, c *Cursor) (any, error) {
	start := c.pos
	n, err := c.readU32()
	if err != nil {
		return nil, err
	}
	if n > MaxLength {
		return nil, fail(KindOversizedLength, start, fmt.Sprintf("length=%d", n))
	}
	out := make([]any, 0, n)
	for i := uint32(0); i < n; i++ {
		v, err := Value(elem, c)
		if err != nil {
			return nil, err
		}
		out = append(out, v)
	}
	return out, nil
}

func decodeArray(elem idl.Type, n int, c *Cursor) (any, error) {
	out := make([]any, 0, n)
	for i := 0; i < n; i++ {
		v, err := Value(elem, c)
		if err != nil {
			return nil, err
		}
		out = append(out, v)
	}
	return out, nil
}

func decodePrimitive(kind string, c *Cursor) (any, error) {
	switch kind {
	case idl.KindBool:
		b, err := c.take(1)
		if err != nil {
			return nil, err
		}
		switch b[0] {
		case 0:
			return false, nil
		case 1:
			return true, nil
		default:
			return nil, fail(KindInvalidBool, c.pos-1, fmt.Sprintf("value=%d", b[0]))
		}

	case idl.KindU8:
		b, err := c.take(1)
		if err != nil {
			return nil, err
		}
		return uint64(b[0]), nil
	case idl.KindU16:
		b, err := c.take(2)
		if err != nil {
			return nil, err
		}
		return uint64(binary.LittleEndian.Uint16(b)), nil
	case idl.KindU32:
		b, err := c.take(4)
		if err != nil {
			return nil, err
		}
		return uint64(binary.LittleEndian.Uint32(b)), nil
	case idl.KindU64:
		b, err := c.take(8)
		if err != nil {
			return nil, err
		}
		return decimalString(binary.LittleEndian.Uint64(b)), nil
	case idl.KindU128:
		b, err := c.take(16)
		if err != nil {
			return nil, err
		}
		return decimalStringU128(b), nil

	case idl.KindI8:
		b, err := c.take(1)
		if err != nil {
			return nil, err
		}
		return int64(int8(b[0])), nil
	case idl.KindI16:
		b, err := c.take(2)
		if err != nil {
			return nil, err
		}
		return int64(int16(binary.LittleEndian.Uint16(b))), nil
	case idl.KindI32:
		b, err := c.take(4)
		if err != nil {
			return nil, err
		}
		return int64(int32(binary.LittleEndian.Uint32(b))), nil
	case idl.KindI64:
		b, err := c.take(8)
		if err != nil {
			return nil, err
		}
		return fmt.Sprintf("%d", int64(binary.LittleEndian.Uint64(b))), nil
	case idl.KindI128:
		b, err := c.take(16)
		if err != nil {
			return nil, err
		}
		return decimalStringI128(b), nil

	case idl.KindString:
		start := c.pos
		n, err := c.readU32()
		if err != nil {
			return nil, err
		}
		if n > MaxLength {
			return nil, fail(KindOversizedLength, start, fmt.Sprintf("length=%d", n))
		}
		b, err := c.take(int(n))
		if err != nil {
			return nil, err
		}
		if !utf8.Valid(b) {
			return nil, fail(KindInvalidUtf8, start, "")
		}
		return string(b), nil

	case idl.KindBytes:
		start := c.pos
		n, err := c.readU32()
		if err != nil {
			return nil, err
		}
		if n > MaxLength {
			return nil, fail(KindOversizedLength, start, fmt.Sprintf("length=%d", n))
		}
		b, err := c.take(int(n))
		if err != nil {
			return nil, err
		}
		return hex.EncodeToString(b), nil

	case idl.KindPublicKey, idl.KindPubkey:
		b, err := c.take(32)
		if err != nil {
			return nil, err
		}
		var pk solana.PublicKey
		copy(pk[:], b)
		return pk.String(), nil

	default:
		return nil, fail(KindUnknownType, c.pos, kind)
	}
}

func decimalString(v uint64) string {
	return fmt.Sprintf("%d", v)
}

func decimalStringU128(b []byte) string {
	le := make([]byte, len(b))
	for i, v := range b {
		le[len(b)-1-i] = v
	}
	n := new(big.Int).SetBytes(le)
	return n.String()
}

func decimalStringI128(b []byte) string {
	le := make([]byte, len(b))
	for i, v := range b {
		le[len(b)-1-i] = v
	}
	n := new(big.Int).SetBytes(le)
	if len(b) > 0 && b[len(b)-1]&0x80 != 0 {
		// Two's complement: subtract 2^128.
		mod := new(big.Int).Lsh(big.NewInt(1), uint(len(b)*8))
		n.Sub(n, mod)
	}
	return n.String()
}
