package decode

import (
	"encoding/binary"
	"testing"

	"github.com/gagliardetto/solana-go"

	"github.com/lugondev/soltrace/internal/idl"
)

func u32le(n uint32) []byte {
	b := make([]byte, 4)
	binary.LittleEndian.PutUint32(b, n)
	return b
}

func TestDecode_TransferEvent(t *testing.T) {
	from := solana.NewWallet().PublicKey()
	to := solana.NewWallet().PublicKey()

	buf := append([]byte{}, from[:]...)
	buf = append(buf, to[:]...)
	buf = append(buf, 0x64, 0, 0, 0, 0, 0, 0, 0)

	fields := []idl.Field{
		{Name: "from", Type: idl.Type{Kind: idl.KindPublicKey}},
		{Name: "to", Type: idl.Type{Kind: idl.KindPublicKey}},
		{Name: "amount", Type: idl.Type{Kind: idl.KindU64}},
	}

	c := NewCursor(buf)
	out := map[string]any{}
	for _, f := range fields {
		v, err := Value(f.Type, c)
		if err != nil {
			t.Fatalf("decode %s: %v", f.Name, err)
		}
		out[f.Name] = v
	}

	if out["from"] != from.String() {
		t.Fatalf("from mismatch: got %v want %v", out["from"], from.String())
	}
	if out["to"] != to.String() {
		t.Fatalf("to mismatch: got %v want %v", out["to"], to.String())
	}
	if out["amount"] != "100" {
		t.Fatalf("amount mismatch: got %v want 100", out["amount"])
	}
	if c.Remaining() != 0 {
		t.Fatalf("expected cursor fully consumed, %d bytes left", c.Remaining())
	}
}

func TestDecode_BoolRoundtrip(t *testing.T) {
	for _, tc := range []struct {
		b    byte
		want bool
	}{{0, false}, {1, true}} {
		c := NewCursor([]byte{tc.b})
		v, err := Value(idl.Type{Kind: idl.KindBool}, c)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if v != tc.want {
			t.Fatalf("bool(%d): got %v want %v", tc.b, v, tc.want)
		}
	}
}

func TestDecode_InvalidBool(t *testing.T) {
	c := NewCursor([]byte{2})
	_, err := Value(idl.Type{Kind: idl.KindBool}, c)
	assertKind(t, err, KindInvalidBool)
}

func TestDecode_InvalidOptionTag(t *testing.T) {
	c := NewCursor([]byte{2})
	_, err := Value(idl.Type{Option: &idl.Type{Kind: idl.KindU8}}, c)
	assertKind(t, err, KindInvalidOption)
}

func TestDecode_OptionBothTags(t *testing.T) {
	c := NewCursor([]byte{0})
	v, err := Value(idl.Type{Option: &idl.Type{Kind: idl.KindU8}}, c)
	if err != nil || v != nil {
		t.Fatalf("tag 0: got %v, %v", v, err)
	}

	c = NewCursor([]byte{1, 42})
	v, err = Value(idl.Type{Option: &idl.Type{Kind: idl.KindU8}}, c)
	if err != nil {
		t.Fatalf("tag 1: %v", err)
	}
	if v != uint64(42) {
		t.Fatalf("tag 1 value: got %v want 42", v)
	}
}

func TestDecode_InvalidUtf8(t *testing.T) {
	buf := append(u32le(2), 0xff, 0xfe)
	c := NewCursor(buf)
	_, err := Value(idl.Type{Kind: idl.KindString}, c)
	assertKind(t, err, KindInvalidUtf8)
}

func TestDecode_UnexpectedEofAtEveryBoundary(t *testing.T) {
	from := solana.NewWallet().PublicKey()
	full := append([]byte{}, from[:]...)
	full = append(full, 0x01, 0x00, 0x00, 0x00, 0x00, 0x00, 0x00, 0x00)

	for n := 0; n < len(full); n++ {
		truncated := full[:n]
		c := NewCursor(truncated)
		_, err := Value(idl.Type{Kind: idl.KindPublicKey}, c)
		if n < 32 {
			assertKind(t, err, KindUnexpectedEof)
			continue
		}
		// public key consumed fine; now the u64 amount should fail.
		_, err = Value(idl.Type{Kind: idl.KindU64}, c)
		assertKind(t, err, KindUnexpectedEof)
	}
}

func TestDecode_OversizedLengthRejectedBeforeAllocation(t *testing.T) {
	buf := u32le(MaxLength + 1)
	c := NewCursor(buf)
	_, err := Value(idl.Type{Vec: &idl.Type{Kind: idl.KindU8}}, c)
	assertKind(t, err, KindOversizedLength)
}

func TestDecode_VecLengths(t *testing.T) {
	for _, n := range []int{0, 1, 5} {
		buf := u32le(uint32(n))
		for i := 0; i < n; i++ {
			buf = append(buf, byte(i))
		}
		c := NewCursor(buf)
		v, err := Value(idl.Type{Vec: &idl.Type{Kind: idl.KindU8}}, c)
		if err != nil {
			t.Fatalf("vec len %d: %v", n, err)
		}
		list, ok := v.([]any)
		if !ok || len(list) != n {
			t.Fatalf("vec len %d: got %v", n, v)
		}
	}
}

func TestDecode_FixedArray(t *testing.T) {
	c := NewCursor([]byte{1, 2, 3})
	v, err := Value(idl.Type{Array: &idl.Type{Kind: idl.KindU8}, Len: 3}, c)
	if err != nil {
		t.Fatalf("array: %v", err)
	}
	list := v.([]any)
	if len(list) != 3 || list[0] != uint64(1) || list[2] != uint64(3) {
		t.Fatalf("array mismatch: %v", v)
	}

	c = NewCursor(nil)
	v, err = Value(idl.Type{Array: &idl.Type{Kind: idl.KindU8}, Len: 0}, c)
	if err != nil {
		t.Fatalf("empty array: %v", err)
	}
	if list, ok := v.([]any); !ok || len(list) != 0 {
		t.Fatalf("empty array mismatch: %v", v)
	}
}

func TestDecode_NestedVecOfVecAndOptionPublicKey(t *testing.T) {
	inner := idl.Type{Vec: &idl.Type{Kind: idl.KindU8}}
	outerBuf := u32le(2)
	outerBuf = append(outerBuf, u32le(1)...)
	outerBuf = append(outerBuf, 9)
	outerBuf = append(outerBuf, u32le(0)...)

	c := NewCursor(outerBuf)
	v, err := Value(idl.Type{Vec: &inner}, c)
	if err != nil {
		t.Fatalf("nested vec: %v", err)
	}
	outer := v.([]any)
	if len(outer) != 2 {
		t.Fatalf("expected 2 inner vecs, got %d", len(outer))
	}
	first := outer[0].([]any)
	if len(first) != 1 || first[0] != uint64(9) {
		t.Fatalf("first inner vec mismatch: %v", first)
	}
	second := outer[1].([]any)
	if len(second) != 0 {
		t.Fatalf("second inner vec mismatch: %v", second)
	}

	pk := solana.NewWallet().PublicKey()
	optBuf := append([]byte{1}, pk[:]...)
	c = NewCursor(optBuf)
	ov, err := Value(idl.Type{Option: &idl.Type{Kind: idl.KindPublicKey}}, c)
	if err != nil {
		t.Fatalf("option<publicKey>: %v", err)
	}
	if ov != pk.String() {
		t.Fatalf("option<publicKey> mismatch: got %v want %v", ov, pk.String())
	}
}

func TestDecode_WideIntegersAsDecimalStrings(t *testing.T) {
	// u64 max.
	c := NewCursor([]byte{0xff, 0xff, 0xff, 0xff, 0xff, 0xff, 0xff, 0xff})
	v, err := Value(idl.Type{Kind: idl.KindU64}, c)
	if err != nil {
		t.Fatalf("u64: %v", err)
	}
	if v != "18446744073709551615" {
		t.Fatalf("u64 max: got %v", v)
	}

	// i64 = -1.
	c = NewCursor([]byte{0xff, 0xff, 0xff, 0xff, 0xff, 0xff, 0xff, 0xff})
	v, err = Value(idl.Type{Kind: idl.KindI64}, c)
	if err != nil {
		t.Fatalf("i64: %v", err)
	}
	if v != "-1" {
		t.Fatalf("i64 -1: got %v", v)
	}

	// u128 max.
	buf := make([]byte, 16)
	for i := range buf {
		buf[i] = 0xff
	}
	c = NewCursor(buf)
	v, err = Value(idl.Type{Kind: idl.KindU128}, c)
	if err != nil {
		t.Fatalf("u128: %v", err)
	}
	if v != "340282366920938463463374607431768211455" {
		t.Fatalf("u128 max: got %v", v)
	}

	// i128 = -1 (all bits set, two's complement).
	c = NewCursor(buf)
	v, err = Value(idl.Type{Kind: idl.KindI128}, c)
	if err != nil {
		t.Fatalf("i128: %v", err)
	}
	if v != "-1" {
		t.Fatalf("i128 -1: got %v", v)
	}

	// i128 min: only the sign bit of the most significant byte set.
	buf = make([]byte, 16)
	buf[15] = 0x80
	c = NewCursor(buf)
	v, err = Value(idl.Type{Kind: idl.KindI128}, c)
	if err != nil {
		t.Fatalf("i128 min: %v", err)
	}
	if v != "-170141183460469231731687303715884105728" {
		t.Fatalf("i128 min: got %v", v)
	}

	// Small widths stay native numbers.
	c = NewCursor([]byte{0x2a, 0x00, 0x00, 0x00})
	v, err = Value(idl.Type{Kind: idl.KindU32}, c)
	if err != nil {
		t.Fatalf("u32: %v", err)
	}
	if v != uint64(42) {
		t.Fatalf("u32: got %v want native 42", v)
	}
}

func TestDecode_BytesAsLowercaseHex(t *testing.T) {
	buf := append(u32le(3), 0xde, 0xad, 0xbe)
	c := NewCursor(buf)
	v, err := Value(idl.Type{Kind: idl.KindBytes}, c)
	if err != nil {
		t.Fatalf("bytes: %v", err)
	}
	if v != "deadbe" {
		t.Fatalf("bytes: got %v want deadbe", v)
	}
}

func TestDecode_UnknownType(t *testing.T) {
	c := NewCursor([]byte{0})
	_, err := Value(idl.Type{Kind: "not-a-real-type"}, c)
	assertKind(t, err, KindUnknownType)
}

func assertKind(t *testing.T, err error, want Kind) {
	t.Helper()
	de, ok := err.(*Error)
	if !ok {
		t.Fatalf("expected *decode.Error, got %T (%v)", err, err)
	}
	if de.Kind != want {
		t.Fatalf("got kind %s, want %s", de.Kind, want)
	}
}
