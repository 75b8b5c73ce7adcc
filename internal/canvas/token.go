// Package canvas provides the fixed-width bit-vector type identifying a
// claimed artwork, along with the bit arithmetic the infringement and
// challenge protocols are built on.
package canvas

import (
	"encoding/hex"
	"fmt"
	"math/bits"
	"strings"
)

// Width is the number of canvas cells, one bit per cell. Every claim in a
// registry instance shares this width. The reference canvas is 16x16.
const (
	Length = 16
	Width  = Length * Length

	wordCount = Width / 64
)

// Token is a 256-bit unsigned bit vector. Bit i corresponds to canvas cell
// i (row-major, foreground=1, background=0) and lives in word i/64 at
// position i%64, so word 0 holds the least significant bits. Tokens are
// value types and comparable with ==.
type Token [wordCount]uint64

// Zero is the all-background token. It is one of the two sentinel
// identifiers permanently held by the registry.
var Zero Token

// Max returns the all-foreground token, the other sentinel identifier.
func Max() Token {
	var t Token
	for i := range t {
		t[i] = ^uint64(0)
	}
	return t
}

// Bit reports whether bit i is set. Panics if i >= Width.
func (t Token) Bit(i uint) bool {
	if i >= Width {
		panic(fmt.Sprintf("canvas: bit index %d out of range", i))
	}
	return t[i/64]>>(i%64)&1 == 1
}

// SetBit sets bit i. Panics if i >= Width.
func (t *Token) SetBit(i uint) {
	if i >= Width {
		panic(fmt.Sprintf("canvas: bit index %d out of range", i))
	}
	t[i/64] |= 1 << (i % 64)
}

// Xor returns the bitwise exclusive-or of t and o.
func (t Token) Xor(o Token) Token {
	var out Token
	for i := range t {
		out[i] = t[i] ^ o[i]
	}
	return out
}

// IsZero reports whether no bit is set.
func (t Token) IsZero() bool {
	return t == Zero
}

// HammingDistance counts the bit positions where a and b differ, exact over
// the full width.
func HammingDistance(a, b Token) int {
	d := 0
	for i := range a {
		d += bits.OnesCount64(a[i] ^ b[i])
	}
	return d
}

// DiffIndices returns every bit position where a and b differ, ascending.
// Each index fits in a byte because Width is 256; the materialized list
// doubles as a compact infringement proof.
func DiffIndices(a, b Token) []byte {
	diff := a.Xor(b)
	indices := make([]byte, 0, HammingDistance(a, b))
	for i := uint(0); i < Width; i++ {
		if diff.Bit(i) {
			indices = append(indices, byte(i))
		}
	}
	return indices
}

// String formats the token as a zero-padded 0x hex literal, most
// significant word first.
func (t Token) String() string {
	var sb strings.Builder
	sb.WriteString("0x")
	for i := wordCount - 1; i >= 0; i-- {
		fmt.Fprintf(&sb, "%016x", t[i])
	}
	return sb.String()
}

// ParseToken parses a 0x-prefixed hex literal of up to Width/4 digits.
// Shorter literals are zero-extended, matching big-integer notation.
func ParseToken(s string) (Token, error) {
	var t Token
	raw, ok := strings.CutPrefix(s, "0x")
	if !ok {
		raw, ok = strings.CutPrefix(s, "0X")
	}
	if !ok || raw == "" {
		return t, fmt.Errorf("canvas: token %q is not a 0x hex literal", s)
	}
	if len(raw) > Width/4 {
		return t, fmt.Errorf("canvas: token %q exceeds %d bits", s, Width)
	}
	if len(raw)%2 == 1 {
		raw = "0" + raw
	}
	decoded, err := hex.DecodeString(raw)
	if err != nil {
		return t, fmt.Errorf("canvas: parsing token %q: %w", s, err)
	}
	// decoded is big-endian; fold bytes into little-endian words.
	for i, b := range decoded {
		byteIdx := len(decoded) - 1 - i
		t[byteIdx/8] |= uint64(b) << (uint(byteIdx%8) * 8)
	}
	return t, nil
}

// MarshalText implements encoding.TextMarshaler.
func (t Token) MarshalText() ([]byte, error) {
	return []byte(t.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (t *Token) UnmarshalText(text []byte) error {
	parsed, err := ParseToken(string(text))
	if err != nil {
		return err
	}
	*t = parsed
	return nil
}
