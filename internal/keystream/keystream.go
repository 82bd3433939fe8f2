// Package keystream implements the multiplicative XOR keystream that hides
// CPK table packets.
//
// The state starts at Seed; every byte is XORed with the low 8 bits of the
// state, after which the state is multiplied by Multiplier. Only the low 8
// bits are ever consulted, so 32-bit wrapping arithmetic produces the same
// sequence as unbounded multiplication.
package keystream

import "crypto/cipher"

const (
	// Seed is the initial keystream state.
	Seed = 0x0000655f

	// Multiplier advances the state after each byte.
	Multiplier = 0x00004115
)

// Stream is a keystream positioned at some byte offset. The zero value is
// not usable; use New.
type Stream struct {
	state uint32
}

var _ cipher.Stream = (*Stream)(nil)

// New returns a Stream positioned at the first byte.
func New() *Stream {
	return &Stream{state: Seed}
}

// XORKeyStream XORs each byte of src with the keystream and writes the result
// to dst. dst and src may overlap entirely.
func (s *Stream) XORKeyStream(dst, src []byte) {
	if len(dst) < len(src) {
		panic("keystream: output smaller than input")
	}
	for i, b := range src {
		dst[i] = b ^ byte(s.state)
		s.state *= Multiplier
	}
}

// Decode returns a copy of data with the keystream removed. Applying Decode
// twice yields the original bytes.
func Decode(data []byte) []byte {
	out := make([]byte, len(data))
	New().XORKeyStream(out, data)
	return out
}
