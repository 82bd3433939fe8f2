package keystream

import (
	"bytes"
	"math/big"
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// referenceKeystream derives the keystream with unbounded arithmetic.
func referenceKeystream(n int) []byte {
	state := big.NewInt(Seed)
	mul := big.NewInt(Multiplier)
	mask := big.NewInt(0xff)
	out := make([]byte, n)
	for i := range out {
		out[i] = byte(new(big.Int).And(state, mask).Uint64())
		state.Mul(state, mul)
	}
	return out
}

func TestKeystreamMatchesUnboundedReference(t *testing.T) {
	t.Parallel()

	const n = 512
	zeros := make([]byte, n)
	got := Decode(zeros)
	assert.Equal(t, referenceKeystream(n), got)
	assert.Equal(t, byte(0x5f), got[0])
}

func TestDecodeIsSelfInverse(t *testing.T) {
	t.Parallel()

	rng := rand.New(rand.NewSource(7)) //nolint:gosec // deterministic test data
	for _, size := range []int{0, 1, 16, 1000, 4096} {
		plain := make([]byte, size)
		rng.Read(plain)

		hidden := Decode(plain)
		if size > 0 {
			assert.False(t, bytes.Equal(plain, hidden), "size %d", size)
		}
		assert.Equal(t, plain, Decode(hidden), "size %d", size)
	}
}

func TestXORKeyStreamIsIncremental(t *testing.T) {
	t.Parallel()

	data := []byte("@UTF table bytes split across calls")
	whole := Decode(data)

	s := New()
	out := make([]byte, len(data))
	s.XORKeyStream(out[:5], data[:5])
	s.XORKeyStream(out[5:], data[5:])
	require.Equal(t, whole, out)

	inPlace := append([]byte(nil), data...)
	New().XORKeyStream(inPlace, inPlace)
	assert.Equal(t, whole, inPlace)
}
