package binutil

import (
	"bytes"
	"io"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCursor(t *testing.T) {
	t.Parallel()

	data := []byte{
		0x01,
		0x02, 0x03,
		0x04, 0x05, 0x06, 0x07,
		0x00, 0x00, 0x00, 0x00, 0x00, 0x00, 0x01, 0x00,
	}
	c := NewCursor(data, 0)

	u8, err := c.U8()
	require.NoError(t, err)
	assert.Equal(t, uint8(1), u8)

	u16, err := c.U16()
	require.NoError(t, err)
	assert.Equal(t, uint16(0x0203), u16)

	u32, err := c.UintN(4)
	require.NoError(t, err)
	assert.Equal(t, uint64(0x04050607), u32)

	u64, err := c.U64()
	require.NoError(t, err)
	assert.Equal(t, uint64(0x100), u64)
	assert.Equal(t, len(data), c.Offset())

	_, err = c.U8()
	require.ErrorIs(t, err, ErrShort)

	_, err = c.UintN(3)
	require.Error(t, err)
}

func TestCString(t *testing.T) {
	t.Parallel()

	pool := []byte("first\x00second\x00tail")

	s, err := CString(pool, 0)
	require.NoError(t, err)
	assert.Equal(t, "first", s)

	s, err = CString(pool, 6)
	require.NoError(t, err)
	assert.Equal(t, "second", s)

	_, err = CString(pool, 13)
	require.ErrorIs(t, err, ErrShort)

	_, err = CString(pool, len(pool))
	require.ErrorIs(t, err, ErrShort)
}

func TestTrimNUL(t *testing.T) {
	t.Parallel()

	assert.Equal(t, []byte("abc"), TrimNUL([]byte("abc\x00\x00zz")))
	assert.Equal(t, []byte("abc"), TrimNUL([]byte("abc")))
}

func TestPeekDoesNotConsume(t *testing.T) {
	t.Parallel()

	r := bytes.NewReader([]byte("MPK\x00rest"))
	got, err := Peek(r, 4)
	require.NoError(t, err)
	assert.Equal(t, "MPK\x00", string(got))

	all, err := io.ReadAll(r)
	require.NoError(t, err)
	assert.Equal(t, "MPK\x00rest", string(all))

	short := bytes.NewReader([]byte("ab"))
	_, err = Peek(short, 4)
	require.ErrorIs(t, err, io.ErrUnexpectedEOF)
	pos, err := short.Seek(0, io.SeekCurrent)
	require.NoError(t, err)
	assert.Zero(t, pos)
}

func TestHex(t *testing.T) {
	t.Parallel()
	assert.Equal(t, "4d504b00", Hex([]byte("MPK\x00")))
}
