// Package binutil holds the small binary decoding helpers used by the codecs:
// a big-endian cursor over a byte slice, NUL-terminated strings, and
// non-consuming peeks.
package binutil

import (
	"bytes"
	"encoding/binary"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
)

// ErrShort is returned when a read runs past the end of the data.
var ErrShort = errors.New("binutil: unexpected end of data")

// Cursor reads big-endian values from a byte slice.
type Cursor struct {
	data []byte
	off  int
}

// NewCursor returns a Cursor over data positioned at off.
func NewCursor(data []byte, off int) *Cursor {
	return &Cursor{data: data, off: off}
}

// Offset returns the current read position.
func (c *Cursor) Offset() int {
	return c.off
}

// Seek moves the cursor to an absolute offset.
func (c *Cursor) Seek(off int) {
	c.off = off
}

func (c *Cursor) take(n int) ([]byte, error) {
	if n < 0 || c.off < 0 || c.off > len(c.data)-n {
		return nil, fmt.Errorf("%w: need %d bytes at offset %d of %d", ErrShort, n, c.off, len(c.data))
	}
	b := c.data[c.off : c.off+n]
	c.off += n
	return b, nil
}

// Bytes returns the next n bytes. The slice aliases the cursor data.
func (c *Cursor) Bytes(n int) ([]byte, error) {
	return c.take(n)
}

// U8 reads one byte.
func (c *Cursor) U8() (uint8, error) {
	b, err := c.take(1)
	if err != nil {
		return 0, err
	}
	return b[0], nil
}

// U16 reads a big-endian uint16.
func (c *Cursor) U16() (uint16, error) {
	b, err := c.take(2)
	if err != nil {
		return 0, err
	}
	return binary.BigEndian.Uint16(b), nil
}

// U32 reads a big-endian uint32.
func (c *Cursor) U32() (uint32, error) {
	b, err := c.take(4)
	if err != nil {
		return 0, err
	}
	return binary.BigEndian.Uint32(b), nil
}

// U64 reads a big-endian uint64.
func (c *Cursor) U64() (uint64, error) {
	b, err := c.take(8)
	if err != nil {
		return 0, err
	}
	return binary.BigEndian.Uint64(b), nil
}

// UintN reads a big-endian unsigned integer of width 1, 2, 4, or 8 bytes.
func (c *Cursor) UintN(width int) (uint64, error) {
	switch width {
	case 1:
		v, err := c.U8()
		return uint64(v), err
	case 2:
		v, err := c.U16()
		return uint64(v), err
	case 4:
		v, err := c.U32()
		return uint64(v), err
	case 8:
		return c.U64()
	default:
		return 0, fmt.Errorf("binutil: unsupported integer width %d", width)
	}
}

// CString returns the NUL-terminated string starting at off in data.
// A missing terminator is an error.
func CString(data []byte, off int) (string, error) {
	if off < 0 || off >= len(data) {
		return "", fmt.Errorf("%w: string offset %d of %d", ErrShort, off, len(data))
	}
	end := bytes.IndexByte(data[off:], 0)
	if end < 0 {
		return "", fmt.Errorf("%w: unterminated string at offset %d", ErrShort, off)
	}
	return string(data[off : off+end]), nil
}

// TrimNUL returns b up to, not including, its first NUL byte.
func TrimNUL(b []byte) []byte {
	if i := bytes.IndexByte(b, 0); i >= 0 {
		return b[:i]
	}
	return b
}

// Peek reads n bytes from the current position of r and seeks back, leaving
// the stream where it was.
func Peek(r io.ReadSeeker, n int) ([]byte, error) {
	pos, err := r.Seek(0, io.SeekCurrent)
	if err != nil {
		return nil, err
	}
	buf := make([]byte, n)
	read, readErr := io.ReadFull(r, buf)
	if _, err := r.Seek(pos, io.SeekStart); err != nil {
		return nil, err
	}
	if readErr != nil {
		return buf[:read], readErr
	}
	return buf, nil
}

// Hex formats b as lowercase hex for error messages.
func Hex(b []byte) string {
	return hex.EncodeToString(b)
}
