package stream

import (
	"errors"
	"io"
)

var errNegativeOffset = errors.New("stream: negative offset")

// Buffer is a growable in-memory byte stream supporting read, write, seek,
// and truncate. It records whether it has been written to since creation.
type Buffer struct {
	buf      []byte
	pos      int64
	modified bool
}

// NewBuffer returns a Buffer holding data, positioned at the start.
// The Buffer takes ownership of data.
func NewBuffer(data []byte) *Buffer {
	return &Buffer{buf: data}
}

// Read implements io.Reader.
func (b *Buffer) Read(p []byte) (int, error) {
	if b.pos >= int64(len(b.buf)) {
		return 0, io.EOF
	}
	n := copy(p, b.buf[b.pos:])
	b.pos += int64(n)
	return n, nil
}

// Write implements io.Writer. Writing past the end zero-fills the gap.
func (b *Buffer) Write(p []byte) (int, error) {
	end := b.pos + int64(len(p))
	if end > int64(len(b.buf)) {
		if end > int64(cap(b.buf)) {
			grown := make([]byte, end, max(end, 2*int64(cap(b.buf))))
			copy(grown, b.buf)
			b.buf = grown
		} else {
			old := len(b.buf)
			b.buf = b.buf[:end]
			clear(b.buf[old:])
		}
	}
	n := copy(b.buf[b.pos:], p)
	b.pos += int64(n)
	if n > 0 {
		b.modified = true
	}
	return n, nil
}

// Seek implements io.Seeker.
func (b *Buffer) Seek(offset int64, whence int) (int64, error) {
	var abs int64
	switch whence {
	case io.SeekStart:
		abs = offset
	case io.SeekCurrent:
		abs = b.pos + offset
	case io.SeekEnd:
		abs = int64(len(b.buf)) + offset
	default:
		return 0, errors.New("stream: invalid whence")
	}
	if abs < 0 {
		return 0, errNegativeOffset
	}
	b.pos = abs
	return abs, nil
}

// Truncate changes the size of the buffer. Growing zero-fills.
// The position is left unchanged.
func (b *Buffer) Truncate(size int64) error {
	if size < 0 {
		return errNegativeOffset
	}
	if size != int64(len(b.buf)) {
		b.modified = true
	}
	if size <= int64(len(b.buf)) {
		b.buf = b.buf[:size]
		return nil
	}
	grown := make([]byte, size)
	copy(grown, b.buf)
	b.buf = grown
	return nil
}

// Len returns the current size of the buffer.
func (b *Buffer) Len() int64 {
	return int64(len(b.buf))
}

// Bytes returns the buffer contents. The slice aliases the buffer.
func (b *Buffer) Bytes() []byte {
	return b.buf
}

// Modified reports whether the buffer has been written or resized.
func (b *Buffer) Modified() bool {
	return b.modified
}

// Rewind moves the position back to the start.
func (b *Buffer) Rewind() {
	b.pos = 0
}
