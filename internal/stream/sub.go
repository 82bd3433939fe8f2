package stream

import (
	"errors"
	"io"
)

// SubReader reads a fixed byte window [off, off+n) of a larger stream.
//
// The window is read front to back; there is no seeking. The underlying
// stream is not owned and is never closed by the SubReader.
type SubReader struct {
	src  io.ReadSeeker
	base int64
	size int64
	pos  int64
}

// NewSubReader returns a reader over n bytes of src starting at off.
func NewSubReader(src io.ReadSeeker, off, n int64) *SubReader {
	if n < 0 {
		n = 0
	}
	return &SubReader{src: src, base: off, size: n}
}

// Read implements io.Reader. It returns io.ErrUnexpectedEOF when the
// underlying stream ends before the window does.
func (s *SubReader) Read(p []byte) (int, error) {
	if s.pos >= s.size {
		return 0, io.EOF
	}
	if len(p) == 0 {
		return 0, nil
	}
	if rem := s.size - s.pos; int64(len(p)) > rem {
		p = p[:rem]
	}
	if _, err := s.src.Seek(s.base+s.pos, io.SeekStart); err != nil {
		return 0, err
	}
	n, err := s.src.Read(p)
	s.pos += int64(n)
	if errors.Is(err, io.EOF) {
		if s.pos < s.size {
			if n > 0 {
				return n, nil
			}
			return 0, io.ErrUnexpectedEOF
		}
		err = nil
	}
	return n, err
}

// Len returns the total size of the window.
func (s *SubReader) Len() int64 {
	return s.size
}
