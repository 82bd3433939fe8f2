package stream

import (
	"io"
	"io/fs"
)

// Editable is a random-access, resizable byte stream.
type Editable interface {
	io.ReadWriteSeeker
	Truncate(size int64) error
}

// Wrapped exposes an Editable without handing out ownership of it.
//
// Close marks the wrapper closed and leaves the underlying stream untouched,
// so a cached buffer can be given to callers that close what they open.
type Wrapped struct {
	s      Editable
	closed bool
}

// Wrap returns a Wrapped pass-through over s.
func Wrap(s Editable) *Wrapped {
	return &Wrapped{s: s}
}

// Read implements io.Reader.
func (w *Wrapped) Read(p []byte) (int, error) {
	if w.closed {
		return 0, fs.ErrClosed
	}
	return w.s.Read(p)
}

// Write implements io.Writer.
func (w *Wrapped) Write(p []byte) (int, error) {
	if w.closed {
		return 0, fs.ErrClosed
	}
	return w.s.Write(p)
}

// Seek implements io.Seeker.
func (w *Wrapped) Seek(offset int64, whence int) (int64, error) {
	if w.closed {
		return 0, fs.ErrClosed
	}
	return w.s.Seek(offset, whence)
}

// Truncate resizes the underlying stream.
func (w *Wrapped) Truncate(size int64) error {
	if w.closed {
		return fs.ErrClosed
	}
	return w.s.Truncate(size)
}

// Closed reports whether Close has been called.
func (w *Wrapped) Closed() bool {
	return w.closed
}

// Close detaches the wrapper. The underlying stream stays open.
func (w *Wrapped) Close() error {
	w.closed = true
	return nil
}
