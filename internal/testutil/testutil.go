// Package testutil builds container fixtures for tests.
//
// The builders write the on-disk layouts independently of the codecs so that
// tests exercise the decoders against hand-assembled bytes.
package testutil

import (
	"bytes"
	"errors"
	"io"
	"testing"

	"github.com/klauspost/compress/zlib"
)

// ErrInjected is returned by failing test streams.
var ErrInjected = errors.New("testutil: injected failure")

// ReadOnly hides every method of a stream except Read and Seek.
type ReadOnly struct {
	R io.ReadSeeker
}

// Read implements io.Reader.
func (r ReadOnly) Read(p []byte) (int, error) { return r.R.Read(p) }

// Seek implements io.Seeker.
func (r ReadOnly) Seek(offset int64, whence int) (int64, error) { return r.R.Seek(offset, whence) }

// FailingTruncate is a writable stream whose Truncate always fails with
// ErrInjected.
type FailingTruncate struct {
	io.ReadWriteSeeker
}

// Truncate implements the resize half of a rewritable container.
func (FailingTruncate) Truncate(int64) error { return ErrInjected }

// ClosingStream records whether Close was called on an in-memory stream.
type ClosingStream struct {
	*bytes.Reader
	Closed bool
}

// NewClosingStream returns a ClosingStream over data.
func NewClosingStream(data []byte) *ClosingStream {
	return &ClosingStream{Reader: bytes.NewReader(data)}
}

// Close implements io.Closer.
func (c *ClosingStream) Close() error {
	c.Closed = true
	return nil
}

// Zlib compresses data into a zlib stream.
func Zlib(tb testing.TB, data []byte) []byte {
	tb.Helper()
	var buf bytes.Buffer
	w := zlib.NewWriter(&buf)
	if _, err := w.Write(data); err != nil {
		tb.Fatalf("zlib write: %v", err)
	}
	if err := w.Close(); err != nil {
		tb.Fatalf("zlib close: %v", err)
	}
	return buf.Bytes()
}

// Compressible returns n bytes of repetitive text.
func Compressible(n int) []byte {
	const line = "The quick brown fox jumps over the lazy dog. "
	return bytes.Repeat([]byte(line), n/len(line)+1)[:n]
}
