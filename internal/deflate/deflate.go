// Package deflate manages the raw-deflate decoders and zlib encoders used for
// MPK payloads.
//
// Stored payloads are zlib streams. The two-byte zlib header carries nothing
// the format needs, so readers skip it and inflate the raw deflate body; the
// adler32 trailer is never consulted.
package deflate

import (
	"fmt"
	"io"
	"sync"

	"github.com/klauspost/compress/flate"
	"github.com/klauspost/compress/zlib"
)

// HeaderSize is the number of zlib header bytes skipped before inflating.
const HeaderSize = 2

// Pool manages reusable raw-deflate decoders to reduce allocation overhead.
type Pool struct {
	pool sync.Pool
}

// NewPool creates an empty decoder pool.
func NewPool() *Pool {
	return &Pool{}
}

// Get returns a decoder reading raw deflate data from r.
// The caller must call the returned release function when done.
// If an error is returned, no release function needs to be called.
func (p *Pool) Get(r io.Reader) (io.Reader, func(), error) {
	if p == nil {
		dec := flate.NewReader(r)
		return dec, func() { _ = dec.Close() }, nil
	}

	if value := p.pool.Get(); value != nil {
		dec, ok := value.(io.ReadCloser)
		if ok {
			if resetter, ok := dec.(flate.Resetter); ok {
				if err := resetter.Reset(r, nil); err == nil {
					return dec, p.releaser(dec), nil
				}
			}
			_ = dec.Close()
		}
	}

	dec := flate.NewReader(r)
	return dec, p.releaser(dec), nil
}

func (p *Pool) releaser(dec io.ReadCloser) func() {
	return func() {
		_ = dec.Close()
		p.pool.Put(dec)
	}
}

// Encoder re-encodes payloads as zlib streams at a fixed level.
type Encoder struct {
	level int
	w     *zlib.Writer
}

// NewEncoder returns an Encoder using the given flate compression level.
func NewEncoder(level int) (*Encoder, error) {
	w, err := zlib.NewWriterLevel(io.Discard, level)
	if err != nil {
		return nil, fmt.Errorf("create zlib encoder: %w", err)
	}
	return &Encoder{level: level, w: w}, nil
}

// Encode writes src to dst as a complete zlib stream and returns the number of
// bytes read from src.
func (e *Encoder) Encode(dst io.Writer, src io.Reader) (int64, error) {
	e.w.Reset(dst)
	n, err := io.Copy(e.w, src)
	if err != nil {
		return n, fmt.Errorf("zlib write: %w", err)
	}
	if err := e.w.Close(); err != nil {
		return n, fmt.Errorf("zlib close: %w", err)
	}
	return n, nil
}

// Level returns the configured compression level.
func (e *Encoder) Level() int {
	return e.level
}
