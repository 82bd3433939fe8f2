package mpk

import (
	"errors"
	"fmt"
	"io"

	"github.com/meigma/vnarc/internal/arctype"
	"github.com/meigma/vnarc/internal/deflate"
	"github.com/meigma/vnarc/internal/sizing"
	"github.com/meigma/vnarc/internal/stream"
)

// window returns a reader over the stored bytes of e.
func window(r io.ReadSeeker, e *arctype.Entry) (*stream.SubReader, error) {
	off, err := sizing.ToInt64(e.DataOffset, arctype.ErrSizeOverflow)
	if err != nil {
		return nil, err
	}
	n, err := sizing.ToInt64(e.CompressedSize, arctype.ErrSizeOverflow)
	if err != nil {
		return nil, err
	}
	return stream.NewSubReader(r, off, n), nil
}

// Open returns a reader over the extracted payload of e. Deflate entries skip
// the zlib header and inflate the remainder with a decoder from pool.
// The caller must call the returned release function when done.
func Open(r io.ReadSeeker, e *arctype.Entry, pool *deflate.Pool) (io.Reader, func(), error) {
	sub, err := window(r, e)
	if err != nil {
		return nil, nil, err
	}

	switch e.Compression {
	case arctype.CompressionNone:
		return sub, func() {}, nil
	case arctype.CompressionDeflate:
		if e.CompressedSize < deflate.HeaderSize {
			return nil, nil, fmt.Errorf("read %s: %w: %d byte zlib stream", e.Name, arctype.ErrDecompression, e.CompressedSize)
		}
		if _, err := io.CopyN(io.Discard, sub, deflate.HeaderSize); err != nil {
			return nil, nil, fmt.Errorf("read %s: zlib header: %w", e.Name, err)
		}
		dec, release, err := pool.Get(sub)
		if err != nil {
			return nil, nil, fmt.Errorf("read %s: %w", e.Name, err)
		}
		return &inflateReader{r: dec}, release, nil
	default:
		return nil, nil, fmt.Errorf("read %s: %w: compression %s", e.Name, arctype.ErrNotSupported, e.Compression)
	}
}

// inflateReader reports corrupt deflate data as ErrDecompression.
type inflateReader struct {
	r io.Reader
}

func (d *inflateReader) Read(p []byte) (int, error) {
	n, err := d.r.Read(p)
	if err != nil && !errors.Is(err, io.EOF) {
		return n, fmt.Errorf("%w: %w", arctype.ErrDecompression, err)
	}
	return n, err
}

// ReadAll extracts the full payload of e, which must be exactly
// e.UncompressedSize bytes. maxSize bounds the allocation (0 disables it).
func ReadAll(r io.ReadSeeker, e *arctype.Entry, pool *deflate.Pool, maxSize uint64) ([]byte, error) {
	if maxSize > 0 && e.UncompressedSize > maxSize {
		return nil, fmt.Errorf("read %s: %d bytes exceeds limit %d: %w", e.Name, e.UncompressedSize, maxSize, arctype.ErrSizeOverflow)
	}
	size, err := sizing.ToInt(e.UncompressedSize, arctype.ErrSizeOverflow)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", e.Name, err)
	}

	src, release, err := Open(r, e, pool)
	if err != nil {
		return nil, err
	}
	defer release()

	out := make([]byte, size)
	if _, err := io.ReadFull(src, out); err != nil {
		return nil, mapReadError(e, err)
	}
	var extra [1]byte
	n, err := src.Read(extra[:])
	if n > 0 {
		return nil, fmt.Errorf("read %s: %w: payload longer than %d bytes", e.Name, arctype.ErrDecompression, size)
	}
	if err != nil && !errors.Is(err, io.EOF) {
		return nil, mapReadError(e, err)
	}
	return out, nil
}

func mapReadError(e *arctype.Entry, err error) error {
	if errors.Is(err, io.EOF) || errors.Is(err, io.ErrUnexpectedEOF) {
		return fmt.Errorf("read %s: %w: payload shorter than %d bytes", e.Name, arctype.ErrInvalidData, e.UncompressedSize)
	}
	return fmt.Errorf("read %s: %w", e.Name, err)
}
