package cpk

import (
	"bytes"
	"fmt"
	"io"

	"github.com/meigma/vnarc/internal/arctype"
	"github.com/meigma/vnarc/internal/sizing"
	"github.com/meigma/vnarc/internal/stream"
)

// Open returns a reader over the extracted payload of e. Stored entries are
// streamed from a window of r; CRILAYLA entries are decoded in memory, bounded
// by maxSize (0 disables the bound).
func Open(r io.ReadSeeker, e *arctype.Entry, maxSize uint64) (io.Reader, error) {
	off, err := sizing.ToInt64(e.DataOffset, arctype.ErrSizeOverflow)
	if err != nil {
		return nil, err
	}
	n, err := sizing.ToInt64(e.CompressedSize, arctype.ErrSizeOverflow)
	if err != nil {
		return nil, err
	}
	window := stream.NewSubReader(r, off, n)

	switch e.Compression {
	case arctype.CompressionNone:
		return window, nil
	case arctype.CompressionLayla:
		if maxSize > 0 && e.CompressedSize > maxSize {
			return nil, fmt.Errorf("read %s: %w", e.Name, arctype.ErrSizeOverflow)
		}
		src := make([]byte, n)
		if _, err := io.ReadFull(window, src); err != nil {
			return nil, fmt.Errorf("read %s: %w", e.Name, err)
		}
		out, err := decodeLayla(src, maxSize)
		if err != nil {
			return nil, fmt.Errorf("read %s: %w", e.Name, err)
		}
		if uint64(len(out)) != e.UncompressedSize {
			return nil, fmt.Errorf("read %s: %w: extracted %d bytes, want %d", e.Name, arctype.ErrDecompression, len(out), e.UncompressedSize)
		}
		return bytes.NewReader(out), nil
	default:
		return nil, fmt.Errorf("read %s: unknown compression %s", e.Name, e.Compression)
	}
}
