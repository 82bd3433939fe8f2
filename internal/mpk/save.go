package mpk

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/meigma/vnarc/internal/arctype"
	"github.com/meigma/vnarc/internal/deflate"
	"github.com/meigma/vnarc/internal/sizing"
	"github.com/meigma/vnarc/internal/stream"
)

const copyBufferSize = 32 * 1024

// Container is a stream that can be rewritten in place.
type Container interface {
	io.ReadWriteSeeker
	Truncate(size int64) error
}

// SaveOptions configures Save.
type SaveOptions struct {
	// Encoder re-encodes edited Deflate entries. Required when any edited
	// entry is compressed.
	Encoder *deflate.Encoder

	// TempDir holds the temporary rewrite target. Empty builds the new
	// container in memory.
	TempDir string

	Logger *slog.Logger
}

func (o *SaveOptions) log() *slog.Logger {
	if o.Logger != nil {
		return o.Logger
	}
	return slog.New(slog.DiscardHandler)
}

// Save rewrites the container c. Entries without an edit keep their stored
// bytes verbatim; edits maps an entry index to its new extracted content.
// Payloads are laid out in entry order starting at the first entry's current
// offset, each padded to the next sector boundary except the last.
//
// The new container is assembled in a temporary target and then copied over
// c. A failure before that copy leaves c untouched. On success Save returns
// the updated entry metadata; entries itself is not modified.
func Save(c Container, h *Header, entries []arctype.Entry, edits map[int][]byte, opts SaveOptions) ([]arctype.Entry, error) {
	if uint64(len(entries)) != h.Count {
		return nil, fmt.Errorf("mpk save: %d entries for header count %d", len(entries), h.Count)
	}

	tmp, cleanup, err := newTemp(opts.TempDir)
	if err != nil {
		return nil, fmt.Errorf("mpk save: create temp: %w", err)
	}
	defer cleanup()

	updated, err := rewrite(tmp, c, h, entries, edits, opts.Encoder)
	if err != nil {
		return nil, fmt.Errorf("mpk save: %w", err)
	}

	if err := swap(c, tmp); err != nil {
		return nil, fmt.Errorf("mpk save: replace container: %w", err)
	}
	attrs := []slog.Attr{
		slog.Int("entries", len(entries)),
		slog.Int("edited", len(edits)),
		slog.String("temp", tempKind(opts.TempDir)),
	}
	if opts.Encoder != nil {
		attrs = append(attrs, slog.Int("level", opts.Encoder.Level()))
	}
	opts.log().LogAttrs(context.Background(), slog.LevelDebug, "mpk rewritten", attrs...)
	return updated, nil
}

func tempKind(dir string) string {
	if dir == "" {
		return "memory"
	}
	return dir
}

// newTemp returns the rewrite target and a function that disposes of it.
func newTemp(dir string) (io.ReadWriteSeeker, func(), error) {
	if dir == "" {
		return stream.NewBuffer(nil), func() {}, nil
	}
	f, err := os.CreateTemp(dir, ".vnarc-*")
	if err != nil {
		return nil, nil, err
	}
	return f, func() {
		f.Close()
		os.Remove(f.Name())
	}, nil
}

// rewrite writes the new container into tmp and returns the updated entries.
func rewrite(tmp io.ReadWriteSeeker, src io.ReadSeeker, h *Header, entries []arctype.Entry, edits map[int][]byte, enc *deflate.Encoder) ([]arctype.Entry, error) {
	cw := &stream.CountingWriter{W: tmp}
	if _, err := cw.Write(h.encodeHeader()); err != nil {
		return nil, fmt.Errorf("write header: %w", err)
	}

	dataStart := h.FirstRecord()
	if len(entries) > 0 {
		dataStart = entries[0].DataOffset
		if dataStart < h.RecordsEnd() {
			return nil, fmt.Errorf("%w: mpk: first payload at %#x overlaps records ending at %#x",
				arctype.ErrInvalidData, dataStart, h.RecordsEnd())
		}
	} else {
		// No payload marks the data region; keep the container's length.
		size, err := src.Seek(0, io.SeekEnd)
		if err != nil {
			return nil, fmt.Errorf("size container: %w", err)
		}
		dataStart = max(dataStart, uint64(size)) //nolint:gosec // Seek results are non-negative
	}
	if err := pad(cw, dataStart-cw.N); err != nil {
		return nil, err
	}

	updated := make([]arctype.Entry, len(entries))
	copy(updated, entries)
	buf := make([]byte, copyBufferSize)
	rec := make([]byte, RecordSize)

	for i := range updated {
		e := &updated[i]
		start := cw.N

		content, edited := edits[i]
		if edited {
			if err := writeEdited(cw, e, content, enc, buf); err != nil {
				return nil, err
			}
			e.UncompressedSize = uint64(len(content))
		} else if err := copyStored(cw, src, e, buf); err != nil {
			return nil, err
		}

		e.DataOffset = start
		e.CompressedSize = cw.N - start
		e.Compression = arctype.CompressionNone
		if e.CompressedSize != e.UncompressedSize {
			e.Compression = arctype.CompressionDeflate
		}

		if i < len(updated)-1 {
			if err := pad(cw, sizing.SectorPadding(e.CompressedSize)); err != nil {
				return nil, err
			}
		}

		if err := writeRecord(tmp, h, e, rec); err != nil {
			return nil, err
		}
	}
	return updated, nil
}

func writeEdited(w io.Writer, e *arctype.Entry, content []byte, enc *deflate.Encoder, buf []byte) error {
	if e.Compression != arctype.CompressionDeflate {
		if _, err := io.CopyBuffer(w, bytes.NewReader(content), buf); err != nil {
			return fmt.Errorf("write %s: %w", e.Name, err)
		}
		return nil
	}
	if enc == nil {
		return fmt.Errorf("write %s: no deflate encoder configured", e.Name)
	}
	if _, err := enc.Encode(w, bytes.NewReader(content)); err != nil {
		return fmt.Errorf("write %s: %w", e.Name, err)
	}
	return nil
}

func copyStored(w io.Writer, src io.ReadSeeker, e *arctype.Entry, buf []byte) error {
	sub, err := window(src, e)
	if err != nil {
		return fmt.Errorf("copy %s: %w", e.Name, err)
	}
	n, err := io.CopyBuffer(w, sub, buf)
	if err != nil {
		if errors.Is(err, io.ErrUnexpectedEOF) {
			return fmt.Errorf("copy %s: %w: stored bytes truncated", e.Name, arctype.ErrInvalidData)
		}
		return fmt.Errorf("copy %s: %w", e.Name, err)
	}
	if n != sub.Len() {
		return fmt.Errorf("copy %s: %w: copied %d of %d bytes", e.Name, arctype.ErrInvalidData, n, sub.Len())
	}
	return nil
}

// writeRecord rewrites e's record in place and returns to the end of tmp.
func writeRecord(tmp io.WriteSeeker, h *Header, e *arctype.Entry, rec []byte) error {
	if err := h.encodeRecord(rec, e); err != nil {
		return err
	}
	at, err := sizing.ToInt64(e.HeaderOffset, arctype.ErrSizeOverflow)
	if err != nil {
		return err
	}
	if _, err := tmp.Seek(at, io.SeekStart); err != nil {
		return fmt.Errorf("seek record %d: %w", e.ID, err)
	}
	if _, err := tmp.Write(rec); err != nil {
		return fmt.Errorf("write record %d: %w", e.ID, err)
	}
	if _, err := tmp.Seek(0, io.SeekEnd); err != nil {
		return fmt.Errorf("seek end: %w", err)
	}
	return nil
}

func pad(w io.Writer, n uint64) error {
	z, err := sizing.ToInt64(n, arctype.ErrSizeOverflow)
	if err != nil {
		return err
	}
	if err := stream.Zeros(w, z); err != nil {
		return fmt.Errorf("write padding: %w", err)
	}
	return nil
}

// swap replaces the contents of c with the contents of tmp.
func swap(c Container, tmp io.ReadSeeker) error {
	if _, err := tmp.Seek(0, io.SeekStart); err != nil {
		return err
	}
	if err := c.Truncate(0); err != nil {
		return err
	}
	if _, err := c.Seek(0, io.SeekStart); err != nil {
		return err
	}
	_, err := io.CopyBuffer(c, tmp, make([]byte, copyBufferSize))
	return err
}
