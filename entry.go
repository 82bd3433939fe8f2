package vnarc

import (
	"fmt"
	"io"
	"io/fs"
	"log/slog"

	"github.com/meigma/vnarc/internal/arctype"
	"github.com/meigma/vnarc/internal/cpk"
	"github.com/meigma/vnarc/internal/mpk"
	"github.com/meigma/vnarc/internal/stream"
	"github.com/meigma/vnarc/internal/utf"
)

// Entry is one file stored in an archive. Entries are owned by their
// Archive and are valid until it is closed.
type Entry struct {
	a     *Archive
	meta  arctype.Entry
	attrs map[string]utf.Value

	// cache holds the extracted payload once it has been buffered in
	// ModeUpdate. It is dropped on save and close.
	cache *stream.Buffer

	// views are the open streams handed out over cache; they are closed
	// together with it.
	views []*stream.Wrapped
}

// EditStream is a seekable, resizable view of an entry's buffered payload.
// Closing it does not release the buffer.
type EditStream interface {
	io.ReadWriteSeeker
	io.Closer
	Truncate(size int64) error
}

// ID returns the entry id.
func (e *Entry) ID() uint32 {
	return e.meta.ID
}

// Name returns the entry name, decoded with the archive's name encoding.
func (e *Entry) Name() string {
	return e.meta.Name
}

// RawName returns the name bytes as stored in the container.
func (e *Entry) RawName() []byte {
	return append([]byte(nil), e.meta.RawName...)
}

// DataOffset returns the byte offset of the stored payload.
func (e *Entry) DataOffset() uint64 {
	e.a.mu.Lock()
	defer e.a.mu.Unlock()
	return e.meta.DataOffset
}

// CompressedSize returns the number of bytes the payload occupies in the container.
func (e *Entry) CompressedSize() uint64 {
	e.a.mu.Lock()
	defer e.a.mu.Unlock()
	return e.meta.CompressedSize
}

// UncompressedSize returns the extracted payload size as recorded in the
// container. Pending edits are not reflected until the archive is saved.
func (e *Entry) UncompressedSize() uint64 {
	e.a.mu.Lock()
	defer e.a.mu.Unlock()
	return e.meta.UncompressedSize
}

// Compression returns the method used for the stored payload.
func (e *Entry) Compression() Compression {
	e.a.mu.Lock()
	defer e.a.mu.Unlock()
	return e.meta.Compression
}

// Attr returns a CPK file-table column that has no dedicated accessor, such
// as "ID", "UserString" or "CRC", formatted as a string.
func (e *Entry) Attr(column string) (string, bool) {
	v, ok := e.attrs[column]
	if !ok {
		return "", false
	}
	return v.String(), true
}

// Open returns a reader over the extracted payload.
//
// In ModeRead the payload is decoded from the container as it is read. In
// ModeUpdate the payload is buffered on first access and the returned stream
// is an EditStream positioned at the start of that buffer.
func (e *Entry) Open() (io.ReadCloser, error) {
	a := e.a
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.closed {
		return nil, fmt.Errorf("open %s: %w", e.meta.Name, fs.ErrClosed)
	}

	if a.mode == ModeUpdate && a.format.Writable() {
		w, err := e.editLocked()
		if err != nil {
			return nil, err
		}
		return w, nil
	}

	switch a.format {
	case FormatMPK1, FormatMPK2:
		r, release, err := mpk.Open(a.src, &e.meta, a.pool)
		if err != nil {
			return nil, err
		}
		return &payloadReader{r: r, release: release}, nil
	case FormatCPK:
		r, err := cpk.Open(a.src, &e.meta, a.cfg.maxEntrySize)
		if err != nil {
			return nil, err
		}
		return io.NopCloser(r), nil
	default:
		return nil, fmt.Errorf("open %s: %w: format %s", e.meta.Name, ErrNotSupported, a.format)
	}
}

// Edit returns a writable stream over the entry's buffered payload. Writes
// change only the buffer; call Archive.SaveChanges to persist them. A
// successful save or Archive.Close closes every stream handed out so far.
// Edit requires ModeUpdate and a writable format.
func (e *Entry) Edit() (EditStream, error) {
	a := e.a
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.closed {
		return nil, fmt.Errorf("edit %s: %w", e.meta.Name, fs.ErrClosed)
	}
	if a.mode != ModeUpdate || !a.format.Writable() {
		return nil, fmt.Errorf("edit %s in %s %s archive: %w", e.meta.Name, a.mode, a.format, ErrNotSupported)
	}
	w, err := e.editLocked()
	if err != nil {
		return nil, err
	}
	return w, nil
}

func (e *Entry) editLocked() (*stream.Wrapped, error) {
	if err := e.materialize(); err != nil {
		return nil, err
	}
	e.cache.Rewind()

	live := e.views[:0]
	for _, v := range e.views {
		if !v.Closed() {
			live = append(live, v)
		}
	}
	w := stream.Wrap(e.cache)
	e.views = append(live, w)
	return w, nil
}

// dropCache releases the buffered payload. Streams opened over it fail with
// fs.ErrClosed from then on.
func (e *Entry) dropCache() {
	for _, v := range e.views {
		v.Close()
	}
	e.views = nil
	e.cache = nil
}

// materialize buffers the extracted payload. A failed extraction leaves no
// buffer behind.
func (e *Entry) materialize() error {
	if e.cache != nil {
		return nil
	}
	a := e.a
	data, err := mpk.ReadAll(a.src, &e.meta, a.pool, a.cfg.maxEntrySize)
	if err != nil {
		return err
	}
	e.cache = stream.NewBuffer(data)
	a.log().Debug("entry buffered",
		slog.Uint64("id", uint64(e.meta.ID)),
		slog.String("name", e.meta.Name),
		slog.Int("size", len(data)))
	return nil
}

// Replace sets the entry's payload to the contents of r.
func (e *Entry) Replace(r io.Reader) error {
	s, err := e.Edit()
	if err != nil {
		return err
	}
	defer s.Close()

	if err := s.Truncate(0); err != nil {
		return fmt.Errorf("replace %s: %w", e.meta.Name, err)
	}
	if _, err := s.Seek(0, io.SeekStart); err != nil {
		return fmt.Errorf("replace %s: %w", e.meta.Name, err)
	}
	if _, err := io.Copy(s, r); err != nil {
		return fmt.Errorf("replace %s: %w", e.meta.Name, err)
	}
	return nil
}

// ReadAll returns the entire extracted payload, including pending edits in
// ModeUpdate.
func (e *Entry) ReadAll() ([]byte, error) {
	a := e.a
	a.mu.Lock()
	if !a.closed && a.format.Writable() && a.mode == ModeRead {
		defer a.mu.Unlock()
		return mpk.ReadAll(a.src, &e.meta, a.pool, a.cfg.maxEntrySize)
	}
	a.mu.Unlock()

	r, err := e.Open()
	if err != nil {
		return nil, err
	}
	defer r.Close()
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", e.meta.Name, err)
	}
	return data, nil
}

// payloadReader returns the pooled decoder behind an MPK payload on Close.
type payloadReader struct {
	r       io.Reader
	release func()
}

func (p *payloadReader) Read(b []byte) (int, error) {
	if p.r == nil {
		return 0, fs.ErrClosed
	}
	return p.r.Read(b)
}

func (p *payloadReader) Close() error {
	if p.r == nil {
		return nil
	}
	p.r = nil
	p.release()
	return nil
}
