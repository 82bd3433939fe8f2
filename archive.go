package vnarc

import (
	"fmt"
	"io"
	"io/fs"
	"log/slog"
	"sync"

	"golang.org/x/text/encoding"

	"github.com/meigma/vnarc/internal/arctype"
	"github.com/meigma/vnarc/internal/cpk"
	"github.com/meigma/vnarc/internal/deflate"
	"github.com/meigma/vnarc/internal/mpk"
	"github.com/meigma/vnarc/internal/pathutil"
)

// Archive is an open container bound to one seekable stream.
//
// Entries are decoded once at open time; payloads are read lazily. Methods
// on Archive and its entries are safe for concurrent use, but see the
// package documentation for the limits on concurrent payload reads.
type Archive struct {
	mu     sync.Mutex
	cfg    config
	src    io.ReadSeeker
	rw     mpk.Container // set in ModeUpdate
	size   int64
	mode   Mode
	format Format
	closed bool

	mpkHeader *mpk.Header
	cpkHeader *cpk.Header

	entries []*Entry
	pool    *deflate.Pool
	encoder *deflate.Encoder
}

// Open decodes the container in r.
//
// ModeUpdate requires r to also implement io.Writer and Truncate(int64) error,
// as *os.File does; otherwise Open fails with ErrNotSupported. On failure no
// archive is returned and r is not closed.
func Open(r io.ReadSeeker, mode Mode, opts ...Option) (*Archive, error) {
	a := &Archive{
		cfg:  defaultConfig(),
		src:  r,
		mode: mode,
		pool: deflate.NewPool(),
	}
	for _, opt := range opts {
		opt(&a.cfg)
	}

	switch mode {
	case ModeRead:
	case ModeUpdate:
		rw, ok := r.(mpk.Container)
		if !ok {
			return nil, fmt.Errorf("open for %s: %w: stream is not writable", mode, ErrNotSupported)
		}
		a.rw = rw
	default:
		return nil, fmt.Errorf("open: %w: mode %d", ErrNotSupported, mode)
	}

	size, err := r.Seek(0, io.SeekEnd)
	if err != nil {
		return nil, fmt.Errorf("open: size stream: %w", err)
	}
	if _, err := r.Seek(0, io.SeekStart); err != nil {
		return nil, fmt.Errorf("open: rewind stream: %w", err)
	}
	a.size = size

	fam, err := detect(r)
	if err != nil {
		return nil, err
	}
	switch fam {
	case familyMPK:
		err = a.openMPK()
	case familyCPK:
		err = a.openCPK()
	}
	if err != nil {
		return nil, err
	}

	a.log().Debug("archive opened",
		slog.String("format", a.format.String()),
		slog.String("mode", mode.String()),
		slog.Int("entries", len(a.entries)),
		slog.Int64("size", size))
	return a, nil
}

func (a *Archive) openMPK() error {
	h, metas, err := mpk.Read(a.src, a.size, a.cfg.names)
	if err != nil {
		return fmt.Errorf("open mpk: %w", err)
	}
	a.mpkHeader = h
	a.format = FormatMPK1
	if h.Major == 2 {
		a.format = FormatMPK2
	}
	a.entries = make([]*Entry, len(metas))
	for i := range metas {
		a.entries[i] = &Entry{a: a, meta: metas[i]}
	}
	return nil
}

func (a *Archive) openCPK() error {
	c, err := cpk.Read(a.src, a.size)
	if err != nil {
		return fmt.Errorf("open cpk: %w", err)
	}
	a.cpkHeader = &c.Header
	a.format = FormatCPK

	var dec *encoding.Decoder
	if a.cfg.names != nil {
		dec = a.cfg.names.NewDecoder()
	}
	a.entries = make([]*Entry, len(c.Entries))
	for i := range c.Entries {
		meta := c.Entries[i].Entry
		if dec != nil {
			name, err := dec.String(meta.Name)
			if err != nil {
				return fmt.Errorf("open cpk: %w: entry %d name: %v", ErrInvalidData, meta.ID, err)
			}
			meta.Name = name
		}
		a.entries[i] = &Entry{a: a, meta: meta, attrs: c.Entries[i].Extra}
	}
	return nil
}

func (a *Archive) log() *slog.Logger {
	if a.cfg.logger != nil {
		return a.cfg.logger
	}
	return slog.New(slog.DiscardHandler)
}

// Format returns the container layout the archive was opened from.
func (a *Archive) Format() Format {
	return a.format
}

// Mode returns the mode the archive was opened in.
func (a *Archive) Mode() Mode {
	return a.mode
}

// Version returns the container's format revision: the MPK major and minor
// versions, or the CPK header's Version and Revision columns.
func (a *Archive) Version() (major, minor uint16) {
	if a.mpkHeader != nil {
		return a.mpkHeader.Major, a.mpkHeader.Minor
	}
	return a.cpkHeader.Version, a.cpkHeader.Revision
}

// Len returns the number of entries.
func (a *Archive) Len() int {
	return len(a.entries)
}

// Entries returns the entries in on-disk record order.
// The returned slice is a copy; the entries themselves are shared.
func (a *Archive) Entries() []*Entry {
	out := make([]*Entry, len(a.entries))
	copy(out, a.entries)
	return out
}

// Entry returns the entry with the given id.
func (a *Archive) Entry(id uint32) (*Entry, error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	for _, e := range a.entries {
		if e.meta.ID == id {
			return e, nil
		}
	}
	return nil, fmt.Errorf("entry %d: %w", id, ErrNotFound)
}

// Lookup returns the entry whose name matches name, ignoring case and
// treating slash and backslash separators alike.
// It fails with ErrAmbiguousName when several entries share the name.
func (a *Archive) Lookup(name string) (*Entry, error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	var found *Entry
	for _, e := range a.entries {
		if !pathutil.Equal(e.meta.Name, name) {
			continue
		}
		if found != nil {
			return nil, fmt.Errorf("entry %q: %w", name, ErrAmbiguousName)
		}
		found = e
	}
	if found == nil {
		return nil, fmt.Errorf("entry %q: %w", name, ErrNotFound)
	}
	return found, nil
}

// SaveChanges writes every edited entry back to the container.
//
// The new container is built in a temporary target (see WithTempDir) and
// copied over the original stream only once it is complete, so a failure
// while building it leaves the stream untouched. Entry buffers are released
// after a successful save.
func (a *Archive) SaveChanges() error {
	a.mu.Lock()
	defer a.mu.Unlock()

	if a.closed {
		return fmt.Errorf("save: %w", fs.ErrClosed)
	}
	if !a.format.Writable() {
		return fmt.Errorf("save %s: %w", a.format, ErrNotSupported)
	}
	if a.mode != ModeUpdate {
		return fmt.Errorf("save in %s mode: %w", a.mode, ErrNotSupported)
	}

	metas := make([]arctype.Entry, len(a.entries))
	edits := make(map[int][]byte)
	var deflated bool
	for i, e := range a.entries {
		metas[i] = e.meta
		if e.cache != nil && e.cache.Modified() {
			edits[i] = e.cache.Bytes()
			deflated = deflated || e.meta.Compression == CompressionDeflate
		}
	}
	if deflated && a.encoder == nil {
		enc, err := deflate.NewEncoder(a.cfg.level)
		if err != nil {
			return fmt.Errorf("save: %w", err)
		}
		a.encoder = enc
	}

	updated, err := mpk.Save(a.rw, a.mpkHeader, metas, edits, mpk.SaveOptions{
		Encoder: a.encoder,
		TempDir: a.cfg.tempDir,
		Logger:  a.log(),
	})
	if err != nil {
		return err
	}

	for i, e := range a.entries {
		e.meta = updated[i]
		e.dropCache()
	}
	size, err := a.rw.Seek(0, io.SeekEnd)
	if err != nil {
		return fmt.Errorf("save: size stream: %w", err)
	}
	a.size = size
	a.log().Debug("archive saved",
		slog.Int("edited", len(edits)),
		slog.Int64("size", size))
	return nil
}

// Close releases entry buffers and closes the underlying stream unless the
// archive was opened with WithLeaveOpen(true). Close is idempotent.
func (a *Archive) Close() error {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.closed {
		return nil
	}
	a.closed = true
	for _, e := range a.entries {
		e.dropCache()
	}
	if a.cfg.leaveOpen {
		return nil
	}
	if c, ok := a.src.(io.Closer); ok {
		return c.Close()
	}
	return nil
}
