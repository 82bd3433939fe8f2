// Package cpk reads CPK containers: an outer header that locates two
// keystream-obfuscated "@UTF" tables, one describing the archive and one
// listing its files.
//
// CPK containers are read-only; there is no writer.
package cpk

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"io"
	"path"

	"github.com/meigma/vnarc/internal/arctype"
	"github.com/meigma/vnarc/internal/keystream"
	"github.com/meigma/vnarc/internal/sizing"
	"github.com/meigma/vnarc/internal/utf"
)

// Signature opens every CPK container.
var Signature = []byte("CPK ")

var tocSignature = []byte("TOC ")

// chunkHeaderSize covers the 4-byte tag, 4 flag bytes, and the 64-bit packet size.
const chunkHeaderSize = 16

// Header holds the archive header table. Columns not listed here are kept in
// Extra.
type Header struct {
	ContentOffset uint64
	ContentSize   uint64
	TocOffset     uint64
	TocSize       uint64
	EtocOffset    uint64
	EtocSize      uint64
	ItocOffset    uint64
	ItocSize      uint64
	Files         uint32
	Version       uint16
	Revision      uint16
	Align         uint16
	Comment       string
	Extra         map[string]utf.Value
}

var headerBinding = utf.Binding[Header]{
	"ContentOffset": func(h *Header, v utf.Value) { h.ContentOffset = v.Uint() },
	"ContentSize":   func(h *Header, v utf.Value) { h.ContentSize = v.Uint() },
	"TocOffset":     func(h *Header, v utf.Value) { h.TocOffset = v.Uint() },
	"TocSize":       func(h *Header, v utf.Value) { h.TocSize = v.Uint() },
	"EtocOffset":    func(h *Header, v utf.Value) { h.EtocOffset = v.Uint() },
	"EtocSize":      func(h *Header, v utf.Value) { h.EtocSize = v.Uint() },
	"ItocOffset":    func(h *Header, v utf.Value) { h.ItocOffset = v.Uint() },
	"ItocSize":      func(h *Header, v utf.Value) { h.ItocSize = v.Uint() },
	"Files":         func(h *Header, v utf.Value) { h.Files = uint32(v.Uint()) },
	"Version":       func(h *Header, v utf.Value) { h.Version = uint16(v.Uint()) },
	"Revision":      func(h *Header, v utf.Value) { h.Revision = uint16(v.Uint()) },
	"Align":         func(h *Header, v utf.Value) { h.Align = uint16(v.Uint()) },
	"Comment":       func(h *Header, v utf.Value) { h.Comment = v.String() },
}

func headerExtra(h *Header, column string, v utf.Value) {
	if h.Extra == nil {
		h.Extra = make(map[string]utf.Value)
	}
	h.Extra[column] = v
}

// tocRow is one row of the file table.
type tocRow struct {
	DirName     string
	FileName    string
	FileSize    uint64
	ExtractSize uint64
	FileOffset  uint64
	Extra       map[string]utf.Value
}

var tocBinding = utf.Binding[tocRow]{
	"DirName":     func(r *tocRow, v utf.Value) { r.DirName = v.String() },
	"FileName":    func(r *tocRow, v utf.Value) { r.FileName = v.String() },
	"FileSize":    func(r *tocRow, v utf.Value) { r.FileSize = v.Uint() },
	"ExtractSize": func(r *tocRow, v utf.Value) { r.ExtractSize = v.Uint() },
	"FileOffset":  func(r *tocRow, v utf.Value) { r.FileOffset = v.Uint() },
}

func tocExtra(r *tocRow, column string, v utf.Value) {
	if r.Extra == nil {
		r.Extra = make(map[string]utf.Value)
	}
	r.Extra[column] = v
}

// Entry couples the shared entry metadata with CPK-only fields.
type Entry struct {
	arctype.Entry

	// FileID is the value of the TOC's ID column, also kept in Extra.
	FileID uint32

	// Extra holds TOC columns with no dedicated field, including ID.
	Extra map[string]utf.Value
}

// Archive is a decoded CPK table of contents.
type Archive struct {
	Header  Header
	Entries []Entry
}

func invalid(format string, args ...any) error {
	return fmt.Errorf("%w: cpk: %s", arctype.ErrInvalidData, fmt.Sprintf(format, args...))
}

// Read decodes the header and file tables of the container in r. size is the
// total container length used to validate entry ranges.
func Read(r io.ReadSeeker, size int64) (*Archive, error) {
	packet, err := readChunk(r, 0, size, Signature)
	if err != nil {
		return nil, fmt.Errorf("read header: %w", err)
	}
	table, err := utf.Parse(packet)
	if err != nil {
		return nil, fmt.Errorf("parse header: %w", err)
	}
	if len(table.Rows) != 1 {
		return nil, invalid("header table has %d rows", len(table.Rows))
	}
	a := &Archive{Header: utf.Bind(table, headerBinding, headerExtra)[0]}

	if a.Header.TocOffset == 0 {
		return nil, fmt.Errorf("%w: cpk: archive has no TOC", arctype.ErrNotSupported)
	}
	tocAt, err := sizing.ToInt64(a.Header.TocOffset, arctype.ErrSizeOverflow)
	if err != nil {
		return nil, err
	}
	packet, err = readChunk(r, tocAt, size, tocSignature)
	if err != nil {
		return nil, fmt.Errorf("read toc: %w", err)
	}
	if table, err = utf.Parse(packet); err != nil {
		return nil, fmt.Errorf("parse toc: %w", err)
	}

	base := a.Header.TocOffset
	if a.Header.ContentOffset != 0 && a.Header.ContentOffset < base {
		base = a.Header.ContentOffset
	}

	rows := utf.Bind(table, tocBinding, tocExtra)
	a.Entries = make([]Entry, len(rows))
	for i, row := range rows {
		e := &a.Entries[i]
		name := row.FileName
		if row.DirName != "" {
			name = path.Join(row.DirName, row.FileName)
		}
		off, ok := sizing.AddUint64(row.FileOffset, base)
		if !ok {
			return nil, fmt.Errorf("entry %q: %w", name, arctype.ErrSizeOverflow)
		}
		e.Entry = arctype.Entry{
			ID:               uint32(i), //nolint:gosec // row count is bounded by a uint32 field
			Name:             name,
			RawName:          []byte(name),
			DataOffset:       off,
			CompressedSize:   row.FileSize,
			UncompressedSize: row.ExtractSize,
			Compression:      arctype.CompressionNone,
			HeaderOffset:     a.Header.TocOffset,
		}
		if row.FileSize != row.ExtractSize {
			e.Compression = arctype.CompressionLayla
		}
		if id, ok := row.Extra["ID"]; ok {
			e.FileID = uint32(id.Uint()) //nolint:gosec // ID is a 32-bit column
		}
		e.Extra = row.Extra

		end, ok := e.End()
		if !ok || size < 0 || end > uint64(size) {
			return nil, invalid("entry %q range [%d,+%d) exceeds container of %d bytes", name, off, row.FileSize, size)
		}
	}
	return a, nil
}

// readChunk reads the tagged chunk at off and returns its table packet with
// the keystream removed. The packet must fit inside a container of size bytes.
func readChunk(r io.ReadSeeker, off, size int64, tag []byte) ([]byte, error) {
	if _, err := r.Seek(off, io.SeekStart); err != nil {
		return nil, err
	}
	var hdr [chunkHeaderSize]byte
	if _, err := io.ReadFull(r, hdr[:]); err != nil {
		return nil, invalid("chunk header at %d: %v", off, err)
	}
	if !bytes.Equal(hdr[:4], tag) {
		return nil, invalid("chunk at %d has tag %q, want %q", off, hdr[:4], tag)
	}
	n := binary.LittleEndian.Uint64(hdr[8:])
	if avail := size - off - chunkHeaderSize; avail < 0 || n > uint64(avail) {
		return nil, invalid("chunk at %d claims %d bytes, container holds %d", off, n, size)
	}
	packet := make([]byte, n)
	if _, err := io.ReadFull(r, packet); err != nil {
		return nil, invalid("chunk packet at %d (%d bytes): %v", off, n, err)
	}
	if !utf.IsPlain(packet) {
		keystream.New().XORKeyStream(packet, packet)
	}
	return packet, nil
}
