// Package mpk implements the MPK entry-record container: a small header, a
// table of fixed 256-byte entry records, and the entry payloads.
//
// Two header revisions exist. Version 1 uses 32-bit counts, offsets, and
// sizes with records starting at 0x40; version 2 widens them to 64 bits with
// records starting at 0x44. All integers are little-endian.
//
// No compression flag is stored: an entry whose stored size differs from its
// extracted size is a zlib stream, and one whose sizes match is stored as is.
// A payload that happens to compress to exactly its own size is therefore
// indistinguishable from a stored one.
package mpk

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"io"

	"golang.org/x/text/encoding"

	"github.com/meigma/vnarc/internal/arctype"
	"github.com/meigma/vnarc/internal/binutil"
	"github.com/meigma/vnarc/internal/sizing"
)

// Signature opens every MPK container.
var Signature = []byte("MPK\x00")

const (
	// RecordSize is the size of every entry record in both revisions.
	RecordSize = 256

	firstRecordV1 = 0x40
	firstRecordV2 = 0x44

	// name field sizes: the record minus its numeric fields.
	nameSizeV1 = RecordSize - 32
	nameSizeV2 = RecordSize - 28

	versionOffset = 4
	countOffset   = 8
)

// Header is the decoded MPK header.
type Header struct {
	Minor uint16
	Major uint16
	Count uint64
}

// FirstRecord returns the offset of record 0 for the header's revision.
func (h *Header) FirstRecord() uint64 {
	if h.Major == 2 {
		return firstRecordV2
	}
	return firstRecordV1
}

// countSize returns the width of the entry count field.
func (h *Header) countSize() int {
	if h.Major == 2 {
		return 8
	}
	return 4
}

// size returns the number of bytes the header fields occupy.
func (h *Header) size() int {
	return countOffset + h.countSize()
}

// RecordsEnd returns the offset one past the last entry record.
func (h *Header) RecordsEnd() uint64 {
	return h.FirstRecord() + h.Count*RecordSize
}

func (h *Header) nameSize() int {
	if h.Major == 2 {
		return nameSizeV2
	}
	return nameSizeV1
}

func invalid(format string, args ...any) error {
	return fmt.Errorf("%w: mpk: %s", arctype.ErrInvalidData, fmt.Sprintf(format, args...))
}

// Read decodes the header and every entry record of the container in r.
// size is the container length. Names are decoded with enc when it is
// non-nil; the raw bytes are kept on each entry for rewriting.
func Read(r io.ReadSeeker, size int64, enc encoding.Encoding) (*Header, []arctype.Entry, error) {
	if _, err := r.Seek(0, io.SeekStart); err != nil {
		return nil, nil, err
	}
	var fixed [countOffset + 8]byte
	if _, err := io.ReadFull(r, fixed[:countOffset]); err != nil {
		return nil, nil, invalid("header: %v", err)
	}
	if !bytes.Equal(fixed[:versionOffset], Signature) {
		return nil, nil, fmt.Errorf("%w: mpk signature %s", arctype.ErrUnrecognizedFormat, binutil.Hex(fixed[:versionOffset]))
	}

	h := &Header{
		Minor: binary.LittleEndian.Uint16(fixed[versionOffset:]),
		Major: binary.LittleEndian.Uint16(fixed[versionOffset+2:]),
	}
	if h.Major != 1 && h.Major != 2 {
		return nil, nil, fmt.Errorf("%w: mpk version %d.%d", arctype.ErrUnsupportedVersion, h.Major, h.Minor)
	}

	countField := fixed[countOffset : countOffset+h.countSize()]
	if _, err := io.ReadFull(r, countField); err != nil {
		return nil, nil, invalid("entry count: %v", err)
	}
	if h.Major == 2 {
		h.Count = binary.LittleEndian.Uint64(countField)
	} else {
		h.Count = uint64(binary.LittleEndian.Uint32(countField))
	}

	if size < 0 || h.Count > (uint64(size)/RecordSize) || h.RecordsEnd() > uint64(size) {
		return nil, nil, invalid("%d records do not fit in %d bytes", h.Count, size)
	}

	var dec *encoding.Decoder
	if enc != nil {
		dec = enc.NewDecoder()
	}

	entries := make([]arctype.Entry, h.Count)
	rec := make([]byte, RecordSize)
	for i := range entries {
		at := h.FirstRecord() + uint64(i)*RecordSize
		if _, err := r.Seek(int64(at), io.SeekStart); err != nil { //nolint:gosec // bounded by size above
			return nil, nil, err
		}
		if _, err := io.ReadFull(r, rec); err != nil {
			return nil, nil, invalid("record %d: %v", i, err)
		}
		e := &entries[i]
		h.decodeRecord(rec, e)
		e.HeaderOffset = at

		e.Name = string(e.RawName)
		if dec != nil {
			name, err := dec.Bytes(e.RawName)
			if err != nil {
				return nil, nil, invalid("record %d name: %v", i, err)
			}
			e.Name = string(name)
		}

		end, ok := e.End()
		if !ok || end > uint64(size) {
			return nil, nil, invalid("entry %q range [%d,+%d) exceeds container of %d bytes", e.Name, e.DataOffset, e.CompressedSize, size)
		}
	}
	return h, entries, nil
}

func (h *Header) decodeRecord(rec []byte, e *arctype.Entry) {
	le := binary.LittleEndian
	e.ID = le.Uint32(rec[0:])
	var name []byte
	if h.Major == 2 {
		e.DataOffset = le.Uint64(rec[4:])
		e.CompressedSize = le.Uint64(rec[12:])
		e.UncompressedSize = le.Uint64(rec[20:])
		name = rec[RecordSize-nameSizeV2:]
	} else {
		e.DataOffset = uint64(le.Uint32(rec[4:]))
		e.CompressedSize = uint64(le.Uint32(rec[8:]))
		e.UncompressedSize = uint64(le.Uint32(rec[12:]))
		name = rec[RecordSize-nameSizeV1:]
	}
	e.RawName = bytes.Clone(binutil.TrimNUL(name))

	e.Compression = arctype.CompressionNone
	if e.CompressedSize != e.UncompressedSize {
		e.Compression = arctype.CompressionDeflate
	}
}

// encodeRecord writes e's record into rec, which must be RecordSize bytes.
func (h *Header) encodeRecord(rec []byte, e *arctype.Entry) error {
	clear(rec)
	le := binary.LittleEndian
	le.PutUint32(rec[0:], e.ID)
	if len(e.RawName) > h.nameSize() {
		return invalid("name of entry %d is %d bytes, record holds %d", e.ID, len(e.RawName), h.nameSize())
	}
	if h.Major == 2 {
		le.PutUint64(rec[4:], e.DataOffset)
		le.PutUint64(rec[12:], e.CompressedSize)
		le.PutUint64(rec[20:], e.UncompressedSize)
		copy(rec[RecordSize-nameSizeV2:], e.RawName)
		return nil
	}
	for i, v := range []uint64{e.DataOffset, e.CompressedSize, e.UncompressedSize} {
		n, err := sizing.ToUint32(v, arctype.ErrSizeOverflow)
		if err != nil {
			return fmt.Errorf("entry %d: version 1 record field %d: %w", e.ID, i, err)
		}
		le.PutUint32(rec[4+4*i:], n)
	}
	copy(rec[RecordSize-nameSizeV1:], e.RawName)
	return nil
}

// encodeHeader returns the header fields as written at the start of the container.
func (h *Header) encodeHeader() []byte {
	out := make([]byte, h.size())
	copy(out, Signature)
	binary.LittleEndian.PutUint16(out[versionOffset:], h.Minor)
	binary.LittleEndian.PutUint16(out[versionOffset+2:], h.Major)
	if h.Major == 2 {
		binary.LittleEndian.PutUint64(out[countOffset:], h.Count)
	} else {
		binary.LittleEndian.PutUint32(out[countOffset:], uint32(h.Count)) //nolint:gosec // read from a 32-bit field
	}
	return out
}
