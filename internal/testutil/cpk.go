package testutil

import (
	"encoding/binary"

	"github.com/meigma/vnarc/internal/keystream"
)

const (
	cpkTocOffset = 0x800
	cpkAlign     = 0x800
	laylaPrefix  = 0x100
)

// CPKFile is one entry of a CPK fixture. When Stored is nil the payload is
// stored as Data; otherwise Stored is written and Data is the extracted form.
type CPKFile struct {
	Dir    string
	Name   string
	Data   []byte
	Stored []byte
	ID     uint32
}

// CPKArchive describes a CPK fixture.
type CPKArchive struct {
	Files []CPKFile

	// Obfuscate hides both table packets behind the keystream.
	Obfuscate bool

	// Comment is stored as a constant header column.
	Comment string
}

// BuildCPK assembles a CPK container with a header table at 0x10 and a TOC
// at 0x800 followed by sector-aligned content.
func BuildCPK(a CPKArchive) []byte {
	toc := func(base uint64) []byte {
		t := UTFTable{
			Name: "CpkTocInfo",
			Columns: []UTFColumn{
				{Name: "DirName", Flags: StoragePerRow | TypeString},
				{Name: "FileName", Flags: StoragePerRow | TypeString},
				{Name: "FileSize", Flags: StoragePerRow | TypeUint32},
				{Name: "ExtractSize", Flags: StoragePerRow | TypeUint32},
				{Name: "FileOffset", Flags: StoragePerRow | TypeUint64},
				{Name: "ID", Flags: StoragePerRow | TypeUint32},
				{Name: "UserString", Flags: StorageConstant | TypeString, Constant: "<NULL>"},
				{Name: "CRC", Flags: StorageZero | TypeUint32},
			},
		}
		off := base
		for _, f := range a.Files {
			stored := f.Stored
			if stored == nil {
				stored = f.Data
			}
			t.Rows = append(t.Rows, map[string]any{
				"DirName":     f.Dir,
				"FileName":    f.Name,
				"FileSize":    len(stored),
				"ExtractSize": len(f.Data),
				"FileOffset":  off - cpkTocOffset,
				"ID":          f.ID,
			})
			off += alignUp(uint64(len(stored)), cpkAlign)
		}
		return BuildUTF(t)
	}

	// Column widths are fixed, so the TOC size does not depend on offsets.
	tocSize := uint64(16 + len(toc(0)))
	contentOffset := alignUp(cpkTocOffset+tocSize, cpkAlign)
	tocPacket := toc(contentOffset)

	var contentSize uint64
	for _, f := range a.Files {
		n := uint64(len(f.Data))
		if f.Stored != nil {
			n = uint64(len(f.Stored))
		}
		contentSize += alignUp(n, cpkAlign)
	}

	header := BuildUTF(UTFTable{
		Name: "CpkHeader",
		Columns: []UTFColumn{
			{Name: "UpdateDateTime", Flags: StoragePerRow | TypeUint64},
			{Name: "ContentOffset", Flags: StoragePerRow | TypeUint64},
			{Name: "ContentSize", Flags: StoragePerRow | TypeUint64},
			{Name: "TocOffset", Flags: StoragePerRow | TypeUint64},
			{Name: "TocSize", Flags: StoragePerRow | TypeUint64},
			{Name: "EtocOffset", Flags: StorageZero | TypeUint64},
			{Name: "Files", Flags: StoragePerRow | TypeUint32},
			{Name: "Version", Flags: StoragePerRow | TypeUint16},
			{Name: "Revision", Flags: StoragePerRow | TypeUint16},
			{Name: "Align", Flags: StoragePerRow | TypeUint16},
			{Name: "Sorted", Flags: StorageConstant | TypeUint16, Constant: 1},
			{Name: "CpkMode", Flags: StoragePerRow | TypeUint32},
			{Name: "Tvers", Flags: StorageConstant | TypeString, Constant: "CPKMC2.49.32"},
			{Name: "Comment", Flags: StoragePerRow | TypeString},
		},
		Rows: []map[string]any{{
			"UpdateDateTime": 1,
			"ContentOffset":  contentOffset,
			"ContentSize":    contentSize,
			"TocOffset":      cpkTocOffset,
			"TocSize":        tocSize,
			"Files":          len(a.Files),
			"Version":        7,
			"Revision":       0,
			"Align":          cpkAlign,
			"CpkMode":        1,
			"Comment":        a.Comment,
		}},
	})

	if a.Obfuscate {
		header = keystream.Decode(header)
		tocPacket = keystream.Decode(tocPacket)
	}

	out := make([]byte, contentOffset)
	copy(out, "CPK ")
	binary.LittleEndian.PutUint32(out[4:], 0xFF)
	binary.LittleEndian.PutUint64(out[8:], uint64(len(header)))
	copy(out[16:], header)

	copy(out[cpkTocOffset:], "TOC ")
	binary.LittleEndian.PutUint32(out[cpkTocOffset+4:], 0xFF)
	binary.LittleEndian.PutUint64(out[cpkTocOffset+8:], uint64(len(tocPacket)))
	copy(out[cpkTocOffset+16:], tocPacket)

	for _, f := range a.Files {
		stored := f.Stored
		if stored == nil {
			stored = f.Data
		}
		out = append(out, stored...)
		out = append(out, make([]byte, alignUp(uint64(len(stored)), cpkAlign)-uint64(len(stored)))...)
	}
	return out
}

func alignUp(n, align uint64) uint64 {
	return (n + align - 1) / align * align
}

// LaylaOp is one decoder step: a literal byte when Length is zero, otherwise
// a back-reference of Length (3 to 5) bytes at Distance (3 or more) bytes.
type LaylaOp struct {
	Literal  byte
	Distance int
	Length   int
}

// EncodeLayla stores payload as CRILAYLA using only literals. The payload
// must be at least 0x100 bytes; its first 0x100 bytes form the raw prefix.
func EncodeLayla(payload []byte) []byte {
	body := payload[laylaPrefix:]
	ops := make([]LaylaOp, len(body))
	for i := range body {
		ops[i] = LaylaOp{Literal: body[len(body)-1-i]}
	}
	return EncodeLaylaOps(payload[:laylaPrefix], len(body), ops)
}

// EncodeLaylaOps stores the given decoder steps as CRILAYLA. Steps are in
// decode order, which fills the output from its last byte backwards.
func EncodeLaylaOps(prefix []byte, size int, ops []LaylaOp) []byte {
	var bits bitWriter
	for _, op := range ops {
		if op.Length == 0 {
			bits.put(0, 1)
			bits.put(uint32(op.Literal), 8)
			continue
		}
		bits.put(1, 1)
		bits.put(uint32(op.Distance-3), 13)
		bits.put(uint32(op.Length-3), 2)
	}
	packed := bits.bytes()
	for i, j := 0, len(packed)-1; i < j; i, j = i+1, j-1 {
		packed[i], packed[j] = packed[j], packed[i]
	}

	out := make([]byte, 16, 16+len(packed)+laylaPrefix)
	copy(out, "CRILAYLA")
	binary.LittleEndian.PutUint32(out[8:], uint32(size))
	binary.LittleEndian.PutUint32(out[12:], uint32(len(packed)))
	out = append(out, packed...)
	return append(out, prefix[:laylaPrefix]...)
}

type bitWriter struct {
	out  []byte
	cur  byte
	used uint
}

func (w *bitWriter) put(v uint32, n uint) {
	for i := int(n) - 1; i >= 0; i-- {
		bit := byte(v>>uint(i)) & 1
		w.cur |= bit << (7 - w.used)
		w.used++
		if w.used == 8 {
			w.out = append(w.out, w.cur)
			w.cur, w.used = 0, 0
		}
	}
}

func (w *bitWriter) bytes() []byte {
	if w.used > 0 {
		w.out = append(w.out, w.cur)
		w.cur, w.used = 0, 0
	}
	return w.out
}
