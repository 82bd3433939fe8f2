package testutil

import (
	"encoding/binary"
	"fmt"
	"math"
)

// Column flag components, restated from the table format.
const (
	StorageZero     byte = 0x10
	StorageConstant byte = 0x30
	StoragePerRow   byte = 0x50

	TypeUint8   byte = 0x0
	TypeUint16  byte = 0x2
	TypeUint32  byte = 0x4
	TypeInt32   byte = 0x5
	TypeUint64  byte = 0x6
	TypeFloat32 byte = 0x8
	TypeString  byte = 0xA
	TypeData    byte = 0xB
)

// UTFColumn is one column of a fixture table. Constant is used for
// StorageConstant columns.
type UTFColumn struct {
	Name     string
	Flags    byte
	Constant any
}

// UTFTable describes a fixture table. Rows map column names to values for
// per-row columns; values may be any unsigned or signed integer, float32,
// string, or []byte.
type UTFTable struct {
	Name    string
	Columns []UTFColumn
	Rows    []map[string]any
}

type utfWriter struct {
	strings []byte
	offsets map[string]uint32
	data    []byte
}

func (w *utfWriter) str(s string) uint32 {
	if off, ok := w.offsets[s]; ok {
		return off
	}
	off := uint32(len(w.strings))
	w.strings = append(w.strings, s...)
	w.strings = append(w.strings, 0)
	w.offsets[s] = off
	return off
}

func (w *utfWriter) value(dst []byte, typ byte, v any) []byte {
	switch typ {
	case TypeString:
		s, _ := v.(string)
		return binary.BigEndian.AppendUint32(dst, w.str(s))
	case TypeData:
		b, _ := v.([]byte)
		dst = binary.BigEndian.AppendUint32(dst, uint32(len(w.data)))
		dst = binary.BigEndian.AppendUint32(dst, uint32(len(b)))
		w.data = append(w.data, b...)
		return dst
	case TypeFloat32:
		f, _ := v.(float32)
		return binary.BigEndian.AppendUint32(dst, math.Float32bits(f))
	}
	n := toUint64(v)
	switch utfSize(typ) {
	case 1:
		return append(dst, byte(n))
	case 2:
		return binary.BigEndian.AppendUint16(dst, uint16(n))
	case 4:
		return binary.BigEndian.AppendUint32(dst, uint32(n))
	case 8:
		return binary.BigEndian.AppendUint64(dst, n)
	}
	panic(fmt.Sprintf("testutil: unsupported column type %#x", typ))
}

func utfSize(typ byte) int {
	switch typ {
	case 0, 1:
		return 1
	case 2, 3:
		return 2
	case 4, 5, 8, 0xA:
		return 4
	case 6, 7, 9, 0xB:
		return 8
	}
	return 0
}

func toUint64(v any) uint64 {
	switch n := v.(type) {
	case nil:
		return 0
	case int:
		return uint64(n)
	case int32:
		return uint64(n)
	case int64:
		return uint64(n)
	case uint8:
		return uint64(n)
	case uint16:
		return uint64(n)
	case uint32:
		return uint64(n)
	case uint64:
		return n
	}
	panic(fmt.Sprintf("testutil: unsupported value %T", v))
}

// BuildUTF encodes t as a plain "@UTF" table packet.
func BuildUTF(t UTFTable) []byte {
	w := &utfWriter{offsets: make(map[string]uint32)}
	w.str("<NULL>")
	nameOff := w.str(t.Name)

	var columns []byte
	rowLen := 0
	for _, c := range t.Columns {
		columns = append(columns, c.Flags)
		columns = binary.BigEndian.AppendUint32(columns, w.str(c.Name))
		typ := c.Flags & 0x0F
		switch c.Flags & 0xF0 {
		case StorageConstant:
			columns = w.value(columns, typ, c.Constant)
		case StoragePerRow:
			rowLen += utfSize(typ)
		}
	}

	var rows []byte
	for _, r := range t.Rows {
		for _, c := range t.Columns {
			if c.Flags&0xF0 == StoragePerRow {
				rows = w.value(rows, c.Flags&0x0F, r[c.Name])
			}
		}
	}

	const fixed = 24
	rowsOff := fixed + len(columns)
	stringsOff := rowsOff + len(rows)
	dataOff := stringsOff + len(w.strings)

	body := make([]byte, 0, dataOff+len(w.data))
	body = binary.BigEndian.AppendUint32(body, uint32(rowsOff))
	body = binary.BigEndian.AppendUint32(body, uint32(stringsOff))
	body = binary.BigEndian.AppendUint32(body, uint32(dataOff))
	body = binary.BigEndian.AppendUint32(body, nameOff)
	body = binary.BigEndian.AppendUint16(body, uint16(len(t.Columns)))
	body = binary.BigEndian.AppendUint16(body, uint16(rowLen))
	body = binary.BigEndian.AppendUint32(body, uint32(len(t.Rows)))
	body = append(body, columns...)
	body = append(body, rows...)
	body = append(body, w.strings...)
	body = append(body, w.data...)

	packet := append([]byte("@UTF"), 0, 0, 0, 0)
	binary.BigEndian.PutUint32(packet[4:], uint32(len(body)))
	return append(packet, body...)
}
