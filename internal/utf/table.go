package utf

import (
	"bytes"
	"fmt"

	"github.com/meigma/vnarc/internal/arctype"
	"github.com/meigma/vnarc/internal/binutil"
)

// Magic opens every plain (deobfuscated) table packet.
var Magic = []byte("@UTF")

// headerSize is the magic plus the body length field.
const headerSize = 8

// Table is a decoded table: its schema and every row's cells.
type Table struct {
	Name   string
	Fields []Field

	// Rows holds one slice per row with a cell for every field, in schema order.
	Rows [][]Value
}

// IsPlain reports whether packet starts with the table magic, meaning it is
// not obfuscated.
func IsPlain(packet []byte) bool {
	return bytes.HasPrefix(packet, Magic)
}

func invalid(format string, args ...any) error {
	return fmt.Errorf("%w: utf: %s", arctype.ErrInvalidData, fmt.Sprintf(format, args...))
}

// Parse decodes a plain table packet. Offsets inside the table are relative
// to the byte following the length field.
func Parse(packet []byte) (*Table, error) {
	if !IsPlain(packet) {
		return nil, invalid("missing %q magic", Magic)
	}
	c := binutil.NewCursor(packet, len(Magic))
	size, err := c.U32()
	if err != nil {
		return nil, invalid("%v", err)
	}
	if uint64(size) > uint64(len(packet)-headerSize) {
		return nil, invalid("table size %d exceeds packet of %d bytes", size, len(packet))
	}
	body := packet[headerSize : headerSize+int(size)]

	p := parser{body: body, c: binutil.NewCursor(body, 0)}
	return p.parse()
}

type parser struct {
	body    []byte
	c       *binutil.Cursor
	strings []byte
	data    []byte
}

func (p *parser) parse() (*Table, error) {
	var hdr struct {
		rows, strings, data, name uint32
		columns, rowLen           uint16
		rowCount                  uint32
	}
	for _, dst := range []*uint32{&hdr.rows, &hdr.strings, &hdr.data, &hdr.name} {
		v, err := p.c.U32()
		if err != nil {
			return nil, invalid("header: %v", err)
		}
		*dst = v
	}
	var err error
	if hdr.columns, err = p.c.U16(); err != nil {
		return nil, invalid("header: %v", err)
	}
	if hdr.rowLen, err = p.c.U16(); err != nil {
		return nil, invalid("header: %v", err)
	}
	if hdr.rowCount, err = p.c.U32(); err != nil {
		return nil, invalid("header: %v", err)
	}

	if uint64(hdr.strings) > uint64(len(p.body)) || uint64(hdr.data) > uint64(len(p.body)) {
		return nil, invalid("pool offsets %d/%d exceed table of %d bytes", hdr.strings, hdr.data, len(p.body))
	}
	p.strings = p.body[hdr.strings:]
	p.data = p.body[hdr.data:]

	name, err := p.str(hdr.name)
	if err != nil {
		return nil, err
	}
	t := &Table{Name: name, Fields: make([]Field, hdr.columns)}

	for i := range t.Fields {
		if err := p.field(&t.Fields[i]); err != nil {
			return nil, fmt.Errorf("column %d: %w", i, err)
		}
	}

	rowWidth := 0
	for i := range t.Fields {
		if t.Fields[i].PerRow() {
			rowWidth += t.Fields[i].Type.Size()
		}
	}
	if rowWidth > int(hdr.rowLen) {
		return nil, invalid("per-row columns need %d bytes, rows hold %d", rowWidth, hdr.rowLen)
	}

	rowsEnd := uint64(hdr.rows) + uint64(hdr.rowCount)*uint64(hdr.rowLen)
	if rowsEnd > uint64(len(p.body)) || uint64(hdr.rowCount) > uint64(len(p.body)) {
		return nil, invalid("%d rows of %d bytes exceed table of %d bytes", hdr.rowCount, hdr.rowLen, len(p.body))
	}

	t.Rows = make([][]Value, hdr.rowCount)
	for r := range t.Rows {
		p.c.Seek(int(hdr.rows) + r*int(hdr.rowLen))
		row := make([]Value, len(t.Fields))
		for i := range t.Fields {
			f := &t.Fields[i]
			if !f.PerRow() {
				row[i] = f.Constant
				continue
			}
			v, err := p.value(f.Type)
			if err != nil {
				return nil, fmt.Errorf("row %d column %q: %w", r, f.Name, err)
			}
			row[i] = v
		}
		t.Rows[r] = row
	}
	return t, nil
}

func (p *parser) field(f *Field) error {
	flags, err := p.c.U8()
	if err != nil {
		return invalid("%v", err)
	}
	nameOff, err := p.c.U32()
	if err != nil {
		return invalid("%v", err)
	}
	if f.Name, err = p.str(nameOff); err != nil {
		return err
	}
	f.Storage = Storage(flags & 0xF0)
	f.Type = Type(flags & 0x0F)
	if f.Type.Size() == 0 {
		return invalid("column %q has unknown type %#x", f.Name, uint8(f.Type))
	}

	switch f.Storage {
	case StorageNone, StorageZero:
		f.Constant = Value{Type: f.Type}
	case StorageConstant, StorageConstant2:
		v, err := p.value(f.Type)
		if err != nil {
			return fmt.Errorf("constant %q: %w", f.Name, err)
		}
		f.Constant = v
	case StoragePerRow:
	default:
		return invalid("column %q has unknown storage %#x", f.Name, uint8(f.Storage))
	}
	return nil
}

func (p *parser) value(t Type) (Value, error) {
	v := Value{Type: t}
	switch t {
	case TypeString:
		off, err := p.c.U32()
		if err != nil {
			return v, invalid("%v", err)
		}
		if v.str, err = p.str(off); err != nil {
			return v, err
		}
	case TypeData:
		off, err := p.c.U32()
		if err != nil {
			return v, invalid("%v", err)
		}
		n, err := p.c.U32()
		if err != nil {
			return v, invalid("%v", err)
		}
		if uint64(off)+uint64(n) > uint64(len(p.data)) {
			return v, invalid("data [%d,+%d) outside pool of %d bytes", off, n, len(p.data))
		}
		v.data = p.data[off : off+n]
	default:
		n, err := p.c.UintN(t.Size())
		if err != nil {
			return v, invalid("%v", err)
		}
		v.num = n
	}
	return v, nil
}

func (p *parser) str(off uint32) (string, error) {
	s, err := binutil.CString(p.strings, int(off))
	if err != nil {
		return "", invalid("string at %d: %v", off, err)
	}
	return s, nil
}
