package utf

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/meigma/vnarc/internal/arctype"
	"github.com/meigma/vnarc/internal/testutil"
)

func sampleTable() testutil.UTFTable {
	return testutil.UTFTable{
		Name: "Sample",
		Columns: []testutil.UTFColumn{
			{Name: "Name", Flags: testutil.StoragePerRow | testutil.TypeString},
			{Name: "Size", Flags: testutil.StoragePerRow | testutil.TypeUint32},
			{Name: "Offset", Flags: testutil.StoragePerRow | testutil.TypeUint64},
			{Name: "Kind", Flags: testutil.StoragePerRow | testutil.TypeUint8},
			{Name: "Delta", Flags: testutil.StoragePerRow | testutil.TypeInt32},
			{Name: "Blob", Flags: testutil.StoragePerRow | testutil.TypeData},
			{Name: "Scale", Flags: testutil.StorageConstant | testutil.TypeFloat32, Constant: float32(1.5)},
			{Name: "Align", Flags: testutil.StorageConstant | testutil.TypeUint16, Constant: 2048},
			{Name: "Unused", Flags: testutil.StorageZero | testutil.TypeUint32},
			{Name: "Vendor", Flags: testutil.StoragePerRow | testutil.TypeString},
		},
		Rows: []map[string]any{
			{"Name": "a.txt", "Size": 5, "Offset": uint64(1) << 40, "Kind": 1, "Delta": int32(-3), "Blob": []byte{1, 2, 3}, "Vendor": "x"},
			{"Name": "b.txt", "Size": 7, "Offset": 99, "Kind": 2, "Delta": int32(4), "Blob": []byte{}, "Vendor": "y"},
		},
	}
}

func TestParse(t *testing.T) {
	t.Parallel()

	tbl, err := Parse(testutil.BuildUTF(sampleTable()))
	require.NoError(t, err)

	assert.Equal(t, "Sample", tbl.Name)
	require.Len(t, tbl.Fields, 10)
	require.Len(t, tbl.Rows, 2)

	assert.Equal(t, TypeString, tbl.Fields[0].Type)
	assert.Equal(t, StoragePerRow, tbl.Fields[0].Storage)
	assert.Equal(t, StorageConstant, tbl.Fields[6].Storage)
	assert.Equal(t, StorageZero, tbl.Fields[8].Storage)

	v, ok := cell(tbl, 0, "Name")
	require.True(t, ok)
	assert.Equal(t, "a.txt", v.String())

	v, _ = cell(tbl, 0, "Offset")
	assert.Equal(t, uint64(1)<<40, v.Uint())

	v, _ = cell(tbl, 0, "Delta")
	assert.Equal(t, "-3", v.String())
	assert.Equal(t, uint64(math.MaxUint64-2), v.Uint())

	v, _ = cell(tbl, 0, "Blob")
	assert.Equal(t, []byte{1, 2, 3}, v.Bytes())

	v, _ = cell(tbl, 1, "Scale")
	assert.InDelta(t, 1.5, v.Float(), 1e-9)

	v, _ = cell(tbl, 1, "Align")
	assert.Equal(t, uint64(2048), v.Uint())

	v, _ = cell(tbl, 1, "Unused")
	assert.Zero(t, v.Uint())

	_, ok = cell(tbl, 5, "Name")
	assert.False(t, ok)
	_, ok = cell(tbl, 0, "Missing")
	assert.False(t, ok)
}

type sampleRow struct {
	Name    string
	Size    uint32
	Offset  uint64
	Missing string
	Extra   map[string]Value
}

var sampleBinding = Binding[sampleRow]{
	"Name":    func(r *sampleRow, v Value) { r.Name = v.String() },
	"Size":    func(r *sampleRow, v Value) { r.Size = uint32(v.Uint()) },
	"Offset":  func(r *sampleRow, v Value) { r.Offset = v.Uint() },
	"Missing": func(r *sampleRow, v Value) { r.Missing = v.String() },
}

func TestBindKeepsUnknownColumns(t *testing.T) {
	t.Parallel()

	tbl, err := Parse(testutil.BuildUTF(sampleTable()))
	require.NoError(t, err)

	rows := Bind(tbl, sampleBinding, func(r *sampleRow, column string, v Value) {
		if r.Extra == nil {
			r.Extra = make(map[string]Value)
		}
		r.Extra[column] = v
	})
	require.Len(t, rows, 2)

	assert.Equal(t, "b.txt", rows[1].Name)
	assert.Equal(t, uint32(7), rows[1].Size)
	assert.Equal(t, uint64(99), rows[1].Offset)
	assert.Empty(t, rows[1].Missing, "fields without a column keep their zero value")

	assert.Len(t, rows[0].Extra, 7)
	assert.Equal(t, "x", rows[0].Extra["Vendor"].String())
	assert.Equal(t, "y", rows[1].Extra["Vendor"].String())

	noExtra := Bind(tbl, sampleBinding, nil)
	assert.Nil(t, noExtra[0].Extra)
}

func TestParseRejectsCorruptTables(t *testing.T) {
	t.Parallel()

	good := testutil.BuildUTF(sampleTable())

	tests := []struct {
		name   string
		mutate func([]byte) []byte
	}{
		{"bad magic", func(b []byte) []byte { b[0] = 'X'; return b }},
		{"short", func(b []byte) []byte { return b[:6] }},
		{"size past end", func(b []byte) []byte { b[4] = 0x7f; return b }},
		{"truncated body", func(b []byte) []byte { return b[:40] }},
		{"unknown type", func(b []byte) []byte { b[8+24] = 0x5F; return b }},
		{"unknown storage", func(b []byte) []byte { b[8+24] = 0x9A; return b }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			data := tt.mutate(append([]byte(nil), good...))
			_, err := Parse(data)
			require.ErrorIs(t, err, arctype.ErrInvalidData)
		})
	}
}

func TestTypeSizes(t *testing.T) {
	t.Parallel()

	assert.Equal(t, 1, TypeInt8.Size())
	assert.Equal(t, 2, TypeUint16.Size())
	assert.Equal(t, 4, TypeString.Size())
	assert.Equal(t, 8, TypeData.Size())
	assert.Equal(t, 0, Type(0xC).Size())
	assert.Equal(t, "float32", TypeFloat32.String())
}

// cell returns the value of the named column in row r.
func cell(tbl *Table, r int, name string) (Value, bool) {
	if r < 0 || r >= len(tbl.Rows) {
		return Value{}, false
	}
	for i := range tbl.Fields {
		if tbl.Fields[i].Name == name {
			return tbl.Rows[r][i], true
		}
	}
	return Value{}, false
}
