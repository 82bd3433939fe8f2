package utf

import (
	"fmt"
	"math"
	"strconv"
)

// Type is the primitive type code stored in the low nibble of a column flag.
type Type uint8

const (
	TypeUint8   Type = 0x0
	TypeInt8    Type = 0x1
	TypeUint16  Type = 0x2
	TypeInt16   Type = 0x3
	TypeUint32  Type = 0x4
	TypeInt32   Type = 0x5
	TypeUint64  Type = 0x6
	TypeInt64   Type = 0x7
	TypeFloat32 Type = 0x8
	TypeFloat64 Type = 0x9
	TypeString  Type = 0xA
	TypeData    Type = 0xB
)

// Size returns the number of bytes a value of type t occupies in a row or
// inline constant. Strings are a 4-byte pool offset; data is a 4-byte offset
// plus a 4-byte length. Unknown types report 0.
func (t Type) Size() int {
	switch t {
	case TypeUint8, TypeInt8:
		return 1
	case TypeUint16, TypeInt16:
		return 2
	case TypeUint32, TypeInt32, TypeFloat32, TypeString:
		return 4
	case TypeUint64, TypeInt64, TypeFloat64, TypeData:
		return 8
	default:
		return 0
	}
}

// String returns the type name.
func (t Type) String() string {
	switch t {
	case TypeUint8:
		return "uint8"
	case TypeInt8:
		return "int8"
	case TypeUint16:
		return "uint16"
	case TypeInt16:
		return "int16"
	case TypeUint32:
		return "uint32"
	case TypeInt32:
		return "int32"
	case TypeUint64:
		return "uint64"
	case TypeInt64:
		return "int64"
	case TypeFloat32:
		return "float32"
	case TypeFloat64:
		return "float64"
	case TypeString:
		return "string"
	case TypeData:
		return "data"
	default:
		return fmt.Sprintf("type(%#x)", uint8(t))
	}
}

// Storage is the storage class stored in the high nibble of a column flag.
type Storage uint8

const (
	StorageNone      Storage = 0x00
	StorageZero      Storage = 0x10
	StorageConstant  Storage = 0x30
	StoragePerRow    Storage = 0x50
	StorageConstant2 Storage = 0x70
)

// Field describes one column of a table schema.
type Field struct {
	Name    string
	Type    Type
	Storage Storage

	// Constant is the table-wide value for columns that are not stored per row.
	Constant Value
}

// PerRow reports whether the column stores one value in every row.
func (f *Field) PerRow() bool {
	return f.Storage == StoragePerRow
}

// Value is one decoded cell.
type Value struct {
	Type Type
	num  uint64
	str  string
	data []byte
}

// Uint returns the cell as an unsigned integer. Signed columns are returned
// with their bits sign-extended to 64 bits; floats return their truncation.
func (v Value) Uint() uint64 {
	switch v.Type {
	case TypeInt8:
		return uint64(int64(int8(v.num)))
	case TypeInt16:
		return uint64(int64(int16(v.num)))
	case TypeInt32:
		return uint64(int64(int32(v.num)))
	case TypeFloat32, TypeFloat64:
		return uint64(v.Float())
	default:
		return v.num
	}
}

// Float returns the cell as a float64.
func (v Value) Float() float64 {
	switch v.Type {
	case TypeFloat32:
		return float64(math.Float32frombits(uint32(v.num)))
	case TypeFloat64:
		return math.Float64frombits(v.num)
	default:
		return float64(v.num)
	}
}

// Bytes returns the cell's byte array for data columns and nil otherwise.
// The slice aliases the table packet.
func (v Value) Bytes() []byte {
	return v.data
}

// String returns string cells verbatim and a decimal rendering of numbers.
func (v Value) String() string {
	switch v.Type {
	case TypeString:
		return v.str
	case TypeData:
		return fmt.Sprintf("data[%d]", len(v.data))
	case TypeFloat32, TypeFloat64:
		return strconv.FormatFloat(v.Float(), 'g', -1, 64)
	case TypeInt8, TypeInt16, TypeInt32, TypeInt64:
		return strconv.FormatInt(int64(v.Uint()), 10)
	default:
		return strconv.FormatUint(v.num, 10)
	}
}
