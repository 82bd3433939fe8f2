package vnarc

import "github.com/meigma/vnarc/internal/arctype"

// Compression identifies how an entry's payload is stored.
type Compression = arctype.Compression

const (
	CompressionNone    = arctype.CompressionNone
	CompressionDeflate = arctype.CompressionDeflate
	CompressionLayla   = arctype.CompressionLayla
)

// Mode selects whether an archive can be edited.
type Mode uint8

const (
	// ModeRead opens an archive for enumeration and extraction.
	ModeRead Mode = iota

	// ModeUpdate additionally allows editing entries and saving the archive.
	// The stream must support writing and truncation.
	ModeUpdate
)

func (m Mode) String() string {
	switch m {
	case ModeRead:
		return "read"
	case ModeUpdate:
		return "update"
	default:
		return "unknown"
	}
}

// Format identifies the container layout an archive was opened from.
type Format uint8

const (
	FormatMPK1 Format = iota + 1
	FormatMPK2
	FormatCPK
)

func (f Format) String() string {
	switch f {
	case FormatMPK1:
		return "mpk-v1"
	case FormatMPK2:
		return "mpk-v2"
	case FormatCPK:
		return "cpk"
	default:
		return "unknown"
	}
}

// Writable reports whether archives of this format support SaveChanges.
func (f Format) Writable() bool {
	return f == FormatMPK1 || f == FormatMPK2
}
