package vnarc

import "github.com/meigma/vnarc/internal/arctype"

// Errors re-exported from arctype.
var (
	// ErrUnrecognizedFormat is returned when the stream matches no known container signature.
	ErrUnrecognizedFormat = arctype.ErrUnrecognizedFormat

	// ErrUnsupportedVersion is returned for a recognized container with an unhandled revision.
	ErrUnsupportedVersion = arctype.ErrUnsupportedVersion

	// ErrInvalidData is returned for truncated or corrupt container data.
	ErrInvalidData = arctype.ErrInvalidData

	// ErrNotFound is returned when an entry lookup has no match.
	ErrNotFound = arctype.ErrNotFound

	// ErrNotSupported is returned when the format or open mode does not allow an operation.
	ErrNotSupported = arctype.ErrNotSupported

	// ErrAmbiguousName is returned when a name lookup matches more than one entry.
	ErrAmbiguousName = arctype.ErrAmbiguousName

	// ErrSizeOverflow is returned when a size exceeds what the format or a limit allows.
	ErrSizeOverflow = arctype.ErrSizeOverflow

	// ErrDecompression is returned when a payload fails to decompress.
	// It wraps ErrInvalidData.
	ErrDecompression = arctype.ErrDecompression
)
