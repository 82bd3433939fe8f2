package arctype

import (
	"errors"
	"fmt"
)

var (
	// ErrUnrecognizedFormat is returned when no codec matches the container signature.
	ErrUnrecognizedFormat = errors.New("vnarc: unrecognized format")

	// ErrUnsupportedVersion is returned for a known format family with an unhandled revision.
	ErrUnsupportedVersion = errors.New("vnarc: unsupported version")

	// ErrInvalidData is returned for truncated or corrupt container data.
	ErrInvalidData = errors.New("vnarc: invalid data")

	// ErrNotFound is returned when an entry lookup has no match.
	ErrNotFound = errors.New("vnarc: entry not found")

	// ErrNotSupported is returned when an operation is unavailable for the
	// archive's format or mode.
	ErrNotSupported = errors.New("vnarc: not supported")

	// ErrAmbiguousName is returned when a name lookup matches more than one entry.
	ErrAmbiguousName = errors.New("vnarc: ambiguous entry name")

	// ErrSizeOverflow is returned when a size or offset exceeds what the
	// format or platform can represent.
	ErrSizeOverflow = errors.New("vnarc: size overflow")

	// ErrDecompression is returned when a payload fails to decompress.
	ErrDecompression = fmt.Errorf("%w: decompression failed", ErrInvalidData)
)
