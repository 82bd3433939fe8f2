package arctype

// Compression identifies how an entry's payload is stored in the container.
type Compression uint8

const (
	CompressionNone Compression = iota
	CompressionDeflate
	CompressionLayla
)

// String returns the human-readable name of the compression method.
func (c Compression) String() string {
	switch c {
	case CompressionNone:
		return "none"
	case CompressionDeflate:
		return "deflate"
	case CompressionLayla:
		return "crilayla"
	default:
		return "unknown"
	}
}
