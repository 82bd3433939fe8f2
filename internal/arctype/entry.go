package arctype

// Entry is the metadata of one file stored inside a container.
//
// Entries are produced by the format codecs at open time. Payload bytes are
// never held here; see the codec packages for payload access.
type Entry struct {
	// ID identifies the entry within its archive. MPK stores it explicitly;
	// CPK assigns it sequentially in table order.
	ID uint32

	// Name is the path-like entry name, decoded for display.
	Name string

	// RawName holds the name bytes exactly as stored, without the terminator.
	RawName []byte

	// DataOffset is the byte offset of the stored payload within the container.
	DataOffset uint64

	// CompressedSize is the number of payload bytes stored in the container.
	CompressedSize uint64

	// UncompressedSize is the payload size after decompression.
	UncompressedSize uint64

	// Compression is the method used for the stored payload.
	Compression Compression

	// HeaderOffset is the byte offset of the entry's own header record.
	HeaderOffset uint64
}

// End returns the offset one past the last stored payload byte.
// ok is false when the sum overflows.
func (e *Entry) End() (end uint64, ok bool) {
	end = e.DataOffset + e.CompressedSize
	return end, end >= e.DataOffset
}
