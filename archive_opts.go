package vnarc

import (
	"log/slog"

	"github.com/klauspost/compress/flate"
	"golang.org/x/text/encoding"
)

// DefaultMaxEntrySize is the default limit for buffering or decoding a single
// entry in memory.
const DefaultMaxEntrySize = 256 << 20

// Option configures an Archive.
type Option func(*config)

type config struct {
	leaveOpen    bool
	logger       *slog.Logger
	names        encoding.Encoding
	tempDir      string
	maxEntrySize uint64
	level        int
}

func defaultConfig() config {
	return config{
		maxEntrySize: DefaultMaxEntrySize,
		level:        flate.DefaultCompression,
	}
}

// WithLeaveOpen controls whether Close leaves the underlying stream open.
// By default, Close closes the stream if it implements io.Closer.
func WithLeaveOpen(leaveOpen bool) Option {
	return func(c *config) {
		c.leaveOpen = leaveOpen
	}
}

// WithLogger sets the logger for archive operations.
// If not set, logging is disabled.
func WithLogger(logger *slog.Logger) Option {
	return func(c *config) {
		c.logger = logger
	}
}

// WithNameEncoding decodes stored entry names with enc, for example
// japanese.ShiftJIS. Names are kept as raw bytes when saving, so the
// encoding never changes what is written.
func WithNameEncoding(enc encoding.Encoding) Option {
	return func(c *config) {
		c.names = enc
	}
}

// WithTempDir sets the directory for the temporary container built by
// SaveChanges. The default, "", builds it in memory.
func WithTempDir(dir string) Option {
	return func(c *config) {
		c.tempDir = dir
	}
}

// WithMaxEntrySize limits how large an entry may be when it is buffered for
// editing or decoded in memory. Set limit to 0 to disable the limit.
func WithMaxEntrySize(limit uint64) Option {
	return func(c *config) {
		c.maxEntrySize = limit
	}
}

// WithCompressionLevel sets the flate level used to re-encode edited
// Deflate entries on save.
func WithCompressionLevel(level int) Option {
	return func(c *config) {
		c.level = level
	}
}
