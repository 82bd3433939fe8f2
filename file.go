package vnarc

import (
	"fmt"
	"os"
)

// OpenFile opens the archive at path. ModeRead opens the file read-only;
// ModeUpdate opens it read-write so SaveChanges can rewrite it in place.
//
// The returned Archive owns the file and closes it on Close; WithLeaveOpen
// is ignored.
func OpenFile(path string, mode Mode, opts ...Option) (*Archive, error) {
	flag := os.O_RDONLY
	if mode == ModeUpdate {
		flag = os.O_RDWR
	}
	f, err := os.OpenFile(path, flag, 0) //nolint:gosec // User-provided path is intentional
	if err != nil {
		return nil, fmt.Errorf("open archive file: %w", err)
	}

	a, err := Open(f, mode, append(opts, WithLeaveOpen(false))...)
	if err != nil {
		f.Close()
		return nil, fmt.Errorf("open %s: %w", path, err)
	}
	return a, nil
}
