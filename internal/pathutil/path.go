// Package pathutil normalizes entry names, which archives store with either
// slash or backslash separators.
package pathutil

import (
	"path/filepath"
	"strings"
)

// ToSlash returns name with every backslash replaced by a slash.
func ToSlash(name string) string {
	return strings.ReplaceAll(name, `\`, "/")
}

// Equal reports whether two entry names match, ignoring case and separator style.
func Equal(a, b string) bool {
	return strings.EqualFold(ToSlash(a), ToSlash(b))
}

// Local converts an entry name to a relative OS path. ok is false when the
// name is absolute, empty, or would escape the directory it is joined to.
func Local(name string) (path string, ok bool) {
	path = filepath.FromSlash(ToSlash(name))
	if !filepath.IsLocal(path) {
		return "", false
	}
	return filepath.Clean(path), true
}
