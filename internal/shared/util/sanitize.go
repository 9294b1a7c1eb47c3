package util

import (
	"errors"
	"strings"
)

// ErrInvalidFileName rejects names that cannot be made safe.
var ErrInvalidFileName = errors.New("invalid file name")

// SanitizeFileName makes an upload name safe to embed in a storage key.
// Traversal sequences are rejected outright; path separators and control
// characters are replaced with underscores.
func SanitizeFileName(name string) (string, error) {
	name = strings.TrimSpace(name)
	if name == "" || strings.Contains(name, "..") {
		return "", ErrInvalidFileName
	}
	var b strings.Builder
	b.Grow(len(name))
	for _, r := range name {
		switch {
		case r == '/' || r == '\\':
			b.WriteRune('_')
		case r < 0x20 || r == 0x7f:
			b.WriteRune('_')
		default:
			b.WriteRune(r)
		}
	}
	return b.String(), nil
}
