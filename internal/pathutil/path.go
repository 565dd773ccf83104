// Package pathutil provides path manipulation for descriptor paths and the
// install target root.
package pathutil

import (
	"errors"
	"fmt"
	"path/filepath"
	"strings"
)

// ErrOutsideRoot is returned when a descriptor path resolves outside the
// target root.
var ErrOutsideRoot = errors.New("pathutil: path escapes target root")

// Base returns the last element of a slash-separated path.
// If path is empty or ".", it returns ".".
func Base(path string) string {
	if path == "" || path == "." {
		return "."
	}
	// Remove trailing slash if present
	path = strings.TrimSuffix(path, "/")
	if i := strings.LastIndex(path, "/"); i >= 0 {
		return path[i+1:]
	}
	return path
}

// StripDotted cuts name at its first dot ("foo.sw.base" becomes "foo").
func StripDotted(name string) string {
	if i := strings.IndexByte(name, '.'); i >= 0 {
		return name[:i]
	}
	return name
}

// Join resolves the slash-separated descriptor path rel below root.
// Paths that climb out of root are rejected.
func Join(root, rel string) (string, error) {
	clean := filepath.Clean(filepath.FromSlash(strings.TrimLeft(rel, "/")))
	if clean == ".." || strings.HasPrefix(clean, ".."+string(filepath.Separator)) {
		return "", fmt.Errorf("%w: %s", ErrOutsideRoot, rel)
	}
	return filepath.Join(root, clean), nil
}
