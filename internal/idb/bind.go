package idb

import (
	"fmt"
	"strings"

	"github.com/meigma/inst/internal/pathutil"
)

// Bind attaches the archive payload named name at offset in src to the first
// suitable entry and returns the number of archive bytes the payload spans.
// avail is the number of archive bytes left at offset.
//
// An entry is suitable when its path equals name, it expects data, it is not
// yet bound, and its subsystem or opaque field relates to the archive's base
// name (see archiveMatches). Returns ErrNoEntry when nothing qualifies, and
// ErrOversize, leaving the entry unbound, when its payload needs more than
// avail bytes.
func (d *Descriptor) Bind(name string, src Source, offset, avail int64) (int64, error) {
	archive := pathutil.Base(src.Name())
	for _, e := range d.entries {
		if e.Path != name || e.Size == 0 || e.binding != nil {
			continue
		}
		if !archiveMatches(e.Subsystem, archive) && !archiveMatches(e.Opaque, archive) {
			continue
		}
		if n := e.Length(); n > avail {
			return n, fmt.Errorf("%w: %s needs %d bytes at offset %d, %d left", ErrOversize, name, n, offset, avail)
		}
		e.binding = &Binding{Source: src, Offset: offset}
		return e.Length(), nil
	}
	return 0, fmt.Errorf("%w for %s in %s", ErrNoEntry, name, archive)
}

// archiveMatches reports whether field names the archive: either field starts
// with the archive name, or the archive name starts with field cut at its
// first dot. Packages whose subsystems share a prefix can match each other's
// archives.
func archiveMatches(field, archive string) bool {
	if field == "" {
		return false
	}
	if strings.HasPrefix(field, archive) {
		return true
	}
	base := pathutil.StripDotted(field)
	return base != "" && strings.HasPrefix(archive, base)
}
