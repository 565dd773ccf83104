package inst

import (
	"github.com/meigma/inst/internal/idb"
	"github.com/meigma/inst/internal/mach"
)

// Entry is one descriptor entry.
type Entry = idb.Entry

// Kind classifies an entry by how it is installed.
type Kind = idb.Kind

// Kind values.
const (
	KindRegular    = idb.KindRegular
	KindCompressed = idb.KindCompressed
	KindDirectory  = idb.KindDirectory
	KindSymlink    = idb.KindSymlink
	KindDeletion   = idb.KindDeletion
	KindHardlink   = idb.KindHardlink
	KindSpecial    = idb.KindSpecial
)

// Tags maps machine tags to their values on the target.
type Tags = mach.Tags

// Hint lists the descriptor's values for a machine tag that was not supplied.
type Hint = mach.Hint

// ParseTags converts tag=value arguments into Tags.
func ParseTags(pairs []string) (Tags, error) {
	return mach.ParseTags(pairs)
}
