package inst

import (
	"errors"

	"github.com/meigma/inst/internal/archive"
	"github.com/meigma/inst/internal/fileops"
	"github.com/meigma/inst/internal/idb"
	"github.com/meigma/inst/internal/mach"
	"github.com/meigma/inst/internal/pathutil"
)

// ErrNoDescriptor is returned by Open when the descriptor cannot be read.
var ErrNoDescriptor = errors.New("inst: cannot open descriptor")

// Errors re-exported from the descriptor and archive readers.
var (
	// ErrNoEntry is returned when an archive names a file the descriptor does not list.
	ErrNoEntry = idb.ErrNoEntry

	// ErrPattern is returned for a subsystem pattern that is not a valid regular expression.
	ErrPattern = idb.ErrPattern

	// ErrTruncated is returned when an archive ends inside a record.
	ErrTruncated = archive.ErrTruncated

	// ErrMalformedTag is returned for a machine tag argument without '='.
	ErrMalformedTag = mach.ErrMalformedTag
)

// Errors re-exported from filesystem handling.
var (
	// ErrOutsideRoot is returned for descriptor paths that climb out of the target root.
	ErrOutsideRoot = pathutil.ErrOutsideRoot

	// ErrUnknownFormat is returned for a compressed payload of unknown encoding.
	ErrUnknownFormat = fileops.ErrUnknownFormat

	// ErrCorrupt is returned for malformed compress(1) payloads.
	ErrCorrupt = fileops.ErrCorrupt
)
