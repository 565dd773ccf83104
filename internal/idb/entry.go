package idb

import (
	"io"
	"io/fs"
	"strconv"
)

// Known tag names.
const (
	TagSize           = "size"
	TagCompressedSize = "cmpsize"
	TagSymlinkTarget  = "symval"
	TagLinkGroup      = "f"
	TagMach           = "mach"
	TagPreOp          = "preop"
	TagPostOp         = "postop"
	TagExitOp         = "exitop"
	TagRemoveOp       = "removeop"
	TagDeleteHistory  = "delhist"
)

// Kind selects the installation behaviour of an entry.
type Kind uint8

const (
	KindRegular Kind = iota
	KindCompressed
	KindDirectory
	KindSymlink
	KindDeletion
	KindHardlink
	KindSpecial
)

func (k Kind) String() string {
	switch k {
	case KindRegular:
		return "regular"
	case KindCompressed:
		return "compressed"
	case KindDirectory:
		return "directory"
	case KindSymlink:
		return "symlink"
	case KindDeletion:
		return "deletion"
	case KindHardlink:
		return "hardlink"
	case KindSpecial:
		return "special"
	default:
		return "unknown"
	}
}

// Source is the archive an entry's data is bound to.
type Source interface {
	io.ReaderAt
	Name() string
}

// Binding locates an entry's payload inside an archive.
type Binding struct {
	Source Source
	Offset int64
}

// Entry is one descriptor line.
type Entry struct {
	Type      string
	Kind      Kind
	Mode      fs.FileMode
	Owner     string
	Group     string
	Path      string
	Opaque    string
	Subsystem string

	Size           int64
	HasSize        bool
	CompressedSize int64
	SymlinkTarget  string
	LinkGroup      string
	Mach           string
	HasMach        bool

	PreOp    string
	PostOp   string
	ExitOp   string
	RemoveOp string

	// Extra holds tags without a dedicated field.
	Extra map[string]string

	binding *Binding
	written bool
}

// Length is the number of archive bytes holding the payload.
func (e *Entry) Length() int64 {
	if e.CompressedSize != 0 {
		return e.CompressedSize
	}
	return e.Size
}

// Compressed reports whether the archived payload is compressed.
func (e *Entry) Compressed() bool {
	return e.CompressedSize != 0
}

// Binding returns the archive location of the payload, or nil if unbound.
func (e *Entry) Binding() *Binding {
	return e.binding
}

// Bound reports whether the entry has been bound to an archive.
func (e *Entry) Bound() bool {
	return e.binding != nil
}

// Written reports whether the entry has been installed in this session.
func (e *Entry) Written() bool {
	return e.written
}

// MarkWritten records that the entry now exists on the target.
func (e *Entry) MarkWritten() {
	e.written = true
}

// Tag returns the raw value of a tag and whether it was present.
func (e *Entry) Tag(name string) (string, bool) {
	switch name {
	case TagSize:
		return strconv.FormatInt(e.Size, 10), e.HasSize
	case TagCompressedSize:
		return strconv.FormatInt(e.CompressedSize, 10), e.CompressedSize != 0
	case TagSymlinkTarget:
		return e.SymlinkTarget, e.SymlinkTarget != ""
	case TagLinkGroup:
		return e.LinkGroup, e.LinkGroup != ""
	case TagMach:
		return e.Mach, e.HasMach
	case TagPreOp:
		return e.PreOp, e.PreOp != ""
	case TagPostOp:
		return e.PostOp, e.PostOp != ""
	case TagExitOp:
		return e.ExitOp, e.ExitOp != ""
	case TagRemoveOp:
		return e.RemoveOp, e.RemoveOp != ""
	}
	v, ok := e.Extra[name]
	return v, ok
}

// set stores a tail tag, routing known names to their fields.
func (e *Entry) set(name, value string) {
	switch name {
	case TagSize:
		e.Size = parseSize(value)
		e.HasSize = true
	case TagCompressedSize:
		e.CompressedSize = parseSize(value)
	case TagSymlinkTarget:
		e.SymlinkTarget = value
	case TagLinkGroup:
		e.LinkGroup = value
	case TagMach:
		e.Mach = value
		e.HasMach = true
	case TagPreOp:
		e.PreOp = value
	case TagPostOp:
		e.PostOp = value
	case TagExitOp:
		e.ExitOp = value
	case TagRemoveOp:
		e.RemoveOp = value
	default:
		if e.Extra == nil {
			e.Extra = make(map[string]string)
		}
		e.Extra[name] = value
	}
}

// classify decides Kind from the type code and tags.
func (e *Entry) classify() {
	switch e.Type {
	case "d":
		e.Kind = KindDirectory
	case "l":
		e.Kind = KindSymlink
	case "X":
		e.Kind = KindDeletion
	case "b", "c", "p":
		e.Kind = KindSpecial
	default:
		switch {
		case e.LinkGroup != "":
			e.Kind = KindHardlink
		case e.CompressedSize != 0:
			e.Kind = KindCompressed
		default:
			e.Kind = KindRegular
		}
	}
}

// parseSize reads a leading decimal number, yielding 0 for garbage.
func parseSize(s string) int64 {
	end := 0
	for end < len(s) && s[end] >= '0' && s[end] <= '9' {
		end++
	}
	n, err := strconv.ParseInt(s[:end], 10, 64)
	if err != nil {
		return 0
	}
	return n
}

// parseMode converts an octal mode string, keeping setuid, setgid and sticky.
func parseMode(s string) fs.FileMode {
	v, err := strconv.ParseUint(s, 8, 32)
	if err != nil {
		return 0
	}
	mode := fs.FileMode(v) & fs.ModePerm
	if v&0o4000 != 0 {
		mode |= fs.ModeSetuid
	}
	if v&0o2000 != 0 {
		mode |= fs.ModeSetgid
	}
	if v&0o1000 != 0 {
		mode |= fs.ModeSticky
	}
	return mode
}
