package install

import (
	"io"
	"strings"

	"go.uber.org/zap"

	"github.com/meigma/inst/internal/fileops"
	"github.com/meigma/inst/internal/idb"
)

// extract creates one entry on the target. earlier holds the entries before
// it in install order, the candidates for a hardlink source.
func (e *Engine) extract(ent *idb.Entry, earlier []*idb.Entry) {
	name, ok := e.target(ent)
	if !ok {
		return
	}
	e.log.Debug("extracting", zap.String("path", name), zap.Stringer("kind", ent.Kind))

	if _, err := e.ops.EnsureParent(name); err != nil {
		e.log.Warn("can't create parent directory", zap.String("path", name), zap.Error(err))
		return
	}

	e.hook(ent.PreOp)
	if e.create(ent, name, earlier) {
		ent.MarkWritten()
	}
	e.hook(ent.PostOp)
}

// create performs the kind-specific action and reports whether it succeeded.
func (e *Engine) create(ent *idb.Entry, name string, earlier []*idb.Entry) bool {
	switch ent.Kind {
	case idb.KindDirectory:
		if err := e.ops.Mkdir(name, fileops.DirMode); err != nil {
			e.log.Warn("can't create directory", zap.String("path", name), zap.Error(err))
			return false
		}
		return true

	case idb.KindSymlink:
		if !e.predelete(name) {
			return false
		}
		if err := e.ops.Symlink(ent.SymlinkTarget, name); err != nil {
			e.log.Warn("can't create symlink", zap.String("path", name),
				zap.String("target", ent.SymlinkTarget), zap.Error(err))
			return false
		}
		return true

	case idb.KindDeletion:
		return e.predelete(name)

	case idb.KindSpecial:
		e.log.Warn("unsupported entry type, skipping", zap.String("path", name), zap.String("type", ent.Type))
		return false

	case idb.KindHardlink:
		if src := linkSource(ent, earlier); src != nil {
			return e.link(name, src)
		}
	}
	return e.file(ent, name)
}

// linkSource returns the last earlier entry of the same link group that has
// been written.
func linkSource(ent *idb.Entry, earlier []*idb.Entry) *idb.Entry {
	var src *idb.Entry
	for _, o := range earlier {
		if o.LinkGroup == ent.LinkGroup && o.Written() {
			src = o
		}
	}
	return src
}

func (e *Engine) link(name string, src *idb.Entry) bool {
	oldname, ok := e.target(src)
	if !ok || !e.predelete(name) {
		return false
	}
	if err := e.ops.Link(oldname, name); err != nil {
		e.log.Warn("can't link", zap.String("path", name), zap.String("source", oldname), zap.Error(err))
		return false
	}
	return true
}

func (e *Engine) predelete(name string) bool {
	if err := e.ops.Unlink(name); err != nil {
		e.log.Warn("can't remove existing file", zap.String("path", name), zap.Error(err))
		return false
	}
	return true
}

// file writes a regular entry's payload.
func (e *Engine) file(ent *idb.Entry, name string) bool {
	b := ent.Binding()
	if b == nil && ent.Length() != 0 {
		e.log.Warn("no archive data", zap.String("path", name), zap.String("type", ent.Type))
		return false
	}
	if !e.predelete(name) {
		return false
	}

	var src io.Reader = strings.NewReader("")
	if b != nil {
		src = io.NewSectionReader(b.Source, b.Offset, ent.Length())
	}
	if ent.Compressed() {
		dec, format, release, err := e.pool.Open(src)
		if err != nil {
			e.log.Warn("can't decode payload", zap.String("path", name), zap.Error(err))
			return false
		}
		defer release()
		e.log.Debug("decoding payload", zap.String("path", name), zap.Stringer("format", format))
		src = dec
	}

	w, err := e.ops.WriteFile(name, src)
	if err != nil {
		e.log.Warn("can't write file", zap.String("path", name), zap.Error(err))
		return false
	}
	if ent.HasSize && w.Size != ent.Size {
		e.log.Warn("size mismatch", zap.String("path", name),
			zap.Int64("expected", ent.Size), zap.Int64("written", w.Size))
	}
	e.log.Debug("wrote file", zap.String("path", name),
		zap.Int64("size", w.Size), zap.Stringer("digest", w.Digest))
	return true
}
