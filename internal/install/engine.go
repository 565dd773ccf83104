// Package install replays descriptor entries onto a target root.
//
// Install runs three passes over the entries it is given: extraction,
// attributes, and exit hooks. Uninstall walks the entries in reverse so
// children go before their parents. Per-entry failures are logged as
// warnings and never abort the run.
package install

import (
	"context"
	"fmt"
	"io"

	"github.com/spf13/afero"
	"go.uber.org/zap"

	"github.com/meigma/inst/internal/fileops"
	"github.com/meigma/inst/internal/idb"
	"github.com/meigma/inst/internal/pathutil"
	"github.com/meigma/inst/internal/platform"
	"github.com/meigma/inst/internal/ugid"
)

const msgNotRoot = "not running as root, not changing file ownership"

// Engine installs and removes entries below a target root.
type Engine struct {
	root       string
	ops        *fileops.Ops
	log        *zap.Logger
	resolver   *ugid.Resolver
	hooks      io.Writer
	privileged bool
	pool       *fileops.DecompressPool

	warnedOwner bool
}

// Option configures an Engine.
type Option func(*Engine)

// WithFS sets the target filesystem. The default is the host filesystem.
func WithFS(fsys afero.Fs) Option {
	return func(e *Engine) {
		e.ops = fileops.New(fsys)
	}
}

// WithLogger sets the logger for progress and warnings.
func WithLogger(log *zap.Logger) Option {
	return func(e *Engine) {
		if log != nil {
			e.log = log
		}
	}
}

// WithResolver sets the user and group resolver used for ownership.
func WithResolver(r *ugid.Resolver) Option {
	return func(e *Engine) {
		if r != nil {
			e.resolver = r
		}
	}
}

// WithHookOutput prints hook commands to w. Hooks are never executed.
// With a nil writer (the default) hooks are ignored.
func WithHookOutput(w io.Writer) Option {
	return func(e *Engine) {
		e.hooks = w
	}
}

// WithPrivileged overrides whether ownership changes are attempted.
// The default is true when running as root.
func WithPrivileged(privileged bool) Option {
	return func(e *Engine) {
		e.privileged = privileged
	}
}

// WithDecompressPool sets the pool used to decode compressed payloads.
func WithDecompressPool(p *fileops.DecompressPool) Option {
	return func(e *Engine) {
		if p != nil {
			e.pool = p
		}
	}
}

// New returns an Engine installing below root.
func New(root string, opts ...Option) *Engine {
	e := &Engine{
		root:       root,
		ops:        fileops.New(afero.NewOsFs()),
		log:        zap.NewNop(),
		resolver:   ugid.Fallback(),
		privileged: platform.Privileged(),
		pool:       fileops.NewDecompressPool(0),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Install extracts entries, then sets their attributes, then prints their
// exit hooks. It stops early only when ctx is done.
func (e *Engine) Install(ctx context.Context, entries []*idb.Entry) error {
	if !e.privileged && !e.warnedOwner {
		e.log.Warn(msgNotRoot)
		e.warnedOwner = true
	}

	for i, ent := range entries {
		if err := ctx.Err(); err != nil {
			return err
		}
		e.extract(ent, entries[:i])
	}
	for _, ent := range entries {
		if err := ctx.Err(); err != nil {
			return err
		}
		e.attributes(ent)
	}
	for _, ent := range entries {
		if err := ctx.Err(); err != nil {
			return err
		}
		e.hook(ent.ExitOp)
	}
	return nil
}

// Uninstall runs each entry's remove hook and removes it, last entry first.
func (e *Engine) Uninstall(ctx context.Context, entries []*idb.Entry) error {
	for i := len(entries) - 1; i >= 0; i-- {
		if err := ctx.Err(); err != nil {
			return err
		}
		e.remove(entries[i])
	}
	return nil
}

func (e *Engine) target(ent *idb.Entry) (string, bool) {
	name, err := pathutil.Join(e.root, ent.Path)
	if err != nil {
		e.log.Warn("skipping entry", zap.String("path", ent.Path), zap.Error(err))
		return "", false
	}
	return name, true
}

func (e *Engine) hook(cmd string) {
	if cmd == "" || e.hooks == nil {
		return
	}
	if _, err := fmt.Fprintln(e.hooks, cmd); err != nil {
		e.log.Debug("hook output failed", zap.Error(err))
	}
}

// attributes applies mode and ownership to everything but links and
// deletion markers.
func (e *Engine) attributes(ent *idb.Entry) {
	if ent.Kind == idb.KindSymlink || ent.Kind == idb.KindDeletion || ent.Kind == idb.KindSpecial {
		return
	}
	name, ok := e.target(ent)
	if !ok {
		return
	}
	if err := e.ops.Chmod(name, ent.Mode); err != nil {
		e.log.Warn("can't change mode", zap.String("path", name), zap.Error(err))
	}
	if !e.privileged {
		return
	}
	uid, gid, ok := e.resolver.IDs(ent.Owner, ent.Group)
	if !ok {
		e.log.Debug("unknown owner, keeping ownership",
			zap.String("path", name), zap.String("owner", ent.Owner), zap.String("group", ent.Group))
		return
	}
	if err := e.ops.Chown(name, uid, gid); err != nil {
		e.log.Warn("can't change owner", zap.String("path", name), zap.Error(err))
	}
}

func (e *Engine) remove(ent *idb.Entry) {
	if ent.Kind == idb.KindDeletion {
		return
	}
	name, ok := e.target(ent)
	if !ok {
		return
	}
	e.log.Debug("removing", zap.String("path", name))
	e.hook(ent.RemoveOp)

	var err error
	if ent.Kind == idb.KindDirectory {
		err = e.ops.Rmdir(name)
	} else {
		err = e.ops.Unlink(name)
	}
	if err != nil {
		e.log.Warn("could not remove", zap.String("path", name), zap.Error(err))
	}
}
