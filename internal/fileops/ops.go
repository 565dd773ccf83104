// Package fileops performs the filesystem operations of an install against
// a target filesystem and decodes compressed payloads.
//
// Every operation returns nil or an *OpError whose Kind classifies the
// failure, so callers can decide between warning and aborting.
package fileops

import (
	"errors"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/spf13/afero"
)

// DirMode is the mode of parent directories created on demand.
const DirMode fs.FileMode = 0o755

// ErrNotSupported is returned when the filesystem cannot perform an operation.
var ErrNotSupported = errors.New("fileops: operation not supported by filesystem")

// ErrIsDir is returned when a non-directory operation meets a directory.
var ErrIsDir = errors.New("fileops: is a directory")

// Kind classifies a failed operation.
type Kind uint8

const (
	KindOther Kind = iota
	KindNotExist
	KindExist
	KindPermission
	KindNotSupported
	KindIsDir
)

func (k Kind) String() string {
	switch k {
	case KindNotExist:
		return "not exist"
	case KindExist:
		return "exist"
	case KindPermission:
		return "permission"
	case KindNotSupported:
		return "not supported"
	case KindIsDir:
		return "is directory"
	default:
		return "other"
	}
}

// OpError records a failed filesystem operation.
type OpError struct {
	Op   string
	Path string
	Kind Kind
	Err  error
}

func (e *OpError) Error() string {
	return e.Op + " " + e.Path + ": " + e.Err.Error()
}

func (e *OpError) Unwrap() error {
	return e.Err
}

// KindOf classifies err. A nil error has no kind and yields KindOther.
func KindOf(err error) Kind {
	var opErr *OpError
	if errors.As(err, &opErr) {
		return opErr.Kind
	}
	return classify(err)
}

func classify(err error) Kind {
	switch {
	case errors.Is(err, fs.ErrNotExist):
		return KindNotExist
	case errors.Is(err, fs.ErrExist):
		return KindExist
	case errors.Is(err, fs.ErrPermission):
		return KindPermission
	case errors.Is(err, ErrNotSupported), errors.Is(err, errors.ErrUnsupported):
		return KindNotSupported
	case errors.Is(err, ErrIsDir):
		return KindIsDir
	default:
		return KindOther
	}
}

func wrap(op, path string, err error) error {
	if err == nil {
		return nil
	}
	return &OpError{Op: op, Path: path, Kind: classify(err), Err: err}
}

// Ops performs operations on a target filesystem.
type Ops struct {
	fs afero.Fs
}

// New returns Ops operating on fsys.
func New(fsys afero.Fs) *Ops {
	return &Ops{fs: fsys}
}

// Fs returns the underlying filesystem.
func (o *Ops) Fs() afero.Fs {
	return o.fs
}

func (o *Ops) lstat(path string) (fs.FileInfo, error) {
	if l, ok := o.fs.(afero.Lstater); ok {
		info, _, err := l.LstatIfPossible(path)
		return info, err
	}
	return o.fs.Stat(path)
}

// Exists reports whether path exists, without following a final symlink.
func (o *Ops) Exists(path string) bool {
	_, err := o.lstat(path)
	return err == nil
}

// EnsureParent creates the parent directory of path with DirMode if it is
// missing. It reports whether anything was created.
func (o *Ops) EnsureParent(path string) (bool, error) {
	dir := filepath.Dir(path)
	if _, err := o.fs.Stat(dir); err == nil {
		return false, nil
	}
	if err := o.fs.MkdirAll(dir, DirMode); err != nil {
		return false, wrap("mkdir", dir, err)
	}
	return true, nil
}

// Mkdir creates a directory. An existing directory is not an error.
func (o *Ops) Mkdir(path string, perm fs.FileMode) error {
	if info, err := o.fs.Stat(path); err == nil {
		if info.IsDir() {
			return nil
		}
		return wrap("mkdir", path, fs.ErrExist)
	}
	return wrap("mkdir", path, o.fs.Mkdir(path, perm))
}

// Unlink removes a non-directory. A missing path is not an error.
func (o *Ops) Unlink(path string) error {
	info, err := o.lstat(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil
		}
		return wrap("unlink", path, err)
	}
	if info.IsDir() {
		return wrap("unlink", path, ErrIsDir)
	}
	return wrap("unlink", path, o.fs.Remove(path))
}

// Rmdir removes an empty directory.
func (o *Ops) Rmdir(path string) error {
	info, err := o.lstat(path)
	if err != nil {
		return wrap("rmdir", path, err)
	}
	if !info.IsDir() {
		return wrap("rmdir", path, errors.New("not a directory"))
	}
	return wrap("rmdir", path, o.fs.Remove(path))
}

// Symlink creates path as a symbolic link to target. target is stored
// verbatim.
func (o *Ops) Symlink(target, path string) error {
	l, ok := o.fs.(afero.Linker)
	if !ok {
		return wrap("symlink", path, ErrNotSupported)
	}
	return wrap("symlink", path, l.SymlinkIfPossible(target, path))
}

// Link creates path as a hard link to existing.
func (o *Ops) Link(existing, path string) error {
	if _, ok := o.fs.(*afero.OsFs); !ok {
		return wrap("link", path, ErrNotSupported)
	}
	return wrap("link", path, os.Link(existing, path))
}

// Chmod sets the mode of path.
func (o *Ops) Chmod(path string, mode fs.FileMode) error {
	return wrap("chmod", path, o.fs.Chmod(path, mode))
}

// Chown sets the owner of path.
func (o *Ops) Chown(path string, uid, gid int) error {
	return wrap("chown", path, o.fs.Chown(path, uid, gid))
}
