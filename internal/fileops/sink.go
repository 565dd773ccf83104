package fileops

import (
	_ "crypto/sha256" // registers digest.Canonical
	"fmt"
	"io"
	"path/filepath"

	"github.com/opencontainers/go-digest"
	"github.com/spf13/afero"
)

// Written describes a committed file.
type Written struct {
	Size   int64
	Digest digest.Digest
}

// Sink writes a file to a temporary path in the destination directory and
// renames it into place on Commit, so a partial payload is never visible at
// the final path.
type Sink struct {
	fs       afero.Fs
	path     string
	tmp      afero.File
	digester digest.Digester
	w        io.Writer
	n        int64
}

// Create returns a Sink for path. The parent directory must exist.
func (o *Ops) Create(path string) (*Sink, error) {
	tmp, err := afero.TempFile(o.fs, filepath.Dir(path), ".inst-*")
	if err != nil {
		return nil, wrap("create", path, err)
	}
	d := digest.Canonical.Digester()
	return &Sink{
		fs:       o.fs,
		path:     path,
		tmp:      tmp,
		digester: d,
		w:        io.MultiWriter(tmp, d.Hash()),
	}, nil
}

// Write implements io.Writer.
func (s *Sink) Write(p []byte) (int, error) {
	n, err := s.w.Write(p)
	s.n += int64(n)
	return n, err
}

// Commit closes the temporary file and renames it to the final path.
func (s *Sink) Commit() (Written, error) {
	tmpPath := s.tmp.Name()
	if err := s.tmp.Close(); err != nil {
		_ = s.fs.Remove(tmpPath) //nolint:errcheck // best-effort cleanup
		return Written{}, wrap("close", tmpPath, err)
	}
	if err := s.fs.Rename(tmpPath, s.path); err != nil {
		_ = s.fs.Remove(tmpPath) //nolint:errcheck // best-effort cleanup
		return Written{}, wrap("rename", s.path, err)
	}
	return Written{Size: s.n, Digest: s.digester.Digest()}, nil
}

// Discard closes and removes the temporary file.
func (s *Sink) Discard() error {
	tmpPath := s.tmp.Name()
	_ = s.tmp.Close() //nolint:errcheck // we're cleaning up
	return s.fs.Remove(tmpPath)
}

// WriteFile copies r into a new file at path.
func (o *Ops) WriteFile(path string, r io.Reader) (Written, error) {
	s, err := o.Create(path)
	if err != nil {
		return Written{}, err
	}
	if _, err := io.Copy(s, r); err != nil {
		_ = s.Discard() //nolint:errcheck // best-effort cleanup
		return Written{}, fmt.Errorf("write %s: %w", path, err)
	}
	return s.Commit()
}
