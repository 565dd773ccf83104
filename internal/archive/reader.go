// Package archive reads package archives and binds their contents to
// descriptor entries.
//
// An archive optionally starts with a NUL-terminated header, followed by
// records of a 2-byte big-endian name length, the name, and the file data.
// The data length is not stored in the archive; it comes from the
// descriptor entry the name binds to. A zero-length name ends the archive.
package archive

import (
	"bufio"
	"errors"
	"fmt"
	"io"

	"github.com/spf13/afero"

	"github.com/meigma/inst/internal/idb"
)

// Sentinel errors.
var (
	// ErrTruncated is returned when a record or payload runs past the end
	// of the archive.
	ErrTruncated = errors.New("archive: truncated")
)

// minHeader is the number of bytes that must precede the first NUL for it to
// terminate a header rather than belong to the first record.
const minHeader = 2

// maxHeader bounds the search for the header terminator.
const maxHeader = 64 << 10

// Binder binds archive names to descriptor entries.
type Binder interface {
	Bind(name string, src idb.Source, offset, avail int64) (int64, error)
}

// ByteSource provides random access to the archive.
type ByteSource interface {
	io.ReaderAt
}

// Reader provides random access to one archive's data.
type Reader struct {
	name   string
	source ByteSource
	size   int64
	closer io.Closer
	bound  int
}

var _ idb.Source = (*Reader)(nil)

// Open opens the archive at path on fsys and binds its contents through b.
//
// The returned Reader is usable even when err is non-nil: entries bound
// before the failure keep their binding and read through it. Callers must
// Close the reader in either case.
func Open(fsys afero.Fs, path string, b Binder) (*Reader, error) {
	f, err := fsys.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open archive %s: %w", path, err)
	}
	info, err := f.Stat()
	if err != nil {
		_ = f.Close()
		return nil, fmt.Errorf("stat archive %s: %w", path, err)
	}

	r, err := New(path, f, info.Size(), b)
	r.closer = f
	return r, err
}

// New walks the archive in source and binds its contents through b.
// name identifies the archive; its base name drives binding.
func New(name string, source ByteSource, size int64, b Binder) (*Reader, error) {
	r := &Reader{
		name:   name,
		source: source,
		size:   size,
	}
	if err := r.walk(b); err != nil {
		return r, fmt.Errorf("archive %s: %w", name, err)
	}
	return r, nil
}

// walk reads the name stream, binding each name and skipping its data.
func (r *Reader) walk(b Binder) error {
	offset, err := r.skipHeader()
	if err != nil {
		return err
	}
	br := bufio.NewReader(io.NewSectionReader(r.source, offset, r.size-offset))

	var lenBuf [2]byte
	for {
		if _, err := io.ReadFull(br, lenBuf[:]); err != nil {
			switch {
			case errors.Is(err, io.EOF):
				return nil
			case errors.Is(err, io.ErrUnexpectedEOF):
				return fmt.Errorf("%w: name length at offset %d", ErrTruncated, offset)
			default:
				return err
			}
		}
		offset += 2

		n := int(lenBuf[0])<<8 | int(lenBuf[1])
		if n == 0 {
			return nil
		}
		name := make([]byte, n)
		if _, err := io.ReadFull(br, name); err != nil {
			return fmt.Errorf("%w: name at offset %d", ErrTruncated, offset)
		}
		offset += int64(n)

		length, err := b.Bind(string(name), r, offset, r.size-offset)
		if errors.Is(err, idb.ErrOversize) {
			return fmt.Errorf("%w: %w", ErrTruncated, err)
		}
		if err != nil {
			return err
		}
		r.bound++
		if _, err := br.Discard(int(length)); err != nil {
			return fmt.Errorf("%w: data of %s", ErrTruncated, name)
		}
		offset += length
	}
}

// skipHeader returns the offset of the first record.
func (r *Reader) skipHeader() (int64, error) {
	br := bufio.NewReader(io.NewSectionReader(r.source, 0, min(r.size, maxHeader)))
	header, err := br.ReadBytes(0)
	if err != nil {
		if errors.Is(err, io.EOF) {
			return 0, nil
		}
		return 0, err
	}
	if len(header)-1 < minHeader {
		return 0, nil
	}
	return int64(len(header)), nil
}

// Name returns the archive path.
func (r *Reader) Name() string {
	return r.name
}

// Size returns the archive size in bytes.
func (r *Reader) Size() int64 {
	return r.size
}

// Bound returns how many entries the archive bound.
func (r *Reader) Bound() int {
	return r.bound
}

// ReadAt implements io.ReaderAt over the whole archive.
func (r *Reader) ReadAt(p []byte, off int64) (int, error) {
	return r.source.ReadAt(p, off)
}

// Read returns length bytes at offset.
func (r *Reader) Read(offset, length int64) ([]byte, error) {
	if offset < 0 || length < 0 || length > r.size-offset {
		return nil, fmt.Errorf("read %s: %w (offset %d, length %d)", r.name, ErrTruncated, offset, length)
	}
	buf := make([]byte, length)
	n, err := r.source.ReadAt(buf, offset)
	if n == len(buf) {
		return buf, nil
	}
	if err == nil || errors.Is(err, io.EOF) {
		err = ErrTruncated
	}
	return nil, fmt.Errorf("read %s: %w", r.name, err)
}

// Close releases the underlying file, if the Reader owns one.
func (r *Reader) Close() error {
	if r.closer == nil {
		return nil
	}
	return r.closer.Close()
}
