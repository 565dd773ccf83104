// Package testutil builds package fixtures for tests.
package testutil

import (
	"bytes"
	"encoding/binary"
	"io"
	"os"
	"path/filepath"
	"testing"

	"github.com/klauspost/compress/gzip"
	"github.com/klauspost/compress/zstd"
)

// MockSource implements an in-memory archive source for tests.
type MockSource struct {
	name string
	data []byte
}

// NewMockSource returns a source named name backed by the provided data.
func NewMockSource(name string, data []byte) *MockSource {
	return &MockSource{name: name, data: data}
}

// ReadAt implements io.ReaderAt semantics over the backing slice.
func (m *MockSource) ReadAt(p []byte, off int64) (int, error) {
	if off >= int64(len(m.data)) {
		return 0, io.EOF
	}
	n := copy(p, m.data[off:])
	if n < len(p) {
		return n, io.EOF
	}
	return n, nil
}

// Name returns the archive file name.
func (m *MockSource) Name() string {
	return m.name
}

// Size returns the total size of the backing data.
func (m *MockSource) Size() int64 {
	return int64(len(m.data))
}

// Record is one archived file.
type Record struct {
	Name string
	Data []byte
}

// BuildArchive encodes records in archive layout: an optional NUL-terminated
// header, then length-prefixed names each followed by their data, and a
// zero-length terminator.
func BuildArchive(tb testing.TB, header string, records ...Record) []byte {
	tb.Helper()

	var buf bytes.Buffer
	if header != "" {
		buf.WriteString(header)
		buf.WriteByte(0)
	}
	for _, r := range records {
		if len(r.Name) > 0xffff {
			tb.Fatalf("archive name too long: %d bytes", len(r.Name))
		}
		var n [2]byte
		binary.BigEndian.PutUint16(n[:], uint16(len(r.Name))) //nolint:gosec // checked above
		buf.Write(n[:])
		buf.WriteString(r.Name)
		buf.Write(r.Data)
	}
	buf.Write([]byte{0, 0})
	return buf.Bytes()
}

// Gzip compresses data with gzip.
func Gzip(tb testing.TB, data []byte) []byte {
	tb.Helper()

	var buf bytes.Buffer
	w := gzip.NewWriter(&buf)
	if _, err := w.Write(data); err != nil {
		tb.Fatalf("gzip write: %v", err)
	}
	if err := w.Close(); err != nil {
		tb.Fatalf("gzip close: %v", err)
	}
	return buf.Bytes()
}

// Zstd compresses data with zstd.
func Zstd(tb testing.TB, data []byte) []byte {
	tb.Helper()

	var buf bytes.Buffer
	enc, err := zstd.NewWriter(&buf)
	if err != nil {
		tb.Fatalf("failed to create encoder: %v", err)
	}
	if _, err := enc.Write(data); err != nil {
		tb.Fatalf("failed to write: %v", err)
	}
	if err := enc.Close(); err != nil {
		tb.Fatalf("failed to close encoder: %v", err)
	}
	return buf.Bytes()
}

// WriteFile writes content below dir, creating parent directories.
func WriteFile(tb testing.TB, dir, name string, content []byte) string {
	tb.Helper()

	path := filepath.Join(dir, filepath.FromSlash(name))
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		tb.Fatalf("mkdir %s: %v", filepath.Dir(path), err)
	}
	if err := os.WriteFile(path, content, 0o644); err != nil {
		tb.Fatalf("write %s: %v", path, err)
	}
	return path
}
