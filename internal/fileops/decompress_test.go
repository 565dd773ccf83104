package fileops

import (
	"bytes"
	"io"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/meigma/inst/internal/testutil"
)

func TestSniff(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		head []byte
		want Format
	}{
		{"gzip", []byte{0x1f, 0x8b, 0x08}, FormatGzip},
		{"zstd", []byte{0x28, 0xb5, 0x2f, 0xfd, 0x00}, FormatZstd},
		{"compress", []byte{0x1f, 0x9d, 0x90}, FormatCompress},
		{"plain", []byte("hello"), FormatUnknown},
		{"short", []byte{0x1f}, FormatUnknown},
		{"empty", nil, FormatUnknown},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			assert.Equal(t, tt.want, Sniff(tt.head))
		})
	}
}

func TestDecompressPoolOpen(t *testing.T) {
	t.Parallel()

	original := []byte("hello world, this is a test of payload decompression")
	pool := NewDecompressPool(0)

	tests := []struct {
		name   string
		data   []byte
		format Format
	}{
		{"gzip", testutil.Gzip(t, original), FormatGzip},
		{"zstd", testutil.Zstd(t, original), FormatZstd},
		{"compress", compressLZW(original, 16), FormatCompress},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			r, format, release, err := pool.Open(bytes.NewReader(tt.data))
			require.NoError(t, err)
			defer release()
			assert.Equal(t, tt.format, format)

			got, err := io.ReadAll(r)
			require.NoError(t, err)
			assert.Equal(t, original, got)
		})
	}
}

func TestDecompressPoolOpenUnknown(t *testing.T) {
	t.Parallel()

	_, format, _, err := NewDecompressPool(0).Open(bytes.NewReader([]byte("plain text")))
	require.ErrorIs(t, err, ErrUnknownFormat)
	assert.Equal(t, FormatUnknown, format)
}

func TestDecompressPoolReuse(t *testing.T) {
	t.Parallel()

	original := bytes.Repeat([]byte("abc"), 1000)
	compressed := testutil.Zstd(t, original)
	pool := NewDecompressPool(1 << 20)

	for i := range 5 {
		dec, format, release, err := pool.Open(bytes.NewReader(compressed))
		require.NoError(t, err, "iteration %d", i)
		assert.Equal(t, FormatZstd, format)
		got, err := io.ReadAll(dec)
		release()
		require.NoError(t, err, "iteration %d", i)
		assert.Equal(t, original, got, "iteration %d", i)
	}
}

func TestNilDecompressPool(t *testing.T) {
	t.Parallel()

	original := []byte("nil pool still decodes")
	var pool *DecompressPool
	dec, format, release, err := pool.Open(bytes.NewReader(testutil.Zstd(t, original)))
	require.NoError(t, err)
	assert.Equal(t, FormatZstd, format)
	defer release()

	got, err := io.ReadAll(dec)
	require.NoError(t, err)
	assert.Equal(t, original, got)
}
