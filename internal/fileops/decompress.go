package fileops

import (
	"bufio"
	"bytes"
	"errors"
	"fmt"
	"io"
	"sync"

	"github.com/klauspost/compress/gzip"
	"github.com/klauspost/compress/zstd"
)

// ErrUnknownFormat is returned when a compressed payload has no recognized
// magic number.
var ErrUnknownFormat = errors.New("fileops: unknown compression format")

// Format identifies a compressed payload encoding.
type Format uint8

const (
	FormatUnknown Format = iota
	FormatGzip
	FormatZstd
	FormatCompress
)

func (f Format) String() string {
	switch f {
	case FormatGzip:
		return "gzip"
	case FormatZstd:
		return "zstd"
	case FormatCompress:
		return "compress"
	default:
		return "unknown"
	}
}

var (
	magicGzip     = []byte{0x1f, 0x8b}
	magicZstd     = []byte{0x28, 0xb5, 0x2f, 0xfd}
	magicCompress = []byte{0x1f, 0x9d}
)

// Sniff identifies the format from the leading bytes of a payload.
func Sniff(head []byte) Format {
	switch {
	case bytes.HasPrefix(head, magicGzip):
		return FormatGzip
	case bytes.HasPrefix(head, magicZstd):
		return FormatZstd
	case bytes.HasPrefix(head, magicCompress):
		return FormatCompress
	default:
		return FormatUnknown
	}
}

// DecompressPool decodes compressed payloads, reusing zstd decoders across
// calls.
type DecompressPool struct {
	pool             *sync.Pool
	maxDecoderMemory uint64
}

// NewDecompressPool creates a new pool.
// If maxMemory is 0, no memory limit is applied to zstd decoders.
func NewDecompressPool(maxMemory uint64) *DecompressPool {
	return &DecompressPool{
		pool:             &sync.Pool{},
		maxDecoderMemory: maxMemory,
	}
}

// Open sniffs the payload in r and returns a reader of the decoded bytes.
// The caller must call the returned release function when done.
// If an error is returned, no release function needs to be called.
func (p *DecompressPool) Open(r io.Reader) (io.Reader, Format, func(), error) {
	br := bufio.NewReader(r)
	head, err := br.Peek(len(magicZstd))
	if err != nil && !errors.Is(err, io.EOF) {
		return nil, FormatUnknown, nil, err
	}

	format := Sniff(head)
	switch format {
	case FormatGzip:
		zr, err := gzip.NewReader(br)
		if err != nil {
			return nil, format, nil, fmt.Errorf("gzip: %w", err)
		}
		return zr, format, func() { _ = zr.Close() }, nil
	case FormatZstd:
		dec, release, err := p.zstdReader(br)
		if err != nil {
			return nil, format, nil, fmt.Errorf("zstd: %w", err)
		}
		return dec, format, release, nil
	case FormatCompress:
		lr, err := newLZWReader(br)
		if err != nil {
			return nil, format, nil, err
		}
		return lr, format, func() {}, nil
	default:
		return nil, format, nil, fmt.Errorf("%w: % x", ErrUnknownFormat, head)
	}
}

// zstdReader takes a pooled decoder, or a fresh one when the pool is empty,
// and points it at r. Released decoders go back to the pool.
func (p *DecompressPool) zstdReader(r io.Reader) (*zstd.Decoder, func(), error) {
	if p == nil || p.pool == nil {
		dec, err := p.newDecoder(r)
		if err != nil {
			return nil, nil, err
		}
		return dec, dec.Close, nil
	}

	dec, _ := p.pool.Get().(*zstd.Decoder)
	if dec == nil || dec.Reset(r) != nil {
		if dec != nil {
			dec.Close()
		}
		var err error
		if dec, err = p.newDecoder(r); err != nil {
			return nil, nil, err
		}
	}
	return dec, func() {
		_ = dec.Reset(nil) //nolint:errcheck // drop the payload reference before pooling
		p.pool.Put(dec)
	}, nil
}

func (p *DecompressPool) newDecoder(r io.Reader) (*zstd.Decoder, error) {
	if p == nil || p.maxDecoderMemory == 0 {
		return zstd.NewReader(r)
	}
	return zstd.NewReader(r, zstd.WithDecoderMaxMemory(p.maxDecoderMemory))
}
