package fileops

import (
	"errors"
	"fmt"
	"io"
)

// ErrCorrupt is returned for malformed compress(1) data.
var ErrCorrupt = errors.New("fileops: corrupt compress data")

const (
	lzwFlagBlock = 0x80
	lzwFlagMask  = 0x1f
	lzwClear     = 256
)

// lzwReader decodes the .Z stream written by compress(1). The code stream is
// LSB first, widening from 9 bits up to the header maximum. Each width change
// or clear discards input up to the next group of eight codes.
type lzwReader struct {
	r io.ByteReader

	maxBits uint
	bits    uint
	mask    int
	end     int
	block   bool

	buf      uint32
	left     uint
	consumed int64
	mark     int64

	started bool
	prev    int
	final   int

	prefix [1 << 16]uint16
	suffix [1 << 16]byte
	stack  []byte
	out    []byte

	pending []byte
	err     error
}

func newLZWReader(r io.ByteReader) (*lzwReader, error) {
	var hdr [3]byte
	for i := range hdr {
		c, err := r.ReadByte()
		if err != nil {
			return nil, fmt.Errorf("%w: short header", ErrCorrupt)
		}
		hdr[i] = c
	}
	if Sniff(hdr[:2]) != FormatCompress {
		return nil, fmt.Errorf("%w: bad magic % x", ErrCorrupt, hdr[:2])
	}
	flags := hdr[2]
	if flags&0x60 != 0 {
		return nil, fmt.Errorf("%w: unknown flags %#x", ErrCorrupt, flags)
	}
	maxBits := uint(flags & lzwFlagMask)
	if maxBits < 9 || maxBits > 16 {
		return nil, fmt.Errorf("%w: max bits %d out of range", ErrCorrupt, maxBits)
	}
	if maxBits == 9 {
		// compress(1) never emits 9-bit-only streams; 9 means 10.
		maxBits = 10
	}

	z := &lzwReader{
		r:       r,
		maxBits: maxBits,
		bits:    9,
		mask:    0x1ff,
		block:   flags&lzwFlagBlock != 0,
	}
	z.end = 255
	if z.block {
		z.end = lzwClear
	}
	return z, nil
}

func (z *lzwReader) Read(p []byte) (int, error) {
	for len(z.pending) == 0 {
		if z.err != nil {
			return 0, z.err
		}
		z.step()
	}
	n := copy(p, z.pending)
	z.pending = z.pending[n:]
	return n, nil
}

// next returns the next input byte. ok is false at end of input.
func (z *lzwReader) next() (byte, bool, error) {
	c, err := z.r.ReadByte()
	if err != nil {
		if errors.Is(err, io.EOF) {
			return 0, false, nil
		}
		return 0, false, err
	}
	z.consumed++
	return c, true, nil
}

// code reads one code of the current width.
func (z *lzwReader) code() (int, bool, error) {
	c, ok, err := z.next()
	if !ok || err != nil {
		return 0, false, err
	}
	z.buf |= uint32(c) << z.left
	z.left += 8
	if z.left < z.bits {
		c, ok, err = z.next()
		if err != nil {
			return 0, false, err
		}
		if !ok {
			return 0, false, fmt.Errorf("%w: premature end", ErrCorrupt)
		}
		z.buf |= uint32(c) << z.left
		z.left += 8
	}
	code := int(z.buf & uint32(z.mask))
	z.buf >>= z.bits
	z.left -= z.bits
	return code, true, nil
}

// align discards input up to the next multiple of bits bytes since the last
// mark. Running out of input here ends the stream on the next read.
func (z *lzwReader) align() error {
	if rem := (z.consumed - z.mark) % int64(z.bits); rem != 0 {
		for range int64(z.bits) - rem {
			_, ok, err := z.next()
			if err != nil {
				return err
			}
			if !ok {
				break
			}
		}
	}
	z.buf, z.left = 0, 0
	z.mark = z.consumed
	return nil
}

// step decodes one code into pending, or sets err.
func (z *lzwReader) step() {
	if !z.started {
		z.started = true
		code, ok, err := z.code()
		switch {
		case err != nil:
			z.err = err
		case !ok:
			z.err = io.EOF
		case code > 255:
			z.err = fmt.Errorf("%w: invalid first code %d", ErrCorrupt, code)
		default:
			z.prev, z.final = code, code
			z.out = append(z.out[:0], byte(code))
			z.pending = z.out
		}
		return
	}

	if z.end >= z.mask && z.bits < z.maxBits {
		if err := z.align(); err != nil {
			z.err = err
			return
		}
		z.bits++
		z.mask = z.mask<<1 | 1
	}

	code, ok, err := z.code()
	if err != nil {
		z.err = err
		return
	}
	if !ok {
		z.err = io.EOF
		return
	}

	if code == lzwClear && z.block {
		if err := z.align(); err != nil {
			z.err = err
			return
		}
		z.bits = 9
		z.mask = 0x1ff
		z.end = 255
		return
	}

	incoming := code
	stack := z.stack[:0]
	if code > z.end {
		if code != z.end+1 || z.prev > z.end {
			z.err = fmt.Errorf("%w: invalid code %d", ErrCorrupt, code)
			return
		}
		stack = append(stack, byte(z.final))
		code = z.prev
	}
	for code >= 256 {
		stack = append(stack, z.suffix[code])
		code = int(z.prefix[code])
	}
	stack = append(stack, byte(code))
	z.final = code

	if z.end < z.mask {
		z.end++
		z.prefix[z.end] = uint16(z.prev)
		z.suffix[z.end] = byte(z.final)
	}
	z.prev = incoming

	z.out = z.out[:0]
	for i := len(stack) - 1; i >= 0; i-- {
		z.out = append(z.out, stack[i])
	}
	z.stack = stack
	z.pending = z.out
}
