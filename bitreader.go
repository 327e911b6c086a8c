package cfhd

import (
	"encoding/binary"
	"fmt"
)

// bitReader reads a CFHD sample. Tags and raw lowpass coefficients are read
// at byte granularity; entropy-coded bands are read bit by bit, MSB first.
type bitReader struct {
	data   []byte
	pos    int  // byte position
	bitPos uint // bit position within current byte (0-7), reads MSB first
}

// newBitReader creates a new bit reader over data.
func newBitReader(data []byte) *bitReader {
	return &bitReader{data: data}
}

// ReadBit reads a single bit (MSB first order).
func (r *bitReader) ReadBit() (uint32, error) {
	if r.pos >= len(r.data) {
		return 0, ErrBitstreamOverread
	}

	bit := uint32(r.data[r.pos]>>(7-r.bitPos)) & 1

	r.bitPos++
	if r.bitPos == 8 {
		r.bitPos = 0
		r.pos++
	}
	return bit, nil
}

// ReadUint16 reads 16 bits big-endian from a byte-aligned position.
func (r *bitReader) ReadUint16() (uint16, error) {
	r.ByteAlign()
	if r.pos+2 > len(r.data) {
		return 0, ErrBitstreamOverread
	}
	val := binary.BigEndian.Uint16(r.data[r.pos:])
	r.pos += 2
	return val, nil
}

// ByteAlign aligns to next byte boundary.
// If already byte-aligned, this is a no-op.
func (r *bitReader) ByteAlign() {
	if r.bitPos != 0 {
		r.bitPos = 0
		r.pos++
	}
}

// Align byte-aligns and then skips padding up to the next multiple of n
// bytes, measured from the start of the data.
func (r *bitReader) Align(n int) error {
	r.ByteAlign()
	pad := (n - r.pos%n) % n
	if r.pos+pad > len(r.data) {
		return fmt.Errorf("%w: %d padding bytes past end of data", ErrBitstreamOverread, pad)
	}
	r.pos += pad
	return nil
}

// BitPosition returns current bit position (byte * 8 + bit offset).
func (r *bitReader) BitPosition() int {
	return r.pos*8 + int(r.bitPos)
}

// Remaining returns bytes remaining from current position.
// This is approximate if not byte-aligned.
func (r *bitReader) Remaining() int {
	rem := len(r.data) - r.pos
	if rem < 0 {
		return 0
	}
	return rem
}

// Skip skips n bytes.
// This byte-aligns first, then skips. A failed skip does not move the reader.
func (r *bitReader) Skip(n int) error {
	r.ByteAlign()
	if n < 0 || n > len(r.data)-r.pos {
		return fmt.Errorf("%w: skip of %d bytes, %d remain", ErrBitstreamOverread, n, r.Remaining())
	}
	r.pos += n
	return nil
}
