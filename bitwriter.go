package cfhd

// bitWriter provides bit-level writing to a byte buffer.
// Bits are written in MSB-first order (most significant bit first).
type bitWriter struct {
	buf     []byte // completed bytes
	curByte byte   // current byte being assembled
	bitPos  uint   // number of bits written in current byte (0-7)
}

// newBitWriter creates a new bit writer.
func newBitWriter() *bitWriter {
	return &bitWriter{}
}

// WriteBit writes a single bit (0 or 1), MSB first.
func (w *bitWriter) WriteBit(bit uint32) {
	if bit != 0 {
		w.curByte |= 1 << (7 - w.bitPos)
	}
	w.bitPos++

	if w.bitPos == 8 {
		w.buf = append(w.buf, w.curByte)
		w.curByte = 0
		w.bitPos = 0
	}
}

// WriteBits writes the low n bits of val (MSB first, n <= 32).
func (w *bitWriter) WriteBits(val uint32, n int) {
	// Whole bytes when aligned; codewords are mostly short so this is rare.
	for n >= 8 && w.bitPos == 0 {
		n -= 8
		w.buf = append(w.buf, byte(val>>uint(n)))
	}
	for i := n - 1; i >= 0; i-- {
		w.WriteBit((val >> uint(i)) & 1)
	}
}

// Flush pads the partial byte with zero bits and returns the encoded bytes.
// The returned slice aliases the writer's buffer until the next Reset.
func (w *bitWriter) Flush() []byte {
	for w.bitPos != 0 {
		w.WriteBit(0)
	}
	return w.buf
}

// Len returns the current length in bytes, including any partial byte
// that has not yet been flushed.
func (w *bitWriter) Len() int {
	n := len(w.buf)
	if w.bitPos > 0 {
		n++
	}
	return n
}

// Reset resets the writer for reuse, clearing all internal state.
func (w *bitWriter) Reset() {
	w.buf = w.buf[:0]
	w.curByte = 0
	w.bitPos = 0
}
