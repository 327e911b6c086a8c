package cfhd

import (
	"fmt"
	"sync"

	"github.com/ajroetker/go-highway/hwy/contrib/image"
)

// codeword is one variable-length code, written MSB first.
type codeword struct {
	bits uint32
	size uint8
}

// runCode is a codeword covering run zero coefficients.
type runCode struct {
	codeword
	run int
}

// Symbol indices of the encode codebook: 0..255 are positive magnitudes,
// 512-m is the negative magnitude m, and symEscape ends a band.
const (
	symNegative = 512
	symEscape   = 512
)

// encodeTables are the codebook and runbook in the form the band encoder
// indexes them.
type encodeTables struct {
	cb [symEscape + 1]codeword
	rb [maxRun + 1]runCode
}

var getEncodeTables = sync.OnceValue(func() *encodeTables {
	t := new(encodeTables)
	for i := range symEscape {
		value := i
		if i&256 != 0 {
			value = -256 + i&255
		}
		mag := min(abs(value), maxSymbol)
		e := magnitudeCodebook[mag]
		if mag != 0 {
			sign := uint32(0)
			if value <= 0 {
				sign = 1
			}
			t.cb[i] = codeword{bits: e[1]<<1 | sign, size: uint8(e[0] + 1)}
		} else {
			t.cb[i] = codeword{bits: e[1], size: uint8(e[0])}
		}
	}
	t.cb[symEscape] = codeword{bits: escapeCode, size: escapeCodeLen}

	// Every run length below maxRun maps to the longest bucket that does
	// not exceed it.
	for i, j := 1, 0; i < maxRun && j < len(runBook)-1; j++ {
		run, end := int(runBook[j][2]), int(runBook[j+1][2])
		for ; i < end; i++ {
			t.rb[i] = runCode{codeword{uint32(runBook[j][1]), uint8(runBook[j][0])}, run}
		}
	}
	last := runBook[len(runBook)-1]
	t.rb[maxRun] = runCode{codeword{uint32(last[1]), uint8(last[0])}, maxRun}
	return t
})

func abs[T int | int32](v T) T {
	if v < 0 {
		return -v
	}
	return v
}

// putRunCode writes a run of count zero coefficients, splitting runs longer
// than the largest bucket.
func putRunCode(w *bitWriter, t *encodeTables, count int) {
	for count > 0 {
		rc := t.rb[min(maxRun, count)]
		w.WriteBits(rc.bits, int(rc.size))
		count -= rc.run
	}
}

// encodeBand entropy codes the quantized coefficients of b. Rows are scanned
// to a multiple of 8 columns; columns past the band width code as zero.
// The band is terminated by the escape codeword and the writer is flushed.
func encodeBand(w *bitWriter, img *image.Image[int16], b *subband, lossless bool) []byte {
	t := getEncodeTables()
	lut := compandInverseLUT()
	stride := (b.width + 7) &^ 7

	count := 0
	for y := range b.height {
		row := b.row(img, y)
		for x := range stride {
			var sym int32
			if x < b.width {
				sym = symbolFor(lut, int32(row[x]), lossless)
			}
			if sym == 0 {
				count++
				continue
			}
			if count > 0 {
				putRunCode(w, t, count)
				count = 0
			}
			if sym < 0 {
				sym += symNegative
			}
			cw := t.cb[sym]
			w.WriteBits(cw.bits, int(cw.size))
		}
	}
	if count > 0 {
		putRunCode(w, t, count)
	}
	cw := t.cb[symEscape]
	w.WriteBits(cw.bits, int(cw.size))
	return w.Flush()
}

// vlcSymbol is a decoded (level, run) pair.
type vlcSymbol struct {
	level  int32
	run    int
	escape bool
}

// vlcNode is one node of the binary decode tree. Children index into the
// tree slice; 0 means no child, since the root is never a child.
type vlcNode struct {
	next [2]int32
	leaf bool
	sym  vlcSymbol
}

// vlcTree decodes the run/level codebook by walking one bit at a time.
type vlcTree []vlcNode

// insert adds a code to the tree. It fails if the code collides with an
// existing code or is a prefix of one.
func (t *vlcTree) insert(cw codeword, sym vlcSymbol) error {
	n := int32(0)
	for i := int(cw.size) - 1; i >= 0; i-- {
		if (*t)[n].leaf {
			return fmt.Errorf("cfhd: code %0*b extends an existing code", int(cw.size), cw.bits)
		}
		bit := (cw.bits >> uint(i)) & 1
		next := (*t)[n].next[bit]
		if next == 0 {
			*t = append(*t, vlcNode{})
			next = int32(len(*t) - 1)
			(*t)[n].next[bit] = next
		}
		n = next
	}
	if (*t)[n].leaf || (*t)[n].next != [2]int32{} {
		return fmt.Errorf("cfhd: code %0*b collides with an existing code", int(cw.size), cw.bits)
	}
	(*t)[n].leaf = true
	(*t)[n].sym = sym
	return nil
}

// buildDecodeTree derives the decode tree of codebook 1 from the encode
// tables: single-bit zero, signed magnitudes, the long run buckets and the
// escape.
func buildDecodeTree() (vlcTree, error) {
	t := vlcTree{{}}
	if err := t.insert(codeword{0, 1}, vlcSymbol{run: 1}); err != nil {
		return nil, err
	}
	for m := 1; m <= maxSymbol; m++ {
		e := magnitudeCodebook[m]
		for sign := range uint32(2) {
			level := int32(m)
			if sign == 1 {
				level = -level
			}
			cw := codeword{bits: e[1]<<1 | sign, size: uint8(e[0] + 1)}
			if err := t.insert(cw, vlcSymbol{level: level, run: 1}); err != nil {
				return nil, err
			}
		}
	}
	for _, r := range runBook[numRunBookShort:] {
		if err := t.insert(codeword{uint32(r[1]), uint8(r[0])}, vlcSymbol{run: int(r[2])}); err != nil {
			return nil, err
		}
	}
	if err := t.insert(codeword{escapeCode, escapeCodeLen}, vlcSymbol{escape: true}); err != nil {
		return nil, err
	}
	return t, nil
}

var decodeTree = sync.OnceValues(buildDecodeTree)

// readSymbol decodes one codeword.
func (t vlcTree) readSymbol(r *bitReader) (vlcSymbol, error) {
	n := int32(0)
	for {
		bit, err := r.ReadBit()
		if err != nil {
			return vlcSymbol{}, err
		}
		n = t[n].next[bit]
		if n == 0 {
			return vlcSymbol{}, fmt.Errorf("%w: invalid codeword at bit %d", ErrEscapeNotFound, r.BitPosition())
		}
		if t[n].leaf {
			return t[n].sym, nil
		}
	}
}

// decodeBand fills band b from the entropy-coded stream at r, which must be
// byte aligned. Rows are scanned to a multiple of 8 columns; decoded values
// past the band width are discarded. Each (level, run) pair is dequantized
// once and replicated run times. The stream must end with the escape before
// the scan capacity is exceeded.
func decodeBand(r *bitReader, img *image.Image[int16], b *subband, quant uint32, lossless bool) error {
	tree, err := decodeTree()
	if err != nil {
		return err
	}
	b.clear(img)

	stride := (b.width + 7) &^ 7
	capacity := stride * b.height
	pos := 0
	for {
		sym, err := tree.readSymbol(r)
		if err != nil {
			return err
		}
		if sym.escape {
			return nil
		}
		if pos+sym.run > capacity {
			return fmt.Errorf("%w: %d coefficients exceed band capacity %d",
				ErrEscapeNotFound, pos+sym.run, capacity)
		}
		if sym.level == 0 {
			pos += sym.run
			continue
		}
		v := sym.level
		if !lossless {
			v = dequantAndCompand(sym.level, quant)
		}
		for range sym.run {
			y, x := pos/stride, pos%stride
			if x < b.width {
				b.row(img, y)[x] = int16(v)
			}
			pos++
		}
	}
}
