package cfhd

import (
	"github.com/ajroetker/go-highway/hwy/contrib/image"
	"github.com/ajroetker/go-highway/hwy/contrib/wavelet"
	"github.com/ajroetker/go-highway/hwy/contrib/workerpool"
)

// Boundary cases of the 2/6 lifting predictor.
const (
	liftFirst = iota
	liftInterior
	liftLast
)

// liftTaps returns the predictor case for sample i of an n-sample lowpass
// sequence and the three lowpass indices it reads. Sequences shorter than
// three samples reuse their edge samples.
func liftTaps(i, n int) (kind, j0, j1, j2 int) {
	switch {
	case i == 0:
		return liftFirst, 0, image.Clamp(1, n), image.Clamp(2, n)
	case i == n-1:
		return liftLast, i, image.Clamp(i-1, n), image.Clamp(i-2, n)
	}
	return liftInterior, i, i - 1, i + 1
}

// predict returns the even and odd predictions for one lowpass sample.
// For the first sample p0..p2 are L[0], L[1], L[2]; for the last they are
// L[i], L[i-1], L[i-2]; elsewhere L[i], L[i-1], L[i+1].
// The two predictions always sum to 2*p0 or 2*p0+1.
func predict(kind int, p0, p1, p2 int32) (pe, po int32) {
	switch kind {
	case liftFirst:
		return (11*p0 - 4*p1 + p2 + 4) >> 3, (5*p0 + 4*p1 - p2 + 4) >> 3
	case liftLast:
		return (5*p0 + 4*p1 - p2 + 4) >> 3, (11*p0 - 4*p1 + p2 + 4) >> 3
	}
	return p0 + ((p1 - p2 + 4) >> 3), p0 + ((p2 - p1 + 4) >> 3)
}

// synthesizeLine reconstructs 2n samples into b.line from n lowpass samples
// in b.low and n highpass samples in b.high.
func synthesizeLine(b *liftBufs, n int) {
	low, high := b.low[:n], b.high[:n]
	for i := range n {
		kind, j0, j1, j2 := liftTaps(i, n)
		pe, po := predict(kind, low[j0], low[j1], low[j2])
		b.even[i] = (pe + high[i]) >> 1
		b.odd[i] = (po - high[i]) >> 1
	}
	wavelet.Interleave(b.line, b.even, n, b.odd, n, 0)
}

// synthesizeVertical runs the inverse filter down the columns of a w x h
// lowpass region at (lx, ly) and a highpass region at (hx, hy) of src,
// writing 2h rows of w samples at column dx of dst.
func synthesizeVertical(src *image.Image[int16], lx, ly, hx, hy int, dst *image.Image[int16], dx, w, h int) {
	for i := range h {
		kind, j0, j1, j2 := liftTaps(i, h)
		r0 := src.Row(ly + j0)[lx : lx+w]
		r1 := src.Row(ly + j1)[lx : lx+w]
		r2 := src.Row(ly + j2)[lx : lx+w]
		hr := src.Row(hy + i)[hx : hx+w]
		even := dst.Row(2 * i)[dx : dx+w]
		odd := dst.Row(2*i + 1)[dx : dx+w]
		for x := range w {
			pe, po := predict(kind, int32(r0[x]), int32(r1[x]), int32(r2[x]))
			hv := int32(hr[x])
			even[x] = int16(saturate16((pe + hv) >> 1))
			odd[x] = int16(saturate16((po - hv) >> 1))
		}
	}
}

// synthesizeLevel reconstructs the 2w x 2h lowpass region of the next finer
// level from level l's lowpass region and highpass bands. Each reconstructed
// row is passed to emit, which must copy it out before returning.
func (c *channelStore) synthesizeLevel(l int, bufs *liftBufs, emit func(y int, line []int32)) {
	w, h := c.levelSize(l)
	b1 := &c.bands[bandIndex(l, 1)]
	b2 := &c.bands[bandIndex(l, 2)]
	b3 := &c.bands[bandIndex(l, 3)]

	// The lowpass region pairs with band 2 and band 1 pairs with band 3,
	// giving the horizontal lowpass and highpass halves of each row.
	synthesizeVertical(c.coeff, 0, 0, b2.x0, b2.y0, c.work, 0, w, h)
	synthesizeVertical(c.coeff, b1.x0, b1.y0, b3.x0, b3.y0, c.work, w, w, h)

	for y := range 2 * h {
		row := c.work.Row(y)
		for x := range w {
			bufs.low[x] = int32(row[x])
			bufs.high[x] = int32(row[w+x])
		}
		synthesizeLine(bufs, w)
		emit(y, bufs.line[:2*w])
	}
}

// synthesize runs the full three-level reconstruction of one channel and
// writes the result into dst, which must hold at least the channel's coded
// width and the frame's height. shifts[l] is the left shift applied after
// level l; the final samples are clipped to bits.
func (c *channelStore) synthesize(dst []uint16, stride, width, height int, shifts [numLevels]uint, bits uint) {
	w, _ := c.levelSize(numLevels - 1)
	bufs := getLiftBufs(w)
	defer putLiftBufs(bufs)

	for l := range numLevels - 1 {
		shift := shifts[l]
		c.synthesizeLevel(l, bufs, func(y int, line []int32) {
			out := c.coeff.Row(y)[:len(line)]
			for x, v := range line {
				out[x] = int16(saturate16(v << shift))
			}
		})
	}

	shift := shifts[numLevels-1]
	c.synthesizeLevel(numLevels-1, bufs, func(y int, line []int32) {
		if y >= height {
			return
		}
		out := dst[y*stride : y*stride+width]
		for x := range out {
			out[x] = uint16(clipUint(line[x]<<shift, bits))
		}
	})
}

// prescaleShifts unpacks a PrescaleTable value into the shift applied after
// each level, coarsest first. Field i of the table applies to the level i
// steps below the final one.
func prescaleShifts(v uint16) [numLevels]uint {
	var s [numLevels]uint
	for i := range numLevels {
		s[numLevels-1-i] = uint(v>>(14-2*i)) & 3
	}
	return s
}

// prescaleShiftsPacked unpacks a PrescaleShift value: three 3-bit fields,
// field i at bit 3*i, each clamped to 3.
func prescaleShiftsPacked(v uint16) [numLevels]uint {
	var s [numLevels]uint
	for i := range numLevels {
		s[numLevels-1-i] = min(uint(v>>(3*i))&7, 3)
	}
	return s
}

// defaultPrescale is the PrescaleTable value written for each format.
func defaultPrescale(f PixelFormat) uint16 {
	if f.BitDepth() == 12 {
		return 0x2800
	}
	return 0x2000
}

// forEachChannel calls fn for channels 0..n-1, spreading them over pool
// when one is supplied.
func forEachChannel(pool *workerpool.Pool, n int, fn func(c int)) {
	if pool == nil || n < 2 {
		for c := range n {
			fn(c)
		}
		return
	}
	pool.ParallelForAtomic(n, fn)
}
