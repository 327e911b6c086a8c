package cfhd

import (
	"github.com/ajroetker/go-highway/hwy/contrib/image"
	"github.com/ajroetker/go-highway/hwy/contrib/wavelet"
)

// analyzeLine splits the 2n samples in b.line into n lowpass samples in b.low
// and n highpass samples in b.high. It is the exact inverse of synthesizeLine:
// the lowpass is the pair sum and the highpass is chosen so that the
// synthesis predictor returns the even sample.
func analyzeLine(b *liftBufs, n int) {
	wavelet.Deinterleave(b.line, b.even, n, b.odd, n, 0)
	low := b.low[:n]
	for i := range n {
		low[i] = b.even[i] + b.odd[i]
	}
	for i := range n {
		kind, j0, j1, j2 := liftTaps(i, n)
		pe, _ := predict(kind, low[j0], low[j1], low[j2])
		b.high[i] = 2*b.even[i] - pe
	}
}

// analyzeVertical runs the forward filter down w columns of 2h rows of src
// starting at column sx, writing h lowpass rows at (lx, ly) and h highpass
// rows at (hx, hy) of dst. It reports whether no coefficient saturated.
func analyzeVertical(src *image.Image[int16], sx int, dst *image.Image[int16], lx, ly, hx, hy, w, h int) bool {
	exact := true
	for i := range h {
		a := src.Row(2 * i)[sx : sx+w]
		b := src.Row(2*i + 1)[sx : sx+w]
		out := dst.Row(ly + i)[lx : lx+w]
		for x := range w {
			v := int32(a[x]) + int32(b[x])
			out[x] = int16(saturate16(v))
			exact = exact && int32(out[x]) == v
		}
	}
	for i := range h {
		kind, j0, j1, j2 := liftTaps(i, h)
		r0 := dst.Row(ly + j0)[lx : lx+w]
		r1 := dst.Row(ly + j1)[lx : lx+w]
		r2 := dst.Row(ly + j2)[lx : lx+w]
		a := src.Row(2 * i)[sx : sx+w]
		out := dst.Row(hy + i)[hx : hx+w]
		for x := range w {
			pe, _ := predict(kind, int32(r0[x]), int32(r1[x]), int32(r2[x]))
			v := 2*int32(a[x]) - pe
			out[x] = int16(saturate16(v))
			exact = exact && int32(out[x]) == v
		}
	}
	return exact
}

// analyzeLevel decomposes the 2w x 2h region in the top-left corner of the
// coefficient buffer into level l's lowpass region and highpass bands. The
// region is first divided by 2^shift, truncating toward zero. It reports
// whether the level is invertible: no division left a remainder and no
// coefficient saturated.
func (c *channelStore) analyzeLevel(l int, shift uint, bufs *liftBufs) bool {
	w, h := c.levelSize(l)
	div := int32(1) << shift
	exact := true

	for y := range 2 * h {
		in := c.coeff.Row(y)[:2*w]
		for x, v := range in {
			bufs.line[x] = int32(v) / div
			exact = exact && int32(v)%div == 0
		}
		analyzeLine(bufs, w)
		out := c.work.Row(y)
		for x := range w {
			out[x] = int16(saturate16(bufs.low[x]))
			out[w+x] = int16(saturate16(bufs.high[x]))
			exact = exact && int32(out[x]) == bufs.low[x] && int32(out[w+x]) == bufs.high[x]
		}
	}

	b1 := &c.bands[bandIndex(l, 1)]
	b2 := &c.bands[bandIndex(l, 2)]
	b3 := &c.bands[bandIndex(l, 3)]
	exact = analyzeVertical(c.work, 0, c.coeff, 0, 0, b2.x0, b2.y0, w, h) && exact
	exact = analyzeVertical(c.work, w, c.coeff, b1.x0, b1.y0, b3.x0, b3.y0, w, h) && exact
	return exact
}

// analyze loads a sample plane and runs the three-level decomposition,
// finest level first. shifts are the same per-level shifts synthesize
// applies, and every band's extent is declared afterwards. It reports whether
// synthesize can reproduce the plane exactly from unquantized bands.
func (c *channelStore) analyze(src []uint16, stride, width, height int, shifts [numLevels]uint) bool {
	fw, fh := c.levelSize(numLevels)
	loadPlane(c.coeff, src, stride, width, height, fw, fh)

	w, _ := c.levelSize(numLevels - 1)
	bufs := getLiftBufs(w)
	defer putLiftBufs(bufs)

	exact := true
	for l := numLevels - 1; l >= 0; l-- {
		exact = c.analyzeLevel(l, shifts[l], bufs) && exact
	}
	for i := range c.bands {
		b := &c.bands[i]
		b.width, b.height = b.wantWidth, b.wantHeight
	}
	return exact
}
