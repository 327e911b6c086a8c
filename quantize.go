package cfhd

import (
	"sync"

	"github.com/ajroetker/go-highway/hwy/contrib/image"
)

// Companding curve constants: a transmitted magnitude m expands to
// m + compandGain*m³/compandScale before it is multiplied by the band's
// quantization factor.
const (
	compandGain  = 768
	compandScale = 255 * 255 * 255

	// maxSymbol is the largest magnitude the magnitude codebook carries.
	maxSymbol = 255

	// lutSize covers every companded magnitude maxSymbol can expand to.
	lutSize = maxSymbol + compandGain + 1
)

// dequantAndCompand expands a transmitted symbol into a coefficient value.
// The curve is odd-symmetric and strictly monotonic on each side of zero.
func dequantAndCompand(level int32, quant uint32) int32 {
	neg := level < 0
	a := int64(level)
	if neg {
		a = -a
	}
	v := (a + compandGain*a*a*a/compandScale) * int64(quant)
	if neg {
		v = -v
	}
	return saturate16(v)
}

// saturate16 clamps v to the int16 range of the coefficient store.
func saturate16[T int32 | int64](v T) int32 {
	if v > 32767 {
		return 32767
	}
	if v < -32768 {
		return -32768
	}
	return int32(v)
}

// quantizeValue divides a coefficient by quant, rounding half away from zero,
// and clips the result to 11 signed bits.
func quantizeValue(c int32, quant uint32) int32 {
	if quant == 0 {
		quant = 1
	}
	factor := int32(32768 / quant)
	var sign int32
	switch {
	case c > 0:
		sign = 1
	case c < 0:
		sign = -1
	}
	v := (c*factor + 16384*sign) / 32768
	return min(max(v, -1024), 1023)
}

// quantizeBand quantizes the coefficients of b in place.
func quantizeBand(img *image.Image[int16], b *subband, quant uint32) {
	if quant <= 1 {
		return
	}
	for y := range b.height {
		row := b.row(img, y)
		for x, c := range row {
			row[x] = int16(quantizeValue(int32(c), quant))
		}
	}
}

// bandFitsSymbols reports whether every coefficient of b can be transmitted
// verbatim, as lossless bands require.
func bandFitsSymbols(img *image.Image[int16], b *subband) bool {
	for y := range b.height {
		for _, v := range b.row(img, y) {
			if v > maxSymbol || v < -maxSymbol {
				return false
			}
		}
	}
	return true
}

// compandInverseLUT maps a quantized magnitude to the smallest symbol whose
// expansion does not exceed it. Magnitudes the curve skips take the symbol
// below them.
var compandInverseLUT = sync.OnceValue(func() *[lutSize]uint16 {
	var lut [lutSize]uint16
	for i := int64(0); i <= maxSymbol; i++ {
		lut[i+compandGain*i*i*i/compandScale] = uint16(i)
	}
	var last uint16
	for i, v := range lut {
		if v != 0 {
			last = v
		} else {
			lut[i] = last
		}
	}
	return &lut
})

// symbolFor returns the signed transmitted symbol for quantized coefficient
// d. Lossless bands transmit the coefficient itself, saturated to the
// codebook's range; the encoder rejects lossless bands that would saturate.
func symbolFor(lut *[lutSize]uint16, d int32, lossless bool) int32 {
	a := d
	if a < 0 {
		a = -a
	}
	var m int32
	if lossless {
		m = min(a, maxSymbol)
	} else {
		m = int32(lut[min(a, lutSize-1)])
	}
	if d < 0 {
		return -m
	}
	return m
}
