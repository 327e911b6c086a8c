package cfhd

import (
	"fmt"
	"image"
	"image/color"
)

// Bitstream channels are not stored in the frame's native plane order: RGB
// streams carry green first (G, R, B, A) and YUV streams carry Cr before Cb.
var (
	yuvChannelPlane = [4]int{0, 2, 1, 3}
	rgbChannelPlane = [4]int{1, 0, 2, 3}
)

// channelPlane returns the frame plane that bitstream channel c maps to.
func channelPlane(f PixelFormat, c int) int {
	if f == YUV422P10 {
		return yuvChannelPlane[c]
	}
	return rgbChannelPlane[c]
}

// Alpha companding constants.
const (
	alphaCompandDCOffset = 256
	alphaCompandGain     = 9400
	alphaCompandMax      = 4080
)

// compandAlpha maps a 12-bit alpha sample to its coded value.
func compandAlpha(a int32) int32 {
	if a > 0 && a < alphaCompandMax {
		a = (a*223+128)>>8 + alphaCompandDCOffset
	}
	return clipUint(a, 12)
}

// expandAlpha inverts compandAlpha on a decoded row.
func expandAlpha(row []uint16) {
	for i, v := range row {
		a := (int32(v) - alphaCompandDCOffset) << 3
		a = (a * alphaCompandGain) >> 16
		row[i] = uint16(clipUint(a, 12))
	}
}

// clipUint clamps v to [0, 2^bits-1].
func clipUint(v int32, bits uint) int32 {
	if v < 0 {
		return 0
	}
	if m := int32(1)<<bits - 1; v > m {
		return m
	}
	return v
}

// scale12 widens a 12-bit sample to 16 bits.
func scale12(v uint16) uint16 {
	v &= 0xfff
	return v<<4 | v>>8
}

// BT.709 limited-range 10-bit YCbCr.
const (
	yOffset10  = 64
	yRange10   = 876
	cOffset10  = 512
	cRange10   = 896
	kr709      = 0.2126
	kb709      = 0.0722
	crToR709   = 2 * (1 - kr709)
	cbToB709   = 2 * (1 - kb709)
	cbToG709   = cbToB709 * kb709 / (1 - kr709 - kb709)
	crToG709   = crToR709 * kr709 / (1 - kr709 - kb709)
	unit16     = 65535.0
	yuvClampLo = 0.0
)

func clampUnit(v float64) uint16 {
	if v <= yuvClampLo {
		return 0
	}
	if v >= 1 {
		return 0xffff
	}
	return uint16(v*unit16 + 0.5)
}

func yuvToRGBA64(y, cb, cr uint16) color.RGBA64 {
	fy := (float64(y) - yOffset10) / yRange10
	fb := (float64(cb) - cOffset10) / cRange10
	fr := (float64(cr) - cOffset10) / cRange10
	return color.RGBA64{
		R: clampUnit(fy + crToR709*fr),
		G: clampUnit(fy - cbToG709*fb - crToG709*fr),
		B: clampUnit(fy + cbToB709*fb),
		A: 0xffff,
	}
}

// rgbToYUV10 converts 16-bit RGB to 10-bit limited-range YCbCr.
func rgbToYUV10(r, g, b uint32) (y, cb, cr int32) {
	fr, fg, fb := float64(r)/unit16, float64(g)/unit16, float64(b)/unit16
	fy := kr709*fr + (1-kr709-kb709)*fg + kb709*fb
	y = int32(fy*yRange10 + yOffset10 + 0.5)
	cb = int32((fb-fy)/cbToB709*cRange10 + cOffset10 + 0.5)
	cr = int32((fr-fy)/crToR709*cRange10 + cOffset10 + 0.5)
	return clipUint(y, 10), clipUint(cb, 10), clipUint(cr, 10)
}

// FrameFromImage converts img into a new frame of the given format.
// A *Frame of the same format is returned unchanged.
func FrameFromImage(img image.Image, format PixelFormat) (*Frame, error) {
	if f, ok := img.(*Frame); ok && f.Format == format {
		return f, nil
	}
	if !format.valid() {
		return nil, fmt.Errorf("%w: pixel format %v", ErrInvalidOption, format)
	}
	b := img.Bounds()
	f := NewFrame(format, b.Dx(), b.Dy())
	if f.Planes == nil {
		return nil, fmt.Errorf("%w: empty image", ErrInvalidImage)
	}

	for y := range f.Height {
		for x := range f.Width {
			c := color.NRGBA64Model.Convert(img.At(b.Min.X+x, b.Min.Y+y)).(color.NRGBA64)
			switch format {
			case YUV422P10:
				yy, cb, cr := rgbToYUV10(uint32(c.R), uint32(c.G), uint32(c.B))
				f.Planes[0][y*f.Strides[0]+x] = uint16(yy)
				// Chroma is averaged over each horizontal pair.
				cx := y*f.Strides[1] + x>>1
				if x&1 == 0 {
					f.Planes[1][cx] = uint16(cb)
					f.Planes[2][cx] = uint16(cr)
				} else {
					f.Planes[1][cx] = uint16((int32(f.Planes[1][cx]) + cb + 1) >> 1)
					f.Planes[2][cx] = uint16((int32(f.Planes[2][cx]) + cr + 1) >> 1)
				}
			default:
				off := y*f.Strides[0] + x
				f.Planes[0][off] = c.R >> 4
				f.Planes[1][off] = c.G >> 4
				f.Planes[2][off] = c.B >> 4
				if format == RGBAP12 {
					f.Planes[3][off] = c.A >> 4
				}
			}
		}
	}
	return f, nil
}
