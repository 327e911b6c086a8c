package cfhd

import (
	"fmt"
	"image"
	"image/color"
)

// PixelFormat is the sample layout of a Frame.
type PixelFormat int

const (
	// YUV422P10 is planar Y, Cb, Cr with horizontally halved chroma, 10 bits.
	YUV422P10 PixelFormat = iota + 1
	// RGBP12 is planar R, G, B, 12 bits.
	RGBP12
	// RGBAP12 is planar R, G, B, A, 12 bits.
	RGBAP12
)

func (f PixelFormat) String() string {
	switch f {
	case YUV422P10:
		return "yuv422p10"
	case RGBP12:
		return "rgbp12"
	case RGBAP12:
		return "rgbap12"
	}
	return fmt.Sprintf("PixelFormat(%d)", int(f))
}

func (f PixelFormat) valid() bool {
	return f >= YUV422P10 && f <= RGBAP12
}

// NumPlanes returns the number of planes (and bitstream channels).
func (f PixelFormat) NumPlanes() int {
	if f == RGBAP12 {
		return 4
	}
	return 3
}

// BitDepth returns the number of significant bits per sample.
func (f PixelFormat) BitDepth() int {
	if f == YUV422P10 {
		return 10
	}
	return 12
}

// chromaShift returns the horizontal subsampling shift of plane p.
func (f PixelFormat) chromaShift(p int) int {
	if f == YUV422P10 && p > 0 {
		return 1
	}
	return 0
}

// PlaneWidth returns the width in samples of plane p for an image of the
// given width.
func (f PixelFormat) PlaneWidth(p, width int) int {
	s := f.chromaShift(p)
	return (width + (1 << s) - 1) >> s
}

// PlaneHeight returns the height in samples of plane p.
func (f PixelFormat) PlaneHeight(p, height int) int {
	return height
}

// encodedFormat is the value of TagEncodedFormat.
func (f PixelFormat) encodedFormat() uint16 {
	switch f {
	case RGBP12:
		return 3
	case RGBAP12:
		return 4
	}
	return 1
}

// formatFromEncoded maps a TagEncodedFormat value to a pixel format.
func formatFromEncoded(v uint16) (PixelFormat, error) {
	switch v {
	case 1:
		return YUV422P10, nil
	case 2:
		return 0, fmt.Errorf("%w: bayer encoded format", ErrUnsupportedFeature)
	case 3:
		return RGBP12, nil
	case 4:
		return RGBAP12, nil
	}
	return 0, fmt.Errorf("%w: encoded format %d", ErrMalformedHeader, v)
}

// Frame is one planar image with up to four planes of 10- or 12-bit samples.
// It is both the decoder's destination and the encoder's source.
type Frame struct {
	Format PixelFormat
	Width  int
	Height int

	// Planes holds the samples of each plane in the format's native order
	// (Y, Cb, Cr or R, G, B, A); Strides holds each plane's row pitch in samples.
	Planes  [][]uint16
	Strides []int
}

// NewFrame allocates a zeroed frame.
func NewFrame(format PixelFormat, width, height int) *Frame {
	f := &Frame{Format: format, Width: width, Height: height}
	if !format.valid() || width <= 0 || height <= 0 {
		return f
	}
	n := format.NumPlanes()
	f.Planes = make([][]uint16, n)
	f.Strides = make([]int, n)
	for p := range n {
		w := format.PlaneWidth(p, width)
		f.Strides[p] = w
		f.Planes[p] = make([]uint16, w*format.PlaneHeight(p, height))
	}
	return f
}

// Row returns row y of plane p, limited to the plane width.
func (f *Frame) Row(p, y int) []uint16 {
	off := y * f.Strides[p]
	return f.Planes[p][off : off+f.Format.PlaneWidth(p, f.Width)]
}

// check verifies the plane slices can hold the declared geometry.
func (f *Frame) check() error {
	if !f.Format.valid() {
		return fmt.Errorf("%w: pixel format %v", ErrInvalidImage, f.Format)
	}
	if f.Width <= 0 || f.Height <= 0 {
		return fmt.Errorf("%w: %dx%d", ErrInvalidImage, f.Width, f.Height)
	}
	n := f.Format.NumPlanes()
	if len(f.Planes) != n || len(f.Strides) != n {
		return fmt.Errorf("%w: %v needs %d planes, have %d", ErrInvalidImage, f.Format, n, len(f.Planes))
	}
	for p := range n {
		w := f.Format.PlaneWidth(p, f.Width)
		h := f.Format.PlaneHeight(p, f.Height)
		if f.Strides[p] < w || len(f.Planes[p]) < (h-1)*f.Strides[p]+w {
			return fmt.Errorf("%w: plane %d too small for %dx%d", ErrInvalidImage, p, w, h)
		}
	}
	return nil
}

// ColorModel implements image.Image.
func (f *Frame) ColorModel() color.Model {
	return color.RGBA64Model
}

// Bounds implements image.Image.
func (f *Frame) Bounds() image.Rectangle {
	return image.Rect(0, 0, f.Width, f.Height)
}

// At implements image.Image.
func (f *Frame) At(x, y int) color.Color {
	return f.RGBA64At(x, y)
}

// RGBA64At implements image.RGBA64Image. Samples are scaled to 16 bits;
// YUV frames are converted with the BT.709 matrix.
func (f *Frame) RGBA64At(x, y int) color.RGBA64 {
	if !(image.Point{x, y}.In(f.Bounds())) || len(f.Planes) == 0 {
		return color.RGBA64{}
	}
	sample := func(p, px int) uint16 {
		return f.Planes[p][y*f.Strides[p]+px]
	}
	switch f.Format {
	case YUV422P10:
		return yuvToRGBA64(sample(0, x), sample(1, x>>1), sample(2, x>>1))
	case RGBP12:
		return color.RGBA64{R: scale12(sample(0, x)), G: scale12(sample(1, x)), B: scale12(sample(2, x)), A: 0xffff}
	case RGBAP12:
		a := scale12(sample(3, x))
		// color.RGBA64 is alpha-premultiplied.
		pm := func(v uint16) uint16 { return uint16(uint32(scale12(v)) * uint32(a) / 0xffff) }
		return color.RGBA64{R: pm(sample(0, x)), G: pm(sample(1, x)), B: pm(sample(2, x)), A: a}
	}
	return color.RGBA64{}
}

// Header describes a CFHD sample without decoding it.
type Header struct {
	Width       int // ImageWidth
	Height      int // DisplayHeight when present, else CodedHeight
	CodedHeight int // ImageHeight
	Format      PixelFormat
	BitDepth    int
	Channels    int
	FrameNumber uint16
}
