package cfhd

import (
	"fmt"

	"github.com/ajroetker/go-highway/hwy/contrib/image"
)

// Number of decomposition levels and coded bands per channel: one lowpass
// band plus three highpass bands per level.
const (
	numLevels = 3
	numBands  = 1 + 3*numLevels
)

// bandIndex returns the store index of the highpass band with the given
// level (0 = coarsest) and orientation (1..3).
func bandIndex(level, orientation int) int {
	return 1 + 3*level + orientation - 1
}

// subband is a view into a channel's coefficient buffer. Subbands are never
// allocated separately; they address the buffer through an offset and the
// buffer's stride.
type subband struct {
	x0, y0        int
	width, height int // declared extent; zero until declared

	allocWidth, allocHeight int
	wantWidth, wantHeight   int // extent implied by the coded image size
}

// row returns row y of the band's declared extent.
func (b *subband) row(img *image.Image[int16], y int) []int16 {
	return img.Row(b.y0 + y)[b.x0 : b.x0+b.width]
}

// clear zeroes the band's allocated extent.
func (b *subband) clear(img *image.Image[int16]) {
	for y := range b.allocHeight {
		clear(img.Row(b.y0 + y)[b.x0 : b.x0+b.allocWidth])
	}
}

// channelStore owns the coefficient pyramid of one bitstream channel.
// The layout is the usual quadrant arrangement: the level-0 lowpass band sits
// in the top-left corner and the highpass bands of level l sit right of,
// below, and diagonal to the region that level l reconstructs.
type channelStore struct {
	width, height int // coded sample extent of the channel

	coeff *image.Image[int16]
	work  *image.Image[int16]

	bands [numBands]subband
}

// levelSize returns the lowpass extent that level l reconstructs from.
// Level 3 is the full reconstructed extent.
func (c *channelStore) levelSize(l int) (w, h int) {
	return c.bands[0].wantWidth << l, c.bands[0].wantHeight << l
}

func newChannelStore(width, height int) *channelStore {
	w0 := (width + 7) / 8
	h0 := (height + 7) / 8
	aw0 := w0
	ah0 := (h0 + 1) &^ 1

	c := &channelStore{
		width:  width,
		height: height,
		coeff:  image.NewImage[int16](aw0<<numLevels, ah0<<numLevels),
		work:   image.NewImage[int16](aw0<<numLevels, ah0<<numLevels),
	}
	c.bands[0] = subband{
		allocWidth: aw0, allocHeight: ah0,
		wantWidth: w0, wantHeight: h0,
	}
	for l := range numLevels {
		aw, ah := aw0<<l, ah0<<l
		for o := 1; o <= 3; o++ {
			b := subband{
				allocWidth: aw, allocHeight: ah,
				wantWidth: w0 << l, wantHeight: h0 << l,
			}
			if o&1 != 0 {
				b.x0 = aw
			}
			if o >= 2 {
				b.y0 = ah
			}
			c.bands[bandIndex(l, o)] = b
		}
	}
	return c
}

// setExtent declares the extent of band i. The extent must fit the
// allocation, hold at least two samples per direction for the lifting
// filters, and agree with the coded image size.
func (c *channelStore) setExtent(i, w, h int) error {
	b := &c.bands[i]
	if w < 2 || h < 2 || w > b.allocWidth || h > b.allocHeight {
		return fmt.Errorf("%w: band %d declared %dx%d, allocated %dx%d",
			ErrInvalidSubbandDimensions, i, w, h, b.allocWidth, b.allocHeight)
	}
	if w != b.wantWidth || h != b.wantHeight {
		return fmt.Errorf("%w: band %d declared %dx%d, image requires %dx%d",
			ErrInvalidSubbandDimensions, i, w, h, b.wantWidth, b.wantHeight)
	}
	b.width, b.height = w, h
	return nil
}

// reset forgets the declared extents of the previous frame.
func (c *channelStore) reset() {
	for i := range c.bands {
		c.bands[i].width, c.bands[i].height = 0, 0
	}
}

// coeffStore holds one channelStore per bitstream channel. It is reused
// while the coded geometry and pixel format stay the same.
type coeffStore struct {
	format        PixelFormat
	width, height int // coded image extent
	channels      []*channelStore
}

// allocateStore sizes a store for a coded image. Channel c takes the
// geometry of the frame plane it maps to.
func allocateStore(format PixelFormat, width, height int) *coeffStore {
	s := &coeffStore{format: format, width: width, height: height}
	n := format.NumPlanes()
	s.channels = make([]*channelStore, n)
	for c := range n {
		p := channelPlane(format, c)
		s.channels[c] = newChannelStore(format.PlaneWidth(p, width), format.PlaneHeight(p, height))
	}
	return s
}

// lowpassBytes is the size of the raw lowpass blocks of every channel of a
// coded image, the least body data a complete sample can carry.
func lowpassBytes(format PixelFormat, width, height int) int {
	n := 0
	for p := range format.NumPlanes() {
		w0 := (format.PlaneWidth(p, width) + 7) / 8
		h0 := (format.PlaneHeight(p, height) + 7) / 8
		n += 2 * w0 * h0
	}
	return n
}

func (s *coeffStore) matches(format PixelFormat, width, height int) bool {
	return s != nil && s.format == format && s.width == width && s.height == height
}

func (s *coeffStore) reset() {
	for _, c := range s.channels {
		c.reset()
	}
}
