package cfhd

import (
	"fmt"
	"image"
	"io"

	"github.com/ajroetker/go-highway/hwy/contrib/workerpool"
)

// Quality selects a row of the per-subband quantization table. Lower values
// quantize less.
type Quality int

const (
	QualityFilm3Plus Quality = iota
	QualityFilm3
	QualityFilm2Plus
	QualityFilm2
	QualityFilm1Half
	QualityFilm1Plus
	QualityFilm1
	QualityHighPlus
	QualityHigh
	QualityMediumPlus
	QualityMedium
	QualityLowPlus
	QualityLow
)

var qualityNames = [...]string{
	"film3+", "film3", "film2+", "film2", "film1.5", "film1+", "film1",
	"high+", "high", "medium+", "medium", "low+", "low",
}

func (q Quality) String() string {
	if q.valid() {
		return qualityNames[q]
	}
	return fmt.Sprintf("Quality(%d)", int(q))
}

func (q Quality) valid() bool {
	return q >= QualityFilm3Plus && q <= QualityLow
}

// ParseQuality returns the quality with the given preset name.
// "film1++" is accepted for film1.5.
func ParseQuality(name string) (Quality, error) {
	if name == "film1++" {
		return QualityFilm1Half, nil
	}
	for i, n := range qualityNames {
		if n == name {
			return Quality(i), nil
		}
	}
	return 0, fmt.Errorf("%w: unknown quality %q", ErrInvalidOption, name)
}

// EncodeOptions controls CFHD encoding parameters.
type EncodeOptions struct {
	// Quality selects the quantization preset (default: film3+).
	// Ignored when Lossless is true.
	Quality Quality

	// Lossless codes every highpass band verbatim (band encoding 5) with a
	// quantization of 1. EncodeFrame fails with ErrUnsupportedFeature when a
	// highpass coefficient exceeds the codebook's magnitude range or a
	// prescale division is inexact, so a lossless sample always decodes to
	// the input frame.
	Lossless bool

	// FrameNumber is written to the optional FrameNumber tag.
	FrameNumber uint16

	// Pool, when set, transforms and codes channels in parallel.
	Pool *workerpool.Pool
}

// Encoder encodes frames as CFHD samples. It keeps its coefficient store
// between frames of the same geometry. An Encoder must not be used from more
// than one goroutine at a time.
type Encoder struct {
	opts  EncodeOptions
	store *coeffStore
}

// NewEncoder returns an Encoder. opts may be nil.
func NewEncoder(opts *EncodeOptions) (*Encoder, error) {
	e := &Encoder{}
	if opts != nil {
		e.opts = *opts
	}
	if !e.opts.Quality.valid() {
		return nil, fmt.Errorf("%w: quality %d", ErrInvalidOption, int(e.opts.Quality))
	}
	return e, nil
}

// Encode encodes img as a CFHD sample and writes it to w.
// A *Frame is encoded in its own format; images with an Opaque method that
// reports false are encoded as RGBAP12, YCbCr images as YUV422P10, and
// everything else as RGBP12.
func Encode(w io.Writer, img image.Image, opts *EncodeOptions) error {
	e, err := NewEncoder(opts)
	if err != nil {
		return err
	}
	f, err := FrameFromImage(img, imageFormat(img))
	if err != nil {
		return err
	}
	data, err := e.EncodeFrame(f)
	if err != nil {
		return err
	}
	_, err = w.Write(data)
	return err
}

func imageFormat(img image.Image) PixelFormat {
	switch m := img.(type) {
	case *Frame:
		return m.Format
	case *image.YCbCr:
		return YUV422P10
	case interface{ Opaque() bool }:
		if !m.Opaque() {
			return RGBAP12
		}
	}
	return RGBP12
}

// EncodeFrame encodes f. The width must be a multiple of 16 and the height at
// least 32; the height is coded rounded up to a multiple of 8.
func (e *Encoder) EncodeFrame(f *Frame) ([]byte, error) {
	if err := f.check(); err != nil {
		return nil, err
	}
	codedHeight := (f.Height + 7) &^ 7
	switch {
	case f.Width%16 != 0:
		return nil, fmt.Errorf("%w: width %d is not a multiple of 16", ErrInvalidImage, f.Width)
	case f.Height < 32:
		return nil, fmt.Errorf("%w: height %d is below 32", ErrInvalidImage, f.Height)
	case f.Width > 0xffff || codedHeight > 0xffff || f.Width*codedHeight > maxImagePixels:
		return nil, fmt.Errorf("%w: %dx%d is too large", ErrInvalidImage, f.Width, f.Height)
	}

	format := f.Format
	if !e.store.matches(format, f.Width, codedHeight) {
		e.store = allocateStore(format, f.Width, codedHeight)
	}
	prescale := defaultPrescale(format)
	shifts := prescaleShifts(prescale)

	n := format.NumPlanes()
	bodies := make([][]byte, n)
	errs := make([]error, n)
	forEachChannel(e.opts.Pool, n, func(c int) {
		bodies[c], errs[c] = e.encodeChannel(f, c, shifts)
	})
	for _, err := range errs {
		if err != nil {
			return nil, err
		}
	}

	var w tagWriter
	w.putTag(TagSampleType, 9)
	w.putTag(TagSampleIndexTable, uint16(n))
	index := w.Len()
	for range n {
		w.putBE32(0)
	}
	w.putTag(TagTransformType, 0)
	w.putTag(TagNumFrames, 1)
	w.putTag(TagChannelCount, uint16(n))
	w.putTag(TagEncodedFormat, format.encodedFormat())
	w.putTag(TagWaveletCount, numLevels)
	w.putTag(TagSubbandCount, numBands)
	w.putTag(TagNumSpatial, 2)
	w.putTag(TagFirstWavelet, 3)
	w.putTag(TagImageWidth, uint16(f.Width))
	w.putTag(TagImageHeight, uint16(codedHeight))
	w.putTag(-TagDisplayHeight, uint16(f.Height))
	w.putTag(-TagFrameNumber, e.opts.FrameNumber)
	w.putTag(TagPrecision, uint16(format.BitDepth()))
	w.putTag(TagPrescaleTable, prescale)
	w.putTag(TagSampleFlags, 1)

	for c, body := range bodies {
		if c > 0 {
			w.putTag(TagSampleType, 3)
			w.putTag(TagChannelNumber, uint16(c))
		}
		w.putTag(TagBitstreamMarker, markerHeaderEnd)
		w.patchBE32(index+4*c, uint32(len(body)))
		w.putBytes(body)
	}
	w.putTag(TagGroupTrailer, 0)
	return w.buf, nil
}

// encodeChannel transforms, quantizes and codes bitstream channel c of f,
// returning everything that follows the channel's start marker.
func (e *Encoder) encodeChannel(f *Frame, c int, shifts [numLevels]uint) ([]byte, error) {
	format := f.Format
	ch := e.store.channels[c]
	p := channelPlane(format, c)
	width := format.PlaneWidth(p, f.Width)
	height := format.PlaneHeight(p, f.Height)

	src, stride := f.Planes[p], f.Strides[p]
	if c == 3 {
		alpha := make([]uint16, width*height)
		for y := range height {
			for x, a := range f.Row(p, y) {
				alpha[y*width+x] = uint16(compandAlpha(int32(a)))
			}
		}
		src, stride = alpha, width
	}
	if exact := ch.analyze(src, stride, width, height, shifts); !exact && e.opts.Lossless {
		return nil, fmt.Errorf("%w: lossless coding of channel %d: prescaled transform is inexact",
			ErrUnsupportedFeature, c)
	}

	var w tagWriter
	lp := &ch.bands[0]
	w.putTag(TagLowpassSubband, 0)
	w.putTag(TagNumLevels, numLevels)
	w.putTag(TagLowpassWidth, uint16(lp.width))
	w.putTag(TagLowpassHeight, uint16(lp.height))
	w.putTag(TagPixelOffset, 0)
	w.putTag(TagLowpassQuantization, 1)
	w.putTag(TagLowpassPrecision, 16)
	w.putTag(TagBitstreamMarker, markerLowpassStart)
	for y := range lp.height {
		for _, v := range lp.row(ch.coeff, y) {
			w.putBE16(uint16(v))
		}
	}
	w.pad(4)
	w.putTag(TagBitstreamMarker, markerLowpassEnd)

	rgb := 0
	if format != YUV422P10 {
		rgb = 1
	}
	// Alpha shares the first channel's quantizers.
	qc := c
	if qc >= 3 {
		qc = 0
	}
	quants := &quantPerSubband[rgb][qc][e.opts.Quality]
	encoding := uint16(3)
	if e.opts.Lossless {
		encoding = bandEncodingLossless
	}

	bw := newBitWriter()
	for l := range numLevels {
		hp := &ch.bands[bandIndex(l, 1)]
		waveletType := uint16(3)
		if l == numLevels-1 {
			waveletType = 5
		}
		w.putTag(TagBitstreamMarker, markerLevelStart)
		w.putTag(TagWaveletType, waveletType)
		w.putTag(TagWaveletNumber, uint16(numLevels-l))
		w.putTag(TagWaveletLevel, uint16(numLevels-l))
		w.putTag(TagNumBands, 4)
		w.putTag(TagHighpassWidth, uint16(hp.width))
		w.putTag(TagHighpassHeight, uint16(hp.height))
		w.putTag(TagLowpassBorder, 0)
		w.putTag(TagHighpassBorder, 0)
		w.putTag(TagLowpassScale, 1)
		w.putTag(TagLowpassDivisor, 1)

		for o := 1; o <= 3; o++ {
			i := bandIndex(l, o)
			b := &ch.bands[i]
			quant := uint32(quants[i-1])
			if e.opts.Lossless {
				quant = 1
			}
			w.putTag(TagBitstreamMarker, markerBandStart)
			w.putTag(TagSubbandNumber, uint16(o))
			w.putTag(TagBandCodingFlags, 1)
			w.putTag(TagBandWidth, uint16(b.width))
			w.putTag(TagBandHeight, uint16(b.height))
			w.putTag(TagSubbandBand, uint16(i))
			w.putTag(TagBandEncoding, encoding)
			w.putTag(TagQuantization, uint16(quant))
			w.putTag(TagBandScale, 1)
			w.putTag(TagBandHeader, 0)

			if !e.opts.Lossless {
				quantizeBand(ch.coeff, b, quant)
			} else if !bandFitsSymbols(ch.coeff, b) {
				return nil, fmt.Errorf("%w: lossless coding of channel %d: band %d exceeds magnitude %d",
					ErrUnsupportedFeature, c, i, maxSymbol)
			}
			w.putBytes(encodeBand(bw, ch.coeff, b, e.opts.Lossless))
			bw.Reset()
			w.pad(4)
			w.putTag(TagBandTrailer, 0)
		}
		w.putTag(TagBitstreamMarker, markerLevelEnd)
	}
	return w.buf, nil
}
