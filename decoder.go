package cfhd

import (
	"fmt"
	"image"
	"image/color"
	"io"
	"log/slog"

	"github.com/ajroetker/go-highway/hwy/contrib/workerpool"
)

// maxImagePixels bounds the coded image area a header may declare.
const maxImagePixels = 8192 * 8192

// DecodeOptions configures a Decoder.
type DecodeOptions struct {
	// Pool, when set, reconstructs channels in parallel. Parsing is always
	// sequential.
	Pool *workerpool.Pool

	// Logger receives Debug records for skipped and unknown tags.
	// nil discards them.
	Logger *slog.Logger
}

// Decoder decodes CFHD samples. It keeps its coefficient store between
// frames while the coded geometry stays the same. A Decoder must not be used
// from more than one goroutine at a time.
type Decoder struct {
	opts  DecodeOptions
	log   *slog.Logger
	store *coeffStore
}

// NewDecoder returns a Decoder. opts may be nil.
func NewDecoder(opts *DecodeOptions) *Decoder {
	d := &Decoder{}
	if opts != nil {
		d.opts = *opts
	}
	d.log = d.opts.Logger
	if d.log == nil {
		d.log = slog.New(slog.DiscardHandler)
	}
	return d
}

// parseState is the cursor of one frame's tag stream: what the header
// declared and which channel, level and band the following data belongs to.
type parseState struct {
	width       int
	codedHeight int
	height      int // DisplayHeight, 0 when absent
	format      PixelFormat
	precision   int
	channels    int
	frameNumber uint16
	shifts      [numLevels]uint
	haveShifts  bool

	// Non-zero dimension tags seen after the header.
	lateWidth, lateHeight int

	channel     int
	level       int // -1 until a WaveletLevel tag
	orientation int // 0 until a SubbandNumber tag
	bandActual  int // noBand until a SubbandBand tag
	quant       uint32
	encoding    uint16
	codingFlags uint16

	lowpassWidth, lowpassHeight   int
	highpassWidth, highpassHeight int
	bandWidth, bandHeight         int

	lowpassSeen uint8
	bandsSeen   [4]uint16
	done        bool
}

const (
	noBand = 255

	// bandEncodingLossless marks bands that carry coefficients verbatim.
	bandEncodingLossless = 5

	codingFlagsCodebook   = 7
	codingFlagsDifference = 8

	allHighpassBands = 1<<numBands - 2
)

func newParseState() *parseState {
	return &parseState{level: -1, bandActual: noBand, quant: 1}
}

// header returns the frame description the header declared.
func (st *parseState) header() Header {
	h := Header{
		Width:       st.width,
		Height:      st.codedHeight,
		CodedHeight: st.codedHeight,
		Format:      st.format,
		BitDepth:    st.precision,
		Channels:    st.channels,
		FrameNumber: st.frameNumber,
	}
	if st.height > 0 && st.height <= st.codedHeight {
		h.Height = st.height
	}
	return h
}

// finishHeader validates the header once the end-of-header marker is read.
func (st *parseState) finishHeader() error {
	if st.width <= 0 || st.codedHeight <= 0 || st.format == 0 {
		return fmt.Errorf("%w: %w: width %d, height %d, format %v",
			ErrMalformedHeader, ErrMissingDimensions, st.width, st.codedHeight, st.format)
	}
	if st.width*st.codedHeight > maxImagePixels {
		return fmt.Errorf("%w: %dx%d image", ErrUnsupportedFeature, st.width, st.codedHeight)
	}
	if st.channels == 0 {
		st.channels = st.format.NumPlanes()
	}
	if st.channels != st.format.NumPlanes() {
		return fmt.Errorf("%w: %d channels for %v", ErrMalformedHeader, st.channels, st.format)
	}
	if st.precision == 0 {
		st.precision = st.format.BitDepth()
	}
	if st.precision != st.format.BitDepth() {
		return fmt.Errorf("%w: %d-bit %v", ErrUnsupportedFeature, st.precision, st.format)
	}
	if !st.haveShifts {
		st.shifts = prescaleShifts(defaultPrescale(st.format))
	}
	return nil
}

// skipReserved handles the tag ranges that carry opaque data. It reports
// whether tag belonged to one of them.
func skipReserved(r *bitReader, log *slog.Logger, tag Tag, val uint16) (bool, error) {
	a := absTag(tag)
	switch hi := a >> 8; {
	case hi >= tagLargeChunkLo && hi <= tagLargeChunkHi:
		n := (int(a&0xff)<<16 | int(val)) * 4
		if n > r.Remaining() {
			return true, fmt.Errorf("%w: %w: large chunk of %d bytes, %d remain",
				ErrMalformedHeader, ErrBitstreamOverread, n, r.Remaining())
		}
		log.Debug("cfhd: large chunk", "tag", int(tag), "bytes", n)
		return true, nil
	case hi == tagSkipChunk:
		return true, r.skipChunk(tag, int(val)*4)
	}
	return false, nil
}

// parseHeader consumes tags up to and including the end-of-header marker.
func parseHeader(r *bitReader, st *parseState, log *slog.Logger) error {
	for {
		tag, val, err := r.readTag()
		if err != nil {
			return err
		}
		if ok, err := skipReserved(r, log, tag, val); ok {
			if err != nil {
				return err
			}
			continue
		}

		switch tag {
		case TagBitstreamMarker:
			if val == markerHeaderEnd {
				return st.finishHeader()
			}
			log.Debug("cfhd: marker in header", "value", val)
		case TagSampleIndexTable:
			if err := r.skipChunk(tag, int(val)*4); err != nil {
				return err
			}
		case TagTransformType:
			if val != 0 {
				return fmt.Errorf("%w: transform type %d", ErrUnsupportedFeature, val)
			}
		case TagChannelCount:
			if val == 0 || val > 4 {
				return fmt.Errorf("%w: channel count %d", ErrMalformedHeader, val)
			}
			st.channels = int(val)
		case TagSubbandCount:
			switch val {
			case numBands:
			case 17:
				return fmt.Errorf("%w: 3D transform (%d subbands)", ErrUnsupportedFeature, val)
			default:
				return fmt.Errorf("%w: subband count %d", ErrMalformedHeader, val)
			}
		case TagWaveletCount:
			if val != numLevels {
				return fmt.Errorf("%w: %d wavelets", ErrUnsupportedFeature, val)
			}
		case TagEncodedFormat:
			f, err := formatFromEncoded(val)
			if err != nil {
				return err
			}
			st.format = f
		case TagImageWidth:
			st.width = int(val)
		case TagImageHeight:
			st.codedHeight = int(val)
		case TagDisplayHeight, -TagDisplayHeight:
			st.height = int(val)
		case TagFrameNumber, -TagFrameNumber:
			st.frameNumber = val
		case TagPrecision:
			if val != 10 && val != 12 {
				return fmt.Errorf("%w: precision %d", ErrMalformedHeader, val)
			}
			st.precision = int(val)
		case TagPrescaleTable:
			st.shifts, st.haveShifts = prescaleShifts(val), true
		case TagPrescaleShift:
			st.shifts, st.haveShifts = prescaleShiftsPacked(val), true
		case TagSampleType, TagNumFrames, TagNumSpatial, TagFirstWavelet,
			TagSampleFlags, TagInputFormat, TagVersion, TagVersionMajor,
			TagVersionMinor, TagVersionRevision, TagVersionEdit, TagFrameType,
			TagFrameIndex:
		default:
			log.Debug("cfhd: unknown header tag", "tag", int(tag), "value", val)
		}
	}
}

// DecodeHeader parses the header of a CFHD sample.
func DecodeHeader(data []byte) (Header, error) {
	st := newParseState()
	if err := parseHeader(newBitReader(data), st, slog.New(slog.DiscardHandler)); err != nil {
		return Header{}, err
	}
	return st.header(), nil
}

// Decode decodes one sample into a newly allocated frame.
func (d *Decoder) Decode(data []byte) (*Frame, error) {
	return d.decode(data, nil)
}

// DecodeFrame decodes one sample into dst, whose format and size must match
// the sample's header. dst is written only when the whole sample decodes.
func (d *Decoder) DecodeFrame(data []byte, dst *Frame) error {
	if dst == nil {
		return fmt.Errorf("%w: nil destination", ErrFrameMismatch)
	}
	_, err := d.decode(data, dst)
	return err
}

func (d *Decoder) decode(data []byte, dst *Frame) (*Frame, error) {
	r := newBitReader(data)
	st := newParseState()
	if err := parseHeader(r, st, d.log); err != nil {
		return nil, err
	}
	hdr := st.header()

	if dst != nil {
		if dst.Format != hdr.Format || dst.Width != hdr.Width || dst.Height != hdr.Height {
			return nil, fmt.Errorf("%w: frame is %v %dx%d, sample is %v %dx%d", ErrFrameMismatch,
				dst.Format, dst.Width, dst.Height, hdr.Format, hdr.Width, hdr.Height)
		}
		if err := dst.check(); err != nil {
			return nil, fmt.Errorf("%w: %w", ErrFrameMismatch, err)
		}
	}

	// A header can declare a large image in a few bytes; check the body
	// can hold the lowpass blocks before sizing the store for it.
	if need := lowpassBytes(st.format, st.width, st.codedHeight); need > r.Remaining() {
		return nil, fmt.Errorf("%w: %dx%d image needs %d lowpass bytes, %d remain",
			ErrBitstreamOverread, st.width, st.codedHeight, need, r.Remaining())
	}
	if !d.store.matches(st.format, st.width, st.codedHeight) {
		d.store = allocateStore(st.format, st.width, st.codedHeight)
	} else {
		d.store.reset()
	}

	for !st.done {
		tag, val, err := r.readTag()
		if err != nil {
			return nil, err
		}
		if err := d.bodyTag(r, st, tag, val); err != nil {
			return nil, err
		}
	}
	if err := d.checkComplete(st); err != nil {
		return nil, err
	}

	if dst == nil {
		dst = NewFrame(hdr.Format, hdr.Width, hdr.Height)
	}
	d.reconstruct(st, dst)
	return dst, nil
}

// bodyTag handles one tag after the header.
func (d *Decoder) bodyTag(r *bitReader, st *parseState, tag Tag, val uint16) error {
	if ok, err := skipReserved(r, d.log, tag, val); ok {
		return err
	}

	switch tag {
	case TagBitstreamMarker:
		switch val {
		case markerLowpassStart:
			return d.readLowpass(r, st)
		case markerBandStart:
			st.orientation, st.bandActual = 0, noBand
			st.bandWidth, st.bandHeight = 0, 0
		case markerHeaderEnd, markerLowpassEnd, markerLevelStart, markerLevelEnd:
		default:
			d.log.Debug("cfhd: unknown marker", "value", val)
		}
	case TagSampleIndexTable:
		return r.skipChunk(tag, int(val)*4)
	case TagChannelNumber:
		if int(val) >= st.channels {
			return fmt.Errorf("%w: channel %d of %d", ErrMalformedHeader, val, st.channels)
		}
		st.channel, st.level = int(val), -1
	case TagNumLevels:
		if val != numLevels {
			return fmt.Errorf("%w: %d levels", ErrUnsupportedFeature, val)
		}
	case TagLowpassWidth:
		st.lowpassWidth = int(val)
	case TagLowpassHeight:
		st.lowpassHeight = int(val)
	case TagWaveletLevel:
		if val < 1 || val > numLevels {
			return fmt.Errorf("%w: wavelet level %d", ErrMalformedHeader, val)
		}
		st.level = numLevels - int(val)
	case TagHighpassWidth:
		st.highpassWidth = int(val)
	case TagHighpassHeight:
		st.highpassHeight = int(val)
	case TagSubbandNumber:
		if val < 1 || val > 3 {
			return fmt.Errorf("%w: subband number %d", ErrMalformedHeader, val)
		}
		st.orientation = int(val)
	case TagBandWidth:
		st.bandWidth = int(val)
	case TagBandHeight:
		st.bandHeight = int(val)
	case TagSubbandBand:
		if val < 1 || val >= numBands {
			return fmt.Errorf("%w: subband %d", ErrMalformedHeader, val)
		}
		st.bandActual = int(val)
	case TagBandEncoding:
		st.encoding = val
	case TagQuantization:
		st.quant = uint32(val)
	case TagBandCodingFlags:
		st.codingFlags = val
	case TagBandHeader:
		if st.bandActual == noBand {
			return nil
		}
		err := d.readBand(r, st)
		st.bandActual = noBand
		return err
	case TagGroupTrailer:
		st.done = true
	case TagImageWidth:
		if val != 0 {
			st.lateWidth = int(val)
		}
	case TagImageHeight:
		if val != 0 {
			st.lateHeight = int(val)
		}
	case TagSampleType, TagLowpassSubband, TagPixelOffset, TagLowpassQuantization,
		TagLowpassPrecision, TagWaveletType, TagWaveletNumber, TagNumBands,
		TagLowpassBorder, TagHighpassBorder, TagLowpassScale, TagLowpassDivisor,
		TagBandScale, TagBandTrailer, TagBandSecondPass, TagPeakLevel,
		TagPeakOffsetLow, TagPeakOffsetHigh, TagFrameNumber, -TagFrameNumber,
		TagDisplayHeight, -TagDisplayHeight:
	default:
		d.log.Debug("cfhd: unknown tag", "tag", int(tag), "value", val)
	}
	return nil
}

// readLowpass reads the raw level-0 lowpass coefficients of the current
// channel. An odd row count is padded by repeating the last row when the
// allocation has room for it.
func (d *Decoder) readLowpass(r *bitReader, st *parseState) error {
	ch := d.store.channels[st.channel]
	b := &ch.bands[0]
	if err := ch.setExtent(0, st.lowpassWidth, st.lowpassHeight); err != nil {
		return err
	}
	if n := 2 * b.width * b.height; n > r.Remaining() {
		return fmt.Errorf("%w: lowpass needs %d bytes, %d remain", ErrBitstreamOverread, n, r.Remaining())
	}
	for y := range b.height {
		row := b.row(ch.coeff, y)
		for x := range row {
			v, err := r.ReadUint16()
			if err != nil {
				return err
			}
			row[x] = int16(v)
		}
	}
	if b.height&1 != 0 && b.height < b.allocHeight {
		copy(b.row(ch.coeff, b.height), b.row(ch.coeff, b.height-1))
	}
	if err := r.Align(4); err != nil {
		return err
	}
	st.lowpassSeen |= 1 << st.channel
	return nil
}

// readBand entropy decodes the highpass band the cursor points at.
func (d *Decoder) readBand(r *bitReader, st *parseState) error {
	if st.level < 0 || st.orientation == 0 {
		return fmt.Errorf("%w: band %d outside a level", ErrMalformedHeader, st.bandActual)
	}
	i := bandIndex(st.level, st.orientation)
	if i != st.bandActual {
		return fmt.Errorf("%w: subband %d declared as level %d orientation %d",
			ErrMalformedHeader, st.bandActual, st.level, st.orientation)
	}
	switch {
	case st.codingFlags&codingFlagsDifference != 0:
		return fmt.Errorf("%w: difference coded band", ErrUnsupportedFeature)
	case st.codingFlags&codingFlagsCodebook == 0:
		return fmt.Errorf("%w: codebook 0", ErrUnsupportedFeature)
	case st.codingFlags&codingFlagsCodebook != 1:
		return fmt.Errorf("%w: codebook %d", ErrMalformedHeader, st.codingFlags&codingFlagsCodebook)
	}

	w, h := st.bandWidth, st.bandHeight
	if w == 0 {
		w = st.highpassWidth
	}
	if h == 0 {
		h = st.highpassHeight
	}
	ch := d.store.channels[st.channel]
	if err := ch.setExtent(i, w, h); err != nil {
		return err
	}

	r.ByteAlign()
	if err := decodeBand(r, ch.coeff, &ch.bands[i], st.quant, st.encoding == bandEncodingLossless); err != nil {
		return fmt.Errorf("channel %d band %d: %w", st.channel, i, err)
	}
	if err := r.Align(4); err != nil {
		return err
	}
	st.bandsSeen[st.channel] |= 1 << i
	return nil
}

// checkComplete verifies every channel was fully coded and the image size
// was not changed after the header.
func (d *Decoder) checkComplete(st *parseState) error {
	for c := range st.channels {
		if st.lowpassSeen&(1<<c) == 0 {
			return fmt.Errorf("%w: channel %d has no lowpass band", ErrMalformedHeader, c)
		}
		if st.bandsSeen[c] != allHighpassBands {
			return fmt.Errorf("%w: channel %d is missing highpass bands (have %#x)",
				ErrMalformedHeader, c, st.bandsSeen[c])
		}
	}
	if (st.lateWidth != 0 && st.lateWidth != st.width) ||
		(st.lateHeight != 0 && st.lateHeight != st.codedHeight) {
		return fmt.Errorf("%w: header %dx%d, stream %dx%d", ErrDimensionReassigned,
			st.width, st.codedHeight, st.lateWidth, st.lateHeight)
	}
	return nil
}

// reconstruct runs the inverse transform of every channel into dst.
func (d *Decoder) reconstruct(st *parseState, dst *Frame) {
	f := st.format
	bits := uint(f.BitDepth())
	forEachChannel(d.opts.Pool, st.channels, func(c int) {
		p := channelPlane(f, c)
		w := f.PlaneWidth(p, dst.Width)
		h := f.PlaneHeight(p, dst.Height)
		d.store.channels[c].synthesize(dst.Planes[p], dst.Strides[p], w, h, st.shifts, bits)
		if c == 3 {
			for y := range h {
				expandAlpha(dst.Row(p, y))
			}
		}
	})
}

// Decode reads a CFHD sample from r.
func Decode(r io.Reader) (image.Image, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, err
	}
	f, err := NewDecoder(nil).Decode(data)
	if err != nil {
		return nil, err
	}
	return f, nil
}

// DecodeConfig returns the dimensions of a CFHD sample without decoding it.
func DecodeConfig(r io.Reader) (image.Config, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return image.Config{}, err
	}
	h, err := DecodeHeader(data)
	if err != nil {
		return image.Config{}, err
	}
	return image.Config{
		ColorModel: color.RGBA64Model,
		Width:      h.Width,
		Height:     h.Height,
	}, nil
}

// Register format with image package
func init() {
	// Every sample starts with SampleType = 9.
	image.RegisterFormat("cfhd", "\x00\x01\x00\x09", Decode, DecodeConfig)
}
