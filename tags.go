package cfhd

import (
	"encoding/binary"
	"fmt"
)

// Tag identifies a CFHD tag/value unit. Negative tags are optional: a decoder
// that does not understand one may ignore it.
type Tag int16

// CFHD tag identifiers.
const (
	TagSampleType          Tag = 1
	TagSampleIndexTable    Tag = 2
	TagBitstreamMarker     Tag = 4
	TagVersionMajor        Tag = 5
	TagVersionMinor        Tag = 6
	TagVersionRevision     Tag = 7
	TagVersionEdit         Tag = 8
	TagTransformType       Tag = 10
	TagNumFrames           Tag = 11
	TagChannelCount        Tag = 12
	TagWaveletCount        Tag = 13
	TagSubbandCount        Tag = 14
	TagNumSpatial          Tag = 15
	TagFirstWavelet        Tag = 16
	TagGroupTrailer        Tag = 18
	TagFrameType           Tag = 19
	TagImageWidth          Tag = 20
	TagImageHeight         Tag = 21
	TagFrameIndex          Tag = 23
	TagLowpassSubband      Tag = 25
	TagNumLevels           Tag = 26
	TagLowpassWidth        Tag = 27
	TagLowpassHeight       Tag = 28
	TagPixelOffset         Tag = 33
	TagLowpassQuantization Tag = 34
	TagLowpassPrecision    Tag = 35
	TagWaveletType         Tag = 37
	TagWaveletNumber       Tag = 38
	TagWaveletLevel        Tag = 39
	TagNumBands            Tag = 40
	TagHighpassWidth       Tag = 41
	TagHighpassHeight      Tag = 42
	TagLowpassBorder       Tag = 43
	TagHighpassBorder      Tag = 44
	TagLowpassScale        Tag = 45
	TagLowpassDivisor      Tag = 46
	TagSubbandNumber       Tag = 48
	TagBandWidth           Tag = 49
	TagBandHeight          Tag = 50
	TagSubbandBand         Tag = 51
	TagBandEncoding        Tag = 52
	TagQuantization        Tag = 53
	TagBandScale           Tag = 54
	TagBandHeader          Tag = 55
	TagBandTrailer         Tag = 56
	TagChannelNumber       Tag = 62
	TagSampleFlags         Tag = 68
	TagFrameNumber         Tag = 69
	TagPrecision           Tag = 70
	TagInputFormat         Tag = 71
	TagBandCodingFlags     Tag = 72
	TagPeakLevel           Tag = 74
	TagPeakOffsetLow       Tag = 75
	TagPeakOffsetHigh      Tag = 76
	TagVersion             Tag = 79
	TagBandSecondPass      Tag = 82
	TagPrescaleTable       Tag = 83
	TagEncodedFormat       Tag = 84
	TagDisplayHeight       Tag = 85
	TagPrescaleShift       Tag = 109
)

// Values carried by TagBitstreamMarker.
const (
	markerHeaderEnd    = 0x1a4a // end of header / start of a channel
	markerLowpassStart = 0x0f0f
	markerLowpassEnd   = 0x1b4b
	markerLevelStart   = 0x0d0d
	markerLevelEnd     = 0x0c0c
	markerBandStart    = 0x0e0e
)

// Reserved tag ranges, by the high byte of the tag's absolute value.
const (
	tagLargeChunkLo = 0x60 // 0x60XX-0x6FXX: 24-bit word count follows
	tagLargeChunkHi = 0x6f
	tagSkipChunk    = 0x40 // 0x40XX: skip value*4 bytes
)

// readTag reads one tag/value unit.
func (r *bitReader) readTag() (Tag, uint16, error) {
	r.ByteAlign()
	if r.pos+4 > len(r.data) {
		return 0, 0, fmt.Errorf("%w: tag at offset %d", ErrBitstreamOverread, r.pos)
	}
	tag := Tag(int16(binary.BigEndian.Uint16(r.data[r.pos:])))
	val := binary.BigEndian.Uint16(r.data[r.pos+2:])
	r.pos += 4
	return tag, val, nil
}

// skipChunk skips a length-prefixed opaque block. A length running past the
// end of the data is both a malformed header and an overread.
func (r *bitReader) skipChunk(tag Tag, n int) error {
	if err := r.Skip(n); err != nil {
		return fmt.Errorf("%w: tag %d: %w", ErrMalformedHeader, tag, err)
	}
	return nil
}

// absTag returns |tag| without overflowing on -32768.
func absTag(tag Tag) int32 {
	v := int32(tag)
	if v < 0 {
		return -v
	}
	return v
}

// tagWriter accumulates a CFHD sample in memory.
type tagWriter struct {
	buf []byte
}

func (w *tagWriter) putTag(tag Tag, val uint16) {
	w.buf = binary.BigEndian.AppendUint16(w.buf, uint16(tag))
	w.buf = binary.BigEndian.AppendUint16(w.buf, val)
}

func (w *tagWriter) putBE16(v uint16) {
	w.buf = binary.BigEndian.AppendUint16(w.buf, v)
}

func (w *tagWriter) putBE32(v uint32) {
	w.buf = binary.BigEndian.AppendUint32(w.buf, v)
}

func (w *tagWriter) putBytes(b []byte) {
	w.buf = append(w.buf, b...)
}

// pad appends zero bytes up to the next multiple of n.
func (w *tagWriter) pad(n int) {
	for len(w.buf)%n != 0 {
		w.buf = append(w.buf, 0)
	}
}

// patchBE32 overwrites four bytes at off.
func (w *tagWriter) patchBE32(off int, v uint32) {
	binary.BigEndian.PutUint32(w.buf[off:], v)
}

func (w *tagWriter) Len() int {
	return len(w.buf)
}
