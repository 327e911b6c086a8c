package cfhd

import (
	"bytes"
	"encoding/binary"
	"errors"
	"image"
	"log/slog"
	"slices"
	"strings"
	"testing"

	"github.com/ajroetker/go-highway/hwy/contrib/workerpool"
)

// tagBytes encodes tag/value pairs.
func tagBytes(pairs ...uint16) []byte {
	var b []byte
	for _, v := range pairs {
		b = binary.BigEndian.AppendUint16(b, v)
	}
	return b
}

// findTag returns the offset of the first tag/value unit equal to (tag, val),
// or -1.
func findTag(data []byte, tag Tag, val uint16) int {
	want := tagBytes(uint16(tag), val)
	for off := 0; off+4 <= len(data); off += 4 {
		if bytes.Equal(data[off:off+4], want) {
			return off
		}
	}
	return -1
}

// withTags inserts raw bytes at off.
func withTags(data []byte, off int, ins []byte) []byte {
	return slices.Concat(data[:off], ins, data[off:])
}

// minimalHeader is a header that ends right after the end-of-header marker.
func minimalHeader(extra ...uint16) []byte {
	h := tagBytes(uint16(TagSampleType), 9)
	h = append(h, tagBytes(extra...)...)
	return append(h, tagBytes(uint16(TagBitstreamMarker), markerHeaderEnd)...)
}

func TestDecodeHeaderErrors(t *testing.T) {
	const (
		w  = uint16(TagImageWidth)
		h  = uint16(TagImageHeight)
		ef = uint16(TagEncodedFormat)
	)
	tests := []struct {
		name  string
		data  []byte
		wants []error
	}{
		{"missing width", minimalHeader(h, 32, ef, 1), []error{ErrMissingDimensions, ErrMalformedHeader}},
		{"missing format", minimalHeader(w, 64, h, 32), []error{ErrMissingDimensions}},
		{"3D transform", minimalHeader(uint16(TagSubbandCount), 17), []error{ErrUnsupportedFeature}},
		{"bad subband count", minimalHeader(uint16(TagSubbandCount), 12), []error{ErrMalformedHeader}},
		{"transform type", minimalHeader(uint16(TagTransformType), 2), []error{ErrUnsupportedFeature}},
		{"bayer", minimalHeader(ef, 2), []error{ErrUnsupportedFeature}},
		{"unknown format", minimalHeader(ef, 9), []error{ErrMalformedHeader}},
		{"precision", minimalHeader(uint16(TagPrecision), 8), []error{ErrMalformedHeader}},
		{"channel count", minimalHeader(w, 64, h, 32, ef, 1, uint16(TagChannelCount), 4), []error{ErrMalformedHeader}},
		{"too large", minimalHeader(w, 0xfff0, h, 0xfff0, ef, 3), []error{ErrUnsupportedFeature}},
		{"precision mismatch", minimalHeader(w, 64, h, 32, ef, 1, uint16(TagPrecision), 12), []error{ErrUnsupportedFeature}},
		{"truncated", tagBytes(uint16(TagSampleType), 9, uint16(TagImageWidth)), []error{ErrBitstreamOverread}},
		{"skip chunk past end", minimalHeader(0x4000, 100), []error{ErrMalformedHeader, ErrBitstreamOverread}},
		{"large chunk past end", minimalHeader(w, 64, h, 32, ef, 1, 0x6000, 100), []error{ErrMalformedHeader, ErrBitstreamOverread}},
		{"large chunk high bits", minimalHeader(w, 64, h, 32, ef, 1, 0x6f01, 0), []error{ErrMalformedHeader, ErrBitstreamOverread}},
		{"empty", nil, []error{ErrBitstreamOverread}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := DecodeHeader(tt.data)
			for _, want := range tt.wants {
				if !errors.Is(err, want) {
					t.Errorf("got %v, want %v", err, want)
				}
			}
		})
	}
}

func TestDecodeHeaderDefaults(t *testing.T) {
	data := minimalHeader(
		uint16(TagImageWidth), 64,
		uint16(TagImageHeight), 40,
		uint16(TagEncodedFormat), 4,
		0x4000, 1, 0xdead, 0xbeef, // skipped chunk of one word
		0xff00, 3, // unknown optional tag
	)
	h, err := DecodeHeader(data)
	if err != nil {
		t.Fatalf("DecodeHeader: %v", err)
	}
	want := Header{Width: 64, Height: 40, CodedHeight: 40, Format: RGBAP12, BitDepth: 12, Channels: 4}
	if h != want {
		t.Errorf("header = %+v, want %+v", h, want)
	}
}

func TestDecodeHeaderLargeChunk(t *testing.T) {
	// The tags a large chunk covers are its contents, so parsing carries on
	// straight after it.
	data := minimalHeader(
		0x6000, 3,
		uint16(TagImageWidth), 64,
		uint16(TagImageHeight), 40,
		uint16(TagEncodedFormat), 1,
	)
	var buf bytes.Buffer
	logger := slog.New(slog.NewTextHandler(&buf, &slog.HandlerOptions{Level: slog.LevelDebug}))
	st := newParseState()
	if err := parseHeader(newBitReader(data), st, logger); err != nil {
		t.Fatalf("parseHeader: %v", err)
	}
	if h := st.header(); h.Width != 64 || h.Height != 40 || h.Format != YUV422P10 {
		t.Errorf("header = %+v, want 64x40 %v", h, YUV422P10)
	}
	if !strings.Contains(buf.String(), "large chunk") || !strings.Contains(buf.String(), "bytes=12") {
		t.Errorf("log output %q does not report the chunk", buf.String())
	}
}

func TestDecodeMalformedBody(t *testing.T) {
	sample := mustEncode(t, gradientFrame(64, 32), nil)

	// Each case rewrites the value of the first matching tag.
	tests := []struct {
		name    string
		tag     Tag
		val     uint16
		newVal  uint16
		wantErr error
	}{
		{"codebook 0", TagBandCodingFlags, 1, 0, ErrUnsupportedFeature},
		{"difference coding", TagBandCodingFlags, 1, 9, ErrUnsupportedFeature},
		{"codebook 2", TagBandCodingFlags, 1, 2, ErrMalformedHeader},
		{"band width", TagBandWidth, 8, 6, ErrInvalidSubbandDimensions},
		{"band too wide", TagBandWidth, 8, 200, ErrInvalidSubbandDimensions},
		{"lowpass height", TagLowpassHeight, 4, 1, ErrInvalidSubbandDimensions},
		{"subband mismatch", TagSubbandBand, 1, 2, ErrMalformedHeader},
		{"subband number", TagSubbandNumber, 1, 4, ErrMalformedHeader},
		{"levels", TagNumLevels, 3, 2, ErrUnsupportedFeature},
		{"wavelet level", TagWaveletLevel, 3, 0, ErrMalformedHeader},
		{"channel number", TagChannelNumber, 1, 3, ErrMalformedHeader},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			off := findTag(sample, tt.tag, tt.val)
			if off < 0 {
				t.Fatalf("tag %d = %d not found", tt.tag, tt.val)
			}
			data := bytes.Clone(sample)
			binary.BigEndian.PutUint16(data[off+2:], tt.newVal)
			_, err := NewDecoder(nil).Decode(data)
			if !errors.Is(err, tt.wantErr) {
				t.Errorf("got %v, want %v", err, tt.wantErr)
			}
		})
	}
}

func TestDecodeDimensionReassigned(t *testing.T) {
	sample := mustEncode(t, gradientFrame(64, 32), nil)
	trailer := len(sample) - 4

	tests := []struct {
		name    string
		tags    []uint16
		wantErr error
	}{
		{"same width", []uint16{uint16(TagImageWidth), 64}, nil},
		{"zero height", []uint16{uint16(TagImageHeight), 0}, nil},
		{"new width", []uint16{uint16(TagImageWidth), 128}, ErrDimensionReassigned},
		{"new height", []uint16{uint16(TagImageHeight), 48}, ErrDimensionReassigned},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			data := withTags(sample, trailer, tagBytes(tt.tags...))
			_, err := NewDecoder(nil).Decode(data)
			if !errors.Is(err, tt.wantErr) {
				t.Errorf("got %v, want %v", err, tt.wantErr)
			}
		})
	}
}

func TestDecodeMissingBands(t *testing.T) {
	sample := mustEncode(t, gradientFrame(64, 32), nil)

	// Dropping the second channel's lowpass marker leaves it without a
	// lowpass band; its coefficients are then read as tags.
	first := findTag(sample, TagBitstreamMarker, markerLowpassStart)
	second := findTag(sample[first+4:], TagBitstreamMarker, markerLowpassStart)
	if first < 0 || second < 0 {
		t.Fatal("lowpass markers not found")
	}
	data := bytes.Clone(sample)
	binary.BigEndian.PutUint16(data[first+4+second+2:], 0x0101)
	if _, err := NewDecoder(nil).Decode(data); err == nil {
		t.Error("decoded a sample with a missing lowpass band")
	}

	// A body of skipped padding and a trailer codes nothing.
	end := findTag(sample, TagBitstreamMarker, markerHeaderEnd)
	need := lowpassBytes(YUV422P10, 64, 32)
	body := slices.Concat(tagBytes(0x4000, uint16(need/4)), make([]byte, need), tagBytes(uint16(TagGroupTrailer), 0))
	data = withTags(bytes.Clone(sample[:end+4]), end+4, body)
	if _, err := NewDecoder(nil).Decode(data); !errors.Is(err, ErrMalformedHeader) {
		t.Errorf("got %v, want ErrMalformedHeader", err)
	}
}

func TestDecodeBodyTooShortForHeader(t *testing.T) {
	// 8192x8192 RGBA would need 4 MiB of lowpass data alone.
	data := minimalHeader(
		uint16(TagImageWidth), 8192,
		uint16(TagImageHeight), 8192,
		uint16(TagEncodedFormat), 4,
	)
	data = append(data, tagBytes(uint16(TagGroupTrailer), 0)...)
	dec := NewDecoder(nil)
	if _, err := dec.Decode(data); !errors.Is(err, ErrBitstreamOverread) {
		t.Errorf("got %v, want ErrBitstreamOverread", err)
	}
	if dec.store != nil {
		t.Error("store allocated for a body that cannot hold the image")
	}
}

func TestDecodeTruncated(t *testing.T) {
	sample := mustEncode(t, gradientFrame(32, 32), &EncodeOptions{Quality: QualityMedium})
	dec := NewDecoder(nil)
	for n := range len(sample) {
		_, err := dec.Decode(sample[:n])
		if !errors.Is(err, ErrBitstreamOverread) && !errors.Is(err, ErrEscapeNotFound) {
			t.Fatalf("truncated to %d of %d bytes: got %v", n, len(sample), err)
		}
	}
	if _, err := dec.Decode(sample); err != nil {
		t.Errorf("full sample: %v", err)
	}
}

func TestDecodeFrame(t *testing.T) {
	src := gradientFrame(64, 36)
	sample := mustEncode(t, src, &EncodeOptions{Lossless: true})
	dec := NewDecoder(nil)

	t.Run("into frame", func(t *testing.T) {
		dst := NewFrame(YUV422P10, 64, 36)
		if err := dec.DecodeFrame(sample, dst); err != nil {
			t.Fatalf("DecodeFrame: %v", err)
		}
		if e := maxPlaneError(dst, src, 0); e != 0 {
			t.Errorf("luma differs by %d", e)
		}
	})

	t.Run("mismatch", func(t *testing.T) {
		for _, dst := range []*Frame{
			nil,
			NewFrame(YUV422P10, 64, 40),
			NewFrame(RGBP12, 64, 36),
			{Format: YUV422P10, Width: 64, Height: 36},
		} {
			if err := dec.DecodeFrame(sample, dst); !errors.Is(err, ErrFrameMismatch) {
				t.Errorf("got %v, want ErrFrameMismatch", err)
			}
		}
	})

	t.Run("untouched on error", func(t *testing.T) {
		dst := newTestFrame(YUV422P10, 64, 36, func(p, x, y int) uint16 { return 7 })
		err := dec.DecodeFrame(sample[:len(sample)-4], dst)
		if err == nil {
			t.Fatal("decoded a sample without a trailer")
		}
		for p := range 3 {
			for y := range dst.Height {
				for _, v := range dst.Row(p, y) {
					if v != 7 {
						t.Fatalf("plane %d written after a failed decode", p)
					}
				}
			}
		}
	})
}

func TestDecoderReuse(t *testing.T) {
	small := mustEncode(t, gradientFrame(32, 32), &EncodeOptions{Lossless: true})
	large := mustEncode(t, gradientFrame(64, 48), &EncodeOptions{Lossless: true})
	rgb := mustEncode(t, newTestFrame(RGBP12, 32, 32, func(p, x, y int) uint16 { return 1000 }), nil)

	pool := workerpool.New(3)
	defer pool.Close()
	dec := NewDecoder(&DecodeOptions{Pool: pool})
	for i, data := range [][]byte{small, large, small, rgb, small} {
		f, err := dec.Decode(data)
		if err != nil {
			t.Fatalf("sample %d: %v", i, err)
		}
		want := gradientFrame(f.Width, f.Height)
		if f.Format == RGBP12 {
			want = newTestFrame(RGBP12, 32, 32, func(p, x, y int) uint16 { return 1000 })
		}
		for p := range f.Format.NumPlanes() {
			if e := maxPlaneError(f, want, p); e != 0 {
				t.Errorf("sample %d plane %d differs by %d", i, p, e)
			}
		}
	}
}

func TestDecodeLogsUnknownTags(t *testing.T) {
	sample := mustEncode(t, gradientFrame(32, 32), nil)
	data := withTags(sample, 4, tagBytes(0xff00, 5))
	trailer := len(data) - 4
	data = withTags(data, trailer, tagBytes(0x7f00, 1))

	var buf bytes.Buffer
	logger := slog.New(slog.NewTextHandler(&buf, &slog.HandlerOptions{Level: slog.LevelDebug}))
	if _, err := NewDecoder(&DecodeOptions{Logger: logger}).Decode(data); err != nil {
		t.Fatalf("Decode: %v", err)
	}
	out := buf.String()
	for _, want := range []string{"unknown header tag", "tag=-256", "unknown tag", "tag=32512"} {
		if !strings.Contains(out, want) {
			t.Errorf("log output is missing %q:\n%s", want, out)
		}
	}
}

func TestDecodeConfig(t *testing.T) {
	sample := mustEncode(t, gradientFrame(64, 36), nil)

	cfg, format, err := image.DecodeConfig(bytes.NewReader(sample))
	if err != nil {
		t.Fatalf("image.DecodeConfig: %v", err)
	}
	if format != "cfhd" {
		t.Errorf("format = %q, want cfhd", format)
	}
	if cfg.Width != 64 || cfg.Height != 36 {
		t.Errorf("config is %dx%d, want 64x36", cfg.Width, cfg.Height)
	}
}

func TestImageFormatRegistration(t *testing.T) {
	sample := mustEncode(t, gradientFrame(64, 32), nil)
	img, format, err := image.Decode(bytes.NewReader(sample))
	if err != nil {
		t.Fatalf("image.Decode: %v", err)
	}
	if format != "cfhd" {
		t.Errorf("format = %q, want cfhd", format)
	}
	if b := img.Bounds(); b.Dx() != 64 || b.Dy() != 32 {
		t.Errorf("bounds = %v", b)
	}

	if _, err := Decode(bytes.NewReader(sample[:10])); err == nil {
		t.Error("Decode accepted a truncated sample")
	}
}

func FuzzDecodeFrame(f *testing.F) {
	f.Add(mustEncode(f, gradientFrame(32, 32), nil))
	f.Add(mustEncode(f, newTestFrame(RGBAP12, 32, 32, func(p, x, y int) uint16 { return uint16(x * y) }),
		&EncodeOptions{Quality: QualityLow}))
	f.Add(minimalHeader(uint16(TagImageWidth), 16, uint16(TagImageHeight), 16, uint16(TagEncodedFormat), 3))

	f.Fuzz(func(t *testing.T, data []byte) {
		h, err := DecodeHeader(data)
		if err != nil {
			return
		}
		if h.Width*h.CodedHeight > 1<<20 {
			t.Skip("large frame")
		}
		frame, err := NewDecoder(nil).Decode(data)
		if err != nil {
			return
		}
		if frame.Width != h.Width || frame.Height != h.Height || frame.check() != nil {
			t.Errorf("decoded %dx%d frame for header %+v", frame.Width, frame.Height, h)
		}
	})
}

func BenchmarkDecode(b *testing.B) {
	f := newTestFrame(YUV422P10, 1920, 1080, func(p, x, y int) uint16 {
		return uint16((x*7 + y*3) % 1024)
	})
	sample := mustEncode(b, f, &EncodeOptions{Quality: QualityFilm2})
	dec := NewDecoder(nil)
	dst := NewFrame(YUV422P10, 1920, 1080)

	b.SetBytes(int64(len(sample)))
	b.ReportAllocs()
	for b.Loop() {
		if err := dec.DecodeFrame(sample, dst); err != nil {
			b.Fatal(err)
		}
	}
}
