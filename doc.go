// Package cfhd implements a pure Go CineForm HD (CFHD) codec.
//
// CFHD is an intra-only wavelet codec. Each sample is a stream of 16-bit
// tag/value pairs carrying a three-level 2/6 wavelet decomposition per
// channel: a raw lowpass band followed by nine run-length and VLC coded
// highpass bands. Three pixel formats are supported: 10-bit YUV 4:2:2 and
// 12-bit planar RGB and RGBA.
//
// Decoding:
//
//	dec := cfhd.NewDecoder(nil)
//	frame, err := dec.Decode(sample)
//	if err != nil {
//	    log.Fatal(err)
//	}
//
// Encoding:
//
//	enc, err := cfhd.NewEncoder(&cfhd.EncodeOptions{Quality: cfhd.QualityFilm2})
//	if err != nil {
//	    log.Fatal(err)
//	}
//	sample, err := enc.EncodeFrame(frame)
//
// A Decoder or Encoder keeps its coefficient buffers between frames of the
// same size, so a stream of frames should reuse one instance per goroutine.
//
// The package registers itself with the image package for automatic
// format detection:
//
//	import _ "github.com/ajroetker/go-cfhd"
//	img, _, err := image.Decode(reader)
package cfhd
