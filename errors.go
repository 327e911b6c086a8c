package cfhd

import "errors"

var (
	ErrMalformedHeader          = errors.New("cfhd: malformed header")
	ErrInvalidSubbandDimensions = errors.New("cfhd: invalid subband dimensions")
	ErrEscapeNotFound           = errors.New("cfhd: escape codeword not found")
	ErrBitstreamOverread        = errors.New("cfhd: bitstream overread")
	ErrMissingDimensions        = errors.New("cfhd: missing image dimensions")
	ErrDimensionReassigned      = errors.New("cfhd: image dimensions reassigned mid-stream")
	ErrUnsupportedFeature       = errors.New("cfhd: unsupported feature")
	ErrInvalidImage             = errors.New("cfhd: invalid source image")
	ErrInvalidOption            = errors.New("cfhd: invalid option")
	ErrFrameMismatch            = errors.New("cfhd: destination frame does not match stream")
)
