package dataset

import "errors"

var (
	ErrInvalidClassMap   = errors.New("invalid class map")
	ErrUnsupportedFormat = errors.New("unsupported sample file format")
	ErrMalformedSample   = errors.New("malformed sample file")
	ErrNoSamples         = errors.New("no sample files found")
	ErrIndexOutOfRange   = errors.New("sample index out of range")
	ErrInvalidListing    = errors.New("invalid listing strategy")
)
