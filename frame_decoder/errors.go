package frame_decoder

import "errors"

var (
	// ErrDecodeFailure is returned for malformed or truncated payloads, and for
	// samples whose payload does not match their declared subtype.
	ErrDecodeFailure = errors.New("decode failure")
	// ErrUnsupportedFormat is returned for media subtypes that are neither JPEG nor 32BGRA.
	ErrUnsupportedFormat = errors.New("unsupported format")
)
