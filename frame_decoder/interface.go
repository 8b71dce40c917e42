package frame_decoder

import (
	"bracket_stripes/entities"
)

// Decoder turns one captured sample into a bitmap ready for blitting.
// Implementations keep no state between calls and never mutate the sample.
type Decoder interface {
	Decode(sample *entities.Sample) (*DecodedFrame, error)
}

func New() Decoder {
	return &decoderImpl{}
}
