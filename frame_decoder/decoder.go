package frame_decoder

import (
	"fmt"

	"bracket_stripes/entities"
)

type decoderImpl struct{}

func (d *decoderImpl) Decode(sample *entities.Sample) (*DecodedFrame, error) {
	if sample == nil {
		return nil, fmt.Errorf("%w: nil sample", ErrDecodeFailure)
	}

	switch sample.Subtype {
	case entities.SubtypeJPEG:
		if sample.Buffer != nil && len(sample.Data) == 0 {
			return nil, fmt.Errorf("%w: jpeg sample carries a pixel buffer", ErrDecodeFailure)
		}
		return decodeJPEG(sample.Data)
	case entities.SubtypeBGRA:
		if sample.Buffer == nil {
			return nil, fmt.Errorf("%w: 32BGRA sample carries no pixel buffer", ErrDecodeFailure)
		}
		return decodeBGRA(sample)
	default:
		return nil, fmt.Errorf("%w: %v", ErrUnsupportedFormat, sample.Subtype)
	}
}
