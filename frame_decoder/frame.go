package frame_decoder

import (
	"image"

	"bracket_stripes/entities"
)

// DecodedFrame is a bitmap produced from one sample. It is owned by the caller
// that decoded it and must be released once drawn; for raw samples Release
// unlocks the underlying pixel buffer.
type DecodedFrame struct {
	image.Image

	// Orientation found in the payload's metadata, OrientationUp when absent.
	Orientation entities.Orientation

	release func()
}

func (f *DecodedFrame) Release() {
	if f == nil || f.release == nil {
		return
	}
	f.release()
	f.release = nil
}
