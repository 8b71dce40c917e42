package composite_renderer

import (
	"image"

	xdraw "golang.org/x/image/draw"
	"golang.org/x/image/math/f64"

	"bracket_stripes/entities"
)

// StripedImage is a finished composite: an immutable pixel snapshot plus the
// orientation it should be displayed with.
type StripedImage struct {
	Image       *image.RGBA
	Orientation entities.Orientation
}

// orientationTransform returns the source-to-destination matrix that displays
// a w×h image upright, and whether the axes swap.
func orientationTransform(o entities.Orientation, w, h float64) (f64.Aff3, bool) {
	switch o {
	case entities.OrientationUpMirrored:
		return f64.Aff3{-1, 0, w, 0, 1, 0}, false
	case entities.OrientationDown:
		return f64.Aff3{-1, 0, w, 0, -1, h}, false
	case entities.OrientationDownMirrored:
		return f64.Aff3{1, 0, 0, 0, -1, h}, false
	case entities.OrientationLeftMirrored:
		return f64.Aff3{0, 1, 0, 1, 0, 0}, true
	case entities.OrientationRight:
		return f64.Aff3{0, -1, h, 1, 0, 0}, true
	case entities.OrientationRightMirrored:
		return f64.Aff3{0, -1, h, -1, 0, w}, true
	case entities.OrientationLeft:
		return f64.Aff3{0, 1, 0, -1, 0, w}, true
	default:
		return f64.Aff3{1, 0, 0, 0, 1, 0}, false
	}
}

// Oriented returns the pixels with the orientation applied, for consumers that
// cannot carry orientation metadata.
func (s *StripedImage) Oriented() *image.RGBA {
	src := s.Image
	if s.Orientation == entities.OrientationUp {
		return src
	}

	b := src.Bounds()
	w, h := b.Dx(), b.Dy()

	m, swap := orientationTransform(s.Orientation, float64(w), float64(h))
	// Shift the source origin to (0, 0).
	m[2] -= m[0]*float64(b.Min.X) + m[1]*float64(b.Min.Y)
	m[5] -= m[3]*float64(b.Min.X) + m[4]*float64(b.Min.Y)

	dw, dh := w, h
	if swap {
		dw, dh = h, w
	}

	dst := image.NewRGBA(image.Rect(0, 0, dw, dh))
	xdraw.NearestNeighbor.Transform(dst, m, src, b, xdraw.Src, nil)

	return dst
}
