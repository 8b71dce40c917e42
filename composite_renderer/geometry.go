package composite_renderer

import (
	"fmt"
	"image"
)

// Geometry describes the stripe comb: the output canvas size, the width of one
// stripe and how many contributors take turns before stripe positions repeat.
type Geometry struct {
	Size        image.Point
	StripeWidth int
	Stride      int
}

func (g Geometry) Validate() error {
	if g.Size.X <= 0 || g.Size.Y <= 0 {
		return fmt.Errorf("%w: output size %dx%d", ErrInvalidGeometry, g.Size.X, g.Size.Y)
	}
	if g.StripeWidth <= 0 || g.StripeWidth > g.Size.X {
		return fmt.Errorf("%w: stripe width %d for output width %d", ErrInvalidGeometry, g.StripeWidth, g.Size.X)
	}
	if g.Stride < 1 {
		return fmt.Errorf("%w: stride %d", ErrInvalidGeometry, g.Stride)
	}
	return nil
}

// MaskRects returns the stripes owned by stripeIndex: one full-height rectangle
// every StripeWidth*Stride pixels, starting at stripeIndex*StripeWidth. The last
// rectangle may extend past the canvas and is clipped when drawn.
func (g Geometry) MaskRects(stripeIndex int) []image.Rectangle {
	var rects []image.Rectangle

	x0 := stripeIndex * g.StripeWidth
	for x0 < g.Size.X {
		rects = append(rects, image.Rect(x0, 0, x0+g.StripeWidth, g.Size.Y))
		x0 += g.StripeWidth * g.Stride
	}

	return rects
}

// owner returns the stripe index whose mask covers column x.
func (g Geometry) owner(x int) int {
	return (x / g.StripeWidth) % g.Stride
}
