package composite_renderer

import (
	"bracket_stripes/entities"
)

type Renderer interface {
	CompositeFrame(sample *entities.Sample) error
	Finalize(orientation entities.Orientation) (*StripedImage, error)
	StripeIndex() int
	Geometry() Geometry
}
