package capture_driver

import (
	"context"
	"time"

	"bracket_stripes/entities"
)

// Format is the active capture format of a device.
type Format struct {
	Width  int
	Height int

	MinISO float64
	MaxISO float64

	MinExposureDuration time.Duration
	MaxExposureDuration time.Duration

	MaxBracketCount int
}

// Driver issues bracketed still captures. CaptureBracket delivers exactly one
// event per requested bracket on the returned channel, then closes it. The
// delivery order is not guaranteed to match the request order.
type Driver interface {
	Format() Format
	Prepare(ctx context.Context, brackets []entities.Bracket) error
	CaptureBracket(ctx context.Context, brackets []entities.Bracket) (<-chan entities.CaptureEvent, error)
	// Shutter reports capture start and end for presentation layers.
	Shutter() <-chan entities.ShutterEvent
}
