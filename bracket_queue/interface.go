package bracket_queue

import (
	"context"
	"errors"

	"bracket_stripes/composite_renderer"
	"bracket_stripes/entities"
)

var (
	ErrNotPrepared     = errors.New("bracket queue is not prepared")
	ErrCaptureInFlight = errors.New("a capture is already in progress")
	ErrSequenceFailed  = errors.New("capture sequence failed")
)

type Queue interface {
	// Prepare sizes a new compositor for the driver's active format and warms
	// the driver with brackets.
	Prepare(ctx context.Context, brackets []entities.Bracket) error
	// Capture runs one bracketed sequence. The returned channel yields a single
	// Result once every bracket has arrived, then closes.
	Capture(ctx context.Context) (<-chan Result, error)
	Renderer() composite_renderer.Renderer
}

type Result struct {
	SequenceID string
	// Image is nil when any bracket failed.
	Image *composite_renderer.StripedImage
	Tally CaptureTally
	// Err wraps ErrSequenceFailed and the first bracket failure.
	Err      error
	Sequence *entities.CaptureSequence
}

// Progress is reported after every arrival.
type Progress struct {
	SequenceID string
	Completed  int
	Total      int
	Failed     int
}
