package bracket_queue

import (
	"context"
	"errors"
	"fmt"
	"image"
	"log"
	"sync"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/google/uuid"
	xdraw "golang.org/x/image/draw"

	"bracket_stripes/capture_driver"
	"bracket_stripes/composite_renderer"
	"bracket_stripes/entities"
	"bracket_stripes/repositories/capture_sequences"
	"bracket_stripes/utils"
)

const (
	defaultStripeDivisor = 12

	finishedOrientation = entities.OrientationRight
)

type Config struct {
	Driver capture_driver.Driver
	// Repository records every finished sequence when set.
	Repository  capture_sequences.Repository
	BracketMode string

	// StripeDivisor splits the format width into stripes. Defaults to 12.
	StripeDivisor int
	Interpolator  xdraw.Interpolator

	// OnProgress is called from the draining goroutine after every arrival and
	// must not block.
	OnProgress func(Progress)
}

type BracketQueue struct {
	driver        capture_driver.Driver
	repository    capture_sequences.Repository
	bracketMode   string
	stripeDivisor int
	interpolator  xdraw.Interpolator
	onProgress    func(Progress)

	mu        sync.Mutex
	brackets  []entities.Bracket
	renderer  composite_renderer.Renderer
	capturing bool
}

func New(cfg Config) (*BracketQueue, error) {
	if cfg.Driver == nil {
		return nil, errors.New("missing capture driver")
	}

	stripeDivisor := cfg.StripeDivisor
	if stripeDivisor == 0 {
		stripeDivisor = defaultStripeDivisor
	}
	if stripeDivisor < 0 {
		return nil, fmt.Errorf("invalid stripe divisor %d", stripeDivisor)
	}

	return &BracketQueue{
		driver:        cfg.Driver,
		repository:    cfg.Repository,
		bracketMode:   cfg.BracketMode,
		stripeDivisor: stripeDivisor,
		interpolator:  cfg.Interpolator,
		onProgress:    cfg.OnProgress,
	}, nil
}

func (q *BracketQueue) Renderer() composite_renderer.Renderer {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.renderer
}

func (q *BracketQueue) Prepare(ctx context.Context, brackets []entities.Bracket) error {
	if len(brackets) == 0 {
		return errors.New("no brackets to prepare")
	}

	q.mu.Lock()
	defer q.mu.Unlock()

	if q.capturing {
		return ErrCaptureInFlight
	}

	format := q.driver.Format()
	size := image.Pt(format.Width, format.Height)

	if err := checkMemory(size); err != nil {
		return err
	}

	renderer, err := composite_renderer.New(composite_renderer.Config{
		Size:         size,
		StripeWidth:  format.Width / q.stripeDivisor,
		Stride:       len(brackets),
		Interpolator: q.interpolator,
	})
	if err != nil {
		return fmt.Errorf("error creating compositor: %w", err)
	}

	if err = q.driver.Prepare(ctx, brackets); err != nil {
		return fmt.Errorf("error preparing brackets: %w", err)
	}

	q.brackets = append([]entities.Bracket(nil), brackets...)
	q.renderer = renderer

	return nil
}

// checkMemory refuses canvases that would not fit in available memory
// together with their finalized snapshot.
func checkMemory(size image.Point) error {
	if size.X <= 0 || size.Y <= 0 {
		return nil
	}

	memory, err := utils.GetMemory()
	if err != nil {
		log.Printf("Error reading system memory, skipping check: %v", err)
		return nil
	}

	need := 2 * composite_renderer.CanvasBytes(size)
	log.Printf("Canvas needs %s, %s available", humanize.IBytes(need), humanize.IBytes(uint64(memory.RAM.Free)))

	if memory.RAM.Free > 0 && float64(need) > memory.RAM.Free {
		return fmt.Errorf("canvas of %dx%d needs %s but only %s is available",
			size.X, size.Y, humanize.IBytes(need), humanize.IBytes(uint64(memory.RAM.Free)))
	}

	return nil
}

func (q *BracketQueue) Capture(ctx context.Context) (<-chan Result, error) {
	q.mu.Lock()
	if q.renderer == nil {
		q.mu.Unlock()
		return nil, ErrNotPrepared
	}
	if q.capturing {
		q.mu.Unlock()
		return nil, ErrCaptureInFlight
	}
	q.capturing = true
	brackets := q.brackets
	renderer := q.renderer
	q.mu.Unlock()

	events, err := q.driver.CaptureBracket(ctx, brackets)
	if err != nil {
		q.finishCapture()
		return nil, fmt.Errorf("error capturing brackets: %w", err)
	}

	geometry := renderer.Geometry()
	sequence := &entities.CaptureSequence{
		SequenceID:  uuid.NewString(),
		BracketMode: q.bracketMode,
		Brackets:    brackets,
		Width:       geometry.Size.X,
		Height:      geometry.Size.Y,
		StripeWidth: geometry.StripeWidth,
		Stride:      geometry.Stride,
		Orientation: finishedOrientation.String(),
	}

	log.Printf("Capturing sequence %s: %d brackets", sequence.SequenceID, len(brackets))

	results := make(chan Result, 1)
	go q.drain(ctx, renderer, sequence, events, results)

	return results, nil
}

func (q *BracketQueue) finishCapture() {
	q.mu.Lock()
	q.capturing = false
	q.mu.Unlock()
}

// drain is the single writer of renderer for the whole sequence.
func (q *BracketQueue) drain(ctx context.Context, renderer composite_renderer.Renderer, sequence *entities.CaptureSequence, events <-chan entities.CaptureEvent, results chan<- Result) {
	tally := NewCaptureTally(len(sequence.Brackets))
	var firstErr error
	var renderTime time.Duration

	for event := range events {
		if tally.Complete() {
			log.Printf("Ignoring bracket %d of sequence %s after completion", event.Index, sequence.SequenceID)
			continue
		}

		start := time.Now()
		err := composite(renderer, event)
		renderTime += time.Since(start)

		if err != nil {
			log.Printf("Error in bracket %d of sequence %s (%s failure): %v", event.Index, sequence.SequenceID, failureKind(event, err), err)
			if firstErr == nil {
				firstErr = fmt.Errorf("bracket %d: %w", event.Index, err)
			}
		}

		done := tally.Record(err == nil)
		q.reportProgress(sequence.SequenceID, tally)

		if done {
			sequence.Failed = tally.Failed()
			sequence.RenderMillis = float64(renderTime.Microseconds()) / 1e3
			result := q.complete(ctx, renderer, sequence, tally, firstErr)
			q.finishCapture()

			go func() {
				results <- result
				close(results)
			}()
		}
	}

	if !tally.Complete() {
		log.Printf("Sequence %s ended with %d of %d brackets outstanding", sequence.SequenceID, tally.Remaining(), tally.Total())
		q.finishCapture()
		close(results)
	}
}

func composite(renderer composite_renderer.Renderer, event entities.CaptureEvent) error {
	if event.Err != nil {
		return event.Err
	}
	if event.Sample == nil {
		return errors.New("capture event without a sample")
	}
	return renderer.CompositeFrame(event.Sample)
}

// failureKind separates driver failures, undecodable frames and compositor
// faults in the log.
func failureKind(event entities.CaptureEvent, err error) string {
	switch {
	case event.Err != nil:
		return "capture"
	case composite_renderer.IsFrameError(err):
		return "frame"
	default:
		return "compositor"
	}
}

func (q *BracketQueue) reportProgress(sequenceID string, tally CaptureTally) {
	if q.onProgress == nil {
		return
	}
	q.onProgress(Progress{
		SequenceID: sequenceID,
		Completed:  tally.Completed(),
		Total:      tally.Total(),
		Failed:     tally.Failed(),
	})
}

func (q *BracketQueue) complete(ctx context.Context, renderer composite_renderer.Renderer, sequence *entities.CaptureSequence, tally CaptureTally, firstErr error) Result {
	result := Result{SequenceID: sequence.SequenceID, Tally: tally, Sequence: sequence}

	if tally.Failed() > 0 {
		result.Err = fmt.Errorf("%w: %d of %d brackets failed, first: %w", ErrSequenceFailed, tally.Failed(), tally.Total(), firstErr)
	} else {
		img, err := renderer.Finalize(finishedOrientation)
		if err != nil {
			result.Err = fmt.Errorf("%w: %w", ErrSequenceFailed, err)
		}
		result.Image = img
	}

	log.Printf("Sequence %s complete: %d of %d brackets failed, render time %.3f msec",
		sequence.SequenceID, tally.Failed(), tally.Total(), sequence.RenderMillis)

	q.record(context.WithoutCancel(ctx), sequence)

	return result
}

func (q *BracketQueue) record(ctx context.Context, sequence *entities.CaptureSequence) {
	if q.repository == nil {
		return
	}
	if _, err := q.repository.Create(ctx, sequence); err != nil {
		log.Printf("Error recording sequence %s: %v", sequence.SequenceID, err)
	}
}

var _ Queue = (*BracketQueue)(nil)
