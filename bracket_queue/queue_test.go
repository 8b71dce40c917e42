package bracket_queue

import (
	"context"
	"errors"
	"fmt"
	"image"
	"image/color"
	"sync"
	"testing"
	"time"

	"bracket_stripes/capture_driver"
	"bracket_stripes/composite_renderer"
	"bracket_stripes/databases/sqlite"
	"bracket_stripes/entities"
	"bracket_stripes/frame_decoder"
	"bracket_stripes/repositories/capture_sequences"
)

var (
	red   = color.RGBA{R: 0xff, A: 0xff}
	green = color.RGBA{G: 0xff, A: 0xff}
	blue  = color.RGBA{B: 0xff, A: 0xff}
)

type memBuffer struct {
	pix []byte
}

func (b *memBuffer) Lock() ([]byte, error) { return b.pix, nil }
func (b *memBuffer) Unlock()               {}

// scriptedDriver delivers the prepared events in the scripted order.
type scriptedDriver struct {
	format   capture_driver.Format
	events   []entities.CaptureEvent
	prepared int
	shutter  chan entities.ShutterEvent
}

func (d *scriptedDriver) Format() capture_driver.Format { return d.format }

func (d *scriptedDriver) Prepare(_ context.Context, brackets []entities.Bracket) error {
	if len(brackets) > d.format.MaxBracketCount {
		return errors.New("too many brackets")
	}
	d.prepared++
	return nil
}

func (d *scriptedDriver) CaptureBracket(_ context.Context, _ []entities.Bracket) (<-chan entities.CaptureEvent, error) {
	events := make(chan entities.CaptureEvent, len(d.events))
	for _, event := range d.events {
		events <- event
	}
	close(events)
	return events, nil
}

func (d *scriptedDriver) Shutter() <-chan entities.ShutterEvent { return d.shutter }

func newScriptedDriver(width, height int, events ...entities.CaptureEvent) *scriptedDriver {
	return &scriptedDriver{
		format: capture_driver.Format{Width: width, Height: height, MaxBracketCount: 3},
		events: events,
	}
}

func solidEvent(t *testing.T, index, width, height int, c color.RGBA) entities.CaptureEvent {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, width, height))
	for i := 0; i < len(img.Pix); i += 4 {
		img.Pix[i], img.Pix[i+1], img.Pix[i+2], img.Pix[i+3] = c.R, c.G, c.B, c.A
	}
	pix, err := frame_decoder.PackBGRA(img, width*4)
	if err != nil {
		t.Fatalf("unexpected error packing: %v", err)
	}
	return entities.CaptureEvent{
		Index: index,
		Sample: &entities.Sample{
			Subtype: entities.SubtypeBGRA,
			Buffer:  &memBuffer{pix: pix},
			Width:   width,
			Height:  height,
			Stride:  width * 4,
			Layout:  entities.LayoutBGRA,
		},
	}
}

func brackets() []entities.Bracket {
	return capture_driver.ExposureBrackets(3)
}

func waitResult(t *testing.T, results <-chan Result) Result {
	t.Helper()
	select {
	case result, ok := <-results:
		if !ok {
			t.Fatalf("result channel closed without a result")
		}
		return result
	case <-time.After(5 * time.Second):
		t.Fatalf("timed out waiting for result")
	}
	return Result{}
}

func runCapture(t *testing.T, q *BracketQueue) Result {
	t.Helper()
	ctx := context.Background()
	if err := q.Prepare(ctx, brackets()); err != nil {
		t.Fatalf("unexpected error preparing: %v", err)
	}
	results, err := q.Capture(ctx)
	if err != nil {
		t.Fatalf("unexpected error capturing: %v", err)
	}
	return waitResult(t, results)
}

func TestNewMissingDriver(t *testing.T) {
	if _, err := New(Config{}); err == nil {
		t.Fatalf("expected error for missing driver")
	}
}

func TestCaptureTriad(t *testing.T) {
	driver := newScriptedDriver(1200, 800,
		solidEvent(t, 0, 1200, 800, red),
		solidEvent(t, 1, 1200, 800, green),
		solidEvent(t, 2, 1200, 800, blue),
	)

	var mu sync.Mutex
	var progress []Progress
	q, err := New(Config{Driver: driver, OnProgress: func(p Progress) {
		mu.Lock()
		progress = append(progress, p)
		mu.Unlock()
	}})
	if err != nil {
		t.Fatalf("unexpected error creating queue: %v", err)
	}

	result := runCapture(t, q)
	if result.Err != nil {
		t.Fatalf("unexpected result error: %v", result.Err)
	}
	if result.Image == nil {
		t.Fatalf("expected an image")
	}
	if result.Image.Orientation != entities.OrientationRight {
		t.Fatalf("expected orientation right, got %v", result.Image.Orientation)
	}
	if result.Tally.Remaining() != 0 || result.Tally.Failed() != 0 {
		t.Fatalf("unexpected tally remaining=%d failed=%d", result.Tally.Remaining(), result.Tally.Failed())
	}

	geometry := q.Renderer().Geometry()
	if geometry.StripeWidth != 100 || geometry.Stride != 3 {
		t.Fatalf("expected stripe width 100 and stride 3, got %+v", geometry)
	}

	want := []color.RGBA{red, green, blue}
	for x := 0; x < 1200; x += 50 {
		c := result.Image.Image.RGBAAt(x, 400)
		if c != want[(x/100)%3] {
			t.Fatalf("column %d: expected %v, got %v", x, want[(x/100)%3], c)
		}
	}

	mu.Lock()
	defer mu.Unlock()
	if len(progress) != 3 {
		t.Fatalf("expected 3 progress reports, got %d", len(progress))
	}
	last := progress[2]
	if last.Completed != 3 || last.Total != 3 || last.Failed != 0 || last.SequenceID != result.SequenceID {
		t.Fatalf("unexpected final progress %+v", last)
	}
}

func TestCaptureAllFail(t *testing.T) {
	errBoom := errors.New("boom")
	driver := newScriptedDriver(120, 80,
		entities.CaptureEvent{Index: 0, Err: errBoom},
		entities.CaptureEvent{Index: 1, Err: errBoom},
		entities.CaptureEvent{Index: 2, Err: errBoom},
	)
	q, err := New(Config{Driver: driver})
	if err != nil {
		t.Fatalf("unexpected error creating queue: %v", err)
	}

	result := runCapture(t, q)
	if result.Image != nil {
		t.Fatalf("expected no image")
	}
	if result.Tally.Remaining() != 0 || result.Tally.Failed() != 3 {
		t.Fatalf("expected remaining 0 and failed 3, got %d and %d", result.Tally.Remaining(), result.Tally.Failed())
	}
	if !errors.Is(result.Err, ErrSequenceFailed) || !errors.Is(result.Err, errBoom) {
		t.Fatalf("expected sequence failure wrapping the bracket error, got %v", result.Err)
	}
	if q.Renderer().StripeIndex() != 0 {
		t.Fatalf("expected stripe index untouched, got %d", q.Renderer().StripeIndex())
	}
}

func TestCaptureDecodeFailureCounts(t *testing.T) {
	corrupt := entities.CaptureEvent{Index: 1, Sample: &entities.Sample{Subtype: entities.SubtypeJPEG, Data: []byte{0xff, 0xd8, 0x00}}}
	driver := newScriptedDriver(120, 80,
		solidEvent(t, 0, 120, 80, red),
		corrupt,
		solidEvent(t, 2, 120, 80, blue),
	)
	q, err := New(Config{Driver: driver})
	if err != nil {
		t.Fatalf("unexpected error creating queue: %v", err)
	}

	result := runCapture(t, q)
	if result.Image != nil {
		t.Fatalf("expected no image after a decode failure")
	}
	if result.Tally.Failed() != 1 {
		t.Fatalf("expected 1 failure, got %d", result.Tally.Failed())
	}
	if !errors.Is(result.Err, frame_decoder.ErrDecodeFailure) {
		t.Fatalf("expected decode failure, got %v", result.Err)
	}
	if q.Renderer().StripeIndex() != 2 {
		t.Fatalf("expected index to advance only for decoded frames, got %d", q.Renderer().StripeIndex())
	}
}

func TestCaptureFollowsArrivalOrder(t *testing.T) {
	driver := newScriptedDriver(120, 80,
		solidEvent(t, 2, 120, 80, blue),
		solidEvent(t, 0, 120, 80, red),
		solidEvent(t, 1, 120, 80, green),
	)
	q, err := New(Config{Driver: driver})
	if err != nil {
		t.Fatalf("unexpected error creating queue: %v", err)
	}

	result := runCapture(t, q)
	if result.Err != nil {
		t.Fatalf("unexpected result error: %v", result.Err)
	}

	// stripe width 10: first arrival owns stripe set 0.
	want := []color.RGBA{blue, red, green}
	for x := 5; x < 120; x += 10 {
		if c := result.Image.Image.RGBAAt(x, 40); c != want[(x/10)%3] {
			t.Fatalf("column %d: expected %v, got %v", x, want[(x/10)%3], c)
		}
	}
}

func TestPrepareInvalidGeometry(t *testing.T) {
	q, err := New(Config{Driver: newScriptedDriver(10, 10)})
	if err != nil {
		t.Fatalf("unexpected error creating queue: %v", err)
	}
	if err := q.Prepare(context.Background(), brackets()); err == nil {
		t.Fatalf("expected error for a format narrower than the stripe divisor")
	}
	if _, err := q.Capture(context.Background()); !errors.Is(err, ErrNotPrepared) {
		t.Fatalf("expected ErrNotPrepared, got %v", err)
	}
}

func TestPrepareRejectsEmptyBrackets(t *testing.T) {
	q, err := New(Config{Driver: newScriptedDriver(120, 80)})
	if err != nil {
		t.Fatalf("unexpected error creating queue: %v", err)
	}
	if err := q.Prepare(context.Background(), nil); err == nil {
		t.Fatalf("expected error for no brackets")
	}
}

func TestCaptureRecordsSequence(t *testing.T) {
	ctx := context.Background()
	db, err := sqlite.Open(ctx, sqlite.InMemory)
	if err != nil {
		t.Fatalf("unexpected error opening database: %v", err)
	}
	defer db.Close()

	repo, err := capture_sequences.NewRepository(&capture_sequences.Config{DB: db})
	if err != nil {
		t.Fatalf("unexpected error creating repository: %v", err)
	}

	driver := newScriptedDriver(120, 80,
		solidEvent(t, 0, 120, 80, red),
		entities.CaptureEvent{Index: 1, Err: errors.New("boom")},
		solidEvent(t, 2, 120, 80, blue),
	)
	q, err := New(Config{Driver: driver, Repository: repo, BracketMode: "exposure"})
	if err != nil {
		t.Fatalf("unexpected error creating queue: %v", err)
	}

	result := runCapture(t, q)

	got, err := repo.GetBySequenceID(ctx, result.SequenceID)
	if err != nil {
		t.Fatalf("unexpected error reading sequence: %v", err)
	}
	if got.Failed != 1 || got.Stride != 3 || got.StripeWidth != 10 || got.BracketMode != "exposure" {
		t.Fatalf("unexpected recorded sequence %+v", got)
	}
	if got.Orientation != "right" || len(got.Brackets) != 3 {
		t.Fatalf("unexpected recorded sequence %+v", got)
	}
}

func TestCaptureWithSimulatedDriver(t *testing.T) {
	scene := image.NewRGBA(image.Rect(0, 0, 240, 160))
	for i := range scene.Pix {
		scene.Pix[i] = 0x80
	}
	driver, err := capture_driver.NewSimulated(capture_driver.SimulatedConfig{
		Scene:       scene,
		FrameFormat: capture_driver.FrameFormatBGRA,
		Shuffle:     true,
		Seed:        3,
	})
	if err != nil {
		t.Fatalf("unexpected error creating driver: %v", err)
	}

	q, err := New(Config{Driver: driver})
	if err != nil {
		t.Fatalf("unexpected error creating queue: %v", err)
	}

	for run := 0; run < 2; run++ {
		result := runCapture(t, q)
		if result.Err != nil {
			t.Fatalf("run %d: unexpected result error: %v", run, result.Err)
		}
		if result.Image.Image.Bounds().Dx() != 240 || result.Image.Image.Bounds().Dy() != 160 {
			t.Fatalf("run %d: unexpected image bounds %v", run, result.Image.Image.Bounds())
		}
		if q.Renderer().StripeIndex() != 0 {
			t.Fatalf("run %d: expected index back at 0, got %d", run, q.Renderer().StripeIndex())
		}
	}
}

func TestFailureKind(t *testing.T) {
	errBoom := errors.New("boom")
	tests := []struct {
		name  string
		event entities.CaptureEvent
		err   error
		want  string
	}{
		{name: "driver error", event: entities.CaptureEvent{Err: errBoom}, err: errBoom, want: "capture"},
		{name: "decode failure", event: entities.CaptureEvent{Sample: &entities.Sample{}}, err: fmt.Errorf("wrapped: %w", frame_decoder.ErrDecodeFailure), want: "frame"},
		{name: "unsupported frame", event: entities.CaptureEvent{Sample: &entities.Sample{}}, err: frame_decoder.ErrUnsupportedFormat, want: "frame"},
		{name: "canvas", event: entities.CaptureEvent{Sample: &entities.Sample{}}, err: composite_renderer.ErrCanvasUnready, want: "compositor"},
	}

	for _, tt := range tests {
		if got := failureKind(tt.event, tt.err); got != tt.want {
			t.Fatalf("%s: expected %q, got %q", tt.name, tt.want, got)
		}
	}
}
