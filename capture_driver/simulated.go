package capture_driver

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"image"
	"image/jpeg"
	"log"
	"math"
	"math/rand"
	"sync"
	"time"

	xdraw "golang.org/x/image/draw"

	"bracket_stripes/entities"
	"bracket_stripes/frame_decoder"
	"bracket_stripes/utils"
)

type FrameFormat string

const (
	FrameFormatJPEG FrameFormat = "jpeg"
	FrameFormatBGRA FrameFormat = "bgra"
)

const (
	defaultJPEGQuality     = 90
	defaultMaxBracketCount = 4
	// Pixel buffer rows are aligned like CoreVideo buffers.
	rawRowAlignment = 64
	// Exposure (seconds * ISO) that renders the scene unchanged.
	referenceExposure = 100.0 / 30.0
	shutterBuffer     = 16
)

var ErrNotPrepared = errors.New("brackets not prepared")

type SimulatedConfig struct {
	// Scene is rendered at the format size for every bracket.
	Scene image.Image
	// Format defaults to the scene size with phone-camera ISO and duration ranges.
	Format      Format
	FrameFormat FrameFormat
	JPEGQuality int
	// FrameInterval is the pause between two deliveries.
	FrameInterval time.Duration
	// Shuffle delivers events in a random order instead of capture order.
	Shuffle bool
	Seed    int64
	// Failures maps a bracket index to the error delivered in place of its sample.
	Failures map[int]error
	// Corrupt lists bracket indices whose sample is delivered truncated.
	Corrupt map[int]bool
}

// Simulated is a Driver that renders brackets from a still scene by scaling
// its brightness with each bracket's exposure.
type Simulated struct {
	cfg    SimulatedConfig
	format Format
	base   *image.RGBA

	shutter       chan entities.ShutterEvent
	encodeBuffers *utils.Pool[*bytes.Buffer]

	mu       sync.Mutex
	rng      *rand.Rand
	prepared []entities.Bracket
}

func NewSimulated(cfg SimulatedConfig) (*Simulated, error) {
	if cfg.Scene == nil {
		return nil, errors.New("missing scene")
	}

	format := cfg.Format
	sceneBounds := cfg.Scene.Bounds()
	if format.Width == 0 && format.Height == 0 {
		format.Width, format.Height = sceneBounds.Dx(), sceneBounds.Dy()
	}
	if format.Width <= 0 || format.Height <= 0 {
		return nil, fmt.Errorf("invalid format size %dx%d", format.Width, format.Height)
	}
	if format.MaxISO == 0 {
		format.MinISO, format.MaxISO = 32, 1600
	}
	if format.MaxExposureDuration == 0 {
		format.MinExposureDuration, format.MaxExposureDuration = 14*time.Microsecond, 500*time.Millisecond
	}
	if format.MaxBracketCount == 0 {
		format.MaxBracketCount = defaultMaxBracketCount
	}

	switch cfg.FrameFormat {
	case "":
		cfg.FrameFormat = FrameFormatJPEG
	case FrameFormatJPEG, FrameFormatBGRA:
	default:
		return nil, fmt.Errorf("unknown frame format %q", cfg.FrameFormat)
	}
	if cfg.JPEGQuality == 0 {
		cfg.JPEGQuality = defaultJPEGQuality
	}
	if cfg.Seed == 0 {
		cfg.Seed = time.Now().UnixNano()
	}

	base := image.NewRGBA(image.Rect(0, 0, format.Width, format.Height))
	xdraw.ApproxBiLinear.Scale(base, base.Bounds(), cfg.Scene, sceneBounds, xdraw.Src, nil)

	return &Simulated{
		cfg:           cfg,
		format:        format,
		base:          base,
		shutter:       make(chan entities.ShutterEvent, shutterBuffer),
		encodeBuffers: utils.NewPool(func() *bytes.Buffer { return new(bytes.Buffer) }),
		rng:           rand.New(rand.NewSource(cfg.Seed)),
	}, nil
}

func (s *Simulated) Format() Format {
	return s.format
}

func (s *Simulated) Shutter() <-chan entities.ShutterEvent {
	return s.shutter
}

func (s *Simulated) Prepare(ctx context.Context, brackets []entities.Bracket) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if err := s.validate(brackets); err != nil {
		return err
	}

	log.Printf("Warming brackets: %v", brackets)

	s.mu.Lock()
	s.prepared = append([]entities.Bracket(nil), brackets...)
	s.mu.Unlock()

	return nil
}

func (s *Simulated) validate(brackets []entities.Bracket) error {
	if len(brackets) == 0 {
		return errors.New("no brackets")
	}
	if len(brackets) > s.format.MaxBracketCount {
		return fmt.Errorf("%d brackets requested, device supports %d", len(brackets), s.format.MaxBracketCount)
	}

	for i, b := range brackets {
		if b.Kind != entities.BracketManualExposure {
			continue
		}
		if b.ISO < s.format.MinISO || b.ISO > s.format.MaxISO {
			return fmt.Errorf("bracket %d: ISO %.0f outside [%.0f, %.0f]", i, b.ISO, s.format.MinISO, s.format.MaxISO)
		}
		if b.Duration < s.format.MinExposureDuration || b.Duration > s.format.MaxExposureDuration {
			return fmt.Errorf("bracket %d: duration %v outside [%v, %v]", i, b.Duration, s.format.MinExposureDuration, s.format.MaxExposureDuration)
		}
	}

	return nil
}

func (s *Simulated) CaptureBracket(ctx context.Context, brackets []entities.Bracket) (<-chan entities.CaptureEvent, error) {
	s.mu.Lock()
	prepared := len(s.prepared) > 0
	s.mu.Unlock()
	if !prepared {
		return nil, ErrNotPrepared
	}
	if err := s.validate(brackets); err != nil {
		return nil, err
	}

	order := s.deliveryOrder(len(brackets))

	// Buffered for every bracket so delivery never blocks on a slow consumer.
	events := make(chan entities.CaptureEvent, len(brackets))
	go func() {
		defer close(events)

		for n, index := range order {
			if err := ctx.Err(); err != nil {
				for _, rest := range order[n:] {
					events <- entities.CaptureEvent{Index: rest, Bracket: brackets[rest], Err: err}
				}
				return
			}

			events <- s.capture(index, brackets[index])

			if s.cfg.FrameInterval > 0 && n < len(order)-1 {
				select {
				case <-time.After(s.cfg.FrameInterval):
				case <-ctx.Done():
				}
			}
		}
	}()

	return events, nil
}

func (s *Simulated) deliveryOrder(n int) []int {
	order := make([]int, n)
	for i := range order {
		order[i] = i
	}
	if s.cfg.Shuffle {
		s.mu.Lock()
		s.rng.Shuffle(n, func(i, j int) { order[i], order[j] = order[j], order[i] })
		s.mu.Unlock()
	}
	return order
}

func (s *Simulated) capture(index int, bracket entities.Bracket) entities.CaptureEvent {
	event := entities.CaptureEvent{Index: index, Bracket: bracket}

	if err, ok := s.cfg.Failures[index]; ok {
		event.Err = err
		return event
	}

	s.notifyShutter(entities.ShutterOpened)
	frame := s.expose(bracket)
	s.notifyShutter(entities.ShutterClosed)

	sample, err := s.sample(frame, bracket)
	if err != nil {
		event.Err = err
		return event
	}
	if s.cfg.Corrupt[index] {
		corrupt(sample)
	}

	event.Sample = sample
	return event
}

func (s *Simulated) notifyShutter(state entities.ShutterState) {
	select {
	case s.shutter <- entities.ShutterEvent{State: state, At: time.Now()}:
	default:
		// nobody is watching the shutter
	}
}

// ExposureGain is how much brighter than the reference exposure a bracket renders.
func ExposureGain(bracket entities.Bracket) float64 {
	switch bracket.Kind {
	case entities.BracketManualExposure:
		return bracket.Duration.Seconds() * bracket.ISO / referenceExposure
	default:
		return math.Pow(2, bracket.ExposureTargetBias)
	}
}

func (s *Simulated) expose(bracket entities.Bracket) *image.RGBA {
	gain := ExposureGain(bracket)

	var curve [256]uint8
	for v := range curve {
		curve[v] = uint8(math.Min(255, math.Round(float64(v)*gain)))
	}

	frame := image.NewRGBA(s.base.Bounds())
	for i := 0; i < len(s.base.Pix); i += 4 {
		frame.Pix[i+0] = curve[s.base.Pix[i+0]]
		frame.Pix[i+1] = curve[s.base.Pix[i+1]]
		frame.Pix[i+2] = curve[s.base.Pix[i+2]]
		frame.Pix[i+3] = 0xff
	}

	return frame
}

func (s *Simulated) sample(frame *image.RGBA, bracket entities.Bracket) (*entities.Sample, error) {
	capturedAt := time.Now()

	switch s.cfg.FrameFormat {
	case FrameFormatBGRA:
		width, height := frame.Bounds().Dx(), frame.Bounds().Dy()
		stride := (width*4 + rawRowAlignment - 1) &^ (rawRowAlignment - 1)
		pix, err := frame_decoder.PackBGRA(frame, stride)
		if err != nil {
			return nil, err
		}
		return &entities.Sample{
			Subtype:    entities.SubtypeBGRA,
			Buffer:     newPixelBuffer(pix),
			Width:      width,
			Height:     height,
			Stride:     stride,
			Layout:     entities.LayoutBGRA,
			Bracket:    bracket,
			CapturedAt: capturedAt,
		}, nil
	default:
		buf := s.encodeBuffers.Get()
		defer s.encodeBuffers.Put(buf)
		buf.Reset()

		if err := jpeg.Encode(buf, frame, &jpeg.Options{Quality: s.cfg.JPEGQuality}); err != nil {
			return nil, err
		}
		return &entities.Sample{
			Subtype:    entities.SubtypeJPEG,
			Data:       bytes.Clone(buf.Bytes()),
			Bracket:    bracket,
			CapturedAt: capturedAt,
		}, nil
	}
}

func corrupt(sample *entities.Sample) {
	switch sample.Subtype {
	case entities.SubtypeJPEG:
		sample.Data = sample.Data[:len(sample.Data)/3]
	case entities.SubtypeBGRA:
		sample.Buffer = newPixelBuffer(make([]byte, sample.Stride))
	}
}
