package composite_renderer

import (
	"errors"
	"image"
	"log"
	"time"

	"github.com/dustin/go-humanize"
	xdraw "golang.org/x/image/draw"

	"bracket_stripes/entities"
	"bracket_stripes/frame_decoder"
)

// Canvas rows are padded to a multiple of this many pixels.
const rowAlignment = 16

type Config struct {
	Size        image.Point
	StripeWidth int
	Stride      int

	// Decoder defaults to frame_decoder.New().
	Decoder frame_decoder.Decoder
	// Interpolator is used when a frame's size differs from the canvas.
	// Defaults to nearest neighbor.
	Interpolator xdraw.Interpolator
}

// StripeCompositor owns the render canvas and the rotating stripe index.
// It is not safe for concurrent use; callers must serialize CompositeFrame.
type StripeCompositor struct {
	geometry     Geometry
	canvas       *image.RGBA
	stripeIndex  int
	decoder      frame_decoder.Decoder
	interpolator xdraw.Interpolator
}

func New(cfg Config) (*StripeCompositor, error) {
	geometry := Geometry{Size: cfg.Size, StripeWidth: cfg.StripeWidth, Stride: cfg.Stride}
	if err := geometry.Validate(); err != nil {
		return nil, err
	}

	decoder := cfg.Decoder
	if decoder == nil {
		decoder = frame_decoder.New()
	}

	interpolator := cfg.Interpolator
	if interpolator == nil {
		interpolator = xdraw.NearestNeighbor
	}

	canvas := newCanvas(cfg.Size)
	log.Printf("Allocated %dx%d canvas (%s), stripe width %d, stride %d",
		cfg.Size.X, cfg.Size.Y, humanize.IBytes(uint64(len(canvas.Pix))), cfg.StripeWidth, cfg.Stride)

	return &StripeCompositor{
		geometry:     geometry,
		canvas:       canvas,
		decoder:      decoder,
		interpolator: interpolator,
	}, nil
}

// CanvasBytes is the allocation size of a canvas of the given dimensions.
func CanvasBytes(size image.Point) uint64 {
	return uint64(paddedWidth(size.X)) * 4 * uint64(size.Y)
}

func paddedWidth(width int) int {
	return (width + rowAlignment - 1) &^ (rowAlignment - 1)
}

func newCanvas(size image.Point) *image.RGBA {
	stride := paddedWidth(size.X) * 4
	return &image.RGBA{
		Pix:    make([]uint8, stride*size.Y),
		Stride: stride,
		Rect:   image.Rect(0, 0, size.X, size.Y),
	}
}

func (c *StripeCompositor) ready() bool {
	return c != nil && c.canvas != nil
}

func (c *StripeCompositor) StripeIndex() int {
	if !c.ready() {
		return 0
	}
	return c.stripeIndex
}

func (c *StripeCompositor) Geometry() Geometry {
	if !c.ready() {
		return Geometry{}
	}
	return c.geometry
}

// CompositeFrame draws sample into the stripes owned by the current stripe
// index and advances the index. A sample that fails to decode leaves both the
// canvas and the index untouched.
func (c *StripeCompositor) CompositeFrame(sample *entities.Sample) error {
	if !c.ready() {
		return ErrCanvasUnready
	}

	renderStartTime := time.Now()

	frame, err := c.decoder.Decode(sample)
	if err != nil {
		return err
	}
	defer frame.Release()

	c.drawMasked(frame, c.geometry.MaskRects(c.stripeIndex))

	renderDuration := time.Since(renderStartTime)
	log.Printf("Render time for contributor %d: %.3f msec", c.stripeIndex, float64(renderDuration.Microseconds())/1e3)

	c.stripeIndex = (c.stripeIndex + 1) % c.geometry.Stride

	return nil
}

// drawMasked replaces, without blending, the canvas pixels inside rects with
// src scaled to the full canvas. Each rectangle is drawn through a sub-image of
// the canvas so nothing outside the mask is written.
func (c *StripeCompositor) drawMasked(src image.Image, rects []image.Rectangle) {
	canvasRect := c.canvas.Bounds()
	sr := src.Bounds()
	sameSize := sr.Size() == canvasRect.Size()

	for _, rect := range rects {
		clip := rect.Intersect(canvasRect)
		if clip.Empty() {
			continue
		}

		dst := c.canvas.SubImage(clip).(*image.RGBA)
		if sameSize {
			xdraw.Draw(dst, clip, src, sr.Min.Add(clip.Min.Sub(canvasRect.Min)), xdraw.Src)
			continue
		}
		c.interpolator.Scale(dst, canvasRect, src, sr, xdraw.Src, nil)
	}
}

// Finalize returns a snapshot of the canvas tagged with orientation. The
// canvas is left as is, so later calls see later composites.
func (c *StripeCompositor) Finalize(orientation entities.Orientation) (*StripedImage, error) {
	if !c.ready() {
		return nil, ErrCanvasUnready
	}

	bounds := c.canvas.Bounds()
	snapshot := image.NewRGBA(bounds)
	for y := bounds.Min.Y; y < bounds.Max.Y; y++ {
		copy(snapshot.Pix[snapshot.PixOffset(bounds.Min.X, y):snapshot.PixOffset(bounds.Max.X, y)],
			c.canvas.Pix[c.canvas.PixOffset(bounds.Min.X, y):c.canvas.PixOffset(bounds.Max.X, y)])
	}

	return &StripedImage{Image: snapshot, Orientation: orientation}, nil
}

var _ Renderer = (*StripeCompositor)(nil)

// IsFrameError reports whether err came from decoding a frame rather than from
// the compositor itself.
func IsFrameError(err error) bool {
	return errors.Is(err, frame_decoder.ErrDecodeFailure) || errors.Is(err, frame_decoder.ErrUnsupportedFormat)
}
