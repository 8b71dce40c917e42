package frame_decoder

import (
	"fmt"
	"image"
	"image/color"

	"bracket_stripes/entities"
)

// BGRA is an image view over 32-bit little-endian, alpha-first-skip pixels:
// B, G, R and an unused byte per pixel. The skipped byte always reads as opaque.
type BGRA struct {
	Pix    []byte
	Stride int
	Rect   image.Rectangle
}

func (p *BGRA) ColorModel() color.Model { return color.RGBAModel }

func (p *BGRA) Bounds() image.Rectangle { return p.Rect }

func (p *BGRA) PixOffset(x, y int) int {
	return (y-p.Rect.Min.Y)*p.Stride + (x-p.Rect.Min.X)*4
}

func (p *BGRA) At(x, y int) color.Color {
	return p.RGBAAt(x, y)
}

func (p *BGRA) RGBAAt(x, y int) color.RGBA {
	if !(image.Point{X: x, Y: y}.In(p.Rect)) {
		return color.RGBA{}
	}
	i := p.PixOffset(x, y)
	s := p.Pix[i : i+4 : i+4]
	return color.RGBA{R: s[2], G: s[1], B: s[0], A: 0xff}
}

func (p *BGRA) RGBA64At(x, y int) color.RGBA64 {
	c := p.RGBAAt(x, y)
	r, g, b, a := uint16(c.R), uint16(c.G), uint16(c.B), uint16(c.A)
	return color.RGBA64{R: r<<8 | r, G: g<<8 | g, B: b<<8 | b, A: a<<8 | a}
}

func (p *BGRA) Opaque() bool { return true }

// PackBGRA writes img into a new buffer in the 32BGRA layout with the given
// row stride, which must be at least 4*width.
func PackBGRA(img image.Image, stride int) ([]byte, error) {
	b := img.Bounds()
	if stride < b.Dx()*4 {
		return nil, fmt.Errorf("stride %d too small for width %d", stride, b.Dx())
	}

	pix := make([]byte, stride*b.Dy())
	for y := b.Min.Y; y < b.Max.Y; y++ {
		row := pix[(y-b.Min.Y)*stride:]
		for x := b.Min.X; x < b.Max.X; x++ {
			c := color.RGBAModel.Convert(img.At(x, y)).(color.RGBA)
			i := (x - b.Min.X) * 4
			row[i+0] = c.B
			row[i+1] = c.G
			row[i+2] = c.R
			row[i+3] = 0xff
		}
	}

	return pix, nil
}

// decodeBGRA wraps the locked buffer without copying it. The buffer stays
// locked until the returned frame is released; every failure path unlocks it
// before returning.
func decodeBGRA(sample *entities.Sample) (frame *DecodedFrame, err error) {
	if sample.Layout != entities.LayoutBGRA {
		return nil, fmt.Errorf("%w: pixel layout %+v is not 32BGRA", ErrDecodeFailure, sample.Layout)
	}
	if sample.Width <= 0 || sample.Height <= 0 {
		return nil, fmt.Errorf("%w: invalid dimensions %dx%d", ErrDecodeFailure, sample.Width, sample.Height)
	}
	if sample.Stride < sample.Width*4 {
		return nil, fmt.Errorf("%w: stride %d too small for width %d", ErrDecodeFailure, sample.Stride, sample.Width)
	}

	pix, err := sample.Buffer.Lock()
	if err != nil {
		return nil, fmt.Errorf("%w: lock pixel buffer: %v", ErrDecodeFailure, err)
	}
	defer func() {
		if frame == nil {
			sample.Buffer.Unlock()
		}
	}()

	need := sample.Stride*(sample.Height-1) + sample.Width*4
	if len(pix) < need {
		return nil, fmt.Errorf("%w: pixel buffer holds %d bytes, need %d", ErrDecodeFailure, len(pix), need)
	}

	view := &BGRA{
		Pix:    pix[:need:need],
		Stride: sample.Stride,
		Rect:   image.Rect(0, 0, sample.Width, sample.Height),
	}

	return &DecodedFrame{
		Image:       view,
		Orientation: entities.OrientationUp,
		release:     sample.Buffer.Unlock,
	}, nil
}
