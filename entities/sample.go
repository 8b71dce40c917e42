package entities

import (
	"fmt"
	"time"
)

// MediaSubtype tags the wire representation of a captured sample.
type MediaSubtype int

const (
	SubtypeUnknown MediaSubtype = iota
	// SubtypeJPEG carries a compressed still image payload in Sample.Data.
	SubtypeJPEG
	// SubtypeBGRA carries a raw 32-bit little-endian, alpha-first-skip buffer in Sample.Buffer.
	SubtypeBGRA
)

func (s MediaSubtype) String() string {
	switch s {
	case SubtypeJPEG:
		return "jpeg"
	case SubtypeBGRA:
		return "32BGRA"
	default:
		return fmt.Sprintf("subtype(%d)", int(s))
	}
}

// PixelLayout describes how a raw packed-pixel buffer is laid out in memory.
type PixelLayout struct {
	BitsPerPixel int
	LittleEndian bool
	// AlphaFirstSkip means the alpha byte leads the pixel word and carries no data.
	AlphaFirstSkip bool
}

// LayoutBGRA is the layout of kCVPixelFormatType_32BGRA style buffers: a 32-bit
// little-endian word with a skipped leading alpha, i.e. B, G, R, X bytes in memory.
var LayoutBGRA = PixelLayout{BitsPerPixel: 32, LittleEndian: true, AlphaFirstSkip: true}

// RawBuffer is a platform pixel buffer that has to be locked before its base address
// may be read. Every successful Lock must be paired with exactly one Unlock.
type RawBuffer interface {
	Lock() ([]byte, error)
	Unlock()
}

// Sample is one captured frame as delivered by a capture driver.
type Sample struct {
	Subtype MediaSubtype

	// Data holds the compressed payload for SubtypeJPEG.
	Data []byte

	// Buffer holds the raw pixels for SubtypeBGRA.
	Buffer RawBuffer
	Width  int
	Height int
	Stride int // bytes per row
	Layout PixelLayout

	Bracket    Bracket
	CapturedAt time.Time
}
