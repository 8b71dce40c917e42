package entities

import (
	"fmt"
	"time"
)

type BracketKind int

const (
	BracketAutoExposure BracketKind = iota
	BracketManualExposure
)

// Bracket is one capture configuration in a fixed-length capture plan.
type Bracket struct {
	Kind BracketKind `json:"kind"`

	// ExposureTargetBias in EV, used by BracketAutoExposure.
	ExposureTargetBias float64 `json:"exposure_target_bias,omitempty"`

	// ISO and Duration, used by BracketManualExposure.
	ISO      float64       `json:"iso,omitempty"`
	Duration time.Duration `json:"duration,omitempty"`
}

func (b Bracket) String() string {
	switch b.Kind {
	case BracketManualExposure:
		return fmt.Sprintf("ISO %.0f, %.4fs", b.ISO, b.Duration.Seconds())
	default:
		return fmt.Sprintf("bias %+.1f EV", b.ExposureTargetBias)
	}
}

// CaptureEvent is what a capture driver delivers once per requested bracket:
// either a Sample or an Err, never both.
type CaptureEvent struct {
	Index   int
	Bracket Bracket
	Sample  *Sample
	Err     error
}

type ShutterState int

const (
	ShutterOpened ShutterState = iota
	ShutterClosed
)

// ShutterEvent marks the start and the end of a still capture, for presentation
// layers that flash the preview.
type ShutterEvent struct {
	State ShutterState
	At    time.Time
}
