package capture_driver

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/sahilm/fuzzy"

	"bracket_stripes/entities"
)

type BracketMode string

const (
	BracketModeExposure    BracketMode = "exposure"
	BracketModeDurationISO BracketMode = "duration-iso"
)

var bracketModes = []string{string(BracketModeExposure), string(BracketModeDurationISO)}

// Fixed bracket settings.
var (
	exposureBiasValues = []float64{-2.0, 0.0, +2.0}
	isoValues          = []float64{50, 60, 500}
	durationSeconds    = []float64{0.250, 0.050, 0.005}
)

// ParseBracketMode accepts a mode name or any fuzzy abbreviation of one,
// e.g. "exp", "iso" or "dur".
func ParseBracketMode(input string) (BracketMode, error) {
	input = strings.ToLower(strings.TrimSpace(input))
	if input == "" {
		return BracketModeExposure, nil
	}

	results := fuzzy.Find(input, bracketModes)
	if len(results) == 0 {
		return "", fmt.Errorf("unknown bracket mode %q, expected one of %v", input, bracketModes)
	}

	return BracketMode(results[0].Str), nil
}

func Brackets(mode BracketMode, format Format) ([]entities.Bracket, error) {
	switch mode {
	case BracketModeExposure:
		return ExposureBrackets(format.MaxBracketCount), nil
	case BracketModeDurationISO:
		return DurationISOBrackets(format, format.MaxBracketCount), nil
	default:
		return nil, errors.New("unknown bracket mode")
	}
}

// ExposureBrackets returns auto-exposure brackets at -2, 0 and +2 EV, never
// more than maxCount.
func ExposureBrackets(maxCount int) []entities.Bracket {
	count := min(len(exposureBiasValues), maxCount)
	brackets := make([]entities.Bracket, 0, max(count, 0))

	for index := 0; index < count; index++ {
		brackets = append(brackets, entities.Bracket{
			Kind:               entities.BracketAutoExposure,
			ExposureTargetBias: exposureBiasValues[index],
		})
	}

	return brackets
}

// DurationISOBrackets returns manual brackets with fixed ISO and duration
// pairs clamped to what the format supports. ISO and duration are hardware
// dependent.
func DurationISOBrackets(format Format, maxCount int) []entities.Bracket {
	count := min(len(isoValues), maxCount)
	brackets := make([]entities.Bracket, 0, max(count, 0))

	minDuration := format.MinExposureDuration.Seconds()
	maxDuration := format.MaxExposureDuration.Seconds()

	for index := 0; index < count; index++ {
		iso := Clamp(isoValues[index], format.MinISO, format.MaxISO)
		seconds := Clamp(durationSeconds[index], minDuration, maxDuration)

		brackets = append(brackets, entities.Bracket{
			Kind:     entities.BracketManualExposure,
			ISO:      iso,
			Duration: Clamp(time.Duration(seconds*1000+0.5)*time.Millisecond, format.MinExposureDuration, format.MaxExposureDuration),
		})
	}

	return brackets
}

// Clamp limits value to [lo, hi].
func Clamp[T int | float64 | time.Duration](value, lo, hi T) T {
	return max(lo, min(hi, value))
}
