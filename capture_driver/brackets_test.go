package capture_driver

import (
	"testing"
	"time"

	"bracket_stripes/entities"
)

func TestParseBracketMode(t *testing.T) {
	tests := []struct {
		input   string
		want    BracketMode
		wantErr bool
	}{
		{input: "", want: BracketModeExposure},
		{input: "exposure", want: BracketModeExposure},
		{input: "EXP", want: BracketModeExposure},
		{input: "duration-iso", want: BracketModeDurationISO},
		{input: "iso", want: BracketModeDurationISO},
		{input: " dur ", want: BracketModeDurationISO},
		{input: "zzz", wantErr: true},
	}

	for _, tt := range tests {
		got, err := ParseBracketMode(tt.input)
		if tt.wantErr {
			if err == nil {
				t.Fatalf("ParseBracketMode(%q): expected error, got %q", tt.input, got)
			}
			continue
		}
		if err != nil {
			t.Fatalf("ParseBracketMode(%q): unexpected error: %v", tt.input, err)
		}
		if got != tt.want {
			t.Fatalf("ParseBracketMode(%q) = %q, want %q", tt.input, got, tt.want)
		}
	}
}

func TestExposureBrackets(t *testing.T) {
	brackets := ExposureBrackets(4)
	if len(brackets) != 3 {
		t.Fatalf("expected 3 brackets, got %d", len(brackets))
	}
	for i, want := range []float64{-2, 0, 2} {
		if brackets[i].Kind != entities.BracketAutoExposure {
			t.Fatalf("bracket %d: expected auto exposure", i)
		}
		if brackets[i].ExposureTargetBias != want {
			t.Fatalf("bracket %d: expected bias %v, got %v", i, want, brackets[i].ExposureTargetBias)
		}
	}

	if got := len(ExposureBrackets(2)); got != 2 {
		t.Fatalf("expected brackets capped at 2, got %d", got)
	}
	if got := len(ExposureBrackets(0)); got != 0 {
		t.Fatalf("expected no brackets, got %d", got)
	}
}

func TestDurationISOBrackets(t *testing.T) {
	format := Format{
		MinISO:              100,
		MaxISO:              400,
		MinExposureDuration: 10 * time.Millisecond,
		MaxExposureDuration: 100 * time.Millisecond,
		MaxBracketCount:     3,
	}

	brackets := DurationISOBrackets(format, format.MaxBracketCount)
	if len(brackets) != 3 {
		t.Fatalf("expected 3 brackets, got %d", len(brackets))
	}

	wantISO := []float64{100, 100, 400}
	wantDuration := []time.Duration{100 * time.Millisecond, 50 * time.Millisecond, 10 * time.Millisecond}
	for i, b := range brackets {
		if b.Kind != entities.BracketManualExposure {
			t.Fatalf("bracket %d: expected manual exposure", i)
		}
		if b.ISO != wantISO[i] {
			t.Fatalf("bracket %d: expected ISO %v, got %v", i, wantISO[i], b.ISO)
		}
		if b.Duration != wantDuration[i] {
			t.Fatalf("bracket %d: expected duration %v, got %v", i, wantDuration[i], b.Duration)
		}
	}
}

func TestDurationISOBracketsUnclamped(t *testing.T) {
	format := Format{
		MinISO:              32,
		MaxISO:              1600,
		MinExposureDuration: time.Millisecond,
		MaxExposureDuration: time.Second,
		MaxBracketCount:     4,
	}

	brackets, err := Brackets(BracketModeDurationISO, format)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	wantDuration := []time.Duration{250 * time.Millisecond, 50 * time.Millisecond, 5 * time.Millisecond}
	for i, b := range brackets {
		if b.Duration != wantDuration[i] {
			t.Fatalf("bracket %d: expected duration %v, got %v", i, wantDuration[i], b.Duration)
		}
	}
	if brackets[2].ISO != 500 {
		t.Fatalf("expected ISO 500, got %v", brackets[2].ISO)
	}
}

func TestBracketsUnknownMode(t *testing.T) {
	if _, err := Brackets("flash", Format{MaxBracketCount: 3}); err == nil {
		t.Fatalf("expected error for unknown mode")
	}
}

func TestClamp(t *testing.T) {
	if got := Clamp(5, 1, 3); got != 3 {
		t.Fatalf("expected 3, got %d", got)
	}
	if got := Clamp(-1.5, 0, 1); got != 0 {
		t.Fatalf("expected 0, got %v", got)
	}
	if got := Clamp(2*time.Second, time.Second, 3*time.Second); got != 2*time.Second {
		t.Fatalf("expected 2s, got %v", got)
	}
}
