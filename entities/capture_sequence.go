package entities

import (
	"encoding/json"
	"time"
)

// CaptureSequence is the persisted record of one bracketed capture.
type CaptureSequence struct {
	ID           int64     `json:"id"`
	SequenceID   string    `json:"sequence_id"`
	BracketMode  string    `json:"bracket_mode"`
	Brackets     []Bracket `json:"brackets"`
	Width        int       `json:"width"`
	Height       int       `json:"height"`
	StripeWidth  int       `json:"stripe_width"`
	Stride       int       `json:"stride"`
	Failed       int       `json:"failed"`
	Orientation  string    `json:"orientation"`
	OutputPath   string    `json:"output_path,omitempty"`
	RenderMillis float64   `json:"render_millis"`
	CreatedAt    time.Time `json:"created_at"`
}

func (s *CaptureSequence) Succeeded() bool {
	return s.Failed == 0
}

func (s *CaptureSequence) MarshalBrackets() string {
	data, err := json.Marshal(s.Brackets)
	if err != nil {
		return "[]"
	}
	return string(data)
}

func (s *CaptureSequence) UnmarshalBrackets(data string) error {
	return json.Unmarshal([]byte(data), &s.Brackets)
}
