package capture_sequences

import (
	"context"

	"bracket_stripes/entities"
)

type Repository interface {
	Create(ctx context.Context, sequence *entities.CaptureSequence) (*entities.CaptureSequence, error)
	GetBySequenceID(ctx context.Context, sequenceID string) (*entities.CaptureSequence, error)
	List(ctx context.Context, limit int) ([]*entities.CaptureSequence, error)
	SetOutputPath(ctx context.Context, sequenceID string, outputPath string) error
}
