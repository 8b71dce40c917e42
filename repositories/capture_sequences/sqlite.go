package capture_sequences

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"bracket_stripes/clock"
	"bracket_stripes/entities"
)

const insertSequenceQuery string = `
INSERT INTO capture_sequences (sequence_id, bracket_mode, brackets, width, height,
                               stride, stripe_width, failed, orientation, render_millis,
                               output_path, created_at) VALUES
                              (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?);
`

const selectSequenceColumns string = `
SELECT id, sequence_id, bracket_mode, brackets, width, height,
       stride, stripe_width, failed, orientation, render_millis,
       output_path, created_at FROM capture_sequences
`

const getSequenceBySequenceID string = selectSequenceColumns + `WHERE sequence_id = ?;`

const listSequences string = selectSequenceColumns + `ORDER BY created_at DESC, id DESC LIMIT ?;`

const updateOutputPathQuery string = `
UPDATE capture_sequences SET output_path = ? WHERE sequence_id = ?;
`

var ErrSequenceNotFound = errors.New("capture sequence not found")

type sqliteRepo struct {
	dbConn *sql.DB
	clock  clock.Clock
}

type Config struct {
	DB *sql.DB

	// Clock defaults to the wall clock.
	Clock clock.Clock
}

func NewRepository(cfg *Config) (Repository, error) {
	if cfg.DB == nil {
		return nil, errors.New("missing DB parameter")
	}

	repoClock := cfg.Clock
	if repoClock == nil {
		repoClock = clock.NewClock()
	}

	newRepo := &sqliteRepo{
		dbConn: cfg.DB,
		clock:  repoClock,
	}

	return newRepo, nil
}

func (repo *sqliteRepo) Create(ctx context.Context, sequence *entities.CaptureSequence) (*entities.CaptureSequence, error) {
	if sequence.SequenceID == "" {
		return nil, errors.New("missing sequence ID")
	}
	if sequence.CreatedAt.IsZero() {
		sequence.CreatedAt = repo.clock.Now()
	}

	res, err := repo.dbConn.ExecContext(ctx, insertSequenceQuery,
		sequence.SequenceID, sequence.BracketMode, sequence.MarshalBrackets(), sequence.Width, sequence.Height,
		sequence.Stride, sequence.StripeWidth, sequence.Failed, sequence.Orientation, sequence.RenderMillis,
		sequence.OutputPath, sequence.CreatedAt,
	)
	if err != nil {
		return nil, err
	}

	lastID, err := res.LastInsertId()
	if err != nil {
		return nil, err
	}

	sequence.ID = lastID

	return sequence, nil
}

type scanner interface {
	Scan(dest ...any) error
}

func scanSequence(row scanner) (*entities.CaptureSequence, error) {
	var sequence entities.CaptureSequence
	var bracketsString string

	err := row.Scan(
		&sequence.ID, &sequence.SequenceID, &sequence.BracketMode, &bracketsString, &sequence.Width, &sequence.Height,
		&sequence.Stride, &sequence.StripeWidth, &sequence.Failed, &sequence.Orientation, &sequence.RenderMillis,
		&sequence.OutputPath, &sequence.CreatedAt,
	)
	if err != nil {
		return nil, err
	}

	if err = sequence.UnmarshalBrackets(bracketsString); err != nil {
		return nil, fmt.Errorf("error reading brackets of %s: %w", sequence.SequenceID, err)
	}

	return &sequence, nil
}

func (repo *sqliteRepo) GetBySequenceID(ctx context.Context, sequenceID string) (*entities.CaptureSequence, error) {
	sequence, err := scanSequence(repo.dbConn.QueryRowContext(ctx, getSequenceBySequenceID, sequenceID))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: %s", ErrSequenceNotFound, sequenceID)
	}
	return sequence, err
}

func (repo *sqliteRepo) List(ctx context.Context, limit int) ([]*entities.CaptureSequence, error) {
	if limit <= 0 {
		limit = -1
	}

	rows, err := repo.dbConn.QueryContext(ctx, listSequences, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var sequences []*entities.CaptureSequence
	for rows.Next() {
		sequence, err := scanSequence(rows)
		if err != nil {
			return nil, err
		}
		sequences = append(sequences, sequence)
	}

	return sequences, rows.Err()
}

func (repo *sqliteRepo) SetOutputPath(ctx context.Context, sequenceID string, outputPath string) error {
	res, err := repo.dbConn.ExecContext(ctx, updateOutputPathQuery, outputPath, sequenceID)
	if err != nil {
		return err
	}

	affected, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return fmt.Errorf("%w: %s", ErrSequenceNotFound, sequenceID)
	}

	return nil
}
