package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"log"

	_ "modernc.org/sqlite"
)

const dbFile string = "bracket_stripes.db"

// InMemory opens a private database that disappears when closed.
const InMemory string = ":memory:"

const createCaptureSequencesTableIfNotExistsQuery string = `
CREATE TABLE IF NOT EXISTS capture_sequences (
    id INTEGER PRIMARY KEY AUTOINCREMENT,
    sequence_id TEXT NOT NULL UNIQUE,
    bracket_mode TEXT NOT NULL DEFAULT '',
    brackets TEXT NOT NULL DEFAULT '[]',
    width INTEGER NOT NULL,
    height INTEGER NOT NULL,
    stripe_width INTEGER NOT NULL,
    stride INTEGER NOT NULL,
    failed INTEGER NOT NULL DEFAULT 0,
    orientation TEXT NOT NULL DEFAULT '',
    render_millis REAL NOT NULL DEFAULT 0,
    created_at DATETIME NOT NULL
);
`

const createCaptureSequencesCreatedAtIndexQuery string = `
CREATE INDEX IF NOT EXISTS capture_sequences_created_at ON capture_sequences (created_at);
`

const addOutputPathColumnQuery string = `
ALTER TABLE capture_sequences ADD COLUMN output_path TEXT NOT NULL DEFAULT '';
`

type migration struct {
	migrationName  string
	migrationQuery string
}

var migrations = []migration{
	{migrationName: "create capture sequences table", migrationQuery: createCaptureSequencesTableIfNotExistsQuery},
	{migrationName: "create capture sequences created_at index", migrationQuery: createCaptureSequencesCreatedAtIndexQuery},
	{migrationName: "add output path column", migrationQuery: addOutputPathColumnQuery},
}

const createMigrationsTableQuery string = `
CREATE TABLE IF NOT EXISTS schema_migrations (
    version INTEGER PRIMARY KEY,
    name TEXT NOT NULL
);
`

// New opens the default database file next to the binary.
func New(ctx context.Context) (*sql.DB, error) {
	return Open(ctx, dbFile)
}

// Open opens (creating if needed) the database at path and applies pending
// migrations.
func Open(ctx context.Context, path string) (*sql.DB, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, err
	}

	// sqlite has a single writer, and every connection to ":memory:" is a
	// separate database.
	db.SetMaxOpenConns(1)

	if err = db.PingContext(ctx); err != nil {
		db.Close()
		return nil, err
	}

	if err = migrate(ctx, db); err != nil {
		db.Close()
		return nil, err
	}

	return db, nil
}

func migrate(ctx context.Context, db *sql.DB) error {
	if _, err := db.ExecContext(ctx, createMigrationsTableQuery); err != nil {
		return fmt.Errorf("error creating migrations table: %w", err)
	}

	var applied int
	if err := db.QueryRowContext(ctx, "SELECT COUNT(*) FROM schema_migrations;").Scan(&applied); err != nil {
		return fmt.Errorf("error reading migrations: %w", err)
	}

	for version := applied; version < len(migrations); version++ {
		m := migrations[version]
		log.Printf("Running migration %d: %s", version+1, m.migrationName)

		tx, err := db.BeginTx(ctx, nil)
		if err != nil {
			return err
		}
		if _, err = tx.ExecContext(ctx, m.migrationQuery); err != nil {
			tx.Rollback()
			return fmt.Errorf("error running migration %q: %w", m.migrationName, err)
		}
		if _, err = tx.ExecContext(ctx, "INSERT INTO schema_migrations (version, name) VALUES (?, ?);", version+1, m.migrationName); err != nil {
			tx.Rollback()
			return err
		}
		if err = tx.Commit(); err != nil {
			return err
		}
	}

	return nil
}
