package index

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	_ "modernc.org/sqlite"

	"github.com/bdougie/clipindex/internal/models"
)

const librarySchema = `
CREATE TABLE IF NOT EXISTS clips (
    id          TEXT PRIMARY KEY,
    path        TEXT NOT NULL,
    title       TEXT NOT NULL,
    duration    REAL NOT NULL,
    width       INTEGER NOT NULL,
    height      INTEGER NOT NULL,
    frame_rate  REAL NOT NULL,
    codec       TEXT NOT NULL,
    checksum    TEXT NOT NULL,
    tags        TEXT NOT NULL DEFAULT '',
    description TEXT NOT NULL DEFAULT '',
    created_at  TEXT NOT NULL
);
`

// Library provides read and annotation access to the SQLite clip table.
type Library struct {
	db *sql.DB
}

// OpenLibrary opens the library database at path.
func OpenLibrary(path string) (*Library, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open library %s: %w", path, err)
	}
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("open library %s: %w", path, err)
	}
	return &Library{db: db}, nil
}

// Close releases the database handle.
func (l *Library) Close() error {
	return l.db.Close()
}

// Count returns the number of clip rows.
func (l *Library) Count(ctx context.Context) (int, error) {
	var n int
	err := l.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM clips`).Scan(&n)
	return n, err
}

// Clips returns all rows ordered by ID, matching the vector row order.
func (l *Library) Clips(ctx context.Context) ([]models.Clip, error) {
	rows, err := l.db.QueryContext(ctx, `
		SELECT id, path, title, duration, width, height, frame_rate, codec, checksum, tags, description, created_at
		FROM clips ORDER BY id`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var clips []models.Clip
	for rows.Next() {
		clip, err := scanClip(rows)
		if err != nil {
			return nil, err
		}
		clips = append(clips, clip)
	}
	return clips, rows.Err()
}

// ClipByID returns a single row.
func (l *Library) ClipByID(ctx context.Context, id string) (models.Clip, error) {
	row := l.db.QueryRowContext(ctx, `
		SELECT id, path, title, duration, width, height, frame_rate, codec, checksum, tags, description, created_at
		FROM clips WHERE id = ?`, id)
	clip, err := scanClip(row)
	if errors.Is(err, sql.ErrNoRows) {
		return models.Clip{}, fmt.Errorf("clip %s not in library", id)
	}
	return clip, err
}

// UpdateAnnotations writes the curation fields for one clip.
func (l *Library) UpdateAnnotations(ctx context.Context, id, tags, description string) error {
	result, err := l.db.ExecContext(ctx,
		`UPDATE clips SET tags = ?, description = ? WHERE id = ?`,
		tags, description, id)
	if err != nil {
		return fmt.Errorf("update annotations for %s: %w", id, err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return fmt.Errorf("clip %s not in library", id)
	}
	return nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanClip(row rowScanner) (models.Clip, error) {
	var clip models.Clip
	var createdAt string
	err := row.Scan(&clip.ID, &clip.Path, &clip.Title, &clip.Duration,
		&clip.Width, &clip.Height, &clip.FrameRate, &clip.Codec,
		&clip.Checksum, &clip.Tags, &clip.Description, &createdAt)
	if err != nil {
		return models.Clip{}, err
	}
	clip.CreatedAt, _ = time.Parse(time.RFC3339, createdAt)
	return clip, nil
}

// writeLibrary creates a fresh database at path holding the given rows.
// Used by the builder inside its staging directory.
func writeLibrary(ctx context.Context, path string, clips []models.Clip) error {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return fmt.Errorf("create library %s: %w", path, err)
	}
	defer db.Close()

	if _, err := db.ExecContext(ctx, librarySchema); err != nil {
		return fmt.Errorf("create library schema: %w", err)
	}

	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO clips (id, path, title, duration, width, height, frame_rate, codec, checksum, tags, description, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return err
	}
	defer stmt.Close()

	for _, clip := range clips {
		_, err := stmt.ExecContext(ctx, clip.ID, clip.Path, clip.Title, clip.Duration,
			clip.Width, clip.Height, clip.FrameRate, clip.Codec,
			clip.Checksum, clip.Tags, clip.Description,
			clip.CreatedAt.UTC().Format(time.RFC3339))
		if err != nil {
			return fmt.Errorf("insert clip %s: %w", clip.ID, err)
		}
	}
	return tx.Commit()
}
