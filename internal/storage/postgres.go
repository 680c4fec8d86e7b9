package storage

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/pgvector/pgvector-go"
	pgxvector "github.com/pgvector/pgvector-go/pgx"

	"github.com/bdougie/clipindex/internal/models"
)

// PostgresSink streams clip rows and embeddings into a pgvector-enabled
// PostgreSQL database. Commit swaps the table contents in one
// transaction, so readers see either the old index or the new one. It
// also serves reads, so search and annotation can run against the same
// backend that ingestion wrote to.
type PostgresSink struct {
	pool    *pgxpool.Pool
	model   string
	dim     int
	pending []pgEntry
}

type pgEntry struct {
	clip   models.Clip
	vector []float32
}

// NewPostgresSink connects to the database and ensures the schema
// exists for the given embedding dimensionality.
func NewPostgresSink(ctx context.Context, dsn, model string, dimensions int) (*PostgresSink, error) {
	poolConfig, err := pgxpool.ParseConfig(dsn)
	if err != nil {
		return nil, fmt.Errorf("parse postgres dsn: %w", err)
	}
	poolConfig.AfterConnect = func(ctx context.Context, conn *pgx.Conn) error {
		return pgxvector.RegisterTypes(ctx, conn)
	}

	pool, err := pgxpool.NewWithConfig(ctx, poolConfig)
	if err != nil {
		return nil, fmt.Errorf("connect postgres: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping postgres: %w", err)
	}

	sink := &PostgresSink{pool: pool, model: model, dim: dimensions}
	if err := sink.initSchema(ctx); err != nil {
		pool.Close()
		return nil, err
	}
	return sink, nil
}

func (s *PostgresSink) initSchema(ctx context.Context) error {
	if _, err := s.pool.Exec(ctx, "CREATE EXTENSION IF NOT EXISTS vector"); err != nil {
		return fmt.Errorf("create vector extension: %w", err)
	}

	schema := fmt.Sprintf(`
        CREATE TABLE IF NOT EXISTS clips (
            id          TEXT PRIMARY KEY,
            path        TEXT NOT NULL,
            title       TEXT NOT NULL,
            duration    DOUBLE PRECISION NOT NULL,
            width       INTEGER NOT NULL,
            height      INTEGER NOT NULL,
            frame_rate  DOUBLE PRECISION NOT NULL,
            codec       TEXT NOT NULL,
            checksum    TEXT NOT NULL,
            tags        TEXT NOT NULL DEFAULT '',
            description TEXT NOT NULL DEFAULT '',
            model       TEXT NOT NULL,
            created_at  TIMESTAMPTZ NOT NULL,
            embedding   vector(%d) NOT NULL
        );
    `, s.dim)
	if _, err := s.pool.Exec(ctx, schema); err != nil {
		return fmt.Errorf("create clips table: %w", err)
	}

	_, err := s.pool.Exec(ctx, `
        CREATE INDEX IF NOT EXISTS idx_clips_embedding
        ON clips USING ivfflat (embedding vector_cosine_ops) WITH (lists = 100)
    `)
	if err != nil {
		return fmt.Errorf("create embedding index: %w", err)
	}
	return nil
}

// Add buffers one clip; nothing is written until Commit.
func (s *PostgresSink) Add(ctx context.Context, clip models.Clip, vector []float32) error {
	if len(vector) != s.dim {
		return fmt.Errorf("postgres add %s: vector has %d dimensions, want %d", clip.ID, len(vector), s.dim)
	}
	s.pending = append(s.pending, pgEntry{clip: clip, vector: vector})
	return nil
}

// Commit replaces the table contents with the buffered rows.
func (s *PostgresSink) Commit(ctx context.Context) (int, error) {
	if len(s.pending) == 0 {
		return 0, fmt.Errorf("postgres commit: no clips ingested")
	}

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return 0, fmt.Errorf("postgres commit: %w", err)
	}
	defer tx.Rollback(ctx)

	if _, err := tx.Exec(ctx, "DELETE FROM clips"); err != nil {
		return 0, fmt.Errorf("postgres commit: clear prior index: %w", err)
	}

	now := time.Now().UTC()
	for _, e := range s.pending {
		createdAt := e.clip.CreatedAt
		if createdAt.IsZero() {
			createdAt = now
		}
		_, err := tx.Exec(ctx, `
            INSERT INTO clips (id, path, title, duration, width, height, frame_rate, codec, checksum, tags, description, model, created_at, embedding)
            VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14)`,
			e.clip.ID, e.clip.Path, e.clip.Title, e.clip.Duration,
			e.clip.Width, e.clip.Height, e.clip.FrameRate, e.clip.Codec,
			e.clip.Checksum, e.clip.Tags, e.clip.Description,
			s.model, createdAt, pgvector.NewVector(e.vector))
		if err != nil {
			return 0, fmt.Errorf("postgres commit: insert clip %s: %w", e.clip.ID, err)
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return 0, fmt.Errorf("postgres commit: %w", err)
	}
	rows := len(s.pending)
	s.pending = nil
	return rows, nil
}

// Close releases the connection pool.
func (s *PostgresSink) Close() {
	if s.pool != nil {
		s.pool.Close()
	}
}

// Search returns the k most similar clips by cosine distance, computed
// by the database. The stored model name guards against querying with a
// different encoder than the one used at ingest time. Same k semantics
// as the on-disk matcher: negative k errors, zero yields nothing.
func (s *PostgresSink) Search(ctx context.Context, query []float32, model string, k int) ([]models.Match, error) {
	if len(query) != s.dim {
		return nil, fmt.Errorf("postgres search: query has %d dimensions, want %d", len(query), s.dim)
	}
	if k < 0 {
		return nil, fmt.Errorf("postgres search: negative k %d", k)
	}
	if k == 0 {
		return []models.Match{}, nil
	}

	rows, err := s.pool.Query(ctx, `
        SELECT id, 1 - (embedding <=> $1) AS similarity
        FROM clips
        WHERE model = $2
        ORDER BY embedding <=> $1, id
        LIMIT $3`,
		pgvector.NewVector(query), model, k)
	if err != nil {
		return nil, fmt.Errorf("postgres search: %w", err)
	}
	defer rows.Close()

	var matches []models.Match
	for rows.Next() {
		var m models.Match
		var similarity float64
		if err := rows.Scan(&m.ID, &similarity); err != nil {
			return nil, fmt.Errorf("postgres search: %w", err)
		}
		m.Similarity = float32(similarity)
		matches = append(matches, m)
	}
	return matches, rows.Err()
}

// VectorByID returns the stored embedding for a clip.
func (s *PostgresSink) VectorByID(ctx context.Context, id string) ([]float32, error) {
	var vec pgvector.Vector
	err := s.pool.QueryRow(ctx, `SELECT embedding FROM clips WHERE id = $1`, id).Scan(&vec)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, fmt.Errorf("clip %s not in index", id)
	}
	if err != nil {
		return nil, fmt.Errorf("postgres vector for %s: %w", id, err)
	}
	return vec.Slice(), nil
}

// Clips returns all rows ordered by ID.
func (s *PostgresSink) Clips(ctx context.Context) ([]models.Clip, error) {
	rows, err := s.pool.Query(ctx, `
        SELECT id, path, title, duration, width, height, frame_rate, codec, checksum, tags, description, created_at
        FROM clips ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("postgres clips: %w", err)
	}
	defer rows.Close()

	var clips []models.Clip
	for rows.Next() {
		clip, err := scanPgClip(rows)
		if err != nil {
			return nil, fmt.Errorf("postgres clips: %w", err)
		}
		clips = append(clips, clip)
	}
	return clips, rows.Err()
}

// ClipByID returns a single row.
func (s *PostgresSink) ClipByID(ctx context.Context, id string) (models.Clip, error) {
	row := s.pool.QueryRow(ctx, `
        SELECT id, path, title, duration, width, height, frame_rate, codec, checksum, tags, description, created_at
        FROM clips WHERE id = $1`, id)
	clip, err := scanPgClip(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return models.Clip{}, fmt.Errorf("clip %s not in library", id)
	}
	return clip, err
}

// UpdateAnnotations writes the curation fields for one clip.
func (s *PostgresSink) UpdateAnnotations(ctx context.Context, id, tags, description string) error {
	tag, err := s.pool.Exec(ctx,
		`UPDATE clips SET tags = $1, description = $2 WHERE id = $3`,
		tags, description, id)
	if err != nil {
		return fmt.Errorf("update annotations for %s: %w", id, err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("clip %s not in library", id)
	}
	return nil
}

func scanPgClip(row pgx.Row) (models.Clip, error) {
	var clip models.Clip
	err := row.Scan(&clip.ID, &clip.Path, &clip.Title, &clip.Duration,
		&clip.Width, &clip.Height, &clip.FrameRate, &clip.Codec,
		&clip.Checksum, &clip.Tags, &clip.Description, &clip.CreatedAt)
	if err != nil {
		return models.Clip{}, err
	}
	return clip, nil
}
