// Package storage abstracts where the ingestion pipeline lands its
// output: the default on-disk artifact trio, or a pgvector-enabled
// PostgreSQL database.
package storage

import (
	"context"

	"github.com/bdougie/clipindex/internal/models"
)

// Sink receives ingested clips and commits them as one unit at the end
// of a run. Commit replaces any prior index wholesale.
type Sink interface {
	// Add records one clip and its pooled embedding.
	Add(ctx context.Context, clip models.Clip, vector []float32) error

	// Commit persists everything accumulated so far and returns the
	// number of rows written.
	Commit(ctx context.Context) (int, error)

	// Close releases any underlying resources.
	Close()
}
