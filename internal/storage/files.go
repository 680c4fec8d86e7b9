package storage

import (
	"context"

	"github.com/bdougie/clipindex/internal/index"
	"github.com/bdougie/clipindex/internal/models"
)

// FilesSink accumulates clips into an index.Builder and persists the
// artifact trio on Commit.
type FilesSink struct {
	builder *index.Builder
	outDir  string
}

// NewFilesSink returns a sink writing to outDir.
func NewFilesSink(outDir, model string, dimensions int) *FilesSink {
	return &FilesSink{
		builder: index.NewBuilder(model, dimensions),
		outDir:  outDir,
	}
}

func (s *FilesSink) Add(ctx context.Context, clip models.Clip, vector []float32) error {
	return s.builder.Add(clip, vector)
}

func (s *FilesSink) Commit(ctx context.Context) (int, error) {
	manifest, err := s.builder.Persist(ctx, s.outDir)
	if err != nil {
		return 0, err
	}
	return manifest.Rows, nil
}

func (s *FilesSink) Close() {}
