// Package annotate fills the library's curation placeholder fields
// (tags, description) by showing a representative keyframe of each clip
// to a vision chat model. It only updates the library table; vectors
// and the ID list are untouched.
package annotate

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/bdougie/clipindex/internal/models"
)

// Annotation is what the model produced for one clip.
type Annotation struct {
	Description string
	Tags        string
}

// Annotator describes one keyframe image.
type Annotator interface {
	Describe(ctx context.Context, jpeg []byte) (Annotation, error)
}

// FrameFunc extracts a representative still from a clip. Injected so
// the runner can be tested without ffmpeg.
type FrameFunc func(ctx context.Context, path string, duration float64) ([]byte, error)

// Summary reports what an annotation pass did.
type Summary struct {
	Annotated int
	Skipped   []string
}

// Library is the clip table surface the runner needs. Both the SQLite
// library and the Postgres backend provide it.
type Library interface {
	Clips(ctx context.Context) ([]models.Clip, error)
	UpdateAnnotations(ctx context.Context, id, tags, description string) error
}

// Runner walks the library and annotates each clip. Per-clip failures
// are logged and skipped, mirroring the ingestion pipeline's tolerance.
type Runner struct {
	Library   Library
	Annotator Annotator
	Frames    FrameFunc
	Logger    *slog.Logger
}

// Run annotates every clip in the library.
func (r *Runner) Run(ctx context.Context) (Summary, error) {
	clips, err := r.Library.Clips(ctx)
	if err != nil {
		return Summary{}, fmt.Errorf("annotate: %w", err)
	}
	if len(clips) == 0 {
		return Summary{}, fmt.Errorf("annotate: library is empty")
	}

	var summary Summary
	for _, clip := range clips {
		if err := r.annotateOne(ctx, clip); err != nil {
			r.Logger.Warn("skipping clip", "clip", clip.ID, "path", clip.Path, "error", err)
			summary.Skipped = append(summary.Skipped, clip.ID)
			continue
		}
		summary.Annotated++
	}

	if summary.Annotated == 0 {
		return summary, fmt.Errorf("annotate: no clips annotated (%d skipped)", len(summary.Skipped))
	}
	return summary, nil
}

func (r *Runner) annotateOne(ctx context.Context, clip models.Clip) error {
	frame, err := r.Frames(ctx, clip.Path, clip.Duration)
	if err != nil {
		return err
	}
	annotation, err := r.Annotator.Describe(ctx, frame)
	if err != nil {
		return err
	}
	if err := r.Library.UpdateAnnotations(ctx, clip.ID, annotation.Tags, annotation.Description); err != nil {
		return err
	}
	r.Logger.Info("annotated clip", "clip", clip.ID, "tags", annotation.Tags)
	return nil
}
