// Package ingest runs the clip ingestion pipeline: scan the assets
// directory, probe and sample each clip, embed and pool its keyframes,
// and commit the rows to the configured sink. Per-clip failures are
// logged and skipped; only run-level preconditions abort the batch.
package ingest

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/bdougie/clipindex/internal/encoder"
	"github.com/bdougie/clipindex/internal/fileutil"
	"github.com/bdougie/clipindex/internal/media"
	"github.com/bdougie/clipindex/internal/models"
	"github.com/bdougie/clipindex/internal/storage"
)

// Options controls one ingestion run.
type Options struct {
	AssetsDir     string
	FFprobe       string
	FFmpeg        string
	KeyframeCount int
	MinDuration   float64
	Workers       int
}

// Skip records one clip that was excluded from the index.
type Skip struct {
	Path   string
	Reason string
}

// Summary reports what a run accomplished.
type Summary struct {
	Scanned  int
	Ingested int
	Skips    []Skip
}

// Pipeline ingests clips into a sink using a shared encoder.
type Pipeline struct {
	opts   Options
	enc    encoder.Encoder
	sink   storage.Sink
	logger *slog.Logger

	// Injection points for tests; default to the real tools.
	probe  func(ctx context.Context, path string) (media.ProbeResult, error)
	frames func(ctx context.Context, path string, duration float64) ([]media.Keyframe, error)
	hash   func(path string) (string, error)
}

// New builds a pipeline. The encoder is acquired once by the caller and
// shared across all workers for the whole run.
func New(opts Options, enc encoder.Encoder, sink storage.Sink, logger *slog.Logger) *Pipeline {
	if opts.Workers < 1 {
		opts.Workers = 1
	}
	p := &Pipeline{opts: opts, enc: enc, sink: sink, logger: logger}
	p.probe = func(ctx context.Context, path string) (media.ProbeResult, error) {
		return media.Probe(ctx, opts.FFprobe, path)
	}
	p.frames = func(ctx context.Context, path string, duration float64) ([]media.Keyframe, error) {
		return media.ExtractKeyframes(ctx, opts.FFmpeg, path, duration, opts.KeyframeCount)
	}
	p.hash = fileutil.Sha256File
	return p
}

type result struct {
	path string
	clip models.Clip
	vec  []float32
	err  error
}

// Run executes the pipeline. It returns an error when no clip could be
// ingested; partial failures are reported in the summary instead.
func (p *Pipeline) Run(ctx context.Context) (Summary, error) {
	files, err := Scan(p.opts.AssetsDir)
	if err != nil {
		return Summary{}, err
	}
	if len(files) == 0 {
		return Summary{}, fmt.Errorf("no video files found under %s", p.opts.AssetsDir)
	}
	p.logger.Info("scanned assets", "dir", p.opts.AssetsDir, "clips", len(files))

	workChan := make(chan string, len(files))
	resultsChan := make(chan result, len(files))

	var wg sync.WaitGroup
	for i := 0; i < p.opts.Workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for path := range workChan {
				clip, vec, err := p.processClip(ctx, path)
				resultsChan <- result{path: path, clip: clip, vec: vec, err: err}
			}
		}()
	}

	for _, path := range files {
		workChan <- path
	}
	close(workChan)

	go func() {
		wg.Wait()
		close(resultsChan)
	}()

	// Collect in a single goroutine; the sink is not required to be
	// thread-safe. Final row order comes from the sink's stable sort,
	// not from worker completion order.
	summary := Summary{Scanned: len(files)}
	for r := range resultsChan {
		if r.err != nil {
			p.logger.Warn("skipping clip", "path", r.path, "error", r.err)
			summary.Skips = append(summary.Skips, Skip{Path: r.path, Reason: r.err.Error()})
			continue
		}
		if err := p.sink.Add(ctx, r.clip, r.vec); err != nil {
			return summary, fmt.Errorf("add %s to index: %w", r.clip.ID, err)
		}
		summary.Ingested++
	}

	if summary.Ingested == 0 {
		return summary, fmt.Errorf("no clips successfully processed (%d scanned, %d skipped)", summary.Scanned, len(summary.Skips))
	}

	rows, err := p.sink.Commit(ctx)
	if err != nil {
		return summary, err
	}
	p.logger.Info("index committed", "rows", rows, "skipped", len(summary.Skips))
	return summary, nil
}

// processClip turns one file into a library row plus pooled vector.
func (p *Pipeline) processClip(ctx context.Context, path string) (models.Clip, []float32, error) {
	checksum, err := p.hash(path)
	if err != nil {
		return models.Clip{}, nil, err
	}

	probe, err := p.probe(ctx, path)
	if err != nil {
		return models.Clip{}, nil, err
	}
	if probe.Duration < p.opts.MinDuration {
		return models.Clip{}, nil, fmt.Errorf("duration %.2fs below minimum %.2fs", probe.Duration, p.opts.MinDuration)
	}

	frames, err := p.frames(ctx, path, probe.Duration)
	if err != nil {
		return models.Clip{}, nil, err
	}

	vectors := make([][]float32, 0, len(frames))
	for _, frame := range frames {
		vec, err := p.enc.EmbedImage(ctx, frame.JPEG)
		if err != nil {
			return models.Clip{}, nil, fmt.Errorf("embed keyframe at %.3fs: %w", frame.Timestamp, err)
		}
		vectors = append(vectors, vec)
	}
	pooled, err := encoder.MeanPool(vectors)
	if err != nil {
		return models.Clip{}, nil, err
	}

	clip := models.Clip{
		ID:        checksum[:16],
		Path:      path,
		Title:     DeriveTitle(path),
		Duration:  probe.Duration,
		Width:     probe.Width,
		Height:    probe.Height,
		FrameRate: probe.FrameRate,
		Codec:     probe.Codec,
		Checksum:  checksum,
		CreatedAt: time.Now().UTC(),
	}
	return clip, pooled, nil
}
