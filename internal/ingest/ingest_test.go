package ingest

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/bdougie/clipindex/internal/encoder"
	"github.com/bdougie/clipindex/internal/index"
	"github.com/bdougie/clipindex/internal/media"
	"github.com/bdougie/clipindex/internal/storage"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// newTestPipeline fakes out the external tools: any file whose content
// contains "corrupt" fails probing, everything else probes as a short
// h264 clip and yields synthetic keyframes.
func newTestPipeline(t *testing.T, assetsDir, outDir string, workers int) (*Pipeline, *storage.FilesSink) {
	t.Helper()
	enc := encoder.NewStubEncoder(16)
	sink := storage.NewFilesSink(outDir, enc.Model(), enc.Dimensions())

	opts := Options{
		AssetsDir:     assetsDir,
		KeyframeCount: 3,
		MinDuration:   1.0,
		Workers:       workers,
	}
	p := New(opts, enc, sink, discardLogger())

	p.probe = func(ctx context.Context, path string) (media.ProbeResult, error) {
		data, err := os.ReadFile(path)
		if err != nil {
			return media.ProbeResult{}, err
		}
		if strings.Contains(string(data), "corrupt") {
			return media.ProbeResult{}, fmt.Errorf("probe %s: invalid data", path)
		}
		if strings.Contains(string(data), "tiny") {
			return media.ProbeResult{Duration: 0.5, Width: 640, Height: 480, FrameRate: 30, Codec: "h264"}, nil
		}
		return media.ProbeResult{Duration: 8, Width: 1920, Height: 1080, FrameRate: 24, Codec: "h264"}, nil
	}
	p.frames = func(ctx context.Context, path string, duration float64) ([]media.Keyframe, error) {
		var frames []media.Keyframe
		for _, ts := range media.SampleTimestamps(duration, opts.KeyframeCount) {
			frames = append(frames, media.Keyframe{
				Timestamp: ts,
				JPEG:      []byte(fmt.Sprintf("%s@%.3f", path, ts)),
			})
		}
		return frames, nil
	}
	return p, sink
}

func writeAsset(t *testing.T, dir, name, content string) {
	t.Helper()
	if err := os.WriteFile(filepath.Join(dir, name), []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
}

func TestRunEndToEndWithOneCorruptClip(t *testing.T) {
	assets := t.TempDir()
	out := t.TempDir()
	writeAsset(t, assets, "heart.mp4", "clip one")
	writeAsset(t, assets, "lung.mp4", "clip two")
	writeAsset(t, assets, "brain.mkv", "clip three")
	writeAsset(t, assets, "broken.mp4", "corrupt garbage")

	p, _ := newTestPipeline(t, assets, out, 2)
	summary, err := p.Run(context.Background())
	if err != nil {
		t.Fatalf("Run: %v", err)
	}

	if summary.Scanned != 4 || summary.Ingested != 3 {
		t.Fatalf("summary = %+v", summary)
	}
	if len(summary.Skips) != 1 || !strings.HasSuffix(summary.Skips[0].Path, "broken.mp4") {
		t.Fatalf("skips = %+v", summary.Skips)
	}

	ix, err := index.Load(context.Background(), out)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if len(ix.IDs) != 3 {
		t.Fatalf("index has %d rows, want 3", len(ix.IDs))
	}
	if len(ix.Vectors) != len(ix.IDs) {
		t.Fatalf("vectors/IDs misaligned: %d vs %d", len(ix.Vectors), len(ix.IDs))
	}
}

func TestRunSkipsShortClips(t *testing.T) {
	assets := t.TempDir()
	writeAsset(t, assets, "ok.mp4", "clip")
	writeAsset(t, assets, "blip.mp4", "tiny clip")

	p, _ := newTestPipeline(t, assets, t.TempDir(), 1)
	summary, err := p.Run(context.Background())
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if summary.Ingested != 1 || len(summary.Skips) != 1 {
		t.Fatalf("summary = %+v", summary)
	}
	if !strings.Contains(summary.Skips[0].Reason, "below minimum") {
		t.Fatalf("skip reason = %q", summary.Skips[0].Reason)
	}
}

func TestRunAllClipsFailing(t *testing.T) {
	assets := t.TempDir()
	writeAsset(t, assets, "a.mp4", "corrupt")
	writeAsset(t, assets, "b.mp4", "corrupt")

	p, _ := newTestPipeline(t, assets, t.TempDir(), 2)
	if _, err := p.Run(context.Background()); err == nil {
		t.Fatal("expected error when zero clips succeed")
	}
}

func TestRunEmptyAssetsDir(t *testing.T) {
	p, _ := newTestPipeline(t, t.TempDir(), t.TempDir(), 1)
	if _, err := p.Run(context.Background()); err == nil {
		t.Fatal("expected error for empty assets dir")
	}
}

func TestRunMissingAssetsDir(t *testing.T) {
	p, _ := newTestPipeline(t, filepath.Join(t.TempDir(), "missing"), t.TempDir(), 1)
	if _, err := p.Run(context.Background()); err == nil {
		t.Fatal("expected error for missing assets dir")
	}
}

func TestRunDeterministicAcrossRunsAndWorkerCounts(t *testing.T) {
	assets := t.TempDir()
	writeAsset(t, assets, "a.mp4", "clip a")
	writeAsset(t, assets, "b.mp4", "clip b")
	writeAsset(t, assets, "c.mp4", "clip c")

	outSerial := t.TempDir()
	outParallel := t.TempDir()

	p1, _ := newTestPipeline(t, assets, outSerial, 1)
	if _, err := p1.Run(context.Background()); err != nil {
		t.Fatal(err)
	}
	p2, _ := newTestPipeline(t, assets, outParallel, 4)
	if _, err := p2.Run(context.Background()); err != nil {
		t.Fatal(err)
	}

	for _, name := range []string{index.VectorsFile, index.IDIndexFile} {
		a, err := os.ReadFile(filepath.Join(outSerial, name))
		if err != nil {
			t.Fatal(err)
		}
		b, err := os.ReadFile(filepath.Join(outParallel, name))
		if err != nil {
			t.Fatal(err)
		}
		if string(a) != string(b) {
			t.Errorf("%s differs between worker counts", name)
		}
	}
}

func TestSelfQueryReturnsIngestedClip(t *testing.T) {
	assets := t.TempDir()
	writeAsset(t, assets, "a.mp4", "clip a")
	writeAsset(t, assets, "b.mp4", "clip b")

	out := t.TempDir()
	p, _ := newTestPipeline(t, assets, out, 1)
	if _, err := p.Run(context.Background()); err != nil {
		t.Fatal(err)
	}

	ix, err := index.Load(context.Background(), out)
	if err != nil {
		t.Fatal(err)
	}
	for _, id := range ix.IDs {
		vec, _ := ix.VectorByID(id)
		matches, err := ix.Search(vec, 1)
		if err != nil {
			t.Fatal(err)
		}
		if matches[0].ID != id {
			t.Fatalf("self query for %s returned %s", id, matches[0].ID)
		}
	}
}
