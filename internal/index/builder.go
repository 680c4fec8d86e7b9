package index

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"time"

	"github.com/google/uuid"

	"github.com/bdougie/clipindex/internal/fileutil"
	"github.com/bdougie/clipindex/internal/models"
)

// Builder accumulates ingested clips and persists the index artifacts
// as one unit. It owns the output directory for the duration of a run;
// a re-run replaces the previous index wholesale.
type Builder struct {
	model   string
	dim     int
	entries []entry
	seen    map[string]bool
}

type entry struct {
	clip   models.Clip
	vector []float32
}

// NewBuilder returns a builder for vectors produced by the named model.
func NewBuilder(model string, dimensions int) *Builder {
	return &Builder{
		model: model,
		dim:   dimensions,
		seen:  make(map[string]bool),
	}
}

// Add records one clip and its pooled vector. Re-adding an ID replaces
// the earlier entry, so re-ingesting a file is idempotent.
func (b *Builder) Add(clip models.Clip, vector []float32) error {
	if clip.ID == "" {
		return fmt.Errorf("index add: clip %s has empty ID", clip.Path)
	}
	if len(vector) != b.dim {
		return fmt.Errorf("index add %s: vector has %d dimensions, want %d", clip.ID, len(vector), b.dim)
	}
	if b.seen[clip.ID] {
		for i := range b.entries {
			if b.entries[i].clip.ID == clip.ID {
				b.entries[i] = entry{clip: clip, vector: vector}
				return nil
			}
		}
	}
	b.seen[clip.ID] = true
	b.entries = append(b.entries, entry{clip: clip, vector: vector})
	return nil
}

// Len reports the number of accumulated clips.
func (b *Builder) Len() int {
	return len(b.entries)
}

// Persist writes library.db, vectors.f32, id_index.json and
// manifest.json to outDir. Everything is staged in a temp directory
// first and renamed into place, so a crash mid-write never leaves a
// partially updated trio.
func (b *Builder) Persist(ctx context.Context, outDir string) (Manifest, error) {
	if len(b.entries) == 0 {
		return Manifest{}, fmt.Errorf("persist index: no clips ingested")
	}
	if err := fileutil.EnsureDir(outDir); err != nil {
		return Manifest{}, err
	}

	// Stable row order: sorted by clip ID, so re-ingesting the same
	// asset set reproduces identical vectors and ID list.
	sort.Slice(b.entries, func(i, j int) bool {
		return b.entries[i].clip.ID < b.entries[j].clip.ID
	})

	manifest := Manifest{
		RunID:      uuid.NewString(),
		Model:      b.model,
		Dimensions: b.dim,
		Rows:       len(b.entries),
		CreatedAt:  time.Now().UTC(),
	}

	staging, err := os.MkdirTemp(outDir, ".staging-*")
	if err != nil {
		return Manifest{}, fmt.Errorf("persist index: %w", err)
	}
	defer os.RemoveAll(staging)

	clips := make([]models.Clip, len(b.entries))
	vectors := make([][]float32, len(b.entries))
	ids := make([]string, len(b.entries))
	for i, e := range b.entries {
		clips[i] = e.clip
		vectors[i] = e.vector
		ids[i] = e.clip.ID
	}

	if err := writeLibrary(ctx, filepath.Join(staging, LibraryFile), clips); err != nil {
		return Manifest{}, err
	}

	encoded, err := encodeVectors(vectors, b.dim)
	if err != nil {
		return Manifest{}, err
	}
	if err := os.WriteFile(filepath.Join(staging, VectorsFile), encoded, 0o644); err != nil {
		return Manifest{}, err
	}

	idsJSON, err := json.Marshal(ids)
	if err != nil {
		return Manifest{}, err
	}
	if err := os.WriteFile(filepath.Join(staging, IDIndexFile), idsJSON, 0o644); err != nil {
		return Manifest{}, err
	}

	manifest.Checksums = make(map[string]string, 3)
	for _, name := range []string{LibraryFile, VectorsFile, IDIndexFile} {
		sum, err := fileutil.Sha256File(filepath.Join(staging, name))
		if err != nil {
			return Manifest{}, fmt.Errorf("persist index: digest %s: %w", name, err)
		}
		manifest.Checksums[name] = sum
	}

	manifestJSON, err := json.MarshalIndent(manifest, "", "  ")
	if err != nil {
		return Manifest{}, err
	}
	if err := os.WriteFile(filepath.Join(staging, ManifestFile), manifestJSON, 0o644); err != nil {
		return Manifest{}, err
	}

	// The manifest goes last: a crash between renames leaves the prior
	// manifest in place, and its checksums reject the mixed artifacts
	// at load time.
	for _, name := range []string{LibraryFile, VectorsFile, IDIndexFile, ManifestFile} {
		if err := os.Rename(filepath.Join(staging, name), filepath.Join(outDir, name)); err != nil {
			return Manifest{}, fmt.Errorf("persist index: install %s: %w", name, err)
		}
	}
	return manifest, nil
}
