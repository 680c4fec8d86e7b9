package index

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sort"

	"github.com/bdougie/clipindex/internal/encoder"
	"github.com/bdougie/clipindex/internal/fileutil"
	"github.com/bdougie/clipindex/internal/models"
)

// Index is a loaded, read-only view over the persisted artifacts. It
// never mutates them.
type Index struct {
	Manifest Manifest
	IDs      []string
	Vectors  [][]float32

	rowByID map[string]int
}

// Load reads and cross-checks the artifact trio in dir. An empty index
// is an explicit error; search over nothing is always a caller bug.
func Load(ctx context.Context, dir string) (*Index, error) {
	manifest, err := readManifest(filepath.Join(dir, ManifestFile))
	if err != nil {
		return nil, fmt.Errorf("load index %s: %w", dir, err)
	}

	// The checksum pass catches a trio assembled from different runs,
	// which the row-count cross-checks below cannot when counts happen
	// to coincide.
	for _, name := range []string{LibraryFile, VectorsFile, IDIndexFile} {
		want, ok := manifest.Checksums[name]
		if !ok {
			return nil, fmt.Errorf("load index %s: manifest lists no checksum for %s", dir, name)
		}
		got, err := fileutil.Sha256File(filepath.Join(dir, name))
		if err != nil {
			return nil, fmt.Errorf("load index %s: %w", dir, err)
		}
		if got != want {
			return nil, fmt.Errorf("load index %s: %s does not match the manifest checksum", dir, name)
		}
	}

	raw, err := os.ReadFile(filepath.Join(dir, VectorsFile))
	if err != nil {
		return nil, fmt.Errorf("load index %s: %w", dir, err)
	}
	vectors, dim, err := decodeVectors(raw)
	if err != nil {
		return nil, fmt.Errorf("load index %s: %w", dir, err)
	}
	if dim != manifest.Dimensions {
		return nil, fmt.Errorf("load index %s: vectors have %d dimensions, manifest says %d", dir, dim, manifest.Dimensions)
	}

	ids, err := readIDIndex(filepath.Join(dir, IDIndexFile))
	if err != nil {
		return nil, fmt.Errorf("load index %s: %w", dir, err)
	}

	if len(ids) != len(vectors) {
		return nil, fmt.Errorf("load index %s: %d IDs but %d vector rows", dir, len(ids), len(vectors))
	}
	if len(ids) != manifest.Rows {
		return nil, fmt.Errorf("load index %s: %d rows on disk, manifest says %d", dir, len(ids), manifest.Rows)
	}
	if len(ids) == 0 {
		return nil, fmt.Errorf("load index %s: index is empty", dir)
	}

	lib, err := OpenLibrary(filepath.Join(dir, LibraryFile))
	if err != nil {
		return nil, err
	}
	defer lib.Close()
	count, err := lib.Count(ctx)
	if err != nil {
		return nil, fmt.Errorf("load index %s: %w", dir, err)
	}
	if count != len(ids) {
		return nil, fmt.Errorf("load index %s: library has %d rows, expected %d", dir, count, len(ids))
	}

	rowByID := make(map[string]int, len(ids))
	for i, id := range ids {
		rowByID[id] = i
	}
	return &Index{
		Manifest: manifest,
		IDs:      ids,
		Vectors:  vectors,
		rowByID:  rowByID,
	}, nil
}

// VectorByID returns the indexed vector for a clip, when present.
func (ix *Index) VectorByID(id string) ([]float32, bool) {
	row, ok := ix.rowByID[id]
	if !ok {
		return nil, false
	}
	return ix.Vectors[row], true
}

// CheckEncoder verifies the query encoder matches the one the index was
// built with. Mixing encoders yields meaningless similarities.
func (ix *Index) CheckEncoder(enc encoder.Encoder) error {
	if enc.Model() != ix.Manifest.Model {
		return fmt.Errorf("index was built with encoder %q, query encoder is %q", ix.Manifest.Model, enc.Model())
	}
	if enc.Dimensions() != ix.Manifest.Dimensions {
		return fmt.Errorf("index has %d dimensions, query encoder emits %d", ix.Manifest.Dimensions, enc.Dimensions())
	}
	return nil
}

// Search returns up to k matches in descending cosine similarity, ties
// broken by row order. k == 0 yields an empty result; k beyond the
// index size returns everything rather than erroring.
func (ix *Index) Search(query []float32, k int) ([]models.Match, error) {
	if len(query) != ix.Manifest.Dimensions {
		return nil, fmt.Errorf("search: query has %d dimensions, index has %d", len(query), ix.Manifest.Dimensions)
	}
	if k < 0 {
		return nil, fmt.Errorf("search: negative k %d", k)
	}
	if k == 0 {
		return []models.Match{}, nil
	}
	if k > len(ix.IDs) {
		k = len(ix.IDs)
	}

	sims := make([]float32, len(ix.Vectors))
	for i, vec := range ix.Vectors {
		sims[i] = encoder.Dot(vec, query)
	}

	order := make([]int, len(sims))
	for i := range order {
		order[i] = i
	}
	sort.SliceStable(order, func(a, b int) bool {
		return sims[order[a]] > sims[order[b]]
	})

	matches := make([]models.Match, 0, k)
	for _, row := range order[:k] {
		matches = append(matches, models.Match{ID: ix.IDs[row], Similarity: sims[row]})
	}
	return matches, nil
}
