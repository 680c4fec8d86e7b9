// Package index builds and reads the persisted clip index: a SQLite
// library table, a packed float32 vector matrix, and an aligned ID
// list. Row i of the matrix corresponds to entry i of the ID list and
// to the library row with that ID; the three artifacts always have the
// same row count and ordering.
package index

import (
	"bytes"
	"encoding/binary"
	"encoding/json"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"time"

	"github.com/bdougie/clipindex/internal/fileutil"
)

// Artifact file names inside the output directory.
const (
	LibraryFile  = "library.db"
	VectorsFile  = "vectors.f32"
	IDIndexFile  = "id_index.json"
	ManifestFile = "manifest.json"
)

var vectorsMagic = [4]byte{'C', 'V', 'F', '1'}

// Manifest records how an index was built. Search compares its model
// against the active encoder and refuses to mix the two. Checksums maps
// each artifact file to its sha256; the manifest is installed after the
// artifacts, so a crash mid-install leaves the previous manifest, whose
// checksums reject any half-replaced trio at load time.
type Manifest struct {
	RunID      string            `json:"run_id"`
	Model      string            `json:"model"`
	Dimensions int               `json:"dimensions"`
	Rows       int               `json:"rows"`
	Checksums  map[string]string `json:"checksums"`
	CreatedAt  time.Time         `json:"created_at"`
}

// encodeVectors packs a row-major float32 matrix with a small header:
// magic, row count, dimension, then rows*dim little-endian floats.
func encodeVectors(vectors [][]float32, dim int) ([]byte, error) {
	var buf bytes.Buffer
	buf.Write(vectorsMagic[:])

	header := [8]byte{}
	binary.LittleEndian.PutUint32(header[0:4], uint32(len(vectors)))
	binary.LittleEndian.PutUint32(header[4:8], uint32(dim))
	buf.Write(header[:])

	for i, vec := range vectors {
		if len(vec) != dim {
			return nil, fmt.Errorf("encode vectors: row %d has %d dimensions, want %d", i, len(vec), dim)
		}
		for _, v := range vec {
			var cell [4]byte
			binary.LittleEndian.PutUint32(cell[:], math.Float32bits(v))
			buf.Write(cell[:])
		}
	}
	return buf.Bytes(), nil
}

func decodeVectors(data []byte) ([][]float32, int, error) {
	if len(data) < 12 || !bytes.Equal(data[:4], vectorsMagic[:]) {
		return nil, 0, fmt.Errorf("decode vectors: bad header")
	}
	rows := int(binary.LittleEndian.Uint32(data[4:8]))
	dim := int(binary.LittleEndian.Uint32(data[8:12]))

	payload := data[12:]
	if len(payload) != rows*dim*4 {
		return nil, 0, fmt.Errorf("decode vectors: %d payload bytes, want %d for %dx%d", len(payload), rows*dim*4, rows, dim)
	}

	vectors := make([][]float32, rows)
	off := 0
	for i := range vectors {
		vec := make([]float32, dim)
		for j := range vec {
			vec[j] = math.Float32frombits(binary.LittleEndian.Uint32(payload[off : off+4]))
			off += 4
		}
		vectors[i] = vec
	}
	return vectors, dim, nil
}

func readManifest(path string) (Manifest, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Manifest{}, err
	}
	var m Manifest
	if err := json.Unmarshal(data, &m); err != nil {
		return Manifest{}, fmt.Errorf("parse manifest %s: %w", path, err)
	}
	return m, nil
}

// RefreshLibraryChecksum reseals the manifest after an in-place library
// update, such as an annotation pass. The library must be closed first.
func RefreshLibraryChecksum(dir string) error {
	manifest, err := readManifest(filepath.Join(dir, ManifestFile))
	if err != nil {
		return fmt.Errorf("refresh library checksum: %w", err)
	}
	sum, err := fileutil.Sha256File(filepath.Join(dir, LibraryFile))
	if err != nil {
		return fmt.Errorf("refresh library checksum: %w", err)
	}
	if manifest.Checksums == nil {
		manifest.Checksums = make(map[string]string, 1)
	}
	manifest.Checksums[LibraryFile] = sum

	data, err := json.MarshalIndent(manifest, "", "  ")
	if err != nil {
		return err
	}
	return fileutil.WriteAtomic(filepath.Join(dir, ManifestFile), data, 0o644)
}

func readIDIndex(path string) ([]string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var ids []string
	if err := json.Unmarshal(data, &ids); err != nil {
		return nil, fmt.Errorf("parse id index %s: %w", path, err)
	}
	return ids, nil
}
