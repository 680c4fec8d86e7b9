package encoder

import (
	"context"
	"crypto/sha256"
	"encoding/binary"
)

// StubEncoder produces deterministic vectors derived from the input
// bytes. It exists so the pipeline can run offline and so tests never
// need a model daemon; the vectors carry no visual meaning.
type StubEncoder struct {
	dimensions int
}

// NewStubEncoder returns a stub emitting vectors of the given length.
func NewStubEncoder(dimensions int) *StubEncoder {
	if dimensions < 1 {
		dimensions = 8
	}
	return &StubEncoder{dimensions: dimensions}
}

func (e *StubEncoder) Model() string   { return "stub" }
func (e *StubEncoder) Dimensions() int { return e.dimensions }

func (e *StubEncoder) EmbedImage(ctx context.Context, jpeg []byte) ([]float32, error) {
	return e.derive(jpeg), nil
}

func (e *StubEncoder) EmbedText(ctx context.Context, text string) ([]float32, error) {
	return e.derive([]byte(text)), nil
}

// derive expands a SHA-256 counter stream over the input into a
// normalized vector, so equal inputs always map to equal vectors.
func (e *StubEncoder) derive(data []byte) []float32 {
	vec := make([]float32, e.dimensions)
	var counter [8]byte
	var block []byte
	for i := range vec {
		if i%8 == 0 {
			binary.LittleEndian.PutUint64(counter[:], uint64(i/8))
			sum := sha256.Sum256(append(append([]byte{}, data...), counter[:]...))
			block = sum[:]
		}
		bits := binary.LittleEndian.Uint32(block[(i%8)*4 : (i%8)*4+4])
		// Map to (-1, 1).
		vec[i] = float32(int32(bits)) / float32(1<<31)
	}
	return Normalize(vec)
}
