// Package encoder produces fixed-length embedding vectors for keyframe
// images and free-text queries. All vectors are L2-normalized, at both
// ingest and query time, so cosine similarity reduces to a dot product.
package encoder

import (
	"context"
	"errors"
	"fmt"
	"math"
)

// Encoder turns images and text into embedding vectors. Implementations
// must emit vectors of exactly Dimensions() length, L2-normalized.
type Encoder interface {
	// Model identifies the underlying encoder; search refuses to run
	// against an index built with a different model.
	Model() string
	Dimensions() int
	EmbedImage(ctx context.Context, jpeg []byte) ([]float32, error)
	EmbedText(ctx context.Context, text string) ([]float32, error)
}

// Normalize scales vec to unit length in place and returns it. The zero
// vector is returned unchanged.
func Normalize(vec []float32) []float32 {
	var sum float64
	for _, v := range vec {
		sum += float64(v) * float64(v)
	}
	if sum == 0 {
		return vec
	}
	norm := math.Sqrt(sum)
	for i := range vec {
		vec[i] = float32(float64(vec[i]) / norm)
	}
	return vec
}

// MeanPool reduces per-keyframe vectors to one per-clip vector by
// element-wise arithmetic mean, re-normalized. The mean is unweighted,
// so the result does not depend on keyframe order.
func MeanPool(vectors [][]float32) ([]float32, error) {
	if len(vectors) == 0 {
		return nil, errors.New("mean pool: no vectors")
	}
	dim := len(vectors[0])
	if dim == 0 {
		return nil, errors.New("mean pool: zero-length vector")
	}

	sums := make([]float64, dim)
	for i, vec := range vectors {
		if len(vec) != dim {
			return nil, fmt.Errorf("mean pool: vector %d has %d dimensions, want %d", i, len(vec), dim)
		}
		for j, v := range vec {
			sums[j] += float64(v)
		}
	}

	pooled := make([]float32, dim)
	n := float64(len(vectors))
	for j, s := range sums {
		pooled[j] = float32(s / n)
	}
	return Normalize(pooled), nil
}

// Dot returns the dot product of two equal-length vectors. For
// normalized vectors this is the cosine similarity.
func Dot(a, b []float32) float32 {
	var sum float64
	for i := range a {
		sum += float64(a[i]) * float64(b[i])
	}
	return float32(sum)
}
