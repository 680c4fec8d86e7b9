package encoder

import (
	"math"
	"testing"
)

func TestNormalizeUnitLength(t *testing.T) {
	vec := Normalize([]float32{3, 4})
	if math.Abs(float64(vec[0])-0.6) > 1e-6 || math.Abs(float64(vec[1])-0.8) > 1e-6 {
		t.Fatalf("normalized = %v", vec)
	}
}

func TestNormalizeZeroVector(t *testing.T) {
	vec := Normalize([]float32{0, 0, 0})
	for _, v := range vec {
		if v != 0 {
			t.Fatalf("zero vector changed: %v", vec)
		}
	}
}

func TestMeanPoolOrderInvariant(t *testing.T) {
	a := []float32{1, 0, 0}
	b := []float32{0, 1, 0}
	c := []float32{0, 0, 1}

	first, err := MeanPool([][]float32{a, b, c})
	if err != nil {
		t.Fatalf("MeanPool: %v", err)
	}
	second, err := MeanPool([][]float32{c, a, b})
	if err != nil {
		t.Fatalf("MeanPool permuted: %v", err)
	}

	for i := range first {
		if math.Abs(float64(first[i])-float64(second[i])) > 1e-6 {
			t.Fatalf("pooling depends on order: %v vs %v", first, second)
		}
	}
}

func TestMeanPoolIsNormalized(t *testing.T) {
	pooled, err := MeanPool([][]float32{{2, 0}, {0, 2}})
	if err != nil {
		t.Fatalf("MeanPool: %v", err)
	}
	var norm float64
	for _, v := range pooled {
		norm += float64(v) * float64(v)
	}
	if math.Abs(norm-1) > 1e-6 {
		t.Fatalf("pooled norm^2 = %g, want 1", norm)
	}
}

func TestMeanPoolSingleVector(t *testing.T) {
	pooled, err := MeanPool([][]float32{{0, 5, 0}})
	if err != nil {
		t.Fatalf("MeanPool: %v", err)
	}
	want := []float32{0, 1, 0}
	for i := range want {
		if math.Abs(float64(pooled[i])-float64(want[i])) > 1e-6 {
			t.Fatalf("pooled = %v, want %v", pooled, want)
		}
	}
}

func TestMeanPoolErrors(t *testing.T) {
	if _, err := MeanPool(nil); err == nil {
		t.Error("expected error for empty input")
	}
	if _, err := MeanPool([][]float32{{1, 2}, {1, 2, 3}}); err == nil {
		t.Error("expected error for mismatched dimensions")
	}
}

func TestDot(t *testing.T) {
	got := Dot([]float32{1, 2, 3}, []float32{4, 5, 6})
	if math.Abs(float64(got)-32) > 1e-6 {
		t.Fatalf("Dot = %g, want 32", got)
	}
}
