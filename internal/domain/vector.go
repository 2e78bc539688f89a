package domain

import (
	"fmt"
	"math"
)

// Cosine computes the cosine similarity of two vectors, in [-1, 1].
// Mismatched or zero dimensions signal ErrDimensionMismatch.
func Cosine(a, b []float32) (float64, error) {
	if len(a) == 0 || len(b) == 0 {
		return 0, fmt.Errorf("empty vector: %w", ErrDimensionMismatch)
	}
	if len(a) != len(b) {
		return 0, fmt.Errorf("dim %d vs %d: %w", len(a), len(b), ErrDimensionMismatch)
	}

	var dot, normA, normB float64
	for i := range a {
		av := float64(a[i])
		bv := float64(b[i])
		dot += av * bv
		normA += av * av
		normB += bv * bv
	}
	if normA == 0 || normB == 0 {
		return 0, nil
	}
	return dot / (math.Sqrt(normA) * math.Sqrt(normB)), nil
}
