package embeddings

import (
	"context"
	"hash/fnv"
	"math"
)

// Mock is a deterministic embedding client for tests and offline
// development. The same text always yields the same vector.
type Mock struct {
	dimensions int
}

// NewMock creates a mock embedding client with the given output size.
func NewMock(dimensions int) *Mock {
	if dimensions == 0 {
		dimensions = DefaultDimensions
	}

	return &Mock{dimensions: dimensions}
}

// Dimensions returns the output vector size.
func (m *Mock) Dimensions() int {
	return m.dimensions
}

// GetEmbedding returns a unit-norm pseudo-random vector seeded by the text.
func (m *Mock) GetEmbedding(_ context.Context, text string) ([]float32, error) {
	h := fnv.New64a()
	_, _ = h.Write([]byte(text))
	seed := h.Sum64()

	vec := make([]float32, m.dimensions)

	var norm float64

	for i := range vec {
		// xorshift64 keeps the mock dependency-free and deterministic.
		seed ^= seed << 13
		seed ^= seed >> 7
		seed ^= seed << 17
		v := float64(int64(seed))/math.MaxInt64 - 0.5
		vec[i] = float32(v)
		norm += v * v
	}

	norm = math.Sqrt(norm)
	if norm == 0 {
		norm = 1
	}

	for i := range vec {
		vec[i] = float32(float64(vec[i]) / norm)
	}

	return vec, nil
}

var _ Client = (*Mock)(nil)
