package embedder

import (
	"context"
	"crypto/sha256"
	"math"

	"semidx/internal/ir"
)

const localDimension = 384

// Local is a deterministic offline embedder. Vectors are derived from a
// content hash, so equal texts always embed identically. Useful for
// tests and air-gapped runs; the vectors carry no semantic signal.
type Local struct {
	dimension int
}

// NewLocal creates the local provider with the default dimension.
func NewLocal() *Local {
	return &Local{dimension: localDimension}
}

func (l *Local) Embed(_ context.Context, text string) (ir.Vector, error) {
	sum := sha256.Sum256([]byte(text))

	vec := make(ir.Vector, l.dimension)
	for i := range vec {
		b := sum[i%len(sum)]
		// Mix the position in so dimensions beyond the digest length
		// still differ.
		v := float64(b)*float64(i+1) + float64(sum[(i+7)%len(sum)])
		vec[i] = float32(math.Sin(v))
	}

	// Normalize to unit length so cosine similarity behaves.
	var norm float64
	for _, v := range vec {
		norm += float64(v) * float64(v)
	}
	norm = math.Sqrt(norm)
	if norm > 0 {
		for i := range vec {
			vec[i] = float32(float64(vec[i]) / norm)
		}
	}
	return vec, nil
}

func (l *Local) Dimension() int { return l.dimension }
func (l *Local) Model() string  { return "local-deterministic" }
func (l *Local) Close() error   { return nil }
