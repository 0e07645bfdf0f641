package embedder

import (
	"context"
	"strconv"
)

const DefaultZeroDimension = 384

// Zero is the degraded embedder: every text maps to the zero vector. Its
// model tag keeps a store built with it from ever accepting real embeddings.
type Zero struct {
	dim int
}

func NewZero(dim int) *Zero {
	if dim <= 0 {
		dim = DefaultZeroDimension
	}

	return &Zero{dim}
}

func (e *Zero) Model() string {
	return "degraded/zero-" + strconv.Itoa(e.dim)
}

func (e *Zero) Degraded() bool {
	return true
}

func (e *Zero) Embed(ctx context.Context, texts []string) ([][]float32, error) {
	vectors := make([][]float32, len(texts))
	for i := range texts {
		vectors[i] = make([]float32, e.dim)
	}

	return vectors, nil
}

// IsDegraded reports whether e produces placeholder vectors.
func IsDegraded(e Embedder) bool {
	d, ok := e.(interface{ Degraded() bool })
	return ok && d.Degraded()
}
