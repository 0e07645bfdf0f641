package embedder

import (
	"context"
	"hash/fnv"
	"math"
	"strconv"
)

const DefaultHashDimension = 512

// Hash is a local bag-of-words embedder using signed feature hashing. It
// needs no backend and is deterministic, which makes it suitable for offline
// use and tests; texts sharing words land close together.
type Hash struct {
	dim int
}

func NewHash(dim int) *Hash {
	if dim <= 0 {
		dim = DefaultHashDimension
	}

	return &Hash{dim}
}

func (e *Hash) Model() string {
	return "hash/fnv-" + strconv.Itoa(e.dim)
}

func (e *Hash) Embed(ctx context.Context, texts []string) ([][]float32, error) {
	vectors := make([][]float32, len(texts))
	for i, text := range texts {
		if err := ctx.Err(); err != nil {
			return nil, &Error{e.Model(), err}
		}

		vectors[i] = e.embed(text)
	}

	return vectors, nil
}

func (e *Hash) embed(text string) []float32 {
	v := make([]float32, e.dim)

	for _, token := range tokens(text) {
		h := fnv.New64a()
		h.Write([]byte(token))
		sum := h.Sum64()

		idx := int(sum % uint64(e.dim))
		if sum>>63 == 1 {
			v[idx] -= 1
		} else {
			v[idx] += 1
		}
	}

	normalize(v)
	return v
}

func normalize(v []float32) {
	var sum float64
	for _, x := range v {
		sum += float64(x) * float64(x)
	}

	if sum == 0 {
		return
	}

	inv := float32(1 / math.Sqrt(sum))
	for i := range v {
		v[i] *= inv
	}
}
