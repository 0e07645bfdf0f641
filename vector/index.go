package vector

import (
	"math"
	"sort"
)

// Index is an exact L2 nearest-neighbor index over vectors paired with their
// chunks. It does no I/O.
type Index struct {
	dim     int
	vectors [][]float32
	chunks  []Chunk
}

// NewIndex returns an empty index. A dim of 0 leaves the dimension to be
// fixed by the first Append.
func NewIndex(dim int) *Index {
	return &Index{dim: dim}
}

func (idx *Index) Len() int {
	return len(idx.vectors)
}

func (idx *Index) Dimension() int {
	return idx.dim
}

func (idx *Index) Chunk(i int) Chunk {
	return idx.chunks[i]
}

func (idx *Index) Append(vectors [][]float32, chunks []Chunk) error {
	if len(vectors) != len(chunks) {
		return ErrLengthMismatch
	}

	dim := idx.dim
	for _, v := range vectors {
		if len(v) == 0 {
			return ErrEmptyVector
		}

		if dim == 0 {
			dim = len(v)
		}

		if len(v) != dim {
			return ErrDimensionMismatch
		}
	}

	idx.dim = dim
	idx.vectors = append(idx.vectors, vectors...)
	idx.chunks = append(idx.chunks, chunks...)

	return nil
}

// Truncate drops every entry at position n and beyond.
func (idx *Index) Truncate(n int) {
	if n < 0 || n >= len(idx.vectors) {
		return
	}

	clear(idx.vectors[n:])
	clear(idx.chunks[n:])

	idx.vectors = idx.vectors[:n]
	idx.chunks = idx.chunks[:n]
}

// Search returns up to k entries ordered by increasing L2 distance from q.
// Equal distances keep insertion order.
func (idx *Index) Search(q []float32, k int) ([]Result, error) {
	if len(idx.vectors) == 0 || k <= 0 {
		return []Result{}, nil
	}

	if len(q) != idx.dim {
		return nil, ErrDimensionMismatch
	}

	type hit struct {
		pos  int
		dist float64
	}

	hits := make([]hit, len(idx.vectors))
	for i, v := range idx.vectors {
		hits[i] = hit{i, squaredL2(q, v)}
	}

	sort.SliceStable(hits, func(i, j int) bool {
		return hits[i].dist < hits[j].dist
	})

	k = min(k, len(hits))

	results := make([]Result, k)
	for i := range results {
		h := hits[i]
		results[i] = Result{
			Chunk:    idx.chunks[h.pos],
			Distance: float32(math.Sqrt(h.dist)),
		}
	}

	return results, nil
}

func (idx *Index) snapshot() Snapshot {
	return Snapshot{
		Dimension: idx.dim,
		Vectors:   idx.vectors,
		Chunks:    idx.chunks,
	}
}

func squaredL2(a, b []float32) float64 {
	var sum float64
	for i := range a {
		d := float64(a[i]) - float64(b[i])
		sum += d * d
	}
	return sum
}
