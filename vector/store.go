package vector

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"go.uber.org/zap"

	"github.com/flarexio/edumentor/embedder"
)

// Store is a collection: an Index kept in sync with its persisted snapshot.
// Writers within one process are serialized; writers in different processes
// sharing the same files are not coordinated and the last save wins.
type Store struct {
	index      *Index
	model      string
	generation uint64

	persister Persister
	embedder  embedder.Embedder
	log       *zap.Logger

	mu sync.RWMutex
}

func Open(ctx context.Context, persister Persister, e embedder.Embedder) (*Store, error) {
	log := zap.L().With(
		zap.String("component", "vector"),
		zap.String("model", e.Model()),
	)

	s := &Store{
		index:     NewIndex(0),
		model:     e.Model(),
		persister: persister,
		embedder:  e,
		log:       log,
	}

	if embedder.IsDegraded(e) {
		log.Warn("store opened with degraded embedder")
	}

	snap, err := persister.Load(ctx)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			log.Debug("no persisted store, starting empty")
			return s, nil
		}

		return nil, err
	}

	if len(snap.Vectors) != len(snap.Chunks) {
		return nil, fmt.Errorf("%w: %d vectors, %d chunks", ErrCorruptStore, len(snap.Vectors), len(snap.Chunks))
	}

	if snap.Model != "" && snap.Model != e.Model() {
		return nil, fmt.Errorf("%w: store built with %q, embedder is %q", ErrModelMismatch, snap.Model, e.Model())
	}

	index := NewIndex(snap.Dimension)
	if err := index.Append(snap.Vectors, snap.Chunks); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrCorruptStore, err)
	}

	s.index = index
	s.generation = snap.Generation

	log.Debug("store loaded",
		zap.Int("count", index.Len()),
		zap.Int("dimension", index.Dimension()),
		zap.Uint64("generation", snap.Generation),
	)

	return s, nil
}

// Add embeds the chunks in one batch, appends them and persists the store.
// Nothing is kept in memory when the save fails. A save the persister reports
// as committed but incomplete counts as done, since the next Open completes it.
func (s *Store) Add(ctx context.Context, chunks []Chunk) (int, error) {
	if len(chunks) == 0 {
		return 0, nil
	}

	texts := make([]string, len(chunks))
	for i, c := range chunks {
		texts[i] = c.Text
	}

	vectors, err := s.embedder.Embed(ctx, texts)
	if err != nil {
		return 0, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	n := s.index.Len()
	dim := s.index.Dimension()

	if err := s.index.Append(vectors, chunks); err != nil {
		return 0, err
	}

	snap := s.index.snapshot()
	snap.Generation = s.generation + 1
	snap.Model = s.model

	err = s.persister.Save(ctx, snap)
	if errors.Is(err, ErrSaveIncomplete) {
		s.log.Warn("save left unfinished, next open completes it",
			zap.Uint64("generation", snap.Generation),
			zap.Error(err),
		)

		err = nil
	}

	if err != nil {
		s.index.Truncate(n)
		s.index.dim = dim
		return 0, fmt.Errorf("save store: %w", err)
	}

	s.generation = snap.Generation

	return len(chunks), nil
}

// Query returns up to k chunks nearest to the embedding of text.
func (s *Store) Query(ctx context.Context, text string, k int) ([]Chunk, error) {
	results, err := s.QueryResults(ctx, text, k)
	if err != nil {
		return nil, err
	}

	chunks := make([]Chunk, len(results))
	for i, r := range results {
		chunks[i] = r.Chunk
	}

	return chunks, nil
}

func (s *Store) QueryResults(ctx context.Context, text string, k int) ([]Result, error) {
	if s.Len() == 0 || k <= 0 {
		return []Result{}, nil
	}

	vectors, err := s.embedder.Embed(ctx, []string{text})
	if err != nil {
		return nil, err
	}

	return s.QueryVector(vectors[0], k)
}

func (s *Store) QueryVector(q []float32, k int) ([]Result, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return s.index.Search(q, k)
}

func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return s.index.Len()
}

func (s *Store) Dimension() int {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return s.index.Dimension()
}

func (s *Store) Model() string {
	return s.model
}

func (s *Store) Generation() uint64 {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return s.generation
}

// Chunks returns a copy of every stored chunk in insertion order.
func (s *Store) Chunks() []Chunk {
	s.mu.RLock()
	defer s.mu.RUnlock()

	chunks := make([]Chunk, len(s.index.chunks))
	copy(chunks, s.index.chunks)

	return chunks
}
