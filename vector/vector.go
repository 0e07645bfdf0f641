package vector

import (
	"context"
	"errors"
	"path/filepath"
)

var (
	ErrNotFound          = errors.New("store not found")
	ErrCorruptStore      = errors.New("corrupt store")
	ErrLengthMismatch    = errors.New("vectors and chunks differ in length")
	ErrDimensionMismatch = errors.New("vector dimension mismatch")
	ErrModelMismatch     = errors.New("embedding model does not match store")
	ErrEmptyVector       = errors.New("empty vector")
	ErrSaveIncomplete    = errors.New("save committed but not finished")
)

type Config struct {
	Path       string `yaml:"path"`
	Collection string `yaml:"collection"`
}

// Dir is the directory holding the collection's files.
func (cfg Config) Dir() string {
	return filepath.Join(cfg.Path, cfg.Collection)
}

type Metadata struct {
	Title  string `json:"title"`
	Source string `json:"source"`
	Page   int    `json:"page"`
}

type Chunk struct {
	ID       string   `json:"id"`
	Text     string   `json:"text"`
	Metadata Metadata `json:"metadata"`
}

type Result struct {
	Chunk    Chunk   `json:"chunk"`
	Distance float32 `json:"distance"`
}

// Snapshot is the persisted state of a store. Vectors[i] belongs to Chunks[i].
type Snapshot struct {
	Generation uint64
	Model      string
	Dimension  int
	Vectors    [][]float32
	Chunks     []Chunk
}

// Persister loads and saves snapshots. Load returns ErrNotFound for a store
// that was never saved and ErrCorruptStore when the persisted parts disagree.
// Save returns ErrSaveIncomplete when the snapshot is committed but some files
// were left in place for the next Load to finish; any other error means the
// previous snapshot is still the persisted one.
type Persister interface {
	Load(ctx context.Context) (Snapshot, error)
	Save(ctx context.Context, snap Snapshot) error
}
