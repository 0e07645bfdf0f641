package chunker

import (
	"errors"
	"strings"
)

var (
	ErrInvalidSize    = errors.New("chunk size must be positive")
	ErrInvalidOverlap = errors.New("overlap must be non-negative and smaller than chunk size")
)

const (
	DefaultSize    = 800
	DefaultOverlap = 100
)

type Config struct {
	Size    int `yaml:"size"`
	Overlap int `yaml:"overlap"`
}

func DefaultConfig() Config {
	return Config{
		Size:    DefaultSize,
		Overlap: DefaultOverlap,
	}
}

func (cfg Config) Validate() error {
	if cfg.Size <= 0 {
		return ErrInvalidSize
	}

	if cfg.Overlap < 0 || cfg.Overlap >= cfg.Size {
		return ErrInvalidOverlap
	}

	return nil
}

// Chunk splits text into windows of size whitespace-delimited words. Each
// window after the first starts overlap words before the end of the previous
// one; the last window may be shorter than size.
func Chunk(text string, size, overlap int) ([]string, error) {
	cfg := Config{Size: size, Overlap: overlap}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	words := strings.Fields(text)
	if len(words) == 0 {
		return []string{}, nil
	}

	var chunks []string

	start := 0
	for start < len(words) {
		end := min(start+size, len(words))
		chunks = append(chunks, strings.Join(words[start:end], " "))

		if end == len(words) {
			break
		}

		start = max(end-overlap, 0)
	}

	return chunks, nil
}

// Split is Chunk with the receiver's window settings.
func (cfg Config) Split(text string) ([]string, error) {
	return Chunk(text, cfg.Size, cfg.Overlap)
}
