package ingest

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/flarexio/edumentor/catalog"
	"github.com/flarexio/edumentor/chunker"
	"github.com/flarexio/edumentor/vector"
)

const DefaultPattern = "*.pdf"

var (
	ErrUnreadable      = errors.New("unreadable document")
	ErrInvalidFileName = errors.New("invalid file name")
)

// Adder is the part of the vector store the pipeline writes to.
type Adder interface {
	Add(ctx context.Context, chunks []vector.Chunk) (int, error)
}

// PageSource returns the text of every page of a document, in page order.
type PageSource interface {
	Pages(ctx context.Context, path string) ([]string, error)
}

type Config struct {
	Chunk        chunker.Config `yaml:"chunk"`
	Pattern      string         `yaml:"pattern"`
	SkipIngested bool           `yaml:"skipIngested"`
}

type Option func(*Pipeline)

// WithCatalog records every ingested file in c.
func WithCatalog(c *catalog.Catalog) Option {
	return func(p *Pipeline) {
		p.catalog = c
	}
}

type Pipeline struct {
	store   Adder
	source  PageSource
	cfg     Config
	catalog *catalog.Catalog
	log     *zap.Logger
}

func New(store Adder, source PageSource, cfg Config, opts ...Option) *Pipeline {
	if cfg.Chunk.Size == 0 {
		cfg.Chunk = chunker.DefaultConfig()
	}

	if cfg.Pattern == "" {
		cfg.Pattern = DefaultPattern
	}

	p := &Pipeline{
		store:  store,
		source: source,
		cfg:    cfg,
		log: zap.L().With(
			zap.String("component", "ingest"),
		),
	}

	for _, opt := range opts {
		opt(p)
	}

	return p
}

// BuildChunks chunks one page of text and attaches its provenance.
func BuildChunks(source string, page int, text, title string, cfg chunker.Config) ([]vector.Chunk, error) {
	texts, err := cfg.Split(text)
	if err != nil {
		return nil, err
	}

	name := filepath.Base(source)

	chunks := make([]vector.Chunk, len(texts))
	for i, t := range texts {
		chunks[i] = vector.Chunk{
			ID:   name + "-" + strconv.Itoa(page) + "-" + strconv.Itoa(i),
			Text: t,
			Metadata: vector.Metadata{
				Title:  title,
				Source: source,
				Page:   page,
			},
		}
	}

	return chunks, nil
}

// Title is the file name without its extension.
func Title(path string) string {
	base := filepath.Base(path)
	return strings.TrimSuffix(base, filepath.Ext(base))
}

// IngestPDF indexes every non-blank page of the file at path and returns the
// number of chunks added.
func (p *Pipeline) IngestPDF(ctx context.Context, path string) (int, error) {
	log := p.log.With(
		zap.String("source", path),
	)

	var sum string
	if p.catalog != nil {
		s, err := catalog.FileSHA256(path)
		if err != nil {
			return 0, err
		}
		sum = s

		if p.cfg.SkipIngested {
			r, ok, err := p.catalog.Lookup(ctx, sum)
			if err != nil {
				return 0, err
			}

			if ok {
				log.Info("already ingested, skipping", zap.String("previous_source", r.Source))
				return 0, nil
			}
		}
	}

	pages, err := p.source.Pages(ctx, path)
	if err != nil {
		return 0, err
	}

	title := Title(path)

	total := 0
	for i, text := range pages {
		page := i + 1

		if strings.TrimSpace(text) == "" {
			log.Debug("blank page skipped", zap.Int("page", page))
			continue
		}

		chunks, err := BuildChunks(path, page, text, title, p.cfg.Chunk)
		if err != nil {
			return total, err
		}

		n, err := p.store.Add(ctx, chunks)
		if err != nil {
			return total, fmt.Errorf("page %d: %w", page, err)
		}

		total += n
	}

	if p.catalog != nil {
		err := p.catalog.Record(ctx, catalog.Record{
			Source:     path,
			SHA256:     sum,
			Pages:      len(pages),
			Chunks:     total,
			IngestedAt: time.Now(),
		})

		if err != nil {
			log.Error(err.Error())
		}
	}

	log.Debug("document ingested",
		zap.Int("pages", len(pages)),
		zap.Int("chunks", total),
	)

	return total, nil
}

// IngestFolder ingests every file in dir matching pattern (DefaultPattern
// when empty) and returns the accumulated chunk count.
func (p *Pipeline) IngestFolder(ctx context.Context, dir string, pattern string) (int, error) {
	if pattern == "" {
		pattern = p.cfg.Pattern
	}

	matches, err := filepath.Glob(filepath.Join(dir, pattern))
	if err != nil {
		return 0, err
	}

	total := 0
	for _, path := range matches {
		info, err := os.Stat(path)
		if err != nil {
			return total, err
		}

		if info.IsDir() {
			continue
		}

		n, err := p.IngestPDF(ctx, path)
		if err != nil {
			return total, err
		}

		total += n
	}

	return total, nil
}

// Ingest dispatches on the kind of path: directories go to IngestFolder,
// files to IngestPDF.
func (p *Pipeline) Ingest(ctx context.Context, path string) (int, error) {
	info, err := os.Stat(path)
	if err != nil {
		return 0, err
	}

	if info.IsDir() {
		return p.IngestFolder(ctx, path, "")
	}

	return p.IngestPDF(ctx, path)
}

// SaveUpload writes an uploaded file into dir under its base name and returns
// the resulting path.
func SaveUpload(dir, name string, data []byte) (string, error) {
	name = filepath.Base(filepath.Clean("/" + name))
	if name == "/" || name == "." || name == ".." {
		return "", ErrInvalidFileName
	}

	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", err
	}

	target := filepath.Join(dir, name)
	if err := os.WriteFile(target, data, 0o644); err != nil {
		return "", err
	}

	return target, nil
}
