package edumentor

import (
	"context"
	"errors"
	"fmt"
	"maps"
	"slices"
	"strings"

	"go.uber.org/zap"

	"github.com/flarexio/edumentor/catalog"
	"github.com/flarexio/edumentor/embedder"
	"github.com/flarexio/edumentor/ingest"
	"github.com/flarexio/edumentor/intent"
	"github.com/flarexio/edumentor/llm"
	"github.com/flarexio/edumentor/persistence/flatfile"
	"github.com/flarexio/edumentor/vector"
)

// Service defines the core logic of EduMentor.
type Service interface {

	// Close releases the catalog and any other resources held by the service.
	Close() error

	// Ingest indexes a PDF file, or every PDF in a directory.
	Ingest(ctx context.Context, path string) (int, error)

	// IngestFolder indexes the files in dir matching pattern.
	IngestFolder(ctx context.Context, dir string, pattern string) (int, error)

	// Upload stores the files in the docs directory and indexes them.
	Upload(ctx context.Context, files []File) (int, error)

	// Search returns the k chunks nearest to the query.
	Search(ctx context.Context, query string, k int) ([]vector.Result, error)

	// Ask answers a question from the retrieved material.
	Ask(ctx context.Context, question string, k int, examFocus ExamFocus) (*Answer, error)

	// Stats describes the current state of the store.
	Stats(ctx context.Context) (*Stats, error)
}

type ServiceMiddleware func(Service) Service

type Option func(*service)

// WithCatalog lets Stats count documents from the ingestion ledger.
func WithCatalog(c *catalog.Catalog) Option {
	return func(svc *service) {
		svc.catalog = c
	}
}

func NewService(cfg Config, store *vector.Store, pipeline *ingest.Pipeline, synth *llm.Synthesizer, opts ...Option) Service {
	cfg.ApplyDefaults()

	svc := &service{
		cfg:      cfg,
		store:    store,
		pipeline: pipeline,
		synth:    synth,
		log: zap.L().With(
			zap.String("service", "edumentor"),
		),
	}

	for _, opt := range opts {
		opt(svc)
	}

	return svc
}

// Open builds the service described by cfg: the embedder, the persisted
// store, the catalog, the ingestion pipeline and the synthesizer.
func Open(ctx context.Context, cfg Config) (Service, error) {
	cfg.ApplyDefaults()

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	e, err := embedder.New(cfg.Embedder)
	if err != nil {
		return nil, err
	}

	persister := flatfile.New(cfg.Vector().Dir())

	store, err := vector.Open(ctx, persister, e)
	if err != nil {
		return nil, err
	}

	cat, err := catalog.Open(cfg.CatalogPath())
	if err != nil {
		return nil, err
	}

	pipeline := ingest.New(store, ingest.PDFSource{}, cfg.Ingest, ingest.WithCatalog(cat))

	gen, err := llm.New(cfg.LLM)
	if err != nil {
		cat.Close()
		return nil, err
	}

	synth := llm.NewSynthesizer(gen)
	if !synth.Configured() {
		zap.L().Warn("no api key configured, answers are disabled",
			zap.String("provider", string(cfg.LLM.Provider)),
		)
	}

	return NewService(cfg, store, pipeline, synth, WithCatalog(cat)), nil
}

type service struct {
	cfg      Config
	store    *vector.Store
	pipeline *ingest.Pipeline
	synth    *llm.Synthesizer
	catalog  *catalog.Catalog
	log      *zap.Logger
}

func (svc *service) Close() error {
	if svc.catalog != nil {
		return svc.catalog.Close()
	}

	return nil
}

func (svc *service) Ingest(ctx context.Context, path string) (int, error) {
	if strings.TrimSpace(path) == "" {
		return 0, ErrInvalidPath
	}

	return svc.pipeline.Ingest(ctx, path)
}

func (svc *service) IngestFolder(ctx context.Context, dir string, pattern string) (int, error) {
	if strings.TrimSpace(dir) == "" {
		return 0, ErrInvalidPath
	}

	return svc.pipeline.IngestFolder(ctx, dir, pattern)
}

func (svc *service) Upload(ctx context.Context, files []File) (int, error) {
	if len(files) == 0 {
		return 0, ErrNoFiles
	}

	total := 0
	for _, f := range files {
		path, err := ingest.SaveUpload(svc.cfg.DocsDir(), f.Name, f.Data)
		if err != nil {
			return total, fmt.Errorf("%s: %w", f.Name, err)
		}

		n, err := svc.pipeline.IngestPDF(ctx, path)
		if err != nil {
			return total, fmt.Errorf("%s: %w", f.Name, err)
		}

		total += n
	}

	return total, nil
}

func (svc *service) Search(ctx context.Context, query string, k int) ([]vector.Result, error) {
	if strings.TrimSpace(query) == "" {
		return nil, ErrInvalidQuery
	}

	if k <= 0 {
		k = svc.cfg.TopK
	}

	return svc.store.QueryResults(ctx, query, k)
}

func (svc *service) Ask(ctx context.Context, question string, k int, examFocus ExamFocus) (*Answer, error) {
	question = strings.TrimSpace(question)
	if question == "" {
		return nil, ErrInvalidQuestion
	}

	if k <= 0 {
		k = svc.cfg.TopK
	}

	if examFocus == "" {
		examFocus = svc.cfg.ExamFocus
	}

	if !examFocus.Valid() {
		return nil, fmt.Errorf("%w: %s", ErrInvalidExamFocus, examFocus)
	}

	in := intent.Classify(question)

	contexts, err := svc.store.Query(ctx, question, k)
	if err != nil {
		return nil, err
	}

	answer := &Answer{
		Question: question,
		Intent:   in,
		Sources:  contexts,
	}

	if intent.IsSummaryQuery(question) {
		answer.Summary = true
		answer.Text = Overview(contexts)
		return answer, nil
	}

	ctx, cancel := context.WithTimeout(ctx, svc.cfg.Timeout.Duration())
	defer cancel()

	answer.Text = svc.synth.Synthesize(ctx, question, contexts, in, string(examFocus))

	if errors.Is(ctx.Err(), context.DeadlineExceeded) {
		svc.log.Warn("answer generation timed out",
			zap.Duration("timeout", svc.cfg.Timeout.Duration()),
		)
	}

	return answer, nil
}

func (svc *service) Stats(ctx context.Context) (*Stats, error) {
	stats := &Stats{
		Chunks:     svc.store.Len(),
		Dimension:  svc.store.Dimension(),
		Model:      svc.store.Model(),
		Collection: svc.cfg.Collection,
		Generation: svc.store.Generation(),
	}

	if svc.catalog != nil {
		records, err := svc.catalog.List(ctx)
		if err != nil {
			return nil, err
		}

		stats.Sources = make([]string, len(records))
		for i, r := range records {
			stats.Sources[i] = r.Source
		}

		stats.Documents = len(records)
		return stats, nil
	}

	sources := make(map[string]struct{})
	for _, c := range svc.store.Chunks() {
		sources[c.Metadata.Source] = struct{}{}
	}

	stats.Sources = slices.Sorted(maps.Keys(sources))
	stats.Documents = len(sources)
	return stats, nil
}
