package embedder

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/philippgille/chromem-go"
	"go.uber.org/zap"
)

var (
	ErrUnavailable           = errors.New("embedding backend unavailable")
	ErrUnsupportedProvider   = errors.New("unsupported embedding provider")
	ErrDegradedNotAllowed    = errors.New("degraded embedder requires allowDegraded")
	ErrInconsistentDimension = errors.New("embedding backend returned vectors of different dimensions")
	ErrCountMismatch         = errors.New("embedding backend returned a different number of vectors")
	ErrMissingEndpoint       = errors.New("openai-compatible embedder needs baseURL and model")
)

type Provider string

const (
	ProviderOpenAI       Provider = "openai"
	ProviderOpenAIBatch  Provider = "openai-batch"
	ProviderOpenAICompat Provider = "openai-compat"
	ProviderOllama       Provider = "ollama"
	ProviderHash         Provider = "hash"
	ProviderDegraded     Provider = "degraded"
)

// Embedder maps texts to fixed-length vectors, one per input, in input order.
type Embedder interface {
	Embed(ctx context.Context, texts []string) ([][]float32, error)

	// Model identifies the embedding space. Vectors from different models
	// must never share an index.
	Model() string
}

type Config struct {
	Provider      Provider `yaml:"provider"`
	Model         string   `yaml:"model"`
	BaseURL       string   `yaml:"baseURL"`
	APIKey        string   `yaml:"apiKey"`
	Dimension     int      `yaml:"dimension"`
	AllowDegraded bool     `yaml:"allowDegraded"`
}

// Error reports a failed embedding call. It matches ErrUnavailable with
// errors.Is and unwraps to the backend error.
type Error struct {
	Model string
	Err   error
}

func (e *Error) Error() string {
	return fmt.Sprintf("embed with %s: %s", e.Model, e.Err.Error())
}

func (e *Error) Unwrap() error {
	return e.Err
}

func (e *Error) Is(target error) bool {
	return target == ErrUnavailable
}

func New(cfg Config) (Embedder, error) {
	log := zap.L().With(
		zap.String("component", "embedder"),
		zap.String("provider", string(cfg.Provider)),
	)

	switch cfg.Provider {
	case ProviderOpenAI, "":
		model := cfg.Model
		if model == "" {
			model = string(chromem.EmbeddingModelOpenAI3Small)
		}

		fn := chromem.NewEmbeddingFuncOpenAI(cfg.APIKey, chromem.EmbeddingModelOpenAI(model))
		return NewFunc(fn, "openai/"+model), nil

	case ProviderOpenAIBatch:
		return NewOpenAI(cfg)

	case ProviderOpenAICompat:
		if cfg.BaseURL == "" || cfg.Model == "" {
			return nil, ErrMissingEndpoint
		}

		fn := chromem.NewEmbeddingFuncOpenAICompat(cfg.BaseURL, cfg.APIKey, cfg.Model, nil)
		return NewFunc(fn, "openai-compat/"+cfg.Model), nil

	case ProviderOllama:
		model := cfg.Model
		if model == "" {
			model = "nomic-embed-text"
		}

		fn := chromem.NewEmbeddingFuncOllama(model, cfg.BaseURL)
		return NewFunc(fn, "ollama/"+model), nil

	case ProviderHash:
		return NewHash(cfg.Dimension), nil

	case ProviderDegraded:
		if !cfg.AllowDegraded {
			return nil, ErrDegradedNotAllowed
		}

		log.Warn("using zero-vector embedder, retrieval ranking is meaningless",
			zap.Int("dimension", cfg.Dimension),
		)

		return NewZero(cfg.Dimension), nil

	default:
		return nil, ErrUnsupportedProvider
	}
}

// NewFunc adapts a single-text chromem embedding function to a batch Embedder.
func NewFunc(fn chromem.EmbeddingFunc, model string) Embedder {
	return &funcEmbedder{
		fn:    fn,
		model: model,
	}
}

type funcEmbedder struct {
	fn    chromem.EmbeddingFunc
	model string
}

func (e *funcEmbedder) Model() string {
	return e.model
}

func (e *funcEmbedder) Embed(ctx context.Context, texts []string) ([][]float32, error) {
	vectors := make([][]float32, len(texts))
	for i, text := range texts {
		if err := ctx.Err(); err != nil {
			return nil, &Error{e.model, err}
		}

		v, err := e.fn(ctx, text)
		if err != nil {
			return nil, &Error{e.model, fmt.Errorf("text %d: %w", i, err)}
		}

		vectors[i] = v
	}

	if err := checkBatch(texts, vectors); err != nil {
		return nil, &Error{e.model, err}
	}

	return vectors, nil
}

func checkBatch(texts []string, vectors [][]float32) error {
	if len(texts) != len(vectors) {
		return ErrCountMismatch
	}

	for _, v := range vectors {
		if len(v) != len(vectors[0]) || len(v) == 0 {
			return ErrInconsistentDimension
		}
	}

	return nil
}

func tokens(text string) []string {
	fields := strings.Fields(strings.ToLower(text))

	tokens := fields[:0]
	for _, f := range fields {
		f = strings.TrimFunc(f, func(r rune) bool {
			return !(r >= 'a' && r <= 'z' || r >= '0' && r <= '9' || r > 127)
		})

		if f != "" {
			tokens = append(tokens, f)
		}
	}

	return tokens
}
