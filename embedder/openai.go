package embedder

import (
	"context"
	"errors"

	"github.com/sashabaranov/go-openai"
)

var ErrMissingAPIKey = errors.New("openai api key not set")

// OpenAI embeds a whole batch in one CreateEmbeddings request.
type OpenAI struct {
	client *openai.Client
	model  string
}

func NewOpenAI(cfg Config) (*OpenAI, error) {
	if cfg.APIKey == "" {
		return nil, ErrMissingAPIKey
	}

	model := cfg.Model
	if model == "" {
		model = string(openai.SmallEmbedding3)
	}

	config := openai.DefaultConfig(cfg.APIKey)
	if cfg.BaseURL != "" {
		config.BaseURL = cfg.BaseURL
	}

	return &OpenAI{
		client: openai.NewClientWithConfig(config),
		model:  model,
	}, nil
}

func (e *OpenAI) Model() string {
	return "openai/" + e.model
}

func (e *OpenAI) Embed(ctx context.Context, texts []string) ([][]float32, error) {
	if len(texts) == 0 {
		return [][]float32{}, nil
	}

	resp, err := e.client.CreateEmbeddings(ctx, openai.EmbeddingRequest{
		Model: openai.EmbeddingModel(e.model),
		Input: texts,
	})

	if err != nil {
		return nil, &Error{e.Model(), err}
	}

	if len(resp.Data) != len(texts) {
		return nil, &Error{e.Model(), ErrCountMismatch}
	}

	vectors := make([][]float32, len(texts))
	for _, d := range resp.Data {
		if d.Index < 0 || d.Index >= len(vectors) {
			return nil, &Error{e.Model(), ErrCountMismatch}
		}

		v := make([]float32, len(d.Embedding))
		for i := range d.Embedding {
			v[i] = float32(d.Embedding[i])
		}

		vectors[d.Index] = v
	}

	if err := checkBatch(texts, vectors); err != nil {
		return nil, &Error{e.Model(), err}
	}

	return vectors, nil
}
