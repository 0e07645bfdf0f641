package llm

import (
	"context"
	"errors"
	"strings"

	"go.uber.org/zap"

	"github.com/flarexio/edumentor/intent"
	"github.com/flarexio/edumentor/vector"
)

const (
	NotConfiguredMessage = "**System not configured**\n\n" +
		"Please set your API key (GOOGLE_API_KEY) and restart the service."
	NoResponseMessage = "No response generated."
	ErrorMessage      = "Error while generating answer: "
)

var ErrUnsupportedProvider = errors.New("unsupported llm provider")

type Provider string

const (
	ProviderGemini Provider = "gemini"
	ProviderOpenAI Provider = "openai"
)

type Config struct {
	Provider Provider `yaml:"provider"`
	Model    string   `yaml:"model"`
	APIKey   string   `yaml:"apiKey"`
	BaseURL  string   `yaml:"baseURL"`
}

// Generator turns one prompt into text.
type Generator interface {
	Generate(ctx context.Context, prompt string) (string, error)
}

// New returns the configured generator, or nil when no API key is set.
// A nil generator is not an error: the synthesizer answers with
// NotConfiguredMessage instead.
func New(cfg Config) (Generator, error) {
	if cfg.APIKey == "" {
		return nil, nil
	}

	switch cfg.Provider {
	case ProviderGemini, "":
		return NewGemini(cfg), nil

	case ProviderOpenAI:
		return NewOpenAI(cfg), nil

	default:
		return nil, ErrUnsupportedProvider
	}
}

type Synthesizer struct {
	gen Generator
	log *zap.Logger
}

func NewSynthesizer(gen Generator) *Synthesizer {
	return &Synthesizer{
		gen: gen,
		log: zap.L().With(
			zap.String("component", "synthesizer"),
		),
	}
}

func (s *Synthesizer) Configured() bool {
	return s.gen != nil
}

// Synthesize always returns text for the user. Missing configuration and
// generation failures come back as messages, never as errors.
func (s *Synthesizer) Synthesize(ctx context.Context, question string, contexts []vector.Chunk, in intent.Intent, examFocus string) string {
	if s.gen == nil {
		return NotConfiguredMessage
	}

	prompt := BuildPrompt(question, contexts, in, examFocus)

	text, err := s.gen.Generate(ctx, prompt.Combined())
	if err != nil {
		s.log.Error(err.Error(), zap.String("intent", string(in)))
		return ErrorMessage + err.Error()
	}

	text = strings.TrimSpace(text)
	if text == "" {
		return NoResponseMessage
	}

	return text
}
