package embedder

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func dot(a, b []float32) float32 {
	var sum float32
	for i := range a {
		sum += a[i] * b[i]
	}
	return sum
}

func TestHashDeterministic(t *testing.T) {
	assert := assert.New(t)
	ctx := context.Background()

	e := NewHash(256)
	assert.Equal("hash/fnv-256", e.Model())

	v1, err := e.Embed(ctx, []string{"Newton's second law of motion", "photosynthesis"})
	assert.NoError(err)

	v2, err := e.Embed(ctx, []string{"Newton's second law of motion", "photosynthesis"})
	assert.NoError(err)

	assert.Equal(v1, v2)
	assert.Len(v1, 2)
	assert.Len(v1[0], 256)
	assert.InDelta(1.0, dot(v1[0], v1[0]), 1e-5)
}

func TestHashSimilarity(t *testing.T) {
	assert := assert.New(t)
	ctx := context.Background()

	e := NewHash(1024)
	vs, err := e.Embed(ctx, []string{
		"chlorophyll absorbs sunlight",
		"Chlorophyll, sunlight!",
		"kinetic energy of a projectile",
	})
	assert.NoError(err)

	assert.Greater(dot(vs[0], vs[1]), dot(vs[0], vs[2]))
}

func TestFuncEmbedderWrapsErrors(t *testing.T) {
	assert := assert.New(t)
	ctx := context.Background()

	backendErr := errors.New("connection refused")
	e := NewFunc(func(ctx context.Context, text string) ([]float32, error) {
		return nil, backendErr
	}, "test/failing")

	_, err := e.Embed(ctx, []string{"a"})
	assert.ErrorIs(err, ErrUnavailable)
	assert.ErrorIs(err, backendErr)

	var embedErr *Error
	assert.True(errors.As(err, &embedErr))
	assert.Equal("test/failing", embedErr.Model)
}

func TestFuncEmbedderInconsistentDimension(t *testing.T) {
	assert := assert.New(t)
	ctx := context.Background()

	e := NewFunc(func(ctx context.Context, text string) ([]float32, error) {
		return make([]float32, len(text)), nil
	}, "test/ragged")

	_, err := e.Embed(ctx, []string{"ab", "abc"})
	assert.ErrorIs(err, ErrInconsistentDimension)

	vs, err := e.Embed(ctx, []string{"ab", "cd"})
	assert.NoError(err)
	assert.Len(vs, 2)
}

func TestNewDegraded(t *testing.T) {
	assert := assert.New(t)

	_, err := New(Config{Provider: ProviderDegraded})
	assert.ErrorIs(err, ErrDegradedNotAllowed)

	e, err := New(Config{Provider: ProviderDegraded, AllowDegraded: true, Dimension: 8})
	assert.NoError(err)
	assert.True(IsDegraded(e))
	assert.Equal("degraded/zero-8", e.Model())

	vs, err := e.Embed(context.Background(), []string{"x"})
	assert.NoError(err)
	assert.Equal(make([]float32, 8), vs[0])

	assert.False(IsDegraded(NewHash(8)))
}

func TestNewUnsupported(t *testing.T) {
	_, err := New(Config{Provider: "word2vec"})
	assert.ErrorIs(t, err, ErrUnsupportedProvider)
}

func TestOpenAIBatch(t *testing.T) {
	assert := assert.New(t)
	require := require.New(t)

	var requested struct {
		Input []string `json:"input"`
		Model string   `json:"model"`
	}

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal("/v1/embeddings", r.URL.Path)
		assert.Equal("Bearer sk-test", r.Header.Get("Authorization"))

		if err := json.NewDecoder(r.Body).Decode(&requested); err != nil {
			w.WriteHeader(http.StatusBadRequest)
			return
		}

		// Out of order on purpose; results must be placed by index.
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{
			"object": "list",
			"model": "text-embedding-3-small",
			"data": [
				{"object": "embedding", "index": 1, "embedding": [0, 1]},
				{"object": "embedding", "index": 0, "embedding": [1, 0]}
			],
			"usage": {"prompt_tokens": 2, "total_tokens": 2}
		}`))
	}))
	defer srv.Close()

	e, err := New(Config{
		Provider: ProviderOpenAIBatch,
		APIKey:   "sk-test",
		BaseURL:  srv.URL + "/v1",
	})
	require.NoError(err)
	assert.Equal("openai/text-embedding-3-small", e.Model())

	vs, err := e.Embed(context.Background(), []string{"first", "second"})
	require.NoError(err)

	assert.Equal([]string{"first", "second"}, requested.Input)
	assert.Equal([]float32{1, 0}, vs[0])
	assert.Equal([]float32{0, 1}, vs[1])
}

func TestOpenAICompat(t *testing.T) {
	assert := assert.New(t)
	require := require.New(t)

	var inputs []string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal("/v1/embeddings", r.URL.Path)
		assert.Equal("Bearer local-key", r.Header.Get("Authorization"))

		var body struct {
			Input string `json:"input"`
			Model string `json:"model"`
		}
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
			w.WriteHeader(http.StatusBadRequest)
			return
		}
		assert.Equal("bge-small", body.Model)
		inputs = append(inputs, body.Input)

		w.Header().Set("Content-Type", "application/json")
		if body.Input == "first" {
			w.Write([]byte(`{"data": [{"object": "embedding", "index": 0, "embedding": [1, 0]}]}`))
			return
		}
		w.Write([]byte(`{"data": [{"object": "embedding", "index": 0, "embedding": [0, 1]}]}`))
	}))
	defer srv.Close()

	e, err := New(Config{
		Provider: ProviderOpenAICompat,
		Model:    "bge-small",
		APIKey:   "local-key",
		BaseURL:  srv.URL + "/v1",
	})
	require.NoError(err)
	assert.Equal("openai-compat/bge-small", e.Model())

	vs, err := e.Embed(context.Background(), []string{"first", "second"})
	require.NoError(err)

	assert.Equal([]string{"first", "second"}, inputs)
	assert.Equal([][]float32{{1, 0}, {0, 1}}, vs)
}

func TestOpenAICompatMissingEndpoint(t *testing.T) {
	_, err := New(Config{Provider: ProviderOpenAICompat, Model: "bge-small"})
	assert.ErrorIs(t, err, ErrMissingEndpoint)

	_, err = New(Config{Provider: ProviderOpenAICompat, BaseURL: "http://localhost:8080/v1"})
	assert.ErrorIs(t, err, ErrMissingEndpoint)
}

func TestOpenAIBatchMissingKey(t *testing.T) {
	_, err := New(Config{Provider: ProviderOpenAIBatch})
	assert.ErrorIs(t, err, ErrMissingAPIKey)
}

func TestOpenAIBatchBackendDown(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	e, err := NewOpenAI(Config{APIKey: "sk-test", BaseURL: srv.URL + "/v1"})
	require.NoError(t, err)

	_, err = e.Embed(context.Background(), []string{"a"})
	assert.ErrorIs(t, err, ErrUnavailable)
}
