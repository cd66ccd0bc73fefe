package embedding

import (
	"context"
	"encoding/json"
	"errors"
	"math"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rcliao/frontdesk/internal/config"
)

func TestCosineSimilarity(t *testing.T) {
	tests := []struct {
		name     string
		a, b     Vector
		expected float64
		delta    float64
	}{
		{"identical", Vector{1, 0, 0}, Vector{1, 0, 0}, 1.0, 0.001},
		{"orthogonal", Vector{1, 0, 0}, Vector{0, 1, 0}, 0.0, 0.001},
		{"opposite", Vector{1, 0, 0}, Vector{-1, 0, 0}, -1.0, 0.001},
		{"similar", Vector{1, 1, 0}, Vector{1, 0, 0}, 0.707, 0.01},
		{"scaled", Vector{2, 4, 6}, Vector{1, 2, 3}, 1.0, 0.001},
		{"empty", Vector{}, Vector{}, 0.0, 0.001},
		{"different lengths", Vector{1, 0}, Vector{1, 0, 0}, 0.0, 0.001},
		{"zero vector", Vector{0, 0, 0}, Vector{1, 0, 0}, 0.0, 0.001},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := CosineSimilarity(tt.a, tt.b)
			if math.Abs(got-tt.expected) > tt.delta {
				t.Errorf("CosineSimilarity(%v, %v) = %f, want %f (±%f)", tt.a, tt.b, got, tt.expected, tt.delta)
			}
		})
	}
}

func TestOllamaEmbedder(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/embeddings", r.URL.Path)
		var req ollamaRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Equal(t, "all-minilm", req.Model)
		assert.Equal(t, "what are your hours", req.Prompt)
		_ = json.NewEncoder(w).Encode(ollamaResponse{Embedding: []float32{0.1, 0.2, 0.3}})
	}))
	defer srv.Close()

	e := NewOllamaEmbedder(srv.URL, "all-minilm", 0, time.Second)
	assert.Equal(t, 384, e.Dims())

	v, err := e.Embed(context.Background(), "what are your hours")
	require.NoError(t, err)
	assert.Equal(t, Vector{0.1, 0.2, 0.3}, v)
}

func TestOllamaEmbedder_ServerError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "model not found", http.StatusNotFound)
	}))
	defer srv.Close()

	_, err := NewOllamaEmbedder(srv.URL, "missing", 8, time.Second).Embed(context.Background(), "hi")
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrEmbeddingFailure))
}

func TestOllamaEmbedder_Unreachable(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	url := srv.URL
	srv.Close()

	_, err := NewOllamaEmbedder(url, "all-minilm", 0, time.Second).Embed(context.Background(), "hi")
	assert.ErrorIs(t, err, ErrEmbeddingFailure)
}

func TestOpenAIEmbedder(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/embeddings", r.URL.Path)
		assert.Equal(t, "Bearer sk-test", r.Header.Get("Authorization"))
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"object":"list","data":[{"object":"embedding","index":0,"embedding":[0.5,0.25]}],"model":"text-embedding-3-small"}`))
	}))
	defer srv.Close()

	e := NewOpenAIEmbedder(srv.URL, "sk-test", "", 2)
	v, err := e.Embed(context.Background(), "parking")
	require.NoError(t, err)
	assert.Equal(t, Vector{0.5, 0.25}, v)
	assert.Equal(t, 2, e.Dims())
}

func TestOpenAIEmbedder_EmptyData(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"object":"list","data":[]}`))
	}))
	defer srv.Close()

	_, err := NewOpenAIEmbedder(srv.URL, "k", "m", 2).Embed(context.Background(), "x")
	assert.ErrorIs(t, err, ErrEmbeddingFailure)
}

type countingEmbedder struct {
	calls atomic.Int32
	err   error
}

func (c *countingEmbedder) Embed(ctx context.Context, text string) (Vector, error) {
	c.calls.Add(1)
	if c.err != nil {
		return nil, c.err
	}
	return Vector{float32(len(text)), 1}, nil
}

func (c *countingEmbedder) Dims() int { return 2 }

func TestCachedEmbedder(t *testing.T) {
	inner := &countingEmbedder{}
	e := NewCachedEmbedder(inner, time.Minute)

	a, err := e.Embed(context.Background(), "hours")
	require.NoError(t, err)
	b, err := e.Embed(context.Background(), "hours")
	require.NoError(t, err)
	_, err = e.Embed(context.Background(), "location")
	require.NoError(t, err)

	assert.Equal(t, a, b)
	assert.Equal(t, int32(2), inner.calls.Load())
	assert.Equal(t, 2, e.Dims())
}

func TestCachedEmbedder_DoesNotCacheFailures(t *testing.T) {
	inner := &countingEmbedder{err: failure("down")}
	e := NewCachedEmbedder(inner, time.Minute)

	_, err := e.Embed(context.Background(), "x")
	require.Error(t, err)
	_, err = e.Embed(context.Background(), "x")
	require.Error(t, err)
	assert.Equal(t, int32(2), inner.calls.Load())
}

func TestNewFromConfig(t *testing.T) {
	e, err := NewFromConfig(config.EmbeddingConfig{Provider: "ollama", BaseURL: "http://localhost:1", Model: "all-minilm"})
	require.NoError(t, err)
	assert.IsType(t, &OllamaEmbedder{}, e)

	e, err = NewFromConfig(config.EmbeddingConfig{Provider: "openai", CacheTTL: time.Minute})
	require.NoError(t, err)
	assert.IsType(t, &CachedEmbedder{}, e)

	_, err = NewFromConfig(config.EmbeddingConfig{Provider: "word2vec"})
	assert.Error(t, err)
}
