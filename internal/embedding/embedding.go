// Package embedding provides a pluggable interface for text embedding providers.
package embedding

import (
	"context"
	"errors"
	"fmt"
	"math"

	"github.com/rcliao/frontdesk/internal/config"
)

// Vector is a float32 embedding vector.
type Vector = []float32

// ErrEmbeddingFailure is wrapped by every provider error so callers can tell
// an unreachable or misbehaving model apart from other failures.
var ErrEmbeddingFailure = errors.New("embedding failure")

// Embedder generates embedding vectors from text.
type Embedder interface {
	Embed(ctx context.Context, text string) (Vector, error)
	Dims() int
}

// CosineSimilarity computes cosine similarity between two vectors.
// Mismatched, empty or zero-magnitude inputs score 0.
func CosineSimilarity(a, b Vector) float64 {
	if len(a) != len(b) || len(a) == 0 {
		return 0
	}
	var dot, normA, normB float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
		normA += float64(a[i]) * float64(a[i])
		normB += float64(b[i]) * float64(b[i])
	}
	if normA == 0 || normB == 0 {
		return 0
	}
	return dot / (math.Sqrt(normA) * math.Sqrt(normB))
}

func failure(format string, args ...interface{}) error {
	return fmt.Errorf("%w: %s", ErrEmbeddingFailure, fmt.Sprintf(format, args...))
}

// NewFromConfig builds the configured embedder, wrapped in a cache when
// cache_ttl is set.
func NewFromConfig(cfg config.EmbeddingConfig) (Embedder, error) {
	var e Embedder
	switch cfg.Provider {
	case "ollama":
		e = NewOllamaEmbedder(cfg.BaseURL, cfg.Model, cfg.Dims, cfg.Timeout)
	case "openai":
		e = NewOpenAIEmbedder(cfg.BaseURL, cfg.APIKey, cfg.Model, cfg.Dims)
	default:
		return nil, fmt.Errorf("unknown embedding provider %q", cfg.Provider)
	}
	if cfg.CacheTTL > 0 {
		e = NewCachedEmbedder(e, cfg.CacheTTL)
	}
	return e, nil
}
