// Package search ranks stored records against a query by cosine similarity.
package search

import (
	"context"
	"errors"
	"fmt"
	"sort"

	"github.com/rcliao/frontdesk/internal/embedding"
	"github.com/rcliao/frontdesk/internal/model"
	"github.com/rcliao/frontdesk/internal/vectorstore"
)

// Searcher queries one named vector store.
type Searcher struct {
	loader   vectorstore.Loader
	store    string
	embedder embedding.Embedder
	expander *Expander
}

// New creates a Searcher. The embedder must be the model that produced the
// store's vectors. expander may be nil.
func New(loader vectorstore.Loader, store string, embedder embedding.Embedder, expander *Expander) *Searcher {
	return &Searcher{
		loader:   loader,
		store:    store,
		embedder: embedder,
		expander: expander,
	}
}

// Search returns up to topK stored texts with similarity >= minSimilarity,
// most similar first. An empty result is not an error.
func (s *Searcher) Search(ctx context.Context, query string, topK int, minSimilarity float64) ([]string, error) {
	hits, err := s.ScoredSearch(ctx, query, topK, minSimilarity)
	if err != nil {
		return nil, err
	}
	out := make([]string, len(hits))
	for i, h := range hits {
		out[i] = h.Text
	}
	return out, nil
}

// ScoredSearch is Search with scores and store positions.
func (s *Searcher) ScoredSearch(ctx context.Context, query string, topK int, minSimilarity float64) ([]model.ScoredText, error) {
	if topK <= 0 {
		return []model.ScoredText{}, nil
	}
	records, err := s.loader.Load(ctx, s.store)
	if err != nil {
		return nil, fmt.Errorf("load store %s: %w", s.store, err)
	}
	if len(records) == 0 {
		return []model.ScoredText{}, nil
	}

	vec, err := s.embedder.Embed(ctx, s.expander.Expand(query))
	if err != nil {
		if errors.Is(err, embedding.ErrEmbeddingFailure) {
			return nil, err
		}
		return nil, fmt.Errorf("%w: %v", embedding.ErrEmbeddingFailure, err)
	}
	// records share one dimension; a different embedding model would score everything 0
	if want := len(records[0].Vector); len(vec) != want {
		return nil, fmt.Errorf("%w: query has %d dims, store %s has %d", embedding.ErrEmbeddingFailure, len(vec), s.store, want)
	}
	return Rank(vec, records, topK, minSimilarity), nil
}

// Rank scores records against vec, drops those below minSimilarity and
// returns the best topK. Equal scores keep store order.
func Rank(vec embedding.Vector, records []model.EmbeddingRecord, topK int, minSimilarity float64) []model.ScoredText {
	if topK <= 0 {
		return []model.ScoredText{}
	}
	hits := make([]model.ScoredText, 0, len(records))
	for i, r := range records {
		score := embedding.CosineSimilarity(vec, r.Vector)
		if !(score >= minSimilarity) { // NaN never qualifies
			continue
		}
		hits = append(hits, model.ScoredText{Text: r.Text, Score: score, Index: i})
	}
	sort.SliceStable(hits, func(i, j int) bool {
		return hits[i].Score > hits[j].Score
	})
	if len(hits) > topK {
		hits = hits[:topK]
	}
	return hits
}
