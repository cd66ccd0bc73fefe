package search

import (
	"context"
	"errors"
	"fmt"
	"math"
	"strings"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rcliao/frontdesk/internal/config"
	"github.com/rcliao/frontdesk/internal/embedding"
	"github.com/rcliao/frontdesk/internal/model"
	"github.com/rcliao/frontdesk/internal/vectorstore"
)

type memLoader map[string][]model.EmbeddingRecord

func (m memLoader) Load(ctx context.Context, name string) ([]model.EmbeddingRecord, error) {
	r, ok := m[name]
	if !ok {
		return nil, fmt.Errorf("%w: %s", vectorstore.ErrStoreNotFound, name)
	}
	return r, nil
}

// fixedEmbedder returns the vector registered for the exact text, or vec.
type fixedEmbedder struct {
	vec    embedding.Vector
	byText map[string]embedding.Vector
	err    error
	calls  atomic.Int32
	last   atomic.Value
}

func (f *fixedEmbedder) Embed(ctx context.Context, text string) (embedding.Vector, error) {
	f.calls.Add(1)
	f.last.Store(text)
	if f.err != nil {
		return nil, f.err
	}
	if v, ok := f.byText[text]; ok {
		return v, nil
	}
	return f.vec, nil
}

func (f *fixedEmbedder) Dims() int { return len(f.vec) }

var store = []model.EmbeddingRecord{
	{Vector: []float32{1, 0, 0}, Text: "Business hours: Mon-Fri 9am-5pm"},
	{Vector: []float32{0.9, 0.1, 0}, Text: "Open on Saturdays 10am-2pm"},
	{Vector: []float32{0, 1, 0}, Text: "We are at 12 Main Street"},
	{Vector: []float32{0, 0, 1}, Text: "Parking is free"},
	{Vector: []float32{1, 0, 0}, Text: "Closed on public holidays"},
}

func TestSearch_RanksAndThresholds(t *testing.T) {
	e := &fixedEmbedder{vec: embedding.Vector{1, 0, 0}}
	s := New(memLoader{"faq": store}, "faq", e, nil)

	got, err := s.Search(context.Background(), "when are you open", 3, 0.45)
	require.NoError(t, err)
	assert.Equal(t, []string{
		"Business hours: Mon-Fri 9am-5pm",
		"Closed on public holidays",
		"Open on Saturdays 10am-2pm",
	}, got)
}

func TestSearch_TiesKeepStoreOrder(t *testing.T) {
	e := &fixedEmbedder{vec: embedding.Vector{1, 0, 0}}
	s := New(memLoader{"faq": store}, "faq", e, nil)

	hits, err := s.ScoredSearch(context.Background(), "q", 2, 0.99)
	require.NoError(t, err)
	require.Len(t, hits, 2)
	assert.Equal(t, 0, hits[0].Index)
	assert.Equal(t, 4, hits[1].Index)
	assert.InDelta(t, hits[0].Score, hits[1].Score, 1e-12)
}

func TestSearch_Properties(t *testing.T) {
	e := &fixedEmbedder{vec: embedding.Vector{0.6, 0.8, 0.1}}
	s := New(memLoader{"faq": store}, "faq", e, nil)
	ctx := context.Background()

	for _, topK := range []int{1, 2, 3, 5, 10} {
		for _, min := range []float64{-1, 0, 0.3, 0.5, 0.9} {
			hits, err := s.ScoredSearch(ctx, "q", topK, min)
			require.NoError(t, err)

			assert.LessOrEqual(t, len(hits), topK)
			for i, h := range hits {
				assert.GreaterOrEqual(t, h.Score, min, "threshold")
				if i > 0 {
					assert.GreaterOrEqual(t, hits[i-1].Score, h.Score, "monotonic")
				}
			}

			// nothing excluded scores higher than the weakest hit when truncated
			if len(hits) == topK {
				weakest := hits[len(hits)-1].Score
				included := map[int]bool{}
				for _, h := range hits {
					included[h.Index] = true
				}
				for i, r := range store {
					if included[i] {
						continue
					}
					assert.LessOrEqual(t, embedding.CosineSimilarity(e.vec, r.Vector), weakest)
				}
			}
		}
	}
}

func TestSearch_EmptyResults(t *testing.T) {
	ctx := context.Background()

	t.Run("empty store", func(t *testing.T) {
		e := &fixedEmbedder{vec: embedding.Vector{1, 0, 0}}
		s := New(memLoader{"faq": nil}, "faq", e, nil)
		got, err := s.Search(ctx, "hours", 3, 0)
		require.NoError(t, err)
		assert.Empty(t, got)
		assert.Equal(t, int32(0), e.calls.Load())
	})

	t.Run("nothing clears threshold", func(t *testing.T) {
		e := &fixedEmbedder{vec: embedding.Vector{-1, -1, -1}}
		s := New(memLoader{"faq": store}, "faq", e, nil)
		got, err := s.Search(ctx, "xyzzy", 3, 0.45)
		require.NoError(t, err)
		assert.NotNil(t, got)
		assert.Empty(t, got)
	})

	t.Run("non-positive topK", func(t *testing.T) {
		e := &fixedEmbedder{vec: embedding.Vector{1, 0, 0}}
		s := New(memLoader{"faq": store}, "faq", e, nil)
		for _, k := range []int{0, -1} {
			got, err := s.Search(ctx, "hours", k, 0)
			require.NoError(t, err)
			assert.Empty(t, got)
		}
	})
}

func TestSearch_Errors(t *testing.T) {
	ctx := context.Background()

	_, err := New(memLoader{}, "faq", &fixedEmbedder{}, nil).Search(ctx, "q", 3, 0)
	assert.ErrorIs(t, err, vectorstore.ErrStoreNotFound)

	e := &fixedEmbedder{err: errors.New("connection refused")}
	_, err = New(memLoader{"faq": store}, "faq", e, nil).Search(ctx, "q", 3, 0)
	assert.ErrorIs(t, err, embedding.ErrEmbeddingFailure)
}

func TestSearch_DimensionMismatch(t *testing.T) {
	e := &fixedEmbedder{vec: embedding.Vector{1, 0}}
	_, err := New(memLoader{"faq": store}, "faq", e, nil).Search(context.Background(), "hours", 3, 0)
	assert.ErrorIs(t, err, embedding.ErrEmbeddingFailure)
	assert.Contains(t, err.Error(), "2 dims")
}

func TestRank_DropsNaNScores(t *testing.T) {
	nan := float32(math.NaN())
	records := []model.EmbeddingRecord{
		{Vector: []float32{1, 0, 0}, Text: "hours"},
		{Vector: []float32{nan, 0, 0}, Text: "broken"},
	}
	hits := Rank(embedding.Vector{1, 0, 0}, records, 3, 0.45)
	require.Len(t, hits, 1)
	assert.Equal(t, "hours", hits[0].Text)

	hits = Rank(embedding.Vector{1, 0, 0}, records, 3, -1)
	require.Len(t, hits, 1)
}

func TestSearch_EmbedsExpandedQuery(t *testing.T) {
	e := &fixedEmbedder{vec: embedding.Vector{1, 0, 0}}
	x := NewExpander(config.DefaultSynonyms())
	s := New(memLoader{"faq": store}, "faq", e, x)

	_, err := s.Search(context.Background(), "What are your hours?", 3, 0)
	require.NoError(t, err)
	assert.Equal(t, "What are your hours? timing schedule open close", e.last.Load())
}

func TestExpander(t *testing.T) {
	x := NewExpander(config.DefaultSynonyms())

	tests := []struct {
		name, query, want string
	}{
		{"no match", "do you have parking", "do you have parking"},
		{"whole word only", "what are the opening times", "what are the opening times"},
		{"single term", "book an appointment", "book an appointment booking schedule reservation visit"},
		{"case insensitive", "LOCATION please", "LOCATION please address directions where"},
		{"variants once in table order", "are you open, what hours", "are you open, what hours timing schedule open close hours"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := x.Expand(tt.query)
			assert.Equal(t, tt.want, got)
			assert.True(t, strings.HasPrefix(got, tt.query))
		})
	}
}

func TestExpander_NilAndEmpty(t *testing.T) {
	var x *Expander
	assert.Equal(t, "hours", x.Expand("hours"))
	assert.Equal(t, "hours", NewExpander(nil).Expand("hours"))
}
