// Package vectorstore loads the precomputed (embedding, source text) pairs
// produced by the offline embedding job.
package vectorstore

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/rcliao/frontdesk/internal/config"
	"github.com/rcliao/frontdesk/internal/model"
)

var (
	// ErrStoreNotFound means no store has been materialized under that name.
	ErrStoreNotFound = errors.New("vector store not found")
	// ErrStoreCorrupt means the persisted store could not be decoded or is
	// internally inconsistent.
	ErrStoreCorrupt = errors.New("vector store corrupt")
)

// Loader returns the full record set of a named store. Callers must treat
// the returned vectors as read-only.
type Loader interface {
	Load(ctx context.Context, name string) ([]model.EmbeddingRecord, error)
}

// Store is a Loader that can also replace a store's contents.
type Store interface {
	Loader
	// Import atomically replaces the named store with records.
	Import(ctx context.Context, name string, records []model.EmbeddingRecord) error
	Close() error
}

// Stats describes a loaded store.
type Stats struct {
	Name  string `json:"name"`
	Count int    `json:"count"`
	Dims  int    `json:"dims"`
}

// blob is the on-disk JSON layout: parallel arrays of vectors and texts.
type blob struct {
	Embeddings [][]float32 `json:"embeddings"`
	Texts      []string    `json:"texts"`
}

func (b blob) records() ([]model.EmbeddingRecord, error) {
	if len(b.Embeddings) != len(b.Texts) {
		return nil, fmt.Errorf("%w: %d embeddings but %d texts", ErrStoreCorrupt, len(b.Embeddings), len(b.Texts))
	}
	out := make([]model.EmbeddingRecord, len(b.Texts))
	for i := range b.Texts {
		out[i] = model.EmbeddingRecord{Vector: b.Embeddings[i], Text: b.Texts[i]}
	}
	if err := validate(out); err != nil {
		return nil, err
	}
	return out, nil
}

// DecodeBlob parses the batch job's JSON output into records.
func DecodeBlob(data []byte) ([]model.EmbeddingRecord, error) {
	var b blob
	if err := json.Unmarshal(data, &b); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrStoreCorrupt, err)
	}
	return b.records()
}

func toBlob(records []model.EmbeddingRecord) blob {
	b := blob{
		Embeddings: make([][]float32, len(records)),
		Texts:      make([]string, len(records)),
	}
	for i, r := range records {
		b.Embeddings[i] = r.Vector
		b.Texts[i] = r.Text
	}
	return b
}

// validate requires every vector to share one non-zero dimension.
func validate(records []model.EmbeddingRecord) error {
	if len(records) == 0 {
		return nil
	}
	dims := len(records[0].Vector)
	if dims == 0 {
		return fmt.Errorf("%w: record 0 has an empty vector", ErrStoreCorrupt)
	}
	for i, r := range records {
		if len(r.Vector) != dims {
			return fmt.Errorf("%w: record %d has %d dims, want %d", ErrStoreCorrupt, i, len(r.Vector), dims)
		}
	}
	return nil
}

// StatsFor loads the named store and summarizes it.
func StatsFor(ctx context.Context, l Loader, name string) (*Stats, error) {
	records, err := l.Load(ctx, name)
	if err != nil {
		return nil, err
	}
	st := &Stats{Name: name, Count: len(records)}
	if len(records) > 0 {
		st.Dims = len(records[0].Vector)
	}
	return st, nil
}

// Open builds the configured store backend.
func Open(cfg config.VectorStoreConfig) (Store, error) {
	switch cfg.Type {
	case "", "file":
		return NewFileLoader(cfg.Dir), nil
	case "sqlite":
		return NewSQLiteLoader(cfg.DBPath)
	default:
		return nil, fmt.Errorf("unknown vector store type %q", cfg.Type)
	}
}
