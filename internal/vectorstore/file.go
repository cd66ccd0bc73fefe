package vectorstore

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/rcliao/frontdesk/internal/model"
)

// FileLoader reads stores from <dir>/<name>.json.
type FileLoader struct {
	dir string
}

func NewFileLoader(dir string) *FileLoader {
	return &FileLoader{dir: dir}
}

// Path returns the blob path for a store name.
func (f *FileLoader) Path(name string) string {
	return filepath.Join(f.dir, name+".json")
}

func (f *FileLoader) Load(ctx context.Context, name string) ([]model.EmbeddingRecord, error) {
	data, err := os.ReadFile(f.Path(name))
	if errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("%w: %s", ErrStoreNotFound, name)
	}
	if err != nil {
		return nil, fmt.Errorf("read store %s: %w", name, err)
	}
	records, err := DecodeBlob(data)
	if err != nil {
		return nil, fmt.Errorf("decode %s: %w", name, err)
	}
	return records, nil
}

// Import writes the store to a temp file and renames it into place so
// concurrent readers never observe a partial blob.
func (f *FileLoader) Import(ctx context.Context, name string, records []model.EmbeddingRecord) error {
	if err := validate(records); err != nil {
		return err
	}
	if err := os.MkdirAll(f.dir, 0o755); err != nil {
		return fmt.Errorf("create store dir: %w", err)
	}
	data, err := json.Marshal(toBlob(records))
	if err != nil {
		return fmt.Errorf("encode store: %w", err)
	}
	tmp, err := os.CreateTemp(f.dir, name+".*.tmp")
	if err != nil {
		return fmt.Errorf("create temp: %w", err)
	}
	defer os.Remove(tmp.Name())
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return fmt.Errorf("write temp: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("close temp: %w", err)
	}
	return os.Rename(tmp.Name(), f.Path(name))
}

func (f *FileLoader) Close() error { return nil }
