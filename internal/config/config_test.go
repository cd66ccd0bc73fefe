package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_MissingFileUsesDefaults(t *testing.T) {
	t.Setenv("FRONTDESK_HOME", t.TempDir())

	cfg, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	require.NoError(t, err)

	assert.Equal(t, 3, cfg.Retrieval.TopK)
	assert.InDelta(t, 0.45, cfg.Retrieval.MinSimilarity, 1e-9)
	assert.Equal(t, 5, cfg.Retrieval.HistoryTurns)
	assert.Equal(t, "sqlite", cfg.Session.Backend)
	assert.Equal(t, "http://localhost:11434", cfg.Embedding.BaseURL)
	assert.Equal(t, filepath.Join(os.Getenv("FRONTDESK_HOME"), "sessions.db"), cfg.Session.DBPath)
	assert.Len(t, cfg.Retrieval.Synonyms, len(DefaultSynonyms()))
}

func TestLoad_YAMLAndEnvOverrides(t *testing.T) {
	t.Setenv("FRONTDESK_HOME", t.TempDir())
	t.Setenv("FRONTDESK_LLM_MODEL", "gpt-4o-mini")
	t.Setenv("OPENAI_API_KEY", "sk-test")

	path := filepath.Join(t.TempDir(), "frontdesk.yaml")
	yml := `
retrieval:
  top_k: 5
  min_similarity: 0.6
  synonyms:
    - term: vet
      variants: [veterinarian, clinic]
generation:
  provider: openai
  model: gpt-4
  timeout: 5s
session:
  backend: file
  dir: /tmp/sessions
responses:
  seed: 42
  farewell: ["Bye now."]
`
	require.NoError(t, os.WriteFile(path, []byte(yml), 0o644))

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, 5, cfg.Retrieval.TopK)
	assert.InDelta(t, 0.6, cfg.Retrieval.MinSimilarity, 1e-9)
	require.Len(t, cfg.Retrieval.Synonyms, 1)
	assert.Equal(t, "vet", cfg.Retrieval.Synonyms[0].Term)
	assert.Equal(t, "gpt-4o-mini", cfg.Generation.Model, "env wins over yaml")
	assert.Equal(t, "sk-test", cfg.Generation.APIKey)
	assert.Equal(t, 5*time.Second, cfg.Generation.Timeout)
	assert.Equal(t, "file", cfg.Session.Backend)
	assert.Equal(t, "/tmp/sessions", cfg.Session.Dir)
	assert.Equal(t, int64(42), cfg.Responses.Seed)
	assert.Equal(t, []string{"Bye now."}, cfg.Responses.Farewell)
}

func TestLoad_InvalidYAML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bad.yaml")
	require.NoError(t, os.WriteFile(path, []byte("retrieval: [unclosed"), 0o644))

	_, err := Load(path)
	assert.Error(t, err)
}

func TestSave_RoundTrip(t *testing.T) {
	t.Setenv("FRONTDESK_HOME", t.TempDir())
	path := filepath.Join(t.TempDir(), "nested", "config.yaml")

	cfg := Default()
	cfg.Retrieval.TopK = 7
	cfg.Session.Backend = "redis"
	require.NoError(t, Save(path, cfg))

	loaded, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, 7, loaded.Retrieval.TopK)
	assert.Equal(t, "redis", loaded.Session.Backend)
}

func TestApplyDefaults_OpenAIEmbeddingModel(t *testing.T) {
	t.Setenv("FRONTDESK_HOME", t.TempDir())
	cfg := Default()
	cfg.Embedding.Provider = "openai"
	applyDefaults(cfg)
	assert.Equal(t, "text-embedding-3-small", cfg.Embedding.Model)
	assert.Empty(t, cfg.Embedding.BaseURL)
}
