// Package config loads frontdesk settings from YAML, .env and the environment.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/caarlos0/env/v6"
	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// AppConfig holds process-level settings.
type AppConfig struct {
	Environment string `yaml:"environment" env:"FRONTDESK_ENV"`
	LogFilePath string `yaml:"log_file" env:"FRONTDESK_LOG_FILE"`
	LogConsole  bool   `yaml:"log_console"`
}

// VectorStoreConfig selects where precomputed embeddings are read from.
type VectorStoreConfig struct {
	Type     string        `yaml:"type"` // file | sqlite
	Dir      string        `yaml:"dir" env:"FRONTDESK_VECTOR_DIR"`
	DBPath   string        `yaml:"db_path" env:"FRONTDESK_VECTOR_DB"`
	Name     string        `yaml:"name"`
	CacheTTL time.Duration `yaml:"cache_ttl"`
	Watch    bool          `yaml:"watch"`
}

// EmbeddingConfig selects the embedding provider. The model must be the one
// that produced the vector store.
type EmbeddingConfig struct {
	Provider string        `yaml:"provider" env:"FRONTDESK_EMBED_PROVIDER"` // ollama | openai
	BaseURL  string        `yaml:"base_url" env:"FRONTDESK_EMBED_URL"`
	Model    string        `yaml:"model" env:"FRONTDESK_EMBED_MODEL"`
	APIKey   string        `yaml:"-" env:"OPENAI_API_KEY"`
	Dims     int           `yaml:"dims"`
	Timeout  time.Duration `yaml:"timeout"`
	CacheTTL time.Duration `yaml:"cache_ttl"`
}

// GenerationConfig selects the text generation provider.
type GenerationConfig struct {
	Provider    string        `yaml:"provider" env:"FRONTDESK_LLM_PROVIDER"` // openai | ollama
	BaseURL     string        `yaml:"base_url" env:"FRONTDESK_LLM_URL"`
	Model       string        `yaml:"model" env:"FRONTDESK_LLM_MODEL"`
	APIKey      string        `yaml:"-" env:"OPENAI_API_KEY"`
	Temperature float32       `yaml:"temperature"`
	Timeout     time.Duration `yaml:"timeout"`
}

// RetrievalConfig bounds similarity search and prompt context.
type RetrievalConfig struct {
	TopK          int     `yaml:"top_k"`
	MinSimilarity float64 `yaml:"min_similarity"`
	HistoryTurns  int     `yaml:"history_turns"`
	// Synonyms expands domain terms before embedding: term -> variants.
	Synonyms []SynonymEntry `yaml:"synonyms"`
}

// SynonymEntry is one row of the query expansion table. A list keeps the
// expansion order deterministic.
type SynonymEntry struct {
	Term     string   `yaml:"term"`
	Variants []string `yaml:"variants"`
}

// SessionConfig selects the session log backend.
type SessionConfig struct {
	Backend  string `yaml:"backend"` // sqlite | file | redis
	DBPath   string `yaml:"db_path" env:"FRONTDESK_SESSION_DB"`
	Dir      string `yaml:"dir" env:"FRONTDESK_SESSION_DIR"`
	RedisURL string `yaml:"redis_url" env:"REDIS_URL"`
	Prefix   string `yaml:"redis_prefix"`
}

// IntentConfig points at an optional keyword table override.
type IntentConfig struct {
	TablesPath string `yaml:"tables_path" env:"FRONTDESK_INTENT_TABLES"`
}

// ResponsesConfig overrides the canned response pools and the preamble.
// Empty fields keep the built-in defaults.
type ResponsesConfig struct {
	Seed          int64    `yaml:"seed"`
	Persona       string   `yaml:"persona"`
	OutOfScope    []string `yaml:"out_of_scope"`
	Farewell      []string `yaml:"farewell"`
	Clarification []string `yaml:"clarification"`
}

// Config is the root configuration structure.
type Config struct {
	App         AppConfig         `yaml:"app"`
	VectorStore VectorStoreConfig `yaml:"vector_store"`
	Embedding   EmbeddingConfig   `yaml:"embedding"`
	Generation  GenerationConfig  `yaml:"generation"`
	Retrieval   RetrievalConfig   `yaml:"retrieval"`
	Session     SessionConfig     `yaml:"session"`
	Intent      IntentConfig      `yaml:"intent"`
	Responses   ResponsesConfig   `yaml:"responses"`
}

// Load reads a config from path, then applies environment overrides and
// defaults. A missing file yields the defaults.
func Load(path string) (*Config, error) {
	cfg := Default()
	data, err := os.ReadFile(path)
	switch {
	case err == nil:
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parse %s: %w", path, err)
		}
	case errors.Is(err, os.ErrNotExist):
	default:
		return nil, err
	}
	if err := applyEnv(cfg); err != nil {
		return nil, err
	}
	applyDefaults(cfg)
	return cfg, nil
}

// LoadDefault loads .env if present, then tries ./frontdesk.yaml followed by
// ~/.config/frontdesk/config.yaml. It returns the path it used ("" when only
// defaults and the environment apply).
func LoadDefault() (*Config, string, error) {
	_ = godotenv.Load()

	candidates := []string{"frontdesk.yaml"}
	if p, err := defaultUserConfigPath(); err == nil {
		candidates = append(candidates, p)
	}
	for _, p := range candidates {
		if _, err := os.Stat(p); err == nil {
			cfg, err := Load(p)
			return cfg, p, err
		}
	}
	cfg, err := Load("")
	return cfg, "", err
}

// Save writes the config to path, creating directories as needed.
func Save(path string, cfg *Config) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0o644)
}

// Default returns the built-in configuration.
func Default() *Config {
	return &Config{
		App: AppConfig{
			Environment: "development",
		},
		VectorStore: VectorStoreConfig{
			Type: "file",
			Dir:  "data",
			Name: "faq_responses_embeddings",
		},
		Embedding: EmbeddingConfig{
			Provider: "ollama",
			Model:    "all-minilm",
			Dims:     384,
			Timeout:  30 * time.Second,
		},
		Generation: GenerationConfig{
			Provider:    "openai",
			Model:       "gpt-4",
			Temperature: 0.7,
			Timeout:     60 * time.Second,
		},
		Retrieval: RetrievalConfig{
			TopK:          3,
			MinSimilarity: 0.45,
			HistoryTurns:  5,
			Synonyms:      DefaultSynonyms(),
		},
		Session: SessionConfig{
			Backend: "sqlite",
			Prefix:  "frontdesk:session:",
		},
	}
}

// DefaultSynonyms is the built-in query expansion table.
func DefaultSynonyms() []SynonymEntry {
	return []SynonymEntry{
		{Term: "hours", Variants: []string{"timing", "schedule", "open", "close"}},
		{Term: "open", Variants: []string{"hours", "timing", "schedule"}},
		{Term: "appointment", Variants: []string{"booking", "schedule", "reservation", "visit"}},
		{Term: "location", Variants: []string{"address", "directions", "where"}},
		{Term: "price", Variants: []string{"cost", "fee", "charge"}},
		{Term: "contact", Variants: []string{"phone", "email", "call"}},
	}
}

func applyEnv(cfg *Config) error {
	if err := env.Parse(cfg); err != nil {
		return fmt.Errorf("parse env: %w", err)
	}
	return nil
}

func applyDefaults(cfg *Config) {
	home := defaultDataDir()
	if cfg.Session.DBPath == "" {
		cfg.Session.DBPath = filepath.Join(home, "sessions.db")
	}
	if cfg.Session.Dir == "" {
		cfg.Session.Dir = filepath.Join(home, "chat_sessions")
	}
	if cfg.Session.Prefix == "" {
		cfg.Session.Prefix = "frontdesk:session:"
	}
	if cfg.VectorStore.DBPath == "" {
		cfg.VectorStore.DBPath = filepath.Join(home, "vectors.db")
	}
	if cfg.Retrieval.TopK == 0 {
		cfg.Retrieval.TopK = 3
	}
	if cfg.Retrieval.HistoryTurns == 0 {
		cfg.Retrieval.HistoryTurns = 5
	}
	if cfg.Retrieval.Synonyms == nil {
		cfg.Retrieval.Synonyms = DefaultSynonyms()
	}
	if cfg.Embedding.Timeout == 0 {
		cfg.Embedding.Timeout = 30 * time.Second
	}
	if cfg.Generation.Timeout == 0 {
		cfg.Generation.Timeout = 60 * time.Second
	}
	switch cfg.Embedding.Provider {
	case "ollama":
		if cfg.Embedding.BaseURL == "" {
			cfg.Embedding.BaseURL = "http://localhost:11434"
		}
	case "openai":
		if cfg.Embedding.Model == "" || cfg.Embedding.Model == "all-minilm" {
			cfg.Embedding.Model = "text-embedding-3-small"
		}
	}
	if cfg.Generation.Provider == "ollama" && cfg.Generation.BaseURL == "" {
		cfg.Generation.BaseURL = "http://localhost:11434"
	}
}

func defaultDataDir() string {
	if dir := os.Getenv("FRONTDESK_HOME"); dir != "" {
		return dir
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return ".frontdesk"
	}
	return filepath.Join(home, ".frontdesk")
}

func defaultUserConfigPath() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(home, ".config", "frontdesk", "config.yaml"), nil
}
