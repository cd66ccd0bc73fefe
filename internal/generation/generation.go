// Package generation wraps the external text generation service.
package generation

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/rcliao/frontdesk/internal/config"
)

// ErrGenerationFailure wraps every provider error, including an empty or
// all-whitespace completion.
var ErrGenerationFailure = errors.New("generation failure")

// Generator turns a fully composed prompt into response text.
type Generator interface {
	Generate(ctx context.Context, prompt string) (string, error)
}

func failure(format string, args ...interface{}) error {
	return fmt.Errorf("%w: %s", ErrGenerationFailure, fmt.Sprintf(format, args...))
}

// finish trims the completion and rejects blank output.
func finish(text string) (string, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return "", failure("empty completion")
	}
	return text, nil
}

// NewFromConfig builds the configured generator.
func NewFromConfig(cfg config.GenerationConfig) (Generator, error) {
	switch cfg.Provider {
	case "openai":
		return NewOpenAIGenerator(cfg.APIKey, cfg.BaseURL, cfg.Model, cfg.Temperature), nil
	case "ollama":
		return NewOllamaGenerator(cfg.BaseURL, cfg.Model, cfg.Timeout), nil
	default:
		return nil, fmt.Errorf("unknown generation provider %q", cfg.Provider)
	}
}
