// Package llm talks to generative text backends over plain request/response HTTP.
package llm

import (
	"context"
	"fmt"
	"net/http"

	"github.com/rs/zerolog"

	"github.com/foxxcyber/docfields/internal/config"
)

// Request is one completion request
type Request struct {
	Prompt string
	System string
}

// Generator sends a prompt to a backend and returns its free text answer
type Generator interface {
	Generate(ctx context.Context, req Request) (string, error)
	Name() string
}

// NewGenerator builds the backend selected by LLM_PROVIDER
func NewGenerator(cfg *config.Config, logger zerolog.Logger) (Generator, error) {
	httpClient := &http.Client{Timeout: cfg.LLMTimeout}

	switch cfg.LLMProvider {
	case "", "ollama":
		return NewOllamaClient(OllamaConfig{
			BaseURL:     cfg.OllamaAPIURL,
			Model:       cfg.OllamaModel,
			Timeout:     cfg.LLMTimeout,
			Temperature: cfg.LLMTemperature,
		}, httpClient, logger), nil
	case "openai":
		return NewOpenAIClient(OpenAIConfig{
			BaseURL:     cfg.OpenAIBaseURL,
			APIKey:      cfg.OpenAIAPIKey,
			Model:       cfg.OpenAIModel,
			Timeout:     cfg.LLMTimeout,
			Temperature: cfg.LLMTemperature,
		}, httpClient, logger), nil
	default:
		return nil, fmt.Errorf("unknown llm provider %q", cfg.LLMProvider)
	}
}
