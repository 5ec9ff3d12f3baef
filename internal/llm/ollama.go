package llm

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/rs/zerolog"
)

// OllamaConfig holds settings for a local Ollama server
type OllamaConfig struct {
	BaseURL     string
	Model       string
	Timeout     time.Duration
	Temperature float64
}

// OllamaClient calls the Ollama generate endpoint without streaming
type OllamaClient struct {
	cfg    OllamaConfig
	http   *http.Client
	logger zerolog.Logger
}

type ollamaGenerateRequest struct {
	Model   string         `json:"model"`
	Prompt  string         `json:"prompt"`
	System  string         `json:"system,omitempty"`
	Stream  bool           `json:"stream"`
	Options map[string]any `json:"options,omitempty"`
}

type ollamaGenerateResponse struct {
	Response *string `json:"response"`
}

// NewOllamaClient creates an Ollama client
func NewOllamaClient(cfg OllamaConfig, httpClient *http.Client, logger zerolog.Logger) *OllamaClient {
	if cfg.Timeout <= 0 {
		cfg.Timeout = 300 * time.Second
	}
	if httpClient == nil {
		httpClient = &http.Client{Timeout: cfg.Timeout}
	}
	return &OllamaClient{
		cfg:    cfg,
		http:   httpClient,
		logger: logger.With().Str("llm", "ollama").Str("model", cfg.Model).Logger(),
	}
}

func (c *OllamaClient) Name() string {
	return "ollama/" + c.cfg.Model
}

// Generate posts the prompt to /api/generate and returns the response field.
// A body without a response field reads as an empty JSON object.
func (c *OllamaClient) Generate(ctx context.Context, req Request) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, c.cfg.Timeout)
	defer cancel()

	body := ollamaGenerateRequest{
		Model:  c.cfg.Model,
		Prompt: req.Prompt,
		System: req.System,
		Stream: false,
	}
	if c.cfg.Temperature > 0 {
		body.Options = map[string]any{"temperature": c.cfg.Temperature}
	}

	url := strings.TrimRight(c.cfg.BaseURL, "/") + "/api/generate"
	raw, err := SendJSON(ctx, c.http, url, body, nil, c.logger)
	if err != nil {
		return "", fmt.Errorf("ollama generate: %w", err)
	}

	var out ollamaGenerateResponse
	if err := json.Unmarshal(raw, &out); err != nil {
		return "", fmt.Errorf("ollama generate: decode response: %w", err)
	}
	if out.Response == nil {
		return "{}", nil
	}
	return *out.Response, nil
}
