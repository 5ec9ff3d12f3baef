package llm

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/rs/zerolog"
)

// OpenAIConfig holds settings for an OpenAI compatible chat completions API
type OpenAIConfig struct {
	BaseURL     string
	APIKey      string
	Model       string
	Timeout     time.Duration
	Temperature float64
}

// OpenAIClient calls /chat/completions on an OpenAI compatible server
type OpenAIClient struct {
	cfg    OpenAIConfig
	http   *http.Client
	logger zerolog.Logger
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatRequest struct {
	Model       string        `json:"model"`
	Messages    []chatMessage `json:"messages"`
	Temperature float64       `json:"temperature"`
	Stream      bool          `json:"stream"`
}

type chatResponse struct {
	Choices []struct {
		Message chatMessage `json:"message"`
	} `json:"choices"`
}

// NewOpenAIClient creates an OpenAI compatible client
func NewOpenAIClient(cfg OpenAIConfig, httpClient *http.Client, logger zerolog.Logger) *OpenAIClient {
	if cfg.BaseURL == "" {
		cfg.BaseURL = "https://api.openai.com/v1"
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 300 * time.Second
	}
	if httpClient == nil {
		httpClient = &http.Client{Timeout: cfg.Timeout}
	}
	return &OpenAIClient{
		cfg:    cfg,
		http:   httpClient,
		logger: logger.With().Str("llm", "openai").Str("model", cfg.Model).Logger(),
	}
}

func (c *OpenAIClient) Name() string {
	return "openai/" + c.cfg.Model
}

// Generate sends the prompt as a single user message
func (c *OpenAIClient) Generate(ctx context.Context, req Request) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, c.cfg.Timeout)
	defer cancel()

	messages := make([]chatMessage, 0, 2)
	if req.System != "" {
		messages = append(messages, chatMessage{Role: "system", Content: req.System})
	}
	messages = append(messages, chatMessage{Role: "user", Content: req.Prompt})

	body := chatRequest{
		Model:       c.cfg.Model,
		Messages:    messages,
		Temperature: c.cfg.Temperature,
	}
	headers := map[string]string{"Authorization": "Bearer " + c.cfg.APIKey}

	url := strings.TrimRight(c.cfg.BaseURL, "/") + "/chat/completions"
	raw, err := SendJSON(ctx, c.http, url, body, headers, c.logger)
	if err != nil {
		return "", fmt.Errorf("openai chat: %w", err)
	}

	var out chatResponse
	if err := json.Unmarshal(raw, &out); err != nil {
		return "", fmt.Errorf("openai chat: decode response: %w", err)
	}
	if len(out.Choices) == 0 {
		return "", errors.New("openai chat: response has no choices")
	}
	return out.Choices[0].Message.Content, nil
}
