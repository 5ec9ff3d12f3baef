package llm

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

// maxResponseBytes bounds how much of a backend response is read
const maxResponseBytes = 8 << 20

// StatusError reports a non-2xx answer from a backend
type StatusError struct {
	StatusCode int
	Body       string
}

func (e *StatusError) Error() string {
	if e.Body == "" {
		return fmt.Sprintf("non-2xx status: %d", e.StatusCode)
	}
	return fmt.Sprintf("non-2xx status: %d: %s", e.StatusCode, e.Body)
}

// SendJSON posts body as JSON to url and returns the raw response body.
// It knows nothing about a specific provider; callers pick the URL and headers.
func SendJSON(ctx context.Context, client *http.Client, url string, body any, headers map[string]string, logger zerolog.Logger) ([]byte, error) {
	if client == nil {
		client = &http.Client{Timeout: 45 * time.Second}
	}

	reqID := uuid.New().String()
	start := time.Now()
	log := logger.With().Str("req_id", reqID).Logger()

	bs, err := json.Marshal(body)
	if err != nil {
		return nil, fmt.Errorf("encode json: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(bs))
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}

	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-Request-ID", reqID)
	for k, v := range headers {
		req.Header.Set(k, v)
	}

	log.Debug().Str("url", url).Int("content_length", len(bs)).Msg("llm request")

	resp, err := client.Do(req)
	if err != nil {
		log.Error().Err(err).Int64("elapsed_ms", time.Since(start).Milliseconds()).Msg("llm request failed")
		return nil, err
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return nil, fmt.Errorf("read response: %w", err)
	}

	log.Debug().
		Int("status", resp.StatusCode).
		Int("bytes", len(raw)).
		Int64("elapsed_ms", time.Since(start).Milliseconds()).
		Msg("llm response")

	if resp.StatusCode/100 != 2 {
		return raw, &StatusError{StatusCode: resp.StatusCode, Body: truncate(string(raw), 512)}
	}
	return raw, nil
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
