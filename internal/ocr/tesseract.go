//go:build !windows

// Package ocr runs Tesseract through a fixed pool of gosseract clients.
package ocr

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"image"
	"image/png"
	"os"
	"path/filepath"
	"strings"

	"github.com/otiai10/gosseract/v2"
	"github.com/rs/zerolog"
)

// Config holds recognizer settings
type Config struct {
	Languages   []string
	PageSegMode int
	Workers     int
}

// Pool hands out one gosseract client per call. Clients are created and
// warmed up once and reused, since a gosseract client is not safe for
// concurrent use.
type Pool struct {
	clients chan *gosseract.Client
	all     []*gosseract.Client
	logger  zerolog.Logger
}

// NewPool creates and warms up cfg.Workers clients
func NewPool(cfg Config, logger zerolog.Logger) (*Pool, error) {
	workers := cfg.Workers
	if workers < 1 {
		workers = 1
	}
	if len(cfg.Languages) == 0 {
		cfg.Languages = []string{"eng"}
	}

	p := &Pool{
		clients: make(chan *gosseract.Client, workers),
		logger:  logger.With().Str("component", "ocr").Logger(),
	}

	blank, err := blankImage()
	if err != nil {
		return nil, err
	}

	for i := 0; i < workers; i++ {
		client, err := newClient(cfg, blank)
		if err != nil {
			p.Close()
			return nil, err
		}
		p.all = append(p.all, client)
		p.clients <- client
	}

	p.logger.Info().
		Strs("languages", cfg.Languages).
		Int("psm", cfg.PageSegMode).
		Int("workers", workers).
		Msg("OCR pool ready")

	return p, nil
}

func newClient(cfg Config, warmup []byte) (*gosseract.Client, error) {
	client := gosseract.NewClient()

	if err := client.SetLanguage(cfg.Languages...); err != nil {
		client.Close()
		return nil, fmt.Errorf("failed to set OCR language: %w", err)
	}

	if err := client.SetPageSegMode(gosseract.PageSegMode(cfg.PageSegMode)); err != nil {
		client.Close()
		return nil, fmt.Errorf("failed to set page segmentation mode: %w", err)
	}

	// Loads the language data now rather than on the first request.
	if err := client.SetImageFromBytes(warmup); err != nil {
		client.Close()
		return nil, fmt.Errorf("failed to warm up OCR client: %w", err)
	}
	if _, err := client.Text(); err != nil {
		client.Close()
		return nil, fmt.Errorf("failed to load OCR language data: %w", err)
	}

	return client, nil
}

// Recognize returns the text lines of an image in reading order
func (p *Pool) Recognize(ctx context.Context, imagePath string) ([]string, error) {
	if _, err := os.Stat(imagePath); err != nil {
		return nil, fmt.Errorf("image file not found: %w", err)
	}

	absPath, err := filepath.Abs(imagePath)
	if err != nil {
		return nil, fmt.Errorf("failed to get absolute path: %w", err)
	}

	var client *gosseract.Client
	select {
	case c, ok := <-p.clients:
		if !ok {
			return nil, errors.New("OCR pool is closed")
		}
		client = c
	case <-ctx.Done():
		return nil, ctx.Err()
	}
	defer func() { p.clients <- client }()

	if err := client.SetImage(absPath); err != nil {
		return nil, fmt.Errorf("failed to set image: %w", err)
	}

	boxes, err := client.GetBoundingBoxes(gosseract.RIL_TEXTLINE)
	if err != nil {
		return nil, fmt.Errorf("failed to extract text: %w", err)
	}

	fragments := make([]string, 0, len(boxes))
	for _, box := range boxes {
		if line := strings.TrimSpace(box.Word); line != "" {
			fragments = append(fragments, line)
		}
	}
	return fragments, nil
}

// Close releases every client in the pool
func (p *Pool) Close() error {
	var errs []error
	for _, client := range p.all {
		if err := client.Close(); err != nil {
			errs = append(errs, err)
		}
	}
	p.all = nil
	return errors.Join(errs...)
}

func blankImage() ([]byte, error) {
	img := image.NewGray(image.Rect(0, 0, 32, 32))
	for i := range img.Pix {
		img.Pix[i] = 0xff
	}
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		return nil, fmt.Errorf("failed to build warmup image: %w", err)
	}
	return buf.Bytes(), nil
}
