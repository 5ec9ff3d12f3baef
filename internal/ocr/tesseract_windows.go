//go:build windows

package ocr

import (
	"context"
	"errors"

	"github.com/rs/zerolog"
)

// Config holds recognizer settings
type Config struct {
	Languages   []string
	PageSegMode int
	Workers     int
}

// Pool is a stub; Tesseract is not available on Windows builds
type Pool struct{}

// NewPool reports that OCR is unavailable
func NewPool(cfg Config, logger zerolog.Logger) (*Pool, error) {
	return nil, errors.New("OCR is not available on Windows - run in the Docker container")
}

// Recognize always fails on Windows
func (p *Pool) Recognize(ctx context.Context, imagePath string) ([]string, error) {
	return nil, errors.New("OCR is not available on Windows")
}

// Close releases nothing
func (p *Pool) Close() error {
	return nil
}
