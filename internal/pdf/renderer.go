// Package pdf rasterizes PDF pages with MuPDF.
package pdf

import (
	"context"
	"errors"
	"fmt"
	"image/png"
	"os"

	"github.com/gen2brain/go-fitz"
	"github.com/rs/zerolog"
)

// ErrNoPages is returned for a PDF without any page
var ErrNoPages = errors.New("pdf has no pages")

// Renderer renders the first page of a PDF to a temporary PNG
type Renderer struct {
	dpi     float64
	tempDir string
	logger  zerolog.Logger
}

// NewRenderer creates a renderer. tempDir may be empty for the system default.
func NewRenderer(dpi float64, tempDir string, logger zerolog.Logger) *Renderer {
	if dpi <= 0 {
		dpi = 200
	}
	return &Renderer{
		dpi:     dpi,
		tempDir: tempDir,
		logger:  logger.With().Str("component", "pdf").Logger(),
	}
}

// RenderFirstPage writes page one of the PDF to a temporary PNG. The returned
// release func removes it; it is nil when err is not.
func (r *Renderer) RenderFirstPage(ctx context.Context, documentPath string) (string, func(), error) {
	if err := ctx.Err(); err != nil {
		return "", nil, err
	}

	doc, err := fitz.New(documentPath)
	if err != nil {
		return "", nil, fmt.Errorf("failed to open pdf: %w", err)
	}
	defer doc.Close()

	pages := doc.NumPage()
	if pages < 1 {
		return "", nil, ErrNoPages
	}

	img, err := doc.ImageDPI(0, r.dpi)
	if err != nil {
		return "", nil, fmt.Errorf("failed to render page 1: %w", err)
	}

	tmp, err := os.CreateTemp(r.tempDir, "docfields-page-*.png")
	if err != nil {
		return "", nil, fmt.Errorf("failed to create temp file: %w", err)
	}
	release := func() {
		if err := os.Remove(tmp.Name()); err != nil && !errors.Is(err, os.ErrNotExist) {
			r.logger.Warn().Err(err).Str("path", tmp.Name()).Msg("failed to remove rendered page")
		}
	}

	if err := png.Encode(tmp, img); err != nil {
		tmp.Close()
		release()
		return "", nil, fmt.Errorf("failed to encode page image: %w", err)
	}
	if err := tmp.Close(); err != nil {
		release()
		return "", nil, fmt.Errorf("failed to write page image: %w", err)
	}

	r.logger.Debug().
		Int("pages", pages).
		Float64("dpi", r.dpi).
		Str("path", tmp.Name()).
		Msg("rendered first page")

	return tmp.Name(), release, nil
}
