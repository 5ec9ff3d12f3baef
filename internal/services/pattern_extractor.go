package services

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strconv"
	"strings"
	"unicode"

	"github.com/rs/zerolog"

	"github.com/foxxcyber/docfields/internal/config"
	"github.com/foxxcyber/docfields/internal/models"
)

// taxIDLength is the digit count of a tax identification number
const taxIDLength = 11

var pdfMagic = []byte("%PDF-")

// PatternExtractor recognizes text locally and extracts fields with fixed heuristics
type PatternExtractor struct {
	recognizer    Recognizer
	rasterizer    Rasterizer
	taxIDKeywords []string
	digitRun      *regexp.Regexp
	logger        zerolog.Logger
}

// NewPatternExtractor creates a pattern-matching extractor
func NewPatternExtractor(recognizer Recognizer, rasterizer Rasterizer, cfg *config.Config, logger zerolog.Logger) *PatternExtractor {
	keywords := make([]string, 0, len(cfg.TaxIDKeywords))
	for _, k := range cfg.TaxIDKeywords {
		if k = strings.ToLower(strings.TrimSpace(k)); k != "" {
			keywords = append(keywords, k)
		}
	}

	return &PatternExtractor{
		recognizer:    recognizer,
		rasterizer:    rasterizer,
		taxIDKeywords: keywords,
		digitRun:      regexp.MustCompile(`\d+`),
		logger:        logger.With().Str("component", "pattern_extractor").Logger(),
	}
}

// Recognize returns the text of an image, or of the first page of a PDF
func (e *PatternExtractor) Recognize(ctx context.Context, documentPath string) (string, error) {
	if _, err := os.Stat(documentPath); err != nil {
		return "", newError(ErrUnreadableDocument, "cannot open "+filepath.Base(documentPath), err)
	}

	imagePath := documentPath
	paged, err := isPDF(documentPath)
	if err != nil {
		return "", newError(ErrUnreadableDocument, "cannot read "+filepath.Base(documentPath), err)
	}
	if paged {
		// Later pages are never rendered.
		rendered, release, err := e.rasterizer.RenderFirstPage(ctx, documentPath)
		if err != nil {
			return "", newError(ErrUnreadableDocument, "cannot render first page", err)
		}
		defer release()
		imagePath = rendered
	}

	fragments, err := e.recognizer.Recognize(ctx, imagePath)
	if err != nil {
		if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
			return "", fmt.Errorf("recognition interrupted: %w", err)
		}
		return "", newError(ErrUnreadableDocument, "recognition failed", err)
	}

	e.logger.Debug().
		Str("document", filepath.Base(documentPath)).
		Bool("pdf", paged).
		Int("fragments", len(fragments)).
		Msg("document recognized")

	return strings.Join(fragments, "\n"), nil
}

// Parse applies the heuristics to every field. A field that is not found is nil.
func (e *PatternExtractor) Parse(_ context.Context, text string, schema models.FieldSchema) (models.ExtractionResult, error) {
	compact := stripWhitespace(text)
	lines := strings.Split(text, "\n")

	result := make(models.ExtractionResult, len(schema))
	for key, field := range schema {
		result[key] = e.extractField(key, field, compact, lines)
	}
	return result, nil
}

// extractField tries the tax ID rule, then the integer rule, then the line rule
func (e *PatternExtractor) extractField(key string, field models.FieldSpec, compact string, lines []string) any {
	if e.isTaxIDField(field) {
		if id := e.firstRunOfLength(compact, taxIDLength); id != "" {
			if field.IsInteger() {
				if v, err := strconv.ParseInt(id, 10, 64); err == nil {
					return v
				}
			}
			return id
		}
	}

	if field.IsInteger() {
		run := e.digitRun.FindString(compact)
		if run == "" {
			return nil
		}
		v, err := strconv.ParseInt(run, 10, 64)
		if err != nil {
			e.logger.Warn().Str("field", key).Int("digits", len(run)).Msg("integer out of range")
			return nil
		}
		return v
	}

	return firstLineContaining(lines, field.Name)
}

func (e *PatternExtractor) isTaxIDField(field models.FieldSpec) bool {
	name := strings.ToLower(field.Name)
	for _, keyword := range e.taxIDKeywords {
		if strings.Contains(name, keyword) {
			return true
		}
	}
	return false
}

// firstRunOfLength returns the first maximal digit run that is exactly n long
func (e *PatternExtractor) firstRunOfLength(s string, n int) string {
	for _, run := range e.digitRun.FindAllString(s, -1) {
		if len(run) == n {
			return run
		}
	}
	return ""
}

func firstLineContaining(lines []string, name string) any {
	needle := strings.ToLower(name)
	for _, line := range lines {
		if strings.Contains(strings.ToLower(line), needle) {
			return strings.TrimSpace(line)
		}
	}
	return nil
}

func stripWhitespace(s string) string {
	return strings.Map(func(r rune) rune {
		if unicode.IsSpace(r) {
			return -1
		}
		return r
	}, s)
}

func isPDF(path string) (bool, error) {
	if strings.EqualFold(filepath.Ext(path), ".pdf") {
		return true, nil
	}

	f, err := os.Open(path)
	if err != nil {
		return false, err
	}
	defer f.Close()

	header := make([]byte, len(pdfMagic))
	n, _ := f.Read(header)
	return bytes.Equal(header[:n], pdfMagic), nil
}
