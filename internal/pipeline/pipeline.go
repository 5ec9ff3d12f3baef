// Package pipeline assembles the recognition and extraction components
// shared by the server and the CLI.
package pipeline

import (
	"errors"
	"fmt"
	"os"

	"github.com/rs/zerolog"

	"github.com/foxxcyber/docfields/internal/cache"
	"github.com/foxxcyber/docfields/internal/config"
	"github.com/foxxcyber/docfields/internal/llm"
	"github.com/foxxcyber/docfields/internal/ocr"
	"github.com/foxxcyber/docfields/internal/pdf"
	"github.com/foxxcyber/docfields/internal/services"
)

// Pipeline owns the long lived extraction components
type Pipeline struct {
	Orchestrator *services.Orchestrator
	closers      []func() error
}

// Build creates the OCR pool, PDF renderer, generator, text cache and both
// extractors from cfg.
func Build(cfg *config.Config, logger zerolog.Logger) (*Pipeline, error) {
	p := &Pipeline{}

	pool, err := ocr.NewPool(ocr.Config{
		Languages:   cfg.OCRLanguages,
		PageSegMode: cfg.OCRPageSegMode,
		Workers:     cfg.OCRWorkers,
	}, logger)
	if err != nil {
		return nil, fmt.Errorf("failed to start OCR: %w", err)
	}
	p.closers = append(p.closers, pool.Close)

	textCache, err := newTextCache(cfg)
	if err != nil {
		p.Close()
		return nil, err
	}
	p.closers = append(p.closers, textCache.Close)

	generator, err := llm.NewGenerator(cfg, logger)
	if err != nil {
		p.Close()
		return nil, err
	}

	renderer := pdf.NewRenderer(cfg.PDFDPI, os.TempDir(), logger)
	pattern := services.NewPatternExtractor(pool, renderer, cfg, logger)
	model := services.NewModelExtractor(generator, pattern, logger)
	p.Orchestrator = services.NewOrchestrator(pattern, model, textCache, cfg, logger)

	logger.Info().
		Int("ocr_workers", cfg.OCRWorkers).
		Str("llm", generator.Name()).
		Bool("redis_cache", cfg.RedisURL != "").
		Msg("extraction pipeline ready")

	return p, nil
}

func newTextCache(cfg *config.Config) (cache.TextCache, error) {
	if cfg.RedisURL == "" {
		return cache.NewMemoryCache(), nil
	}
	c, err := cache.NewRedisCache(cache.RedisConfig{
		URL:      cfg.RedisURL,
		Password: cfg.RedisPassword,
		DB:       cfg.RedisDB,
		Prefix:   "docfields:text:",
	})
	if err != nil {
		return nil, fmt.Errorf("failed to connect to redis: %w", err)
	}
	return c, nil
}

// Close releases everything Build created, newest first
func (p *Pipeline) Close() error {
	var errs []error
	for i := len(p.closers) - 1; i >= 0; i-- {
		if err := p.closers[i](); err != nil {
			errs = append(errs, err)
		}
	}
	p.closers = nil
	return errors.Join(errs...)
}
