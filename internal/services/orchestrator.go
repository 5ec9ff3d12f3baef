package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"github.com/foxxcyber/docfields/internal/cache"
	"github.com/foxxcyber/docfields/internal/config"
	"github.com/foxxcyber/docfields/internal/models"
)

// Strategy selects which extractor parses the recognized text
type Strategy string

const (
	StrategyPattern Strategy = "ocr"
	StrategyModel   Strategy = "llm_ocr"
)

// Strategies lists the accepted strategy identifiers
var Strategies = []Strategy{StrategyPattern, StrategyModel}

// ParseStrategy accepts exactly the known strategy identifiers
func ParseStrategy(s string) (Strategy, error) {
	for _, known := range Strategies {
		if Strategy(s) == known {
			return known, nil
		}
	}
	return "", fmt.Errorf("%w: %q (expected %q or %q)", ErrInvalidStrategy, s, StrategyPattern, StrategyModel)
}

// Orchestrator recognizes a document once and routes parsing to the chosen extractor
type Orchestrator struct {
	primary    TextExtractor
	extractors map[Strategy]TextExtractor
	textCache  cache.TextCache
	cacheTTL   time.Duration
	logger     zerolog.Logger
}

// NewOrchestrator wires the two extractors. Recognition always goes through the
// pattern extractor; textCache may be nil.
func NewOrchestrator(pattern, model TextExtractor, textCache cache.TextCache, cfg *config.Config, logger zerolog.Logger) *Orchestrator {
	return &Orchestrator{
		primary: pattern,
		extractors: map[Strategy]TextExtractor{
			StrategyPattern: pattern,
			StrategyModel:   model,
		},
		textCache: textCache,
		cacheTTL:  cfg.CacheTTL,
		logger:    logger.With().Str("component", "orchestrator").Logger(),
	}
}

// RunRequest describes one end to end extraction
type RunRequest struct {
	FileID       string
	Strategy     string
	DocumentPath string
	Schema       models.FieldSchema
}

// Run validates the request, recognizes the document and extracts the fields
func (o *Orchestrator) Run(ctx context.Context, req RunRequest) (*models.ExtractionEnvelope, error) {
	if _, err := ParseStrategy(req.Strategy); err != nil {
		return nil, err
	}
	if err := req.Schema.Validate(); err != nil {
		return nil, err
	}

	text, err := o.Recognize(ctx, req.FileID, req.DocumentPath)
	if err != nil {
		return nil, err
	}
	return o.Extract(ctx, req.FileID, req.Strategy, text, req.Schema)
}

// Recognize returns the document text, reusing cached text for cacheKey when present.
// An empty cacheKey always recognizes.
func (o *Orchestrator) Recognize(ctx context.Context, cacheKey, documentPath string) (string, error) {
	if cacheKey != "" && o.textCache != nil {
		text, err := o.textCache.Get(ctx, cacheKey)
		if err == nil {
			o.logger.Debug().Str("file_id", cacheKey).Msg("recognized text served from cache")
			return text, nil
		}
		if !errors.Is(err, cache.ErrCacheMiss) {
			o.logger.Warn().Err(err).Str("file_id", cacheKey).Msg("text cache lookup failed")
		}
	}

	start := time.Now()
	text, err := o.primary.Recognize(ctx, documentPath)
	if err != nil {
		return "", err
	}
	o.logger.Info().
		Str("file_id", cacheKey).
		Int("chars", len(text)).
		Dur("elapsed", time.Since(start)).
		Msg("document recognized")

	if cacheKey != "" && o.textCache != nil {
		if err := o.textCache.Set(ctx, cacheKey, text, o.cacheTTL); err != nil {
			o.logger.Warn().Err(err).Str("file_id", cacheKey).Msg("text cache store failed")
		}
	}
	return text, nil
}

// Extract parses already recognized text with the chosen strategy. The result
// holds exactly the schema keys.
func (o *Orchestrator) Extract(ctx context.Context, fileID, strategy, text string, schema models.FieldSchema) (*models.ExtractionEnvelope, error) {
	s, err := ParseStrategy(strategy)
	if err != nil {
		return nil, err
	}
	if schema == nil {
		schema = models.FieldSchema{}
	}
	if err := schema.Validate(); err != nil {
		return nil, err
	}
	schema = schema.WithDefaults()

	extractor, ok := o.extractors[s]
	if !ok || extractor == nil {
		return nil, newError(ErrSchemaProcessing, fmt.Sprintf("strategy %q is not configured", s), nil)
	}

	parsed, err := extractor.Parse(ctx, text, schema)
	if err != nil {
		if !errors.Is(err, ErrSchemaProcessing) {
			err = newError(ErrSchemaProcessing, string(s), err)
		}
		return nil, err
	}

	result := models.NewEmptyResult(schema)
	for key := range schema {
		if v, ok := parsed[key]; ok {
			result[key] = v
		}
	}

	return &models.ExtractionEnvelope{
		FileID:   fileID,
		Strategy: string(s),
		Result:   result,
		RawText:  text,
	}, nil
}
