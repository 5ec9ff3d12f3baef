package services

import (
	"context"
	"errors"
	"time"

	"github.com/rs/zerolog"

	"github.com/foxxcyber/docfields/internal/llm"
	"github.com/foxxcyber/docfields/internal/models"
)

// ModelExtractor parses fields by prompting a generative backend.
//
// It has no recognition pipeline of its own: Recognize delegates to the
// upstream extractor so both strategies see the same text.
type ModelExtractor struct {
	generator llm.Generator
	upstream  TextExtractor
	logger    zerolog.Logger
}

// NewModelExtractor creates a model-prompted extractor that takes its text from upstream
func NewModelExtractor(generator llm.Generator, upstream TextExtractor, logger zerolog.Logger) *ModelExtractor {
	return &ModelExtractor{
		generator: generator,
		upstream:  upstream,
		logger:    logger.With().Str("component", "model_extractor").Str("backend", generator.Name()).Logger(),
	}
}

// Recognize returns the upstream extractor's text for the document
func (e *ModelExtractor) Recognize(ctx context.Context, documentPath string) (string, error) {
	if e.upstream == nil {
		return "", newError(ErrUnreadableDocument, "no recognizer configured", errors.New("model extractor has no upstream"))
	}
	return e.upstream.Recognize(ctx, documentPath)
}

// Parse asks the backend for the fields and recovers a JSON object from its answer.
// Transport failures are errors; an answer without usable JSON yields all nil fields.
func (e *ModelExtractor) Parse(ctx context.Context, text string, schema models.FieldSchema) (models.ExtractionResult, error) {
	if len(schema) == 0 {
		return models.ExtractionResult{}, nil
	}

	prompt, err := buildExtractionPrompt(text, schema)
	if err != nil {
		return nil, newError(ErrSchemaProcessing, "build prompt", err)
	}

	start := time.Now()
	response, err := e.generator.Generate(ctx, llm.Request{
		Prompt: prompt,
		System: extractionSystemPrompt,
	})
	if err != nil {
		e.logger.Error().Err(err).Dur("elapsed", time.Since(start)).Msg("model request failed")
		return nil, backendFailure(err)
	}

	obj, stage := recoverJSON(response)
	log := e.logger.With().Str("recovery", string(stage)).Int("fields", len(schema)).Logger()
	if stage == stageEmpty {
		log.Warn().Int("response_bytes", len(response)).Msg("model response held no JSON object")
	}

	if err := validateAgainstFields(schema, obj); err != nil {
		log.Debug().Str("mismatch", describeMismatch(err)).Msg("coercing model output")
	}

	log.Info().Dur("elapsed", time.Since(start)).Msg("model extraction finished")
	return normalizeResult(schema, obj), nil
}
