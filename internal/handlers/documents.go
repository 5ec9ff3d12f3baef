package handlers

import (
	"context"
	"errors"
	"path/filepath"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/foxxcyber/docfields/internal/config"
	"github.com/foxxcyber/docfields/internal/middleware"
	"github.com/foxxcyber/docfields/internal/models"
	"github.com/foxxcyber/docfields/internal/services"
	"github.com/foxxcyber/docfields/internal/storage"
)

// Extractor recognizes a stored document and parses fields out of its text
type Extractor interface {
	Recognize(ctx context.Context, cacheKey, documentPath string) (string, error)
	Extract(ctx context.Context, fileID, strategy, text string, schema models.FieldSchema) (*models.ExtractionEnvelope, error)
}

// History records uploads and extraction runs. It is optional.
type History interface {
	CreateDocument(ctx context.Context, req *models.CreateDocumentRequest) (*models.Document, error)
	GetDocument(ctx context.Context, id string) (*models.Document, error)
	CreateExtraction(ctx context.Context, req *models.CreateExtractionRequest) (*models.Extraction, error)
	ListExtractions(ctx context.Context, documentID string, limit, offset int) ([]*models.Extraction, int, error)
}

// DocumentHandler handles upload and extraction endpoints
type DocumentHandler struct {
	cfg       *config.Config
	store     storage.DocumentStore
	extractor Extractor
	history   History
	logger    zerolog.Logger
}

// NewDocumentHandler creates a new document handler. history may be nil.
func NewDocumentHandler(
	cfg *config.Config,
	store storage.DocumentStore,
	extractor Extractor,
	history History,
	logger zerolog.Logger,
) *DocumentHandler {
	return &DocumentHandler{
		cfg:       cfg,
		store:     store,
		extractor: extractor,
		history:   history,
		logger:    logger.With().Str("component", "handlers").Logger(),
	}
}

// RegisterRoutes mounts the document endpoints on router. With auth enabled
// each route also requires its token scope.
func (h *DocumentHandler) RegisterRoutes(router fiber.Router) {
	router.Post("/file-upload", h.scope(middleware.ScopeUpload), h.Upload)
	router.Post("/ocr", h.scope(middleware.ScopeExtract), h.Extract)
	if h.history != nil {
		router.Get("/documents/:id/extractions", h.scope(middleware.ScopeHistory), h.ListExtractions)
	}
}

func (h *DocumentHandler) scope(name string) fiber.Handler {
	if !h.cfg.AuthEnabled() {
		return func(c *fiber.Ctx) error { return c.Next() }
	}
	return middleware.RequireScope(name)
}

// Upload stores a document and returns its generated ID
func (h *DocumentHandler) Upload(c *fiber.Ctx) error {
	file, err := c.FormFile("file")
	if err != nil {
		return Error(c, fiber.StatusBadRequest, "file is required")
	}

	ext := strings.ToLower(strings.TrimPrefix(filepath.Ext(file.Filename), "."))
	if !h.cfg.IsExtensionAllowed(ext) {
		return Error(c, fiber.StatusBadRequest,
			"unsupported file type. Allowed: "+strings.Join(h.cfg.AllowedExtensions, ", "))
	}

	if h.cfg.MaxFileSize > 0 && file.Size > h.cfg.MaxFileSize {
		return Error(c, fiber.StatusRequestEntityTooLarge, "file too large")
	}

	src, err := file.Open()
	if err != nil {
		return Error(c, fiber.StatusInternalServerError, "failed to read file")
	}
	defer src.Close()

	doc := &models.Document{
		ID:        uuid.NewString(),
		Extension: ext,
		SizeBytes: file.Size,
	}
	if contentType := file.Header.Get("Content-Type"); contentType != "" {
		doc.ContentType = &contentType
	}
	if err := h.store.Save(c.Context(), doc, src); err != nil {
		h.logger.Error().Err(err).Str("file_id", doc.ID).Msg("failed to store upload")
		return Error(c, fiber.StatusInternalServerError, "failed to store file")
	}

	if h.history != nil {
		_, err := h.history.CreateDocument(c.Context(), &models.CreateDocumentRequest{
			ID:               doc.ID,
			Extension:        doc.Extension,
			OriginalFilename: file.Filename,
			ContentType:      file.Header.Get("Content-Type"),
			SizeBytes:        doc.SizeBytes,
			StorageKey:       doc.StorageKey,
		})
		if err != nil {
			// Clean up storage on failure
			if deleteErr := h.store.Delete(c.Context(), doc.StorageKey); deleteErr != nil {
				h.logger.Warn().Err(deleteErr).Str("key", doc.StorageKey).Msg("failed to clean up upload")
			}
			h.logger.Error().Err(err).Str("file_id", doc.ID).Msg("failed to record upload")
			return Error(c, fiber.StatusInternalServerError, "failed to record file")
		}
	}

	h.logger.Info().
		Str("file_id", doc.ID).
		Str("extension", ext).
		Int64("size", doc.SizeBytes).
		Msg("document uploaded")

	return Success(c, models.UploadResponse{FileID: doc.ID})
}

// Extract recognizes a stored document and extracts the requested fields
func (h *DocumentHandler) Extract(c *fiber.Ctx) error {
	var req models.ExtractRequest
	if err := c.BodyParser(&req); err != nil {
		return Error(c, fiber.StatusBadRequest, "invalid request body")
	}

	if strings.TrimSpace(req.FileID) == "" {
		return Error(c, fiber.StatusBadRequest, "file_id is required")
	}
	if _, err := services.ParseStrategy(req.Strategy); err != nil {
		return ErrorFrom(c, err)
	}
	if req.Fields == nil {
		req.Fields = models.FieldSchema{}
	}
	if err := req.Fields.Validate(); err != nil {
		return ErrorFrom(c, err)
	}
	req.Fields = req.Fields.WithDefaults()

	doc, err := h.store.Find(c.Context(), req.FileID)
	if err != nil {
		if !errors.Is(err, storage.ErrDocumentNotFound) {
			h.logger.Error().Err(err).Str("file_id", req.FileID).Msg("document lookup failed")
		}
		return ErrorFrom(c, err)
	}

	path, release, err := h.store.Localize(c.Context(), doc)
	if err != nil {
		h.logger.Error().Err(err).Str("file_id", doc.ID).Msg("failed to fetch document")
		return ErrorFrom(c, err)
	}
	defer release()

	start := time.Now()
	text, err := h.extractor.Recognize(c.Context(), doc.ID, path)
	var envelope *models.ExtractionEnvelope
	if err == nil {
		envelope, err = h.extractor.Extract(c.Context(), doc.ID, req.Strategy, text, req.Fields)
	}
	h.record(c.Context(), doc.ID, middleware.GetClientID(c), req, text, envelope, err, time.Since(start))

	if err != nil {
		h.logger.Error().Err(err).
			Str("file_id", doc.ID).
			Str("strategy", req.Strategy).
			Msg("extraction failed")
		return ErrorFrom(c, err)
	}

	h.logger.Info().
		Str("file_id", doc.ID).
		Str("strategy", envelope.Strategy).
		Int("fields", len(envelope.Result)).
		Dur("elapsed", time.Since(start)).
		Msg("extraction completed")

	return Success(c, envelope)
}

// ListExtractions returns the recorded extraction runs of a document
func (h *DocumentHandler) ListExtractions(c *fiber.Ctx) error {
	id := c.Params("id")

	limit := c.QueryInt("limit", 20)
	offset := c.QueryInt("offset", 0)
	if limit < 1 || limit > 100 {
		limit = 20
	}
	if offset < 0 {
		offset = 0
	}

	if _, err := uuid.Parse(id); err != nil {
		return Error(c, fiber.StatusNotFound, "document not found")
	}
	if _, err := h.history.GetDocument(c.Context(), id); err != nil {
		return ErrorFrom(c, err)
	}

	extractions, total, err := h.history.ListExtractions(c.Context(), id, limit, offset)
	if err != nil {
		h.logger.Error().Err(err).Str("file_id", id).Msg("failed to list extractions")
		return Error(c, fiber.StatusInternalServerError, "failed to list extractions")
	}
	if extractions == nil {
		extractions = []*models.Extraction{}
	}

	return SuccessWithMeta(c, extractions, total, limit, offset)
}

func (h *DocumentHandler) record(ctx context.Context, fileID, clientID string, req models.ExtractRequest, text string, envelope *models.ExtractionEnvelope, runErr error, elapsed time.Duration) {
	if h.history == nil {
		return
	}

	rec := &models.CreateExtractionRequest{
		DocumentID: fileID,
		ClientID:   clientID,
		Strategy:   req.Strategy,
		Fields:     req.Fields,
		RawText:    text,
		Status:     models.ExtractionStatusCompleted,
		Duration:   elapsed,
	}
	if runErr != nil {
		rec.Status = models.ExtractionStatusFailed
		rec.ErrorMessage = runErr.Error()
	} else {
		rec.Result = envelope.Result
	}

	if _, err := h.history.CreateExtraction(ctx, rec); err != nil {
		h.logger.Warn().Err(err).Str("file_id", fileID).Msg("failed to record extraction")
	}
}
