package services

import (
	"context"

	"github.com/foxxcyber/docfields/internal/models"
)

// TextExtractor is the contract every extraction backend implements.
//
// Recognize returns the text found in a document, possibly empty, and fails
// with ErrUnreadableDocument when the file cannot be opened or decoded.
// Parse returns a value, possibly nil, for every schema key and fails with
// ErrSchemaProcessing only on structural problems.
type TextExtractor interface {
	Recognize(ctx context.Context, documentPath string) (string, error)
	Parse(ctx context.Context, text string, schema models.FieldSchema) (models.ExtractionResult, error)
}

// Recognizer turns a raster image into text fragments in detection order
type Recognizer interface {
	Recognize(ctx context.Context, imagePath string) ([]string, error)
}

// Rasterizer renders the first page of a paged document to a temporary image.
// The caller must invoke release once done with the image, on every path.
type Rasterizer interface {
	RenderFirstPage(ctx context.Context, documentPath string) (imagePath string, release func(), err error)
}
