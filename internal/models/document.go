package models

import (
	"time"
)

// ExtractionStatus represents the outcome of an extraction run
type ExtractionStatus string

const (
	ExtractionStatusCompleted ExtractionStatus = "completed"
	ExtractionStatusFailed    ExtractionStatus = "failed"
)

// Document is an uploaded file addressed by its generated ID and extension
type Document struct {
	ID               string    `json:"id"`
	Extension        string    `json:"extension"`
	OriginalFilename *string   `json:"original_filename,omitempty"`
	ContentType      *string   `json:"content_type,omitempty"`
	SizeBytes        int64     `json:"size_bytes"`
	StorageKey       string    `json:"storage_key"`
	UploadedAt       time.Time `json:"uploaded_at"`
}

// FileName returns the stored name of the document, {id}.{ext}
func (d Document) FileName() string {
	return d.ID + "." + d.Extension
}

// Extraction is one recorded extraction run against a document
type Extraction struct {
	ID           int              `json:"id"`
	DocumentID   string           `json:"document_id"`
	ClientID     *string          `json:"client_id,omitempty"`
	Strategy     string           `json:"strategy"`
	Fields       FieldSchema      `json:"fields"`
	Result       ExtractionResult `json:"result,omitempty"`
	RawText      *string          `json:"raw_text,omitempty"`
	Status       ExtractionStatus `json:"status"`
	ErrorMessage *string          `json:"error_message,omitempty"`
	DurationMS   int64            `json:"duration_ms"`
	CreatedAt    time.Time        `json:"created_at"`
}

// CreateDocumentRequest is the input for recording an uploaded document
type CreateDocumentRequest struct {
	ID               string
	Extension        string
	OriginalFilename string
	ContentType      string
	SizeBytes        int64
	StorageKey       string
}

// CreateExtractionRequest is the input for recording an extraction run
type CreateExtractionRequest struct {
	DocumentID   string
	ClientID     string
	Strategy     string
	Fields       FieldSchema
	Result       ExtractionResult
	RawText      string
	Status       ExtractionStatus
	ErrorMessage string
	Duration     time.Duration
}

// UploadResponse is returned after a successful upload
type UploadResponse struct {
	FileID string `json:"file_id"`
}
