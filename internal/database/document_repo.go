package database

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/foxxcyber/docfields/internal/models"
)

var ErrDocumentNotFound = errors.New("document not found")

// CreateDocument records an uploaded document
func (db *DB) CreateDocument(ctx context.Context, req *models.CreateDocumentRequest) (*models.Document, error) {
	doc := &models.Document{}

	err := db.Pool.QueryRow(ctx, `
		INSERT INTO documents (id, extension, original_filename, content_type, size_bytes, storage_key)
		VALUES ($1, $2, NULLIF($3, ''), NULLIF($4, ''), $5, $6)
		RETURNING id, extension, original_filename, content_type, size_bytes, storage_key, uploaded_at
	`, req.ID, req.Extension, req.OriginalFilename, req.ContentType, req.SizeBytes, req.StorageKey).Scan(
		&doc.ID, &doc.Extension, &doc.OriginalFilename, &doc.ContentType,
		&doc.SizeBytes, &doc.StorageKey, &doc.UploadedAt,
	)
	if err != nil {
		return nil, err
	}

	return doc, nil
}

// GetDocument retrieves a document by ID
func (db *DB) GetDocument(ctx context.Context, id string) (*models.Document, error) {
	doc := &models.Document{}

	err := db.Pool.QueryRow(ctx, `
		SELECT id, extension, original_filename, content_type, size_bytes, storage_key, uploaded_at
		FROM documents
		WHERE id = $1
	`, id).Scan(
		&doc.ID, &doc.Extension, &doc.OriginalFilename, &doc.ContentType,
		&doc.SizeBytes, &doc.StorageKey, &doc.UploadedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrDocumentNotFound
		}
		return nil, err
	}

	return doc, nil
}

// CleanupExpiredDocuments deletes documents uploaded before now-olderThan and
// returns their storage keys. Their extractions go with them.
func (db *DB) CleanupExpiredDocuments(ctx context.Context, olderThan time.Duration) ([]string, error) {
	cutoff := time.Now().Add(-olderThan)

	rows, err := db.Pool.Query(ctx, `
		DELETE FROM documents WHERE uploaded_at < $1
		RETURNING storage_key
	`, cutoff)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var keys []string
	for rows.Next() {
		var key string
		if err := rows.Scan(&key); err != nil {
			return nil, err
		}
		keys = append(keys, key)
	}

	return keys, rows.Err()
}
