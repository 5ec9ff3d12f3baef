// Package storage keeps uploaded documents on local disk or in S3 compatible storage.
package storage

import (
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/foxxcyber/docfields/internal/config"
	"github.com/foxxcyber/docfields/internal/models"
)

// ErrDocumentNotFound is returned for an unknown document ID
var ErrDocumentNotFound = errors.New("document not found")

// DocumentStore persists uploaded documents addressed by ID
type DocumentStore interface {
	// Save writes the document content and fills in its StorageKey
	Save(ctx context.Context, doc *models.Document, content io.Reader) error
	// Find looks up a stored document by ID
	Find(ctx context.Context, id string) (*models.Document, error)
	// Localize returns a readable local path for the document. release must be
	// called when the path is no longer needed.
	Localize(ctx context.Context, doc *models.Document) (path string, release func(), err error)
	// Delete removes documents by storage key
	Delete(ctx context.Context, keys ...string) error
}

// New builds the store selected by STORAGE_DRIVER
func New(ctx context.Context, cfg *config.Config) (DocumentStore, error) {
	switch cfg.StorageDriver {
	case "", "local":
		return NewLocalStore(cfg.UploadDir)
	case "s3":
		s, err := NewS3Store(S3Config{
			Endpoint:  cfg.S3Endpoint,
			AccessKey: cfg.S3AccessKey,
			SecretKey: cfg.S3SecretKey,
			Bucket:    cfg.S3Bucket,
			Region:    cfg.S3Region,
			UseSSL:    cfg.S3UseSSL,
		})
		if err != nil {
			return nil, err
		}
		if err := s.EnsureBucket(ctx); err != nil {
			return nil, err
		}
		return s, nil
	default:
		return nil, fmt.Errorf("unknown storage driver %q", cfg.StorageDriver)
	}
}

// validID guards path and key construction against traversal
func validID(id string) bool {
	if id == "" || len(id) > 64 {
		return false
	}
	for _, r := range id {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '-', r == '_':
		default:
			return false
		}
	}
	return true
}
