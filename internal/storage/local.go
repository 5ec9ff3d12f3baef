package storage

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/foxxcyber/docfields/internal/models"
)

// LocalStore keeps documents as {id}.{ext} in one directory
type LocalStore struct {
	dir string
}

// NewLocalStore creates the upload directory if needed
func NewLocalStore(dir string) (*LocalStore, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create upload dir: %w", err)
	}
	return &LocalStore{dir: dir}, nil
}

// Save writes the content to {dir}/{id}.{ext}
func (s *LocalStore) Save(_ context.Context, doc *models.Document, content io.Reader) error {
	if !validID(doc.ID) {
		return fmt.Errorf("invalid document id %q", doc.ID)
	}

	doc.StorageKey = doc.FileName()
	path := filepath.Join(s.dir, doc.StorageKey)

	f, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o644)
	if err != nil {
		return fmt.Errorf("failed to create file: %w", err)
	}

	n, err := io.Copy(f, content)
	if closeErr := f.Close(); err == nil {
		err = closeErr
	}
	if err != nil {
		os.Remove(path)
		return fmt.Errorf("failed to write file: %w", err)
	}

	doc.SizeBytes = n
	return nil
}

// Find matches {id}.* in the upload directory
func (s *LocalStore) Find(_ context.Context, id string) (*models.Document, error) {
	if !validID(id) {
		return nil, ErrDocumentNotFound
	}

	matches, err := filepath.Glob(filepath.Join(s.dir, id+".*"))
	if err != nil {
		return nil, fmt.Errorf("failed to search uploads: %w", err)
	}
	if len(matches) == 0 {
		return nil, ErrDocumentNotFound
	}

	info, err := os.Stat(matches[0])
	if err != nil {
		return nil, fmt.Errorf("failed to stat document: %w", err)
	}

	name := filepath.Base(matches[0])
	return &models.Document{
		ID:         id,
		Extension:  strings.TrimPrefix(filepath.Ext(name), "."),
		SizeBytes:  info.Size(),
		StorageKey: name,
		UploadedAt: info.ModTime(),
	}, nil
}

// Localize returns the stored file itself; release is a no-op
func (s *LocalStore) Localize(_ context.Context, doc *models.Document) (string, func(), error) {
	path := filepath.Join(s.dir, filepath.Base(doc.StorageKey))
	if _, err := os.Stat(path); err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return "", nil, ErrDocumentNotFound
		}
		return "", nil, err
	}
	return path, func() {}, nil
}

// Delete removes files by storage key, ignoring ones already gone
func (s *LocalStore) Delete(_ context.Context, keys ...string) error {
	var errs []error
	for _, key := range keys {
		err := os.Remove(filepath.Join(s.dir, filepath.Base(key)))
		if err != nil && !errors.Is(err, os.ErrNotExist) {
			errs = append(errs, fmt.Errorf("failed to delete %s: %w", key, err))
		}
	}
	return errors.Join(errs...)
}
