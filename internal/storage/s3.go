package storage

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path"
	"strings"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"

	"github.com/foxxcyber/docfields/internal/models"
)

const s3KeyPrefix = "documents/"

// S3Config holds S3 compatible storage settings
type S3Config struct {
	Endpoint  string
	AccessKey string
	SecretKey string
	Bucket    string
	Region    string
	UseSSL    bool
}

// S3Store keeps documents as documents/{id}.{ext} in a bucket
type S3Store struct {
	client     *minio.Client
	bucketName string
	region     string
}

// NewS3Store creates a new S3 compatible store
func NewS3Store(cfg S3Config) (*S3Store, error) {
	client, err := minio.New(cfg.Endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(cfg.AccessKey, cfg.SecretKey, ""),
		Secure: cfg.UseSSL,
		Region: cfg.Region,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create S3 client: %w", err)
	}

	return &S3Store{
		client:     client,
		bucketName: cfg.Bucket,
		region:     cfg.Region,
	}, nil
}

// EnsureBucket creates the bucket if it doesn't exist
func (s *S3Store) EnsureBucket(ctx context.Context) error {
	exists, err := s.client.BucketExists(ctx, s.bucketName)
	if err != nil {
		return fmt.Errorf("failed to check bucket: %w", err)
	}

	if !exists {
		err = s.client.MakeBucket(ctx, s.bucketName, minio.MakeBucketOptions{
			Region: s.region,
		})
		if err != nil {
			return fmt.Errorf("failed to create bucket: %w", err)
		}
	}

	return nil
}

// Save uploads the content under documents/{id}.{ext}
func (s *S3Store) Save(ctx context.Context, doc *models.Document, content io.Reader) error {
	if !validID(doc.ID) {
		return fmt.Errorf("invalid document id %q", doc.ID)
	}

	key := s3KeyPrefix + doc.FileName()
	size := doc.SizeBytes
	if size <= 0 {
		size = -1
	}

	opts := minio.PutObjectOptions{}
	if doc.ContentType != nil {
		opts.ContentType = *doc.ContentType
	}

	info, err := s.client.PutObject(ctx, s.bucketName, key, content, size, opts)
	if err != nil {
		return fmt.Errorf("failed to upload file: %w", err)
	}

	doc.StorageKey = key
	doc.SizeBytes = info.Size
	return nil
}

// Find lists objects with the documents/{id}. prefix
func (s *S3Store) Find(ctx context.Context, id string) (*models.Document, error) {
	if !validID(id) {
		return nil, ErrDocumentNotFound
	}

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	for obj := range s.client.ListObjects(ctx, s.bucketName, minio.ListObjectsOptions{
		Prefix:  s3KeyPrefix + id + ".",
		MaxKeys: 1,
	}) {
		if obj.Err != nil {
			return nil, fmt.Errorf("failed to list objects: %w", obj.Err)
		}
		name := path.Base(obj.Key)
		return &models.Document{
			ID:         id,
			Extension:  strings.TrimPrefix(path.Ext(name), "."),
			SizeBytes:  obj.Size,
			StorageKey: obj.Key,
			UploadedAt: obj.LastModified,
		}, nil
	}

	return nil, ErrDocumentNotFound
}

// Localize downloads the object to a temp file that release removes
func (s *S3Store) Localize(ctx context.Context, doc *models.Document) (string, func(), error) {
	obj, err := s.client.GetObject(ctx, s.bucketName, doc.StorageKey, minio.GetObjectOptions{})
	if err != nil {
		return "", nil, fmt.Errorf("failed to get object: %w", err)
	}
	defer obj.Close()

	tmp, err := os.CreateTemp("", "docfields-*."+doc.Extension)
	if err != nil {
		return "", nil, fmt.Errorf("failed to create temp file: %w", err)
	}
	release := func() { os.Remove(tmp.Name()) }

	if _, err := io.Copy(tmp, obj); err != nil {
		tmp.Close()
		release()
		var resp minio.ErrorResponse
		if errors.As(err, &resp) && resp.Code == "NoSuchKey" {
			return "", nil, ErrDocumentNotFound
		}
		return "", nil, fmt.Errorf("failed to download object: %w", err)
	}
	if err := tmp.Close(); err != nil {
		release()
		return "", nil, fmt.Errorf("failed to write temp file: %w", err)
	}

	return tmp.Name(), release, nil
}

// Delete removes objects by key
func (s *S3Store) Delete(ctx context.Context, keys ...string) error {
	if len(keys) == 0 {
		return nil
	}

	var errs []error
	for err := range s.client.RemoveObjects(ctx, s.bucketName, objectsToRemove(keys), minio.RemoveObjectsOptions{}) {
		if err.Err != nil {
			errs = append(errs, fmt.Errorf("failed to delete object %s: %w", err.ObjectName, err.Err))
		}
	}
	return errors.Join(errs...)
}

// objectsToRemove returns a closed channel already holding every key, so
// nothing blocks when RemoveObjects stops reading early.
func objectsToRemove(keys []string) <-chan minio.ObjectInfo {
	ch := make(chan minio.ObjectInfo, len(keys))
	for _, key := range keys {
		ch <- minio.ObjectInfo{Key: key}
	}
	close(ch)
	return ch
}
