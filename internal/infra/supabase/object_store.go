package supabase

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"

	"learnlink-server/internal/domain"

	storage_go "github.com/supabase-community/storage-go"
)

// ObjectStore keeps blobs in one Supabase Storage bucket
type ObjectStore struct {
	client *Client
	bucket string
	logger domain.Logger
}

// NewObjectStore creates a Supabase Storage backed object store
func NewObjectStore(client *Client, bucket string, logger domain.Logger) *ObjectStore {
	return &ObjectStore{client: client, bucket: bucket, logger: logger}
}

// Upload writes (or overwrites) path and returns its public URL
func (s *ObjectStore) Upload(ctx context.Context, path string, r io.Reader, size int64, contentType string) (string, error) {
	upsert := true
	_, err := s.client.DB().Storage.UploadFile(s.bucket, path, r, storage_go.FileOptions{
		ContentType: &contentType,
		Upsert:      &upsert,
	})
	if err != nil {
		return "", fmt.Errorf("storage upload failed for %s: %w", path, err)
	}
	s.logger.Debug("Object uploaded", "bucket", s.bucket, "path", path, "size", size)
	return s.PublicURL(path), nil
}

// Download reads path
func (s *ObjectStore) Download(ctx context.Context, path string) ([]byte, error) {
	data, err := s.client.DB().Storage.DownloadFile(s.bucket, path)
	if err != nil {
		if isObjectNotFound(err) {
			return nil, domain.ErrNotFound
		}
		return nil, fmt.Errorf("storage download failed for %s: %w", path, err)
	}
	return data, nil
}

// Delete removes path
func (s *ObjectStore) Delete(ctx context.Context, path string) error {
	if _, err := s.client.DB().Storage.RemoveFile(s.bucket, []string{path}); err != nil {
		return fmt.Errorf("storage delete failed for %s: %w", path, err)
	}
	return nil
}

// PublicURL returns the bucket's public URL for path
func (s *ObjectStore) PublicURL(path string) string {
	return s.client.DB().Storage.GetPublicUrl(s.bucket, path).SignedURL
}

// Storage reports a missing object with a 400 or 404 and an "Object not found" message
func isObjectNotFound(err error) bool {
	var serr *storage_go.StorageError
	if !errors.As(err, &serr) {
		return false
	}
	return serr.Status == http.StatusNotFound || strings.Contains(strings.ToLower(serr.Message), "not found")
}
