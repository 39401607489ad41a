package objectstore

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path"
	"path/filepath"
	"strings"

	"learnlink-server/internal/domain"
)

// LocalStore keeps objects on disk; the server exposes them under /objects/
type LocalStore struct {
	root    string
	baseURL string
}

// NewLocalStore creates the root directory if needed
func NewLocalStore(root, publicBaseURL string) (*LocalStore, error) {
	if err := os.MkdirAll(root, 0o755); err != nil {
		return nil, fmt.Errorf("create object root %s: %w", root, err)
	}
	return &LocalStore{root: root, baseURL: strings.TrimRight(publicBaseURL, "/")}, nil
}

// Root is the directory served at /objects/
func (s *LocalStore) Root() string {
	return s.root
}

func (s *LocalStore) resolve(p string) (string, error) {
	clean := path.Clean("/" + p)
	if clean == "/" || strings.Contains(p, "..") {
		return "", domain.NewValidationError("path", fmt.Sprintf("invalid object path %q", p))
	}
	return filepath.Join(s.root, filepath.FromSlash(clean)), nil
}

// Upload writes the object, overwriting any existing one
func (s *LocalStore) Upload(ctx context.Context, p string, r io.Reader, size int64, contentType string) (string, error) {
	full, err := s.resolve(p)
	if err != nil {
		return "", err
	}
	if err := os.MkdirAll(filepath.Dir(full), 0o755); err != nil {
		return "", fmt.Errorf("create object dir: %w", err)
	}
	f, err := os.Create(full)
	if err != nil {
		return "", fmt.Errorf("create object %s: %w", p, err)
	}
	if _, err := io.Copy(f, r); err != nil {
		f.Close()
		return "", fmt.Errorf("write object %s: %w", p, err)
	}
	if err := f.Close(); err != nil {
		return "", fmt.Errorf("close object %s: %w", p, err)
	}
	return s.PublicURL(p), nil
}

// Download reads the object or returns domain.ErrNotFound
func (s *LocalStore) Download(ctx context.Context, p string) ([]byte, error) {
	full, err := s.resolve(p)
	if err != nil {
		return nil, err
	}
	data, err := os.ReadFile(full)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, domain.ErrNotFound
	}
	return data, err
}

// Delete removes the object; a missing object is not an error
func (s *LocalStore) Delete(ctx context.Context, p string) error {
	full, err := s.resolve(p)
	if err != nil {
		return err
	}
	if err := os.Remove(full); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("delete object %s: %w", p, err)
	}
	return nil
}

// PublicURL returns where the server serves the object
func (s *LocalStore) PublicURL(p string) string {
	return s.baseURL + "/objects/" + strings.TrimLeft(p, "/")
}
