package tokenstore

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sync"

	"learnlink-server/internal/domain"
)

// FileStore keeps one JSON file per identity in dir
type FileStore struct {
	mu  sync.Mutex
	dir string
}

// NewFileStore creates dir if needed
func NewFileStore(dir string) (*FileStore, error) {
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return nil, fmt.Errorf("create token dir %s: %w", dir, err)
	}
	return &FileStore{dir: dir}, nil
}

func (s *FileStore) path(identity string) string {
	return filepath.Join(s.dir, domain.CredentialKey(identity)+".json")
}

// Load returns the stored credential or domain.ErrNotFound
func (s *FileStore) Load(ctx context.Context, identity string) (*domain.Credential, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	b, err := os.ReadFile(s.path(identity))
	if errors.Is(err, fs.ErrNotExist) {
		return nil, domain.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("read credential: %w", err)
	}
	var cred domain.Credential
	if err := json.Unmarshal(b, &cred); err != nil {
		return nil, fmt.Errorf("decode credential: %w", err)
	}
	return &cred, nil
}

// Save writes the credential through a temp file and rename
func (s *FileStore) Save(ctx context.Context, cred *domain.Credential) error {
	b, err := json.Marshal(cred)
	if err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	target := s.path(cred.Identity)
	tmp := target + ".tmp"
	if err := os.WriteFile(tmp, b, 0o600); err != nil {
		return fmt.Errorf("write credential: %w", err)
	}
	if err := os.Rename(tmp, target); err != nil {
		return fmt.Errorf("commit credential: %w", err)
	}
	return nil
}

// Delete removes the credential; a missing file is not an error
func (s *FileStore) Delete(ctx context.Context, identity string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := os.Remove(s.path(identity)); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("delete credential: %w", err)
	}
	return nil
}
