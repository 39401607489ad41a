package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"time"

	"learnlink-server/internal/domain"
)

// FileRepository implements domain.FileRepository over a document store
type FileRepository struct {
	store  domain.DocumentStore
	logger domain.Logger
}

// NewFileRepository creates a new file record repository
func NewFileRepository(store domain.DocumentStore, logger domain.Logger) *FileRepository {
	return &FileRepository{store: store, logger: logger}
}

// Create stores a new file record after validation
func (r *FileRepository) Create(ctx context.Context, file *domain.FileRecord) error {
	if err := file.Validate(); err != nil {
		return err
	}
	file.SchemaVersion = domain.SchemaVersion
	now := time.Now().UTC()
	if file.CreatedAt.IsZero() {
		file.CreatedAt = now
	}
	file.UpdatedAt = now

	if err := r.store.Put(ctx, FilesCollection, file.ID, file); err != nil {
		return fmt.Errorf("create file %s: %w", file.ID, err)
	}
	return nil
}

// Get loads a file record
func (r *FileRepository) Get(ctx context.Context, id string) (*domain.FileRecord, error) {
	raw, err := r.store.Get(ctx, FilesCollection, id)
	if errors.Is(err, domain.ErrNotFound) {
		return nil, domain.ErrFileNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get file %s: %w", id, err)
	}
	return decodeFile(id, raw)
}

// ListByUser returns a user's files, newest first
func (r *FileRepository) ListByUser(ctx context.Context, userID string) ([]*domain.FileRecord, error) {
	docs, err := r.store.FindByField(ctx, FilesCollection, "userId", userID)
	if err != nil {
		return nil, fmt.Errorf("list files for %s: %w", userID, err)
	}
	files := make([]*domain.FileRecord, 0, len(docs))
	for _, d := range docs {
		f, err := decodeFile(d.ID, d.Data)
		if err != nil {
			r.logger.Warn("Skipping undecodable file record", "fileId", d.ID, "error", err)
			continue
		}
		files = append(files, f)
	}
	sort.SliceStable(files, func(i, j int) bool { return files[i].CreatedAt.After(files[j].CreatedAt) })
	return files, nil
}

// Update merges fields into the stored record
func (r *FileRepository) Update(ctx context.Context, id string, fields map[string]interface{}) error {
	if status, ok := fields["status"].(domain.FileStatus); ok {
		switch status {
		case domain.FileStatusUploaded, domain.FileStatusProcessing, domain.FileStatusCompleted, domain.FileStatusFailed:
		default:
			return domain.NewValidationError("status", fmt.Sprintf("unknown status %q", status))
		}
	}
	if style, ok := fields["learningStyle"].(domain.Variant); ok {
		if _, err := domain.ParseVariant(string(style)); err != nil {
			return domain.NewValidationError("learningStyle", err.Error())
		}
	}
	fields["updatedAt"] = time.Now().UTC()

	err := r.store.Merge(ctx, FilesCollection, id, fields)
	if errors.Is(err, domain.ErrNotFound) {
		return domain.ErrFileNotFound
	}
	if err != nil {
		return fmt.Errorf("update file %s: %w", id, err)
	}
	return nil
}

// Delete removes a file record
func (r *FileRepository) Delete(ctx context.Context, id string) error {
	err := r.store.Delete(ctx, FilesCollection, id)
	if errors.Is(err, domain.ErrNotFound) {
		return domain.ErrFileNotFound
	}
	if err != nil {
		return fmt.Errorf("delete file %s: %w", id, err)
	}
	return nil
}

func decodeFile(id string, raw json.RawMessage) (*domain.FileRecord, error) {
	var f domain.FileRecord
	if err := json.Unmarshal(raw, &f); err != nil {
		return nil, fmt.Errorf("decode file %s: %w", id, err)
	}
	if f.ID == "" {
		f.ID = id
	}
	return &f, nil
}
