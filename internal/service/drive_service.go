package service

import (
	"context"
	"errors"
	"io"
	"strings"

	"learnlink-server/internal/domain"
	apperrors "learnlink-server/pkg/errors"
)

// DriveService runs file hosting operations as the user identified by email
type DriveService struct {
	credentials *CredentialStore
	hosts       domain.FileHostFactory
	logger      domain.Logger
}

// NewDriveService creates a drive service
func NewDriveService(credentials *CredentialStore, hosts domain.FileHostFactory, logger domain.Logger) *DriveService {
	return &DriveService{credentials: credentials, hosts: hosts, logger: logger}
}

// Credentials exposes the credential store for the auth endpoints
func (s *DriveService) Credentials() *CredentialStore {
	return s.credentials
}

func (s *DriveService) host(ctx context.Context, email string) (domain.FileHost, error) {
	email, err := requireEmail(email)
	if err != nil {
		return nil, err
	}
	client, err := s.credentials.Client(ctx, email)
	if err != nil {
		return nil, err
	}
	host, err := s.hosts(ctx, client)
	if err != nil {
		return nil, apperrors.NewExternalServiceError("drive", err)
	}
	return host, nil
}

func driveError(err error) error {
	if errors.Is(err, domain.ErrNotFound) {
		return apperrors.NewNotFoundError("drive file not found")
	}
	if _, ok := apperrors.As(err); ok {
		return err
	}
	return apperrors.NewExternalServiceError("drive", err)
}

// Upload stores a file in the user's LearnLink folder
func (s *DriveService) Upload(ctx context.Context, email, name, mimeType, learningStyle string, r io.Reader) (*domain.DriveFile, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, domain.NewValidationError("file", "no file selected")
	}
	if !domain.IsAllowedFile(name) {
		return nil, domain.NewValidationError("file", domain.ErrUnsupportedFileType.Error())
	}
	if learningStyle == "" {
		learningStyle = string(domain.VariantVisual)
	}
	host, err := s.host(ctx, email)
	if err != nil {
		return nil, err
	}
	f, err := host.Upload(ctx, name, mimeType, learningStyle, r)
	if err != nil {
		return nil, driveError(err)
	}
	s.logger.Info("Drive file uploaded", "email", email, "driveFileId", f.ID)
	return f, nil
}

// List returns the files in the user's LearnLink folder
func (s *DriveService) List(ctx context.Context, email string) ([]domain.DriveFile, error) {
	host, err := s.host(ctx, email)
	if err != nil {
		return nil, err
	}
	files, err := host.List(ctx)
	if err != nil {
		return nil, driveError(err)
	}
	return files, nil
}

// Download returns the metadata and content of one file
func (s *DriveService) Download(ctx context.Context, email, id string) (*domain.DriveFile, []byte, error) {
	host, err := s.host(ctx, email)
	if err != nil {
		return nil, nil, err
	}
	f, data, err := host.Download(ctx, id)
	if err != nil {
		return nil, nil, driveError(err)
	}
	return f, data, nil
}

// Delete removes one file
func (s *DriveService) Delete(ctx context.Context, email, id string) error {
	host, err := s.host(ctx, email)
	if err != nil {
		return err
	}
	if err := host.Delete(ctx, id); err != nil {
		return driveError(err)
	}
	s.logger.Info("Drive file deleted", "email", email, "driveFileId", id)
	return nil
}
