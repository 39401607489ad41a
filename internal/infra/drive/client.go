package drive

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"

	"learnlink-server/internal/domain"

	"google.golang.org/api/drive/v3"
	"google.golang.org/api/googleapi"
	"google.golang.org/api/option"
)

const (
	folderMimeType = "application/vnd.google-apps.folder"
	fileFields     = "id, name, mimeType, webViewLink, createdTime, size, appProperties"
)

// Client works inside the user's LearnLink folder
type Client struct {
	srv      *drive.Service
	folderID string
}

// NewClient creates a Drive client. Extra options (such as an endpoint) are appended.
func NewClient(ctx context.Context, httpClient *http.Client, opts ...option.ClientOption) (*Client, error) {
	opts = append([]option.ClientOption{option.WithHTTPClient(httpClient)}, opts...)
	srv, err := drive.NewService(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create drive service: %w", err)
	}
	return &Client{srv: srv}, nil
}

// Factory adapts NewClient to domain.FileHostFactory
func Factory(opts ...option.ClientOption) domain.FileHostFactory {
	return func(ctx context.Context, httpClient *http.Client) (domain.FileHost, error) {
		return NewClient(ctx, httpClient, opts...)
	}
}

func (c *Client) folder(ctx context.Context) (string, error) {
	if c.folderID != "" {
		return c.folderID, nil
	}
	q := fmt.Sprintf("name = '%s' and mimeType = '%s' and trashed = false", domain.DriveFolderName, folderMimeType)
	res, err := c.srv.Files.List().Q(q).Fields("files(id, name)").Context(ctx).Do()
	if err != nil {
		return "", fmt.Errorf("find folder: %w", err)
	}
	if len(res.Files) > 0 {
		c.folderID = res.Files[0].Id
		return c.folderID, nil
	}

	created, err := c.srv.Files.Create(&drive.File{Name: domain.DriveFolderName, MimeType: folderMimeType}).
		Fields("id").Context(ctx).Do()
	if err != nil {
		return "", fmt.Errorf("create folder: %w", err)
	}
	c.folderID = created.Id
	return c.folderID, nil
}

// Upload stores r in the folder tagged with the learning style
func (c *Client) Upload(ctx context.Context, name, mimeType, learningStyle string, r io.Reader) (*domain.DriveFile, error) {
	folderID, err := c.folder(ctx)
	if err != nil {
		return nil, err
	}
	meta := &drive.File{
		Name:          name,
		MimeType:      mimeType,
		Parents:       []string{folderID},
		AppProperties: map[string]string{"learning_style": learningStyle},
	}
	f, err := c.srv.Files.Create(meta).Media(r).Fields(fileFields).Context(ctx).Do()
	if err != nil {
		return nil, fmt.Errorf("drive upload: %w", err)
	}
	out := toDomain(f)
	return &out, nil
}

// List returns the folder's files
func (c *Client) List(ctx context.Context) ([]domain.DriveFile, error) {
	folderID, err := c.folder(ctx)
	if err != nil {
		return nil, err
	}
	q := fmt.Sprintf("'%s' in parents and trashed = false", folderID)
	res, err := c.srv.Files.List().Q(q).Fields("files(" + fileFields + ")").OrderBy("createdTime desc").Context(ctx).Do()
	if err != nil {
		return nil, fmt.Errorf("drive list: %w", err)
	}
	files := make([]domain.DriveFile, 0, len(res.Files))
	for _, f := range res.Files {
		files = append(files, toDomain(f))
	}
	return files, nil
}

// Download returns a file's metadata and content
func (c *Client) Download(ctx context.Context, id string) (*domain.DriveFile, []byte, error) {
	meta, err := c.srv.Files.Get(id).Fields(fileFields).Context(ctx).Do()
	if err != nil {
		return nil, nil, fmt.Errorf("drive get: %w", notFound(err))
	}
	resp, err := c.srv.Files.Get(id).Context(ctx).Download()
	if err != nil {
		return nil, nil, fmt.Errorf("drive download: %w", err)
	}
	defer resp.Body.Close()
	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, nil, err
	}
	f := toDomain(meta)
	return &f, data, nil
}

// Delete removes a file
func (c *Client) Delete(ctx context.Context, id string) error {
	if err := c.srv.Files.Delete(id).Context(ctx).Do(); err != nil {
		return fmt.Errorf("drive delete: %w", notFound(err))
	}
	return nil
}

// notFound maps a 404 from the API onto domain.ErrNotFound
func notFound(err error) error {
	var gerr *googleapi.Error
	if errors.As(err, &gerr) && gerr.Code == http.StatusNotFound {
		return domain.ErrNotFound
	}
	return err
}

func toDomain(f *drive.File) domain.DriveFile {
	out := domain.DriveFile{
		ID:          f.Id,
		Name:        f.Name,
		MimeType:    f.MimeType,
		WebViewLink: f.WebViewLink,
		CreatedTime: f.CreatedTime,
		Size:        f.Size,
	}
	if f.AppProperties != nil {
		out.LearningStyle = strings.TrimSpace(f.AppProperties["learning_style"])
	}
	return out
}
