package domain

import (
	"context"
	"io"
	"net/http"
)

// DriveFolderName is the per-user folder files are uploaded into
const DriveFolderName = "LearnLink"

// DriveFile is one file in the user's hosted folder
type DriveFile struct {
	ID            string `json:"id"`
	Name          string `json:"name"`
	MimeType      string `json:"mimeType"`
	WebViewLink   string `json:"webViewLink,omitempty"`
	CreatedTime   string `json:"createdTime,omitempty"`
	Size          int64  `json:"size,omitempty"`
	LearningStyle string `json:"learningStyle,omitempty"`
}

// FileHost is the file hosting provider as seen by one authorized user
type FileHost interface {
	Upload(ctx context.Context, name, mimeType, learningStyle string, r io.Reader) (*DriveFile, error)
	List(ctx context.Context) ([]DriveFile, error)
	Download(ctx context.Context, id string) (*DriveFile, []byte, error)
	Delete(ctx context.Context, id string) error
}

// FileHostFactory builds a FileHost around an authorized HTTP client
type FileHostFactory func(ctx context.Context, client *http.Client) (FileHost, error)
