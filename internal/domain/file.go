package domain

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"
	"time"
)

// FileStatus is the processing state of an uploaded document
type FileStatus string

const (
	FileStatusUploaded   FileStatus = "uploaded"
	FileStatusProcessing FileStatus = "processing"
	FileStatusCompleted  FileStatus = "completed"
	FileStatusFailed     FileStatus = "failed"
)

// allowed status edges; completed/failed may be re-processed
var fileTransitions = map[FileStatus][]FileStatus{
	FileStatusUploaded:   {FileStatusProcessing},
	FileStatusProcessing: {FileStatusCompleted, FileStatusFailed},
	FileStatusCompleted:  {FileStatusProcessing},
	FileStatusFailed:     {FileStatusProcessing},
}

// Variant is one of the four learning-style content shapes
type Variant string

const (
	VariantVisual         Variant = "visual"
	VariantAuditory       Variant = "auditory"
	VariantReadingWriting Variant = "reading_writing"
	VariantKinesthetic    Variant = "kinesthetic"
)

// AllVariants lists the variants in a stable order
var AllVariants = []Variant{VariantReadingWriting, VariantAuditory, VariantKinesthetic, VariantVisual}

// ParseVariant validates a learning style label
func ParseVariant(s string) (Variant, error) {
	v := Variant(strings.TrimSpace(s))
	for _, known := range AllVariants {
		if v == known {
			return v, nil
		}
	}
	return "", fmt.Errorf("%w: must be one of visual, auditory, reading_writing, kinesthetic", ErrInvalidLearningStyle)
}

// AllowedExtensions are the upload formats the extractor understands
var AllowedExtensions = map[string]bool{
	".pdf":  true,
	".doc":  true,
	".docx": true,
	".txt":  true,
	".ppt":  true,
	".pptx": true,
}

// IsAllowedFile reports whether filename has a supported extension
func IsAllowedFile(filename string) bool {
	return AllowedExtensions[strings.ToLower(filepath.Ext(filename))]
}

// FileRecord is the persisted metadata, status and generated content of one upload
type FileRecord struct {
	ID              string             `json:"id"`
	SchemaVersion   int                `json:"schemaVersion"`
	Name            string             `json:"name"`
	Type            string             `json:"type"`
	Size            int64              `json:"size"`
	StoragePath     string             `json:"storagePath"`
	DownloadURL     string             `json:"downloadUrl"`
	UserID          string             `json:"userId"`
	LearningStyle   Variant            `json:"learningStyle"`
	Status          FileStatus         `json:"status"`
	Processed       bool               `json:"processed"`
	ProcessingError string             `json:"processingError,omitempty"`
	GenerationErrs  map[Variant]string `json:"generationErrors,omitempty"`
	RenderError     string             `json:"renderError,omitempty"`

	ReadingWritingContent  *TextContent        `json:"readingWritingContent,omitempty"`
	ReadingWritingDocxURL  string              `json:"readingWritingDocxUrl,omitempty"`
	ReadingWritingPdfURL   string              `json:"readingWritingPdfUrl,omitempty"`
	ReadingWritingDocxPath string              `json:"readingWritingDocxPath,omitempty"`
	ReadingWritingPdfPath  string              `json:"readingWritingPdfPath,omitempty"`
	AuditoryContent        *TextContent        `json:"auditoryContent,omitempty"`
	AudioURL               string              `json:"audioUrl,omitempty"`
	KinestheticContent     *KinestheticContent `json:"kinestheticContent,omitempty"`
	VisualContent          *VisualContent      `json:"visualContent,omitempty"`
	Summary                string              `json:"summary,omitempty"`
	Quizzes                map[string]*Quiz    `json:"quizzes,omitempty"`

	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// FileRepository persists file records
type FileRepository interface {
	Create(ctx context.Context, file *FileRecord) error
	Get(ctx context.Context, id string) (*FileRecord, error)
	ListByUser(ctx context.Context, userID string) ([]*FileRecord, error)
	Update(ctx context.Context, id string, fields map[string]interface{}) error
	Delete(ctx context.Context, id string) error
}

// Validate checks the fields every stored file record must have
func (f *FileRecord) Validate() error {
	switch {
	case f.ID == "":
		return NewValidationError("id", "is required")
	case f.UserID == "":
		return NewValidationError("userId", "is required")
	case f.StoragePath == "":
		return NewValidationError("storagePath", "is required")
	}
	if _, err := ParseVariant(string(f.LearningStyle)); err != nil {
		return NewValidationError("learningStyle", err.Error())
	}
	if _, ok := fileTransitions[f.Status]; !ok {
		return NewValidationError("status", fmt.Sprintf("unknown status %q", f.Status))
	}
	return nil
}

// CanTransition reports whether from -> to is a legal status change
func CanTransition(from, to FileStatus) bool {
	for _, next := range fileTransitions[from] {
		if next == to {
			return true
		}
	}
	return false
}

// TransitionTo moves the record to status next or returns ErrInvalidTransition
func (f *FileRecord) TransitionTo(next FileStatus) error {
	if !CanTransition(f.Status, next) {
		return fmt.Errorf("%w: %s -> %s", ErrInvalidTransition, f.Status, next)
	}
	f.Status = next
	f.Processed = next == FileStatusCompleted
	return nil
}

// Extension returns the lower-cased file extension including the dot
func (f *FileRecord) Extension() string {
	return strings.ToLower(filepath.Ext(f.Name))
}

// UploadPath is where an original upload is stored
func UploadPath(userID, fileID, filename string) string {
	return fmt.Sprintf("users/%s/%s/%s", userID, fileID, filename)
}

// RenderedPath is where a rendered reading/writing document is stored
func RenderedPath(userID, fileID, format string) string {
	return fmt.Sprintf("processed/%s/reading_writing_%s.%s", userID, fileID, format)
}

// AudioPath is where narration audio is stored
func AudioPath(fileID string, ts time.Time) string {
	return fmt.Sprintf("audio/%s/audio_explanation_%d.mp3", fileID, ts.Unix())
}
