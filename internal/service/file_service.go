package service

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"mime"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"learnlink-server/internal/domain"
	"learnlink-server/internal/render"
	apperrors "learnlink-server/pkg/errors"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"
)

const (
	docxContentType = "application/vnd.openxmlformats-officedocument.wordprocessingml.document"
	pdfContentType  = "application/pdf"
	mp3ContentType  = "audio/mpeg"

	speechUnavailable = "Audio narration is unavailable; read the explanation below instead."

	processingTimeout  = 10 * time.Minute
	statusWriteTimeout = 15 * time.Second
)

// VariantResult is the outcome of generating one variant for one file
type VariantResult struct {
	Variant         domain.Variant `json:"variant"`
	Content         interface{}    `json:"content,omitempty"`
	DocxURL         string         `json:"docxUrl,omitempty"`
	PdfURL          string         `json:"pdfUrl,omitempty"`
	AudioURL        string         `json:"audioUrl,omitempty"`
	Placeholder     bool           `json:"placeholder"`
	GenerationError string         `json:"generationError,omitempty"`
	// Err is a hard failure (object or document store); the variant produced nothing usable
	Err error `json:"-"`
}

// UploadRequest is one multipart upload
type UploadRequest struct {
	UserID        string
	LearningStyle string
	Filename      string
	ContentType   string
	Size          int64
	Body          io.Reader
}

// FileService sequences upload, extraction, generation, rendering and persistence for file records
type FileService struct {
	files       domain.FileRepository
	objects     domain.ObjectStore
	extractor   *TextExtractor
	generator   *ContentGenerator
	speech      domain.SpeechSynthesizer
	maxFileSize int64
	clock       domain.Clock
	logger      domain.Logger
}

// NewFileService creates the orchestrator. speech may be nil.
func NewFileService(
	files domain.FileRepository,
	objects domain.ObjectStore,
	extractor *TextExtractor,
	generator *ContentGenerator,
	speech domain.SpeechSynthesizer,
	maxFileSize int64,
	clock domain.Clock,
	logger domain.Logger,
) *FileService {
	if clock == nil {
		clock = time.Now
	}
	return &FileService{
		files:       files,
		objects:     objects,
		extractor:   extractor,
		generator:   generator,
		speech:      speech,
		maxFileSize: maxFileSize,
		clock:       clock,
		logger:      logger,
	}
}

// Upload stores the binary under users/{userId}/{fileId}/{filename} and writes an uploaded record
func (s *FileService) Upload(ctx context.Context, req UploadRequest) (*domain.FileRecord, error) {
	if strings.TrimSpace(req.UserID) == "" {
		return nil, domain.NewValidationError("userId", "is required")
	}
	filename := filepath.Base(strings.TrimSpace(req.Filename))
	if filename == "" || filename == "." || filename == "/" {
		return nil, domain.NewValidationError("file", "no file selected")
	}
	if !domain.IsAllowedFile(filename) {
		return nil, domain.NewValidationError("file", domain.ErrUnsupportedFileType.Error())
	}
	if req.Size > s.maxFileSize {
		return nil, domain.NewValidationError("file", fmt.Sprintf("file exceeds maximum size of %d bytes", s.maxFileSize))
	}
	style := req.LearningStyle
	if style == "" {
		style = string(domain.VariantVisual)
	}
	variant, err := domain.ParseVariant(style)
	if err != nil {
		return nil, domain.NewValidationError("learningStyle", err.Error())
	}

	contentType := req.ContentType
	if contentType == "" || contentType == "application/octet-stream" {
		if byExt := mime.TypeByExtension(filepath.Ext(filename)); byExt != "" {
			contentType = byExt
		}
	}

	id := uuid.New().String()
	path := domain.UploadPath(req.UserID, id, filename)
	url, err := s.objects.Upload(ctx, path, req.Body, req.Size, contentType)
	if err != nil {
		return nil, apperrors.NewExternalServiceError("object store", err)
	}

	now := s.clock().UTC()
	file := &domain.FileRecord{
		ID:            id,
		Name:          filename,
		Type:          contentType,
		Size:          req.Size,
		StoragePath:   path,
		DownloadURL:   url,
		UserID:        req.UserID,
		LearningStyle: variant,
		Status:        domain.FileStatusUploaded,
		CreatedAt:     now,
		UpdatedAt:     now,
	}
	if err := s.files.Create(ctx, file); err != nil {
		if derr := s.objects.Delete(ctx, path); derr != nil {
			s.logger.Warn("Failed to remove orphaned upload", "path", path, "error", derr)
		}
		return nil, storeError(err)
	}

	s.logger.Info("File uploaded", "fileId", id, "userId", req.UserID, "size", req.Size)
	return file, nil
}

// Get returns one file record
func (s *FileService) Get(ctx context.Context, id string) (*domain.FileRecord, error) {
	file, err := s.files.Get(ctx, id)
	if err != nil {
		return nil, storeError(err)
	}
	return file, nil
}

// List returns a user's files, newest first
func (s *FileService) List(ctx context.Context, userID string) ([]*domain.FileRecord, error) {
	if strings.TrimSpace(userID) == "" {
		return nil, domain.NewValidationError("userId", "is required")
	}
	files, err := s.files.ListByUser(ctx, userID)
	if err != nil {
		return nil, storeError(err)
	}
	return files, nil
}

// Delete removes the record and every stored object that belongs to it
func (s *FileService) Delete(ctx context.Context, id string) error {
	file, err := s.files.Get(ctx, id)
	if err != nil {
		return storeError(err)
	}
	for _, p := range []string{file.StoragePath, file.ReadingWritingDocxPath, file.ReadingWritingPdfPath} {
		if p == "" {
			continue
		}
		if err := s.objects.Delete(ctx, p); err != nil && !errors.Is(err, domain.ErrNotFound) {
			s.logger.Warn("Failed to delete stored object", "fileId", id, "path", p, "error", err)
		}
	}
	if err := s.files.Delete(ctx, id); err != nil {
		return storeError(err)
	}
	s.logger.Info("File deleted", "fileId", id)
	return nil
}

// UpdateLearningStyle changes the declared learning style of a file
func (s *FileService) UpdateLearningStyle(ctx context.Context, id, style string) (*domain.FileRecord, error) {
	if strings.TrimSpace(style) == "" {
		return nil, domain.NewValidationError("learningStyle", "not provided")
	}
	variant, err := domain.ParseVariant(style)
	if err != nil {
		return nil, domain.NewValidationError("learningStyle", err.Error())
	}
	if err := s.files.Update(ctx, id, map[string]interface{}{"learningStyle": variant}); err != nil {
		return nil, storeError(err)
	}
	return s.Get(ctx, id)
}

// URL returns the public URL of the original upload
func (s *FileService) URL(ctx context.Context, id string) (string, error) {
	file, err := s.Get(ctx, id)
	if err != nil {
		return "", err
	}
	if file.StoragePath == "" {
		return "", domain.ErrNotFound
	}
	return s.objects.PublicURL(file.StoragePath), nil
}

// Download returns the original upload
func (s *FileService) Download(ctx context.Context, id string) (*domain.FileRecord, []byte, error) {
	file, err := s.Get(ctx, id)
	if err != nil {
		return nil, nil, err
	}
	data, err := s.objects.Download(ctx, file.StoragePath)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return nil, nil, apperrors.NewNotFoundError("file not available in storage")
		}
		return nil, nil, apperrors.NewExternalServiceError("object store", err)
	}
	return file, data, nil
}

// DownloadRendered returns the rendered study guide in format docx or pdf
func (s *FileService) DownloadRendered(ctx context.Context, id, format string) ([]byte, string, string, error) {
	format = strings.ToLower(format)
	if format != "docx" && format != "pdf" {
		return nil, "", "", domain.NewValidationError("format", "must be docx or pdf")
	}
	file, err := s.Get(ctx, id)
	if err != nil {
		return nil, "", "", err
	}
	path, contentType := file.ReadingWritingDocxPath, docxContentType
	if format == "pdf" {
		path, contentType = file.ReadingWritingPdfPath, pdfContentType
	}
	if path == "" {
		return nil, "", "", domain.ErrNotProcessed
	}
	data, err := s.objects.Download(ctx, path)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return nil, "", "", domain.ErrNotProcessed
		}
		return nil, "", "", apperrors.NewExternalServiceError("object store", err)
	}
	name := strings.TrimSuffix(file.Name, filepath.Ext(file.Name)) + "_study_guide." + format
	return data, name, contentType, nil
}

// ProcessVariant runs a single variant and fails with the variant's hard error, if any
func (s *FileService) ProcessVariant(ctx context.Context, id string, variant domain.Variant) (*VariantResult, error) {
	results, err := s.Process(ctx, id, []domain.Variant{variant})
	if err != nil {
		return nil, err
	}
	res := results[variant]
	if res.Err != nil {
		return nil, res.Err
	}
	return res, nil
}

// Process moves the file to processing, extracts its text once and generates each variant concurrently.
// Variants persist their own fields; a failing variant leaves the others in place and marks the file failed.
// Work continues after the caller's context is cancelled, bounded by processingTimeout.
func (s *FileService) Process(ctx context.Context, id string, variants []domain.Variant) (map[domain.Variant]*VariantResult, error) {
	ctx, cancel := detach(ctx, processingTimeout)
	defer cancel()

	file, err := s.files.Get(ctx, id)
	if err != nil {
		return nil, storeError(err)
	}

	if file.Status != domain.FileStatusProcessing {
		if err := file.TransitionTo(domain.FileStatusProcessing); err != nil {
			return nil, apperrors.NewInternalError("cannot start processing", err)
		}
		if err := s.files.Update(ctx, id, map[string]interface{}{
			"status":          file.Status,
			"processed":       false,
			"processingError": "",
		}); err != nil {
			return nil, storeError(err)
		}
	}
	s.logger.Info("Processing file", "fileId", id, "variants", variants)

	text, err := s.extract(ctx, file)
	if err != nil {
		s.finish(ctx, file, err)
		return nil, err
	}

	var (
		mu      sync.Mutex
		results = make(map[domain.Variant]*VariantResult, len(variants))
	)
	g, gctx := errgroup.WithContext(ctx)
	for _, v := range variants {
		v := v
		g.Go(func() error {
			res := s.generate(gctx, file, v, text)
			mu.Lock()
			results[v] = res
			mu.Unlock()
			return nil
		})
	}
	_ = g.Wait()

	var failures []string
	for _, v := range variants {
		if res := results[v]; res.Err != nil {
			failures = append(failures, fmt.Sprintf("%s: %v", v, res.Err))
		}
	}
	var procErr error
	if len(failures) > 0 {
		procErr = errors.New(strings.Join(failures, "; "))
	}
	s.finish(ctx, file, procErr)
	return results, nil
}

func (s *FileService) extract(ctx context.Context, file *domain.FileRecord) (string, error) {
	if file.StoragePath == "" {
		return "", domain.NewValidationError("storagePath", "not found")
	}
	data, err := s.objects.Download(ctx, file.StoragePath)
	if err != nil {
		return "", apperrors.NewExternalServiceError("object store", err)
	}
	return s.extractor.Extract(file.Name, data)
}

// finish records the terminal status; cause nil means completed
func (s *FileService) finish(ctx context.Context, file *domain.FileRecord, cause error) {
	ctx, cancel := detach(ctx, statusWriteTimeout)
	defer cancel()

	next, msg := domain.FileStatusCompleted, ""
	if cause != nil {
		next, msg = domain.FileStatusFailed, cause.Error()
	}
	if err := file.TransitionTo(next); err != nil {
		s.logger.Error("Invalid status transition", err, "fileId", file.ID)
		return
	}
	if err := s.files.Update(ctx, file.ID, map[string]interface{}{
		"status":          file.Status,
		"processed":       file.Processed,
		"processingError": msg,
	}); err != nil {
		s.logger.Error("Failed to record file status", err, "fileId", file.ID, "status", next)
	}
}

func (s *FileService) generate(ctx context.Context, file *domain.FileRecord, v domain.Variant, text string) *VariantResult {
	res := &VariantResult{Variant: v}
	fields := map[string]interface{}{}

	var genErr, renderErr error
	switch v {
	case domain.VariantReadingWriting:
		var content *domain.TextContent
		content, genErr = s.generator.ReadingWriting(ctx, text)
		res.Content, res.Placeholder = content, content.Placeholder
		fields["readingWritingContent"] = content
		fields["renderError"] = ""
		if renderErr = s.renderStudyGuide(ctx, file, content, res, fields); renderErr != nil {
			s.logger.Error("Failed to render study guide", renderErr, "fileId", file.ID)
			fields["renderError"] = renderErr.Error()
		}
	case domain.VariantAuditory:
		var content *domain.TextContent
		content, genErr = s.generator.Auditory(ctx, text)
		s.narrate(ctx, file, content)
		res.Content, res.Placeholder, res.AudioURL = content, content.Placeholder, content.AudioURL
		fields["auditoryContent"] = content
		fields["audioUrl"] = content.AudioURL
	case domain.VariantKinesthetic:
		var content *domain.KinestheticContent
		content, genErr = s.generator.Kinesthetic(ctx, text)
		res.Content, res.Placeholder = content, content.Placeholder
		fields["kinestheticContent"] = content
	case domain.VariantVisual:
		var content *domain.VisualContent
		content, genErr = s.generator.Visual(ctx, text)
		res.Content, res.Placeholder = content, content.Placeholder
		fields["visualContent"] = content
	default:
		res.Err = domain.NewValidationError("variant", fmt.Sprintf("unknown variant %q", v))
		return res
	}

	if genErr != nil {
		res.GenerationError = genErr.Error()
	}

	// generated content is kept even when rendering failed
	fields["generationErrors."+string(v)] = res.GenerationError
	if err := s.files.Update(ctx, file.ID, fields); err != nil {
		s.logger.Error("Failed to store variant content", err, "fileId", file.ID, "variant", v)
		res.Err = storeError(err)
		return res
	}
	if renderErr != nil {
		res.Err = renderErr
	}
	return res
}

func (s *FileService) renderStudyGuide(ctx context.Context, file *domain.FileRecord, content *domain.TextContent, res *VariantResult, fields map[string]interface{}) error {
	title := strings.TrimSuffix(file.Name, filepath.Ext(file.Name))
	if title == "" {
		title = "Study Guide"
	}
	rendered, err := render.Render(title, content.Body())
	if err != nil {
		return apperrors.NewInternalError("failed to render study guide", err)
	}

	docxPath := domain.RenderedPath(file.UserID, file.ID, "docx")
	pdfPath := domain.RenderedPath(file.UserID, file.ID, "pdf")
	docxURL, err := s.objects.Upload(ctx, docxPath, bytes.NewReader(rendered.DOCX), int64(len(rendered.DOCX)), docxContentType)
	if err != nil {
		return apperrors.NewExternalServiceError("object store", err)
	}
	res.DocxURL = docxURL
	fields["readingWritingDocxUrl"] = docxURL
	fields["readingWritingDocxPath"] = docxPath

	pdfURL, err := s.objects.Upload(ctx, pdfPath, bytes.NewReader(rendered.PDF), int64(len(rendered.PDF)), pdfContentType)
	if err != nil {
		return apperrors.NewExternalServiceError("object store", err)
	}
	res.PdfURL = pdfURL
	fields["readingWritingPdfUrl"] = pdfURL
	fields["readingWritingPdfPath"] = pdfPath
	return nil
}

// narrate synthesizes and stores audio; any failure leaves text-only content with an explanation
func (s *FileService) narrate(ctx context.Context, file *domain.FileRecord, content *domain.TextContent) {
	if content.Placeholder || s.speech == nil {
		content.Explanation = speechUnavailable
		return
	}
	audio, err := s.speech.Synthesize(ctx, content.Body())
	if err != nil {
		s.logger.Warn("Speech synthesis failed", "fileId", file.ID, "error", err)
		content.Explanation = "Audio narration could not be generated: " + err.Error()
		return
	}
	path := domain.AudioPath(file.ID, s.clock())
	url, err := s.objects.Upload(ctx, path, bytes.NewReader(audio), int64(len(audio)), mp3ContentType)
	if err != nil {
		s.logger.Warn("Audio upload failed", "fileId", file.ID, "error", err)
		content.Explanation = "Audio narration could not be stored: " + err.Error()
		return
	}
	content.AudioURL = url
}

// GenerateSummary summarises the document and stores it on the record
func (s *FileService) GenerateSummary(ctx context.Context, id string) (string, bool, error) {
	ctx, cancel := detach(ctx, processingTimeout)
	defer cancel()

	file, err := s.Get(ctx, id)
	if err != nil {
		return "", false, err
	}
	text, err := s.extract(ctx, file)
	if err != nil {
		return "", false, err
	}
	summary, genErr := s.generator.Summary(ctx, text)
	if genErr != nil {
		s.logger.Warn("Summary generation failed, storing placeholder", "fileId", id, "error", genErr)
	}
	if err := s.files.Update(ctx, id, map[string]interface{}{"summary": summary}); err != nil {
		return "", false, storeError(err)
	}
	return summary, genErr != nil, nil
}

// GenerateQuiz builds a quiz of quizType and stores it under quizzes.{quizType}
func (s *FileService) GenerateQuiz(ctx context.Context, id, quizType string) (*domain.Quiz, error) {
	if quizType == "" {
		quizType = domain.QuizMultipleChoice
	}
	if quizType != domain.QuizMultipleChoice && quizType != domain.QuizFillInBlank {
		return nil, domain.NewValidationError("quiz_type", "must be multiple_choice or fill_in_blank")
	}
	ctx, cancel := detach(ctx, processingTimeout)
	defer cancel()

	file, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	text, err := s.extract(ctx, file)
	if err != nil {
		return nil, err
	}
	quiz, genErr := s.generator.Quiz(ctx, text, quizType)
	if genErr != nil {
		s.logger.Warn("Quiz generation failed, storing placeholder", "fileId", id, "quizType", quizType, "error", genErr)
	}
	if err := s.files.Update(ctx, id, map[string]interface{}{"quizzes." + quizType: quiz}); err != nil {
		return nil, storeError(err)
	}
	return quiz, nil
}

// detach returns a context that ignores the caller's cancellation but still expires after d
func detach(ctx context.Context, d time.Duration) (context.Context, context.CancelFunc) {
	return context.WithTimeout(context.WithoutCancel(ctx), d)
}

// storeError passes domain sentinels through and wraps anything else as a document store failure
func storeError(err error) error {
	var verr *domain.ValidationError
	switch {
	case errors.Is(err, domain.ErrFileNotFound), errors.Is(err, domain.ErrUserNotFound), errors.Is(err, domain.ErrNotFound), errors.As(err, &verr):
		return err
	default:
		if _, ok := apperrors.As(err); ok {
			return err
		}
		return apperrors.NewExternalServiceError("document store", err)
	}
}
