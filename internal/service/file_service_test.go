package service

import (
	"context"
	"errors"
	"io"
	"strings"
	"testing"
	"time"

	"learnlink-server/internal/domain"
	"learnlink-server/internal/infra/objectstore"
	"learnlink-server/internal/repository"
	apperrors "learnlink-server/pkg/errors"
	"learnlink-server/pkg/logger"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

const maxTestUpload = 1 << 20

type fileFixture struct {
	svc     *FileService
	files   *repository.FileRepository
	objects *objectstore.LocalStore
}

func newFileFixture(t *testing.T, text domain.TextGenerator, speech domain.SpeechSynthesizer) *fileFixture {
	t.Helper()
	log := logger.NewNop()
	objects, err := objectstore.NewLocalStore(t.TempDir(), "http://localhost:8080")
	require.NoError(t, err)
	files := repository.NewFileRepository(repository.NewMemoryStore(), log)
	clock := func() time.Time { return time.Date(2024, 1, 1, 10, 0, 0, 0, time.UTC) }
	svc := NewFileService(files, objects, NewTextExtractor(log), NewContentGenerator(text, nil, log), speech, maxTestUpload, clock, log)
	return &fileFixture{svc: svc, files: files, objects: objects}
}

func (f *fileFixture) upload(t *testing.T, name, body string) *domain.FileRecord {
	t.Helper()
	rec, err := f.svc.Upload(context.Background(), UploadRequest{
		UserID:        "user-1",
		LearningStyle: "reading_writing",
		Filename:      name,
		ContentType:   "text/plain",
		Size:          int64(len(body)),
		Body:          strings.NewReader(body),
	})
	require.NoError(t, err)
	return rec
}

type stubSpeech struct {
	audio []byte
	err   error
	calls int
}

func (s *stubSpeech) Synthesize(ctx context.Context, text string) ([]byte, error) {
	s.calls++
	return s.audio, s.err
}

func TestUpload_StoresObjectAndRecord(t *testing.T) {
	f := newFileFixture(t, nil, nil)
	rec := f.upload(t, "notes.txt", sampleText)

	assert.Equal(t, domain.FileStatusUploaded, rec.Status)
	assert.Equal(t, domain.VariantReadingWriting, rec.LearningStyle)
	assert.Equal(t, "users/user-1/"+rec.ID+"/notes.txt", rec.StoragePath)
	assert.Equal(t, "http://localhost:8080/objects/"+rec.StoragePath, rec.DownloadURL)

	data, err := f.objects.Download(context.Background(), rec.StoragePath)
	require.NoError(t, err)
	assert.Equal(t, sampleText, string(data))

	stored, err := f.svc.Get(context.Background(), rec.ID)
	require.NoError(t, err)
	assert.Equal(t, "notes.txt", stored.Name)
}

func TestUpload_Validation(t *testing.T) {
	f := newFileFixture(t, nil, nil)

	tests := []struct {
		name string
		req  UploadRequest
	}{
		{"missing user", UploadRequest{Filename: "a.txt", Body: strings.NewReader("x"), Size: 1}},
		{"bad extension", UploadRequest{UserID: "u", Filename: "a.exe", Body: strings.NewReader("x"), Size: 1}},
		{"too large", UploadRequest{UserID: "u", Filename: "a.txt", Body: strings.NewReader("x"), Size: maxTestUpload + 1}},
		{"bad style", UploadRequest{UserID: "u", Filename: "a.txt", LearningStyle: "telepathic", Body: strings.NewReader("x"), Size: 1}},
		{"no file", UploadRequest{UserID: "u", Filename: "", Body: strings.NewReader("x"), Size: 1}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := f.svc.Upload(context.Background(), tt.req)
			var verr *domain.ValidationError
			assert.True(t, errors.As(err, &verr), "got %v", err)
		})
	}
}

func TestUpload_DefaultsToVisual(t *testing.T) {
	f := newFileFixture(t, nil, nil)
	rec, err := f.svc.Upload(context.Background(), UploadRequest{
		UserID: "u", Filename: "a.txt", Size: 5, Body: strings.NewReader("hello"),
	})
	require.NoError(t, err)
	assert.Equal(t, domain.VariantVisual, rec.LearningStyle)
}

func TestProcessVariant_ReadingWritingWithoutBackend(t *testing.T) {
	f := newFileFixture(t, nil, nil)
	ctx := context.Background()
	rec := f.upload(t, "notes.txt", sampleText)

	res, err := f.svc.ProcessVariant(ctx, rec.ID, domain.VariantReadingWriting)
	require.NoError(t, err)
	assert.True(t, res.Placeholder)
	assert.NotEmpty(t, res.GenerationError)

	content, ok := res.Content.(*domain.TextContent)
	require.True(t, ok)
	assert.True(t, strings.HasPrefix(content.Body(), "# Document Study Guide"))
	assert.Contains(t, content.Body(), "photosynthesis")
	assert.NotEmpty(t, res.DocxURL)
	assert.NotEmpty(t, res.PdfURL)

	stored, err := f.svc.Get(ctx, rec.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.FileStatusCompleted, stored.Status)
	assert.True(t, stored.Processed)
	assert.Equal(t, res.DocxURL, stored.ReadingWritingDocxURL)
	assert.Equal(t, res.GenerationError, stored.GenerationErrs[domain.VariantReadingWriting])
	require.NotNil(t, stored.ReadingWritingContent)

	docx, name, ctype, err := f.svc.DownloadRendered(ctx, rec.ID, "docx")
	require.NoError(t, err)
	assert.Equal(t, "notes_study_guide.docx", name)
	assert.Equal(t, docxContentType, ctype)
	assert.True(t, strings.HasPrefix(string(docx), "PK"))

	pdf, _, _, err := f.svc.DownloadRendered(ctx, rec.ID, "pdf")
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(string(pdf), "%PDF"))
}

func TestProcess_AllVariantsWithBackend(t *testing.T) {
	gen := &scriptedGenerator{respond: func(req domain.CompletionRequest) (string, error) {
		switch {
		case strings.Contains(req.System, "kinesthetic") || strings.Contains(req.Prompt, "Reflection Questions"):
			return "Title: Leaf Lab\nDescription: Look closely.\nMaterials:\n- Leaves\nSteps:\n1. Collect\n2. Inspect\nTips:\n- Go slow\nReflection Questions:\n- Why green?", nil
		case req.JSON:
			return `{"concepts":[{"title":"Light","text":"Energy from the sun"}]}`, nil
		default:
			return "Generated text.", nil
		}
	}}
	speech := &stubSpeech{audio: []byte("ID3 audio")}
	f := newFileFixture(t, gen, speech)
	ctx := context.Background()
	rec := f.upload(t, "notes.txt", sampleText)

	results, err := f.svc.Process(ctx, rec.ID, domain.AllVariants)
	require.NoError(t, err)
	require.Len(t, results, 4)
	for v, res := range results {
		assert.NoError(t, res.Err, v)
		assert.Empty(t, res.GenerationError, v)
	}

	audio := results[domain.VariantAuditory]
	assert.Equal(t, 1, speech.calls)
	assert.Equal(t, "http://localhost:8080/objects/audio/"+rec.ID+"/audio_explanation_1704103200.mp3", audio.AudioURL)

	stored, err := f.svc.Get(ctx, rec.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.FileStatusCompleted, stored.Status)
	assert.Equal(t, audio.AudioURL, stored.AudioURL)
	require.NotNil(t, stored.VisualContent)
	require.NotNil(t, stored.KinestheticContent)
	assert.False(t, stored.KinestheticContent.Placeholder)
}

func TestProcess_SpeechFailureKeepsText(t *testing.T) {
	gen := &scriptedGenerator{respond: func(req domain.CompletionRequest) (string, error) { return "Narration.", nil }}
	f := newFileFixture(t, gen, &stubSpeech{err: errors.New("tts down")})
	rec := f.upload(t, "notes.txt", sampleText)

	res, err := f.svc.ProcessVariant(context.Background(), rec.ID, domain.VariantAuditory)
	require.NoError(t, err)
	content := res.Content.(*domain.TextContent)
	assert.Empty(t, content.AudioURL)
	assert.Contains(t, content.Explanation, "tts down")
	assert.Equal(t, "Narration.", content.Body())
}

func TestProcess_ExtractionFailureMarksFailed(t *testing.T) {
	f := newFileFixture(t, nil, nil)
	ctx := context.Background()
	rec := f.upload(t, "broken.docx", "not a zip")

	_, err := f.svc.Process(ctx, rec.ID, domain.AllVariants)
	require.Error(t, err)
	assert.True(t, apperrors.IsType(err, apperrors.ErrorTypeExtraction))

	stored, err := f.svc.Get(ctx, rec.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.FileStatusFailed, stored.Status)
	assert.NotEmpty(t, stored.ProcessingError)

	// failed files may be processed again
	_, err = f.svc.Process(ctx, rec.ID, domain.AllVariants)
	require.Error(t, err)
}

func TestProcess_UnknownFile(t *testing.T) {
	f := newFileFixture(t, nil, nil)
	_, err := f.svc.Process(context.Background(), "missing", domain.AllVariants)
	assert.ErrorIs(t, err, domain.ErrFileNotFound)
}

func TestDownloadRendered_NotProcessed(t *testing.T) {
	f := newFileFixture(t, nil, nil)
	rec := f.upload(t, "notes.txt", sampleText)

	_, _, _, err := f.svc.DownloadRendered(context.Background(), rec.ID, "pdf")
	assert.ErrorIs(t, err, domain.ErrNotProcessed)

	_, _, _, err = f.svc.DownloadRendered(context.Background(), rec.ID, "odt")
	var verr *domain.ValidationError
	assert.True(t, errors.As(err, &verr))
}

func TestGenerateSummaryAndQuiz(t *testing.T) {
	f := newFileFixture(t, nil, nil)
	ctx := context.Background()
	rec := f.upload(t, "notes.txt", sampleText)

	summary, placeholder, err := f.svc.GenerateSummary(ctx, rec.ID)
	require.NoError(t, err)
	assert.True(t, placeholder)
	assert.True(t, strings.HasPrefix(summary, "## Summary"))

	quiz, err := f.svc.GenerateQuiz(ctx, rec.ID, domain.QuizFillInBlank)
	require.NoError(t, err)
	assert.Len(t, quiz.Questions, 5)

	stored, err := f.svc.Get(ctx, rec.ID)
	require.NoError(t, err)
	assert.Equal(t, summary, stored.Summary)
	require.Contains(t, stored.Quizzes, domain.QuizFillInBlank)
	assert.Equal(t, domain.FileStatusUploaded, stored.Status)

	_, err = f.svc.GenerateQuiz(ctx, rec.ID, "essay")
	var verr *domain.ValidationError
	assert.True(t, errors.As(err, &verr))
}

func TestDeleteRemovesObjects(t *testing.T) {
	f := newFileFixture(t, nil, nil)
	ctx := context.Background()
	rec := f.upload(t, "notes.txt", sampleText)
	_, err := f.svc.ProcessVariant(ctx, rec.ID, domain.VariantReadingWriting)
	require.NoError(t, err)

	require.NoError(t, f.svc.Delete(ctx, rec.ID))

	_, err = f.svc.Get(ctx, rec.ID)
	assert.ErrorIs(t, err, domain.ErrFileNotFound)
	_, err = f.objects.Download(ctx, rec.StoragePath)
	assert.ErrorIs(t, err, domain.ErrNotFound)
	_, err = f.objects.Download(ctx, domain.RenderedPath("user-1", rec.ID, "pdf"))
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestListAndUpdateLearningStyle(t *testing.T) {
	f := newFileFixture(t, nil, nil)
	ctx := context.Background()
	rec := f.upload(t, "notes.txt", sampleText)

	files, err := f.svc.List(ctx, "user-1")
	require.NoError(t, err)
	require.Len(t, files, 1)

	updated, err := f.svc.UpdateLearningStyle(ctx, rec.ID, "kinesthetic")
	require.NoError(t, err)
	assert.Equal(t, domain.VariantKinesthetic, updated.LearningStyle)

	_, err = f.svc.UpdateLearningStyle(ctx, rec.ID, "")
	var verr *domain.ValidationError
	assert.True(t, errors.As(err, &verr))

	url, err := f.svc.URL(ctx, rec.ID)
	require.NoError(t, err)
	assert.Equal(t, rec.DownloadURL, url)
}

// failingUploads rejects uploads whose path matches fail
type failingUploads struct {
	domain.ObjectStore
	fail func(path string) bool
}

func (f *failingUploads) Upload(ctx context.Context, path string, r io.Reader, size int64, contentType string) (string, error) {
	if f.fail(path) {
		return "", errors.New("bucket quota exceeded")
	}
	return f.ObjectStore.Upload(ctx, path, r, size, contentType)
}

func (f *fileFixture) withObjects(objects domain.ObjectStore) *FileService {
	log := logger.NewNop()
	return NewFileService(f.files, objects, NewTextExtractor(log), NewContentGenerator(nil, nil, log), nil, maxTestUpload, nil, log)
}

func TestProcess_RenderFailureKeepsGeneratedContent(t *testing.T) {
	f := newFileFixture(t, nil, nil)
	ctx := context.Background()
	rec := f.upload(t, "notes.txt", sampleText)

	svc := f.withObjects(&failingUploads{ObjectStore: f.objects, fail: func(path string) bool {
		return strings.HasPrefix(path, "processed/")
	}})
	_, err := svc.ProcessVariant(ctx, rec.ID, domain.VariantReadingWriting)
	require.Error(t, err)
	assert.True(t, apperrors.IsType(err, apperrors.ErrorTypeExternalService))
	assert.Equal(t, 1, strings.Count(err.Error(), "bucket quota exceeded"), err.Error())

	stored, err := f.svc.Get(ctx, rec.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.FileStatusFailed, stored.Status)
	require.NotNil(t, stored.ReadingWritingContent)
	assert.Contains(t, stored.ReadingWritingContent.Body(), "# Document Study Guide")
	assert.NotEmpty(t, stored.GenerationErrs[domain.VariantReadingWriting])
	assert.Contains(t, stored.RenderError, "bucket quota exceeded")
	assert.Empty(t, stored.ReadingWritingDocxURL)
	assert.Empty(t, stored.ReadingWritingPdfURL)
}

func TestProcess_PdfUploadFailureKeepsDocx(t *testing.T) {
	f := newFileFixture(t, nil, nil)
	ctx := context.Background()
	rec := f.upload(t, "notes.txt", sampleText)

	svc := f.withObjects(&failingUploads{ObjectStore: f.objects, fail: func(path string) bool {
		return strings.HasSuffix(path, ".pdf")
	}})
	_, err := svc.ProcessVariant(ctx, rec.ID, domain.VariantReadingWriting)
	require.Error(t, err)

	stored, err := f.svc.Get(ctx, rec.ID)
	require.NoError(t, err)
	assert.NotEmpty(t, stored.ReadingWritingDocxURL)
	assert.Empty(t, stored.ReadingWritingPdfURL)
	assert.NotEmpty(t, stored.RenderError)

	_, _, _, err = f.svc.DownloadRendered(ctx, rec.ID, "docx")
	assert.NoError(t, err)
	_, _, _, err = f.svc.DownloadRendered(ctx, rec.ID, "pdf")
	assert.ErrorIs(t, err, domain.ErrNotProcessed)

	// a later successful render clears the error
	_, err = f.svc.ProcessVariant(ctx, rec.ID, domain.VariantReadingWriting)
	require.NoError(t, err)
	stored, err = f.svc.Get(ctx, rec.ID)
	require.NoError(t, err)
	assert.Empty(t, stored.RenderError)
	assert.Equal(t, domain.FileStatusCompleted, stored.Status)
}

// cancellingGenerator cancels the request that started processing, then answers only on a live context
type cancellingGenerator struct {
	cancel context.CancelFunc
}

func (g *cancellingGenerator) Complete(ctx context.Context, req domain.CompletionRequest) (string, error) {
	g.cancel()
	if err := ctx.Err(); err != nil {
		return "", err
	}
	return "## Generated section", nil
}

func TestProcess_SurvivesRequestCancellation(t *testing.T) {
	reqCtx, cancel := context.WithCancel(context.Background())
	defer cancel()
	f := newFileFixture(t, &cancellingGenerator{cancel: cancel}, nil)
	rec := f.upload(t, "notes.txt", sampleText)

	results, err := f.svc.Process(reqCtx, rec.ID, []domain.Variant{domain.VariantReadingWriting, domain.VariantAuditory})
	require.NoError(t, err)
	require.Error(t, reqCtx.Err())
	for v, res := range results {
		assert.NoError(t, res.Err, v)
		assert.Empty(t, res.GenerationError, v)
		assert.False(t, res.Placeholder, v)
	}

	stored, err := f.svc.Get(context.Background(), rec.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.FileStatusCompleted, stored.Status)
	require.NotNil(t, stored.AuditoryContent)
	assert.False(t, stored.AuditoryContent.Placeholder)
}

func TestGenerateQuiz_LogsGenerationFailure(t *testing.T) {
	core, logs := observer.New(zapcore.WarnLevel)
	log := logger.NewFromZap(zap.New(core))
	f := newFileFixture(t, nil, nil)
	rec := f.upload(t, "notes.txt", sampleText)

	failing := &scriptedGenerator{respond: func(req domain.CompletionRequest) (string, error) {
		return "", errors.New("model overloaded")
	}}
	svc := NewFileService(f.files, f.objects, NewTextExtractor(log), NewContentGenerator(failing, nil, log), nil, maxTestUpload, nil, log)

	quiz, err := svc.GenerateQuiz(context.Background(), rec.ID, domain.QuizMultipleChoice)
	require.NoError(t, err)
	assert.True(t, quiz.Placeholder)

	entries := logs.FilterMessage("Quiz generation failed, storing placeholder").All()
	require.Len(t, entries, 1)
	assert.Contains(t, entries[0].ContextMap()["error"], "model overloaded")
}
