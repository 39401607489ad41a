package handler

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strings"

	"learnlink-server/internal/config"
	"learnlink-server/internal/domain"
	"learnlink-server/internal/service"

	"github.com/gorilla/mux"
)

// multipartOverhead is allowed on top of the file size for form fields and boundaries
const multipartOverhead = 1 << 20

// FileHandler handles uploads, file records and per-variant content generation
type FileHandler struct {
	files       *service.FileService
	maxFileSize int64
	logger      domain.Logger
}

// NewFileHandler creates a new file handler
func NewFileHandler(container *config.Container) *FileHandler {
	return &FileHandler{
		files:       container.Files,
		maxFileSize: container.Config.GetMaxFileSize(),
		logger:      container.Logger,
	}
}

// Upload stores a multipart file and creates its record
func (h *FileHandler) Upload(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, h.maxFileSize+multipartOverhead)
	if err := r.ParseMultipartForm(32 << 20); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			writeError(w, http.StatusBadRequest, "file exceeds maximum upload size")
			return
		}
		writeError(w, http.StatusBadRequest, "no file part in request")
		return
	}
	file, header, err := r.FormFile("file")
	if err != nil {
		writeError(w, http.StatusBadRequest, "no file part in request")
		return
	}
	defer file.Close()

	record, err := h.files.Upload(r.Context(), service.UploadRequest{
		UserID:        r.FormValue("userId"),
		LearningStyle: r.FormValue("learningStyle"),
		Filename:      header.Filename,
		ContentType:   header.Header.Get("Content-Type"),
		Size:          header.Size,
		Body:          file,
	})
	if err != nil {
		writeAppError(w, h.logger, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, map[string]interface{}{
		"success": true,
		"message": "File uploaded successfully",
		"fileId":  record.ID,
		"file":    record,
	})
}

// List returns a user's files, newest first. The user comes from the path or ?userId=.
func (h *FileHandler) List(w http.ResponseWriter, r *http.Request) {
	userID := mux.Vars(r)["userId"]
	if userID == "" {
		userID = r.URL.Query().Get("userId")
	}
	files, err := h.files.List(r.Context(), userID)
	if err != nil {
		writeAppError(w, h.logger, r, err)
		return
	}
	if files == nil {
		files = []*domain.FileRecord{}
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"success": true, "files": files})
}

// Get returns one file record
func (h *FileHandler) Get(w http.ResponseWriter, r *http.Request) {
	file, err := h.files.Get(r.Context(), mux.Vars(r)["id"])
	if err != nil {
		writeAppError(w, h.logger, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"success": true, "file": file})
}

// Delete removes the record and its stored objects
func (h *FileHandler) Delete(w http.ResponseWriter, r *http.Request) {
	if err := h.files.Delete(r.Context(), mux.Vars(r)["id"]); err != nil {
		writeAppError(w, h.logger, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"success": true, "message": "File deleted successfully"})
}

// UpdateStyle changes the file's declared learning style
func (h *FileHandler) UpdateStyle(w http.ResponseWriter, r *http.Request) {
	var body struct {
		LearningStyle string `json:"learningStyle"`
	}
	if err := decodeJSON(r, &body); err != nil {
		writeAppError(w, h.logger, r, err)
		return
	}
	file, err := h.files.UpdateLearningStyle(r.Context(), mux.Vars(r)["id"], body.LearningStyle)
	if err != nil {
		writeAppError(w, h.logger, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"success": true, "file": file})
}

// URL returns the public URL of the original upload
func (h *FileHandler) URL(w http.ResponseWriter, r *http.Request) {
	url, err := h.files.URL(r.Context(), mux.Vars(r)["id"])
	if err != nil {
		writeAppError(w, h.logger, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"success": true, "url": url})
}

// Download streams the original upload
func (h *FileHandler) Download(w http.ResponseWriter, r *http.Request) {
	file, data, err := h.files.Download(r.Context(), mux.Vars(r)["id"])
	if err != nil {
		writeAppError(w, h.logger, r, err)
		return
	}
	writeAttachment(w, file.Name, file.Type, data)
}

// DownloadRendered streams the rendered study guide as docx or pdf
func (h *FileHandler) DownloadRendered(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)
	data, name, contentType, err := h.files.DownloadRendered(r.Context(), vars["id"], vars["format"])
	if err != nil {
		writeAppError(w, h.logger, r, err)
		return
	}
	writeAttachment(w, name, contentType, data)
}

// Process generates every variant of the file concurrently
func (h *FileHandler) Process(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]
	results, err := h.files.Process(r.Context(), id, domain.AllVariants)
	if err != nil {
		writeAppError(w, h.logger, r, err)
		return
	}

	var failures []string
	var firstErr error
	for _, v := range domain.AllVariants {
		if res := results[v]; res.Err != nil {
			failures = append(failures, string(v)+": "+res.Err.Error())
			if firstErr == nil {
				firstErr = res.Err
			}
		}
	}
	if firstErr != nil {
		status, _, _ := errorStatus(firstErr)
		h.logger.Error("File processing failed", firstErr, "fileId", id)
		writeJSON(w, status, map[string]interface{}{
			"success":  false,
			"error":    strings.Join(failures, "; "),
			"variants": results,
		})
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"success": true, "fileId": id, "variants": results})
}

// ProcessVariant returns the handler generating a single variant
func (h *FileHandler) ProcessVariant(variant domain.Variant) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		res, err := h.files.ProcessVariant(r.Context(), mux.Vars(r)["id"], variant)
		if err != nil {
			writeAppError(w, h.logger, r, err)
			return
		}
		writeJSON(w, http.StatusOK, struct {
			Success bool `json:"success"`
			*service.VariantResult
		}{true, res})
	}
}

// GenerateSummary summarises the document
func (h *FileHandler) GenerateSummary(w http.ResponseWriter, r *http.Request) {
	summary, placeholder, err := h.files.GenerateSummary(r.Context(), mux.Vars(r)["id"])
	if err != nil {
		writeAppError(w, h.logger, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"success":     true,
		"summary":     summary,
		"placeholder": placeholder,
	})
}

// GenerateQuiz builds a multiple choice or fill-in-the-blank quiz. An empty body selects multiple choice.
func (h *FileHandler) GenerateQuiz(w http.ResponseWriter, r *http.Request) {
	var body struct {
		QuizType    string `json:"quizType"`
		QuizTypeAlt string `json:"quiz_type"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil && !errors.Is(err, io.EOF) {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	quizType := body.QuizType
	if quizType == "" {
		quizType = body.QuizTypeAlt
	}
	quiz, err := h.files.GenerateQuiz(r.Context(), mux.Vars(r)["id"], quizType)
	if err != nil {
		writeAppError(w, h.logger, r, err)
		return
	}
	writeJSON(w, http.StatusOK, struct {
		Success bool `json:"success"`
		*domain.Quiz
	}{true, quiz})
}
