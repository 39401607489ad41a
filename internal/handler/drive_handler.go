package handler

import (
	"net/http"
	"net/url"
	"strings"

	"learnlink-server/internal/config"
	"learnlink-server/internal/domain"
	"learnlink-server/internal/service"

	"github.com/gorilla/mux"
)

// DriveHandler serves the OAuth flow and the per-user file hosting endpoints
type DriveHandler struct {
	drive       *service.DriveService
	frontendURL string
	maxFileSize int64
	logger      domain.Logger
}

// NewDriveHandler creates a new drive handler
func NewDriveHandler(container *config.Container) *DriveHandler {
	return &DriveHandler{
		drive:       container.Drive,
		frontendURL: container.Config.GetFrontendURL(),
		maxFileSize: container.Config.GetMaxFileSize(),
		logger:      container.Logger,
	}
}

// AuthURL returns the consent URL; ?email= marks that identity pending
func (h *DriveHandler) AuthURL(w http.ResponseWriter, r *http.Request) {
	authURL := h.drive.Credentials().AuthorizationURL(r.URL.Query().Get("email"))
	writeJSON(w, http.StatusOK, map[string]interface{}{"success": true, "auth_url": authURL})
}

// Callback exchanges the grant code and sends the browser back to the frontend
func (h *DriveHandler) Callback(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	if msg := q.Get("error"); msg != "" {
		h.finishCallback(w, r, "", domain.NewValidationError("oauth", msg))
		return
	}
	cred, err := h.drive.Credentials().HandleCallback(r.Context(), q.Get("code"), q.Get("state"))
	if err != nil {
		h.logger.Warn("OAuth callback failed", "error", err)
		h.finishCallback(w, r, "", err)
		return
	}
	h.finishCallback(w, r, cred.Identity, nil)
}

func (h *DriveHandler) finishCallback(w http.ResponseWriter, r *http.Request, email string, err error) {
	if h.frontendURL == "" {
		if err != nil {
			writeAppError(w, h.logger, r, err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]interface{}{"success": true, "email": email, "authenticated": true})
		return
	}

	params := url.Values{}
	if err != nil {
		_, msg, _ := errorStatus(err)
		params.Set("auth", "error")
		params.Set("message", msg)
	} else {
		params.Set("auth", "success")
		params.Set("email", email)
	}
	sep := "?"
	if strings.Contains(h.frontendURL, "?") {
		sep = "&"
	}
	http.Redirect(w, r, h.frontendURL+sep+params.Encode(), http.StatusFound)
}

// AuthStatus reports whether ?email= holds a live credential
func (h *DriveHandler) AuthStatus(w http.ResponseWriter, r *http.Request) {
	email := r.URL.Query().Get("email")
	if strings.TrimSpace(email) == "" {
		writeError(w, http.StatusBadRequest, "email: is required")
		return
	}
	creds := h.drive.Credentials()
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"success":       true,
		"authenticated": creds.IsAuthenticated(r.Context(), email),
		"state":         creds.State(r.Context(), email),
	})
}

// Logout forgets the user's credential
func (h *DriveHandler) Logout(w http.ResponseWriter, r *http.Request) {
	var body emailBody
	if err := decodeJSON(r, &body); err != nil {
		writeAppError(w, h.logger, r, err)
		return
	}
	if strings.TrimSpace(body.Email) == "" {
		writeError(w, http.StatusBadRequest, "email: is required")
		return
	}
	if err := h.drive.Credentials().Logout(r.Context(), body.Email); err != nil {
		writeAppError(w, h.logger, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"success": true, "message": "Logged out"})
}

// Upload stores a multipart file in the user's hosted folder
func (h *DriveHandler) Upload(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, h.maxFileSize+multipartOverhead)
	if err := r.ParseMultipartForm(32 << 20); err != nil {
		writeError(w, http.StatusBadRequest, "no file part in request")
		return
	}
	file, header, err := r.FormFile("file")
	if err != nil {
		writeError(w, http.StatusBadRequest, "no file part in request")
		return
	}
	defer file.Close()

	f, err := h.drive.Upload(r.Context(), r.FormValue("email"), header.Filename,
		header.Header.Get("Content-Type"), r.FormValue("learningStyle"), file)
	if err != nil {
		writeAppError(w, h.logger, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, map[string]interface{}{"success": true, "file": f})
}

// Files lists the user's hosted files
func (h *DriveHandler) Files(w http.ResponseWriter, r *http.Request) {
	files, err := h.drive.List(r.Context(), r.URL.Query().Get("email"))
	if err != nil {
		writeAppError(w, h.logger, r, err)
		return
	}
	if files == nil {
		files = []domain.DriveFile{}
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"success": true, "files": files})
}

// Download streams one hosted file
func (h *DriveHandler) Download(w http.ResponseWriter, r *http.Request) {
	meta, data, err := h.drive.Download(r.Context(), r.URL.Query().Get("email"), mux.Vars(r)["id"])
	if err != nil {
		writeAppError(w, h.logger, r, err)
		return
	}
	writeAttachment(w, meta.Name, meta.MimeType, data)
}

// Delete removes one hosted file
func (h *DriveHandler) Delete(w http.ResponseWriter, r *http.Request) {
	if err := h.drive.Delete(r.Context(), r.URL.Query().Get("email"), mux.Vars(r)["id"]); err != nil {
		writeAppError(w, h.logger, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"success": true, "message": "File deleted successfully"})
}
