package handler

import (
	"net/http"

	"learnlink-server/internal/config"
	"learnlink-server/internal/domain"
	"learnlink-server/internal/service"

	"github.com/gorilla/mux"
)

// PreferenceHandler handles preference-related HTTP requests
type PreferenceHandler struct {
	preferences *service.PreferenceService
	logger      domain.Logger
}

// NewPreferenceHandler creates a new preference handler
func NewPreferenceHandler(container *config.Container) *PreferenceHandler {
	return &PreferenceHandler{preferences: container.Preferences, logger: container.Logger}
}

// GetLearningStyle returns the user's default style
func (h *PreferenceHandler) GetLearningStyle(w http.ResponseWriter, r *http.Request) {
	userID := mux.Vars(r)["userId"]
	style, err := h.preferences.DefaultStyle(r.Context(), userID)
	if err != nil {
		writeAppError(w, h.logger, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"success": true, "defaultStyle": style})
}

// SetLearningStyle stores the user's default style
func (h *PreferenceHandler) SetLearningStyle(w http.ResponseWriter, r *http.Request) {
	userID := mux.Vars(r)["userId"]
	var body struct {
		DefaultStyle string `json:"defaultStyle"`
	}
	if err := decodeJSON(r, &body); err != nil {
		writeAppError(w, h.logger, r, err)
		return
	}
	if err := h.preferences.SetDefaultStyle(r.Context(), userID, body.DefaultStyle); err != nil {
		writeAppError(w, h.logger, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"success": true, "defaultStyle": body.DefaultStyle})
}

// GetSubjects lists subject to style mappings
func (h *PreferenceHandler) GetSubjects(w http.ResponseWriter, r *http.Request) {
	userID := mux.Vars(r)["userId"]
	subjects, err := h.preferences.Subjects(r.Context(), userID)
	if err != nil {
		writeAppError(w, h.logger, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"success": true, "subjects": subjects})
}

// SetSubject maps one subject to a style
func (h *PreferenceHandler) SetSubject(w http.ResponseWriter, r *http.Request) {
	userID := mux.Vars(r)["userId"]
	var body domain.SubjectPreference
	if err := decodeJSON(r, &body); err != nil {
		writeAppError(w, h.logger, r, err)
		return
	}
	if err := h.preferences.SetSubject(r.Context(), userID, body.Subject, body.LearningStyle); err != nil {
		writeAppError(w, h.logger, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"success": true, "message": "Subject preference saved"})
}

// DeleteSubject removes one subject mapping
func (h *PreferenceHandler) DeleteSubject(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)
	if err := h.preferences.DeleteSubject(r.Context(), vars["userId"], vars["subject"]); err != nil {
		writeAppError(w, h.logger, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"success": true, "message": "Subject preference removed"})
}

// GetEffectiveness returns per-style quiz averages and the recommended style
func (h *PreferenceHandler) GetEffectiveness(w http.ResponseWriter, r *http.Request) {
	userID := mux.Vars(r)["userId"]
	eff, err := h.preferences.Effectiveness(r.Context(), userID)
	if err != nil {
		writeAppError(w, h.logger, r, err)
		return
	}
	writeJSON(w, http.StatusOK, struct {
		Success bool `json:"success"`
		*service.Effectiveness
	}{true, eff})
}

// TrackEffectiveness records one quiz result against a style
func (h *PreferenceHandler) TrackEffectiveness(w http.ResponseWriter, r *http.Request) {
	userID := mux.Vars(r)["userId"]
	var entry domain.EffectivenessEntry
	if err := decodeJSON(r, &entry); err != nil {
		writeAppError(w, h.logger, r, err)
		return
	}
	if err := h.preferences.TrackEffectiveness(r.Context(), userID, entry); err != nil {
		writeAppError(w, h.logger, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"success": true, "message": "Learning effectiveness tracked"})
}
