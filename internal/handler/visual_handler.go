package handler

import (
	"net/http"

	"learnlink-server/internal/config"
	"learnlink-server/internal/domain"
	"learnlink-server/internal/service"
)

// VisualHandler serves image lookup and concept helpers
type VisualHandler struct {
	visual *service.VisualService
	logger domain.Logger
}

// NewVisualHandler creates a new visual handler
func NewVisualHandler(container *config.Container) *VisualHandler {
	return &VisualHandler{visual: container.Visual, logger: container.Logger}
}

// ImageForTopic returns one educational image for a topic
func (h *VisualHandler) ImageForTopic(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Topic string `json:"topic"`
	}
	if err := decodeJSON(r, &body); err != nil {
		writeAppError(w, h.logger, r, err)
		return
	}
	url, placeholder, err := h.visual.ImageForTopic(r.Context(), body.Topic)
	if err != nil {
		writeAppError(w, h.logger, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"success":     true,
		"imageUrl":    url,
		"placeholder": placeholder,
	})
}

// VisualConcepts extracts key concepts from ?fileId= or ?topic=
func (h *VisualHandler) VisualConcepts(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	concepts, placeholder, err := h.visual.VisualConcepts(r.Context(), q.Get("fileId"), q.Get("topic"))
	if err != nil {
		writeAppError(w, h.logger, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"success":     true,
		"concepts":    concepts,
		"placeholder": placeholder,
	})
}

// GenerateVisuals builds concepts and visual study suggestions from free text
func (h *VisualHandler) GenerateVisuals(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Text string `json:"text"`
	}
	if err := decodeJSON(r, &body); err != nil {
		writeAppError(w, h.logger, r, err)
		return
	}
	content, err := h.visual.GenerateVisuals(r.Context(), body.Text)
	if err != nil {
		writeAppError(w, h.logger, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"success":     true,
		"concepts":    content.Explanations,
		"suggestions": content.Suggestions,
		"placeholder": content.Placeholder,
	})
}

// ConceptImage draws the SVG card for ?title=
func (h *VisualHandler) ConceptImage(w http.ResponseWriter, r *http.Request) {
	svg := service.ConceptSVG(r.URL.Query().Get("title"))
	w.Header().Set("Content-Type", "image/svg+xml")
	w.Header().Set("Cache-Control", "public, max-age=86400")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(svg)
}
