package handler

import (
	"errors"
	"net/http"

	"learnlink-server/internal/config"
	"learnlink-server/internal/domain"
	"learnlink-server/internal/service"
)

// UserHandler serves user identity, learning style and quiz score endpoints
type UserHandler struct {
	users  *service.UserService
	logger domain.Logger
}

// NewUserHandler creates a new user handler
func NewUserHandler(container *config.Container) *UserHandler {
	return &UserHandler{users: container.Users, logger: container.Logger}
}

// CheckUser reports whether an account exists for the email
func (h *UserHandler) CheckUser(w http.ResponseWriter, r *http.Request) {
	var body emailBody
	if err := decodeJSON(r, &body); err != nil {
		writeAppError(w, h.logger, r, err)
		return
	}
	exists, id, err := h.users.CheckUser(r.Context(), body.Email)
	if err != nil {
		writeAppError(w, h.logger, r, err)
		return
	}
	resp := map[string]interface{}{"success": true, "exists": exists}
	if exists {
		resp["user_id"] = id
	}
	writeJSON(w, http.StatusOK, resp)
}

// Signup creates a new account
func (h *UserHandler) Signup(w http.ResponseWriter, r *http.Request) {
	var req service.SignupRequest
	if err := decodeJSON(r, &req); err != nil {
		writeAppError(w, h.logger, r, err)
		return
	}
	user, err := h.users.Signup(r.Context(), req)
	if err != nil {
		writeAppError(w, h.logger, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, map[string]interface{}{
		"success": true,
		"message": "User created successfully",
		"user_id": user.ID,
	})
}

// StoreLearningStyle saves a questionnaire result, creating the user when needed
func (h *UserHandler) StoreLearningStyle(w http.ResponseWriter, r *http.Request) {
	var req service.LearningStyleRequest
	if err := decodeJSON(r, &req); err != nil {
		writeAppError(w, h.logger, r, err)
		return
	}
	created, err := h.users.StoreLearningStyle(r.Context(), req)
	if err != nil {
		writeAppError(w, h.logger, r, err)
		return
	}
	status, msg := http.StatusOK, "Learning style updated successfully"
	if created {
		status, msg = http.StatusCreated, "User created with learning style"
	}
	writeJSON(w, status, map[string]interface{}{"success": true, "message": msg})
}

// PredictLearningStyle classifies free text into a learning style
func (h *UserHandler) PredictLearningStyle(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Text  string `json:"text"`
		Email string `json:"email"`
	}
	if err := decodeJSON(r, &body); err != nil {
		writeAppError(w, h.logger, r, err)
		return
	}
	style, err := h.users.PredictLearningStyle(r.Context(), body.Text, body.Email)
	if err != nil {
		writeAppError(w, h.logger, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"success": true, "learning_style": style})
}

// LearningStyle returns the user's style chart; unknown users get 404 with the default chart
func (h *UserHandler) LearningStyle(w http.ResponseWriter, r *http.Request) {
	var body emailBody
	if err := decodeJSON(r, &body); err != nil {
		writeAppError(w, h.logger, r, err)
		return
	}
	profile, err := h.users.LearningStyle(r.Context(), body.Email)
	if errors.Is(err, domain.ErrUserNotFound) {
		writeJSON(w, http.StatusNotFound, map[string]interface{}{
			"success":      false,
			"error":        "User not found",
			"primaryStyle": profile.PrimaryStyle,
			"styles":       profile.Styles,
		})
		return
	}
	if err != nil {
		writeAppError(w, h.logger, r, err)
		return
	}
	writeJSON(w, http.StatusOK, struct {
		Success bool `json:"success"`
		*service.StyleProfile
	}{true, profile})
}

// StoreQuizScore appends one quiz result to the user's history
func (h *UserHandler) StoreQuizScore(w http.ResponseWriter, r *http.Request) {
	var req service.QuizScoreRequest
	if err := decodeJSON(r, &req); err != nil {
		writeAppError(w, h.logger, r, err)
		return
	}
	created, err := h.users.StoreQuizScore(r.Context(), req)
	if err != nil {
		writeAppError(w, h.logger, r, err)
		return
	}
	status := http.StatusOK
	if created {
		status = http.StatusCreated
	}
	writeJSON(w, status, map[string]interface{}{"success": true, "message": "Quiz score stored successfully"})
}

// QuizScores lists the user's quiz history
func (h *UserHandler) QuizScores(w http.ResponseWriter, r *http.Request) {
	var body emailBody
	if err := decodeJSON(r, &body); err != nil {
		writeAppError(w, h.logger, r, err)
		return
	}
	scores, err := h.users.QuizScores(r.Context(), body.Email)
	if errors.Is(err, domain.ErrUserNotFound) {
		writeJSON(w, http.StatusNotFound, map[string]interface{}{
			"success":    false,
			"error":      "User not found",
			"quizScores": []domain.QuizScore{},
		})
		return
	}
	if err != nil {
		writeAppError(w, h.logger, r, err)
		return
	}
	if scores == nil {
		scores = []domain.QuizScore{}
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"success": true, "quizScores": scores})
}
