package handler

import (
	"net/http"

	"learnlink-server/internal/config"
	"learnlink-server/internal/domain"
	"learnlink-server/internal/service"
)

// ProgressHandler serves streak, study time and leaderboard endpoints
type ProgressHandler struct {
	progress *service.ProgressService
	logger   domain.Logger
}

// NewProgressHandler creates a new progress handler
func NewProgressHandler(container *config.Container) *ProgressHandler {
	return &ProgressHandler{progress: container.Progress, logger: container.Logger}
}

// LoginStreak records a login and returns the streak counters
func (h *ProgressHandler) LoginStreak(w http.ResponseWriter, r *http.Request) {
	var body emailBody
	if err := decodeJSON(r, &body); err != nil {
		writeAppError(w, h.logger, r, err)
		return
	}
	streak, longest, err := h.progress.LoginStreak(r.Context(), body.Email)
	if err != nil {
		writeAppError(w, h.logger, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"success":       true,
		"streak":        streak,
		"longestStreak": longest,
	})
}

// RecordTime appends a finished study session
func (h *ProgressHandler) RecordTime(w http.ResponseWriter, r *http.Request) {
	var req service.RecordTimeRequest
	if err := decodeJSON(r, &req); err != nil {
		writeAppError(w, h.logger, r, err)
		return
	}
	res, err := h.progress.RecordTime(r.Context(), req)
	if err != nil {
		writeAppError(w, h.logger, r, err)
		return
	}
	writeJSON(w, http.StatusOK, struct {
		Success bool   `json:"success"`
		Message string `json:"message"`
		*service.RecordTimeResult
	}{true, "Study time recorded", res})
}

// TimeStats summarises the last week of study time
func (h *ProgressHandler) TimeStats(w http.ResponseWriter, r *http.Request) {
	var body emailBody
	if err := decodeJSON(r, &body); err != nil {
		writeAppError(w, h.logger, r, err)
		return
	}
	stats, err := h.progress.TimeStats(r.Context(), body.Email)
	if err != nil {
		writeAppError(w, h.logger, r, err)
		return
	}
	writeJSON(w, http.StatusOK, struct {
		Success bool `json:"success"`
		*service.TimeStats
	}{true, stats})
}

// CurrentWeekTime returns the minutes studied in the current ISO week
func (h *ProgressHandler) CurrentWeekTime(w http.ResponseWriter, r *http.Request) {
	var body emailBody
	if err := decodeJSON(r, &body); err != nil {
		writeAppError(w, h.logger, r, err)
		return
	}
	week, err := h.progress.CurrentWeekTime(r.Context(), body.Email)
	if err != nil {
		writeAppError(w, h.logger, r, err)
		return
	}
	writeJSON(w, http.StatusOK, struct {
		Success bool `json:"success"`
		*service.CurrentWeek
	}{true, week})
}

// WeeklyStats returns the last six ISO weeks, oldest first
func (h *ProgressHandler) WeeklyStats(w http.ResponseWriter, r *http.Request) {
	var body emailBody
	if err := decodeJSON(r, &body); err != nil {
		writeAppError(w, h.logger, r, err)
		return
	}
	stats, err := h.progress.WeeklyStats(r.Context(), body.Email)
	if err != nil {
		writeAppError(w, h.logger, r, err)
		return
	}
	writeJSON(w, http.StatusOK, struct {
		Success bool `json:"success"`
		*service.WeeklyStats
	}{true, stats})
}

// Leaderboard returns the current snapshot
func (h *ProgressHandler) Leaderboard(w http.ResponseWriter, r *http.Request) {
	board, err := h.progress.Leaderboard(r.Context())
	if err != nil {
		writeAppError(w, h.logger, r, err)
		return
	}
	writeLeaderboard(w, board)
}

// UpdateLeaderboard rebuilds the snapshot from every user
func (h *ProgressHandler) UpdateLeaderboard(w http.ResponseWriter, r *http.Request) {
	board, err := h.progress.RebuildLeaderboard(r.Context())
	if err != nil {
		writeAppError(w, h.logger, r, err)
		return
	}
	writeLeaderboard(w, board)
}

func writeLeaderboard(w http.ResponseWriter, board *domain.Leaderboard) {
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"success":         true,
		"topStreaks":      board.TopStreaks,
		"topLearningTime": board.TopLearningTime,
		"lastUpdated":     board.LastUpdated,
	})
}
