package service

import (
	"context"
	"errors"
	"math"
	"sort"
	"strings"
	"sync"
	"time"

	"learnlink-server/internal/domain"
)

const (
	// sessions at least this long trigger a leaderboard rebuild
	leaderboardTriggerMinutes = 10
	recentSessionWindow       = 7 * 24 * time.Hour
	recentSessionLimit        = 10
	weeklyStatsWeeks          = 6
	leaderboardRebuildTimeout = 10 * time.Second
)

// RecordTimeRequest is one finished study session
type RecordTimeRequest struct {
	Email           string   `json:"email"`
	DurationMinutes *float64 `json:"durationMinutes"`
	SessionStart    string   `json:"sessionStart"`
	SessionEnd      string   `json:"sessionEnd"`
	ActivityType    string   `json:"activityType"`
}

// RecordTimeResult is returned after a session was recorded
type RecordTimeResult struct {
	TotalTimeSpent  float64                      `json:"totalTimeSpent"`
	SessionDuration float64                      `json:"sessionDuration"`
	WeeklyStats     map[string]domain.WeeklyStat `json:"weeklyStats"`
	CurrentWeekTime float64                      `json:"currentWeekTime"`
}

// DailyTime is the study time of one calendar day
type DailyTime struct {
	Date    string  `json:"date"`
	Minutes float64 `json:"minutes"`
}

// TimeStats summarises a user's recent study time
type TimeStats struct {
	TotalTimeSpent    float64            `json:"totalTimeSpent"`
	CurrentWeekTime   float64            `json:"currentWeekTime"`
	IsNewWeek         bool               `json:"isNewWeek"`
	CurrentWeekKey    string             `json:"currentWeekKey"`
	LastWeekTracked   string             `json:"lastWeekTracked,omitempty"`
	ActivityBreakdown map[string]float64 `json:"activityBreakdown"`
	DailyTime         []DailyTime        `json:"dailyTime"`
	RecentSessions    []domain.Session   `json:"recentSessions"`
}

// CurrentWeek is the study time of the current ISO week
type CurrentWeek struct {
	CurrentWeekTime float64 `json:"currentWeekTime"`
	IsNewWeek       bool    `json:"isNewWeek"`
	CurrentWeekKey  string  `json:"currentWeekKey"`
}

// WeekSummary is one row of the weekly chart
type WeekSummary struct {
	WeekID     string             `json:"weekId"`
	StartDate  string             `json:"startDate"`
	EndDate    string             `json:"endDate"`
	Hours      float64            `json:"hours"`
	Minutes    float64            `json:"minutes"`
	ActiveDays int                `json:"activeDays"`
	Activities map[string]float64 `json:"activities"`
}

// WeekHours is the compact form used by the hours chart
type WeekHours struct {
	Week  string  `json:"week"`
	Hours float64 `json:"hours"`
}

// WeeklyStats covers the last six ISO weeks, oldest first
type WeeklyStats struct {
	TotalTimeSpent float64       `json:"totalTimeSpent"`
	WeeklyStats    []WeekSummary `json:"weeklyStats"`
	HoursByWeek    []WeekHours   `json:"hoursByWeek"`
}

// ProgressService tracks streaks, study time and the leaderboard
type ProgressService struct {
	users       domain.UserRepository
	leaderboard domain.LeaderboardRepository
	clock       domain.Clock
	logger      domain.Logger

	rebuilds sync.WaitGroup
}

// NewProgressService creates a progress service
func NewProgressService(users domain.UserRepository, leaderboard domain.LeaderboardRepository, clock domain.Clock, logger domain.Logger) *ProgressService {
	if clock == nil {
		clock = time.Now
	}
	return &ProgressService{users: users, leaderboard: leaderboard, clock: clock, logger: logger}
}

func (s *ProgressService) user(ctx context.Context, email string) (*domain.User, error) {
	email, err := requireEmail(email)
	if err != nil {
		return nil, err
	}
	u, err := s.users.GetByEmail(ctx, email)
	if err != nil {
		return nil, storeError(err)
	}
	return u, nil
}

// LoginStreak registers a login now and returns the current and longest streak
func (s *ProgressService) LoginStreak(ctx context.Context, email string) (int, int, error) {
	u, err := s.user(ctx, email)
	if err != nil {
		return 0, 0, err
	}
	u.ApplyLogin(s.clock())
	if err := s.users.Update(ctx, u.ID, map[string]interface{}{
		"lastLoginDate": u.LastLoginDate,
		"currentStreak": u.CurrentStreak,
		"longestStreak": u.LongestStreak,
	}); err != nil {
		return 0, 0, storeError(err)
	}
	return u.CurrentStreak, u.LongestStreak, nil
}

// RecordTime appends a session to the user's stats
func (s *ProgressService) RecordTime(ctx context.Context, req RecordTimeRequest) (*RecordTimeResult, error) {
	if strings.TrimSpace(req.Email) == "" {
		return nil, domain.NewValidationError("email", "is required")
	}
	if req.DurationMinutes == nil {
		return nil, domain.NewValidationError("durationMinutes", "is required")
	}
	duration := *req.DurationMinutes
	if duration < 0 {
		return nil, domain.NewValidationError("durationMinutes", "must not be negative")
	}
	activity := req.ActivityType
	if activity == "" {
		activity = "session"
	}

	u, err := s.user(ctx, req.Email)
	if err != nil {
		return nil, err
	}
	u.RecordSession(duration, req.SessionStart, req.SessionEnd, activity, s.clock())
	if err := s.users.Update(ctx, u.ID, map[string]interface{}{
		"stats":      u.Stats,
		"lastActive": u.LastActive,
	}); err != nil {
		return nil, storeError(err)
	}

	if duration >= leaderboardTriggerMinutes {
		s.rebuilds.Add(1)
		go func() {
			defer s.rebuilds.Done()
			ctx, cancel := context.WithTimeout(context.Background(), leaderboardRebuildTimeout)
			defer cancel()
			if _, err := s.RebuildLeaderboard(ctx); err != nil {
				s.logger.Error("Background leaderboard rebuild failed", err)
			}
		}()
	}

	weekly := u.Stats.WeeklyStats
	if weekly == nil {
		weekly = map[string]domain.WeeklyStat{}
	}
	return &RecordTimeResult{
		TotalTimeSpent:  u.Stats.TotalTimeSpent,
		SessionDuration: duration,
		WeeklyStats:     weekly,
		CurrentWeekTime: u.Stats.CurrentWeekTime,
	}, nil
}

// Wait blocks until background leaderboard rebuilds have finished
func (s *ProgressService) Wait() {
	s.rebuilds.Wait()
}

// TimeStats summarises total, weekly and daily study time of the last seven days
func (s *ProgressService) TimeStats(ctx context.Context, email string) (*TimeStats, error) {
	u, err := s.user(ctx, email)
	if err != nil {
		return nil, err
	}
	now := s.clock()
	weekKey := domain.WeekKey(now)
	since := now.Add(-recentSessionWindow)

	recent := []domain.Session{}
	daily := map[string]float64{}
	for _, sess := range u.Stats.Sessions {
		started, err := domain.ParseSessionTime(sess.StartTime)
		if err != nil || started.Before(since) {
			continue
		}
		recent = append(recent, sess)
		daily[started.Format("2006-01-02")] += sess.DurationMinutes
	}
	if len(recent) > recentSessionLimit {
		recent = recent[len(recent)-recentSessionLimit:]
	}

	days := make([]DailyTime, 0, len(daily))
	for date, minutes := range daily {
		days = append(days, DailyTime{Date: date, Minutes: minutes})
	}
	sort.Slice(days, func(i, j int) bool { return days[i].Date < days[j].Date })

	breakdown := u.Stats.ActivityBreakdown
	if breakdown == nil {
		breakdown = map[string]float64{}
	}
	return &TimeStats{
		TotalTimeSpent:    u.Stats.TotalTimeSpent,
		CurrentWeekTime:   u.Stats.CurrentWeekTime,
		IsNewWeek:         u.Stats.LastWeekTracked != weekKey,
		CurrentWeekKey:    weekKey,
		LastWeekTracked:   u.Stats.LastWeekTracked,
		ActivityBreakdown: breakdown,
		DailyTime:         days,
		RecentSessions:    recent,
	}, nil
}

// CurrentWeekTime returns the minutes of the current ISO week
func (s *ProgressService) CurrentWeekTime(ctx context.Context, email string) (*CurrentWeek, error) {
	u, err := s.user(ctx, email)
	if err != nil {
		return nil, err
	}
	key := domain.WeekKey(s.clock())
	minutes := u.Stats.CurrentWeekTime
	if week, ok := u.Stats.WeeklyStats[key]; ok {
		minutes = week.TotalMinutes
	}
	return &CurrentWeek{
		CurrentWeekTime: minutes,
		IsNewWeek:       u.Stats.LastWeekTracked != key,
		CurrentWeekKey:  key,
	}, nil
}

// WeeklyStats returns the last six ISO weeks including the current one, oldest first
func (s *ProgressService) WeeklyStats(ctx context.Context, email string) (*WeeklyStats, error) {
	u, err := s.user(ctx, email)
	if err != nil {
		return nil, err
	}
	today := s.clock()

	out := &WeeklyStats{
		TotalTimeSpent: u.Stats.TotalTimeSpent,
		WeeklyStats:    make([]WeekSummary, 0, weeklyStatsWeeks),
		HoursByWeek:    make([]WeekHours, 0, weeklyStatsWeeks),
	}
	for i := weeklyStatsWeeks - 1; i >= 0; i-- {
		day := today.AddDate(0, 0, -7*i)
		key := domain.WeekKey(day)
		monday, sunday := domain.ISOWeekBounds(day)
		week := u.Stats.WeeklyStats[key]
		activities := week.Activities
		if activities == nil {
			activities = map[string]float64{}
		}
		hours := math.Round(week.TotalMinutes/60*10) / 10
		out.WeeklyStats = append(out.WeeklyStats, WeekSummary{
			WeekID:     key,
			StartDate:  monday.Format("2006-01-02"),
			EndDate:    sunday.Format("2006-01-02"),
			Hours:      hours,
			Minutes:    week.TotalMinutes,
			ActiveDays: len(week.ActiveDays),
			Activities: activities,
		})
		out.HoursByWeek = append(out.HoursByWeek, WeekHours{Week: key, Hours: hours})
	}
	return out, nil
}

// Leaderboard returns the stored snapshot, creating an empty one when none exists
func (s *ProgressService) Leaderboard(ctx context.Context) (*domain.Leaderboard, error) {
	board, err := s.leaderboard.Get(ctx)
	if err == nil {
		return board, nil
	}
	if !errors.Is(err, domain.ErrNotFound) {
		return nil, storeError(err)
	}
	board = &domain.Leaderboard{TopStreaks: []domain.StreakEntry{}, TopLearningTime: []domain.TimeEntry{}}
	if err := s.leaderboard.Save(ctx, board); err != nil {
		return nil, storeError(err)
	}
	return board, nil
}

// RebuildLeaderboard ranks every user and replaces the snapshot
func (s *ProgressService) RebuildLeaderboard(ctx context.Context) (*domain.Leaderboard, error) {
	users, err := s.users.List(ctx)
	if err != nil {
		return nil, storeError(err)
	}
	board := domain.BuildLeaderboard(users, s.clock().UTC())
	if err := s.leaderboard.Save(ctx, board); err != nil {
		return nil, storeError(err)
	}
	s.logger.Info("Leaderboard rebuilt", "streaks", len(board.TopStreaks), "learningTime", len(board.TopLearningTime))
	return board, nil
}
