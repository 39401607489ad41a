package domain

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"
)

// SchemaVersion is stamped on every record written by this service
const SchemaVersion = 1

// MaxSessions is how many session records a user keeps
const MaxSessions = 50

// User represents a learner. Email is the identity key.
type User struct {
	ID                     string             `json:"id"`
	SchemaVersion          int                `json:"schemaVersion"`
	Email                  string             `json:"email"`
	UID                    string             `json:"uid,omitempty"`
	Name                   string             `json:"name,omitempty"`
	DisplayName            string             `json:"displayName,omitempty"`
	AuthProvider           string             `json:"authProvider,omitempty"`
	PhotoURL               string             `json:"photoURL,omitempty"`
	LearningStyle          string             `json:"learningStyle,omitempty"`
	LearningStyleDetails   map[string]float64 `json:"learningStyleDetails,omitempty"`
	LearningStyleUpdatedAt *time.Time         `json:"learningStyleUpdatedAt,omitempty"`
	CurrentStreak          int                `json:"currentStreak"`
	LongestStreak          int                `json:"longestStreak"`
	LastLoginDate          *time.Time         `json:"lastLoginDate,omitempty"`
	LastActive             *time.Time         `json:"lastActive,omitempty"`
	Stats                  UserStats          `json:"stats"`
	QuizScores             []QuizScore        `json:"quizScores,omitempty"`
	CreatedAt              time.Time          `json:"createdAt"`
	UpdatedAt              time.Time          `json:"updatedAt"`
}

// UserStats holds time tracking data
type UserStats struct {
	TotalTimeSpent    float64               `json:"totalTimeSpent"`
	CurrentWeekTime   float64               `json:"currentWeekTime"`
	LastWeekTracked   string                `json:"lastWeekTracked,omitempty"`
	WeeklyStats       map[string]WeeklyStat `json:"weeklyStats,omitempty"`
	Sessions          []Session             `json:"sessions,omitempty"`
	ActivityBreakdown map[string]float64    `json:"activityBreakdown,omitempty"`
}

// WeeklyStat is the per ISO-week bucket
type WeeklyStat struct {
	TotalMinutes float64            `json:"totalMinutes"`
	ActiveDays   []string           `json:"activeDays"`
	Activities   map[string]float64 `json:"activities"`
}

// Session is one recorded study session
type Session struct {
	StartTime       string  `json:"startTime,omitempty"`
	EndTime         string  `json:"endTime,omitempty"`
	DurationMinutes float64 `json:"durationMinutes"`
	Type            string  `json:"type"`
}

// QuizScore is one stored quiz result
type QuizScore struct {
	QuizID         string    `json:"quizId"`
	QuizName       string    `json:"quizName"`
	Score          float64   `json:"score"`
	CorrectAnswers int       `json:"correctAnswers"`
	TotalQuestions int       `json:"totalQuestions"`
	Percentage     float64   `json:"percentage"`
	DocumentID     string    `json:"documentId,omitempty"`
	Timestamp      time.Time `json:"timestamp"`
}

// StyleShare is one slice of the learning style chart
type StyleShare struct {
	Name       string `json:"name"`
	Percentage int    `json:"percentage"`
}

// UserRepository persists users
type UserRepository interface {
	Create(ctx context.Context, user *User) error
	GetByID(ctx context.Context, id string) (*User, error)
	GetByEmail(ctx context.Context, email string) (*User, error)
	Update(ctx context.Context, id string, fields map[string]interface{}) error
	List(ctx context.Context) ([]*User, error)
}

// Validate checks the fields every stored user must have
func (u *User) Validate() error {
	if u.ID == "" {
		return NewValidationError("id", "is required")
	}
	if !IsValidEmail(u.Email) {
		return NewValidationError("email", "must be a valid email address")
	}
	return nil
}

// Username is the name shown on leaderboards
func (u *User) Username() string {
	if u.DisplayName != "" {
		return u.DisplayName
	}
	if u.Name != "" {
		return u.Name
	}
	return strings.SplitN(u.Email, "@", 2)[0]
}

// IsValidEmail performs a basic local@domain.tld check
func IsValidEmail(email string) bool {
	parts := strings.Split(email, "@")
	if len(parts) != 2 || parts[0] == "" || parts[1] == "" {
		return false
	}
	domain := parts[1]
	dot := strings.LastIndex(domain, ".")
	return dot > 0 && dot < len(domain)-1
}

// ApplyLogin updates the streak counters for a login at now.
// Same calendar day keeps the streak, the next day extends it, any gap resets it to 1.
func (u *User) ApplyLogin(now time.Time) {
	if u.LastLoginDate == nil {
		u.CurrentStreak = 1
		u.LongestStreak = maxInt(1, u.LongestStreak)
	} else {
		switch daysBetween(*u.LastLoginDate, now) {
		case 0:
			if u.CurrentStreak == 0 {
				u.CurrentStreak = 1
			}
		case 1:
			u.CurrentStreak++
		default:
			u.CurrentStreak = 1
		}
		u.LongestStreak = maxInt(u.CurrentStreak, u.LongestStreak)
	}
	t := now
	u.LastLoginDate = &t
}

// RecordSession adds a session to the stats and updates the ISO-week bucket of its start time.
// A session whose start time cannot be parsed still counts toward the total.
func (u *User) RecordSession(duration float64, start, end, activityType string, now time.Time) {
	s := &u.Stats
	s.TotalTimeSpent += duration

	s.Sessions = append(s.Sessions, Session{StartTime: start, EndTime: end, DurationMinutes: duration, Type: activityType})
	if len(s.Sessions) > MaxSessions {
		s.Sessions = s.Sessions[len(s.Sessions)-MaxSessions:]
	}

	if s.ActivityBreakdown == nil {
		s.ActivityBreakdown = map[string]float64{}
	}
	s.ActivityBreakdown[activityType] += duration

	s.CurrentWeekTime = 0
	if startedAt, err := ParseSessionTime(start); err == nil {
		key := WeekKey(startedAt)
		s.LastWeekTracked = key
		if s.WeeklyStats == nil {
			s.WeeklyStats = map[string]WeeklyStat{}
		}
		week := s.WeeklyStats[key]
		if week.Activities == nil {
			week.Activities = map[string]float64{}
		}
		if week.ActiveDays == nil {
			week.ActiveDays = []string{}
		}
		week.TotalMinutes += duration
		day := startedAt.Format("2006-01-02")
		if !containsString(week.ActiveDays, day) {
			week.ActiveDays = append(week.ActiveDays, day)
		}
		week.Activities[activityType] += duration
		s.WeeklyStats[key] = week
		s.CurrentWeekTime = week.TotalMinutes
	}

	t := now
	u.LastActive = &t
}

// StyleBreakdown returns the learning style chart. Details win over the primary style defaults.
func (u *User) StyleBreakdown() []StyleShare {
	if len(u.LearningStyleDetails) > 0 {
		var total float64
		names := make([]string, 0, len(u.LearningStyleDetails))
		for name, v := range u.LearningStyleDetails {
			total += v
			names = append(names, name)
		}
		sort.Strings(names)
		shares := make([]StyleShare, 0, len(names))
		for _, name := range names {
			pct := 25
			if total > 0 {
				pct = int(u.LearningStyleDetails[name] / total * 100)
			}
			shares = append(shares, StyleShare{Name: name, Percentage: pct})
		}
		return shares
	}
	return DefaultStyleBreakdown(u.PrimaryStyle())
}

// PrimaryStyle is the stored learning style label, "Visual" when unset
func (u *User) PrimaryStyle() string {
	if u.LearningStyle == "" {
		return "Visual"
	}
	return u.LearningStyle
}

var chartStyles = []string{"Visual", "Auditory", "Reading/Writing", "Kinesthetic"}

// DefaultStyleBreakdown weights primary at 40 and the rest at 20; unknown labels get 25 each
func DefaultStyleBreakdown(primary string) []StyleShare {
	known := containsString(chartStyles, primary)
	shares := make([]StyleShare, 0, len(chartStyles))
	for _, name := range chartStyles {
		pct := 25
		if known {
			pct = 20
			if name == primary {
				pct = 40
			}
		}
		shares = append(shares, StyleShare{Name: name, Percentage: pct})
	}
	return shares
}

// WeekKey formats t as its ISO week key, e.g. 2024-W01
func WeekKey(t time.Time) string {
	year, week := t.ISOWeek()
	return fmt.Sprintf("%d-W%02d", year, week)
}

// ISOWeekBounds returns the Monday and Sunday of the ISO week containing t
func ISOWeekBounds(t time.Time) (time.Time, time.Time) {
	day := time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, t.Location())
	offset := (int(day.Weekday()) + 6) % 7
	monday := day.AddDate(0, 0, -offset)
	return monday, monday.AddDate(0, 0, 6)
}

var sessionLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05.999999999",
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05",
	"2006-01-02",
}

// ParseSessionTime accepts ISO-8601 timestamps with or without zone
func ParseSessionTime(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	for _, layout := range sessionLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("unrecognised timestamp %q", s)
}

func daysBetween(from, to time.Time) int {
	from = from.In(to.Location())
	a := time.Date(from.Year(), from.Month(), from.Day(), 0, 0, 0, 0, time.UTC)
	b := time.Date(to.Year(), to.Month(), to.Day(), 0, 0, 0, 0, time.UTC)
	return int(b.Sub(a).Hours() / 24)
}

func containsString(list []string, s string) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}

func maxInt(a, b int) int {
	if a > b {
		return a
	}
	return b
}
