package domain

import (
	"context"
	"sort"
	"time"
)

// LeaderboardSize caps each leaderboard list
const LeaderboardSize = 10

// StreakEntry is one row of the streak leaderboard
type StreakEntry struct {
	UserID   string `json:"userId"`
	Username string `json:"username"`
	Streak   int    `json:"streak"`
}

// TimeEntry is one row of the learning time leaderboard
type TimeEntry struct {
	UserID    string  `json:"userId"`
	Username  string  `json:"username"`
	TimeSpent float64 `json:"timeSpent"`
}

// Leaderboard is a derived snapshot, rebuilt in full on every update
type Leaderboard struct {
	SchemaVersion   int           `json:"schemaVersion"`
	TopStreaks      []StreakEntry `json:"topStreaks"`
	TopLearningTime []TimeEntry   `json:"topLearningTime"`
	LastUpdated     *time.Time    `json:"lastUpdated,omitempty"`
}

// LeaderboardRepository persists the single leaderboard snapshot
type LeaderboardRepository interface {
	Get(ctx context.Context) (*Leaderboard, error)
	Save(ctx context.Context, board *Leaderboard) error
}

// BuildLeaderboard ranks users by streak and by total time.
// Users without an email or with a zero value are left out of the matching list.
func BuildLeaderboard(users []*User, now time.Time) *Leaderboard {
	streaks := []StreakEntry{}
	times := []TimeEntry{}
	for _, u := range users {
		if u == nil || u.Email == "" {
			continue
		}
		if u.CurrentStreak > 0 {
			streaks = append(streaks, StreakEntry{UserID: u.ID, Username: u.Username(), Streak: u.CurrentStreak})
		}
		if u.Stats.TotalTimeSpent > 0 {
			times = append(times, TimeEntry{UserID: u.ID, Username: u.Username(), TimeSpent: u.Stats.TotalTimeSpent})
		}
	}

	sort.SliceStable(streaks, func(i, j int) bool { return streaks[i].Streak > streaks[j].Streak })
	sort.SliceStable(times, func(i, j int) bool { return times[i].TimeSpent > times[j].TimeSpent })

	if len(streaks) > LeaderboardSize {
		streaks = streaks[:LeaderboardSize]
	}
	if len(times) > LeaderboardSize {
		times = times[:LeaderboardSize]
	}

	t := now
	return &Leaderboard{
		SchemaVersion:   SchemaVersion,
		TopStreaks:      streaks,
		TopLearningTime: times,
		LastUpdated:     &t,
	}
}
