package service

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"learnlink-server/internal/domain"
	"learnlink-server/internal/repository"
	"learnlink-server/pkg/logger"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type progressFixture struct {
	svc   *ProgressService
	users *repository.UserRepository
	board *repository.LeaderboardRepository
	now   time.Time
}

func newProgressFixture(t *testing.T, now time.Time) *progressFixture {
	t.Helper()
	log := logger.NewNop()
	store := repository.NewMemoryStore()
	f := &progressFixture{
		users: repository.NewUserRepository(store, log),
		board: repository.NewLeaderboardRepository(store),
		now:   now,
	}
	f.svc = NewProgressService(f.users, f.board, func() time.Time { return f.now }, log)
	return f
}

func (f *progressFixture) addUser(t *testing.T, email string) *domain.User {
	t.Helper()
	u := &domain.User{ID: "id-" + email, Email: email}
	require.NoError(t, f.users.Create(context.Background(), u))
	return u
}

func minutes(v float64) *float64 { return &v }

func TestLoginStreak(t *testing.T) {
	day := time.Date(2024, 1, 1, 9, 0, 0, 0, time.UTC)
	f := newProgressFixture(t, day)
	f.addUser(t, "a@example.com")
	ctx := context.Background()

	steps := []struct {
		at              time.Time
		streak, longest int
	}{
		{day, 1, 1},
		{day.Add(5 * time.Hour), 1, 1},
		{day.AddDate(0, 0, 1), 2, 2},
		{day.AddDate(0, 0, 2), 3, 3},
		{day.AddDate(0, 0, 5), 1, 3},
	}
	for i, s := range steps {
		f.now = s.at
		streak, longest, err := f.svc.LoginStreak(ctx, "a@example.com")
		require.NoError(t, err, i)
		assert.Equal(t, s.streak, streak, "step %d", i)
		assert.Equal(t, s.longest, longest, "step %d", i)
	}

	_, _, err := f.svc.LoginStreak(ctx, "ghost@example.com")
	assert.ErrorIs(t, err, domain.ErrUserNotFound)
}

func TestTimeStats_SingleSession(t *testing.T) {
	f := newProgressFixture(t, time.Date(2024, 1, 3, 8, 0, 0, 0, time.UTC))
	f.addUser(t, "a@example.com")
	ctx := context.Background()

	res, err := f.svc.RecordTime(ctx, RecordTimeRequest{
		Email:           "a@example.com",
		DurationMinutes: minutes(15),
		SessionStart:    "2024-01-01T10:00:00",
		SessionEnd:      "2024-01-01T10:15:00",
	})
	require.NoError(t, err)
	f.svc.Wait()
	assert.Equal(t, 15.0, res.TotalTimeSpent)
	assert.Equal(t, 15.0, res.CurrentWeekTime)
	assert.Contains(t, res.WeeklyStats, "2024-W01")

	stats, err := f.svc.TimeStats(ctx, "a@example.com")
	require.NoError(t, err)
	assert.Equal(t, 15.0, stats.TotalTimeSpent)
	assert.Equal(t, []DailyTime{{Date: "2024-01-01", Minutes: 15}}, stats.DailyTime)
	require.Len(t, stats.RecentSessions, 1)
	assert.Equal(t, "session", stats.RecentSessions[0].Type)
	assert.Equal(t, "2024-W01", stats.CurrentWeekKey)
	assert.False(t, stats.IsNewWeek)
	assert.Equal(t, 15.0, stats.ActivityBreakdown["session"])
}

func TestRecordTime_Validation(t *testing.T) {
	f := newProgressFixture(t, time.Now())
	f.addUser(t, "a@example.com")
	var verr *domain.ValidationError

	_, err := f.svc.RecordTime(context.Background(), RecordTimeRequest{Email: "a@example.com"})
	assert.True(t, errors.As(err, &verr))

	_, err = f.svc.RecordTime(context.Background(), RecordTimeRequest{DurationMinutes: minutes(3)})
	assert.True(t, errors.As(err, &verr))
}

// Tests that only the last fifty sessions are kept and old ones leave the recent window
func TestRecordTime_SessionCapAndWindow(t *testing.T) {
	now := time.Date(2024, 2, 20, 12, 0, 0, 0, time.UTC)
	f := newProgressFixture(t, now)
	f.addUser(t, "a@example.com")
	ctx := context.Background()

	for i := 0; i < domain.MaxSessions+5; i++ {
		start := now.AddDate(0, 0, -20).Add(time.Duration(i) * 8 * time.Hour)
		_, err := f.svc.RecordTime(ctx, RecordTimeRequest{
			Email:           "a@example.com",
			DurationMinutes: minutes(1),
			SessionStart:    start.Format("2006-01-02T15:04:05"),
		})
		require.NoError(t, err)
	}

	u, err := f.users.GetByEmail(ctx, "a@example.com")
	require.NoError(t, err)
	assert.Len(t, u.Stats.Sessions, domain.MaxSessions)
	assert.Equal(t, float64(domain.MaxSessions+5), u.Stats.TotalTimeSpent)

	stats, err := f.svc.TimeStats(ctx, "a@example.com")
	require.NoError(t, err)
	assert.Len(t, stats.RecentSessions, 10)
}

func TestRecordTime_LongSessionRebuildsLeaderboard(t *testing.T) {
	f := newProgressFixture(t, time.Date(2024, 1, 3, 8, 0, 0, 0, time.UTC))
	f.addUser(t, "a@example.com")
	ctx := context.Background()

	_, err := f.svc.RecordTime(ctx, RecordTimeRequest{Email: "a@example.com", DurationMinutes: minutes(5), SessionStart: "2024-01-03T07:00:00"})
	require.NoError(t, err)
	f.svc.Wait()
	_, err = f.board.Get(ctx)
	assert.ErrorIs(t, err, domain.ErrNotFound)

	_, err = f.svc.RecordTime(ctx, RecordTimeRequest{Email: "a@example.com", DurationMinutes: minutes(12), SessionStart: "2024-01-03T07:10:00"})
	require.NoError(t, err)
	f.svc.Wait()

	board, err := f.board.Get(ctx)
	require.NoError(t, err)
	require.Len(t, board.TopLearningTime, 1)
	assert.Equal(t, 17.0, board.TopLearningTime[0].TimeSpent)
	assert.Equal(t, "a", board.TopLearningTime[0].Username)
}

func TestWeeklyStats(t *testing.T) {
	f := newProgressFixture(t, time.Date(2024, 1, 17, 12, 0, 0, 0, time.UTC))
	f.addUser(t, "a@example.com")
	ctx := context.Background()

	for _, start := range []string{"2024-01-02T10:00:00", "2024-01-03T10:00:00", "2024-01-16T10:00:00"} {
		_, err := f.svc.RecordTime(ctx, RecordTimeRequest{Email: "a@example.com", DurationMinutes: minutes(45), SessionStart: start})
		require.NoError(t, err)
	}
	f.svc.Wait()

	stats, err := f.svc.WeeklyStats(ctx, "a@example.com")
	require.NoError(t, err)
	require.Len(t, stats.WeeklyStats, 6)
	require.Len(t, stats.HoursByWeek, 6)

	assert.Equal(t, "2023-W50", stats.WeeklyStats[0].WeekID)
	last := stats.WeeklyStats[5]
	assert.Equal(t, "2024-W03", last.WeekID)
	assert.Equal(t, "2024-01-15", last.StartDate)
	assert.Equal(t, "2024-01-21", last.EndDate)
	assert.Equal(t, 0.8, last.Hours)

	w1 := stats.WeeklyStats[3]
	assert.Equal(t, "2024-W01", w1.WeekID)
	assert.Equal(t, 90.0, w1.Minutes)
	assert.Equal(t, 1.5, w1.Hours)
	assert.Equal(t, 2, w1.ActiveDays)

	week, err := f.svc.CurrentWeekTime(ctx, "a@example.com")
	require.NoError(t, err)
	assert.Equal(t, "2024-W03", week.CurrentWeekKey)
	assert.Equal(t, 45.0, week.CurrentWeekTime)
	assert.False(t, week.IsNewWeek)
}

func TestLeaderboard_CreatesEmptyThenRebuilds(t *testing.T) {
	f := newProgressFixture(t, time.Now())
	ctx := context.Background()

	board, err := f.svc.Leaderboard(ctx)
	require.NoError(t, err)
	assert.Empty(t, board.TopStreaks)
	_, err = f.board.Get(ctx)
	require.NoError(t, err)

	for i := 1; i <= 12; i++ {
		u := &domain.User{
			ID:            fmt.Sprintf("u%02d", i),
			Email:         fmt.Sprintf("u%02d@example.com", i),
			CurrentStreak: i,
			Stats:         domain.UserStats{TotalTimeSpent: float64(100 - i)},
		}
		require.NoError(t, f.users.Create(ctx, u))
	}
	require.NoError(t, f.users.Create(ctx, &domain.User{ID: "idle", Email: "idle@example.com"}))

	board, err = f.svc.RebuildLeaderboard(ctx)
	require.NoError(t, err)
	require.Len(t, board.TopStreaks, domain.LeaderboardSize)
	assert.Equal(t, 12, board.TopStreaks[0].Streak)
	assert.Equal(t, 99.0, board.TopLearningTime[0].TimeSpent)

	stored, err := f.svc.Leaderboard(ctx)
	require.NoError(t, err)
	assert.Equal(t, board.TopStreaks, stored.TopStreaks)
}
