package repository

import (
	"context"
	"encoding/json"
	"fmt"

	"learnlink-server/internal/domain"
)

const leaderboardID = "stats"

// LeaderboardRepository stores the single leaderboard snapshot
type LeaderboardRepository struct {
	store domain.DocumentStore
}

// NewLeaderboardRepository creates a new leaderboard repository
func NewLeaderboardRepository(store domain.DocumentStore) *LeaderboardRepository {
	return &LeaderboardRepository{store: store}
}

// Get returns the snapshot or domain.ErrNotFound
func (r *LeaderboardRepository) Get(ctx context.Context) (*domain.Leaderboard, error) {
	raw, err := r.store.Get(ctx, LeaderboardCollection, leaderboardID)
	if err != nil {
		return nil, err
	}
	var board domain.Leaderboard
	if err := json.Unmarshal(raw, &board); err != nil {
		return nil, fmt.Errorf("decode leaderboard: %w", err)
	}
	if board.TopStreaks == nil {
		board.TopStreaks = []domain.StreakEntry{}
	}
	if board.TopLearningTime == nil {
		board.TopLearningTime = []domain.TimeEntry{}
	}
	return &board, nil
}

// Save replaces the snapshot
func (r *LeaderboardRepository) Save(ctx context.Context, board *domain.Leaderboard) error {
	board.SchemaVersion = domain.SchemaVersion
	if err := r.store.Put(ctx, LeaderboardCollection, leaderboardID, board); err != nil {
		return fmt.Errorf("save leaderboard: %w", err)
	}
	return nil
}
