package repository

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"learnlink-server/internal/domain"
)

// PreferenceRepository stores one preferences record per user
type PreferenceRepository struct {
	store domain.DocumentStore
}

// NewPreferenceRepository creates a new preference repository
func NewPreferenceRepository(store domain.DocumentStore) *PreferenceRepository {
	return &PreferenceRepository{store: store}
}

// Get returns the user's preferences or domain.ErrNotFound
func (r *PreferenceRepository) Get(ctx context.Context, userID string) (*domain.Preferences, error) {
	raw, err := r.store.Get(ctx, PreferencesCollection, userID)
	if err != nil {
		return nil, err
	}
	var prefs domain.Preferences
	if err := json.Unmarshal(raw, &prefs); err != nil {
		return nil, fmt.Errorf("decode preferences %s: %w", userID, err)
	}
	prefs.UserID = userID
	return &prefs, nil
}

// Save replaces the user's preferences
func (r *PreferenceRepository) Save(ctx context.Context, prefs *domain.Preferences) error {
	if prefs.UserID == "" {
		return domain.NewValidationError("userId", "is required")
	}
	prefs.SchemaVersion = domain.SchemaVersion
	prefs.UpdatedAt = time.Now().UTC()
	if err := r.store.Put(ctx, PreferencesCollection, prefs.UserID, prefs); err != nil {
		return fmt.Errorf("save preferences %s: %w", prefs.UserID, err)
	}
	return nil
}
