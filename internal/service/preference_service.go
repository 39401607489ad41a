package service

import (
	"context"
	"errors"
	"strings"
	"time"

	"learnlink-server/internal/domain"
)

// Effectiveness is the learning-effectiveness view of one user
type Effectiveness struct {
	Styles           []domain.StyleEffectiveness `json:"styles"`
	RecommendedStyle *string                     `json:"recommendedStyle"`
}

// PreferenceService manages per-user learning style preferences and effectiveness tracking
type PreferenceService struct {
	users  domain.UserRepository
	prefs  domain.PreferenceRepository
	clock  domain.Clock
	logger domain.Logger
}

// NewPreferenceService creates a preference service
func NewPreferenceService(users domain.UserRepository, prefs domain.PreferenceRepository, clock domain.Clock, logger domain.Logger) *PreferenceService {
	if clock == nil {
		clock = time.Now
	}
	return &PreferenceService{users: users, prefs: prefs, clock: clock, logger: logger}
}

// load checks the user exists and returns its preferences, empty when none are stored
func (s *PreferenceService) load(ctx context.Context, userID string) (*domain.Preferences, error) {
	if strings.TrimSpace(userID) == "" {
		return nil, domain.NewValidationError("userId", "is required")
	}
	if _, err := s.users.GetByID(ctx, userID); err != nil {
		return nil, storeError(err)
	}
	prefs, err := s.prefs.Get(ctx, userID)
	if errors.Is(err, domain.ErrNotFound) {
		return &domain.Preferences{UserID: userID}, nil
	}
	if err != nil {
		return nil, storeError(err)
	}
	return prefs, nil
}

func (s *PreferenceService) save(ctx context.Context, prefs *domain.Preferences) error {
	if err := s.prefs.Save(ctx, prefs); err != nil {
		return storeError(err)
	}
	return nil
}

// DefaultStyle returns the user's default style, "visual" when unset
func (s *PreferenceService) DefaultStyle(ctx context.Context, userID string) (string, error) {
	prefs, err := s.load(ctx, userID)
	if err != nil {
		return "", err
	}
	if prefs.DefaultStyle == "" {
		return domain.DefaultPreferredStyle, nil
	}
	return prefs.DefaultStyle, nil
}

// SetDefaultStyle stores the user's default style
func (s *PreferenceService) SetDefaultStyle(ctx context.Context, userID, style string) error {
	if strings.TrimSpace(style) == "" {
		return domain.NewValidationError("defaultStyle", "is required")
	}
	prefs, err := s.load(ctx, userID)
	if err != nil {
		return err
	}
	prefs.DefaultStyle = style
	return s.save(ctx, prefs)
}

// Subjects lists the user's subject to style mappings
func (s *PreferenceService) Subjects(ctx context.Context, userID string) ([]domain.SubjectPreference, error) {
	prefs, err := s.load(ctx, userID)
	if err != nil {
		return nil, err
	}
	return prefs.Subjects(), nil
}

// SetSubject maps subject to a learning style
func (s *PreferenceService) SetSubject(ctx context.Context, userID, subject, style string) error {
	if strings.TrimSpace(subject) == "" || strings.TrimSpace(style) == "" {
		return domain.NewValidationError("subject", "subject and learningStyle are required")
	}
	prefs, err := s.load(ctx, userID)
	if err != nil {
		return err
	}
	if prefs.SubjectStyles == nil {
		prefs.SubjectStyles = map[string]string{}
	}
	prefs.SubjectStyles[subject] = style
	return s.save(ctx, prefs)
}

// DeleteSubject removes a subject mapping; a missing subject is not an error
func (s *PreferenceService) DeleteSubject(ctx context.Context, userID, subject string) error {
	prefs, err := s.load(ctx, userID)
	if err != nil {
		return err
	}
	if _, ok := prefs.SubjectStyles[subject]; !ok {
		return nil
	}
	delete(prefs.SubjectStyles, subject)
	return s.save(ctx, prefs)
}

// Effectiveness returns per-style quiz averages and the recommended style, if any
func (s *PreferenceService) Effectiveness(ctx context.Context, userID string) (*Effectiveness, error) {
	prefs, err := s.load(ctx, userID)
	if err != nil {
		return nil, err
	}
	styles, recommended := prefs.Effectiveness()
	out := &Effectiveness{Styles: styles}
	if recommended != "" {
		out.RecommendedStyle = &recommended
	}
	return out, nil
}

// TrackEffectiveness folds one quiz result into the style averages
func (s *PreferenceService) TrackEffectiveness(ctx context.Context, userID string, entry domain.EffectivenessEntry) error {
	if strings.TrimSpace(entry.LearningStyle) == "" {
		return domain.NewValidationError("learningStyle", "learning style and score are required")
	}
	prefs, err := s.load(ctx, userID)
	if err != nil {
		return err
	}
	if entry.Timestamp == "" {
		entry.Timestamp = s.clock().UTC().Format(time.RFC3339)
	}
	prefs.RecordScore(entry)
	if err := s.save(ctx, prefs); err != nil {
		return err
	}
	s.logger.Debug("Learning effectiveness tracked", "userId", userID, "style", entry.LearningStyle, "score", entry.Score)
	return nil
}
