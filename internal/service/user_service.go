package service

import (
	"context"
	"errors"
	"strings"
	"time"

	"learnlink-server/internal/domain"

	"github.com/google/uuid"
)

// SignupRequest is the payload of /signup
type SignupRequest struct {
	Email        string `json:"email"`
	Name         string `json:"name"`
	AuthProvider string `json:"authProvider"`
	UID          string `json:"uid"`
	PhotoURL     string `json:"photoURL"`
}

// LearningStyleRequest stores a questionnaire result, creating the user when needed
type LearningStyleRequest struct {
	Email                string             `json:"email"`
	LearningStyle        string             `json:"learningStyle"`
	LearningStyleDetails map[string]float64 `json:"learningStyleDetails"`
	UID                  string             `json:"uid"`
	Name                 string             `json:"name"`
}

// QuizScoreRequest is the payload of /api/store-quiz-score
type QuizScoreRequest struct {
	Email          string  `json:"email"`
	UID            string  `json:"uid"`
	Name           string  `json:"name"`
	QuizID         string  `json:"quizId"`
	QuizName       string  `json:"quizName"`
	Score          float64 `json:"score"`
	CorrectAnswers int     `json:"correctAnswers"`
	TotalQuestions int     `json:"totalQuestions"`
	Percentage     float64 `json:"percentage"`
	DocumentID     string  `json:"documentId"`
}

// StyleProfile is the learning style chart of one user
type StyleProfile struct {
	PrimaryStyle string              `json:"primaryStyle"`
	Styles       []domain.StyleShare `json:"styles"`
	LastUpdated  *time.Time          `json:"lastUpdated"`
}

// UserService handles user identity, learning style and quiz score operations
type UserService struct {
	users     domain.UserRepository
	files     domain.FileRepository
	prefs     domain.PreferenceRepository
	generator *ContentGenerator
	clock     domain.Clock
	logger    domain.Logger
}

// NewUserService creates a user service. files and prefs may be nil; quiz scores are then not
// attributed to learning styles.
func NewUserService(
	users domain.UserRepository,
	files domain.FileRepository,
	prefs domain.PreferenceRepository,
	generator *ContentGenerator,
	clock domain.Clock,
	logger domain.Logger,
) *UserService {
	if clock == nil {
		clock = time.Now
	}
	return &UserService{users: users, files: files, prefs: prefs, generator: generator, clock: clock, logger: logger}
}

func requireEmail(email string) (string, error) {
	email = strings.TrimSpace(email)
	if email == "" {
		return "", domain.NewValidationError("email", "is required")
	}
	return email, nil
}

// CheckUser reports whether a user with email exists and returns its id
func (s *UserService) CheckUser(ctx context.Context, email string) (bool, string, error) {
	email, err := requireEmail(email)
	if err != nil {
		return false, "", err
	}
	u, err := s.users.GetByEmail(ctx, email)
	if errors.Is(err, domain.ErrUserNotFound) {
		return false, "", nil
	}
	if err != nil {
		return false, "", storeError(err)
	}
	return true, u.ID, nil
}

// Signup creates a user; the email must not be registered yet
func (s *UserService) Signup(ctx context.Context, req SignupRequest) (*domain.User, error) {
	email := strings.TrimSpace(req.Email)
	if email == "" || strings.TrimSpace(req.Name) == "" {
		return nil, domain.NewValidationError("email", "email and name are required")
	}
	if _, err := s.users.GetByEmail(ctx, email); err == nil {
		return nil, domain.ErrUserAlreadyExists
	} else if !errors.Is(err, domain.ErrUserNotFound) {
		return nil, storeError(err)
	}

	provider := req.AuthProvider
	if provider == "" {
		provider = "email"
	}
	user := &domain.User{
		ID:           uuid.New().String(),
		Email:        email,
		Name:         strings.TrimSpace(req.Name),
		AuthProvider: provider,
		UID:          req.UID,
		PhotoURL:     req.PhotoURL,
		CreatedAt:    s.clock().UTC(),
	}
	if err := s.users.Create(ctx, user); err != nil {
		return nil, storeError(err)
	}
	s.logger.Info("User signed up", "userId", user.ID, "email", email)
	return user, nil
}

// StoreLearningStyle upserts the learning style; it reports whether a user was created
func (s *UserService) StoreLearningStyle(ctx context.Context, req LearningStyleRequest) (bool, error) {
	email := strings.TrimSpace(req.Email)
	if email == "" || strings.TrimSpace(req.LearningStyle) == "" {
		return false, domain.NewValidationError("learningStyle", "learning style and email are required")
	}
	now := s.clock().UTC()

	u, err := s.users.GetByEmail(ctx, email)
	switch {
	case err == nil:
		fields := map[string]interface{}{
			"learningStyle":          req.LearningStyle,
			"learningStyleDetails":   req.LearningStyleDetails,
			"learningStyleUpdatedAt": now,
		}
		if err := s.users.Update(ctx, u.ID, fields); err != nil {
			return false, storeError(err)
		}
		return false, nil
	case errors.Is(err, domain.ErrUserNotFound):
		user := &domain.User{
			ID:                     uuid.New().String(),
			Email:                  email,
			UID:                    req.UID,
			Name:                   req.Name,
			LearningStyle:          req.LearningStyle,
			LearningStyleDetails:   req.LearningStyleDetails,
			LearningStyleUpdatedAt: &now,
		}
		if err := s.users.Create(ctx, user); err != nil {
			return false, storeError(err)
		}
		s.logger.Info("User created with learning style", "userId", user.ID, "email", email)
		return true, nil
	default:
		return false, storeError(err)
	}
}

// PredictLearningStyle classifies text and stores the result on the user when email is known
func (s *UserService) PredictLearningStyle(ctx context.Context, text, email string) (domain.Variant, error) {
	if strings.TrimSpace(text) == "" {
		return "", domain.NewValidationError("text", "no text provided")
	}
	style, err := s.generator.PredictLearningStyle(ctx, text)
	if err != nil {
		s.logger.Debug("Learning style predicted by keywords", "style", style, "reason", err)
	}

	if email = strings.TrimSpace(email); email != "" {
		u, err := s.users.GetByEmail(ctx, email)
		if err == nil {
			if err := s.users.Update(ctx, u.ID, map[string]interface{}{
				"learningStyle":          string(style),
				"learningStyleUpdatedAt": s.clock().UTC(),
			}); err != nil {
				s.logger.Warn("Failed to store predicted learning style", "userId", u.ID, "error", err)
			}
		} else if !errors.Is(err, domain.ErrUserNotFound) {
			s.logger.Warn("Failed to look up user for predicted style", "email", email, "error", err)
		}
	}
	return style, nil
}

// LearningStyle returns the chart for email. Unknown users get the even default split with ErrUserNotFound.
func (s *UserService) LearningStyle(ctx context.Context, email string) (*StyleProfile, error) {
	email, err := requireEmail(email)
	if err != nil {
		return nil, err
	}
	u, err := s.users.GetByEmail(ctx, email)
	if err != nil {
		profile := &StyleProfile{PrimaryStyle: "Visual", Styles: domain.DefaultStyleBreakdown("")}
		if errors.Is(err, domain.ErrUserNotFound) {
			return profile, err
		}
		return profile, storeError(err)
	}
	return &StyleProfile{
		PrimaryStyle: u.PrimaryStyle(),
		Styles:       u.StyleBreakdown(),
		LastUpdated:  u.LearningStyleUpdatedAt,
	}, nil
}

// StoreQuizScore appends a quiz result, creating the user when missing.
// When the quiz belongs to a known document, the score also feeds that document's learning style effectiveness.
func (s *UserService) StoreQuizScore(ctx context.Context, req QuizScoreRequest) (bool, error) {
	email := strings.TrimSpace(req.Email)
	if email == "" || req.QuizID == "" || req.Score == 0 {
		return false, domain.NewValidationError("score", "email, score and quiz ID are required")
	}
	name := req.QuizName
	if name == "" {
		name = "Quiz"
	}
	now := s.clock().UTC()
	score := domain.QuizScore{
		QuizID:         req.QuizID,
		QuizName:       name,
		Score:          req.Score,
		CorrectAnswers: req.CorrectAnswers,
		TotalQuestions: req.TotalQuestions,
		Percentage:     req.Percentage,
		DocumentID:     req.DocumentID,
		Timestamp:      now,
	}

	created := false
	u, err := s.users.GetByEmail(ctx, email)
	switch {
	case err == nil:
		scores := append(u.QuizScores, score)
		if err := s.users.Update(ctx, u.ID, map[string]interface{}{"quizScores": scores}); err != nil {
			return false, storeError(err)
		}
	case errors.Is(err, domain.ErrUserNotFound):
		u = &domain.User{
			ID:         uuid.New().String(),
			Email:      email,
			UID:        req.UID,
			Name:       req.Name,
			QuizScores: []domain.QuizScore{score},
		}
		if err := s.users.Create(ctx, u); err != nil {
			return false, storeError(err)
		}
		created = true
	default:
		return false, storeError(err)
	}

	s.attributeScore(ctx, u.ID, req, now)
	return created, nil
}

func (s *UserService) attributeScore(ctx context.Context, userID string, req QuizScoreRequest, now time.Time) {
	if s.files == nil || s.prefs == nil || req.DocumentID == "" {
		return
	}
	file, err := s.files.Get(ctx, req.DocumentID)
	if err != nil {
		return
	}
	value := req.Percentage
	if value == 0 {
		value = req.Score
	}
	prefs, err := s.prefs.Get(ctx, userID)
	if errors.Is(err, domain.ErrNotFound) {
		prefs, err = &domain.Preferences{UserID: userID}, nil
	}
	if err != nil {
		s.logger.Warn("Failed to load preferences for quiz attribution", "userId", userID, "error", err)
		return
	}
	prefs.RecordScore(domain.EffectivenessEntry{
		LearningStyle: string(file.LearningStyle),
		Score:         value,
		QuizID:        req.QuizID,
		DocumentID:    req.DocumentID,
		Timestamp:     now.Format(time.RFC3339),
	})
	if err := s.prefs.Save(ctx, prefs); err != nil {
		s.logger.Warn("Failed to store quiz attribution", "userId", userID, "error", err)
	}
}

// QuizScores returns every stored quiz result of email
func (s *UserService) QuizScores(ctx context.Context, email string) ([]domain.QuizScore, error) {
	email, err := requireEmail(email)
	if err != nil {
		return nil, err
	}
	u, err := s.users.GetByEmail(ctx, email)
	if err != nil {
		return []domain.QuizScore{}, storeError(err)
	}
	if u.QuizScores == nil {
		return []domain.QuizScore{}, nil
	}
	return u.QuizScores, nil
}
