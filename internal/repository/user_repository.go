package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"learnlink-server/internal/domain"
)

// Collection names shared by every document store backend
const (
	UsersCollection       = "users"
	FilesCollection       = "files"
	LeaderboardCollection = "leaderboard"
	PreferencesCollection = "preferences"
)

// UserRepository implements domain.UserRepository over a document store
type UserRepository struct {
	store  domain.DocumentStore
	logger domain.Logger
}

// NewUserRepository creates a new user repository
func NewUserRepository(store domain.DocumentStore, logger domain.Logger) *UserRepository {
	return &UserRepository{store: store, logger: logger}
}

// Create stores a new user after validation
func (r *UserRepository) Create(ctx context.Context, user *domain.User) error {
	if err := user.Validate(); err != nil {
		return err
	}
	user.SchemaVersion = domain.SchemaVersion
	now := time.Now().UTC()
	if user.CreatedAt.IsZero() {
		user.CreatedAt = now
	}
	user.UpdatedAt = now

	if err := r.store.Put(ctx, UsersCollection, user.ID, user); err != nil {
		return fmt.Errorf("create user %s: %w", user.ID, err)
	}
	r.logger.Debug("User created", "userId", user.ID, "email", user.Email)
	return nil
}

// GetByID loads a user by document id
func (r *UserRepository) GetByID(ctx context.Context, id string) (*domain.User, error) {
	raw, err := r.store.Get(ctx, UsersCollection, id)
	if errors.Is(err, domain.ErrNotFound) {
		return nil, domain.ErrUserNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get user %s: %w", id, err)
	}
	return decodeUser(id, raw)
}

// GetByEmail loads the first user with the given email
func (r *UserRepository) GetByEmail(ctx context.Context, email string) (*domain.User, error) {
	docs, err := r.store.FindByField(ctx, UsersCollection, "email", email)
	if err != nil {
		return nil, fmt.Errorf("find user by email: %w", err)
	}
	if len(docs) == 0 {
		return nil, domain.ErrUserNotFound
	}
	return decodeUser(docs[0].ID, docs[0].Data)
}

// Update merges fields into the stored user
func (r *UserRepository) Update(ctx context.Context, id string, fields map[string]interface{}) error {
	if email, ok := fields["email"].(string); ok && !domain.IsValidEmail(email) {
		return domain.NewValidationError("email", "must be a valid email address")
	}
	fields["updatedAt"] = time.Now().UTC()

	err := r.store.Merge(ctx, UsersCollection, id, fields)
	if errors.Is(err, domain.ErrNotFound) {
		return domain.ErrUserNotFound
	}
	if err != nil {
		return fmt.Errorf("update user %s: %w", id, err)
	}
	return nil
}

// List loads every user
func (r *UserRepository) List(ctx context.Context) ([]*domain.User, error) {
	docs, err := r.store.List(ctx, UsersCollection)
	if err != nil {
		return nil, fmt.Errorf("list users: %w", err)
	}
	users := make([]*domain.User, 0, len(docs))
	for _, d := range docs {
		u, err := decodeUser(d.ID, d.Data)
		if err != nil {
			r.logger.Warn("Skipping undecodable user record", "userId", d.ID, "error", err)
			continue
		}
		users = append(users, u)
	}
	return users, nil
}

func decodeUser(id string, raw json.RawMessage) (*domain.User, error) {
	var u domain.User
	if err := json.Unmarshal(raw, &u); err != nil {
		return nil, fmt.Errorf("decode user %s: %w", id, err)
	}
	if u.ID == "" {
		u.ID = id
	}
	return &u, nil
}
