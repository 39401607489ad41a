package tokenstore

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"learnlink-server/internal/domain"

	"github.com/redis/go-redis/v9"
)

// RedisStore keeps credentials as JSON under "<prefix>token_<md5(identity)>"
type RedisStore struct {
	client *redis.Client
	prefix string
}

// NewRedisStore creates a Redis-backed token store. Prefix may be empty.
func NewRedisStore(client *redis.Client, prefix string) *RedisStore {
	if prefix == "" {
		prefix = "learnlink:"
	}
	return &RedisStore{client: client, prefix: prefix}
}

func (s *RedisStore) key(identity string) string {
	return s.prefix + domain.CredentialKey(identity)
}

// Load returns the stored credential or domain.ErrNotFound
func (s *RedisStore) Load(ctx context.Context, identity string) (*domain.Credential, error) {
	b, err := s.client.Get(ctx, s.key(identity)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, domain.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("redis get credential: %w", err)
	}
	var cred domain.Credential
	if err := json.Unmarshal(b, &cred); err != nil {
		return nil, fmt.Errorf("decode credential: %w", err)
	}
	return &cred, nil
}

// Save stores the credential without expiry; the refresh token outlives the access token
func (s *RedisStore) Save(ctx context.Context, cred *domain.Credential) error {
	b, err := json.Marshal(cred)
	if err != nil {
		return err
	}
	return s.client.Set(ctx, s.key(cred.Identity), b, 0).Err()
}

// Delete removes the credential
func (s *RedisStore) Delete(ctx context.Context, identity string) error {
	return s.client.Del(ctx, s.key(identity)).Err()
}
