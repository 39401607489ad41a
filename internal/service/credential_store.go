package service

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"sync"
	"time"

	"learnlink-server/internal/domain"
	apperrors "learnlink-server/pkg/errors"

	lru "github.com/hashicorp/golang-lru/v2"
	"github.com/rs/xid"
	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"
	oauth2api "google.golang.org/api/oauth2/v2"
	"google.golang.org/api/option"
)

const pendingStateTTL = 10 * time.Minute

// DriveScopes are requested on every consent
var DriveScopes = []string{
	"https://www.googleapis.com/auth/drive.file",
	"https://www.googleapis.com/auth/userinfo.email",
	"openid",
}

// CredentialConfig configures a CredentialStore
type CredentialConfig struct {
	ClientID     string
	ClientSecret string
	RedirectURL  string
	CacheSize    int
	// Endpoint defaults to google.Endpoint
	Endpoint oauth2.Endpoint
	// UserinfoOptions are passed to the userinfo service, e.g. option.WithEndpoint in tests
	UserinfoOptions []option.ClientOption
	Clock           domain.Clock
}

type pendingState struct {
	identity  string
	expiresAt time.Time
}

// CredentialStore obtains, caches and refreshes per-identity OAuth grants.
// The TokenStore copy is the source of truth; the LRU only holds live credentials.
type CredentialStore struct {
	oauth        *oauth2.Config
	tokens       domain.TokenStore
	cache        *lru.Cache[string, *domain.Credential]
	userinfoOpts []option.ClientOption
	clock        domain.Clock
	logger       domain.Logger

	mu         sync.Mutex
	pending    map[string]pendingState
	refreshing map[string]bool
}

// NewCredentialStore creates a credential store
func NewCredentialStore(cfg CredentialConfig, tokens domain.TokenStore, logger domain.Logger) (*CredentialStore, error) {
	size := cfg.CacheSize
	if size <= 0 {
		size = 1000
	}
	cache, err := lru.New[string, *domain.Credential](size)
	if err != nil {
		return nil, fmt.Errorf("failed to create credential cache: %w", err)
	}

	endpoint := cfg.Endpoint
	if endpoint.AuthURL == "" {
		endpoint = google.Endpoint
	}
	clock := cfg.Clock
	if clock == nil {
		clock = time.Now
	}

	return &CredentialStore{
		oauth: &oauth2.Config{
			ClientID:     cfg.ClientID,
			ClientSecret: cfg.ClientSecret,
			RedirectURL:  cfg.RedirectURL,
			Scopes:       DriveScopes,
			Endpoint:     endpoint,
		},
		tokens:       tokens,
		cache:        cache,
		userinfoOpts: cfg.UserinfoOptions,
		clock:        clock,
		logger:       logger,
		pending:      make(map[string]pendingState),
		refreshing:   make(map[string]bool),
	}, nil
}

func normalizeIdentity(identity string) string {
	return strings.ToLower(strings.TrimSpace(identity))
}

// AuthorizationURL returns the provider consent URL. A non-empty identity is marked pending.
func (s *CredentialStore) AuthorizationURL(identity string) string {
	state := xid.New().String()
	now := s.clock()

	s.mu.Lock()
	for k, p := range s.pending {
		if now.After(p.expiresAt) {
			delete(s.pending, k)
		}
	}
	s.pending[state] = pendingState{identity: normalizeIdentity(identity), expiresAt: now.Add(pendingStateTTL)}
	s.mu.Unlock()

	return s.oauth.AuthCodeURL(state,
		oauth2.AccessTypeOffline,
		oauth2.SetAuthURLParam("prompt", "consent"),
		oauth2.SetAuthURLParam("include_granted_scopes", "true"),
	)
}

// HandleCallback consumes a state issued by AuthorizationURL, exchanges the grant code, resolves the identity through userinfo and persists the token
func (s *CredentialStore) HandleCallback(ctx context.Context, code, state string) (*domain.Credential, error) {
	if strings.TrimSpace(code) == "" {
		return nil, fmt.Errorf("%w: missing code", domain.ErrAuthExchange)
	}

	s.mu.Lock()
	p, ok := s.pending[state]
	delete(s.pending, state)
	s.mu.Unlock()
	if !ok || s.clock().After(p.expiresAt) {
		s.logger.Warn("OAuth callback with unknown or expired state", "state", state)
		return nil, fmt.Errorf("%w: unknown or expired state", domain.ErrAuthExchange)
	}

	tok, err := s.oauth.Exchange(ctx, code)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrAuthExchange, err)
	}

	email, err := s.lookupEmail(ctx, tok)
	if err != nil {
		return nil, fmt.Errorf("%w: userinfo: %v", domain.ErrAuthExchange, err)
	}

	cred := fromToken(email, tok, s.clock())
	if err := s.tokens.Save(ctx, cred); err != nil {
		return nil, apperrors.NewExternalServiceError("token store", err)
	}
	s.cache.Add(cred.Identity, cred)
	s.logger.Info("OAuth credential stored", "email", cred.Identity)
	return cred, nil
}

func (s *CredentialStore) lookupEmail(ctx context.Context, tok *oauth2.Token) (string, error) {
	client := oauth2.NewClient(ctx, oauth2.StaticTokenSource(tok))
	opts := append([]option.ClientOption{option.WithHTTPClient(client)}, s.userinfoOpts...)
	svc, err := oauth2api.NewService(ctx, opts...)
	if err != nil {
		return "", err
	}
	info, err := svc.Userinfo.Get().Context(ctx).Do()
	if err != nil {
		return "", err
	}
	if info.Email == "" {
		return "", errors.New("userinfo response has no email")
	}
	return normalizeIdentity(info.Email), nil
}

// IsAuthenticated reports whether a live, unexpired credential is held for identity.
// The persisted copy is loaded into the cache on first use.
func (s *CredentialStore) IsAuthenticated(ctx context.Context, identity string) bool {
	cred, err := s.cached(ctx, normalizeIdentity(identity))
	return err == nil && !cred.Expired(s.clock())
}

// State reports where identity sits in the authorization lifecycle
func (s *CredentialStore) State(ctx context.Context, identity string) domain.CredentialState {
	id := normalizeIdentity(identity)

	s.mu.Lock()
	refreshing := s.refreshing[id]
	pending := false
	now := s.clock()
	for _, p := range s.pending {
		if p.identity == id && now.Before(p.expiresAt) {
			pending = true
			break
		}
	}
	s.mu.Unlock()

	switch {
	case refreshing:
		return domain.CredentialRefreshing
	case s.IsAuthenticated(ctx, id):
		return domain.CredentialAuthenticated
	case pending:
		return domain.CredentialPending
	default:
		return domain.CredentialUnauthenticated
	}
}

// Credential returns a live credential, refreshing an expired one once.
// It fails with an auth_required AppError that carries a consent URL.
func (s *CredentialStore) Credential(ctx context.Context, identity string) (*domain.Credential, error) {
	id := normalizeIdentity(identity)
	cred, err := s.cached(ctx, id)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return nil, s.authRequired(id, domain.ErrNotAuthenticated)
		}
		return nil, apperrors.NewExternalServiceError("token store", err)
	}
	if !cred.Expired(s.clock()) {
		return cred, nil
	}
	if cred.RefreshToken == "" {
		s.cache.Remove(id)
		return nil, s.authRequired(id, fmt.Errorf("%w: token expired", domain.ErrNotAuthenticated))
	}
	return s.refresh(ctx, cred)
}

// Client returns an HTTP client authorized as identity
func (s *CredentialStore) Client(ctx context.Context, identity string) (*http.Client, error) {
	cred, err := s.Credential(ctx, identity)
	if err != nil {
		return nil, err
	}
	return oauth2.NewClient(ctx, oauth2.StaticTokenSource(toToken(cred))), nil
}

// Logout forgets identity in memory and in the token store
func (s *CredentialStore) Logout(ctx context.Context, identity string) error {
	id := normalizeIdentity(identity)
	s.cache.Remove(id)
	s.mu.Lock()
	for k, p := range s.pending {
		if p.identity == id {
			delete(s.pending, k)
		}
	}
	s.mu.Unlock()
	if err := s.tokens.Delete(ctx, id); err != nil && !errors.Is(err, domain.ErrNotFound) {
		return apperrors.NewExternalServiceError("token store", err)
	}
	return nil
}

func (s *CredentialStore) cached(ctx context.Context, id string) (*domain.Credential, error) {
	if id == "" {
		return nil, domain.ErrNotFound
	}
	if cred, ok := s.cache.Get(id); ok {
		return cred, nil
	}
	cred, err := s.tokens.Load(ctx, id)
	if err != nil {
		return nil, err
	}
	s.cache.Add(id, cred)
	return cred, nil
}

func (s *CredentialStore) refresh(ctx context.Context, cred *domain.Credential) (*domain.Credential, error) {
	id := cred.Identity
	s.mu.Lock()
	s.refreshing[id] = true
	s.mu.Unlock()
	defer func() {
		s.mu.Lock()
		delete(s.refreshing, id)
		s.mu.Unlock()
	}()

	// Expiry in the past forces exactly one refresh request.
	stale := toToken(cred)
	stale.Expiry = time.Unix(1, 0)
	tok, err := s.oauth.TokenSource(ctx, stale).Token()
	if err != nil {
		s.logger.Warn("OAuth refresh failed, credential invalidated", "email", id, "error", err)
		s.cache.Remove(id)
		if derr := s.tokens.Delete(ctx, id); derr != nil && !errors.Is(derr, domain.ErrNotFound) {
			s.logger.Error("Failed to delete invalid credential", derr, "email", id)
		}
		return nil, s.authRequired(id, fmt.Errorf("%w: refresh failed: %v", domain.ErrNotAuthenticated, err))
	}

	fresh := fromToken(id, tok, s.clock())
	if fresh.RefreshToken == "" {
		fresh.RefreshToken = cred.RefreshToken
	}
	if err := s.tokens.Save(ctx, fresh); err != nil {
		s.logger.Error("Failed to persist refreshed credential", err, "email", id)
	}
	s.cache.Add(id, fresh)
	s.logger.Debug("OAuth credential refreshed", "email", id)
	return fresh, nil
}

func (s *CredentialStore) authRequired(identity string, cause error) error {
	return apperrors.NewAuthRequiredError("Google Drive authorization required", s.AuthorizationURL(identity), cause)
}

func fromToken(identity string, tok *oauth2.Token, now time.Time) *domain.Credential {
	return &domain.Credential{
		Identity:     identity,
		AccessToken:  tok.AccessToken,
		RefreshToken: tok.RefreshToken,
		TokenType:    tok.TokenType,
		Expiry:       tok.Expiry,
		UpdatedAt:    now,
	}
}

func toToken(cred *domain.Credential) *oauth2.Token {
	return &oauth2.Token{
		AccessToken:  cred.AccessToken,
		RefreshToken: cred.RefreshToken,
		TokenType:    cred.TokenType,
		Expiry:       cred.Expiry,
	}
}
