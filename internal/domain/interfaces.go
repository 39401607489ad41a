package domain

import (
	"context"
	"encoding/json"
	"io"
	"time"
)

// Logger defines the interface for logging operations
type Logger interface {
	Info(msg string, fields ...interface{})
	Error(msg string, err error, fields ...interface{})
	Debug(msg string, fields ...interface{})
	Warn(msg string, fields ...interface{})
}

// Config defines the interface for configuration management
type Config interface {
	GetServerPort() string
	GetUploadPath() string
	GetMaxFileSize() int64
	GetLogLevel() string
	GetLogFormat() string
	GetPublicBaseURL() string
	GetFrontendURL() string
	GetAllowedOrigins() []string

	GetDocumentStore() string
	GetMongoURI() string
	GetMongoDatabase() string
	GetSupabaseURL() string
	GetSupabaseKey() string
	GetSupabaseBucket() string

	GetObjectStore() string
	GetMinioEndpoint() string
	GetMinioAccessKey() string
	GetMinioSecretKey() string
	GetMinioBucket() string
	GetMinioUseSSL() bool
	GetS3Bucket() string
	GetAWSRegion() string
	GetS3PublicBaseURL() string
	GetGCSBucket() string

	GetTokenStore() string
	GetTokenDir() string
	GetRedisAddr() string
	GetRedisPassword() string
	GetRedisDB() int
	GetCredentialCacheSize() int

	GetGoogleClientID() string
	GetGoogleClientSecret() string
	GetGoogleRedirectURL() string

	GetGenerativeProvider() string
	GetOpenAIAPIKey() string
	GetOpenAIBaseURL() string
	GetOpenAIModel() string
	GetOpenAITTSModel() string
	GetOpenAITTSVoice() string
	GetVertexProjectID() string
	GetVertexLocation() string
	GetVertexModel() string
	GetSerpAPIKey() string

	GetRateLimitRPS() float64
	GetRateLimitBurst() int
	GetTrustedProxies() []string
}

// StoredDocument is one raw record returned by a DocumentStore
type StoredDocument struct {
	ID   string
	Data json.RawMessage
}

// DocumentStore is a keyed JSON record store with field queries and field merges.
// Merge keys may be dotted paths ("stats.totalTimeSpent"); each Merge call is last-write-wins per field.
type DocumentStore interface {
	Get(ctx context.Context, collection, id string) (json.RawMessage, error)
	Put(ctx context.Context, collection, id string, doc interface{}) error
	Merge(ctx context.Context, collection, id string, fields map[string]interface{}) error
	FindByField(ctx context.Context, collection, field, value string) ([]StoredDocument, error)
	List(ctx context.Context, collection string) ([]StoredDocument, error)
	Delete(ctx context.Context, collection, id string) error
}

// ObjectStore stores opaque blobs under hierarchical paths and issues public URLs
type ObjectStore interface {
	Upload(ctx context.Context, path string, r io.Reader, size int64, contentType string) (string, error)
	Download(ctx context.Context, path string) ([]byte, error)
	Delete(ctx context.Context, path string) error
	PublicURL(path string) string
}

// TokenStore persists OAuth credentials keyed by identity
type TokenStore interface {
	Load(ctx context.Context, identity string) (*Credential, error)
	Save(ctx context.Context, cred *Credential) error
	Delete(ctx context.Context, identity string) error
}

// CompletionRequest is a single chat completion call
type CompletionRequest struct {
	System      string
	Prompt      string
	MaxTokens   int
	Temperature float64
	JSON        bool
}

// TextGenerator is a generative text backend
type TextGenerator interface {
	Complete(ctx context.Context, req CompletionRequest) (string, error)
}

// SpeechSynthesizer turns narration text into audio bytes (mp3)
type SpeechSynthesizer interface {
	Synthesize(ctx context.Context, text string) ([]byte, error)
}

// ImageSearcher returns the best image URL for a query
type ImageSearcher interface {
	SearchImage(ctx context.Context, query string) (string, error)
}

// Clock returns the current time; services take one so tests can pin it
type Clock func() time.Time
