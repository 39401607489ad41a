package config

import (
	"strings"

	"learnlink-server/internal/domain"

	"github.com/spf13/viper"
)

// AppConfig implements the domain.Config interface
type AppConfig struct {
	ServerPort     string
	UploadPath     string
	MaxFileSize    int64
	LogLevel       string
	LogFormat      string
	PublicBaseURL  string
	FrontendURL    string
	AllowedOrigins []string

	DocumentStore  string
	MongoURI       string
	MongoDatabase  string
	SupabaseURL    string
	SupabaseKey    string
	SupabaseBucket string

	ObjectStore     string
	MinioEndpoint   string
	MinioAccessKey  string
	MinioSecretKey  string
	MinioBucket     string
	MinioUseSSL     bool
	S3Bucket        string
	AWSRegion       string
	S3PublicBaseURL string
	GCSBucket       string

	TokenStore          string
	TokenDir            string
	RedisAddr           string
	RedisPassword       string
	RedisDB             int
	CredentialCacheSize int

	GoogleClientID     string
	GoogleClientSecret string
	GoogleRedirectURL  string

	GenerativeProvider string
	OpenAIAPIKey       string
	OpenAIBaseURL      string
	OpenAIModel        string
	OpenAITTSModel     string
	OpenAITTSVoice     string
	VertexProjectID    string
	VertexLocation     string
	VertexModel        string
	SerpAPIKey         string

	RateLimitRPS   float64
	RateLimitBurst int
	TrustedProxies []string
}

// NewConfig creates a new configuration instance from the environment with default values
func NewConfig() domain.Config {
	v := viper.New()
	v.AutomaticEnv()

	v.SetDefault("SERVER_PORT", "8080")
	v.SetDefault("UPLOAD_PATH", "./uploads")
	v.SetDefault("MAX_FILE_SIZE", 50*1024*1024) // 50MB
	v.SetDefault("LOG_LEVEL", "info")
	v.SetDefault("LOG_FORMAT", "console")
	v.SetDefault("PUBLIC_BASE_URL", "http://localhost:8080")
	v.SetDefault("ALLOWED_ORIGINS", "http://localhost:5173,http://localhost:4173,http://localhost:3000")

	v.SetDefault("DOCUMENT_STORE", "memory")
	v.SetDefault("MONGO_DATABASE", "learnlink")
	v.SetDefault("SUPABASE_BUCKET", "learnlink")

	v.SetDefault("OBJECT_STORE", "local")
	v.SetDefault("MINIO_BUCKET", "learnlink")
	v.SetDefault("AWS_REGION", "us-east-1")

	v.SetDefault("TOKEN_STORE", "file")
	v.SetDefault("TOKEN_DIR", "./user_tokens")
	v.SetDefault("REDIS_ADDR", "localhost:6379")
	v.SetDefault("REDIS_DB", 0)
	v.SetDefault("CREDENTIAL_CACHE_SIZE", 1000)

	v.SetDefault("GOOGLE_REDIRECT_URL", "http://localhost:5000/oauth2callback")

	v.SetDefault("GENERATIVE_PROVIDER", "openai")
	v.SetDefault("OPENAI_BASE_URL", "https://api.openai.com/v1")
	v.SetDefault("OPENAI_MODEL", "gpt-3.5-turbo")
	v.SetDefault("OPENAI_TTS_MODEL", "tts-1")
	v.SetDefault("OPENAI_TTS_VOICE", "alloy")
	v.SetDefault("VERTEX_LOCATION", "us-central1")
	v.SetDefault("VERTEX_MODEL", "gemini-1.5-flash")

	v.SetDefault("RATE_LIMIT_RPS", 2.0)
	v.SetDefault("RATE_LIMIT_BURST", 5)

	// Cloud Run (and many PaaS) provide the listening port via PORT.
	// Keep SERVER_PORT for local/dev compatibility.
	port := v.GetString("PORT")
	if port == "" {
		port = v.GetString("SERVER_PORT")
	}

	return &AppConfig{
		ServerPort:     port,
		UploadPath:     v.GetString("UPLOAD_PATH"),
		MaxFileSize:    v.GetInt64("MAX_FILE_SIZE"),
		LogLevel:       v.GetString("LOG_LEVEL"),
		LogFormat:      v.GetString("LOG_FORMAT"),
		PublicBaseURL:  strings.TrimRight(v.GetString("PUBLIC_BASE_URL"), "/"),
		FrontendURL:    v.GetString("FRONTEND_URL"),
		AllowedOrigins: splitList(v.GetString("ALLOWED_ORIGINS")),

		DocumentStore:  strings.ToLower(v.GetString("DOCUMENT_STORE")),
		MongoURI:       v.GetString("MONGO_URI"),
		MongoDatabase:  v.GetString("MONGO_DATABASE"),
		SupabaseURL:    v.GetString("SUPABASE_URL"),
		SupabaseKey:    v.GetString("SUPABASE_SERVICE_KEY"),
		SupabaseBucket: v.GetString("SUPABASE_BUCKET"),

		ObjectStore:     strings.ToLower(v.GetString("OBJECT_STORE")),
		MinioEndpoint:   v.GetString("MINIO_ENDPOINT"),
		MinioAccessKey:  v.GetString("MINIO_ACCESS_KEY"),
		MinioSecretKey:  v.GetString("MINIO_SECRET_KEY"),
		MinioBucket:     v.GetString("MINIO_BUCKET"),
		MinioUseSSL:     v.GetBool("MINIO_USE_SSL"),
		S3Bucket:        v.GetString("S3_BUCKET"),
		AWSRegion:       v.GetString("AWS_REGION"),
		S3PublicBaseURL: strings.TrimRight(v.GetString("S3_PUBLIC_BASE_URL"), "/"),
		GCSBucket:       v.GetString("GCS_BUCKET"),

		TokenStore:          strings.ToLower(v.GetString("TOKEN_STORE")),
		TokenDir:            v.GetString("TOKEN_DIR"),
		RedisAddr:           v.GetString("REDIS_ADDR"),
		RedisPassword:       v.GetString("REDIS_PASSWORD"),
		RedisDB:             v.GetInt("REDIS_DB"),
		CredentialCacheSize: v.GetInt("CREDENTIAL_CACHE_SIZE"),

		GoogleClientID:     v.GetString("GOOGLE_CLIENT_ID"),
		GoogleClientSecret: v.GetString("GOOGLE_CLIENT_SECRET"),
		GoogleRedirectURL:  v.GetString("GOOGLE_REDIRECT_URL"),

		GenerativeProvider: strings.ToLower(v.GetString("GENERATIVE_PROVIDER")),
		OpenAIAPIKey:       v.GetString("OPENAI_API_KEY"),
		OpenAIBaseURL:      strings.TrimRight(v.GetString("OPENAI_BASE_URL"), "/"),
		OpenAIModel:        v.GetString("OPENAI_MODEL"),
		OpenAITTSModel:     v.GetString("OPENAI_TTS_MODEL"),
		OpenAITTSVoice:     v.GetString("OPENAI_TTS_VOICE"),
		VertexProjectID:    v.GetString("VERTEX_PROJECT_ID"),
		VertexLocation:     v.GetString("VERTEX_LOCATION"),
		VertexModel:        v.GetString("VERTEX_MODEL"),
		SerpAPIKey:         v.GetString("SERPAPI_API_KEY"),

		RateLimitRPS:   v.GetFloat64("RATE_LIMIT_RPS"),
		RateLimitBurst: v.GetInt("RATE_LIMIT_BURST"),
		TrustedProxies: splitList(v.GetString("TRUSTED_PROXIES")),
	}
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	return out
}

// GetServerPort returns the server port
func (c *AppConfig) GetServerPort() string { return c.ServerPort }

// GetUploadPath returns the directory used by the local object store
func (c *AppConfig) GetUploadPath() string { return c.UploadPath }

// GetMaxFileSize returns the maximum allowed file size
func (c *AppConfig) GetMaxFileSize() int64 { return c.MaxFileSize }

// GetLogLevel returns the logging level
func (c *AppConfig) GetLogLevel() string { return c.LogLevel }

// GetLogFormat returns json or console
func (c *AppConfig) GetLogFormat() string { return c.LogFormat }

// GetPublicBaseURL returns the externally reachable base URL of this server
func (c *AppConfig) GetPublicBaseURL() string { return c.PublicBaseURL }

// GetFrontendURL returns where the OAuth callback redirects to
func (c *AppConfig) GetFrontendURL() string { return c.FrontendURL }

// GetAllowedOrigins returns the CORS origins
func (c *AppConfig) GetAllowedOrigins() []string { return c.AllowedOrigins }

func (c *AppConfig) GetDocumentStore() string  { return c.DocumentStore }
func (c *AppConfig) GetMongoURI() string       { return c.MongoURI }
func (c *AppConfig) GetMongoDatabase() string  { return c.MongoDatabase }
func (c *AppConfig) GetSupabaseURL() string    { return c.SupabaseURL }
func (c *AppConfig) GetSupabaseKey() string    { return c.SupabaseKey }
func (c *AppConfig) GetSupabaseBucket() string { return c.SupabaseBucket }

func (c *AppConfig) GetObjectStore() string     { return c.ObjectStore }
func (c *AppConfig) GetMinioEndpoint() string   { return c.MinioEndpoint }
func (c *AppConfig) GetMinioAccessKey() string  { return c.MinioAccessKey }
func (c *AppConfig) GetMinioSecretKey() string  { return c.MinioSecretKey }
func (c *AppConfig) GetMinioBucket() string     { return c.MinioBucket }
func (c *AppConfig) GetMinioUseSSL() bool       { return c.MinioUseSSL }
func (c *AppConfig) GetS3Bucket() string        { return c.S3Bucket }
func (c *AppConfig) GetAWSRegion() string       { return c.AWSRegion }
func (c *AppConfig) GetS3PublicBaseURL() string { return c.S3PublicBaseURL }
func (c *AppConfig) GetGCSBucket() string       { return c.GCSBucket }

func (c *AppConfig) GetTokenStore() string       { return c.TokenStore }
func (c *AppConfig) GetTokenDir() string         { return c.TokenDir }
func (c *AppConfig) GetRedisAddr() string        { return c.RedisAddr }
func (c *AppConfig) GetRedisPassword() string    { return c.RedisPassword }
func (c *AppConfig) GetRedisDB() int             { return c.RedisDB }
func (c *AppConfig) GetCredentialCacheSize() int { return c.CredentialCacheSize }

func (c *AppConfig) GetGoogleClientID() string     { return c.GoogleClientID }
func (c *AppConfig) GetGoogleClientSecret() string { return c.GoogleClientSecret }
func (c *AppConfig) GetGoogleRedirectURL() string  { return c.GoogleRedirectURL }

func (c *AppConfig) GetGenerativeProvider() string { return c.GenerativeProvider }
func (c *AppConfig) GetOpenAIAPIKey() string       { return c.OpenAIAPIKey }
func (c *AppConfig) GetOpenAIBaseURL() string      { return c.OpenAIBaseURL }
func (c *AppConfig) GetOpenAIModel() string        { return c.OpenAIModel }
func (c *AppConfig) GetOpenAITTSModel() string     { return c.OpenAITTSModel }
func (c *AppConfig) GetOpenAITTSVoice() string     { return c.OpenAITTSVoice }
func (c *AppConfig) GetVertexProjectID() string    { return c.VertexProjectID }
func (c *AppConfig) GetVertexLocation() string     { return c.VertexLocation }
func (c *AppConfig) GetVertexModel() string        { return c.VertexModel }
func (c *AppConfig) GetSerpAPIKey() string         { return c.SerpAPIKey }

func (c *AppConfig) GetRateLimitRPS() float64 { return c.RateLimitRPS }
func (c *AppConfig) GetRateLimitBurst() int   { return c.RateLimitBurst }

// GetTrustedProxies returns the proxy addresses or CIDRs whose X-Forwarded-For is honoured
func (c *AppConfig) GetTrustedProxies() []string { return c.TrustedProxies }
