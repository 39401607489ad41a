package config

import (
	"context"
	"errors"
	"fmt"
	"time"

	"learnlink-server/internal/domain"
	"learnlink-server/internal/infra/drive"
	mongostore "learnlink-server/internal/infra/mongo"
	"learnlink-server/internal/infra/objectstore"
	"learnlink-server/internal/infra/openai"
	"learnlink-server/internal/infra/serpapi"
	"learnlink-server/internal/infra/supabase"
	"learnlink-server/internal/infra/tokenstore"
	"learnlink-server/internal/infra/vertex"
	"learnlink-server/internal/repository"
	"learnlink-server/internal/service"
	"learnlink-server/pkg/logger"

	"github.com/redis/go-redis/v9"
)

const mongoConnectTimeout = 10 * time.Second

// Container holds all application dependencies
type Container struct {
	Config domain.Config
	Logger domain.Logger

	DocumentStore domain.DocumentStore
	ObjectStore   domain.ObjectStore
	TokenStore    domain.TokenStore

	Users       *service.UserService
	Progress    *service.ProgressService
	Preferences *service.PreferenceService
	Files       *service.FileService
	Visual      *service.VisualService
	Drive       *service.DriveService

	closers []func(ctx context.Context) error
}

// NewContainer creates a new dependency injection container from the environment
func NewContainer(ctx context.Context) (*Container, error) {
	cfg := NewConfig()
	return NewContainerWith(ctx, cfg, logger.NewLogger(cfg.GetLogLevel(), cfg.GetLogFormat()))
}

// NewContainerWith wires the backends selected by cfg. On error every backend opened so far is closed.
func NewContainerWith(ctx context.Context, cfg domain.Config, log domain.Logger) (*Container, error) {
	c := &Container{Config: cfg, Logger: log}

	if err := c.wire(ctx); err != nil {
		_ = c.Close(context.Background())
		return nil, err
	}
	return c, nil
}

func (c *Container) wire(ctx context.Context) error {
	var err error
	var supa *supabase.Client
	if c.Config.GetDocumentStore() == "supabase" || c.Config.GetObjectStore() == "supabase" {
		if supa, err = supabase.NewClient(c.Config, c.Logger); err != nil {
			return err
		}
	}

	if c.DocumentStore, err = c.documentStore(ctx, supa); err != nil {
		return err
	}
	if c.ObjectStore, err = c.objectStore(ctx, supa); err != nil {
		return err
	}
	if c.TokenStore, err = c.tokenStore(); err != nil {
		return err
	}
	text, speech, err := c.generators(ctx)
	if err != nil {
		return err
	}
	var images domain.ImageSearcher
	if key := c.Config.GetSerpAPIKey(); key != "" {
		images = serpapi.NewClient(key, "")
	}

	users := repository.NewUserRepository(c.DocumentStore, c.Logger)
	files := repository.NewFileRepository(c.DocumentStore, c.Logger)
	prefs := repository.NewPreferenceRepository(c.DocumentStore)
	board := repository.NewLeaderboardRepository(c.DocumentStore)

	generator := service.NewContentGenerator(text, images, c.Logger)
	extractor := service.NewTextExtractor(c.Logger)

	c.Users = service.NewUserService(users, files, prefs, generator, time.Now, c.Logger)
	c.Progress = service.NewProgressService(users, board, time.Now, c.Logger)
	c.Preferences = service.NewPreferenceService(users, prefs, time.Now, c.Logger)
	c.Files = service.NewFileService(files, c.ObjectStore, extractor, generator, speech, c.Config.GetMaxFileSize(), time.Now, c.Logger)
	c.Visual = service.NewVisualService(c.Files, generator, c.Logger)

	credentials, err := service.NewCredentialStore(service.CredentialConfig{
		ClientID:     c.Config.GetGoogleClientID(),
		ClientSecret: c.Config.GetGoogleClientSecret(),
		RedirectURL:  c.Config.GetGoogleRedirectURL(),
		CacheSize:    c.Config.GetCredentialCacheSize(),
	}, c.TokenStore, c.Logger)
	if err != nil {
		return err
	}
	c.Drive = service.NewDriveService(credentials, drive.Factory(), c.Logger)

	c.Logger.Info("Container initialized",
		"documentStore", c.Config.GetDocumentStore(),
		"objectStore", c.Config.GetObjectStore(),
		"tokenStore", c.Config.GetTokenStore(),
		"generator", generator.Available(),
		"imageSearch", images != nil,
	)
	return nil
}

func (c *Container) documentStore(ctx context.Context, supa *supabase.Client) (domain.DocumentStore, error) {
	switch c.Config.GetDocumentStore() {
	case "", "memory":
		c.Logger.Warn("Using in-memory document store; records are lost on restart")
		return repository.NewMemoryStore(), nil
	case "mongo":
		client, err := mongostore.Connect(ctx, c.Config.GetMongoURI(), mongoConnectTimeout)
		if err != nil {
			return nil, err
		}
		c.closers = append(c.closers, client.Disconnect)
		return mongostore.NewDocumentStore(client.Database(c.Config.GetMongoDatabase())), nil
	case "supabase":
		return supabase.NewDocumentStore(supa, c.Logger), nil
	default:
		return nil, fmt.Errorf("unknown DOCUMENT_STORE %q", c.Config.GetDocumentStore())
	}
}

func (c *Container) objectStore(ctx context.Context, supa *supabase.Client) (domain.ObjectStore, error) {
	switch c.Config.GetObjectStore() {
	case "", "local":
		return objectstore.NewLocalStore(c.Config.GetUploadPath(), c.Config.GetPublicBaseURL())
	case "minio":
		return objectstore.NewMinIOStore(ctx, objectstore.MinIOConfig{
			Endpoint:  c.Config.GetMinioEndpoint(),
			AccessKey: c.Config.GetMinioAccessKey(),
			SecretKey: c.Config.GetMinioSecretKey(),
			Bucket:    c.Config.GetMinioBucket(),
			UseSSL:    c.Config.GetMinioUseSSL(),
		})
	case "s3":
		return objectstore.NewS3Store(ctx, c.Config.GetS3Bucket(), c.Config.GetAWSRegion(), c.Config.GetS3PublicBaseURL())
	case "gcs":
		store, err := objectstore.NewGCSStore(ctx, c.Config.GetGCSBucket())
		if err != nil {
			return nil, err
		}
		c.closers = append(c.closers, func(context.Context) error { return store.Close() })
		return store, nil
	case "supabase":
		return supabase.NewObjectStore(supa, c.Config.GetSupabaseBucket(), c.Logger), nil
	default:
		return nil, fmt.Errorf("unknown OBJECT_STORE %q", c.Config.GetObjectStore())
	}
}

func (c *Container) tokenStore() (domain.TokenStore, error) {
	switch c.Config.GetTokenStore() {
	case "", "file":
		return tokenstore.NewFileStore(c.Config.GetTokenDir())
	case "redis":
		client := redis.NewClient(&redis.Options{
			Addr:     c.Config.GetRedisAddr(),
			Password: c.Config.GetRedisPassword(),
			DB:       c.Config.GetRedisDB(),
		})
		c.closers = append(c.closers, func(context.Context) error { return client.Close() })
		return tokenstore.NewRedisStore(client, ""), nil
	default:
		return nil, fmt.Errorf("unknown TOKEN_STORE %q", c.Config.GetTokenStore())
	}
}

// generators returns the text backend and the speech backend; either may be nil
func (c *Container) generators(ctx context.Context) (domain.TextGenerator, domain.SpeechSynthesizer, error) {
	var (
		text   domain.TextGenerator
		speech domain.SpeechSynthesizer
	)
	if key := c.Config.GetOpenAIAPIKey(); key != "" {
		client := openai.NewClient(openai.Config{
			APIKey:   key,
			BaseURL:  c.Config.GetOpenAIBaseURL(),
			Model:    c.Config.GetOpenAIModel(),
			TTSModel: c.Config.GetOpenAITTSModel(),
			TTSVoice: c.Config.GetOpenAITTSVoice(),
		}, nil, c.Logger)
		speech = client
		if c.Config.GetGenerativeProvider() == "openai" {
			text = client
		}
	}

	switch c.Config.GetGenerativeProvider() {
	case "vertex":
		if c.Config.GetVertexProjectID() == "" {
			c.Logger.Warn("GENERATIVE_PROVIDER is vertex but VERTEX_PROJECT_ID is empty; serving placeholder content")
			break
		}
		gen, err := vertex.NewGenerator(ctx, c.Config.GetVertexProjectID(), c.Config.GetVertexLocation(), c.Config.GetVertexModel(), c.Logger)
		if err != nil {
			return nil, nil, err
		}
		c.closers = append(c.closers, func(context.Context) error { return gen.Close() })
		text = gen
	case "openai":
		if text == nil {
			c.Logger.Warn("OPENAI_API_KEY not set; serving placeholder content")
		}
	case "none", "":
	default:
		return nil, nil, fmt.Errorf("unknown GENERATIVE_PROVIDER %q", c.Config.GetGenerativeProvider())
	}
	return text, speech, nil
}

// LocalObjectRoot returns the directory served at /objects/, or "" when objects live elsewhere
func (c *Container) LocalObjectRoot() string {
	if local, ok := c.ObjectStore.(*objectstore.LocalStore); ok {
		return local.Root()
	}
	return ""
}

// Close waits for background work and releases backend connections
func (c *Container) Close(ctx context.Context) error {
	if c.Progress != nil {
		c.Progress.Wait()
	}
	var errs []error
	for i := len(c.closers) - 1; i >= 0; i-- {
		if err := c.closers[i](ctx); err != nil {
			errs = append(errs, err)
		}
	}
	c.closers = nil
	return errors.Join(errs...)
}
