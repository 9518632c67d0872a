package bootstrap

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"github.com/gin-gonic/gin"

	"cvpro-backend/internal/admins"
	"cvpro-backend/internal/extract"
	"cvpro-backend/internal/ingest"
	"cvpro-backend/internal/llm"
	"cvpro-backend/internal/llm/gemini"
	"cvpro-backend/internal/llm/openai"
	"cvpro-backend/internal/resumes"
	"cvpro-backend/internal/services/health"
	"cvpro-backend/internal/shared/auth"
	"cvpro-backend/internal/shared/config"
	"cvpro-backend/internal/shared/server"
	"cvpro-backend/internal/shared/server/middleware"
	"cvpro-backend/internal/shared/storage/blob"
	localblob "cvpro-backend/internal/shared/storage/blob/local"
	minioblob "cvpro-backend/internal/shared/storage/blob/minio"
	s3blob "cvpro-backend/internal/shared/storage/blob/s3"
	"cvpro-backend/internal/shared/storage/db"
	"cvpro-backend/internal/shared/telemetry"
	"cvpro-backend/internal/users"
)

// App holds shared dependencies and the wired router.
type App struct {
	Config config.Config
	Router *gin.Engine
	DB     *sql.DB
	Blobs  blob.Store
	AI     llm.Client
	Tokens *auth.Issuer

	ResumesRepo resumes.Repo
	UsersRepo   users.Repo

	IngestService  *ingest.Service
	ResumesService *resumes.Service
	UsersService   *users.Service
	AdminsService  *admins.Service

	IngestHandler  *ingest.Handler
	ResumesHandler *resumes.Handler
	UsersHandler   *users.Handler
	AdminsHandler  *admins.Handler
	GoogleAuth     *users.GoogleAuth
}

// Build constructs every dependency once and wires the router.
func Build(ctx context.Context, cfg config.Config) (*App, error) {
	if strings.TrimSpace(cfg.Env) == "" {
		cfg.Env = "dev"
	}

	sqlDB, err := buildDB(ctx, cfg)
	if err != nil {
		return nil, err
	}

	blobs, err := buildBlobStore(ctx, cfg)
	if err != nil {
		closeDB(sqlDB)
		return nil, err
	}

	ai, err := buildAI(ctx, cfg)
	if err != nil {
		closeDB(sqlDB)
		return nil, err
	}

	tokens, err := auth.NewIssuer(cfg.JWTSecret, cfg.Env, cfg.AccessTokenTTL, cfg.RefreshTokenTTL)
	if err != nil {
		closeDB(sqlDB)
		return nil, err
	}

	app := &App{
		Config: cfg,
		DB:     sqlDB,
		Blobs:  blobs,
		AI:     ai,
		Tokens: tokens,
	}
	buildServices(app)

	var healthSvc *health.Service
	if sqlDB != nil {
		healthSvc = health.NewService(sqlDB)
	} else {
		healthSvc = health.NewService(nil)
	}

	app.Router = server.NewRouter(server.RouterDeps{
		Config:         cfg,
		Tokens:         tokens,
		Health:         healthSvc,
		IngestHandler:  app.IngestHandler,
		ResumesHandler: app.ResumesHandler,
		UsersHandler:   app.UsersHandler,
		GoogleAuth:     app.GoogleAuth,
		AdminsHandler:  app.AdminsHandler,
		RateLimiter:    middleware.NewRateLimiter(nil),
	})
	return app, nil
}

// Close releases the database pool.
func (a *App) Close() {
	closeDB(a.DB)
}

func closeDB(sqlDB *sql.DB) {
	if sqlDB != nil {
		_ = sqlDB.Close()
	}
}

func buildDB(ctx context.Context, cfg config.Config) (*sql.DB, error) {
	if strings.TrimSpace(cfg.DatabaseURL) == "" {
		if config.IsDevLike(cfg.Env) {
			telemetry.Warn("bootstrap.db.memory", map[string]any{"reason": "DATABASE_URL empty"})
			return nil, nil
		}
		return nil, fmt.Errorf("DATABASE_URL is required")
	}

	sqlDB, err := db.Connect(ctx, cfg.DatabaseURL, db.OptionsFromEnv(db.DefaultServerOptions()))
	if err == nil {
		err = db.RunMigrations(ctx, sqlDB)
		if err != nil {
			closeDB(sqlDB)
			sqlDB = nil
		}
	}
	if err != nil {
		if config.IsDevLike(cfg.Env) {
			telemetry.Warn("bootstrap.db.memory", map[string]any{"reason": err.Error()})
			return nil, nil
		}
		return nil, err
	}
	return sqlDB, nil
}

func buildBlobStore(ctx context.Context, cfg config.Config) (blob.Store, error) {
	switch cfg.ObjectStoreType {
	case "s3":
		if strings.TrimSpace(cfg.S3Bucket) == "" {
			return nil, fmt.Errorf("OBJECT_STORE=s3 requires S3_BUCKET")
		}
		return s3blob.New(ctx, cfg.AWSRegion, cfg.S3Bucket, cfg.S3Prefix, cfg.SSEKMSKeyID)
	case "minio":
		store, err := minioblob.New(minioblob.Config{
			Endpoint:  cfg.MinioEndpoint,
			AccessKey: cfg.MinioAccessKey,
			SecretKey: cfg.MinioSecretKey,
			Bucket:    cfg.MinioBucket,
			UseSSL:    cfg.MinioUseSSL,
		})
		if err != nil {
			return nil, err
		}
		if err := store.EnsureBucket(ctx); err != nil {
			return nil, err
		}
		return store, nil
	default:
		return localblob.New(cfg.LocalStoreDir), nil
	}
}

// buildAI returns nil when no provider is configured; the ingest service
// then fails every request with an AI service error.
func buildAI(ctx context.Context, cfg config.Config) (llm.Client, error) {
	var base llm.Client
	switch cfg.LLMProvider {
	case "gemini":
		if strings.TrimSpace(cfg.GeminiAPIKey) == "" && config.IsDevLike(cfg.Env) {
			telemetry.Warn("bootstrap.ai.disabled", map[string]any{"provider": cfg.LLMProvider, "reason": "GEMINI_API_KEY empty"})
			return nil, nil
		}
		client, err := gemini.NewClient(ctx, cfg.GeminiAPIKey, cfg.LLMModel)
		if err != nil {
			return nil, err
		}
		base = client
	case "openai":
		client, err := openai.NewClient(cfg.OpenAIAPIKey, cfg.LLMModel)
		if err != nil {
			return nil, err
		}
		base = client
	default:
		return nil, nil
	}
	return llm.WithRetry(base, llm.RetryPolicy{MaxRetries: cfg.AIMaxRetries, Delay: cfg.AIRetryDelay}), nil
}

func buildServices(app *App) {
	cfg := app.Config

	if app.DB != nil {
		app.ResumesRepo = &resumes.PGRepo{DB: app.DB}
		app.UsersRepo = &users.PGRepo{DB: app.DB}
	} else {
		app.ResumesRepo = resumes.NewMemoryRepo()
		app.UsersRepo = users.NewMemoryRepo()
	}

	app.IngestService = ingest.NewService(extract.NewExtractor(), app.AI, ingest.Options{
		TempDir:        cfg.IngestTempDir,
		AITimeout:      cfg.AITimeout,
		ValidateSchema: cfg.IngestValidateSchema,
	})
	app.ResumesService = resumes.NewService(app.ResumesRepo, app.Blobs)
	app.UsersService = users.NewService(app.UsersRepo, app.Tokens, users.LogMailer{Redact: !config.IsDevLike(cfg.Env)})
	app.AdminsService = admins.NewService(app.UsersService, app.ResumesService, cfg.AdminSignupKey)

	app.IngestHandler = ingest.NewHandler(app.IngestService, cfg.MaxUploadBytes)
	app.ResumesHandler = resumes.NewHandler(app.ResumesService, cfg.MaxUploadBytes)
	app.UsersHandler = users.NewHandler(app.UsersService)
	app.AdminsHandler = admins.NewHandler(app.AdminsService)
	app.GoogleAuth = users.NewGoogleAuth(
		app.UsersService,
		cfg.GoogleClientID,
		cfg.GoogleClientSecret,
		cfg.GoogleRedirectURL,
		cfg.UIRedirectURL,
	)
}
