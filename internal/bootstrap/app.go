package bootstrap

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"neurolearn-backend/internal/admin"
	"neurolearn-backend/internal/ai"
	"neurolearn-backend/internal/ai/gemini"
	googleauth "neurolearn-backend/internal/auth"
	"neurolearn-backend/internal/documents"
	"neurolearn-backend/internal/flashcards"
	"neurolearn-backend/internal/media"
	"neurolearn-backend/internal/notifications"
	"neurolearn-backend/internal/profiles"
	"neurolearn-backend/internal/quizzes"
	"neurolearn-backend/internal/schedule"
	"neurolearn-backend/internal/shared/cache"
	"neurolearn-backend/internal/shared/config"
	"neurolearn-backend/internal/shared/email"
	"neurolearn-backend/internal/shared/logging"
	"neurolearn-backend/internal/shared/server"
	"neurolearn-backend/internal/shared/storage/db"
	"neurolearn-backend/internal/shared/storage/object"
	localstore "neurolearn-backend/internal/shared/storage/object/local"
	miniostore "neurolearn-backend/internal/shared/storage/object/minio"
	"neurolearn-backend/internal/summaries"
	"neurolearn-backend/internal/usage"
)

// App holds the wired application graph. Both cmd/api and cmd/worker build
// one; the API additionally attaches the router.
type App struct {
	Config config.Config
	Log    *logging.Logger
	DB     *sql.DB
	Store  object.ObjectStore
	Cache  cache.Cache

	router *gin.Engine

	Generator   *ai.Generator
	Transcriber media.Transcriber

	DocumentsRepo  documents.Repo
	SummariesRepo  summaries.Repo
	FlashcardsRepo flashcards.Repo
	QuizzesRepo    quizzes.Repo

	Documents     *documents.Service
	Summaries     *summaries.Service
	Flashcards    *flashcards.Service
	Quizzes       *quizzes.Service
	Schedule      *schedule.Service
	Notifications *notifications.Service
	Profiles      *profiles.Service
	Usage         *usage.Service
	Admin         *admin.Service
	GoogleAuth    *googleauth.GoogleService
}

// Build wires shared dependencies from config. It does not attach routes;
// call Router for that.
func Build(ctx context.Context, cfg config.Config, log *logging.Logger) (*App, error) {
	if log == nil {
		log = logging.Nop()
	}
	usage.SetPlanLimits(cfg.FreePlanLimit, cfg.ProPlanLimit)

	app := &App{Config: cfg, Log: log}

	if cfg.DatabaseURL != "" {
		sqlDB, err := db.Connect(ctx, cfg.DatabaseURL, db.OptionsFromEnv(db.DefaultServerOptions()))
		if err != nil {
			return nil, fmt.Errorf("connect database: %w", err)
		}
		if err := db.RunMigrations(ctx, sqlDB); err != nil {
			sqlDB.Close()
			return nil, fmt.Errorf("run migrations: %w", err)
		}
		app.DB = sqlDB
	} else {
		log.Warn("bootstrap.no_database", "mode", "memory")
	}

	store, err := buildStore(ctx, cfg)
	if err != nil {
		return nil, err
	}
	app.Store = store

	app.Cache, err = buildCache(ctx, cfg, log)
	if err != nil {
		return nil, err
	}

	app.Generator = buildGenerator(cfg, log)
	app.Transcriber = buildTranscriber(ctx, cfg, log)

	app.buildRepos()
	app.buildServices(cfg, log)
	return app, nil
}

// Router constructs the HTTP engine over the wired services. Built once
// and cached.
func (a *App) Router() *gin.Engine {
	if a.router == nil {
		a.router = server.NewRouter(server.RouterDeps{
			Cfg:           a.Config,
			Log:           a.Log,
			DB:            a.DB,
			GoogleAuth:    a.GoogleAuth,
			Documents:     documents.NewHandler(a.Documents),
			Summaries:     summaries.NewHandler(a.Summaries),
			Flashcards:    flashcards.NewHandler(a.Flashcards),
			Quizzes:       quizzes.NewHandler(a.Quizzes),
			Schedule:      schedule.NewHandler(a.Schedule),
			Notifications: notifications.NewHandler(a.Notifications),
			Profiles:      profiles.NewHandler(a.Profiles),
			Usage:         usage.NewHandler(a.Usage),
			Admin:         admin.NewHandler(a.Admin),
		})
	}
	return a.router
}

// Close releases held connections.
func (a *App) Close() {
	if closer, ok := a.Transcriber.(interface{ Close() error }); ok {
		_ = closer.Close()
	}
	if a.DB != nil {
		_ = a.DB.Close()
	}
}

func (a *App) buildRepos() {
	if a.DB != nil {
		a.DocumentsRepo = &documents.PGRepo{DB: a.DB}
		a.SummariesRepo = &summaries.PGRepo{DB: a.DB}
		a.FlashcardsRepo = &flashcards.PGRepo{DB: a.DB}
		a.QuizzesRepo = &quizzes.PGRepo{DB: a.DB}
		return
	}
	a.DocumentsRepo = documents.NewMemoryRepo()
	a.SummariesRepo = summaries.NewMemoryRepo()
	a.FlashcardsRepo = flashcards.NewMemoryRepo()
	a.QuizzesRepo = quizzes.NewMemoryRepo()
}

func (a *App) buildServices(cfg config.Config, log *logging.Logger) {
	var notifRepo notifications.Repo
	var profileRepo profiles.Repo
	var taskRepo schedule.Repo
	if a.DB != nil {
		notifRepo = &notifications.PGRepo{DB: a.DB}
		profileRepo = &profiles.PGRepo{DB: a.DB}
		taskRepo = &schedule.PGRepo{DB: a.DB}
		a.Usage = usage.NewPostgresService(usage.NewPGStore(a.DB))
	} else {
		notifRepo = notifications.NewMemoryRepo()
		profileRepo = profiles.NewMemoryRepo()
		taskRepo = schedule.NewMemoryRepo()
		a.Usage = usage.NewService()
	}

	a.Notifications = notifications.NewService(notifRepo)
	a.Notifications.Log = log
	a.Notifications.Email = email.FromEnv(log.Info)
	a.Notifications.EmailKinds = notifications.ParseKinds(strings.Join(cfg.NotifyEmailKinds, ","))

	a.Profiles = profiles.NewService(profileRepo)
	a.Profiles.Notif = a.Notifications
	a.Notifications.Emails = a.Profiles

	a.Documents = documents.NewService(a.DocumentsRepo, a.Store, cfg.ObjectStoreType, log)
	a.Documents.MaxBytes = cfg.UploadMaxBytes
	a.Documents.Transcriber = a.Transcriber

	a.Summaries = summaries.NewService(a.SummariesRepo, a.Documents, a.Generator, log)
	a.Summaries.Usage = a.Usage
	a.Summaries.Notif = a.Notifications

	a.Flashcards = flashcards.NewService(a.FlashcardsRepo, a.Documents, a.Generator, log)
	a.Flashcards.Usage = a.Usage
	a.Flashcards.Notif = a.Notifications

	a.Quizzes = quizzes.NewService(a.QuizzesRepo, a.Documents, a.Generator, log)
	a.Quizzes.Usage = a.Usage
	a.Quizzes.Notif = a.Notifications

	a.Schedule = schedule.NewService(taskRepo, a.Cache, cfg.ScheduleCacheTTL, log)
	a.Schedule.Sources = []schedule.ContentSource{
		{Kind: "summaries", Counts: a.SummariesRepo.CompletedByDay},
		{Kind: "flashcardDecks", Counts: a.FlashcardsRepo.CompletedByDay},
		{Kind: "quizzes", Counts: a.QuizzesRepo.CompletedByDay},
	}

	var stats admin.StatsProvider
	if a.DB != nil {
		stats = admin.PGStats{DB: a.DB}
	}
	a.Admin = admin.NewService(a.Profiles, a.Usage, stats, log)

	a.GoogleAuth = googleauth.NewGoogleService(googleauth.Options{
		ClientID:     cfg.GoogleClientID,
		ClientSecret: cfg.GoogleClientSecret,
		RedirectURL:  cfg.GoogleRedirectURL,
		UIRedirect:   cfg.UIRedirectURL,
		SessionTTL:   cfg.JWTTTL,
		AdminEmails:  cfg.AdminEmails,
	}, a.Profiles, log)
}

func buildStore(ctx context.Context, cfg config.Config) (object.ObjectStore, error) {
	if cfg.ObjectStoreType == "minio" {
		store, err := miniostore.New(ctx, miniostore.Options{
			Endpoint:  cfg.MinioEndpoint,
			AccessKey: cfg.MinioAccessKey,
			SecretKey: cfg.MinioSecretKey,
			Bucket:    cfg.MinioBucket,
			Prefix:    cfg.MinioPrefix,
			UseSSL:    cfg.MinioUseSSL,
		})
		if err != nil {
			return nil, fmt.Errorf("build object store: %w", err)
		}
		return store, nil
	}
	return localstore.New(cfg.LocalStoreDir), nil
}

func buildCache(ctx context.Context, cfg config.Config, log *logging.Logger) (cache.Cache, error) {
	if cfg.CacheBackend == "redis" {
		c, err := cache.NewRedis(ctx, cache.RedisOptions{
			Addr:     cfg.RedisAddr,
			Password: cfg.RedisPassword,
			DB:       cfg.RedisDB,
		})
		if err != nil {
			return nil, fmt.Errorf("build cache: %w", err)
		}
		return c, nil
	}
	return cache.NewMemory(), nil
}

func buildGenerator(cfg config.Config, log *logging.Logger) *ai.Generator {
	if cfg.GeminiAPIKey == "" {
		log.Warn("bootstrap.no_gemini_key", "generation", "disabled")
		return nil
	}
	client, err := gemini.NewClient(cfg.GeminiAPIKey, cfg.GeminiModel, cfg.GeminiTimeout)
	if err != nil {
		log.Warn("bootstrap.gemini_client_failed", "error", err.Error())
		return nil
	}
	client.SetBaseURL(cfg.GeminiBaseURL)
	pacer := ai.NewPacer(cfg.GeminiMaxPerMin, time.Minute, cfg.GeminiRequestGap)
	return ai.NewGenerator(client, pacer, cfg.GeminiMaxTries, cfg.GeminiBackoff, cfg.GeminiBackoffCap, log)
}

func buildTranscriber(ctx context.Context, cfg config.Config, log *logging.Logger) media.Transcriber {
	if cfg.MediaProvider != "gcp" {
		return media.Disabled{}
	}
	t, err := media.NewGCP(ctx, cfg.SpeechLanguage, log)
	if err != nil {
		log.Warn("bootstrap.media_provider_failed", "error", err.Error())
		return media.Disabled{}
	}
	return t
}
