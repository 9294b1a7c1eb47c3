package server

import (
	"context"
	"database/sql"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"

	"neurolearn-backend/internal/admin"
	googleauth "neurolearn-backend/internal/auth"
	"neurolearn-backend/internal/documents"
	"neurolearn-backend/internal/flashcards"
	"neurolearn-backend/internal/notifications"
	"neurolearn-backend/internal/profiles"
	"neurolearn-backend/internal/quizzes"
	"neurolearn-backend/internal/schedule"
	"neurolearn-backend/internal/shared/config"
	"neurolearn-backend/internal/shared/logging"
	"neurolearn-backend/internal/shared/metrics"
	"neurolearn-backend/internal/shared/server/middleware"
	"neurolearn-backend/internal/shared/server/respond"
	"neurolearn-backend/internal/summaries"
	"neurolearn-backend/internal/usage"
)

const serviceName = "neurolearn-backend"

// RouterDeps carries everything the HTTP layer needs. Handlers are built by
// bootstrap; nil handlers simply skip route registration.
type RouterDeps struct {
	Cfg config.Config
	Log *logging.Logger
	DB  *sql.DB

	GoogleAuth    *googleauth.GoogleService
	Documents     *documents.Handler
	Summaries     *summaries.Handler
	Flashcards    *flashcards.Handler
	Quizzes       *quizzes.Handler
	Schedule      *schedule.Handler
	Notifications *notifications.Handler
	Profiles      *profiles.Handler
	Usage         *usage.Handler
	Admin         *admin.Handler
}

// NewRouter constructs the Gin engine with middleware and routes registered.
func NewRouter(deps RouterDeps) *gin.Engine {
	if deps.Cfg.Env == "production" || deps.Cfg.Env == "staging" {
		gin.SetMode(gin.ReleaseMode)
	}
	log := deps.Log
	if log == nil {
		log = logging.Nop()
	}
	respond.SetLogger(log)

	r := gin.New()
	r.Use(
		middleware.RequestID(),
		otelgin.Middleware(serviceName),
		metrics.Middleware(),
		middleware.Logging(log),
		middleware.Recovery(log),
		middleware.CORS(deps.Cfg.CORSAllowOrigin),
	)

	r.GET("/metrics", metrics.Handler())

	// Health and the OAuth flow are the only anonymous routes.
	public := r.Group("/api/v1")
	public.GET("/health", healthHandler(deps.DB))
	if deps.GoogleAuth != nil {
		deps.GoogleAuth.RegisterRoutes(public)
	}

	api := r.Group("/api/v1", middleware.Auth(), middleware.RateLimit(rateLimitConfig(deps.Cfg)))
	registerMeRoutes(api)
	if deps.Documents != nil {
		deps.Documents.RegisterRoutes(api)
	}
	if deps.Summaries != nil {
		deps.Summaries.RegisterRoutes(api)
	}
	if deps.Flashcards != nil {
		deps.Flashcards.RegisterRoutes(api)
	}
	if deps.Quizzes != nil {
		deps.Quizzes.RegisterRoutes(api)
	}
	if deps.Schedule != nil {
		deps.Schedule.RegisterRoutes(api)
	}
	if deps.Notifications != nil {
		deps.Notifications.RegisterRoutes(api)
	}
	if deps.Profiles != nil {
		deps.Profiles.RegisterRoutes(api)
	}
	if deps.Usage != nil {
		deps.Usage.RegisterRoutes(api)
	}
	if deps.Admin != nil {
		deps.Admin.RegisterRoutes(api)
	}

	if deps.Cfg.Env == "dev" && deps.Usage != nil {
		deps.Usage.RegisterDevRoutes(api.Group("/dev"))
	}

	return r
}

// rateLimitConfig builds the per-principal rules for the authed surface.
// The generation POST endpoints refill slower than the rest of the API;
// a non-positive rate disables the corresponding group.
func rateLimitConfig(cfg config.Config) middleware.RateLimitConfig {
	return middleware.RateLimitConfig{
		Rules: map[string]middleware.RateLimitRule{
			"DEFAULT":  {Rate: cfg.RateLimitPerSec, Burst: cfg.RateLimitBurst},
			"GENERATE": {Rate: cfg.RateLimitGenPerSec, Burst: cfg.RateLimitGenBurst},
		},
		GroupFor: generationGroup,
	}
}

func generationGroup(c *gin.Context) string {
	if c.Request.Method != http.MethodPost {
		return ""
	}
	switch c.FullPath() {
	case "/api/v1/documents/:id/summaries",
		"/api/v1/documents/:id/flashcards",
		"/api/v1/documents/:id/quizzes":
		return "GENERATE"
	}
	return ""
}

func healthHandler(db *sql.DB) gin.HandlerFunc {
	return func(c *gin.Context) {
		body := gin.H{"ok": true, "db": "disabled"}
		if db != nil {
			ctx, cancel := context.WithTimeout(c.Request.Context(), 2*time.Second)
			defer cancel()
			if err := db.PingContext(ctx); err != nil {
				respond.JSON(c, http.StatusServiceUnavailable, gin.H{"ok": false, "db": "down"})
				return
			}
			body["db"] = "up"
		}
		respond.JSON(c, http.StatusOK, body)
	}
}

// Addr normalizes the listen address.
func Addr(port string) string {
	if port == "" {
		return ":8080"
	}
	if port[0] == ':' {
		return port
	}
	return ":" + port
}
