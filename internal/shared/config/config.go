package config

import (
	"log"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Config holds application configuration.
type Config struct {
	Port            string
	Env             string
	CORSAllowOrigin []string
	DatabaseURL     string

	ObjectStoreType string
	LocalStoreDir   string
	MinioEndpoint   string
	MinioAccessKey  string
	MinioSecretKey  string
	MinioBucket     string
	MinioPrefix     string
	MinioUseSSL     bool

	UploadMaxBytes int64

	GeminiAPIKey     string
	GeminiModel      string
	GeminiBaseURL    string
	GeminiTimeout    time.Duration
	GeminiMaxPerMin  int
	GeminiRequestGap time.Duration
	GeminiMaxTries   int
	GeminiBackoff    time.Duration
	GeminiBackoffCap time.Duration

	MediaProvider  string
	SpeechLanguage string

	JWTSecret string
	JWTTTL    time.Duration

	GoogleClientID     string
	GoogleClientSecret string
	GoogleRedirectURL  string
	UIRedirectURL      string
	AdminEmails        []string

	CacheBackend     string
	RedisAddr        string
	RedisPassword    string
	RedisDB          int
	ScheduleCacheTTL time.Duration

	SendgridAPIKey   string
	EmailFrom        string
	EmailFromName    string
	NotifyEmailKinds []string

	WorkerPollInterval time.Duration
	WorkerConcurrency  int
	WorkerStaleAfter   time.Duration

	RateLimitPerSec    float64
	RateLimitBurst     int
	RateLimitGenPerSec float64
	RateLimitGenBurst  int

	FreePlanLimit int
	ProPlanLimit  int
}

// Load reads configuration from environment variables with sensible defaults.
func Load() Config {
	// Best-effort load of local env files for dev convenience.
	_ = godotenv.Load(".env", "cmd/.env")

	env := normalizeEnv(getEnv("ENV", "dev"))
	dbURL := os.Getenv("DATABASE_URL")

	if env == "production" && dbURL == "" {
		log.Printf("DATABASE_URL is required in production")
	}

	return Config{
		Port:            getEnv("PORT", "8080"),
		Env:             env,
		CORSAllowOrigin: splitAndTrim(getEnv("CORS_ALLOW_ORIGINS", "http://localhost:3000")),
		DatabaseURL:     dbURL,

		ObjectStoreType: normalizeStoreType(getEnv("OBJECT_STORE", "local")),
		LocalStoreDir:   getEnv("LOCAL_STORE_DIR", "./data"),
		MinioEndpoint:   getEnv("MINIO_ENDPOINT", ""),
		MinioAccessKey:  getEnv("MINIO_ACCESS_KEY", ""),
		MinioSecretKey:  getEnv("MINIO_SECRET_KEY", ""),
		MinioBucket:     getEnv("MINIO_BUCKET", "neurolearn"),
		MinioPrefix:     getEnv("MINIO_PREFIX", ""),
		MinioUseSSL:     getEnvBool("MINIO_USE_SSL", true),

		UploadMaxBytes: int64(getEnvInt("UPLOAD_MAX_BYTES", 25<<20)),

		GeminiAPIKey:     getEnv("GEMINI_API_KEY", ""),
		GeminiModel:      getEnv("GEMINI_MODEL", "gemini-2.0-flash"),
		GeminiBaseURL:    getEnv("GEMINI_BASE_URL", "https://generativelanguage.googleapis.com/v1beta"),
		GeminiTimeout:    getEnvDuration("GEMINI_TIMEOUT", 90*time.Second),
		GeminiMaxPerMin:  getEnvInt("GEMINI_MAX_PER_MINUTE", 14),
		GeminiRequestGap: getEnvDuration("GEMINI_REQUEST_GAP", 4*time.Second),
		GeminiMaxTries:   getEnvInt("GEMINI_MAX_ATTEMPTS", 3),
		GeminiBackoff:    getEnvDuration("GEMINI_BACKOFF_BASE", 2*time.Second),
		GeminiBackoffCap: getEnvDuration("GEMINI_BACKOFF_CAP", 30*time.Second),

		MediaProvider:  normalizeMediaProvider(getEnv("MEDIA_PROVIDER", "")),
		SpeechLanguage: getEnv("SPEECH_LANGUAGE", "en-US"),

		JWTSecret: getEnv("JWT_SECRET", ""),
		JWTTTL:    getEnvDuration("JWT_TTL", 14*24*time.Hour),

		GoogleClientID:     getEnv("GOOGLE_CLIENT_ID", ""),
		GoogleClientSecret: getEnv("GOOGLE_CLIENT_SECRET", ""),
		GoogleRedirectURL:  getEnv("GOOGLE_REDIRECT_URL", ""),
		UIRedirectURL:      getEnv("UI_REDIRECT_URL", "http://localhost:3000"),
		AdminEmails:        splitAndTrim(getEnv("ADMIN_EMAILS", "")),

		CacheBackend:     normalizeCacheBackend(getEnv("CACHE_BACKEND", "memory")),
		RedisAddr:        getEnv("REDIS_ADDR", ""),
		RedisPassword:    getEnv("REDIS_PASSWORD", ""),
		RedisDB:          getEnvInt("REDIS_DB", 0),
		ScheduleCacheTTL: getEnvDuration("SCHEDULE_CACHE_TTL", 60*time.Second),

		SendgridAPIKey:   getEnv("SENDGRID_API_KEY", ""),
		EmailFrom:        getEnv("EMAIL_FROM", "no-reply@neurolearn.app"),
		EmailFromName:    getEnv("EMAIL_FROM_NAME", "NeuroLearn"),
		NotifyEmailKinds: splitAndTrim(getEnv("NOTIFY_EMAIL_KINDS", "")),

		WorkerPollInterval: getEnvDuration("WORKER_POLL_INTERVAL", 5*time.Second),
		WorkerConcurrency:  getEnvInt("WORKER_CONCURRENCY", 2),
		WorkerStaleAfter:   getEnvDuration("WORKER_STALE_AFTER", 10*time.Minute),

		RateLimitPerSec:    getEnvFloat("RATE_LIMIT_RPS", 10),
		RateLimitBurst:     getEnvInt("RATE_LIMIT_BURST", 30),
		RateLimitGenPerSec: getEnvFloat("RATE_LIMIT_GENERATE_RPS", 1),
		RateLimitGenBurst:  getEnvInt("RATE_LIMIT_GENERATE_BURST", 5),

		FreePlanLimit: getEnvInt("FREE_PLAN_LIMIT", 20),
		ProPlanLimit:  getEnvInt("PRO_PLAN_LIMIT", 200),
	}
}

func getEnv(key, def string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return def
}

func getEnvInt(key string, def int) int {
	raw := os.Getenv(key)
	if raw == "" {
		return def
	}
	n, err := strconv.Atoi(strings.TrimSpace(raw))
	if err != nil {
		return def
	}
	return n
}

func getEnvFloat(key string, def float64) float64 {
	raw := os.Getenv(key)
	if raw == "" {
		return def
	}
	f, err := strconv.ParseFloat(strings.TrimSpace(raw), 64)
	if err != nil {
		return def
	}
	return f
}

func getEnvBool(key string, def bool) bool {
	raw := os.Getenv(key)
	if raw == "" {
		return def
	}
	b, err := strconv.ParseBool(strings.TrimSpace(raw))
	if err != nil {
		return def
	}
	return b
}

func getEnvDuration(key string, def time.Duration) time.Duration {
	raw := os.Getenv(key)
	if raw == "" {
		return def
	}
	d, err := time.ParseDuration(strings.TrimSpace(raw))
	if err != nil || d <= 0 {
		return def
	}
	return d
}

func splitAndTrim(raw string) []string {
	parts := strings.Split(raw, ",")
	var out []string
	for _, p := range parts {
		if trimmed := strings.TrimSpace(p); trimmed != "" {
			out = append(out, trimmed)
		}
	}
	return out
}

func normalizeEnv(raw string) string {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "production", "prod":
		return "production"
	case "staging":
		return "staging"
	case "local":
		return "local"
	case "development", "dev":
		return "dev"
	default:
		return "dev"
	}
}

func normalizeStoreType(raw string) string {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "minio", "s3":
		return "minio"
	default:
		return "local"
	}
}

func normalizeCacheBackend(raw string) string {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "redis":
		return "redis"
	default:
		return "memory"
	}
}

func normalizeMediaProvider(raw string) string {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "gcp", "google":
		return "gcp"
	default:
		return ""
	}
}
