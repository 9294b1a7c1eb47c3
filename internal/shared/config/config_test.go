package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestLoadDefaults(t *testing.T) {
	cfg := Load()

	assert.Equal(t, "8080", cfg.Port)
	assert.Equal(t, "local", cfg.ObjectStoreType)
	assert.Equal(t, int64(25<<20), cfg.UploadMaxBytes)
	assert.Equal(t, "memory", cfg.CacheBackend)
	assert.Equal(t, 20, cfg.FreePlanLimit)
	assert.Equal(t, 200, cfg.ProPlanLimit)
	assert.Equal(t, 60*time.Second, cfg.ScheduleCacheTTL)
	assert.Equal(t, float64(10), cfg.RateLimitPerSec)
	assert.Equal(t, 30, cfg.RateLimitBurst)
	assert.Empty(t, cfg.AdminEmails)
}

func TestLoadOverrides(t *testing.T) {
	t.Setenv("ENV", "Production")
	t.Setenv("OBJECT_STORE", "s3")
	t.Setenv("CACHE_BACKEND", "redis")
	t.Setenv("GEMINI_TIMEOUT", "45s")
	t.Setenv("ADMIN_EMAILS", "root@example.com, ops@example.com")
	t.Setenv("FREE_PLAN_LIMIT", "10")
	t.Setenv("RATE_LIMIT_GENERATE_RPS", "2.5")

	cfg := Load()

	assert.Equal(t, "production", cfg.Env)
	assert.Equal(t, "minio", cfg.ObjectStoreType, "s3 should normalize to the minio store")
	assert.Equal(t, "redis", cfg.CacheBackend)
	assert.Equal(t, 45*time.Second, cfg.GeminiTimeout)
	assert.Equal(t, []string{"root@example.com", "ops@example.com"}, cfg.AdminEmails)
	assert.Equal(t, 10, cfg.FreePlanLimit)
	assert.Equal(t, 2.5, cfg.RateLimitGenPerSec)
}

func TestLoadIgnoresMalformedNumbers(t *testing.T) {
	t.Setenv("UPLOAD_MAX_BYTES", "lots")
	t.Setenv("WORKER_CONCURRENCY", "")
	t.Setenv("GEMINI_BACKOFF_BASE", "-3s")

	cfg := Load()

	assert.Equal(t, int64(25<<20), cfg.UploadMaxBytes)
	assert.Equal(t, 2, cfg.WorkerConcurrency)
	assert.Equal(t, 2*time.Second, cfg.GeminiBackoff)
}
