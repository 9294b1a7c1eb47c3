package cache

import (
	"context"
	"time"
)

// Cache is a best-effort byte cache with per-entry TTL. Callers treat every
// error as a miss; a broken cache must never fail a request.
type Cache interface {
	Get(ctx context.Context, key string) ([]byte, bool, error)
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error
	Delete(ctx context.Context, keys ...string) error
	DeleteByPrefix(ctx context.Context, prefix string) error
}
