package cache

import (
	"context"
	"time"
)

// Store is the look-aside cache consumed by the permission resolver. All
// implementations are best-effort: callers treat errors as cache misses.
type Store interface {
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error
	Get(ctx context.Context, key string) ([]byte, bool, error)
	Delete(ctx context.Context, keys ...string) error
}
