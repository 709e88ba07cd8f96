package cache

import (
	"context"
	"time"
)

// BytesCache is a best-effort byte cache. Misses and errors are both
// acceptable: callers must fall back to the durable store.
type BytesCache interface {
	Get(ctx context.Context, key string) ([]byte, bool, error)
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error
}
