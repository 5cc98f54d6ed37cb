package cache

import (
	"context"
	"time"
)

// BytesCache is an advisory short-TTL cache. Misses and failures are never
// fatal to the caller.
type BytesCache interface {
	Get(ctx context.Context, key string) ([]byte, bool, error)
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error
	Remove(ctx context.Context, key string) error
}
