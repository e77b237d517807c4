package cache

import (
	"context"
	"errors"
	"time"
)

// ErrCacheMiss is returned when a key is not present in the store
var ErrCacheMiss = errors.New("cache miss")

// Store is a TTL-bound key/value store. Implementations are best-effort
// accelerators: callers must treat errors as a miss and fall back to the
// authoritative source.
type Store interface {
	Get(ctx context.Context, key string) (string, error)
	Set(ctx context.Context, key, value string, ttl time.Duration) error
	Delete(ctx context.Context, key string) error
}
