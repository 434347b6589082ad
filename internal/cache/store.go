package cache

import (
	"context"
	"errors"
	"time"
)

// ErrMiss is returned when the key is absent or has expired.
var ErrMiss = errors.New("cache miss")

// Store is a key-value cache with expiring entries.
type Store interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error
	Delete(ctx context.Context, key string) error
}
