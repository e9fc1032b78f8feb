package cache

import (
	"context"
	"errors"
	"time"
)

// ErrNotConfigured is returned when a store is used without its connection settings.
var ErrNotConfigured = errors.New("cache: store not configured")

// Store represents the key-value cache shared by the image generator and the daily quota.
// Keys are used verbatim; implementations must not normalise them.
type Store interface {
	// Get returns the value for key and whether it was present.
	Get(ctx context.Context, key string) ([]byte, bool, error)
	// Set stores value under key. A ttl <= 0 keeps the value until it is deleted.
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error
	// IncrementWithTTL increments the counter at key and applies window as its expiry
	// when the increment created the counter (post-increment value of 1).
	IncrementWithTTL(ctx context.Context, key string, window time.Duration) (int64, error)
	Delete(ctx context.Context, keys ...string) error
	Ping(ctx context.Context) error
}
