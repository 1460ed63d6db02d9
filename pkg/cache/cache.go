package cache

import (
	"context"
	"time"
)

// Service is the key-presence store behind dedup state. A zero expiration
// keeps the key until it is evicted.
type Service interface {
	Exists(ctx context.Context, keys ...string) (bool, error)
	// SetNX stores value only when key is absent and reports whether it did.
	SetNX(ctx context.Context, key string, value interface{}, expiration time.Duration) (bool, error)
	Close() error
}
