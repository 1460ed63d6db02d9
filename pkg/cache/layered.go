package cache

import (
	"context"
	"time"
)

// LayeredCache is a two-level cache: a bounded in-memory L1 in front of a
// shared L2 (Redis in production). L2 is authoritative.
type LayeredCache struct {
	memCache *MemoryCache
	remote   Service
}

// NewLayeredCache puts a bounded MemoryCache in front of remote. opts
// configure the L1; by default it holds 1000 keys.
func NewLayeredCache(remote Service, opts ...MemoryOption) *LayeredCache {
	l1 := append([]MemoryOption{WithMemoryMaxSize(1000)}, opts...)
	return &LayeredCache{
		memCache: NewMemoryCache(l1...),
		remote:   remote,
	}
}

// Exists answers from L1 when it can and otherwise asks L2, promoting a
// single-key hit into L1.
func (lc *LayeredCache) Exists(ctx context.Context, keys ...string) (bool, error) {
	if ok, _ := lc.memCache.Exists(ctx, keys...); ok {
		return true, nil
	}
	ok, err := lc.remote.Exists(ctx, keys...)
	if err != nil {
		return false, err
	}
	if ok && len(keys) == 1 {
		_ = lc.memCache.Set(ctx, keys[0], "1", 0)
	}
	return ok, nil
}

// SetNX claims key in L2 and records it in memory whether or not the claim
// won, since either way the key now exists.
func (lc *LayeredCache) SetNX(ctx context.Context, key string, value interface{}, expiration time.Duration) (bool, error) {
	ok, err := lc.remote.SetNX(ctx, key, value, expiration)
	if err != nil {
		return false, err
	}
	_ = lc.memCache.Set(ctx, key, value, expiration)
	return ok, nil
}

// Close closes both cache layers.
func (lc *LayeredCache) Close() error {
	_ = lc.memCache.Close()
	return lc.remote.Close()
}
