package cache

import (
	"context"
	"sync"
	"time"
)

// MemoryItem stores cached value with expiration. A zero ExpireAt never
// expires.
type MemoryItem struct {
	Value    string
	ExpireAt time.Time
}

// IsExpired checks if item has expired.
func (m *MemoryItem) IsExpired(now time.Time) bool {
	return !m.ExpireAt.IsZero() && now.After(m.ExpireAt)
}

// MemoryCache implements Service using in-memory storage with optional LRU
// eviction.
type MemoryCache struct {
	data    map[string]*MemoryItem
	access  map[string]time.Time
	mutex   sync.Mutex
	maxSize int
	stop    chan struct{}
	once    sync.Once
}

// NewMemoryCache creates an in-memory cache.
func NewMemoryCache(opts ...MemoryOption) *MemoryCache {
	cfg := defaultMemoryConfig()
	for _, opt := range opts {
		opt(cfg)
	}

	mc := &MemoryCache{
		data:    make(map[string]*MemoryItem),
		access:  make(map[string]time.Time),
		maxSize: cfg.MaxSize,
		stop:    make(chan struct{}),
	}

	if cfg.CleanupInterval > 0 {
		go mc.cleanupExpired(cfg.CleanupInterval)
	}
	return mc
}

func (mc *MemoryCache) Set(_ context.Context, key string, value interface{}, expiration time.Duration) error {
	data, err := encode(value)
	if err != nil {
		return err
	}

	mc.mutex.Lock()
	defer mc.mutex.Unlock()
	mc.setLocked(key, data, expiration)
	return nil
}

func (mc *MemoryCache) setLocked(key, value string, expiration time.Duration) {
	now := time.Now()
	if _, exists := mc.data[key]; !exists && mc.maxSize > 0 && len(mc.data) >= mc.maxSize {
		mc.evictLRU()
	}

	item := &MemoryItem{Value: value}
	if expiration > 0 {
		item.ExpireAt = now.Add(expiration)
	}
	mc.data[key] = item
	mc.access[key] = now
}

func (mc *MemoryCache) Exists(_ context.Context, keys ...string) (bool, error) {
	mc.mutex.Lock()
	defer mc.mutex.Unlock()

	now := time.Now()
	for _, key := range keys {
		if item, ok := mc.data[key]; ok && !item.IsExpired(now) {
			mc.access[key] = now
			return true, nil
		}
	}
	return false, nil
}

func (mc *MemoryCache) SetNX(_ context.Context, key string, value interface{}, expiration time.Duration) (bool, error) {
	data, err := encode(value)
	if err != nil {
		return false, err
	}

	mc.mutex.Lock()
	defer mc.mutex.Unlock()

	if item, ok := mc.data[key]; ok && !item.IsExpired(time.Now()) {
		return false, nil
	}
	mc.setLocked(key, data, expiration)
	return true, nil
}

// Len returns the number of stored keys, expired ones included until the
// next cleanup.
func (mc *MemoryCache) Len() int {
	mc.mutex.Lock()
	defer mc.mutex.Unlock()
	return len(mc.data)
}

func (mc *MemoryCache) evictLRU() {
	var oldestKey string
	var oldestTime time.Time

	for key, accessTime := range mc.access {
		if oldestKey == "" || accessTime.Before(oldestTime) {
			oldestTime = accessTime
			oldestKey = key
		}
	}

	if oldestKey != "" {
		delete(mc.data, oldestKey)
		delete(mc.access, oldestKey)
	}
}

func (mc *MemoryCache) cleanupExpired(interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-mc.stop:
			return
		case now := <-ticker.C:
			mc.mutex.Lock()
			for key, item := range mc.data {
				if item.IsExpired(now) {
					delete(mc.data, key)
					delete(mc.access, key)
				}
			}
			mc.mutex.Unlock()
		}
	}
}

// Close stops the cleanup goroutine.
func (mc *MemoryCache) Close() error {
	mc.once.Do(func() { close(mc.stop) })
	return nil
}
