package repository

import (
	"context"
	"sync"
	"time"

	"SignalTrader/internal/domain/repository"
	"SignalTrader/pkg/cache"
)

// MemoryDedupStore keeps reported ids for the process lifetime. There is no
// eviction.
type MemoryDedupStore struct {
	mu   sync.RWMutex
	seen map[string]struct{}
}

func NewMemoryDedupStore() *MemoryDedupStore {
	return &MemoryDedupStore{seen: make(map[string]struct{})}
}

func (s *MemoryDedupStore) AlreadyReported(_ context.Context, id string) (bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	_, ok := s.seen[id]
	return ok, nil
}

func (s *MemoryDedupStore) MarkReported(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.seen[id] = struct{}{}
	return nil
}

func (s *MemoryDedupStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.seen)
}

// CacheDedupStore persists reported ids in a cache.Service, typically a
// layered cache over redis so dedup state survives restarts. A zero ttl
// keeps ids forever.
type CacheDedupStore struct {
	cache  cache.Service
	prefix string
	ttl    time.Duration
}

func NewCacheDedupStore(c cache.Service, prefix string, ttl time.Duration) repository.DedupStore {
	return &CacheDedupStore{cache: c, prefix: prefix, ttl: ttl}
}

func (s *CacheDedupStore) AlreadyReported(ctx context.Context, id string) (bool, error) {
	return s.cache.Exists(ctx, cache.GenerateKey(s.prefix, id))
}

// MarkReported keeps the time of the first mark; marking again is a no-op.
func (s *CacheDedupStore) MarkReported(ctx context.Context, id string) error {
	_, err := s.cache.SetNX(ctx, cache.GenerateKey(s.prefix, id), time.Now().UTC().Format(time.RFC3339), s.ttl)
	return err
}
