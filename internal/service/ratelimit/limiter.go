package ratelimit

import (
	"context"
	"sync"

	"golang.org/x/time/rate"
)

// Limiter holds one token bucket per key (broker name). Buckets are created
// lazily with the limits registered for the key, or the defaults.
type Limiter struct {
	mu       sync.Mutex
	m        map[string]*rate.Limiter
	limits   map[string]Limit
	fallback Limit
}

// Limit is a sustained rate with a burst allowance. RPS <= 0 means unlimited.
type Limit struct {
	RPS   float64
	Burst int
}

func New(fallback Limit) *Limiter {
	return &Limiter{
		m:        make(map[string]*rate.Limiter),
		limits:   make(map[string]Limit),
		fallback: fallback,
	}
}

// Configure sets the limit for key. It must be called before the key is
// first used.
func (l *Limiter) Configure(key string, limit Limit) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.limits[key] = limit
}

func (l *Limiter) bucket(key string) *rate.Limiter {
	l.mu.Lock()
	defer l.mu.Unlock()

	b, ok := l.m[key]
	if ok {
		return b
	}
	limit, ok := l.limits[key]
	if !ok {
		limit = l.fallback
	}
	if limit.RPS <= 0 {
		b = rate.NewLimiter(rate.Inf, 0)
	} else {
		burst := limit.Burst
		if burst < 1 {
			burst = 1
		}
		b = rate.NewLimiter(rate.Limit(limit.RPS), burst)
	}
	l.m[key] = b
	return b
}

// Allow returns true if one token can be consumed for key without waiting.
func (l *Limiter) Allow(key string) bool {
	return l.bucket(key).Allow()
}

// Wait blocks until a token for key is available or ctx is done.
func (l *Limiter) Wait(ctx context.Context, key string) error {
	return l.bucket(key).Wait(ctx)
}

// For binds the limiter to one key so it can be handed to an HTTP client.
func (l *Limiter) For(key string) *Keyed {
	return &Keyed{l: l, key: key}
}

type Keyed struct {
	l   *Limiter
	key string
}

func (k *Keyed) Wait(ctx context.Context) error {
	return k.l.Wait(ctx, k.key)
}
