package ratelimit

import (
	"context"
	"sync"
	"time"
)

// MemoryLimiter is the default, process-local token bucket limiter. It
// keeps no external state and does not coordinate across gateway
// processes: two instances behind a load balancer each enforce their own
// bucket. Buckets are created lazily on first use and never evicted,
// matching the run store's no-eviction posture for this deployment size.
//
// Structurally this mirrors the mutex-guarded map of
// internal/controlplane/redis_registry.go, swapped from a remote-backed
// registry to a purely local one.
type MemoryLimiter struct {
	cfg Config

	mu      sync.Mutex
	buckets map[string]*bucket
	now     func() time.Time
}

type bucket struct {
	tokens   float64
	rps      float64
	burst    float64
	lastFill time.Time
}

// NewMemoryLimiter builds a MemoryLimiter from cfg.
func NewMemoryLimiter(cfg Config) *MemoryLimiter {
	return &MemoryLimiter{
		cfg:     cfg,
		buckets: make(map[string]*bucket),
		now:     time.Now,
	}
}

// Allow reports whether tenantID has a token available and consumes one
// if so.
func (l *MemoryLimiter) Allow(ctx context.Context, tenantID string) (bool, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	b, ok := l.buckets[tenantID]
	if !ok {
		rps, burst := l.cfg.rateFor(tenantID)
		b = &bucket{tokens: burst, rps: rps, burst: burst, lastFill: l.now()}
		l.buckets[tenantID] = b
	}

	now := l.now()
	elapsed := now.Sub(b.lastFill).Seconds()
	if elapsed > 0 {
		b.tokens += elapsed * b.rps
		if b.tokens > b.burst {
			b.tokens = b.burst
		}
		b.lastFill = now
	}

	if b.tokens < 1 {
		return false, nil
	}
	b.tokens--
	return true, nil
}
