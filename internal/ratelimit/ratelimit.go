// Package ratelimit provides a best-effort, process-local request limiter.
// It is an approximation, not a correctness-critical resource: a
// multi-instance deployment would swap in a shared counter store behind the
// same interface.
package ratelimit

import (
	"sync"
	"time"

	"golang.org/x/time/rate"
)

// Limiter decides whether a keyed request may proceed.
type Limiter interface {
	Allow(key string) bool
}

type bucket struct {
	lim      *rate.Limiter
	lastSeen time.Time
}

// TokenBucket is an in-memory Limiter: one token bucket per key, sized so
// that maxRequests fit in window. Idle buckets are swept opportunistically
// on Allow calls.
type TokenBucket struct {
	mu      sync.Mutex
	buckets map[string]*bucket

	limit     rate.Limit
	burst     int
	ttl       time.Duration
	lastSweep time.Time
	now       func() time.Time
}

// NewTokenBucket builds a limiter allowing maxRequests per window per key.
func NewTokenBucket(maxRequests int, window time.Duration) *TokenBucket {
	if maxRequests <= 0 {
		maxRequests = 100
	}
	if window <= 0 {
		window = 15 * time.Minute
	}
	return &TokenBucket{
		buckets: make(map[string]*bucket),
		limit:   rate.Limit(float64(maxRequests) / window.Seconds()),
		burst:   maxRequests,
		ttl:     window,
		now:     time.Now,
	}
}

// Allow reports whether the request keyed by key may proceed.
func (t *TokenBucket) Allow(key string) bool {
	t.mu.Lock()
	defer t.mu.Unlock()

	now := t.now()
	if now.Sub(t.lastSweep) > t.ttl {
		for k, b := range t.buckets {
			if now.Sub(b.lastSeen) > t.ttl {
				delete(t.buckets, k)
			}
		}
		t.lastSweep = now
	}

	b, ok := t.buckets[key]
	if !ok {
		b = &bucket{lim: rate.NewLimiter(t.limit, t.burst)}
		t.buckets[key] = b
	}
	b.lastSeen = now
	return b.lim.Allow()
}

// Unlimited is a Limiter that always allows. Useful in tests.
type Unlimited struct{}

func (Unlimited) Allow(string) bool { return true }
