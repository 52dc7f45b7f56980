package webhook

import (
	"sync"
	"time"
)

// maxTrackedKeys caps the number of tracked channels to prevent memory
// exhaustion from rotating keys.
const maxTrackedKeys = 4096

type rateLimitEntry struct {
	windowStart time.Time
	count       int
}

// RateLimiter bounds webhook intake per channel within a sliding window.
// Safe for concurrent use.
type RateLimiter struct {
	mu      sync.Mutex
	window  time.Duration
	maxHits int
	entries map[string]*rateLimitEntry
}

// NewRateLimiter creates a limiter allowing maxHits per key per window.
func NewRateLimiter(maxHits int, window time.Duration) *RateLimiter {
	if maxHits <= 0 {
		maxHits = 60
	}
	if window <= 0 {
		window = time.Minute
	}
	return &RateLimiter{
		window:  window,
		maxHits: maxHits,
		entries: make(map[string]*rateLimitEntry),
	}
}

// Allow reports whether the key is within its rate limit, pruning stale
// entries and enforcing a hard cap on tracked keys.
func (r *RateLimiter) Allow(key string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	now := time.Now()

	if len(r.entries) >= maxTrackedKeys {
		for k, e := range r.entries {
			if now.Sub(e.windowStart) >= r.window {
				delete(r.entries, k)
			}
		}
		for len(r.entries) >= maxTrackedKeys {
			for k := range r.entries {
				delete(r.entries, k)
				break
			}
		}
	}

	e, ok := r.entries[key]
	if !ok || now.Sub(e.windowStart) >= r.window {
		r.entries[key] = &rateLimitEntry{windowStart: now, count: 1}
		return true
	}

	e.count++
	return e.count <= r.maxHits
}
