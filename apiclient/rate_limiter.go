package apiclient

import (
	"sync"
	"time"

	"golang.org/x/time/rate"
)

// RateLimiter is the admission gate consulted before the transport call.
// Acquire reports whether one call may proceed now; the pipeline polls a
// rejecting limiter with a short sleep rather than failing the call, so
// rate limiting delays work but never errors.
//
// Implementations must be safe for concurrent use by all callers of one
// client instance.
type RateLimiter interface {
	Acquire() bool
}

// TokenBucket is a token-bucket rate limiter. Capacity equals the
// per-second rate: a full bucket admits a burst of rate calls, then refills
// continuously at rate tokens per second.
type TokenBucket struct {
	mu sync.Mutex

	rate       float64
	capacity   float64
	tokens     float64
	lastRefill time.Time

	now func() time.Time
}

// NewTokenBucket creates a full token bucket admitting requestsPerSecond
// sustained calls per second, with an initial burst of the same size.
func NewTokenBucket(requestsPerSecond int) *TokenBucket {
	if requestsPerSecond <= 0 {
		requestsPerSecond = 1
	}
	return &TokenBucket{
		rate:       float64(requestsPerSecond),
		capacity:   float64(requestsPerSecond),
		tokens:     float64(requestsPerSecond),
		lastRefill: time.Now(),
		now:        time.Now,
	}
}

// Acquire refills the bucket for the elapsed time and spends one token if
// available. Refill and spend happen atomically relative to concurrent
// callers.
func (b *TokenBucket) Acquire() bool {
	b.mu.Lock()
	defer b.mu.Unlock()

	now := b.now()
	elapsed := now.Sub(b.lastRefill).Seconds()
	b.tokens = min(b.capacity, b.tokens+elapsed*b.rate)
	b.lastRefill = now

	if b.tokens >= 1 {
		b.tokens--
		return true
	}
	return false
}

// Tokens returns the token count as of the last refill, for observability.
func (b *TokenBucket) Tokens() float64 {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.tokens
}

// FixedWindow is a windowed counter admitting at most rate calls per
// second. The window start is recomputed as the current wall-clock second
// on every admission attempt rather than anchored to fixed calendar
// boundaries, so it behaves as a continuously sliding one-second counter.
// Callers depend on the smoother admission curve this produces; do not
// replace it with a boundary-anchored window.
type FixedWindow struct {
	mu sync.Mutex

	rate     int
	admitted []time.Time

	now func() time.Time
}

// NewFixedWindow creates a FixedWindow admitting requestsPerSecond calls
// per sliding second.
func NewFixedWindow(requestsPerSecond int) *FixedWindow {
	if requestsPerSecond <= 0 {
		requestsPerSecond = 1
	}
	return &FixedWindow{
		rate: requestsPerSecond,
		now:  time.Now,
	}
}

// Acquire discards admission timestamps older than the start of the current
// second, then admits if fewer than rate remain.
func (w *FixedWindow) Acquire() bool {
	w.mu.Lock()
	defer w.mu.Unlock()

	now := w.now()
	windowStart := now.Truncate(time.Second)

	kept := w.admitted[:0]
	for _, t := range w.admitted {
		if !t.Before(windowStart) {
			kept = append(kept, t)
		}
	}
	w.admitted = kept

	if len(w.admitted) < w.rate {
		w.admitted = append(w.admitted, now)
		return true
	}
	return false
}

// LeakyLimiter wraps golang.org/x/time/rate behind the RateLimiter
// interface. Compared to TokenBucket it decouples the sustained rate from
// the burst size, which suits clients that need a small burst allowance on
// top of a high sustained rate.
type LeakyLimiter struct {
	lim *rate.Limiter
}

// NewLeakyLimiter creates a limiter with the given sustained rate and
// burst size.
func NewLeakyLimiter(requestsPerSecond float64, burst int) *LeakyLimiter {
	if burst <= 0 {
		burst = 1
	}
	return &LeakyLimiter{
		lim: rate.NewLimiter(rate.Limit(requestsPerSecond), burst),
	}
}

// Acquire implements RateLimiter.
func (l *LeakyLimiter) Acquire() bool {
	return l.lim.Allow()
}

var (
	_ RateLimiter = (*TokenBucket)(nil)
	_ RateLimiter = (*FixedWindow)(nil)
	_ RateLimiter = (*LeakyLimiter)(nil)
)
