package apiclient

import (
	"time"

	"github.com/cenkalti/backoff/v5"
)

// RetryPolicy decides whether and when a failed attempt is retried.
// It is stateless and safe to share read-only across concurrent calls.
//
// The delay grows as BackoffFactor × 2^attempt with no jitter and no upper
// cap. Concurrent clients retrying in lockstep can therefore synchronize;
// plug a jittered strategy in via WithRetryBackOff when calling a shared
// recovering service.
type RetryPolicy struct {
	// MaxRetries bounds the number of attempts. An attempt numbered
	// MaxRetries or higher is never retried regardless of status.
	// Default: 3
	MaxRetries int

	// BackoffFactor is the base delay unit for exponential backoff.
	// Default: 1s
	BackoffFactor time.Duration

	// RetryableStatuses lists the HTTP status codes worth retrying.
	// Default: 429, 500, 502, 503, 504
	RetryableStatuses []int
}

// DefaultRetryPolicy returns the standard policy: 3 attempts, 1s backoff
// factor, and the usual transient statuses.
func DefaultRetryPolicy() RetryPolicy {
	return RetryPolicy{
		MaxRetries:        3,
		BackoffFactor:     time.Second,
		RetryableStatuses: []int{429, 500, 502, 503, 504},
	}
}

// ShouldRetry reports whether a response with the given status, observed on
// the given attempt number (1-based), should be retried.
func (p RetryPolicy) ShouldRetry(status, attempt int) bool {
	if attempt >= p.MaxRetries {
		return false
	}
	for _, s := range p.RetryableStatuses {
		if s == status {
			return true
		}
	}
	return false
}

// Delay returns the backoff delay before retrying the given attempt:
// BackoffFactor × 2^attempt.
func (p RetryPolicy) Delay(attempt int) time.Duration {
	if attempt < 0 {
		attempt = 0
	}
	return p.BackoffFactor * time.Duration(int64(1)<<uint(attempt))
}

// policyBackOff adapts a RetryPolicy to the backoff.BackOff interface so the
// exact exponential schedule and pluggable strategies share one code path in
// the retry loop.
type policyBackOff struct {
	policy  RetryPolicy
	attempt int
}

// Reset restarts the schedule from the first attempt.
func (b *policyBackOff) Reset() {
	b.attempt = 0
}

// NextBackOff returns Delay(attempt) for successive attempts starting at 1,
// matching the pipeline's 1-based attempt numbering.
func (b *policyBackOff) NextBackOff() time.Duration {
	b.attempt++
	return b.policy.Delay(b.attempt)
}

var _ backoff.BackOff = (*policyBackOff)(nil)

// defaultMaxBackoffInterval caps jittered retry delays when no explicit
// cap is configured. A zero MaxInterval would make cenkalti's exponential
// strategy collapse every delay after the first to zero.
const defaultMaxBackoffInterval = 30 * time.Second

// JitteredBackOff returns a factory for cenkalti/backoff exponential
// strategies derived from a RetryPolicy, adding the jitter and interval
// cap the plain policy omits. Pass the result to WithRetryBackOff; the
// factory yields a fresh strategy per call.
func JitteredBackOff(p RetryPolicy, maxInterval time.Duration, jitterFactor float64) func() backoff.BackOff {
	if jitterFactor <= 0 {
		jitterFactor = 0.5
	}
	if maxInterval <= 0 {
		maxInterval = defaultMaxBackoffInterval
	}
	return func() backoff.BackOff {
		return &backoff.ExponentialBackOff{
			InitialInterval:     p.BackoffFactor * 2,
			RandomizationFactor: jitterFactor,
			Multiplier:          2.0,
			MaxInterval:         maxInterval,
		}
	}
}
