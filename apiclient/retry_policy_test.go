package apiclient

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestRetryPolicy_ShouldRetry(t *testing.T) {
	policy := DefaultRetryPolicy()

	tests := []struct {
		name    string
		status  int
		attempt int
		want    bool
	}{
		{
			name:    "given retryable status under budget, then retries",
			status:  503,
			attempt: 1,
			want:    true,
		},
		{
			name:    "given rate limited status under budget, then retries",
			status:  429,
			attempt: 2,
			want:    true,
		},
		{
			name:    "given attempt at max retries, then never retries",
			status:  503,
			attempt: 3,
			want:    false,
		},
		{
			name:    "given attempt over max retries, then never retries",
			status:  500,
			attempt: 7,
			want:    false,
		},
		{
			name:    "given non-retryable status, then does not retry",
			status:  404,
			attempt: 1,
			want:    false,
		},
		{
			name:    "given client error status, then does not retry",
			status:  400,
			attempt: 1,
			want:    false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, policy.ShouldRetry(tt.status, tt.attempt))
		})
	}
}

func TestRetryPolicy_ShouldRetry_AllRetryableStatuses(t *testing.T) {
	policy := DefaultRetryPolicy()

	for _, status := range []int{429, 500, 502, 503, 504} {
		for attempt := 1; attempt < policy.MaxRetries; attempt++ {
			assert.True(t, policy.ShouldRetry(status, attempt),
				"status %d attempt %d", status, attempt)
		}
		for attempt := policy.MaxRetries; attempt < policy.MaxRetries+3; attempt++ {
			assert.False(t, policy.ShouldRetry(status, attempt),
				"status %d attempt %d", status, attempt)
		}
	}
}

func TestRetryPolicy_Delay(t *testing.T) {
	policy := RetryPolicy{
		MaxRetries:    5,
		BackoffFactor: 100 * time.Millisecond,
	}

	tests := []struct {
		attempt int
		want    time.Duration
	}{
		{attempt: 0, want: 100 * time.Millisecond},
		{attempt: 1, want: 200 * time.Millisecond},
		{attempt: 2, want: 400 * time.Millisecond},
		{attempt: 3, want: 800 * time.Millisecond},
		{attempt: 4, want: 1600 * time.Millisecond},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.want, policy.Delay(tt.attempt), "attempt %d", tt.attempt)
	}
}

func TestRetryPolicy_Delay_NegativeAttempt(t *testing.T) {
	policy := DefaultRetryPolicy()
	assert.Equal(t, policy.BackoffFactor, policy.Delay(-1))
}

func TestPolicyBackOff_MatchesDelaySchedule(t *testing.T) {
	policy := RetryPolicy{MaxRetries: 3, BackoffFactor: 50 * time.Millisecond}
	bo := &policyBackOff{policy: policy}

	// The retry loop numbers attempts from 1.
	assert.Equal(t, policy.Delay(1), bo.NextBackOff())
	assert.Equal(t, policy.Delay(2), bo.NextBackOff())
	assert.Equal(t, policy.Delay(3), bo.NextBackOff())

	bo.Reset()
	assert.Equal(t, policy.Delay(1), bo.NextBackOff())
}

func TestJitteredBackOff_StaysWithinBounds(t *testing.T) {
	policy := RetryPolicy{MaxRetries: 3, BackoffFactor: 100 * time.Millisecond}
	factory := JitteredBackOff(policy, 5*time.Second, 0.5)

	bo := factory()
	bo.Reset()
	for i := 0; i < 10; i++ {
		d := bo.NextBackOff()
		assert.Greater(t, d, time.Duration(0))
		assert.LessOrEqual(t, d, 5*time.Second+5*time.Second/2)
	}

	// Every factory invocation yields an independent strategy.
	assert.NotSame(t, factory(), factory())
}

func TestJitteredBackOff_ZeroCapIsDefaulted(t *testing.T) {
	policy := RetryPolicy{MaxRetries: 3, BackoffFactor: 100 * time.Millisecond}
	bo := JitteredBackOff(policy, 0, 0.5)()
	bo.Reset()

	// With no explicit cap the schedule must keep backing off instead of
	// collapsing to zero delays after the first interval.
	for i := 0; i < 5; i++ {
		d := bo.NextBackOff()
		assert.GreaterOrEqual(t, d, 100*time.Millisecond, "delay %d", i+1)
		assert.LessOrEqual(t, d, defaultMaxBackoffInterval+defaultMaxBackoffInterval/2)
	}
}
