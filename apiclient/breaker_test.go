package apiclient

import (
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestBreaker(threshold int, recovery time.Duration) (*CircuitBreaker, *time.Time) {
	cb := NewCircuitBreaker(BreakerConfig{
		FailureThreshold: threshold,
		RecoveryTimeout:  recovery,
	})
	current := time.Now()
	cb.now = func() time.Time { return current }
	return cb, &current
}

func TestCircuitBreaker_OpensAtThreshold(t *testing.T) {
	cb, _ := newTestBreaker(3, time.Minute)

	require.Equal(t, StateClosed, cb.State())

	cb.OnFailure()
	cb.OnFailure()
	assert.Equal(t, StateClosed, cb.State())
	assert.True(t, cb.CanExecute())

	cb.OnFailure()
	assert.Equal(t, StateOpen, cb.State())
	assert.False(t, cb.CanExecute())
}

func TestCircuitBreaker_SuccessResetsFailures(t *testing.T) {
	cb, _ := newTestBreaker(3, time.Minute)

	cb.OnFailure()
	cb.OnFailure()
	cb.OnSuccess()

	assert.Equal(t, 0, cb.Failures())
	assert.Equal(t, StateClosed, cb.State())

	// The count starts over, so two more failures do not open.
	cb.OnFailure()
	cb.OnFailure()
	assert.Equal(t, StateClosed, cb.State())
}

func TestCircuitBreaker_RecoveryFlipsToHalfOpen(t *testing.T) {
	cb, clock := newTestBreaker(2, 30*time.Second)

	cb.OnFailure()
	cb.OnFailure()
	require.Equal(t, StateOpen, cb.State())
	require.False(t, cb.CanExecute())

	// The flip happens lazily on the admission check, not on a timer.
	*clock = clock.Add(31 * time.Second)
	assert.Equal(t, StateOpen, cb.State())

	assert.True(t, cb.CanExecute())
	assert.Equal(t, StateHalfOpen, cb.State())

	// The probe slot is claimed; further admissions are rejected until
	// the probe settles.
	assert.False(t, cb.CanExecute())
	assert.False(t, cb.CanExecute())
}

func TestCircuitBreaker_HalfOpenProbeSuccessCloses(t *testing.T) {
	cb, clock := newTestBreaker(2, 30*time.Second)

	cb.OnFailure()
	cb.OnFailure()
	*clock = clock.Add(31 * time.Second)
	require.True(t, cb.CanExecute())

	cb.OnSuccess()
	assert.Equal(t, StateClosed, cb.State())
	assert.Equal(t, 0, cb.Failures())
	assert.True(t, cb.CanExecute())
}

func TestCircuitBreaker_HalfOpenProbeFailureReopens(t *testing.T) {
	cb, clock := newTestBreaker(2, 30*time.Second)

	cb.OnFailure()
	cb.OnFailure()
	*clock = clock.Add(31 * time.Second)
	require.True(t, cb.CanExecute())

	cb.OnFailure()
	assert.Equal(t, StateOpen, cb.State())
	assert.False(t, cb.CanExecute())

	// The failure stamped a fresh failure time, so the full recovery
	// timeout applies again.
	*clock = clock.Add(15 * time.Second)
	assert.False(t, cb.CanExecute())
	*clock = clock.Add(16 * time.Second)
	assert.True(t, cb.CanExecute())
}

func TestCircuitBreaker_SingleProbeUnderConcurrency(t *testing.T) {
	cb, clock := newTestBreaker(2, 30*time.Second)

	cb.OnFailure()
	cb.OnFailure()
	*clock = clock.Add(31 * time.Second)

	var admitted atomic.Int32
	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if cb.CanExecute() {
				admitted.Add(1)
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, int32(1), admitted.Load(),
		"exactly one probe may be in flight during recovery")
}

func TestCircuitBreaker_CancelReleasesProbeSlot(t *testing.T) {
	cb, clock := newTestBreaker(2, 30*time.Second)

	cb.OnFailure()
	cb.OnFailure()
	*clock = clock.Add(31 * time.Second)
	require.True(t, cb.CanExecute())
	require.False(t, cb.CanExecute())

	// The admitted call finished without an outcome; the slot must come
	// back so the next call can probe.
	cb.OnCancel()
	assert.Equal(t, StateHalfOpen, cb.State())
	assert.Equal(t, 2, cb.Failures())
	assert.True(t, cb.CanExecute())

	cb.OnSuccess()
	assert.Equal(t, StateClosed, cb.State())
}

func TestCircuitBreaker_CancelWhileClosedIsANoOp(t *testing.T) {
	cb, _ := newTestBreaker(2, time.Minute)

	cb.OnFailure()
	cb.OnCancel()

	assert.Equal(t, StateClosed, cb.State())
	assert.Equal(t, 1, cb.Failures())
	assert.True(t, cb.CanExecute())
}

func TestCircuitBreaker_Defaults(t *testing.T) {
	cb := NewCircuitBreaker(BreakerConfig{})
	def := DefaultBreakerConfig()

	assert.Equal(t, def.FailureThreshold, cb.failureThreshold)
	assert.Equal(t, def.RecoveryTimeout, cb.recoveryTimeout)
}

func TestBreakerState_String(t *testing.T) {
	assert.Equal(t, "CLOSED", StateClosed.String())
	assert.Equal(t, "OPEN", StateOpen.String())
	assert.Equal(t, "HALF_OPEN", StateHalfOpen.String())
}
