package apiclient

import (
	"sync"
	"time"
)

// BreakerState is the circuit breaker state.
type BreakerState int

const (
	// StateClosed allows all calls.
	StateClosed BreakerState = iota
	// StateOpen rejects all calls until the recovery timeout elapses.
	StateOpen
	// StateHalfOpen allows a single probe call to test recovery.
	StateHalfOpen
)

// String returns the state name.
func (s BreakerState) String() string {
	switch s {
	case StateOpen:
		return "OPEN"
	case StateHalfOpen:
		return "HALF_OPEN"
	default:
		return "CLOSED"
	}
}

// Breaker gates pipeline execution. CanExecute is consulted before every
// transport call; OnSuccess and OnFailure report the outcome back.
// OnCancel reports that an admitted call finished without an outcome
// (served from cache, or abandoned by context cancellation); every
// admission is followed by exactly one of the three.
//
// Implementations must be safe under concurrent use by all callers of one
// client instance.
type Breaker interface {
	CanExecute() bool
	OnSuccess()
	OnFailure()
	OnCancel()
}

// BreakerConfig configures the consecutive-failure circuit breaker.
type BreakerConfig struct {
	// FailureThreshold is the failure count at which the breaker opens.
	// Default: 5
	FailureThreshold int

	// RecoveryTimeout is how long the breaker stays open before allowing
	// a probe. Default: 60s
	RecoveryTimeout time.Duration
}

// DefaultBreakerConfig returns the standard breaker settings: open after
// 5 consecutive failures, probe after 60 seconds.
func DefaultBreakerConfig() BreakerConfig {
	return BreakerConfig{
		FailureThreshold: 5,
		RecoveryTimeout:  60 * time.Second,
	}
}

// CircuitBreaker is a consecutive-failure breaker with three states.
//
// Transitions:
//   - CLOSED → OPEN once the failure count reaches FailureThreshold.
//   - OPEN → HALF_OPEN lazily, on the first CanExecute call after
//     RecoveryTimeout has elapsed since the last failure. There is no
//     background timer; the flip is a side effect of the admission check.
//   - HALF_OPEN → CLOSED on the next success; any success resets the
//     failure count.
//   - HALF_OPEN → OPEN on the next failure.
//
// While HALF_OPEN, at most one probe is admitted at a time: the OPEN →
// HALF_OPEN flip claims the probe slot atomically, and concurrent
// CanExecute calls observe HALF_OPEN with the slot taken and are rejected
// until the probe reports its outcome.
type CircuitBreaker struct {
	mu sync.Mutex

	failureThreshold int
	recoveryTimeout  time.Duration

	state           BreakerState
	failureCount    int
	lastFailureTime time.Time
	probeInFlight   bool

	now func() time.Time
}

// NewCircuitBreaker creates a CircuitBreaker from cfg, applying defaults
// for zero fields.
func NewCircuitBreaker(cfg BreakerConfig) *CircuitBreaker {
	def := DefaultBreakerConfig()
	if cfg.FailureThreshold <= 0 {
		cfg.FailureThreshold = def.FailureThreshold
	}
	if cfg.RecoveryTimeout <= 0 {
		cfg.RecoveryTimeout = def.RecoveryTimeout
	}
	return &CircuitBreaker{
		failureThreshold: cfg.FailureThreshold,
		recoveryTimeout:  cfg.RecoveryTimeout,
		state:            StateClosed,
		now:              time.Now,
	}
}

// CanExecute reports whether a call may proceed. When the breaker is OPEN
// and the recovery timeout has elapsed, the call that observes this flips
// the state to HALF_OPEN, claims the probe slot, and is admitted.
func (cb *CircuitBreaker) CanExecute() bool {
	cb.mu.Lock()
	defer cb.mu.Unlock()

	switch cb.state {
	case StateOpen:
		if cb.now().Sub(cb.lastFailureTime) > cb.recoveryTimeout {
			cb.state = StateHalfOpen
			cb.probeInFlight = true
			return true
		}
		return false
	case StateHalfOpen:
		if cb.probeInFlight {
			return false
		}
		cb.probeInFlight = true
		return true
	default:
		return true
	}
}

// OnSuccess records a successful call. A success from any state resets the
// failure count; a HALF_OPEN probe success closes the breaker.
func (cb *CircuitBreaker) OnSuccess() {
	cb.mu.Lock()
	defer cb.mu.Unlock()

	if cb.state == StateHalfOpen {
		cb.state = StateClosed
	}
	cb.failureCount = 0
	cb.probeInFlight = false
}

// OnFailure records a failed call and stamps the failure time. A HALF_OPEN
// probe failure is counted the same as any other failure and re-opens the
// breaker.
func (cb *CircuitBreaker) OnFailure() {
	cb.mu.Lock()
	defer cb.mu.Unlock()

	cb.failureCount++
	cb.lastFailureTime = cb.now()
	cb.probeInFlight = false

	if cb.failureCount >= cb.failureThreshold {
		cb.state = StateOpen
	}
}

// OnCancel releases the probe slot without recording an outcome. State and
// failure count are untouched: a HALF_OPEN breaker stays HALF_OPEN and the
// next CanExecute call claims the slot again.
func (cb *CircuitBreaker) OnCancel() {
	cb.mu.Lock()
	defer cb.mu.Unlock()
	cb.probeInFlight = false
}

// State returns the current breaker state.
func (cb *CircuitBreaker) State() BreakerState {
	cb.mu.Lock()
	defer cb.mu.Unlock()
	return cb.state
}

// Failures returns the current consecutive failure count.
func (cb *CircuitBreaker) Failures() int {
	cb.mu.Lock()
	defer cb.mu.Unlock()
	return cb.failureCount
}
