package apiclient

import (
	"errors"
	"sync"
	"time"

	gobreaker "github.com/sony/gobreaker/v2"
)

// errOutcomeFailure settles a reserved admission as failed; gobreaker
// counts any non-nil error as a failure.
var errOutcomeFailure = errors.New("recorded failure")

// RatioBreakerConfig configures the gobreaker-backed Breaker. Unlike the
// consecutive-failure CircuitBreaker, this breaker trips on a failure ratio
// over a rolling interval, which tolerates sporadic failures on
// high-traffic clients.
type RatioBreakerConfig struct {
	// Name identifies the breaker in state-change logs.
	Name string

	// MaxRequests is the number of probes allowed while half-open.
	// Default: 1
	MaxRequests uint32

	// Interval is the cyclic period over which counts are cleared while
	// closed. Default: 10s
	Interval time.Duration

	// Timeout is the open period before probing. Default: 10s
	Timeout time.Duration

	// MinRequests is the minimum number of requests in an interval before
	// the ratio rule can trip the breaker. Default: 10
	MinRequests uint32

	// FailureRatio trips the breaker when exceeded. Default: 0.5
	FailureRatio float64

	// OnStateChange is invoked on every state transition.
	OnStateChange func(name string, from, to gobreaker.State)
}

// DefaultRatioBreakerConfig returns fail-fast, recover-fast defaults.
func DefaultRatioBreakerConfig() RatioBreakerConfig {
	return RatioBreakerConfig{
		Name:         "apiclient",
		MaxRequests:  1,
		Interval:     10 * time.Second,
		Timeout:      10 * time.Second,
		MinRequests:  10,
		FailureRatio: 0.5,
	}
}

// RatioBreaker adapts sony/gobreaker's two-step breaker to the Breaker
// interface. Admissions reserve an outcome callback; OnSuccess, OnFailure,
// and OnCancel settle one reserved callback each. Outcomes are aggregate
// counts, so callback pairing across concurrent calls does not need to
// match admissions exactly.
type RatioBreaker struct {
	cb *gobreaker.TwoStepCircuitBreaker[any]

	mu      sync.Mutex
	pending []func(err error)
}

// NewRatioBreaker creates a RatioBreaker from cfg, applying defaults for
// zero fields.
func NewRatioBreaker(cfg RatioBreakerConfig) *RatioBreaker {
	def := DefaultRatioBreakerConfig()
	if cfg.Name == "" {
		cfg.Name = def.Name
	}
	if cfg.MaxRequests == 0 {
		cfg.MaxRequests = def.MaxRequests
	}
	if cfg.Interval <= 0 {
		cfg.Interval = def.Interval
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = def.Timeout
	}
	if cfg.MinRequests == 0 {
		cfg.MinRequests = def.MinRequests
	}
	if cfg.FailureRatio <= 0 {
		cfg.FailureRatio = def.FailureRatio
	}

	settings := gobreaker.Settings{
		Name:        cfg.Name,
		MaxRequests: cfg.MaxRequests,
		Interval:    cfg.Interval,
		Timeout:     cfg.Timeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			ratio := float64(counts.TotalFailures) / float64(counts.Requests)
			return counts.Requests >= cfg.MinRequests && ratio >= cfg.FailureRatio
		},
		OnStateChange: cfg.OnStateChange,
	}

	return &RatioBreaker{
		cb: gobreaker.NewTwoStepCircuitBreaker[any](settings),
	}
}

// CanExecute implements Breaker.
func (b *RatioBreaker) CanExecute() bool {
	done, err := b.cb.Allow()
	if err != nil {
		return false
	}

	b.mu.Lock()
	b.pending = append(b.pending, done)
	b.mu.Unlock()
	return true
}

// OnSuccess implements Breaker.
func (b *RatioBreaker) OnSuccess() {
	b.settle(nil)
}

// OnFailure implements Breaker.
func (b *RatioBreaker) OnFailure() {
	b.settle(errOutcomeFailure)
}

// OnCancel implements Breaker. gobreaker has no neutral outcome and an
// unsettled reservation would block half-open recovery, so a cancelled
// admission settles as a success.
func (b *RatioBreaker) OnCancel() {
	b.settle(nil)
}

// State returns the underlying gobreaker state.
func (b *RatioBreaker) State() gobreaker.State {
	return b.cb.State()
}

func (b *RatioBreaker) settle(err error) {
	b.mu.Lock()
	var done func(error)
	if n := len(b.pending); n > 0 {
		done = b.pending[n-1]
		b.pending = b.pending[:n-1]
	}
	b.mu.Unlock()

	if done != nil {
		done(err)
	}
}

var _ Breaker = (*RatioBreaker)(nil)
