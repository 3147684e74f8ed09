package apiclient

import (
	"context"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"
)

// Attempt is one recorded load-test call.
type Attempt struct {
	Status    int
	Elapsed   time.Duration
	Success   bool
	Err       error
	Timestamp time.Time
}

// LoadTestResult aggregates a load-test run.
type LoadTestResult struct {
	// Attempts holds every recorded call in completion order.
	Attempts []Attempt

	// Duration is the requested run duration.
	Duration time.Duration

	// TotalRequests is the number of dispatched calls.
	TotalRequests int

	// ErrorCount counts calls that failed or returned a non-2xx status.
	ErrorCount int
}

// SuccessRate is (total − errors) / total × 100, or 0 with no requests.
func (r *LoadTestResult) SuccessRate() float64 {
	if r.TotalRequests == 0 {
		return 0
	}
	return float64(r.TotalRequests-r.ErrorCount) / float64(r.TotalRequests) * 100
}

// AvgResponseTime is the mean elapsed time over successful attempts only;
// failed attempts carry no meaningful latency.
func (r *LoadTestResult) AvgResponseTime() time.Duration {
	var sum time.Duration
	count := 0
	for _, a := range r.Attempts {
		if a.Success {
			sum += a.Elapsed
			count++
		}
	}
	if count == 0 {
		return 0
	}
	return sum / time.Duration(count)
}

// RequestsPerSecond is the achieved throughput over the run duration.
func (r *LoadTestResult) RequestsPerSecond() float64 {
	if r.Duration <= 0 {
		return 0
	}
	return float64(r.TotalRequests) / r.Duration.Seconds()
}

// LogSummary writes the run report through the given logger at info level.
func (r *LoadTestResult) LogSummary(logger zerolog.Logger) {
	logger.Info().
		Int("total_requests", r.TotalRequests).
		Dur("duration", r.Duration).
		Int("error_count", r.ErrorCount).
		Float64("success_rate", r.SuccessRate()).
		Dur("avg_response_time", r.AvgResponseTime()).
		Float64("requests_per_second", r.RequestsPerSecond()).
		Msg("load test result")
}

// LoadGenerator drives a client at a target throughput for a fixed
// duration. Each one-second tick dispatches targetRPS concurrent calls
// through a bounded pool and then sleeps out the remainder of the second,
// so the long-run rate converges to the target when the downstream keeps
// up.
type LoadGenerator struct {
	client *Client
}

// NewLoadGenerator creates a LoadGenerator over client.
func NewLoadGenerator(client *Client) *LoadGenerator {
	return &LoadGenerator{client: client}
}

// Run executes the load test. Every dispatched call runs the client's full
// pipeline; a call that returns an error is recorded with status 0 and
// zero elapsed time. Run returns early with ctx.Err() when the context is
// cancelled, carrying the attempts recorded so far.
func (g *LoadGenerator) Run(ctx context.Context, endpoint, method string, targetRPS int, duration time.Duration, opts ...RequestOptions) (*LoadTestResult, error) {
	if targetRPS <= 0 {
		targetRPS = 1
	}
	o := firstOption(opts)

	result := &LoadTestResult{Duration: duration}
	var mu sync.Mutex

	start := time.Now()
	for time.Since(start) < duration {
		if err := ctx.Err(); err != nil {
			return result, err
		}

		tickStart := time.Now()

		eg := new(errgroup.Group)
		eg.SetLimit(targetRPS)
		for i := 0; i < targetRPS; i++ {
			eg.Go(func() error {
				resp, err := g.client.Execute(ctx, method, endpoint, o)

				attempt := Attempt{Timestamp: time.Now()}
				if err != nil {
					attempt.Err = err
				} else {
					attempt.Status = resp.Status
					attempt.Elapsed = resp.Elapsed
					attempt.Success = resp.Success()
				}

				mu.Lock()
				result.Attempts = append(result.Attempts, attempt)
				result.TotalRequests++
				if !attempt.Success {
					result.ErrorCount++
				}
				mu.Unlock()
				return nil
			})
		}
		eg.Wait() //nolint:errcheck // workers never return errors

		// Pace the next tick to the target rate.
		if tickElapsed := time.Since(tickStart); tickElapsed < time.Second {
			if err := sleepContext(ctx, time.Second-tickElapsed); err != nil {
				return result, err
			}
		}
	}

	return result, nil
}
