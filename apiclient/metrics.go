package apiclient

import (
	"sync"
	"time"

	"github.com/rs/zerolog"
)

// ErrorRecord captures one unsuccessful response.
type ErrorRecord struct {
	Status    int
	URL       string
	Timestamp time.Time
}

// MetricsSummary is the aggregate view derived from all recorded samples.
type MetricsSummary struct {
	// TotalRequests is the number of recorded responses. Every transport
	// attempt that produced a response is recorded, including attempts
	// that were subsequently retried.
	TotalRequests int

	// SuccessRate is successful/total × 100, or 0 with no requests.
	SuccessRate float64

	// AvgResponseTime is the mean elapsed time over all recorded
	// responses, successful or not.
	AvgResponseTime time.Duration

	// RequestsPerSecond is total requests over the collector's lifetime.
	RequestsPerSecond float64

	// ErrorCount is the number of unsuccessful responses recorded.
	ErrorCount int

	// StatusDistribution counts responses per distinct status code.
	StatusDistribution map[int]int
}

// MetricsCollector records per-call outcomes for the lifetime of a client.
// Samples are append-only and never pruned; a client that runs for a very
// long time should export and reset periodically.
type MetricsCollector struct {
	mu        sync.Mutex
	startTime time.Time
	elapsed   []time.Duration
	statuses  []int
	errors    []ErrorRecord

	prom *promMetrics
	now  func() time.Time
}

// NewMetricsCollector creates an empty collector anchored at the current
// time for throughput derivation.
func NewMetricsCollector() *MetricsCollector {
	return &MetricsCollector{
		startTime: time.Now(),
		now:       time.Now,
	}
}

// Record appends one response sample. Unsuccessful responses additionally
// produce an ErrorRecord with status, URL, and observation time.
func (m *MetricsCollector) Record(resp *Response) {
	m.mu.Lock()
	m.elapsed = append(m.elapsed, resp.Elapsed)
	m.statuses = append(m.statuses, resp.Status)
	if !resp.Success() {
		m.errors = append(m.errors, ErrorRecord{
			Status:    resp.Status,
			URL:       resp.URL,
			Timestamp: m.now(),
		})
	}
	prom := m.prom
	m.mu.Unlock()

	if prom != nil {
		prom.observe(resp)
	}
}

// Summary derives the aggregate statistics from all samples recorded so
// far.
func (m *MetricsCollector) Summary() MetricsSummary {
	m.mu.Lock()
	defer m.mu.Unlock()

	total := len(m.statuses)
	summary := MetricsSummary{
		TotalRequests:      total,
		ErrorCount:         len(m.errors),
		StatusDistribution: make(map[int]int, 8),
	}

	successful := 0
	var elapsedSum time.Duration
	for i, status := range m.statuses {
		summary.StatusDistribution[status]++
		if status >= 200 && status < 300 {
			successful++
		}
		elapsedSum += m.elapsed[i]
	}

	if total > 0 {
		summary.SuccessRate = float64(successful) / float64(total) * 100
		summary.AvgResponseTime = elapsedSum / time.Duration(total)
	}

	if wall := m.now().Sub(m.startTime).Seconds(); wall > 0 {
		summary.RequestsPerSecond = float64(total) / wall
	}

	return summary
}

// Errors returns a copy of the recorded error records.
func (m *MetricsCollector) Errors() []ErrorRecord {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]ErrorRecord(nil), m.errors...)
}

// LogSummary writes the current summary through the given logger at info
// level. This is a presentation convenience; Summary is the contract.
func (m *MetricsCollector) LogSummary(logger zerolog.Logger) {
	s := m.Summary()
	logger.Info().
		Int("total_requests", s.TotalRequests).
		Int("error_count", s.ErrorCount).
		Float64("success_rate", s.SuccessRate).
		Dur("avg_response_time", s.AvgResponseTime).
		Float64("requests_per_second", s.RequestsPerSecond).
		Msg("client metrics")
}
