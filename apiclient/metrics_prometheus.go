package apiclient

import (
	"strconv"

	"github.com/prometheus/client_golang/prometheus"
)

// promMetrics mirrors collector samples into Prometheus instruments so the
// in-memory summary and a scrape endpoint stay consistent without double
// bookkeeping at call sites.
type promMetrics struct {
	requestsTotal   *prometheus.CounterVec
	requestDuration prometheus.Histogram
	errorsTotal     prometheus.Counter
}

func newPromMetrics(reg prometheus.Registerer) (*promMetrics, error) {
	p := &promMetrics{
		requestsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "apiclient",
			Name:      "requests_total",
			Help:      "Responses observed by the client, by status code.",
		}, []string{"status"}),
		requestDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: "apiclient",
			Name:      "request_duration_seconds",
			Help:      "Duration of transport attempts in seconds.",
			Buckets: []float64{
				0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10,
			},
		}),
		errorsTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "apiclient",
			Name:      "errors_total",
			Help:      "Unsuccessful (non-2xx) responses observed by the client.",
		}),
	}

	for _, c := range []prometheus.Collector{
		p.requestsTotal, p.requestDuration, p.errorsTotal,
	} {
		if err := reg.Register(c); err != nil {
			return nil, err
		}
	}
	return p, nil
}

func (p *promMetrics) observe(resp *Response) {
	p.requestsTotal.WithLabelValues(strconv.Itoa(resp.Status)).Inc()
	p.requestDuration.Observe(resp.Elapsed.Seconds())
	if !resp.Success() {
		p.errorsTotal.Inc()
	}
}

// RegisterPrometheus registers the collector's Prometheus instruments with
// reg and starts mirroring every recorded sample into them. Call at most
// once per collector.
func (m *MetricsCollector) RegisterPrometheus(reg prometheus.Registerer) error {
	prom, err := newPromMetrics(reg)
	if err != nil {
		return err
	}

	m.mu.Lock()
	m.prom = prom
	m.mu.Unlock()
	return nil
}
