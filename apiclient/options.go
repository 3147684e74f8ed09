package apiclient

import (
	"time"

	"github.com/cenkalti/backoff/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/rs/zerolog"
)

// Option configures a Client during construction.
type Option func(*Client)

// WithBaseURL sets the base URL prepended to every endpoint path.
func WithBaseURL(baseURL string) Option {
	return func(c *Client) {
		c.baseURL = baseURL
	}
}

// WithTimeout sets the per-attempt transport timeout. Default: 30s.
func WithTimeout(timeout time.Duration) Option {
	return func(c *Client) {
		c.timeout = timeout
	}
}

// WithDefaultHeaders sets headers applied to every call. Per-call headers
// override defaults on key collision.
func WithDefaultHeaders(headers map[string]string) Option {
	return func(c *Client) {
		c.defaultHeaders = headers
	}
}

// WithTransport swaps the transport collaborator. Default: HTTPTransport
// with DefaultHTTPTransportConfig.
func WithTransport(transport Transport) Option {
	return func(c *Client) {
		c.transport = transport
	}
}

// WithRetryPolicy sets the retry policy. Default: DefaultRetryPolicy.
func WithRetryPolicy(policy RetryPolicy) Option {
	return func(c *Client) {
		c.retryPolicy = policy
	}
}

// WithRetryBackOff overrides the delay schedule of the retry loop while
// keeping the policy's ShouldRetry decision. The factory is invoked once
// per call, so concurrent calls never share a strategy instance. Use
// JitteredBackOff or wrap any cenkalti/backoff constructor.
func WithRetryBackOff(factory func() backoff.BackOff) Option {
	return func(c *Client) {
		c.retryBackOff = factory
	}
}

// WithBreaker swaps the circuit breaker. Default: a CircuitBreaker with
// DefaultBreakerConfig.
func WithBreaker(breaker Breaker) Option {
	return func(c *Client) {
		c.breaker = breaker
	}
}

// WithRateLimiter sets the admission rate limiter. Default: none; calls
// are never delayed.
func WithRateLimiter(limiter RateLimiter) Option {
	return func(c *Client) {
		c.limiter = limiter
	}
}

// WithCache enables response caching with the given store. Default: none;
// UseCache on a call is a no-op without a store.
func WithCache(cache Cache) Option {
	return func(c *Client) {
		c.cache = cache
	}
}

// WithValidator sets the schema validator consulted when a call requests
// validation. Default: none; validation requests are logged and skipped.
func WithValidator(validator Validator) Option {
	return func(c *Client) {
		c.validator = validator
	}
}

// WithErrorClassifier sets the predicate deciding which transport errors
// are retryable. Default: DefaultErrorClassifier.
func WithErrorClassifier(classifier ErrorClassifier) Option {
	return func(c *Client) {
		c.classifier = classifier
	}
}

// WithLogger sets the client logger. Default: a disabled logger.
func WithLogger(logger zerolog.Logger) Option {
	return func(c *Client) {
		c.logger = logger
	}
}

// WithEndpoints registers the static endpoint map consulted by Call.
func WithEndpoints(endpoints map[string]Endpoint) Option {
	return func(c *Client) {
		c.endpoints = endpoints
	}
}

// WithPrometheusRegisterer exports the client's metrics through the given
// registerer in addition to the in-memory summary.
func WithPrometheusRegisterer(reg prometheus.Registerer) Option {
	return func(c *Client) {
		c.promRegisterer = reg
	}
}

// WithTracing enables an OpenTelemetry span per call, recording retry and
// cache events. Spans are created from the globally registered tracer
// provider.
func WithTracing() Option {
	return func(c *Client) {
		c.tracing = true
	}
}

// WithBatchConcurrency bounds the worker pool used by parallel Batch
// execution. Default: 8.
func WithBatchConcurrency(n int) Option {
	return func(c *Client) {
		if n > 0 {
			c.batchConcurrency = n
		}
	}
}

// RequestOptions enumerates the per-call knobs. Unknown behavior cannot be
// smuggled in: the pipeline reacts to exactly these fields.
//
// The zero value disables retries; start from DefaultRequestOptions to get
// the standard behavior (retry enabled) and override fields as needed.
type RequestOptions struct {
	// Retry enables the retry loop for this call.
	Retry bool

	// UseCache consults and populates the response cache. Only effective
	// for GET calls on a client constructed WithCache.
	UseCache bool

	// ValidateSchema names the schema to validate the response body
	// against. Failures are logged, never raised.
	ValidateSchema string

	// Headers are merged over the client's default headers.
	Headers map[string]string

	// Params are encoded into the query string and participate in the
	// cache key.
	Params map[string]string

	// Body is the request body; serialized to JSON unless []byte or
	// string.
	Body any
}

// DefaultRequestOptions returns the standard per-call options: retry
// enabled, caching and validation off.
func DefaultRequestOptions() RequestOptions {
	return RequestOptions{
		Retry: true,
	}
}
