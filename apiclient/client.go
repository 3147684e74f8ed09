package apiclient

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/cenkalti/backoff/v5"
	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"
)

// rateLimitPollInterval is the sleep between admission attempts when the
// rate limiter rejects a call. Rate limiting delays work, it never fails
// it.
const rateLimitPollInterval = 100 * time.Millisecond

// defaultBatchConcurrency bounds the parallel Batch worker pool.
const defaultBatchConcurrency = 8

// Endpoint is a named entry in the client's static endpoint map, consulted
// by Call.
type Endpoint struct {
	Method string
	Path   string
}

// Client executes API calls through the resilience pipeline. All shared
// state (breaker, limiter, cache, metrics, mocks) is owned by the
// instance; there is no package-level default client.
//
// A Client is safe for concurrent use.
type Client struct {
	baseURL        string
	timeout        time.Duration
	defaultHeaders map[string]string

	transport   Transport
	retryPolicy RetryPolicy

	retryBackOff func() backoff.BackOff
	breaker      Breaker
	limiter      RateLimiter
	cache        Cache
	mocks        *MockRegistry
	validator    Validator
	metrics      *MetricsCollector
	classifier   ErrorClassifier

	endpoints        map[string]Endpoint
	batchConcurrency int

	logger         zerolog.Logger
	tracing        bool
	promRegisterer prometheus.Registerer

	sleep func(ctx context.Context, d time.Duration) error
}

// New constructs a Client from the given options.
//
// Defaults: 30s attempt timeout, HTTPTransport with
// DefaultHTTPTransportConfig, DefaultRetryPolicy, a CircuitBreaker with
// DefaultBreakerConfig, no rate limiter, no cache, no validator, disabled
// logger.
func New(opts ...Option) *Client {
	c := &Client{
		timeout:          30 * time.Second,
		retryPolicy:      DefaultRetryPolicy(),
		mocks:            NewMockRegistry(),
		metrics:          NewMetricsCollector(),
		classifier:       DefaultErrorClassifier,
		batchConcurrency: defaultBatchConcurrency,
		logger:           zerolog.Nop(),
		sleep:            sleepContext,
	}

	for _, opt := range opts {
		opt(c)
	}

	if c.transport == nil {
		c.transport = NewHTTPTransport(DefaultHTTPTransportConfig())
	}
	if c.breaker == nil {
		c.breaker = NewCircuitBreaker(DefaultBreakerConfig())
	}
	if c.promRegisterer != nil {
		if err := c.metrics.RegisterPrometheus(c.promRegisterer); err != nil {
			c.logger.Warn().Err(err).Msg("prometheus registration failed")
		}
	}

	return c
}

// Execute runs one call through the full pipeline: mock interception,
// circuit breaker gate, rate-limit admission, cache lookup, then the
// transport inside the retry loop.
//
// A transport-level failure that survives the retry budget returns a
// *TransportError; a breaker rejection returns ErrCircuitOpen. A non-2xx
// response is NOT an error: it is returned as a value for the caller to
// inspect.
func (c *Client) Execute(ctx context.Context, method, endpoint string, opts RequestOptions) (*Response, error) {
	method = strings.ToUpper(method)

	if mock := c.mocks.Lookup(method, endpoint); mock != nil {
		c.logger.Debug().Str("method", method).Str("endpoint", endpoint).
			Msg("mock response")
		return mock, nil
	}

	ctx, span, ownSpan := c.startSpan(ctx, method, endpoint)
	if ownSpan {
		defer span.End()
	}

	if !c.breaker.CanExecute() {
		recordSpanError(span, ErrCircuitOpen)
		return nil, ErrCircuitOpen
	}

	// The admission may hold a HALF_OPEN probe slot. Paths that return
	// without reporting an outcome (cache hit, cancelled waits) must
	// release it or the breaker wedges in HALF_OPEN.
	settled := false
	defer func() {
		if !settled {
			c.breaker.OnCancel()
		}
	}()

	if c.limiter != nil {
		for !c.limiter.Acquire() {
			if err := c.sleep(ctx, rateLimitPollInterval); err != nil {
				return nil, err
			}
		}
	}

	var cacheKey string
	useCache := opts.UseCache && c.cache != nil && method == http.MethodGet
	if useCache {
		cacheKey = CacheKey(method, endpoint, opts.Params)
		if resp, ok := c.cache.Get(ctx, cacheKey); ok {
			c.logger.Debug().Str("cache_key", cacheKey).Msg("cache hit")
			recordSpanCacheHit(span)
			return resp, nil
		}
	}

	url := c.buildURL(endpoint)
	requestID := uuid.NewString()
	bo := c.newBackOff()

	attempt := 0
	for {
		attempt++

		c.logger.Debug().
			Str("request_id", requestID).
			Str("method", method).
			Str("url", url).
			Int("attempt", attempt).
			Msg("transport attempt")

		resp, err := c.transport.Do(ctx, &TransportRequest{
			Method:  method,
			URL:     url,
			Headers: c.mergeHeaders(opts.Headers),
			Params:  opts.Params,
			Body:    opts.Body,
			Timeout: c.timeout,
		})

		if err != nil {
			settled = true
			c.breaker.OnFailure()
			c.logger.Error().
				Str("request_id", requestID).
				Str("url", url).
				Int("attempt", attempt).
				Err(err).
				Msg("transport failure")

			if opts.Retry && attempt < c.retryPolicy.MaxRetries && c.classifier(err) {
				delay := bo.NextBackOff()
				c.logger.Warn().
					Str("request_id", requestID).
					Dur("delay", delay).
					Msg("retrying after transport failure")
				recordSpanRetry(span, attempt, delay, err)
				if serr := c.sleep(ctx, delay); serr != nil {
					return nil, serr
				}
				continue
			}

			terr := &TransportError{Method: method, URL: url, Attempts: attempt, Err: err}
			recordSpanError(span, terr)
			return nil, terr
		}

		c.metrics.Record(resp)

		if opts.ValidateSchema != "" {
			c.validate(resp, opts.ValidateSchema, requestID)
		}

		if useCache && resp.Success() {
			c.cache.Set(ctx, cacheKey, resp)
		}

		if resp.Success() {
			settled = true
			c.breaker.OnSuccess()
			recordSpanStatus(span, resp.Status)
			return resp, nil
		}

		if opts.Retry && c.retryPolicy.ShouldRetry(resp.Status, attempt) {
			delay := bo.NextBackOff()
			c.logger.Warn().
				Str("request_id", requestID).
				Int("status", resp.Status).
				Dur("delay", delay).
				Msg("retrying after unsuccessful response")
			recordSpanRetry(span, attempt, delay, nil)
			if serr := c.sleep(ctx, delay); serr != nil {
				return nil, serr
			}
			continue
		}

		settled = true
		c.breaker.OnFailure()
		recordSpanStatus(span, resp.Status)
		return resp, nil
	}
}

// Get issues a GET through the pipeline. Omitted options default to
// DefaultRequestOptions.
func (c *Client) Get(ctx context.Context, endpoint string, opts ...RequestOptions) (*Response, error) {
	return c.Execute(ctx, http.MethodGet, endpoint, firstOption(opts))
}

// Post issues a POST through the pipeline.
func (c *Client) Post(ctx context.Context, endpoint string, opts ...RequestOptions) (*Response, error) {
	return c.Execute(ctx, http.MethodPost, endpoint, firstOption(opts))
}

// Put issues a PUT through the pipeline.
func (c *Client) Put(ctx context.Context, endpoint string, opts ...RequestOptions) (*Response, error) {
	return c.Execute(ctx, http.MethodPut, endpoint, firstOption(opts))
}

// Patch issues a PATCH through the pipeline.
func (c *Client) Patch(ctx context.Context, endpoint string, opts ...RequestOptions) (*Response, error) {
	return c.Execute(ctx, http.MethodPatch, endpoint, firstOption(opts))
}

// Delete issues a DELETE through the pipeline.
func (c *Client) Delete(ctx context.Context, endpoint string, opts ...RequestOptions) (*Response, error) {
	return c.Execute(ctx, http.MethodDelete, endpoint, firstOption(opts))
}

// Call executes a named endpoint from the static map registered with
// WithEndpoints.
func (c *Client) Call(ctx context.Context, name string, opts ...RequestOptions) (*Response, error) {
	ep, ok := c.endpoints[name]
	if !ok {
		return nil, fmt.Errorf("endpoint %q is not registered", name)
	}
	return c.Execute(ctx, ep.Method, ep.Path, firstOption(opts))
}

// AsyncResult carries the outcome of an asynchronous call.
type AsyncResult struct {
	Response *Response
	Err      error
}

// ExecuteAsync runs Execute in a goroutine and returns a channel that
// yields the single result. The asynchronous path runs the same gated
// pipeline as the synchronous one; there is no raw escape hatch around
// the breaker, limiter, cache, or retry loop.
func (c *Client) ExecuteAsync(ctx context.Context, method, endpoint string, opts ...RequestOptions) <-chan AsyncResult {
	ch := make(chan AsyncResult, 1)
	go func() {
		defer close(ch)
		resp, err := c.Execute(ctx, method, endpoint, firstOption(opts))
		ch <- AsyncResult{Response: resp, Err: err}
	}()
	return ch
}

// BatchRequest describes one call in a Batch.
type BatchRequest struct {
	Method   string
	Endpoint string
	Options  RequestOptions
}

// BatchResult pairs one BatchRequest's outcome with its input position.
type BatchResult struct {
	Response *Response
	Err      error
}

// Batch executes the requests either sequentially or across a bounded
// worker pool, preserving input order in the results. Each call runs the
// full per-call pipeline; Batch adds no gating of its own.
func (c *Client) Batch(ctx context.Context, reqs []BatchRequest, parallel bool) []BatchResult {
	results := make([]BatchResult, len(reqs))

	if !parallel {
		for i, r := range reqs {
			resp, err := c.Execute(ctx, r.Method, r.Endpoint, r.Options)
			results[i] = BatchResult{Response: resp, Err: err}
		}
		return results
	}

	g := new(errgroup.Group)
	g.SetLimit(c.batchConcurrency)
	for i, r := range reqs {
		g.Go(func() error {
			resp, err := c.Execute(ctx, r.Method, r.Endpoint, r.Options)
			results[i] = BatchResult{Response: resp, Err: err}
			return nil
		})
	}
	g.Wait() //nolint:errcheck // workers never return errors; outcomes are in results

	return results
}

// LoadTest drives this client at a target rate for a fixed duration. See
// LoadGenerator.
func (c *Client) LoadTest(ctx context.Context, endpoint, method string, targetRPS int, duration time.Duration, opts ...RequestOptions) (*LoadTestResult, error) {
	return NewLoadGenerator(c).Run(ctx, endpoint, method, targetRPS, duration, opts...)
}

// Metrics returns the client's metrics collector.
func (c *Client) Metrics() *MetricsCollector {
	return c.metrics
}

// Mocks returns the client's mock registry.
func (c *Client) Mocks() *MockRegistry {
	return c.mocks
}

// AddMock registers a canned response for the method + endpoint pair.
func (c *Client) AddMock(method, endpoint string, mock MockResponse) {
	c.mocks.Add(method, endpoint, mock)
}

// EnableMocks turns on mock interception for this client.
func (c *Client) EnableMocks() {
	c.mocks.Enable()
}

// DisableMocks turns mock interception off.
func (c *Client) DisableMocks() {
	c.mocks.Disable()
}

// Close releases transport resources.
func (c *Client) Close() error {
	if closer, ok := c.transport.(io.Closer); ok {
		return closer.Close()
	}
	return nil
}

func (c *Client) buildURL(endpoint string) string {
	if c.baseURL == "" {
		return endpoint
	}
	return strings.TrimSuffix(c.baseURL, "/") + "/" + strings.TrimPrefix(endpoint, "/")
}

func (c *Client) mergeHeaders(headers map[string]string) map[string]string {
	if len(c.defaultHeaders) == 0 {
		return headers
	}
	merged := make(map[string]string, len(c.defaultHeaders)+len(headers))
	for k, v := range c.defaultHeaders {
		merged[k] = v
	}
	for k, v := range headers {
		merged[k] = v
	}
	return merged
}

// newBackOff returns a fresh delay schedule for one call's retry loop.
// Backoff strategies are stateful and not safe to share across goroutines,
// so each call gets its own instance.
func (c *Client) newBackOff() backoff.BackOff {
	if c.retryBackOff != nil {
		bo := c.retryBackOff()
		bo.Reset()
		return bo
	}
	return &policyBackOff{policy: c.retryPolicy}
}

func (c *Client) validate(resp *Response, schema, requestID string) {
	if c.validator == nil {
		c.logger.Warn().
			Str("request_id", requestID).
			Str("schema", schema).
			Msg("validation requested but no validator configured")
		return
	}
	if err := c.validator.Validate(schema, resp.Body); err != nil {
		c.logger.Warn().
			Str("request_id", requestID).
			Str("schema", schema).
			Str("url", resp.URL).
			Err(err).
			Msg("schema validation failed")
	}
}

func firstOption(opts []RequestOptions) RequestOptions {
	if len(opts) > 0 {
		return opts[0]
	}
	return DefaultRequestOptions()
}

func sleepContext(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
