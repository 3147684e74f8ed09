// Package apiclient provides a resilient API client built around a single
// request orchestration pipeline: mock interception, circuit breaking, rate
// limiting, response caching, retry with exponential backoff, and metrics
// collection, composed in a fixed order around a swappable transport.
//
// # Quick Start
//
// Create a client with New() and functional options:
//
//	client := apiclient.New(
//	    apiclient.WithBaseURL("https://api.example.com"),
//	    apiclient.WithRateLimiter(apiclient.NewTokenBucket(50)),
//	    apiclient.WithCache(apiclient.NewMemoryCache(5*time.Minute)),
//	)
//
//	resp, err := client.Get(ctx, "/users", apiclient.RequestOptions{
//	    Retry:    true,
//	    UseCache: true,
//	    Params:   map[string]string{"id": "5"},
//	})
//
// # Pipeline Order
//
// Every call runs the same gates in the same order: registered mocks first
// (terminal short-circuit), then the circuit breaker, then rate-limit
// admission (blocking), then the response cache, and only then the transport
// inside the retry loop. Metrics are recorded for every attempt that produced
// a response.
//
// # Error Contract
//
// Transport-level failures (connection refused, timeout, DNS) surface as a
// *TransportError after retries are exhausted; this is the only raising
// path. A well-formed response with a non-2xx status is returned as a value;
// check Response.Success(). A rejected call returns ErrCircuitOpen without
// touching the transport.
package apiclient
