package apiclient

import (
	"strings"
	"sync"
	"time"

	json "github.com/goccy/go-json"
)

// MockElapsed is the simulated elapsed time stamped on mock responses that
// do not set their own.
const MockElapsed = 100 * time.Millisecond

// MockResponse is a canned response registered for a method + endpoint
// pair.
type MockResponse struct {
	// Status is the response status code. Default: 200
	Status int

	// Body is serialized to JSON unless it is already a []byte or string.
	// Default: {"message": "Mock response"}
	Body any

	// Headers are returned verbatim.
	Headers map[string]string

	// Elapsed is the simulated response time. Default: MockElapsed
	Elapsed time.Duration
}

// MockRegistry holds canned responses and short-circuits the pipeline when
// enabled: a matching mock bypasses the circuit breaker, rate limiter,
// cache, retry loop, and metrics. This is a testing escape hatch, not a
// production code path.
type MockRegistry struct {
	mu      sync.RWMutex
	mocks   map[string]MockResponse
	enabled bool
}

// NewMockRegistry creates an empty, disabled registry.
func NewMockRegistry() *MockRegistry {
	return &MockRegistry{
		mocks: make(map[string]MockResponse),
	}
}

// Add registers a mock for the method + endpoint pair, overwriting any
// previous registration.
func (r *MockRegistry) Add(method, endpoint string, mock MockResponse) {
	if mock.Status == 0 {
		mock.Status = 200
	}
	if mock.Body == nil {
		mock.Body = map[string]string{"message": "Mock response"}
	}
	if mock.Elapsed <= 0 {
		mock.Elapsed = MockElapsed
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	r.mocks[mockKey(method, endpoint)] = mock
}

// Enable turns on mock interception for all calls through the owning
// client.
func (r *MockRegistry) Enable() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.enabled = true
}

// Disable turns mock interception off. Registered mocks are kept.
func (r *MockRegistry) Disable() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.enabled = false
}

// Enabled reports whether interception is active.
func (r *MockRegistry) Enabled() bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.enabled
}

// Lookup returns a synthesized Response for the method + endpoint pair, or
// nil when mocking is disabled or no mock matches.
func (r *MockRegistry) Lookup(method, endpoint string) *Response {
	r.mu.RLock()
	defer r.mu.RUnlock()

	if !r.enabled {
		return nil
	}
	mock, ok := r.mocks[mockKey(method, endpoint)]
	if !ok {
		return nil
	}

	headers := make(map[string]string, len(mock.Headers))
	for k, v := range mock.Headers {
		headers[k] = v
	}

	return &Response{
		Status:  mock.Status,
		Body:    mockBody(mock.Body),
		Headers: headers,
		Elapsed: mock.Elapsed,
		URL:     "mock://" + endpoint,
	}
}

func mockBody(body any) []byte {
	switch b := body.(type) {
	case []byte:
		return b
	case string:
		return []byte(b)
	default:
		raw, err := json.Marshal(body)
		if err != nil {
			return nil
		}
		return raw
	}
}

func mockKey(method, endpoint string) string {
	return strings.ToUpper(method) + "_" + endpoint
}
