package apiclient

import (
	"fmt"
	"time"

	json "github.com/goccy/go-json"
)

// Response is the unified result of an API call. It is immutable once
// constructed; the pipeline, the cache, and the mock registry all produce
// values of this shape.
type Response struct {
	// Status is the HTTP status code.
	Status int

	// Body is the raw response body.
	Body []byte

	// Headers holds the response headers, first value per key.
	Headers map[string]string

	// Elapsed is the wall-clock duration of the transport attempt that
	// produced this response. Mock responses carry a simulated value.
	Elapsed time.Duration

	// URL is the fully resolved request URL.
	URL string
}

// Success reports whether the status code is in the 2xx range.
func (r *Response) Success() bool {
	return r.Status >= 200 && r.Status < 300
}

// IsError reports whether the status code is 4xx or 5xx.
func (r *Response) IsError() bool {
	return r.Status >= 400
}

// String returns the response body as a string.
func (r *Response) String() string {
	return string(r.Body)
}

// Decode unmarshals the JSON body into target.
func (r *Response) Decode(target any) error {
	return json.Unmarshal(r.Body, target)
}

// ErrorFromStatus returns a *StatusError when the response is unsuccessful,
// nil otherwise. Use it when a non-2xx status should be treated as an error
// at the call site rather than inspected as a value.
func (r *Response) ErrorFromStatus() error {
	if r.Success() {
		return nil
	}
	return &StatusError{Status: r.Status, URL: r.URL}
}

// StatusError represents a well-formed but unsuccessful response promoted to
// an error by the caller via Response.ErrorFromStatus.
type StatusError struct {
	Status int
	URL    string
}

// Error implements the error interface.
func (e *StatusError) Error() string {
	return fmt.Sprintf("HTTP %d for %s", e.Status, e.URL)
}
