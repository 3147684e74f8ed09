package apiclient

import (
	"errors"
	"fmt"
	"net"
	"syscall"
)

// ErrCircuitOpen is returned when the circuit breaker rejects a call
// outright. No transport attempt is made and the call is never retried;
// retrying a rejected call would defeat the breaker's purpose.
var ErrCircuitOpen = errors.New("circuit breaker is open")

// TransportError wraps a transport-level failure (connection refused,
// timeout, DNS) after the retry budget is exhausted. This is the only way
// the pipeline terminates with an error for a call that was admitted;
// non-2xx responses are returned as values.
type TransportError struct {
	// Method is the HTTP method of the failed call.
	Method string

	// URL is the fully resolved request URL.
	URL string

	// Attempts is the number of transport attempts made, including the
	// first one.
	Attempts int

	// Err is the underlying transport error from the last attempt.
	Err error
}

// Error implements the error interface.
func (e *TransportError) Error() string {
	return fmt.Sprintf("transport %s %s failed after %d attempt(s): %v",
		e.Method, e.URL, e.Attempts, e.Err)
}

// Unwrap returns the underlying transport error.
func (e *TransportError) Unwrap() error {
	return e.Err
}

// ErrorClassifier decides whether a transport-level error is of an expected,
// retryable kind. Errors the classifier rejects are propagated immediately
// without consuming the retry budget.
type ErrorClassifier func(err error) bool

// DefaultErrorClassifier treats network-level errors as retryable:
// anything implementing net.Error, plus connection refused, connection
// reset, and timed-out syscall errors.
func DefaultErrorClassifier(err error) bool {
	if err == nil {
		return false
	}

	var netErr net.Error
	if errors.As(err, &netErr) {
		return true
	}

	if errors.Is(err, syscall.ECONNREFUSED) ||
		errors.Is(err, syscall.ECONNRESET) ||
		errors.Is(err, syscall.ETIMEDOUT) {
		return true
	}

	return false
}

// IsCircuitOpen reports whether err indicates a circuit breaker rejection.
func IsCircuitOpen(err error) bool {
	return errors.Is(err, ErrCircuitOpen)
}
