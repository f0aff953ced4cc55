// errors.go defines the sentinel errors and wrapper types exposed by faultline.

package faultline

import (
	"errors"
	"fmt"
)

var (
	// ErrNotFound is returned when a lookup by record ID matches nothing.
	ErrNotFound = errors.New("faultline: error record not found")

	// ErrBreakerOpen is returned by Breaker.Do when the circuit rejects a call
	// without invoking the guarded operation. Callers distinguish it from
	// operation failures via errors.Is.
	ErrBreakerOpen = errors.New("faultline: circuit breaker is open")

	// ErrAlreadyStarted is returned when background processing is started twice.
	ErrAlreadyStarted = errors.New("faultline: background processing already started")

	// ErrNotStarted is returned when stopping background processing that never started.
	ErrNotStarted = errors.New("faultline: background processing not started")
)

// RetryError wraps the final error after all retry attempts are exhausted.
// errors.Is and errors.As reach the underlying cause through Unwrap.
type RetryError struct {
	// Attempts is the number of times the operation was invoked.
	Attempts int

	// Err is the error from the final attempt. When the retry loop is
	// interrupted by context cancellation, Err joins the context error
	// with the last operation error.
	Err error
}

func (e *RetryError) Error() string {
	return fmt.Sprintf("retry gave up after %d attempts: %v", e.Attempts, e.Err)
}

func (e *RetryError) Unwrap() error {
	return e.Err
}
