// retry.go implements bounded retry with exponential backoff.

package faultline

import (
	"context"
	"errors"
	"strconv"
	"time"

	"github.com/cenkalti/backoff/v4"
)

// RetryOption configures a Retry call.
type RetryOption func(*retryOptions)

type retryOptions struct {
	maxAttempts int
	baseDelay   time.Duration
	maxDelay    time.Duration
	factor      float64
	jitter      float64
	retryIf     func(error) bool
	onRetry     func(attempt int, err error)
	tracker     *Tracker
}

func defaultRetryOptions() retryOptions {
	return retryOptions{
		maxAttempts: 3,
		baseDelay:   time.Second,
		maxDelay:    60 * time.Second,
		factor:      2.0,
	}
}

// WithMaxAttempts bounds the total number of invocations, first try
// included.
func WithMaxAttempts(n int) RetryOption {
	return func(o *retryOptions) {
		if n > 0 {
			o.maxAttempts = n
		}
	}
}

// WithBaseDelay sets the delay before the first retry.
func WithBaseDelay(d time.Duration) RetryOption {
	return func(o *retryOptions) {
		if d > 0 {
			o.baseDelay = d
		}
	}
}

// WithBackoffFactor sets the multiplier applied to the delay after each
// retry.
func WithBackoffFactor(f float64) RetryOption {
	return func(o *retryOptions) {
		if f >= 1 {
			o.factor = f
		}
	}
}

// WithJitter randomizes each delay by up to the given fraction.
// Zero, the default, keeps the schedule deterministic.
func WithJitter(fraction float64) RetryOption {
	return func(o *retryOptions) {
		if fraction >= 0 {
			o.jitter = fraction
		}
	}
}

// WithMaxDelay caps the delay between retries.
func WithMaxDelay(d time.Duration) RetryOption {
	return func(o *retryOptions) {
		if d > 0 {
			o.maxDelay = d
		}
	}
}

// WithRetryIf restricts retrying to errors matching pred; any other error
// returns immediately.
func WithRetryIf(pred func(error) bool) RetryOption {
	return func(o *retryOptions) {
		o.retryIf = pred
	}
}

// WithOnRetry registers a callback invoked before each wait with the number
// of the attempt that just failed and its error.
func WithOnRetry(fn func(attempt int, err error)) RetryOption {
	return func(o *retryOptions) {
		o.onRetry = fn
	}
}

// WithRetryTracker records the terminal failure when the attempt budget is
// spent or the wait is canceled.
func WithRetryTracker(tracker *Tracker) RetryOption {
	return func(o *retryOptions) {
		o.tracker = tracker
	}
}

// Retry invokes op until it succeeds, an attempt fails with a non-retryable
// error, the attempt budget is spent, or ctx is done during a wait.
//
// Delays follow an exponential schedule starting at the base delay. A
// non-retryable error is returned unchanged. A spent budget returns a
// *RetryError wrapping the last error; errors.Is and errors.As reach the
// cause. Cancellation during a wait returns a *RetryError wrapping both
// ctx.Err() and the last error.
func Retry(ctx context.Context, op func(context.Context) error, opts ...RetryOption) error {
	options := defaultRetryOptions()
	for _, opt := range opts {
		opt(&options)
	}
	if ctx == nil {
		ctx = context.Background()
	}

	schedule := backoff.NewExponentialBackOff()
	schedule.InitialInterval = options.baseDelay
	schedule.Multiplier = options.factor
	schedule.RandomizationFactor = options.jitter
	schedule.MaxInterval = options.maxDelay
	schedule.MaxElapsedTime = 0
	schedule.Reset()

	var lastErr error
	attempts := 0

	for attempt := 1; attempt <= options.maxAttempts; attempt++ {
		attempts = attempt

		lastErr = op(ctx)
		if lastErr == nil {
			return nil
		}
		if options.retryIf != nil && !options.retryIf(lastErr) {
			return lastErr
		}
		if attempt == options.maxAttempts {
			break
		}

		if options.onRetry != nil {
			options.onRetry(attempt, lastErr)
		}

		wait := schedule.NextBackOff()
		if wait == backoff.Stop {
			break
		}

		timer := time.NewTimer(wait)
		select {
		case <-timer.C:
		case <-ctx.Done():
			timer.Stop()
			return retryFailure(ctx, options, attempts, errors.Join(ctx.Err(), lastErr))
		}
	}

	return retryFailure(ctx, options, attempts, lastErr)
}

// retryFailure builds the terminal error and reports it when a tracker is
// configured.
func retryFailure(ctx context.Context, options retryOptions, attempts int, cause error) error {
	err := &RetryError{Attempts: attempts, Err: cause}
	if options.tracker != nil {
		options.tracker.TrackException(ctx, err, &ErrorContext{
			AdditionalData: map[string]string{"attempts": strconv.Itoa(attempts)},
		})
	}
	return err
}
