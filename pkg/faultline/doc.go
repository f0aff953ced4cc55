// Package faultline provides error tracking and resilience primitives for
// long-running services.
//
// faultline classifies errors into categories and severities, collapses
// repeated occurrences into fingerprinted records, and keeps a bounded
// in-memory view of what is failing right now. On top of that view it raises
// edge-triggered alerts, computes statistics and daily trends, and exports
// records for offline analysis. A companion set of resilience wrappers
// (circuit breaker, retry with exponential backoff, error boundary) guards
// calls to flaky dependencies and feeds their failures back into tracking.
//
// # Core Components
//
// The library is organized around these concepts:
//
//   - ErrorRecord: The canonical aggregated error with severity, category, counts, and context
//   - Tracker: Central entry point that sanitizes, classifies, fingerprints, and aggregates
//   - Sink: Destination for record snapshots (sqlite, stderr, multi, noop)
//   - Breaker: Circuit breaker with a single half-open probe
//   - Retry: Bounded retry on an exponential schedule
//   - Boundary: Scope that contains matching errors and panics
//
// # Quick Start
//
//	tracker := faultline.NewTracker(faultline.DefaultConfig(),
//	    faultline.WithSink(stderr.NewStderrSink()),
//	)
//	defer tracker.Close()
//
//	tracker.TrackException(ctx, err, &faultline.ErrorContext{FunctionName: "fetchUser"})
//	stats := tracker.GetErrorStats()
//
// Guarding a flaky dependency:
//
//	breaker := faultline.NewBreaker("billing", faultline.DefaultBreakerConfig(),
//	    faultline.WithBreakerTracker(tracker),
//	)
//	err := faultline.Retry(ctx, func(ctx context.Context) error {
//	    return breaker.Do(ctx, callBilling)
//	}, faultline.WithMaxAttempts(3))
//
// # Design Principles
//
//   - Tracking never aborts the caller: internal failures are logged and swallowed
//   - Fingerprints are stable: equal inputs always group into the same record
//   - Bounded memory: record residency and occurrence history have hard caps
//   - Explicit dependencies: trackers are constructed and passed, never global
package faultline
