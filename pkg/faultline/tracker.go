// tracker.go provides the central Tracker and its background ingestion
// pipeline.

package faultline

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"runtime/debug"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/robfig/cron/v3"
)

// TrackerOption configures a Tracker.
type TrackerOption func(*trackerOptions)

type trackerOptions struct {
	logger     *slog.Logger
	sink       Sink
	classifier *Classifier
	registry   prometheus.Registerer
}

// WithLogger sets the structured logger for tracker internals.
func WithLogger(logger *slog.Logger) TrackerOption {
	return func(o *trackerOptions) {
		o.logger = logger
	}
}

// WithSink sets the destination for aggregated record snapshots.
func WithSink(sink Sink) TrackerOption {
	return func(o *trackerOptions) {
		o.sink = sink
	}
}

// WithClassifier replaces the default classification rules.
func WithClassifier(classifier *Classifier) TrackerOption {
	return func(o *trackerOptions) {
		o.classifier = classifier
	}
}

// WithRegistry registers the faultline Prometheus collectors against reg.
func WithRegistry(reg prometheus.Registerer) TrackerOption {
	return func(o *trackerOptions) {
		o.registry = reg
	}
}

// Tracker classifies, fingerprints, aggregates, and reports errors.
// Construct one per application and hand it to collaborators; all methods
// are safe for concurrent use.
type Tracker struct {
	cfg        Config
	logger     *slog.Logger
	classifier *Classifier
	normalizer *Normalizer
	sanitizer  *Sanitizer
	agg        *Aggregator
	sink       Sink

	mu      sync.Mutex
	history []stamp
	total   int64
	monitor *alertMonitor
	alertCb func(Alert)
	started bool
	queue   chan ErrorRecord
	done    chan struct{}
	cron    *cron.Cron
	wg      sync.WaitGroup

	now func() time.Time
}

// NewTracker creates a tracker with the given configuration.
// Zero-valued config fields fall back to DefaultConfig values.
func NewTracker(cfg Config, opts ...TrackerOption) *Tracker {
	cfg = cfg.withDefaults()

	options := &trackerOptions{}
	for _, opt := range opts {
		opt(options)
	}

	if options.logger == nil {
		options.logger = slog.Default()
	}
	if options.sink == nil {
		options.sink = &noopSinkInternal{}
	}
	if options.classifier == nil {
		options.classifier = NewClassifier()
	}
	if options.registry != nil {
		if err := RegisterMetrics(options.registry); err != nil {
			options.logger.Warn("metrics registration failed", "error", err)
		}
	}

	return &Tracker{
		cfg:        cfg,
		logger:     options.logger,
		classifier: options.classifier,
		normalizer: NewNormalizer(cfg.Normalizer),
		sanitizer:  NewSanitizer(cfg.Sanitizer),
		agg:        NewAggregator(cfg.MaxErrors),
		sink:       options.sink,
		monitor:    newAlertMonitor(cfg.Alerts, cfg.RateWindow, cfg.AggregationWindow),
		now:        time.Now,
	}
}

// TrackError records an error occurrence.
//
// The occurrence is sanitized, classified, and fingerprinted inline. Without
// background processing the aggregate is updated synchronously and the
// returned record carries the canonical count. With background processing
// started, the occurrence is enqueued and the returned record is the
// provisional single-occurrence view; queries observe the canonical
// aggregate once the worker consumes it.
//
// Tracking is fail-open: internal failures are logged, never propagated,
// and never panic through an instrumented call site.
func (t *Tracker) TrackError(ctx context.Context, message, errType, stackTrace string, ectx *ErrorContext) *ErrorRecord {
	defer func() {
		if r := recover(); r != nil {
			t.logger.Error("error tracking failed", "panic", r)
		}
	}()

	start := t.now()

	if ctx == nil {
		ctx = context.Background()
	}
	if ectx == nil {
		ectx = &ErrorContext{}
	}
	mergeContextIDs(ctx, ectx)

	message = t.sanitizer.SanitizeMessage(message)
	stackTrace = t.sanitizer.SanitizeStack(stackTrace)

	category, severity := t.classifier.Classify(errType, message)
	normalized := t.normalizer.Normalize(message)

	now := t.now()
	rec := ErrorRecord{
		ID:          uuid.NewString(),
		Fingerprint: Fingerprint(category, errType, normalized, ectx.FunctionName),
		Severity:    severity,
		Category:    category,
		Message:     message,
		ErrorType:   errType,
		StackTrace:  stackTrace,
		Count:       1,
		FirstSeen:   now,
		LastSeen:    now,
		Context:     *ectx,
	}

	if t.enqueue(rec) {
		return &rec
	}

	snapshot := t.process(ctx, rec, start)
	return &snapshot
}

// TrackException records an error value, deriving the message and type name
// from err and capturing the current stack.
func (t *Tracker) TrackException(ctx context.Context, err error, ectx *ErrorContext) *ErrorRecord {
	if err == nil {
		return nil
	}
	return t.TrackError(ctx, err.Error(), exceptionType(err), string(debug.Stack()), ectx)
}

// exceptionType names the concrete error type without the pointer marker.
func exceptionType(err error) string {
	return strings.TrimPrefix(fmt.Sprintf("%T", err), "*")
}

// enqueue hands the occurrence to the background worker when running.
// Returns false when tracking should proceed synchronously.
func (t *Tracker) enqueue(rec ErrorRecord) bool {
	t.mu.Lock()
	if !t.started {
		t.mu.Unlock()
		return false
	}
	queue := t.queue
	policy := t.cfg.Queue.Policy
	timeout := t.cfg.Queue.BlockTimeout
	t.mu.Unlock()

	if policy == PolicyBlock {
		select {
		case queue <- rec:
			observeQueueDepth(len(queue))
		case <-time.After(timeout):
			t.logger.Warn("ingestion queue full, occurrence dropped",
				"fingerprint", rec.Fingerprint, "timeout", timeout)
			observeDropped(1)
		}
		return true
	}

	select {
	case queue <- rec:
		observeQueueDepth(len(queue))
		return true
	default:
	}

	// Queue is full: drop the oldest occurrence to admit the new one.
	select {
	case <-queue:
		observeDropped(1)
	default:
		// Queue was emptied by the worker, try again
	}
	select {
	case queue <- rec:
	default:
		// Still full, drop the new occurrence
		observeDropped(1)
	}
	observeQueueDepth(len(queue))
	return true
}

// process runs one occurrence through aggregation, history, alerting, the
// sink, and metrics. It is the single path shared by synchronous tracking
// and the background worker.
func (t *Tracker) process(ctx context.Context, rec ErrorRecord, start time.Time) ErrorRecord {
	snapshot, isNew := t.agg.Record(rec)

	t.mu.Lock()
	t.total++
	t.history = append(t.history, stamp{at: rec.LastSeen, severity: rec.Severity, category: rec.Category})
	if len(t.history) > t.cfg.HistorySize {
		t.history = t.history[1:]
	}
	alerts := t.monitor.evaluate(rec.LastSeen, t.history)
	cb := t.alertCb
	t.mu.Unlock()

	for _, alert := range alerts {
		observeAlert(alert.Name)
		t.dispatchAlert(cb, alert)
	}

	if err := t.sink.Write(ctx, snapshot); err != nil {
		t.logger.Warn("sink write failed", "error", err, "fingerprint", snapshot.Fingerprint)
	}

	observeOccurrence(rec.Category, rec.Severity, t.now().Sub(start))
	t.logger.Debug("tracked error",
		"id", snapshot.ID,
		"fingerprint", snapshot.Fingerprint,
		"category", snapshot.Category,
		"severity", snapshot.Severity,
		"count", snapshot.Count,
		"new", isNew,
	)
	return snapshot
}

// dispatchAlert invokes the callback, isolating tracking from callback
// panics.
func (t *Tracker) dispatchAlert(cb func(Alert), alert Alert) {
	t.logger.Warn("alert raised", "alert", alert.Name, "message", alert.Message)
	if cb == nil {
		return
	}
	defer func() {
		if r := recover(); r != nil {
			t.logger.Error("alert callback panicked", "alert", alert.Name, "panic", r)
		}
	}()
	cb(alert)
}

// SetAlertCallback registers the alert callback. Registration is idempotent;
// a later call replaces the earlier callback.
func (t *Tracker) SetAlertCallback(fn func(Alert)) {
	t.mu.Lock()
	t.alertCb = fn
	t.mu.Unlock()
}

// GetErrorStats returns current aggregate statistics.
func (t *Tracker) GetErrorStats() Stats {
	records := t.agg.Snapshot()
	top := t.agg.TopErrors(10)

	t.mu.Lock()
	defer t.mu.Unlock()
	return computeStats(records, top, t.history, t.total, t.cfg.RateWindow, t.now())
}

// GetRecentErrors returns records whose most recent occurrence falls within
// the trailing window, newest first.
func (t *Tracker) GetRecentErrors(window time.Duration) []ErrorRecord {
	cutoff := t.now().Add(-window)

	var out []ErrorRecord
	for _, rec := range t.agg.Snapshot() {
		if rec.LastSeen.After(cutoff) {
			out = append(out, rec)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].LastSeen.After(out[j].LastSeen) })
	return out
}

// GetErrorTrends returns daily activity buckets for the trailing days,
// oldest first.
func (t *Tracker) GetErrorTrends(days int) []TrendPoint {
	t.mu.Lock()
	defer t.mu.Unlock()
	return computeTrends(t.history, days, t.now())
}

// GetErrorByID returns the resident record with the given ID.
func (t *Tracker) GetErrorByID(id string) (ErrorRecord, bool) {
	return t.agg.ByID(id)
}

// TopErrors returns up to n resident records by descending count.
func (t *Tracker) TopErrors(n int) []ErrorRecord {
	return t.agg.TopErrors(n)
}

// QueueDepth returns the number of occurrences waiting for the background
// worker, or zero when background processing is not running.
func (t *Tracker) QueueDepth() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	if !t.started {
		return 0
	}
	return len(t.queue)
}

// ResolveError marks the record with the given ID as resolved.
// Returns ErrNotFound when the ID matches no resident record.
func (t *Tracker) ResolveError(id, note string) error {
	if err := t.agg.Resolve(id, note); err != nil {
		return err
	}
	t.logger.Info("error resolved", "id", id)
	return nil
}

// ClearErrors removes all resident records and occurrence history.
func (t *Tracker) ClearErrors() {
	t.agg.Clear()

	t.mu.Lock()
	t.history = nil
	t.total = 0
	t.mu.Unlock()
}

// StartBackgroundProcessing starts the ingestion worker and, when an export
// schedule is configured, the export cron. Returns ErrAlreadyStarted when
// already running.
func (t *Tracker) StartBackgroundProcessing() error {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.started {
		return ErrAlreadyStarted
	}

	if t.cfg.Export.Schedule != "" {
		runner := cron.New()
		path, format := t.cfg.Export.Path, t.cfg.Export.Format
		if _, err := runner.AddFunc(t.cfg.Export.Schedule, func() {
			if err := t.ExportErrors(path, format); err != nil {
				t.logger.Error("scheduled export failed", "path", path, "error", err)
			}
		}); err != nil {
			return fmt.Errorf("invalid export schedule %q: %w", t.cfg.Export.Schedule, err)
		}
		t.cron = runner
	}

	t.queue = make(chan ErrorRecord, t.cfg.Queue.Size)
	t.done = make(chan struct{})
	t.started = true

	t.wg.Add(1)
	go t.processLoop(t.queue, t.done)

	if t.cron != nil {
		t.cron.Start()
	}

	t.logger.Info("background processing started",
		"queueSize", t.cfg.Queue.Size, "policy", t.cfg.Queue.Policy)
	return nil
}

// processLoop drains the ingestion queue until stopped, then drains whatever
// remains and exits.
func (t *Tracker) processLoop(queue chan ErrorRecord, done chan struct{}) {
	defer t.wg.Done()
	ctx := context.Background()

	for {
		select {
		case rec := <-queue:
			t.process(ctx, rec, t.now())
			observeQueueDepth(len(queue))
		case <-done:
			// Drain remaining occurrences
			for {
				select {
				case rec := <-queue:
					t.process(ctx, rec, t.now())
				default:
					observeQueueDepth(0)
					return
				}
			}
		}
	}
}

// StopBackgroundProcessing stops the worker after draining queued
// occurrences. The drain is bounded by the context deadline, or by
// Queue.DrainTimeout when the context has none. Returns ErrNotStarted when
// background processing is not running.
func (t *Tracker) StopBackgroundProcessing(ctx context.Context) error {
	t.mu.Lock()
	if !t.started {
		t.mu.Unlock()
		return ErrNotStarted
	}
	t.started = false
	done := t.done
	runner := t.cron
	t.cron = nil
	t.mu.Unlock()

	if runner != nil {
		runner.Stop()
	}

	if ctx == nil {
		ctx = context.Background()
	}
	if _, hasDeadline := ctx.Deadline(); !hasDeadline && t.cfg.Queue.DrainTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, t.cfg.Queue.DrainTimeout)
		defer cancel()
	}

	close(done)

	drained := make(chan struct{})
	go func() {
		t.wg.Wait()
		close(drained)
	}()

	select {
	case <-drained:
	case <-ctx.Done():
		return ctx.Err()
	}

	if err := t.sink.Flush(ctx); err != nil {
		t.logger.Warn("sink flush failed", "error", err)
	}

	t.logger.Info("background processing stopped")
	return nil
}

// Close stops background processing if running and closes the sink.
func (t *Tracker) Close() error {
	if err := t.StopBackgroundProcessing(context.Background()); err != nil && !errors.Is(err, ErrNotStarted) {
		t.logger.Warn("stop background processing failed", "error", err)
	}
	return t.sink.Close()
}
