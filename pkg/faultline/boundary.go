// boundary.go implements an error boundary that contains failures within a
// scope and reports them to a tracker.

package faultline

import (
	"context"
	"runtime/debug"
	"sync"
)

// BoundaryOption configures a Boundary.
type BoundaryOption func(*Boundary)

// WithCatch restricts which errors the boundary contains. Errors not
// matching pred pass through uncontained. Panics are always contained.
func WithCatch(pred func(error) bool) BoundaryOption {
	return func(b *Boundary) {
		b.catch = pred
	}
}

// WithBoundaryContext attaches call-site context to every record the
// boundary reports.
func WithBoundaryContext(ectx *ErrorContext) BoundaryOption {
	return func(b *Boundary) {
		b.ectx = ectx
	}
}

// Boundary contains failures within a scope. Matching errors and panics are
// reported to the tracker and accumulated on the boundary instead of
// propagating to the caller. Safe for concurrent use.
type Boundary struct {
	name    string
	tracker *Tracker
	catch   func(error) bool
	ectx    *ErrorContext

	mu     sync.Mutex
	caught []ErrorRecord
	first  error
}

// NewBoundary creates a boundary reporting to tracker. By default every
// error is contained; narrow the scope with WithCatch.
func NewBoundary(name string, tracker *Tracker, opts ...BoundaryOption) *Boundary {
	b := &Boundary{
		name:    name,
		tracker: tracker,
	}
	for _, opt := range opts {
		opt(b)
	}
	return b
}

// Run executes fn inside the boundary and reports whether it completed
// cleanly. Contained failures return false. An uncontained error also
// returns false; use RunErr to receive it.
func (b *Boundary) Run(ctx context.Context, fn func(context.Context) error) bool {
	contained, err := b.execute(ctx, fn)
	return err == nil && !contained
}

// RunErr executes fn inside the boundary. Success and contained failures
// yield nil; an error not matching the catch predicate is returned
// unchanged.
func (b *Boundary) RunErr(ctx context.Context, fn func(context.Context) error) error {
	_, err := b.execute(ctx, fn)
	return err
}

// execute runs fn, containing panics and matching errors.
func (b *Boundary) execute(ctx context.Context, fn func(context.Context) error) (contained bool, err error) {
	if ctx == nil {
		ctx = context.Background()
	}

	defer func() {
		if r := recover(); r != nil {
			b.containPanic(ctx, r, string(debug.Stack()))
			contained, err = true, nil
		}
	}()

	ferr := fn(ctx)
	if ferr == nil {
		return false, nil
	}
	if b.catch != nil && !b.catch(ferr) {
		return false, ferr
	}
	b.containError(ctx, ferr)
	return true, nil
}

func (b *Boundary) containError(ctx context.Context, cause error) {
	var rec *ErrorRecord
	if b.tracker != nil {
		rec = b.tracker.TrackException(ctx, cause, b.contextCopy())
	}
	b.remember(cause, rec)
}

func (b *Boundary) containPanic(ctx context.Context, r any, stack string) {
	var rec *ErrorRecord
	if b.tracker != nil {
		rec = b.tracker.TrackError(ctx, formatRecovered(r), "panic", stack, b.contextCopy())
	}
	b.remember(recoveredError(r), rec)
}

func (b *Boundary) remember(cause error, rec *ErrorRecord) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.first == nil {
		b.first = cause
	}
	if rec != nil {
		b.caught = append(b.caught, *rec)
	}
}

// contextCopy returns a fresh context value per record so contained failures
// do not share the caller's mutable original. The boundary name fills
// ModuleName unless the configured context set one.
func (b *Boundary) contextCopy() *ErrorContext {
	if b.ectx == nil {
		return &ErrorContext{ModuleName: b.name}
	}
	dup := *b.ectx
	if dup.ModuleName == "" {
		dup.ModuleName = b.name
	}
	return &dup
}

// Errors returns the records of contained failures in containment order.
func (b *Boundary) Errors() []ErrorRecord {
	b.mu.Lock()
	defer b.mu.Unlock()

	out := make([]ErrorRecord, len(b.caught))
	copy(out, b.caught)
	return out
}

// Failed reports whether the boundary contained at least one failure.
func (b *Boundary) Failed() bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.first != nil
}

// Err returns the first contained failure, or nil.
func (b *Boundary) Err() error {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.first
}

// Reset clears accumulated failures so the boundary can be reused.
func (b *Boundary) Reset() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.caught = nil
	b.first = nil
}

// RunFallback executes fn inside the boundary and returns its value, or
// fallback when fn fails. Contained failures are reported to the tracker; an
// uncontained error also yields the fallback but is not reported.
func RunFallback[T any](ctx context.Context, b *Boundary, fallback T, fn func(context.Context) (T, error)) T {
	var (
		value T
		ok    bool
	)

	contained, err := b.execute(ctx, func(ctx context.Context) error {
		v, ferr := fn(ctx)
		if ferr != nil {
			return ferr
		}
		value, ok = v, true
		return nil
	})

	if contained || err != nil || !ok {
		return fallback
	}
	return value
}
