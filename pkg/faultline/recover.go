// recover.go provides standalone panic recovery helpers. Use these in HTTP
// handlers, goroutines, or other code outside a Boundary.

package faultline

import (
	"context"
	"fmt"
	"runtime/debug"
)

// Recover captures a panic, records it to the tracker, and returns the
// recovered value. Unlike a Boundary, Recover does not accumulate; unlike a
// bare recover, it never loses the occurrence.
//
// It must be deferred directly; recover only takes effect when called by
// the deferred function itself, so wrapping Recover in another closure
// lets the panic escape:
//
//	func handler(ctx context.Context) {
//	    defer faultline.Recover(ctx, tracker)
//	    // code that might panic
//	}
//
// To convert a panic into an error value instead, run the code inside a
// Boundary and inspect Err.
func Recover(ctx context.Context, tracker *Tracker) any {
	r := recover()
	if r == nil {
		return nil
	}

	if tracker != nil {
		tracker.TrackError(ctx, formatRecovered(r), "panic", string(debug.Stack()), nil)
	}
	return r
}

// Go runs fn on a new goroutine, recording any panic to the tracker instead
// of crashing the process.
func Go(ctx context.Context, tracker *Tracker, fn func(context.Context)) {
	go func() {
		defer Recover(ctx, tracker)
		fn(ctx)
	}()
}

// formatRecovered formats a recovered panic value as a string.
func formatRecovered(recovered any) string {
	if recovered == nil {
		return "<nil>"
	}
	if err, ok := recovered.(error); ok {
		return err.Error()
	}
	return fmt.Sprintf("%v", recovered)
}

// recoveredError converts a recovered panic value to an error.
func recoveredError(recovered any) error {
	if err, ok := recovered.(error); ok {
		return err
	}
	return fmt.Errorf("panic: %v", recovered)
}
