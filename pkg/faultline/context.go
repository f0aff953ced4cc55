// context.go provides utilities for propagating identity fields through
// context.Context and for capturing call-site provenance.

package faultline

import (
	"context"
	"runtime"
	"strings"
)

// Context key types (unexported to avoid collisions)
type userIDKey struct{}
type sessionIDKey struct{}
type requestIDKey struct{}

// WithUserID returns a context with the user ID attached.
// The tracker merges it into ErrorContext when the caller left UserID empty.
func WithUserID(ctx context.Context, userID string) context.Context {
	return context.WithValue(ctx, userIDKey{}, userID)
}

// UserIDFromContext extracts the user ID from context.
// Returns empty string and false if not set or empty.
func UserIDFromContext(ctx context.Context) (string, bool) {
	v := ctx.Value(userIDKey{})
	id, ok := v.(string)
	return id, ok && id != ""
}

// WithSessionID returns a context with the session ID attached.
func WithSessionID(ctx context.Context, sessionID string) context.Context {
	return context.WithValue(ctx, sessionIDKey{}, sessionID)
}

// SessionIDFromContext extracts the session ID from context.
// Returns empty string and false if not set or empty.
func SessionIDFromContext(ctx context.Context) (string, bool) {
	v := ctx.Value(sessionIDKey{})
	id, ok := v.(string)
	return id, ok && id != ""
}

// WithRequestID returns a context with the request ID attached.
func WithRequestID(ctx context.Context, requestID string) context.Context {
	return context.WithValue(ctx, requestIDKey{}, requestID)
}

// RequestIDFromContext extracts the request ID from context.
// Returns empty string and false if not set or empty.
func RequestIDFromContext(ctx context.Context) (string, bool) {
	v := ctx.Value(requestIDKey{})
	id, ok := v.(string)
	return id, ok && id != ""
}

// CaptureContext builds an ErrorContext from the caller's stack frame.
// skip is the number of additional frames to skip: 0 captures the
// immediate caller of CaptureContext.
func CaptureContext(skip int) *ErrorContext {
	ectx := &ErrorContext{}

	pc, file, line, ok := runtime.Caller(skip + 1)
	if !ok {
		return ectx
	}

	ectx.FilePath = file
	ectx.LineNumber = line

	if fn := runtime.FuncForPC(pc); fn != nil {
		full := fn.Name()
		// Full names look like "github.com/org/pkg.Func" or "pkg.(*T).Method".
		if idx := strings.LastIndex(full, "."); idx > 0 {
			ectx.ModuleName = full[:idx]
			ectx.FunctionName = full[idx+1:]
		} else {
			ectx.FunctionName = full
		}
	}

	return ectx
}

// mergeContextIDs fills empty identity fields from values attached to ctx.
// Explicitly provided fields always win.
func mergeContextIDs(ctx context.Context, ectx *ErrorContext) {
	if ectx.UserID == "" {
		if id, ok := UserIDFromContext(ctx); ok {
			ectx.UserID = id
		}
	}
	if ectx.SessionID == "" {
		if id, ok := SessionIDFromContext(ctx); ok {
			ectx.SessionID = id
		}
	}
	if ectx.RequestID == "" {
		if id, ok := RequestIDFromContext(ctx); ok {
			ectx.RequestID = id
		}
	}
}
