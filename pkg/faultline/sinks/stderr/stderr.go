// Package stderr provides a sink that logs error records to stderr in
// human-readable format. Useful for development and debugging.
package stderr

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/solsnap/faultline/pkg/faultline"
)

// StderrSinkOption configures the stderr sink.
type StderrSinkOption func(*stderrSinkConfig)

type stderrSinkConfig struct {
	verbose bool
}

// WithVerbose enables full record details including stack traces.
func WithVerbose() StderrSinkOption {
	return func(c *stderrSinkConfig) {
		c.verbose = true
	}
}

// stderrSink writes records to stderr in human-readable format.
type stderrSink struct {
	verbose bool
}

// NewStderrSink creates a sink that writes to stderr.
func NewStderrSink(opts ...StderrSinkOption) faultline.Sink {
	cfg := &stderrSinkConfig{}
	for _, opt := range opts {
		opt(cfg)
	}
	return &stderrSink{
		verbose: cfg.verbose,
	}
}

// Write formats and outputs the error record to stderr.
func (s *stderrSink) Write(ctx context.Context, rec faultline.ErrorRecord) error {
	severity := strings.ToUpper(string(rec.Severity))
	timestamp := rec.LastSeen.Format("2006-01-02T15:04:05Z07:00")

	// Format: [FAULTLINE] <timestamp> <SEVERITY> <category> <error_type> in <function> (xN)
	var parts []string
	parts = append(parts, fmt.Sprintf("[FAULTLINE] %s %s %s %s", timestamp, severity, rec.Category, rec.ErrorType))

	if rec.Context.FunctionName != "" {
		parts = append(parts, fmt.Sprintf("in %s", rec.Context.FunctionName))
	}
	if rec.Count > 1 {
		parts = append(parts, fmt.Sprintf("(x%d)", rec.Count))
	}
	if rec.Resolved {
		parts = append(parts, "[resolved]")
	}

	fmt.Fprintln(os.Stderr, strings.Join(parts, " "))

	if rec.Message != "" {
		fmt.Fprintf(os.Stderr, "        Message: %s\n", rec.Message)
	}
	if rec.Fingerprint != "" {
		fmt.Fprintf(os.Stderr, "        Fingerprint: %s\n", rec.Fingerprint)
	}
	if rec.Context.ModuleName != "" {
		fmt.Fprintf(os.Stderr, "        Module: %s\n", rec.Context.ModuleName)
	}
	if rec.Context.RequestID != "" {
		fmt.Fprintf(os.Stderr, "        Request: %s\n", rec.Context.RequestID)
	}

	if s.verbose && rec.StackTrace != "" {
		fmt.Fprintf(os.Stderr, "        Stack trace:\n")
		for _, line := range strings.Split(rec.StackTrace, "\n") {
			fmt.Fprintf(os.Stderr, "          %s\n", line)
		}
	}

	return nil
}

// Flush is a no-op for stderr sink.
func (s *stderrSink) Flush(ctx context.Context) error {
	return nil
}

// Close is a no-op for stderr sink.
func (s *stderrSink) Close() error {
	return nil
}
