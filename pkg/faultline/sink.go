// sink.go defines the Sink interface for error record destinations.

package faultline

import "context"

// Sink is the destination for error records.
// The tracker writes the updated aggregate snapshot after each processed
// occurrence. Implementations must be safe for concurrent use.
type Sink interface {
	// Write persists an error record. Called after sanitization and
	// aggregation. Implementations should be idempotent when possible:
	// records for the same fingerprint repeat with increasing counts.
	Write(ctx context.Context, record ErrorRecord) error

	// Flush ensures any buffered records are persisted.
	// For synchronous sinks, this may be a no-op.
	Flush(ctx context.Context) error

	// Close releases resources held by the sink.
	// After Close is called, Write and Flush should return errors.
	Close() error
}

// noopSinkInternal is an internal noop sink to avoid import cycles.
type noopSinkInternal struct{}

func (s *noopSinkInternal) Write(ctx context.Context, record ErrorRecord) error {
	return nil
}

func (s *noopSinkInternal) Flush(ctx context.Context) error {
	return nil
}

func (s *noopSinkInternal) Close() error {
	return nil
}
