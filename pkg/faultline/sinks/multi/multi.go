// Package multi provides a sink that fans out to multiple sinks.
// All sinks receive all records; errors are aggregated.
package multi

import (
	"context"
	"errors"

	"github.com/solsnap/faultline/pkg/faultline"
)

// multiSink fans out to multiple sinks.
type multiSink struct {
	sinks []faultline.Sink
}

// NewMultiSink creates a sink that writes to multiple sinks.
// All sinks receive all records. Errors are aggregated via errors.Join.
func NewMultiSink(sinks ...faultline.Sink) faultline.Sink {
	return &multiSink{
		sinks: sinks,
	}
}

// Write sends the record to all sinks, collecting any errors.
// All sinks are called even if some return errors.
func (s *multiSink) Write(ctx context.Context, rec faultline.ErrorRecord) error {
	var errs []error
	for _, sink := range s.sinks {
		if err := sink.Write(ctx, rec); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// Flush calls Flush on all sinks, collecting any errors.
func (s *multiSink) Flush(ctx context.Context) error {
	var errs []error
	for _, sink := range s.sinks {
		if err := sink.Flush(ctx); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// Close calls Close on all sinks, collecting any errors.
func (s *multiSink) Close() error {
	var errs []error
	for _, sink := range s.sinks {
		if err := sink.Close(); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
