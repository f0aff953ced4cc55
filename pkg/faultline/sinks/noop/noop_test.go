package noop

import (
	"context"
	"testing"
	"time"

	"github.com/solsnap/faultline/pkg/faultline"
)

func TestNoopSink_ImplementsSinkInterface(t *testing.T) {
	var _ faultline.Sink = NewNoopSink()
}

func TestNoopSink_Write_ReturnsNil(t *testing.T) {
	sink := NewNoopSink()

	rec := faultline.ErrorRecord{
		ID:        "id-123",
		Severity:  faultline.SeverityError,
		ErrorType: "test",
		Message:   "test error",
		LastSeen:  time.Now(),
	}

	if err := sink.Write(context.Background(), rec); err != nil {
		t.Errorf("Write returned error: %v", err)
	}
}

func TestNoopSink_FlushAndClose_ReturnNil(t *testing.T) {
	sink := NewNoopSink()

	if err := sink.Flush(context.Background()); err != nil {
		t.Errorf("Flush returned error: %v", err)
	}
	if err := sink.Close(); err != nil {
		t.Errorf("Close returned error: %v", err)
	}
}

func TestNoopSink_MultipleWrites(t *testing.T) {
	sink := NewNoopSink()

	for i := 0; i < 100; i++ {
		rec := faultline.ErrorRecord{ID: "id", Count: i}
		if err := sink.Write(context.Background(), rec); err != nil {
			t.Fatalf("Write %d returned error: %v", i, err)
		}
	}
}
