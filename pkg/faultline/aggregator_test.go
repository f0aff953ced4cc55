package faultline

import (
	"errors"
	"fmt"
	"testing"
	"time"
)

func testRecord(id, fp string, seen time.Time) ErrorRecord {
	return ErrorRecord{
		ID:          id,
		Fingerprint: fp,
		Severity:    SeverityError,
		Category:    CategoryNetwork,
		Message:     "connection refused",
		ErrorType:   "ConnError",
		Count:       1,
		FirstSeen:   seen,
		LastSeen:    seen,
	}
}

func TestAggregator_Record_IncrementsCount(t *testing.T) {
	a := NewAggregator(10)
	t0 := time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC)

	first, isNew := a.Record(testRecord("id-1", "fp-a", t0))
	if !isNew {
		t.Error("first occurrence should be new")
	}
	if first.Count != 1 {
		t.Errorf("Count = %d, want 1", first.Count)
	}

	second, isNew := a.Record(testRecord("id-2", "fp-a", t0.Add(time.Minute)))
	if isNew {
		t.Error("repeat occurrence should not be new")
	}
	if second.Count != 2 {
		t.Errorf("Count = %d, want 2", second.Count)
	}
	if second.ID != "id-1" {
		t.Errorf("ID = %q, the resident record should keep its original ID", second.ID)
	}
	if !second.FirstSeen.Equal(t0) {
		t.Errorf("FirstSeen = %v, want %v", second.FirstSeen, t0)
	}
	if !second.LastSeen.Equal(t0.Add(time.Minute)) {
		t.Errorf("LastSeen = %v, want %v", second.LastSeen, t0.Add(time.Minute))
	}
	if a.Len() != 1 {
		t.Errorf("Len = %d, want 1", a.Len())
	}
}

func TestAggregator_EvictsOldestAtCapacity(t *testing.T) {
	a := NewAggregator(2)
	t0 := time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC)

	a.Record(testRecord("id-1", "fp-a", t0))
	a.Record(testRecord("id-2", "fp-b", t0.Add(time.Minute)))
	a.Record(testRecord("id-3", "fp-c", t0.Add(2*time.Minute)))

	if a.Len() != 2 {
		t.Fatalf("Len = %d, want 2", a.Len())
	}
	if _, ok := a.Get("fp-a"); ok {
		t.Error("fp-a should have been evicted as the oldest record")
	}
	if _, ok := a.Get("fp-b"); !ok {
		t.Error("fp-b should still be resident")
	}
	if _, ok := a.Get("fp-c"); !ok {
		t.Error("fp-c should still be resident")
	}
	if _, ok := a.ByID("id-1"); ok {
		t.Error("the evicted record should not be reachable by ID")
	}
}

func TestAggregator_EvictionPrefersStaleOverNew(t *testing.T) {
	a := NewAggregator(2)
	t0 := time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC)

	a.Record(testRecord("id-1", "fp-a", t0))
	a.Record(testRecord("id-2", "fp-b", t0.Add(time.Minute)))

	// Refresh fp-a so fp-b becomes the oldest.
	a.Record(testRecord("id-x", "fp-a", t0.Add(2*time.Minute)))
	a.Record(testRecord("id-3", "fp-c", t0.Add(3*time.Minute)))

	if _, ok := a.Get("fp-a"); !ok {
		t.Error("recently seen fp-a should survive eviction")
	}
	if _, ok := a.Get("fp-b"); ok {
		t.Error("stale fp-b should have been evicted")
	}
}

func TestAggregator_Resolve(t *testing.T) {
	a := NewAggregator(10)
	t0 := time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC)
	a.now = func() time.Time { return t0.Add(time.Hour) }

	a.Record(testRecord("id-1", "fp-a", t0))

	if err := a.Resolve("id-1", "patched upstream"); err != nil {
		t.Fatalf("Resolve returned error: %v", err)
	}

	rec, ok := a.ByID("id-1")
	if !ok {
		t.Fatal("resolved record not found by ID")
	}
	if !rec.Resolved {
		t.Error("record should be resolved")
	}
	if rec.ResolutionNote != "patched upstream" {
		t.Errorf("ResolutionNote = %q", rec.ResolutionNote)
	}
	if rec.ResolvedAt == nil || !rec.ResolvedAt.Equal(t0.Add(time.Hour)) {
		t.Errorf("ResolvedAt = %v, want %v", rec.ResolvedAt, t0.Add(time.Hour))
	}

	if err := a.Resolve("missing", "note"); !errors.Is(err, ErrNotFound) {
		t.Errorf("Resolve(missing) = %v, want ErrNotFound", err)
	}
}

func TestAggregator_Record_ReopensResolved(t *testing.T) {
	a := NewAggregator(10)
	t0 := time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC)

	a.Record(testRecord("id-1", "fp-a", t0))
	if err := a.Resolve("id-1", "done"); err != nil {
		t.Fatalf("Resolve returned error: %v", err)
	}

	rec, _ := a.Record(testRecord("id-2", "fp-a", t0.Add(time.Minute)))
	if rec.Resolved {
		t.Error("a new occurrence should reopen the record")
	}
	if rec.ResolutionNote != "" || rec.ResolvedAt != nil {
		t.Error("reopening should clear resolution state")
	}
}

func TestAggregator_TopErrors_Ordering(t *testing.T) {
	a := NewAggregator(10)
	t0 := time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC)

	for i := 0; i < 3; i++ {
		a.Record(testRecord(fmt.Sprintf("a-%d", i), "fp-a", t0.Add(time.Duration(i)*time.Second)))
	}
	a.Record(testRecord("b-0", "fp-b", t0))

	top := a.TopErrors(10)
	if len(top) != 2 {
		t.Fatalf("TopErrors returned %d records, want 2", len(top))
	}
	if top[0].Fingerprint != "fp-a" || top[0].Count != 3 {
		t.Errorf("top[0] = %q count %d, want fp-a count 3", top[0].Fingerprint, top[0].Count)
	}

	limited := a.TopErrors(1)
	if len(limited) != 1 {
		t.Errorf("TopErrors(1) returned %d records, want 1", len(limited))
	}
}

func TestAggregator_SnapshotIsACopy(t *testing.T) {
	a := NewAggregator(10)
	t0 := time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC)

	a.Record(testRecord("id-1", "fp-a", t0))

	snap := a.Snapshot()
	snap[0].Message = "mutated"

	rec, _ := a.Get("fp-a")
	if rec.Message != "connection refused" {
		t.Error("mutating a snapshot must not affect the resident record")
	}
}

func TestAggregator_Clear(t *testing.T) {
	a := NewAggregator(10)
	t0 := time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC)

	a.Record(testRecord("id-1", "fp-a", t0))
	a.Clear()

	if a.Len() != 0 {
		t.Errorf("Len after Clear = %d, want 0", a.Len())
	}
	if _, ok := a.ByID("id-1"); ok {
		t.Error("cleared records should not be reachable by ID")
	}
}
