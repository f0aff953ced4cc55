// aggregator.go maintains the bounded cache of error records keyed by
// fingerprint.

package faultline

import (
	"sort"
	"sync"
	"time"
)

// Aggregator groups error occurrences into records by fingerprint.
// It holds at most maxErrors records; inserting a new fingerprint at
// capacity evicts the record with the oldest LastSeen. All methods are
// safe for concurrent use.
type Aggregator struct {
	mu        sync.Mutex
	maxErrors int
	records   map[string]*ErrorRecord // keyed by fingerprint
	byID      map[string]string       // record ID -> fingerprint
	now       func() time.Time
}

// NewAggregator creates an aggregator holding at most maxErrors records.
// Non-positive values fall back to the default capacity.
func NewAggregator(maxErrors int) *Aggregator {
	if maxErrors <= 0 {
		maxErrors = 10000
	}
	return &Aggregator{
		maxErrors: maxErrors,
		records:   make(map[string]*ErrorRecord),
		byID:      make(map[string]string),
		now:       time.Now,
	}
}

// Record adds an occurrence to the cache and returns the updated record
// snapshot plus whether the fingerprint was new.
//
// For a known fingerprint the resident record keeps its ID, message, stack
// trace, and FirstSeen; Count is incremented, LastSeen advances, the context
// is replaced with the newest sample, and a resolved record is reopened.
func (a *Aggregator) Record(rec ErrorRecord) (ErrorRecord, bool) {
	a.mu.Lock()
	defer a.mu.Unlock()

	if existing, ok := a.records[rec.Fingerprint]; ok {
		existing.Count++
		existing.LastSeen = rec.LastSeen
		existing.Context = rec.Context
		if existing.Resolved {
			existing.Resolved = false
			existing.ResolutionNote = ""
			existing.ResolvedAt = nil
		}
		return *existing, false
	}

	if len(a.records) >= a.maxErrors {
		a.evictOldest()
	}

	stored := rec
	a.records[rec.Fingerprint] = &stored
	a.byID[rec.ID] = rec.Fingerprint
	return stored, true
}

// evictOldest removes the single record with the oldest LastSeen.
// Caller must hold the mutex.
func (a *Aggregator) evictOldest() {
	var oldestFP string
	var oldest time.Time
	for fp, rec := range a.records {
		if oldestFP == "" || rec.LastSeen.Before(oldest) {
			oldestFP = fp
			oldest = rec.LastSeen
		}
	}
	if oldestFP == "" {
		return
	}
	delete(a.byID, a.records[oldestFP].ID)
	delete(a.records, oldestFP)
}

// Get returns the record for a fingerprint.
func (a *Aggregator) Get(fingerprint string) (ErrorRecord, bool) {
	a.mu.Lock()
	defer a.mu.Unlock()

	rec, ok := a.records[fingerprint]
	if !ok {
		return ErrorRecord{}, false
	}
	return *rec, true
}

// ByID returns the record with the given ID.
func (a *Aggregator) ByID(id string) (ErrorRecord, bool) {
	a.mu.Lock()
	defer a.mu.Unlock()

	fp, ok := a.byID[id]
	if !ok {
		return ErrorRecord{}, false
	}
	rec, ok := a.records[fp]
	if !ok {
		return ErrorRecord{}, false
	}
	return *rec, true
}

// Resolve marks the record with the given ID as resolved.
// Returns ErrNotFound when no resident record has that ID.
func (a *Aggregator) Resolve(id, note string) error {
	a.mu.Lock()
	defer a.mu.Unlock()

	fp, ok := a.byID[id]
	if !ok {
		return ErrNotFound
	}
	rec, ok := a.records[fp]
	if !ok {
		return ErrNotFound
	}

	rec.Resolved = true
	rec.ResolutionNote = note
	at := a.now()
	rec.ResolvedAt = &at
	return nil
}

// TopErrors returns up to n records ordered by descending count.
// Ties break on most recent LastSeen so the listing is stable.
func (a *Aggregator) TopErrors(n int) []ErrorRecord {
	a.mu.Lock()
	defer a.mu.Unlock()

	out := make([]ErrorRecord, 0, len(a.records))
	for _, rec := range a.records {
		out = append(out, *rec)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Count != out[j].Count {
			return out[i].Count > out[j].Count
		}
		return out[i].LastSeen.After(out[j].LastSeen)
	})

	if n > 0 && len(out) > n {
		out = out[:n]
	}
	return out
}

// Snapshot returns copies of all resident records in no particular order.
func (a *Aggregator) Snapshot() []ErrorRecord {
	a.mu.Lock()
	defer a.mu.Unlock()

	out := make([]ErrorRecord, 0, len(a.records))
	for _, rec := range a.records {
		out = append(out, *rec)
	}
	return out
}

// Len returns the number of resident records.
func (a *Aggregator) Len() int {
	a.mu.Lock()
	defer a.mu.Unlock()
	return len(a.records)
}

// Clear removes all resident records.
func (a *Aggregator) Clear() {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.records = make(map[string]*ErrorRecord)
	a.byID = make(map[string]string)
}
