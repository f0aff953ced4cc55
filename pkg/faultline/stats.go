// stats.go computes aggregate statistics and daily trends over tracked
// errors.

package faultline

import (
	"sort"
	"time"
)

// Stats summarizes the tracked error population.
type Stats struct {
	// TotalErrors is the number of occurrences tracked since start or the
	// last ClearErrors.
	TotalErrors int64 `json:"total_errors"`

	// ErrorRate is occurrences per second over the trailing rate window.
	ErrorRate float64 `json:"error_rate"`

	// ErrorsBySeverity sums occurrence counts per severity.
	ErrorsBySeverity map[Severity]int `json:"errors_by_severity"`

	// ErrorsByCategory sums occurrence counts per category.
	ErrorsByCategory map[Category]int `json:"errors_by_category"`

	// TopErrors lists the most frequent error groups, highest count first.
	TopErrors []TopError `json:"top_errors"`

	// ResolutionRate is the fraction of resident records marked resolved.
	ResolutionRate float64 `json:"resolution_rate"`

	// MeanTimeToResolution averages ResolvedAt-FirstSeen over resolved records.
	MeanTimeToResolution time.Duration `json:"mean_time_to_resolution"`
}

// TopError is a compact view of a frequent error group.
type TopError struct {
	Fingerprint string    `json:"fingerprint"`
	Message     string    `json:"message"`
	Count       int       `json:"count"`
	Severity    Severity  `json:"severity"`
	Category    Category  `json:"category"`
	LastSeen    time.Time `json:"last_seen"`
}

// TrendPoint summarizes one day of error activity.
type TrendPoint struct {
	// Date is the start of the 24h bucket, formatted YYYY-MM-DD.
	Date string `json:"date"`

	// TotalErrors is the number of occurrences in the bucket.
	TotalErrors int `json:"total_errors"`

	// CriticalErrors is the number of critical occurrences in the bucket.
	CriticalErrors int `json:"critical_errors"`

	// ErrorRate is occurrences per second over the bucket.
	ErrorRate float64 `json:"error_rate"`

	// TopCategory is the most frequent category in the bucket, "none" when empty.
	TopCategory string `json:"top_category"`
}

// stamp is a lightweight occurrence marker kept in the tracker history.
// It feeds rate windows, spike detection, and daily trends without
// retaining a full record per occurrence.
type stamp struct {
	at       time.Time
	severity Severity
	category Category
}

// countSince returns the number of stamps at or after cutoff.
func countSince(stamps []stamp, cutoff time.Time) int {
	n := 0
	for _, s := range stamps {
		if !s.at.Before(cutoff) {
			n++
		}
	}
	return n
}

// countBetween returns the number of stamps in [from, to).
func countBetween(stamps []stamp, from, to time.Time) int {
	n := 0
	for _, s := range stamps {
		if !s.at.Before(from) && s.at.Before(to) {
			n++
		}
	}
	return n
}

// countCriticalSince returns critical and fatal stamps at or after cutoff.
func countCriticalSince(stamps []stamp, cutoff time.Time) int {
	n := 0
	for _, s := range stamps {
		if s.at.Before(cutoff) {
			continue
		}
		if s.severity == SeverityCritical || s.severity == SeverityFatal {
			n++
		}
	}
	return n
}

// computeStats builds a Stats from the resident records and history.
func computeStats(records []ErrorRecord, top []ErrorRecord, stamps []stamp, total int64, rateWindow time.Duration, now time.Time) Stats {
	stats := Stats{
		TotalErrors:      total,
		ErrorsBySeverity: make(map[Severity]int),
		ErrorsByCategory: make(map[Category]int),
	}

	if rateWindow > 0 {
		recent := countSince(stamps, now.Add(-rateWindow))
		stats.ErrorRate = float64(recent) / rateWindow.Seconds()
	}

	resolved := 0
	var resolutionSum time.Duration
	resolutionSamples := 0
	for _, rec := range records {
		stats.ErrorsBySeverity[rec.Severity] += rec.Count
		stats.ErrorsByCategory[rec.Category] += rec.Count
		if rec.Resolved {
			resolved++
			if rec.ResolvedAt != nil {
				resolutionSum += rec.ResolvedAt.Sub(rec.FirstSeen)
				resolutionSamples++
			}
		}
	}

	if len(records) > 0 {
		stats.ResolutionRate = float64(resolved) / float64(len(records))
	}
	if resolutionSamples > 0 {
		stats.MeanTimeToResolution = resolutionSum / time.Duration(resolutionSamples)
	}

	stats.TopErrors = make([]TopError, 0, len(top))
	for _, rec := range top {
		msg := rec.Message
		if len(msg) > 100 {
			msg = msg[:100]
		}
		stats.TopErrors = append(stats.TopErrors, TopError{
			Fingerprint: rec.Fingerprint,
			Message:     msg,
			Count:       rec.Count,
			Severity:    rec.Severity,
			Category:    rec.Category,
			LastSeen:    rec.LastSeen,
		})
	}

	return stats
}

// computeTrends buckets stamps into rolling 24h windows ending at now,
// oldest bucket first.
func computeTrends(stamps []stamp, days int, now time.Time) []TrendPoint {
	if days <= 0 {
		days = 7
	}

	trends := make([]TrendPoint, 0, days)
	for i := days - 1; i >= 0; i-- {
		start := now.AddDate(0, 0, -(i + 1))
		end := now.AddDate(0, 0, -i)

		var total, critical int
		categories := make(map[Category]int)
		for _, s := range stamps {
			if s.at.Before(start) || !s.at.Before(end) {
				continue
			}
			total++
			if s.severity == SeverityCritical {
				critical++
			}
			categories[s.category]++
		}

		trends = append(trends, TrendPoint{
			Date:           start.Format("2006-01-02"),
			TotalErrors:    total,
			CriticalErrors: critical,
			ErrorRate:      float64(total) / end.Sub(start).Seconds(),
			TopCategory:    topCategory(categories),
		})
	}

	return trends
}

// topCategory returns the most frequent category, breaking ties by name so
// the result is deterministic.
func topCategory(counts map[Category]int) string {
	if len(counts) == 0 {
		return "none"
	}

	names := make([]Category, 0, len(counts))
	for c := range counts {
		names = append(names, c)
	}
	sort.Slice(names, func(i, j int) bool { return names[i] < names[j] })

	best := names[0]
	for _, c := range names[1:] {
		if counts[c] > counts[best] {
			best = c
		}
	}
	return string(best)
}
