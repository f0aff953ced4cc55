// alert.go evaluates alert thresholds over the occurrence history.

package faultline

import (
	"fmt"
	"time"
)

// Alert condition names passed to the alert callback.
const (
	AlertErrorRate      = "error_rate"
	AlertCriticalErrors = "critical_errors"
	AlertErrorSpike     = "error_spike"
)

// AlertThresholds configures when the tracker raises alerts.
// A zero threshold disables its condition.
type AlertThresholds struct {
	// ErrorRate fires when occurrences per second over the rate window
	// reach this value.
	ErrorRate float64 `yaml:"errorRate"`

	// CriticalErrors fires when this many critical or fatal occurrences
	// land within the rate window.
	CriticalErrors int `yaml:"criticalErrors"`

	// ErrorSpike fires when the occurrence count of the current
	// aggregation window reaches this multiple of the previous window.
	ErrorSpike float64 `yaml:"errorSpike"`
}

// DefaultAlertThresholds returns the standard alerting policy.
func DefaultAlertThresholds() AlertThresholds {
	return AlertThresholds{
		ErrorRate:      0.1,
		CriticalErrors: 5,
		ErrorSpike:     2.0,
	}
}

// alertMonitor holds the edge-trigger state for each alert condition.
// A condition fires once when its metric crosses the threshold and re-arms
// only after the metric falls back below it, so a sustained breach produces
// a single alert. Callers must serialize access.
type alertMonitor struct {
	thresholds  AlertThresholds
	rateWindow  time.Duration
	spikeWindow time.Duration
	active      map[string]bool
}

func newAlertMonitor(thresholds AlertThresholds, rateWindow, spikeWindow time.Duration) *alertMonitor {
	return &alertMonitor{
		thresholds:  thresholds,
		rateWindow:  rateWindow,
		spikeWindow: spikeWindow,
		active:      make(map[string]bool),
	}
}

// evaluate checks every condition against the current history and returns
// the alerts that crossed their thresholds on this occurrence.
func (m *alertMonitor) evaluate(now time.Time, stamps []stamp) []Alert {
	var alerts []Alert

	if m.thresholds.ErrorRate > 0 && m.rateWindow > 0 {
		count := countSince(stamps, now.Add(-m.rateWindow))
		rate := float64(count) / m.rateWindow.Seconds()
		if alert := m.edge(AlertErrorRate, rate >= m.thresholds.ErrorRate); alert {
			alerts = append(alerts, Alert{
				Name:      AlertErrorRate,
				Severity:  SeverityWarning,
				Message:   fmt.Sprintf("error rate %.3f/s reached threshold %.3f/s", rate, m.thresholds.ErrorRate),
				Timestamp: now,
				Details: map[string]any{
					"rate":      rate,
					"threshold": m.thresholds.ErrorRate,
					"window":    m.rateWindow.String(),
				},
			})
		}
	}

	if m.thresholds.CriticalErrors > 0 && m.rateWindow > 0 {
		count := countCriticalSince(stamps, now.Add(-m.rateWindow))
		if alert := m.edge(AlertCriticalErrors, count >= m.thresholds.CriticalErrors); alert {
			alerts = append(alerts, Alert{
				Name:      AlertCriticalErrors,
				Severity:  SeverityCritical,
				Message:   fmt.Sprintf("%d critical errors within %s", count, m.rateWindow),
				Timestamp: now,
				Details: map[string]any{
					"count":     count,
					"threshold": m.thresholds.CriticalErrors,
					"window":    m.rateWindow.String(),
				},
			})
		}
	}

	if m.thresholds.ErrorSpike > 0 && m.spikeWindow > 0 {
		current := countSince(stamps, now.Add(-m.spikeWindow))
		previous := countBetween(stamps, now.Add(-2*m.spikeWindow), now.Add(-m.spikeWindow))

		// A spike needs a baseline; an empty previous window is startup,
		// not a spike.
		breached := false
		var ratio float64
		if previous > 0 {
			ratio = float64(current) / float64(previous)
			breached = ratio >= m.thresholds.ErrorSpike
		}
		if alert := m.edge(AlertErrorSpike, breached); alert {
			alerts = append(alerts, Alert{
				Name:      AlertErrorSpike,
				Severity:  SeverityWarning,
				Message:   fmt.Sprintf("error volume spiked %.1fx over the previous %s", ratio, m.spikeWindow),
				Timestamp: now,
				Details: map[string]any{
					"current":   current,
					"previous":  previous,
					"ratio":     ratio,
					"threshold": m.thresholds.ErrorSpike,
					"window":    m.spikeWindow.String(),
				},
			})
		}
	}

	return alerts
}

// edge updates a condition's trigger state and reports whether it just
// crossed from below to above the threshold.
func (m *alertMonitor) edge(name string, breached bool) bool {
	if !breached {
		m.active[name] = false
		return false
	}
	if m.active[name] {
		return false
	}
	m.active[name] = true
	return true
}
