// metrics.go exposes Prometheus collectors for tracking and resilience
// activity.

package faultline

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	errorsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "faultline",
			Name:      "errors_total",
			Help:      "Total error occurrences processed, partitioned by category and severity.",
		},
		[]string{"category", "severity"},
	)

	droppedTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: "faultline",
			Name:      "dropped_occurrences_total",
			Help:      "Occurrences discarded by the bounded ingestion queue.",
		},
	)

	queueDepth = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Namespace: "faultline",
			Name:      "queue_depth",
			Help:      "Occurrences waiting in the ingestion queue.",
		},
	)

	alertsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "faultline",
			Name:      "alerts_total",
			Help:      "Alerts raised, partitioned by condition name.",
		},
		[]string{"alert"},
	)

	breakerState = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Namespace: "faultline",
			Name:      "breaker_state",
			Help:      "Circuit breaker state (0 closed, 1 open, 2 half-open).",
		},
		[]string{"breaker"},
	)

	breakerTransitionsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "faultline",
			Name:      "breaker_transitions_total",
			Help:      "Circuit breaker state transitions, partitioned by target state.",
		},
		[]string{"breaker", "state"},
	)

	trackSeconds = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Namespace: "faultline",
			Name:      "track_seconds",
			Help:      "Latency of processing one error occurrence.",
			Buckets:   []float64{0.00005, 0.0001, 0.00025, 0.0005, 0.001, 0.0025, 0.005, 0.01, 0.025},
		},
	)
)

// RegisterMetrics attaches faultline collectors to the supplied Prometheus
// registerer. Registering twice is harmless.
func RegisterMetrics(reg prometheus.Registerer) error {
	collectors := []prometheus.Collector{
		errorsTotal,
		droppedTotal,
		queueDepth,
		alertsTotal,
		breakerState,
		breakerTransitionsTotal,
		trackSeconds,
	}

	for _, collector := range collectors {
		if err := reg.Register(collector); err != nil {
			if _, ok := err.(prometheus.AlreadyRegisteredError); ok {
				continue
			}
			return err
		}
	}
	return nil
}

// observeOccurrence records one processed occurrence.
func observeOccurrence(category Category, severity Severity, duration time.Duration) {
	errorsTotal.WithLabelValues(string(category), string(severity)).Inc()
	if duration < 0 {
		duration = 0
	}
	trackSeconds.Observe(duration.Seconds())
}

// observeDropped counts occurrences lost to queue overflow.
func observeDropped(n int) {
	droppedTotal.Add(float64(n))
}

// observeQueueDepth reports the current ingestion backlog.
func observeQueueDepth(depth int) {
	queueDepth.Set(float64(depth))
}

// observeAlert counts a raised alert.
func observeAlert(name string) {
	alertsTotal.WithLabelValues(name).Inc()
}

// observeBreakerState reports a breaker's current state.
func observeBreakerState(name string, state BreakerState) {
	var v float64
	switch state {
	case BreakerOpen:
		v = 1
	case BreakerHalfOpen:
		v = 2
	}
	breakerState.WithLabelValues(name).Set(v)
	breakerTransitionsTotal.WithLabelValues(name, string(state)).Inc()
}
