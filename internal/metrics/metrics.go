// Package metrics exposes engine telemetry as Prometheus collectors.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	submissionsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "fxmatch_submissions_total",
		Help: "Transfer requests accepted, by currency pair",
	}, []string{"pair"})

	matchesTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "fxmatch_matches_total",
		Help: "Match events emitted, by match kind",
	}, []string{"kind"})

	noMatchesTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "fxmatch_no_matches_total",
		Help: "No-match events emitted, by reason",
	}, []string{"reason"})

	expiriesTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "fxmatch_expiries_total",
		Help: "Requests that aged out while searching",
	})

	cancelsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "fxmatch_cancels_total",
		Help: "Requests withdrawn by their owner",
	})

	matchLatency = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "fxmatch_match_latency_seconds",
		Help:    "Time from submission to a settled fill",
		Buckets: []float64{0.5, 1, 2, 5, 10, 30, 60, 300},
	})

	poolDepth = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Name: "fxmatch_pool_depth",
		Help: "Queued requests per currency-pair key",
	}, []string{"pair"})

	droppedEventsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "fxmatch_dropped_events_total",
		Help: "Events discarded because a subscriber fell behind",
	})
)

// Collector feeds engine telemetry into the Prometheus registry.
type Collector struct{}

// NewCollector creates the Prometheus-backed metrics collector.
func NewCollector() *Collector { return &Collector{} }

func (*Collector) RecordSubmission(pair string) { submissionsTotal.WithLabelValues(pair).Inc() }
func (*Collector) RecordMatch(kind string)      { matchesTotal.WithLabelValues(kind).Inc() }
func (*Collector) RecordNoMatch(reason string)  { noMatchesTotal.WithLabelValues(reason).Inc() }
func (*Collector) RecordExpiry()                { expiriesTotal.Inc() }
func (*Collector) RecordCancel()                { cancelsTotal.Inc() }

func (*Collector) ObserveMatchLatency(d time.Duration) {
	matchLatency.Observe(d.Seconds())
}

func (*Collector) SetPoolDepth(pair string, depth int) {
	poolDepth.WithLabelValues(pair).Set(float64(depth))
}

func (*Collector) RecordDroppedEvent() { droppedEventsTotal.Inc() }
