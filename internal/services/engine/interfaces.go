package engine

import (
	"context"
	"time"

	"fxmatch/internal/models"
	"fxmatch/internal/services/fees"

	"github.com/shopspring/decimal"
)

// RateSource prices currency pairs for the engine.
type RateSource interface {
	Rate(from, to models.Currency) decimal.Decimal
}

// FeeEvaluator computes the economics of a matched amount.
type FeeEvaluator interface {
	Evaluate(matched decimal.Decimal, sameCurrency bool, fxRate decimal.Decimal) fees.Breakdown
}

// Journal persists emitted match records. The journal is the engine's own
// settlement log, not the external ledger; ledger effects flow through
// the event bus.
type Journal interface {
	SaveMatch(ctx context.Context, record *models.MatchRecord) error
}

// MetricsCollector receives engine telemetry.
type MetricsCollector interface {
	RecordSubmission(pair string)
	RecordMatch(kind string)
	RecordNoMatch(reason string)
	RecordExpiry()
	RecordCancel()
	ObserveMatchLatency(d time.Duration)
	SetPoolDepth(pair string, depth int)
	RecordDroppedEvent()
}

// NoopMetricsCollector discards all telemetry.
type NoopMetricsCollector struct{}

func (NoopMetricsCollector) RecordSubmission(string)           {}
func (NoopMetricsCollector) RecordMatch(string)                {}
func (NoopMetricsCollector) RecordNoMatch(string)              {}
func (NoopMetricsCollector) RecordExpiry()                     {}
func (NoopMetricsCollector) RecordCancel()                     {}
func (NoopMetricsCollector) ObserveMatchLatency(time.Duration) {}
func (NoopMetricsCollector) SetPoolDepth(string, int)          {}
func (NoopMetricsCollector) RecordDroppedEvent()               {}

// Service is the matching engine's public surface.
type Service interface {
	Submit(ctx context.Context, req SubmitRequest) (*SubmissionHandle, error)
	Cancel(requestID string)
	Status(requestID string) (StatusReport, error)
	Quote(amount decimal.Decimal, from, to models.Currency) (QuoteResult, error)
	PoolDepth() map[string]int
	Close()
}
