package models

import "time"

// No-match reason codes
const (
	NoMatchReasonNoLiquidity = "NO_LIQUIDITY"
)

// Event is a notification emitted by the matching engine.
type Event interface {
	// EventRequestID is the id of the originating transfer request.
	EventRequestID() string
}

// MatchEvent notifies consumers that a pairing settled. One event is
// emitted per matched chunk; Partial is false only on the chunk that
// completes the originating request.
type MatchEvent struct {
	Record MatchRecord `json:"record"`
}

func (e MatchEvent) EventRequestID() string { return e.Record.RequestID }

// NoMatchEvent notifies consumers that no liquidity exists for a request.
// It is a normal outcome, not an error.
type NoMatchEvent struct {
	RequestID string    `json:"request_id"`
	Reason    string    `json:"reason"`
	Fallback  string    `json:"fallback"`
	Timestamp time.Time `json:"timestamp"`
}

func (e NoMatchEvent) EventRequestID() string { return e.RequestID }
