package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// Transfer request statuses
const (
	RequestStatusPending   = "pending"
	RequestStatusMatched   = "matched"
	RequestStatusCompleted = "completed"
	RequestStatusCancelled = "cancelled"
	RequestStatusFailed    = "failed"

	// RequestStatusPartiallyFilled is a reporting-only state: the request
	// aged out after some fills settled. Emitted fills are never rolled
	// back.
	RequestStatusPartiallyFilled = "partially_filled"
)

// TransferRequest is one user's outstanding intent to swap currency.
// Amount is mutable: it shrinks as the request is partially filled and the
// request leaves the pool when it reaches zero.
type TransferRequest struct {
	ID               string          `json:"id"`
	UserID           string          `json:"user_id"`
	Amount           decimal.Decimal `json:"amount"`
	SourceCurrency   Currency        `json:"source_currency"`
	TargetCurrency   Currency        `json:"target_currency"`
	CreatedAt        time.Time       `json:"created_at"`
	Status           string          `json:"status"`
	MatchedRequestID string          `json:"matched_request_id,omitempty"`
	LockedRate       decimal.Decimal `json:"locked_rate,omitempty"`
	ExpiresAt        time.Time       `json:"expires_at"`
}

// PairKey returns the directed pool key this request files under.
func (r *TransferRequest) PairKey() string {
	return PairKey(r.SourceCurrency, r.TargetCurrency)
}

// Valid reports whether the request is still eligible for matching.
func (r *TransferRequest) Valid(now time.Time) bool {
	return now.Before(r.ExpiresAt) && r.Status == RequestStatusPending
}

// Recipient carries caller-owned transfer metadata. The engine passes it
// through to emitted match records without interpreting it.
type Recipient struct {
	Name          string `json:"name"`
	AccountNumber string `json:"account_number"`
	BankName      string `json:"bank_name,omitempty"`
	Country       string `json:"country,omitempty"`
}
