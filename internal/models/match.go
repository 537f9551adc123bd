package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// TransferDetails describes one leg of a settled match. All fields are
// opaque pass-through metadata owned by the caller.
type TransferDetails struct {
	SourceAccountNumber      string    `json:"source_account_number"`
	SourceBankName           string    `json:"source_bank_name"`
	SourceBankCountry        string    `json:"source_bank_country"`
	DestinationAccountNumber string    `json:"destination_account_number"`
	DestinationBankName      string    `json:"destination_bank_name"`
	DestinationBankCountry   string    `json:"destination_bank_country"`
	TransferID               string    `json:"transfer_id"`
	Timestamp                time.Time `json:"timestamp"`
	EstimatedArrival         time.Time `json:"estimated_arrival"`
}

// MatchRecord is produced per successful pairing and persisted to the
// settlement journal. Consumers own the record after emission; the engine
// keeps no reference.
type MatchRecord struct {
	ID               uint            `gorm:"primarykey" json:"-"`
	RecordID         string          `gorm:"uniqueIndex;not null" json:"record_id"`
	RequestID        string          `gorm:"index;not null" json:"request_id"`
	MatchedRequestID string          `gorm:"index" json:"matched_request_id,omitempty"`
	MatchedAmount    decimal.Decimal `gorm:"type:numeric" json:"matched_amount"`
	Fee              decimal.Decimal `gorm:"type:numeric" json:"fee"`
	NetAmount        decimal.Decimal `gorm:"type:numeric" json:"net_amount"`
	ExchangeRate     decimal.Decimal `gorm:"type:numeric" json:"exchange_rate"`
	RecipientGets    decimal.Decimal `gorm:"type:numeric" json:"recipient_gets"`
	SourceCurrency   Currency        `gorm:"not null" json:"source_currency"`
	TargetCurrency   Currency        `gorm:"not null" json:"target_currency"`
	SameCurrency     bool            `json:"same_currency"`
	Partial          bool            `json:"is_partial"`
	UserDetails      TransferDetails `gorm:"embedded;embeddedPrefix:user_" json:"user_details"`
	PeerDetails      TransferDetails `gorm:"embedded;embeddedPrefix:peer_" json:"peer_details"`
	MatchedAt        time.Time       `json:"matched_at"`
	CreatedAt        time.Time       `json:"-"`
}
