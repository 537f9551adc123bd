package engine

import (
	"strings"
	"time"

	"fxmatch/internal/models"
	"fxmatch/internal/services/events"

	"github.com/shopspring/decimal"
)

// Match kinds reported to metrics.
const (
	MatchKindExact        = "exact"
	MatchKindFIFO         = "fifo"
	MatchKindChunked      = "chunked"
	MatchKindSameCurrency = "same_currency"
)

// Config is the engine's policy table. Pair and currency special cases
// are data here, not branching logic: the deny list and chunk profiles
// model upstream liquidity constraints and are fully configurable.
type Config struct {
	// FeeRate is the fee charged on cross-currency matches.
	FeeRate decimal.Decimal
	// MatchDelay simulates the network round trip of a match search.
	MatchDelay time.Duration
	// ChunkInterval is the gap between chunk fills of a chunked match.
	ChunkInterval time.Duration
	// ExpiryWindow is how long a request stays eligible for matching.
	ExpiryWindow time.Duration
	// MinTransferUSD is the smallest accepted amount, in USD equivalent.
	MinTransferUSD decimal.Decimal
	// DenyPairs maps directed pair keys (e.g. "EGP-INR") that have no
	// peer liquidity at all.
	DenyPairs map[string]bool
	// ChunkProfiles maps source currencies whose liquidity arrives
	// incrementally to the percentage chunks their fills come in.
	ChunkProfiles map[models.Currency][]decimal.Decimal
	// EventBuffer is the subscriber channel depth of the event bus.
	EventBuffer int
}

// DefaultConfig mirrors the policy observed in production: EGP-INR has no
// liquidity and EGP-origin transfers fill in 40/30/30 chunks.
func DefaultConfig() Config {
	return Config{
		FeeRate:        decimal.RequireFromString("0.01"),
		MatchDelay:     2 * time.Second,
		ChunkInterval:  2 * time.Second,
		ExpiryWindow:   5 * time.Minute,
		MinTransferUSD: decimal.NewFromInt(5),
		DenyPairs: map[string]bool{
			models.PairKey(models.EGP, models.INR): true,
		},
		ChunkProfiles: map[models.Currency][]decimal.Decimal{
			models.EGP: {
				decimal.RequireFromString("0.4"),
				decimal.RequireFromString("0.3"),
				decimal.RequireFromString("0.3"),
			},
		},
		EventBuffer: events.DefaultBuffer,
	}
}

// ParseDenyPairs parses a comma-separated list of directed pair keys,
// e.g. "EGP-INR,EGP-JPY".
func ParseDenyPairs(raw string) map[string]bool {
	pairs := make(map[string]bool)
	for _, p := range strings.Split(raw, ",") {
		p = strings.ToUpper(strings.TrimSpace(p))
		if p != "" {
			pairs[p] = true
		}
	}
	return pairs
}

// ParseChunkProfiles parses semicolon-separated currency profiles of the
// form "EGP:0.4/0.3/0.3". Profiles that do not sum to 1 are skipped.
func ParseChunkProfiles(raw string) map[models.Currency][]decimal.Decimal {
	profiles := make(map[models.Currency][]decimal.Decimal)
	for _, entry := range strings.Split(raw, ";") {
		entry = strings.TrimSpace(entry)
		if entry == "" {
			continue
		}
		parts := strings.SplitN(entry, ":", 2)
		if len(parts) != 2 {
			continue
		}
		currency := models.Currency(strings.ToUpper(strings.TrimSpace(parts[0])))
		var chunks []decimal.Decimal
		total := decimal.Zero
		for _, c := range strings.Split(parts[1], "/") {
			pct, err := decimal.NewFromString(strings.TrimSpace(c))
			if err != nil || !pct.IsPositive() {
				chunks = nil
				break
			}
			chunks = append(chunks, pct)
			total = total.Add(pct)
		}
		if len(chunks) > 0 && total.Equal(decimal.NewFromInt(1)) {
			profiles[currency] = chunks
		}
	}
	return profiles
}

// SubmitRequest is a caller's transfer submission.
type SubmitRequest struct {
	UserID         string
	Amount         decimal.Decimal
	SourceCurrency models.Currency
	TargetCurrency models.Currency
	Recipient      models.Recipient
}

// SubmissionHandle is returned immediately from Submit. Match and
// no-match notifications for the request arrive on Events; the caller
// may instead poll Status by id.
type SubmissionHandle struct {
	RequestID string
	Status    string
	Events    *events.Subscription
}

// StatusReport is the poll view of a submitted request.
type StatusReport struct {
	RequestID string          `json:"request_id"`
	Status    string          `json:"status"`
	Filled    decimal.Decimal `json:"filled"`
	Remaining decimal.Decimal `json:"remaining"`
}

// QuoteResult prices an internal exchange without matching.
type QuoteResult struct {
	Rate     decimal.Decimal `json:"rate"`
	Received decimal.Decimal `json:"received"`
}
