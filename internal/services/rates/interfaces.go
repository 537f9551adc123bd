package rates

import (
	"context"

	"fxmatch/internal/models"

	"github.com/shopspring/decimal"
)

// SnapshotStore persists the quote table so a restarted engine resumes
// with the last-known rates.
type SnapshotStore interface {
	SaveRates(ctx context.Context, quotes map[string]decimal.Decimal) error
	LoadRates(ctx context.Context) (map[string]decimal.Decimal, error)
}

// Source provides exchange rates to the matching engine.
type Source interface {
	Rate(from, to models.Currency) decimal.Decimal
}
