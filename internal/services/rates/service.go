// Package rates maintains the exchange-rate table used to price matches.
package rates

import (
	"context"
	"log"
	"sync"

	"fxmatch/internal/models"

	"github.com/shopspring/decimal"
)

var one = decimal.NewFromInt(1)

// defaultQuotes seeds the table with USD-anchored market rates. In a real
// deployment these would come from an external feed via Refresh.
func defaultQuotes() map[string]decimal.Decimal {
	usd := map[models.Currency]string{
		models.EUR: "0.87",
		models.GBP: "0.74",
		models.JPY: "145.89",
		models.CAD: "1.37",
		models.AUD: "1.54",
		models.CHF: "0.82",
		models.CNY: "7.19",
		models.INR: "86.58",
		models.EGP: "50.61",
	}
	quotes := make(map[string]decimal.Decimal, 2*len(usd))
	for ccy, q := range usd {
		rate := decimal.RequireFromString(q)
		quotes[models.PairKey(models.USD, ccy)] = rate
		quotes[models.PairKey(ccy, models.USD)] = one.Div(rate)
	}
	return quotes
}

// Table is a refreshable mapping of directed currency pairs to quotes.
// Lookups never fail: missing data degrades to the identity rate.
type Table struct {
	mu     sync.RWMutex
	quotes map[string]decimal.Decimal
	store  SnapshotStore
}

// NewTable creates a rate table seeded with the default quotes. If store
// is non-nil a previously saved snapshot overrides the defaults.
func NewTable(store SnapshotStore) *Table {
	t := &Table{quotes: defaultQuotes(), store: store}
	if store != nil {
		if saved, err := store.LoadRates(context.Background()); err != nil {
			log.Printf("rates: no snapshot loaded: %v", err)
		} else if len(saved) > 0 {
			t.quotes = saved
		}
	}
	return t
}

// Rate returns the exchange rate from one currency to another.
//
// Resolution order: identity for equal currencies, the direct quote, a
// USD-anchored quote or its inverse, then USD triangulation. When no data
// exists at all the table falls back to the identity rate 1.0. That
// permissive default is a known weak point of the pricing model: an
// unquoted pair silently converts one-to-one rather than failing.
func (t *Table) Rate(from, to models.Currency) decimal.Decimal {
	if from == to {
		return one
	}

	t.mu.RLock()
	defer t.mu.RUnlock()

	if direct, ok := t.quotes[models.PairKey(from, to)]; ok {
		return direct
	}
	if from == models.USD {
		if q, ok := t.quotes[models.PairKey(models.USD, to)]; ok {
			return q
		}
	}
	if to == models.USD {
		if q, ok := t.quotes[models.PairKey(models.USD, from)]; ok {
			return one.Div(q)
		}
	}
	usdFrom, okFrom := t.quotes[models.PairKey(models.USD, from)]
	usdTo, okTo := t.quotes[models.PairKey(models.USD, to)]
	if okFrom && okTo {
		return usdTo.Div(usdFrom)
	}
	return one
}

// Refresh replaces the quote table and saves a snapshot when a store is
// configured. Save failures are logged, not returned: stale persistence
// must not block pricing.
func (t *Table) Refresh(ctx context.Context, quotes map[string]decimal.Decimal) {
	copied := make(map[string]decimal.Decimal, len(quotes))
	for k, v := range quotes {
		copied[k] = v
	}

	t.mu.Lock()
	t.quotes = copied
	t.mu.Unlock()

	if t.store != nil {
		if err := t.store.SaveRates(ctx, copied); err != nil {
			log.Printf("rates: snapshot save failed: %v", err)
		}
	}
}

// Quotes returns a copy of the current quote table.
func (t *Table) Quotes() map[string]decimal.Decimal {
	t.mu.RLock()
	defer t.mu.RUnlock()
	copied := make(map[string]decimal.Decimal, len(t.quotes))
	for k, v := range t.quotes {
		copied[k] = v
	}
	return copied
}
