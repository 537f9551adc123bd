// Package fees computes transfer economics for matched amounts.
package fees

import "github.com/shopspring/decimal"

// DefaultRate is the fee charged on cross-currency matches.
var DefaultRate = decimal.RequireFromString("0.01")

// moneyExponent is the scale settlement figures are rounded to.
// Rounding is half-even so repeated settlement runs are reproducible.
const moneyExponent = 2

// Breakdown is the economics of one matched amount.
type Breakdown struct {
	Fee           decimal.Decimal
	Net           decimal.Decimal
	RecipientGets decimal.Decimal
}

// Model computes fee, net and recipient amounts.
type Model struct {
	rate decimal.Decimal
}

// NewModel creates a fee model with the given fee rate. A non-positive
// rate falls back to the default 1%.
func NewModel(rate decimal.Decimal) *Model {
	if !rate.IsPositive() {
		rate = DefaultRate
	}
	return &Model{rate: rate}
}

// Evaluate computes the economics of a matched amount. Same-currency
// matches carry no fee and convert one-to-one regardless of fxRate.
func (m *Model) Evaluate(matched decimal.Decimal, sameCurrency bool, fxRate decimal.Decimal) Breakdown {
	if sameCurrency {
		return Breakdown{
			Fee:           decimal.Zero,
			Net:           matched,
			RecipientGets: matched,
		}
	}
	fee := matched.Mul(m.rate).RoundBank(moneyExponent)
	net := matched.Sub(fee)
	return Breakdown{
		Fee:           fee,
		Net:           net,
		RecipientGets: net.Mul(fxRate).RoundBank(moneyExponent),
	}
}

// Rate returns the configured fee rate.
func (m *Model) Rate() decimal.Decimal { return m.rate }
