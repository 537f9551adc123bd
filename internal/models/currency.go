package models

// Currency is an ISO 4217 currency code supported by the matching engine.
type Currency string

const (
	USD Currency = "USD"
	EUR Currency = "EUR"
	GBP Currency = "GBP"
	JPY Currency = "JPY"
	AUD Currency = "AUD"
	CAD Currency = "CAD"
	CHF Currency = "CHF"
	CNY Currency = "CNY"
	INR Currency = "INR"
	EGP Currency = "EGP"
)

// SupportedCurrencies lists every currency the engine accepts.
var SupportedCurrencies = []Currency{USD, EUR, GBP, JPY, AUD, CAD, CHF, CNY, INR, EGP}

// IsSupported reports whether c is a known currency code.
func (c Currency) IsSupported() bool {
	for _, s := range SupportedCurrencies {
		if c == s {
			return true
		}
	}
	return false
}

func (c Currency) String() string { return string(c) }

// PairKey identifies one directed liquidity pool, e.g. "USD-EUR".
// The key is directional: "USD-EUR" and "EUR-USD" are distinct pools.
func PairKey(source, target Currency) string {
	return string(source) + "-" + string(target)
}
