// Package peerdata synthesizes counterparty metadata for simulated
// liquidity-provider matches.
package peerdata

import (
	"fmt"
	"math/rand"

	"fxmatch/internal/models"
)

var names = []string{
	"Anna Müller", "Jean Dupont", "Luca Rossi", "Sofia García",
	"Emma Johansson", "Marek Nowak", "Isabella Schmidt", "Lucas Martin",
}

var banksByCurrency = map[models.Currency][]string{
	models.USD: {"Chase", "Bank of America", "Wells Fargo", "CitiBank"},
	models.EUR: {"Deutsche Bank", "BNP Paribas", "Santander", "ING", "UniCredit"},
	models.GBP: {"Barclays", "HSBC", "Lloyds", "NatWest"},
}

var countriesByCurrency = map[models.Currency][]string{
	models.USD: {"United States"},
	models.EUR: {"Germany", "France", "Spain", "Italy", "Netherlands", "Belgium"},
	models.GBP: {"United Kingdom"},
}

// RandomName returns a plausible peer display name.
func RandomName() string {
	return names[rand.Intn(len(names))]
}

// RandomAccountNumber returns a peer account reference.
func RandomAccountNumber() string {
	return fmt.Sprintf("ACCT%08d", 10000000+rand.Intn(90000000))
}

// TransferID returns a new transfer reference of the form TRF followed by
// six digits.
func TransferID() string {
	return fmt.Sprintf("TRF%06d", 100000+rand.Intn(900000))
}

// RandomBank returns a bank name for the given currency.
func RandomBank(c models.Currency) string {
	if banks, ok := banksByCurrency[c]; ok {
		return banks[rand.Intn(len(banks))]
	}
	return "Unknown Bank"
}

// RandomCountry returns a country for the given currency.
func RandomCountry(c models.Currency) string {
	if countries, ok := countriesByCurrency[c]; ok {
		return countries[rand.Intn(len(countries))]
	}
	return "Unknown"
}
