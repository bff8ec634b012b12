package cgd

import (
	"strings"

	"github.com/shopspring/decimal"
)

var amountCleaner = strings.NewReplacer(".", "", ",", ".", " ", "", "\u00a0", "", "EUR", "", "€", "")

// parseEuropeanAmount parses "1.234,56" style amounts, with or without a
// trailing currency.
func parseEuropeanAmount(s string) (decimal.Decimal, error) {
	return decimal.NewFromString(amountCleaner.Replace(s))
}

func nonZero(s string) (decimal.Decimal, bool) {
	if s == "" {
		return decimal.Zero, false
	}

	d, err := parseEuropeanAmount(s)
	if err != nil || d.IsZero() {
		return decimal.Zero, false
	}

	return d, true
}
