// Package core holds the domain types of the budget ledger: monetary
// amounts, accounting periods and the per-period ledger itself.
package core

import (
	"strings"

	"github.com/shopspring/decimal"
)

func init() {
	// Ledger files and API payloads carry amounts as plain JSON numbers.
	decimal.MarshalJSONWithoutQuotes = true
}

// Round2 rounds an amount to two decimal places, the precision every
// persisted and reported monetary value uses.
func Round2(d decimal.Decimal) decimal.Decimal {
	return d.Round(2)
}

// ParseAmount converts a decimal string to an amount. It accepts both dot
// (12.34) and comma (12,34) separators and rejects negative values.
func ParseAmount(s string) (decimal.Decimal, error) {
	s = strings.TrimSpace(strings.ReplaceAll(s, ",", "."))
	if s == "" {
		return decimal.Zero, ErrInvalidAmount
	}
	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Zero, ErrInvalidAmount
	}
	if d.IsNegative() {
		return decimal.Zero, ErrInvalidAmount
	}
	return d, nil
}

// SumAmounts adds a series of amounts.
func SumAmounts(amounts ...decimal.Decimal) decimal.Decimal {
	total := decimal.Zero
	for _, a := range amounts {
		total = total.Add(a)
	}
	return total
}
