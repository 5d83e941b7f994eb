package domain

import (
	"strings"

	"github.com/shopspring/decimal"
)

// Round2 rounds an amount half away from zero to two decimal places.
// Float sums of currency values drift (0.1+0.2), so arithmetic that feeds a
// comparison goes through decimal first.
func Round2(v float64) float64 {
	f, _ := decimal.NewFromFloat(v).Round(2).Float64()
	return f
}

// SubRound2 returns round2(a - b) computed in decimal.
func SubRound2(a, b float64) float64 {
	f, _ := decimal.NewFromFloat(a).Sub(decimal.NewFromFloat(b)).Round(2).Float64()
	return f
}

// SumRound2 adds the amounts in decimal and rounds the total.
func SumRound2(amounts ...float64) float64 {
	total := decimal.Zero
	for _, a := range amounts {
		total = total.Add(decimal.NewFromFloat(a))
	}
	f, _ := total.Round(2).Float64()
	return f
}

// ParseAmount parses a user-entered amount, stripping currency symbols,
// thousands separators and whitespace ("₹1,250.50" -> 1250.50).
func ParseAmount(s string) (float64, error) {
	cleaned := strings.Map(func(r rune) rune {
		if (r >= '0' && r <= '9') || r == '.' || r == '-' {
			return r
		}
		return -1
	}, s)
	if cleaned == "" {
		return 0, &ErrValidation{Field: "amount", Message: "no digits in " + s}
	}
	d, err := decimal.NewFromString(cleaned)
	if err != nil {
		return 0, &ErrValidation{Field: "amount", Message: "invalid amount " + s}
	}
	f, _ := d.Round(2).Float64()
	return f, nil
}
