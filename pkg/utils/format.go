// Package utils provides shared utility functions.
package utils

import (
	"math"
	"strings"

	"github.com/shopspring/decimal"
)

// FormatIndianCurrency formats a number in Indian currency format (lakhs, crores).
// Amounts are rounded half away from zero to paise, matching the fee model.
func FormatIndianCurrency(amount float64) string {
	return "₹" + FormatIndianAmount(amount)
}

// FormatIndianAmount formats a number with Indian digit grouping and two
// decimals, without the currency symbol.
func FormatIndianAmount(amount float64) string {
	if math.IsNaN(amount) || math.IsInf(amount, 0) {
		return "-"
	}
	d := decimal.NewFromFloat(amount).Round(2)
	negative := d.IsNegative()
	str := d.Abs().StringFixed(2)

	intPart, decPart, _ := strings.Cut(str, ".")
	result := formatIndianNumber(intPart) + "." + decPart
	if negative {
		result = "-" + result
	}
	return result
}

// formatIndianNumber groups an unsigned integer string the Indian way:
// 1,00,00,000 rather than 10,000,000.
func formatIndianNumber(s string) string {
	n := len(s)
	if n <= 3 {
		return s
	}

	// First group of 3 from right
	result := s[n-3:]
	s = s[:n-3]

	// Then groups of 2
	for len(s) > 0 {
		if len(s) >= 2 {
			result = s[len(s)-2:] + "," + result
			s = s[:len(s)-2]
		} else {
			result = s + "," + result
			s = ""
		}
	}

	return result
}

// FormatQuantity formats a share count with Indian grouping. Fractional
// quantities keep their decimals.
func FormatQuantity(qty float64) string {
	d := decimal.NewFromFloat(qty)
	negative := d.IsNegative()
	intPart, decPart, hasDec := strings.Cut(d.Abs().String(), ".")
	result := formatIndianNumber(intPart)
	if hasDec {
		result += "." + decPart
	}
	if negative {
		result = "-" + result
	}
	return result
}

// FormatLakhs formats a number in lakhs.
func FormatLakhs(amount float64) string {
	return decimal.NewFromFloat(amount).Div(decimal.NewFromInt(100_000)).StringFixed(2) + " L"
}

// FormatCrores formats a number in crores.
func FormatCrores(amount float64) string {
	return decimal.NewFromFloat(amount).Div(decimal.NewFromInt(10_000_000)).StringFixed(2) + " Cr"
}

// FormatCompact formats a number in compact form (L/Cr).
func FormatCompact(amount float64) string {
	abs := math.Abs(amount)
	switch {
	case abs >= 10_000_000:
		return FormatCrores(amount)
	case abs >= 100_000:
		return FormatLakhs(amount)
	}
	return FormatIndianCurrency(amount)
}
