// Package cli provides the command-line interface for the risk desk.
package cli

import (
	"fmt"
	"math"
	"strconv"

	"kite-riskdesk/pkg/utils"
)

// FormatIndianCurrency formats an amount as rupees with Indian digit
// grouping.
func FormatIndianCurrency(amount float64) string {
	return utils.FormatIndianCurrency(amount)
}

// FormatPercent formats a percentage with sign.
func FormatPercent(value float64) string {
	sign := ""
	if value > 0 {
		sign = "+"
	}
	return fmt.Sprintf("%s%.2f%%", sign, value)
}

// FormatPnL formats P&L with sign.
func FormatPnL(pnl float64) string {
	formatted := FormatIndianCurrency(pnl)
	if pnl > 0 {
		return "+" + formatted
	}
	return formatted
}

// FormatPrice formats a price with two decimals, or four below ten rupees.
func FormatPrice(price float64) string {
	if math.Abs(price) < 10 && price != 0 {
		return fmt.Sprintf("%.4f", price)
	}
	return fmt.Sprintf("%.2f", price)
}

// FormatRatio formats a factor such as a regime multiplier.
func FormatRatio(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64) + "x"
}

// FormatQuantity formats a share count with Indian grouping.
func FormatQuantity(qty float64) string {
	return utils.FormatQuantity(qty)
}
