// Package models provides domain models for position sizing and risk reporting.
package models

import "strings"

// Exchange represents a stock exchange.
type Exchange string

const (
	NSE Exchange = "NSE"
	BSE Exchange = "BSE"
)

// OrderSide represents the side of an order.
type OrderSide string

const (
	OrderSideBuy  OrderSide = "BUY"
	OrderSideSell OrderSide = "SELL"
)

// ParseOrderSide normalizes a transaction type string.
// It returns false for anything other than BUY or SELL.
func ParseOrderSide(s string) (OrderSide, bool) {
	switch OrderSide(strings.ToUpper(strings.TrimSpace(s))) {
	case OrderSideBuy:
		return OrderSideBuy, true
	case OrderSideSell:
		return OrderSideSell, true
	}
	return "", false
}

// Opposite returns the side that closes a position opened on s.
func (s OrderSide) Opposite() OrderSide {
	if s == OrderSideBuy {
		return OrderSideSell
	}
	return OrderSideBuy
}

// SizingMode selects how the position budget is expressed.
type SizingMode string

const (
	ModeRisk       SizingMode = "risk"       // percentage of the account put at risk
	ModeAllocation SizingMode = "allocation" // percentage of the account invested
)

// ParseMode accepts "risk", "allocation" and the short form "alloc".
func ParseMode(s string) (SizingMode, bool) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "risk":
		return ModeRisk, true
	case "allocation", "alloc":
		return ModeAllocation, true
	}
	return "", false
}

// MarketRegime is the trader's read of overall market health.
type MarketRegime string

const (
	RegimeConfirmedUptrend     MarketRegime = "confirmed_uptrend"
	RegimeUptrendUnderPressure MarketRegime = "uptrend_under_pressure"
	RegimeRallyAttempt         MarketRegime = "rally_attempt"
	RegimeDowntrend            MarketRegime = "downtrend"
)

// Regimes lists the known regimes from healthiest to weakest.
var Regimes = []MarketRegime{
	RegimeConfirmedUptrend,
	RegimeUptrendUnderPressure,
	RegimeRallyAttempt,
	RegimeDowntrend,
}

// ParseRegime normalizes user input such as "Confirmed Uptrend" or
// "rally-attempt". Unknown values are returned as given.
func ParseRegime(s string) MarketRegime {
	r := strings.NewReplacer(" ", "_", "-", "_")
	return MarketRegime(r.Replace(strings.ToLower(strings.TrimSpace(s))))
}
