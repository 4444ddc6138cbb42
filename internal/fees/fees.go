// Package fees computes statutory charges for equity delivery buys.
//
// All arithmetic is done in decimal. Each charge is rounded to two places,
// half away from zero, at the point it is computed, and every later figure
// (GST, the total) is built from the rounded values so a breakdown always
// adds up to the paisa.
package fees

import (
	"fmt"
	"math"

	"github.com/shopspring/decimal"

	"kite-riskdesk/internal/models"
)

// places is the precision every charge is rounded to.
const places = 2

// Schedule holds charge rates as fractions of turnover.
type Schedule struct {
	STTRate      float64 `mapstructure:"stt_rate"`      // securities transaction tax
	ExchangeRate float64 `mapstructure:"exchange_rate"` // exchange transaction charge
	SEBIRate     float64 `mapstructure:"sebi_rate"`     // regulator turnover fee
	GSTRate      float64 `mapstructure:"gst_rate"`      // on exchange + SEBI charges
	StampRate    float64 `mapstructure:"stamp_rate"`    // buy side only
}

// DefaultSchedule returns the NSE equity delivery rates.
func DefaultSchedule() Schedule {
	return Schedule{
		STTRate:      0.001,     // 0.1%
		ExchangeRate: 0.0000297, // 0.00297%
		SEBIRate:     0.000001,  // ₹10 per crore
		GSTRate:      0.18,
		StampRate:    0.00015, // 0.015%
	}
}

// Validate checks that every rate is finite and non-negative.
func (s Schedule) Validate() error {
	rates := []struct {
		name string
		v    float64
	}{
		{"stt_rate", s.STTRate},
		{"exchange_rate", s.ExchangeRate},
		{"sebi_rate", s.SEBIRate},
		{"gst_rate", s.GSTRate},
		{"stamp_rate", s.StampRate},
	}
	for _, r := range rates {
		if !(r.v >= 0) || math.IsInf(r.v, 0) {
			return fmt.Errorf("fee %s must be a non-negative number, got %v", r.name, r.v)
		}
	}
	return nil
}

// Compute returns the charges for buying shares at price.
// Non-positive or non-finite inputs give a zero breakdown.
func (s Schedule) Compute(price, shares float64) models.ChargesBreakdown {
	if !positive(price) || !positive(shares) {
		return models.ChargesBreakdown{}
	}

	turnover := decimal.NewFromFloat(price).Mul(decimal.NewFromFloat(shares))

	stt := charge(turnover, s.STTRate)
	exch := charge(turnover, s.ExchangeRate)
	sebi := charge(turnover, s.SEBIRate)
	gst := charge(exch.Add(sebi), s.GSTRate)
	stamp := charge(turnover, s.StampRate)
	total := stt.Add(exch).Add(sebi).Add(gst).Add(stamp)

	return models.ChargesBreakdown{
		STT:            stt.InexactFloat64(),
		ExchangeCharge: exch.InexactFloat64(),
		SEBICharge:     sebi.InexactFloat64(),
		GST:            gst.InexactFloat64(),
		StampDuty:      stamp.InexactFloat64(),
		Total:          total.InexactFloat64(),
	}
}

func positive(v float64) bool {
	return v > 0 && !math.IsInf(v, 1)
}

func charge(base decimal.Decimal, rate float64) decimal.Decimal {
	return base.Mul(decimal.NewFromFloat(rate)).Round(places)
}

// ComputeFeeBreakdown computes charges with the default schedule.
func ComputeFeeBreakdown(price, shares float64) models.ChargesBreakdown {
	return DefaultSchedule().Compute(price, shares)
}
