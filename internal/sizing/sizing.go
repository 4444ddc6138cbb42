// Package sizing turns account state and a risk or allocation budget into a
// concrete share quantity, its charges and a ladder of R-multiple targets.
//
// Everything here is a pure function of its inputs. An Engine is immutable
// once built and may be shared between goroutines.
package sizing

import (
	"math"

	apperrors "kite-riskdesk/internal/errors"
	"kite-riskdesk/internal/fees"
	"kite-riskdesk/internal/models"
)

// maxShares caps share counts so absurd inputs (a stop a fraction of a
// paisa below entry) stay inside exact float64 integers.
const maxShares = 1 << 53

// Limits holds the hard and soft bounds applied to sizing inputs.
type Limits struct {
	MaxRiskPercent       float64 `mapstructure:"max_risk_percent"`
	WarnRiskPercent      float64 `mapstructure:"warn_risk_percent"`
	MaxAllocationPercent float64 `mapstructure:"max_allocation_percent"`
	MaxPositionPercent   float64 `mapstructure:"max_position_percent"` // 0 disables the check
}

// DefaultLimits returns the standard bounds.
func DefaultLimits() Limits {
	return Limits{
		MaxRiskPercent:       10,
		WarnRiskPercent:      3,
		MaxAllocationPercent: 100,
	}
}

// Config configures an Engine. Zero values fall back to defaults.
type Config struct {
	Fees    fees.Schedule
	Limits  Limits
	Regimes RegimeTable
}

// Engine sizes positions.
type Engine struct {
	fees    fees.Schedule
	limits  Limits
	regimes RegimeTable
}

// NewEngine creates a sizing engine.
func NewEngine(cfg Config) *Engine {
	def := DefaultLimits()
	if cfg.Limits.MaxRiskPercent <= 0 {
		cfg.Limits.MaxRiskPercent = def.MaxRiskPercent
	}
	if cfg.Limits.WarnRiskPercent <= 0 {
		cfg.Limits.WarnRiskPercent = def.WarnRiskPercent
	}
	if cfg.Limits.MaxAllocationPercent <= 0 {
		cfg.Limits.MaxAllocationPercent = def.MaxAllocationPercent
	}
	if cfg.Fees == (fees.Schedule{}) {
		cfg.Fees = fees.DefaultSchedule()
	}
	if len(cfg.Regimes) == 0 {
		cfg.Regimes = DefaultRegimeTable()
	}
	return &Engine{
		fees:    cfg.Fees,
		limits:  cfg.Limits,
		regimes: cfg.Regimes,
	}
}

var defaultEngine = NewEngine(Config{})

// Result is the outcome of one sizing request. Calculations is nil whenever
// Errors is non-empty; Warnings may accompany a valid result.
type Result struct {
	Calculations *models.Calculations         `json:"calculations"`
	Errors       []string                     `json:"errors,omitempty"`
	Warnings     []string                     `json:"warnings,omitempty"`
	Violations   []*apperrors.ValidationError `json:"-"`
}

// OK reports whether a result was produced.
func (r Result) OK() bool {
	return r.Calculations != nil
}

// SizePosition sizes a trade with the default fee schedule, limits and
// regime table.
func SizePosition(mode models.SizingMode, in models.TradeInputs) Result {
	return defaultEngine.Size(mode, in)
}

// Size validates the inputs and sizes the position.
func (e *Engine) Size(mode models.SizingMode, in models.TradeInputs) Result {
	if violations := e.validate(mode, in); len(violations) > 0 {
		msgs := make([]string, len(violations))
		for i, v := range violations {
			msgs[i] = v.Message
		}
		return Result{Errors: msgs, Violations: violations}
	}

	factor := e.regimes.Factor(in.Regime)
	riskPerShare := in.EntryPrice - in.StopLoss

	calc := &models.Calculations{
		Mode:           mode,
		Regime:         models.ParseRegime(string(in.Regime)),
		RegimeFactor:   factor,
		AccountBalance: in.AccountBalance,
		EntryPrice:     in.EntryPrice,
		StopLoss:       in.StopLoss,
		RiskPerShare:   riskPerShare,
	}

	switch mode {
	case models.ModeRisk:
		// Regime shrinks the budget and the share count by the same factor.
		riskAmount := in.AccountBalance * *in.RiskPercent / 100
		calc.BaseShares = floorShares(riskAmount / riskPerShare)
		calc.PositionSize = adjustShares(calc.BaseShares, factor)
		calc.RiskAmount = riskAmount * factor
		calc.RiskPercentage = *in.RiskPercent * factor
	case models.ModeAllocation:
		// Risk follows from the size, not the other way round.
		allocation := in.AccountBalance * *in.AllocationPercent / 100
		calc.BaseShares = floorShares(allocation / in.EntryPrice)
		calc.PositionSize = adjustShares(calc.BaseShares, factor)
		calc.RiskAmount = float64(calc.PositionSize) * riskPerShare
		calc.RiskPercentage = calc.RiskAmount / in.AccountBalance * 100
	}

	shares := float64(calc.PositionSize)
	calc.Charges = e.fees.Compute(in.EntryPrice, shares)
	calc.TotalBrokerage = calc.Charges.Total
	calc.TotalInvestment = shares * in.EntryPrice
	calc.PortfolioPercentage = calc.TotalInvestment / in.AccountBalance * 100
	calc.BreakEvenPrice = in.EntryPrice + calc.Charges.Total/shares

	return Result{
		Calculations: calc,
		Warnings:     e.warnings(mode, in, calc),
	}
}

// adjustShares applies the regime factor and never returns less than one
// share.
func adjustShares(base int64, factor float64) int64 {
	n := floorShares(float64(base) * factor)
	if n < 1 {
		return 1
	}
	return n
}

func floorShares(v float64) int64 {
	if math.IsNaN(v) || v <= 0 {
		return 0
	}
	if v >= maxShares {
		return maxShares
	}
	return int64(math.Floor(v))
}
