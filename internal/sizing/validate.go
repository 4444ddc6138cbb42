package sizing

import (
	"fmt"
	"math"

	apperrors "kite-riskdesk/internal/errors"
	"kite-riskdesk/internal/models"
)

// validate runs the hard checks shared by both sizing modes. Every failing
// rule is reported; an empty slice means the inputs can be sized.
func (e *Engine) validate(mode models.SizingMode, in models.TradeInputs) []*apperrors.ValidationError {
	var errs []*apperrors.ValidationError
	fail := func(field string, value interface{}, format string, args ...interface{}) {
		errs = append(errs, apperrors.NewValidationError(field, value, fmt.Sprintf(format, args...)))
	}

	switch {
	case !finite(in.AccountBalance):
		fail("account_balance", in.AccountBalance, "Account balance must be a finite number")
	case !(in.AccountBalance > 0):
		fail("account_balance", in.AccountBalance, "Account balance must be greater than 0")
	}

	switch mode {
	case models.ModeRisk:
		switch {
		case in.RiskPercent == nil:
			fail("risk_percent", nil, "Risk percentage is required")
		case !finite(*in.RiskPercent):
			fail("risk_percent", *in.RiskPercent, "Risk percentage must be a finite number")
		case !(*in.RiskPercent > 0):
			fail("risk_percent", *in.RiskPercent, "Risk percentage must be greater than 0")
		case *in.RiskPercent > e.limits.MaxRiskPercent:
			fail("risk_percent", *in.RiskPercent, "Risk percentage cannot exceed %s%%", trimFloat(e.limits.MaxRiskPercent))
		}
	case models.ModeAllocation:
		switch {
		case in.AllocationPercent == nil:
			fail("allocation_percent", nil, "Allocation percentage is required")
		case !finite(*in.AllocationPercent):
			fail("allocation_percent", *in.AllocationPercent, "Allocation percentage must be a finite number")
		case !(*in.AllocationPercent > 0):
			fail("allocation_percent", *in.AllocationPercent, "Allocation percentage must be greater than 0")
		case *in.AllocationPercent > e.limits.MaxAllocationPercent:
			fail("allocation_percent", *in.AllocationPercent, "Allocation percentage cannot exceed %s%%", trimFloat(e.limits.MaxAllocationPercent))
		}
	default:
		fail("mode", mode, "Unknown sizing mode %q (use risk or allocation)", mode)
	}

	entryOK := checkPrice(in.EntryPrice, "entry_price", "Entry price", fail)
	stopOK := checkPrice(in.StopLoss, "stop_loss", "Stop loss", fail)
	if entryOK && stopOK && in.StopLoss >= in.EntryPrice {
		fail("stop_loss", in.StopLoss, "Stop loss must be below the entry price for a long trade")
	}

	return errs
}

// warnings returns advisories for a computed result.
func (e *Engine) warnings(mode models.SizingMode, in models.TradeInputs, calc *models.Calculations) []string {
	var out []string
	if mode == models.ModeRisk && *in.RiskPercent > e.limits.WarnRiskPercent {
		out = append(out, fmt.Sprintf("Risking %s%% of the account on one trade is above the recommended %s%%",
			trimFloat(*in.RiskPercent), trimFloat(e.limits.WarnRiskPercent)))
	}
	if e.limits.MaxPositionPercent > 0 && calc.PortfolioPercentage > e.limits.MaxPositionPercent {
		out = append(out, fmt.Sprintf("Position is %.2f%% of the account, above the %s%% position limit",
			calc.PortfolioPercentage, trimFloat(e.limits.MaxPositionPercent)))
	}
	if calc.TotalInvestment > calc.AccountBalance {
		out = append(out, "Position value exceeds the account balance")
	}
	return out
}

// checkPrice checks a per-share price and reports whether it is usable.
func checkPrice(v float64, field, label string, fail func(string, interface{}, string, ...interface{})) bool {
	switch {
	case !finite(v):
		fail(field, v, "%s must be a finite number", label)
	case !(v > 0):
		fail(field, v, "%s must be greater than 0", label)
	default:
		return true
	}
	return false
}

func finite(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}

func trimFloat(v float64) string {
	return fmt.Sprintf("%g", v)
}
