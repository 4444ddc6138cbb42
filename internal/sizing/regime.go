package sizing

import "kite-riskdesk/internal/models"

// RegimeTable maps each market regime to a position size multiplier.
type RegimeTable map[models.MarketRegime]float64

// DefaultRegimeTable returns the standard regime multipliers.
func DefaultRegimeTable() RegimeTable {
	return RegimeTable{
		models.RegimeConfirmedUptrend:     1.00,
		models.RegimeUptrendUnderPressure: 0.75,
		models.RegimeRallyAttempt:         0.50,
		models.RegimeDowntrend:            0.25,
	}
}

// Factor returns the multiplier for r. Unrecognized regimes, and regimes
// configured with a non-positive factor, size at 100%.
func (t RegimeTable) Factor(r models.MarketRegime) float64 {
	if f, ok := t[models.ParseRegime(string(r))]; ok && f > 0 {
		return f
	}
	return 1.0
}
