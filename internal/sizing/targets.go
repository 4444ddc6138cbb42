package sizing

import "kite-riskdesk/internal/models"

// RMultiples are the reward-to-risk multiples projected for every sized
// position, in ladder order.
var RMultiples = [...]int{1, 2, 3, 4, 5, 6}

// GenerateTargets projects the profit at each R-multiple of the initial
// per-share risk. Only entry-side charges are modelled, so net profit equals
// gross profit and the parent charges are copied onto every row.
func GenerateTargets(calc *models.Calculations) []models.Target {
	if calc == nil {
		return nil
	}

	shares := float64(calc.PositionSize)
	targets := make([]models.Target, 0, len(RMultiples))
	for _, r := range RMultiples {
		price := calc.EntryPrice + float64(r)*calc.RiskPerShare
		gross := (price - calc.EntryPrice) * shares
		net := gross

		t := models.Target{
			RMultiple:   r,
			TargetPrice: price,
			GrossProfit: gross,
			NetProfit:   net,
			Charges:     calc.Charges,
		}
		if calc.TotalInvestment > 0 {
			t.ReturnPercent = net / calc.TotalInvestment * 100
		}
		if calc.AccountBalance > 0 {
			t.PortfolioGainPercent = net / calc.AccountBalance * 100
		}
		targets = append(targets, t)
	}
	return targets
}
