package models

// TradeInputs holds the form state for a single sizing request.
// A nil percentage means the user has not entered it yet.
type TradeInputs struct {
	AccountBalance    float64
	RiskPercent       *float64
	AllocationPercent *float64
	EntryPrice        float64
	StopLoss          float64
	Regime            MarketRegime
}

// Percent returns a pointer to v, for building TradeInputs literals.
func Percent(v float64) *float64 {
	return &v
}

// ChargesBreakdown represents the statutory charges on a delivery buy.
// Every field is rounded to 2 decimal places and Total is the sum of the
// five rounded components.
type ChargesBreakdown struct {
	STT            float64 `json:"stt"`
	ExchangeCharge float64 `json:"exchange_charge"`
	SEBICharge     float64 `json:"sebi_charge"`
	GST            float64 `json:"gst"`
	StampDuty      float64 `json:"stamp_duty"`
	Total          float64 `json:"total"`
}

// Calculations is the result of sizing one trade.
type Calculations struct {
	Mode                SizingMode       `json:"mode"`
	Regime              MarketRegime     `json:"regime"`
	RegimeFactor        float64          `json:"regime_factor"`
	AccountBalance      float64          `json:"account_balance"`
	RiskPercentage      float64          `json:"risk_percentage"`
	RiskAmount          float64          `json:"risk_amount"`
	EntryPrice          float64          `json:"entry_price"`
	StopLoss            float64          `json:"stop_loss"`
	TotalBrokerage      float64          `json:"total_brokerage"`
	RiskPerShare        float64          `json:"risk_per_share"`
	BaseShares          int64            `json:"base_shares"`
	PositionSize        int64            `json:"position_size"`
	TotalInvestment     float64          `json:"total_investment"`
	PortfolioPercentage float64          `json:"portfolio_percentage"`
	Charges             ChargesBreakdown `json:"charges"`
	BreakEvenPrice      float64          `json:"break_even_price"`
}

// Target is one R-multiple profit projection for a sized position.
type Target struct {
	RMultiple            int              `json:"r_multiple"`
	TargetPrice          float64          `json:"target_price"`
	GrossProfit          float64          `json:"gross_profit"`
	NetProfit            float64          `json:"net_profit"`
	ReturnPercent        float64          `json:"return_percent"`
	PortfolioGainPercent float64          `json:"portfolio_gain_percent"`
	Charges              ChargesBreakdown `json:"charges"`
}
