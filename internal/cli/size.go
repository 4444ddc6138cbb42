package cli

import (
	"fmt"
	"math"

	"github.com/spf13/cobra"

	apperrors "kite-riskdesk/internal/errors"
	"kite-riskdesk/internal/fees"
	"kite-riskdesk/internal/logging"
	"kite-riskdesk/internal/models"
	"kite-riskdesk/internal/report"
	"kite-riskdesk/internal/sizing"
)

// sizeOutput is the JSON shape of the size command.
type sizeOutput struct {
	sizing.Result
	Targets []models.Target `json:"targets,omitempty"`
}

func newSizeCmd(app *App) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "size",
		Short: "Size a trade from a risk or allocation budget",
		Long: `Size an equity delivery trade.

Give either --risk (percent of the account you are willing to lose at the
stop) or --alloc (percent of the account to invest). The market regime
scales the share count down in weaker markets.`,
		Example: `  riskdesk size --balance 1000000 --risk 0.25 --entry 100 --sl 95
  riskdesk size --balance 500000 --alloc 10 --entry 2450 --sl 2380 --regime downtrend`,
		RunE: func(cmd *cobra.Command, args []string) error {
			output := NewOutput(cmd)
			logger := logging.WithOperation(logging.FromContext(cmd.Context()), "size")

			balance, _ := cmd.Flags().GetFloat64("balance")
			if !cmd.Flags().Changed("balance") {
				balance = app.Config.Risk.DefaultCapital
			}
			entry, _ := cmd.Flags().GetFloat64("entry")
			sl, _ := cmd.Flags().GetFloat64("sl")
			regime, _ := cmd.Flags().GetString("regime")
			xlsxPath, _ := cmd.Flags().GetString("xlsx")

			in := models.TradeInputs{
				AccountBalance: balance,
				EntryPrice:     entry,
				StopLoss:       sl,
				Regime:         models.ParseRegime(regime),
			}
			mode := models.ModeRisk
			if cmd.Flags().Changed("risk") {
				v, _ := cmd.Flags().GetFloat64("risk")
				in.RiskPercent = models.Percent(v)
			}
			if cmd.Flags().Changed("alloc") {
				if in.RiskPercent != nil {
					return apperrors.NewValidationError("mode", nil, "use either --risk or --alloc, not both")
				}
				v, _ := cmd.Flags().GetFloat64("alloc")
				in.AllocationPercent = models.Percent(v)
				mode = models.ModeAllocation
			}

			res := sizing.NewEngine(app.Config.EngineConfig()).Size(mode, in)
			app.Metrics.RecordSizing(mode, res)

			if !res.OK() {
				logging.LogSizingRejected(logger, string(mode), res.Errors)
				if output.IsJSON() {
					if err := output.JSON(sizeOutput{Result: res}); err != nil {
						return err
					}
				} else {
					for _, msg := range res.Errors {
						output.Error("✗ %s", msg)
					}
				}
				return fmt.Errorf("%d invalid input(s): %w", len(res.Errors), apperrors.ErrInputValidation)
			}

			calc := res.Calculations
			targets := sizing.GenerateTargets(calc)
			logging.LogSizing(logger, string(mode), string(calc.Regime), calc.PositionSize, calc.RiskAmount, len(res.Warnings))

			if xlsxPath != "" {
				if err := report.WriteSizingXLSX(xlsxPath, calc, targets); err != nil {
					return err
				}
			}

			if output.IsJSON() {
				return output.JSON(sizeOutput{Result: res, Targets: targets})
			}
			renderSizing(output, calc, res.Warnings)
			renderTargets(output, targets)
			if xlsxPath != "" {
				output.Dim("Saved %s", xlsxPath)
			}
			return nil
		},
	}

	cmd.Flags().Float64("balance", 0, "Account balance (default: risk.default_capital)")
	cmd.Flags().Float64("risk", 0, "Risk per trade, percent of balance")
	cmd.Flags().Float64("alloc", 0, "Allocation, percent of balance")
	cmd.Flags().Float64("entry", 0, "Entry price (required)")
	cmd.Flags().Float64("sl", 0, "Stop-loss price (required)")
	cmd.Flags().String("regime", string(models.RegimeConfirmedUptrend), "Market regime (confirmed_uptrend, uptrend_under_pressure, rally_attempt, downtrend)")
	cmd.Flags().String("xlsx", "", "Also write the result to this .xlsx file")

	cmd.MarkFlagRequired("entry")
	cmd.MarkFlagRequired("sl")

	return cmd
}

func renderSizing(output *Output, calc *models.Calculations, warnings []string) {
	output.Bold("Position: %s shares @ %s", FormatQuantity(float64(calc.PositionSize)), FormatPrice(calc.EntryPrice))
	if calc.BaseShares != calc.PositionSize {
		output.Dim("  %s shares before the %s regime factor (%s)",
			FormatQuantity(float64(calc.BaseShares)), calc.Regime, FormatRatio(calc.RegimeFactor))
	}

	table := NewTable(output, "Item", "Value").AlignRight(2)
	table.AddRow("Mode", string(calc.Mode))
	table.AddRow("Risk per share", FormatPrice(calc.RiskPerShare))
	table.AddRow("Risk amount", FormatIndianCurrency(calc.RiskAmount))
	table.AddRow("Risk % of account", fmt.Sprintf("%.2f%%", calc.RiskPercentage))
	table.AddRow("Investment", FormatIndianCurrency(calc.TotalInvestment))
	table.AddRow("% of account", fmt.Sprintf("%.2f%%", calc.PortfolioPercentage))
	table.AddRow("Charges", FormatIndianCurrency(calc.Charges.Total))
	table.AddRow("Break-even", FormatPrice(calc.BreakEvenPrice))
	table.Render()

	for _, w := range warnings {
		output.Warning("⚠ %s", w)
	}
}

func renderTargets(output *Output, targets []models.Target) {
	table := NewTable(output, "R", "Target", "Profit", "Return", "Account gain").AlignRight(1, 2, 3, 4, 5)
	for _, t := range targets {
		table.AddRow(
			fmt.Sprintf("%dR", t.RMultiple),
			FormatPrice(t.TargetPrice),
			output.FormatPnL(t.NetProfit),
			fmt.Sprintf("%.2f%%", t.ReturnPercent),
			fmt.Sprintf("%.2f%%", t.PortfolioGainPercent),
		)
	}
	table.Render()
}

func newFeesCmd(app *App) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "fees",
		Short: "Show statutory charges for a delivery buy",
		Example: `  riskdesk fees --price 100 --qty 500`,
		RunE: func(cmd *cobra.Command, args []string) error {
			output := NewOutput(cmd)
			price, _ := cmd.Flags().GetFloat64("price")
			qty, _ := cmd.Flags().GetFloat64("qty")
			if !(price > 0) || math.IsInf(price, 1) {
				return apperrors.NewValidationError("price", price, "price must be a finite number greater than 0")
			}
			if !(qty > 0) || math.IsInf(qty, 1) {
				return apperrors.NewValidationError("qty", qty, "quantity must be a finite number greater than 0")
			}

			schedule := app.Config.Fees
			if schedule == (fees.Schedule{}) {
				schedule = fees.DefaultSchedule()
			}
			charges := schedule.Compute(price, qty)

			if output.IsJSON() {
				return output.JSON(charges)
			}
			output.Bold("Turnover: %s", FormatIndianCurrency(price*qty))
			table := NewTable(output, "Charge", "Amount").AlignRight(2)
			table.AddRow("STT", FormatIndianCurrency(charges.STT))
			table.AddRow("Exchange", FormatIndianCurrency(charges.ExchangeCharge))
			table.AddRow("SEBI", FormatIndianCurrency(charges.SEBICharge))
			table.AddRow("GST", FormatIndianCurrency(charges.GST))
			table.AddRow("Stamp duty", FormatIndianCurrency(charges.StampDuty))
			table.AddFooter("Total", FormatIndianCurrency(charges.Total))
			table.Render()
			return nil
		},
	}

	cmd.Flags().Float64("price", 0, "Price per share (required)")
	cmd.Flags().Float64("qty", 0, "Number of shares (required)")
	cmd.MarkFlagRequired("price")
	cmd.MarkFlagRequired("qty")

	return cmd
}
