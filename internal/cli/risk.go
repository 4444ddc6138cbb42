package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"kite-riskdesk/internal/broker"
	"kite-riskdesk/internal/logging"
	"kite-riskdesk/internal/report"
	"kite-riskdesk/internal/risk"
)

func newRiskCmd(app *App) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "risk",
		Short: "Report capital at risk across open positions and their GTTs",
		Long: `Reconcile open positions with pending GTT exit orders.

Each position is matched to active GTT legs on the closing side. Legs are
filled best price first; any slice priced below average cost (above, for
shorts) is a loss, and quantity no GTT covers is counted at full value.

Without --snapshot the positions, GTTs and equity margin are read live from
Kite using the [broker] credentials.`,
		Example: `  riskdesk risk --snapshot book.json
  riskdesk risk --holdings --save today.yaml --xlsx risk.xlsx`,
		RunE: func(cmd *cobra.Command, args []string) error {
			output := NewOutput(cmd)
			ctx := cmd.Context()
			logger := logging.WithOperation(logging.FromContext(ctx), "risk")

			snapshotPath, _ := cmd.Flags().GetString("snapshot")
			holdings, _ := cmd.Flags().GetBool("holdings")
			savePath, _ := cmd.Flags().GetString("save")
			xlsxPath, _ := cmd.Flags().GetString("xlsx")
			strict, _ := cmd.Flags().GetBool("strict")

			var src broker.SnapshotSource
			if snapshotPath != "" {
				src = broker.NewFileSource(snapshotPath)
			} else {
				live, err := app.liveSource(app, holdings)
				if err != nil {
					return err
				}
				src = live
			}

			snap, err := broker.Fetch(ctx, src)
			if err != nil {
				return err
			}
			if savePath != "" {
				if err := broker.WriteSnapshot(savePath, snap); err != nil {
					return err
				}
				logger.Info().Str("path", savePath).Msg("Snapshot saved")
			}

			capital := snap.Capital
			if cmd.Flags().Changed("capital") {
				capital, _ = cmd.Flags().GetFloat64("capital")
			} else if !(capital > 0) {
				capital = app.Config.Risk.DefaultCapital
			}

			opts := app.Config.RiskOptions(logger)
			if cmd.Flags().Changed("full-cover-zero") {
				opts.FullCoverTreatedAsZero, _ = cmd.Flags().GetBool("full-cover-zero")
			}
			pr := risk.NewAggregator(opts).Compute(snap.Positions, snap.GTTs, capital)

			logging.LogRiskSummary(logger, len(pr.Rows), pr.UnprotectedCount, len(pr.Diagnostics), pr.TotalRisk, pr.TotalRiskPercent)
			for _, row := range pr.Rows {
				if row.Protection() == risk.ProtectionUnprotected {
					symLogger := logging.WithSymbol(logger, row.Symbol)
					symLogger.Debug().
						Float64("quantity", row.Quantity).
						Float64("risk", row.TotalRiskValue).
						Msg("Position has no protective GTT")
				}
			}
			app.Metrics.RecordRisk(pr)

			if xlsxPath != "" {
				if err := report.WriteRiskXLSX(xlsxPath, pr); err != nil {
					return err
				}
			}

			if output.IsJSON() {
				if err := output.JSON(pr); err != nil {
					return err
				}
			} else {
				renderRisk(output, pr, capital)
				if xlsxPath != "" {
					output.Dim("Saved %s", xlsxPath)
				}
			}
			if strict {
				return pr.Err()
			}
			return nil
		},
	}

	cmd.Flags().String("snapshot", "", "Read positions and GTTs from a .json/.yaml snapshot instead of Kite")
	cmd.Flags().Float64("capital", 0, "Capital for percentages (default: snapshot capital, then risk.default_capital)")
	cmd.Flags().Bool("full-cover-zero", false, "Count a position as risk free when one GTT covers its whole quantity")
	cmd.Flags().Bool("holdings", false, "Include delivery holdings when reading from Kite")
	cmd.Flags().String("save", "", "Save the snapshot that was read to this .json/.yaml file")
	cmd.Flags().String("xlsx", "", "Also write the risk table to this .xlsx file")
	cmd.Flags().Bool("strict", false, "Exit with an error when any position or GTT could not be read as given")

	return cmd
}

func renderRisk(output *Output, pr risk.PortfolioRisk, capital float64) {
	if len(pr.Rows) == 0 {
		output.Info("No open positions")
	} else {
		table := NewTable(output,
			"Symbol", "Qty", "Avg", "Value", "Size", "Covering GTTs", "Uncovered", "Risk", "Risk/Pos", "Risk/Cap", "Status",
		).AlignRight(2, 3, 4, 5, 7, 8, 9, 10)
		for _, r := range pr.Rows {
			symbol := r.Symbol
			if symbol == "" {
				symbol = "?"
			}
			table.AddRow(
				symbol,
				FormatQuantity(r.Quantity),
				FormatPrice(r.AveragePrice),
				FormatIndianCurrency(r.PositionValue),
				r.PosSizePercent,
				r.CoveringOrders,
				FormatQuantity(r.UncoveredQuantity),
				FormatIndianCurrency(r.TotalRiskValue),
				r.RiskPercentOfPosition,
				r.RiskPercentOfCapital,
				protectionLabel(output, r.Protection()),
			)
		}
		table.AddFooter("Total", "", "", FormatIndianCurrency(pr.TotalPositionValue), "", "", "",
			FormatIndianCurrency(pr.TotalRisk), "", pr.TotalRiskPercent, "")
		table.Render()
	}

	output.Printf("Capital: %s  |  At risk: %s (%s)  |  Unprotected: %d\n",
		FormatIndianCurrency(capital), FormatIndianCurrency(pr.TotalRisk), pr.TotalRiskPercent, pr.UnprotectedCount)

	if len(pr.Diagnostics) > 0 {
		output.Warning("%d record(s) skipped or degraded:", len(pr.Diagnostics))
		for _, d := range pr.Diagnostics {
			output.Dim("  %s", d.String())
		}
	}
}

func protectionLabel(output *Output, p string) string {
	switch p {
	case risk.ProtectionCovered:
		return output.Green(p)
	case risk.ProtectionPartial:
		return output.Yellow(p)
	case risk.ProtectionUnprotected, risk.ProtectionError:
		return output.Red(p)
	}
	return p
}

func zerodhaSource(app *App, holdings bool) (broker.SnapshotSource, error) {
	b := app.Config.Broker
	src, err := broker.NewZerodhaSource(broker.ZerodhaConfig{
		APIKey:            b.APIKey,
		AccessToken:       b.AccessToken,
		SessionFile:       app.Config.SessionFilePath(),
		RequestsPerSecond: b.RequestsPerSecond,
		MaxRetries:        b.MaxRetries,
		IncludeHoldings:   holdings,
		Logger:            logging.WithOperation(app.Logger, "kite"),
	})
	if err != nil {
		return nil, fmt.Errorf("%w (or pass --snapshot FILE)", err)
	}
	return src, nil
}
