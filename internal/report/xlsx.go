// Package report exports sizing and risk results as Excel workbooks.
package report

import (
	"github.com/xuri/excelize/v2"

	apperrors "kite-riskdesk/internal/errors"
	"kite-riskdesk/internal/models"
	"kite-riskdesk/internal/risk"
)

// Sheet names.
const (
	RiskSheet        = "Risk"
	DiagnosticsSheet = "Diagnostics"
	SizingSheet      = "Sizing"
	TargetsSheet     = "Targets"
)

var riskHeaders = []string{
	"Symbol", "Exchange", "Key", "Quantity", "Avg price", "LTP", "P&L",
	"Multiplier", "Position value", "Pos size %", "Covering orders",
	"Uncovered qty", "Risk value", "Risk % of position", "Risk % of capital",
	"Protection", "Error",
}

// WriteRiskXLSX writes the risk table, a totals row and any diagnostics to
// path.
func WriteRiskXLSX(path string, pr risk.PortfolioRisk) error {
	w := newWorkbook(RiskSheet)
	defer w.fx.Close()

	w.header(RiskSheet, riskHeaders)
	row := 2
	for _, r := range pr.Rows {
		w.row(RiskSheet, row, []any{
			r.Symbol, r.Exchange, r.Key, r.Quantity, r.AveragePrice, r.LastPrice, r.PnL,
			r.Multiplier, r.PositionValue, r.PosSizePercent, r.CoveringOrders,
			r.UncoveredQuantity, r.TotalRiskValue, r.RiskPercentOfPosition, r.RiskPercentOfCapital,
			r.Protection(), r.Error,
		})
		row++
	}

	// Totals sit under the value and risk columns.
	totals := make([]any, len(riskHeaders))
	totals[0] = "TOTAL"
	totals[8] = pr.TotalPositionValue
	totals[12] = pr.TotalRisk
	totals[14] = pr.TotalRiskPercent
	totals[15] = pr.UnprotectedCount
	w.row(RiskSheet, row, totals)
	w.bold(RiskSheet, 1, row, len(riskHeaders), row)

	if len(pr.Diagnostics) > 0 {
		w.sheet(DiagnosticsSheet)
		w.header(DiagnosticsSheet, []string{"Stage", "Index", "Leg", "Subject", "Reason"})
		for i, d := range pr.Diagnostics {
			w.row(DiagnosticsSheet, i+2, []any{d.Stage, d.Index, d.Leg, d.Subject, d.Reason})
		}
	}
	return w.save(path)
}

// WriteSizingXLSX writes one sizing result and its target ladder to path.
func WriteSizingXLSX(path string, calc *models.Calculations, targets []models.Target) error {
	if calc == nil {
		return apperrors.NewValidationError("calculations", nil, "nothing to export")
	}
	w := newWorkbook(SizingSheet)
	defer w.fx.Close()

	w.header(SizingSheet, []string{"Field", "Value"})
	summary := [][2]any{
		{"Mode", string(calc.Mode)},
		{"Regime", string(calc.Regime)},
		{"Regime factor", calc.RegimeFactor},
		{"Account balance", calc.AccountBalance},
		{"Entry price", calc.EntryPrice},
		{"Stop loss", calc.StopLoss},
		{"Risk per share", calc.RiskPerShare},
		{"Base shares", calc.BaseShares},
		{"Position size", calc.PositionSize},
		{"Total investment", calc.TotalInvestment},
		{"Portfolio %", calc.PortfolioPercentage},
		{"Risk amount", calc.RiskAmount},
		{"Risk %", calc.RiskPercentage},
		{"STT", calc.Charges.STT},
		{"Exchange charge", calc.Charges.ExchangeCharge},
		{"SEBI charge", calc.Charges.SEBICharge},
		{"GST", calc.Charges.GST},
		{"Stamp duty", calc.Charges.StampDuty},
		{"Total charges", calc.Charges.Total},
		{"Break-even price", calc.BreakEvenPrice},
	}
	for i, kv := range summary {
		w.row(SizingSheet, i+2, kv[:])
	}

	w.sheet(TargetsSheet)
	w.header(TargetsSheet, []string{"R", "Target price", "Gross profit", "Net profit", "Return %", "Portfolio gain %"})
	for i, t := range targets {
		w.row(TargetsSheet, i+2, []any{
			t.RMultiple, t.TargetPrice, t.GrossProfit, t.NetProfit, t.ReturnPercent, t.PortfolioGainPercent,
		})
	}
	return w.save(path)
}

// workbook remembers the first error so callers can write cells without
// checking each one.
type workbook struct {
	fx        *excelize.File
	headStyle int
	err       error
}

func newWorkbook(first string) *workbook {
	w := &workbook{fx: excelize.NewFile()}
	w.err = w.fx.SetSheetName(w.fx.GetSheetName(0), first)
	if w.err == nil {
		w.headStyle, w.err = w.fx.NewStyle(&excelize.Style{Font: &excelize.Font{Bold: true}})
	}
	return w
}

func (w *workbook) sheet(name string) {
	if w.err != nil {
		return
	}
	_, w.err = w.fx.NewSheet(name)
}

func (w *workbook) header(sheet string, headers []string) {
	values := make([]any, len(headers))
	for i, h := range headers {
		values[i] = h
	}
	w.row(sheet, 1, values)
	w.bold(sheet, 1, 1, len(headers), 1)
	if w.err == nil {
		w.err = w.fx.SetPanes(sheet, &excelize.Panes{Freeze: true, YSplit: 1, TopLeftCell: "A2", ActivePane: "bottomLeft"})
	}
}

func (w *workbook) row(sheet string, row int, values []any) {
	for i, v := range values {
		if w.err != nil {
			return
		}
		if v == nil {
			continue
		}
		var cell string
		if cell, w.err = excelize.CoordinatesToCellName(i+1, row); w.err == nil {
			w.err = w.fx.SetCellValue(sheet, cell, v)
		}
	}
}

func (w *workbook) bold(sheet string, col1, row1, col2, row2 int) {
	if w.err != nil {
		return
	}
	from, err := excelize.CoordinatesToCellName(col1, row1)
	if err != nil {
		w.err = err
		return
	}
	to, err := excelize.CoordinatesToCellName(col2, row2)
	if err != nil {
		w.err = err
		return
	}
	w.err = w.fx.SetCellStyle(sheet, from, to, w.headStyle)
}

func (w *workbook) save(path string) error {
	if w.err != nil {
		return apperrors.Wrap(w.err, "building workbook")
	}
	return apperrors.Wrapf(w.fx.SaveAs(path), "saving %s", path)
}
