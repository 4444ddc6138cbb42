package report

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	"kite-riskdesk/internal/fields"
	"kite-riskdesk/internal/models"
	"kite-riskdesk/internal/risk"
	"kite-riskdesk/internal/sizing"
)

func open(t *testing.T, path string) *excelize.File {
	t.Helper()
	fx, err := excelize.OpenFile(path)
	require.NoError(t, err)
	t.Cleanup(func() { _ = fx.Close() })
	return fx
}

func cell(t *testing.T, fx *excelize.File, sheet, ref string) string {
	t.Helper()
	v, err := fx.GetCellValue(sheet, ref)
	require.NoError(t, err)
	return v
}

func TestWriteRiskXLSX(t *testing.T) {
	t.Parallel()

	positions := []fields.Record{
		{"tradingsymbol": "INFY", "exchange": "NSE", "quantity": 10.0, "average_price": 100.0},
		{"exchange": "NSE", "quantity": 5.0},
	}
	groups := []fields.Record{
		{"id": 1, "status": "active", "condition": map[string]any{"exchange": "NSE", "tradingsymbol": "INFY"},
			"orders": []any{map[string]any{"transaction_type": "SELL", "quantity": 10.0, "price": 95.0}}},
	}
	pr := risk.ComputePortfolioRisk(positions, groups, 10000, risk.Options{})
	require.Len(t, pr.Diagnostics, 1)

	path := filepath.Join(t.TempDir(), "risk.xlsx")
	require.NoError(t, WriteRiskXLSX(path, pr))

	fx := open(t, path)
	assert.Equal(t, []string{RiskSheet, DiagnosticsSheet}, fx.GetSheetList())

	assert.Equal(t, "Symbol", cell(t, fx, RiskSheet, "A1"))
	assert.Equal(t, "INFY", cell(t, fx, RiskSheet, "A2"))
	assert.Equal(t, "10@95", cell(t, fx, RiskSheet, "K2"))
	assert.Equal(t, "50", cell(t, fx, RiskSheet, "M2"))
	assert.Equal(t, "covered", cell(t, fx, RiskSheet, "P2"))
	assert.Equal(t, "error", cell(t, fx, RiskSheet, "P3"))

	assert.Equal(t, "TOTAL", cell(t, fx, RiskSheet, "A4"))
	assert.Equal(t, "50", cell(t, fx, RiskSheet, "M4"))
	assert.Equal(t, "0.50%", cell(t, fx, RiskSheet, "O4"))

	assert.Equal(t, "position", cell(t, fx, DiagnosticsSheet, "A2"))
	assert.Equal(t, "1", cell(t, fx, DiagnosticsSheet, "B2"))
}

func TestWriteRiskXLSX_NoDiagnosticsSheetWhenClean(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "risk.xlsx")
	require.NoError(t, WriteRiskXLSX(path, risk.PortfolioRisk{TotalRiskPercent: "-"}))

	fx := open(t, path)
	assert.Equal(t, []string{RiskSheet}, fx.GetSheetList())
	assert.Equal(t, "TOTAL", cell(t, fx, RiskSheet, "A2"))
}

func TestWriteSizingXLSX(t *testing.T) {
	t.Parallel()

	res := sizing.SizePosition(models.ModeRisk, models.TradeInputs{
		AccountBalance: 100000,
		RiskPercent:    models.Percent(1),
		EntryPrice:     100,
		StopLoss:       95,
		Regime:         models.RegimeConfirmedUptrend,
	})
	require.True(t, res.OK())

	path := filepath.Join(t.TempDir(), "sizing.xlsx")
	require.NoError(t, WriteSizingXLSX(path, res.Calculations, sizing.GenerateTargets(res.Calculations)))

	fx := open(t, path)
	assert.Equal(t, []string{SizingSheet, TargetsSheet}, fx.GetSheetList())
	assert.Equal(t, "risk", cell(t, fx, SizingSheet, "B2"))
	assert.Equal(t, "Position size", cell(t, fx, SizingSheet, "A10"))
	assert.Equal(t, "200", cell(t, fx, SizingSheet, "B10"))

	assert.Equal(t, "1", cell(t, fx, TargetsSheet, "A2"))
	assert.Equal(t, "105", cell(t, fx, TargetsSheet, "B2"))
	assert.Equal(t, "6", cell(t, fx, TargetsSheet, "A7"))
	assert.Equal(t, "130", cell(t, fx, TargetsSheet, "B7"))
}

func TestWriteSizingXLSX_RequiresResult(t *testing.T) {
	t.Parallel()

	err := WriteSizingXLSX(filepath.Join(t.TempDir(), "x.xlsx"), nil, nil)
	assert.Error(t, err)
}
