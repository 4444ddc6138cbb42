package cli

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/bytedance/sonic"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"kite-riskdesk/internal/config"
	apperrors "kite-riskdesk/internal/errors"
	"kite-riskdesk/internal/models"
	"kite-riskdesk/internal/risk"
)

func run(t *testing.T, cfg *config.Config, args ...string) (string, error) {
	t.Helper()
	if cfg == nil {
		cfg = config.Default()
	}
	cmd := NewRootCmd(cfg, zerolog.Nop())
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	cmd.SetArgs(args)
	err := cmd.Execute()
	return out.String(), err
}

func TestSize_RiskModeJSON(t *testing.T) {
	t.Parallel()

	out, err := run(t, nil, "size", "--json", "--balance", "1000000", "--risk", "0.25", "--entry", "100", "--sl", "95")
	require.NoError(t, err)

	var got sizeOutput
	require.NoError(t, sonic.UnmarshalString(out, &got))
	require.NotNil(t, got.Calculations)
	assert.Equal(t, int64(500), got.Calculations.PositionSize)
	assert.Equal(t, 2500.0, got.Calculations.RiskAmount)
	assert.Equal(t, 50000.0, got.Calculations.TotalInvestment)
	assert.Equal(t, 59.32, got.Calculations.Charges.Total)
	require.Len(t, got.Targets, 6)
	assert.Equal(t, 130.0, got.Targets[5].TargetPrice)
}

func TestSize_Downtrend(t *testing.T) {
	t.Parallel()

	out, err := run(t, nil, "size", "--json", "--balance", "1000000", "--risk", "0.25",
		"--entry", "100", "--sl", "95", "--regime", "Downtrend")
	require.NoError(t, err)

	var got sizeOutput
	require.NoError(t, sonic.UnmarshalString(out, &got))
	assert.Equal(t, int64(125), got.Calculations.PositionSize)
	assert.Equal(t, 625.0, got.Calculations.RiskAmount)
	assert.Equal(t, models.RegimeDowntrend, got.Calculations.Regime)
}

func TestSize_TextAndXLSX(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "size.xlsx")
	out, err := run(t, nil, "size", "--balance", "500000", "--alloc", "10", "--entry", "250", "--sl", "240", "--xlsx", path)
	require.NoError(t, err)

	assert.Contains(t, out, "Position: 200 shares @ 250.00")
	assert.Contains(t, out, "6R")
	assert.Contains(t, out, "Saved "+path)
	_, err = os.Stat(path)
	assert.NoError(t, err)
}

func TestSize_Rejections(t *testing.T) {
	t.Parallel()

	out, err := run(t, nil, "size", "--balance", "100000", "--risk", "1", "--entry", "100", "--sl", "105")
	assert.ErrorIs(t, err, apperrors.ErrInputValidation)
	assert.Contains(t, out, "Stop loss must be below the entry price")

	_, err = run(t, nil, "size", "--balance", "100000", "--risk", "1", "--alloc", "5", "--entry", "100", "--sl", "95")
	assert.ErrorIs(t, err, apperrors.ErrInputValidation)

	_, err = run(t, nil, "size", "--balance", "100000", "--risk", "1")
	assert.ErrorContains(t, err, "required flag")

	out, err = run(t, nil, "size", "--balance", "100000", "--risk", "1", "--entry", "inf", "--sl", "95")
	assert.ErrorIs(t, err, apperrors.ErrInputValidation)
	assert.Contains(t, out, "Entry price must be a finite number")

	_, err = run(t, nil, "size", "--balance", "+Inf", "--risk", "1", "--entry", "100", "--sl", "95")
	assert.ErrorIs(t, err, apperrors.ErrInputValidation)
}

func TestSize_BalanceFromConfig(t *testing.T) {
	t.Parallel()

	cfg := config.Default()
	cfg.Risk.DefaultCapital = 200000
	out, err := run(t, cfg, "size", "--json", "--risk", "1", "--entry", "50", "--sl", "48")
	require.NoError(t, err)

	var got sizeOutput
	require.NoError(t, sonic.UnmarshalString(out, &got))
	assert.Equal(t, int64(1000), got.Calculations.PositionSize)
}

func TestFees(t *testing.T) {
	t.Parallel()

	out, err := run(t, nil, "fees", "--json", "--price", "100", "--qty", "500")
	require.NoError(t, err)

	var got models.ChargesBreakdown
	require.NoError(t, sonic.UnmarshalString(out, &got))
	assert.Equal(t, models.ChargesBreakdown{
		STT: 50, ExchangeCharge: 1.49, SEBICharge: 0.05, GST: 0.28, StampDuty: 7.5, Total: 59.32,
	}, got)

	out, err = run(t, nil, "fees", "--price", "100", "--qty", "500")
	require.NoError(t, err)
	assert.Contains(t, out, "₹59.32")

	_, err = run(t, nil, "fees", "--price", "0", "--qty", "5")
	assert.ErrorIs(t, err, apperrors.ErrInputValidation)
	for _, price := range []string{"NaN", "inf"} {
		_, err = run(t, nil, "fees", "--price", price, "--qty", "5")
		assert.ErrorIs(t, err, apperrors.ErrInputValidation, price)
	}
}

const bookJSON = `{
	"capital": 100000,
	"positions": [
		{"tradingsymbol": "INFY", "exchange": "NSE", "quantity": 10, "average_price": 100},
		{"tradingsymbol": "TCS", "exchange": "NSE", "quantity": 2, "average_price": 500}
	],
	"gtts": [
		{"id": 1, "status": "active",
		 "condition": {"exchange": "NSE", "tradingsymbol": "INFY"},
		 "orders": [{"transaction_type": "SELL", "quantity": 10, "price": 90}]},
		{"id": 2, "status": "active", "orders": []}
	]
}`

func writeBook(t *testing.T) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "book.json")
	require.NoError(t, os.WriteFile(path, []byte(bookJSON), 0600))
	return path
}

func TestRisk_SnapshotJSON(t *testing.T) {
	t.Parallel()

	out, err := run(t, nil, "risk", "--json", "--snapshot", writeBook(t))
	require.NoError(t, err)

	var pr risk.PortfolioRisk
	require.NoError(t, sonic.UnmarshalString(out, &pr))
	require.Len(t, pr.Rows, 2)
	assert.Equal(t, 100.0, pr.Rows[0].TotalRiskValue)
	assert.Equal(t, "10@90", pr.Rows[0].CoveringOrders)
	assert.Equal(t, 1000.0, pr.Rows[1].TotalRiskValue)
	assert.Equal(t, 1100.0, pr.TotalRisk)
	assert.Equal(t, "1.10%", pr.TotalRiskPercent)
	assert.Equal(t, 1, pr.UnprotectedCount)
	require.Len(t, pr.Diagnostics, 1)
	assert.Equal(t, risk.StageFlatten, pr.Diagnostics[0].Stage)
}

func TestRisk_Strict(t *testing.T) {
	t.Parallel()

	out, err := run(t, nil, "risk", "--json", "--strict", "--snapshot", writeBook(t))
	assert.ErrorIs(t, err, apperrors.ErrMalformedRecord)
	assert.Contains(t, err.Error(), "flatten[1]")

	var pr risk.PortfolioRisk
	require.NoError(t, sonic.UnmarshalString(out, &pr), "report is still written")
	assert.Equal(t, 1100.0, pr.TotalRisk)

	clean := filepath.Join(t.TempDir(), "clean.json")
	require.NoError(t, os.WriteFile(clean, []byte(`{"positions": [{"tradingsymbol": "INFY", "quantity": 10, "average_price": 100}]}`), 0o644))
	_, err = run(t, nil, "risk", "--strict", "--snapshot", clean)
	assert.NoError(t, err)
}

func TestRisk_FlagsOverride(t *testing.T) {
	t.Parallel()

	book := writeBook(t)
	out, err := run(t, nil, "risk", "--json", "--snapshot", book, "--capital", "50000", "--full-cover-zero")
	require.NoError(t, err)

	var pr risk.PortfolioRisk
	require.NoError(t, sonic.UnmarshalString(out, &pr))
	assert.Equal(t, 0.0, pr.Rows[0].TotalRiskValue)
	assert.Equal(t, 1000.0, pr.TotalRisk)
	assert.Equal(t, "2.00%", pr.TotalRiskPercent)

	cfg := config.Default()
	cfg.Risk.FullCoverAsZero = true
	out, err = run(t, cfg, "risk", "--json", "--snapshot", book, "--full-cover-zero=false")
	require.NoError(t, err)
	require.NoError(t, sonic.UnmarshalString(out, &pr))
	assert.Equal(t, 100.0, pr.Rows[0].TotalRiskValue)
}

func TestRisk_TextSaveAndMetrics(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	saved := filepath.Join(dir, "copy.yaml")
	metricsPath := filepath.Join(dir, "riskdesk.prom")
	xlsxPath := filepath.Join(dir, "risk.xlsx")

	out, err := run(t, nil, "risk", "--snapshot", writeBook(t), "--save", saved,
		"--xlsx", xlsxPath, "--metrics-file", metricsPath)
	require.NoError(t, err)

	assert.Contains(t, out, "INFY")
	assert.Contains(t, out, "10@90")
	assert.Contains(t, out, "Unprotected: 1")
	assert.Contains(t, out, "flatten[1]")

	for _, p := range []string{saved, xlsxPath} {
		_, err := os.Stat(p)
		assert.NoError(t, err, p)
	}
	prom, err := os.ReadFile(metricsPath)
	require.NoError(t, err)
	assert.Contains(t, string(prom), "riskdesk_portfolio_risk_value 1100")
	assert.Contains(t, string(prom), `riskdesk_risk_rows_total{status="unprotected"} 1`)

	out, err = run(t, nil, "risk", "--json", "--snapshot", saved)
	require.NoError(t, err)
	var pr risk.PortfolioRisk
	require.NoError(t, sonic.UnmarshalString(out, &pr))
	assert.Equal(t, 1100.0, pr.TotalRisk)
}

func TestRisk_LiveNeedsCredentials(t *testing.T) {
	t.Parallel()

	cfg := config.Default()
	cfg.Dir = t.TempDir()
	_, err := run(t, cfg, "risk")
	assert.ErrorIs(t, err, apperrors.ErrNotAuthenticated)
	assert.ErrorContains(t, err, "--snapshot")
}

func TestConfigCommands(t *testing.T) {
	t.Parallel()

	cfg := config.Default()
	cfg.Dir = "/etc/riskdesk"
	cfg.Broker.AccessToken = "secret"

	out, err := run(t, cfg, "config", "show", "--json")
	require.NoError(t, err)
	assert.NotContains(t, out, "secret")
	assert.Contains(t, out, "********")

	out, err = run(t, cfg, "config", "show")
	require.NoError(t, err)
	assert.Contains(t, out, "downtrend:")
	assert.Contains(t, out, "0.25x")

	out, err = run(t, cfg, "config", "path")
	require.NoError(t, err)
	assert.Equal(t, "/etc/riskdesk/config.toml\n", out)

	_, err = run(t, cfg, "config", "validate")
	assert.NoError(t, err)

	bad := config.Default()
	bad.Sizing.MaxRiskPercent = 150
	_, err = run(t, bad, "config", "validate")
	assert.ErrorIs(t, err, apperrors.ErrConfigInvalid)
}

func TestVersion(t *testing.T) {
	t.Parallel()

	out, err := run(t, nil, "version")
	require.NoError(t, err)
	assert.Contains(t, out, "v"+Version)
}

