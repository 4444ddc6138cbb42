package config

import (
	"fmt"
	"os"
)

const configTemplate = `# Kite Risk Desk Configuration

[fees]
# Equity delivery charges, buy side, as fractions of turnover
stt_rate = 0.001
exchange_rate = 0.0000297
sebi_rate = 0.000001
# GST applies to the exchange and SEBI charges
gst_rate = 0.18
stamp_rate = 0.00015

[sizing]
# Hard cap on risk per trade, percent of account
max_risk_percent = 10.0
# Warn above this risk per trade
warn_risk_percent = 3.0
# Hard cap on allocation per trade
max_allocation_percent = 100.0
# Warn when a position exceeds this share of the account (0 disables)
max_position_percent = 0.0

[sizing.regimes]
# Position size multiplier per market regime
confirmed_uptrend = 1.0
uptrend_under_pressure = 0.75
rally_attempt = 0.5
downtrend = 0.25

[risk]
# Treat any single GTT covering the whole quantity as zero risk,
# whatever its price
full_cover_as_zero = false
# Capital used for percentages when the broker reports none (0 = use broker)
default_capital = 0.0

# Extra field spellings for positions and GTTs, tried in order.
# Leave a key out to keep the built-in list.
[risk.aliases]
# quantity = ["quantity", "qty", "net_quantity"]
# average_price = ["average_price", "avgPrice"]

[broker]
# Kite Connect credentials. KITE_API_KEY, KITE_API_SECRET and
# KITE_ACCESS_TOKEN override these. The secret is only needed for login.
api_key = ""
api_secret = ""
access_token = ""
# JSON file with an access_token, relative to this directory
session_file = "session.json"
requests_per_second = 3
max_retries = 3

[log]
# trace, debug, info, warn, error
level = "info"
# Defaults to logs/riskdesk.log in this directory
file = ""
max_size_mb = 20
max_backups = 3
max_age_days = 14
`

func createTemplateConfig(configDir string) error {
	if err := os.MkdirAll(configDir, 0755); err != nil {
		return fmt.Errorf("creating config directory: %w", err)
	}

	path := Path(configDir)
	// Restricted: the file may hold an access token.
	if err := os.WriteFile(path, []byte(configTemplate), 0600); err != nil {
		return fmt.Errorf("writing config template: %w", err)
	}
	return nil
}

// Template returns the default config file contents.
func Template() string {
	return configTemplate
}
