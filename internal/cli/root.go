package cli

import (
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"kite-riskdesk/internal/broker"
	"kite-riskdesk/internal/config"
	"kite-riskdesk/internal/logging"
	"kite-riskdesk/internal/metrics"
	"kite-riskdesk/internal/models"
	"kite-riskdesk/internal/sizing"
	"kite-riskdesk/pkg/utils"
)

// Version information
const (
	Version   = "0.3.0"
	BuildDate = "2026-10-01"
)

// App holds the application dependencies.
type App struct {
	Config  *config.Config
	Logger  zerolog.Logger
	RunID   string
	Metrics *metrics.Recorder

	// liveSource and authenticator reach Kite; tests replace them.
	liveSource    func(app *App, holdings bool) (broker.SnapshotSource, error)
	authenticator func(app *App) (authenticator, error)
}

// NewRootCmd creates the root command for the CLI. A nil cfg is loaded from
// the --config directory before any command runs, and the logger is then
// rebuilt from its [log] section.
func NewRootCmd(cfg *config.Config, logger zerolog.Logger) *cobra.Command {
	return newRootCmd(&App{
		Config:        cfg,
		Logger:        logger,
		liveSource:    zerodhaSource,
		authenticator: kiteAuthenticator,
	})
}

func newRootCmd(app *App) *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "riskdesk",
		Short: "Position sizing and GTT risk desk for Zerodha Kite",
		Long: `riskdesk sizes equity delivery trades from a risk or allocation budget,
projects R-multiple targets with statutory charges, and reports how much
capital your open positions leave exposed given their pending GTT orders.

Use 'riskdesk risk --snapshot FILE' to work from a saved snapshot, or
configure Kite credentials to read positions and GTTs live.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return app.setup(cmd)
		},
		PersistentPostRunE: func(cmd *cobra.Command, args []string) error {
			path, _ := cmd.Flags().GetString("metrics-file")
			if path == "" || app.Metrics == nil {
				return nil
			}
			return app.Metrics.WriteTextfile(path)
		},
	}

	// Global flags
	rootCmd.PersistentFlags().String("config", "", "config directory (default: ~/.config/kite-riskdesk)")
	rootCmd.PersistentFlags().Bool("json", false, "output in JSON format")
	rootCmd.PersistentFlags().Bool("debug", false, "enable debug logging")
	rootCmd.PersistentFlags().String("metrics-file", "", "write Prometheus metrics to this file")

	rootCmd.AddCommand(newVersionCmd())
	rootCmd.AddCommand(newConfigCmd(app))
	rootCmd.AddCommand(newSizeCmd(app))
	rootCmd.AddCommand(newFeesCmd(app))
	rootCmd.AddCommand(newRiskCmd(app))
	addAuthCommands(rootCmd, app)

	return rootCmd
}

func (app *App) setup(cmd *cobra.Command) error {
	debug, _ := cmd.Flags().GetBool("debug")

	if app.Config == nil {
		dir, _ := cmd.Flags().GetString("config")
		cfg, err := config.Load(dir)
		if err != nil {
			return err
		}
		app.Config = cfg
		app.Logger = logging.NewLoggerWithConfig(logging.LogConfig{
			Level:      cfg.Log.Level,
			Console:    debug,
			Color:      isTerminal(cmd.ErrOrStderr()),
			File:       true,
			FilePath:   cfg.LogFilePath(),
			MaxSize:    cfg.Log.MaxSizeMB,
			MaxBackups: cfg.Log.MaxBackups,
			MaxAge:     cfg.Log.MaxAgeDays,
		})
	}
	if debug {
		app.Logger = app.Logger.Level(zerolog.DebugLevel)
	}

	app.RunID = utils.NewRunID()
	app.Logger = logging.WithRunID(app.Logger, app.RunID)
	app.Metrics = metrics.NewRecorder()
	cmd.SetContext(logging.WithLogger(cmd.Context(), app.Logger))

	app.Logger.Debug().Str("command", cmd.CommandPath()).Msg("Command started")
	return nil
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		RunE: func(cmd *cobra.Command, args []string) error {
			output := NewOutput(cmd)
			if output.IsJSON() {
				return output.JSON(map[string]string{
					"version":    Version,
					"build_date": BuildDate,
				})
			}
			output.Printf("Kite Risk Desk v%s\n", Version)
			output.Dim("Build date: %s", BuildDate)
			return nil
		},
	}
}

func newConfigCmd(app *App) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Configuration management",
		Long:  "View and validate application configuration.",
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "show",
		Short: "Show current configuration",
		RunE: func(cmd *cobra.Command, args []string) error {
			output := NewOutput(cmd)
			cfg := app.Config.Redacted()
			if output.IsJSON() {
				return output.JSON(cfg)
			}
			showConfig(output, cfg)
			return nil
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "path",
		Short: "Show configuration file path",
		RunE: func(cmd *cobra.Command, args []string) error {
			output := NewOutput(cmd)
			path := config.Path(app.Config.Dir)
			if output.IsJSON() {
				return output.JSON(map[string]string{"path": path})
			}
			output.Println(path)
			return nil
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "validate",
		Short: "Validate configuration",
		RunE: func(cmd *cobra.Command, args []string) error {
			output := NewOutput(cmd)
			if err := app.Config.Validate(); err != nil {
				output.Error("Configuration validation failed: %v", err)
				return err
			}
			if output.IsJSON() {
				return output.JSON(map[string]bool{"valid": true})
			}
			output.Success("✓ Configuration is valid")
			return nil
		},
	})

	return cmd
}

func showConfig(output *Output, cfg *config.Config) {
	output.Bold("Fees (fractions of turnover)")
	output.Printf("  STT:             %g\n", cfg.Fees.STTRate)
	output.Printf("  Exchange:        %g\n", cfg.Fees.ExchangeRate)
	output.Printf("  SEBI:            %g\n", cfg.Fees.SEBIRate)
	output.Printf("  GST:             %g\n", cfg.Fees.GSTRate)
	output.Printf("  Stamp duty:      %g\n", cfg.Fees.StampRate)
	output.Println()

	output.Bold("Sizing")
	output.Printf("  Max risk %%:      %g%%\n", cfg.Sizing.MaxRiskPercent)
	output.Printf("  Warn risk %%:     %g%%\n", cfg.Sizing.WarnRiskPercent)
	output.Printf("  Max alloc %%:     %g%%\n", cfg.Sizing.MaxAllocationPercent)
	output.Printf("  Max position %%:  %g%%\n", cfg.Sizing.MaxPositionPercent)
	regimes := cfg.EngineConfig().Regimes
	if len(regimes) == 0 {
		regimes = sizing.DefaultRegimeTable()
	}
	for _, r := range models.Regimes {
		if f, ok := regimes[r]; ok {
			output.Printf("  %-24s %s\n", r+":", FormatRatio(f))
		}
	}
	output.Println()

	output.Bold("Risk")
	output.Printf("  Full cover = 0:  %v\n", cfg.Risk.FullCoverAsZero)
	output.Printf("  Default capital: %s\n", FormatIndianCurrency(cfg.Risk.DefaultCapital))
	output.Println()

	output.Bold("Broker")
	output.Printf("  API key set:     %v\n", cfg.Broker.APIKey != "")
	output.Printf("  Access token:    %s\n", orDash(cfg.Broker.AccessToken))
	output.Printf("  Session file:    %s\n", cfg.SessionFilePath())
	output.Printf("  Rate limit:      %d req/s\n", cfg.Broker.RequestsPerSecond)
	output.Println()

	output.Bold("Logging")
	output.Printf("  Level:           %s\n", cfg.Log.Level)
	output.Printf("  File:            %s\n", cfg.LogFilePath())
}

func orDash(s string) string {
	if s == "" {
		return "-"
	}
	return s
}
