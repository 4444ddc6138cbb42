// Package config provides configuration management for the risk desk.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog"
	"github.com/spf13/cast"
	"github.com/spf13/viper"

	apperrors "kite-riskdesk/internal/errors"
	"kite-riskdesk/internal/fees"
	"kite-riskdesk/internal/models"
	"kite-riskdesk/internal/risk"
	"kite-riskdesk/internal/sizing"
)

// Config holds all application configuration.
type Config struct {
	Fees   fees.Schedule `mapstructure:"fees"`
	Sizing SizingConfig  `mapstructure:"sizing"`
	Risk   RiskConfig    `mapstructure:"risk"`
	Broker BrokerConfig  `mapstructure:"broker"`
	Log    LogConfig     `mapstructure:"log"`

	// Dir is the directory the config was loaded from.
	Dir string `mapstructure:"-"`
}

// SizingConfig holds position sizing limits and regime multipliers.
type SizingConfig struct {
	sizing.Limits `mapstructure:",squash"`
	Regimes       map[string]float64 `mapstructure:"regimes"`
}

// RiskConfig holds protective-order risk settings.
type RiskConfig struct {
	FullCoverAsZero bool         `mapstructure:"full_cover_as_zero"`
	DefaultCapital  float64      `mapstructure:"default_capital"`
	Aliases         risk.Aliases `mapstructure:"aliases"`
}

// BrokerConfig holds Kite Connect access settings.
type BrokerConfig struct {
	APIKey            string `mapstructure:"api_key"`
	APISecret         string `mapstructure:"api_secret"`
	AccessToken       string `mapstructure:"access_token"`
	SessionFile       string `mapstructure:"session_file"` // JSON file holding access_token
	RequestsPerSecond int    `mapstructure:"requests_per_second"`
	MaxRetries        int    `mapstructure:"max_retries"`
}

// LogConfig holds logging settings.
type LogConfig struct {
	Level      string `mapstructure:"level"`
	File       string `mapstructure:"file"`
	MaxSizeMB  int    `mapstructure:"max_size_mb"`
	MaxBackups int    `mapstructure:"max_backups"`
	MaxAgeDays int    `mapstructure:"max_age_days"`
}

// DefaultConfigDir returns the default configuration directory.
func DefaultConfigDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ".config/kite-riskdesk"
	}
	return filepath.Join(home, ".config", "kite-riskdesk")
}

// Path returns the config file path inside configDir.
func Path(configDir string) string {
	if configDir == "" {
		configDir = DefaultConfigDir()
	}
	return filepath.Join(configDir, "config.toml")
}

// Load loads configuration from the specified directory.
// If configDir is empty, uses the default config directory. A missing
// config.toml is created from the template and then read.
func Load(configDir string) (*Config, error) {
	if configDir == "" {
		configDir = DefaultConfigDir()
	}

	if err := loadDotEnv(configDir); err != nil {
		return nil, fmt.Errorf("loading .env: %w", err)
	}

	v := newViper(configDir)
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("loading config.toml: %w", err)
		}
		if err := createTemplateConfig(configDir); err != nil {
			return nil, err
		}
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("loading config.toml: %w", err)
		}
	}

	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("decoding config.toml: %w", err)
	}
	cfg.Dir = configDir

	if err := applyEnvOverrides(cfg); err != nil {
		return nil, err
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("validating config: %w", err)
	}

	return cfg, nil
}

// Default returns the built-in configuration without touching the disk.
func Default() *Config {
	v := viper.New()
	setDefaults(v)
	cfg := &Config{}
	// Defaults are plain scalars and maps; decoding them cannot fail.
	_ = v.Unmarshal(cfg)
	return cfg
}

func newViper(configDir string) *viper.Viper {
	v := viper.New()
	v.SetConfigName("config")
	v.SetConfigType("toml")
	v.AddConfigPath(configDir)
	setDefaults(v)
	return v
}

func setDefaults(v *viper.Viper) {
	f := fees.DefaultSchedule()
	v.SetDefault("fees.stt_rate", f.STTRate)
	v.SetDefault("fees.exchange_rate", f.ExchangeRate)
	v.SetDefault("fees.sebi_rate", f.SEBIRate)
	v.SetDefault("fees.gst_rate", f.GSTRate)
	v.SetDefault("fees.stamp_rate", f.StampRate)

	l := sizing.DefaultLimits()
	v.SetDefault("sizing.max_risk_percent", l.MaxRiskPercent)
	v.SetDefault("sizing.warn_risk_percent", l.WarnRiskPercent)
	v.SetDefault("sizing.max_allocation_percent", l.MaxAllocationPercent)
	v.SetDefault("sizing.max_position_percent", l.MaxPositionPercent)
	regimes := make(map[string]any)
	for r, f := range sizing.DefaultRegimeTable() {
		regimes[string(r)] = f
	}
	v.SetDefault("sizing.regimes", regimes)

	v.SetDefault("risk.full_cover_as_zero", false)
	v.SetDefault("risk.default_capital", 0.0)

	v.SetDefault("broker.requests_per_second", 3)
	v.SetDefault("broker.max_retries", 3)

	v.SetDefault("log.level", "info")
	v.SetDefault("log.max_size_mb", 20)
	v.SetDefault("log.max_backups", 3)
	v.SetDefault("log.max_age_days", 14)
}

// loadDotEnv loads .env from the config directory and the working
// directory. Variables already set in the environment are not replaced.
func loadDotEnv(configDir string) error {
	for _, path := range []string{filepath.Join(configDir, ".env"), ".env"} {
		if _, err := os.Stat(path); err != nil {
			continue
		}
		if err := godotenv.Load(path); err != nil {
			return fmt.Errorf("%s: %w", path, err)
		}
	}
	return nil
}

func applyEnvOverrides(cfg *Config) error {
	// Kite credentials
	if v := os.Getenv("KITE_API_KEY"); v != "" {
		cfg.Broker.APIKey = v
	}
	if v := os.Getenv("KITE_API_SECRET"); v != "" {
		cfg.Broker.APISecret = v
	}
	if v := os.Getenv("KITE_ACCESS_TOKEN"); v != "" {
		cfg.Broker.AccessToken = v
	}

	if v := os.Getenv("RISKDESK_CAPITAL"); v != "" {
		capital, err := cast.ToFloat64E(strings.ReplaceAll(v, ",", ""))
		if err != nil {
			return apperrors.Wrapf(apperrors.ErrConfigInvalid, "RISKDESK_CAPITAL %q", v)
		}
		cfg.Risk.DefaultCapital = capital
	}

	if v := os.Getenv("RISKDESK_LOG_LEVEL"); v != "" {
		cfg.Log.Level = v
	}
	return nil
}

// Validate validates the configuration.
func (c *Config) Validate() error {
	invalid := func(format string, args ...any) error {
		return apperrors.Wrapf(apperrors.ErrConfigInvalid, format, args...)
	}

	if err := c.Fees.Validate(); err != nil {
		return apperrors.Wrap(apperrors.ErrConfigInvalid, err.Error())
	}

	s := c.Sizing
	if s.MaxRiskPercent < 0 || s.MaxRiskPercent > 100 {
		return invalid("max_risk_percent must be between 0 and 100")
	}
	if s.WarnRiskPercent < 0 || (s.MaxRiskPercent > 0 && s.WarnRiskPercent > s.MaxRiskPercent) {
		return invalid("warn_risk_percent must be between 0 and max_risk_percent")
	}
	if s.MaxAllocationPercent < 0 || s.MaxAllocationPercent > 100 {
		return invalid("max_allocation_percent must be between 0 and 100")
	}
	if s.MaxPositionPercent < 0 || s.MaxPositionPercent > 100 {
		return invalid("max_position_percent must be between 0 and 100")
	}
	for name, f := range s.Regimes {
		if !knownRegime(models.ParseRegime(name)) {
			return invalid("unknown regime %q in [sizing.regimes]", name)
		}
		if f <= 0 || f > 1 {
			return invalid("regime %s factor must be in (0, 1], got %v", name, f)
		}
	}

	if c.Risk.DefaultCapital < 0 {
		return invalid("default_capital must be non-negative")
	}
	if c.Broker.RequestsPerSecond < 0 {
		return invalid("requests_per_second must be non-negative")
	}
	if c.Broker.MaxRetries < 0 {
		return invalid("max_retries must be non-negative")
	}
	if c.Log.Level != "" {
		if _, err := zerolog.ParseLevel(strings.ToLower(c.Log.Level)); err != nil {
			return invalid("log level %q", c.Log.Level)
		}
	}
	return nil
}

func knownRegime(r models.MarketRegime) bool {
	for _, known := range models.Regimes {
		if r == known {
			return true
		}
	}
	return false
}

// EngineConfig returns the sizing engine configuration.
func (c *Config) EngineConfig() sizing.Config {
	var regimes sizing.RegimeTable
	if len(c.Sizing.Regimes) > 0 {
		regimes = sizing.DefaultRegimeTable()
		for name, f := range c.Sizing.Regimes {
			regimes[models.ParseRegime(name)] = f
		}
	}
	return sizing.Config{
		Fees:    c.Fees,
		Limits:  c.Sizing.Limits,
		Regimes: regimes,
	}
}

// RiskOptions returns aggregator options using logger for skip diagnostics.
func (c *Config) RiskOptions(logger zerolog.Logger) risk.Options {
	return risk.Options{
		FullCoverTreatedAsZero: c.Risk.FullCoverAsZero,
		Aliases:                c.Risk.Aliases.WithDefaults(),
		Logger:                 logger,
	}
}

// SessionFilePath resolves the session file relative to the config dir.
func (c *Config) SessionFilePath() string {
	p := c.Broker.SessionFile
	if p == "" {
		p = "session.json"
	}
	if filepath.IsAbs(p) || c.Dir == "" {
		return p
	}
	return filepath.Join(c.Dir, p)
}

// LogFilePath resolves the log file, defaulting to logs/riskdesk.log in the
// config dir.
func (c *Config) LogFilePath() string {
	p := c.Log.File
	if p == "" {
		p = filepath.Join("logs", "riskdesk.log")
	}
	if filepath.IsAbs(p) || c.Dir == "" {
		return p
	}
	return filepath.Join(c.Dir, p)
}

// Redacted returns a copy safe to print, with the secret and token masked.
func (c *Config) Redacted() *Config {
	out := *c
	if out.Broker.APISecret != "" {
		out.Broker.APISecret = "********"
	}
	if out.Broker.AccessToken != "" {
		out.Broker.AccessToken = "********"
	}
	return &out
}
