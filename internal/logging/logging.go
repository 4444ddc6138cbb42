// Package logging provides structured logging functionality.
package logging

import (
	"context"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"gopkg.in/natefinch/lumberjack.v2"
)

// LogConfig holds logging configuration.
type LogConfig struct {
	Level      string
	Console    bool
	Color      bool
	File       bool
	FilePath   string
	MaxSize    int // megabytes
	MaxBackups int
	MaxAge     int // days
}

// NewLoggerWithConfig creates a new logger with the specified configuration.
// Console output goes to stderr so command output on stdout stays clean.
func NewLoggerWithConfig(cfg LogConfig) zerolog.Logger {
	return newLogger(cfg, os.Stderr)
}

func newLogger(cfg LogConfig, console io.Writer) zerolog.Logger {
	var writers []io.Writer

	if cfg.Console {
		writers = append(writers, zerolog.ConsoleWriter{
			Out:        console,
			NoColor:    !cfg.Color,
			TimeFormat: time.Kitchen,
			FormatLevel: func(i interface{}) string {
				ll, ok := i.(string)
				if !ok {
					return "???"
				}
				if !cfg.Color {
					return strings.ToUpper(ll)
				}
				switch ll {
				case "debug":
					return "\033[36mDBG\033[0m"
				case "info":
					return "\033[32mINF\033[0m"
				case "warn":
					return "\033[33mWRN\033[0m"
				case "error":
					return "\033[31mERR\033[0m"
				default:
					return ll
				}
			},
		})
	}

	// File writer with rotation
	if cfg.File && cfg.FilePath != "" {
		if err := os.MkdirAll(filepath.Dir(cfg.FilePath), 0755); err == nil {
			writers = append(writers, &lumberjack.Logger{
				Filename:   cfg.FilePath,
				MaxSize:    cfg.MaxSize,
				MaxBackups: cfg.MaxBackups,
				MaxAge:     cfg.MaxAge,
				Compress:   true,
			})
		}
	}

	var writer io.Writer
	switch len(writers) {
	case 0:
		return zerolog.Nop()
	case 1:
		writer = writers[0]
	default:
		writer = zerolog.MultiLevelWriter(writers...)
	}

	return zerolog.New(writer).
		Level(ParseLevel(cfg.Level)).
		With().
		Timestamp().
		Logger()
}

// ParseLevel maps a level name to a zerolog level, defaulting to info.
func ParseLevel(level string) zerolog.Level {
	l, err := zerolog.ParseLevel(strings.ToLower(strings.TrimSpace(level)))
	if err != nil || l == zerolog.NoLevel {
		return zerolog.InfoLevel
	}
	return l
}

// ContextKey is the type for context keys.
type ContextKey string

const (
	// LoggerKey is the context key for the logger.
	LoggerKey ContextKey = "logger"
)

// WithLogger adds a logger to the context.
func WithLogger(ctx context.Context, logger zerolog.Logger) context.Context {
	return context.WithValue(ctx, LoggerKey, logger)
}

// FromContext retrieves the logger from context.
func FromContext(ctx context.Context) zerolog.Logger {
	if logger, ok := ctx.Value(LoggerKey).(zerolog.Logger); ok {
		return logger
	}
	return zerolog.Nop()
}

// WithRunID tags every entry with the invocation's run ID.
func WithRunID(logger zerolog.Logger, runID string) zerolog.Logger {
	return logger.With().Str("run_id", runID).Logger()
}

// WithSymbol adds a symbol to the logger context.
func WithSymbol(logger zerolog.Logger, symbol string) zerolog.Logger {
	return logger.With().Str("symbol", symbol).Logger()
}

// WithOperation adds an operation name to the logger context.
func WithOperation(logger zerolog.Logger, operation string) zerolog.Logger {
	return logger.With().Str("operation", operation).Logger()
}

// LogSizing logs a completed sizing request.
func LogSizing(logger zerolog.Logger, mode, regime string, shares int64, riskAmount float64, warnings int) {
	logger.Info().
		Str("event", "sizing").
		Str("mode", mode).
		Str("regime", regime).
		Int64("shares", shares).
		Float64("risk_amount", riskAmount).
		Int("warnings", warnings).
		Msg("Position sized")
}

// LogSizingRejected logs a sizing request that failed validation.
func LogSizingRejected(logger zerolog.Logger, mode string, reasons []string) {
	logger.Warn().
		Str("event", "sizing").
		Str("mode", mode).
		Strs("reasons", reasons).
		Msg("Sizing inputs rejected")
}

// LogRiskSummary logs the totals of a risk aggregation.
func LogRiskSummary(logger zerolog.Logger, rows, unprotected, skipped int, totalRisk float64, totalRiskPercent string) {
	logger.Info().
		Str("event", "risk_summary").
		Int("rows", rows).
		Int("unprotected", unprotected).
		Int("skipped", skipped).
		Float64("total_risk", totalRisk).
		Str("total_risk_percent", totalRiskPercent).
		Msg("Portfolio risk computed")
}

// LogSkipped logs an upstream record that was dropped or degraded.
func LogSkipped(logger zerolog.Logger, stage string, index, leg int, subject, reason string) {
	logger.Debug().
		Str("event", "skipped_record").
		Str("stage", stage).
		Int("index", index).
		Int("leg", leg).
		Str("subject", subject).
		Msg(reason)
}

// LogAPICall logs an API call.
func LogAPICall(logger zerolog.Logger, method, endpoint string, duration time.Duration, err error) {
	event := logger.Debug().
		Str("event", "api_call").
		Str("method", method).
		Str("endpoint", endpoint).
		Dur("duration", duration)

	if err != nil {
		event.Str("error", MaskSecrets(err.Error())).Msg("API call failed")
	} else {
		event.Msg("API call completed")
	}
}
