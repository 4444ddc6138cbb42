// Package metrics records sizing and risk outcomes in Prometheus format.
//
// A CLI run is short lived, so nothing is served over HTTP. Callers collect
// into a Recorder and dump it with WriteTextfile for node_exporter's
// textfile collector.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"

	"kite-riskdesk/internal/models"
	"kite-riskdesk/internal/risk"
	"kite-riskdesk/internal/sizing"
)

// Sizing outcomes.
const (
	OutcomeSized    = "sized"
	OutcomeRejected = "rejected"
)

// Recorder owns a private registry, so tests and repeated runs never clash
// with the global one.
type Recorder struct {
	registry *prometheus.Registry

	sizingTotal     *prometheus.CounterVec
	sizingWarnings  prometheus.Counter
	riskRows        *prometheus.CounterVec
	skippedRecords  *prometheus.CounterVec
	portfolioRisk   prometheus.Gauge
	portfolioPct    prometheus.Gauge
	positionRiskPct prometheus.Histogram
}

// NewRecorder creates a Recorder with every collector registered.
func NewRecorder() *Recorder {
	r := &Recorder{
		registry: prometheus.NewRegistry(),
		sizingTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "riskdesk_sizing_total",
				Help: "Sizing requests by mode and outcome",
			},
			[]string{"mode", "outcome"},
		),
		sizingWarnings: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "riskdesk_sizing_warnings_total",
			Help: "Warnings attached to accepted sizing results",
		}),
		riskRows: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "riskdesk_risk_rows_total",
				Help: "Risk table rows by protection status",
			},
			[]string{"status"},
		),
		skippedRecords: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "riskdesk_skipped_records_total",
				Help: "Upstream records dropped or degraded, by stage",
			},
			[]string{"stage"},
		),
		portfolioRisk: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "riskdesk_portfolio_risk_value",
			Help: "Capital lost if every protective order fills, plus uncovered notional",
		}),
		portfolioPct: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "riskdesk_portfolio_risk_percent",
			Help: "Portfolio risk as a percentage of capital",
		}),
		positionRiskPct: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "riskdesk_position_risk_percent",
			Help:    "Per-position risk as a percentage of position value",
			Buckets: []float64{0, 1, 2, 5, 10, 25, 50, 100},
		}),
	}
	r.registry.MustRegister(
		r.sizingTotal,
		r.sizingWarnings,
		r.riskRows,
		r.skippedRecords,
		r.portfolioRisk,
		r.portfolioPct,
		r.positionRiskPct,
	)
	return r
}

// Registry exposes the underlying registry.
func (r *Recorder) Registry() *prometheus.Registry {
	return r.registry
}

// RecordSizing counts one sizing request.
func (r *Recorder) RecordSizing(mode models.SizingMode, res sizing.Result) {
	outcome := OutcomeSized
	if !res.OK() {
		outcome = OutcomeRejected
	}
	r.sizingTotal.WithLabelValues(string(mode), outcome).Inc()
	r.sizingWarnings.Add(float64(len(res.Warnings)))
}

// RecordRisk records one portfolio risk computation. Gauges are only set when
// the percentage is defined.
func (r *Recorder) RecordRisk(pr risk.PortfolioRisk) {
	for _, row := range pr.Rows {
		r.riskRows.WithLabelValues(row.Protection()).Inc()
		if row.Error == "" && row.PositionValue > 0 {
			r.positionRiskPct.Observe(row.TotalRiskValue / row.PositionValue * 100)
		}
	}
	for _, d := range pr.Diagnostics {
		r.skippedRecords.WithLabelValues(d.Stage).Inc()
	}
	r.portfolioRisk.Set(pr.TotalRisk)
	if pct, ok := risk.ParsePercent(pr.TotalRiskPercent); ok {
		r.portfolioPct.Set(pct)
	}
}

// WriteTextfile writes every metric to path in the text exposition format.
func (r *Recorder) WriteTextfile(path string) error {
	return prometheus.WriteToTextfile(path, r.registry)
}
