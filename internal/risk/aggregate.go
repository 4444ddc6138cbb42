// Package risk reconciles open positions against pending GTT exit orders and
// reports how much capital each position, and the whole book, leaves
// unprotected.
package risk

import (
	"fmt"
	"math"
	"sort"
	"strconv"
	"strings"

	"github.com/rs/zerolog"

	"kite-riskdesk/internal/fields"
	"kite-riskdesk/internal/logging"
	"kite-riskdesk/internal/models"
)

// Row protection states, as reported by PositionWithRisk.Protection.
const (
	ProtectionCovered     = "covered"
	ProtectionPartial     = "partial"
	ProtectionUnprotected = "unprotected"
	ProtectionUnassessed  = "unassessed"
	ProtectionError       = "error"
)

const notAvailable = "-"

// Options configures an Aggregator.
type Options struct {
	// FullCoverTreatedAsZero zeroes a position's risk when any single
	// closing order covers its whole quantity, whatever that order's price.
	FullCoverTreatedAsZero bool
	Aliases                Aliases
	Logger                 zerolog.Logger
}

// Aggregator computes protective-order risk. It holds no mutable state and
// is safe for concurrent use.
type Aggregator struct {
	fullCoverZero bool
	aliases       Aliases
	logger        zerolog.Logger
}

// NewAggregator builds an Aggregator, filling unset aliases with defaults.
func NewAggregator(opts Options) *Aggregator {
	return &Aggregator{
		fullCoverZero: opts.FullCoverTreatedAsZero,
		aliases:       opts.Aliases.WithDefaults(),
		logger:        opts.Logger,
	}
}

// PositionWithRisk is one row of the risk table.
type PositionWithRisk struct {
	Symbol                string  `json:"symbol"`
	Exchange              string  `json:"exchange"`
	Key                   string  `json:"key"`
	Quantity              float64 `json:"quantity"`
	AveragePrice          float64 `json:"average_price"`
	LastPrice             float64 `json:"last_price"`
	PnL                   float64 `json:"pnl"`
	Multiplier            float64 `json:"multiplier"`
	PositionValue         float64 `json:"position_value"`
	PosSizePercent        string  `json:"pos_size_percent"`
	CoveringOrders        string  `json:"covering_orders"`
	UncoveredQuantity     float64 `json:"uncovered_quantity"`
	TotalRiskValue        float64 `json:"total_risk_value"`
	RiskPercentOfPosition string  `json:"risk_percent_of_position"`
	RiskPercentOfCapital  string  `json:"risk_percent_of_capital"`
	Error                 string  `json:"error,omitempty"`
}

// Protection classifies the row for summaries and metrics.
func (r PositionWithRisk) Protection() string {
	switch {
	case r.Error != "":
		return ProtectionError
	case r.RiskPercentOfPosition == notAvailable:
		return ProtectionUnassessed
	case r.UncoveredQuantity >= math.Abs(r.Quantity):
		return ProtectionUnprotected
	case r.UncoveredQuantity > 0:
		return ProtectionPartial
	}
	return ProtectionCovered
}

// PortfolioRisk is the full risk table plus its totals.
type PortfolioRisk struct {
	Rows               []PositionWithRisk `json:"rows"`
	TotalRisk          float64            `json:"total_risk"`
	TotalRiskPercent   string             `json:"total_risk_percent"`
	TotalPositionValue float64            `json:"total_position_value"`
	UnprotectedCount   int                `json:"unprotected_count"`
	Diagnostics        []Diagnostic       `json:"diagnostics,omitempty"`
}

// ComputePortfolioRisk runs a one-off aggregation.
func ComputePortfolioRisk(positions, groups []fields.Record, capital float64, opts Options) PortfolioRisk {
	return NewAggregator(opts).Compute(positions, groups, capital)
}

// Compute builds one row per position. Bad positions become placeholder rows
// and bad order groups are dropped; both are reported in Diagnostics.
func (a *Aggregator) Compute(positions, groups []fields.Record, capital float64) PortfolioRisk {
	orders, diags := a.Flatten(groups)
	book := indexActive(orders)

	out := PortfolioRisk{
		Rows:        make([]PositionWithRisk, 0, len(positions)),
		Diagnostics: diags,
	}
	for i, pos := range positions {
		row, err := a.safeRow(pos, book, capital)
		if err != "" {
			d := Diagnostic{Stage: StagePosition, Index: i, Leg: -1, Subject: row.Symbol, Reason: err}
			logging.LogSkipped(a.logger, d.Stage, i, d.Leg, d.Subject, err)
			out.Diagnostics = append(out.Diagnostics, d)
		}
		out.Rows = append(out.Rows, row)

		out.TotalRisk += row.TotalRiskValue
		out.TotalPositionValue += row.PositionValue
		if row.Error == "" && row.UncoveredQuantity > 0 {
			out.UnprotectedCount++
		}
	}
	out.TotalRiskPercent = percentOf(out.TotalRisk, capital)
	return out
}

// safeRow isolates a single position so a panic while reading it yields a
// placeholder row instead of losing the table.
func (a *Aggregator) safeRow(pos fields.Record, book orderBook, capital float64) (row PositionWithRisk, failure string) {
	defer func() {
		if r := recover(); r != nil {
			row = placeholder(row.Symbol, row.Exchange, fmt.Sprintf("position could not be evaluated: %v", r))
			failure = row.Error
		}
	}()

	if pos == nil {
		row = placeholder("", "", "position is not an object")
		return row, row.Error
	}

	al := a.aliases
	id := identityFrom(pos, al.Token, al.Symbol, al.Exchange)
	row.Symbol, row.Exchange = id.Symbol, id.Exchange
	if !id.HasAny() {
		row = placeholder("", id.Exchange, "position has no instrument token or symbol")
		return row, row.Error
	}

	if reason := badAmounts(pos, al); reason != "" {
		row = placeholder(id.Symbol, id.Exchange, reason)
		return row, row.Error
	}

	row = a.evaluate(pos, id, book, capital)
	return row, ""
}

// badAmounts rejects quantities and prices that would turn into negative or
// non-finite risk. A zero average is left to evaluate as a degenerate row.
func badAmounts(pos fields.Record, al Aliases) string {
	switch {
	case al.Quantity.NonFinite(pos):
		return "position quantity is not a finite number"
	case al.AveragePrice.NonFinite(pos):
		return "average price is not a finite number"
	}
	if avg := al.AveragePrice.FloatOr(pos, 0); avg < 0 {
		return fmt.Sprintf("average price %v is negative", avg)
	}
	return ""
}

func placeholder(symbol, exchange, reason string) PositionWithRisk {
	return PositionWithRisk{
		Symbol:                symbol,
		Exchange:              exchange,
		PosSizePercent:        notAvailable,
		CoveringOrders:        notAvailable,
		RiskPercentOfPosition: notAvailable,
		RiskPercentOfCapital:  notAvailable,
		Error:                 reason,
	}
}

func (a *Aggregator) evaluate(pos fields.Record, id Identity, book orderBook, capital float64) PositionWithRisk {
	al := a.aliases
	qty := al.Quantity.FloatOr(pos, 0)
	avg := al.AveragePrice.FloatOr(pos, 0)
	mult := al.Multiplier.FloatOr(pos, 1)
	if !(mult > 0) || math.IsInf(mult, 0) {
		mult = 1
	}

	row := PositionWithRisk{
		Symbol:       id.Symbol,
		Exchange:     id.Exchange,
		Key:          NormalizeInstrumentKey(id),
		Quantity:     qty,
		AveragePrice: avg,
		LastPrice:    al.LastPrice.FloatOr(pos, 0),
		PnL:          al.PnL.FloatOr(pos, 0),
		Multiplier:   mult,
	}

	isLong := qty > 0
	qtyAbs := math.Abs(qty)

	row.PositionValue = avg * qtyAbs * mult
	row.PosSizePercent = percentOf(row.PositionValue, capital)

	if qtyAbs == 0 || avg == 0 {
		row.CoveringOrders = notAvailable
		row.RiskPercentOfPosition = notAvailable
		row.RiskPercentOfCapital = notAvailable
		return row
	}

	covering := closingOrders(book.match(row.Key, id.Symbol), isLong)

	full := -1
	if a.fullCoverZero {
		full = fullCover(covering, qtyAbs)
	}

	switch {
	case len(covering) == 0:
		row.CoveringOrders = notAvailable
		row.UncoveredQuantity = qtyAbs
		row.TotalRiskValue = row.PositionValue
	case full >= 0:
		row.CoveringOrders = fragment(qtyAbs, covering[full].Price)
	default:
		row.CoveringOrders, row.UncoveredQuantity, row.TotalRiskValue = allocate(covering, isLong, qtyAbs, avg, mult)
	}

	row.RiskPercentOfPosition = percentOf(row.TotalRiskValue, row.PositionValue)
	row.RiskPercentOfCapital = percentOf(row.TotalRiskValue, capital)
	return row
}

// allocate walks covering orders best price first, taking as much of each as
// is still uncovered. Slices priced at or better than average cost carry no
// loss; whatever is left uncovered is charged at full notional.
func allocate(covering []FlattenedOrder, isLong bool, qtyAbs, avg, mult float64) (desc string, uncovered, risk float64) {
	sorted := make([]FlattenedOrder, len(covering))
	copy(sorted, covering)
	sort.SliceStable(sorted, func(i, j int) bool {
		if isLong {
			return sorted[i].Price > sorted[j].Price
		}
		return sorted[i].Price < sorted[j].Price
	})

	remaining := qtyAbs
	parts := make([]string, 0, len(sorted))
	for _, o := range sorted {
		if remaining <= 0 {
			break
		}
		take := math.Min(o.Quantity, remaining)
		parts = append(parts, fragment(take, o.Price))
		remaining -= take

		loss := avg - o.Price
		if !isLong {
			loss = o.Price - avg
		}
		risk += math.Max(0, loss) * take * mult
	}
	if remaining > 0 {
		risk += avg * remaining * mult
	}

	desc = notAvailable
	if len(parts) > 0 {
		desc = strings.Join(parts, ", ")
	}
	return desc, math.Max(0, remaining), risk
}

// fullCover returns the index of the first order that covers qtyAbs on its
// own, or -1.
func fullCover(covering []FlattenedOrder, qtyAbs float64) int {
	for i, o := range covering {
		if o.Quantity >= qtyAbs {
			return i
		}
	}
	return -1
}

func closingOrders(orders []FlattenedOrder, isLong bool) []FlattenedOrder {
	opened := models.OrderSideBuy
	if !isLong {
		opened = models.OrderSideSell
	}
	want := opened.Opposite()
	out := make([]FlattenedOrder, 0, len(orders))
	for _, o := range orders {
		if o.Direction == want {
			out = append(out, o)
		}
	}
	return out
}

func fragment(qty, price float64) string {
	return strconv.FormatFloat(qty, 'f', -1, 64) + "@" + strconv.FormatFloat(price, 'f', -1, 64)
}

// percentOf formats part/base as a percentage, or "-" when base is unusable.
func percentOf(part, base float64) string {
	if !(base > 0) || math.IsInf(base, 0) {
		return notAvailable
	}
	return fmt.Sprintf("%.2f%%", part/base*100)
}

// ParsePercent reads back a percentage produced by the risk table. It
// returns false for "-".
func ParsePercent(s string) (float64, bool) {
	v, err := strconv.ParseFloat(strings.TrimSuffix(strings.TrimSpace(s), "%"), 64)
	if err != nil {
		return 0, false
	}
	return v, true
}

// orderBook indexes active flattened orders by key and by lowercased symbol,
// preserving input order within each bucket.
type orderBook struct {
	byKey    map[string][]FlattenedOrder
	bySymbol map[string][]FlattenedOrder
}

func indexActive(orders []FlattenedOrder) orderBook {
	b := orderBook{
		byKey:    make(map[string][]FlattenedOrder),
		bySymbol: make(map[string][]FlattenedOrder),
	}
	for _, o := range orders {
		if !o.Status.IsActive() {
			continue
		}
		b.byKey[o.Key] = append(b.byKey[o.Key], o)
		if sym := strings.ToLower(strings.TrimSpace(o.Symbol)); sym != "" {
			b.bySymbol[sym] = append(b.bySymbol[sym], o)
		}
	}
	return b
}

// match returns the orders for key, falling back to a case-insensitive
// symbol match only when the key has none.
func (b orderBook) match(key, symbol string) []FlattenedOrder {
	if hits := b.byKey[key]; len(hits) > 0 {
		return hits
	}
	if sym := strings.ToLower(strings.TrimSpace(symbol)); sym != "" {
		return b.bySymbol[sym]
	}
	return nil
}
