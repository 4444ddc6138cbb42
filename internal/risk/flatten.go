package risk

import (
	"strings"

	"kite-riskdesk/internal/fields"
	"kite-riskdesk/internal/logging"
	"kite-riskdesk/internal/models"
)

// FlattenedOrder is one child order of a conditional order group, carrying
// its parent's identity and lifecycle status.
type FlattenedOrder struct {
	Key       string           `json:"key"`
	Symbol    string           `json:"symbol"`
	Exchange  string           `json:"exchange"`
	GroupID   string           `json:"group_id"`
	Status    models.GTTStatus `json:"status"`
	Direction models.OrderSide `json:"direction"`
	Quantity  float64          `json:"quantity"`
	Price     float64          `json:"price"`
}

// FlattenConditionalOrders flattens groups with the default aliases.
func FlattenConditionalOrders(groups []fields.Record) ([]FlattenedOrder, []Diagnostic) {
	return NewAggregator(Options{}).Flatten(groups)
}

// Flatten turns conditional order groups into single exit orders. Malformed
// groups and legs are skipped and reported; they never abort the flatten.
func (a *Aggregator) Flatten(groups []fields.Record) ([]FlattenedOrder, []Diagnostic) {
	var (
		out   []FlattenedOrder
		diags []Diagnostic
	)
	skip := func(idx, leg int, subject, reason string) {
		d := Diagnostic{Stage: StageFlatten, Index: idx, Leg: leg, Subject: subject, Reason: reason}
		logging.LogSkipped(a.logger, d.Stage, idx, leg, subject, reason)
		diags = append(diags, d)
	}

	al := a.aliases
	for i, g := range groups {
		if g == nil {
			skip(i, -1, "", "group is not an object")
			continue
		}
		groupID := al.GroupID.StringOr(g, "")

		legs, ok := al.Orders.List(g)
		if !ok || len(legs) == 0 {
			skip(i, -1, groupID, "group has no orders")
			continue
		}

		var id Identity
		if cond, ok := al.Condition.Record(g); ok {
			id = identityFrom(cond, al.ConditionToken, al.ConditionSymbol, al.ConditionExchange)
		}
		if !id.HasAny() {
			// Some payloads only name the instrument on the legs.
			for _, raw := range legs {
				if leg, ok := fields.AsRecord(raw); ok {
					id.Symbol = al.Symbol.StringOr(leg, "")
					id.Exchange = al.Exchange.StringOr(leg, id.Exchange)
					if id.HasAny() {
						break
					}
				}
			}
		}
		if !id.HasAny() {
			skip(i, -1, groupID, "group has no instrument in its condition")
			continue
		}

		key := NormalizeInstrumentKey(id)
		status := models.GTTStatus(strings.ToLower(al.Status.StringOr(g, "")))
		subject := groupID
		if subject == "" {
			subject = id.Symbol
		}

		for j, raw := range legs {
			leg, ok := fields.AsRecord(raw)
			if !ok {
				skip(i, j, subject, "order is not an object")
				continue
			}

			side := models.OrderSideBuy
			if s, ok := al.OrderSide.String(leg); ok {
				if side, ok = models.ParseOrderSide(s); !ok {
					skip(i, j, subject, "unknown transaction type "+s)
					continue
				}
			}

			qty, ok := al.OrderQuantity.Float(leg)
			if !ok || qty <= 0 {
				skip(i, j, subject, "order quantity missing or not positive")
				continue
			}
			price, ok := al.OrderPrice.Float(leg)
			if !ok || price < 0 {
				skip(i, j, subject, "order price missing or negative")
				continue
			}

			out = append(out, FlattenedOrder{
				Key:       key,
				Symbol:    id.Symbol,
				Exchange:  id.Exchange,
				GroupID:   groupID,
				Status:    status,
				Direction: side,
				Quantity:  qty,
				Price:     price,
			})
		}
	}
	return out, diags
}
