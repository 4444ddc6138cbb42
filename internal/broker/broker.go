// Package broker provides the snapshot sources that feed the risk engine.
package broker

import (
	"context"

	"github.com/spf13/cast"

	"kite-riskdesk/internal/fields"
	"kite-riskdesk/internal/risk"
)

// SnapshotSource supplies the positions, pending GTT groups and capital the
// risk aggregator needs. Records keep the upstream field names.
type SnapshotSource interface {
	Positions(ctx context.Context) ([]fields.Record, error)
	ConditionalOrders(ctx context.Context) ([]fields.Record, error)
	Capital(ctx context.Context) (float64, error)
}

// Snapshot is one consistent read of a source.
type Snapshot struct {
	Capital   float64         `json:"capital" yaml:"capital"`
	Positions []fields.Record `json:"positions" yaml:"positions"`
	GTTs      []fields.Record `json:"gtts" yaml:"gtts"`
}

// Fetch reads everything from src.
func Fetch(ctx context.Context, src SnapshotSource) (*Snapshot, error) {
	positions, err := src.Positions(ctx)
	if err != nil {
		return nil, err
	}
	gtts, err := src.ConditionalOrders(ctx)
	if err != nil {
		return nil, err
	}
	capital, err := src.Capital(ctx)
	if err != nil {
		return nil, err
	}
	return &Snapshot{Capital: capital, Positions: positions, GTTs: gtts}, nil
}

var (
	quantityChain = fields.Chain{"quantity"}
	avgPriceChain = fields.Chain{"average_price"}
)

// mergePositions folds records for the same instrument into one row when
// they point the same way, so one set of GTTs is not counted twice. Records
// with opposite signs stay separate.
func mergePositions(recs []fields.Record) []fields.Record {
	out := make([]fields.Record, 0, len(recs))
	at := make(map[string]int)
	for _, rec := range recs {
		id := risk.IdentityFromRecord(rec, risk.DefaultAliases())
		if !id.HasAny() {
			out = append(out, rec)
			continue
		}
		key := risk.NormalizeInstrumentKey(id)
		i, seen := at[key]
		if !seen {
			at[key] = len(out)
			out = append(out, rec)
			continue
		}

		prev := out[i]
		q1, q2 := quantityChain.FloatOr(prev, 0), quantityChain.FloatOr(rec, 0)
		if q1 == 0 || q2 == 0 || (q1 > 0) != (q2 > 0) {
			out = append(out, rec)
			continue
		}
		a1, a2 := avgPriceChain.FloatOr(prev, 0), avgPriceChain.FloatOr(rec, 0)

		merged := make(fields.Record, len(prev))
		for k, v := range prev {
			merged[k] = v
		}
		merged["quantity"] = q1 + q2
		merged["average_price"] = (q1*a1 + q2*a2) / (q1 + q2)
		merged["pnl"] = cast.ToFloat64(prev["pnl"]) + cast.ToFloat64(rec["pnl"])
		out[i] = merged
	}
	return out
}
