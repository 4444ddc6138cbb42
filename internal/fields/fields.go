// Package fields reads values out of loosely typed upstream records.
//
// Broker payloads spell the same field several ways ("quantity", "qty",
// "net_quantity") and encode numbers as either JSON numbers or strings. A
// Chain lists the accepted spellings in priority order; adding an alias is a
// one-line change to the chain rather than another branch at the call site.
package fields

import (
	"math"
	"strings"

	"github.com/spf13/cast"
)

// Record is a decoded upstream object such as one Kite position or GTT.
type Record map[string]any

// Chain is an ordered list of field paths. A path may reach into nested
// objects with dots, e.g. "condition.tradingsymbol". The first path that
// holds a usable value wins.
type Chain []string

// Lookup returns the first present value and the path that supplied it.
// nil values and blank strings count as absent.
func (c Chain) Lookup(r Record) (any, string, bool) {
	for _, path := range c {
		if v, ok := get(r, path); ok && present(v) {
			return v, path, true
		}
	}
	return nil, "", false
}

// Float returns the first value in the chain that converts to a finite
// number. Values that are present but not numeric fall through to the next
// alias.
func (c Chain) Float(r Record) (float64, bool) {
	for _, path := range c {
		v, ok := get(r, path)
		if !ok || !present(v) {
			continue
		}
		if _, isBool := v.(bool); isBool {
			continue
		}
		f, err := cast.ToFloat64E(v)
		if err != nil || math.IsNaN(f) || math.IsInf(f, 0) {
			continue
		}
		return f, true
	}
	return 0, false
}

// NonFinite reports whether the chain has no finite value but some alias
// holds NaN or an infinity.
func (c Chain) NonFinite(r Record) bool {
	if _, ok := c.Float(r); ok {
		return false
	}
	for _, path := range c {
		v, ok := get(r, path)
		if !ok || !present(v) {
			continue
		}
		if _, isBool := v.(bool); isBool {
			continue
		}
		if f, err := cast.ToFloat64E(v); err == nil && (math.IsNaN(f) || math.IsInf(f, 0)) {
			return true
		}
	}
	return false
}

// FloatOr is Float with a default.
func (c Chain) FloatOr(r Record, def float64) float64 {
	if f, ok := c.Float(r); ok {
		return f
	}
	return def
}

// String returns the first value in the chain rendered as a trimmed,
// non-empty string. Numbers are rendered without exponent or trailing zeros.
func (c Chain) String(r Record) (string, bool) {
	for _, path := range c {
		v, ok := get(r, path)
		if !ok || !present(v) {
			continue
		}
		s, err := cast.ToStringE(v)
		if err != nil {
			continue
		}
		if s = strings.TrimSpace(s); s != "" {
			return s, true
		}
	}
	return "", false
}

// StringOr is String with a default.
func (c Chain) StringOr(r Record, def string) string {
	if s, ok := c.String(r); ok {
		return s
	}
	return def
}

// Record returns the first nested object in the chain.
func (c Chain) Record(r Record) (Record, bool) {
	for _, path := range c {
		if v, ok := get(r, path); ok {
			if rec, ok := AsRecord(v); ok {
				return rec, true
			}
		}
	}
	return nil, false
}

// List returns the first array in the chain.
func (c Chain) List(r Record) ([]any, bool) {
	for _, path := range c {
		v, ok := get(r, path)
		if !ok {
			continue
		}
		switch list := v.(type) {
		case []any:
			return list, true
		case []Record:
			out := make([]any, len(list))
			for i := range list {
				out[i] = list[i]
			}
			return out, true
		case []map[string]any:
			out := make([]any, len(list))
			for i := range list {
				out[i] = list[i]
			}
			return out, true
		}
	}
	return nil, false
}

// AsRecord converts decoded JSON/YAML objects to a Record.
func AsRecord(v any) (Record, bool) {
	switch m := v.(type) {
	case Record:
		return m, m != nil
	case map[string]any:
		return Record(m), m != nil
	case map[any]any:
		out := make(Record, len(m))
		for k, val := range m {
			key, err := cast.ToStringE(k)
			if err != nil {
				return nil, false
			}
			out[key] = val
		}
		return out, true
	}
	return nil, false
}

func get(r Record, path string) (any, bool) {
	if r == nil {
		return nil, false
	}
	cur := r
	parts := strings.Split(path, ".")
	for i, part := range parts {
		v, ok := cur[part]
		if !ok {
			return nil, false
		}
		if i == len(parts)-1 {
			return v, true
		}
		next, ok := AsRecord(v)
		if !ok {
			return nil, false
		}
		cur = next
	}
	return nil, false
}

func present(v any) bool {
	switch s := v.(type) {
	case nil:
		return false
	case string:
		return strings.TrimSpace(s) != ""
	}
	return true
}
