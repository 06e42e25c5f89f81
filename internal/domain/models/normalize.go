package models

import (
	"math"
	"sort"
	"strconv"
)

// Upstream providers disagree on the timestamp field name; both are accepted.
var timestampFields = [...]string{"ts", "time"}

// NormalizeBar validates and coerces an arbitrary bar-like object into a
// CandleRecord. A rejected record returns ok=false and is meant to be
// dropped, never raised as a fatal error.
//
// Validation is intentionally permissive: open/close are allowed outside
// the [low, high] range as long as high >= low, because upstream sources
// emit such candles routinely and over-rejecting loses more than it
// protects.
func NormalizeBar(raw map[string]any) (CandleRecord, bool) {
	var rec CandleRecord

	ts, ok := resolveTimestamp(raw)
	if !ok {
		return rec, false
	}

	open, ok := numericField(raw, "open")
	if !ok {
		return rec, false
	}
	high, ok := numericField(raw, "high")
	if !ok {
		return rec, false
	}
	low, ok := numericField(raw, "low")
	if !ok {
		return rec, false
	}
	closeP, ok := numericField(raw, "close")
	if !ok {
		return rec, false
	}

	if open <= 0 || high <= 0 || low <= 0 || closeP <= 0 {
		return rec, false
	}
	if high < low {
		return rec, false
	}

	rec = CandleRecord{
		Timestamp: int64(ts),
		Open:      open,
		High:      high,
		Low:       low,
		Close:     closeP,
	}
	if v, ok := asNumber(raw["volume"]); ok && isFinite(v) && v >= 0 {
		rec.Volume = v
	}
	return rec, true
}

// NormalizeBatch normalizes a slice of raw bars, dropping rejects,
// deduplicating by timestamp (last occurrence wins) and sorting ascending.
func NormalizeBatch(raw []map[string]any) []CandleRecord {
	byTS := make(map[int64]CandleRecord, len(raw))
	for _, r := range raw {
		if rec, ok := NormalizeBar(r); ok {
			byTS[rec.Timestamp] = rec
		}
	}
	out := make([]CandleRecord, 0, len(byTS))
	for _, rec := range byTS {
		out = append(out, rec)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Timestamp < out[j].Timestamp })
	return out
}

func resolveTimestamp(raw map[string]any) (float64, bool) {
	for _, field := range timestampFields {
		if v, ok := asNumber(raw[field]); ok && isFinite(v) {
			return v, true
		}
	}
	return 0, false
}

func numericField(raw map[string]any, field string) (float64, bool) {
	v, ok := asNumber(raw[field])
	if !ok || !isFinite(v) {
		return 0, false
	}
	return v, true
}

// asNumber coerces the value shapes JSON decoding can produce. Some
// providers quote their numbers, so numeric strings are accepted too.
func asNumber(v any) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, true
	case float32:
		return float64(n), true
	case int:
		return float64(n), true
	case int64:
		return float64(n), true
	case string:
		f, err := strconv.ParseFloat(n, 64)
		if err != nil {
			return 0, false
		}
		return f, true
	default:
		return 0, false
	}
}

func isFinite(f float64) bool {
	return !math.IsNaN(f) && !math.IsInf(f, 0)
}
