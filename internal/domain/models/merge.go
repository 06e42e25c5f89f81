package models

import "sort"

// MergeSeries reconciles a historical batch with a live buffer into one
// deduplicated series ordered ascending by timestamp. On a timestamp
// collision the live record wins: the live feed is authoritative for the
// bars it has seen. The result is always a fresh slice; inputs are never
// mutated.
//
// Merging is idempotent and order-independent within each input; only the
// historical-vs-live precedence matters.
func MergeSeries(historical, live []CandleRecord) []CandleRecord {
	byTS := make(map[int64]CandleRecord, len(historical)+len(live))
	for _, rec := range historical {
		byTS[rec.Timestamp] = rec
	}
	for _, rec := range live {
		byTS[rec.Timestamp] = rec
	}

	out := make([]CandleRecord, 0, len(byTS))
	for _, rec := range byTS {
		out = append(out, rec)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Timestamp < out[j].Timestamp })
	return out
}
