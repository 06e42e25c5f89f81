package models

import (
	"math"
	"testing"
)

func validBar() map[string]any {
	return map[string]any{
		"ts": float64(1700000000), "open": 10.0, "high": 12.0, "low": 9.0, "close": 11.0,
	}
}

func TestNormalizeBarValid(t *testing.T) {
	rec, ok := NormalizeBar(validBar())
	if !ok {
		t.Fatal("NormalizeBar() rejected a valid bar")
	}
	if rec.Timestamp != 1700000000 {
		t.Errorf("Timestamp = %d, want 1700000000", rec.Timestamp)
	}
	if rec.Open != 10 || rec.High != 12 || rec.Low != 9 || rec.Close != 11 {
		t.Errorf("OHLC = %v %v %v %v, want 10 12 9 11", rec.Open, rec.High, rec.Low, rec.Close)
	}
}

func TestNormalizeBarTimestampFields(t *testing.T) {
	// "time" is the alternate field name; numeric strings are accepted.
	bar := validBar()
	delete(bar, "ts")
	bar["time"] = "1700000060"

	rec, ok := NormalizeBar(bar)
	if !ok {
		t.Fatal("NormalizeBar() rejected alternate timestamp field")
	}
	if rec.Timestamp != 1700000060 {
		t.Errorf("Timestamp = %d, want 1700000060", rec.Timestamp)
	}
}

func TestNormalizeBarRejects(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(map[string]any)
	}{
		{"missing timestamp", func(m map[string]any) { delete(m, "ts") }},
		{"null close", func(m map[string]any) { m["close"] = nil }},
		{"string garbage", func(m map[string]any) { m["open"] = "abc" }},
		{"nan high", func(m map[string]any) { m["high"] = math.NaN() }},
		{"infinite low", func(m map[string]any) { m["low"] = math.Inf(1) }},
		{"zero open", func(m map[string]any) { m["open"] = 0.0 }},
		{"negative close", func(m map[string]any) { m["close"] = -1.0 }},
		{"high below low", func(m map[string]any) { m["high"] = 8.0 }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			bar := validBar()
			tt.mutate(bar)
			if _, ok := NormalizeBar(bar); ok {
				t.Error("NormalizeBar() accepted, want reject")
			}
		})
	}
}

func TestNormalizeBarPermissiveOpenClose(t *testing.T) {
	// Open above high happens on real feeds and must pass through.
	bar := validBar()
	bar["open"] = 13.0

	rec, ok := NormalizeBar(bar)
	if !ok {
		t.Fatal("NormalizeBar() rejected open outside [low, high]")
	}
	if rec.Open != 13 {
		t.Errorf("Open = %v, want 13 preserved", rec.Open)
	}
}

func TestNormalizeBarVolume(t *testing.T) {
	bar := validBar()
	rec, _ := NormalizeBar(bar)
	if rec.Volume != 0 {
		t.Errorf("Volume = %v, want 0 when absent", rec.Volume)
	}

	bar["volume"] = 3.5
	rec, _ = NormalizeBar(bar)
	if rec.Volume != 3.5 {
		t.Errorf("Volume = %v, want 3.5", rec.Volume)
	}

	// Bad volume does not reject the bar.
	bar["volume"] = -1.0
	rec, ok := NormalizeBar(bar)
	if !ok {
		t.Fatal("NormalizeBar() rejected bar over bad volume")
	}
	if rec.Volume != 0 {
		t.Errorf("Volume = %v, want 0 for negative input", rec.Volume)
	}
}

func TestNormalizeBatchDedupesAndSorts(t *testing.T) {
	raw := []map[string]any{
		{"ts": float64(300), "open": 1.0, "high": 2.0, "low": 0.5, "close": 1.5},
		{"ts": float64(100), "open": 1.0, "high": 2.0, "low": 0.5, "close": 1.5},
		{"ts": float64(300), "open": 1.0, "high": 2.0, "low": 0.5, "close": 1.9}, // duplicate, wins
		{"ts": float64(200), "open": 0.0, "high": 2.0, "low": 0.5, "close": 1.5}, // invalid
	}

	out := NormalizeBatch(raw)
	if len(out) != 2 {
		t.Fatalf("len = %d, want 2", len(out))
	}
	if out[0].Timestamp != 100 || out[1].Timestamp != 300 {
		t.Errorf("timestamps = %d, %d, want 100, 300", out[0].Timestamp, out[1].Timestamp)
	}
	if out[1].Close != 1.9 {
		t.Errorf("duplicate resolution Close = %v, want last-wins 1.9", out[1].Close)
	}
}
