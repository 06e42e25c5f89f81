package upstream

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"NovaSignal/internal/domain/models"
)

func TestFetchBarsNormalizes(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/crypto/ohlc" {
			t.Errorf("path = %q, want /api/crypto/ohlc", r.URL.Path)
		}
		if got := r.URL.Query().Get("symbol"); got != "BTC-USD" {
			t.Errorf("symbol = %q, want BTC-USD", got)
		}
		w.Header().Set("Content-Type", "application/json")
		// Second bar has high < low and must be dropped; third uses the
		// alternate timestamp field and string numbers.
		w.Write([]byte(`{"ohlc":[
			{"ts":100,"open":10,"high":12,"low":9,"close":11,"volume":5},
			{"ts":160,"open":10,"high":2,"low":9,"close":11},
			{"time":"220","open":"10.5","high":"12","low":"9","close":"11"}
		]}`))
	}))
	defer srv.Close()

	c := NewClient(srv.URL, "binance", 5*time.Second)
	bars, err := c.FetchBars(context.Background(), models.HistoryRequest{
		Symbol: "BTC-USD", Market: "crypto", Interval: 1, Days: 30,
	})
	if err != nil {
		t.Fatalf("FetchBars() error = %v", err)
	}

	if len(bars) != 2 {
		t.Fatalf("len(bars) = %d, want 2", len(bars))
	}
	if bars[0].Timestamp != 100 || bars[1].Timestamp != 220 {
		t.Errorf("timestamps = %d, %d, want 100, 220", bars[0].Timestamp, bars[1].Timestamp)
	}
	if bars[1].Open != 10.5 {
		t.Errorf("bars[1].Open = %v, want 10.5", bars[1].Open)
	}
}

func TestFetchBarsUpstreamError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "upstream exploded", http.StatusBadGateway)
	}))
	defer srv.Close()

	c := NewClient(srv.URL, "binance", 5*time.Second)
	_, err := c.FetchBars(context.Background(), models.HistoryRequest{
		Symbol: "BTC-USD", Market: "crypto", Interval: 1, Days: 30,
	})
	if err == nil {
		t.Fatal("FetchBars() error = nil, want error on 502")
	}
}

func TestNewsPassthrough(t *testing.T) {
	const payload = `{"articles":[{"title":"headline"}]}`
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/news" {
			t.Errorf("path = %q, want /api/news", r.URL.Path)
		}
		if got := r.URL.Query().Get("limit"); got != "15" {
			t.Errorf("limit = %q, want 15", got)
		}
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(payload))
	}))
	defer srv.Close()

	c := NewClient(srv.URL, "binance", 5*time.Second)
	raw, err := c.News(context.Background(), models.NewsRequest{Symbol: "BTC-USD", Market: "crypto", Limit: 15})
	if err != nil {
		t.Fatalf("News() error = %v", err)
	}
	if string(raw) != payload {
		t.Errorf("News() = %s, want %s", raw, payload)
	}
}

func TestIndicatorsPostsBody(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			t.Errorf("method = %s, want POST", r.Method)
		}
		if got := r.Header.Get("Content-Type"); got != "application/json" {
			t.Errorf("content type = %q, want application/json", got)
		}
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"rsi":[1,2,3]}`))
	}))
	defer srv.Close()

	c := NewClient(srv.URL, "binance", 5*time.Second)
	raw, err := c.Indicators(context.Background(), models.IndicatorsRequest{
		Symbol: "BTC-USD", Market: "crypto", Interval: 1, Limit: 300,
	})
	if err != nil {
		t.Fatalf("Indicators() error = %v", err)
	}
	if len(raw) == 0 {
		t.Error("Indicators() returned empty payload")
	}
}
