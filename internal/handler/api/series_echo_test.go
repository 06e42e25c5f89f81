package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"NovaSignal/internal/domain/models"
	"NovaSignal/internal/service/cache"
	"NovaSignal/internal/service/ratelimit"
	"NovaSignal/internal/service/stream"
	"NovaSignal/internal/usecase"
	xlogger "NovaSignal/pkg/logger"

	"github.com/labstack/echo/v4"
)

type stubHistory struct {
	bars []models.CandleRecord
	err  error
}

func (s *stubHistory) FetchBars(ctx context.Context, req models.HistoryRequest) ([]models.CandleRecord, error) {
	if s.err != nil {
		return nil, s.err
	}
	return s.bars, nil
}

type stubPassthrough struct {
	payload json.RawMessage
	err     error
}

func (s *stubPassthrough) Indicators(ctx context.Context, req models.IndicatorsRequest) (json.RawMessage, error) {
	return s.payload, s.err
}

func (s *stubPassthrough) Predict(ctx context.Context, req models.PredictRequest) (json.RawMessage, error) {
	return s.payload, s.err
}

func (s *stubPassthrough) News(ctx context.Context, req models.NewsRequest) (json.RawMessage, error) {
	return s.payload, s.err
}

func newTestHandler(hist *stubHistory, pass *stubPassthrough, rl RateLimitConfig) *echo.Echo {
	histCache := cache.NewReadThrough[[]models.CandleRecord]("history", 5*time.Minute)
	// Empty stream base keeps feeds offline; these tests cover the HTTP
	// surface, not the transport.
	registry := usecase.NewRegistry(hist, histCache, stream.Config{}, "", "binance", xlogger.Nop(), nil)

	caches := usecase.PassthroughCaches{
		Indicators:  cache.NewReadThrough[json.RawMessage]("indicators", time.Minute),
		Predictions: cache.NewReadThrough[json.RawMessage]("predictions", 2*time.Minute),
		News:        cache.NewReadThrough[json.RawMessage]("news", 10*time.Minute),
	}
	passthrough := usecase.NewPassthrough(pass, caches)

	h := NewSeriesHandler(xlogger.Nop(), registry, passthrough, ratelimit.New(), rl)
	e := echo.New()
	h.RegisterRoutes(e)
	return e
}

func doRequest(e *echo.Echo, method, target string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, target, nil)
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)
	return rec
}

func TestSeriesEndpoint(t *testing.T) {
	hist := &stubHistory{bars: []models.CandleRecord{
		{Timestamp: 100, Open: 10, High: 12, Low: 9, Close: 11},
		{Timestamp: 160, Open: 11, High: 13, Low: 10, Close: 12},
	}}
	e := newTestHandler(hist, &stubPassthrough{}, RateLimitConfig{})

	rec := doRequest(e, http.MethodGet, "/api/series?symbol=BTC-USD&market=crypto")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200; body: %s", rec.Code, rec.Body.String())
	}

	var resp struct {
		Data models.FeedSnapshot `json:"data"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("unmarshal response: %v", err)
	}
	if len(resp.Data.Data) != 2 {
		t.Errorf("len(data) = %d, want 2", len(resp.Data.Data))
	}
	if resp.Data.ConnectionStatus != "disconnected" {
		t.Errorf("connectionStatus = %q, want disconnected", resp.Data.ConnectionStatus)
	}
}

func TestSeriesRequiresSymbol(t *testing.T) {
	e := newTestHandler(&stubHistory{}, &stubPassthrough{}, RateLimitConfig{})

	rec := doRequest(e, http.MethodGet, "/api/series")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200 envelope", rec.Code)
	}
	var resp struct {
		Status int `json:"status"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("unmarshal response: %v", err)
	}
	if resp.Status != http.StatusBadRequest {
		t.Errorf("envelope status = %d, want 400", resp.Status)
	}
}

func TestSeriesUpstreamFailureWithoutData(t *testing.T) {
	hist := &stubHistory{err: errors.New("upstream down")}
	e := newTestHandler(hist, &stubPassthrough{}, RateLimitConfig{})

	rec := doRequest(e, http.MethodGet, "/api/series?symbol=BTC-USD")
	var resp struct {
		Status int `json:"status"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("unmarshal response: %v", err)
	}
	if resp.Status != http.StatusBadGateway {
		t.Errorf("envelope status = %d, want 502", resp.Status)
	}
}

func TestSeriesMarketAlias(t *testing.T) {
	hist := &stubHistory{bars: []models.CandleRecord{{Timestamp: 100, Open: 1, High: 2, Low: 0.5, Close: 1}}}
	e := newTestHandler(hist, &stubPassthrough{}, RateLimitConfig{})

	// "stock" is a legacy alias and must resolve to the same feed as
	// "stocks".
	if rec := doRequest(e, http.MethodGet, "/api/series?symbol=AAPL&market=stock"); rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	rec := doRequest(e, http.MethodGet, "/api/series/status?symbol=AAPL&market=stocks")
	var resp struct {
		Data struct {
			ConnectionStatus string `json:"connectionStatus"`
			Buffer           struct {
				Capacity int `json:"Capacity"`
			} `json:"buffer"`
		} `json:"data"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("unmarshal response: %v", err)
	}
	if resp.Data.Buffer.Capacity == 0 {
		t.Error("status for aliased market did not find the existing feed")
	}
}

func TestNewsEndpoint(t *testing.T) {
	pass := &stubPassthrough{payload: json.RawMessage(`{"articles":[]}`)}
	e := newTestHandler(&stubHistory{}, pass, RateLimitConfig{})

	rec := doRequest(e, http.MethodGet, "/api/news?symbol=BTC-USD")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	var resp struct {
		Data json.RawMessage `json:"data"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("unmarshal response: %v", err)
	}
	if string(resp.Data) != `{"articles":[]}` {
		t.Errorf("data = %s, want passthrough payload", resp.Data)
	}
}

func TestThrottle(t *testing.T) {
	e := newTestHandler(&stubHistory{}, &stubPassthrough{}, RateLimitConfig{
		Enabled: true,
		Rate:    0.001,
		Burst:   2,
	})

	for i := 0; i < 2; i++ {
		if rec := doRequest(e, http.MethodGet, "/api/news?symbol=BTC-USD"); rec.Code == http.StatusTooManyRequests {
			t.Fatalf("request %d throttled within burst", i)
		}
	}
	rec := doRequest(e, http.MethodGet, "/api/news?symbol=BTC-USD")
	if rec.Code != http.StatusTooManyRequests {
		t.Errorf("status = %d, want 429 after burst", rec.Code)
	}
}
