package models

import (
	"fmt"
	"net/url"
	"strconv"
	"strings"
	"time"
)

// FeedKey identifies one logical feed. Each (symbol, market, interval)
// pair is reconciled independently of every other.
type FeedKey struct {
	Symbol   string
	Market   string
	Interval int // minutes
}

func (k FeedKey) String() string {
	return fmt.Sprintf("%s:%s:%d", k.Symbol, k.Market, k.Interval)
}

// ParseFeedKey parses the "symbol:market:interval" form used in config
// watchlists.
func ParseFeedKey(s string) (FeedKey, error) {
	parts := strings.Split(s, ":")
	if len(parts) != 3 {
		return FeedKey{}, fmt.Errorf("feed key %q: want symbol:market:interval", s)
	}
	interval, err := strconv.Atoi(parts[2])
	if err != nil || interval < 1 {
		return FeedKey{}, fmt.Errorf("feed key %q: bad interval", s)
	}
	return FeedKey{Symbol: parts[0], Market: parts[1], Interval: interval}, nil
}

// StreamURL builds the websocket target for this feed. An empty base means
// "do not connect" and yields an empty URL.
func (k FeedKey) StreamURL(base, provider string) string {
	if base == "" {
		return ""
	}
	q := url.Values{}
	q.Set("symbol", k.Symbol)
	q.Set("interval", fmt.Sprintf("%d", k.Interval))
	if provider != "" {
		q.Set("provider", provider)
	}
	return fmt.Sprintf("%s/ws/%s/ohlc?%s", base, k.Market, q.Encode())
}

// HistoryRequest identifies one historical fetch against the upstream
// REST API.
type HistoryRequest struct {
	Symbol   string
	Market   string
	Interval int
	Days     int
	Provider string
}

func (r HistoryRequest) Key() FeedKey {
	return FeedKey{Symbol: r.Symbol, Market: r.Market, Interval: r.Interval}
}

// FeedSnapshot is the observable output of one feed: the merged series
// plus connection status. Field names match what the dashboard consumes.
type FeedSnapshot struct {
	Data              []CandleRecord `json:"data"`
	ConnectionStatus  string         `json:"connectionStatus"`
	ReconnectAttempts int            `json:"reconnectAttempts"`
	LastConnected     *time.Time     `json:"lastConnected,omitempty"`
	IsReconnecting    bool           `json:"isReconnecting"`
	Error             string         `json:"error,omitempty"`
}

// SeriesRequest selects a feed and a history window.
type SeriesRequest struct {
	Symbol   string `query:"symbol" json:"symbol" validate:"required,min=2,max=20"`
	Market   string `query:"market" json:"market" default:"crypto"`
	Interval int    `query:"interval" json:"interval" default:"1" validate:"gte=1,lte=1440"`
	Days     int    `query:"days" json:"days" default:"30" validate:"gte=1,lte=365"`
}

// IndicatorsRequest mirrors the upstream indicators endpoint.
type IndicatorsRequest struct {
	Symbol   string `query:"symbol" json:"symbol" validate:"required,min=2,max=20"`
	Market   string `query:"market" json:"market" default:"crypto"`
	Interval int    `query:"interval" json:"interval" default:"1" validate:"gte=1,lte=1440"`
	Limit    int    `query:"limit" json:"limit" default:"300" validate:"gte=20,lte=5000"`
}

// PredictRequest mirrors the upstream prediction endpoint.
type PredictRequest struct {
	Symbol   string   `json:"symbol" validate:"required,min=2,max=20"`
	Market   string   `json:"market" default:"crypto"`
	Interval int      `json:"interval" default:"1" validate:"gte=1,lte=1440"`
	Horizons []string `json:"horizons"`
	Lookback int      `json:"lookback" default:"500" validate:"gte=50,lte=5000"`
}

// NewsRequest selects recent news for a symbol.
type NewsRequest struct {
	Symbol string `query:"symbol" json:"symbol" validate:"required,min=2,max=20"`
	Market string `query:"market" json:"market" default:"crypto"`
	Limit  int    `query:"limit" json:"limit" default:"15" validate:"gte=1,lte=100"`
}
