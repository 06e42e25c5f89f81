package upstream

import (
	"context"
	"encoding/json"
	"fmt"
	"net/url"
	"strconv"
	"time"

	"NovaSignal/internal/domain/models"
	"NovaSignal/internal/domain/repository"
	xhttp "NovaSignal/pkg/http"
	"NovaSignal/pkg/logger"
	"NovaSignal/pkg/metrics"
)

// Client talks to the upstream market-data REST API. History responses
// are normalized before they leave this package; the passthrough
// endpoints (indicators, predictions, news) stay raw JSON because their
// shape belongs to the upstream.
type Client struct {
	baseURL  string
	provider string
	http     *xhttp.Client
	log      *logger.Logger
	metrics  repository.Metrics
}

// ClientOption configures a Client.
type ClientOption func(*Client)

// WithLogger sets the structured logger.
func WithLogger(l *logger.Logger) ClientOption {
	return func(c *Client) { c.log = l }
}

// WithMetrics sets the metrics recorder.
func WithMetrics(rec repository.Metrics) ClientOption {
	return func(c *Client) { c.metrics = rec }
}

// NewClient creates an upstream API client.
func NewClient(baseURL, provider string, timeout time.Duration, opts ...ClientOption) *Client {
	c := &Client{
		baseURL:  baseURL,
		provider: provider,
		http:     xhttp.NewClient(xhttp.WithTimeout(timeout)),
		log:      logger.Nop(),
		metrics:  metrics.NewNop(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// ohlcResponse is the upstream history payload. Bars stay loosely typed
// until normalization so one bad bar cannot fail the batch.
type ohlcResponse struct {
	OHLC []map[string]any `json:"ohlc"`
}

// FetchBars fetches and normalizes the historical series for one feed.
func (c *Client) FetchBars(ctx context.Context, req models.HistoryRequest) ([]models.CandleRecord, error) {
	start := time.Now()

	q := url.Values{}
	q.Set("symbol", req.Symbol)
	q.Set("interval", strconv.Itoa(req.Interval))
	q.Set("days", strconv.Itoa(req.Days))
	q.Set("provider", c.provider)

	var resp ohlcResponse
	err := c.http.SendAndParse(ctx, &xhttp.RequestOptions{
		Method: xhttp.MethodGet,
		URL:    fmt.Sprintf("%s/api/%s/ohlc", c.baseURL, req.Market),
		Query:  q,
	}, &resp)
	c.metrics.RecordFetchLatency("history", time.Since(start).Seconds())
	if err != nil {
		return nil, fmt.Errorf("fetch history %s: %w", req.Key(), err)
	}

	bars := models.NormalizeBatch(resp.OHLC)
	if dropped := len(resp.OHLC) - len(bars); dropped > 0 {
		c.log.Debug("history bars dropped during normalization",
			logger.String("feed", req.Key().String()),
			logger.Int("dropped", dropped),
		)
	}
	return bars, nil
}

// Indicators fetches computed indicator series for a symbol.
func (c *Client) Indicators(ctx context.Context, req models.IndicatorsRequest) (json.RawMessage, error) {
	start := time.Now()

	var raw json.RawMessage
	err := c.http.SendAndParse(ctx, &xhttp.RequestOptions{
		Method: xhttp.MethodPost,
		URL:    c.baseURL + "/api/indicators/legacy",
		Body:   req,
	}, &raw)
	c.metrics.RecordFetchLatency("indicators", time.Since(start).Seconds())
	if err != nil {
		return nil, fmt.Errorf("fetch indicators %s: %w", req.Symbol, err)
	}
	return raw, nil
}

// Predict fetches model predictions for a symbol.
func (c *Client) Predict(ctx context.Context, req models.PredictRequest) (json.RawMessage, error) {
	start := time.Now()

	var raw json.RawMessage
	err := c.http.SendAndParse(ctx, &xhttp.RequestOptions{
		Method: xhttp.MethodPost,
		URL:    c.baseURL + "/api/predict",
		Body:   req,
	}, &raw)
	c.metrics.RecordFetchLatency("predictions", time.Since(start).Seconds())
	if err != nil {
		return nil, fmt.Errorf("fetch predictions %s: %w", req.Symbol, err)
	}
	return raw, nil
}

// News fetches recent news items for a symbol.
func (c *Client) News(ctx context.Context, req models.NewsRequest) (json.RawMessage, error) {
	start := time.Now()

	q := url.Values{}
	q.Set("symbol", req.Symbol)
	q.Set("market", req.Market)
	q.Set("limit", strconv.Itoa(req.Limit))

	var raw json.RawMessage
	err := c.http.SendAndParse(ctx, &xhttp.RequestOptions{
		Method: xhttp.MethodGet,
		URL:    c.baseURL + "/api/news",
		Query:  q,
	}, &raw)
	c.metrics.RecordFetchLatency("news", time.Since(start).Seconds())
	if err != nil {
		return nil, fmt.Errorf("fetch news %s: %w", req.Symbol, err)
	}
	return raw, nil
}
