package usecase

import (
	"context"
	"encoding/json"
	"strconv"
	"strings"

	"NovaSignal/internal/domain/models"
	"NovaSignal/internal/domain/repository"
	"NovaSignal/internal/service/cache"
)

// PassthroughCaches holds one read-through cache per proxied data kind.
// Each kind has its own freshness window; news can stay around far
// longer than indicator values.
type PassthroughCaches struct {
	Indicators  *cache.ReadThrough[json.RawMessage]
	Predictions *cache.ReadThrough[json.RawMessage]
	News        *cache.ReadThrough[json.RawMessage]
}

// Passthrough serves upstream payloads through per-kind caches.
type Passthrough struct {
	source repository.PassthroughSource
	caches PassthroughCaches
}

// NewPassthrough wires the proxy usecase.
func NewPassthrough(source repository.PassthroughSource, caches PassthroughCaches) *Passthrough {
	return &Passthrough{source: source, caches: caches}
}

// Indicators returns cached or freshly fetched indicator series.
func (p *Passthrough) Indicators(ctx context.Context, req models.IndicatorsRequest) (json.RawMessage, error) {
	key := cache.KeyWithParams("indicators", map[string]string{
		"symbol":   req.Symbol,
		"market":   req.Market,
		"interval": strconv.Itoa(req.Interval),
		"limit":    strconv.Itoa(req.Limit),
	})
	return p.caches.Indicators.GetOrFetch(ctx, key, func(ctx context.Context) (json.RawMessage, error) {
		return p.source.Indicators(ctx, req)
	})
}

// Predict returns cached or freshly fetched predictions.
func (p *Passthrough) Predict(ctx context.Context, req models.PredictRequest) (json.RawMessage, error) {
	key := cache.KeyWithParams("predictions", map[string]string{
		"symbol":   req.Symbol,
		"market":   req.Market,
		"interval": strconv.Itoa(req.Interval),
		"horizons": strings.Join(req.Horizons, ","),
		"lookback": strconv.Itoa(req.Lookback),
	})
	return p.caches.Predictions.GetOrFetch(ctx, key, func(ctx context.Context) (json.RawMessage, error) {
		return p.source.Predict(ctx, req)
	})
}

// News returns cached or freshly fetched news items.
func (p *Passthrough) News(ctx context.Context, req models.NewsRequest) (json.RawMessage, error) {
	key := cache.KeyWithParams("news", map[string]string{
		"symbol": req.Symbol,
		"market": req.Market,
		"limit":  strconv.Itoa(req.Limit),
	})
	return p.caches.News.GetOrFetch(ctx, key, func(ctx context.Context) (json.RawMessage, error) {
		return p.source.News(ctx, req)
	})
}
