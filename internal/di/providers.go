package di

import (
	"encoding/json"
	"fmt"
	"time"

	"NovaSignal/internal/domain/models"
	"NovaSignal/internal/domain/repository"
	"NovaSignal/internal/handler/api"
	"NovaSignal/internal/scheduler"
	icache "NovaSignal/internal/service/cache"
	"NovaSignal/internal/service/ratelimit"
	"NovaSignal/internal/service/stream"
	"NovaSignal/internal/service/upstream"
	"NovaSignal/internal/usecase"
	"NovaSignal/pkg/config"
	xhttp "NovaSignal/pkg/http"
	applogger "NovaSignal/pkg/logger"
	"NovaSignal/pkg/metrics"
	"NovaSignal/pkg/server"
)

// ProvideLogger creates the application logger.
func ProvideLogger(cfg *config.Config) (*applogger.Logger, error) {
	level := cfg.Logging.Level
	if level == "" {
		level = "info"
	}
	format := cfg.Logging.Format
	if format == "" {
		format = "console"
	}
	output := cfg.Logging.Output
	if output == "" {
		output = "stdout"
	}

	l, err := applogger.New(&applogger.Config{Level: level, Format: format, Output: output})
	if err != nil {
		return nil, fmt.Errorf("logger: %w", err)
	}
	return l, nil
}

// ProvideMetrics creates a Prometheus metrics recorder, or a no-op one
// when metrics are disabled.
func ProvideMetrics(cfg *config.Config) repository.Metrics {
	if !cfg.Metrics.Enabled {
		return metrics.NewNop()
	}
	return metrics.New()
}

// ProvideL2Cache creates the shared second-level cache when Redis is
// configured. A nil return means caches run in-process only.
func ProvideL2Cache(cfg *config.Config) icache.BytesCache {
	if !cfg.Cache.Redis.Enabled {
		return nil
	}
	return icache.NewRedisCache(icache.RedisConfig{
		Addr:     cfg.Cache.Redis.Addr,
		Password: cfg.Cache.Redis.Password,
		DB:       cfg.Cache.Redis.DB,
	})
}

// ProvideUpstreamClient creates the upstream REST client.
func ProvideUpstreamClient(cfg *config.Config, l *applogger.Logger, rec repository.Metrics) *upstream.Client {
	return upstream.NewClient(
		cfg.Upstream.BaseURL,
		cfg.Upstream.Provider,
		cfg.Upstream.Timeout.Std(),
		upstream.WithLogger(l),
		upstream.WithMetrics(rec),
	)
}

// ProvideHistorySource exposes the client as a history source.
func ProvideHistorySource(c *upstream.Client) repository.HistorySource { return c }

// ProvidePassthroughSource exposes the client as a passthrough source.
func ProvidePassthroughSource(c *upstream.Client) repository.PassthroughSource { return c }

// ProvideHistoryCache creates the bar-series cache.
func ProvideHistoryCache(cfg *config.Config, rec repository.Metrics, l2 icache.BytesCache) *icache.ReadThrough[[]models.CandleRecord] {
	opts := []icache.ReadThroughOption[[]models.CandleRecord]{
		icache.WithMetrics[[]models.CandleRecord](rec),
	}
	if l2 != nil {
		opts = append(opts, icache.WithL2[[]models.CandleRecord](l2))
	}
	return icache.NewReadThrough[[]models.CandleRecord]("history", cfg.Cache.HistoryTTL.Std(), opts...)
}

// ProvidePassthroughCaches creates the per-kind proxy caches.
func ProvidePassthroughCaches(cfg *config.Config, rec repository.Metrics, l2 icache.BytesCache) usecase.PassthroughCaches {
	newCache := func(name string, ttl time.Duration) *icache.ReadThrough[json.RawMessage] {
		opts := []icache.ReadThroughOption[json.RawMessage]{
			icache.WithMetrics[json.RawMessage](rec),
		}
		if l2 != nil {
			opts = append(opts, icache.WithL2[json.RawMessage](l2))
		}
		return icache.NewReadThrough[json.RawMessage](name, ttl, opts...)
	}
	return usecase.PassthroughCaches{
		Indicators:  newCache("indicators", cfg.Cache.IndicatorsTTL.Std()),
		Predictions: newCache("predictions", cfg.Cache.PredictionsTTL.Std()),
		News:        newCache("news", cfg.Cache.NewsTTL.Std()),
	}
}

// ProvideStreamConfig maps config to the stream tunables.
func ProvideStreamConfig(cfg *config.Config) stream.Config {
	return stream.Config{
		MaxRetries:        cfg.Stream.MaxRetries,
		InitialDelay:      cfg.Stream.InitialDelay.Std(),
		MaxDelay:          cfg.Stream.MaxDelay.Std(),
		BackoffMultiplier: cfg.Stream.BackoffMultiplier,
		JitterRatio:       cfg.Stream.JitterRatio,
		PingInterval:      cfg.Stream.PingInterval.Std(),
		PongTimeout:       cfg.Stream.PongTimeout.Std(),
		DialTimeout:       cfg.Stream.DialTimeout.Std(),
		BufferSize:        cfg.Stream.BufferSize,
	}
}

// ProvideRegistry creates the feed registry.
func ProvideRegistry(
	cfg *config.Config,
	history repository.HistorySource,
	histCache *icache.ReadThrough[[]models.CandleRecord],
	streamCfg stream.Config,
	l *applogger.Logger,
	rec repository.Metrics,
) *usecase.Registry {
	return usecase.NewRegistry(history, histCache, streamCfg, cfg.Upstream.WSBaseURL, cfg.Upstream.Provider, l, rec)
}

// ProvidePassthrough creates the proxy usecase.
func ProvidePassthrough(source repository.PassthroughSource, caches usecase.PassthroughCaches) *usecase.Passthrough {
	return usecase.NewPassthrough(source, caches)
}

// ProvideLimiter creates the request throttle.
func ProvideLimiter() *ratelimit.Limiter { return ratelimit.New() }

// ProvideHandler creates the HTTP handler.
func ProvideHandler(
	cfg *config.Config,
	l *applogger.Logger,
	registry *usecase.Registry,
	passthrough *usecase.Passthrough,
	limiter *ratelimit.Limiter,
) xhttp.Handler {
	return api.NewSeriesHandler(l, registry, passthrough, limiter, api.RateLimitConfig{
		Enabled: cfg.RateLimit.Enabled,
		Rate:    cfg.RateLimit.Rate,
		Burst:   cfg.RateLimit.Burst,
	})
}

// ProvideRefresher creates the watchlist refresher.
func ProvideRefresher(cfg *config.Config, registry *usecase.Registry, l *applogger.Logger) *scheduler.Refresher {
	return scheduler.NewRefresher(registry, cfg.Watchlist.RefreshCron, cfg.Watchlist.Feeds, l)
}

// ProvideApp creates the application server.
func ProvideApp(
	cfg *config.Config,
	l *applogger.Logger,
	registry *usecase.Registry,
	refresher *scheduler.Refresher,
	handler xhttp.Handler,
) *server.App {
	return server.New(cfg, l, registry, refresher, handler)
}
