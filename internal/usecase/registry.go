package usecase

import (
	"sync"

	"NovaSignal/internal/domain/models"
	"NovaSignal/internal/domain/repository"
	"NovaSignal/internal/service/cache"
	"NovaSignal/internal/service/stream"
	"NovaSignal/pkg/logger"
	"NovaSignal/pkg/metrics"
)

// Registry owns every live feed, one per (symbol, market, interval).
// Feeds are created lazily on first request and kept until shutdown.
type Registry struct {
	history   repository.HistorySource
	histCache *cache.ReadThrough[[]models.CandleRecord]
	streamCfg stream.Config
	wsBase    string
	provider  string
	log       *logger.Logger
	metrics   repository.Metrics

	mu    sync.Mutex
	feeds map[models.FeedKey]*SeriesFeed
}

// NewRegistry creates an empty feed registry.
func NewRegistry(
	history repository.HistorySource,
	histCache *cache.ReadThrough[[]models.CandleRecord],
	streamCfg stream.Config,
	wsBase, provider string,
	log *logger.Logger,
	rec repository.Metrics,
) *Registry {
	if rec == nil {
		rec = metrics.NewNop()
	}
	return &Registry{
		history:   history,
		histCache: histCache,
		streamCfg: streamCfg,
		wsBase:    wsBase,
		provider:  provider,
		log:       log,
		metrics:   rec,
		feeds:     make(map[models.FeedKey]*SeriesFeed),
	}
}

// GetOrCreate returns the feed for key, creating it on first use.
func (r *Registry) GetOrCreate(key models.FeedKey) *SeriesFeed {
	r.mu.Lock()
	defer r.mu.Unlock()

	if f, ok := r.feeds[key]; ok {
		return f
	}

	mgr := stream.NewManager(key.String(), r.streamCfg,
		stream.WithLogger(r.log),
		stream.WithMetrics(r.metrics),
	)
	f := NewSeriesFeed(key, r.history, r.histCache, mgr, r.wsBase, r.provider, r.log)
	r.feeds[key] = f

	r.log.Info("feed created", logger.String("feed", key.String()))
	return f
}

// Get returns the feed for key if it exists.
func (r *Registry) Get(key models.FeedKey) (*SeriesFeed, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	f, ok := r.feeds[key]
	return f, ok
}

// Feeds returns all live feeds.
func (r *Registry) Feeds() []*SeriesFeed {
	r.mu.Lock()
	defer r.mu.Unlock()

	out := make([]*SeriesFeed, 0, len(r.feeds))
	for _, f := range r.feeds {
		out = append(out, f)
	}
	return out
}

// Shutdown disconnects every feed.
func (r *Registry) Shutdown() {
	r.mu.Lock()
	defer r.mu.Unlock()

	for _, f := range r.feeds {
		f.Disconnect()
	}
	r.log.Info("all feeds disconnected", logger.Int("feeds", len(r.feeds)))
}
