package usecase

import (
	"context"
	"fmt"
	"sync"

	"NovaSignal/internal/domain/models"
	"NovaSignal/internal/domain/repository"
	"NovaSignal/internal/service/cache"
	"NovaSignal/internal/service/stream"
	"NovaSignal/pkg/logger"
)

// SeriesFeed reconciles one feed: cached historical bars fetched over
// REST, merged with live bars accumulated from the stream. The historical
// slice is owned here, not by the cache, so an expired cache entry never
// blanks an already loaded series.
type SeriesFeed struct {
	key      models.FeedKey
	history  repository.HistorySource
	cache    *cache.ReadThrough[[]models.CandleRecord]
	stream   *stream.Manager
	wsBase   string
	provider string
	log      *logger.Logger

	mu          sync.Mutex
	hist        []models.CandleRecord
	lastLoadErr error
}

// NewSeriesFeed wires one feed from its collaborators.
func NewSeriesFeed(
	key models.FeedKey,
	history repository.HistorySource,
	histCache *cache.ReadThrough[[]models.CandleRecord],
	mgr *stream.Manager,
	wsBase, provider string,
	log *logger.Logger,
) *SeriesFeed {
	return &SeriesFeed{
		key:      key,
		history:  history,
		cache:    histCache,
		stream:   mgr,
		wsBase:   wsBase,
		provider: provider,
		log:      log,
	}
}

// Key returns the feed identity.
func (f *SeriesFeed) Key() models.FeedKey { return f.key }

func (f *SeriesFeed) cacheKey(days int) string {
	return fmt.Sprintf("%s:days=%d", f.key, days)
}

func (f *SeriesFeed) historyRequest(days int) models.HistoryRequest {
	return models.HistoryRequest{
		Symbol:   f.key.Symbol,
		Market:   f.key.Market,
		Interval: f.key.Interval,
		Days:     days,
		Provider: f.provider,
	}
}

// Load fetches history through the cache and (re)connects the stream.
// A failed fetch keeps any previously loaded bars; the error is surfaced
// in the next Snapshot so callers can show stale data with a warning.
func (f *SeriesFeed) Load(ctx context.Context, days int) error {
	bars, err := f.cache.GetOrFetch(ctx, f.cacheKey(days), func(ctx context.Context) ([]models.CandleRecord, error) {
		return f.history.FetchBars(ctx, f.historyRequest(days))
	})

	f.mu.Lock()
	f.lastLoadErr = err
	if bars != nil {
		f.hist = bars
	}
	f.mu.Unlock()

	if err != nil {
		f.log.Warn("history load failed",
			logger.String("feed", f.key.String()),
			logger.Error(err),
		)
	}

	f.stream.SetURL(f.key.StreamURL(f.wsBase, f.provider))
	return err
}

// RefreshHistory bypasses the freshness window: it always fetches, and
// overwrites the cached entry only when the fetch succeeds. A failed
// refresh leaves the prior entry and any loaded bars untouched, so the
// scheduled refresher can never blank a feed.
func (f *SeriesFeed) RefreshHistory(ctx context.Context, days int) error {
	bars, err := f.history.FetchBars(ctx, f.historyRequest(days))

	f.mu.Lock()
	f.lastLoadErr = err
	if err == nil {
		f.hist = bars
	}
	f.mu.Unlock()

	if err != nil {
		f.log.Warn("history refresh failed",
			logger.String("feed", f.key.String()),
			logger.Error(err),
		)
		return err
	}

	f.cache.Set(f.cacheKey(days), bars)
	f.stream.SetURL(f.key.StreamURL(f.wsBase, f.provider))
	return nil
}

// Snapshot merges history with the live buffer and reports connection
// status. Live bars win on timestamp collision.
func (f *SeriesFeed) Snapshot() models.FeedSnapshot {
	f.mu.Lock()
	hist := f.hist
	loadErr := f.lastLoadErr
	f.mu.Unlock()

	st := f.stream.Status()

	snap := models.FeedSnapshot{
		Data:              models.MergeSeries(hist, f.stream.Buffer().Snapshot()),
		ConnectionStatus:  string(st.State),
		ReconnectAttempts: st.Attempts,
		IsReconnecting:    st.State == stream.StateReconnecting,
	}
	if !st.LastConnected.IsZero() {
		t := st.LastConnected
		snap.LastConnected = &t
	}
	switch {
	case loadErr != nil:
		snap.Error = loadErr.Error()
	case st.Err != nil:
		snap.Error = st.Err.Error()
	}
	return snap
}

// Reconnect manually restarts the stream and resets the retry counter.
func (f *SeriesFeed) Reconnect() {
	f.stream.Reconnect()
}

// Disconnect stops the stream without touching loaded data.
func (f *SeriesFeed) Disconnect() {
	f.stream.Disconnect()
}

// Reset disconnects and drops all state: live buffer, loaded history and
// the cache entries for this feed window.
func (f *SeriesFeed) Reset(days int) {
	f.stream.Disconnect()
	f.stream.Buffer().Reset()
	f.cache.Invalidate(f.cacheKey(days))

	f.mu.Lock()
	f.hist = nil
	f.lastLoadErr = nil
	f.mu.Unlock()
}

// Status exposes the raw stream status.
func (f *SeriesFeed) Status() stream.Status {
	return f.stream.Status()
}

// BufferStats exposes live-buffer counters for diagnostics.
func (f *SeriesFeed) BufferStats() stream.BufferStats {
	return f.stream.Buffer().Stats()
}
