package scheduler

import (
	"context"
	"time"

	"NovaSignal/internal/domain/models"
	"NovaSignal/internal/usecase"
	"NovaSignal/pkg/logger"

	"github.com/robfig/cron/v3"
)

const refreshDays = 30

// Refresher keeps watchlist feeds warm: on a cron schedule it re-fetches
// their history so interactive requests land on a fresh cache.
type Refresher struct {
	cron     *cron.Cron
	registry *usecase.Registry
	spec     string
	feeds    []models.FeedKey
	log      *logger.Logger
}

// NewRefresher builds a refresher for the configured watchlist. Invalid
// watchlist entries are skipped with a warning.
func NewRefresher(registry *usecase.Registry, spec string, watchlist []string, log *logger.Logger) *Refresher {
	feeds := make([]models.FeedKey, 0, len(watchlist))
	for _, entry := range watchlist {
		key, err := models.ParseFeedKey(entry)
		if err != nil {
			log.Warn("skipping watchlist entry", logger.String("entry", entry), logger.Error(err))
			continue
		}
		feeds = append(feeds, key)
	}

	return &Refresher{
		cron:     cron.New(),
		registry: registry,
		spec:     spec,
		feeds:    feeds,
		log:      log,
	}
}

// Prewarm loads every watchlist feed once, connecting its stream.
// Failures are logged, not fatal; the cron retries later.
func (r *Refresher) Prewarm(ctx context.Context) {
	for _, key := range r.feeds {
		feed := r.registry.GetOrCreate(key)
		if err := feed.Load(ctx, refreshDays); err != nil {
			r.log.Warn("prewarm failed", logger.String("feed", key.String()), logger.Error(err))
		}
	}
	r.log.Info("watchlist prewarmed", logger.Int("feeds", len(r.feeds)))
}

// Start schedules the periodic refresh. No-op when the watchlist is
// empty or no schedule is configured.
func (r *Refresher) Start() error {
	if r.spec == "" || len(r.feeds) == 0 {
		return nil
	}
	if _, err := r.cron.AddFunc(r.spec, r.refresh); err != nil {
		return err
	}
	r.cron.Start()
	r.log.Info("watchlist refresher started",
		logger.String("schedule", r.spec),
		logger.Int("feeds", len(r.feeds)),
	)
	return nil
}

// Stop halts the schedule and waits for a running refresh to finish.
func (r *Refresher) Stop() {
	ctx := r.cron.Stop()
	<-ctx.Done()
}

func (r *Refresher) refresh() {
	ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
	defer cancel()

	for _, key := range r.feeds {
		feed := r.registry.GetOrCreate(key)
		if err := feed.RefreshHistory(ctx, refreshDays); err != nil {
			r.log.Warn("scheduled refresh failed", logger.String("feed", key.String()), logger.Error(err))
		}
	}
}
