package repository

import (
	"context"
	"encoding/json"

	"NovaSignal/internal/domain/models"
)

// HistorySource supplies historical bars for one feed. Implementations
// return normalized, sorted bars; callers own caching and merging.
type HistorySource interface {
	FetchBars(ctx context.Context, req models.HistoryRequest) ([]models.CandleRecord, error)
}

// PassthroughSource supplies the upstream payloads that are proxied
// without reshaping. The raw JSON belongs to the upstream; this layer
// only caches it.
type PassthroughSource interface {
	Indicators(ctx context.Context, req models.IndicatorsRequest) (json.RawMessage, error)
	Predict(ctx context.Context, req models.PredictRequest) (json.RawMessage, error)
	News(ctx context.Context, req models.NewsRequest) (json.RawMessage, error)
}

// Metrics is the observability surface the core records against.
type Metrics interface {
	RecordConnectionState(feed, state string)
	RecordReconnect(feed string)
	RecordFrame(kind string)
	RecordDroppedRecord(reason string)
	RecordCacheLookup(cache string, hit bool)
	RecordFetchLatency(kind string, seconds float64)
}
