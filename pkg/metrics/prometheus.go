package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Recorder implements domain.repository.Metrics using Prometheus.
type Recorder struct {
	connectionState *prometheus.GaugeVec
	reconnects      *prometheus.CounterVec
	frames          *prometheus.CounterVec
	droppedRecords  *prometheus.CounterVec
	cacheLookups    *prometheus.CounterVec
	fetchLatency    *prometheus.HistogramVec
}

// connection state gauge values; one gauge per feed, set to the ordinal
// of the current state so dashboards can graph transitions.
var stateOrdinals = map[string]float64{
	"disconnected": 0,
	"connecting":   1,
	"connected":    2,
	"reconnecting": 3,
	"error":        4,
	"failed":       5,
}

// New creates a new Prometheus metrics recorder.
func New() *Recorder {
	return &Recorder{
		connectionState: promauto.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "novasignal_connection_state",
				Help: "Current connection state ordinal per feed",
			},
			[]string{"feed"},
		),
		reconnects: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "novasignal_reconnects_total",
				Help: "Total number of scheduled reconnection attempts",
			},
			[]string{"feed"},
		),
		frames: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "novasignal_frames_total",
				Help: "Total number of stream frames received by kind",
			},
			[]string{"kind"},
		),
		droppedRecords: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "novasignal_dropped_records_total",
				Help: "Total number of records dropped during normalization",
			},
			[]string{"reason"},
		),
		cacheLookups: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "novasignal_cache_lookups_total",
				Help: "Total cache lookups by cache name and outcome",
			},
			[]string{"cache", "outcome"},
		),
		fetchLatency: promauto.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "novasignal_fetch_duration_seconds",
				Help:    "Duration of upstream fetches in seconds",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"kind"},
		),
	}
}

// RecordConnectionState records a state transition for a feed.
func (r *Recorder) RecordConnectionState(feed, state string) {
	r.connectionState.WithLabelValues(feed).Set(stateOrdinals[state])
}

// RecordReconnect records one scheduled reconnection attempt.
func (r *Recorder) RecordReconnect(feed string) {
	r.reconnects.WithLabelValues(feed).Inc()
}

// RecordFrame records one received stream frame.
func (r *Recorder) RecordFrame(kind string) {
	r.frames.WithLabelValues(kind).Inc()
}

// RecordDroppedRecord records one record rejected during normalization.
func (r *Recorder) RecordDroppedRecord(reason string) {
	r.droppedRecords.WithLabelValues(reason).Inc()
}

// RecordCacheLookup records a cache hit or miss.
func (r *Recorder) RecordCacheLookup(cache string, hit bool) {
	outcome := "miss"
	if hit {
		outcome = "hit"
	}
	r.cacheLookups.WithLabelValues(cache, outcome).Inc()
}

// RecordFetchLatency records upstream fetch latency in seconds.
func (r *Recorder) RecordFetchLatency(kind string, seconds float64) {
	r.fetchLatency.WithLabelValues(kind).Observe(seconds)
}
