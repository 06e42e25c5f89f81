package cache

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"NovaSignal/internal/domain/repository"
	"NovaSignal/pkg/metrics"
)

// ReadThrough is a freshness-window cache in front of a fetch function.
// An entry older than the window is reported as a miss but is retained,
// so a failed refresh can still serve the previous payload. Concurrent
// misses for the same key each fetch; the upstream is expected to
// tolerate that.
type ReadThrough[T any] struct {
	name    string
	window  time.Duration
	metrics repository.Metrics
	l2      BytesCache

	// now overrides the clock in tests.
	now func() time.Time

	mu      sync.RWMutex
	entries map[string]entry[T]
}

type entry[T any] struct {
	payload   T
	fetchedAt time.Time
}

// envelope is the L2 wire form. FetchedAt travels with the payload so a
// restarted process inherits the freshness window, not a fresh one.
type envelope[T any] struct {
	Payload   T         `json:"payload"`
	FetchedAt time.Time `json:"fetchedAt"`
}

// ReadThroughOption configures a ReadThrough cache.
type ReadThroughOption[T any] func(*ReadThrough[T])

// WithL2 adds a shared second-level cache behind the in-process map.
func WithL2[T any](l2 BytesCache) ReadThroughOption[T] {
	return func(c *ReadThrough[T]) { c.l2 = l2 }
}

// WithMetrics sets the metrics recorder.
func WithMetrics[T any](rec repository.Metrics) ReadThroughOption[T] {
	return func(c *ReadThrough[T]) { c.metrics = rec }
}

// WithClock overrides the time source.
func WithClock[T any](now func() time.Time) ReadThroughOption[T] {
	return func(c *ReadThrough[T]) { c.now = now }
}

// NewReadThrough creates a named cache with the given freshness window.
func NewReadThrough[T any](name string, window time.Duration, opts ...ReadThroughOption[T]) *ReadThrough[T] {
	c := &ReadThrough[T]{
		name:    name,
		window:  window,
		metrics: metrics.NewNop(),
		now:     time.Now,
		entries: make(map[string]entry[T]),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Get returns the payload for key if it is strictly younger than the
// freshness window. An entry aged exactly the window is stale.
func (c *ReadThrough[T]) Get(key string) (T, bool) {
	c.mu.RLock()
	e, ok := c.entries[key]
	c.mu.RUnlock()

	hit := ok && c.now().Sub(e.fetchedAt) < c.window
	c.metrics.RecordCacheLookup(c.name, hit)
	if !hit {
		var zero T
		return zero, false
	}
	return e.payload, true
}

// Peek returns the payload and fetch time regardless of freshness.
func (c *ReadThrough[T]) Peek(key string) (T, time.Time, bool) {
	c.mu.RLock()
	e, ok := c.entries[key]
	c.mu.RUnlock()
	if !ok {
		var zero T
		return zero, time.Time{}, false
	}
	return e.payload, e.fetchedAt, true
}

// Set stores a payload fetched now, replacing any previous entry.
func (c *ReadThrough[T]) Set(key string, payload T) {
	fetchedAt := c.now()
	c.mu.Lock()
	c.entries[key] = entry[T]{payload: payload, fetchedAt: fetchedAt}
	c.mu.Unlock()

	if c.l2 != nil {
		if b, err := json.Marshal(envelope[T]{Payload: payload, FetchedAt: fetchedAt}); err == nil {
			_ = c.l2.SetBytes(c.l2Key(key), b, c.window)
		}
	}
}

// Invalidate removes the entry for key, forcing the next read to fetch.
func (c *ReadThrough[T]) Invalidate(key string) {
	c.mu.Lock()
	delete(c.entries, key)
	c.mu.Unlock()

	if c.l2 != nil {
		_ = c.l2.SetBytes(c.l2Key(key), nil, time.Nanosecond)
	}
}

// GetOrFetch serves a fresh entry, or fetches and caches the result.
// When the fetch fails and a stale entry exists, the stale payload is
// returned together with the error so callers can keep showing data.
func (c *ReadThrough[T]) GetOrFetch(ctx context.Context, key string, fetch func(ctx context.Context) (T, error)) (T, error) {
	if v, ok := c.Get(key); ok {
		return v, nil
	}

	if v, ok := c.fromL2(key); ok {
		return v, nil
	}

	v, err := fetch(ctx)
	if err != nil {
		if stale, _, ok := c.Peek(key); ok {
			return stale, err
		}
		var zero T
		return zero, err
	}

	c.Set(key, v)
	return v, nil
}

func (c *ReadThrough[T]) fromL2(key string) (T, bool) {
	var zero T
	if c.l2 == nil {
		return zero, false
	}
	b, ok, err := c.l2.GetBytes(c.l2Key(key))
	if err != nil || !ok || len(b) == 0 {
		return zero, false
	}
	var env envelope[T]
	if err := json.Unmarshal(b, &env); err != nil {
		return zero, false
	}
	if c.now().Sub(env.FetchedAt) >= c.window {
		return zero, false
	}

	c.mu.Lock()
	c.entries[key] = entry[T]{payload: env.Payload, fetchedAt: env.FetchedAt}
	c.mu.Unlock()
	return env.Payload, true
}

func (c *ReadThrough[T]) l2Key(key string) string {
	return Key("novasignal", c.name, key)
}
