// Merlion - Singapore Live Data Aggregation
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/merlion

// Package cache provides SourceCache, the per-source time-to-live cache that
// sits in front of every upstream fetch.
//
// Policy:
//
//   - An entry is fresh iff now - FetchedAt < TTL. Fresh entries are served
//     without I/O.
//   - A miss or an expired entry triggers exactly one fetch, shared by every
//     concurrent caller for the same key (singleflight).
//   - A failed fetch never overwrites the previous entry. If one exists it is
//     served with Stale set; only a first-ever failure is an error.
//
// A SourceCache belongs to one source. Different sources never share locks,
// so a slow fetch for one source cannot delay another.
package cache

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"golang.org/x/sync/singleflight"

	"github.com/tomtom215/merlion/internal/logging"
	"github.com/tomtom215/merlion/internal/metrics"
)

// DefaultVariant is the key used by plain, parameterless fetches.
const DefaultVariant = ""

// Entry is one cached value. Entries are replaced, never mutated.
type Entry[T any] struct {
	Value     T
	FetchedAt time.Time
	TTL       time.Duration
}

// Fresh reports whether the entry is still inside its TTL at now.
func (e *Entry[T]) Fresh(now time.Time) bool {
	return now.Sub(e.FetchedAt) < e.TTL
}

// Result is what GetOrFetch hands back on success.
type Result[T any] struct {
	Value     T
	FetchedAt time.Time

	// ServedFromCache is true when no new value was fetched by this call.
	ServedFromCache bool

	// Stale is true when the refresh failed and the previous value was
	// served instead. Cause holds the refresh error.
	Stale bool
	Cause error
}

// FetchFunc produces a new value for the cache.
type FetchFunc[T any] func(ctx context.Context) (T, error)

// SourceCache caches the values of one source.
type SourceCache[T any] struct {
	sourceID     string
	ttl          time.Duration
	fetchTimeout time.Duration
	now          func() time.Time

	mu      sync.RWMutex
	entries map[string]*Entry[T]

	group    singleflight.Group
	inflight sync.WaitGroup
	stats    stats
}

// Option configures a SourceCache.
type Option func(*options)

type options struct {
	fetchTimeout time.Duration
	now          func() time.Time
}

// WithFetchTimeout bounds each fetch independently of any caller. A fetch
// keeps running after its callers give up and still populates the cache.
// Zero means no bound beyond the caller's own context values.
func WithFetchTimeout(d time.Duration) Option {
	return func(o *options) { o.fetchTimeout = d }
}

// WithClock replaces time.Now, for tests.
func WithClock(now func() time.Time) Option {
	return func(o *options) { o.now = now }
}

// New creates the cache for sourceID with the given TTL.
func New[T any](sourceID string, ttl time.Duration, opts ...Option) *SourceCache[T] {
	o := options{now: time.Now}
	for _, opt := range opts {
		opt(&o)
	}
	return &SourceCache[T]{
		sourceID:     sourceID,
		ttl:          ttl,
		fetchTimeout: o.fetchTimeout,
		now:          o.now,
		entries:      make(map[string]*Entry[T]),
	}
}

// SourceID returns the source this cache belongs to.
func (c *SourceCache[T]) SourceID() string { return c.sourceID }

// TTL returns the configured time-to-live.
func (c *SourceCache[T]) TTL() time.Duration { return c.ttl }

// GetOrFetch returns the default variant of the source.
func (c *SourceCache[T]) GetOrFetch(ctx context.Context, fetch FetchFunc[T]) (Result[T], error) {
	return c.GetOrFetchVariant(ctx, DefaultVariant, fetch)
}

// GetOrFetchVariant is GetOrFetch for a parameterised request of the same
// source, e.g. a nearby search keyed by its rounded coordinates.
//
// If ctx ends before the shared fetch settles, the caller stops waiting and
// gets the stale value (or ctx's error); the fetch itself carries on.
func (c *SourceCache[T]) GetOrFetchVariant(ctx context.Context, variant string, fetch FetchFunc[T]) (Result[T], error) {
	if e, ok := c.lookup(variant); ok && e.Fresh(c.now()) {
		c.stats.hits.Add(1)
		metrics.CacheHits.WithLabelValues(c.sourceID).Inc()
		return Result[T]{Value: e.Value, FetchedAt: e.FetchedAt, ServedFromCache: true}, nil
	}
	c.stats.misses.Add(1)
	metrics.CacheMisses.WithLabelValues(c.sourceID).Inc()

	// Every caller, leader or waiter, is counted before it hands off, so
	// Wait also covers fetches whose callers have stopped waiting.
	leader := false
	ch := make(chan singleflight.Result, 1)
	c.inflight.Add(1)
	go func() {
		defer c.inflight.Done()
		v, err, shared := c.group.Do(variant, func() (interface{}, error) {
			leader = true
			return c.refresh(ctx, variant, fetch)
		})
		ch <- singleflight.Result{Val: v, Err: err, Shared: shared}
	}()

	select {
	case r := <-ch:
		if !leader {
			c.stats.collapsed.Add(1)
			metrics.CacheCollapsed.WithLabelValues(c.sourceID).Inc()
		}
		if r.Err != nil {
			return c.fallback(ctx, variant, r.Err)
		}
		res, _ := r.Val.(Result[T])
		if !leader {
			res.ServedFromCache = true
		}
		return res, nil
	case <-ctx.Done():
		return c.fallback(ctx, variant, ctx.Err())
	}
}

// refresh runs inside the singleflight call. It re-checks freshness so a
// caller that raced a just-finished fetch does not fetch again.
func (c *SourceCache[T]) refresh(ctx context.Context, variant string, fetch FetchFunc[T]) (Result[T], error) {
	if e, ok := c.lookup(variant); ok && e.Fresh(c.now()) {
		return Result[T]{Value: e.Value, FetchedAt: e.FetchedAt, ServedFromCache: true}, nil
	}

	fetchCtx := context.WithoutCancel(ctx)
	if c.fetchTimeout > 0 {
		var cancel context.CancelFunc
		fetchCtx, cancel = context.WithTimeout(fetchCtx, c.fetchTimeout)
		defer cancel()
	}

	c.stats.fetches.Add(1)
	v, err := fetch(fetchCtx)
	if err != nil {
		c.stats.fetchErrors.Add(1)
		return Result[T]{}, err
	}

	e := &Entry[T]{Value: v, FetchedAt: c.now(), TTL: c.ttl}
	c.mu.Lock()
	c.entries[variant] = e
	c.mu.Unlock()

	return Result[T]{Value: v, FetchedAt: e.FetchedAt}, nil
}

// fallback serves the last known value after a failed or abandoned fetch.
func (c *SourceCache[T]) fallback(ctx context.Context, variant string, cause error) (Result[T], error) {
	e, ok := c.lookup(variant)
	if !ok {
		return Result[T]{}, cause
	}

	c.stats.staleServed.Add(1)
	metrics.CacheStaleServed.WithLabelValues(c.sourceID).Inc()
	logging.Ctx(ctx).Warn().
		Err(cause).
		Str("source", c.sourceID).
		Dur("age", c.now().Sub(e.FetchedAt)).
		Msg("Refresh failed, serving stale value")

	return Result[T]{
		Value:           e.Value,
		FetchedAt:       e.FetchedAt,
		ServedFromCache: true,
		Stale:           true,
		Cause:           cause,
	}, nil
}

func (c *SourceCache[T]) lookup(variant string) (*Entry[T], bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	e, ok := c.entries[variant]
	return e, ok
}

// Peek returns the cached entry without fetching, fresh or not.
func (c *SourceCache[T]) Peek(variant string) (Entry[T], bool) {
	e, ok := c.lookup(variant)
	if !ok {
		return Entry[T]{}, false
	}
	return *e, true
}

// Wait blocks until every fetch started by an earlier GetOrFetch call has
// settled, including ones whose callers gave up. It must not be called
// concurrently with new GetOrFetch calls.
func (c *SourceCache[T]) Wait() {
	c.inflight.Wait()
}

// Invalidate drops a variant so the next call fetches.
func (c *SourceCache[T]) Invalidate(variant string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.entries, variant)
}

// Len returns the number of cached variants.
func (c *SourceCache[T]) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.entries)
}

type stats struct {
	hits        atomic.Int64
	misses      atomic.Int64
	fetches     atomic.Int64
	fetchErrors atomic.Int64
	staleServed atomic.Int64
	collapsed   atomic.Int64
}

// Stats is a point-in-time copy of a cache's counters.
type Stats struct {
	SourceID    string        `json:"source_id"`
	TTL         time.Duration `json:"ttl"`
	Entries     int           `json:"entries"`
	Hits        int64         `json:"hits"`
	Misses      int64         `json:"misses"`
	Fetches     int64         `json:"fetches"`
	FetchErrors int64         `json:"fetch_errors"`
	StaleServed int64         `json:"stale_served"`
	Collapsed   int64         `json:"collapsed"`
}

// HitRate returns hits as a percentage of lookups.
func (s Stats) HitRate() float64 {
	total := s.Hits + s.Misses
	if total == 0 {
		return 0
	}
	return float64(s.Hits) / float64(total) * 100
}

// Stats returns a snapshot of the counters.
func (c *SourceCache[T]) Stats() Stats {
	return Stats{
		SourceID:    c.sourceID,
		TTL:         c.ttl,
		Entries:     c.Len(),
		Hits:        c.stats.hits.Load(),
		Misses:      c.stats.misses.Load(),
		Fetches:     c.stats.fetches.Load(),
		FetchErrors: c.stats.fetchErrors.Load(),
		StaleServed: c.stats.staleServed.Load(),
		Collapsed:   c.stats.collapsed.Load(),
	}
}
