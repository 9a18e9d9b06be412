// Merlion - Singapore Live Data Aggregation
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/merlion

// Package scheduler fans fetches for many sources out over a fixed-size
// pool, each behind its own SourceCache, and gathers one result per source.
//
// Two deadlines apply. The call deadline (FetchTimeout) bounds how long
// FetchAll waits; sources still running when it passes resolve to their
// stale value or a Timeout error. The straggler deadline (StragglerTimeout)
// bounds the fetch itself, which keeps running after its caller has gone so
// that its result is cached for the next call.
package scheduler

import (
	"context"
	"errors"
	"net/url"
	"sort"
	"sync"
	"time"

	"github.com/remeh/sizedwaitgroup"

	"github.com/tomtom215/merlion/internal/cache"
	"github.com/tomtom215/merlion/internal/config"
	"github.com/tomtom215/merlion/internal/logging"
	"github.com/tomtom215/merlion/internal/metrics"
	"github.com/tomtom215/merlion/internal/upstream"
)

// ErrUnknownSource fills the slot of an id that is not registered.
var ErrUnknownSource = errors.New("unknown source")

// FetchResult is the outcome for one source. Err is nil for fresh, cached
// and stale results; Kind is KindStaleServed for the latter, with Cause
// holding the refresh error.
type FetchResult struct {
	SourceID        string
	Payload         []byte
	FetchedAt       time.Time
	ServedFromCache bool
	Stale           bool
	Kind            upstream.Kind
	Cause           error
	Err             error
}

// OK reports whether the result carries a payload.
func (r FetchResult) OK() bool { return r.Err == nil }

// Status is the label used in logs and metrics.
func (r FetchResult) Status() string {
	switch {
	case r.Err != nil:
		return "error"
	case r.Stale:
		return "stale"
	case r.ServedFromCache:
		return "cached"
	default:
		return "fresh"
	}
}

// Scheduler is the FetchScheduler. It owns the SourceCache of every
// registered source. Safe for concurrent use.
type Scheduler struct {
	client  upstream.Requester
	sources map[string]config.SourceConfig
	caches  map[string]*cache.SourceCache[[]byte]

	pool             sizedwaitgroup.SizedWaitGroup
	fetchTimeout     time.Duration
	stragglerTimeout time.Duration
}

// Option configures a Scheduler.
type Option func(*schedulerOptions)

type schedulerOptions struct {
	cacheOpts []cache.Option
}

// WithCacheOptions passes options to every SourceCache, e.g. a test clock.
func WithCacheOptions(opts ...cache.Option) Option {
	return func(o *schedulerOptions) { o.cacheOpts = append(o.cacheOpts, opts...) }
}

// New registers sources and creates their caches. The pool is shared by all
// calls, so PoolSize is a process-wide bound on concurrent upstream fetches.
func New(client upstream.Requester, cfg config.SchedulerConfig, sources map[string]config.SourceConfig, opts ...Option) *Scheduler {
	var o schedulerOptions
	for _, opt := range opts {
		opt(&o)
	}

	poolSize := cfg.PoolSize
	if poolSize < 1 {
		poolSize = 1
	}
	straggler := cfg.StragglerTimeout
	if straggler < cfg.FetchTimeout {
		straggler = cfg.FetchTimeout
	}

	s := &Scheduler{
		client:           client,
		sources:          make(map[string]config.SourceConfig, len(sources)),
		caches:           make(map[string]*cache.SourceCache[[]byte], len(sources)),
		pool:             sizedwaitgroup.New(poolSize),
		fetchTimeout:     cfg.FetchTimeout,
		stragglerTimeout: straggler,
	}

	cacheOpts := append([]cache.Option{cache.WithFetchTimeout(straggler)}, o.cacheOpts...)
	for id, src := range sources {
		s.sources[id] = src
		s.caches[id] = cache.New[[]byte](id, src.TTL, cacheOpts...)
	}
	return s
}

// Source returns the registered descriptor for id.
func (s *Scheduler) Source(id string) (config.SourceConfig, bool) {
	src, ok := s.sources[id]
	return src, ok
}

// SourceIDs returns every registered id, sorted.
func (s *Scheduler) SourceIDs() []string {
	ids := make([]string, 0, len(s.sources))
	for id := range s.sources {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

// Stats returns the cache counters of every source, sorted by id.
func (s *Scheduler) Stats() []cache.Stats {
	out := make([]cache.Stats, 0, len(s.caches))
	for _, id := range s.SourceIDs() {
		out = append(out, s.caches[id].Stats())
	}
	return out
}

// FetchAll fetches every id concurrently and returns once all have settled
// or the call timeout has passed. The map always has exactly one entry per
// distinct requested id.
func (s *Scheduler) FetchAll(ctx context.Context, ids []string) map[string]FetchResult {
	start := time.Now()
	ctx = withCorrelationID(ctx)

	if s.fetchTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.fetchTimeout)
		defer cancel()
	}

	var (
		mu      sync.Mutex
		wg      sync.WaitGroup
		results = make(map[string]FetchResult, len(ids))
		seen    = make(map[string]struct{}, len(ids))
	)
	for _, id := range ids {
		if _, dup := seen[id]; dup {
			continue
		}
		seen[id] = struct{}{}

		wg.Add(1)
		go func(id string) {
			defer wg.Done()
			r := s.fetch(ctx, id, nil)
			mu.Lock()
			results[id] = r
			mu.Unlock()
		}(id)
	}
	wg.Wait()

	metrics.SchedulerFetchAllDuration.Observe(time.Since(start).Seconds())
	s.logSummary(ctx, results, time.Since(start))
	return results
}

// FetchOne fetches a single, optionally parameterised, source. Results for
// different params are cached separately.
func (s *Scheduler) FetchOne(ctx context.Context, id string, params url.Values) FetchResult {
	ctx = withCorrelationID(ctx)
	if s.fetchTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.fetchTimeout)
		defer cancel()
	}
	return s.fetch(ctx, id, params)
}

func (s *Scheduler) fetch(ctx context.Context, id string, params url.Values) FetchResult {
	src, ok := s.sources[id]
	if !ok {
		r := errResult(id, upstream.NewError(upstream.KindUnreachable, id, 0, ErrUnknownSource))
		metrics.RecordSchedulerResult(r.Status())
		return r
	}

	res, err := s.caches[id].GetOrFetchVariant(ctx, params.Encode(), func(fctx context.Context) ([]byte, error) {
		return s.runPooled(fctx, src, params)
	})

	var r FetchResult
	if err != nil {
		if ctx.Err() != nil && errors.Is(err, ctx.Err()) {
			metrics.SchedulerTimeouts.Inc()
			err = upstream.NewError(upstream.KindTimeout, id, 0, err)
		}
		r = errResult(id, err)
	} else {
		r = FetchResult{
			SourceID:        id,
			Payload:         res.Value,
			FetchedAt:       res.FetchedAt,
			ServedFromCache: res.ServedFromCache,
			Stale:           res.Stale,
			Cause:           res.Cause,
		}
		if res.Stale {
			r.Kind = upstream.KindStaleServed
			if errors.Is(res.Cause, context.DeadlineExceeded) && ctx.Err() != nil {
				metrics.SchedulerTimeouts.Inc()
			}
		}
	}

	metrics.RecordSchedulerResult(r.Status())
	return r
}

// runPooled holds a pool slot for the duration of one upstream request.
// Only the singleflight leader gets here, so waiters never take a slot.
func (s *Scheduler) runPooled(ctx context.Context, src config.SourceConfig, params url.Values) ([]byte, error) {
	if err := s.pool.AddWithContext(ctx); err != nil {
		return nil, upstream.NewError(upstream.KindTimeout, src.ID, 0, err)
	}
	metrics.TrackWorker(true)
	defer func() {
		metrics.TrackWorker(false)
		s.pool.Done()
	}()

	start := time.Now()
	body, err := s.client.Request(ctx, src, params)
	ev := logging.Ctx(ctx).Debug()
	if err != nil {
		ev = logging.Ctx(ctx).Warn().Err(err).Stringer("kind", upstream.KindOf(err))
	}
	ev.Str("source", src.ID).Dur("duration", time.Since(start)).Int("bytes", len(body)).Msg("Upstream fetch finished")
	return body, err
}

// Wait blocks until every fetch started by earlier FetchAll or FetchOne
// calls has settled, stragglers included. Call it only once no new fetches
// are being issued, e.g. during shutdown.
func (s *Scheduler) Wait() {
	for _, c := range s.caches {
		c.Wait()
	}
}

func errResult(id string, err error) FetchResult {
	return FetchResult{SourceID: id, Kind: upstream.KindOf(err), Err: err}
}

func withCorrelationID(ctx context.Context) context.Context {
	if logging.CorrelationIDFromContext(ctx) != "" {
		return ctx
	}
	return logging.ContextWithCorrelationID(ctx, logging.GenerateCorrelationID())
}

func (s *Scheduler) logSummary(ctx context.Context, results map[string]FetchResult, took time.Duration) {
	counts := map[string]int{}
	for _, r := range results {
		counts[r.Status()]++
	}
	ev := logging.Ctx(ctx).Debug()
	if counts["error"] > 0 {
		ev = logging.Ctx(ctx).Info()
	}
	ev.Int("sources", len(results)).
		Int("fresh", counts["fresh"]).
		Int("cached", counts["cached"]).
		Int("stale", counts["stale"]).
		Int("errors", counts["error"]).
		Dur("duration", took).
		Msg("FetchAll settled")
}
