// Merlion - Singapore Live Data Aggregation
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/merlion

package services

import (
	"context"
	"time"

	"github.com/thejerf/suture/v4"

	"github.com/tomtom215/merlion/internal/logging"
	"github.com/tomtom215/merlion/internal/scheduler"
)

// Fetcher is satisfied by *scheduler.Scheduler.
type Fetcher interface {
	FetchAll(ctx context.Context, ids []string) map[string]scheduler.FetchResult
}

// RefreshService warms the caches of a fixed set of sources.
type RefreshService struct {
	fetcher  Fetcher
	ids      []string
	interval time.Duration
	name     string
}

// NewRefreshService refreshes ids every interval, starting immediately.
func NewRefreshService(fetcher Fetcher, ids []string, interval time.Duration) *RefreshService {
	return &RefreshService{
		fetcher:  fetcher,
		ids:      ids,
		interval: interval,
		name:     "cache-refresher",
	}
}

// Serve implements suture.Service. With nothing to refresh it returns
// suture.ErrDoNotRestart.
func (s *RefreshService) Serve(ctx context.Context) error {
	if len(s.ids) == 0 || s.interval <= 0 {
		logging.Info().Str("service", s.name).Msg("Nothing to prefetch, refresher disabled")
		return suture.ErrDoNotRestart
	}

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		s.round(ctx)

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
		}
	}
}

func (s *RefreshService) round(ctx context.Context) {
	results := s.fetcher.FetchAll(ctx, s.ids)

	failed := 0
	for _, r := range results {
		if !r.OK() {
			failed++
		}
	}

	ev := logging.Debug()
	if failed > 0 {
		ev = logging.Warn()
	}
	ev.Str("service", s.name).
		Int("sources", len(results)).
		Int("failed", failed).
		Msg("Prefetch round complete")
}

// String implements fmt.Stringer for logging.
func (s *RefreshService) String() string {
	return s.name
}
