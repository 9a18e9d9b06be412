// Merlion - Singapore Live Data Aggregation
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/merlion

package aggregator

import (
	"context"
	"sync"
	"time"

	"github.com/tomtom215/merlion/internal/logging"
	"github.com/tomtom215/merlion/internal/scheduler"
	"github.com/tomtom215/merlion/internal/viewport"
)

// Meta describes where a layer's data came from.
type Meta struct {
	SourceID        string    `json:"source_id"`
	FetchedAt       time.Time `json:"fetched_at"`
	ServedFromCache bool      `json:"served_from_cache"`
	Stale           bool      `json:"stale"`
}

func metaOf(r scheduler.FetchResult) Meta {
	return Meta{
		SourceID:        r.SourceID,
		FetchedAt:       r.FetchedAt,
		ServedFromCache: r.ServedFromCache,
		Stale:           r.Stale,
	}
}

// LayerResult is one viewport query over a derived layer.
type LayerResult struct {
	Meta     Meta
	Total    int // features in the whole layer
	Features []viewport.Feature
}

type decodeFunc func(payload []byte) ([]viewport.Feature, error)

// layer turns one source payload into a grid index. The index is rebuilt
// only when the payload changes, i.e. when the cache entry is refreshed.
type layer struct {
	sourceID string
	cellKm   float64
	decode   decodeFunc

	mu        sync.Mutex
	fetchedAt time.Time
	index     *viewport.GridIndex
}

func newLayer(sourceID string, cellKm float64, decode decodeFunc) *layer {
	return &layer{sourceID: sourceID, cellKm: cellKm, decode: decode}
}

func (l *layer) query(ctx context.Context, f Fetcher, q viewport.Query, minZoom int) (LayerResult, error) {
	// Below the cutoff nothing is returned, so nothing needs fetching.
	if q.Zoom < minZoom {
		return LayerResult{Meta: Meta{SourceID: l.sourceID}, Features: []viewport.Feature{}}, nil
	}

	r := f.FetchOne(ctx, l.sourceID, nil)
	if r.Err != nil {
		return LayerResult{}, r.Err
	}

	idx, err := l.indexFor(r)
	if err != nil {
		return LayerResult{}, err
	}
	return LayerResult{
		Meta:     metaOf(r),
		Total:    idx.Len(),
		Features: idx.Query(q, minZoom),
	}, nil
}

func (l *layer) indexFor(r scheduler.FetchResult) (*viewport.GridIndex, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.index != nil && l.fetchedAt.Equal(r.FetchedAt) {
		return l.index, nil
	}

	features, err := l.decode(r.Payload)
	if err != nil {
		return nil, err
	}
	l.index = viewport.NewGridIndex(features, l.cellKm)
	l.fetchedAt = r.FetchedAt

	logging.Debug().
		Str("source", l.sourceID).
		Int("features", len(features)).
		Int("cells", l.index.NumCells()).
		Msg("Rebuilt layer index")
	return l.index, nil
}
