// Merlion - Singapore Live Data Aggregation
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/merlion

package viewport

import (
	"math"
	"sort"

	"github.com/paulmach/orb"
)

// GridIndex buckets features into fixed-size lon/lat cells so a viewport
// query only visits the cells it overlaps instead of every feature.
// It returns exactly what Filter returns for the same input.
//
// A GridIndex is immutable once built and safe for concurrent queries. A
// new dataset means a new index.
//
// Time Complexity:
//   - Build: O(v) where v = total vertices
//   - Query: O(c + k) where c = cells overlapped, k = features in them
type GridIndex struct {
	cellSize float64 // degrees
	features []Feature
	cells    map[cellKey][]int // feature indexes, ascending
}

type cellKey struct {
	X, Y int
}

// NewGridIndex indexes features with cells of roughly cellSizeKm.
func NewGridIndex(features []Feature, cellSizeKm float64) *GridIndex {
	if cellSizeKm <= 0 {
		cellSizeKm = 1
	}

	g := &GridIndex{
		// 1 degree is about 111km at the equator.
		cellSize: cellSizeKm / 111.0,
		features: features,
		cells:    make(map[cellKey][]int),
	}

	for i, f := range features {
		seen := map[cellKey]struct{}{}
		vertices(f.Geometry, func(p orb.Point) {
			k := g.key(p)
			if _, ok := seen[k]; ok {
				return
			}
			seen[k] = struct{}{}
			g.cells[k] = append(g.cells[k], i)
		})
	}
	return g
}

func (g *GridIndex) key(p orb.Point) cellKey {
	return cellKey{
		X: int(math.Floor(p.Lon() / g.cellSize)),
		Y: int(math.Floor(p.Lat() / g.cellSize)),
	}
}

// Len returns the number of indexed features.
func (g *GridIndex) Len() int { return len(g.features) }

// NumCells returns the number of non-empty cells.
func (g *GridIndex) NumCells() int { return len(g.cells) }

// Query is Filter over the indexed features.
func (g *GridIndex) Query(q Query, minZoom int) []Feature {
	if q.Zoom < minZoom || len(g.features) == 0 {
		return []Feature{}
	}

	lo := g.key(orb.Point{q.Bounds.MinLon, q.Bounds.MinLat})
	hi := g.key(orb.Point{q.Bounds.MaxLon, q.Bounds.MaxLat})

	var hits []int
	seen := make(map[int]struct{})
	collect := func(idxs []int) {
		for _, i := range idxs {
			if _, ok := seen[i]; ok {
				continue
			}
			seen[i] = struct{}{}
			if g.features[i].Visible(q.Bounds) {
				hits = append(hits, i)
			}
		}
	}

	// A huge box covers more cells than exist; walk the cells instead.
	span := (int64(hi.X-lo.X) + 1) * (int64(hi.Y-lo.Y) + 1)
	if span > int64(len(g.cells)) {
		for k, idxs := range g.cells {
			if k.X >= lo.X && k.X <= hi.X && k.Y >= lo.Y && k.Y <= hi.Y {
				collect(idxs)
			}
		}
	} else {
		for x := lo.X; x <= hi.X; x++ {
			for y := lo.Y; y <= hi.Y; y++ {
				collect(g.cells[cellKey{X: x, Y: y}])
			}
		}
	}

	sort.Ints(hits)
	out := make([]Feature, len(hits))
	for i, idx := range hits {
		out[i] = g.features[idx]
	}
	return out
}
