// Merlion - Singapore Live Data Aggregation
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/merlion

// Package viewport culls large point and line datasets to the part of the
// map a client is looking at.
//
// Below a minimum zoom level nothing is returned: the full bus stop or speed
// band set is tens of thousands of features and is never sent unfiltered.
package viewport

import (
	"errors"
	"fmt"
	"math"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/geojson"
)

// Default pixel size of the client map, used by BoundsFromCenter.
const (
	DefaultWidthPx  = 800
	DefaultHeightPx = 600

	tileSize = 256
)

// ErrInvalidBounds is returned by Bounds.Validate.
var ErrInvalidBounds = errors.New("invalid bounding box")

// Bounds is a closed longitude/latitude box.
type Bounds struct {
	MinLon float64 `json:"min_lon"`
	MinLat float64 `json:"min_lat"`
	MaxLon float64 `json:"max_lon"`
	MaxLat float64 `json:"max_lat"`
}

// Validate checks ranges and ordering.
func (b Bounds) Validate() error {
	switch {
	case b.MinLon < -180 || b.MaxLon > 180:
		return fmt.Errorf("%w: longitude out of range", ErrInvalidBounds)
	case b.MinLat < -90 || b.MaxLat > 90:
		return fmt.Errorf("%w: latitude out of range", ErrInvalidBounds)
	case b.MinLon > b.MaxLon || b.MinLat > b.MaxLat:
		return fmt.Errorf("%w: min exceeds max", ErrInvalidBounds)
	}
	return nil
}

// Contains reports whether p lies inside or on the edge of b.
func (b Bounds) Contains(p orb.Point) bool {
	return b.Bound().Contains(p)
}

// Bound converts b to an orb.Bound.
func (b Bounds) Bound() orb.Bound {
	return orb.Bound{
		Min: orb.Point{b.MinLon, b.MinLat},
		Max: orb.Point{b.MaxLon, b.MaxLat},
	}
}

// Query is one render request: what is visible and at which zoom.
type Query struct {
	Bounds Bounds `json:"bounds"`
	Zoom   int    `json:"zoom"`
}

// BoundsFromCenter derives the visible box of a DefaultWidthPx x
// DefaultHeightPx web-mercator map centred on (lat, lon).
func BoundsFromCenter(lat, lon float64, zoom int) Bounds {
	return BoundsFromCenterSize(lat, lon, zoom, DefaultWidthPx, DefaultHeightPx)
}

// BoundsFromCenterSize is BoundsFromCenter for an arbitrary map size.
func BoundsFromCenterSize(lat, lon float64, zoom, widthPx, heightPx int) Bounds {
	degPerPx := 360 / (tileSize * math.Exp2(float64(zoom)))
	halfLat := degPerPx * float64(heightPx) / 2
	halfLon := degPerPx * float64(widthPx) / 2 / math.Cos(lat*math.Pi/180)

	return Bounds{
		MinLon: lon - halfLon,
		MinLat: lat - halfLat,
		MaxLon: lon + halfLon,
		MaxLat: lat + halfLat,
	}
}

// Feature is one filterable shape. Geometry is normally an orb.Point or an
// orb.LineString; other orb geometries are matched by their vertices.
type Feature struct {
	ID         string            `json:"id"`
	Geometry   orb.Geometry      `json:"-"`
	Properties map[string]string `json:"properties,omitempty"`
}

// Visible reports whether f has a vertex inside b.
func (f Feature) Visible(b Bounds) bool {
	return anyVertex(f.Geometry, b.Contains)
}

// GeoJSON converts f for the wire.
func (f Feature) GeoJSON() *geojson.Feature {
	gf := geojson.NewFeature(f.Geometry)
	gf.ID = f.ID
	for k, v := range f.Properties {
		gf.Properties[k] = v
	}
	return gf
}

// FeatureCollection wraps features in a GeoJSON FeatureCollection.
func FeatureCollection(features []Feature) *geojson.FeatureCollection {
	fc := geojson.NewFeatureCollection()
	fc.Features = make([]*geojson.Feature, 0, len(features))
	for _, f := range features {
		fc.Append(f.GeoJSON())
	}
	return fc
}

// Filter returns the features visible in q, in input order. When q.Zoom is
// below minZoom the result is empty whatever the bounds.
func Filter(features []Feature, q Query, minZoom int) []Feature {
	if q.Zoom < minZoom || len(features) == 0 {
		return []Feature{}
	}

	out := make([]Feature, 0, len(features)/8)
	for _, f := range features {
		if f.Visible(q.Bounds) {
			out = append(out, f)
		}
	}
	return out
}

// anyVertex walks the vertices of g until fn returns true.
func anyVertex(g orb.Geometry, fn func(orb.Point) bool) bool {
	switch g := g.(type) {
	case nil:
		return false
	case orb.Point:
		return fn(g)
	case orb.MultiPoint:
		return anyPoint(g, fn)
	case orb.LineString:
		return anyPoint(g, fn)
	case orb.MultiLineString:
		for _, ls := range g {
			if anyPoint(ls, fn) {
				return true
			}
		}
	case orb.Ring:
		return anyPoint(g, fn)
	case orb.Polygon:
		for _, r := range g {
			if anyPoint(r, fn) {
				return true
			}
		}
	case orb.MultiPolygon:
		for _, p := range g {
			if anyVertex(p, fn) {
				return true
			}
		}
	case orb.Collection:
		for _, c := range g {
			if anyVertex(c, fn) {
				return true
			}
		}
	}
	return false
}

func anyPoint(ps []orb.Point, fn func(orb.Point) bool) bool {
	for _, p := range ps {
		if fn(p) {
			return true
		}
	}
	return false
}

// vertices calls fn for every vertex of g.
func vertices(g orb.Geometry, fn func(orb.Point)) {
	anyVertex(g, func(p orb.Point) bool {
		fn(p)
		return false
	})
}
