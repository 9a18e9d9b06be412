// Merlion - Singapore Live Data Aggregation
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/merlion

// Package cluster turns the health-cluster GeoJSON published by data.gov.sg
// (Zika and dengue) into polygon features with flat string properties.
//
// Parsing is tolerant: a feature that cannot be decoded is skipped and
// counted, never failing the whole collection. Ring order, winding and hole
// nesting are kept exactly as published.
package cluster

import (
	"fmt"
	"strconv"

	"github.com/goccy/go-json"
	"github.com/paulmach/orb"
	"github.com/paulmach/orb/geojson"
	"github.com/remeh/sizedwaitgroup"

	"github.com/tomtom215/merlion/internal/logging"
	"github.com/tomtom215/merlion/internal/metrics"
	"github.com/tomtom215/merlion/internal/upstream"
)

const (
	// Placeholder is the display value for a missing or null property.
	Placeholder = "N/A"

	// PoolThreshold is the feature count above which decoding is spread
	// over the worker pool.
	PoolThreshold = 10

	// DefaultWorkers bounds decoding goroutines per parse.
	DefaultWorkers = 10

	descriptionKey = "Description"
)

// RequiredKeys always exist on a parsed health cluster.
var RequiredKeys = []string{"CASE_SIZE", "CLUSTER_ID", "LOCALITY", "NAME"}

// Feature is one cluster polygon. Polygon holds every polygon of the
// feature; a plain Polygon geometry is a MultiPolygon of length one.
type Feature struct {
	ID         string
	Polygon    orb.MultiPolygon
	Properties map[string]string
}

// Rings returns all rings in source order: each polygon's outer ring
// followed by its holes.
func (f Feature) Rings() []orb.Ring {
	var rings []orb.Ring
	for _, p := range f.Polygon {
		rings = append(rings, p...)
	}
	return rings
}

// GeoJSON converts f back to a GeoJSON feature with string properties.
func (f Feature) GeoJSON() *geojson.Feature {
	var g orb.Geometry = f.Polygon
	if len(f.Polygon) == 1 {
		g = f.Polygon[0]
	}
	gf := geojson.NewFeature(g)
	gf.ID = f.ID
	for k, v := range f.Properties {
		gf.Properties[k] = v
	}
	return gf
}

// Parser decodes cluster collections.
type Parser struct {
	workers int
}

// NewParser returns a parser that decodes with at most workers goroutines.
func NewParser(workers int) *Parser {
	if workers <= 0 {
		workers = DefaultWorkers
	}
	return &Parser{workers: workers}
}

var defaultParser = NewParser(DefaultWorkers)

// Parse decodes payload with the default parser.
func Parse(payload []byte) ([]Feature, error) {
	return defaultParser.Parse(payload)
}

// rawCollection keeps each feature undecoded so one bad feature cannot
// poison the rest.
type rawCollection struct {
	Type     string            `json:"type"`
	Features []json.RawMessage `json:"features"`
}

func splitCollection(payload []byte) ([]json.RawMessage, error) {
	var fc rawCollection
	if err := json.Unmarshal(payload, &fc); err != nil {
		return nil, upstream.NewError(upstream.KindMalformedResponse, "", 0, fmt.Errorf("decode feature collection: %w", err))
	}
	if fc.Type != "FeatureCollection" {
		return nil, upstream.NewError(upstream.KindMalformedResponse, "", 0, fmt.Errorf("expected FeatureCollection, got %q", fc.Type))
	}
	return fc.Features, nil
}

// Parse returns one Feature per well-formed polygon feature. An empty
// collection yields no features and no error. Output order follows the
// input but callers must not rely on it.
func (p *Parser) Parse(payload []byte) ([]Feature, error) {
	raws, err := splitCollection(payload)
	if err != nil {
		return nil, err
	}

	slots := decodeAll(raws, p.workers, decodePolygon)

	out := make([]Feature, 0, len(slots))
	for _, s := range slots {
		if s.ok {
			out = append(out, s.feature)
		}
	}
	return out, nil
}

type slot[F any] struct {
	feature F
	ok      bool
}

// decodeAll runs decode over every raw feature. Above PoolThreshold the
// work fans out over a sized wait group; each feature owns its own slot.
func decodeAll[F any](raws []json.RawMessage, workers int, decode func(int, []byte) (F, error)) []slot[F] {
	slots := make([]slot[F], len(raws))

	run := func(i int) {
		f, err := decode(i, raws[i])
		if err != nil {
			metrics.ClusterFeaturesSkipped.Inc()
			logging.Debug().Err(err).Int("index", i).Msg("Skipping malformed feature")
			return
		}
		slots[i] = slot[F]{feature: f, ok: true}
	}

	if len(raws) <= PoolThreshold {
		for i := range raws {
			run(i)
		}
		return slots
	}

	swg := sizedwaitgroup.New(workers)
	for i := range raws {
		swg.Add()
		go func(i int) {
			defer swg.Done()
			run(i)
		}(i)
	}
	swg.Wait()
	return slots
}

func decodePolygon(index int, raw []byte) (Feature, error) {
	gf, err := geojson.UnmarshalFeature(raw)
	if err != nil {
		return Feature{}, err
	}

	var mp orb.MultiPolygon
	switch g := gf.Geometry.(type) {
	case orb.Polygon:
		mp = orb.MultiPolygon{g}
	case orb.MultiPolygon:
		mp = g
	default:
		return Feature{}, fmt.Errorf("geometry %T is not a polygon", gf.Geometry)
	}
	if len(mp) == 0 || len(mp[0]) == 0 {
		return Feature{}, fmt.Errorf("polygon has no rings")
	}

	props := flatten(gf.Properties)
	for _, k := range RequiredKeys {
		if v, ok := props[k]; !ok || v == "" {
			props[k] = Placeholder
		}
	}

	return Feature{
		ID:         featureID(gf.ID, props, index),
		Polygon:    mp,
		Properties: props,
	}, nil
}

// flatten renders every property as a display string and merges in the
// attribute table embedded in a KML-style Description.
func flatten(in geojson.Properties) map[string]string {
	out := make(map[string]string, len(in)+len(RequiredKeys))
	for k, v := range in {
		if k == "" {
			continue
		}
		out[k] = displayValue(v)
	}

	if desc, ok := in[descriptionKey].(string); ok {
		for k, v := range ParseDescription(desc) {
			if v != "" {
				out[k] = v
			}
		}
	}
	return out
}

func displayValue(v interface{}) string {
	switch v := v.(type) {
	case nil:
		return Placeholder
	case string:
		if v == "" {
			return Placeholder
		}
		return v
	case float64:
		return strconv.FormatFloat(v, 'f', -1, 64)
	case bool:
		return strconv.FormatBool(v)
	case json.Number:
		return v.String()
	default:
		b, err := json.Marshal(v)
		if err != nil {
			return fmt.Sprint(v)
		}
		return string(b)
	}
}

func featureID(id interface{}, props map[string]string, index int) string {
	switch v := id.(type) {
	case string:
		if v != "" {
			return v
		}
	case float64:
		return strconv.FormatFloat(v, 'f', -1, 64)
	}
	for _, k := range []string{"CLUSTER_ID", "Name"} {
		if v, ok := props[k]; ok && v != "" && v != Placeholder {
			return v
		}
	}
	return "feature-" + strconv.Itoa(index)
}
