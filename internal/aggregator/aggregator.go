// Merlion - Singapore Live Data Aggregation
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/merlion

// Package aggregator is the single entry point the presentation layer uses.
// It combines the scheduler, the coordinate transform, the cluster parser
// and the viewport filter, and turns raw payloads of the large transit
// datasets into viewport-filterable layers.
package aggregator

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"strconv"
	"time"

	"github.com/tomtom215/merlion/internal/cluster"
	"github.com/tomtom215/merlion/internal/config"
	"github.com/tomtom215/merlion/internal/scheduler"
	"github.com/tomtom215/merlion/internal/svy21"
	"github.com/tomtom215/merlion/internal/viewport"
)

// Source IDs with derived layers.
const (
	SourceBusStop   = "bus-stop"
	SourceSpeedBand = "speed-band"
	SourceERPGantry = "erp-gantry"
	SourceCarpark   = "carpark"
	SourceZika      = "zika"
	SourceDengue    = "dengue"
	SourceNearbyMRT = "nearby-mrt"

	SourceBusArrival       = "bus-arrival"
	SourceTrafficIncident  = "traffic-incident"
	SourceMRTCrowd         = "mrt-crowd"
	SourceMRTCrowdForecast = "mrt-crowd-forecast"
	SourceBicycleParking   = "bicycle-parking"
)

// ErrNotClusterSource is returned by Clusters for ids that are not
// health-cluster sources.
var ErrNotClusterSource = errors.New("not a cluster source")

// ErrNotReadingSource is returned by WeatherReadings for ids that are not
// station reading sources.
var ErrNotReadingSource = errors.New("not a weather reading source")

// Fetcher is the scheduler contract.
type Fetcher interface {
	FetchAll(ctx context.Context, ids []string) map[string]scheduler.FetchResult
	FetchOne(ctx context.Context, id string, params url.Values) scheduler.FetchResult
}

// Aggregator is safe for concurrent use.
type Aggregator struct {
	fetcher Fetcher
	parser  *cluster.Parser
	zoom    config.ViewportConfig
	now     func() time.Time

	busStops   *layer
	incidents  *layer
	speedBands *layer
	gantries   *layer
	carparks   *carparkLayer
}

// Options configures the derived layers.
type Options struct {
	Viewport config.ViewportConfig

	// CarparkCSV is the bootstrapped HDB carpark file.
	CarparkCSV string

	// Workers bounds cluster decoding goroutines.
	Workers int

	// Clock replaces time.Now for bus arrival countdowns.
	Clock func() time.Time
}

// New creates an Aggregator on top of f.
func New(f Fetcher, opts Options) *Aggregator {
	cell := opts.Viewport.GridCellKm
	a := &Aggregator{
		fetcher: f,
		parser:  cluster.NewParser(opts.Workers),
		zoom:    opts.Viewport,
		now:     opts.Clock,
	}
	if a.now == nil {
		a.now = time.Now
	}
	a.busStops = newLayer(SourceBusStop, cell, decodeBusStops)
	a.speedBands = newLayer(SourceSpeedBand, cell, decodeSpeedBands)
	a.gantries = newLayer(SourceERPGantry, cell, a.parser.ParseLines)
	a.incidents = newLayer(SourceTrafficIncident, cell, decodeIncidents)
	a.carparks = newCarparkLayer(opts.CarparkCSV, cell)
	return a
}

// FetchAll returns one result per requested source.
func (a *Aggregator) FetchAll(ctx context.Context, ids []string) map[string]scheduler.FetchResult {
	return a.fetcher.FetchAll(ctx, ids)
}

// FilterForViewport keeps the features visible in bbox at zoom.
func (a *Aggregator) FilterForViewport(features []viewport.Feature, bbox viewport.Bounds, zoom, minZoom int) []viewport.Feature {
	return viewport.Filter(features, viewport.Query{Bounds: bbox, Zoom: zoom}, minZoom)
}

// Transform converts an SVY21 grid coordinate to longitude/latitude.
func (a *Aggregator) Transform(easting, northing float64) svy21.GeoPoint {
	return svy21.ToWGS84(easting, northing)
}

// ParseClusters decodes a health-cluster FeatureCollection.
func (a *Aggregator) ParseClusters(payload []byte) ([]cluster.Feature, error) {
	return a.parser.Parse(payload)
}

// ClusterResult is a parsed cluster source.
type ClusterResult struct {
	Meta     Meta
	Features []cluster.Feature
}

// Clusters fetches and parses a zika or dengue source.
func (a *Aggregator) Clusters(ctx context.Context, sourceID string) (ClusterResult, error) {
	if sourceID != SourceZika && sourceID != SourceDengue {
		return ClusterResult{}, fmt.Errorf("%w: %s", ErrNotClusterSource, sourceID)
	}

	r := a.fetcher.FetchOne(ctx, sourceID, nil)
	if r.Err != nil {
		return ClusterResult{}, r.Err
	}
	features, err := a.parser.Parse(r.Payload)
	if err != nil {
		return ClusterResult{}, err
	}
	return ClusterResult{Meta: metaOf(r), Features: features}, nil
}

// NearbyMRT runs the OneMap nearest-station search around (lat, lon).
// Coordinates are rounded to about 10m so neighbouring requests share a
// cache entry.
func (a *Aggregator) NearbyMRT(ctx context.Context, lat, lon float64, radiusM int) scheduler.FetchResult {
	params := url.Values{}
	params.Set("latitude", strconv.FormatFloat(lat, 'f', 4, 64))
	params.Set("longitude", strconv.FormatFloat(lon, 'f', 4, 64))
	params.Set("radius_in_meters", strconv.Itoa(radiusM))
	return a.fetcher.FetchOne(ctx, SourceNearbyMRT, params)
}

// BusStops returns the bus stops visible in q.
func (a *Aggregator) BusStops(ctx context.Context, q viewport.Query) (LayerResult, error) {
	return a.busStops.query(ctx, a.fetcher, q, a.zoom.BusStopMinZoom)
}

// SpeedBands returns the speed band segments with a vertex in q.
func (a *Aggregator) SpeedBands(ctx context.Context, q viewport.Query) (LayerResult, error) {
	return a.speedBands.query(ctx, a.fetcher, q, a.zoom.SpeedBandMinZoom)
}

// ERPGantries returns the gantry lines visible in q. There are only a few
// hundred gantries, so no zoom cutoff applies.
func (a *Aggregator) ERPGantries(ctx context.Context, q viewport.Query) (LayerResult, error) {
	return a.gantries.query(ctx, a.fetcher, q, 0)
}

// Carparks returns HDB carparks visible in q with live availability merged
// in when the availability source answers.
func (a *Aggregator) Carparks(ctx context.Context, q viewport.Query) (LayerResult, error) {
	return a.carparks.query(ctx, a.fetcher, q, a.zoom.CarparkMinZoom)
}
