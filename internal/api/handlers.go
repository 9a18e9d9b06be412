// Merlion - Singapore Live Data Aggregation
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/merlion

package api

import (
	"context"
	"errors"
	"net/http"
	"sync/atomic"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/goccy/go-json"
	"github.com/paulmach/orb/geojson"

	"github.com/tomtom215/merlion/internal/aggregator"
	"github.com/tomtom215/merlion/internal/cache"
	"github.com/tomtom215/merlion/internal/config"
	"github.com/tomtom215/merlion/internal/scheduler"
	"github.com/tomtom215/merlion/internal/validation"
	"github.com/tomtom215/merlion/internal/viewport"
)

// Registry exposes the registered sources and their cache counters.
// *scheduler.Scheduler satisfies it.
type Registry interface {
	SourceIDs() []string
	Source(id string) (config.SourceConfig, bool)
	Stats() []cache.Stats
}

// Handler serves the JSON surface on top of the aggregator.
type Handler struct {
	agg       *aggregator.Aggregator
	registry  Registry
	startTime time.Time
	ready     atomic.Bool
}

// NewHandler creates a handler. It reports not ready until SetReady(true).
func NewHandler(agg *aggregator.Aggregator, registry Registry) *Handler {
	return &Handler{
		agg:       agg,
		registry:  registry,
		startTime: time.Now(),
	}
}

// SetReady flips the readiness check. The supervisor sets it once the
// dataset bootstrap has run.
func (h *Handler) SetReady(ready bool) {
	h.ready.Store(ready)
}

// HealthLive always succeeds while the process serves requests.
//
// @Summary Process liveness
// @Tags Health
// @Produce json
// @Success 200 {object} APIResponse
// @Router /health/live [get]
func (h *Handler) HealthLive(w http.ResponseWriter, r *http.Request) {
	NewResponseWriter(w, r).Success(map[string]interface{}{
		"status":         "alive",
		"uptime_seconds": time.Since(h.startTime).Seconds(),
	})
}

// HealthReady fails until the bootstrap has run.
//
// @Summary Readiness after bootstrap
// @Tags Health
// @Produce json
// @Success 200 {object} APIResponse
// @Failure 503 {object} APIResponse "Bootstrap not finished"
// @Router /health/ready [get]
func (h *Handler) HealthReady(w http.ResponseWriter, r *http.Request) {
	rw := NewResponseWriter(w, r)
	if !h.ready.Load() {
		rw.ServiceUnavailable("Dataset bootstrap has not completed")
		return
	}
	rw.Success(map[string]string{"status": "ready"})
}

// SourceInfo is one registry entry with its cache counters.
type SourceInfo struct {
	ID         string  `json:"id"`
	Provider   string  `json:"provider"`
	Auth       string  `json:"auth"`
	TTLSeconds float64 `json:"ttl_seconds"`
	Paginated  bool    `json:"paginated,omitempty"`

	Entries     int     `json:"cache_entries"`
	Hits        int64   `json:"cache_hits"`
	Misses      int64   `json:"cache_misses"`
	HitRate     float64 `json:"cache_hit_rate"`
	Fetches     int64   `json:"fetches"`
	FetchErrors int64   `json:"fetch_errors"`
	StaleServed int64   `json:"stale_served"`
	Collapsed   int64   `json:"collapsed"`
}

// Sources lists the registry.
//
// @Summary List registered sources
// @Tags Sources
// @Produce json
// @Success 200 {object} APIResponse{data=[]SourceInfo}
// @Router /sources [get]
func (h *Handler) Sources(w http.ResponseWriter, r *http.Request) {
	stats := make(map[string]cache.Stats)
	for _, s := range h.registry.Stats() {
		stats[s.SourceID] = s
	}

	ids := h.registry.SourceIDs()
	out := make([]SourceInfo, 0, len(ids))
	for _, id := range ids {
		src, _ := h.registry.Source(id)
		st := stats[id]
		out = append(out, SourceInfo{
			ID:          id,
			Provider:    src.Provider,
			Auth:        src.Auth,
			TTLSeconds:  src.TTL.Seconds(),
			Paginated:   src.Paginated,
			Entries:     st.Entries,
			Hits:        st.Hits,
			Misses:      st.Misses,
			HitRate:     st.HitRate(),
			Fetches:     st.Fetches,
			FetchErrors: st.FetchErrors,
			StaleServed: st.StaleServed,
			Collapsed:   st.Collapsed,
		})
	}
	NewResponseWriter(w, r).Success(out)
}

// SourceResult is one slot of a /fetch response.
type SourceResult struct {
	SourceID        string          `json:"source_id"`
	Status          string          `json:"status"`
	FetchedAt       *time.Time      `json:"fetched_at,omitempty"`
	ServedFromCache bool            `json:"served_from_cache"`
	Stale           bool            `json:"stale"`
	Error           *APIError       `json:"error,omitempty"`
	Data            json.RawMessage `json:"data,omitempty"`
}

func sourceResult(r scheduler.FetchResult) SourceResult {
	out := SourceResult{
		SourceID:        r.SourceID,
		Status:          r.Status(),
		ServedFromCache: r.ServedFromCache,
		Stale:           r.Stale,
	}
	if !r.FetchedAt.IsZero() {
		t := r.FetchedAt
		out.FetchedAt = &t
	}
	if r.Err != nil {
		_, code := classifyError(r.Err)
		out.Error = &APIError{Code: code, Message: r.Err.Error()}
		return out
	}
	out.Data = r.Payload
	return out
}

// Fetch runs FetchAll over ids (default: every registered source). A
// failed source is reported in its own slot; the call itself succeeds.
//
// @Summary Fetch several sources concurrently
// @Tags Sources
// @Produce json
// @Param ids query string false "Comma-separated source ids, all when omitted"
// @Success 200 {object} APIResponse{data=[]SourceResult}
// @Failure 400 {object} APIResponse "Invalid query parameters"
// @Router /fetch [get]
func (h *Handler) Fetch(w http.ResponseWriter, r *http.Request) {
	rw := NewResponseWriter(w, r)
	req, err := parseFetch(r.URL.Query(), h.registry.SourceIDs())
	if err != nil {
		writeValidation(rw, err)
		return
	}

	results := h.agg.FetchAll(r.Context(), req.IDs)
	out := make([]SourceResult, 0, len(req.IDs))
	for _, id := range req.IDs {
		out = append(out, sourceResult(results[id]))
	}
	rw.Success(out)
}

// Clusters serves a parsed zika or dengue collection.
//
// @Summary Zika or dengue clusters
// @Tags Health Data
// @Produce json
// @Param source path string true "zika or dengue"
// @Success 200 {object} APIResponse
// @Failure 404 {object} APIResponse "Unknown source"
// @Failure 502 {object} APIResponse "Upstream rejected or malformed"
// @Failure 504 {object} APIResponse "Upstream timeout"
// @Router /clusters/{source} [get]
func (h *Handler) Clusters(w http.ResponseWriter, r *http.Request) {
	rw := NewResponseWriter(w, r)
	res, err := h.agg.Clusters(r.Context(), chi.URLParam(r, "source"))
	if err != nil {
		rw.FetchError(err)
		return
	}

	fc := geojson.NewFeatureCollection()
	fc.Features = make([]*geojson.Feature, 0, len(res.Features))
	for _, f := range res.Features {
		fc.Append(f.GeoJSON())
	}
	rw.SuccessWithMeta(fc, &APIMeta{Source: &res.Meta})
}

// LayerResponse is the data of a viewport layer response.
type LayerResponse struct {
	Total    int                        `json:"total"`
	Count    int                        `json:"count"`
	Features *geojson.FeatureCollection `json:"features"`
}

type layerFunc func(ctx context.Context, q viewport.Query) (aggregator.LayerResult, error)

func (h *Handler) layer(query layerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		rw := NewResponseWriter(w, r)
		req, err := parseViewport(r.URL.Query())
		if err != nil {
			writeValidation(rw, err)
			return
		}

		res, err := query(r.Context(), req.Query())
		if err != nil {
			rw.FetchError(err)
			return
		}

		rw.SuccessWithMeta(LayerResponse{
			Total:    res.Total,
			Count:    len(res.Features),
			Features: viewport.FeatureCollection(res.Features),
		}, &APIMeta{Source: &res.Meta})
	}
}

// BusStops serves the bus stops visible in the viewport.
//
// @Summary Bus stops in the viewport
// @Tags Layers
// @Produce json
// @Param min_lon query number false "West edge"
// @Param min_lat query number false "South edge"
// @Param max_lon query number false "East edge"
// @Param max_lat query number false "North edge"
// @Param lat query number false "Centre latitude, instead of a bbox"
// @Param lon query number false "Centre longitude, instead of a bbox"
// @Param zoom query int true "Web map zoom level (0-22)"
// @Success 200 {object} APIResponse{data=LayerResponse}
// @Failure 400 {object} APIResponse "Invalid query parameters"
// @Failure 502 {object} APIResponse "Upstream rejected or malformed"
// @Failure 504 {object} APIResponse "Upstream timeout"
// @Router /bus-stops [get]
func (h *Handler) BusStops(w http.ResponseWriter, r *http.Request) {
	h.layer(h.agg.BusStops)(w, r)
}

// SpeedBands serves road segments with a vertex in the viewport.
//
// @Summary Road speed bands in the viewport
// @Tags Layers
// @Produce json
// @Param min_lon query number false "West edge"
// @Param min_lat query number false "South edge"
// @Param max_lon query number false "East edge"
// @Param max_lat query number false "North edge"
// @Param lat query number false "Centre latitude, instead of a bbox"
// @Param lon query number false "Centre longitude, instead of a bbox"
// @Param zoom query int true "Web map zoom level (0-22)"
// @Success 200 {object} APIResponse{data=LayerResponse}
// @Failure 400 {object} APIResponse "Invalid query parameters"
// @Failure 502 {object} APIResponse "Upstream rejected or malformed"
// @Failure 504 {object} APIResponse "Upstream timeout"
// @Router /speed-bands [get]
func (h *Handler) SpeedBands(w http.ResponseWriter, r *http.Request) {
	h.layer(h.agg.SpeedBands)(w, r)
}

// ERPGantries serves gantry lines with a vertex in the viewport.
//
// @Summary ERP gantries in the viewport
// @Tags Layers
// @Produce json
// @Param min_lon query number false "West edge"
// @Param min_lat query number false "South edge"
// @Param max_lon query number false "East edge"
// @Param max_lat query number false "North edge"
// @Param lat query number false "Centre latitude, instead of a bbox"
// @Param lon query number false "Centre longitude, instead of a bbox"
// @Param zoom query int true "Web map zoom level (0-22)"
// @Success 200 {object} APIResponse{data=LayerResponse}
// @Failure 400 {object} APIResponse "Invalid query parameters"
// @Failure 502 {object} APIResponse "Upstream rejected or malformed"
// @Failure 504 {object} APIResponse "Upstream timeout"
// @Router /erp-gantries [get]
func (h *Handler) ERPGantries(w http.ResponseWriter, r *http.Request) {
	h.layer(h.agg.ERPGantries)(w, r)
}

// Carparks serves HDB carparks in the viewport with live availability.
//
// @Summary HDB carparks with availability
// @Tags Layers
// @Produce json
// @Param min_lon query number false "West edge"
// @Param min_lat query number false "South edge"
// @Param max_lon query number false "East edge"
// @Param max_lat query number false "North edge"
// @Param lat query number false "Centre latitude, instead of a bbox"
// @Param lon query number false "Centre longitude, instead of a bbox"
// @Param zoom query int true "Web map zoom level (0-22)"
// @Success 200 {object} APIResponse{data=LayerResponse}
// @Failure 400 {object} APIResponse "Invalid query parameters"
// @Failure 503 {object} APIResponse "Carpark dataset not loaded"
// @Router /carparks [get]
func (h *Handler) Carparks(w http.ResponseWriter, r *http.Request) {
	h.layer(h.agg.Carparks)(w, r)
}

// SVY21Response is one converted coordinate.
type SVY21Response struct {
	Easting  float64 `json:"easting"`
	Northing float64 `json:"northing"`
	Lon      float64 `json:"lon"`
	Lat      float64 `json:"lat"`
}

// SVY21 converts a grid coordinate to longitude/latitude.
//
// @Summary Convert an SVY21 coordinate
// @Tags Geometry
// @Produce json
// @Param easting query number true "Easting in metres"
// @Param northing query number true "Northing in metres"
// @Success 200 {object} APIResponse{data=SVY21Response}
// @Failure 400 {object} APIResponse "Invalid query parameters"
// @Router /svy21 [get]
func (h *Handler) SVY21(w http.ResponseWriter, r *http.Request) {
	rw := NewResponseWriter(w, r)
	req, err := parseSVY21(r.URL.Query())
	if err != nil {
		writeValidation(rw, err)
		return
	}

	p := h.agg.Transform(req.Easting, req.Northing)
	rw.Success(SVY21Response{Easting: req.Easting, Northing: req.Northing, Lon: p.Lon, Lat: p.Lat})
}

// NearbyMRT proxies the OneMap nearest-station search through the cache.
//
// @Summary MRT stations near a point
// @Tags Transit
// @Produce json
// @Param lat query number true "Latitude"
// @Param lon query number true "Longitude"
// @Param radius query int false "Radius in metres (1-5000)" default(1000)
// @Success 200 {object} APIResponse
// @Failure 400 {object} APIResponse "Invalid query parameters"
// @Failure 502 {object} APIResponse "Upstream rejected or malformed"
// @Failure 504 {object} APIResponse "Upstream timeout"
// @Router /nearby-mrt [get]
func (h *Handler) NearbyMRT(w http.ResponseWriter, r *http.Request) {
	rw := NewResponseWriter(w, r)
	req, err := parseNearby(r.URL.Query())
	if err != nil {
		writeValidation(rw, err)
		return
	}

	writeRaw(rw, h.agg.NearbyMRT(r.Context(), req.Lat, req.Lon, req.Radius))
}

// writeRaw passes an upstream payload through untouched.
func writeRaw(rw *ResponseWriter, res scheduler.FetchResult) {
	if res.Err != nil {
		rw.FetchError(res.Err)
		return
	}
	meta := aggregator.Meta{
		SourceID:        res.SourceID,
		FetchedAt:       res.FetchedAt,
		ServedFromCache: res.ServedFromCache,
		Stale:           res.Stale,
	}
	rw.SuccessWithMeta(json.RawMessage(res.Payload), &APIMeta{Source: &meta})
}

// BusArrival serves the next buses at one stop, per service.
//
// @Summary Next buses at a stop
// @Tags Transit
// @Produce json
// @Param stop query string true "Five digit bus stop code"
// @Success 200 {object} APIResponse{data=aggregator.BusArrivalResult}
// @Failure 400 {object} APIResponse "Invalid query parameters"
// @Failure 502 {object} APIResponse "Upstream rejected or malformed"
// @Failure 504 {object} APIResponse "Upstream timeout"
// @Router /bus-arrival [get]
func (h *Handler) BusArrival(w http.ResponseWriter, r *http.Request) {
	rw := NewResponseWriter(w, r)
	req, err := parseBusArrival(r.URL.Query())
	if err != nil {
		writeValidation(rw, err)
		return
	}

	res, err := h.agg.BusArrival(r.Context(), req.Stop)
	if err != nil {
		rw.FetchError(err)
		return
	}
	rw.SuccessWithMeta(res, &APIMeta{Source: &res.Meta})
}

// TrafficIncidents serves the incidents in the viewport.
//
// @Summary Traffic incidents in the viewport
// @Tags Layers
// @Produce json
// @Param min_lon query number false "West edge"
// @Param min_lat query number false "South edge"
// @Param max_lon query number false "East edge"
// @Param max_lat query number false "North edge"
// @Param lat query number false "Centre latitude, instead of a bbox"
// @Param lon query number false "Centre longitude, instead of a bbox"
// @Param zoom query int true "Web map zoom level (0-22)"
// @Success 200 {object} APIResponse{data=LayerResponse}
// @Failure 400 {object} APIResponse "Invalid query parameters"
// @Failure 502 {object} APIResponse "Upstream rejected or malformed"
// @Failure 504 {object} APIResponse "Upstream timeout"
// @Router /traffic-incidents [get]
func (h *Handler) TrafficIncidents(w http.ResponseWriter, r *http.Request) {
	h.layer(h.agg.TrafficIncidents)(w, r)
}

// ReadingsResponse is the latest station reading set of one kind.
type ReadingsResponse struct {
	ReadingType string                     `json:"reading_type"`
	Unit        string                     `json:"unit"`
	Timestamp   *time.Time                 `json:"timestamp,omitempty"`
	Count       int                        `json:"count"`
	Features    *geojson.FeatureCollection `json:"features"`
}

// WeatherReadings serves rainfall, air-temperature, relative-humidity or
// wind-speed station values as points. Any other kind is a 404.
//
// @Summary Latest weather station readings
// @Tags Weather
// @Produce json
// @Param kind path string true "rainfall, air-temperature, relative-humidity or wind-speed"
// @Success 200 {object} APIResponse{data=ReadingsResponse}
// @Failure 404 {object} APIResponse "Unknown source"
// @Failure 502 {object} APIResponse "Upstream rejected or malformed"
// @Failure 504 {object} APIResponse "Upstream timeout"
// @Router /weather/readings/{kind} [get]
func (h *Handler) WeatherReadings(w http.ResponseWriter, r *http.Request) {
	rw := NewResponseWriter(w, r)
	res, err := h.agg.WeatherReadings(r.Context(), chi.URLParam(r, "kind"))
	if err != nil {
		rw.FetchError(err)
		return
	}

	out := ReadingsResponse{
		ReadingType: res.ReadingType,
		Unit:        res.Unit,
		Count:       len(res.Features),
		Features:    viewport.FeatureCollection(res.Features),
	}
	if !res.Timestamp.IsZero() {
		out.Timestamp = &res.Timestamp
	}
	rw.SuccessWithMeta(out, &APIMeta{Source: &res.Meta})
}

// MRTCrowd proxies the station crowd levels of one line.
//
// @Summary MRT station crowd levels
// @Tags Transit
// @Produce json
// @Param line query string true "Train line code, e.g. NSL"
// @Param forecast query bool false "Forecast instead of realtime"
// @Success 200 {object} APIResponse
// @Failure 400 {object} APIResponse "Invalid query parameters"
// @Failure 502 {object} APIResponse "Upstream rejected or malformed"
// @Failure 504 {object} APIResponse "Upstream timeout"
// @Router /mrt-crowd [get]
func (h *Handler) MRTCrowd(w http.ResponseWriter, r *http.Request) {
	rw := NewResponseWriter(w, r)
	req, err := parseMRTCrowd(r.URL.Query())
	if err != nil {
		writeValidation(rw, err)
		return
	}

	writeRaw(rw, h.agg.MRTCrowd(r.Context(), req.Line, req.Forecast))
}

// BicycleParking serves the racks around a point.
//
// @Summary Bicycle racks near a point
// @Tags Transit
// @Produce json
// @Param lat query number true "Latitude"
// @Param lon query number true "Longitude"
// @Param radius query int false "Radius in metres (1-5000)" default(1000)
// @Success 200 {object} APIResponse{data=LayerResponse}
// @Failure 400 {object} APIResponse "Invalid query parameters"
// @Failure 502 {object} APIResponse "Upstream rejected or malformed"
// @Failure 504 {object} APIResponse "Upstream timeout"
// @Router /bicycle-parking [get]
func (h *Handler) BicycleParking(w http.ResponseWriter, r *http.Request) {
	rw := NewResponseWriter(w, r)
	req, err := parseNearby(r.URL.Query())
	if err != nil {
		writeValidation(rw, err)
		return
	}

	res, err := h.agg.BicycleParking(r.Context(), req.Lat, req.Lon, req.Radius)
	if err != nil {
		rw.FetchError(err)
		return
	}
	rw.SuccessWithMeta(LayerResponse{
		Total:    res.Total,
		Count:    len(res.Features),
		Features: viewport.FeatureCollection(res.Features),
	}, &APIMeta{Source: &res.Meta})
}

func writeValidation(rw *ResponseWriter, err error) {
	var verr *validation.Error
	if errors.As(err, &verr) {
		rw.ValidationError("Invalid query parameters", verr.Fields)
		return
	}
	rw.BadRequest(err.Error())
}
