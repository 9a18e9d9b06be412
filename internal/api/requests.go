// Merlion - Singapore Live Data Aggregation
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/merlion

package api

// Request structs carry go-playground/validator tags; the query tag names
// the parameter in validation messages.

import (
	"math"
	"net/url"
	"strconv"
	"strings"

	"github.com/tomtom215/merlion/internal/validation"
	"github.com/tomtom215/merlion/internal/viewport"
)

// MaxZoom is the deepest web map zoom level accepted.
const MaxZoom = 22

// ViewportRequest is a bounding box plus zoom. It is filled either from
// min_lon/min_lat/max_lon/max_lat or from a lat/lon centre.
type ViewportRequest struct {
	Zoom   int     `query:"zoom" validate:"gte=0,lte=22"`
	MinLon float64 `query:"min_lon" validate:"gte=-180,lte=180"`
	MinLat float64 `query:"min_lat" validate:"gte=-90,lte=90"`
	MaxLon float64 `query:"max_lon" validate:"gte=-180,lte=180,gtefield=MinLon"`
	MaxLat float64 `query:"max_lat" validate:"gte=-90,lte=90,gtefield=MinLat"`
}

// Query converts a validated request.
func (v ViewportRequest) Query() viewport.Query {
	return viewport.Query{
		Bounds: viewport.Bounds{MinLon: v.MinLon, MinLat: v.MinLat, MaxLon: v.MaxLon, MaxLat: v.MaxLat},
		Zoom:   v.Zoom,
	}
}

// SVY21Request is a single grid coordinate.
type SVY21Request struct {
	Easting  float64 `query:"easting" validate:"gte=-1000000,lte=1000000"`
	Northing float64 `query:"northing" validate:"gte=-1000000,lte=1000000"`
}

// NearbyRequest is a point search.
type NearbyRequest struct {
	Lat    float64 `query:"lat" validate:"gte=-90,lte=90"`
	Lon    float64 `query:"lon" validate:"gte=-180,lte=180"`
	Radius int     `query:"radius" validate:"gte=1,lte=5000"`
}

// BusArrivalRequest is a five digit bus stop code.
type BusArrivalRequest struct {
	Stop string `query:"stop" validate:"required,len=5,numeric"`
}

// MRTCrowdRequest selects one train line, realtime unless Forecast is set.
type MRTCrowdRequest struct {
	Line     string `query:"line" validate:"oneof=CCL CEL CGL DTL EWL NEL NSL BPL SLRT PLRT TEL"`
	Forecast bool   `query:"forecast"`
}

// FetchRequest lists source ids, at most 50 per call.
type FetchRequest struct {
	IDs []string `query:"ids" validate:"max=50,dive,source_id"`
}

// params collects parse failures in the same shape as validation errors.
type params struct {
	q    url.Values
	errs []validation.FieldError
}

func newParams(q url.Values) *params {
	return &params{q: q}
}

func (p *params) has(name string) bool {
	return p.q.Get(name) != ""
}

func (p *params) fail(name, tag, msg string) {
	p.errs = append(p.errs, validation.FieldError{Field: name, Tag: tag, Message: msg})
}

func (p *params) float(name string, dst *float64) {
	raw := p.q.Get(name)
	if raw == "" {
		p.fail(name, "required", name+" is required")
		return
	}
	f, err := strconv.ParseFloat(raw, 64)
	if err != nil || math.IsNaN(f) || math.IsInf(f, 0) {
		p.fail(name, "number", name+" must be a number")
		return
	}
	*dst = f
}

func (p *params) bool(name string, dst *bool) {
	raw := p.q.Get(name)
	if raw == "" {
		return
	}
	b, err := strconv.ParseBool(raw)
	if err != nil {
		p.fail(name, "boolean", name+" must be true or false")
		return
	}
	*dst = b
}

func (p *params) int(name string, dst *int, def int, required bool) {
	raw := p.q.Get(name)
	if raw == "" {
		if required {
			p.fail(name, "required", name+" is required")
		}
		*dst = def
		return
	}
	n, err := strconv.Atoi(raw)
	if err != nil {
		p.fail(name, "integer", name+" must be an integer")
		return
	}
	*dst = n
}

// validate returns the parse failures, if any, else runs the struct rules.
func (p *params) validate(s interface{}) error {
	if len(p.errs) > 0 {
		return &validation.Error{Fields: p.errs}
	}
	return validation.ValidateStruct(s)
}

var bboxParams = []string{"min_lon", "min_lat", "max_lon", "max_lat"}

// parseViewport reads either a bbox or a centre point, plus zoom.
func parseViewport(q url.Values) (ViewportRequest, error) {
	var req ViewportRequest
	p := newParams(q)
	p.int("zoom", &req.Zoom, 0, true)

	bbox := false
	for _, name := range bboxParams {
		if p.has(name) {
			bbox = true
		}
	}

	switch {
	case bbox:
		p.float("min_lon", &req.MinLon)
		p.float("min_lat", &req.MinLat)
		p.float("max_lon", &req.MaxLon)
		p.float("max_lat", &req.MaxLat)
	case p.has("lat") || p.has("lon"):
		var lat, lon float64
		p.float("lat", &lat)
		p.float("lon", &lon)
		if len(p.errs) == 0 && req.Zoom >= 0 && req.Zoom <= MaxZoom {
			b := clamp(viewport.BoundsFromCenter(lat, lon, req.Zoom))
			req.MinLon, req.MinLat, req.MaxLon, req.MaxLat = b.MinLon, b.MinLat, b.MaxLon, b.MaxLat
		}
	default:
		p.fail("bbox", "required", "either min_lon, min_lat, max_lon, max_lat or lat, lon is required")
	}

	return req, p.validate(req)
}

// clamp keeps a centre-derived box inside valid coordinates at low zoom.
func clamp(b viewport.Bounds) viewport.Bounds {
	b.MinLon = math.Max(b.MinLon, -180)
	b.MaxLon = math.Min(b.MaxLon, 180)
	b.MinLat = math.Max(b.MinLat, -90)
	b.MaxLat = math.Min(b.MaxLat, 90)
	return b
}

func parseSVY21(q url.Values) (SVY21Request, error) {
	var req SVY21Request
	p := newParams(q)
	p.float("easting", &req.Easting)
	p.float("northing", &req.Northing)
	return req, p.validate(req)
}

// DefaultNearbyRadius is used when radius is omitted.
const DefaultNearbyRadius = 1000

func parseNearby(q url.Values) (NearbyRequest, error) {
	var req NearbyRequest
	p := newParams(q)
	p.float("lat", &req.Lat)
	p.float("lon", &req.Lon)
	p.int("radius", &req.Radius, DefaultNearbyRadius, false)
	return req, p.validate(req)
}

func parseBusArrival(q url.Values) (BusArrivalRequest, error) {
	req := BusArrivalRequest{Stop: strings.TrimSpace(q.Get("stop"))}
	return req, validation.ValidateStruct(req)
}

// parseMRTCrowd accepts the line code in any case.
func parseMRTCrowd(q url.Values) (MRTCrowdRequest, error) {
	req := MRTCrowdRequest{Line: strings.ToUpper(strings.TrimSpace(q.Get("line")))}
	p := newParams(q)
	p.bool("forecast", &req.Forecast)
	return req, p.validate(req)
}

// parseFetch splits ids=a,b,c. Empty entries and duplicates are dropped;
// an absent parameter means every registered source.
func parseFetch(q url.Values, all []string) (FetchRequest, error) {
	raw := q.Get("ids")
	if raw == "" {
		return FetchRequest{IDs: all}, nil
	}

	seen := make(map[string]bool)
	var req FetchRequest
	for _, id := range strings.Split(raw, ",") {
		id = strings.TrimSpace(id)
		if id == "" || seen[id] {
			continue
		}
		seen[id] = true
		req.IDs = append(req.IDs, id)
	}
	return req, validation.ValidateStruct(req)
}
