// Merlion - Singapore Live Data Aggregation
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/merlion

package aggregator

import (
	"context"
	"net/url"
	"sort"
	"strconv"
	"time"

	"github.com/goccy/go-json"
	"github.com/paulmach/orb"

	"github.com/tomtom215/merlion/internal/scheduler"
	"github.com/tomtom215/merlion/internal/upstream"
	"github.com/tomtom215/merlion/internal/viewport"
)

// Arrival states relative to the aggregator clock.
const (
	ArrivalScheduled = "scheduled"
	ArrivalArriving  = "arriving" // under a minute away
	ArrivalDeparted  = "departed"
)

// BusArrivalResult is the next buses at one stop.
type BusArrivalResult struct {
	Meta        Meta         `json:"meta"`
	BusStopCode string       `json:"bus_stop_code"`
	Services    []BusService `json:"services"`
}

// BusService lists up to three upcoming buses of one service.
type BusService struct {
	ServiceNo string       `json:"service_no"`
	Operator  string       `json:"operator"`
	Arrivals  []BusArrival `json:"arrivals"`
}

// BusArrival is one upcoming bus.
type BusArrival struct {
	EstimatedArrival time.Time `json:"estimated_arrival"`
	MinutesAway      int       `json:"minutes_away"`
	Status           string    `json:"status"`
	Monitored        bool      `json:"monitored"`
	Load             string    `json:"load"`
	Feature          string    `json:"feature,omitempty"`
	Type             string    `json:"type"`
	Lat              float64   `json:"lat,omitempty"`
	Lon              float64   `json:"lon,omitempty"`
}

type nextBus struct {
	EstimatedArrival string    `json:"EstimatedArrival"`
	Monitored        int       `json:"Monitored"`
	Latitude         flexFloat `json:"Latitude"`
	Longitude        flexFloat `json:"Longitude"`
	Load             string    `json:"Load"`
	Feature          string    `json:"Feature"`
	Type             string    `json:"Type"`
}

type busArrivalPayload struct {
	BusStopCode string `json:"BusStopCode"`
	Services    []struct {
		ServiceNo string  `json:"ServiceNo"`
		Operator  string  `json:"Operator"`
		NextBus   nextBus `json:"NextBus"`
		NextBus2  nextBus `json:"NextBus2"`
		NextBus3  nextBus `json:"NextBus3"`
	} `json:"Services"`
}

// BusArrival fetches the arrivals at stopCode. Each stop is its own cache
// entry.
func (a *Aggregator) BusArrival(ctx context.Context, stopCode string) (BusArrivalResult, error) {
	params := url.Values{}
	params.Set("BusStopCode", stopCode)
	r := a.fetcher.FetchOne(ctx, SourceBusArrival, params)
	if r.Err != nil {
		return BusArrivalResult{}, r.Err
	}

	var p busArrivalPayload
	if err := json.Unmarshal(r.Payload, &p); err != nil {
		return BusArrivalResult{}, upstream.NewError(upstream.KindMalformedResponse, SourceBusArrival, 0, err)
	}

	now := a.now()
	out := BusArrivalResult{Meta: metaOf(r), BusStopCode: stopCode, Services: make([]BusService, 0, len(p.Services))}
	for _, s := range p.Services {
		svc := BusService{ServiceNo: s.ServiceNo, Operator: s.Operator, Arrivals: []BusArrival{}}
		for _, nb := range []nextBus{s.NextBus, s.NextBus2, s.NextBus3} {
			if arr, ok := nb.arrival(now); ok {
				svc.Arrivals = append(svc.Arrivals, arr)
			}
		}
		out.Services = append(out.Services, svc)
	}
	sort.SliceStable(out.Services, func(i, j int) bool {
		return serviceLess(out.Services[i].ServiceNo, out.Services[j].ServiceNo)
	})
	return out, nil
}

// arrival is false for the empty slots DataMall sends when fewer than
// three buses are scheduled.
func (nb nextBus) arrival(now time.Time) (BusArrival, bool) {
	if nb.EstimatedArrival == "" {
		return BusArrival{}, false
	}
	eta, err := time.Parse(time.RFC3339, nb.EstimatedArrival)
	if err != nil {
		return BusArrival{}, false
	}

	until := eta.Sub(now)
	status := ArrivalScheduled
	switch {
	case until < 0:
		status = ArrivalDeparted
	case until < time.Minute:
		status = ArrivalArriving
	}
	return BusArrival{
		EstimatedArrival: eta,
		MinutesAway:      int(until / time.Minute),
		Status:           status,
		Monitored:        nb.Monitored == 1,
		Load:             nb.Load,
		Feature:          nb.Feature,
		Type:             nb.Type,
		Lat:              float64(nb.Latitude),
		Lon:              float64(nb.Longitude),
	}, true
}

// serviceLess orders "2" < "10" < "10e" < "NR1".
func serviceLess(a, b string) bool {
	na, ra := leadingInt(a)
	nb, rb := leadingInt(b)
	if (na < 0) != (nb < 0) {
		return na >= 0
	}
	if na != nb {
		return na < nb
	}
	return ra < rb
}

func leadingInt(s string) (int, string) {
	i := 0
	for i < len(s) && s[i] >= '0' && s[i] <= '9' {
		i++
	}
	if i == 0 {
		return -1, s
	}
	n, _ := strconv.Atoi(s[:i])
	return n, s[i:]
}

type trafficIncident struct {
	Type      string    `json:"Type"`
	Latitude  flexFloat `json:"Latitude"`
	Longitude flexFloat `json:"Longitude"`
	Message   string    `json:"Message"`
}

func decodeIncidents(payload []byte) ([]viewport.Feature, error) {
	incidents, err := decodeEnvelope[trafficIncident](SourceTrafficIncident, payload)
	if err != nil {
		return nil, err
	}

	out := make([]viewport.Feature, 0, len(incidents))
	for i, in := range incidents {
		if in.Latitude == 0 || in.Longitude == 0 {
			continue
		}
		out = append(out, viewport.Feature{
			ID:       "incident-" + strconv.Itoa(i),
			Geometry: orb.Point{float64(in.Longitude), float64(in.Latitude)},
			Properties: map[string]string{
				"type":    in.Type,
				"message": in.Message,
			},
		})
	}
	return out, nil
}

// TrafficIncidents returns the incidents visible in q at any zoom.
func (a *Aggregator) TrafficIncidents(ctx context.Context, q viewport.Query) (LayerResult, error) {
	return a.incidents.query(ctx, a.fetcher, q, 0)
}

// MRTCrowd returns the raw crowd density of one train line, realtime or
// forecast.
func (a *Aggregator) MRTCrowd(ctx context.Context, line string, forecast bool) scheduler.FetchResult {
	id := SourceMRTCrowd
	if forecast {
		id = SourceMRTCrowdForecast
	}
	params := url.Values{}
	params.Set("TrainLine", line)
	return a.fetcher.FetchOne(ctx, id, params)
}

type bicycleParking struct {
	Description      string    `json:"Description"`
	Latitude         flexFloat `json:"Latitude"`
	Longitude        flexFloat `json:"Longitude"`
	RackType         string    `json:"RackType"`
	RackCount        int       `json:"RackCount"`
	ShelterIndicator string    `json:"ShelterIndicator"`
}

// BicycleParking returns racks within radiusM of (lat, lon). DataMall takes
// the distance in km with one decimal, so radii below 100m round up to it.
func (a *Aggregator) BicycleParking(ctx context.Context, lat, lon float64, radiusM int) (LayerResult, error) {
	km := float64(radiusM) / 1000
	if km < 0.1 {
		km = 0.1
	}
	params := url.Values{}
	params.Set("Lat", strconv.FormatFloat(lat, 'f', 4, 64))
	params.Set("Long", strconv.FormatFloat(lon, 'f', 4, 64))
	params.Set("Dist", strconv.FormatFloat(km, 'f', 1, 64))

	r := a.fetcher.FetchOne(ctx, SourceBicycleParking, params)
	if r.Err != nil {
		return LayerResult{}, r.Err
	}
	racks, err := decodeEnvelope[bicycleParking](SourceBicycleParking, r.Payload)
	if err != nil {
		return LayerResult{}, err
	}

	features := make([]viewport.Feature, 0, len(racks))
	for i, b := range racks {
		features = append(features, viewport.Feature{
			ID:       "rack-" + strconv.Itoa(i),
			Geometry: orb.Point{float64(b.Longitude), float64(b.Latitude)},
			Properties: map[string]string{
				"description": b.Description,
				"rack_type":   b.RackType,
				"rack_count":  strconv.Itoa(b.RackCount),
				"sheltered":   strconv.FormatBool(b.ShelterIndicator == "Y"),
			},
		})
	}
	return LayerResult{Meta: metaOf(r), Total: len(features), Features: features}, nil
}
