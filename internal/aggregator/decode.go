// Merlion - Singapore Live Data Aggregation
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/merlion

package aggregator

import (
	"bytes"
	"fmt"
	"strconv"
	"strings"

	"github.com/goccy/go-json"
	"github.com/paulmach/orb"

	"github.com/tomtom215/merlion/internal/upstream"
	"github.com/tomtom215/merlion/internal/viewport"
)

// flexFloat accepts both 1.29 and "1.29". DataMall has published
// coordinates both ways across API versions.
type flexFloat float64

func (f *flexFloat) UnmarshalJSON(b []byte) error {
	b = bytes.Trim(b, `"`)
	if len(b) == 0 || string(b) == "null" {
		*f = 0
		return nil
	}
	v, err := strconv.ParseFloat(string(b), 64)
	if err != nil {
		return err
	}
	*f = flexFloat(v)
	return nil
}

// flexString accepts a JSON string or a bare number and keeps its text.
type flexString string

func (f *flexString) UnmarshalJSON(b []byte) error {
	if string(b) == "null" {
		*f = ""
		return nil
	}
	if len(b) > 0 && b[0] == '"' {
		var s string
		if err := json.Unmarshal(b, &s); err != nil {
			return err
		}
		*f = flexString(s)
		return nil
	}
	*f = flexString(b)
	return nil
}

// dataMallEnvelope is the {"value": [...]} document DataMall returns and
// the paginated client reassembles.
type dataMallEnvelope[T any] struct {
	Value []T `json:"value"`
}

func decodeEnvelope[T any](sourceID string, payload []byte) ([]T, error) {
	var env dataMallEnvelope[T]
	if err := json.Unmarshal(payload, &env); err != nil {
		return nil, upstream.NewError(upstream.KindMalformedResponse, sourceID, 0, err)
	}
	return env.Value, nil
}

type busStop struct {
	BusStopCode string    `json:"BusStopCode"`
	RoadName    string    `json:"RoadName"`
	Description string    `json:"Description"`
	Latitude    flexFloat `json:"Latitude"`
	Longitude   flexFloat `json:"Longitude"`
}

// decodeBusStops skips stops without coordinates; a handful are published
// at 0,0.
func decodeBusStops(payload []byte) ([]viewport.Feature, error) {
	stops, err := decodeEnvelope[busStop](SourceBusStop, payload)
	if err != nil {
		return nil, err
	}

	out := make([]viewport.Feature, 0, len(stops))
	for _, s := range stops {
		if s.Latitude == 0 || s.Longitude == 0 {
			continue
		}
		out = append(out, viewport.Feature{
			ID:       s.BusStopCode,
			Geometry: orb.Point{float64(s.Longitude), float64(s.Latitude)},
			Properties: map[string]string{
				"code":        s.BusStopCode,
				"road_name":   s.RoadName,
				"description": s.Description,
			},
		})
	}
	return out, nil
}

type speedBand struct {
	LinkID       flexString `json:"LinkID"`
	RoadName     string     `json:"RoadName"`
	RoadCategory flexString `json:"RoadCategory"`
	SpeedBand    flexString `json:"SpeedBand"`
	MinimumSpeed flexString `json:"MinimumSpeed"`
	MaximumSpeed flexString `json:"MaximumSpeed"`
	StartLon     flexFloat  `json:"StartLon"`
	StartLat     flexFloat  `json:"StartLat"`
	EndLon       flexFloat  `json:"EndLon"`
	EndLat       flexFloat  `json:"EndLat"`
}

func decodeSpeedBands(payload []byte) ([]viewport.Feature, error) {
	bands, err := decodeEnvelope[speedBand](SourceSpeedBand, payload)
	if err != nil {
		return nil, err
	}

	out := make([]viewport.Feature, 0, len(bands))
	for i, b := range bands {
		id := string(b.LinkID)
		if id == "" {
			id = "link-" + strconv.Itoa(i)
		}
		out = append(out, viewport.Feature{
			ID: id,
			Geometry: orb.LineString{
				{float64(b.StartLon), float64(b.StartLat)},
				{float64(b.EndLon), float64(b.EndLat)},
			},
			Properties: map[string]string{
				"road_name":     b.RoadName,
				"road_category": string(b.RoadCategory),
				"speed_band":    string(b.SpeedBand),
				"min_speed":     string(b.MinimumSpeed),
				"max_speed":     string(b.MaximumSpeed),
			},
		})
	}
	return out, nil
}

// carparkLots is the live availability of one carpark.
type carparkLots struct {
	Development string
	Agency      string
	Lots        map[string]int // lot type (C, H, Y) -> available
}

type carparkAvailability struct {
	CarParkID     string `json:"CarParkID"`
	Area          string `json:"Area"`
	Development   string `json:"Development"`
	Location      string `json:"Location"`
	AvailableLots int    `json:"AvailableLots"`
	LotType       string `json:"LotType"`
	Agency        string `json:"Agency"`
}

// decodeAvailability groups DataMall availability rows by upper-cased
// carpark ID, one entry per lot type.
func decodeAvailability(payload []byte) (map[string]*carparkLots, error) {
	rows, err := decodeEnvelope[carparkAvailability](SourceCarpark, payload)
	if err != nil {
		return nil, err
	}

	out := make(map[string]*carparkLots, len(rows))
	for _, r := range rows {
		id := strings.ToUpper(strings.TrimSpace(r.CarParkID))
		if id == "" {
			continue
		}
		c, ok := out[id]
		if !ok {
			c = &carparkLots{Development: r.Development, Agency: r.Agency, Lots: map[string]int{}}
			out[id] = c
		}
		lotType := r.LotType
		if lotType == "" {
			lotType = "C"
		}
		c.Lots[lotType] += r.AvailableLots
	}
	return out, nil
}

func (c *carparkLots) apply(props map[string]string) {
	props["agency"] = c.Agency
	for lotType, n := range c.Lots {
		props[fmt.Sprintf("lots_%s", strings.ToLower(lotType))] = strconv.Itoa(n)
	}
}
