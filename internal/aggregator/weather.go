// Merlion - Singapore Live Data Aggregation
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/merlion

package aggregator

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/goccy/go-json"
	"github.com/paulmach/orb"

	"github.com/tomtom215/merlion/internal/upstream"
	"github.com/tomtom215/merlion/internal/viewport"
)

// Station reading sources on data.gov.sg. They share one payload shape.
var readingSources = map[string]bool{
	"rainfall":          true,
	"air-temperature":   true,
	"relative-humidity": true,
	"wind-speed":        true,
}

// IsReadingSource reports whether id is a weather station reading source.
func IsReadingSource(id string) bool { return readingSources[id] }

// ReadingsResult is the latest value of every reporting station.
type ReadingsResult struct {
	Meta        Meta
	ReadingType string
	Unit        string
	Timestamp   time.Time
	Features    []viewport.Feature
}

type readingsPayload struct {
	Data struct {
		Stations []struct {
			ID       string `json:"id"`
			Name     string `json:"name"`
			Location struct {
				Latitude  float64 `json:"latitude"`
				Longitude float64 `json:"longitude"`
			} `json:"location"`
		} `json:"stations"`
		Readings []struct {
			Timestamp time.Time `json:"timestamp"`
			Data      []struct {
				StationID string  `json:"stationId"`
				Value     float64 `json:"value"`
			} `json:"data"`
		} `json:"readings"`
		ReadingType string `json:"readingType"`
		ReadingUnit string `json:"readingUnit"`
	} `json:"data"`
}

// WeatherReadings returns one point per station with a value in the latest
// reading set. Stations without a value are left out.
func (a *Aggregator) WeatherReadings(ctx context.Context, sourceID string) (ReadingsResult, error) {
	if !IsReadingSource(sourceID) {
		return ReadingsResult{}, fmt.Errorf("%w: %s", ErrNotReadingSource, sourceID)
	}

	r := a.fetcher.FetchOne(ctx, sourceID, nil)
	if r.Err != nil {
		return ReadingsResult{}, r.Err
	}

	var p readingsPayload
	if err := json.Unmarshal(r.Payload, &p); err != nil {
		return ReadingsResult{}, upstream.NewError(upstream.KindMalformedResponse, sourceID, 0, err)
	}

	out := ReadingsResult{
		Meta:        metaOf(r),
		ReadingType: p.Data.ReadingType,
		Unit:        p.Data.ReadingUnit,
		Features:    []viewport.Feature{},
	}
	if len(p.Data.Readings) == 0 {
		return out, nil
	}
	latest := p.Data.Readings[0]
	out.Timestamp = latest.Timestamp

	values := make(map[string]float64, len(latest.Data))
	for _, d := range latest.Data {
		values[d.StationID] = d.Value
	}
	for _, st := range p.Data.Stations {
		v, ok := values[st.ID]
		if !ok {
			continue
		}
		out.Features = append(out.Features, viewport.Feature{
			ID:       st.ID,
			Geometry: orb.Point{st.Location.Longitude, st.Location.Latitude},
			Properties: map[string]string{
				"name":  st.Name,
				"value": strconv.FormatFloat(v, 'f', -1, 64),
				"unit":  p.Data.ReadingUnit,
			},
		})
	}
	return out, nil
}
