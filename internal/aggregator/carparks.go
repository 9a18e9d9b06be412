// Merlion - Singapore Live Data Aggregation
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/merlion

package aggregator

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
	"sync"

	"github.com/paulmach/orb"

	"github.com/tomtom215/merlion/internal/logging"
	"github.com/tomtom215/merlion/internal/svy21"
	"github.com/tomtom215/merlion/internal/viewport"
)

// ErrCarparksUnavailable means the carpark CSV has not been bootstrapped.
var ErrCarparksUnavailable = errors.New("carpark locations not available")

// Columns of HDBCarparkInformation.csv used here; the rest are copied as
// properties verbatim.
const (
	colCarparkNo = "car_park_no"
	colXCoord    = "x_coord"
	colYCoord    = "y_coord"
)

// carparkLayer holds the static carpark locations, reprojected from SVY21
// once, and merges live availability into each query result.
type carparkLayer struct {
	path   string
	cellKm float64

	mu    sync.Mutex
	index *viewport.GridIndex
}

func newCarparkLayer(path string, cellKm float64) *carparkLayer {
	return &carparkLayer{path: path, cellKm: cellKm}
}

func (l *carparkLayer) query(ctx context.Context, f Fetcher, q viewport.Query, minZoom int) (LayerResult, error) {
	if q.Zoom < minZoom {
		return LayerResult{Meta: Meta{SourceID: SourceCarpark}, Features: []viewport.Feature{}}, nil
	}

	idx, err := l.locations()
	if err != nil {
		return LayerResult{}, err
	}
	visible := idx.Query(q, minZoom)
	res := LayerResult{Meta: Meta{SourceID: SourceCarpark}, Total: idx.Len(), Features: visible}

	// Availability is optional: locations are still useful without it.
	r := f.FetchOne(ctx, SourceCarpark, nil)
	if r.Err != nil {
		logging.Ctx(ctx).Warn().Err(r.Err).Msg("Carpark availability unavailable, returning locations only")
		return res, nil
	}
	lots, err := decodeAvailability(r.Payload)
	if err != nil {
		logging.Ctx(ctx).Warn().Err(err).Msg("Carpark availability undecodable, returning locations only")
		return res, nil
	}

	res.Meta = metaOf(r)
	for i, feat := range visible {
		c, ok := lots[feat.ID]
		if !ok {
			continue
		}
		// Index features are shared; copy before adding live values.
		props := make(map[string]string, len(feat.Properties)+4)
		for k, v := range feat.Properties {
			props[k] = v
		}
		c.apply(props)
		visible[i].Properties = props
	}
	return res, nil
}

// locations loads the CSV on first success. A missing file is retried on
// every call until the bootstrapper has written it.
func (l *carparkLayer) locations() (*viewport.GridIndex, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.index != nil {
		return l.index, nil
	}
	if l.path == "" {
		return nil, ErrCarparksUnavailable
	}

	file, err := os.Open(l.path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("%w: %s", ErrCarparksUnavailable, l.path)
		}
		return nil, fmt.Errorf("open carpark csv: %w", err)
	}
	defer file.Close()

	features, err := readCarparkCSV(file)
	if err != nil {
		return nil, err
	}
	l.index = viewport.NewGridIndex(features, l.cellKm)
	logging.Info().Int("carparks", len(features)).Str("path", l.path).Msg("Loaded carpark locations")
	return l.index, nil
}

// readCarparkCSV reprojects every row's SVY21 x/y to WGS84. Rows with
// unusable coordinates are skipped.
func readCarparkCSV(r io.Reader) ([]viewport.Feature, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1
	cr.TrimLeadingSpace = true

	header, err := cr.Read()
	if err != nil {
		return nil, fmt.Errorf("read carpark csv header: %w", err)
	}
	col := make(map[string]int, len(header))
	for i, h := range header {
		col[strings.ToLower(strings.TrimSpace(strings.TrimPrefix(h, "\ufeff")))] = i
	}
	for _, required := range []string{colCarparkNo, colXCoord, colYCoord} {
		if _, ok := col[required]; !ok {
			return nil, fmt.Errorf("carpark csv: missing column %q", required)
		}
	}

	var (
		out     []viewport.Feature
		skipped int
	)
	for {
		rec, err := cr.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("read carpark csv: %w", err)
		}
		if len(rec) < len(header) {
			skipped++
			continue
		}

		x, errX := strconv.ParseFloat(strings.TrimSpace(rec[col[colXCoord]]), 64)
		y, errY := strconv.ParseFloat(strings.TrimSpace(rec[col[colYCoord]]), 64)
		id := strings.ToUpper(strings.TrimSpace(rec[col[colCarparkNo]]))
		if errX != nil || errY != nil || id == "" {
			skipped++
			continue
		}

		geo := svy21.ToWGS84(x, y)
		props := make(map[string]string, len(header))
		for name, i := range col {
			if name == colXCoord || name == colYCoord {
				continue
			}
			props[name] = rec[i]
		}
		out = append(out, viewport.Feature{
			ID:         id,
			Geometry:   orb.Point{geo.Lon, geo.Lat},
			Properties: props,
		})
	}

	if skipped > 0 {
		logging.Warn().Int("skipped", skipped).Msg("Skipped carpark rows without usable coordinates")
	}
	return out, nil
}
