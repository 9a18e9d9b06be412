// Merlion - Singapore Live Data Aggregation
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/merlion

package cluster

import (
	"fmt"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/geojson"

	"github.com/tomtom215/merlion/internal/viewport"
)

// GantryNumberKey is the Description attribute naming an ERP gantry.
const GantryNumberKey = "GNTRY_NUM"

// ParseLines decodes a collection of LineString features, such as the ERP
// gantry dataset, into viewport features. Lines need at least two vertices;
// anything else is skipped.
func (p *Parser) ParseLines(payload []byte) ([]viewport.Feature, error) {
	raws, err := splitCollection(payload)
	if err != nil {
		return nil, err
	}

	slots := decodeAll(raws, p.workers, decodeLine)

	out := make([]viewport.Feature, 0, len(slots))
	for _, s := range slots {
		if s.ok {
			out = append(out, s.feature)
		}
	}
	return out, nil
}

// ParseLines decodes line features with the default parser.
func ParseLines(payload []byte) ([]viewport.Feature, error) {
	return defaultParser.ParseLines(payload)
}

func decodeLine(index int, raw []byte) (viewport.Feature, error) {
	gf, err := geojson.UnmarshalFeature(raw)
	if err != nil {
		return viewport.Feature{}, err
	}

	ls, ok := gf.Geometry.(orb.LineString)
	if !ok {
		return viewport.Feature{}, fmt.Errorf("geometry %T is not a line string", gf.Geometry)
	}
	if len(ls) < 2 {
		return viewport.Feature{}, fmt.Errorf("line string has %d vertices", len(ls))
	}

	props := flatten(gf.Properties)
	if v, ok := props[GantryNumberKey]; !ok || v == "" {
		props[GantryNumberKey] = "Unknown"
	}

	return viewport.Feature{
		ID:         featureID(gf.ID, props, index),
		Geometry:   ls,
		Properties: props,
	}, nil
}
