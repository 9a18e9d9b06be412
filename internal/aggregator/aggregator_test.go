// Merlion - Singapore Live Data Aggregation
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/merlion

package aggregator

import (
	"context"
	"errors"
	"math"
	"net/url"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/paulmach/orb"

	"github.com/tomtom215/merlion/internal/config"
	"github.com/tomtom215/merlion/internal/scheduler"
	"github.com/tomtom215/merlion/internal/upstream"
	"github.com/tomtom215/merlion/internal/viewport"
)

// fakeFetcher serves canned results and records requests.
type fakeFetcher struct {
	mu      sync.Mutex
	results map[string]scheduler.FetchResult
	calls   map[string]int
	params  map[string]url.Values
}

func newFakeFetcher() *fakeFetcher {
	return &fakeFetcher{
		results: make(map[string]scheduler.FetchResult),
		calls:   make(map[string]int),
		params:  make(map[string]url.Values),
	}
}

func (f *fakeFetcher) set(id string, payload string, fetchedAt time.Time) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.results[id] = scheduler.FetchResult{SourceID: id, Payload: []byte(payload), FetchedAt: fetchedAt}
}

func (f *fakeFetcher) fail(id string, kind upstream.Kind) {
	f.mu.Lock()
	defer f.mu.Unlock()
	err := upstream.NewError(kind, id, 0, nil)
	f.results[id] = scheduler.FetchResult{SourceID: id, Kind: kind, Err: err}
}

func (f *fakeFetcher) FetchOne(_ context.Context, id string, params url.Values) scheduler.FetchResult {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls[id]++
	f.params[id] = params
	if r, ok := f.results[id]; ok {
		return r
	}
	err := upstream.NewError(upstream.KindUnreachable, id, 0, scheduler.ErrUnknownSource)
	return scheduler.FetchResult{SourceID: id, Kind: upstream.KindUnreachable, Err: err}
}

func (f *fakeFetcher) FetchAll(ctx context.Context, ids []string) map[string]scheduler.FetchResult {
	out := make(map[string]scheduler.FetchResult, len(ids))
	for _, id := range ids {
		out[id] = f.FetchOne(ctx, id, nil)
	}
	return out
}

func (f *fakeFetcher) callCount(id string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls[id]
}

var testViewport = config.ViewportConfig{
	BusStopMinZoom:   15,
	SpeedBandMinZoom: 14,
	CarparkMinZoom:   14,
	GridCellKm:       1,
}

func testAggregator(f Fetcher, csvPath string) *Aggregator {
	return New(f, Options{Viewport: testViewport, CarparkCSV: csvPath, Workers: 2})
}

func featureIDs(fs []viewport.Feature) map[string]bool {
	out := make(map[string]bool, len(fs))
	for _, f := range fs {
		out[f.ID] = true
	}
	return out
}

func TestFilterForViewport(t *testing.T) {
	t.Parallel()

	a := testAggregator(newFakeFetcher(), "")
	features := []viewport.Feature{
		{ID: "a", Geometry: orb.Point{103.80, 1.30}},
		{ID: "b", Geometry: orb.Point{103.90, 1.35}},
		{ID: "c", Geometry: orb.Point{104.00, 1.40}},
	}
	bbox := viewport.Bounds{MinLon: 103.75, MinLat: 1.28, MaxLon: 103.95, MaxLat: 1.38}

	got := a.FilterForViewport(features, bbox, 16, 15)
	if len(got) != 2 || got[0].ID != "a" || got[1].ID != "b" {
		t.Errorf("FilterForViewport = %v, want a and b", got)
	}
	if got := a.FilterForViewport(features, bbox, 12, 15); len(got) != 0 {
		t.Errorf("below min zoom = %v, want empty", got)
	}
}

func TestTransform(t *testing.T) {
	t.Parallel()

	a := testAggregator(newFakeFetcher(), "")
	p := a.Transform(28001.642, 38744.572)
	if math.Abs(p.Lon-103.8333333333) > 1e-8 || math.Abs(p.Lat-1.3666666667) > 1e-8 {
		t.Errorf("Transform(origin) = %+v", p)
	}
}

func TestClusters(t *testing.T) {
	t.Parallel()

	f := newFakeFetcher()
	fetchedAt := time.Date(2026, 2, 1, 9, 0, 0, 0, time.UTC)
	f.set(SourceDengue, `{"type":"FeatureCollection","features":[`+
		`{"type":"Feature","id":"d1","properties":{"LOCALITY":"Tampines St 81","CASE_SIZE":7},`+
		`"geometry":{"type":"Polygon","coordinates":[[[103.93,1.35],[103.94,1.35],[103.94,1.36],[103.93,1.35]]]}}]}`, fetchedAt)

	a := testAggregator(f, "")
	res, err := a.Clusters(context.Background(), SourceDengue)
	if err != nil {
		t.Fatalf("Clusters: %v", err)
	}
	if len(res.Features) != 1 || res.Features[0].Properties["CASE_SIZE"] != "7" {
		t.Errorf("features = %+v", res.Features)
	}
	if !res.Meta.FetchedAt.Equal(fetchedAt) || res.Meta.SourceID != SourceDengue {
		t.Errorf("meta = %+v", res.Meta)
	}

	if _, err := a.Clusters(context.Background(), "psi"); !errors.Is(err, ErrNotClusterSource) {
		t.Errorf("err = %v, want ErrNotClusterSource", err)
	}

	f.fail(SourceZika, upstream.KindTimeout)
	if _, err := a.Clusters(context.Background(), SourceZika); !errors.Is(err, upstream.ErrTimeout) {
		t.Errorf("err = %v, want ErrTimeout", err)
	}
}

func TestParseClusters(t *testing.T) {
	t.Parallel()

	a := testAggregator(newFakeFetcher(), "")
	features, err := a.ParseClusters([]byte(`{"type":"FeatureCollection","features":[]}`))
	if err != nil || len(features) != 0 {
		t.Errorf("ParseClusters(empty) = %v, %v", features, err)
	}
}

const busStopsPayload = `{"value":[
	{"BusStopCode":"01012","RoadName":"Victoria St","Description":"Hotel Grand Pacific","Latitude":1.29684,"Longitude":103.85253},
	{"BusStopCode":"01013","RoadName":"Victoria St","Description":"St. Joseph's Ch","Latitude":"1.29770","Longitude":"103.85322"},
	{"BusStopCode":"75009","RoadName":"Tampines Ctrl 1","Description":"Tampines Int","Latitude":1.35407,"Longitude":103.94339},
	{"BusStopCode":"99999","RoadName":"Nowhere","Description":"Unmapped","Latitude":0,"Longitude":0}
]}`

func TestBusStops(t *testing.T) {
	t.Parallel()

	f := newFakeFetcher()
	f.set(SourceBusStop, busStopsPayload, time.Date(2026, 2, 1, 0, 0, 0, 0, time.UTC))
	a := testAggregator(f, "")

	cityHall := viewport.Query{Bounds: viewport.BoundsFromCenter(1.2975, 103.853, 16), Zoom: 16}

	// Below the cutoff no fetch happens at all.
	low, err := a.BusStops(context.Background(), viewport.Query{Bounds: cityHall.Bounds, Zoom: 12})
	if err != nil {
		t.Fatalf("BusStops(low zoom): %v", err)
	}
	if len(low.Features) != 0 || f.callCount(SourceBusStop) != 0 {
		t.Errorf("low zoom: %d features, %d fetches; want 0, 0", len(low.Features), f.callCount(SourceBusStop))
	}

	res, err := a.BusStops(context.Background(), cityHall)
	if err != nil {
		t.Fatalf("BusStops: %v", err)
	}
	ids := featureIDs(res.Features)
	if len(ids) != 2 || !ids["01012"] || !ids["01013"] {
		t.Errorf("visible stops = %v, want 01012 and 01013", ids)
	}
	if res.Total != 3 {
		t.Errorf("Total = %d, want 3 (0,0 stop dropped)", res.Total)
	}
	for _, feat := range res.Features {
		if feat.ID == "01012" && feat.Properties["description"] != "Hotel Grand Pacific" {
			t.Errorf("properties = %v", feat.Properties)
		}
	}

	// Same payload: the index is reused.
	first := a.busStops.index
	if _, err := a.BusStops(context.Background(), cityHall); err != nil {
		t.Fatal(err)
	}
	if a.busStops.index != first {
		t.Error("index rebuilt for an unchanged payload")
	}

	// A refreshed payload rebuilds it.
	f.set(SourceBusStop, `{"value":[]}`, time.Date(2026, 2, 2, 0, 0, 0, 0, time.UTC))
	res, err = a.BusStops(context.Background(), cityHall)
	if err != nil {
		t.Fatal(err)
	}
	if res.Total != 0 || a.busStops.index == first {
		t.Errorf("after refresh Total = %d, index reused = %v", res.Total, a.busStops.index == first)
	}
}

func TestBusStops_Errors(t *testing.T) {
	t.Parallel()

	f := newFakeFetcher()
	a := testAggregator(f, "")
	q := viewport.Query{Bounds: viewport.BoundsFromCenter(1.3, 103.8, 16), Zoom: 16}

	f.fail(SourceBusStop, upstream.KindUnauthorized)
	if _, err := a.BusStops(context.Background(), q); !errors.Is(err, upstream.ErrUnauthorized) {
		t.Errorf("err = %v, want ErrUnauthorized", err)
	}

	f.set(SourceBusStop, `{"value":"nope"}`, time.Now())
	if _, err := a.BusStops(context.Background(), q); !errors.Is(err, upstream.ErrMalformedResponse) {
		t.Errorf("err = %v, want ErrMalformedResponse", err)
	}
}

func TestSpeedBands(t *testing.T) {
	t.Parallel()

	f := newFakeFetcher()
	f.set(SourceSpeedBand, `{"value":[
		{"LinkID":"103000000","RoadName":"KENT ROAD","RoadCategory":"E","SpeedBand":2,"MinimumSpeed":"10","MaximumSpeed":"19",
		 "StartLon":"103.85","StartLat":"1.31","EndLon":"103.86","EndLat":"1.32"},
		{"LinkID":103000010,"RoadName":"BUCKLEY ROAD","RoadCategory":"E","SpeedBand":4,"MinimumSpeed":30,"MaximumSpeed":39,
		 "StartLon":103.70,"StartLat":1.40,"EndLon":103.71,"EndLat":1.41}
	]}`, time.Now())
	a := testAggregator(f, "")

	q := viewport.Query{Bounds: viewport.Bounds{MinLon: 103.855, MinLat: 1.315, MaxLon: 103.87, MaxLat: 1.33}, Zoom: 14}
	res, err := a.SpeedBands(context.Background(), q)
	if err != nil {
		t.Fatalf("SpeedBands: %v", err)
	}
	if len(res.Features) != 1 || res.Features[0].ID != "103000000" {
		t.Fatalf("features = %+v, want only KENT ROAD (end vertex inside)", res.Features)
	}
	p := res.Features[0].Properties
	if p["speed_band"] != "2" || p["max_speed"] != "19" || p["road_name"] != "KENT ROAD" {
		t.Errorf("properties = %v", p)
	}
	if res.Total != 2 {
		t.Errorf("Total = %d, want 2", res.Total)
	}
}

func TestERPGantries(t *testing.T) {
	t.Parallel()

	f := newFakeFetcher()
	f.set(SourceERPGantry, `{"type":"FeatureCollection","features":[
		{"type":"Feature","properties":{"Name":"kml_1","Description":"<table><tr><th>GNTRY_NUM</th><td>1</td></tr></table>"},
		 "geometry":{"type":"LineString","coordinates":[[103.85,1.29,0],[103.851,1.291,0]]}}
	]}`, time.Now())
	a := testAggregator(f, "")

	// Gantries have no zoom cutoff.
	q := viewport.Query{Bounds: viewport.Bounds{MinLon: 103.6, MinLat: 1.2, MaxLon: 104.1, MaxLat: 1.5}, Zoom: 10}
	res, err := a.ERPGantries(context.Background(), q)
	if err != nil {
		t.Fatalf("ERPGantries: %v", err)
	}
	if len(res.Features) != 1 || res.Features[0].Properties["GNTRY_NUM"] != "1" {
		t.Errorf("features = %+v", res.Features)
	}
}

const carparkCSV = "car_park_no,address,x_coord,y_coord,car_park_type\n" +
	"ACB,BLK 270/271 ALBERT CENTRE BASEMENT CAR PARK,28001.642,38744.572,BASEMENT CAR PARK\n" +
	"ACM,BLK 98A ALJUNIED CRESCENT,30001.642,38744.572,MULTI-STOREY CAR PARK\n" +
	"BAD,NO COORDS,,,SURFACE CAR PARK\n"

func writeCarparkCSV(t *testing.T) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), config.CarparkFile)
	if err := os.WriteFile(path, []byte(carparkCSV), 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestCarparks(t *testing.T) {
	t.Parallel()

	f := newFakeFetcher()
	f.set(SourceCarpark, `{"value":[
		{"CarParkID":"acb","Area":"","Development":"BLK 270/271","Location":"1.3667 103.8333","AvailableLots":42,"LotType":"C","Agency":"HDB"},
		{"CarParkID":"ACB","AvailableLots":3,"LotType":"Y","Agency":"HDB"}
	]}`, time.Date(2026, 2, 1, 8, 0, 0, 0, time.UTC))
	a := testAggregator(f, writeCarparkCSV(t))

	// Around the SVY21 origin; ACM lies about 2km east.
	q := viewport.Query{Bounds: viewport.Bounds{MinLon: 103.83, MinLat: 1.36, MaxLon: 103.84, MaxLat: 1.37}, Zoom: 15}
	res, err := a.Carparks(context.Background(), q)
	if err != nil {
		t.Fatalf("Carparks: %v", err)
	}
	if res.Total != 2 {
		t.Errorf("Total = %d, want 2 (row without coordinates skipped)", res.Total)
	}
	if len(res.Features) != 1 {
		t.Fatalf("features = %+v, want ACB only", res.Features)
	}

	acb := res.Features[0]
	pt := acb.Geometry.(orb.Point)
	if math.Abs(pt.Lon()-103.8333333) > 1e-6 || math.Abs(pt.Lat()-1.3666667) > 1e-6 {
		t.Errorf("ACB at %v, want SVY21 origin", pt)
	}
	if acb.Properties["lots_c"] != "42" || acb.Properties["lots_y"] != "3" || acb.Properties["agency"] != "HDB" {
		t.Errorf("properties = %v", acb.Properties)
	}
	if acb.Properties["address"] != "BLK 270/271 ALBERT CENTRE BASEMENT CAR PARK" {
		t.Errorf("address = %q", acb.Properties["address"])
	}
	if res.Meta.SourceID != SourceCarpark || res.Meta.FetchedAt.IsZero() {
		t.Errorf("meta = %+v", res.Meta)
	}

	// The shared index must not have been mutated by the merge.
	again := a.carparks.index.Query(q, 0)
	if _, ok := again[0].Properties["lots_c"]; ok {
		t.Error("availability leaked into the cached index")
	}
}

func TestCarparks_AvailabilityDown(t *testing.T) {
	t.Parallel()

	f := newFakeFetcher()
	f.fail(SourceCarpark, upstream.KindRateLimited)
	a := testAggregator(f, writeCarparkCSV(t))

	q := viewport.Query{Bounds: viewport.Bounds{MinLon: 103.8, MinLat: 1.3, MaxLon: 103.9, MaxLat: 1.4}, Zoom: 15}
	res, err := a.Carparks(context.Background(), q)
	if err != nil {
		t.Fatalf("Carparks: %v", err)
	}
	if len(res.Features) != 2 {
		t.Errorf("got %d features, want both locations", len(res.Features))
	}
}

func TestCarparks_NotBootstrapped(t *testing.T) {
	t.Parallel()

	a := testAggregator(newFakeFetcher(), filepath.Join(t.TempDir(), "missing.csv"))
	q := viewport.Query{Bounds: viewport.Bounds{MinLon: 103.8, MinLat: 1.3, MaxLon: 103.9, MaxLat: 1.4}, Zoom: 15}
	if _, err := a.Carparks(context.Background(), q); !errors.Is(err, ErrCarparksUnavailable) {
		t.Errorf("err = %v, want ErrCarparksUnavailable", err)
	}
}

func TestNearbyMRT_RoundsParams(t *testing.T) {
	t.Parallel()

	f := newFakeFetcher()
	f.set(SourceNearbyMRT, `[]`, time.Now())
	a := testAggregator(f, "")

	r := a.NearbyMRT(context.Background(), 1.352083123, 103.819836789, 500)
	if !r.OK() {
		t.Fatalf("NearbyMRT: %v", r.Err)
	}
	p := f.params[SourceNearbyMRT]
	if p.Get("latitude") != "1.3521" || p.Get("longitude") != "103.8198" || p.Get("radius_in_meters") != "500" {
		t.Errorf("params = %v", p)
	}
}
