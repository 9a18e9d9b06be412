// Merlion - Singapore Live Data Aggregation
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/merlion

/*
Package api provides the HTTP JSON surface a map dashboard consumes.

Every endpoint answers with the APIResponse envelope:

	{"success": true, "data": ..., "meta": {"request_id": "...", "timestamp": "...", "source": {...}}}
	{"success": false, "error": {"code": "UPSTREAM_TIMEOUT", "message": "..."}, "meta": {...}}

Routes (all GET):

  - /api/v1/health/live, /api/v1/health/ready
  - /api/v1/sources: registry with TTLs and cache counters
  - /api/v1/fetch?ids=psi,uv: one slot per id, failures included
  - /api/v1/clusters/{source}: zika or dengue polygons as GeoJSON
  - /api/v1/bus-stops, /speed-bands, /erp-gantries, /carparks: viewport
    layers taking min_lon, min_lat, max_lon, max_lat and zoom, or lat, lon
    and zoom
  - /api/v1/traffic-incidents: viewport layer at every zoom
  - /api/v1/bus-arrival?stop=01012: next buses per service
  - /api/v1/weather/readings/{kind}: rainfall, air-temperature,
    relative-humidity or wind-speed station values as GeoJSON points
  - /api/v1/mrt-crowd?line=NSL&forecast=true: crowd levels passed through
  - /api/v1/nearby-mrt?lat=&lon=&radius=, /api/v1/bicycle-parking?lat=&lon=&radius=
  - /api/v1/svy21?easting=&northing=
  - /swagger/*: OpenAPI document and UI
  - /metrics: Prometheus exposition

Upstream failures map to status codes by kind: unauthorized and malformed
responses are 502, timeouts 504, rate limits 429, unreachable sources and
failed downloads 503. Layer responses carry meta.source so a client can tell
a stale cache entry from a fresh fetch.
*/
package api
