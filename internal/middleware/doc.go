// Merlion - Singapore Live Data Aggregation
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/merlion

/*
Package middleware provides the infrastructure middleware of the HTTP surface.

Components:

  - RequestID: accepts or mints an X-Request-ID and threads it, together with
    a fresh correlation ID, through the request context so every log line
    written by the scheduler for that request can be found again.
  - PrometheusMetrics: request count and latency per method, route pattern
    and status code.

Both are plain func(http.Handler) http.Handler values and are mounted with
chi's r.Use:

	r.Use(middleware.RequestID)
	r.Use(middleware.PrometheusMetrics)

Routes are labelled by their chi pattern ("/api/v1/clusters/{source}"), not
by the raw path, so label cardinality stays bounded.

See Also:

  - internal/api: router and handlers
  - internal/metrics: metric definitions
*/
package middleware
