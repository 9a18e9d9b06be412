// Merlion - Singapore Live Data Aggregation
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/merlion

/*
Package main is the entry point for the Merlion server.

Merlion aggregates Singapore government and transit feeds (LTA DataMall,
data.gov.sg, OneMap) behind per-source TTL caches and serves them, reprojected
and viewport-filtered, to a map dashboard over a small JSON API.

# Application Architecture

	RootSupervisor ("merlion")
	├── DataSupervisor ("data-layer")
	│   ├── BootstrapService (one-time dataset downloads)
	│   └── RefreshService (periodic FetchAll over scheduler.prefetch)
	└── APISupervisor ("api-layer")
	    └── HTTP Server

Component initialization order:

 1. Configuration: koanf v2 (defaults, config.yaml, .env, environment)
 2. Logging: zerolog, with suture events bridged through slog
 3. Upstream client: per-provider auth and circuit breakers, paced by the
    scheduler's per-provider rate limiters
 4. Scheduler: source caches and the bounded fetch pool
 5. Bootstrapper and aggregator
 6. HTTP router
 7. Supervisor tree

# Configuration

Credentials are read from the environment, under either the structured names
or the legacy ones:

	LTA_API_KEY            DataMall AccountKey
	DATA_GOV_API           data.gov.sg X-Api-Key
	ONEMAP_EMAIL           OneMap login
	ONEMAP_EMAIL_PASSWORD  OneMap password

Sources whose credentials are missing still register; their fetches fail
with an unauthorized error.

# Signal Handling

SIGINT and SIGTERM cancel the root context. The HTTP server drains within
server.shutdown_timeout, in-flight fetches are abandoned and the process
exits.
*/
package main
