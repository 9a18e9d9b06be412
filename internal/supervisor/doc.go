// Merlion - Singapore Live Data Aggregation
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/merlion

/*
Package supervisor provides process supervision using suture v4.

# Overview

Services are organized into two layers for failure isolation:

	RootSupervisor ("merlion")
	├── DataSupervisor ("data-layer")
	│   ├── BootstrapService (if bootstrap.enabled)
	│   └── RefreshService (if scheduler.prefetch is set)
	└── APISupervisor ("api-layer")
	    └── HTTPServerService

A failing refresher or a bootstrap stuck retrying never takes the HTTP
server down; requests keep being answered from whatever the caches hold.

# Logging

Supervisor events go through sutureslog. Pass logging.NewSlogLogger() so
they end up in the zerolog output alongside everything else.

# Shutdown

Cancelling the context given to Serve stops every service; ShutdownTimeout
bounds how long the tree waits for each one. UnstoppedServiceReport lists
services that missed the deadline.
*/
package supervisor
