// Merlion - Singapore Live Data Aggregation
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/merlion

/*
Package services provides suture.Service wrappers for the long-running parts
of the process.

  - HTTPServerService: ListenAndServe plus graceful Shutdown.
  - RefreshService: re-runs FetchAll over the prefetch set on an interval so
    user requests mostly hit a warm cache.
  - BootstrapService: downloads the one-time datasets, reports readiness and
    then removes itself from the tree.

Every wrapper returns ctx.Err() once its context is cancelled and implements
fmt.Stringer so suture can name it in log events.
*/
package services
