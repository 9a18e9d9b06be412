// Merlion - Singapore Live Data Aggregation
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/merlion

package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/tomtom215/merlion/internal/aggregator"
	"github.com/tomtom215/merlion/internal/api"
	"github.com/tomtom215/merlion/internal/bootstrap"
	"github.com/tomtom215/merlion/internal/config"
	"github.com/tomtom215/merlion/internal/logging"
	"github.com/tomtom215/merlion/internal/scheduler"
	"github.com/tomtom215/merlion/internal/supervisor"
	"github.com/tomtom215/merlion/internal/supervisor/services"
	"github.com/tomtom215/merlion/internal/upstream"
)

// @title Merlion API
// @version 1.0
// @description Cached, reprojected and viewport-filtered Singapore transit, weather and health feeds.
// @description Every response uses the {success, data, error, meta} envelope. meta.source reports
// @description whether a payload came from cache and whether it is stale.
//
// @license.name AGPL-3.0-or-later
// @license.url https://www.gnu.org/licenses/agpl-3.0.html
//
// @host localhost:8050
// @BasePath /api/v1
// @schemes http https
func main() {
	cfg, err := config.Load()
	if err != nil {
		logging.Fatal().Err(err).Msg("Failed to load configuration")
	}

	logging.Init(logging.Config{
		Level:     cfg.Logging.Level,
		Format:    cfg.Logging.Format,
		Caller:    cfg.Logging.Caller,
		Timestamp: true,
		Output:    os.Stderr,
	})

	logging.Info().
		Int("sources", len(cfg.Sources)).
		Int("pool_size", cfg.Scheduler.PoolSize).
		Bool("bootstrap", cfg.Bootstrap.Enabled).
		Msg("Starting Merlion")

	if missing := cfg.MissingCredentials(); len(missing) > 0 {
		logging.Warn().Strs("sources", missing).Msg("Credentials missing, these sources will fail as unauthorized")
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	client := upstream.NewClient(cfg.Providers, upstream.WithPacer(scheduler.NewPacer(cfg.Providers)))
	sched := scheduler.New(client, cfg.Scheduler, cfg.Sources)

	agg := aggregator.New(sched, aggregator.Options{
		Viewport:   cfg.Viewport,
		CarparkCSV: carparkPath(cfg.Bootstrap),
		Workers:    cfg.Scheduler.PoolSize,
	})

	handler := api.NewHandler(agg, sched)
	router := api.NewRouter(handler, api.ChiMiddlewareConfigFromServer(cfg.Server))

	tree, err := supervisor.NewSupervisorTree(logging.NewSlogLogger(), supervisor.TreeConfig{
		ShutdownTimeout: cfg.Server.ShutdownTimeout,
	})
	if err != nil {
		logging.Fatal().Err(err).Msg("Failed to create supervisor tree")
	}

	if cfg.Bootstrap.Enabled {
		if err := os.MkdirAll(cfg.Bootstrap.DataDir, 0o755); err != nil {
			logging.Fatal().Err(err).Str("data_dir", cfg.Bootstrap.DataDir).Msg("Failed to create data directory")
		}
		b := bootstrap.New(client, cfg.Bootstrap)
		tree.AddDataService(services.NewBootstrapService(b, cfg.Bootstrap.DataDir, cfg.Bootstrap.Datasets, func() {
			handler.SetReady(true)
		}))
	} else {
		handler.SetReady(true)
	}

	tree.AddDataService(services.NewRefreshService(sched, cfg.Scheduler.Prefetch, cfg.Scheduler.RefreshInterval))

	server := &http.Server{
		Addr:         fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port),
		Handler:      router.SetupChi(),
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  60 * time.Second,
	}
	tree.AddAPIService(services.NewHTTPServerService(server, cfg.Server.ShutdownTimeout))
	logging.Info().Str("addr", server.Addr).Msg("HTTP server service added")

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		sig := <-sigCh
		logging.Info().Str("signal", sig.String()).Msg("Received shutdown signal")
		cancel()
	}()

	errCh := tree.ServeBackground(ctx)

	select {
	case <-ctx.Done():
		logging.Info().Msg("Context canceled, waiting for supervisor to finish...")
	case err := <-errCh:
		if err != nil && !errors.Is(err, context.Canceled) {
			logging.Error().Err(err).Msg("Supervisor tree error")
		}
	}

	for err := range errCh {
		if err != nil && !errors.Is(err, context.Canceled) {
			logging.Error().Err(err).Msg("Supervisor shutdown error")
		}
	}

	if unstopped, _ := tree.UnstoppedServiceReport(); len(unstopped) > 0 {
		for _, svc := range unstopped {
			logging.Warn().Str("service", svc.Name).Msg("Service failed to stop")
		}
	}

	logging.Info().Msg("Merlion stopped")
}

// carparkPath is the CSV the carpark layer reads, or "" when the dataset
// is not bootstrapped.
func carparkPath(cfg config.BootstrapConfig) string {
	name, ok := cfg.Datasets[config.DatasetHDBCarparks]
	if !ok || cfg.DataDir == "" {
		return ""
	}
	return filepath.Join(cfg.DataDir, name)
}
