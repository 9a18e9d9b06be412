// Merlion - Singapore Live Data Aggregation
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/merlion

package services

import (
	"context"
	"fmt"
	"sync"

	"github.com/thejerf/suture/v4"

	"github.com/tomtom215/merlion/internal/logging"
)

// Ensurer is satisfied by *bootstrap.Bootstrapper.
type Ensurer interface {
	EnsureAll(ctx context.Context, dataDir string, datasets map[string]string) error
}

// BootstrapService runs the one-time dataset download under supervision.
// A failed run is returned to suture, which retries it with backoff; a
// successful one removes the service from the tree.
type BootstrapService struct {
	ensurer  Ensurer
	dataDir  string
	datasets map[string]string
	name     string

	readyOnce sync.Once
	onReady   func()
}

// NewBootstrapService creates the service. onReady runs once, after the
// first attempt finishes whatever its outcome: missing datasets only
// disable the layers that need them.
func NewBootstrapService(ensurer Ensurer, dataDir string, datasets map[string]string, onReady func()) *BootstrapService {
	return &BootstrapService{
		ensurer:  ensurer,
		dataDir:  dataDir,
		datasets: datasets,
		name:     "dataset-bootstrap",
		onReady:  onReady,
	}
}

// Serve implements suture.Service.
func (s *BootstrapService) Serve(ctx context.Context) error {
	err := s.ensurer.EnsureAll(ctx, s.dataDir, s.datasets)
	s.readyOnce.Do(func() {
		if s.onReady != nil {
			s.onReady()
		}
	})

	if ctx.Err() != nil {
		return ctx.Err()
	}
	if err != nil {
		logging.Warn().Err(err).Str("service", s.name).Msg("Dataset bootstrap incomplete, will retry")
		return fmt.Errorf("bootstrap: %w", err)
	}

	logging.Info().Str("service", s.name).Int("datasets", len(s.datasets)).Msg("Datasets present")
	return suture.ErrDoNotRestart
}

// String implements fmt.Stringer for logging.
func (s *BootstrapService) String() string {
	return s.name
}
