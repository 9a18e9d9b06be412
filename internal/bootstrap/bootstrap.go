// Merlion - Singapore Live Data Aggregation
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/merlion

// Package bootstrap downloads static datasets from data.gov.sg once per
// deployment.
//
// The presence of the target file is the only record that a dataset has
// been downloaded, so files are always written to a temporary name in the
// same directory and renamed into place once complete.
package bootstrap

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/dustin/go-humanize"

	"github.com/tomtom215/merlion/internal/config"
	"github.com/tomtom215/merlion/internal/logging"
	"github.com/tomtom215/merlion/internal/metrics"
	"github.com/tomtom215/merlion/internal/upstream"
)

// Downloader is the part of the upstream client the bootstrapper uses.
type Downloader interface {
	PollDownload(ctx context.Context, datasetID string) (string, error)
	Open(ctx context.Context, rawURL string) (io.ReadCloser, error)
}

// Bootstrapper is the DatasetBootstrapper.
type Bootstrapper struct {
	dl           Downloader
	pollInterval time.Duration
	pollAttempts int
}

// New creates a Bootstrapper polling at cfg.PollInterval (growing
// exponentially) for at most cfg.PollAttempts attempts.
func New(dl Downloader, cfg config.BootstrapConfig) *Bootstrapper {
	b := &Bootstrapper{
		dl:           dl,
		pollInterval: cfg.PollInterval,
		pollAttempts: cfg.PollAttempts,
	}
	if b.pollInterval <= 0 {
		b.pollInterval = 2 * time.Second
	}
	if b.pollAttempts < 1 {
		b.pollAttempts = 1
	}
	return b
}

// Ensure makes sure targetPath holds datasetID. An existing file is trusted
// and nothing is fetched. Failures wrap upstream.ErrDownloadFailed.
func (b *Bootstrapper) Ensure(ctx context.Context, datasetID, targetPath string) error {
	logger := logging.Ctx(ctx).With().Str("dataset", datasetID).Str("path", targetPath).Logger()

	if _, err := os.Stat(targetPath); err == nil {
		metrics.BootstrapDownloads.WithLabelValues(datasetID, "present").Inc()
		logger.Debug().Msg("Dataset already present")
		return nil
	} else if !errors.Is(err, os.ErrNotExist) {
		return b.fail(datasetID, fmt.Errorf("stat %s: %w", targetPath, err))
	}

	start := time.Now()
	downloadURL, err := b.poll(ctx, datasetID)
	if err != nil {
		return b.fail(datasetID, err)
	}

	n, err := b.save(ctx, downloadURL, targetPath)
	if err != nil {
		return b.fail(datasetID, err)
	}

	metrics.BootstrapDownloads.WithLabelValues(datasetID, "downloaded").Inc()
	metrics.BootstrapBytes.Add(float64(n))
	logger.Info().
		Str("size", humanize.Bytes(uint64(n))).
		Dur("duration", time.Since(start)).
		Msg("Dataset downloaded")
	return nil
}

func (b *Bootstrapper) fail(datasetID string, err error) error {
	metrics.BootstrapDownloads.WithLabelValues(datasetID, "failed").Inc()
	return upstream.NewError(upstream.KindDownloadFailed, datasetID, 0, err)
}

// poll asks for the download URL until it is ready. Only "not ready yet"
// and transient transport failures are retried.
func (b *Bootstrapper) poll(ctx context.Context, datasetID string) (string, error) {
	eb := backoff.NewExponentialBackOff()
	eb.InitialInterval = b.pollInterval
	eb.MaxInterval = 10 * b.pollInterval
	eb.MaxElapsedTime = 0

	policy := backoff.WithContext(backoff.WithMaxRetries(eb, uint64(b.pollAttempts-1)), ctx)

	var downloadURL string
	op := func() error {
		u, err := b.dl.PollDownload(ctx, datasetID)
		if err != nil {
			if retryable(err) {
				return err
			}
			return backoff.Permanent(err)
		}
		downloadURL = u
		return nil
	}
	notify := func(err error, wait time.Duration) {
		logging.Ctx(ctx).Debug().Err(err).Str("dataset", datasetID).Dur("retry_in", wait).Msg("Download not ready, polling again")
	}

	if err := backoff.RetryNotify(op, policy, notify); err != nil {
		return "", fmt.Errorf("poll download: %w", err)
	}
	return downloadURL, nil
}

func retryable(err error) bool {
	if errors.Is(err, upstream.ErrNotReady) {
		return true
	}
	switch upstream.KindOf(err) {
	case upstream.KindTimeout, upstream.KindUnreachable, upstream.KindRateLimited:
		return true
	default:
		return false
	}
}

// save streams url into a temporary file beside target, syncs it, and
// renames it into place. The temporary file is removed on any failure.
func (b *Bootstrapper) save(ctx context.Context, rawURL, target string) (n int64, err error) {
	body, err := b.dl.Open(ctx, rawURL)
	if err != nil {
		return 0, err
	}
	defer body.Close()

	dir := filepath.Dir(target)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return 0, fmt.Errorf("create data dir: %w", err)
	}

	tmp, err := os.CreateTemp(dir, filepath.Base(target)+".tmp-*")
	if err != nil {
		return 0, fmt.Errorf("create temp file: %w", err)
	}
	defer func() {
		if err != nil {
			tmp.Close()
			os.Remove(tmp.Name())
		}
	}()

	n, err = io.Copy(tmp, body)
	if err != nil {
		return n, fmt.Errorf("write %s: %w", tmp.Name(), err)
	}
	if n == 0 {
		return 0, errors.New("empty download")
	}
	if err = tmp.Sync(); err != nil {
		return n, fmt.Errorf("sync %s: %w", tmp.Name(), err)
	}
	if err = tmp.Close(); err != nil {
		return n, fmt.Errorf("close %s: %w", tmp.Name(), err)
	}
	if err = os.Chmod(tmp.Name(), 0o644); err != nil {
		return n, fmt.Errorf("chmod %s: %w", tmp.Name(), err)
	}
	if err = os.Rename(tmp.Name(), target); err != nil {
		return n, fmt.Errorf("rename into place: %w", err)
	}
	return n, nil
}

// EnsureAll runs Ensure for every dataset -> file name pair under dataDir.
// A failure only affects its own dataset; the joined errors are returned.
func (b *Bootstrapper) EnsureAll(ctx context.Context, dataDir string, datasets map[string]string) error {
	ids := make([]string, 0, len(datasets))
	for id := range datasets {
		ids = append(ids, id)
	}
	sort.Strings(ids)

	var errs []error
	for _, id := range ids {
		if ctx.Err() != nil {
			errs = append(errs, ctx.Err())
			break
		}
		target := filepath.Join(dataDir, datasets[id])
		if err := b.Ensure(ctx, id, target); err != nil {
			logging.Ctx(ctx).Error().Err(err).Str("dataset", id).Msg("Dataset bootstrap failed")
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
