// Merlion - Singapore Live Data Aggregation
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/merlion

package services

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/thejerf/suture/v4"

	"github.com/tomtom215/merlion/internal/upstream"
)

type fakeEnsurer struct {
	calls    atomic.Int32
	failures int32
	dataDir  string
}

func (f *fakeEnsurer) EnsureAll(_ context.Context, dataDir string, _ map[string]string) error {
	f.dataDir = dataDir
	if n := f.calls.Add(1); n <= f.failures {
		return upstream.ErrDownloadFailed
	}
	return nil
}

func TestBootstrapService_Success(t *testing.T) {
	e := &fakeEnsurer{}
	var ready atomic.Int32
	svc := NewBootstrapService(e, "/data", map[string]string{"d_1": "a.csv"}, func() { ready.Add(1) })

	err := svc.Serve(context.Background())
	if !errors.Is(err, suture.ErrDoNotRestart) {
		t.Errorf("Serve = %v, want ErrDoNotRestart", err)
	}
	if ready.Load() != 1 || e.dataDir != "/data" {
		t.Errorf("ready = %d, dataDir = %q", ready.Load(), e.dataDir)
	}
}

func TestBootstrapService_FailureReportsReadyOnce(t *testing.T) {
	e := &fakeEnsurer{failures: 2}
	var ready atomic.Int32
	svc := NewBootstrapService(e, "/data", nil, func() { ready.Add(1) })

	for i := 0; i < 2; i++ {
		if err := svc.Serve(context.Background()); !errors.Is(err, upstream.ErrDownloadFailed) {
			t.Fatalf("attempt %d: Serve = %v", i+1, err)
		}
	}
	if err := svc.Serve(context.Background()); !errors.Is(err, suture.ErrDoNotRestart) {
		t.Errorf("third attempt: Serve = %v", err)
	}
	if ready.Load() != 1 {
		t.Errorf("onReady called %d times, want 1", ready.Load())
	}
}

func TestBootstrapService_UnderSupervisor(t *testing.T) {
	e := &fakeEnsurer{failures: 1}
	ready := make(chan struct{})
	svc := NewBootstrapService(e, "/data", nil, func() { close(ready) })

	sup := suture.New("test", suture.Spec{FailureThreshold: 5, FailureBackoff: 10 * time.Millisecond, Timeout: time.Second})
	sup.Add(svc)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	errCh := sup.ServeBackground(ctx)

	select {
	case <-ready:
	case <-time.After(2 * time.Second):
		t.Fatal("not ready")
	}

	deadline := time.Now().Add(2 * time.Second)
	for e.calls.Load() < 2 && time.Now().Before(deadline) {
		time.Sleep(5 * time.Millisecond)
	}
	if e.calls.Load() != 2 {
		t.Errorf("EnsureAll called %d times, want a retry after the failure", e.calls.Load())
	}

	cancel()
	<-errCh
}
