// Merlion - Singapore Live Data Aggregation
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/merlion

package cache

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"
)

// fakeClock is a manually advanced clock.
type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func newFakeClock() *fakeClock {
	return &fakeClock{now: time.Date(2026, 1, 1, 8, 0, 0, 0, time.UTC)}
}

func (f *fakeClock) Now() time.Time {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.now
}

func (f *fakeClock) Advance(d time.Duration) {
	f.mu.Lock()
	f.now = f.now.Add(d)
	f.mu.Unlock()
}

func TestEntryFresh(t *testing.T) {
	t.Parallel()

	at := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	e := Entry[string]{Value: "v", FetchedAt: at, TTL: time.Minute}

	if !e.Fresh(at) {
		t.Error("entry should be fresh at fetch time")
	}
	if !e.Fresh(at.Add(59 * time.Second)) {
		t.Error("entry should be fresh inside TTL")
	}
	if e.Fresh(at.Add(time.Minute)) {
		t.Error("entry should expire exactly at TTL")
	}
}

func TestGetOrFetch_HitWithinTTL(t *testing.T) {
	t.Parallel()

	clock := newFakeClock()
	c := New[string]("weather", 2*time.Minute, WithClock(clock.Now))

	var calls atomic.Int32
	fetch := func(context.Context) (string, error) {
		calls.Add(1)
		return "sunny", nil
	}

	first, err := c.GetOrFetch(context.Background(), fetch)
	if err != nil {
		t.Fatalf("first GetOrFetch: %v", err)
	}
	if first.ServedFromCache {
		t.Error("first call should not be served from cache")
	}

	clock.Advance(time.Minute)
	second, err := c.GetOrFetch(context.Background(), fetch)
	if err != nil {
		t.Fatalf("second GetOrFetch: %v", err)
	}
	if !second.ServedFromCache || second.Value != "sunny" {
		t.Errorf("second = %+v, want cached sunny", second)
	}
	if got := calls.Load(); got != 1 {
		t.Errorf("fetch calls = %d, want 1", got)
	}

	s := c.Stats()
	if s.Hits != 1 || s.Misses != 1 || s.Fetches != 1 {
		t.Errorf("stats = %+v, want 1 hit, 1 miss, 1 fetch", s)
	}
}

func TestGetOrFetch_ExpiredRefreshesOnce(t *testing.T) {
	t.Parallel()

	clock := newFakeClock()
	c := New[int]("psi", time.Minute, WithClock(clock.Now))

	var calls atomic.Int32
	fetch := func(context.Context) (int, error) {
		return int(calls.Add(1)), nil
	}

	if _, err := c.GetOrFetch(context.Background(), fetch); err != nil {
		t.Fatal(err)
	}
	clock.Advance(time.Minute + time.Second)

	res, err := c.GetOrFetch(context.Background(), fetch)
	if err != nil {
		t.Fatal(err)
	}
	if res.Value != 2 || res.ServedFromCache {
		t.Errorf("after expiry = %+v, want fresh value 2", res)
	}
	if !res.FetchedAt.Equal(clock.Now()) {
		t.Errorf("FetchedAt = %v, want %v", res.FetchedAt, clock.Now())
	}
}

func TestGetOrFetch_FailedRefreshServesStale(t *testing.T) {
	t.Parallel()

	clock := newFakeClock()
	c := New[string]("flood", time.Minute, WithClock(clock.Now))
	ctx := context.Background()

	if _, err := c.GetOrFetch(ctx, func(context.Context) (string, error) { return "old", nil }); err != nil {
		t.Fatal(err)
	}
	firstAt := clock.Now()
	clock.Advance(5 * time.Minute)

	boom := errors.New("upstream down")
	res, err := c.GetOrFetch(ctx, func(context.Context) (string, error) { return "", boom })
	if err != nil {
		t.Fatalf("expected stale value, got error %v", err)
	}
	if res.Value != "old" || !res.Stale || !res.ServedFromCache {
		t.Errorf("result = %+v, want stale old value", res)
	}
	if !errors.Is(res.Cause, boom) {
		t.Errorf("Cause = %v, want %v", res.Cause, boom)
	}
	if !res.FetchedAt.Equal(firstAt) {
		t.Errorf("FetchedAt = %v, want original %v", res.FetchedAt, firstAt)
	}

	// The failed fetch must not have replaced the entry.
	e, ok := c.Peek(DefaultVariant)
	if !ok || e.Value != "old" || !e.FetchedAt.Equal(firstAt) {
		t.Errorf("entry = %+v, want untouched", e)
	}
	if s := c.Stats(); s.StaleServed != 1 || s.FetchErrors != 1 {
		t.Errorf("stats = %+v, want 1 stale served and 1 fetch error", s)
	}
}

func TestGetOrFetch_FirstFailureIsError(t *testing.T) {
	t.Parallel()

	c := New[string]("lightning", time.Minute)
	boom := errors.New("no route")

	_, err := c.GetOrFetch(context.Background(), func(context.Context) (string, error) { return "", boom })
	if !errors.Is(err, boom) {
		t.Fatalf("err = %v, want %v", err, boom)
	}
	if c.Len() != 0 {
		t.Errorf("Len = %d, want 0 after failed first fetch", c.Len())
	}
}

func TestGetOrFetch_ConcurrentCallersShareOneFetch(t *testing.T) {
	t.Parallel()

	c := New[string]("taxi", time.Minute)

	var calls atomic.Int32
	release := make(chan struct{})
	fetch := func(context.Context) (string, error) {
		calls.Add(1)
		<-release
		return "taxis", nil
	}

	const callers = 20
	var wg sync.WaitGroup
	results := make([]Result[string], callers)
	errs := make([]error, callers)
	for i := 0; i < callers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			results[i], errs[i] = c.GetOrFetch(context.Background(), fetch)
		}(i)
	}

	// Let the callers pile up on the in-flight fetch.
	time.Sleep(50 * time.Millisecond)
	close(release)
	wg.Wait()

	if got := calls.Load(); got != 1 {
		t.Errorf("fetch calls = %d, want 1", got)
	}
	for i := range results {
		if errs[i] != nil {
			t.Errorf("caller %d: %v", i, errs[i])
			continue
		}
		if results[i].Value != "taxis" {
			t.Errorf("caller %d value = %q", i, results[i].Value)
		}
	}
}

func TestGetOrFetch_SourcesDoNotBlockEachOther(t *testing.T) {
	t.Parallel()

	slow := New[string]("slow", time.Minute)
	fast := New[string]("fast", time.Minute)

	release := make(chan struct{})
	defer close(release)
	go func() {
		_, _ = slow.GetOrFetch(context.Background(), func(context.Context) (string, error) {
			<-release
			return "slow", nil
		})
	}()

	done := make(chan struct{})
	go func() {
		defer close(done)
		_, _ = fast.GetOrFetch(context.Background(), func(context.Context) (string, error) {
			return "fast", nil
		})
	}()

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("fast source blocked behind slow source")
	}
}

func TestGetOrFetch_CallerTimeoutLeavesFetchRunning(t *testing.T) {
	t.Parallel()

	c := New[string]("train-alert", time.Minute)
	release := make(chan struct{})
	finished := make(chan struct{})

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	_, err := c.GetOrFetch(ctx, func(fctx context.Context) (string, error) {
		defer close(finished)
		<-release
		return "normal", fctx.Err()
	})
	if !errors.Is(err, context.DeadlineExceeded) {
		t.Fatalf("err = %v, want deadline exceeded", err)
	}

	close(release)
	select {
	case <-finished:
	case <-time.After(2 * time.Second):
		t.Fatal("fetch never finished")
	}

	// The abandoned fetch still populates the cache.
	deadline := time.Now().Add(2 * time.Second)
	for c.Len() == 0 && time.Now().Before(deadline) {
		time.Sleep(5 * time.Millisecond)
	}
	if e, ok := c.Peek(DefaultVariant); !ok || e.Value != "normal" {
		t.Errorf("entry = %+v, %v; want normal", e, ok)
	}
}

func TestWait_CoversAbandonedFetches(t *testing.T) {
	t.Parallel()

	c := New[string]("bus-arrival", time.Minute)
	release := make(chan struct{})
	started := make(chan struct{})

	fetch := func(context.Context) (string, error) {
		close(started)
		<-release
		return "late", nil
	}

	var wg sync.WaitGroup
	for i := 0; i < 3; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
			defer cancel()
			if _, err := c.GetOrFetch(ctx, fetch); !errors.Is(err, context.DeadlineExceeded) {
				t.Errorf("err = %v, want deadline exceeded", err)
			}
		}()
	}
	wg.Wait()
	<-started

	waited := make(chan struct{})
	go func() {
		c.Wait()
		close(waited)
	}()

	select {
	case <-waited:
		t.Fatal("Wait returned while the fetch was still blocked")
	case <-time.After(50 * time.Millisecond):
	}

	close(release)
	select {
	case <-waited:
	case <-time.After(2 * time.Second):
		t.Fatal("Wait never returned")
	}

	if e, ok := c.Peek(DefaultVariant); !ok || e.Value != "late" {
		t.Errorf("entry = %+v, %v; want late", e, ok)
	}
}

func TestGetOrFetch_FetchTimeout(t *testing.T) {
	t.Parallel()

	c := New[string]("uv", time.Minute, WithFetchTimeout(20*time.Millisecond))

	_, err := c.GetOrFetch(context.Background(), func(ctx context.Context) (string, error) {
		<-ctx.Done()
		return "", ctx.Err()
	})
	if !errors.Is(err, context.DeadlineExceeded) {
		t.Fatalf("err = %v, want deadline exceeded", err)
	}
}

func TestGetOrFetchVariant_IndependentKeys(t *testing.T) {
	t.Parallel()

	c := New[string]("nearby-mrt", time.Minute)
	ctx := context.Background()

	var calls atomic.Int32
	fetchFor := func(v string) FetchFunc[string] {
		return func(context.Context) (string, error) {
			calls.Add(1)
			return v, nil
		}
	}

	a, err := c.GetOrFetchVariant(ctx, "1.3000,103.8000", fetchFor("a"))
	if err != nil {
		t.Fatal(err)
	}
	b, err := c.GetOrFetchVariant(ctx, "1.3500,103.9000", fetchFor("b"))
	if err != nil {
		t.Fatal(err)
	}
	again, err := c.GetOrFetchVariant(ctx, "1.3000,103.8000", fetchFor("x"))
	if err != nil {
		t.Fatal(err)
	}

	if a.Value != "a" || b.Value != "b" || again.Value != "a" {
		t.Errorf("values = %q %q %q, want a b a", a.Value, b.Value, again.Value)
	}
	if got := calls.Load(); got != 2 {
		t.Errorf("fetch calls = %d, want 2", got)
	}
	if c.Len() != 2 {
		t.Errorf("Len = %d, want 2", c.Len())
	}

	c.Invalidate("1.3000,103.8000")
	if c.Len() != 1 {
		t.Errorf("Len after Invalidate = %d, want 1", c.Len())
	}
}

func TestStatsHitRate(t *testing.T) {
	t.Parallel()

	if got := (Stats{}).HitRate(); got != 0 {
		t.Errorf("empty HitRate = %v, want 0", got)
	}
	if got := (Stats{Hits: 3, Misses: 1}).HitRate(); got != 75 {
		t.Errorf("HitRate = %v, want 75", got)
	}
}
