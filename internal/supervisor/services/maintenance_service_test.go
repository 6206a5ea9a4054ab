// Parallel - Photo Library Enrichment and Realtime Notifications
// Copyright 2026 Parallel App
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/parallel-app/parallel

package services

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"
)

type blockingSweeper struct {
	started atomic.Bool
}

func (b *blockingSweeper) Run(ctx context.Context) error {
	b.started.Store(true)
	<-ctx.Done()
	return ctx.Err()
}

func TestSweepServiceRunsUntilCanceled(t *testing.T) {
	sweeper := &blockingSweeper{}
	svc := NewSweepService(sweeper)

	ctx, cancel := context.WithCancel(context.Background())
	errCh := make(chan error, 1)
	go func() { errCh <- svc.Serve(ctx) }()

	time.Sleep(20 * time.Millisecond)
	cancel()

	select {
	case err := <-errCh:
		if !errors.Is(err, context.Canceled) {
			t.Errorf("Serve returned %v, want context.Canceled", err)
		}
	case <-time.After(time.Second):
		t.Fatal("sweep did not stop")
	}
	if !sweeper.started.Load() {
		t.Error("sweep never ran")
	}
}

type countingCollector struct {
	interval atomic.Int64
}

func (c *countingCollector) RunGC(ctx context.Context, interval time.Duration) error {
	c.interval.Store(int64(interval))
	<-ctx.Done()
	return ctx.Err()
}

func TestGCServicePassesInterval(t *testing.T) {
	collector := &countingCollector{}
	svc := NewGCService(collector, 5*time.Minute)

	ctx, cancel := context.WithCancel(context.Background())
	errCh := make(chan error, 1)
	go func() { errCh <- svc.Serve(ctx) }()

	time.Sleep(20 * time.Millisecond)
	cancel()
	<-errCh

	if got := time.Duration(collector.interval.Load()); got != 5*time.Minute {
		t.Errorf("interval = %v, want 5m", got)
	}
}

func TestServiceNames(t *testing.T) {
	if got := NewSweepService(&blockingSweeper{}).String(); got != "websocket-sweep" {
		t.Errorf("sweep String() = %q", got)
	}
	if got := NewGCService(&countingCollector{}, 0).String(); got != "store-gc" {
		t.Errorf("gc String() = %q", got)
	}
}
