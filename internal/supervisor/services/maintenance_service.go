// Parallel - Photo Library Enrichment and Realtime Notifications
// Copyright 2026 Parallel App
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/parallel-app/parallel

package services

import (
	"context"
	"errors"
	"time"
)

// Sweeper is the websocket registry's liveness loop.
type Sweeper interface {
	Run(ctx context.Context) error
}

// SweepService supervises the registry's ping/pong sweep. The loop
// only returns on context cancellation, which suture treats as a
// normal stop rather than a failure.
type SweepService struct {
	sweeper Sweeper
}

// NewSweepService wraps a registry liveness sweep.
func NewSweepService(sweeper Sweeper) *SweepService {
	return &SweepService{sweeper: sweeper}
}

// Serve implements suture.Service.
func (s *SweepService) Serve(ctx context.Context) error {
	err := s.sweeper.Run(ctx)
	if errors.Is(err, context.Canceled) {
		return ctx.Err()
	}
	return err
}

// String identifies the service in supervision logs.
func (s *SweepService) String() string {
	return "websocket-sweep"
}

// Collector is the store's value-log garbage collection loop.
type Collector interface {
	RunGC(ctx context.Context, interval time.Duration) error
}

// GCService supervises periodic store garbage collection.
type GCService struct {
	collector Collector
	interval  time.Duration
}

// NewGCService wraps a store GC loop running at the given interval.
func NewGCService(collector Collector, interval time.Duration) *GCService {
	return &GCService{collector: collector, interval: interval}
}

// Serve implements suture.Service.
func (g *GCService) Serve(ctx context.Context) error {
	return g.collector.RunGC(ctx, g.interval)
}

// String identifies the service in supervision logs.
func (g *GCService) String() string {
	return "store-gc"
}
