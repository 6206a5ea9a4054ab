// Parallel - Photo Library Enrichment and Realtime Notifications
// Copyright 2026 Parallel App
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/parallel-app/parallel

package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/parallel-app/parallel/internal/api"
	"github.com/parallel-app/parallel/internal/config"
	"github.com/parallel-app/parallel/internal/enrich"
	"github.com/parallel-app/parallel/internal/geocode"
	"github.com/parallel-app/parallel/internal/logging"
	"github.com/parallel-app/parallel/internal/presence"
	"github.com/parallel-app/parallel/internal/store"
	"github.com/parallel-app/parallel/internal/supervisor"
	"github.com/parallel-app/parallel/internal/supervisor/services"
	"github.com/parallel-app/parallel/internal/ws"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		logging.Fatal().Err(err).Msg("Failed to load configuration")
	}

	logging.Init(logging.Config{
		Level:  cfg.Logging.Level,
		Format: cfg.Logging.Format,
		Caller: cfg.Logging.Caller,
	})

	logging.Info().
		Str("store_path", cfg.Store.Path).
		Int("port", cfg.Server.Port).
		Str("domestic_country", cfg.Geocode.DomesticCountry).
		Msg("Starting Parallel server")

	badger, err := store.Open(store.Options{
		Path:       cfg.Store.Path,
		InMemory:   cfg.Store.InMemory,
		GCInterval: cfg.Store.GCInterval,
	})
	if err != nil {
		logging.Fatal().Err(err).Msg("Failed to open store")
	}
	defer func() {
		if err := badger.Close(); err != nil {
			logging.Error().Err(err).Msg("Error closing store")
		}
	}()

	google, err := geocode.NewGoogle(cfg.Geocode)
	if err != nil {
		logging.Fatal().Err(err).Msg("Failed to create geocode provider")
	}
	provider := geocode.NewBreaker(google)

	registry := ws.NewRegistry(cfg.WebSocket.PingInterval)

	enricher := enrich.NewEnricher(cfg.Geocode, provider, badger, registry)
	defer enricher.Stop()

	aggregator := enrich.NewAggregator(cfg.Summary, badger)
	defer aggregator.Stop()

	tracker := presence.NewTracker(registry, badger, badger)
	if err := registry.Subscribe(ws.TypeNearbyOpen, func(reg ws.Registration) {
		tracker.HandleConnect(context.Background(), reg.OwnerID)
	}); err != nil {
		logging.Fatal().Err(err).Msg("Failed to subscribe presence connect handler")
	}
	if err := registry.Subscribe(ws.TypeNearbyClose, func(reg ws.Registration) {
		tracker.HandleDisconnect(reg.OwnerID)
	}); err != nil {
		logging.Fatal().Err(err).Msg("Failed to subscribe presence disconnect handler")
	}

	handler := api.NewHandler(badger, enricher, aggregator, registry, cfg.Server.CORSOrigins)
	server := &http.Server{
		Addr:              fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port),
		Handler:           api.NewRouter(cfg.Server, handler),
		ReadHeaderTimeout: cfg.Server.Timeout,
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	tree := supervisor.NewTree(logging.NewSlogLogger(), supervisor.DefaultTreeConfig())
	tree.AddDataService(services.NewGCService(badger, cfg.Store.GCInterval))
	tree.AddMessagingService(services.NewSweepService(registry))
	tree.AddAPIService(services.NewHTTPServerService(server, 10*time.Second))
	logging.Info().Str("addr", server.Addr).Msg("HTTP server service added")

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		sig := <-sigCh
		logging.Info().Str("signal", sig.String()).Msg("Received shutdown signal")
		cancel()
	}()

	logging.Info().Msg("Starting supervisor tree")
	errCh := tree.ServeBackground(ctx)

	for err := range errCh {
		if err != nil && !errors.Is(err, context.Canceled) {
			logging.Error().Err(err).Msg("Supervisor tree error")
		}
	}

	unstopped, _ := tree.UnstoppedServiceReport()
	for _, svc := range unstopped {
		logging.Warn().Str("service", svc.Name).Msg("Service failed to stop within timeout")
	}

	logging.Info().Msg("Server stopped gracefully")
}
