// Parallel - Photo Library Enrichment and Realtime Notifications
// Copyright 2026 Parallel App
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/parallel-app/parallel

// Package main is the entry point for the Parallel enrichment server.
//
// The server accepts resource metadata from upstream producers, reverse
// geocodes coordinates through a rate-limited batch queue, maintains
// per-user location/date summaries, and pushes updates to clients over
// typed websocket channels.
//
// # Startup order
//
//  1. Configuration: Koanf v2 layered loading (defaults, YAML file,
//     environment variables)
//  2. Store: BadgerDB holding metadata, summary, and user records
//  3. Geocode provider: Google Geocoding API behind a circuit breaker
//  4. Queues: geocode enricher and debounced summary aggregator
//  5. Websocket registry and presence tracker
//  6. HTTP server under a suture supervision tree
//
// # Configuration
//
// Environment variables override the YAML file (CONFIG_PATH, default
// config.yaml), which overrides built-in defaults:
//
//	export GOOGLE_MAPS_API_KEY=your-google-maps-key
//	export STORE_PATH=/var/lib/parallel
//	export HTTP_PORT=8080
//	./parallel
//
// # Signal handling
//
// SIGINT and SIGTERM trigger graceful shutdown: the HTTP server drains
// in-flight requests, both queues stop accepting work, and the store
// is closed last.
package main
