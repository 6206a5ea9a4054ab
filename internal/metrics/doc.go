// Parallel - Photo Library Enrichment and Realtime Notifications
// Copyright 2026 Parallel App
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/parallel-app/parallel

// Package metrics exposes Prometheus instrumentation for the
// enrichment pipeline: queue depth and batch outcomes, geocode provider
// calls, websocket connections, and presence membership.
package metrics
