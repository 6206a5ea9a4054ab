// Parallel - Photo Library Enrichment and Realtime Notifications
// Copyright 2026 Parallel App
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/parallel-app/parallel

// Package supervisor provides suture-based process supervision.
//
// The tree has three layers so a crash in one concern does not take
// down the others:
//   - data: store maintenance (Badger value-log GC)
//   - messaging: websocket liveness sweep
//   - api: the HTTP server
package supervisor
