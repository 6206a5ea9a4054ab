// Parallel - Photo Library Enrichment and Realtime Notifications
// Copyright 2026 Parallel App
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/parallel-app/parallel

// Package api provides the HTTP surface of the service: the upstream
// producer endpoints feeding the enrichment pipeline, the websocket
// upgrade, and the operational endpoints.
package api
