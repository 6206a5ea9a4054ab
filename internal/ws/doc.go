// Parallel - Photo Library Enrichment and Realtime Notifications
// Copyright 2026 Parallel App
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/parallel-app/parallel

// Package ws implements the realtime push layer: a connection registry
// keyed by (owner, channel kind) with a liveness sweep, plus the wire
// message types shared with the browser client.
//
// The protocol is server-push only. The single expected client message
// is a registration naming an open token and the owner ID; everything
// after that flows server to client.
package ws
