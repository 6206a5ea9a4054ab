// Parallel - Photo Library Enrichment and Realtime Notifications
// Copyright 2026 Parallel App
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/parallel-app/parallel

// Package store provides the persistent record stores backing the
// enrichment pipeline: per-resource metadata, per-user location/date
// summaries, and user profiles. All three are backed by a single
// BadgerDB instance with key prefixes.
package store
