// Parallel - Photo Library Enrichment and Realtime Notifications
// Copyright 2026 Parallel App
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/parallel-app/parallel

// Package enrich contains the two background pipelines built on the
// queue primitive: the geocode enricher, which turns raw coordinates
// into readable place labels and pushes them to the owning user, and
// the summary aggregator, which folds resolved labels and dates into
// per-user summary records.
package enrich
