// Parallel - Photo Library Enrichment and Realtime Notifications
// Copyright 2026 Parallel App
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/parallel-app/parallel

// Package geocode resolves raw coordinates into human-readable place
// labels via a reverse-geocoding provider.
//
// The Provider interface abstracts the external API; Google is the
// production implementation and Breaker wraps any provider with
// circuit breaker protection. DerivePlace turns a provider response
// into the display label the rest of the pipeline stores and pushes.
package geocode
