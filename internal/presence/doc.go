// Parallel - Photo Library Enrichment and Realtime Notifications
// Copyright 2026 Parallel App
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/parallel-app/parallel

// Package presence tracks which users currently hold an open nearby
// channel. Membership lives only in process memory; every change is
// broadcast as a full snapshot rather than a delta, which tolerates
// out-of-order delivery at the cost of O(n) payloads.
package presence
