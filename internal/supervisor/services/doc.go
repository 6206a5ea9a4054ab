// Parallel - Photo Library Enrichment and Realtime Notifications
// Copyright 2026 Parallel App
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/parallel-app/parallel

// Package services wraps the long-running pieces of the process as
// suture services so the supervisor tree can restart them in place.
package services
