// Parallel - Photo Library Enrichment and Realtime Notifications
// Copyright 2026 Parallel App
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/parallel-app/parallel

// Package queue implements a generic rate-limited batch processor.
//
// A Queue owns a pending job list and exactly one worker goroutine.
// The worker pops jobs FIFO in batches of up to BatchSize, hands them
// to the batch processor, and on any error re-queues the entire batch
// at the tail for a later retry. Between batches it sleeps
// ceil(BatchSize/MaxRatePerSecond) seconds, which is the sole
// backpressure mechanism bounding the external call rate. The worker
// exits once the queue drains; any later enqueue restarts it.
//
// A queue configured with a ProcessDelay is debounced: the first
// enqueue of an idle cycle arms a timer instead of starting the worker
// immediately, so bursts arriving within the window coalesce (via the
// Coalesce hook) before any work begins.
package queue
