// Parallel - Photo Library Enrichment and Realtime Notifications
// Copyright 2026 Parallel App
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/parallel-app/parallel

package enrich

import (
	"context"
	"errors"

	"github.com/parallel-app/parallel/internal/config"
	"github.com/parallel-app/parallel/internal/logging"
	"github.com/parallel-app/parallel/internal/queue"
	"github.com/parallel-app/parallel/internal/store"
)

// summaryJob accumulates the distinct locations and dates queued for
// one owner during a debounce window.
type summaryJob struct {
	ownerID   string
	locations []string
	dates     []string
}

func (j summaryJob) Key() string   { return j.ownerID }
func (j summaryJob) Owner() string { return j.ownerID }

// mergeSummaryJobs unions an incoming job into the pending one.
func mergeSummaryJobs(pending, incoming summaryJob) summaryJob {
	pending.locations = appendDistinct(pending.locations, incoming.locations)
	pending.dates = appendDistinct(pending.dates, incoming.dates)
	return pending
}

func appendDistinct(existing, incoming []string) []string {
	for _, v := range incoming {
		found := false
		for _, e := range existing {
			if e == v {
				found = true
				break
			}
		}
		if !found {
			existing = append(existing, v)
		}
	}
	return existing
}

// Aggregator folds location labels and date labels into per-user
// summary records. Its queue is debounced: bursts of enqueues within
// the window coalesce into one job per owner before the first pass.
type Aggregator struct {
	queue     *queue.Queue[summaryJob]
	summaries store.SummaryStore
}

// NewAggregator creates the aggregator and its debounced queue.
func NewAggregator(cfg config.SummaryConfig, summaries store.SummaryStore) *Aggregator {
	a := &Aggregator{summaries: summaries}
	a.queue = queue.New(queue.Config[summaryJob]{
		Name:             "summary",
		BatchSize:        cfg.BatchSize,
		MaxRatePerSecond: cfg.MaxRatePerSecond,
		ProcessDelay:     cfg.ProcessDelay,
		Coalesce:         mergeSummaryJobs,
	}, a.processBatch)
	return a
}

// Enqueue schedules a summary merge for the owner. A call with both
// labels empty is a no-op. An entry already pending for the owner
// absorbs the new labels instead of duplicating.
func (a *Aggregator) Enqueue(ownerID, dateLabel, locationLabel string) {
	if dateLabel == "" && locationLabel == "" {
		return
	}

	job := summaryJob{ownerID: ownerID}
	if locationLabel != "" {
		job.locations = []string{locationLabel}
	}
	if dateLabel != "" {
		job.dates = []string{dateLabel}
	}
	a.queue.Enqueue(job)
}

// Status returns the queue status snapshot.
func (a *Aggregator) Status() queue.Status {
	return a.queue.Status()
}

// Stop cancels the queue worker.
func (a *Aggregator) Stop() {
	a.queue.Stop()
}

// processBatch merges each owner's pending sets into the persisted
// record. Summary sets never shrink: the write is always a union of
// the stored record and the queued labels. A failure for one owner is
// logged and does not abort the rest of the batch.
func (a *Aggregator) processBatch(ctx context.Context, batch []summaryJob) error {
	for _, job := range batch {
		rec, err := a.summaries.GetSummary(ctx, job.ownerID)
		if errors.Is(err, store.ErrNotFound) {
			rec = &store.SummaryRecord{OwnerID: job.ownerID}
		} else if err != nil {
			logging.Error().Str("owner", job.ownerID).Err(err).Msg("failed to fetch summary record")
			continue
		}

		rec.Merge(job.locations, job.dates)

		if err := a.summaries.PutSummary(ctx, rec); err != nil {
			logging.Error().Str("owner", job.ownerID).Err(err).Msg("failed to persist summary record")
			continue
		}
		logging.Debug().Str("owner", job.ownerID).Int("locations", len(rec.Locations)).Int("dates", len(rec.Dates)).Msg("summary record merged")
	}
	return nil
}
