// Parallel - Photo Library Enrichment and Realtime Notifications
// Copyright 2026 Parallel App
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/parallel-app/parallel

package queue

import (
	"context"
	"math"
	"sync"
	"time"

	"github.com/parallel-app/parallel/internal/logging"
	"github.com/parallel-app/parallel/internal/metrics"
)

// Job is the unit of queued work. Keys deduplicate pending jobs;
// owners index them for per-user completion checks.
type Job interface {
	Key() string
	Owner() string
}

// Processor handles one batch. Returning an error re-queues the whole
// batch at the tail; there is no partial-item retry.
type Processor[J Job] func(ctx context.Context, batch []J) error

// Config holds queue tuning parameters.
type Config[J Job] struct {
	// Name labels logs and metrics.
	Name string

	// BatchSize is the maximum number of jobs per processing pass.
	BatchSize int

	// MaxRatePerSecond bounds the effective job throughput; it sets
	// the inter-batch sleep together with BatchSize.
	MaxRatePerSecond int

	// ProcessDelay, when positive, debounces the first processing pass
	// of an idle cycle.
	ProcessDelay time.Duration

	// Validate rejects malformed jobs at enqueue time. Rejected jobs
	// are logged and dropped; the failure never reaches the caller.
	Validate func(J) error

	// Coalesce merges an incoming job into a pending job with the same
	// key, returning the merged job. When nil, a duplicate key is
	// skipped instead.
	Coalesce func(pending, incoming J) J
}

// Queue is a rate-limited FIFO batch queue with at most one worker.
type Queue[J Job] struct {
	cfg      Config[J]
	proc     Processor[J]
	interval time.Duration

	ctx    context.Context
	cancel context.CancelFunc

	mu         sync.Mutex
	pending    []J
	keys       map[string]struct{}
	owners     map[string]int
	processing bool
	debouncing bool
}

// Status is a point-in-time snapshot of queue state.
type Status struct {
	QueueSize         int   `json:"queueSize"`
	Processing        bool  `json:"processing"`
	Debouncing        bool  `json:"debouncing"`
	MaxRatePerSecond  int   `json:"maxRatePerSecond"`
	BatchSize         int   `json:"batchSize"`
	ProcessIntervalMs int64 `json:"processIntervalMs"`
}

// New creates a queue with the given configuration and batch
// processor. The queue is idle until the first Enqueue.
func New[J Job](cfg Config[J], proc Processor[J]) *Queue[J] {
	if cfg.BatchSize <= 0 {
		cfg.BatchSize = 10
	}
	if cfg.MaxRatePerSecond <= 0 {
		cfg.MaxRatePerSecond = 10
	}

	intervalMs := int64(math.Ceil(float64(cfg.BatchSize) / float64(cfg.MaxRatePerSecond) * 1000))

	ctx, cancel := context.WithCancel(context.Background())
	return &Queue[J]{
		cfg:      cfg,
		proc:     proc,
		interval: time.Duration(intervalMs) * time.Millisecond,
		ctx:      ctx,
		cancel:   cancel,
		keys:     make(map[string]struct{}),
		owners:   make(map[string]int),
	}
}

// Enqueue appends a job unless its key is already pending. Malformed
// jobs are rejected with a log entry and never enter the queue. The
// worker is started (or the debounce timer armed) if the queue was
// idle.
func (q *Queue[J]) Enqueue(job J) {
	if q.cfg.Validate != nil {
		if err := q.cfg.Validate(job); err != nil {
			logging.Warn().Str("queue", q.cfg.Name).Str("key", job.Key()).Err(err).Msg("rejected invalid job")
			metrics.QueueRejectedJobs.WithLabelValues(q.cfg.Name, "invalid").Inc()
			return
		}
	}

	q.mu.Lock()

	if _, dup := q.keys[job.Key()]; dup {
		if q.cfg.Coalesce != nil {
			for i := range q.pending {
				if q.pending[i].Key() == job.Key() {
					q.pending[i] = q.cfg.Coalesce(q.pending[i], job)
					break
				}
			}
			logging.Debug().Str("queue", q.cfg.Name).Str("key", job.Key()).Msg("merged into pending job")
		} else {
			logging.Debug().Str("queue", q.cfg.Name).Str("key", job.Key()).Msg("skipped duplicate job")
			metrics.QueueRejectedJobs.WithLabelValues(q.cfg.Name, "duplicate").Inc()
		}
		q.mu.Unlock()
		return
	}

	q.pending = append(q.pending, job)
	q.keys[job.Key()] = struct{}{}
	q.owners[job.Owner()]++
	metrics.QueueDepth.WithLabelValues(q.cfg.Name).Set(float64(len(q.pending)))
	logging.Debug().Str("queue", q.cfg.Name).Str("key", job.Key()).Int("queue_size", len(q.pending)).Msg("job enqueued")

	shouldStart := !q.processing && !q.debouncing
	if shouldStart && q.cfg.ProcessDelay > 0 {
		q.debouncing = true
		time.AfterFunc(q.cfg.ProcessDelay, func() {
			q.mu.Lock()
			q.debouncing = false
			q.mu.Unlock()
			q.start()
		})
		shouldStart = false
	}
	q.mu.Unlock()

	if shouldStart {
		q.start()
	}
}

// EnqueueBatch enqueues each job in turn.
func (q *Queue[J]) EnqueueBatch(jobs []J) {
	for _, job := range jobs {
		q.Enqueue(job)
	}
}

// HasPendingKey reports whether a job with the key is pending. Jobs
// in a batch currently being processed are not pending.
func (q *Queue[J]) HasPendingKey(key string) bool {
	q.mu.Lock()
	defer q.mu.Unlock()
	_, ok := q.keys[key]
	return ok
}

// HasPendingOwner reports whether any pending job belongs to the
// owner. Jobs in a batch currently being processed are not pending.
func (q *Queue[J]) HasPendingOwner(ownerID string) bool {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.owners[ownerID] > 0
}

// Len returns the number of pending jobs.
func (q *Queue[J]) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.pending)
}

// Status returns a snapshot of queue state.
func (q *Queue[J]) Status() Status {
	q.mu.Lock()
	defer q.mu.Unlock()
	return Status{
		QueueSize:         len(q.pending),
		Processing:        q.processing,
		Debouncing:        q.debouncing,
		MaxRatePerSecond:  q.cfg.MaxRatePerSecond,
		BatchSize:         q.cfg.BatchSize,
		ProcessIntervalMs: q.interval.Milliseconds(),
	}
}

// Stop cancels the worker. Pending jobs stay in the queue; a stopped
// queue never restarts.
func (q *Queue[J]) Stop() {
	q.cancel()
}

func (q *Queue[J]) start() {
	q.mu.Lock()
	if q.processing || len(q.pending) == 0 {
		q.mu.Unlock()
		return
	}
	q.processing = true
	q.mu.Unlock()

	go q.run()
}

// run is the worker loop. Exactly one instance runs at a time,
// guarded by the processing flag.
func (q *Queue[J]) run() {
	logging.Debug().Str("queue", q.cfg.Name).Msg("queue processor started")

	for {
		select {
		case <-q.ctx.Done():
			q.markStopped()
			return
		default:
		}

		q.mu.Lock()
		if len(q.pending) == 0 {
			q.processing = false
			q.mu.Unlock()
			logging.Debug().Str("queue", q.cfg.Name).Msg("queue processor stopped, queue empty")
			return
		}

		n := min(q.cfg.BatchSize, len(q.pending))
		batch := make([]J, n)
		copy(batch, q.pending[:n])
		q.pending = append(q.pending[:0:0], q.pending[n:]...)
		for _, job := range batch {
			delete(q.keys, job.Key())
			q.decOwner(job.Owner())
		}
		remaining := len(q.pending)
		metrics.QueueDepth.WithLabelValues(q.cfg.Name).Set(float64(remaining))
		q.mu.Unlock()

		logging.Debug().Str("queue", q.cfg.Name).Int("batch_size", len(batch)).Int("remaining", remaining).Msg("processing batch")

		start := time.Now()
		err := q.proc(q.ctx, batch)
		metrics.QueueBatchDuration.WithLabelValues(q.cfg.Name).Observe(time.Since(start).Seconds())

		if err != nil {
			logging.Error().Str("queue", q.cfg.Name).Int("batch_size", len(batch)).Err(err).Msg("batch processing failed, re-queueing")
			metrics.QueueBatchesTotal.WithLabelValues(q.cfg.Name, "requeued").Inc()
			q.requeue(batch)
		} else {
			metrics.QueueBatchesTotal.WithLabelValues(q.cfg.Name, "ok").Inc()
		}

		q.mu.Lock()
		more := len(q.pending) > 0
		q.mu.Unlock()

		if more {
			select {
			case <-q.ctx.Done():
				q.markStopped()
				return
			case <-time.After(q.interval):
			}
		}
	}
}

// requeue puts a failed batch back at the tail. A job whose key was
// re-enqueued while the batch was in flight is dropped here so the
// at-most-once pending invariant holds.
func (q *Queue[J]) requeue(batch []J) {
	q.mu.Lock()
	defer q.mu.Unlock()

	for _, job := range batch {
		if _, dup := q.keys[job.Key()]; dup {
			logging.Debug().Str("queue", q.cfg.Name).Str("key", job.Key()).Msg("dropping re-queued job, key pending again")
			continue
		}
		q.pending = append(q.pending, job)
		q.keys[job.Key()] = struct{}{}
		q.owners[job.Owner()]++
	}
	metrics.QueueDepth.WithLabelValues(q.cfg.Name).Set(float64(len(q.pending)))
}

func (q *Queue[J]) markStopped() {
	q.mu.Lock()
	q.processing = false
	q.mu.Unlock()
	logging.Debug().Str("queue", q.cfg.Name).Msg("queue processor stopped, context canceled")
}

func (q *Queue[J]) decOwner(ownerID string) {
	if q.owners[ownerID] <= 1 {
		delete(q.owners, ownerID)
		return
	}
	q.owners[ownerID]--
}
