// Parallel - Photo Library Enrichment and Realtime Notifications
// Copyright 2026 Parallel App
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/parallel-app/parallel

package queue

import (
	"context"
	"errors"
	"fmt"
	"io"
	"sort"
	"sync"
	"testing"
	"time"

	"github.com/parallel-app/parallel/internal/logging"
)

//nolint:gochecknoinits // init ensures quiet logging for tests
func init() {
	logging.Init(logging.Config{Level: "error", Output: io.Discard})
}

type testJob struct {
	key   string
	owner string
	tags  []string
}

func (j testJob) Key() string   { return j.key }
func (j testJob) Owner() string { return j.owner }

// recorder collects processed jobs behind a mutex.
type recorder struct {
	mu      sync.Mutex
	batches [][]testJob
	fail    bool
}

func (r *recorder) process(_ context.Context, batch []testJob) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.fail {
		return errors.New("injected batch failure")
	}
	copied := make([]testJob, len(batch))
	copy(copied, batch)
	r.batches = append(r.batches, copied)
	return nil
}

func (r *recorder) setFail(fail bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.fail = fail
}

func (r *recorder) processedKeys() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	var keys []string
	for _, batch := range r.batches {
		for _, j := range batch {
			keys = append(keys, j.key)
		}
	}
	return keys
}

func waitFor(t *testing.T, timeout time.Duration, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(timeout)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatal("condition not met before timeout")
}

func newTestQueue(proc Processor[testJob], mutate ...func(*Config[testJob])) *Queue[testJob] {
	cfg := Config[testJob]{
		Name:             "test",
		BatchSize:        2,
		MaxRatePerSecond: 1000,
	}
	for _, m := range mutate {
		m(&cfg)
	}
	return New(cfg, proc)
}

func TestEveryJobProcessedExactlyOnce(t *testing.T) {
	rec := &recorder{}
	q := newTestQueue(rec.process)
	defer q.Stop()

	for i := 0; i < 7; i++ {
		q.Enqueue(testJob{key: fmt.Sprintf("k%d", i), owner: "U1"})
	}

	waitFor(t, 2*time.Second, func() bool { return len(rec.processedKeys()) == 7 })

	keys := rec.processedKeys()
	sort.Strings(keys)
	for i, k := range keys {
		want := fmt.Sprintf("k%d", i)
		if k != want {
			t.Errorf("processed key %d = %q, want %q", i, k, want)
		}
	}

	waitFor(t, time.Second, func() bool { return !q.Status().Processing })
	if q.Len() != 0 {
		t.Errorf("queue should be empty, has %d", q.Len())
	}
}

func TestFIFOWithinAndAcrossBatches(t *testing.T) {
	rec := &recorder{}
	q := newTestQueue(rec.process)
	defer q.Stop()

	jobs := make([]testJob, 6)
	for i := range jobs {
		jobs[i] = testJob{key: fmt.Sprintf("k%02d", i), owner: "U1"}
	}
	q.EnqueueBatch(jobs)

	waitFor(t, 2*time.Second, func() bool { return len(rec.processedKeys()) == 6 })

	keys := rec.processedKeys()
	for i := 1; i < len(keys); i++ {
		if keys[i] < keys[i-1] {
			t.Fatalf("arrival order not preserved: %v", keys)
		}
	}
}

func TestDuplicateKeyPendingOnce(t *testing.T) {
	rec := &recorder{}
	// Debounce long enough that nothing processes during the test.
	q := newTestQueue(rec.process, func(c *Config[testJob]) { c.ProcessDelay = time.Hour })
	defer q.Stop()

	q.Enqueue(testJob{key: "dup", owner: "U1"})
	q.Enqueue(testJob{key: "dup", owner: "U1"})

	if got := q.Len(); got != 1 {
		t.Errorf("expected exactly one pending entry, got %d", got)
	}
}

func TestFailedBatchIsRetriedWhole(t *testing.T) {
	rec := &recorder{}
	rec.setFail(true)
	q := newTestQueue(rec.process, func(c *Config[testJob]) { c.BatchSize = 3 })
	defer q.Stop()

	for i := 0; i < 3; i++ {
		q.Enqueue(testJob{key: fmt.Sprintf("k%d", i), owner: "U1"})
	}

	// All three must remain observably pending while the processor fails.
	waitFor(t, time.Second, func() bool { return q.Len() == 3 })

	rec.setFail(false)

	waitFor(t, 2*time.Second, func() bool { return len(rec.processedKeys()) == 3 })
	if q.Len() != 0 {
		t.Errorf("queue should drain after processor recovers, has %d", q.Len())
	}
}

func TestValidateRejectsAtBoundary(t *testing.T) {
	rec := &recorder{}
	q := newTestQueue(rec.process, func(c *Config[testJob]) {
		c.Validate = func(j testJob) error {
			if j.key == "" {
				return errors.New("empty key")
			}
			return nil
		}
	})
	defer q.Stop()

	q.Enqueue(testJob{key: "", owner: "U1"})

	if q.Len() != 0 {
		t.Error("invalid job entered the queue")
	}
}

func TestDebounceCoalescesBurst(t *testing.T) {
	rec := &recorder{}
	q := newTestQueue(rec.process, func(c *Config[testJob]) {
		c.ProcessDelay = 50 * time.Millisecond
		c.Coalesce = func(pending, incoming testJob) testJob {
			pending.tags = append(pending.tags, incoming.tags...)
			return pending
		}
	})
	defer q.Stop()

	q.Enqueue(testJob{key: "U1", owner: "U1", tags: []string{"Mon"}})
	q.Enqueue(testJob{key: "U1", owner: "U1", tags: []string{"Tue"}})

	if got := q.Len(); got != 1 {
		t.Fatalf("expected one merged pending entry, got %d", got)
	}

	waitFor(t, 2*time.Second, func() bool { return len(rec.processedKeys()) == 1 })

	rec.mu.Lock()
	job := rec.batches[0][0]
	rec.mu.Unlock()
	if len(job.tags) != 2 || job.tags[0] != "Mon" || job.tags[1] != "Tue" {
		t.Errorf("merged tags = %v, want [Mon Tue]", job.tags)
	}
}

func TestDebounceDelaysFirstPass(t *testing.T) {
	rec := &recorder{}
	q := newTestQueue(rec.process, func(c *Config[testJob]) { c.ProcessDelay = 100 * time.Millisecond })
	defer q.Stop()

	q.Enqueue(testJob{key: "k1", owner: "U1"})

	time.Sleep(30 * time.Millisecond)
	if len(rec.processedKeys()) != 0 {
		t.Error("processing started before debounce window elapsed")
	}
	if !q.Status().Debouncing {
		t.Error("status should report debouncing")
	}

	waitFor(t, 2*time.Second, func() bool { return len(rec.processedKeys()) == 1 })
}

func TestHasPendingOwner(t *testing.T) {
	rec := &recorder{}
	q := newTestQueue(rec.process, func(c *Config[testJob]) { c.ProcessDelay = time.Hour })
	defer q.Stop()

	q.Enqueue(testJob{key: "a", owner: "U1"})
	q.Enqueue(testJob{key: "b", owner: "U2"})

	if !q.HasPendingOwner("U1") || !q.HasPendingOwner("U2") {
		t.Error("expected both owners pending")
	}
	if q.HasPendingOwner("U3") {
		t.Error("unexpected owner pending")
	}
}

func TestWorkerRestartsAfterDrain(t *testing.T) {
	rec := &recorder{}
	q := newTestQueue(rec.process)
	defer q.Stop()

	q.Enqueue(testJob{key: "first", owner: "U1"})
	waitFor(t, time.Second, func() bool { return len(rec.processedKeys()) == 1 })
	waitFor(t, time.Second, func() bool { return !q.Status().Processing })

	q.Enqueue(testJob{key: "second", owner: "U1"})
	waitFor(t, time.Second, func() bool { return len(rec.processedKeys()) == 2 })
}

func TestStatusSnapshot(t *testing.T) {
	rec := &recorder{}
	q := New(Config[testJob]{Name: "status", BatchSize: 25, MaxRatePerSecond: 5}, rec.process)
	defer q.Stop()

	st := q.Status()
	if st.BatchSize != 25 || st.MaxRatePerSecond != 5 {
		t.Errorf("unexpected status %+v", st)
	}
	// ceil(25/5*1000) = 5000ms
	if st.ProcessIntervalMs != 5000 {
		t.Errorf("interval = %dms, want 5000", st.ProcessIntervalMs)
	}
}
