// Parallel - Photo Library Enrichment and Realtime Notifications
// Copyright 2026 Parallel App
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/parallel-app/parallel

package enrich

import (
	"context"
	"fmt"
	"math"
	"strings"
	"sync"

	"github.com/parallel-app/parallel/internal/config"
	"github.com/parallel-app/parallel/internal/geocode"
	"github.com/parallel-app/parallel/internal/logging"
	"github.com/parallel-app/parallel/internal/metrics"
	"github.com/parallel-app/parallel/internal/queue"
	"github.com/parallel-app/parallel/internal/store"
	"github.com/parallel-app/parallel/internal/ws"
)

// StandaloneKeyMarker tags ad-hoc location jobs that are not backed by
// a stored resource. Their labels skip persistence and go straight to
// notification.
const StandaloneKeyMarker = "add-location"

// IsStandaloneKey reports whether a job key belongs to an ad-hoc
// location lookup rather than a stored resource.
func IsStandaloneKey(key string) bool {
	return strings.Contains(key, StandaloneKeyMarker)
}

// Notifier is the push surface the enricher needs from the connection
// registry.
type Notifier interface {
	HasConnection(ownerID string, kind ws.Kind) bool
	SendToUser(ownerID string, kind ws.Kind, payload interface{}) bool
	CloseUser(ownerID string, kind ws.Kind, reason string)
}

// geocodeJob is one coordinate lookup owned by the geocode queue.
type geocodeJob struct {
	key   string
	lat   float64
	lng   float64
	owner string
}

func (j geocodeJob) Key() string   { return j.key }
func (j geocodeJob) Owner() string { return j.owner }

// resolution is the per-key bookkeeping cleared atomically once the
// key resolves.
type resolution struct {
	ownerID  string
	callback func(label string)
}

// Enricher resolves queued coordinates through the geocoding provider,
// persists labels onto metadata records, and notifies owners over
// their open channels.
type Enricher struct {
	queue           *queue.Queue[geocodeJob]
	provider        geocode.Provider
	metadata        store.MetadataStore
	notifier        Notifier
	domesticCountry string

	mu          sync.Mutex
	resolutions map[string]resolution
}

// NewEnricher creates the enricher and its queue. The queue is idle
// until the first Enqueue.
func NewEnricher(cfg config.GeocodeConfig, provider geocode.Provider, metadata store.MetadataStore, notifier Notifier) *Enricher {
	e := &Enricher{
		provider:        provider,
		metadata:        metadata,
		notifier:        notifier,
		domesticCountry: cfg.DomesticCountry,
		resolutions:     make(map[string]resolution),
	}
	e.queue = queue.New(queue.Config[geocodeJob]{
		Name:             "geocode",
		BatchSize:        cfg.BatchSize,
		MaxRatePerSecond: cfg.MaxRatePerSecond,
	}, e.processBatch)
	return e
}

// Enqueue schedules a coordinate lookup. Malformed arguments are
// rejected at the boundary and never enter the queue; the failure is
// observable only in logs. onResolved, when non-nil, fires with the
// resolved label before the key's bookkeeping is cleared.
func (e *Enricher) Enqueue(key string, lat, lng float64, ownerID string, onResolved func(label string)) {
	if key == "" || !isFinite(lat) || !isFinite(lng) {
		logging.Warn().Str("key", key).Float64("lat", lat).Float64("lng", lng).Msg("invalid geocode job parameters")
		metrics.QueueRejectedJobs.WithLabelValues("geocode", "invalid").Inc()
		return
	}

	// Insert-if-absent: the first registration for a key wins, so a
	// duplicate enqueue while the key is pending or in flight cannot
	// replace the original owner and callback.
	e.mu.Lock()
	if _, exists := e.resolutions[key]; !exists {
		e.resolutions[key] = resolution{ownerID: ownerID, callback: onResolved}
	}
	e.mu.Unlock()

	e.queue.Enqueue(geocodeJob{key: key, lat: lat, lng: lng, owner: ownerID})
}

// EnqueueBatch schedules several lookups without callbacks.
func (e *Enricher) EnqueueBatch(items []struct {
	Key      string
	Lat, Lng float64
	OwnerID  string
}) {
	for _, item := range items {
		e.Enqueue(item.Key, item.Lat, item.Lng, item.OwnerID, nil)
	}
}

// Status returns the queue status snapshot.
func (e *Enricher) Status() queue.Status {
	return e.queue.Status()
}

// Stop cancels the queue worker.
func (e *Enricher) Stop() {
	e.queue.Stop()
}

// processBatch resolves every point in the batch concurrently, then
// persists and notifies in arrival order. A persistence failure
// returns an error so the whole batch re-queues; a provider failure
// for one point only drops that point for this pass.
func (e *Enricher) processBatch(ctx context.Context, batch []geocodeJob) error {
	labels := make([]string, len(batch))

	var wg sync.WaitGroup
	for i, job := range batch {
		wg.Add(1)
		go func(i int, job geocodeJob) {
			defer wg.Done()
			results, err := e.provider.ReverseGeocode(ctx, job.lat, job.lng)
			if err != nil {
				logging.Error().Str("key", job.key).Err(err).Msg("reverse geocode failed, dropping point for this pass")
				return
			}
			labels[i] = geocode.DerivePlace(results, e.domesticCountry).Label
		}(i, job)
	}
	wg.Wait()

	userUpdates := make(map[string][]ws.Update)
	var dropped []string

	for i, job := range batch {
		label := labels[i]
		if label == "" {
			logging.Warn().Str("key", job.key).Msg("no usable geocode result")
			dropped = append(dropped, job.key)
			continue
		}

		owner := e.ownerFor(job)

		if !IsStandaloneKey(job.key) {
			if err := e.metadata.UpdateReadableLocation(ctx, job.key, label); err != nil {
				return fmt.Errorf("persist label for %s: %w", job.key, err)
			}
			logging.Debug().Str("key", job.key).Str("label", label).Msg("readable location persisted")
		}

		if res, ok := e.takeResolution(job.key); ok && res.callback != nil {
			res.callback(label)
		}

		if owner != "" {
			userUpdates[owner] = append(userUpdates[owner], ws.Update{Key: job.key, ReadableLocation: label})
		}
	}

	// Dropped keys left the queue, so their bookkeeping goes too; a
	// later re-enqueue registers fresh. Cleared only once the batch
	// commits, because a persistence failure above re-queues the whole
	// batch, dropped points included.
	for _, key := range dropped {
		e.takeResolution(key)
	}

	e.notify(userUpdates)
	e.closeCompletedOwners(userUpdates)
	return nil
}

// notify pushes each owner's resolved labels to their open upload and
// add-location channels. Best-effort: owners without a live channel
// are skipped.
func (e *Enricher) notify(userUpdates map[string][]ws.Update) {
	for owner, updates := range userUpdates {
		if e.notifier.HasConnection(owner, ws.KindUpload) {
			e.notifier.SendToUser(owner, ws.KindUpload, ws.UpdatePush{Type: ws.TypeGeocodeUpdate, Updates: updates})
			logging.Debug().Str("owner", owner).Int("updates", len(updates)).Msg("sent geocode updates")
		}
		if e.notifier.HasConnection(owner, ws.KindAddLocation) {
			e.notifier.SendToUser(owner, ws.KindAddLocation, ws.UpdatePush{Type: ws.TypeAddLocationUpdate, Updates: updates})
			logging.Debug().Str("owner", owner).Int("updates", len(updates)).Msg("sent standalone location updates")
		}
	}
}

// closeCompletedOwners closes the upload channel of every owner
// touched by this batch who has nothing further pending: no more
// updates are coming.
func (e *Enricher) closeCompletedOwners(userUpdates map[string][]ws.Update) {
	for owner := range userUpdates {
		if !e.queue.HasPendingOwner(owner) {
			e.notifier.CloseUser(owner, ws.KindUpload, "All geocode jobs completed")
		}
	}
}

// ownerFor resolves the owner for a job, preferring the bookkeeping
// entry recorded at enqueue time.
func (e *Enricher) ownerFor(job geocodeJob) string {
	e.mu.Lock()
	defer e.mu.Unlock()
	if res, ok := e.resolutions[job.key]; ok {
		return res.ownerID
	}
	return job.owner
}

// takeResolution removes and returns the key's bookkeeping entry.
func (e *Enricher) takeResolution(key string) (resolution, bool) {
	e.mu.Lock()
	defer e.mu.Unlock()
	res, ok := e.resolutions[key]
	if ok {
		delete(e.resolutions, key)
	}
	return res, ok
}

func isFinite(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}
