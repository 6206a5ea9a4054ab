// Parallel - Photo Library Enrichment and Realtime Notifications
// Copyright 2026 Parallel App
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/parallel-app/parallel

package presence

import (
	"context"
	"errors"
	"sync"

	"github.com/parallel-app/parallel/internal/logging"
	"github.com/parallel-app/parallel/internal/metrics"
	"github.com/parallel-app/parallel/internal/store"
	"github.com/parallel-app/parallel/internal/ws"
)

// fallbackUsername labels users without a stored profile name.
const fallbackUsername = "[No username]"

// Broadcaster fans a payload out to every connected client.
type Broadcaster interface {
	Broadcast(payload interface{})
}

// Entry is one user's presence data as pushed to clients.
type Entry struct {
	Locations []string `json:"locations"`
	Dates     []string `json:"dates"`
	Username  string   `json:"username"`
}

// snapshotPush is the wire shape of a presence broadcast.
type snapshotPush struct {
	Type string           `json:"type"`
	Data map[string]Entry `json:"data"`
}

// Tracker is the in-memory presence set.
type Tracker struct {
	broadcaster Broadcaster
	summaries   store.SummaryStore
	users       store.UserStore

	// mu serializes connect/disconnect handling, including the store
	// fetches, so duplicate connects stay idempotent.
	mu        sync.Mutex
	connected map[string]Entry
}

// NewTracker creates an empty tracker.
func NewTracker(broadcaster Broadcaster, summaries store.SummaryStore, users store.UserStore) *Tracker {
	return &Tracker{
		broadcaster: broadcaster,
		summaries:   summaries,
		users:       users,
		connected:   make(map[string]Entry),
	}
}

// HandleConnect adds the user to the presence set and broadcasts the
// full membership snapshot. A user already tracked is a no-op. A store
// fetch failure aborts silently: the user is not added and nothing is
// broadcast.
func (t *Tracker) HandleConnect(ctx context.Context, ownerID string) {
	t.mu.Lock()
	defer t.mu.Unlock()

	if _, ok := t.connected[ownerID]; ok {
		return
	}

	entry := Entry{Locations: []string{}, Dates: []string{}, Username: fallbackUsername}

	summary, err := t.summaries.GetSummary(ctx, ownerID)
	switch {
	case err == nil:
		entry.Locations = append(entry.Locations, summary.Locations...)
		entry.Dates = append(entry.Dates, summary.Dates...)
	case errors.Is(err, store.ErrNotFound):
		// No summary yet; empty sets are fine.
	default:
		logging.Error().Str("owner", ownerID).Err(err).Msg("failed to fetch summary for presence")
		return
	}

	user, err := t.users.GetUser(ctx, ownerID)
	switch {
	case err == nil:
		if user.Username != "" {
			entry.Username = user.Username
		}
	case errors.Is(err, store.ErrNotFound):
		// Keep the fallback name.
	default:
		logging.Error().Str("owner", ownerID).Err(err).Msg("failed to fetch user profile for presence")
		return
	}

	t.connected[ownerID] = entry
	metrics.PresenceUsers.Set(float64(len(t.connected)))
	logging.Info().Str("owner", ownerID).Int("present", len(t.connected)).Msg("user joined presence set")

	t.broadcaster.Broadcast(snapshotPush{
		Type: ws.TypeNearbyUserConnect,
		Data: t.snapshotLocked(),
	})
}

// HandleDisconnect removes the user and broadcasts the updated
// snapshot. Untracked users are a no-op.
func (t *Tracker) HandleDisconnect(ownerID string) {
	t.mu.Lock()
	defer t.mu.Unlock()

	if _, ok := t.connected[ownerID]; !ok {
		return
	}

	delete(t.connected, ownerID)
	metrics.PresenceUsers.Set(float64(len(t.connected)))
	logging.Info().Str("owner", ownerID).Int("present", len(t.connected)).Msg("user left presence set")

	t.broadcaster.Broadcast(snapshotPush{
		Type: ws.TypeNearbyUserDisconnect,
		Data: t.snapshotLocked(),
	})
}

// Snapshot returns a copy of the current presence map.
func (t *Tracker) Snapshot() map[string]Entry {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.snapshotLocked()
}

func (t *Tracker) snapshotLocked() map[string]Entry {
	out := make(map[string]Entry, len(t.connected))
	for k, v := range t.connected {
		out[k] = v
	}
	return out
}
