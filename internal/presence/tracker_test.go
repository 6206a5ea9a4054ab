// Parallel - Photo Library Enrichment and Realtime Notifications
// Copyright 2026 Parallel App
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/parallel-app/parallel

package presence

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/parallel-app/parallel/internal/store"
	"github.com/parallel-app/parallel/internal/ws"
)

type captureBroadcaster struct {
	mu       sync.Mutex
	payloads []snapshotPush
}

func (c *captureBroadcaster) Broadcast(payload interface{}) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.payloads = append(c.payloads, payload.(snapshotPush))
}

func (c *captureBroadcaster) count() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.payloads)
}

func (c *captureBroadcaster) last() snapshotPush {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.payloads[len(c.payloads)-1]
}

type stubStores struct {
	summaries  map[string]*store.SummaryRecord
	users      map[string]*store.UserRecord
	summaryErr error
	userErr    error
}

func (s *stubStores) GetSummary(_ context.Context, ownerID string) (*store.SummaryRecord, error) {
	if s.summaryErr != nil {
		return nil, s.summaryErr
	}
	if rec, ok := s.summaries[ownerID]; ok {
		return rec, nil
	}
	return nil, store.ErrNotFound
}

func (s *stubStores) PutSummary(context.Context, *store.SummaryRecord) error { return nil }

func (s *stubStores) GetUser(_ context.Context, ownerID string) (*store.UserRecord, error) {
	if s.userErr != nil {
		return nil, s.userErr
	}
	if rec, ok := s.users[ownerID]; ok {
		return rec, nil
	}
	return nil, store.ErrNotFound
}

func (s *stubStores) PutUser(context.Context, *store.UserRecord) error { return nil }

func newTestTracker(stores *stubStores) (*Tracker, *captureBroadcaster) {
	bc := &captureBroadcaster{}
	return NewTracker(bc, stores, stores), bc
}

func TestConnectBroadcastsFullSnapshot(t *testing.T) {
	tracker, bc := newTestTracker(&stubStores{
		summaries: map[string]*store.SummaryRecord{
			"U1": {OwnerID: "U1", Locations: []string{"Paris, France"}, Dates: []string{"2024-05-01"}},
		},
		users: map[string]*store.UserRecord{
			"U1": {OwnerID: "U1", Username: "alice"},
		},
	})

	tracker.HandleConnect(context.Background(), "U1")

	if bc.count() != 1 {
		t.Fatalf("broadcast count = %d, want 1", bc.count())
	}
	push := bc.last()
	if push.Type != ws.TypeNearbyUserConnect {
		t.Errorf("type = %q", push.Type)
	}
	entry, ok := push.Data["U1"]
	if !ok {
		t.Fatal("snapshot missing U1")
	}
	if entry.Username != "alice" || len(entry.Locations) != 1 || entry.Locations[0] != "Paris, France" {
		t.Errorf("unexpected entry: %+v", entry)
	}
}

func TestConnectIsIdempotent(t *testing.T) {
	tracker, bc := newTestTracker(&stubStores{})

	tracker.HandleConnect(context.Background(), "U1")
	tracker.HandleConnect(context.Background(), "U1")

	if bc.count() != 1 {
		t.Errorf("duplicate connect produced %d broadcasts, want 1", bc.count())
	}
}

func TestDisconnectRemovesFromSnapshot(t *testing.T) {
	tracker, bc := newTestTracker(&stubStores{})

	tracker.HandleConnect(context.Background(), "U1")
	tracker.HandleConnect(context.Background(), "U2")
	tracker.HandleDisconnect("U1")

	push := bc.last()
	if push.Type != ws.TypeNearbyUserDisconnect {
		t.Errorf("type = %q", push.Type)
	}
	if _, ok := push.Data["U1"]; ok {
		t.Error("U1 still present after disconnect")
	}
	if _, ok := push.Data["U2"]; !ok {
		t.Error("U2 missing from snapshot")
	}
}

func TestDisconnectUntrackedIsNoOp(t *testing.T) {
	tracker, bc := newTestTracker(&stubStores{})

	tracker.HandleDisconnect("ghost")

	if bc.count() != 0 {
		t.Errorf("untracked disconnect broadcast %d times", bc.count())
	}
}

func TestMissingRecordsUseDefaults(t *testing.T) {
	tracker, bc := newTestTracker(&stubStores{})

	tracker.HandleConnect(context.Background(), "U1")

	entry := bc.last().Data["U1"]
	if entry.Username != "[No username]" {
		t.Errorf("username = %q", entry.Username)
	}
	if len(entry.Locations) != 0 || len(entry.Dates) != 0 {
		t.Errorf("expected empty sets, got %+v", entry)
	}
}

func TestStoreFailureAbortsSilently(t *testing.T) {
	tests := []struct {
		name   string
		stores *stubStores
	}{
		{"summary fetch fails", &stubStores{summaryErr: errors.New("store down")}},
		{"user fetch fails", &stubStores{userErr: errors.New("store down")}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tracker, bc := newTestTracker(tt.stores)

			tracker.HandleConnect(context.Background(), "U1")

			if bc.count() != 0 {
				t.Error("broadcast despite store failure")
			}
			if len(tracker.Snapshot()) != 0 {
				t.Error("user tracked despite store failure")
			}
		})
	}
}
