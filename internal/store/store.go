// Parallel - Photo Library Enrichment and Realtime Notifications
// Copyright 2026 Parallel App
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/parallel-app/parallel

package store

import (
	"context"
	"errors"
)

// ErrNotFound is returned when a record does not exist.
var ErrNotFound = errors.New("record not found")

// Location is a raw coordinate pair extracted from a resource.
type Location struct {
	Lat float64 `json:"lat"`
	Lng float64 `json:"lng"`
}

// MetadataRecord holds per-resource metadata. It is created by the
// upstream producer; only ReadableLocation is mutated by the
// enrichment pipeline.
type MetadataRecord struct {
	ID               string    `json:"id"`
	OwnerID          string    `json:"ownerID"`
	RawLocation      *Location `json:"rawLocation,omitempty"`
	ReadableLocation string    `json:"readableLocation,omitempty"`
	Timestamp        *int64    `json:"timestamp,omitempty"`
}

// SummaryRecord holds the distinct locations and dates seen across a
// user's library. Sets only ever grow within the pipeline.
type SummaryRecord struct {
	OwnerID   string   `json:"ownerID"`
	Locations []string `json:"locations"`
	Dates     []string `json:"dates"`
}

// Merge unions the given locations and dates into the record,
// preserving existing entries. Result ordering is sorted for
// deterministic persistence.
func (r *SummaryRecord) Merge(locations, dates []string) {
	r.Locations = unionSorted(r.Locations, locations)
	r.Dates = unionSorted(r.Dates, dates)
}

// UserRecord holds the display profile for a user.
type UserRecord struct {
	OwnerID  string `json:"ownerID"`
	Username string `json:"username"`
}

// MetadataStore is the per-resource record store.
type MetadataStore interface {
	GetMetadata(ctx context.Context, key string) (*MetadataRecord, error)
	PutMetadata(ctx context.Context, rec *MetadataRecord) error

	// UpdateReadableLocation sets only the readable location field,
	// leaving other fields untouched. There is no cross-field
	// transaction guarantee with Timestamp updates.
	UpdateReadableLocation(ctx context.Context, key, label string) error
}

// SummaryStore is the per-user summary record store.
type SummaryStore interface {
	GetSummary(ctx context.Context, ownerID string) (*SummaryRecord, error)
	PutSummary(ctx context.Context, rec *SummaryRecord) error
}

// UserStore is the user profile store.
type UserStore interface {
	GetUser(ctx context.Context, ownerID string) (*UserRecord, error)
	PutUser(ctx context.Context, rec *UserRecord) error
}
