// Parallel - Photo Library Enrichment and Realtime Notifications
// Copyright 2026 Parallel App
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/parallel-app/parallel

package store

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/dgraph-io/badger/v4"
	"github.com/goccy/go-json"

	"github.com/parallel-app/parallel/internal/logging"
)

// Key prefixes for BadgerDB storage.
const (
	metadataKeyPrefix = "metadata:"
	summaryKeyPrefix  = "summary:"
	userKeyPrefix     = "user:"
)

// Badger implements MetadataStore, SummaryStore, and UserStore on a
// single BadgerDB instance.
type Badger struct {
	db *badger.DB
}

// Options configures a Badger store.
type Options struct {
	Path     string
	InMemory bool

	// GCInterval is how often RunGC attempts value-log garbage
	// collection. Zero means every 10 minutes.
	GCInterval time.Duration
}

// Open opens or creates the store.
func Open(opts Options) (*Badger, error) {
	badgerOpts := badger.DefaultOptions(opts.Path).
		WithInMemory(opts.InMemory).
		WithLogger(nil)

	db, err := badger.Open(badgerOpts)
	if err != nil {
		return nil, fmt.Errorf("open badger at %s: %w", opts.Path, err)
	}
	return &Badger{db: db}, nil
}

// OpenInMemory opens a non-persistent store. Used in tests.
func OpenInMemory() (*Badger, error) {
	return Open(Options{InMemory: true})
}

// Close closes the underlying database.
func (s *Badger) Close() error {
	return s.db.Close()
}

// GetMetadata retrieves a metadata record by resource key.
func (s *Badger) GetMetadata(ctx context.Context, key string) (*MetadataRecord, error) {
	var rec MetadataRecord
	if err := s.get(metadataKeyPrefix+key, &rec); err != nil {
		return nil, err
	}
	return &rec, nil
}

// PutMetadata stores a metadata record keyed by its ID.
func (s *Badger) PutMetadata(ctx context.Context, rec *MetadataRecord) error {
	if rec.ID == "" {
		return errors.New("metadata record has empty ID")
	}
	return s.put(metadataKeyPrefix+rec.ID, rec)
}

// UpdateReadableLocation sets the readable location on an existing
// record inside a single transaction. Missing records return
// ErrNotFound so a failed enrichment pass can re-queue.
func (s *Badger) UpdateReadableLocation(ctx context.Context, key, label string) error {
	return s.db.Update(func(txn *badger.Txn) error {
		fullKey := []byte(metadataKeyPrefix + key)

		item, err := txn.Get(fullKey)
		if errors.Is(err, badger.ErrKeyNotFound) {
			return fmt.Errorf("metadata %s: %w", key, ErrNotFound)
		}
		if err != nil {
			return fmt.Errorf("get metadata %s: %w", key, err)
		}

		var rec MetadataRecord
		if err := item.Value(func(val []byte) error {
			return json.Unmarshal(val, &rec)
		}); err != nil {
			return fmt.Errorf("decode metadata %s: %w", key, err)
		}

		rec.ReadableLocation = label

		data, err := json.Marshal(&rec)
		if err != nil {
			return fmt.Errorf("encode metadata %s: %w", key, err)
		}
		return txn.Set(fullKey, data)
	})
}

// GetSummary retrieves a summary record by owner ID.
func (s *Badger) GetSummary(ctx context.Context, ownerID string) (*SummaryRecord, error) {
	var rec SummaryRecord
	if err := s.get(summaryKeyPrefix+ownerID, &rec); err != nil {
		return nil, err
	}
	return &rec, nil
}

// PutSummary stores a summary record keyed by its owner ID.
func (s *Badger) PutSummary(ctx context.Context, rec *SummaryRecord) error {
	if rec.OwnerID == "" {
		return errors.New("summary record has empty owner ID")
	}
	return s.put(summaryKeyPrefix+rec.OwnerID, rec)
}

// GetUser retrieves a user profile by owner ID.
func (s *Badger) GetUser(ctx context.Context, ownerID string) (*UserRecord, error) {
	var rec UserRecord
	if err := s.get(userKeyPrefix+ownerID, &rec); err != nil {
		return nil, err
	}
	return &rec, nil
}

// PutUser stores a user profile keyed by its owner ID.
func (s *Badger) PutUser(ctx context.Context, rec *UserRecord) error {
	if rec.OwnerID == "" {
		return errors.New("user record has empty owner ID")
	}
	return s.put(userKeyPrefix+rec.OwnerID, rec)
}

func (s *Badger) get(key string, out interface{}) error {
	err := s.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get([]byte(key))
		if errors.Is(err, badger.ErrKeyNotFound) {
			return ErrNotFound
		}
		if err != nil {
			return fmt.Errorf("get %s: %w", key, err)
		}
		return item.Value(func(val []byte) error {
			return json.Unmarshal(val, out)
		})
	})
	return err
}

func (s *Badger) put(key string, rec interface{}) error {
	data, err := json.Marshal(rec)
	if err != nil {
		return fmt.Errorf("encode %s: %w", key, err)
	}
	return s.db.Update(func(txn *badger.Txn) error {
		return txn.Set([]byte(key), data)
	})
}

// RunGC runs the value-log garbage collector on an interval until the
// context is canceled. Designed to run under suture supervision.
func (s *Badger) RunGC(ctx context.Context, interval time.Duration) error {
	if interval <= 0 {
		interval = 10 * time.Minute
	}

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			// ErrNoRewrite just means nothing needed collecting.
			if err := s.db.RunValueLogGC(0.5); err != nil && !errors.Is(err, badger.ErrNoRewrite) {
				logging.Warn().Err(err).Msg("badger value log GC failed")
			}
		}
	}
}

func unionSorted(existing, incoming []string) []string {
	set := make(map[string]struct{}, len(existing)+len(incoming))
	for _, v := range existing {
		set[v] = struct{}{}
	}
	for _, v := range incoming {
		if v != "" {
			set[v] = struct{}{}
		}
	}

	out := make([]string, 0, len(set))
	for v := range set {
		out = append(out, v)
	}
	sort.Strings(out)
	return out
}
