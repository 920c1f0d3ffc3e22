// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package storage persists curation documents in BadgerDB.
//
// Each snapshot key holds the latest document saved under it, wrapped in
// an envelope that records when it was saved. Documents are stored in the
// same JSON form as the curation export file.
//
// # Thread Safety
//
// CurationStore is safe for concurrent use.
package storage

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"strings"
	"time"

	dgbadger "github.com/dgraph-io/badger/v4"

	"github.com/AleutianAI/spikecurator/pkg/validation"
	"github.com/AleutianAI/spikecurator/services/curation/ledger"
	"github.com/AleutianAI/spikecurator/services/curation/storage/badger"
)

const keyPrefix = "curation/"

// ErrNotFound is returned when no snapshot exists under a key.
var ErrNotFound = errors.New("curation snapshot not found")

// ErrInvalidKey is returned for a key that fails validation.ValidateKey.
var ErrInvalidKey = errors.New("invalid snapshot key")

// SnapshotInfo describes one stored snapshot.
type SnapshotInfo struct {
	Key     string    `json:"key"`
	SavedAt time.Time `json:"saved_at"`
	Units   int       `json:"units"`
	Groups  int       `json:"merge_groups"`
	Removed int       `json:"removed"`
}

type envelope struct {
	SavedAt  time.Time       `json:"saved_at"`
	Document json.RawMessage `json:"document"`
}

// CurationStore saves and loads curation documents by key.
type CurationStore struct {
	db     *badger.DB
	logger *slog.Logger
	now    func() time.Time
}

// Option configures a CurationStore.
type Option func(*CurationStore)

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(s *CurationStore) { s.logger = logger }
}

// WithClock sets the time source for SavedAt.
func WithClock(now func() time.Time) Option {
	return func(s *CurationStore) { s.now = now }
}

// NewCurationStore wraps an open database. The caller keeps ownership of
// db and closes it.
func NewCurationStore(db *badger.DB, opts ...Option) *CurationStore {
	s := &CurationStore{db: db, logger: slog.Default(), now: time.Now}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func dbKey(key string) ([]byte, error) {
	if err := validation.ValidateKey(key); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidKey, err)
	}
	return []byte(keyPrefix + key), nil
}

// SaveCuration stores doc under key, replacing any earlier snapshot.
func (s *CurationStore) SaveCuration(ctx context.Context, key string, doc ledger.Document) error {
	k, err := dbKey(key)
	if err != nil {
		return err
	}
	var buf bytes.Buffer
	if err := ledger.EncodeDocument(&buf, doc); err != nil {
		return fmt.Errorf("encode curation: %w", err)
	}
	val, err := json.Marshal(envelope{SavedAt: s.now().UTC(), Document: buf.Bytes()})
	if err != nil {
		return fmt.Errorf("encode snapshot: %w", err)
	}
	if err := s.db.Update(ctx, func(txn *dgbadger.Txn) error {
		return txn.Set(k, val)
	}); err != nil {
		return fmt.Errorf("write snapshot %q: %w", key, err)
	}
	s.logger.Debug("curation snapshot written", "key", key, "bytes", len(val))
	return nil
}

// LoadCuration returns the document stored under key.
//
// Outputs:
//
//	ledger.Document - The stored document.
//	error - ErrNotFound when nothing is stored under key.
func (s *CurationStore) LoadCuration(ctx context.Context, key string) (ledger.Document, error) {
	env, err := s.read(ctx, key)
	if err != nil {
		return ledger.Document{}, err
	}
	doc, err := ledger.DecodeDocument(bytes.NewReader(env.Document))
	if err != nil {
		return ledger.Document{}, fmt.Errorf("snapshot %q: %w", key, err)
	}
	return doc, nil
}

// Info describes the snapshot stored under key.
func (s *CurationStore) Info(ctx context.Context, key string) (SnapshotInfo, error) {
	env, err := s.read(ctx, key)
	if err != nil {
		return SnapshotInfo{}, err
	}
	return info(key, env)
}

// DeleteCuration removes the snapshot under key. Missing keys are not an
// error.
func (s *CurationStore) DeleteCuration(ctx context.Context, key string) error {
	k, err := dbKey(key)
	if err != nil {
		return err
	}
	return s.db.Update(ctx, func(txn *dgbadger.Txn) error {
		return txn.Delete(k)
	})
}

// List describes every stored snapshot, sorted by key.
func (s *CurationStore) List(ctx context.Context) ([]SnapshotInfo, error) {
	var out []SnapshotInfo
	err := s.db.View(ctx, func(txn *dgbadger.Txn) error {
		opts := dgbadger.DefaultIteratorOptions
		opts.Prefix = []byte(keyPrefix)
		it := txn.NewIterator(opts)
		defer it.Close()

		for it.Rewind(); it.Valid(); it.Next() {
			item := it.Item()
			key := strings.TrimPrefix(string(item.Key()), keyPrefix)
			var env envelope
			if err := item.Value(func(val []byte) error {
				return json.Unmarshal(val, &env)
			}); err != nil {
				return fmt.Errorf("snapshot %q: %w", key, err)
			}
			si, err := info(key, env)
			if err != nil {
				return err
			}
			out = append(out, si)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Key < out[j].Key })
	return out, nil
}

func (s *CurationStore) read(ctx context.Context, key string) (envelope, error) {
	k, err := dbKey(key)
	if err != nil {
		return envelope{}, err
	}
	var env envelope
	err = s.db.View(ctx, func(txn *dgbadger.Txn) error {
		item, err := txn.Get(k)
		if err != nil {
			return err
		}
		return item.Value(func(val []byte) error {
			return json.Unmarshal(val, &env)
		})
	})
	if errors.Is(err, dgbadger.ErrKeyNotFound) {
		return envelope{}, fmt.Errorf("%w: %q", ErrNotFound, key)
	}
	if err != nil {
		return envelope{}, fmt.Errorf("read snapshot %q: %w", key, err)
	}
	return env, nil
}

func info(key string, env envelope) (SnapshotInfo, error) {
	doc, err := ledger.DecodeDocument(bytes.NewReader(env.Document))
	if err != nil {
		return SnapshotInfo{}, fmt.Errorf("snapshot %q: %w", key, err)
	}
	return SnapshotInfo{
		Key:     key,
		SavedAt: env.SavedAt,
		Units:   len(doc.UnitIDs),
		Groups:  len(doc.MergeUnitGroups),
		Removed: len(doc.RemovedUnits),
	}, nil
}
