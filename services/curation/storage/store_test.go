// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package storage

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/AleutianAI/spikecurator/services/curation/ledger"
	"github.com/AleutianAI/spikecurator/services/curation/session"
	"github.com/AleutianAI/spikecurator/services/curation/spikeindex"
	"github.com/AleutianAI/spikecurator/services/curation/storage/badger"
	"github.com/AleutianAI/spikecurator/services/curation/unit"
)

var _ session.SnapshotStore = (*CurationStore)(nil)

func openStore(t *testing.T, opts ...Option) *CurationStore {
	t.Helper()
	db, err := badger.Open(badger.InMemoryConfig())
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return NewCurationStore(db, opts...)
}

func curated() ledger.Document {
	l := ledger.New(unit.Ints(1, 2, 3, 4), nil)
	l.Merge(unit.Ints(1, 2))
	l.Delete(unit.Ints(4))
	return l.Export()
}

func TestSaveLoad(t *testing.T) {
	ctx := context.Background()
	s := openStore(t)
	doc := curated()

	require.NoError(t, s.SaveCuration(ctx, "rec-1", doc))
	got, err := s.LoadCuration(ctx, "rec-1")
	require.NoError(t, err)
	assert.Equal(t, doc, got)

	_, err = s.LoadCuration(ctx, "rec-2")
	assert.True(t, errors.Is(err, ErrNotFound))
	assert.Contains(t, err.Error(), "rec-2")

	assert.True(t, errors.Is(s.SaveCuration(ctx, "", doc), ErrInvalidKey))
	assert.True(t, errors.Is(s.SaveCuration(ctx, "../escape", doc), ErrInvalidKey))
}

func TestSave_Overwrites(t *testing.T) {
	ctx := context.Background()
	s := openStore(t)
	require.NoError(t, s.SaveCuration(ctx, "k", curated()))

	empty := ledger.New(unit.Ints(1, 2, 3, 4), nil).Export()
	require.NoError(t, s.SaveCuration(ctx, "k", empty))
	got, err := s.LoadCuration(ctx, "k")
	require.NoError(t, err)
	assert.Empty(t, got.MergeUnitGroups)
}

func TestInfoListDelete(t *testing.T) {
	ctx := context.Background()
	at := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	s := openStore(t, WithClock(func() time.Time { return at }))

	require.NoError(t, s.SaveCuration(ctx, "b", curated()))
	require.NoError(t, s.SaveCuration(ctx, "a", ledger.New(unit.Ints(1), nil).Export()))

	info, err := s.Info(ctx, "b")
	require.NoError(t, err)
	assert.True(t, info.SavedAt.Equal(at))
	info.SavedAt = time.Time{}
	assert.Equal(t, SnapshotInfo{Key: "b", Units: 4, Groups: 1, Removed: 1}, info)

	list, err := s.List(ctx)
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.Equal(t, "a", list[0].Key)
	assert.Equal(t, "b", list[1].Key)

	require.NoError(t, s.DeleteCuration(ctx, "a"))
	require.NoError(t, s.DeleteCuration(ctx, "never-saved"))
	list, err = s.List(ctx)
	require.NoError(t, err)
	assert.Len(t, list, 1)

	_, err = s.Info(ctx, "a")
	assert.True(t, errors.Is(err, ErrNotFound))
}

func TestSessionRoundTrip(t *testing.T) {
	ctx := context.Background()
	s := openStore(t)

	spikes := []spikeindex.Spike{
		{SampleIndex: 1, UnitIndex: 0},
		{SampleIndex: 2, UnitIndex: 1},
		{SampleIndex: 3, UnitIndex: 2},
	}
	build := func() *session.Session {
		store, err := spikeindex.Build(spikes, unit.Ints(10, 20, 30), 1)
		require.NoError(t, err)
		sess, err := session.New(store, session.WithSnapshotStore(s, "custom"))
		require.NoError(t, err)
		return sess
	}

	first := build()
	require.True(t, first.Merge(nil, unit.Ints(20, 30)))
	require.NoError(t, first.Save(ctx))

	second := build()
	require.NoError(t, second.Load(ctx, nil))
	assert.Equal(t, first.Export(), second.Export())
}
