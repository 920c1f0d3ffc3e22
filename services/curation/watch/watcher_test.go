// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package watch

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/AleutianAI/spikecurator/services/curation/bus"
	"github.com/AleutianAI/spikecurator/services/curation/ledger"
	"github.com/AleutianAI/spikecurator/services/curation/session"
	"github.com/AleutianAI/spikecurator/services/curation/spikeindex"
	"github.com/AleutianAI/spikecurator/services/curation/unit"
	"github.com/AleutianAI/spikecurator/services/curation/views"
)

func newTestSession(t *testing.T) *session.Session {
	t.Helper()
	spikes := []spikeindex.Spike{
		{SampleIndex: 0, UnitIndex: 0},
		{SampleIndex: 1, UnitIndex: 1},
		{SampleIndex: 2, UnitIndex: 2},
	}
	store, err := spikeindex.Build(spikes, unit.Ints(1, 2, 3), 1)
	require.NoError(t, err)
	sess, err := session.New(store)
	require.NoError(t, err)
	return sess
}

const mergedDoc = `{"unit_ids":[1,2,3],"merge_unit_groups":[[1,2]]}`

func TestReload(t *testing.T) {
	sess := newTestSession(t)
	rec := views.NewRecorder(0)
	require.NoError(t, sess.Start(rec))
	rec.Reset()

	path := filepath.Join(t.TempDir(), "curation.json")
	w, err := New(path, sess)
	require.NoError(t, err)
	defer w.Stop()

	result, err := w.Reload()
	require.NoError(t, err)
	assert.Equal(t, ResultMissing, result)

	require.NoError(t, os.WriteFile(path, []byte(mergedDoc), 0o644))
	result, err = w.Reload()
	require.NoError(t, err)
	assert.Equal(t, ResultImported, result)
	sess.Do(func(s *session.Session) {
		assert.Equal(t, [][]unit.ID{unit.Ints(1, 2)}, s.MergeGroups())
	})
	assert.Equal(t, 1, rec.Count(bus.ManualCurationUpdated))

	result, err = w.Reload()
	require.NoError(t, err)
	assert.Equal(t, ResultUnchanged, result)
	assert.Equal(t, 1, rec.Count(bus.ManualCurationUpdated), "unchanged file is not imported again")

	require.NoError(t, os.WriteFile(path, []byte(`{"unit_ids":[7]}`), 0o644))
	result, err = w.Reload()
	assert.Equal(t, ResultInvalid, result)
	assert.ErrorIs(t, err, ledger.ErrInvalidDocument)
	sess.Do(func(s *session.Session) {
		assert.Len(t, s.MergeGroups(), 1, "rejected file leaves session unchanged")
	})

	require.NoError(t, os.WriteFile(path, []byte(`not json`), 0o644))
	result, err = w.Reload()
	assert.Equal(t, ResultInvalid, result)
	assert.Error(t, err)
}

func TestWriteCurrent(t *testing.T) {
	sess := newTestSession(t)
	sess.Do(func(s *session.Session) { s.Delete(nil, unit.Ints(3)) })

	path := filepath.Join(t.TempDir(), "curation.json")
	w, err := New(path, sess)
	require.NoError(t, err)
	defer w.Stop()

	require.NoError(t, w.WriteCurrent())
	f, err := os.Open(path)
	require.NoError(t, err)
	defer f.Close()
	doc, err := ledger.DecodeDocument(f)
	require.NoError(t, err)
	assert.Equal(t, unit.Ints(3), doc.RemovedUnits)

	result, err := w.Reload()
	require.NoError(t, err)
	assert.Equal(t, ResultUnchanged, result, "own write is not re-imported")
}

func TestStart_ImportsOnChange(t *testing.T) {
	sess := newTestSession(t)
	path := filepath.Join(t.TempDir(), "curation.json")

	results := make(chan string, 16)
	w, err := New(path, sess,
		WithDebounce(20*time.Millisecond),
		WithReloadHook(func(result string, _ error) { results <- result }),
	)
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	stopped := make(chan struct{})
	go func() {
		defer close(stopped)
		w.Start(ctx)
	}()

	// unrelated files in the directory are ignored
	require.NoError(t, os.WriteFile(filepath.Join(filepath.Dir(path), "other.json"), []byte("{}"), 0o644))
	require.NoError(t, os.WriteFile(path, []byte(mergedDoc), 0o644))

	select {
	case r := <-results:
		assert.Equal(t, ResultImported, r)
	case <-time.After(5 * time.Second):
		t.Fatal("no reload after write")
	}
	sess.Do(func(s *session.Session) {
		assert.Equal(t, [][]unit.ID{unit.Ints(1, 2)}, s.MergeGroups())
	})

	require.NoError(t, w.Stop())
	require.NoError(t, w.Stop())
	select {
	case <-stopped:
	case <-time.After(5 * time.Second):
		t.Fatal("watcher did not stop")
	}
}

func TestNew_MissingDirectory(t *testing.T) {
	_, err := New(filepath.Join(t.TempDir(), "nope", "curation.json"), newTestSession(t))
	assert.Error(t, err)
}
