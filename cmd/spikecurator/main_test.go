// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package main

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/AleutianAI/spikecurator/services/curation/ledger"
	"github.com/AleutianAI/spikecurator/services/curation/storage"
	"github.com/AleutianAI/spikecurator/services/curation/storage/badger"
	"github.com/AleutianAI/spikecurator/services/curation/unit"
)

const testResult = `{
  "sampling_frequency": 30000,
  "unit_ids": [1, 2, 3],
  "segments": [
    {"sample_index": [5, 1, 9, 3], "unit_index": [0, 1, 2, 0], "channel_index": [0, 0, 1, 1]}
  ]
}`

func writeFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func run(t *testing.T, args ...string) (string, error) {
	t.Helper()
	cmd := newRootCmd()
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	cmd.SetArgs(args)
	err := cmd.Execute()
	return out.String(), err
}

func TestCheck(t *testing.T) {
	dir := t.TempDir()
	result := writeFile(t, dir, "result.json", testResult)

	t.Run("result only", func(t *testing.T) {
		out, err := run(t, "check", result, "--log-level", "error")
		require.NoError(t, err)
		assert.NotContains(t, out, "OK:")
		assert.Contains(t, out, "4 spikes, 3 units, 1 segments, 30000 Hz")
		assert.Contains(t, out, "units     3 (active 3, merged 0, removed 0)")
	})

	t.Run("with curation", func(t *testing.T) {
		doc := writeFile(t, dir, "curation.json",
			`{"unit_ids":[1,2,3],"merge_unit_groups":[[1,2]],"removed_units":[3]}`)
		out, err := run(t, "check", result, doc, "--log-level", "error")
		require.NoError(t, err)
		assert.Contains(t, out, "units     3 (active 0, merged 2, removed 1)")
		assert.Contains(t, out, "groups    1")
		assert.Contains(t, out, "OK: "+doc+" is consistent")
	})

	t.Run("inconsistent curation", func(t *testing.T) {
		doc := writeFile(t, dir, "bad.json", `{"unit_ids":[1,2,4]}`)
		_, err := run(t, "check", result, doc, "--log-level", "error")
		assert.ErrorIs(t, err, ledger.ErrInvalidDocument)
	})

	t.Run("missing result", func(t *testing.T) {
		_, err := run(t, "check", filepath.Join(dir, "nope.json"))
		assert.Error(t, err)
	})
}

func TestUnknownConfigKey(t *testing.T) {
	dir := t.TempDir()
	result := writeFile(t, dir, "result.json", testResult)
	cfg := writeFile(t, dir, "cfg.yaml", "max_visibel_units: 3\n")
	_, err := run(t, "--config", cfg, "check", result)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "max_visibel_units")
}

func TestExport(t *testing.T) {
	dir := t.TempDir()
	dbPath := filepath.Join(dir, "snapshots")
	cfg := writeFile(t, dir, "cfg.yaml", "storage:\n  in_memory: false\n  path: "+dbPath+"\n")

	db, err := badger.Open(badger.DefaultConfig(dbPath))
	require.NoError(t, err)
	store := storage.NewCurationStore(db)
	l := ledger.New(unit.Ints(1, 2), nil)
	require.True(t, l.Delete(unit.Ints(2)))
	require.NoError(t, store.SaveCuration(context.Background(), "mine", l.Export()))
	require.NoError(t, db.Close())

	out, err := run(t, "--config", cfg, "--log-level", "error", "export", "--key", "mine")
	require.NoError(t, err)
	doc, err := ledger.DecodeDocument(bytes.NewBufferString(out))
	require.NoError(t, err)
	assert.Equal(t, unit.Ints(2), doc.RemovedUnits)

	target := filepath.Join(dir, "out.json")
	_, err = run(t, "--config", cfg, "--log-level", "error", "export", "--key", "mine", "-o", target)
	require.NoError(t, err)
	assert.FileExists(t, target)

	out, err = run(t, "--config", cfg, "--log-level", "error", "export", "--list")
	require.NoError(t, err)
	assert.Contains(t, out, `"key": "mine"`)

	_, err = run(t, "--config", cfg, "--log-level", "error", "export", "--key", "other")
	assert.ErrorIs(t, err, storage.ErrNotFound)
}

func TestExport_InMemoryRefused(t *testing.T) {
	_, err := run(t, "export")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "in memory")
}

func TestParseSettings(t *testing.T) {
	got := parseSettings(map[string]string{
		"buffer": "8", "show_removed": "false", "scale": "1.5", "title": "units",
	})
	assert.Equal(t, map[string]any{
		"buffer": 8, "show_removed": false, "scale": 1.5, "title": "units",
	}, got)
	assert.Nil(t, parseSettings(nil))
}
