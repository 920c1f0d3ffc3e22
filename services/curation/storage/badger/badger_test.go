// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package badger

import (
	"context"
	"testing"
	"time"

	"github.com/dgraph-io/badger/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func put(t *testing.T, d *DB, k, v string) {
	t.Helper()
	require.NoError(t, d.Update(context.Background(), func(txn *badger.Txn) error {
		return txn.Set([]byte(k), []byte(v))
	}))
}

func get(t *testing.T, d *DB, k string) string {
	t.Helper()
	var out string
	require.NoError(t, d.View(context.Background(), func(txn *badger.Txn) error {
		item, err := txn.Get([]byte(k))
		if err != nil {
			return err
		}
		val, err := item.ValueCopy(nil)
		out = string(val)
		return err
	}))
	return out
}

func TestOpen_InMemory(t *testing.T) {
	d, err := Open(InMemoryConfig())
	require.NoError(t, err)
	defer d.Close()

	assert.True(t, d.InMemory())
	assert.Empty(t, d.Path())
	put(t, d, "k", "v")
	assert.Equal(t, "v", get(t, d, "k"))
}

func TestOpen_PersistsAcrossReopen(t *testing.T) {
	dir := t.TempDir()
	cfg := DefaultConfig(dir)
	cfg.GCInterval = time.Hour

	d, err := Open(cfg)
	require.NoError(t, err)
	put(t, d, "curation/a", "doc")
	require.NoError(t, d.Close())
	require.NoError(t, d.Close(), "second close is a no-op")

	d, err = Open(cfg)
	require.NoError(t, err)
	defer d.Close()
	assert.Equal(t, dir, d.Path())
	assert.Equal(t, "doc", get(t, d, "curation/a"))
}

func TestOpen_RequiresPath(t *testing.T) {
	_, err := Open(Config{})
	assert.ErrorContains(t, err, "path is required")
}

func TestCancelledContext(t *testing.T) {
	d, err := Open(InMemoryConfig())
	require.NoError(t, err)
	defer d.Close()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	called := false
	err = d.Update(ctx, func(*badger.Txn) error { called = true; return nil })
	assert.ErrorIs(t, err, context.Canceled)
	err = d.View(ctx, func(*badger.Txn) error { called = true; return nil })
	assert.ErrorIs(t, err, context.Canceled)
	assert.False(t, called)
}
