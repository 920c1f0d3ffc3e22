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
	"context"
	"fmt"
	"strconv"

	"github.com/AleutianAI/spikecurator/pkg/validation"
	"github.com/AleutianAI/spikecurator/services/curation/analyzer"
	"github.com/AleutianAI/spikecurator/services/curation/session"
	"github.com/AleutianAI/spikecurator/services/curation/spikeindex"
	"github.com/AleutianAI/spikecurator/services/curation/storage"
	"github.com/AleutianAI/spikecurator/services/curation/storage/badger"
)

// openStore loads an analyzer result and indexes it with the configured
// subsample.
func (a *app) openStore(ctx context.Context, resultPath string) (*spikeindex.Store, error) {
	res, err := analyzer.Load(resultPath)
	if err != nil {
		return nil, err
	}
	rs := a.cfg.RandomSubsample
	store, err := spikeindex.BuildContext(ctx, res.Spikes(), res.UnitIDs, len(res.Segments),
		spikeindex.WithSamplingFrequency(res.SamplingFrequency),
		spikeindex.WithRandomSubsample(rs.MaxPerUnit, rs.Seed),
		spikeindex.WithLogger(a.logger.Slog()),
	)
	if err != nil {
		return nil, fmt.Errorf("index %s: %w", resultPath, err)
	}
	a.logger.Info("spike index built",
		"result", resultPath,
		"spikes", store.NumSpikes(),
		"units", store.NumUnits(),
		"segments", store.NumSegments(),
	)
	return store, nil
}

// openSnapshots opens the configured snapshot database.
func (a *app) openSnapshots() (*badger.DB, *storage.CurationStore, error) {
	bcfg := badger.InMemoryConfig()
	if !a.cfg.Storage.InMemory {
		bcfg = badger.DefaultConfig(a.cfg.Storage.Path)
	}
	bcfg.Logger = a.logger.Slog()
	db, err := badger.Open(bcfg)
	if err != nil {
		return nil, nil, err
	}
	return db, storage.NewCurationStore(db, storage.WithLogger(a.logger.Slog())), nil
}

// newSession builds a session over store that saves to snapshots under
// key, and starts the configured views.
func (a *app) newSession(store *spikeindex.Store, snapshots session.SnapshotStore, key string) (*session.Session, error) {
	opts := []session.Option{session.WithLogger(a.logger.Slog())}
	if snapshots != nil {
		if err := validation.ValidateKey(key); err != nil {
			return nil, fmt.Errorf("snapshot key: %w", err)
		}
		opts = append(opts, session.WithSnapshotStore(snapshots, key))
	}
	sess, err := session.FromConfig(store, a.cfg, opts...)
	if err != nil {
		return nil, err
	}
	if _, err := sess.StartViews(a.cfg.Views); err != nil {
		return nil, err
	}
	return sess, nil
}

// parseSettings converts --set values to int, bool, float or string,
// in that order of preference.
func parseSettings(raw map[string]string) map[string]any {
	if len(raw) == 0 {
		return nil
	}
	out := make(map[string]any, len(raw))
	for k, v := range raw {
		if i, err := strconv.Atoi(v); err == nil {
			out[k] = i
		} else if b, err := strconv.ParseBool(v); err == nil {
			out[k] = b
		} else if f, err := strconv.ParseFloat(v, 64); err == nil {
			out[k] = f
		} else {
			out[k] = v
		}
	}
	return out
}
