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

	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"

	"github.com/AleutianAI/spikecurator/services/curation/config"
	"github.com/AleutianAI/spikecurator/services/curation/session"
	"github.com/AleutianAI/spikecurator/services/curation/tui"
	"github.com/AleutianAI/spikecurator/services/curation/watch"
)

type tuiOptions struct {
	curationFile string
	snapshotKey  string
	settings     map[string]string
}

func newTUICmd(a *app) *cobra.Command {
	o := &tuiOptions{}
	cmd := &cobra.Command{
		Use:         "tui <result.json>",
		Short:       "Curate units in an interactive terminal table",
		Args:        cobra.ExactArgs(1),
		Annotations: map[string]string{annotationQuietConsole: "true"},
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.runTUI(cmd.Context(), args[0], o)
		},
	}
	f := cmd.Flags()
	f.StringVar(&o.curationFile, "curation-file", "", "curation JSON file to import now, re-import on change and write on exit")
	f.StringVar(&o.snapshotKey, "snapshot-key", session.DefaultSnapshotKey, "key used by the save key")
	f.StringToStringVar(&o.settings, "set", nil, "table setting, e.g. --set show_removed=false")
	return cmd
}

func (a *app) runTUI(ctx context.Context, resultPath string, o *tuiOptions) error {
	store, err := a.openStore(ctx, resultPath)
	if err != nil {
		return err
	}
	db, snapshots, err := a.openSnapshots()
	if err != nil {
		return err
	}
	defer db.Close()

	sess, err := a.newSession(store, snapshots, o.snapshotKey)
	if err != nil {
		return err
	}
	if err := sess.Registry().Register(tui.Kind()); err != nil {
		return err
	}
	spec := config.ViewSpec{Kind: tui.KindTable, Settings: parseSettings(o.settings)}
	v, err := sess.Registry().Build(spec, sess)
	if err != nil {
		return err
	}
	if err := sess.AddView(v); err != nil {
		return err
	}
	sess.Focus(v)

	var watcher *watch.CurationWatcher
	if o.curationFile != "" {
		watcher, err = watch.New(o.curationFile, sess, watch.WithLogger(a.logger.Slog()))
		if err != nil {
			return err
		}
		defer watcher.Stop()
		if _, err := watcher.Reload(); err != nil {
			return err
		}
		wctx, cancel := context.WithCancel(ctx)
		defer cancel()
		go watcher.Start(wctx)
	}

	if err := tui.Run(sess, v.(*tui.View), tea.WithAltScreen(), tea.WithContext(ctx)); err != nil {
		return err
	}
	if watcher != nil {
		return watcher.WriteCurrent()
	}
	return nil
}
