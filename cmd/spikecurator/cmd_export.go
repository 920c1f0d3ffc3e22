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
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/AleutianAI/spikecurator/services/curation/ledger"
	"github.com/AleutianAI/spikecurator/services/curation/session"
)

type exportOptions struct {
	key  string
	out  string
	list bool
}

func newExportCmd(a *app) *cobra.Command {
	o := &exportOptions{}
	cmd := &cobra.Command{
		Use:   "export",
		Short: "Write a saved curation snapshot as a curation document",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.export(cmd.Context(), cmd.OutOrStdout(), o)
		},
	}
	f := cmd.Flags()
	f.StringVar(&o.key, "key", session.DefaultSnapshotKey, "snapshot key")
	f.StringVarP(&o.out, "out", "o", "", "output file (default stdout)")
	f.BoolVar(&o.list, "list", false, "list stored snapshots instead")
	return cmd
}

func (a *app) export(ctx context.Context, stdout io.Writer, o *exportOptions) error {
	if a.cfg.Storage.InMemory {
		return fmt.Errorf("export needs storage.path; the configured snapshot store is in memory")
	}
	db, snapshots, err := a.openSnapshots()
	if err != nil {
		return err
	}
	defer db.Close()

	if o.list {
		infos, err := snapshots.List(ctx)
		if err != nil {
			return err
		}
		enc := json.NewEncoder(stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(infos)
	}

	doc, err := snapshots.LoadCuration(ctx, o.key)
	if err != nil {
		return err
	}
	if o.out == "" {
		return ledger.EncodeDocument(stdout, doc)
	}
	f, err := os.Create(o.out)
	if err != nil {
		return err
	}
	if err := ledger.EncodeDocument(f, doc); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}
