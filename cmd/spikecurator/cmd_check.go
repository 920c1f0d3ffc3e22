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
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/AleutianAI/spikecurator/services/curation/ledger"
	"github.com/AleutianAI/spikecurator/services/curation/views"
)

func newCheckCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "check <result.json> [curation.json]",
		Short: "Validate a result and, optionally, a curation document against it",
		Long: `check indexes the analyzer result and prints a summary. With a
curation document it also imports the document and reports every
inconsistency found, exiting non-zero when there is one.`,
		Args: cobra.RangeArgs(1, 2),
		RunE: func(cmd *cobra.Command, args []string) error {
			curation := ""
			if len(args) == 2 {
				curation = args[1]
			}
			return a.check(cmd.Context(), cmd.OutOrStdout(), args[0], curation)
		},
	}
}

func (a *app) check(ctx context.Context, out io.Writer, resultPath, curationPath string) error {
	store, err := a.openStore(ctx, resultPath)
	if err != nil {
		return err
	}
	sess, err := a.newSession(store, nil, "")
	if err != nil {
		return err
	}
	summary := views.NewSummary(sess, resultPath, true)
	if err := sess.AddView(summary); err != nil {
		return err
	}

	if curationPath != "" {
		f, err := os.Open(curationPath)
		if err != nil {
			return err
		}
		defer f.Close()
		doc, err := ledger.DecodeDocument(f)
		if err != nil {
			return fmt.Errorf("%s: %w", curationPath, err)
		}
		if err := sess.Import(nil, doc); err != nil {
			return fmt.Errorf("%s: %w", curationPath, err)
		}
	}

	p := a.printer(out)
	p.Title(resultPath)
	p.Info(fmt.Sprintf("%d spikes, %d units, %d segments, %g Hz",
		store.NumSpikes(), store.NumUnits(), store.NumSegments(), store.SamplingFrequency()))
	for _, line := range strings.Split(strings.TrimRight(summary.Render(), "\n"), "\n")[1:] {
		p.Info(line)
	}
	if curationPath != "" {
		p.Success(curationPath + " is consistent with " + resultPath)
	}
	return nil
}
