// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package views

import (
	"fmt"
	"strings"

	"github.com/AleutianAI/spikecurator/services/curation/ledger"
)

// KindSummary is the registry name of Summary.
const KindSummary = "summary"

// Counts is what a Summary shows.
type Counts struct {
	Units          int `json:"units"`
	Active         int `json:"active"`
	Merged         int `json:"merged"`
	Removed        int `json:"removed"`
	MergeGroups    int `json:"merge_groups"`
	Labelled       int `json:"labelled"`
	Visible        int `json:"visible"`
	SelectedSpikes int `json:"selected_spikes"`
	SelectedUnits  int `json:"selected_units"`
}

// Summary is a headless view holding aggregate counts of the session.
//
// It recomputes on visibility, selection and curation events and on
// Refresh. Labelled stays zero when label counting is off.
type Summary struct {
	id          string
	state       State
	title       string
	countLabels bool
	counts      Counts
	refreshes   int
}

// NewSummary creates a summary over state.
func NewSummary(state State, title string, countLabels bool) *Summary {
	return &Summary{
		id:          NewID(KindSummary),
		state:       state,
		title:       title,
		countLabels: countLabels,
	}
}

// ViewID implements bus.View.
func (s *Summary) ViewID() string { return s.id }

// Counts returns the counts as of the last refresh.
func (s *Summary) Counts() Counts { return s.counts }

// Refreshes returns how many times the counts were recomputed.
func (s *Summary) Refreshes() int { return s.refreshes }

func (s *Summary) OnUnitVisibilityChanged() { s.Refresh() }
func (s *Summary) OnSpikeSelectionChanged() { s.Refresh() }
func (s *Summary) OnManualCurationUpdated() { s.Refresh() }

// Refresh recomputes the counts from the session state.
func (s *Summary) Refresh() {
	s.refreshes++
	ids := s.state.UnitIDs()
	c := Counts{
		Units:          len(ids),
		MergeGroups:    len(s.state.MergeGroups()),
		Visible:        len(s.state.VisibleUnitIDs()),
		SelectedSpikes: len(s.state.SelectedSpikeIndices()),
		SelectedUnits:  len(s.state.SelectedUnitIDs()),
	}
	for _, id := range ids {
		switch s.state.UnitState(id) {
		case ledger.Merged:
			c.Merged++
		case ledger.Removed:
			c.Removed++
		default:
			c.Active++
		}
		if s.countLabels && len(s.state.Labels(id)) > 0 {
			c.Labelled++
		}
	}
	s.counts = c
}

// Render formats the counts as text lines under the title.
func (s *Summary) Render() string {
	c := s.counts
	var b strings.Builder
	fmt.Fprintf(&b, "%s\n", s.title)
	fmt.Fprintf(&b, "  units     %d (active %d, merged %d, removed %d)\n", c.Units, c.Active, c.Merged, c.Removed)
	fmt.Fprintf(&b, "  groups    %d\n", c.MergeGroups)
	if s.countLabels {
		fmt.Fprintf(&b, "  labelled  %d\n", c.Labelled)
	}
	fmt.Fprintf(&b, "  visible   %d\n", c.Visible)
	fmt.Fprintf(&b, "  selected  %d spikes in %d units\n", c.SelectedSpikes, c.SelectedUnits)
	return b.String()
}
