// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package session

import (
	"github.com/AleutianAI/spikecurator/services/curation/ledger"
	"github.com/AleutianAI/spikecurator/services/curation/unit"
	"github.com/AleutianAI/spikecurator/services/curation/views"
)

var _ views.State = (*Session)(nil)

// UnitInfo is one row of the unit table.
type UnitInfo struct {
	ID         unit.ID             `json:"unit_id"`
	State      string              `json:"state"`
	Visible    bool                `json:"visible"`
	Selected   bool                `json:"selected"`
	Color      string              `json:"color"`
	SpikeCount int                 `json:"spike_count"`
	Group      int                 `json:"merge_group"`
	Split      bool                `json:"split"`
	Labels     map[string][]string `json:"labels,omitempty"`
}

// Units returns one row per unit in store order. Group is -1 for units
// outside every merge group.
func (s *Session) Units() []UnitInfo {
	selected := make(map[unit.ID]bool)
	for _, id := range s.vis.SelectedUnitIDs() {
		selected[id] = true
	}
	ids := s.store.UnitIDs()
	out := make([]UnitInfo, len(ids))
	for i, id := range ids {
		g, ok := s.ledger.GroupOf(id)
		if !ok {
			g = -1
		}
		_, split := s.ledger.SplitOf(id)
		out[i] = UnitInfo{
			ID:         id,
			State:      s.ledger.State(id).String(),
			Visible:    s.vis.IsVisible(id),
			Selected:   selected[id],
			Color:      s.Color(id),
			SpikeCount: s.store.SpikeCount(id),
			Group:      g,
			Split:      split,
			Labels:     s.ledger.Labels(id),
		}
	}
	return out
}

func (s *Session) UnitIDs() []unit.ID          { return s.store.UnitIDs() }
func (s *Session) VisibleUnitIDs() []unit.ID   { return s.vis.VisibleUnitIDs() }
func (s *Session) SelectedSpikeIndices() []int { return s.vis.SelectedSpikeIndices() }
func (s *Session) SelectedUnitIDs() []unit.ID  { return s.vis.SelectedUnitIDs() }
func (s *Session) VisibleSpikeIndices() []int  { return s.vis.VisibleSpikeIndices() }
func (s *Session) MergeGroups() [][]unit.ID    { return s.ledger.MergeGroups() }
func (s *Session) Removed() []unit.ID          { return s.ledger.Removed() }
func (s *Session) SpikeCount(id unit.ID) int   { return s.store.SpikeCount(id) }

func (s *Session) UnitState(id unit.ID) ledger.State {
	return s.ledger.State(id)
}

func (s *Session) Labels(id unit.ID) map[string][]string {
	return s.ledger.Labels(id)
}

// Color returns the unit's override color, or its palette color.
func (s *Session) Color(id unit.ID) string {
	if c, ok := s.colors[id]; ok {
		return c
	}
	return s.store.Color(id)
}
