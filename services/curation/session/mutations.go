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
	"fmt"
	"slices"

	"github.com/go-playground/validator/v10"

	"github.com/AleutianAI/spikecurator/services/curation/bus"
	"github.com/AleutianAI/spikecurator/services/curation/ledger"
	"github.com/AleutianAI/spikecurator/services/curation/unit"
)

var colorValidate = validator.New()

// TimeWindow is the time range views show, in seconds within one segment.
type TimeWindow struct {
	Segment int     `json:"segment"`
	Start   float64 `json:"start"`
	End     float64 `json:"end"`
}

// afterVisibility emits the visibility change and, when the controller
// dropped a non-empty selection, the selection change.
func (s *Session) afterVisibility(origin bus.View, hadSelection bool) {
	s.bus.Emit(bus.UnitVisibilityChanged, origin)
	if hadSelection {
		s.bus.Emit(bus.SpikeSelectionChanged, origin)
	}
}

// SetVisible replaces the visible units and notifies. Returns how many
// units are visible afterwards.
func (s *Session) SetVisible(origin bus.View, ids []unit.ID) int {
	had := len(s.vis.SelectedSpikeIndices()) > 0
	n := s.vis.SetVisible(ids)
	s.afterVisibility(origin, had)
	return n
}

// ToggleUnit shows or hides one unit. A refused toggle emits only the
// selection change, and only when a selection was dropped.
func (s *Session) ToggleUnit(origin bus.View, id unit.ID, visible bool) bool {
	had := len(s.vis.SelectedSpikeIndices()) > 0
	if !s.vis.Toggle(id, visible) {
		if had {
			s.bus.Emit(bus.SpikeSelectionChanged, origin)
		}
		return false
	}
	s.afterVisibility(origin, had)
	return true
}

// HideAll hides every unit.
func (s *Session) HideAll(origin bus.View) {
	had := len(s.vis.SelectedSpikeIndices()) > 0
	s.vis.SetAllOff()
	s.afterVisibility(origin, had)
}

// ShowOnly makes exactly the units of one merge group, or one unit,
// visible. Used by list views to jump to a unit.
func (s *Session) ShowOnly(origin bus.View, id unit.ID) int {
	if g, ok := s.ledger.GroupOf(id); ok {
		return s.SetVisible(origin, s.ledger.MergeGroups()[g])
	}
	return s.SetVisible(origin, []unit.ID{id})
}

// SetSelected replaces the spike selection. Out-of-range indices are
// dropped. Returns the resulting selection size.
func (s *Session) SetSelected(origin bus.View, indices []int) int {
	n := s.vis.SetSelected(indices)
	s.bus.Emit(bus.SpikeSelectionChanged, origin)
	return n
}

// ClearSelection empties the spike selection.
func (s *Session) ClearSelection(origin bus.View) {
	s.vis.ClearSelection()
	s.bus.Emit(bus.SpikeSelectionChanged, origin)
}

// curated emits ManualCurationUpdated when ok and passes ok through.
func (s *Session) curated(origin bus.View, ok bool) bool {
	if ok {
		s.bus.Emit(bus.ManualCurationUpdated, origin)
	}
	return ok
}

// Merge merges ids. See ledger.Ledger.Merge.
func (s *Session) Merge(origin bus.View, ids []unit.ID) bool {
	return s.curated(origin, s.ledger.Merge(ids))
}

// Unmerge removes merge groups by index.
func (s *Session) Unmerge(origin bus.View, groupIndex ...int) bool {
	return s.curated(origin, s.ledger.Unmerge(groupIndex...))
}

// Delete marks ids as removed.
func (s *Session) Delete(origin bus.View, ids []unit.ID) bool {
	return s.curated(origin, s.ledger.Delete(ids))
}

// Restore takes ids out of the removed set.
func (s *Session) Restore(origin bus.View, ids []unit.ID) bool {
	return s.curated(origin, s.ledger.Restore(ids))
}

// Split records a two-way split of one unit.
//
// Description:
//
//	indices are positions within the unit's spike train. Every index must
//	be in [0, SpikeCount) and the indices must leave at least one spike
//	for the second part.
//
// Outputs:
//
//	bool - False when the ledger refuses (unknown, removed or merged unit,
//	  empty partition).
//	error - ErrInvalidSplit for out-of-range indices or a partition that
//	  takes every spike.
func (s *Session) Split(origin bus.View, id unit.ID, indices []int) (bool, error) {
	if err := s.checkSplit(id, indices); err != nil {
		return false, err
	}
	return s.curated(origin, s.ledger.Split(id, indices)), nil
}

// Unsplit discards the split of one unit.
func (s *Session) Unsplit(origin bus.View, id unit.ID) bool {
	return s.curated(origin, s.ledger.Unsplit(id))
}

func (s *Session) checkSplit(id unit.ID, indices []int) error {
	if !s.store.HasUnit(id) {
		return nil
	}
	n := s.store.SpikeCount(id)
	seen := make([]bool, n)
	distinct := 0
	for _, i := range indices {
		if i < 0 || i >= n {
			return fmt.Errorf("%w: unit %s index %d outside [0, %d)", ErrInvalidSplit, id, i, n)
		}
		if !seen[i] {
			seen[i] = true
			distinct++
		}
	}
	if n > 0 && distinct == n {
		return fmt.Errorf("%w: unit %s split takes all %d spikes", ErrInvalidSplit, id, n)
	}
	return nil
}

// SetLabel sets or, with a nil value, clears one label.
func (s *Session) SetLabel(origin bus.View, id unit.ID, category string, value *string) error {
	if err := s.ledger.SetLabel(id, category, value); err != nil {
		return err
	}
	s.bus.Emit(bus.ManualCurationUpdated, origin)
	return nil
}

// Import replaces the curation state with doc.
//
// Description:
//
//	Split indices are range-checked against the spike index first, then
//	the ledger validates the document. On any error nothing changes and
//	nothing is emitted.
func (s *Session) Import(origin bus.View, doc ledger.Document) error {
	for _, sp := range doc.Splits {
		if len(sp.Indices) == 0 {
			continue
		}
		if err := s.checkSplit(sp.UnitID, sp.Indices[0]); err != nil {
			return fmt.Errorf("%w: %w", ledger.ErrInvalidDocument, err)
		}
	}
	if err := s.ledger.Import(doc); err != nil {
		return err
	}
	s.bus.Emit(bus.ManualCurationUpdated, origin)
	return nil
}

// Export returns the curation document.
func (s *Session) Export() ledger.Document { return s.ledger.Export() }

// SetVisibleChannels replaces the visible channel set. Negative channels
// are dropped.
func (s *Session) SetVisibleChannels(origin bus.View, channels []int) {
	out := make([]int, 0, len(channels))
	for _, c := range channels {
		if c >= 0 {
			out = append(out, c)
		}
	}
	slices.Sort(out)
	s.channels = slices.Compact(out)
	s.bus.Emit(bus.ChannelVisibilityChanged, origin)
}

// VisibleChannels returns the visible channels, sorted. Nil means no
// channel filter.
func (s *Session) VisibleChannels() []int { return slices.Clone(s.channels) }

// SetUnitColor overrides the palette color of one unit. An empty color
// restores the palette color.
func (s *Session) SetUnitColor(origin bus.View, id unit.ID, color string) error {
	if !s.store.HasUnit(id) {
		return fmt.Errorf("%w: %s", ledger.ErrUnknownUnit, id)
	}
	if color == "" {
		delete(s.colors, id)
	} else {
		if err := colorValidate.Var(color, "hexcolor"); err != nil {
			return fmt.Errorf("%w: %q", ErrInvalidColor, color)
		}
		s.colors[id] = color
	}
	s.bus.Emit(bus.UnitColorChanged, origin)
	return nil
}

// SetUseTimes switches views between sample and time axes.
func (s *Session) SetUseTimes(origin bus.View, useTimes bool) {
	if s.useTimes == useTimes {
		return
	}
	s.useTimes = useTimes
	s.bus.Emit(bus.UseTimesUpdated, origin)
}

// UseTimes reports whether views show time rather than samples.
func (s *Session) UseTimes() bool { return s.useTimes }

// SetTimeWindow moves the shown time window.
func (s *Session) SetTimeWindow(origin bus.View, w TimeWindow) error {
	if w.Segment < 0 || w.Segment >= s.store.NumSegments() {
		return fmt.Errorf("%w: segment %d outside [0, %d)", ErrInvalidTimeWindow, w.Segment, s.store.NumSegments())
	}
	if !(w.Start < w.End) {
		return fmt.Errorf("%w: start %g not before end %g", ErrInvalidTimeWindow, w.Start, w.End)
	}
	s.timeWindow = w
	s.bus.Emit(bus.TimeInfoUpdated, origin)
	return nil
}

// TimeWindow returns the shown time window.
func (s *Session) TimeWindow() TimeWindow { return s.timeWindow }
