// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package ledger

import (
	"log/slog"
	"sort"

	"github.com/AleutianAI/spikecurator/services/curation/unit"
)

// State is the curation state of one unit.
type State int

const (
	// Active units are neither merged nor removed.
	Active State = iota

	// Merged units belong to a merge group.
	Merged

	// Removed units were deleted.
	Removed
)

// String returns the lowercase state name.
func (s State) String() string {
	switch s {
	case Active:
		return "active"
	case Merged:
		return "merged"
	case Removed:
		return "removed"
	}
	return "unknown"
}

// Split records one active split of a unit.
//
// Indices[0] lists, sorted and without duplicates, the positions of the
// first part relative to the unit's own spike train. The second part is the
// complement.
type Split struct {
	UnitID  unit.ID `json:"unit_id"`
	Indices [][]int `json:"indices" validate:"len=1,dive,min=1,sortedset,dive,min=0"`
}

// Ledger holds the curation state over a fixed unit set.
type Ledger struct {
	unitIDs []unit.ID
	index   map[unit.ID]int
	defs    map[string]LabelDefinition

	groups [][]int // member unit indices, first-seen order
	member []int   // group index per unit, -1 when not merged

	removed    []bool
	numRemoved int

	splits map[int][]int
	labels []map[string][]string

	logger *slog.Logger
}

// Option configures a Ledger.
type Option func(*Ledger)

// WithLogger sets the logger for refused requests.
func WithLogger(logger *slog.Logger) Option {
	return func(l *Ledger) { l.logger = logger }
}

// New creates an empty ledger over unitIDs.
//
// Inputs:
//
//	unitIDs - The units, in dense index order. Expected to be unique.
//	defs - Label definitions by category. nil selects DefaultLabelDefinitions.
//
// Outputs:
//
//	*Ledger - A ledger with no merges, splits, removals or labels.
func New(unitIDs []unit.ID, defs map[string]LabelDefinition, opts ...Option) *Ledger {
	if defs == nil {
		defs = DefaultLabelDefinitions()
	}
	l := &Ledger{
		unitIDs: append([]unit.ID(nil), unitIDs...),
		index:   make(map[unit.ID]int, len(unitIDs)),
		defs:    copyDefinitions(defs),
		logger:  slog.Default(),
	}
	for i, id := range unitIDs {
		l.index[id] = i
	}
	for _, opt := range opts {
		opt(l)
	}
	l.reset()
	return l
}

func (l *Ledger) reset() {
	n := len(l.unitIDs)
	l.groups = nil
	l.member = make([]int, n)
	for i := range l.member {
		l.member[i] = -1
	}
	l.removed = make([]bool, n)
	l.numRemoved = 0
	l.splits = make(map[int][]int)
	l.labels = make([]map[string][]string, n)
}

// UnitIDs returns a copy of the units in dense index order.
func (l *Ledger) UnitIDs() []unit.ID {
	return append([]unit.ID(nil), l.unitIDs...)
}

// HasUnit reports whether id is known.
func (l *Ledger) HasUnit(id unit.ID) bool {
	_, ok := l.index[id]
	return ok
}

// Merge joins units into one merge group.
//
// Description:
//
//	Refused (false, no change) when fewer than two distinct ids are given,
//	when any id is unknown or when any id is removed. Otherwise every
//	existing group sharing a member with ids is absorbed into the new
//	group, which is appended after the untouched groups. When all ids
//	already sit in one group the call is accepted and changes nothing.
//
// Outputs:
//
//	bool - Whether the merge was accepted.
func (l *Ledger) Merge(ids []unit.ID) bool {
	us, ok := l.resolve(ids)
	if !ok {
		l.refuse("merge", "unknown unit", ids)
		return false
	}
	us = distinct(us)
	if len(us) < 2 {
		l.refuse("merge", "fewer than two distinct units", ids)
		return false
	}
	for _, u := range us {
		if l.removed[u] {
			l.refuse("merge", "unit is removed", ids)
			return false
		}
	}

	if g := l.member[us[0]]; g >= 0 {
		same := true
		for _, u := range us[1:] {
			if l.member[u] != g {
				same = false
				break
			}
		}
		if same {
			l.recordOp("merge", true)
			return true
		}
	}

	absorbed := make(map[int]bool)
	seen := make(map[int]bool)
	var merged []int
	for _, u := range us {
		g := l.member[u]
		if g < 0 {
			if !seen[u] {
				seen[u] = true
				merged = append(merged, u)
			}
			continue
		}
		if absorbed[g] {
			continue
		}
		absorbed[g] = true
		for _, m := range l.groups[g] {
			if !seen[m] {
				seen[m] = true
				merged = append(merged, m)
			}
		}
	}

	kept := make([][]int, 0, len(l.groups)-len(absorbed)+1)
	for gi, g := range l.groups {
		if !absorbed[gi] {
			kept = append(kept, g)
		}
	}
	l.groups = append(kept, merged)
	l.reindexGroups()
	l.recordOp("merge", true)
	return true
}

// Unmerge deletes whole merge groups by index.
//
// Refused (false, no change) when no index is given or any index is out of
// range. Repeated indices are tolerated.
func (l *Ledger) Unmerge(groupIndex ...int) bool {
	if len(groupIndex) == 0 {
		l.logger.Debug("unmerge refused", slog.String("reason", "no group index"))
		l.recordOp("unmerge", false)
		return false
	}
	drop := make(map[int]bool, len(groupIndex))
	for _, gi := range groupIndex {
		if gi < 0 || gi >= len(l.groups) {
			l.logger.Debug("unmerge refused",
				slog.String("reason", "group index out of range"),
				slog.Int("group_index", gi),
				slog.Int("groups", len(l.groups)),
			)
			l.recordOp("unmerge", false)
			return false
		}
		drop[gi] = true
	}

	kept := l.groups[:0]
	for gi, g := range l.groups {
		if !drop[gi] {
			kept = append(kept, g)
		}
	}
	for i := len(kept); i < len(l.groups); i++ {
		l.groups[i] = nil
	}
	l.groups = kept
	l.reindexGroups()
	l.recordOp("unmerge", true)
	return true
}

// GroupOf returns the index of the merge group containing id.
func (l *Ledger) GroupOf(id unit.ID) (int, bool) {
	u, ok := l.index[id]
	if !ok || l.member[u] < 0 {
		return 0, false
	}
	return l.member[u], true
}

// MergeGroups returns a copy of the merge groups in ledger order.
func (l *Ledger) MergeGroups() [][]unit.ID {
	out := make([][]unit.ID, len(l.groups))
	for i, g := range l.groups {
		out[i] = l.idsOf(g)
	}
	return out
}

// Delete marks units as removed.
//
// Unknown units, units already removed and merge group members are
// skipped. Returns true when at least one unit was removed.
func (l *Ledger) Delete(ids []unit.ID) bool {
	changed := false
	for _, id := range ids {
		u, ok := l.index[id]
		switch {
		case !ok:
			l.refuse("delete", "unknown unit", []unit.ID{id})
		case l.removed[u]:
			l.refuse("delete", "unit already removed", []unit.ID{id})
		case l.member[u] >= 0:
			l.refuse("delete", "unit is merged", []unit.ID{id})
		default:
			l.removed[u] = true
			l.numRemoved++
			changed = true
		}
	}
	l.recordOp("delete", changed)
	return changed
}

// Restore clears the removed mark of units. Ids that are unknown or not
// removed are ignored. Returns true when at least one unit was restored.
func (l *Ledger) Restore(ids []unit.ID) bool {
	changed := false
	for _, id := range ids {
		if u, ok := l.index[id]; ok && l.removed[u] {
			l.removed[u] = false
			l.numRemoved--
			changed = true
		}
	}
	l.recordOp("restore", changed)
	return changed
}

// IsRemoved reports whether a unit is removed.
func (l *Ledger) IsRemoved(id unit.ID) bool {
	u, ok := l.index[id]
	return ok && l.removed[u]
}

// Removed returns the removed units in dense index order.
func (l *Ledger) Removed() []unit.ID {
	out := make([]unit.ID, 0, l.numRemoved)
	for u, r := range l.removed {
		if r {
			out = append(out, l.unitIDs[u])
		}
	}
	return out
}

// State returns the curation state of a unit. Unknown units report Active.
func (l *Ledger) State(id unit.ID) State {
	u, ok := l.index[id]
	switch {
	case !ok:
		return Active
	case l.removed[u]:
		return Removed
	case l.member[u] >= 0:
		return Merged
	}
	return Active
}

// Split records a two-way split of a unit.
//
// Description:
//
//	indices are positions within the unit's spike train forming the first
//	part. They are sorted and deduplicated before storing. The split
//	replaces any earlier split of the same unit.
//
//	Refused (false, no change) for unknown, removed or merged units, for an
//	empty index list and for negative indices. Upper bounds are not checked
//	here; the caller knows the unit's spike count.
func (l *Ledger) Split(id unit.ID, indices []int) bool {
	u, ok := l.index[id]
	switch {
	case !ok:
		l.refuse("split", "unknown unit", []unit.ID{id})
		return false
	case l.removed[u]:
		l.refuse("split", "unit is removed", []unit.ID{id})
		return false
	case l.member[u] >= 0:
		l.refuse("split", "unit is merged", []unit.ID{id})
		return false
	case len(indices) == 0:
		l.refuse("split", "empty partition", []unit.ID{id})
		return false
	}

	norm := append([]int(nil), indices...)
	sort.Ints(norm)
	if norm[0] < 0 {
		l.refuse("split", "negative spike index", []unit.ID{id})
		return false
	}
	l.splits[u] = compactSorted(norm)
	l.recordOp("split", true)
	return true
}

// Unsplit drops the active split of a unit. Returns false when there was none.
func (l *Ledger) Unsplit(id unit.ID) bool {
	u, ok := l.index[id]
	if !ok {
		return false
	}
	if _, had := l.splits[u]; !had {
		return false
	}
	delete(l.splits, u)
	l.recordOp("unsplit", true)
	return true
}

// SplitOf returns the active split of a unit.
func (l *Ledger) SplitOf(id unit.ID) (Split, bool) {
	u, ok := l.index[id]
	if !ok {
		return Split{}, false
	}
	idx, ok := l.splits[u]
	if !ok {
		return Split{}, false
	}
	return Split{UnitID: id, Indices: [][]int{append([]int(nil), idx...)}}, true
}

// Splits returns every active split in dense unit index order.
func (l *Ledger) Splits() []Split {
	us := make([]int, 0, len(l.splits))
	for u := range l.splits {
		us = append(us, u)
	}
	sort.Ints(us)

	out := make([]Split, len(us))
	for i, u := range us {
		out[i] = Split{
			UnitID:  l.unitIDs[u],
			Indices: [][]int{append([]int(nil), l.splits[u]...)},
		}
	}
	return out
}

func (l *Ledger) resolve(ids []unit.ID) ([]int, bool) {
	out := make([]int, len(ids))
	for i, id := range ids {
		u, ok := l.index[id]
		if !ok {
			return nil, false
		}
		out[i] = u
	}
	return out, true
}

func (l *Ledger) idsOf(us []int) []unit.ID {
	out := make([]unit.ID, len(us))
	for i, u := range us {
		out[i] = l.unitIDs[u]
	}
	return out
}

func (l *Ledger) reindexGroups() {
	for i := range l.member {
		l.member[i] = -1
	}
	for gi, g := range l.groups {
		for _, u := range g {
			l.member[u] = gi
		}
	}
}

func (l *Ledger) refuse(op, reason string, ids []unit.ID) {
	l.logger.Debug(op+" refused",
		slog.String("reason", reason),
		slog.Any("unit_ids", idStrings(ids)),
	)
	l.recordOp(op, false)
}

func idStrings(ids []unit.ID) []string {
	out := make([]string, len(ids))
	for i, id := range ids {
		out[i] = id.String()
	}
	return out
}

// distinct drops repeated values, keeping first occurrences in order.
func distinct(xs []int) []int {
	seen := make(map[int]bool, len(xs))
	out := xs[:0]
	for _, x := range xs {
		if !seen[x] {
			seen[x] = true
			out = append(out, x)
		}
	}
	return out
}

func compactSorted(xs []int) []int {
	if len(xs) < 2 {
		return xs
	}
	w := 1
	for r := 1; r < len(xs); r++ {
		if xs[r] != xs[w-1] {
			xs[w] = xs[r]
			w++
		}
	}
	return xs[:w]
}
