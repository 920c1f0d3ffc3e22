// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package visibility owns which units are shown and which spikes are
// selected.
//
// The visible spike set is derived, never stored per spike: it is the
// sorted union of the visible units' index lists and is recomputed lazily
// the first time it is read after a visibility change. The cost is
// proportional to the number of visible spikes, not to the recording.
//
// # Selection
//
// Selection is independent state. It is cleared by every visibility
// change (a selected spike may have just become invisible) but it is never
// filtered against visibility: a view may select a spike that is not
// currently shown.
//
// # Thread Safety
//
// Controller is not safe for concurrent use. It belongs to one session
// loop.
package visibility

import (
	"container/heap"
	"log/slog"
	"sort"

	"github.com/AleutianAI/spikecurator/services/curation/spikeindex"
	"github.com/AleutianAI/spikecurator/services/curation/unit"
)

// DefaultMaxVisibleUnits is used when no cap is configured.
const DefaultMaxVisibleUnits = 10

// Controller tracks unit visibility and spike selection over a Store.
type Controller struct {
	store  *spikeindex.Store
	logger *slog.Logger

	maxVisible int
	visible    []bool
	order      []int // visible unit indices in the order they were shown

	visibleCache []int
	segCache     map[int][]int
	cacheValid   bool

	selected []int
}

// Option configures a Controller.
type Option func(*Controller)

// WithMaxVisibleUnits caps the number of simultaneously visible units.
// Values below one fall back to DefaultMaxVisibleUnits.
func WithMaxVisibleUnits(n int) Option {
	return func(c *Controller) {
		if n >= 1 {
			c.maxVisible = n
		}
	}
}

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(c *Controller) { c.logger = logger }
}

// New creates a controller with no visible units and an empty selection.
func New(store *spikeindex.Store, opts ...Option) *Controller {
	c := &Controller{
		store:      store,
		logger:     slog.Default(),
		maxVisible: DefaultMaxVisibleUnits,
		visible:    make([]bool, store.NumUnits()),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// MaxVisibleUnits returns the visibility cap.
func (c *Controller) MaxVisibleUnits() int { return c.maxVisible }

// SetVisible replaces the visible set with ids.
//
// Description:
//
//	Unknown and repeated ids are skipped. When more than MaxVisibleUnits
//	ids remain, only the first MaxVisibleUnits are kept; the rest are
//	dropped without error. Clears the selection.
//
// Outputs:
//
//	int - Number of units made visible.
func (c *Controller) SetVisible(ids []unit.ID) int {
	for _, u := range c.order {
		c.visible[u] = false
	}
	c.order = c.order[:0]

	dropped := 0
	for _, id := range ids {
		u, ok := c.store.UnitIndex(id)
		if !ok || c.visible[u] {
			continue
		}
		if len(c.order) >= c.maxVisible {
			dropped++
			continue
		}
		c.visible[u] = true
		c.order = append(c.order, u)
	}
	if dropped > 0 {
		c.logger.Debug("visible units truncated to cap",
			slog.Int("max_visible_units", c.maxVisible),
			slog.Int("dropped", dropped),
		)
	}

	c.invalidate()
	return len(c.order)
}

// Toggle shows or hides one unit.
//
// Showing a unit when MaxVisibleUnits are already visible is refused.
// Returns false for unknown units and refused requests. The selection is
// cleared by every call, including refused ones and calls that do not
// change the flag.
func (c *Controller) Toggle(id unit.ID, visible bool) bool {
	defer c.invalidate()

	u, ok := c.store.UnitIndex(id)
	if !ok {
		return false
	}
	switch {
	case visible && !c.visible[u]:
		if len(c.order) >= c.maxVisible {
			c.logger.Debug("unit not shown, visible cap reached",
				slog.String("unit_id", id.String()),
				slog.Int("max_visible_units", c.maxVisible),
			)
			return false
		}
		c.visible[u] = true
		c.order = append(c.order, u)
	case !visible && c.visible[u]:
		c.visible[u] = false
		for i, v := range c.order {
			if v == u {
				c.order = append(c.order[:i], c.order[i+1:]...)
				break
			}
		}
	}
	return true
}

// SetAllOff hides every unit and clears the selection.
func (c *Controller) SetAllOff() {
	for _, u := range c.order {
		c.visible[u] = false
	}
	c.order = c.order[:0]
	c.invalidate()
}

// IsVisible reports whether a unit is visible.
func (c *Controller) IsVisible(id unit.ID) bool {
	u, ok := c.store.UnitIndex(id)
	return ok && c.visible[u]
}

// IsSpikeVisible reports whether spike i belongs to a visible unit.
func (c *Controller) IsSpikeVisible(i int) bool {
	if i < 0 || i >= c.store.NumSpikes() {
		return false
	}
	return c.visible[c.store.Spike(i).UnitIndex]
}

// VisibleUnitIDs returns the visible units in the order they were shown.
func (c *Controller) VisibleUnitIDs() []unit.ID {
	out := make([]unit.ID, len(c.order))
	for i, u := range c.order {
		out[i] = c.store.UnitIDAt(u)
	}
	return out
}

// VisibilityMask returns a copy of the per-unit visibility flags in dense
// unit index order.
func (c *Controller) VisibilityMask() []bool {
	return append([]bool(nil), c.visible...)
}

// VisibleSpikeIndices returns the sorted global indices of all spikes of
// visible units. Empty when no unit is visible. The slice is cached until
// the next visibility change; do not modify it.
func (c *Controller) VisibleSpikeIndices() []int {
	if !c.cacheValid {
		lists := make([][]int, 0, len(c.order))
		for _, u := range c.order {
			lists = append(lists, c.store.SpikeIndicesAt(u))
		}
		c.visibleCache = mergeSorted(lists)
		c.segCache = make(map[int][]int)
		c.cacheValid = true
	}
	return c.visibleCache
}

// VisibleSpikeIndicesInSegment is VisibleSpikeIndices restricted to one
// segment. Cached per segment until the next visibility change.
func (c *Controller) VisibleSpikeIndicesInSegment(seg int) []int {
	if !c.cacheValid {
		c.VisibleSpikeIndices()
	}
	if got, ok := c.segCache[seg]; ok {
		return got
	}
	lists := make([][]int, 0, len(c.order))
	for _, u := range c.order {
		lists = append(lists, c.store.SpikeIndicesAtSegment(u, seg))
	}
	merged := mergeSorted(lists)
	c.segCache[seg] = merged
	return merged
}

// SelectedSpikeIndices returns the current selection, sorted. Do not modify.
func (c *Controller) SelectedSpikeIndices() []int { return c.selected }

// SetSelected replaces the selection.
//
// Indices outside [0, NumSpikes) are dropped; if none remain the selection
// is empty. Visibility is not consulted. Duplicates are removed and the
// result is sorted.
//
// Outputs:
//
//	int - Number of spikes selected.
func (c *Controller) SetSelected(indices []int) int {
	n := c.store.NumSpikes()
	sel := make([]int, 0, len(indices))
	for _, i := range indices {
		if i >= 0 && i < n {
			sel = append(sel, i)
		}
	}
	if len(sel) < len(indices) {
		c.logger.Debug("out of range spike indices dropped from selection",
			slog.Int("requested", len(indices)),
			slog.Int("kept", len(sel)),
		)
	}
	sort.Ints(sel)
	c.selected = compactSorted(sel)
	return len(c.selected)
}

// ClearSelection empties the selection.
func (c *Controller) ClearSelection() { c.selected = nil }

// SelectedUnitIDs returns the units owning at least one selected spike, in
// dense unit index order.
func (c *Controller) SelectedUnitIDs() []unit.ID {
	if len(c.selected) == 0 {
		return nil
	}
	has := make([]bool, c.store.NumUnits())
	for _, i := range c.selected {
		has[c.store.Spike(i).UnitIndex] = true
	}
	var out []unit.ID
	for u, ok := range has {
		if ok {
			out = append(out, c.store.UnitIDAt(u))
		}
	}
	return out
}

// invalidate drops derived caches and the selection after a visibility change.
func (c *Controller) invalidate() {
	c.cacheValid = false
	c.visibleCache = nil
	c.segCache = nil
	c.selected = nil
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

// mergeSorted k-way merges sorted, pairwise disjoint lists.
func mergeSorted(lists [][]int) []int {
	total := 0
	nonEmpty := 0
	for _, l := range lists {
		total += len(l)
		if len(l) > 0 {
			nonEmpty++
		}
	}
	out := make([]int, 0, total)
	switch nonEmpty {
	case 0:
		return out
	case 1:
		for _, l := range lists {
			out = append(out, l...)
		}
		return out
	}

	h := make(cursorHeap, 0, nonEmpty)
	for _, l := range lists {
		if len(l) > 0 {
			h = append(h, cursor{list: l})
		}
	}
	heap.Init(&h)
	for h.Len() > 0 {
		top := &h[0]
		out = append(out, top.list[top.pos])
		top.pos++
		if top.pos == len(top.list) {
			heap.Pop(&h)
		} else {
			heap.Fix(&h, 0)
		}
	}
	return out
}

type cursor struct {
	list []int
	pos  int
}

type cursorHeap []cursor

func (h cursorHeap) Len() int           { return len(h) }
func (h cursorHeap) Less(i, j int) bool { return h[i].list[h[i].pos] < h[j].list[h[j].pos] }
func (h cursorHeap) Swap(i, j int)      { h[i], h[j] = h[j], h[i] }
func (h *cursorHeap) Push(x any)        { *h = append(*h, x.(cursor)) }
func (h *cursorHeap) Pop() any {
	old := *h
	n := len(old)
	x := old[n-1]
	*h = old[:n-1]
	return x
}
