// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package visibility

import (
	"sort"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/AleutianAI/spikecurator/services/curation/spikeindex"
	"github.com/AleutianAI/spikecurator/services/curation/unit"
)

// blockStore builds units 1..n with `per` consecutive spikes each in one
// segment: unit 1 owns 0..per-1, unit 2 owns per..2*per-1, and so on.
func blockStore(t *testing.T, n, per int) *spikeindex.Store {
	t.Helper()
	spikes := make([]spikeindex.Spike, 0, n*per)
	for u := 0; u < n; u++ {
		for k := 0; k < per; k++ {
			spikes = append(spikes, spikeindex.Spike{
				SampleIndex: int64(len(spikes)),
				UnitIndex:   int32(u),
			})
		}
	}
	ids := make([]unit.ID, n)
	for i := range ids {
		ids[i] = unit.Int(int64(i + 1))
	}
	s, err := spikeindex.Build(spikes, ids, 1)
	require.NoError(t, err)
	return s
}

// twoSegmentStore interleaves three units across two segments.
func twoSegmentStore(t *testing.T) *spikeindex.Store {
	t.Helper()
	var spikes []spikeindex.Spike
	for seg := int32(0); seg < 2; seg++ {
		for k := 0; k < 12; k++ {
			spikes = append(spikes, spikeindex.Spike{
				SampleIndex:  int64(k),
				UnitIndex:    int32(k % 3),
				SegmentIndex: seg,
			})
		}
	}
	s, err := spikeindex.Build(spikes, unit.Ints(1, 2, 3), 2)
	require.NoError(t, err)
	return s
}

func rangeInts(from, to int) []int {
	out := make([]int, 0, to-from)
	for i := from; i < to; i++ {
		out = append(out, i)
	}
	return out
}

func TestController_ConcreteScenario(t *testing.T) {
	c := New(blockStore(t, 3, 10))

	c.SetVisible(unit.Ints(1, 3))

	want := append(rangeInts(0, 10), rangeInts(20, 30)...)
	assert.Equal(t, want, c.VisibleSpikeIndices())
	assert.Equal(t, unit.Ints(1, 3), c.VisibleUnitIDs())
	assert.Equal(t, []bool{true, false, true}, c.VisibilityMask())
}

func TestController_VisibleSpikesIsUnionOfUnits(t *testing.T) {
	store := twoSegmentStore(t)
	c := New(store)

	sets := [][]unit.ID{
		nil,
		unit.Ints(2),
		unit.Ints(3, 1),
		unit.Ints(1, 2, 3),
	}
	for _, set := range sets {
		c.SetVisible(set)

		var want []int
		for _, id := range set {
			want = append(want, store.SpikeIndicesFor(id)...)
		}
		sort.Ints(want)

		got := c.VisibleSpikeIndices()
		if len(want) == 0 {
			assert.Empty(t, got, "empty visible set gives empty sequence")
			continue
		}
		assert.Equal(t, want, got, "set %v", set)
	}
}

func TestController_VisibleSpikesInSegment(t *testing.T) {
	c := New(twoSegmentStore(t))
	c.SetVisible(unit.Ints(1, 2))

	assert.Equal(t, []int{0, 1, 3, 4, 6, 7, 9, 10}, c.VisibleSpikeIndicesInSegment(0))
	assert.Equal(t, []int{12, 13, 15, 16, 18, 19, 21, 22}, c.VisibleSpikeIndicesInSegment(1))
	assert.Empty(t, c.VisibleSpikeIndicesInSegment(5))

	c.Toggle(unit.Int(2), false)
	assert.Equal(t, []int{0, 3, 6, 9}, c.VisibleSpikeIndicesInSegment(0), "cache dropped on change")
}

func TestController_Cap(t *testing.T) {
	c := New(blockStore(t, 5, 2), WithMaxVisibleUnits(2))

	t.Run("set visible truncates to first N", func(t *testing.T) {
		n := c.SetVisible(unit.Ints(4, 2, 5, 1))
		assert.Equal(t, 2, n)
		assert.Equal(t, unit.Ints(4, 2), c.VisibleUnitIDs())
	})

	t.Run("toggle refused at cap", func(t *testing.T) {
		assert.False(t, c.Toggle(unit.Int(5), true))
		assert.False(t, c.IsVisible(unit.Int(5)))

		assert.True(t, c.Toggle(unit.Int(4), false))
		assert.True(t, c.Toggle(unit.Int(5), true))
		assert.Equal(t, unit.Ints(2, 5), c.VisibleUnitIDs())
	})

	t.Run("invalid cap falls back to default", func(t *testing.T) {
		d := New(blockStore(t, 1, 1), WithMaxVisibleUnits(0))
		assert.Equal(t, DefaultMaxVisibleUnits, d.MaxVisibleUnits())
	})
}

func TestController_SetVisibleSkipsUnknownAndRepeated(t *testing.T) {
	c := New(blockStore(t, 3, 1))
	n := c.SetVisible([]unit.ID{unit.Int(9), unit.Int(2), unit.Int(2), unit.Str("x")})
	assert.Equal(t, 1, n)
	assert.Equal(t, unit.Ints(2), c.VisibleUnitIDs())
	assert.False(t, c.Toggle(unit.Int(9), true))
}

func TestController_VisibilityChangeClearsSelection(t *testing.T) {
	mutations := map[string]func(c *Controller){
		"set visible":      func(c *Controller) { c.SetVisible(unit.Ints(2)) },
		"toggle on":        func(c *Controller) { c.Toggle(unit.Int(3), true) },
		"toggle no change": func(c *Controller) { c.Toggle(unit.Int(1), true) },
		"toggle off":       func(c *Controller) { c.Toggle(unit.Int(1), false) },
		"set all off":      func(c *Controller) { c.SetAllOff() },
	}
	for name, mutate := range mutations {
		t.Run(name, func(t *testing.T) {
			c := New(blockStore(t, 3, 4))
			c.SetVisible(unit.Ints(1))
			c.SetSelected([]int{0, 1, 9})
			require.Len(t, c.SelectedSpikeIndices(), 3)

			mutate(c)
			assert.Empty(t, c.SelectedSpikeIndices())
		})
	}
}

func TestController_Selection(t *testing.T) {
	c := New(blockStore(t, 3, 4))
	c.SetVisible(unit.Ints(1))

	t.Run("invisible spikes may be selected", func(t *testing.T) {
		n := c.SetSelected([]int{9, 2, 9, 5})
		assert.Equal(t, 3, n)
		assert.Equal(t, []int{2, 5, 9}, c.SelectedSpikeIndices())
		assert.False(t, c.IsSpikeVisible(9))
		assert.Equal(t, unit.Ints(1, 2, 3), c.SelectedUnitIDs())
	})

	t.Run("out of range is clamped", func(t *testing.T) {
		assert.Equal(t, 1, c.SetSelected([]int{-1, 3, 12, 400}))
		assert.Equal(t, []int{3}, c.SelectedSpikeIndices())

		assert.Equal(t, 0, c.SetSelected([]int{-5, 99}))
		assert.Empty(t, c.SelectedSpikeIndices())
		assert.Nil(t, c.SelectedUnitIDs())
	})

	t.Run("clear", func(t *testing.T) {
		c.SetSelected([]int{1})
		c.ClearSelection()
		assert.Empty(t, c.SelectedSpikeIndices())
	})
}

func TestController_IsSpikeVisible(t *testing.T) {
	c := New(blockStore(t, 2, 3))
	c.SetVisible(unit.Ints(2))

	assert.False(t, c.IsSpikeVisible(0))
	assert.True(t, c.IsSpikeVisible(3))
	assert.False(t, c.IsSpikeVisible(-1))
	assert.False(t, c.IsSpikeVisible(6))
}

func TestMergeSorted(t *testing.T) {
	assert.Equal(t, []int{}, mergeSorted(nil))
	assert.Equal(t, []int{1, 2}, mergeSorted([][]int{{}, {1, 2}, nil}))
	assert.Equal(t, []int{0, 1, 2, 3, 4, 5, 6}, mergeSorted([][]int{{1, 4}, {0, 5, 6}, {2, 3}}))
}
