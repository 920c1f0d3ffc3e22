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
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/AleutianAI/spikecurator/services/curation/unit"
)

func newLedger(n int) *Ledger {
	ids := make([]unit.ID, n)
	for i := range ids {
		ids[i] = unit.Int(int64(i + 1))
	}
	return New(ids, nil)
}

func ptr(s string) *string { return &s }

// checkInvariants asserts the structural invariants that must hold after
// any sequence of calls.
func checkInvariants(t *testing.T, l *Ledger) {
	t.Helper()
	inGroup := map[unit.ID]int{}
	for gi, g := range l.MergeGroups() {
		assert.GreaterOrEqual(t, len(g), 2, "group %d too small", gi)
		for _, id := range g {
			prev, dup := inGroup[id]
			assert.False(t, dup, "unit %s in groups %d and %d", id, prev, gi)
			inGroup[id] = gi

			got, ok := l.GroupOf(id)
			assert.True(t, ok)
			assert.Equal(t, gi, got)
		}
	}
	for _, id := range l.Removed() {
		_, merged := inGroup[id]
		assert.False(t, merged, "unit %s is removed and merged", id)
	}
}

func TestLedger_ConcreteScenario(t *testing.T) {
	l := newLedger(3)

	assert.True(t, l.Merge(unit.Ints(1, 3)))
	assert.Equal(t, [][]unit.ID{unit.Ints(1, 3)}, l.MergeGroups())

	assert.True(t, l.Delete(unit.Ints(2)))
	assert.Equal(t, unit.Ints(2), l.Removed())

	assert.False(t, l.Merge(unit.Ints(1, 2)), "removed unit cannot be merged")
	assert.Equal(t, [][]unit.ID{unit.Ints(1, 3)}, l.MergeGroups())
	checkInvariants(t, l)
}

func TestLedger_MergeRefusals(t *testing.T) {
	tests := []struct {
		name string
		ids  []unit.ID
	}{
		{"empty", nil},
		{"single", unit.Ints(1)},
		{"same id twice", unit.Ints(2, 2)},
		{"unknown", unit.Ints(1, 99)},
		{"string id never registered", []unit.ID{unit.Int(1), unit.Str("1")}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			l := newLedger(4)
			assert.False(t, l.Merge(tt.ids))
			assert.Empty(t, l.MergeGroups())
		})
	}
}

func TestLedger_MergeTransitivity(t *testing.T) {
	l := newLedger(8)

	require.True(t, l.Merge(unit.Ints(1, 2)))
	require.True(t, l.Merge(unit.Ints(3, 4)))
	require.True(t, l.Merge(unit.Ints(6, 7)))

	// Bridges the first two groups and adds 5; {6,7} is untouched.
	require.True(t, l.Merge(unit.Ints(2, 5, 3)))

	groups := l.MergeGroups()
	require.Len(t, groups, 2)
	assert.Equal(t, unit.Ints(6, 7), groups[0], "non-overlapping group keeps its place")
	assert.ElementsMatch(t, unit.Ints(1, 2, 3, 4, 5), groups[1])
	assert.Equal(t, unit.Ints(1, 2, 5, 3, 4), groups[1], "first-seen member order")

	g1, _ := l.GroupOf(unit.Int(1))
	g4, _ := l.GroupOf(unit.Int(4))
	assert.Equal(t, g1, g4)
	assert.Equal(t, Merged, l.State(unit.Int(5)))
	assert.Equal(t, Active, l.State(unit.Int(8)))
	checkInvariants(t, l)
}

func TestLedger_MergeIdempotent(t *testing.T) {
	l := newLedger(4)
	require.True(t, l.Merge(unit.Ints(1, 2, 3)))
	before := l.MergeGroups()

	assert.True(t, l.Merge(unit.Ints(3, 1)), "subset of one group is accepted")
	assert.True(t, l.Merge(unit.Ints(1, 2, 3)))
	assert.Equal(t, before, l.MergeGroups())
}

func TestLedger_Unmerge(t *testing.T) {
	l := newLedger(6)
	require.True(t, l.Merge(unit.Ints(1, 2)))
	require.True(t, l.Merge(unit.Ints(3, 4)))
	require.True(t, l.Merge(unit.Ints(5, 6)))

	assert.False(t, l.Unmerge(), "no index")
	assert.False(t, l.Unmerge(0, 3), "one index out of range")
	assert.False(t, l.Unmerge(-1))
	assert.Len(t, l.MergeGroups(), 3, "refused unmerge changes nothing")

	assert.True(t, l.Unmerge(2, 0, 0))
	assert.Equal(t, [][]unit.ID{unit.Ints(3, 4)}, l.MergeGroups())

	_, ok := l.GroupOf(unit.Int(1))
	assert.False(t, ok)
	gi, ok := l.GroupOf(unit.Int(4))
	assert.True(t, ok)
	assert.Equal(t, 0, gi)
	checkInvariants(t, l)
}

func TestLedger_MergeDeleteMutualExclusion(t *testing.T) {
	l := newLedger(5)
	require.True(t, l.Merge(unit.Ints(1, 2)))

	t.Run("merged units are not deleted", func(t *testing.T) {
		assert.False(t, l.Delete(unit.Ints(1)))
		assert.False(t, l.IsRemoved(unit.Int(1)))
	})

	t.Run("partial delete skips merged members", func(t *testing.T) {
		assert.True(t, l.Delete(unit.Ints(2, 3)))
		assert.Equal(t, unit.Ints(3), l.Removed())
	})

	t.Run("removed units are not merged", func(t *testing.T) {
		assert.False(t, l.Merge(unit.Ints(3, 4)))
		assert.False(t, l.Merge(unit.Ints(1, 3)))
		assert.Len(t, l.MergeGroups(), 1)
	})

	t.Run("unknown and already removed are skipped", func(t *testing.T) {
		assert.False(t, l.Delete(unit.Ints(3, 42)))
	})

	checkInvariants(t, l)
}

func TestLedger_RestoreRoundTrip(t *testing.T) {
	l := newLedger(4)
	before := l.Export()

	require.True(t, l.Delete(unit.Ints(2, 4)))
	assert.Equal(t, Removed, l.State(unit.Int(4)))

	assert.True(t, l.Restore(unit.Ints(4, 2, 9)))
	assert.Equal(t, before, l.Export())
	assert.Empty(t, l.Removed())

	assert.False(t, l.Restore(unit.Ints(1)), "not removed")
}

func TestLedger_Split(t *testing.T) {
	l := newLedger(4)
	require.True(t, l.Merge(unit.Ints(3, 4)))
	require.True(t, l.Delete(unit.Ints(2)))

	t.Run("normalizes indices", func(t *testing.T) {
		require.True(t, l.Split(unit.Int(1), []int{7, 2, 7, 0}))
		s, ok := l.SplitOf(unit.Int(1))
		require.True(t, ok)
		assert.Equal(t, Split{UnitID: unit.Int(1), Indices: [][]int{{0, 2, 7}}}, s)
	})

	t.Run("re-split replaces", func(t *testing.T) {
		require.True(t, l.Split(unit.Int(1), []int{5}))
		assert.Equal(t, []Split{{UnitID: unit.Int(1), Indices: [][]int{{5}}}}, l.Splits())
	})

	t.Run("refusals", func(t *testing.T) {
		assert.False(t, l.Split(unit.Int(2), []int{1}), "removed")
		assert.False(t, l.Split(unit.Int(3), []int{1}), "merged")
		assert.False(t, l.Split(unit.Int(9), []int{1}), "unknown")
		assert.False(t, l.Split(unit.Int(1), nil), "empty")
		assert.False(t, l.Split(unit.Int(1), []int{3, -1}), "negative")

		s, _ := l.SplitOf(unit.Int(1))
		assert.Equal(t, [][]int{{5}}, s.Indices, "refusal keeps prior split")
	})

	t.Run("unsplit", func(t *testing.T) {
		assert.True(t, l.Unsplit(unit.Int(1)))
		assert.False(t, l.Unsplit(unit.Int(1)))
		assert.Empty(t, l.Splits())
	})
}

func TestLedger_SplitOfReturnsCopy(t *testing.T) {
	l := newLedger(1)
	require.True(t, l.Split(unit.Int(1), []int{1, 2}))

	s, _ := l.SplitOf(unit.Int(1))
	s.Indices[0][0] = 100

	again, _ := l.SplitOf(unit.Int(1))
	assert.Equal(t, []int{1, 2}, again.Indices[0])
}

func TestLedger_Labels(t *testing.T) {
	defs := map[string]LabelDefinition{
		"quality": {LabelOptions: []string{"good", "noise", "MUA"}, Exclusive: true},
		"tags":    {LabelOptions: []string{"burst", "drift"}},
	}
	l := New(unit.Ints(1, 2), defs)

	t.Run("exclusive replaces", func(t *testing.T) {
		require.NoError(t, l.SetLabel(unit.Int(1), "quality", ptr("good")))
		require.NoError(t, l.SetLabel(unit.Int(1), "quality", ptr("MUA")))
		v, ok := l.Label(unit.Int(1), "quality")
		assert.True(t, ok)
		assert.Equal(t, "MUA", v)
	})

	t.Run("non-exclusive replaces", func(t *testing.T) {
		require.NoError(t, l.SetLabel(unit.Int(1), "tags", ptr("drift")))
		require.NoError(t, l.SetLabel(unit.Int(1), "tags", ptr("burst")))
		assert.Equal(t, map[string][]string{
			"quality": {"MUA"},
			"tags":    {"burst"},
		}, l.Labels(unit.Int(1)))
	})

	t.Run("errors", func(t *testing.T) {
		err := l.SetLabel(unit.Int(1), "colour", ptr("red"))
		assert.True(t, errors.Is(err, ErrUnknownCategory))
		assert.Contains(t, err.Error(), "colour")

		err = l.SetLabel(unit.Int(1), "quality", ptr("excellent"))
		assert.True(t, errors.Is(err, ErrInvalidLabelValue))

		err = l.SetLabel(unit.Int(7), "quality", ptr("good"))
		assert.True(t, errors.Is(err, ErrUnknownUnit))

		v, _ := l.Label(unit.Int(1), "quality")
		assert.Equal(t, "MUA", v, "failed call changes nothing")
	})

	t.Run("nil deletes and empty entry is pruned", func(t *testing.T) {
		require.NoError(t, l.SetLabel(unit.Int(1), "quality", nil))
		require.NoError(t, l.SetLabel(unit.Int(1), "tags", nil))
		assert.Nil(t, l.Labels(unit.Int(1)))
		assert.Empty(t, l.Export().ManualLabels)

		require.NoError(t, l.SetLabel(unit.Int(2), "quality", nil), "deleting an absent label is fine")
	})
}

func TestLedger_DefaultDefinitions(t *testing.T) {
	l := newLedger(1)
	assert.Equal(t, []string{"quality"}, l.Categories())
	assert.Equal(t, DefaultLabelDefinitions(), l.LabelDefinitions())
	assert.NoError(t, l.SetLabel(unit.Int(1), "quality", ptr("noise")))
}

func TestLedger_RandomSequenceKeepsInvariants(t *testing.T) {
	l := newLedger(6)
	ops := []func(){
		func() { l.Merge(unit.Ints(1, 2)) },
		func() { l.Delete(unit.Ints(2, 3)) },
		func() { l.Merge(unit.Ints(3, 4)) },
		func() { l.Merge(unit.Ints(4, 5)) },
		func() { l.Merge(unit.Ints(2, 5)) },
		func() { l.Delete(unit.Ints(4, 6)) },
		func() { l.Unmerge(0) },
		func() { l.Delete(unit.Ints(1, 2, 4, 5)) },
		func() { l.Restore(unit.Ints(3)) },
		func() { l.Merge(unit.Ints(3, 6)) },
		func() { l.Restore(unit.Ints(6)) },
		func() { l.Merge(unit.Ints(3, 6)) },
	}
	for _, op := range ops {
		op()
		checkInvariants(t, l)
	}
}
