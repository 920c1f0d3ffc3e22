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
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/AleutianAI/spikecurator/services/curation/bus"
	"github.com/AleutianAI/spikecurator/services/curation/config"
	"github.com/AleutianAI/spikecurator/services/curation/ledger"
	"github.com/AleutianAI/spikecurator/services/curation/unit"
)

type fakeState struct {
	ids      []unit.ID
	visible  []unit.ID
	selected []int
	groups   [][]unit.ID
	states   map[unit.ID]ledger.State
	labels   map[unit.ID]map[string][]string
}

func (f *fakeState) UnitIDs() []unit.ID          { return f.ids }
func (f *fakeState) VisibleUnitIDs() []unit.ID   { return f.visible }
func (f *fakeState) SelectedSpikeIndices() []int { return f.selected }
func (f *fakeState) SelectedUnitIDs() []unit.ID {
	if len(f.selected) == 0 {
		return nil
	}
	return f.ids[:1]
}
func (f *fakeState) MergeGroups() [][]unit.ID { return f.groups }
func (f *fakeState) Removed() []unit.ID {
	var out []unit.ID
	for _, id := range f.ids {
		if f.states[id] == ledger.Removed {
			out = append(out, id)
		}
	}
	return out
}
func (f *fakeState) UnitState(id unit.ID) ledger.State     { return f.states[id] }
func (f *fakeState) Labels(id unit.ID) map[string][]string { return f.labels[id] }
func (f *fakeState) SpikeCount(unit.ID) int                { return 10 }
func (f *fakeState) Color(unit.ID) string                  { return "#000000" }

func newFakeState() *fakeState {
	ids := unit.Ints(1, 2, 3, 4)
	return &fakeState{
		ids:      ids,
		visible:  ids[:2],
		selected: []int{0, 1, 2},
		groups:   [][]unit.ID{{ids[0], ids[2]}},
		states: map[unit.ID]ledger.State{
			ids[0]: ledger.Merged,
			ids[2]: ledger.Merged,
			ids[1]: ledger.Removed,
		},
		labels: map[unit.ID]map[string][]string{
			ids[3]: {"quality": {"good"}},
		},
	}
}

func TestRegistry_Builtins(t *testing.T) {
	r := NewRegistry()
	assert.Equal(t, []string{KindRecorder, KindSummary}, r.Names())

	k, err := r.Lookup(KindSummary)
	require.NoError(t, err)
	assert.Contains(t, k.Defaults, "title")
}

func TestRegistry_Build(t *testing.T) {
	r := NewRegistry()
	st := newFakeState()

	v, err := r.Build(config.ViewSpec{Kind: KindRecorder, Settings: map[string]any{"capacity": 2}}, st)
	require.NoError(t, err)
	rec, ok := v.(*Recorder)
	require.True(t, ok)
	assert.True(t, strings.HasPrefix(rec.ViewID(), "recorder-"))

	_, err = r.Build(config.ViewSpec{Kind: "waveforms"}, st)
	assert.True(t, errors.Is(err, ErrUnknownView))
	assert.Contains(t, err.Error(), "waveforms")

	_, err = r.Build(config.ViewSpec{Kind: KindSummary, Settings: map[string]any{"colour": "red"}}, st)
	assert.True(t, errors.Is(err, config.ErrUnknownSetting))
	assert.Contains(t, err.Error(), "colour")

	_, err = r.Build(config.ViewSpec{Kind: KindSummary, Settings: map[string]any{"count_labels": "yes"}}, st)
	assert.True(t, errors.Is(err, config.ErrInvalidSetting))

	_, err = r.Build(config.ViewSpec{Kind: KindSummary}, nil)
	assert.Error(t, err)
}

func TestRegistry_BuildAll(t *testing.T) {
	r := NewRegistry()
	st := newFakeState()

	vs, err := r.BuildAll([]config.ViewSpec{{Kind: KindSummary}, {Kind: KindRecorder}}, st)
	require.NoError(t, err)
	require.Len(t, vs, 2)
	assert.NotEqual(t, vs[0].ViewID(), vs[1].ViewID())

	_, err = r.BuildAll([]config.ViewSpec{{Kind: KindSummary}, {Kind: "nope"}}, st)
	assert.True(t, errors.Is(err, ErrUnknownView))
	assert.Contains(t, err.Error(), "views[1]")
}

func TestRegistry_Register(t *testing.T) {
	r := NewRegistry()
	custom := Kind{
		Name: "custom",
		New: func(*config.ViewSettings, State) (bus.View, error) {
			return NewRecorder(0), nil
		},
	}
	require.NoError(t, r.Register(custom))
	assert.Contains(t, r.Names(), "custom")

	assert.True(t, errors.Is(r.Register(custom), ErrDuplicateKind))
	assert.True(t, errors.Is(r.Register(Kind{Name: KindSummary, New: custom.New}), ErrDuplicateKind))
	assert.True(t, errors.Is(r.Register(Kind{Name: "x"}), ErrInvalidKind))
	assert.True(t, errors.Is(r.Register(Kind{New: custom.New}), ErrInvalidKind))

	v, err := r.Build(config.ViewSpec{Kind: "custom"}, nil)
	require.NoError(t, err)
	assert.IsType(t, &Recorder{}, v)

	factoryErr := errors.New("no terminal")
	require.NoError(t, r.Register(Kind{
		Name: "broken",
		New:  func(*config.ViewSettings, State) (bus.View, error) { return nil, factoryErr },
	}))
	_, err = r.Build(config.ViewSpec{Kind: "broken"}, nil)
	assert.True(t, errors.Is(err, factoryErr))
}

func TestSummary(t *testing.T) {
	st := newFakeState()
	s := NewSummary(st, "units", true)
	assert.Equal(t, Counts{}, s.Counts(), "nothing computed before refresh")

	s.Refresh()
	assert.Equal(t, Counts{
		Units:          4,
		Active:         1,
		Merged:         2,
		Removed:        1,
		MergeGroups:    1,
		Labelled:       1,
		Visible:        2,
		SelectedSpikes: 3,
		SelectedUnits:  1,
	}, s.Counts())

	st.selected = nil
	s.OnSpikeSelectionChanged()
	assert.Equal(t, 0, s.Counts().SelectedSpikes)
	assert.Equal(t, 2, s.Refreshes())

	out := s.Render()
	assert.True(t, strings.HasPrefix(out, "units\n"))
	assert.Contains(t, out, "merged 2")
	assert.Contains(t, out, "labelled  1")
}

func TestSummary_NoLabels(t *testing.T) {
	s := NewSummary(newFakeState(), "summary", false)
	s.Refresh()
	assert.Zero(t, s.Counts().Labelled)
	assert.NotContains(t, s.Render(), "labelled")
}

func TestRecorder(t *testing.T) {
	r := NewRecorder(3)
	var _ bus.SpikeSelectionListener = r
	var _ bus.ActiveListener = r

	r.OnUnitVisibilityChanged()
	r.OnSpikeSelectionChanged()
	r.OnManualCurationUpdated()
	r.OnActiveChanged(true)

	assert.Equal(t, []bus.Kind{
		bus.SpikeSelectionChanged,
		bus.ManualCurationUpdated,
		ActiveViewUpdated,
	}, r.Kinds(), "oldest dropped past capacity")
	assert.True(t, r.Active())
	assert.Equal(t, 1, r.Count(ActiveViewUpdated))

	r.Refresh()
	assert.Equal(t, 1, r.Refreshes())
	r.Reset()
	assert.Empty(t, r.Records())
	assert.Zero(t, r.Refreshes())
}

func TestRecorder_OnBus(t *testing.T) {
	b := bus.NewDirect()
	a, c := NewRecorder(0), NewRecorder(0)
	require.NoError(t, b.Register(a))
	require.NoError(t, b.Register(c))

	b.Emit(bus.UnitColorChanged, a)
	b.NotifyActiveView(c)

	assert.Empty(t, a.Kinds())
	assert.Equal(t, []bus.Kind{bus.UnitColorChanged, ActiveViewUpdated}, c.Kinds())
	assert.True(t, c.Active())
}
