// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package tui

import (
	"testing"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/AleutianAI/spikecurator/services/curation/bus"
	"github.com/AleutianAI/spikecurator/services/curation/config"
	"github.com/AleutianAI/spikecurator/services/curation/session"
	"github.com/AleutianAI/spikecurator/services/curation/spikeindex"
	"github.com/AleutianAI/spikecurator/services/curation/unit"
	"github.com/AleutianAI/spikecurator/services/curation/views"
)

func newTestModel(t *testing.T, opts ...session.Option) (Model, *session.Session) {
	t.Helper()
	var spikes []spikeindex.Spike
	for u := 0; u < 3; u++ {
		for k := 0; k < 4; k++ {
			spikes = append(spikes, spikeindex.Spike{SampleIndex: int64(len(spikes)), UnitIndex: int32(u)})
		}
	}
	store, err := spikeindex.Build(spikes, unit.Ints(1, 2, 3), 1)
	require.NoError(t, err)
	sess, err := session.New(store, opts...)
	require.NoError(t, err)

	v := NewView(8)
	require.NoError(t, sess.AddView(v))
	<-v.events // initial refresh
	return NewModel(sess, v), sess
}

func press(t *testing.T, m Model, keys ...tea.KeyMsg) Model {
	t.Helper()
	for _, k := range keys {
		next, _ := m.Update(k)
		m = next.(Model)
	}
	return m
}

func runes(s string) tea.KeyMsg {
	return tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(s)}
}

var (
	keyDown  = tea.KeyMsg{Type: tea.KeyDown}
	keySpace = tea.KeyMsg{Type: tea.KeySpace, Runes: []rune{' '}}
)

func TestNewModel(t *testing.T) {
	m, _ := newTestModel(t)
	require.Len(t, m.Rows(), 3)
	assert.Equal(t, unit.Int(1), m.Rows()[0].ID)
	assert.Equal(t, 0, m.cursor)
	assert.Equal(t, []string{"quality"}, m.categories)
	assert.NotNil(t, m.Init())
}

func TestNavigation(t *testing.T) {
	m, _ := newTestModel(t)
	m = press(t, m, keyDown, keyDown, keyDown)
	assert.Equal(t, 2, m.cursor, "cursor stops at last row")
	m = press(t, m, runes("k"))
	assert.Equal(t, 1, m.cursor)
}

func TestToggleVisibility(t *testing.T) {
	m, sess := newTestModel(t, session.WithMaxVisibleUnits(1))

	m = press(t, m, runes("v"))
	assert.True(t, m.Rows()[0].Visible)
	sess.Do(func(s *session.Session) { assert.Equal(t, unit.Ints(1), s.VisibleUnitIDs()) })

	m = press(t, m, keyDown, runes("v"))
	assert.False(t, m.Rows()[1].Visible)
	assert.Contains(t, m.Status(), "already visible")

	m = press(t, m, runes("o"))
	assert.Equal(t, []bool{false, true, false}, visibleFlags(m))

	m = press(t, m, runes("a"))
	assert.Equal(t, []bool{false, false, false}, visibleFlags(m))
}

func visibleFlags(m Model) []bool {
	out := make([]bool, len(m.Rows()))
	for i, r := range m.Rows() {
		out[i] = r.Visible
	}
	return out
}

func TestMergeDeleteRestore(t *testing.T) {
	m, sess := newTestModel(t)

	m = press(t, m, runes("m"))
	assert.Contains(t, m.Status(), "at least two")

	m = press(t, m, keySpace, keyDown, keySpace, runes("m"))
	assert.Equal(t, "merged 2 units", m.Status())
	assert.Empty(t, m.marked)
	assert.Equal(t, 0, m.Rows()[0].Group)
	sess.Do(func(s *session.Session) {
		assert.Equal(t, [][]unit.ID{unit.Ints(1, 2)}, s.MergeGroups())
	})

	m = press(t, m, runes("u"))
	sess.Do(func(s *session.Session) { assert.Empty(t, s.MergeGroups()) })

	m = press(t, m, keyDown, runes("d"))
	assert.Equal(t, "removed", m.Rows()[2].State)

	m = press(t, m, runes("r"))
	assert.Equal(t, "active", m.Rows()[2].State)
}

func TestHideRemoved(t *testing.T) {
	m, sess := newTestModel(t)
	m.showRemoved = false
	sess.Do(func(s *session.Session) { s.Delete(nil, unit.Ints(2)) })

	next, cmd := m.Update(m.view.Wait()())
	m = next.(Model)
	assert.NotNil(t, cmd, "keeps waiting for events")
	require.Len(t, m.Rows(), 2)
	assert.Equal(t, unit.Int(3), m.Rows()[1].ID)
}

func TestCycleLabel(t *testing.T) {
	m, sess := newTestModel(t)
	label := func() map[string][]string {
		var out map[string][]string
		sess.Do(func(s *session.Session) { out = s.Labels(unit.Int(1)) })
		return out
	}

	m = press(t, m, runes("l"))
	assert.Equal(t, map[string][]string{"quality": {"good"}}, label())
	m = press(t, m, runes("l"), runes("l"))
	assert.Equal(t, map[string][]string{"quality": {"MUA"}}, label())
	m = press(t, m, runes("l"))
	assert.Empty(t, label(), "cycles back to unlabelled")
	assert.Empty(t, m.Status())
}

func TestOwnChangesNotEchoed(t *testing.T) {
	m, _ := newTestModel(t)
	m = press(t, m, runes("v"), runes("l"))
	assert.Empty(t, m.view.events)
}

func TestExternalChangeReloads(t *testing.T) {
	m, sess := newTestModel(t)
	sess.Do(func(s *session.Session) { s.Merge(nil, unit.Ints(2, 3)) })

	msg := m.view.Wait()()
	assert.Equal(t, EventMsg{Kind: bus.ManualCurationUpdated}, msg)
	next, _ := m.Update(msg)
	m = next.(Model)
	assert.Equal(t, "merged", m.Rows()[1].State)
}

func TestFocus(t *testing.T) {
	m, sess := newTestModel(t)
	m = press(t, m, runes("f"))
	assert.True(t, m.active)
	sess.Do(func(s *session.Session) { assert.True(t, s.IsActive(m.view)) })
	assert.Contains(t, m.View(), "active")

	next, _ := m.Update(ActiveMsg{Active: false})
	assert.False(t, next.(Model).active)
}

func TestSaveWithoutStore(t *testing.T) {
	m, _ := newTestModel(t)
	m = press(t, m, runes("s"))
	assert.Contains(t, m.Status(), "snapshot store")
}

func TestViewRender(t *testing.T) {
	m, _ := newTestModel(t)
	m = press(t, m, runes("l"))
	out := m.View()
	assert.Contains(t, out, "Units (3)")
	assert.Contains(t, out, "quality=good")

	m = press(t, m, runes("q"))
	assert.True(t, m.quitting)
	assert.Empty(t, m.View())
}

func TestViewQueueDropsWhenFull(t *testing.T) {
	v := NewView(1)
	v.OnUnitVisibilityChanged()
	v.OnManualCurationUpdated()
	assert.Len(t, v.events, 1)
	assert.Equal(t, EventMsg{Kind: bus.UnitVisibilityChanged}, <-v.events)
}

func TestKindRegistration(t *testing.T) {
	r := views.NewRegistry()
	require.NoError(t, r.Register(Kind()))

	v, err := r.Build(config.ViewSpec{Kind: KindTable, Settings: map[string]any{"buffer": 4}}, nil)
	require.NoError(t, err)
	tv, ok := v.(*View)
	require.True(t, ok)
	assert.Equal(t, 4, cap(tv.events))
	assert.True(t, tv.ShowRemoved())

	v, err = r.Build(config.ViewSpec{Kind: KindTable, Settings: map[string]any{"show_removed": false}}, nil)
	require.NoError(t, err)
	assert.False(t, v.(*View).ShowRemoved())

	_, err = r.Build(config.ViewSpec{Kind: KindTable, Settings: map[string]any{"buffer": "big"}}, nil)
	assert.ErrorIs(t, err, config.ErrInvalidSetting)
}
