// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package tui provides an interactive terminal unit table for curation.
//
// # Description
//
// The table lists every unit with its state, visibility, merge group and
// labels. Keys toggle visibility, merge, delete, restore and label units.
// The table is a bus view: changes made elsewhere (HTTP clients, a watched
// curation file) redraw it, and changes made from the table are not echoed
// back to it.
//
// # Thread Safety
//
// View is fed from whichever goroutine mutates the session and forwards to
// the bubbletea loop over a channel. Model is used only inside the
// bubbletea event loop and reaches the session through Session.Do.
package tui

import (
	tea "github.com/charmbracelet/bubbletea"

	"github.com/AleutianAI/spikecurator/services/curation/bus"
	"github.com/AleutianAI/spikecurator/services/curation/config"
	"github.com/AleutianAI/spikecurator/services/curation/views"
)

// KindTable names the terminal table view kind.
const KindTable = "tui"

// EventMsg tells the model the session changed.
type EventMsg struct {
	Kind bus.Kind
}

// ActiveMsg tells the model whether its view is the active one.
type ActiveMsg struct {
	Active bool
}

// View is the bus side of the terminal table. Notifications are queued
// without blocking; when the queue is full the event is dropped, since any
// queued event already triggers a full reload.
type View struct {
	id          string
	events      chan tea.Msg
	showRemoved bool
}

// NewView creates a view with a queue of the given length that lists
// removed units.
func NewView(buffer int) *View {
	if buffer < 1 {
		buffer = 1
	}
	return &View{
		id:          views.NewID(KindTable),
		events:      make(chan tea.Msg, buffer),
		showRemoved: true,
	}
}

// ShowRemoved reports whether removed units are listed.
func (v *View) ShowRemoved() bool { return v.showRemoved }

// ViewID implements bus.View.
func (v *View) ViewID() string { return v.id }

func (v *View) post(msg tea.Msg) {
	select {
	case v.events <- msg:
	default:
	}
}

func (v *View) event(k bus.Kind) { v.post(EventMsg{Kind: k}) }

// Refresh implements views.Refresher.
func (v *View) Refresh() { v.post(EventMsg{}) }

func (v *View) OnUnitVisibilityChanged() { v.event(bus.UnitVisibilityChanged) }
func (v *View) OnSpikeSelectionChanged() { v.event(bus.SpikeSelectionChanged) }
func (v *View) OnManualCurationUpdated() { v.event(bus.ManualCurationUpdated) }
func (v *View) OnUnitColorChanged()      { v.event(bus.UnitColorChanged) }

func (v *View) OnActiveChanged(active bool) { v.post(ActiveMsg{Active: active}) }

// Wait returns a command that delivers the next queued notification.
func (v *View) Wait() tea.Cmd {
	return func() tea.Msg {
		return <-v.events
	}
}

// Kind returns the registry entry for the terminal table.
//
// Settings:
//
//	buffer       - notification queue length (default 16)
//	show_removed - list removed units (default true)
func Kind() views.Kind {
	return views.Kind{
		Name: KindTable,
		Defaults: map[string]any{
			"buffer":       16,
			"show_removed": true,
		},
		New: func(s *config.ViewSettings, _ views.State) (bus.View, error) {
			v := NewView(s.Int("buffer"))
			v.showRemoved = s.Bool("show_removed")
			return v, nil
		},
	}
}
