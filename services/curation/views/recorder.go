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
	"github.com/AleutianAI/spikecurator/services/curation/bus"
)

// KindRecorder is the registry name of Recorder.
const KindRecorder = "recorder"

// ActiveViewUpdated marks an active-flag change in a Recorder's log.
const ActiveViewUpdated bus.Kind = "active_view_updated"

// Record is one callback a Recorder received.
type Record struct {
	Kind bus.Kind

	// Active is the new flag for ActiveViewUpdated records.
	Active bool
}

// Recorder is a headless view that logs every callback it receives.
//
// The CLI uses it to report dispatch activity, and tests use it as a spy.
// The log keeps the newest capacity records; capacity <= 0 keeps all.
type Recorder struct {
	id        string
	capacity  int
	records   []Record
	refreshes int
	active    bool
}

// NewRecorder creates a recorder with a fresh id.
func NewRecorder(capacity int) *Recorder {
	return &Recorder{id: NewID(KindRecorder), capacity: capacity}
}

// ViewID implements bus.View.
func (r *Recorder) ViewID() string { return r.id }

// Records returns a copy of the log, oldest first.
func (r *Recorder) Records() []Record {
	return append([]Record(nil), r.records...)
}

// Kinds returns the kinds of the logged records, oldest first.
func (r *Recorder) Kinds() []bus.Kind {
	out := make([]bus.Kind, len(r.records))
	for i, rec := range r.records {
		out[i] = rec.Kind
	}
	return out
}

// Count returns how many logged records have kind k.
func (r *Recorder) Count(k bus.Kind) int {
	n := 0
	for _, rec := range r.records {
		if rec.Kind == k {
			n++
		}
	}
	return n
}

// Reset clears the log and the refresh count.
func (r *Recorder) Reset() {
	r.records = nil
	r.refreshes = 0
}

// Refresh implements Refresher.
func (r *Recorder) Refresh() { r.refreshes++ }

// Refreshes returns how many times Refresh ran.
func (r *Recorder) Refreshes() int { return r.refreshes }

// Active reports the last active flag the bus set.
func (r *Recorder) Active() bool { return r.active }

func (r *Recorder) OnSpikeSelectionChanged()    { r.add(Record{Kind: bus.SpikeSelectionChanged}) }
func (r *Recorder) OnUnitVisibilityChanged()    { r.add(Record{Kind: bus.UnitVisibilityChanged}) }
func (r *Recorder) OnChannelVisibilityChanged() { r.add(Record{Kind: bus.ChannelVisibilityChanged}) }
func (r *Recorder) OnManualCurationUpdated()    { r.add(Record{Kind: bus.ManualCurationUpdated}) }
func (r *Recorder) OnTimeInfoUpdated()          { r.add(Record{Kind: bus.TimeInfoUpdated}) }
func (r *Recorder) OnUseTimesUpdated()          { r.add(Record{Kind: bus.UseTimesUpdated}) }
func (r *Recorder) OnUnitColorChanged()         { r.add(Record{Kind: bus.UnitColorChanged}) }

func (r *Recorder) OnActiveChanged(active bool) {
	r.active = active
	r.add(Record{Kind: ActiveViewUpdated, Active: active})
}

func (r *Recorder) add(rec Record) {
	r.records = append(r.records, rec)
	if r.capacity > 0 && len(r.records) > r.capacity {
		r.records = r.records[len(r.records)-r.capacity:]
	}
}
