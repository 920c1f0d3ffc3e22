// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package bus

import "fmt"

// Kind identifies a state change views may react to.
type Kind string

const (
	// SpikeSelectionChanged fires when the selected spikes change.
	SpikeSelectionChanged Kind = "spike_selection_changed"

	// UnitVisibilityChanged fires when the visible unit set changes.
	UnitVisibilityChanged Kind = "unit_visibility_changed"

	// ChannelVisibilityChanged fires when the visible channel set changes.
	ChannelVisibilityChanged Kind = "channel_visibility_changed"

	// ManualCurationUpdated fires after any merge, split, delete, restore,
	// label or import.
	ManualCurationUpdated Kind = "manual_curation_updated"

	// TimeInfoUpdated fires when the shown time window moves.
	TimeInfoUpdated Kind = "time_info_updated"

	// UseTimesUpdated fires when views switch between sample and time axes.
	UseTimesUpdated Kind = "use_times_updated"

	// UnitColorChanged fires when unit colors change.
	UnitColorChanged Kind = "unit_color_changed"
)

var allKinds = []Kind{
	SpikeSelectionChanged,
	UnitVisibilityChanged,
	ChannelVisibilityChanged,
	ManualCurationUpdated,
	TimeInfoUpdated,
	UseTimesUpdated,
	UnitColorChanged,
}

// Kinds returns every event kind in declaration order.
func Kinds() []Kind {
	return append([]Kind(nil), allKinds...)
}

// ParseKind converts a wire name into a Kind.
func ParseKind(s string) (Kind, error) {
	for _, k := range allKinds {
		if string(k) == s {
			return k, nil
		}
	}
	return "", fmt.Errorf("%w: %q", ErrUnknownKind, s)
}
