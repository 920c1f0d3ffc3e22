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

// View is anything that can be registered on a Bus.
//
// A view opts into events by also implementing one or more of the listener
// interfaces below. The Bus checks them with type assertions; a view that
// does not implement the listener for an event is skipped for it.
type View interface {
	// ViewID identifies the view. Must be unique on one Bus.
	ViewID() string
}

// SpikeSelectionListener receives SpikeSelectionChanged.
type SpikeSelectionListener interface {
	OnSpikeSelectionChanged()
}

// UnitVisibilityListener receives UnitVisibilityChanged.
type UnitVisibilityListener interface {
	OnUnitVisibilityChanged()
}

// ChannelVisibilityListener receives ChannelVisibilityChanged.
type ChannelVisibilityListener interface {
	OnChannelVisibilityChanged()
}

// ManualCurationListener receives ManualCurationUpdated.
type ManualCurationListener interface {
	OnManualCurationUpdated()
}

// TimeInfoListener receives TimeInfoUpdated.
type TimeInfoListener interface {
	OnTimeInfoUpdated()
}

// UseTimesListener receives UseTimesUpdated.
type UseTimesListener interface {
	OnUseTimesUpdated()
}

// UnitColorListener receives UnitColorChanged.
type UnitColorListener interface {
	OnUnitColorChanged()
}

// ActiveListener is told when the view gains or loses the active flag.
type ActiveListener interface {
	OnActiveChanged(active bool)
}

// listenerFor returns the callback v provides for kind, or nil.
func listenerFor(v View, kind Kind) func() {
	switch kind {
	case SpikeSelectionChanged:
		if l, ok := v.(SpikeSelectionListener); ok {
			return l.OnSpikeSelectionChanged
		}
	case UnitVisibilityChanged:
		if l, ok := v.(UnitVisibilityListener); ok {
			return l.OnUnitVisibilityChanged
		}
	case ChannelVisibilityChanged:
		if l, ok := v.(ChannelVisibilityListener); ok {
			return l.OnChannelVisibilityChanged
		}
	case ManualCurationUpdated:
		if l, ok := v.(ManualCurationListener); ok {
			return l.OnManualCurationUpdated
		}
	case TimeInfoUpdated:
		if l, ok := v.(TimeInfoListener); ok {
			return l.OnTimeInfoUpdated
		}
	case UseTimesUpdated:
		if l, ok := v.(UseTimesListener); ok {
			return l.OnUseTimesUpdated
		}
	case UnitColorChanged:
		if l, ok := v.(UnitColorListener); ok {
			return l.OnUnitColorChanged
		}
	}
	return nil
}
