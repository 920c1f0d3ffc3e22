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

import "slices"

// Direct calls listeners synchronously from Emit.
type Direct struct {
	core
}

var _ Bus = (*Direct)(nil)

// NewDirect creates a Direct bus.
func NewDirect(opts ...Option) *Direct {
	return &Direct{core: newCore(AdapterDirect, opts)}
}

// Register adds a view at the end of the delivery order.
func (d *Direct) Register(v View) error { return d.register(v) }

// Unregister removes a view.
func (d *Direct) Unregister(v View) bool { return d.unregister(v) }

// Emit notifies every registered view except origin.
//
// Views unregistered by an earlier listener during the same fan-out are
// skipped; views registered during it wait for the next event.
func (d *Direct) Emit(kind Kind, origin View) {
	d.emit(kind, origin, func(originID string) {
		reached := 0
		for _, v := range slices.Clone(d.views) {
			id := v.ViewID()
			if id == originID || !d.registered(id) {
				continue
			}
			if d.deliver(v, kind) {
				reached++
			}
		}
		observeFanout(reached)
	})
}
