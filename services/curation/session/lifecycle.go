// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package session

import (
	"fmt"

	"github.com/AleutianAI/spikecurator/services/curation/bus"
	"github.com/AleutianAI/spikecurator/services/curation/config"
	"github.com/AleutianAI/spikecurator/services/curation/views"
)

// Start registers a batch of views and gives each its initial refresh.
//
// Description:
//
//	The bus is deactivated for the whole batch, so events a view emits
//	while refreshing reach nobody. When the bus is already suppressed the
//	caller owns that window and Start leaves it closed. Each view that implements
//	views.Refresher is refreshed exactly once. When a registration fails,
//	views registered by this call are removed again.
//
// Outputs:
//
//	error - The first registration error, wrapping bus.ErrInvalidView or
//	  bus.ErrDuplicateView.
func (s *Session) Start(vs ...bus.View) error {
	if !s.bus.Suppressed() {
		s.bus.Deactivate()
		defer s.bus.Activate()
	}

	for i, v := range vs {
		if err := s.bus.Register(v); err != nil {
			for _, done := range vs[:i] {
				s.bus.Unregister(done)
			}
			return fmt.Errorf("start views: %w", err)
		}
	}
	for _, v := range vs {
		if r, ok := v.(views.Refresher); ok {
			r.Refresh()
		}
	}
	s.logger.Debug("views started", "count", len(vs))
	return nil
}

// StartViews builds views from specs with the session's registry and
// starts them.
func (s *Session) StartViews(specs []config.ViewSpec) ([]bus.View, error) {
	vs, err := s.registry.BuildAll(specs, s)
	if err != nil {
		return nil, err
	}
	if err := s.Start(vs...); err != nil {
		return nil, err
	}
	return vs, nil
}

// AddView registers one view after start-up and refreshes it.
func (s *Session) AddView(v bus.View) error {
	return s.Start(v)
}

// RemoveView unregisters v. Returns false when it was not registered.
func (s *Session) RemoveView(v bus.View) bool {
	return s.bus.Unregister(v)
}

// Views returns the registered views in delivery order.
func (s *Session) Views() []bus.View { return s.bus.Views() }

// Focus makes v the active view.
func (s *Session) Focus(v bus.View) { s.bus.NotifyActiveView(v) }

// IsActive reports whether v is the active view.
func (s *Session) IsActive(v bus.View) bool { return s.bus.IsActive(v) }
