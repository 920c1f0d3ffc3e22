// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package views holds the view-kind registry and the built-in headless
// views.
//
// A view kind pairs a name with its settings defaults and a factory. The
// configuration lists views by kind name; Registry.Build turns one entry
// into a bus.View. Built-in kinds are installed on first use.
//
// # Thread Safety
//
// Registry is safe for concurrent use. Views are driven by the session
// goroutine and are not.
package views

import (
	"fmt"
	"sort"
	"sync"

	"github.com/google/uuid"

	"github.com/AleutianAI/spikecurator/services/curation/bus"
	"github.com/AleutianAI/spikecurator/services/curation/config"
	"github.com/AleutianAI/spikecurator/services/curation/ledger"
	"github.com/AleutianAI/spikecurator/services/curation/unit"
)

// State is the read side of a session, as views see it.
type State interface {
	UnitIDs() []unit.ID
	VisibleUnitIDs() []unit.ID
	SelectedSpikeIndices() []int
	SelectedUnitIDs() []unit.ID
	MergeGroups() [][]unit.ID
	Removed() []unit.ID
	UnitState(id unit.ID) ledger.State
	Labels(id unit.ID) map[string][]string
	SpikeCount(id unit.ID) int
	Color(id unit.ID) string
}

// Refresher is implemented by views that redraw from State. The session
// calls Refresh once after registering the view.
type Refresher interface {
	Refresh()
}

// Factory creates a view from its resolved settings.
type Factory func(settings *config.ViewSettings, state State) (bus.View, error)

// Kind describes one view kind.
type Kind struct {
	// Name is the key used in configuration files.
	Name string

	// Defaults declares every setting the kind accepts, with its type.
	Defaults map[string]any

	New Factory
}

// Registry maps kind names to kinds.
type Registry struct {
	once  sync.Once
	mu    sync.RWMutex
	kinds map[string]Kind
}

// NewRegistry creates a registry. Built-in kinds are added on first use.
func NewRegistry() *Registry {
	return &Registry{}
}

func (r *Registry) init() {
	r.once.Do(func() {
		r.kinds = make(map[string]Kind)
		for _, k := range builtinKinds() {
			r.kinds[k.Name] = k
		}
	})
}

// Register adds a kind.
//
// Outputs:
//
//	error - ErrInvalidKind when Name or New is empty, ErrDuplicateKind when
//	  the name is taken.
func (r *Registry) Register(k Kind) error {
	if k.Name == "" || k.New == nil {
		return fmt.Errorf("%w: %q", ErrInvalidKind, k.Name)
	}
	r.init()
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.kinds[k.Name]; ok {
		return fmt.Errorf("%w: %q", ErrDuplicateKind, k.Name)
	}
	r.kinds[k.Name] = k
	return nil
}

// Lookup returns the kind registered under name.
func (r *Registry) Lookup(name string) (Kind, error) {
	r.init()
	r.mu.RLock()
	defer r.mu.RUnlock()
	k, ok := r.kinds[name]
	if !ok {
		return Kind{}, fmt.Errorf("%w: %q", ErrUnknownView, name)
	}
	return k, nil
}

// Names returns the registered kind names, sorted.
func (r *Registry) Names() []string {
	r.init()
	r.mu.RLock()
	defer r.mu.RUnlock()
	names := make([]string, 0, len(r.kinds))
	for name := range r.kinds {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Build creates the view described by spec.
//
// Outputs:
//
//	bus.View - The new view, not yet registered on any bus.
//	error - ErrUnknownView for an unknown kind, config.ErrUnknownSetting or
//	  config.ErrInvalidSetting for a bad setting, or the factory's error.
func (r *Registry) Build(spec config.ViewSpec, state State) (bus.View, error) {
	k, err := r.Lookup(spec.Kind)
	if err != nil {
		return nil, err
	}
	settings := config.NewViewSettings(k.Name, k.Defaults)
	if err := settings.Apply(spec.Settings); err != nil {
		return nil, fmt.Errorf("view %q: %w", k.Name, err)
	}
	v, err := k.New(settings, state)
	if err != nil {
		return nil, fmt.Errorf("view %q: %w", k.Name, err)
	}
	return v, nil
}

// BuildAll builds every spec in order, stopping at the first error.
func (r *Registry) BuildAll(specs []config.ViewSpec, state State) ([]bus.View, error) {
	out := make([]bus.View, 0, len(specs))
	for i, spec := range specs {
		v, err := r.Build(spec, state)
		if err != nil {
			return nil, fmt.Errorf("views[%d]: %w", i, err)
		}
		out = append(out, v)
	}
	return out, nil
}

// NewID returns a unique view id prefixed with the kind name.
func NewID(kind string) string {
	return kind + "-" + uuid.NewString()
}

func builtinKinds() []Kind {
	return []Kind{
		{
			Name:     KindRecorder,
			Defaults: map[string]any{"capacity": 256},
			New: func(s *config.ViewSettings, _ State) (bus.View, error) {
				return NewRecorder(s.Int("capacity")), nil
			},
		},
		{
			Name: KindSummary,
			Defaults: map[string]any{
				"title":        "summary",
				"count_labels": true,
			},
			New: func(s *config.ViewSettings, st State) (bus.View, error) {
				if st == nil {
					return nil, fmt.Errorf("summary view needs session state")
				}
				return NewSummary(st, s.String("title"), s.Bool("count_labels")), nil
			},
		},
	}
}
