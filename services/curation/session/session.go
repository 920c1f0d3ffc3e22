// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package session wires the curation engine together.
//
// A Session owns one spike index, its visibility controller, the curation
// ledger and the notification bus. Each mutating method applies the change
// and then emits the matching event with the calling view as origin, so
// every other view refreshes and the caller does not.
//
// # Thread Safety
//
// Session methods are not safe for concurrent use. Outer surfaces that
// accept concurrent requests (HTTP, websocket readers, file watchers,
// terminal views) wrap every access in Session.Do.
package session

import (
	"log/slog"
	"sync"

	"github.com/google/uuid"

	"github.com/AleutianAI/spikecurator/services/curation/bus"
	"github.com/AleutianAI/spikecurator/services/curation/config"
	"github.com/AleutianAI/spikecurator/services/curation/ledger"
	"github.com/AleutianAI/spikecurator/services/curation/spikeindex"
	"github.com/AleutianAI/spikecurator/services/curation/unit"
	"github.com/AleutianAI/spikecurator/services/curation/views"
	"github.com/AleutianAI/spikecurator/services/curation/visibility"
)

// DefaultSnapshotKey is the snapshot key used when none is configured.
const DefaultSnapshotKey = "default"

// Session is the engine façade shared by all views.
type Session struct {
	mu sync.Mutex

	id        string
	store     *spikeindex.Store
	vis       *visibility.Controller
	ledger    *ledger.Ledger
	bus       bus.Bus
	registry  *views.Registry
	snapshots SnapshotStore
	key       string
	logger    *slog.Logger

	channels   []int
	colors     map[unit.ID]string
	useTimes   bool
	timeWindow TimeWindow
}

// Option configures a Session.
type Option func(*options)

type options struct {
	logger     *slog.Logger
	bus        bus.Bus
	registry   *views.Registry
	snapshots  SnapshotStore
	key        string
	maxVisible int
	defs       map[string]ledger.LabelDefinition
}

// WithLogger sets the logger handed to every component.
func WithLogger(logger *slog.Logger) Option {
	return func(o *options) { o.logger = logger }
}

// WithBus sets the notification bus. Defaults to a direct bus.
func WithBus(b bus.Bus) Option {
	return func(o *options) { o.bus = b }
}

// WithRegistry sets the view registry used by StartViews.
func WithRegistry(r *views.Registry) Option {
	return func(o *options) { o.registry = r }
}

// WithSnapshotStore enables Save and Load under key. An empty key means
// DefaultSnapshotKey.
func WithSnapshotStore(s SnapshotStore, key string) Option {
	return func(o *options) {
		o.snapshots = s
		if key != "" {
			o.key = key
		}
	}
}

// WithMaxVisibleUnits sets the visibility cap.
func WithMaxVisibleUnits(n int) Option {
	return func(o *options) { o.maxVisible = n }
}

// WithLabelDefinitions replaces the default label categories.
func WithLabelDefinitions(defs map[string]ledger.LabelDefinition) Option {
	return func(o *options) { o.defs = defs }
}

func collect(opts []Option) options {
	o := options{logger: slog.Default(), key: DefaultSnapshotKey}
	for _, opt := range opts {
		opt(&o)
	}
	return o
}

// New creates a session over store.
//
// Outputs:
//
//	*Session - A session with no views, no visible units and an empty
//	  ledger.
//	error - ErrNoStore when store is nil.
func New(store *spikeindex.Store, opts ...Option) (*Session, error) {
	if store == nil {
		return nil, ErrNoStore
	}
	o := collect(opts)
	if o.bus == nil {
		o.bus = bus.NewDirect(bus.WithLogger(o.logger))
	}
	if o.registry == nil {
		o.registry = views.NewRegistry()
	}

	s := &Session{
		id:        uuid.NewString(),
		store:     store,
		vis:       visibility.New(store, visibility.WithMaxVisibleUnits(o.maxVisible), visibility.WithLogger(o.logger)),
		ledger:    ledger.New(store.UnitIDs(), o.defs, ledger.WithLogger(o.logger)),
		bus:       o.bus,
		registry:  o.registry,
		snapshots: o.snapshots,
		key:       o.key,
		colors:    make(map[unit.ID]string),
	}
	s.logger = o.logger.With(slog.String("session_id", s.id))
	return s, nil
}

// FromConfig creates a session using the bus adapter, visibility cap and
// label definitions of cfg. Options override the configuration.
func FromConfig(store *spikeindex.Store, cfg *config.Config, opts ...Option) (*Session, error) {
	o := collect(opts)
	base := []Option{
		WithMaxVisibleUnits(cfg.MaxVisibleUnits),
		WithLabelDefinitions(cfg.LabelDefinitions),
	}
	if o.bus == nil {
		b, err := bus.New(cfg.Bus, bus.WithMaxDepth(cfg.MaxDispatchDepth), bus.WithLogger(o.logger))
		if err != nil {
			return nil, err
		}
		base = append(base, WithBus(b))
	}
	return New(store, append(base, opts...)...)
}

// Do runs fn with exclusive access to the session. Do is not re-entrant:
// fn and the views it notifies must not call Do.
func (s *Session) Do(fn func(s *Session)) {
	s.mu.Lock()
	defer s.mu.Unlock()
	fn(s)
}

// ID returns the session's unique id.
func (s *Session) ID() string { return s.id }

// Store returns the spike index.
func (s *Session) Store() *spikeindex.Store { return s.store }

// Visibility returns the visibility controller. Mutating it directly
// bypasses notifications.
func (s *Session) Visibility() *visibility.Controller { return s.vis }

// Ledger returns the curation ledger. Mutating it directly bypasses
// notifications.
func (s *Session) Ledger() *ledger.Ledger { return s.ledger }

// Bus returns the notification bus.
func (s *Session) Bus() bus.Bus { return s.bus }

// Registry returns the view registry.
func (s *Session) Registry() *views.Registry { return s.registry }
