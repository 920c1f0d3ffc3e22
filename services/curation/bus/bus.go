// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package bus fans state-change notifications out to registered views.
//
// Every registered view except the one that caused a change receives the
// notification once, in registration order. The originating view already
// reflects its own change and is skipped. A nil origin reaches everyone.
//
// # Suppression
//
// Between Deactivate and Activate, Emit drops events. They are not queued.
// Callers use this window when registering a batch of views that each
// refresh themselves once.
//
// # Active View
//
// Exactly one view may be active (the one with keyboard focus).
// NotifyActiveView is never suppressed.
//
// # Re-entrancy
//
// A listener may emit. Nested events are dispatched synchronously before
// the outer fan-out continues. Events nested deeper than the configured
// limit are dropped and logged, so a listener cycle ends.
//
// # Thread Safety
//
// A Bus is not safe for concurrent use. Drive it from one goroutine.
package bus

import (
	"fmt"
	"log/slog"
	"slices"
)

// DefaultMaxDepth is the default nesting limit for re-entrant emits.
const DefaultMaxDepth = 16

// Adapter names accepted by New.
const (
	AdapterDirect   = "direct"
	AdapterReactive = "reactive"
)

// Bus is the notification hub shared by all views of a session.
type Bus interface {
	// Register adds a view at the end of the delivery order.
	Register(v View) error

	// Unregister removes a view. Returns false when it was not registered.
	Unregister(v View) bool

	// Emit notifies every registered view except origin. origin may be nil.
	Emit(kind Kind, origin View)

	// Deactivate starts dropping events.
	Deactivate()

	// Activate stops dropping events.
	Activate()

	// Suppressed reports whether events are currently dropped.
	Suppressed() bool

	// NotifyActiveView makes v the only active view.
	NotifyActiveView(v View)

	// IsActive reports whether v is the active view.
	IsActive(v View) bool

	// ActiveView returns the active view, or nil.
	ActiveView() View

	// Views returns the registered views in delivery order.
	Views() []View
}

// Option configures a Bus.
type Option func(*options)

type options struct {
	maxDepth int
	logger   *slog.Logger
}

// WithMaxDepth sets the re-entrant emit nesting limit. Values below one
// are ignored.
func WithMaxDepth(n int) Option {
	return func(o *options) {
		if n >= 1 {
			o.maxDepth = n
		}
	}
}

// WithLogger sets the logger for dropped events and listener panics.
func WithLogger(logger *slog.Logger) Option {
	return func(o *options) { o.logger = logger }
}

// New builds a Bus by adapter name ("direct" or "reactive"). An empty
// name selects direct.
func New(adapter string, opts ...Option) (Bus, error) {
	switch adapter {
	case "", AdapterDirect:
		return NewDirect(opts...), nil
	case AdapterReactive:
		return NewReactive(opts...), nil
	}
	return nil, fmt.Errorf("%w: %q", ErrUnknownAdapter, adapter)
}

// core holds registration, suppression and active-view state shared by
// both adapters.
type core struct {
	adapter string
	views   []View
	ids     map[string]struct{}
	active  string

	suppressed bool
	depth      int
	maxDepth   int

	logger *slog.Logger
}

func newCore(adapter string, opts []Option) core {
	o := options{maxDepth: DefaultMaxDepth, logger: slog.Default()}
	for _, opt := range opts {
		opt(&o)
	}
	return core{
		adapter:  adapter,
		ids:      make(map[string]struct{}),
		maxDepth: o.maxDepth,
		logger:   o.logger,
	}
}

func (c *core) register(v View) error {
	if v == nil || v.ViewID() == "" {
		return ErrInvalidView
	}
	id := v.ViewID()
	if _, dup := c.ids[id]; dup {
		return fmt.Errorf("%w: %s", ErrDuplicateView, id)
	}
	c.ids[id] = struct{}{}
	c.views = append(c.views, v)
	return nil
}

func (c *core) unregister(v View) bool {
	if v == nil {
		return false
	}
	id := v.ViewID()
	if _, ok := c.ids[id]; !ok {
		return false
	}
	delete(c.ids, id)
	c.views = slices.DeleteFunc(c.views, func(w View) bool { return w.ViewID() == id })
	if c.active == id {
		c.active = ""
	}
	return true
}

func (c *core) registered(id string) bool {
	_, ok := c.ids[id]
	return ok
}

// Deactivate starts dropping events.
func (c *core) Deactivate() { c.suppressed = true }

// Activate stops dropping events.
func (c *core) Activate() { c.suppressed = false }

// Suppressed reports whether events are dropped.
func (c *core) Suppressed() bool { return c.suppressed }

// Views returns the registered views in delivery order.
func (c *core) Views() []View { return slices.Clone(c.views) }

// NotifyActiveView makes v the active view and tells the views whose flag
// changed. Unregistered views are ignored.
func (c *core) NotifyActiveView(v View) {
	if v == nil {
		return
	}
	id := v.ViewID()
	if !c.registered(id) {
		c.logger.Debug("active view not registered", slog.String("view_id", id))
		return
	}
	if c.active == id {
		return
	}
	prev := c.active
	c.active = id
	for _, w := range slices.Clone(c.views) {
		switch w.ViewID() {
		case prev:
			c.tellActive(w, false)
		case id:
			c.tellActive(w, true)
		}
	}
}

// IsActive reports whether v is the active view.
func (c *core) IsActive(v View) bool {
	return v != nil && c.active != "" && v.ViewID() == c.active
}

// ActiveView returns the active view, or nil.
func (c *core) ActiveView() View {
	if c.active == "" {
		return nil
	}
	for _, v := range c.views {
		if v.ViewID() == c.active {
			return v
		}
	}
	return nil
}

// emit applies suppression and the depth limit, then runs dispatch with
// the origin's id ("" for none).
func (c *core) emit(kind Kind, origin View, dispatch func(originID string)) {
	if c.suppressed {
		droppedTotal.WithLabelValues(string(kind), "suppressed").Inc()
		return
	}
	if c.depth >= c.maxDepth {
		droppedTotal.WithLabelValues(string(kind), "depth").Inc()
		c.logger.Warn("event dropped, dispatch nesting limit reached",
			slog.String("event", string(kind)),
			slog.Int("max_depth", c.maxDepth),
			slog.String("origin", originID(origin)),
		)
		return
	}

	c.depth++
	defer func() { c.depth-- }()

	emittedTotal.WithLabelValues(string(kind), c.adapter).Inc()
	dispatch(originID(origin))
}

// deliver calls v's listener for kind, recovering panics. Returns whether
// v listens for kind.
func (c *core) deliver(v View, kind Kind) bool {
	cb := listenerFor(v, kind)
	if cb == nil {
		return false
	}
	defer func() {
		if r := recover(); r != nil {
			panicsTotal.WithLabelValues(string(kind)).Inc()
			c.logger.Error("view handler panicked",
				slog.String("event", string(kind)),
				slog.String("view_id", v.ViewID()),
				slog.Any("panic", r),
			)
		}
	}()
	deliveredTotal.WithLabelValues(string(kind)).Inc()
	cb()
	return true
}

func (c *core) tellActive(v View, active bool) {
	l, ok := v.(ActiveListener)
	if !ok {
		return
	}
	defer func() {
		if r := recover(); r != nil {
			c.logger.Error("view handler panicked",
				slog.String("event", "active_view_updated"),
				slog.String("view_id", v.ViewID()),
				slog.Any("panic", r),
			)
		}
	}()
	l.OnActiveChanged(active)
}

func originID(v View) string {
	if v == nil {
		return ""
	}
	return v.ViewID()
}
