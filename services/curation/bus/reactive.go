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

// Notification is the value published on a Reactive bus.
type Notification struct {
	Kind Kind

	// Origin is the id of the emitting view, "" when engine originated.
	Origin string

	// Seq increases by one per published notification.
	Seq uint64
}

// Property is an observable value. Set stores the value and then calls
// every watcher synchronously in the order they subscribed.
type Property[T any] struct {
	value    T
	watchers []watcher[T]
}

type watcher[T any] struct {
	id string
	fn func(T)
}

// Get returns the last value set.
func (p *Property[T]) Get() T { return p.value }

// Set stores v and notifies the watchers.
func (p *Property[T]) Set(v T) {
	p.value = v
	for _, w := range slices.Clone(p.watchers) {
		w.fn(v)
	}
}

// Watch subscribes fn under id.
func (p *Property[T]) Watch(id string, fn func(T)) {
	p.watchers = append(p.watchers, watcher[T]{id: id, fn: fn})
}

// Unwatch drops the watcher registered under id.
func (p *Property[T]) Unwatch(id string) bool {
	n := len(p.watchers)
	p.watchers = slices.DeleteFunc(p.watchers, func(w watcher[T]) bool { return w.id == id })
	return len(p.watchers) < n
}

// Reactive publishes each event into an observable Notification property.
// Every registered view owns a watcher on it that skips the view's own
// notifications and forwards the rest to its listeners.
type Reactive struct {
	core
	current Property[Notification]
	seq     uint64
	reached int
}

var _ Bus = (*Reactive)(nil)

// NewReactive creates a Reactive bus.
func NewReactive(opts ...Option) *Reactive {
	return &Reactive{core: newCore(AdapterReactive, opts)}
}

// Register adds a view and subscribes its watcher.
func (r *Reactive) Register(v View) error {
	if err := r.register(v); err != nil {
		return err
	}
	id := v.ViewID()
	r.current.Watch(id, func(n Notification) {
		if n.Origin == id || !r.registered(id) {
			return
		}
		if r.deliver(v, n.Kind) {
			r.reached++
		}
	})
	return nil
}

// Unregister removes a view and its watcher.
func (r *Reactive) Unregister(v View) bool {
	if !r.unregister(v) {
		return false
	}
	r.current.Unwatch(v.ViewID())
	return true
}

// Emit publishes a notification to the watchers.
func (r *Reactive) Emit(kind Kind, origin View) {
	r.emit(kind, origin, func(originID string) {
		outer := r.reached
		r.reached = 0
		r.seq++
		r.current.Set(Notification{Kind: kind, Origin: originID, Seq: r.seq})
		observeFanout(r.reached)
		r.reached = outer
	})
}

// Last returns the most recently published notification.
func (r *Reactive) Last() Notification { return r.current.Get() }
