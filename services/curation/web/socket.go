// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package web

import (
	"log/slog"
	"time"

	"github.com/gorilla/websocket"

	"github.com/AleutianAI/spikecurator/services/curation/bus"
	"github.com/AleutianAI/spikecurator/services/curation/views"
)

const (
	// KindSocket is the view kind name of socket views.
	KindSocket = "socket"

	writeTimeout = 10 * time.Second
)

// SocketView is a bus view backed by one websocket client.
//
// Callbacks run on the session goroutine with the handler lock held. They
// only queue a Message; a separate goroutine writes to the connection. A
// full queue drops the message.
type SocketView struct {
	id      string
	send    chan Message
	seq     uint64
	dropped int
	logger  *slog.Logger
}

func newSocketView(buffer int, logger *slog.Logger) *SocketView {
	v := &SocketView{
		id:   views.NewID(KindSocket),
		send: make(chan Message, buffer),
	}
	v.logger = logger.With("view_id", v.id)
	return v
}

// ViewID implements bus.View.
func (v *SocketView) ViewID() string { return v.id }

// Dropped returns how many messages were dropped on a full queue.
func (v *SocketView) Dropped() int { return v.dropped }

func (v *SocketView) push(m Message) {
	v.seq++
	m.Seq = v.seq
	select {
	case v.send <- m:
		socketMessages.WithLabelValues(m.Event).Inc()
	default:
		v.dropped++
		socketDropped.Inc()
		v.logger.Warn("socket queue full, message dropped", "event", m.Event)
	}
}

func (v *SocketView) event(k bus.Kind) { v.push(Message{Event: string(k)}) }

// Refresh implements views.Refresher by asking the client to reload state.
func (v *SocketView) Refresh() { v.push(Message{Event: "refresh"}) }

func (v *SocketView) OnSpikeSelectionChanged()    { v.event(bus.SpikeSelectionChanged) }
func (v *SocketView) OnUnitVisibilityChanged()    { v.event(bus.UnitVisibilityChanged) }
func (v *SocketView) OnChannelVisibilityChanged() { v.event(bus.ChannelVisibilityChanged) }
func (v *SocketView) OnManualCurationUpdated()    { v.event(bus.ManualCurationUpdated) }
func (v *SocketView) OnTimeInfoUpdated()          { v.event(bus.TimeInfoUpdated) }
func (v *SocketView) OnUseTimesUpdated()          { v.event(bus.UseTimesUpdated) }
func (v *SocketView) OnUnitColorChanged()         { v.event(bus.UnitColorChanged) }

func (v *SocketView) OnActiveChanged(active bool) {
	v.push(Message{Event: string(views.ActiveViewUpdated), Active: &active})
}

// writeLoop drains the queue to conn until the queue is closed. After a
// write error it keeps draining without writing.
func (v *SocketView) writeLoop(conn *websocket.Conn) {
	broken := false
	for m := range v.send {
		if broken {
			continue
		}
		_ = conn.SetWriteDeadline(time.Now().Add(writeTimeout))
		if err := conn.WriteJSON(m); err != nil {
			v.logger.Debug("socket write failed", "error", err)
			broken = true
		}
	}
}
