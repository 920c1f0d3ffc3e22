// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package web exposes a curation session over HTTP and websockets.
//
// REST endpoints under /v1/curation call session operations. Each
// websocket client is registered as a view and receives one message per
// notification the session emits. A request that names its socket view in
// the X-View-ID header is the origin of the change, so that socket is not
// told about it.
//
// # Thread Safety
//
// Handlers serialize every session access through Session.Do.
package web

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"

	"github.com/AleutianAI/spikecurator/services/curation/bus"
	"github.com/AleutianAI/spikecurator/services/curation/ledger"
	"github.com/AleutianAI/spikecurator/services/curation/session"
	"github.com/AleutianAI/spikecurator/services/curation/storage"
	"github.com/AleutianAI/spikecurator/services/curation/telemetry"
	"github.com/AleutianAI/spikecurator/services/curation/unit"
)

// DefaultSocketBuffer is the per-socket message queue length.
const DefaultSocketBuffer = 64

// Handlers serves one session.
type Handlers struct {
	sess     *session.Session
	logger   *slog.Logger
	upgrader websocket.Upgrader
	buffer   int
}

// Option configures Handlers.
type Option func(*Handlers)

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(h *Handlers) { h.logger = logger }
}

// WithSocketBuffer sets the per-socket queue length.
func WithSocketBuffer(n int) Option {
	return func(h *Handlers) {
		if n > 0 {
			h.buffer = n
		}
	}
}

// WithCheckOrigin sets the websocket origin check. The default accepts
// same-host origins only.
func WithCheckOrigin(fn func(r *http.Request) bool) Option {
	return func(h *Handlers) { h.upgrader.CheckOrigin = fn }
}

// NewHandlers creates handlers for sess.
func NewHandlers(sess *session.Session, opts ...Option) *Handlers {
	h := &Handlers{
		sess:   sess,
		logger: slog.Default(),
		buffer: DefaultSocketBuffer,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  4096,
			WriteBufferSize: 4096,
		},
	}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

// Do runs fn with exclusive access to the session.
func (h *Handlers) Do(fn func(s *session.Session)) { h.sess.Do(fn) }

// originOf returns the registered view named by the request header, or
// nil. Call with the lock held.
func (h *Handlers) originOf(c *gin.Context) bus.View {
	id := c.GetHeader(HeaderViewID)
	if id == "" {
		return nil
	}
	for _, v := range h.sess.Views() {
		if v.ViewID() == id {
			return v
		}
	}
	return nil
}

// unitParam resolves the :id path parameter against the session's units.
// A decimal token names a numeric unit unless only a string unit with that
// token exists.
func (h *Handlers) unitParam(c *gin.Context) unit.ID {
	raw := c.Param("id")
	id := unit.Parse(raw)
	store := h.sess.Store()
	if !store.HasUnit(id) && store.HasUnit(unit.Str(raw)) {
		return unit.Str(raw)
	}
	return id
}

func (h *Handlers) fail(c *gin.Context, status int, code string, err error) {
	requestsTotal.WithLabelValues(c.FullPath(), code).Inc()
	logger := telemetry.LoggerWithTrace(c.Request.Context(), h.logger)
	logger.Debug("curation request rejected", "route", c.FullPath(), "code", code, "error", err)
	c.JSON(status, ErrorResponse{Error: err.Error(), Code: code})
}

func (h *Handlers) ok(c *gin.Context, body any) {
	requestsTotal.WithLabelValues(c.FullPath(), "OK").Inc()
	c.JSON(http.StatusOK, body)
}

// bind decodes the JSON body into req, replying 400 on failure.
func (h *Handlers) bind(c *gin.Context, req any) bool {
	if err := c.ShouldBindJSON(req); err != nil {
		h.fail(c, http.StatusBadRequest, "INVALID_REQUEST", err)
		return false
	}
	return true
}

// failCuration maps engine errors to HTTP replies.
func (h *Handlers) failCuration(c *gin.Context, err error) {
	switch {
	case errors.Is(err, ledger.ErrUnknownUnit):
		h.fail(c, http.StatusNotFound, "UNKNOWN_UNIT", err)
	case errors.Is(err, ledger.ErrUnknownCategory):
		h.fail(c, http.StatusBadRequest, "UNKNOWN_CATEGORY", err)
	case errors.Is(err, ledger.ErrInvalidLabelValue):
		h.fail(c, http.StatusBadRequest, "INVALID_LABEL", err)
	case errors.Is(err, ledger.ErrInvalidDocument):
		h.fail(c, http.StatusUnprocessableEntity, "INVALID_DOCUMENT", err)
	case errors.Is(err, session.ErrInvalidSplit):
		h.fail(c, http.StatusBadRequest, "INVALID_SPLIT", err)
	case errors.Is(err, session.ErrInvalidColor):
		h.fail(c, http.StatusBadRequest, "INVALID_COLOR", err)
	case errors.Is(err, session.ErrInvalidTimeWindow):
		h.fail(c, http.StatusBadRequest, "INVALID_TIME_WINDOW", err)
	case errors.Is(err, session.ErrNoSnapshotStore):
		h.fail(c, http.StatusNotImplemented, "NO_SNAPSHOT_STORE", err)
	case errors.Is(err, storage.ErrInvalidKey):
		h.fail(c, http.StatusBadRequest, "INVALID_SNAPSHOT_KEY", err)
	case errors.Is(err, storage.ErrNotFound):
		h.fail(c, http.StatusNotFound, "SNAPSHOT_NOT_FOUND", err)
	default:
		h.fail(c, http.StatusInternalServerError, "INTERNAL", err)
	}
}

// HandleHealth handles GET /v1/curation/health.
func (h *Handlers) HandleHealth(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "healthy"})
}

// HandleState handles GET /v1/curation/state.
func (h *Handlers) HandleState(c *gin.Context) {
	var resp StateResponse
	h.Do(func(s *session.Session) {
		resp = StateResponse{
			SessionID:      s.ID(),
			Units:          s.Units(),
			MergeGroups:    s.MergeGroups(),
			Removed:        nonNil(s.Removed()),
			Visible:        nonNil(s.VisibleUnitIDs()),
			SelectedSpikes: len(s.SelectedSpikeIndices()),
			Channels:       s.VisibleChannels(),
			UseTimes:       s.UseTimes(),
			TimeWindow:     s.TimeWindow(),
		}
		for _, v := range s.Views() {
			resp.Views = append(resp.Views, v.ViewID())
		}
		if av := s.Bus().ActiveView(); av != nil {
			resp.ActiveView = av.ViewID()
		}
	})
	h.ok(c, resp)
}

func nonNil(ids []unit.ID) []unit.ID {
	if ids == nil {
		return []unit.ID{}
	}
	return ids
}

// HandleUnits handles GET /v1/curation/units.
func (h *Handlers) HandleUnits(c *gin.Context) {
	var rows []session.UnitInfo
	h.Do(func(s *session.Session) { rows = s.Units() })
	h.ok(c, rows)
}

// HandleSetVisible handles PUT /v1/curation/visible.
func (h *Handlers) HandleSetVisible(c *gin.Context) {
	var req VisibleRequest
	if !h.bind(c, &req) {
		return
	}
	var n int
	h.Do(func(s *session.Session) { n = s.SetVisible(h.originOf(c), req.UnitIDs) })
	h.ok(c, CountResponse{Count: n})
}

// HandleToggle handles POST /v1/curation/units/:id/toggle.
func (h *Handlers) HandleToggle(c *gin.Context) {
	var req ToggleRequest
	if !h.bind(c, &req) {
		return
	}
	id := h.unitParam(c)
	var ok bool
	h.Do(func(s *session.Session) { ok = s.ToggleUnit(h.originOf(c), id, *req.Visible) })
	h.ok(c, OKResponse{OK: ok})
}

// HandleSetSelection handles PUT /v1/curation/selection.
func (h *Handlers) HandleSetSelection(c *gin.Context) {
	var req SelectionRequest
	if !h.bind(c, &req) {
		return
	}
	var n int
	h.Do(func(s *session.Session) { n = s.SetSelected(h.originOf(c), req.Indices) })
	h.ok(c, CountResponse{Count: n})
}

// HandleClearSelection handles DELETE /v1/curation/selection.
func (h *Handlers) HandleClearSelection(c *gin.Context) {
	h.Do(func(s *session.Session) { s.ClearSelection(h.originOf(c)) })
	h.ok(c, CountResponse{})
}

// unitsOp binds a UnitIDsRequest and applies op.
func (h *Handlers) unitsOp(c *gin.Context, op func(s *session.Session, origin bus.View, ids []unit.ID) bool) {
	var req UnitIDsRequest
	if !h.bind(c, &req) {
		return
	}
	var ok bool
	h.Do(func(s *session.Session) { ok = op(s, h.originOf(c), req.UnitIDs) })
	h.ok(c, OKResponse{OK: ok})
}

// HandleMerge handles POST /v1/curation/merge.
func (h *Handlers) HandleMerge(c *gin.Context) {
	h.unitsOp(c, (*session.Session).Merge)
}

// HandleDelete handles POST /v1/curation/delete.
func (h *Handlers) HandleDelete(c *gin.Context) {
	h.unitsOp(c, (*session.Session).Delete)
}

// HandleRestore handles POST /v1/curation/restore.
func (h *Handlers) HandleRestore(c *gin.Context) {
	h.unitsOp(c, (*session.Session).Restore)
}

// HandleUnmerge handles POST /v1/curation/unmerge.
func (h *Handlers) HandleUnmerge(c *gin.Context) {
	var req UnmergeRequest
	if !h.bind(c, &req) {
		return
	}
	var ok bool
	h.Do(func(s *session.Session) { ok = s.Unmerge(h.originOf(c), req.Groups...) })
	h.ok(c, OKResponse{OK: ok})
}

// HandleSplit handles POST /v1/curation/split.
func (h *Handlers) HandleSplit(c *gin.Context) {
	var req SplitRequest
	if !h.bind(c, &req) {
		return
	}
	if req.UnitID.IsZero() {
		h.fail(c, http.StatusBadRequest, "INVALID_REQUEST", errors.New("unit_id is required"))
		return
	}
	var (
		ok  bool
		err error
	)
	h.Do(func(s *session.Session) { ok, err = s.Split(h.originOf(c), req.UnitID, req.Indices) })
	if err != nil {
		h.failCuration(c, err)
		return
	}
	h.ok(c, OKResponse{OK: ok})
}

// HandleUnsplit handles DELETE /v1/curation/split/:id.
func (h *Handlers) HandleUnsplit(c *gin.Context) {
	id := h.unitParam(c)
	var ok bool
	h.Do(func(s *session.Session) { ok = s.Unsplit(h.originOf(c), id) })
	h.ok(c, OKResponse{OK: ok})
}

// HandleSetLabel handles PUT /v1/curation/labels.
func (h *Handlers) HandleSetLabel(c *gin.Context) {
	var req LabelRequest
	if !h.bind(c, &req) {
		return
	}
	var err error
	h.Do(func(s *session.Session) { err = s.SetLabel(h.originOf(c), req.UnitID, req.Category, req.Value) })
	if err != nil {
		h.failCuration(c, err)
		return
	}
	h.ok(c, OKResponse{OK: true})
}

// HandleSetColor handles PUT /v1/curation/units/:id/color.
func (h *Handlers) HandleSetColor(c *gin.Context) {
	var req ColorRequest
	if !h.bind(c, &req) {
		return
	}
	id := h.unitParam(c)
	var err error
	h.Do(func(s *session.Session) { err = s.SetUnitColor(h.originOf(c), id, req.Color) })
	if err != nil {
		h.failCuration(c, err)
		return
	}
	h.ok(c, OKResponse{OK: true})
}

// HandleSetChannels handles PUT /v1/curation/channels.
func (h *Handlers) HandleSetChannels(c *gin.Context) {
	var req ChannelsRequest
	if !h.bind(c, &req) {
		return
	}
	var n int
	h.Do(func(s *session.Session) {
		s.SetVisibleChannels(h.originOf(c), req.Channels)
		n = len(s.VisibleChannels())
	})
	h.ok(c, CountResponse{Count: n})
}

// HandleSetTimeWindow handles PUT /v1/curation/time.
func (h *Handlers) HandleSetTimeWindow(c *gin.Context) {
	var req session.TimeWindow
	if !h.bind(c, &req) {
		return
	}
	var err error
	h.Do(func(s *session.Session) { err = s.SetTimeWindow(h.originOf(c), req) })
	if err != nil {
		h.failCuration(c, err)
		return
	}
	h.ok(c, OKResponse{OK: true})
}

// HandleSetUseTimes handles PUT /v1/curation/use-times.
func (h *Handlers) HandleSetUseTimes(c *gin.Context) {
	var req UseTimesRequest
	if !h.bind(c, &req) {
		return
	}
	h.Do(func(s *session.Session) { s.SetUseTimes(h.originOf(c), *req.UseTimes) })
	h.ok(c, OKResponse{OK: true})
}

// HandleFocus handles POST /v1/curation/focus.
func (h *Handlers) HandleFocus(c *gin.Context) {
	var req FocusRequest
	if !h.bind(c, &req) {
		return
	}
	var found bool
	h.Do(func(s *session.Session) {
		for _, v := range s.Views() {
			if v.ViewID() == req.ViewID {
				s.Focus(v)
				found = true
				return
			}
		}
	})
	if !found {
		h.fail(c, http.StatusNotFound, "UNKNOWN_VIEW", errors.New("no view "+req.ViewID))
		return
	}
	h.ok(c, OKResponse{OK: true})
}

// HandleExport handles GET /v1/curation/export.
func (h *Handlers) HandleExport(c *gin.Context) {
	var doc ledger.Document
	h.Do(func(s *session.Session) { doc = s.Export() })
	h.ok(c, doc)
}

// HandleImport handles POST /v1/curation/import.
func (h *Handlers) HandleImport(c *gin.Context) {
	doc, err := ledger.DecodeDocument(c.Request.Body)
	if err != nil {
		h.fail(c, http.StatusBadRequest, "INVALID_REQUEST", err)
		return
	}
	h.Do(func(s *session.Session) { err = s.Import(h.originOf(c), doc) })
	if err != nil {
		h.failCuration(c, err)
		return
	}
	h.ok(c, OKResponse{OK: true})
}

// HandleSave handles POST /v1/curation/save.
func (h *Handlers) HandleSave(c *gin.Context) {
	var err error
	h.Do(func(s *session.Session) { err = s.Save(c.Request.Context()) })
	if err != nil {
		h.failCuration(c, err)
		return
	}
	h.ok(c, OKResponse{OK: true})
}

// HandleLoad handles POST /v1/curation/load.
func (h *Handlers) HandleLoad(c *gin.Context) {
	var err error
	h.Do(func(s *session.Session) { err = s.Load(c.Request.Context(), h.originOf(c)) })
	if err != nil {
		h.failCuration(c, err)
		return
	}
	h.ok(c, OKResponse{OK: true})
}

// HandleSocket handles GET /v1/curation/ws.
//
// Description:
//
//	Upgrades the connection and registers a SocketView. The first message
//	is {"event":"hello","view_id":...}; the client sends that id back in
//	X-View-ID on its REST calls. Client messages {"action":"focus"} make
//	the socket the active view and {"action":"ping"} is answered with
//	"pong". The view is unregistered when the client disconnects.
func (h *Handlers) HandleSocket(c *gin.Context) {
	conn, err := h.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		h.logger.Warn("websocket upgrade failed", "error", err)
		return
	}
	defer conn.Close()

	v := newSocketView(h.buffer, h.logger)
	done := make(chan struct{})
	go func() {
		defer close(done)
		v.writeLoop(conn)
	}()

	h.Do(func(s *session.Session) {
		v.push(Message{Event: "hello", ViewID: v.id})
		if err = s.AddView(v); err != nil {
			v.push(Message{Event: "error", Error: err.Error()})
		}
	})
	if err == nil {
		socketsConnected.Inc()
		h.logger.Info("socket view connected", "view_id", v.id)
		h.readLoop(conn, v)
		socketsConnected.Dec()
	}

	h.Do(func(s *session.Session) {
		s.RemoveView(v)
		close(v.send)
	})
	<-done
	h.logger.Info("socket view disconnected", "view_id", v.id, "dropped", v.Dropped())
}

func (h *Handlers) readLoop(conn *websocket.Conn, v *SocketView) {
	for {
		var msg ClientMessage
		if err := conn.ReadJSON(&msg); err != nil {
			return
		}
		h.Do(func(s *session.Session) {
			switch msg.Action {
			case "focus":
				s.Focus(v)
			case "ping":
				v.push(Message{Event: "pong"})
			default:
				v.push(Message{Event: "error", Error: "unknown action " + msg.Action})
			}
		})
	}
}
