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
	"github.com/AleutianAI/spikecurator/services/curation/session"
	"github.com/AleutianAI/spikecurator/services/curation/unit"
)

// HeaderViewID names the request header carrying the caller's socket view
// id. Changes made by that request are not echoed to that socket.
const HeaderViewID = "X-View-ID"

// ErrorResponse is the body of every non-2xx reply.
type ErrorResponse struct {
	Error string `json:"error"`
	Code  string `json:"code"`
}

// OKResponse reports whether a curation request changed anything.
type OKResponse struct {
	OK bool `json:"ok"`
}

// CountResponse reports a resulting size.
type CountResponse struct {
	Count int `json:"count"`
}

// UnitIDsRequest carries a list of unit ids.
type UnitIDsRequest struct {
	UnitIDs []unit.ID `json:"unit_ids" binding:"required,min=1"`
}

// VisibleRequest replaces the visible set. An empty list hides all.
type VisibleRequest struct {
	UnitIDs []unit.ID `json:"unit_ids" binding:"required"`
}

// ToggleRequest shows or hides one unit.
type ToggleRequest struct {
	Visible *bool `json:"visible" binding:"required"`
}

// SelectionRequest replaces the spike selection.
type SelectionRequest struct {
	Indices []int `json:"indices" binding:"required"`
}

// UnmergeRequest lists merge group indices to dissolve.
type UnmergeRequest struct {
	Groups []int `json:"groups" binding:"required,min=1"`
}

// SplitRequest splits one unit.
type SplitRequest struct {
	UnitID  unit.ID `json:"unit_id"`
	Indices []int   `json:"indices" binding:"required,min=1"`
}

// LabelRequest sets or, with a null value, clears one label.
type LabelRequest struct {
	UnitID   unit.ID `json:"unit_id"`
	Category string  `json:"category" binding:"required"`
	Value    *string `json:"value"`
}

// ColorRequest overrides a unit color. An empty color restores the
// palette color.
type ColorRequest struct {
	Color string `json:"color"`
}

// ChannelsRequest replaces the visible channels.
type ChannelsRequest struct {
	Channels []int `json:"channels" binding:"required"`
}

// UseTimesRequest switches between sample and time axes.
type UseTimesRequest struct {
	UseTimes *bool `json:"use_times" binding:"required"`
}

// FocusRequest makes a view active.
type FocusRequest struct {
	ViewID string `json:"view_id" binding:"required"`
}

// StateResponse is a full snapshot of the session.
type StateResponse struct {
	SessionID      string             `json:"session_id"`
	Units          []session.UnitInfo `json:"units"`
	MergeGroups    [][]unit.ID        `json:"merge_unit_groups"`
	Removed        []unit.ID          `json:"removed_units"`
	Visible        []unit.ID          `json:"visible_units"`
	SelectedSpikes int                `json:"selected_spikes"`
	Channels       []int              `json:"visible_channels"`
	UseTimes       bool               `json:"use_times"`
	TimeWindow     session.TimeWindow `json:"time_window"`
	Views          []string           `json:"views"`
	ActiveView     string             `json:"active_view,omitempty"`
}

// Message is pushed to socket clients.
type Message struct {
	Event  string `json:"event"`
	Seq    uint64 `json:"seq"`
	ViewID string `json:"view_id,omitempty"`
	Active *bool  `json:"active,omitempty"`
	Error  string `json:"error,omitempty"`
}

// ClientMessage is read from socket clients.
type ClientMessage struct {
	Action string `json:"action"`
}
