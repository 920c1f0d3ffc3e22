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
	"net/http"

	"github.com/gin-gonic/gin"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"
)

// RegisterRoutes registers the curation API on rg.
//
// Endpoints:
//
//	GET    /curation/health
//	GET    /curation/state
//	GET    /curation/units
//	PUT    /curation/visible
//	POST   /curation/units/:id/toggle
//	PUT    /curation/units/:id/color
//	PUT    /curation/selection
//	DELETE /curation/selection
//	POST   /curation/merge
//	POST   /curation/unmerge
//	POST   /curation/delete
//	POST   /curation/restore
//	POST   /curation/split
//	DELETE /curation/split/:id
//	PUT    /curation/labels
//	PUT    /curation/channels
//	PUT    /curation/time
//	PUT    /curation/use-times
//	POST   /curation/focus
//	GET    /curation/export
//	POST   /curation/import
//	POST   /curation/save
//	POST   /curation/load
//	GET    /curation/ws
func RegisterRoutes(rg *gin.RouterGroup, h *Handlers) {
	g := rg.Group("/curation")

	g.GET("/health", h.HandleHealth)
	g.GET("/state", h.HandleState)
	g.GET("/units", h.HandleUnits)

	g.PUT("/visible", h.HandleSetVisible)
	g.POST("/units/:id/toggle", h.HandleToggle)
	g.PUT("/units/:id/color", h.HandleSetColor)
	g.PUT("/selection", h.HandleSetSelection)
	g.DELETE("/selection", h.HandleClearSelection)

	g.POST("/merge", h.HandleMerge)
	g.POST("/unmerge", h.HandleUnmerge)
	g.POST("/delete", h.HandleDelete)
	g.POST("/restore", h.HandleRestore)
	g.POST("/split", h.HandleSplit)
	g.DELETE("/split/:id", h.HandleUnsplit)
	g.PUT("/labels", h.HandleSetLabel)

	g.PUT("/channels", h.HandleSetChannels)
	g.PUT("/time", h.HandleSetTimeWindow)
	g.PUT("/use-times", h.HandleSetUseTimes)
	g.POST("/focus", h.HandleFocus)

	g.GET("/export", h.HandleExport)
	g.POST("/import", h.HandleImport)
	g.POST("/save", h.HandleSave)
	g.POST("/load", h.HandleLoad)

	g.GET("/ws", h.HandleSocket)
}

// NewRouter builds a gin engine with tracing, the curation API under /v1
// and, when metrics is non-nil, GET /metrics.
func NewRouter(h *Handlers, service string, metrics http.Handler) *gin.Engine {
	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(otelgin.Middleware(service))
	RegisterRoutes(router.Group("/v1"), h)
	if metrics != nil {
		router.GET("/metrics", gin.WrapH(metrics))
	}
	return router
}
