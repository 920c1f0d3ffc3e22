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
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	requestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "curation_web_requests_total",
		Help: "Curation API requests by route and outcome code",
	}, []string{"route", "code"})

	socketsConnected = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "curation_web_sockets_connected",
		Help: "Open socket views",
	})

	socketMessages = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "curation_web_socket_messages_total",
		Help: "Messages queued to socket views by event",
	}, []string{"event"})

	socketDropped = promauto.NewCounter(prometheus.CounterOpts{
		Name: "curation_web_socket_dropped_total",
		Help: "Messages dropped because a socket's queue was full",
	})
)
