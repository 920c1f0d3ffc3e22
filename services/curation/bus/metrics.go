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

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// emittedTotal counts events accepted for fan-out.
	emittedTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "curation_bus_events_emitted_total",
		Help: "Events accepted for fan-out by kind and adapter",
	}, []string{"kind", "adapter"})

	// droppedTotal counts events dropped before fan-out.
	droppedTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "curation_bus_events_dropped_total",
		Help: "Events dropped by kind and reason (suppressed, depth)",
	}, []string{"kind", "reason"})

	// deliveredTotal counts listener invocations.
	deliveredTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "curation_bus_deliveries_total",
		Help: "Listener invocations by kind",
	}, []string{"kind"})

	// panicsTotal counts recovered listener panics.
	panicsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "curation_bus_handler_panics_total",
		Help: "Recovered listener panics by kind",
	}, []string{"kind"})

	// fanoutViews tracks how many views one event reached.
	fanoutViews = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "curation_bus_fanout_views",
		Help:    "Number of views notified per event",
		Buckets: []float64{0, 1, 2, 4, 8, 16, 32},
	})
)

// observeFanout records the number of views one event reached.
var observeFanout = func(n int) { fanoutViews.Observe(float64(n)) }
