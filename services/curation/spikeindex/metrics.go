// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package spikeindex

import (
	"context"
	"sync"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"
)

// Package-level tracer and meter for index builds.
var (
	tracer = otel.Tracer("spikecurator.spikeindex")
	meter  = otel.Meter("spikecurator.spikeindex")
)

var (
	buildLatency metric.Float64Histogram
	buildTotal   metric.Int64Counter
	indexedSpike metric.Int64Gauge

	metricsOnce sync.Once
	metricsErr  error
)

// initMetrics initializes the metrics. Safe to call multiple times.
func initMetrics() error {
	metricsOnce.Do(func() {
		var err error

		buildLatency, err = meter.Float64Histogram(
			"spikeindex_build_duration_seconds",
			metric.WithDescription("Duration of spike index builds"),
			metric.WithUnit("s"),
		)
		if err != nil {
			metricsErr = err
			return
		}

		buildTotal, err = meter.Int64Counter(
			"spikeindex_build_total",
			metric.WithDescription("Total number of spike index builds"),
		)
		if err != nil {
			metricsErr = err
			return
		}

		indexedSpike, err = meter.Int64Gauge(
			"spikeindex_spikes",
			metric.WithDescription("Number of spikes in the most recent index"),
		)
		if err != nil {
			metricsErr = err
			return
		}
	})
	return metricsErr
}

func startBuildSpan(ctx context.Context, spikes, units, segments int) (context.Context, trace.Span) {
	return tracer.Start(ctx, "spikeindex.Build",
		trace.WithAttributes(
			attribute.Int("spikeindex.spikes", spikes),
			attribute.Int("spikeindex.units", units),
			attribute.Int("spikeindex.segments", segments),
		),
	)
}

func recordBuild(ctx context.Context, duration time.Duration, spikes int, success bool) {
	if err := initMetrics(); err != nil {
		return
	}
	attrs := metric.WithAttributes(attribute.Bool("success", success))
	buildLatency.Record(ctx, duration.Seconds(), attrs)
	buildTotal.Add(ctx, 1, attrs)
	if success {
		indexedSpike.Record(ctx, int64(spikes))
	}
}
