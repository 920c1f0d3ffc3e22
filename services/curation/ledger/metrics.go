// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package ledger

import (
	"context"
	"sync"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

var meter = otel.Meter("spikecurator.ledger")

var (
	operationTotal metric.Int64Counter
	groupCount     metric.Int64Gauge
	removedCount   metric.Int64Gauge

	metricsOnce sync.Once
	metricsErr  error
)

// initMetrics initializes the metrics. Safe to call multiple times.
func initMetrics() error {
	metricsOnce.Do(func() {
		var err error

		operationTotal, err = meter.Int64Counter(
			"ledger_operations_total",
			metric.WithDescription("Curation operations by kind and outcome"),
		)
		if err != nil {
			metricsErr = err
			return
		}

		groupCount, err = meter.Int64Gauge(
			"ledger_merge_groups",
			metric.WithDescription("Number of merge groups"),
		)
		if err != nil {
			metricsErr = err
			return
		}

		removedCount, err = meter.Int64Gauge(
			"ledger_removed_units",
			metric.WithDescription("Number of removed units"),
		)
		if err != nil {
			metricsErr = err
			return
		}
	})
	return metricsErr
}

// recordOp counts one curation request. Accepted requests also refresh the
// size gauges.
func (l *Ledger) recordOp(op string, accepted bool) {
	if err := initMetrics(); err != nil {
		return
	}
	ctx := context.Background()
	operationTotal.Add(ctx, 1, metric.WithAttributes(
		attribute.String("op", op),
		attribute.Bool("accepted", accepted),
	))
	if accepted {
		groupCount.Record(ctx, int64(len(l.groups)))
		removedCount.Record(ctx, int64(l.numRemoved))
	}
}
