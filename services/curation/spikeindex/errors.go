// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package spikeindex provides the immutable structural index over a spike
// stream.
//
// The index is built once from the flat, globally sorted spike array of an
// analysis result. It answers "which spikes belong to unit u (in segment
// s)" in O(1) by returning precomputed, sorted index lists, and it locates
// segment boundaries with a binary search instead of a scan.
//
// # Ownership Model
//
// The Store keeps the spike slice passed to Build and hands out its
// internal index slices without copying:
//   - Callers MUST NOT mutate the spike slice after Build
//   - Callers MUST NOT mutate slices returned by SpikeIndicesFor and friends
//   - To change the recording, build a new Store
//
// # Thread Safety
//
// A built Store has no mutation API and is safe for concurrent reads.
package spikeindex

import "errors"

// Sentinel errors for Build. All are precondition failures: no Store is
// returned when one of them occurs.
var (
	// ErrMissingSpikes is returned when the spike stream is nil.
	ErrMissingSpikes = errors.New("spike stream is required")

	// ErrNoUnits is returned when the unit id list is empty.
	ErrNoUnits = errors.New("at least one unit id is required")

	// ErrDuplicateUnit is returned when a unit id appears twice.
	ErrDuplicateUnit = errors.New("duplicate unit id")

	// ErrInvalidSegmentCount is returned for a segment count below one.
	ErrInvalidSegmentCount = errors.New("segment count must be positive")

	// ErrUnsorted is returned when spikes are not sorted by
	// (segment_index, sample_index).
	ErrUnsorted = errors.New("spikes are not sorted by segment and sample index")

	// ErrUnitOutOfRange is returned when a spike references a unit index
	// outside [0, len(unitIDs)).
	ErrUnitOutOfRange = errors.New("spike unit index out of range")

	// ErrSegmentOutOfRange is returned when a spike references a segment
	// outside [0, segmentCount).
	ErrSegmentOutOfRange = errors.New("spike segment index out of range")
)
