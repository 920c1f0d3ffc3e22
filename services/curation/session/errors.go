// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package session

import "errors"

var (
	// ErrNoStore is returned by New without a spike index.
	ErrNoStore = errors.New("session needs a spike index store")

	// ErrNoSnapshotStore is returned by Save and Load when no snapshot
	// store is configured.
	ErrNoSnapshotStore = errors.New("no snapshot store configured")

	// ErrInvalidSplit is returned when split indices fall outside the
	// unit's spike train or leave one part empty.
	ErrInvalidSplit = errors.New("invalid split")

	// ErrInvalidColor is returned for a color that is not a hex color.
	ErrInvalidColor = errors.New("invalid unit color")

	// ErrInvalidTimeWindow is returned for an empty window or an unknown
	// segment.
	ErrInvalidTimeWindow = errors.New("invalid time window")
)
