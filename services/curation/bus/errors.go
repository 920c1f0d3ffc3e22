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

import "errors"

// Sentinel errors for bus operations.
var (
	// ErrUnknownKind is returned by ParseKind for unrecognized names.
	ErrUnknownKind = errors.New("unknown event kind")

	// ErrUnknownAdapter is returned by New for unrecognized adapter names.
	ErrUnknownAdapter = errors.New("unknown bus adapter")

	// ErrInvalidView is returned when registering a nil view or a view
	// with an empty id.
	ErrInvalidView = errors.New("invalid view")

	// ErrDuplicateView is returned when a view id is already registered.
	ErrDuplicateView = errors.New("view already registered")
)
