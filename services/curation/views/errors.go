// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package views

import "errors"

var (
	// ErrUnknownView is returned when a view kind is not registered. The
	// wrapped message names the kind.
	ErrUnknownView = errors.New("unknown view kind")

	// ErrDuplicateKind is returned when registering a kind name twice.
	ErrDuplicateKind = errors.New("view kind already registered")

	// ErrInvalidKind is returned for a kind with no name or no factory.
	ErrInvalidKind = errors.New("invalid view kind")
)
