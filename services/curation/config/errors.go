// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package config

import "errors"

// Sentinel errors for configuration loading.
var (
	// ErrUnknownSetting is returned for a key the configuration does not
	// define. The wrapped message names the key.
	ErrUnknownSetting = errors.New("unknown setting")

	// ErrInvalidSetting is returned when a known key has an unusable value.
	ErrInvalidSetting = errors.New("invalid setting")
)
