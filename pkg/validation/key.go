// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package validation provides input validation for user-provided names
// that end up in storage keys or file paths.
package validation

import (
	"fmt"
	"regexp"
	"strings"
)

// keyPattern matches valid snapshot keys.
// Allows: letters, digits, dots, underscores, hyphens; must start with a
// letter or digit. Max length: 128 characters.
var keyPattern = regexp.MustCompile(`^[A-Za-z0-9][A-Za-z0-9._\-]{0,127}$`)

// ValidateKey validates a snapshot key.
//
// Valid keys:
//   - 1-128 characters
//   - Letters, digits, '.', '_' and '-'
//   - No leading punctuation, so keys never look like paths or flags
//   - No ".." anywhere
//
// Example:
//
//	if err := validation.ValidateKey(key); err != nil {
//	    return fmt.Errorf("save curation: %w", err)
//	}
func ValidateKey(key string) error {
	if key == "" {
		return fmt.Errorf("key cannot be empty")
	}
	if !keyPattern.MatchString(key) {
		return fmt.Errorf("invalid key format: %q (must be 1-128 letters, digits, dots, underscores or hyphens)", key)
	}
	if strings.Contains(key, "..") {
		return fmt.Errorf("invalid key format: %q (must not contain \"..\")", key)
	}
	return nil
}

// ValidateKeys validates multiple keys.
// Returns an error listing all invalid keys if any fail validation.
func ValidateKeys(keys []string) error {
	var invalid []string
	for _, k := range keys {
		if err := ValidateKey(k); err != nil {
			invalid = append(invalid, fmt.Sprintf("%q", k))
		}
	}
	if len(invalid) > 0 {
		return fmt.Errorf("invalid keys: %s", strings.Join(invalid, ", "))
	}
	return nil
}
