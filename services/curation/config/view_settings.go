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

import (
	"fmt"
	"maps"
	"sort"
)

// ViewSettings holds the settings of one view instance.
//
// The set of keys and their types is fixed by the defaults the view kind
// declares. Set rejects any other key.
type ViewSettings struct {
	kind     string
	defaults map[string]any
	values   map[string]any
}

// NewViewSettings creates settings for a view kind with the given defaults.
func NewViewSettings(kind string, defaults map[string]any) *ViewSettings {
	return &ViewSettings{
		kind:     kind,
		defaults: maps.Clone(defaults),
		values:   make(map[string]any),
	}
}

// Kind returns the view kind the settings belong to.
func (s *ViewSettings) Kind() string { return s.kind }

// Set assigns one setting.
//
// Outputs:
//
//	error - ErrUnknownSetting when the kind declares no such key,
//	  ErrInvalidSetting when value's type differs from the default's.
//	  Integers are accepted for float settings.
func (s *ViewSettings) Set(key string, value any) error {
	def, ok := s.defaults[key]
	if !ok {
		return fmt.Errorf("%w: %q for view kind %q", ErrUnknownSetting, key, s.kind)
	}
	v, ok := coerce(def, value)
	if !ok {
		return fmt.Errorf("%w: %s.%s wants %T, got %T", ErrInvalidSetting, s.kind, key, def, value)
	}
	s.values[key] = v
	return nil
}

// Apply sets every entry of m, in key order, stopping at the first error.
func (s *ViewSettings) Apply(m map[string]any) error {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		if err := s.Set(k, m[k]); err != nil {
			return err
		}
	}
	return nil
}

// Get returns the effective value of key.
func (s *ViewSettings) Get(key string) (any, bool) {
	if v, ok := s.values[key]; ok {
		return v, true
	}
	v, ok := s.defaults[key]
	return v, ok
}

// Int returns an int setting, or 0.
func (s *ViewSettings) Int(key string) int {
	v, _ := s.Get(key)
	i, _ := v.(int)
	return i
}

// Bool returns a bool setting, or false.
func (s *ViewSettings) Bool(key string) bool {
	v, _ := s.Get(key)
	b, _ := v.(bool)
	return b
}

// String returns a string setting, or "".
func (s *ViewSettings) String(key string) string {
	v, _ := s.Get(key)
	str, _ := v.(string)
	return str
}

// Float returns a float64 setting, or 0.
func (s *ViewSettings) Float(key string) float64 {
	v, _ := s.Get(key)
	f, _ := v.(float64)
	return f
}

// Keys returns the declared keys, sorted.
func (s *ViewSettings) Keys() []string {
	keys := make([]string, 0, len(s.defaults))
	for k := range s.defaults {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// Values returns the effective value of every key.
func (s *ViewSettings) Values() map[string]any {
	out := make(map[string]any, len(s.defaults))
	maps.Copy(out, s.defaults)
	maps.Copy(out, s.values)
	return out
}

func coerce(def, value any) (any, bool) {
	switch def.(type) {
	case int:
		switch v := value.(type) {
		case int:
			return v, true
		case int64:
			return int(v), true
		}
	case float64:
		switch v := value.(type) {
		case float64:
			return v, true
		case int:
			return float64(v), true
		case int64:
			return float64(v), true
		}
	case bool:
		if v, ok := value.(bool); ok {
			return v, true
		}
	case string:
		if v, ok := value.(string); ok {
			return v, true
		}
	}
	return nil, false
}
