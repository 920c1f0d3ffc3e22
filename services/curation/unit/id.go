// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package unit defines the identity of a sorted unit.
//
// A unit id is chosen by the sorter that produced the analysis result. It
// is either an integer (the common case) or an arbitrary string token. The
// kind is preserved through JSON so an exported curation document carries
// the ids exactly as the sorter emitted them.
package unit

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
)

// ErrInvalidID is returned when a JSON value is neither a number nor a string.
var ErrInvalidID = errors.New("unit id must be an integer or a string")

// ID identifies one unit. The zero value is the empty string id and is
// never produced by Int or Str with a non-empty token.
//
// ID is comparable and can be used as a map key.
type ID struct {
	token   string
	numeric bool
}

// Int returns a numeric unit id.
func Int(v int64) ID {
	return ID{token: strconv.FormatInt(v, 10), numeric: true}
}

// Str returns a string unit id.
func Str(s string) ID {
	return ID{token: s}
}

// Ints is a convenience for building a list of numeric ids.
func Ints(vs ...int64) []ID {
	out := make([]ID, len(vs))
	for i, v := range vs {
		out[i] = Int(v)
	}
	return out
}

// Parse interprets s as a numeric id when it is a base-10 integer and as
// a string id otherwise. Used for ids arriving through URLs and CLI flags.
func Parse(s string) ID {
	if v, err := strconv.ParseInt(s, 10, 64); err == nil {
		return Int(v)
	}
	return Str(s)
}

// String returns the token.
func (id ID) String() string { return id.token }

// IsNumeric reports whether the id was created from an integer.
func (id ID) IsNumeric() bool { return id.numeric }

// IsZero reports whether id is the zero value.
func (id ID) IsZero() bool { return id.token == "" && !id.numeric }

// MarshalJSON writes numeric ids as bare numbers and string ids as strings.
func (id ID) MarshalJSON() ([]byte, error) {
	if id.numeric {
		return []byte(id.token), nil
	}
	return json.Marshal(id.token)
}

// UnmarshalJSON accepts a JSON number (integer) or a JSON string.
func (id *ID) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) == 0 {
		return ErrInvalidID
	}
	switch data[0] {
	case '"':
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return fmt.Errorf("%w: %v", ErrInvalidID, err)
		}
		*id = Str(s)
		return nil
	case 'n', 't', 'f', '[', '{':
		return fmt.Errorf("%w: got %s", ErrInvalidID, data)
	}
	v, err := strconv.ParseInt(string(data), 10, 64)
	if err != nil {
		return fmt.Errorf("%w: %s is not an integer", ErrInvalidID, data)
	}
	*id = Int(v)
	return nil
}

// MarshalText implements encoding.TextMarshaler so ids can be map keys in
// encoded documents.
func (id ID) MarshalText() ([]byte, error) {
	return []byte(id.token), nil
}

// UnmarshalText parses the token with Parse.
func (id *ID) UnmarshalText(text []byte) error {
	*id = Parse(string(text))
	return nil
}
