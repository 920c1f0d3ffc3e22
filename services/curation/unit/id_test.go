// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package unit

import (
	"encoding/json"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestID_JSONKeepsKind(t *testing.T) {
	ids := []ID{Int(3), Str("u7"), Int(-1)}

	data, err := json.Marshal(ids)
	require.NoError(t, err)
	assert.JSONEq(t, `[3, "u7", -1]`, string(data))

	var back []ID
	require.NoError(t, json.Unmarshal(data, &back))
	assert.Equal(t, ids, back)
	assert.True(t, back[0].IsNumeric())
	assert.False(t, back[1].IsNumeric())
}

func TestID_NumericStringIsNotNumber(t *testing.T) {
	assert.NotEqual(t, Int(5), Str("5"), "kind is part of identity")
}

func TestID_UnmarshalRejects(t *testing.T) {
	for _, in := range []string{`null`, `true`, `1.5`, `{}`, `[1]`} {
		var id ID
		err := json.Unmarshal([]byte(in), &id)
		require.Error(t, err, in)
		assert.True(t, errors.Is(err, ErrInvalidID), in)
	}
}

func TestParse(t *testing.T) {
	assert.Equal(t, Int(42), Parse("42"))
	assert.Equal(t, Str("abc"), Parse("abc"))
	assert.Equal(t, Int(-3), Parse("-3"))
}

func TestInts(t *testing.T) {
	assert.Equal(t, []ID{Int(1), Int(2)}, Ints(1, 2))
	assert.True(t, ID{}.IsZero())
	assert.False(t, Int(0).IsZero())
}
