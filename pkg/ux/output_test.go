// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package ux

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestParseMode(t *testing.T) {
	tests := []struct {
		in   string
		want Mode
		ok   bool
	}{
		{"rich", ModeRich, true},
		{"FULL", ModeRich, true},
		{"min", ModeMinimal, true},
		{"plain", ModeMachine, true},
		{"auto", ModeMachine, false},
		{"", ModeMachine, false},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, ok := ParseMode(tt.in)
			assert.Equal(t, tt.want, got)
			assert.Equal(t, tt.ok, ok)
		})
	}
}

func TestDetectMode_NonFile(t *testing.T) {
	assert.Equal(t, ModeMachine, DetectMode(&bytes.Buffer{}))
}

func TestPrinter_Machine(t *testing.T) {
	var buf bytes.Buffer
	p := NewPrinter(&buf, ModeMachine)
	p.Title("ignored")
	p.Info("3 units")
	p.KeyValue("groups", 1)
	p.Success("done")
	p.Warning("careful")
	p.Error("broken")

	assert.Equal(t, "3 units\ngroups=1\nOK: done\nWARN: careful\nERROR: broken\n", buf.String())
}

func TestPrinter_Minimal(t *testing.T) {
	var buf bytes.Buffer
	p := NewPrinter(&buf, ModeMinimal)
	p.Title("Result")
	p.Info("3 units")
	p.KeyValue("groups", 1)
	p.Success("done")
	p.Error("broken")

	assert.Equal(t, "Result\n• 3 units\n  groups     1\n✓ done\n✗ broken\n", buf.String())
	assert.Equal(t, ModeMinimal, p.Mode())
}

func TestPrinter_RichContainsText(t *testing.T) {
	var buf bytes.Buffer
	p := NewPrinter(&buf, ModeRich)
	p.Title("Result")
	p.Warning("careful")
	assert.Contains(t, buf.String(), "Result")
	assert.Contains(t, buf.String(), "careful")
}
