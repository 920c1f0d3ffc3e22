// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package ledger

import (
	"fmt"
	"log/slog"
	"slices"
	"sort"

	"github.com/AleutianAI/spikecurator/services/curation/unit"
)

// LabelDefinition describes one label category.
type LabelDefinition struct {
	// LabelOptions lists the allowed values.
	LabelOptions []string `json:"label_options" yaml:"label_options" validate:"required,min=1,unique,dive,required"`

	// Exclusive categories hold one value per unit. Non-exclusive
	// categories hold a set of values.
	Exclusive bool `json:"exclusive" yaml:"exclusive"`
}

// Allows reports whether v is one of the options.
func (d LabelDefinition) Allows(v string) bool {
	return slices.Contains(d.LabelOptions, v)
}

// DefaultLabelDefinitions returns the quality category used when no
// definitions are configured.
func DefaultLabelDefinitions() map[string]LabelDefinition {
	return map[string]LabelDefinition{
		"quality": {
			LabelOptions: []string{"good", "noise", "MUA"},
			Exclusive:    true,
		},
	}
}

func copyDefinitions(defs map[string]LabelDefinition) map[string]LabelDefinition {
	out := make(map[string]LabelDefinition, len(defs))
	for k, d := range defs {
		out[k] = LabelDefinition{
			LabelOptions: append([]string(nil), d.LabelOptions...),
			Exclusive:    d.Exclusive,
		}
	}
	return out
}

// LabelDefinitions returns a copy of the label definitions.
func (l *Ledger) LabelDefinitions() map[string]LabelDefinition {
	return copyDefinitions(l.defs)
}

// Categories returns the defined category names, sorted.
func (l *Ledger) Categories() []string {
	out := make([]string, 0, len(l.defs))
	for k := range l.defs {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}

// SetLabel sets or clears one (unit, category) label.
//
// Description:
//
//	A nil value deletes the category from the unit; a unit left with no
//	categories has its entry pruned. Any other value replaces the
//	category's entry with that single value, for exclusive and
//	non-exclusive categories alike. Multi-valued entries of non-exclusive
//	categories arrive only through Import.
//
// Outputs:
//
//	error - ErrUnknownCategory, ErrUnknownUnit or ErrInvalidLabelValue,
//	  wrapped with the offending key. The ledger is unchanged on error.
func (l *Ledger) SetLabel(id unit.ID, category string, value *string) error {
	def, ok := l.defs[category]
	if !ok {
		return fmt.Errorf("%w: %q", ErrUnknownCategory, category)
	}
	u, ok := l.index[id]
	if !ok {
		return fmt.Errorf("%w: %s", ErrUnknownUnit, id)
	}

	if value == nil {
		if entry := l.labels[u]; entry != nil {
			delete(entry, category)
			if len(entry) == 0 {
				l.labels[u] = nil
			}
		}
		l.recordOp("label", true)
		return nil
	}

	if !def.Allows(*value) {
		return fmt.Errorf("%w: %q is not an option of %q", ErrInvalidLabelValue, *value, category)
	}
	if l.labels[u] == nil {
		l.labels[u] = make(map[string][]string)
	}
	l.labels[u][category] = []string{*value}

	l.logger.Debug("label set",
		slog.String("unit_id", id.String()),
		slog.String("category", category),
		slog.String("value", *value),
	)
	l.recordOp("label", true)
	return nil
}

// Label returns the first value of a unit's category.
func (l *Ledger) Label(id unit.ID, category string) (string, bool) {
	u, ok := l.index[id]
	if !ok || l.labels[u] == nil {
		return "", false
	}
	vs := l.labels[u][category]
	if len(vs) == 0 {
		return "", false
	}
	return vs[0], true
}

// Labels returns a copy of every label of a unit, or nil when it has none.
func (l *Ledger) Labels(id unit.ID) map[string][]string {
	u, ok := l.index[id]
	if !ok || l.labels[u] == nil {
		return nil
	}
	return copyLabels(l.labels[u])
}

func copyLabels(m map[string][]string) map[string][]string {
	out := make(map[string][]string, len(m))
	for k, vs := range m {
		out[k] = append([]string(nil), vs...)
	}
	return out
}
