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
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"slices"
	"sort"

	"github.com/go-playground/validator/v10"

	"github.com/AleutianAI/spikecurator/services/curation/unit"
)

// unitIDKey is the JSON key of the unit in a manual label entry. No label
// category may use it.
const unitIDKey = "unit_id"

// docValidate validates imported documents.
var docValidate *validator.Validate

func init() {
	docValidate = validator.New()
	_ = docValidate.RegisterValidation("sortedset", validateSortedSet)
}

// validateSortedSet accepts integer slices in strictly increasing order.
func validateSortedSet(fl validator.FieldLevel) bool {
	f := fl.Field()
	for i := 1; i < f.Len(); i++ {
		if f.Index(i).Int() <= f.Index(i-1).Int() {
			return false
		}
	}
	return true
}

// Document is the exported curation state.
//
// The JSON form is the interchange format read by downstream tooling:
//
//	{
//	  "unit_ids": [...],
//	  "label_definitions": {"<category>": {"label_options": [...], "exclusive": bool}},
//	  "manual_labels": [{"unit_id": <id>, "<category>": ["<value>"]}],
//	  "merge_unit_groups": [[<id>, ...]],
//	  "removed_units": [<id>, ...],
//	  "splits": [{"unit_id": <id>, "indices": [[...]]}]
//	}
//
// Export never produces null collections.
type Document struct {
	UnitIDs          []unit.ID                  `json:"unit_ids" validate:"required,min=1"`
	LabelDefinitions map[string]LabelDefinition `json:"label_definitions"`
	ManualLabels     []ManualLabel              `json:"manual_labels" validate:"dive"`
	MergeUnitGroups  [][]unit.ID                `json:"merge_unit_groups" validate:"dive,min=2"`
	RemovedUnits     []unit.ID                  `json:"removed_units"`
	Splits           []Split                    `json:"splits" validate:"dive"`
}

// ManualLabel is the label entry of one unit. In JSON the categories are
// sibling keys of "unit_id".
type ManualLabel struct {
	UnitID unit.ID
	Labels map[string][]string `validate:"min=1"`
}

// MarshalJSON writes "unit_id" first, then the categories sorted by name.
func (m ManualLabel) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteString(`{"` + unitIDKey + `":`)
	id, err := json.Marshal(m.UnitID)
	if err != nil {
		return nil, err
	}
	buf.Write(id)

	cats := make([]string, 0, len(m.Labels))
	for k := range m.Labels {
		if k == unitIDKey {
			return nil, fmt.Errorf("label category %q collides with the unit key", k)
		}
		cats = append(cats, k)
	}
	sort.Strings(cats)
	for _, k := range cats {
		vs := m.Labels[k]
		if vs == nil {
			vs = []string{}
		}
		kb, err := json.Marshal(k)
		if err != nil {
			return nil, err
		}
		vb, err := json.Marshal(vs)
		if err != nil {
			return nil, err
		}
		buf.WriteByte(',')
		buf.Write(kb)
		buf.WriteByte(':')
		buf.Write(vb)
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

// UnmarshalJSON reads "unit_id" and treats every other key as a category.
func (m *ManualLabel) UnmarshalJSON(data []byte) error {
	var raw map[string]json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	idRaw, ok := raw[unitIDKey]
	if !ok {
		return errors.New("manual label entry has no unit_id")
	}
	if err := json.Unmarshal(idRaw, &m.UnitID); err != nil {
		return fmt.Errorf("manual label unit_id: %w", err)
	}
	delete(raw, unitIDKey)

	m.Labels = make(map[string][]string, len(raw))
	for k, v := range raw {
		var vs []string
		if err := json.Unmarshal(v, &vs); err != nil {
			return fmt.Errorf("manual label %q: %w", k, err)
		}
		m.Labels[k] = vs
	}
	return nil
}

// DecodeDocument reads one JSON document.
func DecodeDocument(r io.Reader) (Document, error) {
	var doc Document
	if err := json.NewDecoder(r).Decode(&doc); err != nil {
		return Document{}, fmt.Errorf("decode curation document: %w", err)
	}
	return doc, nil
}

// EncodeDocument writes doc as indented JSON.
func EncodeDocument(w io.Writer, doc Document) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(doc); err != nil {
		return fmt.Errorf("encode curation document: %w", err)
	}
	return nil
}

// Export returns the curation state as a Document.
//
// unit_ids follow the ledger's unit order; manual_labels, removed_units and
// splits follow dense unit index order; merge groups keep ledger order.
func (l *Ledger) Export() Document {
	doc := Document{
		UnitIDs:          make([]unit.ID, len(l.unitIDs)),
		LabelDefinitions: copyDefinitions(l.defs),
		ManualLabels:     make([]ManualLabel, 0),
		MergeUnitGroups:  l.MergeGroups(),
		RemovedUnits:     l.Removed(),
		Splits:           l.Splits(),
	}
	copy(doc.UnitIDs, l.unitIDs)
	for u, entry := range l.labels {
		if entry == nil {
			continue
		}
		doc.ManualLabels = append(doc.ManualLabels, ManualLabel{
			UnitID: l.unitIDs[u],
			Labels: copyLabels(entry),
		})
	}
	return doc
}

// Import replaces the curation state with doc.
//
// Description:
//
//	The document is checked against its validation tags and against the
//	ledger invariants: unit_ids must name exactly the ledger's units, every
//	referenced unit must be one of them, merge groups must be disjoint and
//	free of removed units, a unit may carry at most one split, and labels
//	must match the document's own label definitions. Those definitions
//	replace the ledger's. A split may name a unit that was removed or
//	merged after it was split, since Export produces such documents.
//
// Outputs:
//
//	error - A *ValidationError (matching ErrInvalidDocument) listing every
//	  problem. The ledger is unchanged on error.
func (l *Ledger) Import(doc Document) error {
	ve := &ValidationError{}

	if err := docValidate.Struct(doc); err != nil {
		addValidatorErrors(ve, "document", err)
	}

	defs := doc.LabelDefinitions
	if defs == nil {
		defs = map[string]LabelDefinition{}
	}
	for _, cat := range sortedKeys(defs) {
		if cat == "" || cat == unitIDKey {
			ve.add("label_definitions: invalid category name %q", cat)
		}
		if err := docValidate.Struct(defs[cat]); err != nil {
			addValidatorErrors(ve, fmt.Sprintf("label_definitions[%q]", cat), err)
		}
	}

	next := New(l.unitIDs, defs, WithLogger(l.logger))
	next.checkUnitSet(ve, doc.UnitIDs)
	next.importRemoved(ve, doc.RemovedUnits)
	next.importGroups(ve, doc.MergeUnitGroups)
	next.importLabels(ve, doc.ManualLabels)
	next.importSplits(ve, doc.Splits)

	if len(ve.Problems) > 0 {
		l.logger.Debug("curation document rejected",
			slog.Int("problems", len(ve.Problems)),
			slog.String("first", ve.Problems[0].Error()),
		)
		l.recordOp("import", false)
		return ve
	}

	*l = *next
	l.recordOp("import", true)
	return nil
}

func (l *Ledger) checkUnitSet(ve *ValidationError, ids []unit.ID) {
	seen := make(map[unit.ID]bool, len(ids))
	for i, id := range ids {
		if seen[id] {
			ve.add("unit_ids[%d]: duplicate unit %s", i, id)
			continue
		}
		seen[id] = true
		if _, ok := l.index[id]; !ok {
			ve.add("unit_ids[%d]: unknown unit %s", i, id)
		}
	}
	for _, id := range l.unitIDs {
		if !seen[id] {
			ve.add("unit_ids: missing unit %s", id)
		}
	}
}

func (l *Ledger) importRemoved(ve *ValidationError, ids []unit.ID) {
	for i, id := range ids {
		u, ok := l.index[id]
		switch {
		case !ok:
			ve.add("removed_units[%d]: unknown unit %s", i, id)
		case l.removed[u]:
			ve.add("removed_units[%d]: duplicate unit %s", i, id)
		default:
			l.removed[u] = true
			l.numRemoved++
		}
	}
}

func (l *Ledger) importGroups(ve *ValidationError, groups [][]unit.ID) {
	for gi, g := range groups {
		members := make([]int, 0, len(g))
		ok := true
		for mi, id := range g {
			u, known := l.index[id]
			switch {
			case !known:
				ve.add("merge_unit_groups[%d][%d]: unknown unit %s", gi, mi, id)
				ok = false
			case l.member[u] >= 0 || slices.Contains(members, u):
				ve.add("merge_unit_groups[%d][%d]: unit %s already merged", gi, mi, id)
				ok = false
			case l.removed[u]:
				ve.add("merge_unit_groups[%d][%d]: unit %s is removed", gi, mi, id)
				ok = false
			default:
				members = append(members, u)
			}
		}
		if !ok || len(members) < 2 {
			continue
		}
		l.groups = append(l.groups, members)
		for _, u := range members {
			l.member[u] = len(l.groups) - 1
		}
	}
}

func (l *Ledger) importLabels(ve *ValidationError, entries []ManualLabel) {
	for i, e := range entries {
		u, ok := l.index[e.UnitID]
		if !ok {
			ve.add("manual_labels[%d]: unknown unit %s", i, e.UnitID)
			continue
		}
		if l.labels[u] != nil {
			ve.add("manual_labels[%d]: duplicate entry for unit %s", i, e.UnitID)
			continue
		}
		entry := make(map[string][]string, len(e.Labels))
		for _, cat := range sortedKeys(e.Labels) {
			vs := e.Labels[cat]
			def, ok := l.defs[cat]
			if !ok {
				ve.add("manual_labels[%d]: %w: %q", i, ErrUnknownCategory, cat)
				continue
			}
			if len(vs) == 0 || (def.Exclusive && len(vs) != 1) {
				ve.add("manual_labels[%d]: category %q has %d values", i, cat, len(vs))
				continue
			}
			valid := true
			for j, v := range vs {
				if !def.Allows(v) || slices.Contains(vs[:j], v) {
					ve.add("manual_labels[%d]: %w: %q in %q", i, ErrInvalidLabelValue, v, cat)
					valid = false
				}
			}
			if valid {
				entry[cat] = append([]string(nil), vs...)
			}
		}
		if len(entry) > 0 {
			l.labels[u] = entry
		}
	}
}

func (l *Ledger) importSplits(ve *ValidationError, splits []Split) {
	for i, s := range splits {
		u, ok := l.index[s.UnitID]
		if !ok {
			ve.add("splits[%d]: unknown unit %s", i, s.UnitID)
			continue
		}
		if _, dup := l.splits[u]; dup {
			ve.add("splits[%d]: duplicate split for unit %s", i, s.UnitID)
			continue
		}
		if len(s.Indices) == 1 && len(s.Indices[0]) > 0 {
			l.splits[u] = append([]int(nil), s.Indices[0]...)
		}
	}
}

func addValidatorErrors(ve *ValidationError, prefix string, err error) {
	var fields validator.ValidationErrors
	if !errors.As(err, &fields) {
		ve.add("%s: %v", prefix, err)
		return
	}
	for _, fe := range fields {
		if fe.Param() != "" {
			ve.add("%s: %s failed %s=%s", prefix, fe.Namespace(), fe.Tag(), fe.Param())
		} else {
			ve.add("%s: %s failed %s", prefix, fe.Namespace(), fe.Tag())
		}
	}
}

func sortedKeys[V any](m map[string]V) []string {
	out := make([]string, 0, len(m))
	for k := range m {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}
