// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package ledger records manual curation decisions over a fixed set of
// units: merges, splits, deletions and labels.
//
// The ledger knows unit identity only. It never reads spike data; range
// checks that need a unit's spike count belong to the caller.
//
// # Invariants
//
// After every call, whether accepted or refused:
//   - merge groups have at least two members and are pairwise disjoint
//   - no unit is both removed and a member of a merge group
//   - a unit has at most one active split, and a split unit is neither
//     removed nor merged at the time the split is made
//   - every stored label names a defined category and one of its options
//
// Refused curation requests return false and leave the ledger unchanged.
// Configuration mistakes (undefined label category, bad value) are errors.
//
// # Thread Safety
//
// Ledger is not safe for concurrent use.
package ledger

import (
	"errors"
	"fmt"
	"strings"
)

// Sentinel errors for ledger operations.
var (
	// ErrUnknownCategory is returned when a label category has no definition.
	ErrUnknownCategory = errors.New("unknown label category")

	// ErrInvalidLabelValue is returned when a value is not one of the
	// category's label options.
	ErrInvalidLabelValue = errors.New("invalid label value")

	// ErrUnknownUnit is returned when a label targets a unit the ledger
	// does not know.
	ErrUnknownUnit = errors.New("unknown unit")

	// ErrInvalidDocument is returned by Import. The concrete error is a
	// *ValidationError listing every problem found.
	ErrInvalidDocument = errors.New("invalid curation document")
)

// ValidationError aggregates every problem found in an imported document.
//
// errors.Is(err, ErrInvalidDocument) holds for every ValidationError.
type ValidationError struct {
	// Problems holds one error per violation, in document order.
	Problems []error
}

// Error returns a summary: the single problem, or the count and the first.
func (e *ValidationError) Error() string {
	switch len(e.Problems) {
	case 0:
		return ErrInvalidDocument.Error()
	case 1:
		return fmt.Sprintf("%v: %v", ErrInvalidDocument, e.Problems[0])
	}
	return fmt.Sprintf("%v: %d problems: %v (and %d more)",
		ErrInvalidDocument, len(e.Problems), e.Problems[0], len(e.Problems)-1)
}

// Unwrap exposes ErrInvalidDocument and the individual problems.
func (e *ValidationError) Unwrap() []error {
	return append([]error{ErrInvalidDocument}, e.Problems...)
}

// ErrorList returns every problem, one per line.
func (e *ValidationError) ErrorList() string {
	var b strings.Builder
	for i, p := range e.Problems {
		if i > 0 {
			b.WriteString("\n")
		}
		b.WriteString(p.Error())
	}
	return b.String()
}

func (e *ValidationError) add(format string, args ...any) {
	e.Problems = append(e.Problems, fmt.Errorf(format, args...))
}
