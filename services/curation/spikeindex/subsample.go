// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package spikeindex

import (
	"math/rand"
	"sort"
)

// drawSubsample picks up to maxPerUnit spikes per unit with selection
// sampling (Knuth's algorithm S): one sequential pass per unit, output
// already in index order, no scratch allocation.
func (s *Store) drawSubsample(maxPerUnit int, seed int64) []int {
	rng := rand.New(rand.NewSource(seed))

	total := 0
	for _, idx := range s.byUnit {
		total += min(len(idx), maxPerUnit)
	}
	out := make([]int, 0, total)

	for _, idx := range s.byUnit {
		n := len(idx)
		if n <= maxPerUnit {
			out = append(out, idx...)
			continue
		}
		need := maxPerUnit
		for i := 0; i < n && need > 0; i++ {
			if rng.Intn(n-i) < need {
				out = append(out, idx[i])
				need--
			}
		}
	}

	sort.Ints(out)
	return out
}

// RandomSubsample returns the frozen, sorted random subsample of global
// spike indices. Empty when the store was built without a subsample. The
// slice is shared; do not modify it.
func (s *Store) RandomSubsample() []int { return s.randomSubsample }

// IsRandomSelected reports whether spike i belongs to the random subsample.
func (s *Store) IsRandomSelected(i int) bool {
	j := sort.SearchInts(s.randomSubsample, i)
	return j < len(s.randomSubsample) && s.randomSubsample[j] == i
}
