// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package analyzer reads spike-sorting results into the spike index.
//
// A result file is JSON:
//
//	{
//	  "sampling_frequency": 30000,
//	  "unit_ids": [1, 2, "noise-7"],
//	  "segments": [
//	    {"sample_index": [...], "unit_index": [...], "channel_index": [...]}
//	  ]
//	}
//
// The three arrays of a segment are parallel. unit_index refers to
// positions in unit_ids.
package analyzer

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"sort"

	"github.com/go-playground/validator/v10"

	"github.com/AleutianAI/spikecurator/services/curation/spikeindex"
	"github.com/AleutianAI/spikecurator/services/curation/unit"
)

// ErrInvalidResult is returned for a result that fails validation.
var ErrInvalidResult = errors.New("invalid analyzer result")

var resultValidate = validator.New()

// Result is a decoded spike-sorting result.
type Result struct {
	SamplingFrequency float64   `json:"sampling_frequency" validate:"gt=0"`
	UnitIDs           []unit.ID `json:"unit_ids" validate:"required,min=1"`
	Segments          []Segment `json:"segments" validate:"required,min=1,dive"`
}

// Segment holds one segment's spikes as parallel arrays.
type Segment struct {
	SampleIndex  []int64 `json:"sample_index"`
	UnitIndex    []int32 `json:"unit_index" validate:"dive,min=0"`
	ChannelIndex []int32 `json:"channel_index" validate:"dive,min=0"`
}

// Load reads and validates a result file.
func Load(path string) (*Result, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open result: %w", err)
	}
	defer f.Close()

	res, err := Decode(f)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return res, nil
}

// Decode reads and validates a result.
func Decode(r io.Reader) (*Result, error) {
	var res Result
	if err := json.NewDecoder(r).Decode(&res); err != nil {
		return nil, fmt.Errorf("decode result: %w", err)
	}
	if err := res.Validate(); err != nil {
		return nil, err
	}
	return &res, nil
}

// Validate checks field constraints and that every segment's arrays are
// parallel and refer to known units.
func (r *Result) Validate() error {
	if err := resultValidate.Struct(r); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidResult, err)
	}
	for s, seg := range r.Segments {
		n := len(seg.SampleIndex)
		if len(seg.UnitIndex) != n || len(seg.ChannelIndex) != n {
			return fmt.Errorf("%w: segment %d has %d samples, %d unit indices, %d channel indices",
				ErrInvalidResult, s, n, len(seg.UnitIndex), len(seg.ChannelIndex))
		}
		for i, u := range seg.UnitIndex {
			if int(u) >= len(r.UnitIDs) {
				return fmt.Errorf("%w: segment %d spike %d: unit index %d out of range [0, %d)",
					ErrInvalidResult, s, i, u, len(r.UnitIDs))
			}
		}
	}
	return nil
}

// NumSpikes returns the total spike count over all segments.
func (r *Result) NumSpikes() int {
	n := 0
	for _, seg := range r.Segments {
		n += len(seg.SampleIndex)
	}
	return n
}

// Spikes flattens the segments into one stream sorted by segment and then
// sample index. Spikes with equal sample indices keep their file order.
func (r *Result) Spikes() []spikeindex.Spike {
	out := make([]spikeindex.Spike, 0, r.NumSpikes())
	for s, seg := range r.Segments {
		start := len(out)
		for i := range seg.SampleIndex {
			out = append(out, spikeindex.Spike{
				SampleIndex:  seg.SampleIndex[i],
				UnitIndex:    seg.UnitIndex[i],
				ChannelIndex: seg.ChannelIndex[i],
				SegmentIndex: int32(s),
			})
		}
		part := out[start:]
		sort.SliceStable(part, func(a, b int) bool {
			return part[a].SampleIndex < part[b].SampleIndex
		})
	}
	return out
}

// Build indexes the result. The sampling frequency option is added ahead
// of opts.
func (r *Result) Build(opts ...spikeindex.Option) (*spikeindex.Store, error) {
	all := append([]spikeindex.Option{spikeindex.WithSamplingFrequency(r.SamplingFrequency)}, opts...)
	return spikeindex.Build(r.Spikes(), r.UnitIDs, len(r.Segments), all...)
}
