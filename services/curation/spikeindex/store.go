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
	"context"
	"fmt"
	"log/slog"
	"sort"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/AleutianAI/spikecurator/services/curation/unit"
)

// Spike is one detected firing event.
type Spike struct {
	// SampleIndex is the sample position within the segment. Monotonic
	// (non-decreasing) within a segment.
	SampleIndex int64 `json:"sample_index"`

	// UnitIndex is the dense index of the unit, in [0, NumUnits).
	UnitIndex int32 `json:"unit_index"`

	// ChannelIndex is the primary channel of the spike.
	ChannelIndex int32 `json:"channel_index"`

	// SegmentIndex is the segment the spike was recorded in.
	SegmentIndex int32 `json:"segment_index"`
}

// Bounds is a half-open range [Start, End) into the global spike array.
type Bounds struct {
	Start int
	End   int
}

// Len returns the number of spikes in the range.
func (b Bounds) Len() int { return b.End - b.Start }

// Store is the read-only index over a spike stream.
type Store struct {
	spikes    []Spike
	unitIDs   []unit.ID
	unitIndex map[unit.ID]int
	segments  []Bounds

	// byUnit[u] holds the sorted global indices of unit u's spikes. The
	// indices of segment s occupy byUnit[u][segOffsets[u][s]:segOffsets[u][s+1]].
	byUnit     [][]int
	segOffsets [][]int

	samplingFrequency float64
	randomSubsample   []int
	colors            []string
}

// Option configures Build.
type Option func(*options)

type options struct {
	samplingFrequency float64
	subsampleMax      int
	subsampleSeed     int64
	logger            *slog.Logger
}

// WithSamplingFrequency sets the recording sampling rate in Hz.
func WithSamplingFrequency(hz float64) Option {
	return func(o *options) { o.samplingFrequency = hz }
}

// WithRandomSubsample marks up to maxPerUnit spikes of every unit as
// randomly selected. The choice is made once, at build time, from a source
// seeded with seed, and never changes afterwards. A maxPerUnit of zero
// disables the subsample.
func WithRandomSubsample(maxPerUnit int, seed int64) Option {
	return func(o *options) {
		o.subsampleMax = maxPerUnit
		o.subsampleSeed = seed
	}
}

// WithLogger sets the logger used during the build.
func WithLogger(logger *slog.Logger) Option {
	return func(o *options) { o.logger = logger }
}

// Build indexes spikes with a background context.
//
// See BuildContext.
func Build(spikes []Spike, unitIDs []unit.ID, segmentCount int, opts ...Option) (*Store, error) {
	return BuildContext(context.Background(), spikes, unitIDs, segmentCount, opts...)
}

// BuildContext validates the spike stream and computes the index.
//
// Description:
//
//	Checks preconditions, then computes segment bounds with a binary search
//	per boundary and the per-unit and per-(segment, unit) index lists.
//	Segments are counted and filled concurrently; every goroutine writes a
//	disjoint region of the per-unit lists.
//
// Inputs:
//
//	ctx - Context for tracing and cancellation of the per-segment workers.
//	spikes - Spikes sorted by (SegmentIndex, SampleIndex). Must not be nil;
//	  an empty, non-nil slice is a recording with no spikes.
//	unitIDs - Unit ids in dense index order. Must be non-empty and unique.
//	segmentCount - Number of segments. Must be positive.
//
// Outputs:
//
//	*Store - The built index.
//	error - One of the package sentinels (wrapped with detail) on failure.
func BuildContext(ctx context.Context, spikes []Spike, unitIDs []unit.ID, segmentCount int, opts ...Option) (*Store, error) {
	o := options{logger: slog.Default()}
	for _, opt := range opts {
		opt(&o)
	}

	ctx, span := startBuildSpan(ctx, len(spikes), len(unitIDs), segmentCount)
	defer span.End()
	start := time.Now()

	s, err := build(ctx, spikes, unitIDs, segmentCount, o)
	recordBuild(ctx, time.Since(start), len(spikes), err == nil)
	if err != nil {
		span.RecordError(err)
		return nil, err
	}

	o.logger.Debug("spike index built",
		slog.Int("spikes", len(spikes)),
		slog.Int("units", len(unitIDs)),
		slog.Int("segments", segmentCount),
		slog.Duration("elapsed", time.Since(start)),
	)
	return s, nil
}

func build(ctx context.Context, spikes []Spike, unitIDs []unit.ID, segmentCount int, o options) (*Store, error) {
	if spikes == nil {
		return nil, ErrMissingSpikes
	}
	if len(unitIDs) == 0 {
		return nil, ErrNoUnits
	}
	if segmentCount < 1 {
		return nil, fmt.Errorf("%w: got %d", ErrInvalidSegmentCount, segmentCount)
	}

	unitIndex := make(map[unit.ID]int, len(unitIDs))
	for i, id := range unitIDs {
		if _, dup := unitIndex[id]; dup {
			return nil, fmt.Errorf("%w: %s", ErrDuplicateUnit, id)
		}
		unitIndex[id] = i
	}

	if err := validateSpikes(spikes, len(unitIDs), segmentCount); err != nil {
		return nil, err
	}

	s := &Store{
		spikes:            spikes,
		unitIDs:           append([]unit.ID(nil), unitIDs...),
		unitIndex:         unitIndex,
		segments:          segmentBounds(spikes, segmentCount),
		samplingFrequency: o.samplingFrequency,
		colors:            assignColors(len(unitIDs)),
	}

	if err := s.indexUnits(ctx); err != nil {
		return nil, err
	}
	if o.subsampleMax > 0 {
		s.randomSubsample = s.drawSubsample(o.subsampleMax, o.subsampleSeed)
	}
	return s, nil
}

// validateSpikes checks ranges and the (segment, sample) ordering.
func validateSpikes(spikes []Spike, numUnits, segmentCount int) error {
	for i := range spikes {
		sp := &spikes[i]
		if sp.UnitIndex < 0 || int(sp.UnitIndex) >= numUnits {
			return fmt.Errorf("%w: spike %d has unit index %d", ErrUnitOutOfRange, i, sp.UnitIndex)
		}
		if sp.SegmentIndex < 0 || int(sp.SegmentIndex) >= segmentCount {
			return fmt.Errorf("%w: spike %d has segment index %d", ErrSegmentOutOfRange, i, sp.SegmentIndex)
		}
		if i == 0 {
			continue
		}
		prev := &spikes[i-1]
		if sp.SegmentIndex < prev.SegmentIndex ||
			(sp.SegmentIndex == prev.SegmentIndex && sp.SampleIndex < prev.SampleIndex) {
			return fmt.Errorf("%w: spike %d", ErrUnsorted, i)
		}
	}
	return nil
}

// segmentBounds locates each segment's start with sort.Search over the
// sorted segment indices.
func segmentBounds(spikes []Spike, segmentCount int) []Bounds {
	starts := make([]int, segmentCount+1)
	for seg := 0; seg < segmentCount; seg++ {
		target := int32(seg)
		starts[seg] = sort.Search(len(spikes), func(i int) bool {
			return spikes[i].SegmentIndex >= target
		})
	}
	starts[segmentCount] = len(spikes)

	bounds := make([]Bounds, segmentCount)
	for seg := range bounds {
		bounds[seg] = Bounds{Start: starts[seg], End: starts[seg+1]}
	}
	return bounds
}

// indexUnits fills byUnit and segOffsets in two concurrent passes over the
// segments: count, then fill.
func (s *Store) indexUnits(ctx context.Context) error {
	numUnits := len(s.unitIDs)
	numSegs := len(s.segments)

	counts := make([][]int, numSegs)
	g, gctx := errgroup.WithContext(ctx)
	for seg := range s.segments {
		g.Go(func() error {
			c := make([]int, numUnits)
			b := s.segments[seg]
			for i := b.Start; i < b.End; i++ {
				if i&0xffff == 0 {
					if err := gctx.Err(); err != nil {
						return err
					}
				}
				c[s.spikes[i].UnitIndex]++
			}
			counts[seg] = c
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return fmt.Errorf("count spikes per unit: %w", err)
	}

	s.byUnit = make([][]int, numUnits)
	s.segOffsets = make([][]int, numUnits)
	for u := 0; u < numUnits; u++ {
		off := make([]int, numSegs+1)
		for seg := 0; seg < numSegs; seg++ {
			off[seg+1] = off[seg] + counts[seg][u]
		}
		s.segOffsets[u] = off
		s.byUnit[u] = make([]int, off[numSegs])
	}

	g, gctx = errgroup.WithContext(ctx)
	for seg := range s.segments {
		g.Go(func() error {
			cursor := make([]int, numUnits)
			for u := range cursor {
				cursor[u] = s.segOffsets[u][seg]
			}
			b := s.segments[seg]
			for i := b.Start; i < b.End; i++ {
				if i&0xffff == 0 {
					if err := gctx.Err(); err != nil {
						return err
					}
				}
				u := s.spikes[i].UnitIndex
				s.byUnit[u][cursor[u]] = i
				cursor[u]++
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return fmt.Errorf("fill unit index lists: %w", err)
	}
	return nil
}

// NumSpikes returns the total number of spikes.
func (s *Store) NumSpikes() int { return len(s.spikes) }

// NumUnits returns the number of units.
func (s *Store) NumUnits() int { return len(s.unitIDs) }

// NumSegments returns the number of segments.
func (s *Store) NumSegments() int { return len(s.segments) }

// UnitIDs returns a copy of the unit ids in dense index order.
func (s *Store) UnitIDs() []unit.ID {
	return append([]unit.ID(nil), s.unitIDs...)
}

// UnitIndex maps a unit id to its dense index.
func (s *Store) UnitIndex(id unit.ID) (int, bool) {
	i, ok := s.unitIndex[id]
	return i, ok
}

// HasUnit reports whether id is a known unit.
func (s *Store) HasUnit(id unit.ID) bool {
	_, ok := s.unitIndex[id]
	return ok
}

// UnitIDAt maps a dense index back to the unit id. Panics if i is out of range.
func (s *Store) UnitIDAt(i int) unit.ID { return s.unitIDs[i] }

// Spike returns spike i. Panics if i is out of range.
func (s *Store) Spike(i int) Spike { return s.spikes[i] }

// UnitOfSpike returns the unit id owning spike i.
func (s *Store) UnitOfSpike(i int) unit.ID {
	return s.unitIDs[s.spikes[i].UnitIndex]
}

// SegmentBounds returns the global index range of a segment. Out-of-range
// segments yield an empty range.
func (s *Store) SegmentBounds(seg int) Bounds {
	if seg < 0 || seg >= len(s.segments) {
		return Bounds{}
	}
	return s.segments[seg]
}

// SpikeIndicesFor returns the sorted global indices of the unit's spikes.
// Returns nil for unknown units. The slice is shared; do not modify it.
func (s *Store) SpikeIndicesFor(id unit.ID) []int {
	u, ok := s.unitIndex[id]
	if !ok {
		return nil
	}
	return s.byUnit[u]
}

// SpikeIndicesForSegment returns the unit's sorted global indices within
// one segment. Returns nil for unknown units or segments.
func (s *Store) SpikeIndicesForSegment(id unit.ID, seg int) []int {
	u, ok := s.unitIndex[id]
	if !ok || seg < 0 || seg >= len(s.segments) {
		return nil
	}
	off := s.segOffsets[u]
	return s.byUnit[u][off[seg]:off[seg+1]]
}

// SpikeIndicesAt is SpikeIndicesFor addressed by dense unit index.
func (s *Store) SpikeIndicesAt(u int) []int {
	if u < 0 || u >= len(s.byUnit) {
		return nil
	}
	return s.byUnit[u]
}

// SpikeIndicesAtSegment is SpikeIndicesForSegment addressed by dense unit index.
func (s *Store) SpikeIndicesAtSegment(u, seg int) []int {
	if u < 0 || u >= len(s.byUnit) || seg < 0 || seg >= len(s.segments) {
		return nil
	}
	off := s.segOffsets[u]
	return s.byUnit[u][off[seg]:off[seg+1]]
}

// SpikeCount returns the cached spike count of a unit, or 0 when unknown.
func (s *Store) SpikeCount(id unit.ID) int {
	return len(s.SpikeIndicesFor(id))
}

// SamplingFrequency returns the sampling rate in Hz (0 when unset).
func (s *Store) SamplingFrequency() float64 { return s.samplingFrequency }

// SampleToSeconds converts a sample index to seconds from segment start.
// Returns 0 when the sampling frequency is unset.
func (s *Store) SampleToSeconds(sample int64) float64 {
	if s.samplingFrequency <= 0 {
		return 0
	}
	return float64(sample) / s.samplingFrequency
}

// Color returns the display color of a unit as "#rrggbb", or "" when unknown.
func (s *Store) Color(id unit.ID) string {
	u, ok := s.unitIndex[id]
	if !ok {
		return ""
	}
	return s.colors[u]
}
