// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package session

import (
	"context"
	"fmt"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/AleutianAI/spikecurator/services/curation/bus"
	"github.com/AleutianAI/spikecurator/services/curation/ledger"
)

var tracer = otel.Tracer("spikecurator.session")

// SnapshotStore persists curation documents by key.
type SnapshotStore interface {
	SaveCuration(ctx context.Context, key string, doc ledger.Document) error
	LoadCuration(ctx context.Context, key string) (ledger.Document, error)
}

// SnapshotKey returns the key Save and Load use.
func (s *Session) SnapshotKey() string { return s.key }

// Save writes the current curation document to the snapshot store.
func (s *Session) Save(ctx context.Context) error {
	if s.snapshots == nil {
		return ErrNoSnapshotStore
	}
	ctx, span := tracer.Start(ctx, "session.Save",
		trace.WithAttributes(attribute.String("snapshot.key", s.key)))
	defer span.End()

	if err := s.snapshots.SaveCuration(ctx, s.key, s.ledger.Export()); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "save failed")
		return fmt.Errorf("save curation %q: %w", s.key, err)
	}
	s.logger.Info("curation saved", "key", s.key)
	return nil
}

// Load reads the curation document from the snapshot store and imports it
// as origin. On error the session is unchanged.
func (s *Session) Load(ctx context.Context, origin bus.View) error {
	if s.snapshots == nil {
		return ErrNoSnapshotStore
	}
	ctx, span := tracer.Start(ctx, "session.Load",
		trace.WithAttributes(attribute.String("snapshot.key", s.key)))
	defer span.End()

	doc, err := s.snapshots.LoadCuration(ctx, s.key)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "load failed")
		return fmt.Errorf("load curation %q: %w", s.key, err)
	}
	if err := s.Import(origin, doc); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "import failed")
		return fmt.Errorf("load curation %q: %w", s.key, err)
	}
	s.logger.Info("curation loaded", "key", s.key)
	return nil
}
