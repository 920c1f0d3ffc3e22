// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package watch re-imports a curation file when it changes on disk.
//
// # Description
//
// External tools (a notebook, a text editor, another curation session)
// can write a curation JSON document next to the recording. The watcher
// observes the file's directory, debounces bursts of writes, and imports
// the new document into the session as if a view with no identity had
// made the change, so every view refreshes.
//
// # Thread Safety
//
// Safe for concurrent use. Imports run on the watcher goroutine through
// Session.Do.
package watch

import (
	"bytes"
	"context"
	"crypto/sha256"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/AleutianAI/spikecurator/services/curation/ledger"
	"github.com/AleutianAI/spikecurator/services/curation/session"
)

// DefaultDebounce is how long the file must be quiet before it is read.
const DefaultDebounce = 200 * time.Millisecond

var reloadsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
	Name: "curation_watch_reloads_total",
	Help: "Curation file reloads by result",
}, []string{"result"})

// Result of one reload attempt.
const (
	ResultImported  = "imported"
	ResultUnchanged = "unchanged"
	ResultMissing   = "missing"
	ResultInvalid   = "invalid"
)

// CurationWatcher keeps a session in sync with a curation file.
type CurationWatcher struct {
	path     string
	sess     *session.Session
	watcher  *fsnotify.Watcher
	debounce time.Duration
	logger   *slog.Logger
	onReload func(result string, err error)

	mu       sync.Mutex
	lastSum  [sha256.Size]byte
	haveSum  bool
	stopOnce sync.Once
	done     chan struct{}
}

// Option configures a CurationWatcher.
type Option func(*CurationWatcher)

// WithDebounce sets the quiet period before a changed file is read.
func WithDebounce(d time.Duration) Option {
	return func(w *CurationWatcher) {
		if d > 0 {
			w.debounce = d
		}
	}
}

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(w *CurationWatcher) { w.logger = logger }
}

// WithReloadHook sets a function called after every reload attempt.
func WithReloadHook(fn func(result string, err error)) Option {
	return func(w *CurationWatcher) { w.onReload = fn }
}

// New creates a watcher for the curation file at path.
//
// # Inputs
//
//   - path: The curation JSON file. It need not exist yet; its directory
//     must.
//   - sess: The session receiving imports.
//
// # Outputs
//
//   - *CurationWatcher: Ready to Start.
//   - error: Non-nil if the directory cannot be watched.
func New(path string, sess *session.Session, opts ...Option) (*CurationWatcher, error) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return nil, fmt.Errorf("resolve %s: %w", path, err)
	}
	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}
	if err := fw.Add(filepath.Dir(abs)); err != nil {
		fw.Close()
		return nil, fmt.Errorf("watch %s: %w", filepath.Dir(abs), err)
	}

	w := &CurationWatcher{
		path:     abs,
		sess:     sess,
		watcher:  fw,
		debounce: DefaultDebounce,
		logger:   slog.Default(),
		done:     make(chan struct{}),
	}
	for _, opt := range opts {
		opt(w)
	}
	w.logger = w.logger.With("path", abs)
	return w, nil
}

// Path returns the watched file.
func (w *CurationWatcher) Path() string { return w.path }

// Start watches until ctx is cancelled or Stop is called. It blocks; run
// it in a goroutine.
func (w *CurationWatcher) Start(ctx context.Context) {
	timer := time.NewTimer(w.debounce)
	if !timer.Stop() {
		<-timer.C
	}
	defer timer.Stop()

	w.logger.Debug("curation watcher started")
	for {
		select {
		case event, ok := <-w.watcher.Events:
			if !ok {
				return
			}
			if !w.relevant(event) {
				continue
			}
			timer.Reset(w.debounce)

		case <-timer.C:
			w.Reload()

		case err, ok := <-w.watcher.Errors:
			if !ok {
				return
			}
			w.logger.Warn("curation watcher error", "error", err)

		case <-ctx.Done():
			w.logger.Debug("curation watcher stopping")
			return

		case <-w.done:
			return
		}
	}
}

func (w *CurationWatcher) relevant(event fsnotify.Event) bool {
	if filepath.Clean(event.Name) != w.path {
		return false
	}
	return event.Has(fsnotify.Write) || event.Has(fsnotify.Create) || event.Has(fsnotify.Rename)
}

// Reload reads the file and imports it when its content changed since the
// last import.
//
// # Outputs
//
//   - string: One of ResultImported, ResultUnchanged, ResultMissing or
//     ResultInvalid.
//   - error: The read, decode or import error, if any. The session is
//     unchanged on error.
func (w *CurationWatcher) Reload() (string, error) {
	result, err := w.reload()
	reloadsTotal.WithLabelValues(result).Inc()
	switch {
	case err != nil:
		w.logger.Warn("curation file rejected", "result", result, "error", err)
	case result == ResultImported:
		w.logger.Info("curation file imported")
	}
	if w.onReload != nil {
		w.onReload(result, err)
	}
	return result, err
}

func (w *CurationWatcher) reload() (string, error) {
	data, err := os.ReadFile(w.path)
	if errors.Is(err, os.ErrNotExist) {
		return ResultMissing, nil
	}
	if err != nil {
		return ResultInvalid, err
	}
	sum := sha256.Sum256(data)

	w.mu.Lock()
	defer w.mu.Unlock()
	if w.haveSum && sum == w.lastSum {
		return ResultUnchanged, nil
	}
	doc, err := ledger.DecodeDocument(bytes.NewReader(data))
	if err != nil {
		return ResultInvalid, err
	}
	w.sess.Do(func(s *session.Session) { err = s.Import(nil, doc) })
	if err != nil {
		return ResultInvalid, err
	}
	w.lastSum, w.haveSum = sum, true
	return ResultImported, nil
}

// WriteCurrent exports the session to the watched file and records its
// content, so the write does not come back as an import.
func (w *CurationWatcher) WriteCurrent() error {
	var doc ledger.Document
	w.sess.Do(func(s *session.Session) { doc = s.Export() })

	var buf bytes.Buffer
	if err := ledger.EncodeDocument(&buf, doc); err != nil {
		return err
	}
	data := buf.Bytes()

	w.mu.Lock()
	defer w.mu.Unlock()
	tmp := w.path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return fmt.Errorf("write %s: %w", tmp, err)
	}
	if err := os.Rename(tmp, w.path); err != nil {
		return fmt.Errorf("replace %s: %w", w.path, err)
	}
	w.lastSum, w.haveSum = sha256.Sum256(data), true
	return nil
}

// Stop stops watching. Safe to call more than once.
func (w *CurationWatcher) Stop() error {
	var err error
	w.stopOnce.Do(func() {
		close(w.done)
		err = w.watcher.Close()
	})
	return err
}
