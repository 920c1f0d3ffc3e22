// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/AleutianAI/spikecurator/services/curation/session"
	"github.com/AleutianAI/spikecurator/services/curation/telemetry"
	"github.com/AleutianAI/spikecurator/services/curation/watch"
	"github.com/AleutianAI/spikecurator/services/curation/web"
)

const shutdownTimeout = 10 * time.Second

type serveOptions struct {
	addr         string
	curationFile string
	snapshotKey  string
	loadSnapshot bool
	debug        bool
}

func newServeCmd(a *app) *cobra.Command {
	o := &serveOptions{}
	cmd := &cobra.Command{
		Use:   "serve <result.json>",
		Short: "Serve a curation session over HTTP and websockets",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			return a.serve(ctx, args[0], o)
		},
	}
	f := cmd.Flags()
	f.StringVar(&o.addr, "addr", ":8080", "listen address")
	f.StringVar(&o.curationFile, "curation-file", "", "curation JSON file to import now and re-import on change")
	f.StringVar(&o.snapshotKey, "snapshot-key", session.DefaultSnapshotKey, "key for save/load in the snapshot store")
	f.BoolVar(&o.loadSnapshot, "load", false, "load the snapshot under --snapshot-key at start-up")
	f.BoolVar(&o.debug, "debug", false, "gin debug mode with request logging")
	return cmd
}

func (a *app) serve(ctx context.Context, resultPath string, o *serveOptions) error {
	logger := a.logger.Slog()

	prov, err := telemetry.Init(ctx, telemetry.Config{
		ServiceName:    serviceName,
		ServiceVersion: version,
		TraceExporter:  a.cfg.Telemetry.TraceExporter,
		MetricExporter: a.cfg.Telemetry.MetricExporter,
	})
	if err != nil {
		return err
	}
	defer func() {
		sctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := prov.Shutdown(sctx); err != nil {
			logger.Warn("telemetry shutdown failed", "error", err)
		}
	}()

	store, err := a.openStore(ctx, resultPath)
	if err != nil {
		return err
	}
	db, snapshots, err := a.openSnapshots()
	if err != nil {
		return err
	}
	defer db.Close()

	sess, err := a.newSession(store, snapshots, o.snapshotKey)
	if err != nil {
		return err
	}
	if o.loadSnapshot {
		if err := sess.Load(ctx, nil); err != nil {
			return err
		}
	}

	var watcher *watch.CurationWatcher
	if o.curationFile != "" {
		watcher, err = watch.New(o.curationFile, sess, watch.WithLogger(logger))
		if err != nil {
			return err
		}
		defer watcher.Stop()
		if _, err := watcher.Reload(); err != nil {
			return err
		}
	}

	if o.debug {
		gin.SetMode(gin.DebugMode)
	} else {
		gin.SetMode(gin.ReleaseMode)
	}
	h := web.NewHandlers(sess, web.WithLogger(logger))
	router := web.NewRouter(h, serviceName, prov.MetricsHandler())
	if o.debug {
		router.Use(gin.Logger())
	}
	srv := &http.Server{
		Addr:              o.addr,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		logger.Info("curation server listening", "address", o.addr, "session_id", sess.ID())
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		logger.Info("shutting down curation server")
		sctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		return srv.Shutdown(sctx)
	})
	if watcher != nil {
		g.Go(func() error {
			watcher.Start(gctx)
			return nil
		})
	}
	return g.Wait()
}
