// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Command spikecurator serves and edits spike-sorting curation sessions.
//
// Usage:
//
//	spikecurator serve result.json --addr :8080 --curation-file curation.json
//	spikecurator tui result.json
//	spikecurator check result.json [curation.json]
//	spikecurator export --key default --out curation.json
//
// Example requests against serve:
//
//	# Health check
//	curl http://localhost:8080/v1/curation/health
//
//	# Merge two units
//	curl -X POST http://localhost:8080/v1/curation/merge \
//	  -H "Content-Type: application/json" \
//	  -d '{"unit_ids": [3, 7]}'
//
//	# Download the curation document
//	curl http://localhost:8080/v1/curation/export
package main

import (
	"io"
	"os"

	"github.com/mattn/go-isatty"
	"github.com/spf13/cobra"

	"github.com/AleutianAI/spikecurator/pkg/logging"
	"github.com/AleutianAI/spikecurator/pkg/ux"
	"github.com/AleutianAI/spikecurator/services/curation/config"
)

const serviceName = "spikecurator"

// annotationQuietConsole marks commands that own the terminal, so logs go
// to the log file only.
const annotationQuietConsole = "quiet-console"

// version is set at build time with -ldflags "-X main.version=...".
var version = "dev"

// app carries what every subcommand needs after flag parsing.
type app struct {
	configPath string
	logLevel   string
	logDir     string
	output     string
	quiet      bool

	cfg    *config.Config
	logger *logging.Logger
}

func newRootCmd() *cobra.Command {
	a := &app{}
	root := &cobra.Command{
		Use:           serviceName,
		Short:         "Curate spike-sorting results",
		Version:       version,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			a.quiet = cmd.Annotations[annotationQuietConsole] == "true"
			return a.setup()
		},
		PersistentPostRun: func(cmd *cobra.Command, args []string) {
			if a.logger != nil {
				_ = a.logger.Close()
			}
		},
	}

	pf := root.PersistentFlags()
	pf.StringVar(&a.configPath, "config", "", "configuration file (default $"+config.EnvConfigPath+" or built-in defaults)")
	pf.StringVar(&a.logLevel, "log-level", "", "override logging.level")
	pf.StringVar(&a.logDir, "log-dir", "", "override logging.dir")
	pf.StringVar(&a.output, "output", "auto", "output style: auto, rich, minimal or machine")

	root.AddCommand(
		newServeCmd(a),
		newTUICmd(a),
		newCheckCmd(a),
		newExportCmd(a),
	)
	return root
}

// setup loads the configuration and builds the logger. Console logs are
// JSON when stderr is not a terminal or the configuration asks for it.
func (a *app) setup() error {
	cfg, err := config.Resolve(a.configPath)
	if err != nil {
		return err
	}
	if a.logLevel != "" {
		cfg.Logging.Level = a.logLevel
	}
	if a.logDir != "" {
		cfg.Logging.Dir = a.logDir
	}
	level, err := logging.ParseLevel(cfg.Logging.Level)
	if err != nil {
		return err
	}

	fd := os.Stderr.Fd()
	tty := isatty.IsTerminal(fd) || isatty.IsCygwinTerminal(fd)
	a.cfg = cfg
	a.logger = logging.New(logging.Config{
		Level:   level,
		LogDir:  cfg.Logging.Dir,
		Service: serviceName,
		JSON:    cfg.Logging.JSON || !tty,
		Quiet:   a.quiet,
	})
	return nil
}

// printer returns a Printer for w in the --output style, detecting the
// style from w when it is "auto".
func (a *app) printer(w io.Writer) *ux.Printer {
	mode, ok := ux.ParseMode(a.output)
	if !ok {
		mode = ux.DetectMode(w)
	}
	return ux.NewPrinter(w, mode)
}

func main() {
	if err := newRootCmd().Execute(); err != nil {
		ux.NewPrinter(os.Stderr, ux.DetectMode(os.Stderr)).Error(err.Error())
		os.Exit(1)
	}
}
