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
	"fmt"
	"log/slog"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/AleutianAI/jsdocclosure/cmd/jsdoc-closure/config"
	"github.com/AleutianAI/jsdocclosure/pkg/logging"
	"github.com/AleutianAI/jsdocclosure/pkg/ux"
	"github.com/AleutianAI/jsdocclosure/services/jsdoc/server"
	"github.com/AleutianAI/jsdocclosure/services/jsdoc/telemetry"
)

const serviceName = "jsdoc-closure"

var (
	errPending  = errors.New("files would be rewritten")
	errFailures = errors.New("some files could not be processed")
)

// app is the state shared by every subcommand once flags are parsed.
type app struct {
	cfg     config.Config
	cfgPath string
	logger  *logging.Logger
	out     *ux.Printer

	// global flags
	configFlag string
	logLevel   string
	logJSON    bool
	outputMode string

	telemetryShutdown func(context.Context) error
}

func newRootCmd(a *app) *cobra.Command {
	root := &cobra.Command{
		Use:   "jsdoc-closure",
		Short: "Rewrite JSDoc module: references for the Closure Compiler",
		Long: `jsdoc-closure rewrites module:path.Symbol references in JSDoc comments
into aliases, existing import bindings or relative import() tokens, and adds
the import declarations and typedef exports the rewritten types need.`,
		Version:       server.ServiceVersion,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return a.setup(cmd)
		},
	}

	flags := root.PersistentFlags()
	flags.StringVar(&a.configFlag, "config", "", "configuration file (default ./"+config.FileName+")")
	flags.StringVar(&a.logLevel, "log-level", "", "log level: debug, info, warn, error")
	flags.BoolVar(&a.logJSON, "log-json", false, "write logs as JSON")
	flags.StringVar(&a.outputMode, "output", "auto", "output style: auto, styled, plain, machine")

	root.AddCommand(
		newRewriteCmd(a),
		newWatchCmd(a),
		newServeCmd(a),
		newConfigCmd(a),
		newCacheCmd(a),
	)
	return root
}

// setup loads configuration and builds the logger and printer.
func (a *app) setup(cmd *cobra.Command) error {
	mode, err := ux.ParseMode(a.outputMode, os.Stdout)
	if err != nil {
		return err
	}
	a.out = ux.NewPrinter(cmd.OutOrStdout(), mode)

	cfg, path, err := config.Load(a.configFlag)
	if err != nil {
		return err
	}
	if a.logLevel != "" {
		cfg.Logging.Level = a.logLevel
	}
	if a.logJSON {
		cfg.Logging.JSON = true
	}
	level, err := logging.ParseLevel(cfg.Logging.Level)
	if err != nil {
		return err
	}
	a.cfg, a.cfgPath = cfg, path
	a.logger = logging.New(logging.Config{
		Level:   level,
		LogDir:  cfg.Logging.Dir,
		Service: serviceName,
		JSON:    cfg.Logging.JSON,
	})
	slog.SetDefault(a.logger.Slog())
	if path != "" {
		a.logger.Debug("configuration loaded", slog.String("path", path))
	}
	return nil
}

// initTelemetry installs exporters. Environment variables apply when the
// configuration leaves an exporter at "none".
func (a *app) initTelemetry(ctx context.Context) error {
	tc := telemetry.DefaultConfig()
	tc.ServiceName = serviceName
	tc.ServiceVersion = server.ServiceVersion
	if t := a.cfg.Telemetry.TraceExporter; t != telemetry.ExporterNone {
		tc.TraceExporter = t
		tc.OTLPEndpoint = a.cfg.Telemetry.OTLPEndpoint
	}
	if m := a.cfg.Telemetry.MetricExporter; m != telemetry.ExporterNone {
		tc.MetricExporter = m
	}
	shutdown, err := telemetry.Init(ctx, tc)
	if err != nil {
		return err
	}
	a.telemetryShutdown = shutdown
	return nil
}

func (a *app) teardown() error {
	var errs []error
	if a.telemetryShutdown != nil {
		errs = append(errs, a.telemetryShutdown(context.Background()))
	}
	if a.logger != nil {
		errs = append(errs, a.logger.Close())
	}
	return errors.Join(errs...)
}

// applyEngineFlags copies explicitly set engine flags over the loaded
// configuration and revalidates it.
func (a *app) applyEngineFlags(cmd *cobra.Command, ef *engineFlags) error {
	flags := cmd.Flags()
	if flags.Changed("style") {
		a.cfg.Style = strings.ToLower(ef.style)
	}
	if flags.Changed("declarations") {
		a.cfg.Declarations = strings.ToLower(ef.declarations)
	}
	if flags.Changed("path-token") {
		a.cfg.PathToken = strings.ToLower(ef.pathToken)
	}
	if flags.Changed("concurrency") {
		a.cfg.Concurrency = ef.concurrency
	}
	if err := a.cfg.Validate(); err != nil {
		return fmt.Errorf("flags: %w", err)
	}
	return nil
}

// engineFlags are shared by rewrite and watch.
type engineFlags struct {
	style        string
	declarations string
	pathToken    string
	concurrency  int
	noCache      bool
}

func (ef *engineFlags) register(cmd *cobra.Command) {
	defaults := config.DefaultConfig()
	flags := cmd.Flags()
	flags.StringVar(&ef.style, "style", defaults.Style, "reference style: alias, reuse, path")
	flags.StringVar(&ef.declarations, "declarations", defaults.Declarations, "import syntax: commonjs, esm")
	flags.StringVar(&ef.pathToken, "path-token", defaults.PathToken, "path token format: import, bare")
	flags.IntVar(&ef.concurrency, "concurrency", defaults.Concurrency, "files processed at once")
	flags.BoolVar(&ef.noCache, "no-cache", false, "skip the result cache")
}
