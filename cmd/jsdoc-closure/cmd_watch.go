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
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/AleutianAI/jsdocclosure/services/jsdoc/runner"
)

type watchFlags struct {
	engineFlags
	debounce time.Duration
	initial  bool
}

func newWatchCmd(a *app) *cobra.Command {
	var f watchFlags
	cmd := &cobra.Command{
		Use:   "watch [dir]",
		Short: "Rewrite files in place as they change",
		Long: `Watches a directory tree (default ".") and rewrites JavaScript files in
place whenever they are created or modified. Modules whose default export
changed are forgotten so dependent files resolve against the new version.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.runWatch(cmd, args, &f)
		},
	}
	f.register(cmd)
	cmd.Flags().DurationVar(&f.debounce, "debounce", 0, "quiet period before a batch runs (default from config)")
	cmd.Flags().BoolVar(&f.initial, "initial", true, "rewrite the whole tree before watching")
	return cmd
}

func (a *app) runWatch(cmd *cobra.Command, args []string, f *watchFlags) error {
	if err := a.applyEngineFlags(cmd, &f.engineFlags); err != nil {
		return err
	}
	root := "."
	if len(args) == 1 {
		root = args[0]
	}
	debounce := a.cfg.Watch.Debounce
	if f.debounce > 0 {
		debounce = f.debounce
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	if err := a.initTelemetry(ctx); err != nil {
		return err
	}

	p, err := newPipeline(a.cfg, a.logger.Slog())
	if err != nil {
		return err
	}
	defer p.Close()

	rc := runnerConfig(a.cfg)
	rc.Write = true
	r, err := p.newRunner(a.cfg, rc, !f.noCache, a.logger.Slog())
	if err != nil {
		return err
	}

	if f.initial {
		summary, err := r.Run(ctx, []string{root})
		if err != nil {
			return err
		}
		reportOutcomes(a.out, summary, true)
		reportSummary(a.out, summary)
	}

	w, err := runner.NewWatcher(r, root, runner.WatchOptions{
		Debounce: debounce,
		Handler: func(changes []runner.Change, summary *runner.Summary, err error) {
			if err != nil {
				a.out.Error(err.Error())
				return
			}
			reportOutcomes(a.out, summary, true)
			a.logger.Debug("batch done",
				"changes", len(changes),
				"written", summary.Written,
				"failed", summary.Failed)
		},
	})
	if err != nil {
		return err
	}
	a.out.Info(fmt.Sprintf("watching %s (Ctrl-C to stop)", root))
	return w.Run(ctx)
}
