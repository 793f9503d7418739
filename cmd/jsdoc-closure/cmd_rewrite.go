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
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
)

type rewriteFlags struct {
	engineFlags
	write bool
	check bool
	diff  bool
}

func newRewriteCmd(a *app) *cobra.Command {
	var f rewriteFlags
	cmd := &cobra.Command{
		Use:   "rewrite [path...]",
		Short: "Rewrite module: references in files and directories",
		Long: `Rewrites every JavaScript file named or found under the given paths
(default "."). Without --write the files are left untouched and the summary
reports what would change. --check exits with status 1 when any file would
change.`,
		Example: `  jsdoc-closure rewrite --diff src
  jsdoc-closure rewrite --write --style reuse src lib/main.js
  jsdoc-closure rewrite --check .`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.runRewrite(cmd, args, &f)
		},
	}
	f.register(cmd)
	cmd.Flags().BoolVarP(&f.write, "write", "w", false, "write changes back to the files")
	cmd.Flags().BoolVar(&f.check, "check", false, "exit 1 if any file would change")
	cmd.Flags().BoolVarP(&f.diff, "diff", "d", false, "print a unified diff per changed file")
	cmd.MarkFlagsMutuallyExclusive("write", "check")
	return cmd
}

func (a *app) runRewrite(cmd *cobra.Command, args []string, f *rewriteFlags) error {
	if err := a.applyEngineFlags(cmd, &f.engineFlags); err != nil {
		return err
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
	switch {
	case f.write:
		rc.Write = true
	case f.check:
		rc.Write = false
	}
	rc.Diff = f.diff
	r, err := p.newRunner(a.cfg, rc, !f.noCache, a.logger.Slog())
	if err != nil {
		return err
	}

	if len(args) == 0 {
		args = []string{"."}
	}
	summary, err := r.Run(ctx, args)
	if err != nil {
		return err
	}

	reportOutcomes(a.out, summary, rc.Write)
	reportSummary(a.out, summary)

	if summary.Failed > 0 {
		return errFailures
	}
	if f.check && summary.Pending() {
		return errPending
	}
	return nil
}
