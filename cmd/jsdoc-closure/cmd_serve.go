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
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/gin-gonic/gin"
	"github.com/spf13/cobra"

	"github.com/AleutianAI/jsdocclosure/cmd/jsdoc-closure/config"
	"github.com/AleutianAI/jsdocclosure/pkg/logging"
	"github.com/AleutianAI/jsdocclosure/services/jsdoc/server"
	"github.com/AleutianAI/jsdocclosure/services/jsdoc/telemetry"
)

func newServeCmd(a *app) *cobra.Command {
	var addr string
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the rewriter over HTTP",
		Long: `Starts an HTTP service exposing POST /v1/jsdoc/rewrite and
GET /v1/jsdoc/health. /metrics is served when the metric exporter is
"prometheus".`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if cmd.Flags().Changed("addr") {
				a.cfg.Server.Addr = addr
				if err := a.cfg.Validate(); err != nil {
					return err
				}
			}
			return a.runServe(cmd)
		},
	}
	cmd.Flags().StringVar(&addr, "addr", config.DefaultConfig().Server.Addr, "listen address")
	return cmd
}

func (a *app) runServe(cmd *cobra.Command) error {
	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	if err := a.initTelemetry(ctx); err != nil {
		return err
	}

	level, _ := logging.ParseLevel(a.cfg.Logging.Level)
	if level > logging.LevelDebug {
		gin.SetMode(gin.ReleaseMode)
	}

	p, err := newPipeline(a.cfg, a.logger.Slog())
	if err != nil {
		return err
	}
	handlers := server.NewHandlers(p.engine.Options(),
		server.WithExportIndex(p.exports),
		server.WithIndexFiles(a.cfg.IndexFiles...),
		server.WithMaxFileSize(a.cfg.MaxFileSize),
		server.WithLogger(a.logger.Slog()),
	)

	var metrics http.Handler
	if a.cfg.Telemetry.MetricExporter == telemetry.ExporterPrometheus {
		metrics = telemetry.MetricsHandler()
	}
	router := server.NewRouter(server.RouterConfig{
		ServiceName:       serviceName,
		RequestsPerSecond: a.cfg.Server.RequestsPerSecond,
		Burst:             a.cfg.Server.Burst,
		Metrics:           metrics,
	}, handlers)

	return server.ListenAndServe(ctx, a.cfg.Server.Addr, router, a.logger.Slog())
}
