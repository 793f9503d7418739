// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package jsfile

import (
	"context"
	"sync"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"

	"github.com/AleutianAI/jsdocclosure/services/jsdoc/rewrite"
)

// Package-level tracer and meter for file processing.
var (
	tracer = otel.Tracer("jsdoc.jsfile")
	meter  = otel.Meter("jsdoc.jsfile")
)

// Metrics for file processing.
var (
	processLatency      metric.Float64Histogram
	filesProcessed      metric.Int64Counter
	referencesResolved  metric.Int64Counter
	importsGenerated    metric.Int64Counter
	typedefsSynthesized metric.Int64Counter
	commentDiagnostics  metric.Int64Counter

	metricsOnce sync.Once
	metricsErr  error
)

// initMetrics initializes the metrics. Safe to call multiple times.
func initMetrics() error {
	metricsOnce.Do(func() {
		var err error

		processLatency, err = meter.Float64Histogram(
			"jsdoc_process_duration_seconds",
			metric.WithDescription("Duration of processing one JavaScript file"),
			metric.WithUnit("s"),
		)
		if err != nil {
			metricsErr = err
			return
		}

		filesProcessed, err = meter.Int64Counter(
			"jsdoc_files_processed_total",
			metric.WithDescription("Total number of files processed"),
		)
		if err != nil {
			metricsErr = err
			return
		}

		referencesResolved, err = meter.Int64Counter(
			"jsdoc_references_resolved_total",
			metric.WithDescription("Module references resolved, by strategy"),
		)
		if err != nil {
			metricsErr = err
			return
		}

		importsGenerated, err = meter.Int64Counter(
			"jsdoc_imports_generated_total",
			metric.WithDescription("Import declarations appended to files"),
		)
		if err != nil {
			metricsErr = err
			return
		}

		typedefsSynthesized, err = meter.Int64Counter(
			"jsdoc_typedefs_synthesized_total",
			metric.WithDescription("Typedef comments rewritten to structural types"),
		)
		if err != nil {
			metricsErr = err
			return
		}

		commentDiagnostics, err = meter.Int64Counter(
			"jsdoc_comment_diagnostics_total",
			metric.WithDescription("Comments left untouched because rewriting did not converge"),
		)
		if err != nil {
			metricsErr = err
			return
		}
	})
	return metricsErr
}

// recordProcessMetrics records metrics for one processed file.
func recordProcessMetrics(ctx context.Context, duration time.Duration, res *Result, success bool) {
	if err := initMetrics(); err != nil {
		return
	}

	attrs := metric.WithAttributes(
		attribute.Bool("success", success),
		attribute.Bool("changed", res != nil && res.Changed),
	)
	processLatency.Record(ctx, duration.Seconds(), attrs)
	filesProcessed.Add(ctx, 1, attrs)
	if res == nil {
		return
	}

	if len(res.Imports) > 0 {
		importsGenerated.Add(ctx, int64(len(res.Imports)))
	}
	if res.Typedefs > 0 {
		typedefsSynthesized.Add(ctx, int64(res.Typedefs))
	}
	if len(res.Diagnostics) > 0 {
		commentDiagnostics.Add(ctx, int64(len(res.Diagnostics)))
	}
	for strategy, n := range res.Strategies {
		referencesResolved.Add(ctx, int64(n),
			metric.WithAttributes(attribute.String("strategy", strategy)),
		)
	}
}

// countStrategies tallies resolutions by strategy label.
func countStrategies(into map[string]int, resolutions []rewrite.Resolution) {
	for _, r := range resolutions {
		into[r.Strategy.String()]++
	}
}

// startProcessSpan creates a span for processing one file.
//
// Returns:
//   - ctx: Context with span
//   - span: The created span (caller must call span.End())
func startProcessSpan(ctx context.Context, filePath string, contentSize int, style rewrite.Style) (context.Context, trace.Span) {
	return tracer.Start(ctx, "Processor.Process",
		trace.WithAttributes(
			attribute.String("jsdoc.file", filePath),
			attribute.Int("jsdoc.content_size", contentSize),
			attribute.String("jsdoc.style", style.String()),
		),
	)
}

// setProcessSpanResult sets the result attributes on a process span.
func setProcessSpanResult(span trace.Span, res *Result) {
	span.SetAttributes(
		attribute.Int("jsdoc.comments", res.Comments),
		attribute.Int("jsdoc.rewritten", res.Rewritten),
		attribute.Int("jsdoc.imports", len(res.Imports)),
		attribute.Int("jsdoc.exports", len(res.Exports)),
		attribute.Bool("jsdoc.changed", res.Changed),
	)
}
