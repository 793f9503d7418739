// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package telemetry installs the OpenTelemetry tracer and meter providers
// used by the rewriter's spans and counters.
package telemetry

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"sync"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracegrpc"
	promexporter "go.opentelemetry.io/otel/exporters/prometheus"
	"go.opentelemetry.io/otel/exporters/stdout/stdoutmetric"
	"go.opentelemetry.io/otel/exporters/stdout/stdouttrace"
	"go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/resource"
	"go.opentelemetry.io/otel/sdk/trace"
)

var (
	// ErrNilContext is returned by Init when ctx is nil.
	ErrNilContext = errors.New("context must not be nil")

	// ErrUnknownExporter is returned for an unsupported exporter name.
	ErrUnknownExporter = errors.New("unknown exporter")
)

// Exporter names.
const (
	ExporterNone       = "none"
	ExporterStdout     = "stdout"
	ExporterOTLP       = "otlp"
	ExporterPrometheus = "prometheus"
)

// Config selects the exporters.
type Config struct {
	ServiceName    string `json:"service_name" yaml:"service_name"`
	ServiceVersion string `json:"service_version" yaml:"service_version"`

	// TraceExporter is "otlp", "stdout" or "none".
	TraceExporter string `json:"trace_exporter" yaml:"trace_exporter"`

	// MetricExporter is "prometheus", "stdout" or "none".
	MetricExporter string `json:"metric_exporter" yaml:"metric_exporter"`

	// OTLPEndpoint is the OTLP gRPC receiver for traces.
	OTLPEndpoint string `json:"otlp_endpoint" yaml:"otlp_endpoint"`

	// OTLPInsecure disables TLS for the OTLP connection.
	OTLPInsecure bool `json:"otlp_insecure" yaml:"otlp_insecure"`
}

// DefaultConfig returns a configuration with telemetry off unless the
// standard OTEL_* environment variables ask for it.
func DefaultConfig() Config {
	return Config{
		ServiceName:    "jsdoc-closure",
		ServiceVersion: "0.1.0",
		TraceExporter:  getEnvOr("OTEL_TRACES_EXPORTER", ExporterNone),
		MetricExporter: getEnvOr("OTEL_METRICS_EXPORTER", ExporterNone),
		OTLPEndpoint:   getEnvOr("OTEL_EXPORTER_OTLP_ENDPOINT", "localhost:4317"),
		OTLPInsecure:   true,
	}
}

func getEnvOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

// Init installs the global tracer and meter providers.
//
// Description:
//
//	Builds the exporters named by cfg and registers the providers with
//	otel, so the package-level tracers and meters used elsewhere start
//	exporting. Exporters set to "none" leave the no-op providers in place.
//
// Outputs:
//
//	shutdown - Flushes and stops the providers. Must be called on exit.
//	error - ErrNilContext, ErrUnknownExporter, or an exporter error.
//
// Thread Safety: Call once at startup.
func Init(ctx context.Context, cfg Config) (shutdown func(context.Context) error, err error) {
	if ctx == nil {
		return nil, ErrNilContext
	}

	var cleanups []func(context.Context) error
	shutdown = func(ctx context.Context) error {
		var errs []error
		for _, fn := range cleanups {
			if err := fn(ctx); err != nil {
				errs = append(errs, err)
			}
		}
		return errors.Join(errs...)
	}

	res := resource.NewWithAttributes("",
		attribute.String("service.name", cfg.ServiceName),
		attribute.String("service.version", cfg.ServiceVersion),
	)

	if cfg.TraceExporter != ExporterNone && cfg.TraceExporter != "" {
		tp, err := newTracerProvider(ctx, cfg, res)
		if err != nil {
			return nil, fmt.Errorf("init tracer: %w", err)
		}
		otel.SetTracerProvider(tp)
		cleanups = append(cleanups, tp.Shutdown)
	}

	if cfg.MetricExporter != ExporterNone && cfg.MetricExporter != "" {
		mp, err := newMeterProvider(cfg, res)
		if err != nil {
			_ = shutdown(ctx)
			return nil, fmt.Errorf("init meter: %w", err)
		}
		otel.SetMeterProvider(mp)
		cleanups = append(cleanups, mp.Shutdown)
	}

	return shutdown, nil
}

func newTracerProvider(ctx context.Context, cfg Config, res *resource.Resource) (*trace.TracerProvider, error) {
	var exporter trace.SpanExporter
	var err error

	switch cfg.TraceExporter {
	case ExporterOTLP:
		opts := []otlptracegrpc.Option{otlptracegrpc.WithEndpoint(cfg.OTLPEndpoint)}
		if cfg.OTLPInsecure {
			opts = append(opts, otlptracegrpc.WithInsecure())
		}
		exporter, err = otlptracegrpc.New(ctx, opts...)
	case ExporterStdout:
		exporter, err = stdouttrace.New(stdouttrace.WithWriter(os.Stderr))
	default:
		return nil, fmt.Errorf("%w: %s", ErrUnknownExporter, cfg.TraceExporter)
	}
	if err != nil {
		return nil, fmt.Errorf("create trace exporter: %w", err)
	}

	return trace.NewTracerProvider(
		trace.WithBatcher(exporter),
		trace.WithResource(res),
	), nil
}

var (
	metricsHandler   http.Handler
	metricsHandlerMu sync.RWMutex
)

// MetricsHandler returns the Prometheus scrape handler, or nil when the
// prometheus exporter is not active.
//
// Thread Safety: Safe for concurrent use.
func MetricsHandler() http.Handler {
	metricsHandlerMu.RLock()
	defer metricsHandlerMu.RUnlock()
	return metricsHandler
}

func newMeterProvider(cfg Config, res *resource.Resource) (*metric.MeterProvider, error) {
	switch cfg.MetricExporter {
	case ExporterPrometheus:
		// The exporter registers with the default prometheus registry that
		// promhttp.Handler serves.
		exporter, err := promexporter.New()
		if err != nil {
			return nil, fmt.Errorf("create prometheus exporter: %w", err)
		}
		metricsHandlerMu.Lock()
		metricsHandler = promhttp.Handler()
		metricsHandlerMu.Unlock()
		return metric.NewMeterProvider(metric.WithResource(res), metric.WithReader(exporter)), nil

	case ExporterStdout:
		exporter, err := stdoutmetric.New(stdoutmetric.WithWriter(os.Stderr))
		if err != nil {
			return nil, fmt.Errorf("create stdout metric exporter: %w", err)
		}
		return metric.NewMeterProvider(
			metric.WithResource(res),
			metric.WithReader(metric.NewPeriodicReader(exporter)),
		), nil

	default:
		return nil, fmt.Errorf("%w: %s", ErrUnknownExporter, cfg.MetricExporter)
	}
}
