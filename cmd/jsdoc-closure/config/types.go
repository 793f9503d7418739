// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package config

import (
	"fmt"
	"sync"
	"time"

	"github.com/go-playground/validator/v10"

	"github.com/AleutianAI/jsdocclosure/services/jsdoc/jsfile"
	"github.com/AleutianAI/jsdocclosure/services/jsdoc/rewrite"
)

// Config is the jsdoc-closure configuration file.
type Config struct {
	// Style is how references are rewritten: alias, reuse or path.
	Style string `yaml:"style" validate:"oneof=alias reuse path"`

	// Declarations is the generated import syntax: commonjs or esm.
	Declarations string `yaml:"declarations" validate:"oneof=commonjs esm"`

	// PathToken is how path tokens are written: import or bare.
	PathToken string `yaml:"path_token" validate:"oneof=import bare"`

	// IndexFiles are the directory index file names.
	IndexFiles []string `yaml:"index_files" validate:"min=1,dive,required"`

	// Extensions are the source extensions processed in directories.
	Extensions []string `yaml:"extensions" validate:"min=1,dive,startswith=."`

	// Ignore lists directory names and glob patterns skipped when walking.
	Ignore []string `yaml:"ignore"`

	// MaxPasses bounds the rewrite loop per comment.
	MaxPasses int `yaml:"max_passes" validate:"gte=1,lte=1000"`

	// Concurrency bounds the files processed at once.
	Concurrency int `yaml:"concurrency" validate:"gte=1,lte=256"`

	// MaxFileSize is the largest file processed, in bytes.
	MaxFileSize int `yaml:"max_file_size" validate:"gte=1"`

	// Write rewrites files in place by default.
	Write bool `yaml:"write"`

	Cache     CacheConfig     `yaml:"cache"`
	Logging   LoggingConfig   `yaml:"logging"`
	Telemetry TelemetryConfig `yaml:"telemetry"`
	Server    ServerConfig    `yaml:"server"`
	Watch     WatchConfig     `yaml:"watch"`
}

// CacheConfig configures the result cache.
type CacheConfig struct {
	Enabled bool   `yaml:"enabled"`
	Dir     string `yaml:"dir" validate:"required_if=Enabled true"`
}

// LoggingConfig configures logging.
type LoggingConfig struct {
	Level string `yaml:"level" validate:"oneof=debug info warn warning error"`
	JSON  bool   `yaml:"json"`
	Dir   string `yaml:"dir"`
}

// TelemetryConfig selects the OpenTelemetry exporters.
type TelemetryConfig struct {
	TraceExporter  string `yaml:"trace_exporter" validate:"oneof=none stdout otlp"`
	MetricExporter string `yaml:"metric_exporter" validate:"oneof=none stdout prometheus"`
	OTLPEndpoint   string `yaml:"otlp_endpoint" validate:"required_if=TraceExporter otlp"`
}

// ServerConfig configures the HTTP service.
type ServerConfig struct {
	Addr              string  `yaml:"addr" validate:"required,hostname_port"`
	RequestsPerSecond float64 `yaml:"requests_per_second" validate:"gte=0"`
	Burst             int     `yaml:"burst" validate:"gte=0"`
}

// WatchConfig configures watch mode.
type WatchConfig struct {
	Debounce time.Duration `yaml:"debounce" validate:"gte=0"`
}

// DefaultConfig returns the built-in defaults.
func DefaultConfig() Config {
	return Config{
		Style:        rewrite.StyleAlias.String(),
		Declarations: rewrite.SyntaxCommonJS.String(),
		PathToken:    rewrite.PathImport.String(),
		IndexFiles:   append([]string(nil), rewrite.DefaultIndexFileNames...),
		Extensions:   []string{".js", ".mjs", ".cjs"},
		Ignore:       []string{"node_modules", ".git"},
		MaxPasses:    rewrite.DefaultMaxPasses,
		Concurrency:  8,
		MaxFileSize:  jsfile.DefaultMaxFileSize,
		Cache: CacheConfig{
			Enabled: true,
			Dir:     "~/.cache/jsdoc-closure",
		},
		Logging: LoggingConfig{Level: "info"},
		Telemetry: TelemetryConfig{
			TraceExporter:  "none",
			MetricExporter: "none",
			OTLPEndpoint:   "localhost:4317",
		},
		Server: ServerConfig{
			Addr:              "127.0.0.1:8787",
			RequestsPerSecond: 50,
			Burst:             100,
		},
		Watch: WatchConfig{Debounce: 200 * time.Millisecond},
	}
}

var (
	validate     *validator.Validate
	validateOnce sync.Once
)

// Validate checks field constraints.
func (c *Config) Validate() error {
	validateOnce.Do(func() {
		validate = validator.New(validator.WithRequiredStructEnabled())
	})
	if err := validate.Struct(c); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}
	return nil
}

// EngineOptions converts the rewrite settings.
func (c *Config) EngineOptions() ([]rewrite.Option, error) {
	style, err := rewrite.ParseStyle(c.Style)
	if err != nil {
		return nil, err
	}
	syntax, err := rewrite.ParseSyntax(c.Declarations)
	if err != nil {
		return nil, err
	}
	format, err := rewrite.ParsePathFormat(c.PathToken)
	if err != nil {
		return nil, err
	}
	return []rewrite.Option{
		rewrite.WithStyle(style),
		rewrite.WithSyntax(syntax),
		rewrite.WithPathFormat(format),
		rewrite.WithMaxPasses(c.MaxPasses),
	}, nil
}
