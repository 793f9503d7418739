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
	"log/slog"

	"github.com/AleutianAI/jsdocclosure/cmd/jsdoc-closure/config"
	"github.com/AleutianAI/jsdocclosure/services/jsdoc/cache"
	"github.com/AleutianAI/jsdocclosure/services/jsdoc/jsfile"
	"github.com/AleutianAI/jsdocclosure/services/jsdoc/rewrite"
	"github.com/AleutianAI/jsdocclosure/services/jsdoc/runner"
)

// pipeline is the engine, export index and processor built from one
// configuration.
type pipeline struct {
	engine  *rewrite.Engine
	exports *jsfile.ExportIndex
	proc    *jsfile.Processor
	cache   *cache.Cache
}

func newPipeline(cfg config.Config, logger *slog.Logger) (*pipeline, error) {
	opts, err := cfg.EngineOptions()
	if err != nil {
		return nil, err
	}
	engine := rewrite.NewEngine(append(opts, rewrite.WithLogger(logger))...)
	exports := jsfile.NewExportIndex(
		jsfile.WithExtensions(cfg.Extensions...),
		jsfile.WithIndexFiles(cfg.IndexFiles...),
		jsfile.WithIndexMaxFileSize(cfg.MaxFileSize),
		jsfile.WithIndexLogger(logger),
	)
	proc := jsfile.NewProcessor(engine,
		jsfile.WithExportIndex(exports),
		jsfile.WithDirectoryIndexFiles(cfg.IndexFiles...),
		jsfile.WithMaxFileSize(cfg.MaxFileSize),
		jsfile.WithLogger(logger),
	)
	return &pipeline{engine: engine, exports: exports, proc: proc}, nil
}

// openCache opens the on-disk result cache named by cfg.
func openCache(cfg config.Config, logger *slog.Logger) (*cache.Cache, error) {
	cc := cache.DefaultConfig(config.ExpandPath(cfg.Cache.Dir))
	cc.Logger = logger
	c, err := cache.Open(cc)
	if err != nil {
		return nil, fmt.Errorf("open cache %s: %w", cc.Dir, err)
	}
	return c, nil
}

// newRunner wires a runner over the pipeline. The cache is opened unless
// disabled by configuration or useCache is false.
func (p *pipeline) newRunner(cfg config.Config, rc runner.Config, useCache bool, logger *slog.Logger) (*runner.Runner, error) {
	opts := []runner.Option{runner.WithLogger(logger)}
	if useCache && cfg.Cache.Enabled {
		c, err := openCache(cfg, logger)
		if err != nil {
			return nil, err
		}
		p.cache = c
		opts = append(opts, runner.WithCache(c))
	}
	return runner.New(p.proc, rc, opts...), nil
}

func (p *pipeline) Close() error {
	if p.cache == nil {
		return nil
	}
	return p.cache.Close()
}

// runnerConfig converts the file selection settings.
func runnerConfig(cfg config.Config) runner.Config {
	rc := runner.DefaultConfig()
	rc.Extensions = cfg.Extensions
	rc.Ignore = cfg.Ignore
	rc.Concurrency = cfg.Concurrency
	rc.Write = cfg.Write
	return rc
}
