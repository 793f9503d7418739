// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package cache

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/dgraph-io/badger/v4"
)

// Config holds configuration for the result cache.
type Config struct {
	// Dir is the directory for the database files. Ignored when InMemory
	// is true.
	Dir string

	// InMemory keeps the cache in memory only. Used by tests and by the
	// HTTP service.
	InMemory bool

	// SyncWrites makes every Put durable before it returns.
	SyncWrites bool

	// TTL expires entries after the given age. Zero keeps them forever.
	TTL time.Duration

	// GCInterval is how often value log garbage collection runs. Zero
	// disables it.
	GCInterval time.Duration

	// GCDiscardRatio is the garbage ratio that triggers a value log rewrite.
	GCDiscardRatio float64

	// Logger receives badger's internal messages. Nil silences them.
	Logger *slog.Logger
}

// DefaultConfig returns the configuration used by the CLI.
func DefaultConfig(dir string) Config {
	return Config{
		Dir:            dir,
		TTL:            30 * 24 * time.Hour,
		GCInterval:     10 * time.Minute,
		GCDiscardRatio: 0.5,
	}
}

// InMemoryConfig returns a configuration with no disk persistence.
func InMemoryConfig() Config {
	return Config{InMemory: true}
}

// badgerLogger routes badger's printf-style logging to slog.
type badgerLogger struct {
	logger *slog.Logger
}

func (l *badgerLogger) Errorf(format string, args ...interface{}) {
	l.logger.Error(fmt.Sprintf(format, args...), slog.String("component", "badger"))
}

func (l *badgerLogger) Warningf(format string, args ...interface{}) {
	l.logger.Warn(fmt.Sprintf(format, args...), slog.String("component", "badger"))
}

func (l *badgerLogger) Infof(format string, args ...interface{}) {
	l.logger.Debug(fmt.Sprintf(format, args...), slog.String("component", "badger"))
}

func (l *badgerLogger) Debugf(format string, args ...interface{}) {
	l.logger.Debug(fmt.Sprintf(format, args...), slog.String("component", "badger"))
}

// openDB opens the badger database described by cfg.
func openDB(cfg Config) (*badger.DB, error) {
	var opts badger.Options
	switch {
	case cfg.InMemory:
		opts = badger.DefaultOptions("").WithInMemory(true)
	case cfg.Dir == "":
		return nil, ErrNoDirectory
	default:
		if err := os.MkdirAll(cfg.Dir, 0750); err != nil {
			return nil, fmt.Errorf("create cache directory %s: %w", cfg.Dir, err)
		}
		opts = badger.DefaultOptions(cfg.Dir)
	}

	opts = opts.WithSyncWrites(cfg.SyncWrites).WithNumVersionsToKeep(1)
	if cfg.Logger != nil {
		opts = opts.WithLogger(&badgerLogger{logger: cfg.Logger})
	} else {
		opts = opts.WithLogger(nil)
	}

	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("open cache database: %w", err)
	}
	return db, nil
}

// gcLoop runs value log garbage collection until stop is closed.
type gcLoop struct {
	db       *badger.DB
	interval time.Duration
	ratio    float64
	logger   *slog.Logger
	stop     chan struct{}
	done     chan struct{}
}

func startGC(db *badger.DB, interval time.Duration, ratio float64, logger *slog.Logger) *gcLoop {
	if ratio <= 0 || ratio > 1 {
		ratio = 0.5
	}
	g := &gcLoop{
		db:       db,
		interval: interval,
		ratio:    ratio,
		logger:   logger,
		stop:     make(chan struct{}),
		done:     make(chan struct{}),
	}
	go g.run()
	return g
}

func (g *gcLoop) run() {
	defer close(g.done)

	ticker := time.NewTicker(g.interval)
	defer ticker.Stop()

	for {
		select {
		case <-g.stop:
			return
		case <-ticker.C:
			// ErrNoRewrite only means there was nothing worth collecting.
			if err := g.db.RunValueLogGC(g.ratio); err != nil && !errors.Is(err, badger.ErrNoRewrite) {
				g.logger.Warn("cache value log GC failed", slog.String("error", err.Error()))
			}
		}
	}
}

func (g *gcLoop) halt() {
	close(g.stop)
	<-g.done
}
