// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package runner processes batches of JavaScript files.
//
// A Runner expands the given paths to source files, processes them on a
// bounded pool of goroutines, consults and fills the result cache, and
// either writes the rewritten files back, renders unified diffs, or only
// reports what would change.
package runner

import (
	"context"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/AleutianAI/jsdocclosure/services/jsdoc/cache"
	"github.com/AleutianAI/jsdocclosure/services/jsdoc/diff"
	"github.com/AleutianAI/jsdocclosure/services/jsdoc/jsfile"
)

// Config configures a Runner.
type Config struct {
	// Extensions are the file extensions processed when walking
	// directories. Files named explicitly are always processed.
	Extensions []string

	// Ignore lists directory names and glob patterns skipped while walking.
	Ignore []string

	// Concurrency bounds the files processed at once.
	Concurrency int

	// Write writes changed files back in place.
	Write bool

	// Diff renders a unified diff for every changed file.
	Diff bool

	// DiffContext is the number of context lines in diffs.
	DiffContext int
}

// DefaultConfig returns the configuration used when none is given.
func DefaultConfig() Config {
	return Config{
		Extensions:  []string{".js", ".mjs", ".cjs"},
		Ignore:      []string{"node_modules", ".git"},
		Concurrency: 8,
		DiffContext: diff.DefaultContext,
	}
}

// FileOutcome is the result of processing one file.
type FileOutcome struct {
	Path    string
	Result  *jsfile.Result
	Cached  bool
	Written bool
	Diff    []byte
	Err     error
}

// Summary totals a run.
type Summary struct {
	RunID       string
	Files       int
	Changed     int
	Cached      int
	Failed      int
	Written     int
	Imports     int
	Exports     int
	Typedefs    int
	Diagnostics int
	Duration    time.Duration

	// Outcomes are sorted by path.
	Outcomes []FileOutcome
}

// Pending reports whether any file would change.
func (s *Summary) Pending() bool {
	return s.Changed > 0
}

func (s *Summary) add(o FileOutcome) {
	s.Files++
	if o.Err != nil {
		s.Failed++
		return
	}
	if o.Cached {
		s.Cached++
	}
	if o.Written {
		s.Written++
	}
	res := o.Result
	if res.Changed {
		s.Changed++
	}
	s.Imports += len(res.Imports)
	s.Exports += len(res.Exports)
	s.Typedefs += res.Typedefs
	s.Diagnostics += len(res.Diagnostics)
}

// Runner processes files with a shared Processor.
//
// Thread Safety: Safe for concurrent use.
type Runner struct {
	proc   *jsfile.Processor
	cache  *cache.Cache
	cfg    Config
	logger *slog.Logger
}

// Option configures a Runner.
type Option func(*Runner)

// WithCache enables the result cache.
func WithCache(c *cache.Cache) Option {
	return func(r *Runner) { r.cache = c }
}

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) Option {
	return func(r *Runner) { r.logger = l }
}

// New creates a Runner.
func New(proc *jsfile.Processor, cfg Config, opts ...Option) *Runner {
	if cfg.Concurrency <= 0 {
		cfg.Concurrency = 1
	}
	if len(cfg.Extensions) == 0 {
		cfg.Extensions = DefaultConfig().Extensions
	}
	r := &Runner{proc: proc, cfg: cfg, logger: slog.Default()}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Expand resolves paths to the source files they name, sorted and
// without duplicates. Directories are walked recursively.
func (r *Runner) Expand(paths []string) ([]string, error) {
	if len(paths) == 0 {
		return nil, ErrNoInputs
	}
	seen := make(map[string]bool)
	var files []string
	add := func(p string) {
		p = filepath.Clean(p)
		if !seen[p] {
			seen[p] = true
			files = append(files, p)
		}
	}

	for _, root := range paths {
		info, err := os.Stat(root)
		if err != nil {
			return nil, fmt.Errorf("stat %s: %w", root, err)
		}
		if !info.IsDir() {
			add(root)
			continue
		}
		err = filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
			if err != nil {
				return err
			}
			if path != root && r.ignored(path) {
				if d.IsDir() {
					return filepath.SkipDir
				}
				return nil
			}
			if !d.IsDir() && r.hasExtension(path) {
				add(path)
			}
			return nil
		})
		if err != nil {
			return nil, fmt.Errorf("walk %s: %w", root, err)
		}
	}
	sort.Strings(files)
	return files, nil
}

func (r *Runner) hasExtension(path string) bool {
	ext := filepath.Ext(path)
	for _, e := range r.cfg.Extensions {
		if strings.EqualFold(e, ext) {
			return true
		}
	}
	return false
}

// ignored matches the base name of path against the ignore patterns.
func (r *Runner) ignored(path string) bool {
	base := filepath.Base(path)
	for _, pattern := range r.cfg.Ignore {
		if base == pattern {
			return true
		}
		if ok, _ := filepath.Match(pattern, base); ok {
			return true
		}
	}
	return false
}

// Run expands paths and processes every file.
//
// Description:
//
//	Files are processed concurrently, at most Concurrency at a time. A
//	failure on one file is recorded in its outcome and does not stop the
//	others; Run only returns an error for bad inputs or cancellation.
//
// Outputs:
//
//	*Summary - Totals and per-file outcomes.
//	error - ErrNoInputs, a stat or walk error, or the context error.
func (r *Runner) Run(ctx context.Context, paths []string) (*Summary, error) {
	files, err := r.Expand(paths)
	if err != nil {
		return nil, err
	}
	return r.RunFiles(ctx, files)
}

// RunFiles processes the given files without expanding them.
func (r *Runner) RunFiles(ctx context.Context, files []string) (*Summary, error) {
	start := time.Now()
	summary := &Summary{RunID: uuid.NewString()}
	logger := r.logger.With(slog.String("run_id", summary.RunID))

	var mu sync.Mutex
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(r.cfg.Concurrency)
	for _, file := range files {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			outcome := r.ProcessFile(gctx, file)
			if outcome.Err != nil {
				logger.Warn("file failed", slog.String("file", file), slog.String("error", outcome.Err.Error()))
			}
			mu.Lock()
			summary.Outcomes = append(summary.Outcomes, outcome)
			mu.Unlock()
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	sort.Slice(summary.Outcomes, func(i, j int) bool {
		return summary.Outcomes[i].Path < summary.Outcomes[j].Path
	})
	for _, o := range summary.Outcomes {
		summary.add(o)
	}
	summary.Duration = time.Since(start)

	logger.Info("run complete",
		slog.Int("files", summary.Files),
		slog.Int("changed", summary.Changed),
		slog.Int("cached", summary.Cached),
		slog.Int("failed", summary.Failed),
		slog.Duration("duration", summary.Duration),
	)
	return summary, nil
}

// ProcessFile processes one file, using the cache when configured.
func (r *Runner) ProcessFile(ctx context.Context, path string) FileOutcome {
	outcome := FileOutcome{Path: path}

	content, err := os.ReadFile(path)
	if err != nil {
		outcome.Err = fmt.Errorf("read %s: %w", path, err)
		return outcome
	}

	res, cached := r.lookup(ctx, path, content)
	if res == nil {
		res, err = r.proc.Process(ctx, path, content)
		if err != nil {
			outcome.Err = err
			return outcome
		}
		r.store(ctx, path, res)
	}
	outcome.Result = res
	outcome.Cached = cached

	if !res.Changed {
		return outcome
	}
	if r.cfg.Diff {
		d, err := diff.Unified(filepath.ToSlash(path), content, res.Edits, r.cfg.DiffContext)
		if err != nil {
			outcome.Err = fmt.Errorf("diff %s: %w", path, err)
			return outcome
		}
		outcome.Diff = d
	}
	if r.cfg.Write {
		if err := writeFile(path, res.Output); err != nil {
			outcome.Err = err
			return outcome
		}
		outcome.Written = true
		if idx := r.proc.Exports(); idx != nil {
			idx.Invalidate(path)
		}
	}
	return outcome
}

func (r *Runner) cacheKey(path, hash string) cache.Key {
	return cache.Key{Options: r.proc.Fingerprint(), Path: path, ContentHash: hash}
}

func (r *Runner) lookup(ctx context.Context, path string, content []byte) (*jsfile.Result, bool) {
	if r.cache == nil {
		return nil, false
	}
	hash := jsfile.ContentHash(content)
	var fp cache.Fingerprinter
	if idx := r.proc.Exports(); idx != nil {
		fp = idx
	}
	entry, ok, err := r.cache.Get(ctx, r.cacheKey(path, hash), fp)
	if err != nil {
		r.logger.Debug("cache read failed", slog.String("file", path), slog.String("error", err.Error()))
		return nil, false
	}
	if !ok {
		return nil, false
	}
	return entry.Result(path, hash), true
}

func (r *Runner) store(ctx context.Context, path string, res *jsfile.Result) {
	if r.cache == nil {
		return
	}
	if err := r.cache.Put(ctx, r.cacheKey(path, res.Hash), cache.NewEntry(res)); err != nil {
		r.logger.Debug("cache write failed", slog.String("file", path), slog.String("error", err.Error()))
	}
}

// writeFile replaces path atomically, keeping its permissions.
func writeFile(path string, content []byte) error {
	info, err := os.Stat(path)
	if err != nil {
		return fmt.Errorf("stat %s: %w", path, err)
	}
	tmp, err := os.CreateTemp(filepath.Dir(path), "."+filepath.Base(path)+".*")
	if err != nil {
		return fmt.Errorf("create temp for %s: %w", path, err)
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.Write(content); err != nil {
		tmp.Close()
		return fmt.Errorf("write %s: %w", path, err)
	}
	if err := tmp.Chmod(info.Mode().Perm()); err != nil {
		tmp.Close()
		return fmt.Errorf("chmod %s: %w", path, err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("close %s: %w", path, err)
	}
	if err := os.Rename(tmp.Name(), path); err != nil {
		return fmt.Errorf("replace %s: %w", path, err)
	}
	return nil
}
