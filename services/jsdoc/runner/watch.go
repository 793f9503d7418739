// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package runner

import (
	"context"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
)

// DefaultDebounce is the quiet period before a batch of changes is run.
const DefaultDebounce = 200 * time.Millisecond

// Change is one debounced file system event.
type Change struct {
	Path    string
	Removed bool
	Time    time.Time
}

// BatchHandler receives the summary of every batch the watcher ran.
type BatchHandler func(changes []Change, summary *Summary, err error)

// Watcher re-runs the Runner on JavaScript files as they change.
//
// # Description
//
// Watches a directory tree with fsnotify and collects events until the
// debounce window passes without new ones. The batch is deduplicated by
// path, the export index forgets every touched module, and the surviving
// source files are processed. Writing a rewritten file back triggers one
// more event; processing is idempotent so that run changes nothing and
// the loop settles.
//
// # Thread Safety
//
// Safe for concurrent use. The handler is called from a single goroutine.
type Watcher struct {
	runner   *Runner
	root     string
	debounce time.Duration
	handler  BatchHandler
	logger   *slog.Logger

	fsw      *fsnotify.Watcher
	changes  chan Change
	done     chan struct{}
	stopOnce sync.Once
}

// WatchOptions configures a Watcher.
type WatchOptions struct {
	// Debounce is the quiet period before running a batch.
	Debounce time.Duration

	// BufferSize bounds pending events. Events beyond it are dropped.
	BufferSize int

	// Handler is called after every batch. Optional.
	Handler BatchHandler
}

// NewWatcher creates a watcher for the tree under root. Directories the
// runner ignores are not watched.
func NewWatcher(r *Runner, root string, opts WatchOptions) (*Watcher, error) {
	info, err := os.Stat(root)
	if err != nil {
		return nil, fmt.Errorf("stat %s: %w", root, err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("%s: %w", root, ErrNotDirectory)
	}
	if opts.Debounce <= 0 {
		opts.Debounce = DefaultDebounce
	}
	if opts.BufferSize <= 0 {
		opts.BufferSize = 1024
	}

	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("create watcher: %w", err)
	}
	return &Watcher{
		runner:   r,
		root:     root,
		debounce: opts.Debounce,
		handler:  opts.Handler,
		logger:   r.logger,
		fsw:      fsw,
		changes:  make(chan Change, opts.BufferSize),
		done:     make(chan struct{}),
	}, nil
}

// Run watches until ctx is canceled or Stop is called.
func (w *Watcher) Run(ctx context.Context) error {
	defer w.Stop()
	if err := w.addTree(w.root); err != nil {
		return err
	}

	go w.forward(ctx)
	w.batchLoop(ctx)
	return nil
}

// Stop ends watching. Safe to call more than once.
func (w *Watcher) Stop() {
	w.stopOnce.Do(func() {
		close(w.done)
		w.fsw.Close()
	})
}

func (w *Watcher) addTree(root string) error {
	return filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil || !d.IsDir() {
			return nil
		}
		if path != root && w.runner.ignored(path) {
			return filepath.SkipDir
		}
		if err := w.fsw.Add(path); err != nil {
			return fmt.Errorf("watch %s: %w", path, err)
		}
		return nil
	})
}

// forward turns fsnotify events into changes for source files.
func (w *Watcher) forward(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case <-w.done:
			return
		case event, ok := <-w.fsw.Events:
			if !ok {
				return
			}
			if w.runner.ignored(event.Name) {
				continue
			}
			if event.Has(fsnotify.Create) {
				if info, err := os.Stat(event.Name); err == nil && info.IsDir() {
					if err := w.addTree(event.Name); err != nil {
						w.logger.Warn("watch new directory failed", slog.String("error", err.Error()))
					}
					continue
				}
			}
			if !w.runner.hasExtension(event.Name) || event.Op == fsnotify.Chmod {
				continue
			}
			change := Change{
				Path:    event.Name,
				Removed: event.Has(fsnotify.Remove) || event.Has(fsnotify.Rename),
				Time:    time.Now(),
			}
			select {
			case w.changes <- change:
			default:
				w.logger.Warn("change buffer full, event dropped", slog.String("file", event.Name))
			}
		case err, ok := <-w.fsw.Errors:
			if !ok {
				return
			}
			w.logger.Warn("watch error", slog.String("error", err.Error()))
		}
	}
}

func (w *Watcher) batchLoop(ctx context.Context) {
	var batch []Change
	var timer *time.Timer
	var timerC <-chan time.Time

	flush := func() {
		if timer != nil {
			timer.Stop()
			timer, timerC = nil, nil
		}
		if len(batch) == 0 {
			return
		}
		changes := latestPerPath(batch)
		batch = batch[:0]
		w.runBatch(ctx, changes)
	}

	for {
		select {
		case <-ctx.Done():
			return
		case <-w.done:
			return
		case change := <-w.changes:
			batch = append(batch, change)
			if timer == nil {
				timer = time.NewTimer(w.debounce)
				timerC = timer.C
			} else {
				timer.Reset(w.debounce)
			}
		case <-timerC:
			flush()
		}
	}
}

func (w *Watcher) runBatch(ctx context.Context, changes []Change) {
	var files []string
	idx := w.runner.proc.Exports()
	for _, c := range changes {
		if idx != nil {
			idx.Invalidate(c.Path)
		}
		if !c.Removed {
			files = append(files, c.Path)
		}
	}
	if len(files) == 0 {
		return
	}
	summary, err := w.runner.RunFiles(ctx, files)
	if err != nil {
		w.logger.Warn("watch batch failed", slog.String("error", err.Error()))
	}
	if w.handler != nil {
		w.handler(changes, summary, err)
	}
}

// latestPerPath keeps the most recent change per path, in first-seen order.
func latestPerPath(changes []Change) []Change {
	seen := make(map[string]int)
	out := make([]Change, 0, len(changes))
	for _, c := range changes {
		if i, ok := seen[c.Path]; ok {
			out[i] = c
			continue
		}
		seen[c.Path] = len(out)
		out = append(out, c)
	}
	return out
}
