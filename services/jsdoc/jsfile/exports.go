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
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"golang.org/x/sync/singleflight"
)

// ReadFileFunc reads a file. Overridable for tests and the HTTP service.
type ReadFileFunc func(path string) ([]byte, error)

// exportEntry is the memoized answer for one module base path.
type exportEntry struct {
	file  string
	name  string
	found bool
	hash  string
}

// ExportIndex memoizes the default export name of modules on disk.
//
// Description:
//
//	Given the file being processed and a relative module path produced by
//	the resolver, the index locates the module file (trying the configured
//	extensions and directory index files), parses it and reports the name
//	bound to its default export. Answers are cached per module base path,
//	missing modules included. Concurrent misses for the same module share
//	one parse through singleflight.
//
// Thread Safety: Safe for concurrent use.
type ExportIndex struct {
	extensions  []string
	indexFiles  []string
	maxFileSize int
	readFile    ReadFileFunc
	logger      *slog.Logger

	mu      sync.RWMutex
	entries map[string]exportEntry
	group   singleflight.Group
}

// ExportIndexOption configures an ExportIndex.
type ExportIndexOption func(*ExportIndex)

// WithExtensions sets the extensions tried after the bare path.
func WithExtensions(exts ...string) ExportIndexOption {
	return func(x *ExportIndex) { x.extensions = append([]string(nil), exts...) }
}

// WithIndexFiles sets the directory index file names.
func WithIndexFiles(names ...string) ExportIndexOption {
	return func(x *ExportIndex) { x.indexFiles = append([]string(nil), names...) }
}

// WithReadFile replaces os.ReadFile.
func WithReadFile(fn ReadFileFunc) ExportIndexOption {
	return func(x *ExportIndex) { x.readFile = fn }
}

// WithIndexMaxFileSize sets the largest module the index will parse.
func WithIndexMaxFileSize(n int) ExportIndexOption {
	return func(x *ExportIndex) { x.maxFileSize = n }
}

// WithIndexLogger sets the logger.
func WithIndexLogger(l *slog.Logger) ExportIndexOption {
	return func(x *ExportIndex) { x.logger = l }
}

// NewExportIndex creates an empty index.
func NewExportIndex(opts ...ExportIndexOption) *ExportIndex {
	x := &ExportIndex{
		extensions:  []string{".js", ".mjs", ".cjs"},
		indexFiles:  []string{"index.js"},
		maxFileSize: DefaultMaxFileSize,
		readFile:    os.ReadFile,
		logger:      slog.Default(),
		entries:     make(map[string]exportEntry),
	}
	for _, opt := range opts {
		opt(x)
	}
	return x
}

// ModuleBase returns the extensionless path a relative module path from
// fromFile points at.
func ModuleBase(fromFile, relativePath string) string {
	return filepath.Join(filepath.Dir(fromFile), filepath.FromSlash(relativePath))
}

// DefaultExport returns the default export name of the module at base.
func (x *ExportIndex) DefaultExport(ctx context.Context, base string) (string, bool) {
	entry := x.lookup(ctx, base)
	return entry.name, entry.found && entry.name != ""
}

func (x *ExportIndex) lookup(ctx context.Context, base string) exportEntry {
	x.mu.RLock()
	entry, ok := x.entries[base]
	x.mu.RUnlock()
	if ok {
		return entry
	}

	// The memoized answer outlives the caller, so the shared parse must not
	// stop when one caller's context is canceled.
	loadCtx := context.WithoutCancel(ctx)
	v, _, _ := x.group.Do(base, func() (interface{}, error) {
		entry, err := x.load(loadCtx, base)
		if err != nil {
			return entry, nil
		}
		x.mu.Lock()
		x.entries[base] = entry
		x.mu.Unlock()
		return entry, nil
	})
	return v.(exportEntry)
}

// load reads and parses the module at base without consulting the cache.
// A non-nil error means the entry is transient and must not be memoized.
func (x *ExportIndex) load(ctx context.Context, base string) (exportEntry, error) {
	file, content, err := x.locate(base)
	if err != nil {
		if !errors.Is(err, ErrModuleNotFound) {
			x.logger.Debug("module read failed", slog.String("module", base), slog.String("error", err.Error()))
		}
		return exportEntry{}, nil
	}
	entry := exportEntry{file: file, found: true, hash: ContentHash(content)}

	src, err := Parse(ctx, content, file, x.maxFileSize)
	if err != nil {
		x.logger.Debug("module parse failed", slog.String("module", file), slog.String("error", err.Error()))
		if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
			return entry, err
		}
		return entry, nil
	}
	entry.name = src.DefaultExport
	return entry, nil
}

// candidates lists the files a module base may resolve to, in order.
func (x *ExportIndex) candidates(base string) []string {
	var out []string
	if ext := filepath.Ext(base); ext != "" && x.hasExtension(ext) {
		out = append(out, base)
	}
	for _, ext := range x.extensions {
		out = append(out, base+ext)
	}
	for _, name := range x.indexFiles {
		out = append(out, filepath.Join(base, name))
	}
	return out
}

func (x *ExportIndex) hasExtension(ext string) bool {
	for _, e := range x.extensions {
		if strings.EqualFold(e, ext) {
			return true
		}
	}
	return false
}

func (x *ExportIndex) locate(base string) (string, []byte, error) {
	for _, candidate := range x.candidates(base) {
		content, err := x.readFile(candidate)
		if err == nil {
			return candidate, content, nil
		}
		if !errors.Is(err, os.ErrNotExist) && !isDirError(err) {
			return "", nil, fmt.Errorf("read %s: %w", candidate, err)
		}
	}
	return "", nil, fmt.Errorf("%s: %w", base, ErrModuleNotFound)
}

func isDirError(err error) bool {
	var pathErr *os.PathError
	return errors.As(err, &pathErr) && strings.Contains(pathErr.Err.Error(), "is a directory")
}

// Fingerprint reads the module at base afresh and returns the hash of the
// file it resolves to, or "" when it resolves to nothing. Used to check
// whether a cached result still holds.
func (x *ExportIndex) Fingerprint(base string) string {
	_, content, err := x.locate(base)
	if err != nil {
		return ""
	}
	return ContentHash(content)
}

// Invalidate forgets the answers that a change to path may affect: the
// module path itself and every module that was not found.
func (x *ExportIndex) Invalidate(path string) {
	x.mu.Lock()
	defer x.mu.Unlock()
	for base, entry := range x.entries {
		if !entry.found || entry.file == path || base == strings.TrimSuffix(path, filepath.Ext(path)) {
			delete(x.entries, base)
		}
	}
}

// Signature describes the lookup rules that decide which file a module
// path resolves to.
func (x *ExportIndex) Signature() string {
	return "ext=" + strings.Join(x.extensions, ",") + ";modindex=" + strings.Join(x.indexFiles, ",")
}

// Len returns the number of memoized modules.
func (x *ExportIndex) Len() int {
	x.mu.RLock()
	defer x.mu.RUnlock()
	return len(x.entries)
}

// ForFile binds the index to one importing file.
func (x *ExportIndex) ForFile(ctx context.Context, fromFile string) *FileLookup {
	return &FileLookup{index: x, ctx: ctx, from: fromFile, deps: make(map[string]string)}
}

// FileLookup is the rewrite.DefaultExportLookup for one file. It records
// every module it consulted, with the hash of the file found.
type FileLookup struct {
	index *ExportIndex
	ctx   context.Context
	from  string

	mu   sync.Mutex
	deps map[string]string
}

// DefaultExportName implements rewrite.DefaultExportLookup.
func (f *FileLookup) DefaultExportName(relativePath string) (string, bool) {
	base := ModuleBase(f.from, relativePath)
	entry := f.index.lookup(f.ctx, base)

	f.mu.Lock()
	f.deps[base] = entry.hash
	f.mu.Unlock()

	return entry.name, entry.found && entry.name != ""
}

// Dependencies returns the consulted module bases and their file hashes.
func (f *FileLookup) Dependencies() map[string]string {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make(map[string]string, len(f.deps))
	for k, v := range f.deps {
		out[k] = v
	}
	return out
}
