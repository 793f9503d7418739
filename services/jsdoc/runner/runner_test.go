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
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/AleutianAI/jsdocclosure/services/jsdoc/cache"
	"github.com/AleutianAI/jsdocclosure/services/jsdoc/jsfile"
	"github.com/AleutianAI/jsdocclosure/services/jsdoc/rewrite"
)

const typesSource = "/** @module module2/types */\n" +
	"/**\n" +
	" * @typedef {Object} Foo\n" +
	" * @property {module:module1/Bar} bar Bar.\n" +
	" */\n"

const plainSource = "let a = 1;\n"

func writeTree(t *testing.T, files map[string]string) string {
	t.Helper()
	root := t.TempDir()
	for name, content := range files {
		path := filepath.Join(root, filepath.FromSlash(name))
		require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
		require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	}
	return root
}

func newTestRunner(cfg Config, opts ...Option) *Runner {
	proc := jsfile.NewProcessor(rewrite.NewEngine(), jsfile.WithExportIndex(jsfile.NewExportIndex()))
	return New(proc, cfg, opts...)
}

func TestExpand(t *testing.T) {
	root := writeTree(t, map[string]string{
		"src/a.js":                  plainSource,
		"src/b.mjs":                 plainSource,
		"src/readme.md":             "x",
		"src/node_modules/dep/x.js": plainSource,
		".git/hooks/y.js":           plainSource,
	})
	r := newTestRunner(DefaultConfig())

	files, err := r.Expand([]string{root, filepath.Join(root, "src", "a.js")})
	require.NoError(t, err)
	assert.Equal(t, []string{
		filepath.Join(root, "src", "a.js"),
		filepath.Join(root, "src", "b.mjs"),
	}, files)

	_, err = r.Expand(nil)
	assert.ErrorIs(t, err, ErrNoInputs)

	_, err = r.Expand([]string{filepath.Join(root, "missing")})
	assert.Error(t, err)
}

func TestRun_CheckMode(t *testing.T) {
	root := writeTree(t, map[string]string{
		"module2/types.js": typesSource,
		"plain.js":         plainSource,
	})
	r := newTestRunner(DefaultConfig())

	summary, err := r.Run(context.Background(), []string{root})
	require.NoError(t, err)
	assert.NotEmpty(t, summary.RunID)
	assert.Equal(t, 2, summary.Files)
	assert.Equal(t, 1, summary.Changed)
	assert.Equal(t, 0, summary.Written)
	assert.Equal(t, 1, summary.Imports)
	assert.Equal(t, 1, summary.Exports)
	assert.True(t, summary.Pending())

	content, err := os.ReadFile(filepath.Join(root, "module2", "types.js"))
	require.NoError(t, err)
	assert.Equal(t, typesSource, string(content), "check mode must not write")
}

func TestRun_WriteModeIsIdempotent(t *testing.T) {
	root := writeTree(t, map[string]string{"module2/types.js": typesSource})
	cfg := DefaultConfig()
	cfg.Write = true
	r := newTestRunner(cfg)

	summary, err := r.Run(context.Background(), []string{root})
	require.NoError(t, err)
	assert.Equal(t, 1, summary.Written)

	path := filepath.Join(root, "module2", "types.js")
	content, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(content), "export let Foo;\n")
	assert.Contains(t, string(content), "require('../module1/Bar')")

	info, err := os.Stat(path)
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0o644), info.Mode().Perm())

	summary, err = r.Run(context.Background(), []string{root})
	require.NoError(t, err)
	assert.Equal(t, 0, summary.Changed)
	assert.False(t, summary.Pending())
}

func TestRun_DiffMode(t *testing.T) {
	root := writeTree(t, map[string]string{"types.js": typesSource})
	cfg := DefaultConfig()
	cfg.Diff = true
	r := newTestRunner(cfg)

	summary, err := r.Run(context.Background(), []string{root})
	require.NoError(t, err)
	require.Len(t, summary.Outcomes, 1)

	d := string(summary.Outcomes[0].Diff)
	assert.True(t, strings.HasPrefix(d, "--- a/"))
	assert.Contains(t, d, "+export let Foo;\n")
}

func TestRun_UsesCache(t *testing.T) {
	root := writeTree(t, map[string]string{"module2/types.js": typesSource})
	c, err := cache.OpenInMemory()
	require.NoError(t, err)
	defer c.Close()

	cfg := DefaultConfig()
	cfg.Diff = true
	r := newTestRunner(cfg, WithCache(c))

	first, err := r.Run(context.Background(), []string{root})
	require.NoError(t, err)
	assert.Equal(t, 0, first.Cached)

	second, err := r.Run(context.Background(), []string{root})
	require.NoError(t, err)
	assert.Equal(t, 1, second.Cached)
	assert.Equal(t, first.Outcomes[0].Result.Output, second.Outcomes[0].Result.Output)
	assert.Equal(t, first.Outcomes[0].Diff, second.Outcomes[0].Diff)
}

func TestRun_CacheInvalidatedByDependency(t *testing.T) {
	root := writeTree(t, map[string]string{
		"module1/Bar.js":   "export default class Bar {}\n",
		"module2/types.js": "/** @module module2/types */\n/** @type {module:module1/Bar~Baz} */\nlet b;\n",
	})
	c, err := cache.OpenInMemory()
	require.NoError(t, err)
	defer c.Close()
	r := newTestRunner(DefaultConfig(), WithCache(c))
	target := filepath.Join(root, "module2", "types.js")

	first, err := r.RunFiles(context.Background(), []string{target})
	require.NoError(t, err)
	assert.Contains(t, string(first.Outcomes[0].Result.Output), "require('../module1/Bar').Baz")

	require.NoError(t, os.WriteFile(filepath.Join(root, "module1", "Bar.js"), []byte("export default class Baz {}\n"), 0o644))
	r.proc.Exports().Invalidate(filepath.Join(root, "module1", "Bar.js"))

	second, err := r.RunFiles(context.Background(), []string{target})
	require.NoError(t, err)
	assert.Equal(t, 0, second.Cached)
	assert.Contains(t, string(second.Outcomes[0].Result.Output), "require('../module1/Bar');")
}

func TestRun_CacheKeyedByIndexFiles(t *testing.T) {
	root := writeTree(t, map[string]string{"module2/types/index.js": typesSource})
	c, err := cache.OpenInMemory()
	require.NoError(t, err)
	defer c.Close()

	first, err := newTestRunner(DefaultConfig(), WithCache(c)).Run(context.Background(), []string{root})
	require.NoError(t, err)
	require.Len(t, first.Outcomes, 1)
	assert.Contains(t, string(first.Outcomes[0].Result.Output), "'../../module1/Bar'")

	proc := jsfile.NewProcessor(rewrite.NewEngine(),
		jsfile.WithDirectoryIndexFiles("main.js"),
		jsfile.WithExportIndex(jsfile.NewExportIndex(jsfile.WithIndexFiles("main.js"))))
	second, err := New(proc, DefaultConfig(), WithCache(c)).Run(context.Background(), []string{root})
	require.NoError(t, err)
	require.Len(t, second.Outcomes, 1)
	assert.Equal(t, 0, second.Cached)
	assert.Contains(t, string(second.Outcomes[0].Result.Output), "'../module1/Bar'")
	assert.NotContains(t, string(second.Outcomes[0].Result.Output), "'../../module1/Bar'")
}

func TestRun_CacheKeyedByExtensions(t *testing.T) {
	root := writeTree(t, map[string]string{"module2/types.js": typesSource})
	c, err := cache.OpenInMemory()
	require.NoError(t, err)
	defer c.Close()

	_, err = newTestRunner(DefaultConfig(), WithCache(c)).Run(context.Background(), []string{root})
	require.NoError(t, err)

	proc := jsfile.NewProcessor(rewrite.NewEngine(),
		jsfile.WithExportIndex(jsfile.NewExportIndex(jsfile.WithExtensions(".mjs"))))
	second, err := New(proc, DefaultConfig(), WithCache(c)).Run(context.Background(), []string{root})
	require.NoError(t, err)
	assert.Equal(t, 0, second.Cached)
}

func TestRun_FailuresAreRecorded(t *testing.T) {
	root := writeTree(t, map[string]string{"bad.js": "\xff\xfe"})
	r := newTestRunner(DefaultConfig())

	summary, err := r.Run(context.Background(), []string{root})
	require.NoError(t, err)
	assert.Equal(t, 1, summary.Failed)
	assert.ErrorIs(t, summary.Outcomes[0].Err, jsfile.ErrInvalidContent)
}

func TestRun_Canceled(t *testing.T) {
	root := writeTree(t, map[string]string{"a.js": plainSource})
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := newTestRunner(DefaultConfig()).Run(ctx, []string{root})
	assert.ErrorIs(t, err, context.Canceled)
}

func TestWatcher_RewritesChangedFiles(t *testing.T) {
	root := writeTree(t, map[string]string{"plain.js": plainSource})
	cfg := DefaultConfig()
	cfg.Write = true
	r := newTestRunner(cfg)

	batches := make(chan *Summary, 8)
	w, err := NewWatcher(r, root, WatchOptions{
		Debounce: 50 * time.Millisecond,
		Handler: func(_ []Change, s *Summary, err error) {
			if err == nil {
				batches <- s
			}
		},
	})
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go func() { _ = w.Run(ctx) }()
	time.Sleep(100 * time.Millisecond)

	path := filepath.Join(root, "types.js")
	require.NoError(t, os.WriteFile(path, []byte(typesSource), 0o644))

	deadline := time.After(5 * time.Second)
	for {
		select {
		case s := <-batches:
			if s.Written == 0 {
				continue
			}
			content, err := os.ReadFile(path)
			require.NoError(t, err)
			assert.Contains(t, string(content), "export let Foo;")
			return
		case <-deadline:
			t.Fatal("watcher did not rewrite the file")
		}
	}
}

func TestNewWatcher_RequiresDirectory(t *testing.T) {
	root := writeTree(t, map[string]string{"a.js": plainSource})
	_, err := NewWatcher(newTestRunner(DefaultConfig()), filepath.Join(root, "a.js"), WatchOptions{})
	assert.ErrorIs(t, err, ErrNotDirectory)
}

func TestLatestPerPath(t *testing.T) {
	changes := []Change{
		{Path: "a.js"},
		{Path: "b.js"},
		{Path: "a.js", Removed: true},
	}
	assert.Equal(t, []Change{{Path: "a.js", Removed: true}, {Path: "b.js"}}, latestPerPath(changes))
}
