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
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const typesSource = "/** @module module2/types */\n" +
	"/** @type {module:module1/Bar} */\n" +
	"let bar;\n"

// setupProject writes a source tree and a configuration that keeps the
// cache and logs inside the test directory.
func setupProject(t *testing.T) (root, cfgPath string) {
	t.Helper()
	root = t.TempDir()
	src := filepath.Join(root, "src", "module2", "types.js")
	require.NoError(t, os.MkdirAll(filepath.Dir(src), 0o755))
	require.NoError(t, os.WriteFile(src, []byte(typesSource), 0o644))

	cfgPath = filepath.Join(root, "jsdoc.yaml")
	cfg := "cache:\n  enabled: true\n  dir: " + filepath.Join(root, "cache") + "\n" +
		"logging:\n  level: error\n"
	require.NoError(t, os.WriteFile(cfgPath, []byte(cfg), 0o644))
	return root, cfgPath
}

func execute(t *testing.T, args ...string) (int, string, string) {
	t.Helper()
	var stdout, stderr bytes.Buffer
	code := run(append([]string{"--output", "machine"}, args...), &stdout, &stderr)
	return code, stdout.String(), stderr.String()
}

func TestRewrite_CheckThenWrite(t *testing.T) {
	root, cfgPath := setupProject(t)
	src := filepath.Join(root, "src")
	file := filepath.Join(src, "module2", "types.js")

	code, out, _ := execute(t, "--config", cfgPath, "rewrite", "--check", src)
	assert.Equal(t, exitPending, code)
	assert.Contains(t, out, "would rewrite "+file)
	assert.Contains(t, out, "changed=1")

	unchanged, err := os.ReadFile(file)
	require.NoError(t, err)
	assert.Equal(t, typesSource, string(unchanged))

	code, out, _ = execute(t, "--config", cfgPath, "rewrite", "--write", src)
	assert.Equal(t, exitOK, code)
	assert.Contains(t, out, "OK: rewrote "+file)

	rewritten, err := os.ReadFile(file)
	require.NoError(t, err)
	assert.Contains(t, string(rewritten), "@type {module1$Bar}")
	assert.Contains(t, string(rewritten), "const module1$Bar = require('../module1/Bar');")

	code, out, _ = execute(t, "--config", cfgPath, "rewrite", "--check", src)
	assert.Equal(t, exitOK, code)
	assert.Contains(t, out, "changed=0")
}

func TestRewrite_DiffWithStyleOverride(t *testing.T) {
	root, cfgPath := setupProject(t)

	code, out, _ := execute(t, "--config", cfgPath, "rewrite", "--no-cache", "--diff",
		"--style", "path", "--path-token", "bare", filepath.Join(root, "src"))
	assert.Equal(t, exitOK, code)
	assert.Contains(t, out, "+/** @type {../module1/Bar} */")
	assert.Contains(t, out, "-/** @type {module:module1/Bar} */")
}

func TestRewrite_InvalidFlags(t *testing.T) {
	_, cfgPath := setupProject(t)

	code, _, errOut := execute(t, "--config", cfgPath, "rewrite", "--style", "flat")
	assert.Equal(t, exitError, code)
	assert.Contains(t, errOut, "Style")

	code, _, _ = execute(t, "--config", cfgPath, "rewrite", "--write", "--check")
	assert.Equal(t, exitError, code)
}

func TestRewrite_MissingPath(t *testing.T) {
	root, cfgPath := setupProject(t)
	code, _, errOut := execute(t, "--config", cfgPath, "rewrite", filepath.Join(root, "nope"))
	assert.Equal(t, exitError, code)
	assert.NotEmpty(t, errOut)
}

func TestConfigInitAndShow(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "conf.yaml")

	code, out, _ := execute(t, "--config", "", "config", "init", path)
	require.Equal(t, exitOK, code)
	assert.Contains(t, out, "OK: wrote "+path)

	code, out, _ = execute(t, "--config", path, "config", "show")
	require.Equal(t, exitOK, code)
	assert.True(t, strings.HasPrefix(out, "# "+path+"\n"))
	assert.Contains(t, out, "style: alias")
}

func TestCachePurge(t *testing.T) {
	root, cfgPath := setupProject(t)
	code, _, _ := execute(t, "--config", cfgPath, "rewrite", filepath.Join(root, "src"))
	require.Equal(t, exitOK, code)

	code, out, _ := execute(t, "--config", cfgPath, "cache", "purge")
	assert.Equal(t, exitOK, code)
	assert.Contains(t, out, "OK: cache purged")
}
