// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package rewrite

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/AleutianAI/jsdocclosure/services/jsdoc/doctag"
)

func moduleTag(name string) doctag.Tag {
	return doctag.Tag{Kind: doctag.KindModule, Name: name}
}

func establishedContext(resource, module string, opts ...ContextOption) *ModuleContext {
	mc := NewModuleContext(resource, opts...)
	mc.Establish(moduleTag(module))
	return mc
}

func TestModuleContext_Establish(t *testing.T) {
	tests := []struct {
		name     string
		resource string
		module   string
		levels   int
	}{
		{"flat", "src/types.js", "types", 1},
		{"nested", "src/module2/types.js", "module2/types", 2},
		{"deep", "src/p/q/r.js", "p/q/r", 3},
		{"index file", "src/p/q/r/index.js", "p/q/r", 4},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mc := establishedContext(tt.resource, tt.module)
			assert.Equal(t, tt.levels, mc.UpLevels())
			self, ok := mc.SelfModulePath()
			assert.True(t, ok)
			assert.Equal(t, tt.module, self)
		})
	}
}

func TestModuleContext_EstablishIgnoresOtherTags(t *testing.T) {
	mc := NewModuleContext("a.js")
	assert.False(t, mc.Establish(doctag.Tag{Kind: doctag.KindType, Type: "string"}))
	assert.False(t, mc.Establish(doctag.Tag{Kind: doctag.KindModule}))
	_, ok := mc.SelfModulePath()
	assert.False(t, ok)
	assert.Equal(t, 0, mc.UpLevels())
}

func TestModuleContext_CustomIndexFile(t *testing.T) {
	mc := establishedContext("src/a/main.mjs", "a/main", WithIndexFileNames("main.mjs"))
	assert.Equal(t, 3, mc.UpLevels())
}

func TestModuleContext_Reset(t *testing.T) {
	r := NewResolver(Options{})
	mc := establishedContext("src/module2/types.js", "module2/types")
	_, err := r.Resolve(ParseReference("module:module1/Bar"), mc)
	require.NoError(t, err)
	require.Len(t, mc.Records(), 1)

	mc.Reset("src/other.js")
	assert.Empty(t, mc.Records())
	assert.Equal(t, 0, mc.UpLevels())
	assert.Equal(t, "src/other.js", mc.ResourcePath())
	_, ok := mc.SelfModulePath()
	assert.False(t, ok)
}

func TestResolver_Alias(t *testing.T) {
	tests := []struct {
		name        string
		raw         string
		token       string
		declaration string
	}{
		{"module", "module:module1/Bar", "module1$Bar", "const module1$Bar = require('../module1/Bar');"},
		{"symbol equal to name", "module:module1/Bar~Bar", "module1_Bar_Bar", "const module1_Bar_Bar = require('../module1/Bar');"},
		{"dot member", "module:types.foo", "_types_foo", "const _types_foo = require('../types').foo;"},
		{"tilde member", "module:types~foo", "_types_foo", "const _types_foo = require('../types').foo;"},
		{"nested member", "module:types~Foo.bar", "_types_Foo_bar", "const _types_Foo_bar = require('../types').Foo.bar;"},
		{"sanitized", "module:my-lib/Thing", "my_lib$Thing", "const my_lib$Thing = require('../my-lib/Thing');"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := NewResolver(Options{})
			mc := establishedContext("test/module2/types.js", "module2/types")

			res, err := r.Resolve(ParseReference(tt.raw), mc)
			require.NoError(t, err)
			assert.Equal(t, tt.token, res.Token)
			assert.Equal(t, StrategyAlias, res.Strategy)
			require.NotNil(t, res.Record)
			assert.Equal(t, tt.declaration, res.Record.Declaration)
		})
	}
}

func TestResolver_SelfElision(t *testing.T) {
	r := NewResolver(Options{})
	mc := establishedContext("src/a/b.js", "a/b")

	res, err := r.Resolve(ParseReference("module:a/b~Sym"), mc)
	require.NoError(t, err)
	assert.Equal(t, "Sym", res.Token)
	assert.Equal(t, StrategySelf, res.Strategy)
	assert.Nil(t, res.Record)
	assert.Empty(t, mc.Records())
}

func TestResolver_NoSelfWithoutModuleTag(t *testing.T) {
	r := NewResolver(Options{})
	mc := NewModuleContext("src/a/b.js")

	res, err := r.Resolve(ParseReference("module:a/b~Sym"), mc)
	require.NoError(t, err)
	assert.Equal(t, StrategyAlias, res.Strategy)
	assert.Equal(t, "const a_b_Sym = require('./a/b').Sym;", res.Record.Declaration)
}

func TestResolver_Dedup(t *testing.T) {
	r := NewResolver(Options{})
	mc := establishedContext("test/module2/types.js", "module2/types")

	first, err := r.Resolve(ParseReference("module:module1/Bar"), mc)
	require.NoError(t, err)
	second, err := r.Resolve(ParseReference("module:module1/Bar"), mc)
	require.NoError(t, err)

	assert.Equal(t, first.Token, second.Token)
	assert.Equal(t, StrategyDedup, second.Strategy)
	assert.Len(t, mc.Records(), 1)
}

func TestResolver_DefaultExportLookup(t *testing.T) {
	lookup := DefaultExportLookupFunc(func(path string) (string, bool) {
		if path == "../module1/Bar" {
			return "Baz", true
		}
		return "", false
	})
	r := NewResolver(Options{})
	mc := establishedContext("test/module2/types.js", "module2/types", WithDefaultExportLookup(lookup))

	res, err := r.Resolve(ParseReference("module:module1/Bar~Baz"), mc)
	require.NoError(t, err)
	assert.Equal(t, "module1_Bar_Baz", res.Token)
	assert.Equal(t, "const module1_Bar_Baz = require('../module1/Bar');", res.Record.Declaration)

	named, err := r.Resolve(ParseReference("module:module1/Bar~Qux"), mc)
	require.NoError(t, err)
	assert.Equal(t, "const module1_Bar_Qux = require('../module1/Bar').Qux;", named.Record.Declaration)
}

func TestResolver_ESM(t *testing.T) {
	r := NewResolver(Options{Syntax: SyntaxESM})
	mc := establishedContext("test/module2/types.js", "module2/types")

	def, err := r.Resolve(ParseReference("module:module1/Bar"), mc)
	require.NoError(t, err)
	assert.Equal(t, "import module1$Bar from '../module1/Bar';", def.Record.Declaration)

	named, err := r.Resolve(ParseReference("module:types~foo"), mc)
	require.NoError(t, err)
	assert.Equal(t, "import {foo as _types_foo} from '../types';", named.Record.Declaration)

	nested, err := r.Resolve(ParseReference("module:types~Foo.bar"), mc)
	require.NoError(t, err)
	assert.Equal(t, "_types_Foo_bar.bar", nested.Token)
	assert.Equal(t, "import {Foo as _types_Foo_bar} from '../types';", nested.Record.Declaration)
}

func TestResolver_AliasCollision(t *testing.T) {
	r := NewResolver(Options{})
	mc := NewModuleContext("a.js")

	first, err := r.Resolve(ParseReference("module:my-lib/X"), mc)
	require.NoError(t, err)
	second, err := r.Resolve(ParseReference("module:my_lib/X"), mc)
	require.NoError(t, err)

	assert.Equal(t, "my_lib$X", first.Token)
	assert.Equal(t, "my_lib$X_2", second.Token)
	assert.Len(t, mc.Records(), 2)
}

func TestResolver_Reuse(t *testing.T) {
	existing := map[string]string{
		"../module1/Bar": "Bar",
		"../types.*":     "types",
		"../shapes.Box":  "Box",
	}
	r := NewResolver(Options{Style: StyleReuse})
	mc := establishedContext("test/module2/types.js", "module2/types", WithExistingImports(existing))

	tests := []struct {
		raw      string
		token    string
		strategy Strategy
	}{
		{"module:module1/Bar", "Bar", StrategyExisting},
		{"module:types~foo", "types.foo", StrategyExisting},
		{"module:shapes~Box", "Box", StrategyExisting},
		{"module:other/X", `import("../other/X")`, StrategyPath},
	}
	for _, tt := range tests {
		t.Run(tt.raw, func(t *testing.T) {
			res, err := r.Resolve(ParseReference(tt.raw), mc)
			require.NoError(t, err)
			assert.Equal(t, tt.token, res.Token)
			assert.Equal(t, tt.strategy, res.Strategy)
		})
	}
	assert.Empty(t, mc.Records())
}

func TestResolver_Path(t *testing.T) {
	tests := []struct {
		name   string
		format PathFormat
		raw    string
		want   string
	}{
		{"import module", PathImport, "module:module1/Bar", `import("../module1/Bar")`},
		{"import member", PathImport, "module:types~foo", `import("../types").foo`},
		{"bare member", PathBare, "module:types~foo", "../types.foo"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := NewResolver(Options{Style: StylePath, PathFormat: tt.format})
			mc := establishedContext("test/module2/types.js", "module2/types")
			res, err := r.Resolve(ParseReference(tt.raw), mc)
			require.NoError(t, err)
			assert.Equal(t, tt.want, res.Token)
			assert.Empty(t, mc.Records())
		})
	}
}

func TestResolver_EmptyReference(t *testing.T) {
	r := NewResolver(Options{})
	_, err := r.Resolve(ParseReference("module:a/"), NewModuleContext("a.js"))
	if !errors.Is(err, ErrEmptyReference) {
		t.Fatalf("expected ErrEmptyReference, got %v", err)
	}
}

func TestRelativePath_Depth(t *testing.T) {
	ref := ParseReference("module:x/Y")
	tests := []struct {
		levels int
		want   string
	}{
		{0, "./x/Y"},
		{1, "./x/Y"},
		{2, "../x/Y"},
		{3, "../../x/Y"},
		{4, "../../../x/Y"},
	}
	for _, tt := range tests {
		if got := RelativePath(ref, tt.levels); got != tt.want {
			t.Errorf("RelativePath(%d) = %q, want %q", tt.levels, got, tt.want)
		}
	}
}

func TestNormalizeModulePath(t *testing.T) {
	assert.Equal(t, "../a/B", NormalizeModulePath("../a/B.js"))
	assert.Equal(t, "../a/B", NormalizeModulePath("../a/B.mjs"))
	assert.Equal(t, "../a/B", NormalizeModulePath("../a/B"))
}
