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
	"os"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/AleutianAI/jsdocclosure/services/jsdoc/rewrite"
)

// memFS is an in-memory ReadFileFunc.
func memFS(files map[string]string) ReadFileFunc {
	return func(path string) ([]byte, error) {
		if content, ok := files[path]; ok {
			return []byte(content), nil
		}
		return nil, &os.PathError{Op: "open", Path: path, Err: os.ErrNotExist}
	}
}

func newTestProcessor(opts ...rewrite.Option) *Processor {
	return NewProcessor(rewrite.NewEngine(opts...))
}

func TestProcessor_TypedefExport(t *testing.T) {
	input := "/** @module module2/types */\n" +
		"/**\n" +
		" * @typedef {number} Foo\n" +
		" */\n"
	want := "/** @module module2/types */\n" +
		"/** @typedef {number}\n" +
		" */\n" +
		"export let Foo;\n"

	res, err := newTestProcessor().Process(context.Background(), "./test/module2/types.js", []byte(input))
	require.NoError(t, err)
	assert.Equal(t, want, string(res.Output))
	assert.True(t, res.Changed)
	assert.Equal(t, []string{"Foo"}, res.Exports)
	assert.Equal(t, 1, res.Typedefs)
}

func TestProcessor_ObjectTypedefs(t *testing.T) {
	input := "/** @module module2/types */\n" +
		"/**\n" +
		" * @typedef {number} Bar\n" +
		" */\n" +
		"/**\n" +
		" * @typedef {Object}\n" +
		" * Foo\n" +
		" * @property {!module:module1/Bar} bar Bar.\n" +
		" * @property {number} [baz=0] Baz.\n" +
		" */\n"
	want := "/** @module module2/types */\n" +
		"/** @typedef {number}\n" +
		" */\n" +
		"export let Bar;\n" +
		"/** @typedef {{bar:(!module1$Bar),baz:(undefined|number)}}\n" +
		" *\n" +
		" *\n" +
		" *\n" +
		" */\n" +
		"export let Foo;\n" +
		"const module1$Bar = require('../module1/Bar');\n"

	res, err := newTestProcessor().Process(context.Background(), "./test/module2/types.js", []byte(input))
	require.NoError(t, err)
	assert.Equal(t, want, string(res.Output))
	assert.Equal(t, []string{"Bar", "Foo"}, res.Exports)
	assert.Equal(t, []string{"const module1$Bar = require('../module1/Bar');"}, res.Imports)

	// Every original line keeps its position; only declarations are added.
	assert.Equal(t, strings.Count(input, "\n")+1, strings.Count(string(res.Output), "\n"))
}

func TestProcessor_ReferencesAndDeclarations(t *testing.T) {
	input := "/** @module module2/types */\n" +
		"let foo;\n" +
		"/** @type {module:types~foo.<module:types~bar>} */\n" +
		"let bar;"
	want := "/** @module module2/types */\n" +
		"let foo;\n" +
		"/** @type {_types_foo.<_types_bar>} */\n" +
		"let bar;\n" +
		"const _types_foo = require('../types').foo;\n" +
		"const _types_bar = require('../types').bar;\n"

	res, err := newTestProcessor().Process(context.Background(), "./test/module2/types.js", []byte(input))
	require.NoError(t, err)
	assert.Equal(t, want, string(res.Output))
	assert.Equal(t, 2, res.Strategies["alias"])
}

func TestProcessor_Idempotent(t *testing.T) {
	input := "/** @module module2/types */\n" +
		"/**\n" +
		" * @typedef {Object} Foo\n" +
		" * @property {module:module1/Bar} bar Bar.\n" +
		" */\n" +
		"/** @param {module:types~foo} f F. */\n" +
		"function x(f) {}\n"
	proc := newTestProcessor()
	first, err := proc.Process(context.Background(), "./test/module2/types.js", []byte(input))
	require.NoError(t, err)
	require.True(t, first.Changed)

	second, err := proc.Process(context.Background(), "./test/module2/types.js", first.Output)
	require.NoError(t, err)
	assert.False(t, second.Changed)
	assert.Equal(t, string(first.Output), string(second.Output))
	assert.Empty(t, second.Imports)
	assert.Empty(t, second.Exports)
}

func TestProcessor_NestedTypedefNotExported(t *testing.T) {
	input := "function f() {\n" +
		"  /**\n" +
		"   * @typedef {number} Foo\n" +
		"   */\n" +
		"  let x;\n" +
		"}\n"
	res, err := newTestProcessor().Process(context.Background(), "./a.js", []byte(input))
	require.NoError(t, err)
	assert.False(t, res.Changed)
	assert.Empty(t, res.Exports)
}

func TestProcessor_ReuseExistingImport(t *testing.T) {
	input := "import Bar from '../module1/Bar.js';\n" +
		"/** @module module2/types */\n" +
		"/** @type {module:module1/Bar} */\n" +
		"let b;\n"
	res, err := newTestProcessor(rewrite.WithStyle(rewrite.StyleReuse)).
		Process(context.Background(), "./test/module2/types.js", []byte(input))
	require.NoError(t, err)
	assert.Contains(t, string(res.Output), "/** @type {Bar} */")
	assert.Empty(t, res.Imports)
	assert.Equal(t, 1, res.Strategies["existing"])
}

func TestProcessor_DefaultExportLookup(t *testing.T) {
	idx := NewExportIndex(WithReadFile(memFS(map[string]string{
		"src/module1/Bar.js": "export default class Baz {}\n",
	})))
	proc := NewProcessor(rewrite.NewEngine(), WithExportIndex(idx))

	input := "/** @module module2/types */\n" +
		"/** @type {module:module1/Bar~Baz|module:module3/Gone~Thing} */\n" +
		"let b;\n"
	res, err := proc.Process(context.Background(), "src/module2/types.js", []byte(input))
	require.NoError(t, err)

	assert.Equal(t, []string{
		"const module1_Bar_Baz = require('../module1/Bar');",
		"const module3_Gone_Thing = require('../module3/Gone').Thing;",
	}, res.Imports)
	assert.NotEmpty(t, res.Dependencies["src/module1/Bar"])
	assert.Contains(t, res.Dependencies, "src/module3/Gone")
	assert.Empty(t, res.Dependencies["src/module3/Gone"])
}

func TestProcessor_NonConvergingCommentIsDiagnostic(t *testing.T) {
	input := "/** @type {module:a/B} */\nlet b;\n"
	res, err := newTestProcessor(rewrite.WithMaxPasses(1)).
		Process(context.Background(), "./x.js", []byte(input))
	require.NoError(t, err)
	assert.False(t, res.Changed)
	require.Len(t, res.Diagnostics, 1)
	assert.Equal(t, 1, res.Diagnostics[0].Line)
	assert.Contains(t, res.Diagnostics[0].Message, "pass limit")
}

func TestProcessor_RejectsInvalidInput(t *testing.T) {
	proc := NewProcessor(rewrite.NewEngine(), WithMaxFileSize(8))

	_, err := proc.Process(context.Background(), "big.js", []byte("let a = 1234567890;"))
	assert.True(t, errors.Is(err, ErrFileTooLarge))

	var procErr *ProcessError
	require.True(t, errors.As(err, &procErr))
	assert.Equal(t, "big.js", procErr.FilePath)

	_, err = proc.Process(context.Background(), "bad.js", []byte{0xff, 0xfe})
	assert.True(t, errors.Is(err, ErrInvalidContent))
}

func TestProcessor_Canceled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := newTestProcessor().Process(ctx, "a.js", []byte("let a;"))
	assert.True(t, errors.Is(err, context.Canceled))
}
