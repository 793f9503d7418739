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
	"fmt"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/AleutianAI/jsdocclosure/services/jsdoc/doctag"
)

func processTypedef(t *testing.T, value string) (string, CommentResult) {
	t.Helper()
	mc := NewModuleContext("./test/module2/types.js")
	_, err := NewEngine().Process(&StringComment{Value: "* @module module2/types "}, mc, true)
	require.NoError(t, err)

	c := &StringComment{Value: value}
	res, err := NewEngine().Process(c, mc, true)
	require.NoError(t, err)
	return c.Value, res
}

func TestTypedef_Simple(t *testing.T) {
	out, res := processTypedef(t, "*\n * @typedef {number} Foo\n ")

	assert.Equal(t, "* @typedef {number}\n ", out)
	require.NotNil(t, res.Export)
	assert.Equal(t, "export let Foo;", res.Export.Declaration)
	assert.Equal(t, "Foo", res.Export.Name)
	assert.True(t, res.Typedef)
}

func TestTypedef_ObjectWithReferences(t *testing.T) {
	value := "*\n" +
		" * @typedef {Object}\n" +
		" * Foo\n" +
		" * @property {!module:module1/Bar} bar Bar.\n" +
		" * @property {number} [baz=0] Baz.\n" +
		" "
	out, res := processTypedef(t, value)

	assert.Equal(t, "* @typedef {{bar:(!module1$Bar),baz:(undefined|number)}}\n *\n *\n *\n ", out)
	require.NotNil(t, res.Export)
	assert.Equal(t, "export let Foo;", res.Export.Declaration)
}

func TestTypedef_PreservesLineCount(t *testing.T) {
	for props := 0; props <= 4; props++ {
		t.Run(fmt.Sprintf("%d properties", props), func(t *testing.T) {
			var b strings.Builder
			b.WriteString("*\n * @typedef {Object} Foo\n")
			for i := 0; i < props; i++ {
				fmt.Fprintf(&b, " * @property {string} p%d P.\n", i)
			}
			b.WriteString(" ")
			value := b.String()

			out, res := processTypedef(t, value)
			require.NotNil(t, res.Export)

			before := strings.Count(value, "\n") + 1
			after := strings.Count(out, "\n") + 1 + 1
			assert.Equal(t, before, after, "comment plus export must span the original lines")
		})
	}
}

func TestTypedef_Anonymous(t *testing.T) {
	out, res := processTypedef(t, "*\n * @typedef {string}\n ")
	assert.Equal(t, "* @typedef {string}\n *\n ", out)
	assert.Nil(t, res.Export)
}

func TestTypedef_SingleLineNamed(t *testing.T) {
	out, res := processTypedef(t, "* @typedef {number} Foo ")
	assert.Equal(t, "* @typedef {number} ", out)
	require.NotNil(t, res.Export)
}

func TestTypedef_Idempotent(t *testing.T) {
	value := "*\n * @typedef {Object} Foo\n * @property {number} a A.\n * @property {string=} b B.\n "
	once, first := processTypedef(t, value)
	require.NotNil(t, first.Export)

	twice, second := processTypedef(t, once)
	assert.Equal(t, once, twice)
	assert.False(t, second.Changed)
	assert.Nil(t, second.Export)
}

func TestTypedef_NoTypeNoProperties(t *testing.T) {
	value := "*\n * @typedef Foo\n "
	out, res := processTypedef(t, value)
	assert.Equal(t, value, out)
	assert.False(t, res.Changed)
	assert.Nil(t, res.Export)
}

func TestTypedef_NotAllowed(t *testing.T) {
	mc := NewModuleContext("a.js")
	c := &StringComment{Value: "*\n * @typedef {number} Foo\n "}
	res, err := NewEngine().Process(c, mc, false)
	require.NoError(t, err)
	assert.False(t, res.Changed)
	assert.Nil(t, res.Export)
}

func TestTypedefDescriptor_DuplicateProperties(t *testing.T) {
	tags := []doctag.Tag{
		{Kind: doctag.KindTypedef, Type: "Object", HasType: true, Name: "Foo"},
		{Kind: doctag.KindProperty, Type: "number", Name: "a"},
		{Kind: doctag.KindProperty, Type: "string", Name: "b"},
		{Kind: doctag.KindProp, Type: "boolean", Name: "a", Optional: true},
	}
	d, ok := NewTypedefDescriptor(tags)
	require.True(t, ok)

	got, ok := d.ClosureType()
	require.True(t, ok)
	assert.Equal(t, "{a:(undefined|boolean),b:(string)}", got)
}
