// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package diff

import (
	"strings"
	"testing"

	godiff "github.com/sourcegraph/go-diff/diff"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/AleutianAI/jsdocclosure/services/jsdoc/textedit"
)

func TestUnified_SingleLineChange(t *testing.T) {
	orig := []byte("a\n/** @type {module:x/Y} */\nlet y;\n")
	start := strings.Index(string(orig), "module:x/Y")
	edits := []textedit.Edit{
		{Start: start, End: start + len("module:x/Y"), Text: "x$Y"},
		{Start: len(orig), End: len(orig), Text: "const x$Y = require('./x/Y');\n"},
	}

	out, err := Unified("src/a.js", orig, edits, 1)
	require.NoError(t, err)

	want := "--- a/src/a.js\n" +
		"+++ b/src/a.js\n" +
		"@@ -1,3 +1,4 @@\n" +
		" a\n" +
		"-/** @type {module:x/Y} */\n" +
		"+/** @type {x$Y} */\n" +
		" let y;\n" +
		"+const x$Y = require('./x/Y');\n"
	assert.Equal(t, want, string(out))

	stat, err := Summarize(out)
	require.NoError(t, err)
	assert.Equal(t, Stat{Added: 2, Removed: 1, Hunks: 1}, stat)
}

func TestHunks_SeparatedChanges(t *testing.T) {
	var b strings.Builder
	for i := 0; i < 20; i++ {
		b.WriteString("line\n")
	}
	orig := []byte(b.String())
	edits := []textedit.Edit{
		{Start: 0, End: 4, Text: "first"},
		{Start: 19 * 5, End: 19*5 + 4, Text: "last"},
	}

	hunks, err := Hunks(orig, edits, 2)
	require.NoError(t, err)
	require.Len(t, hunks, 2)

	assert.Equal(t, int32(1), hunks[0].OrigStartLine)
	assert.Equal(t, int32(3), hunks[0].OrigLines)
	assert.Equal(t, int32(18), hunks[1].OrigStartLine)
	assert.Equal(t, int32(3), hunks[1].OrigLines)
	assert.Equal(t, hunks[1].OrigStartLine, hunks[1].NewStartLine)
}

func TestHunks_LineCountShift(t *testing.T) {
	var b strings.Builder
	for i := 0; i < 20; i++ {
		b.WriteString("line\n")
	}
	orig := []byte(b.String())
	edits := []textedit.Edit{
		{Start: 5, End: 5, Text: "extra\nextra\n"},
		{Start: 15 * 5, End: 15*5 + 4, Text: "changed"},
	}

	hunks, err := Hunks(orig, edits, 0)
	require.NoError(t, err)
	require.Len(t, hunks, 2)
	assert.Equal(t, int32(16), hunks[1].OrigStartLine)
	assert.Equal(t, int32(18), hunks[1].NewStartLine)
}

func TestHunks_NoNewlineAtEOF(t *testing.T) {
	orig := []byte("let a;")
	out, err := Unified("a.js", orig, []textedit.Edit{{Start: 6, End: 6, Text: "\nlet b;\n"}}, 3)
	require.NoError(t, err)
	assert.Contains(t, string(out), "-let a;\n\\ No newline at end of file\n")
	assert.Contains(t, string(out), "+let a;\n+let b;\n")

	fd, err := godiff.ParseFileDiff(out)
	require.NoError(t, err)
	assert.Len(t, fd.Hunks, 1)
}

func TestUnified_NoChanges(t *testing.T) {
	out, err := Unified("a.js", []byte("x\n"), nil, 3)
	require.NoError(t, err)
	assert.Nil(t, out)

	stat, err := Summarize(out)
	require.NoError(t, err)
	assert.Equal(t, Stat{}, stat)
}

func TestHunks_OutOfRange(t *testing.T) {
	_, err := Hunks([]byte("x"), []textedit.Edit{{Start: 0, End: 5}}, 3)
	assert.ErrorIs(t, err, textedit.ErrOutOfRange)
}
