// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package diff renders the byte edits of a rewrite as a unified diff.
//
// Edits already say exactly what changed, so hunks are built from them
// directly instead of running a line diff over the two texts. Every edit
// is widened to the whole lines it touches; edits whose context windows
// meet share a hunk.
package diff

import (
	"bytes"
	"fmt"

	godiff "github.com/sourcegraph/go-diff/diff"

	"github.com/AleutianAI/jsdocclosure/services/jsdoc/textedit"
)

// DefaultContext is the number of unchanged lines shown around a change.
const DefaultContext = 3

const noNewline = "\\ No newline at end of file\n"

// Stat summarizes a diff.
type Stat struct {
	Added   int `json:"added"`
	Removed int `json:"removed"`
	Hunks   int `json:"hunks"`
}

// lines splits src after every newline. The last line has no newline when
// src does not end with one.
func lines(src []byte) [][]byte {
	var out [][]byte
	for len(src) > 0 {
		i := bytes.IndexByte(src, '\n')
		if i < 0 {
			out = append(out, src)
			break
		}
		out = append(out, src[:i+1])
		src = src[i+1:]
	}
	return out
}

// region is a run of original lines [lo, hi) replaced by the edits in it.
// An empty run is an insertion before line lo.
type region struct {
	lo, hi int
	edits  []textedit.Edit
}

// Hunks builds the hunks for applying edits to orig.
//
// Inputs:
//
//	orig - The original text.
//	edits - Byte edits in offsets of orig.
//	context - Unchanged lines around each change. Negative means DefaultContext.
//
// Outputs:
//
//	[]*godiff.Hunk - Hunks in file order; nil when nothing changes.
//	error - The edit errors of textedit.Apply.
func Hunks(orig []byte, edits []textedit.Edit, context int) ([]*godiff.Hunk, error) {
	if context < 0 {
		context = DefaultContext
	}
	src := lines(orig)
	starts := make([]int, len(src)+1)
	for i, l := range src {
		starts[i+1] = starts[i] + len(l)
	}
	lineOf := func(off int) int {
		lo, hi := 0, len(src)
		for lo < hi {
			mid := (lo + hi) / 2
			if starts[mid+1] <= off {
				lo = mid + 1
			} else {
				hi = mid
			}
		}
		return lo
	}

	endsWithNewline := len(orig) == 0 || orig[len(orig)-1] == '\n'

	var regions []region
	for _, e := range textedit.Sorted(edits) {
		if e.Start < 0 || e.End < e.Start || e.End > len(orig) {
			return nil, fmt.Errorf("[%d,%d): %w", e.Start, e.End, textedit.ErrOutOfRange)
		}
		lo := lineOf(e.Start)
		if lo == len(src) && lo > 0 && !endsWithNewline {
			lo--
		}
		var hi int
		switch {
		case e.End > e.Start:
			hi = lineOf(e.End-1) + 1
		case starts[lo] == e.Start:
			// Insertion before line lo touches no original line.
			hi = lo
		default:
			hi = lo + 1
		}

		n := len(regions)
		if n > 0 && (lo < regions[n-1].hi || (lo == regions[n-1].lo && lo == regions[n-1].hi)) {
			regions[n-1].hi = max(regions[n-1].hi, hi)
			regions[n-1].edits = append(regions[n-1].edits, e)
			continue
		}
		regions = append(regions, region{lo: lo, hi: hi, edits: []textedit.Edit{e}})
	}

	// Replace each region, dropping the ones the edits leave unchanged.
	var changed []region
	var replacements [][][]byte
	for _, r := range regions {
		base := starts[r.lo]
		shifted := make([]textedit.Edit, len(r.edits))
		for i, e := range r.edits {
			shifted[i] = textedit.Edit{Start: e.Start - base, End: e.End - base, Text: e.Text}
		}
		replaced, err := textedit.Apply(orig[base:starts[r.hi]], shifted)
		if err != nil {
			return nil, err
		}
		if bytes.Equal(replaced, orig[base:starts[r.hi]]) {
			continue
		}
		changed = append(changed, r)
		replacements = append(replacements, lines(replaced))
	}

	var hunks []*godiff.Hunk
	delta := 0
	for i := 0; i < len(changed); {
		j := i + 1
		for j < len(changed) && changed[j].lo-changed[j-1].hi <= 2*context {
			j++
		}

		ctxLo := max(0, changed[i].lo-context)
		ctxHi := min(len(src), changed[j-1].hi+context)

		var body bytes.Buffer
		writeLines(&body, ' ', src[ctxLo:changed[i].lo])
		hunkDelta := 0
		for k := i; k < j; k++ {
			r := changed[k]
			if k > i {
				writeLines(&body, ' ', src[changed[k-1].hi:r.lo])
			}
			writeLines(&body, '-', src[r.lo:r.hi])
			writeLines(&body, '+', replacements[k])
			hunkDelta += len(replacements[k]) - (r.hi - r.lo)
		}
		writeLines(&body, ' ', src[changed[j-1].hi:ctxHi])

		origLines := int32(ctxHi - ctxLo)
		newLines := origLines + int32(hunkDelta)
		h := &godiff.Hunk{
			OrigStartLine: int32(ctxLo + 1),
			OrigLines:     origLines,
			NewStartLine:  int32(ctxLo + 1 + delta),
			NewLines:      newLines,
			Body:          body.Bytes(),
		}
		if origLines == 0 {
			h.OrigStartLine--
		}
		if newLines == 0 {
			h.NewStartLine--
		}
		hunks = append(hunks, h)
		delta += hunkDelta
		i = j
	}
	return hunks, nil
}

func writeLines(buf *bytes.Buffer, prefix byte, ls [][]byte) {
	for _, l := range ls {
		buf.WriteByte(prefix)
		buf.Write(l)
		if !bytes.HasSuffix(l, []byte{'\n'}) {
			buf.WriteByte('\n')
			buf.WriteString(noNewline)
		}
	}
}

// Unified renders the edits to the file at path as a unified diff with
// "a/" and "b/" prefixed names. It returns nil when nothing changes.
func Unified(path string, orig []byte, edits []textedit.Edit, context int) ([]byte, error) {
	hunks, err := Hunks(orig, edits, context)
	if err != nil {
		return nil, err
	}
	if len(hunks) == 0 {
		return nil, nil
	}
	return godiff.PrintFileDiff(&godiff.FileDiff{
		OrigName: "a/" + path,
		NewName:  "b/" + path,
		Hunks:    hunks,
	})
}

// Summarize counts the added and removed lines of a unified diff.
func Summarize(unified []byte) (Stat, error) {
	if len(unified) == 0 {
		return Stat{}, nil
	}
	fd, err := godiff.ParseFileDiff(unified)
	if err != nil {
		return Stat{}, fmt.Errorf("parse diff: %w", err)
	}
	s := fd.Stat()
	return Stat{
		Added:   int(s.Added + s.Changed),
		Removed: int(s.Deleted + s.Changed),
		Hunks:   len(fd.Hunks),
	}, nil
}
