// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package textedit applies byte-range replacements to source text.
package textedit

import (
	"errors"
	"fmt"
	"sort"
)

// ErrOverlap indicates two edits touch the same bytes.
var ErrOverlap = errors.New("overlapping edits")

// ErrOutOfRange indicates an edit outside the source.
var ErrOutOfRange = errors.New("edit out of range")

// Edit replaces src[Start:End] with Text. Start == End is an insertion.
type Edit struct {
	Start int
	End   int
	Text  string
}

// Sorted returns edits ordered by Start. Insertions at the same offset
// keep their relative order.
func Sorted(edits []Edit) []Edit {
	out := append([]Edit(nil), edits...)
	sort.SliceStable(out, func(i, j int) bool { return out[i].Start < out[j].Start })
	return out
}

// Apply returns src with every edit applied.
//
// Inputs:
//
//	src - Original text. Not modified.
//	edits - Edits in offsets of src, in any order.
//
// Outputs:
//
//	[]byte - The edited text.
//	error - ErrOverlap or ErrOutOfRange.
func Apply(src []byte, edits []Edit) ([]byte, error) {
	if len(edits) == 0 {
		return append([]byte(nil), src...), nil
	}
	sorted := Sorted(edits)

	out := make([]byte, 0, len(src)+64*len(edits))
	pos := 0
	for _, e := range sorted {
		if e.Start < 0 || e.End < e.Start || e.End > len(src) {
			return nil, fmt.Errorf("[%d,%d) of %d bytes: %w", e.Start, e.End, len(src), ErrOutOfRange)
		}
		if e.Start < pos {
			return nil, fmt.Errorf("edit at %d before %d: %w", e.Start, pos, ErrOverlap)
		}
		out = append(out, src[pos:e.Start]...)
		out = append(out, e.Text...)
		pos = e.End
	}
	out = append(out, src[pos:]...)
	return out, nil
}
