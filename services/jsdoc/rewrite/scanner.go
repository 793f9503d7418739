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

import "strings"

// Marker prefixes every cross-module reference.
const Marker = "module:"

// TypeReference is one "module:" reference found in a type expression.
//
// Example:
//
//	module:module1/Bar~Bar
//	  ModulePath: "module1/Bar"
//	  SymbolPath: "Bar"
//	  Separator:  '~'
type TypeReference struct {
	// Raw is the exact text as it appears in the comment, marker included.
	Raw string

	// ModulePath is the "/"-separated module identity.
	ModulePath string

	// SymbolPath is the member path after the first "." or "~" of the last
	// path segment. Empty when HasSymbol is false.
	SymbolPath string

	// HasSymbol reports whether a member was referenced.
	HasSymbol bool

	// Separator is the byte that introduced SymbolPath ('.' or '~'), or 0.
	Separator byte
}

// Dirs returns the module path segments before the final name.
func (r TypeReference) Dirs() []string {
	i := strings.LastIndexByte(r.ModulePath, '/')
	if i < 0 {
		return nil
	}
	return strings.Split(r.ModulePath[:i], "/")
}

// Name returns the final module path segment.
func (r TypeReference) Name() string {
	return r.ModulePath[strings.LastIndexByte(r.ModulePath, '/')+1:]
}

// isStop reports whether b terminates a reference.
func isStop(b byte) bool {
	switch b {
	case ' ', '\t', '\r', '\n', '|', '}', '>', ')', ',', '=':
		return true
	}
	return false
}

// Scan extracts every module reference from a type expression.
//
// Description:
//
//	Every occurrence of Marker starts a reference, so references nested in
//	type applications are reported too, in order of appearance. A reference
//	ends at the first stop character or at a type application opener ("<",
//	or ".<" whose dot is not part of the reference).
//
// Inputs:
//
//	typeExpression - A JSDoc type expression, possibly empty.
//
// Outputs:
//
//	[]TypeReference - Parsed references. Empty when none were found.
//
// Example:
//
//	Scan("module:types~foo.<module:types~bar>")
//	// [{Raw: "module:types~foo"}, {Raw: "module:types~bar"}]
func Scan(typeExpression string) []TypeReference {
	var refs []TypeReference
	from := 0
	for {
		i := strings.Index(typeExpression[from:], Marker)
		if i < 0 {
			return refs
		}
		start := from + i
		from = start + len(Marker)

		end := referenceEnd(typeExpression, from)
		if end == from {
			continue
		}
		refs = append(refs, ParseReference(typeExpression[start:end]))
	}
}

// referenceEnd returns the index just past a reference body starting at from.
func referenceEnd(s string, from int) int {
	end := from
	for end < len(s) && !isStop(s[end]) && s[end] != '<' {
		end++
	}
	if end < len(s) && s[end] == '<' && end > from && s[end-1] == '.' {
		end--
	}
	return end
}

// ParseReference splits a raw reference into module path and symbol path.
//
// The symbol separator is only looked for in the final "/" segment, so
// dots in directory names stay part of the path.
func ParseReference(raw string) TypeReference {
	ref := TypeReference{Raw: raw}
	body := strings.TrimPrefix(raw, Marker)

	slash := strings.LastIndexByte(body, '/')
	last := body[slash+1:]
	if sep := strings.IndexAny(last, ".~"); sep >= 0 {
		ref.ModulePath = body[:slash+1] + last[:sep]
		ref.SymbolPath = last[sep+1:]
		ref.HasSymbol = true
		ref.Separator = last[sep]
		return ref
	}
	ref.ModulePath = body
	return ref
}

// countMarkers counts Marker occurrences that start a non-empty reference.
func countMarkers(s string) int {
	n := 0
	for _, ref := range Scan(s) {
		if ref.ModulePath != "" {
			n++
		}
	}
	return n
}
