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

// DeclarationSink receives import declarations at the end of a file.
type DeclarationSink interface {
	AppendDeclaration(statement string)
}

// DeclarationList is a DeclarationSink that collects statements in memory.
type DeclarationList []string

// AppendDeclaration implements DeclarationSink.
func (l *DeclarationList) AppendDeclaration(statement string) {
	*l = append(*l, statement)
}

// Inject appends every generated import declaration to sink, once each, in
// the order the imports were first needed.
//
// Returns the number of declarations appended. Self-elided references,
// reused tokens and non-alias styles contribute nothing.
func Inject(mc *ModuleContext, sink DeclarationSink) int {
	seen := make(map[string]struct{}, len(mc.records))
	n := 0
	for _, rec := range mc.records {
		if _, dup := seen[rec.Declaration]; dup {
			continue
		}
		seen[rec.Declaration] = struct{}{}
		sink.AppendDeclaration(rec.Declaration)
		n++
	}
	return n
}
