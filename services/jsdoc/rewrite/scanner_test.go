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
	"reflect"
	"testing"
)

func rawOf(refs []TypeReference) []string {
	var out []string
	for _, r := range refs {
		out = append(out, r.Raw)
	}
	return out
}

func TestScan(t *testing.T) {
	tests := []struct {
		name string
		expr string
		want []string
	}{
		{"empty", "", nil},
		{"no marker", "string|number", nil},
		{"single", "module:module1/Bar", []string{"module:module1/Bar"}},
		{"union", "module:module1/Bar|string", []string{"module:module1/Bar"}},
		{"non-null prefix", "!module:module1/Bar", []string{"module:module1/Bar"}},
		{"optional suffix", "module:module1/Bar=", []string{"module:module1/Bar"}},
		{"generic argument", "Object<string, module:module1/Bar>", []string{"module:module1/Bar"}},
		{"closure application", "module:types~foo.<module:types~bar>", []string{"module:types~foo", "module:types~bar"}},
		{"plain application", "module:a/B<module:c/D>", []string{"module:a/B", "module:c/D"}},
		{"function type", "function(module:a/B): module:c/D", []string{"module:a/B", "module:c/D"}},
		{"record type", "{a: module:a/B, b: module:c/D}", []string{"module:a/B", "module:c/D"}},
		{"bare marker", "module:", nil},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := rawOf(Scan(tt.expr))
			if !reflect.DeepEqual(got, tt.want) {
				t.Errorf("Scan(%q) = %v, want %v", tt.expr, got, tt.want)
			}
		})
	}
}

func TestParseReference(t *testing.T) {
	tests := []struct {
		raw        string
		modulePath string
		symbol     string
		hasSymbol  bool
		sep        byte
	}{
		{"module:module1/Bar", "module1/Bar", "", false, 0},
		{"module:module1/Bar~Bar", "module1/Bar", "Bar", true, '~'},
		{"module:types.foo", "types", "foo", true, '.'},
		{"module:types~Foo.bar", "types", "Foo.bar", true, '~'},
		{"module:ol.source/Vector~Options", "ol.source/Vector", "Options", true, '~'},
	}
	for _, tt := range tests {
		t.Run(tt.raw, func(t *testing.T) {
			ref := ParseReference(tt.raw)
			if ref.ModulePath != tt.modulePath {
				t.Errorf("ModulePath = %q, want %q", ref.ModulePath, tt.modulePath)
			}
			if ref.SymbolPath != tt.symbol || ref.HasSymbol != tt.hasSymbol {
				t.Errorf("SymbolPath = %q (%v), want %q (%v)", ref.SymbolPath, ref.HasSymbol, tt.symbol, tt.hasSymbol)
			}
			if ref.Separator != tt.sep {
				t.Errorf("Separator = %q, want %q", ref.Separator, tt.sep)
			}
		})
	}
}

func TestTypeReference_DirsAndName(t *testing.T) {
	ref := ParseReference("module:a/b/C~d")
	if got := ref.Dirs(); !reflect.DeepEqual(got, []string{"a", "b"}) {
		t.Errorf("Dirs() = %v", got)
	}
	if got := ref.Name(); got != "C" {
		t.Errorf("Name() = %q", got)
	}

	flat := ParseReference("module:types")
	if flat.Dirs() != nil {
		t.Errorf("Dirs() of flat module = %v, want nil", flat.Dirs())
	}
}

func TestReplaceReference(t *testing.T) {
	tests := []struct {
		name  string
		text  string
		raw   string
		token string
		want  string
	}{
		{"all occurrences", "{module:a/B|module:a/B}", "module:a/B", "a$B", "{a$B|a$B}"},
		{"no spill into longer ref", "{module:x/Y|module:x/Y.Z}", "module:x/Y", "x$Y", "{x$Y|module:x/Y.Z}"},
		{"application boundary", "{module:a/B.<string>}", "module:a/B", "a$B", "{a$B.<string>}"},
		{"end of text", "module:a/B", "module:a/B", "a$B", "a$B"},
		{"absent", "{string}", "module:a/B", "a$B", "{string}"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := ReplaceReference(tt.text, tt.raw, tt.token); got != tt.want {
				t.Errorf("ReplaceReference() = %q, want %q", got, tt.want)
			}
		})
	}
}
