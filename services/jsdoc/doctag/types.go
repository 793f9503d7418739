// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package doctag parses JSDoc block tags out of documentation comment text.
//
// The parser works on the comment value as a JavaScript host exposes it: the
// text between the opening "/*" and the closing "*/". Only documentation
// comments (value starting with a single "*") are accepted.
package doctag

// Well-known tag kinds.
const (
	KindModule   = "module"
	KindTypedef  = "typedef"
	KindProperty = "property"
	KindProp     = "prop"
	KindType     = "type"
	KindParam    = "param"
)

// Tag is one block tag of a documentation comment.
//
// Description:
//
//	A tag starts at a line whose first non-decoration character is "@" and
//	extends until the next such line or the end of the comment. Decoration
//	(leading whitespace, a single "*" and one space) is stripped from every
//	line before the tag is tokenized.
//
// Example:
//
//	@property {number} [baz=0] Baz count.
//	  Kind:        "property"
//	  Type:        "number"
//	  Name:        "baz"
//	  Optional:    true
//	  Default:     "0"
//	  Description: "Baz count."
type Tag struct {
	// Kind is the tag name without the leading "@" (e.g. "typedef").
	Kind string

	// Type is the text between the outermost braces, trimmed.
	Type string

	// HasType reports whether a brace-delimited type was present.
	HasType bool

	// Name is the associated name (e.g. the typedef or property name).
	Name string

	// Optional is set when the name was written in square brackets.
	Optional bool

	// Default is the default value written as [name=default].
	Default string

	// Description is the remaining free text.
	Description string

	// Source is the undecorated tag text, lines joined with "\n".
	Source string

	// Line is the 0-indexed line of the comment value where the tag starts.
	Line int
}

// IsModule reports whether the tag declares the enclosing module's identity.
func (t Tag) IsModule() bool {
	return t.Kind == KindModule
}

// IsProperty reports whether the tag documents a typedef field.
func (t Tag) IsProperty() bool {
	return t.Kind == KindProperty || t.Kind == KindProp
}
