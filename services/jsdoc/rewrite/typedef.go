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
	"strings"

	"github.com/AleutianAI/jsdocclosure/services/jsdoc/doctag"
)

// TypedefProperty is one field of a typedef's structural type.
type TypedefProperty struct {
	Name     string
	Type     string
	Optional bool
}

// Rendered returns the field type as it appears in the record type:
// "(T)" or "(undefined|T)" when optional.
func (p TypedefProperty) Rendered() string {
	t := p.Type
	if t == "" {
		t = "*"
	}
	if p.Optional {
		return "(undefined|" + t + ")"
	}
	return "(" + t + ")"
}

// TypedefDescriptor collects a comment's typedef tag and its properties.
type TypedefDescriptor struct {
	Typedef    doctag.Tag
	Properties []TypedefProperty
}

// NewTypedefDescriptor finds the first typedef tag in tags and gathers the
// property tags of the comment. Duplicate property names keep their first
// position and take the last type.
func NewTypedefDescriptor(tags []doctag.Tag) (TypedefDescriptor, bool) {
	var d TypedefDescriptor
	found := false
	index := make(map[string]int)
	for _, tag := range tags {
		switch {
		case tag.Kind == doctag.KindTypedef && !found:
			d.Typedef = tag
			found = true
		case tag.IsProperty() && tag.Name != "":
			prop := TypedefProperty{Name: tag.Name, Type: tag.Type, Optional: tag.Optional}
			if i, dup := index[tag.Name]; dup {
				d.Properties[i] = prop
				continue
			}
			index[tag.Name] = len(d.Properties)
			d.Properties = append(d.Properties, prop)
		}
	}
	return d, found
}

// ClosureType returns the synthesized type: a record type built from the
// properties, or the typedef's own type when there are none.
func (d TypedefDescriptor) ClosureType() (string, bool) {
	if len(d.Properties) == 0 {
		if !d.Typedef.HasType || d.Typedef.Type == "" {
			return "", false
		}
		return d.Typedef.Type, true
	}
	fields := make([]string, len(d.Properties))
	for i, p := range d.Properties {
		fields[i] = p.Name + ":" + p.Rendered()
	}
	return "{" + strings.Join(fields, ",") + "}", true
}

// TypedefResult is the synthesized replacement for a typedef comment.
type TypedefResult struct {
	// Comment is the new comment value.
	Comment string

	// Name is the typedef name, empty for anonymous typedefs.
	Name string

	// Export is "export let Name;", empty for anonymous typedefs.
	Export string
}

// Synthesize rewrites a typedef comment into its structural form.
//
// Description:
//
//	The new comment holds only "@typedef {T}". It is padded with " *" lines
//	so that the comment plus the exported declaration (when named) spans as
//	many lines as the original comment, keeping later line numbers stable.
//	Running it again on its own output yields the same text.
//
// Inputs:
//
//	tags - Tags parsed from value.
//	value - The current comment value.
//
// Outputs:
//
//	TypedefResult - The replacement.
//	bool - False when there is no typedef, or it has neither type nor
//	       properties.
//
// Example:
//
//	// value: "*\n * @typedef {number} Foo\n "
//	// res.Comment == "* @typedef {number}\n ", res.Export == "export let Foo;"
func Synthesize(tags []doctag.Tag, value string) (TypedefResult, bool) {
	d, ok := NewTypedefDescriptor(tags)
	if !ok {
		return TypedefResult{}, false
	}
	closureType, ok := d.ClosureType()
	if !ok {
		return TypedefResult{}, false
	}

	addLines := strings.Count(value, "\n")
	res := TypedefResult{Name: d.Typedef.Name}
	if res.Name != "" {
		res.Export = "export let " + res.Name + ";"
		addLines--
	}

	var b strings.Builder
	b.WriteString("* @typedef {")
	b.WriteString(closureType)
	b.WriteString("}")
	for i := addLines; i > 0; i-- {
		b.WriteString("\n")
		if i > 1 {
			b.WriteString(" *")
		}
	}
	b.WriteString(" ")
	res.Comment = b.String()
	return res, true
}
