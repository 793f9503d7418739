// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package doctag

import (
	"strings"

	"github.com/viant/parsly"
)

// IsDocComment reports whether a comment value belongs to a "/** ... */"
// block. "/***" banners and plain block comments are excluded.
func IsDocComment(value string) bool {
	return strings.HasPrefix(value, "*") && !strings.HasPrefix(value, "**")
}

// Parse extracts the block tags of a documentation comment.
//
// Description:
//
//	Splits the comment value into lines, strips "*" decoration and groups
//	lines into tags. Free text before the first tag is ignored. Each tag is
//	tokenized into kind, optional brace type, optional name and description.
//
// Inputs:
//
//	value - The comment text between "/*" and "*/".
//
// Outputs:
//
//	[]Tag - Tags in order of appearance. Empty when the comment has none.
//	error - ErrNotDocComment for non-documentation comments, a *SyntaxError
//	        (matching ErrMalformed) for unbalanced type braces.
//
// Example:
//
//	tags, err := doctag.Parse("*\n * @typedef {number} Foo\n ")
//	// tags[0].Kind == "typedef", tags[0].Type == "number", tags[0].Name == "Foo"
func Parse(value string) ([]Tag, error) {
	if !IsDocComment(value) {
		return nil, ErrNotDocComment
	}

	var tags []Tag
	var block []string
	blockLine := 0

	flush := func() error {
		if block == nil {
			return nil
		}
		tag, err := parseTag(strings.Join(block, "\n"), blockLine)
		if err != nil {
			return err
		}
		tags = append(tags, tag)
		block = nil
		return nil
	}

	for i, line := range strings.Split(value[1:], "\n") {
		text := undecorate(line, i == 0)
		if strings.HasPrefix(strings.TrimLeft(text, " \t"), "@") {
			if err := flush(); err != nil {
				return nil, err
			}
			block = []string{strings.TrimLeft(text, " \t")}
			blockLine = i
			continue
		}
		if block != nil {
			block = append(block, text)
		}
	}
	if err := flush(); err != nil {
		return nil, err
	}
	return tags, nil
}

// undecorate removes leading whitespace, a single "*" and one following
// space. The first line already had its "*" consumed by the caller.
func undecorate(line string, first bool) string {
	line = strings.TrimSuffix(line, "\r")
	if first {
		return strings.TrimPrefix(line, " ")
	}
	trimmed := strings.TrimLeft(line, " \t")
	if strings.HasPrefix(trimmed, "*") {
		return strings.TrimPrefix(trimmed[1:], " ")
	}
	return line
}

func parseTag(source string, line int) (Tag, error) {
	tag := Tag{Source: source, Line: line}
	cursor := parsly.NewCursor("", []byte(source), 0)

	matched := cursor.MatchOne(tagNameMatcher)
	if matched.Code != tagNameToken {
		return tag, &SyntaxError{Line: line, Message: "missing tag name"}
	}
	tag.Kind = matched.Text(cursor)[1:]

	if strings.HasPrefix(strings.TrimLeft(string(cursor.Input[cursor.Pos:]), " \t\r\n"), "{") {
		matched = cursor.MatchAfterOptional(whitespaceMatcher, typeBlockMatcher)
		if matched.Code != typeBlockToken {
			return tag, &SyntaxError{Line: line, Tag: tag.Kind, Message: "unterminated type expression"}
		}
		text := matched.Text(cursor)
		tag.Type = strings.TrimSpace(text[1 : len(text)-1])
		tag.HasType = true
	}

	matched = cursor.MatchAfterOptional(whitespaceMatcher, optionalNameMatcher, wordMatcher)
	switch matched.Code {
	case optionalNameToken:
		text := matched.Text(cursor)
		inner := strings.TrimSpace(text[1 : len(text)-1])
		tag.Optional = true
		if name, def, ok := strings.Cut(inner, "="); ok {
			tag.Name = strings.TrimSpace(name)
			tag.Default = strings.TrimSpace(def)
		} else {
			tag.Name = inner
		}
	case wordToken:
		tag.Name = matched.Text(cursor)
	}

	if cursor.Pos < cursor.InputSize {
		tag.Description = strings.TrimSpace(string(cursor.Input[cursor.Pos:]))
	}
	return tag, nil
}
