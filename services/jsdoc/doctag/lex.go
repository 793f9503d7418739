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
	"github.com/viant/parsly"
	"github.com/viant/parsly/matcher"
)

const (
	whitespaceToken = iota
	tagNameToken
	typeBlockToken
	optionalNameToken
	wordToken
)

var whitespaceMatcher = parsly.NewToken(whitespaceToken, "Whitespace", matcher.NewWhiteSpace())
var tagNameMatcher = parsly.NewToken(tagNameToken, "TagName", &tagNameMatch{})
var typeBlockMatcher = parsly.NewToken(typeBlockToken, "TypeBlock", &balancedMatch{open: '{', close: '}'})
var optionalNameMatcher = parsly.NewToken(optionalNameToken, "OptionalName", &balancedMatch{open: '[', close: ']'})
var wordMatcher = parsly.NewToken(wordToken, "Word", &wordMatch{})

// tagNameMatch matches "@" followed by a tag identifier.
type tagNameMatch struct{}

func (m *tagNameMatch) Match(cursor *parsly.Cursor) int {
	if cursor.Pos >= cursor.InputSize || cursor.Input[cursor.Pos] != '@' {
		return 0
	}
	pos := cursor.Pos + 1
	for pos < cursor.InputSize && isTagNamePart(cursor.Input[pos]) {
		pos++
	}
	if pos == cursor.Pos+1 {
		return 0
	}
	return pos - cursor.Pos
}

// balancedMatch matches a nested open/close block. An unterminated block
// does not match, which the parser reports as malformed.
type balancedMatch struct {
	open  byte
	close byte
}

func (m *balancedMatch) Match(cursor *parsly.Cursor) int {
	if cursor.Pos >= cursor.InputSize || cursor.Input[cursor.Pos] != m.open {
		return 0
	}
	depth := 0
	for pos := cursor.Pos; pos < cursor.InputSize; pos++ {
		switch cursor.Input[pos] {
		case m.open:
			depth++
		case m.close:
			depth--
			if depth == 0 {
				return pos - cursor.Pos + 1
			}
		}
	}
	return 0
}

// wordMatch matches a run of non-whitespace bytes.
type wordMatch struct{}

func (m *wordMatch) Match(cursor *parsly.Cursor) int {
	pos := cursor.Pos
	for pos < cursor.InputSize && !isSpace(cursor.Input[pos]) {
		pos++
	}
	return pos - cursor.Pos
}

func isTagNamePart(b byte) bool {
	return (b >= 'a' && b <= 'z') || (b >= 'A' && b <= 'Z') || (b >= '0' && b <= '9') || b == '_' || b == '-'
}

func isSpace(b byte) bool {
	return b == ' ' || b == '\t' || b == '\n' || b == '\r'
}
