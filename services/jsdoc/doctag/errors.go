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
	"errors"
	"fmt"
)

var (
	// ErrNotDocComment indicates the comment is not a "/** ... */" block.
	//
	// Callers treat this as "nothing to do", never as a failure.
	ErrNotDocComment = errors.New("not a documentation comment")

	// ErrMalformed indicates a tag could not be tokenized, typically an
	// unbalanced "{" in a type expression.
	ErrMalformed = errors.New("malformed documentation comment")
)

// SyntaxError locates a malformed tag inside a comment.
type SyntaxError struct {
	// Line is the 0-indexed comment line where the offending tag starts.
	Line int

	// Tag is the tag kind, empty when the tag name itself was unreadable.
	Tag string

	// Message describes the problem.
	Message string
}

// Error implements error.
func (e *SyntaxError) Error() string {
	if e.Tag != "" {
		return fmt.Sprintf("line %d: @%s: %s", e.Line, e.Tag, e.Message)
	}
	return fmt.Sprintf("line %d: %s", e.Line, e.Message)
}

// Unwrap lets errors.Is(err, ErrMalformed) match every SyntaxError.
func (e *SyntaxError) Unwrap() error {
	return ErrMalformed
}
