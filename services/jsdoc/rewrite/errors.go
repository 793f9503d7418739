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
	"errors"
	"fmt"
)

// Sentinel errors for comment rewriting.
//
// All of them are diagnostics: the affected comment is left untouched and
// the host decides whether to log or surface them.
var (
	// ErrPassLimit indicates the rewrite loop hit Options.MaxPasses without
	// reaching a fixed point.
	ErrPassLimit = errors.New("rewrite pass limit exceeded")

	// ErrNoProgress indicates a pass changed the comment without reducing
	// the number of outstanding references, which would never terminate.
	ErrNoProgress = errors.New("rewrite made no progress")

	// ErrEmptyReference indicates a "module:" marker with no path after it.
	ErrEmptyReference = errors.New("empty module reference")
)

// CommentError attaches the comment's first line to a rewrite diagnostic.
type CommentError struct {
	// Line is the 0-indexed line of the comment within its file, or -1.
	Line int

	// Passes is how many passes ran before the failure.
	Passes int

	// Cause is one of the sentinel errors above.
	Cause error
}

// Error implements error.
func (e *CommentError) Error() string {
	if e.Line >= 0 {
		return fmt.Sprintf("comment at line %d: %v after %d passes", e.Line+1, e.Cause, e.Passes)
	}
	return fmt.Sprintf("comment: %v after %d passes", e.Cause, e.Passes)
}

// Unwrap returns the sentinel cause.
func (e *CommentError) Unwrap() error {
	return e.Cause
}
