// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package jsfile

import (
	"errors"
	"fmt"
)

// Sentinel errors for file processing.
var (
	// ErrFileTooLarge indicates the source exceeds the configured maximum.
	ErrFileTooLarge = errors.New("file too large")

	// ErrInvalidContent indicates the source is not valid UTF-8.
	ErrInvalidContent = errors.New("invalid content")

	// ErrModuleNotFound indicates a relative module path matched no file.
	ErrModuleNotFound = errors.New("module not found")
)

// ProcessError reports a failure to process a file.
//
// Example:
//
//	res, err := proc.Process(ctx, "src/a.js", src)
//	var procErr *ProcessError
//	if errors.As(err, &procErr) {
//	    fmt.Printf("%s: %v\n", procErr.FilePath, procErr.Cause)
//	}
type ProcessError struct {
	// FilePath is the file being processed.
	FilePath string

	// Line is the 1-indexed line, 0 when not line specific.
	Line int

	// Cause is the underlying error.
	Cause error
}

// Error implements error.
func (e *ProcessError) Error() string {
	if e.Line > 0 {
		return fmt.Sprintf("%s:%d: %v", e.FilePath, e.Line, e.Cause)
	}
	return fmt.Sprintf("%s: %v", e.FilePath, e.Cause)
}

// Unwrap returns the cause.
func (e *ProcessError) Unwrap() error {
	return e.Cause
}

func newProcessError(path string, cause error) *ProcessError {
	return &ProcessError{FilePath: path, Cause: cause}
}
