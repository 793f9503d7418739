// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package validation checks user-provided inputs before they reach the
// file system.
//
// The HTTP service receives file paths that decide which neighbouring
// modules are read for default-export lookups. These validators keep
// such paths inside the service's working tree.
package validation

import (
	"fmt"
	"path"
	"regexp"
	"strings"
)

// MaxSourcePathLength bounds accepted source paths.
const MaxSourcePathLength = 1024

// segmentPattern matches one path segment: printable, no separators or
// shell metacharacters.
var segmentPattern = regexp.MustCompile(`^[A-Za-z0-9._@+\-][A-Za-z0-9._@+\- ]*$`)

// DefaultSourceExtensions are the extensions ValidateSourcePath accepts
// when none are given.
var DefaultSourceExtensions = []string{".js", ".mjs", ".cjs"}

// ValidateSourcePath validates a slash-separated source path.
//
// Valid paths:
//   - are relative and at most MaxSourcePathLength bytes
//   - contain no "." or ".." segments and no empty segments
//   - use only letters, digits, space and ._@+- in segments
//   - end in one of exts (DefaultSourceExtensions when empty)
//
// Example:
//
//	if err := validation.ValidateSourcePath(req.Path); err != nil {
//	    return fmt.Errorf("invalid path: %w", err)
//	}
func ValidateSourcePath(p string, exts ...string) error {
	if p == "" {
		return fmt.Errorf("path cannot be empty")
	}
	if len(p) > MaxSourcePathLength {
		return fmt.Errorf("path longer than %d bytes", MaxSourcePathLength)
	}
	if strings.HasPrefix(p, "/") || strings.Contains(p, `\`) {
		return fmt.Errorf("path %q must be relative and slash-separated", p)
	}

	for _, seg := range strings.Split(p, "/") {
		switch seg {
		case "":
			return fmt.Errorf("path %q has an empty segment", p)
		case ".", "..":
			return fmt.Errorf("path %q must not contain %q segments", p, seg)
		}
		if !segmentPattern.MatchString(seg) {
			return fmt.Errorf("path %q has invalid segment %q", p, seg)
		}
	}

	if len(exts) == 0 {
		exts = DefaultSourceExtensions
	}
	ext := path.Ext(p)
	for _, e := range exts {
		if ext == e {
			return nil
		}
	}
	return fmt.Errorf("path %q must end in one of %v", p, exts)
}

// SanitizeSourcePath trims whitespace, converts backslashes and validates.
//
//	clean, err := validation.SanitizeSourcePath(` src\a.js `)
//	// clean == "src/a.js"
func SanitizeSourcePath(p string, exts ...string) (string, error) {
	normalized := strings.ReplaceAll(strings.TrimSpace(p), `\`, "/")
	if err := ValidateSourcePath(normalized, exts...); err != nil {
		return "", err
	}
	return normalized, nil
}
