// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package server

import "github.com/AleutianAI/jsdocclosure/services/jsdoc/jsfile"

// RewriteRequest is the body of POST /v1/jsdoc/rewrite.
type RewriteRequest struct {
	// Path is the file path the source belongs to. Only its depth and
	// name matter for relative paths.
	Path string `json:"path" binding:"required"`

	// Source is the file content.
	Source string `json:"source"`

	// Style overrides the server's rewrite style: alias, reuse or path.
	Style string `json:"style,omitempty"`

	// Declarations overrides the declaration syntax: commonjs or esm.
	Declarations string `json:"declarations,omitempty"`

	// PathToken overrides the path token format: import or bare.
	PathToken string `json:"path_token,omitempty"`

	// Diff asks for a unified diff in the response.
	Diff bool `json:"diff,omitempty"`
}

// RewriteResponse is the result of a rewrite.
type RewriteResponse struct {
	RequestID   string              `json:"request_id"`
	Output      string              `json:"output"`
	Changed     bool                `json:"changed"`
	Imports     []string            `json:"imports"`
	Exports     []string            `json:"exports"`
	Strategies  map[string]int      `json:"strategies,omitempty"`
	Diagnostics []jsfile.Diagnostic `json:"diagnostics,omitempty"`
	Diff        string              `json:"diff,omitempty"`
	ProcessMs   int64               `json:"process_ms"`
}

// HealthResponse is the body of GET /v1/jsdoc/health.
type HealthResponse struct {
	Status  string `json:"status"`
	Version string `json:"version"`
	Uptime  string `json:"uptime"`
}

// ErrorResponse is the standard error body.
type ErrorResponse struct {
	// Error is the error message.
	Error string `json:"error"`

	// Code is a stable machine-readable code.
	Code string `json:"code,omitempty"`
}
