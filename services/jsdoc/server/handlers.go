// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package server exposes the rewriter over HTTP with gin.
package server

import (
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/AleutianAI/jsdocclosure/pkg/validation"
	"github.com/AleutianAI/jsdocclosure/services/jsdoc/diff"
	"github.com/AleutianAI/jsdocclosure/services/jsdoc/jsfile"
	"github.com/AleutianAI/jsdocclosure/services/jsdoc/rewrite"
)

// ServiceVersion is reported by the health endpoint.
const ServiceVersion = "0.1.0"

// Handlers holds the HTTP handlers.
type Handlers struct {
	base        rewrite.Options
	exports     *jsfile.ExportIndex
	indexFiles  []string
	maxFileSize int
	logger      *slog.Logger
	started     time.Time
}

// HandlersOption configures Handlers.
type HandlersOption func(*Handlers)

// WithExportIndex enables default-export lookups on the server's file
// system, relative to each request's path.
func WithExportIndex(idx *jsfile.ExportIndex) HandlersOption {
	return func(h *Handlers) { h.exports = idx }
}

// WithIndexFiles sets the directory index file names.
func WithIndexFiles(names ...string) HandlersOption {
	return func(h *Handlers) { h.indexFiles = names }
}

// WithMaxFileSize bounds accepted sources.
func WithMaxFileSize(n int) HandlersOption {
	return func(h *Handlers) { h.maxFileSize = n }
}

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) HandlersOption {
	return func(h *Handlers) { h.logger = l }
}

// NewHandlers creates handlers whose requests default to base.
func NewHandlers(base rewrite.Options, opts ...HandlersOption) *Handlers {
	h := &Handlers{
		base:        base,
		indexFiles:  rewrite.DefaultIndexFileNames,
		maxFileSize: jsfile.DefaultMaxFileSize,
		logger:      slog.Default(),
		started:     time.Now(),
	}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

// engineFor applies the request's overrides to the base options.
func (h *Handlers) engineFor(req *RewriteRequest) (*rewrite.Engine, string, error) {
	opts := h.base
	if req.Style != "" {
		s, err := rewrite.ParseStyle(req.Style)
		if err != nil {
			return nil, "INVALID_STYLE", err
		}
		opts.Style = s
	}
	if req.Declarations != "" {
		s, err := rewrite.ParseSyntax(req.Declarations)
		if err != nil {
			return nil, "INVALID_DECLARATIONS", err
		}
		opts.Syntax = s
	}
	if req.PathToken != "" {
		f, err := rewrite.ParsePathFormat(req.PathToken)
		if err != nil {
			return nil, "INVALID_PATH_TOKEN", err
		}
		opts.PathFormat = f
	}
	return rewrite.NewEngine(
		rewrite.WithStyle(opts.Style),
		rewrite.WithSyntax(opts.Syntax),
		rewrite.WithPathFormat(opts.PathFormat),
		rewrite.WithMaxPasses(opts.MaxPasses),
		rewrite.WithLogger(h.logger),
	), "", nil
}

// HandleRewrite handles POST /v1/jsdoc/rewrite.
//
// Description:
//
//	Rewrites the documentation comments of one source file sent in the
//	body and returns the new text with the generated imports and exports.
//
// Request Body:
//
//	RewriteRequest
//
// Response:
//
//	200 OK: RewriteResponse
//	400 Bad Request: Malformed body, unsafe path, unknown option, or invalid UTF-8
//	413 Request Entity Too Large: Source exceeds the size limit
//	500 Internal Server Error: Processing error
func (h *Handlers) HandleRewrite(c *gin.Context) {
	requestID := requestIDFrom(c)
	logger := h.logger.With(slog.String("request_id", requestID), slog.String("handler", "HandleRewrite"))

	var req RewriteRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		logger.Warn("invalid request body", slog.String("error", err.Error()))
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid request body", Code: "INVALID_REQUEST"})
		return
	}

	if err := validation.ValidateSourcePath(req.Path); err != nil {
		logger.Warn("rejected source path", slog.String("error", err.Error()))
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: err.Error(), Code: "INVALID_PATH"})
		return
	}

	engine, code, err := h.engineFor(&req)
	if err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: err.Error(), Code: code})
		return
	}

	procOpts := []jsfile.ProcessorOption{
		jsfile.WithDirectoryIndexFiles(h.indexFiles...),
		jsfile.WithMaxFileSize(h.maxFileSize),
		jsfile.WithLogger(logger),
	}
	if h.exports != nil {
		procOpts = append(procOpts, jsfile.WithExportIndex(h.exports))
	}
	proc := jsfile.NewProcessor(engine, procOpts...)

	start := time.Now()
	content := []byte(req.Source)
	res, err := proc.Process(c.Request.Context(), req.Path, content)
	if err != nil {
		status, code := http.StatusInternalServerError, "REWRITE_FAILED"
		switch {
		case errors.Is(err, jsfile.ErrFileTooLarge):
			status, code = http.StatusRequestEntityTooLarge, "FILE_TOO_LARGE"
		case errors.Is(err, jsfile.ErrInvalidContent):
			status, code = http.StatusBadRequest, "INVALID_CONTENT"
		}
		logger.Error("rewrite failed", slog.String("path", req.Path), slog.String("error", err.Error()))
		c.JSON(status, ErrorResponse{Error: err.Error(), Code: code})
		return
	}

	resp := RewriteResponse{
		RequestID:   requestID,
		Output:      string(res.Output),
		Changed:     res.Changed,
		Imports:     nonNil(res.Imports),
		Exports:     nonNil(res.Exports),
		Strategies:  res.Strategies,
		Diagnostics: res.Diagnostics,
		ProcessMs:   time.Since(start).Milliseconds(),
	}
	if req.Diff && res.Changed {
		d, err := diff.Unified(req.Path, content, res.Edits, diff.DefaultContext)
		if err != nil {
			logger.Error("diff failed", slog.String("path", req.Path), slog.String("error", err.Error()))
			c.JSON(http.StatusInternalServerError, ErrorResponse{Error: err.Error(), Code: "REWRITE_FAILED"})
			return
		}
		resp.Diff = string(d)
	}

	logger.Info("rewrite complete",
		slog.String("path", req.Path),
		slog.Bool("changed", res.Changed),
		slog.Int("imports", len(res.Imports)),
	)
	c.JSON(http.StatusOK, resp)
}

// HandleHealth handles GET /v1/jsdoc/health.
func (h *Handlers) HandleHealth(c *gin.Context) {
	c.JSON(http.StatusOK, HealthResponse{
		Status:  "healthy",
		Version: ServiceVersion,
		Uptime:  time.Since(h.started).Round(time.Second).String(),
	})
}

func nonNil(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}
