// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package rewrite turns "module:" references in JSDoc comments into
// resolvable tokens and lifts typedefs into structural types.
//
// The package is host independent: a JavaScript host supplies comments
// through the DocComment interface, one ModuleContext per file, and
// receives import declarations and typedef exports to splice back.
package rewrite

import (
	"errors"
	"log/slog"
	"strings"

	"github.com/AleutianAI/jsdocclosure/services/jsdoc/doctag"
)

// DocComment is a documentation comment owned by the host.
//
// Text returns the comment value between "/*" and "*/". SetText replaces
// it; the host is responsible for writing it back into the source.
type DocComment interface {
	Text() string
	SetText(value string)
}

// StringComment is an in-memory DocComment.
type StringComment struct {
	Value string
}

// Text implements DocComment.
func (c *StringComment) Text() string { return c.Value }

// SetText implements DocComment.
func (c *StringComment) SetText(value string) { c.Value = value }

// PendingExport is a declaration to insert after a typedef comment.
type PendingExport struct {
	// Name is the exported typedef name.
	Name string

	// Declaration is the statement text, "export let Name;".
	Declaration string

	// Comment is the typedef comment the declaration must follow. The host
	// keeps every comment preceding it attached as leading documentation.
	Comment DocComment
}

// CommentResult reports what Process did to one comment.
type CommentResult struct {
	// Changed reports whether SetText was called.
	Changed bool

	// Passes counts the substitution passes that changed the comment.
	Passes int

	// Resolutions lists every reference resolved, in order.
	Resolutions []Resolution

	// Export is set when a named typedef was synthesized.
	Export *PendingExport

	// Typedef reports whether the comment was rewritten as a typedef.
	Typedef bool
}

// Engine rewrites documentation comments.
//
// Thread Safety: Safe for concurrent use. Per-file state lives in the
// ModuleContext, which must not be shared.
type Engine struct {
	opts     Options
	resolver *Resolver
	logger   *slog.Logger
}

// NewEngine creates an engine.
//
// Example:
//
//	engine := rewrite.NewEngine(rewrite.WithStyle(rewrite.StyleAlias))
//	mc := rewrite.NewModuleContext("src/module2/types.js")
//	res, err := engine.Process(comment, mc, true)
func NewEngine(opts ...Option) *Engine {
	var o Options
	for _, opt := range opts {
		opt(&o)
	}
	if o.MaxPasses <= 0 {
		o.MaxPasses = DefaultMaxPasses
	}
	logger := o.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &Engine{
		opts:     o,
		resolver: NewResolver(o),
		logger:   logger.With(slog.String("component", "rewrite")),
	}
}

// Options returns the engine configuration.
func (e *Engine) Options() Options {
	return e.opts
}

// Process rewrites one comment to its fixed point.
//
// Description:
//
//	Each pass re-parses the tags, establishes the module identity from any
//	"@module" tag, then resolves every reference found in tag types and
//	replaces all of its occurrences in the comment. Passes repeat until
//	nothing changes. On the pass where nothing was substituted, a typedef
//	comment is synthesized when allowTypedef is set.
//
//	Non-documentation and malformed comments are returned unchanged with a
//	nil error. When the loop fails to converge the comment is left
//	untouched, the resolutions it made are rolled back out of mc, and a
//	*CommentError wrapping ErrPassLimit or ErrNoProgress is returned.
//
// Inputs:
//
//	c - The comment. SetText is called at most once, with the final text.
//	mc - The file's context.
//	allowTypedef - Whether a typedef export may be produced here.
//
// Outputs:
//
//	CommentResult - What changed.
//	error - Non-nil only for convergence failures.
func (e *Engine) Process(c DocComment, mc *ModuleContext, allowTypedef bool) (CommentResult, error) {
	original := c.Text()
	if !doctag.IsDocComment(original) {
		return CommentResult{}, nil
	}

	cp := mc.checkpoint()
	current := original
	var res CommentResult

	for {
		if res.Passes >= e.opts.MaxPasses {
			mc.rollback(cp)
			return CommentResult{}, &CommentError{Line: -1, Passes: res.Passes, Cause: ErrPassLimit}
		}

		tags, err := doctag.Parse(current)
		if err != nil {
			if res.Passes > 0 {
				mc.rollback(cp)
			}
			e.logger.Debug("skipping unparsable comment", slog.String("error", err.Error()))
			return CommentResult{}, nil
		}
		for _, tag := range tags {
			mc.Establish(tag)
		}

		next, resolutions := e.substitute(current, tags, mc)
		if next != current {
			if countMarkers(next) >= countMarkers(current) {
				mc.rollback(cp)
				return CommentResult{}, &CommentError{Line: -1, Passes: res.Passes + 1, Cause: ErrNoProgress}
			}
			current = next
			res.Passes++
			res.Resolutions = append(res.Resolutions, resolutions...)
			continue
		}

		if allowTypedef {
			if td, ok := Synthesize(tags, current); ok {
				current = td.Comment
				res.Typedef = true
				if td.Export != "" {
					res.Export = &PendingExport{Name: td.Name, Declaration: td.Export, Comment: c}
				}
			}
		}
		break
	}

	if current != original {
		c.SetText(current)
		res.Changed = true
	}
	return res, nil
}

// substitute resolves every reference in the tag types and replaces its
// occurrences throughout text.
func (e *Engine) substitute(text string, tags []doctag.Tag, mc *ModuleContext) (string, []Resolution) {
	var resolutions []Resolution
	for _, tag := range tags {
		if tag.IsModule() || !tag.HasType {
			continue
		}
		for _, ref := range Scan(tag.Type) {
			if indexReference(text, ref.Raw, 0) < 0 {
				continue
			}
			res, err := e.resolver.Resolve(ref, mc)
			if err != nil {
				if !errors.Is(err, ErrEmptyReference) {
					e.logger.Warn("reference not resolved", slog.String("error", err.Error()))
				}
				continue
			}
			text = ReplaceReference(text, ref.Raw, res.Token)
			resolutions = append(resolutions, res)
		}
	}
	return text, resolutions
}

// ReplaceReference replaces every complete occurrence of raw in text.
//
// An occurrence is complete when it is followed by a stop character, a type
// application opener ("<" or ".<") or the end of text. This keeps
// "module:x/Y" from matching the prefix of "module:x/Y.Z".
func ReplaceReference(text, raw, token string) string {
	var b strings.Builder
	from := 0
	for {
		i := indexReference(text, raw, from)
		if i < 0 {
			break
		}
		b.WriteString(text[from:i])
		b.WriteString(token)
		from = i + len(raw)
	}
	if from == 0 {
		return text
	}
	b.WriteString(text[from:])
	return b.String()
}

func indexReference(text, raw string, from int) int {
	for from <= len(text) {
		i := strings.Index(text[from:], raw)
		if i < 0 {
			return -1
		}
		start := from + i
		if isReferenceBoundary(text, start+len(raw)) {
			return start
		}
		from = start + 1
	}
	return -1
}

func isReferenceBoundary(text string, end int) bool {
	if end >= len(text) {
		return true
	}
	switch c := text[end]; {
	case isStop(c), c == '<':
		return true
	case c == '.':
		return end+1 < len(text) && text[end+1] == '<'
	}
	return false
}
