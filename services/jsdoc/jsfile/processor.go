// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package jsfile hosts the comment rewriter on JavaScript source files.
//
// It parses files with tree-sitter, feeds every documentation comment to a
// rewrite.Engine with a fresh rewrite.ModuleContext, and splices the
// rewritten comments, typedef exports and import declarations back into
// the text as byte edits.
package jsfile

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"strings"
	"time"

	"go.opentelemetry.io/otel/codes"

	"github.com/AleutianAI/jsdocclosure/services/jsdoc/rewrite"
	"github.com/AleutianAI/jsdocclosure/services/jsdoc/textedit"
)

// Diagnostic is a non-fatal problem found while processing a file.
type Diagnostic struct {
	// Line is the 1-indexed line of the comment.
	Line int `json:"line"`

	// Message describes the problem.
	Message string `json:"message"`
}

// Result is the outcome of processing one file.
type Result struct {
	Path   string `json:"path"`
	Output []byte `json:"-"`

	// Changed reports whether Output differs from the input.
	Changed bool `json:"changed"`

	// Edits are the byte edits applied to the input, sorted by offset.
	Edits []textedit.Edit `json:"-"`

	// Imports are the appended declarations, in order.
	Imports []string `json:"imports"`

	// Exports are the synthesized typedef names, in order.
	Exports []string `json:"exports"`

	// Comments counts the documentation comments seen.
	Comments int `json:"comments"`

	// Rewritten counts the comments whose text changed.
	Rewritten int `json:"rewritten"`

	// Typedefs counts the typedef comments synthesized.
	Typedefs int `json:"typedefs"`

	// Strategies counts resolved references by strategy label.
	Strategies map[string]int `json:"strategies,omitempty"`

	// Diagnostics lists comments left untouched and recovered syntax errors.
	Diagnostics []Diagnostic `json:"diagnostics,omitempty"`

	// Dependencies maps the module bases consulted for default exports to
	// the hash of the file found ("" when none).
	Dependencies map[string]string `json:"-"`

	// Hash is the hex SHA-256 of the input.
	Hash string `json:"hash"`
}

// Processor rewrites documentation comments of whole files.
//
// Thread Safety: Safe for concurrent use. Every Process call builds its
// own module context; the engine and export index are shared.
type Processor struct {
	engine      *rewrite.Engine
	exports     *ExportIndex
	indexFiles  []string
	maxFileSize int
	logger      *slog.Logger
}

// ProcessorOption configures a Processor.
type ProcessorOption func(*Processor)

// WithExportIndex enables default-export lookups through idx.
func WithExportIndex(idx *ExportIndex) ProcessorOption {
	return func(p *Processor) { p.exports = idx }
}

// WithDirectoryIndexFiles sets the file names that count as directory
// index files when computing relative paths.
func WithDirectoryIndexFiles(names ...string) ProcessorOption {
	return func(p *Processor) { p.indexFiles = append([]string(nil), names...) }
}

// WithMaxFileSize sets the largest accepted file.
func WithMaxFileSize(n int) ProcessorOption {
	return func(p *Processor) { p.maxFileSize = n }
}

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) ProcessorOption {
	return func(p *Processor) { p.logger = l }
}

// NewProcessor creates a processor around an engine.
//
// Example:
//
//	engine := rewrite.NewEngine(rewrite.WithStyle(rewrite.StyleAlias))
//	proc := jsfile.NewProcessor(engine, jsfile.WithExportIndex(jsfile.NewExportIndex()))
//	res, err := proc.Process(ctx, "src/module2/types.js", content)
func NewProcessor(engine *rewrite.Engine, opts ...ProcessorOption) *Processor {
	p := &Processor{
		engine:      engine,
		indexFiles:  rewrite.DefaultIndexFileNames,
		maxFileSize: DefaultMaxFileSize,
		logger:      slog.Default(),
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Engine returns the rewrite engine.
func (p *Processor) Engine() *rewrite.Engine {
	return p.engine
}

// Exports returns the export index, nil when lookups are disabled.
func (p *Processor) Exports() *ExportIndex {
	return p.exports
}

// Fingerprint identifies every setting that changes Process output: the
// engine options, the directory index file names and the export index
// lookup rules.
func (p *Processor) Fingerprint() string {
	fp := p.engine.Options().Fingerprint() + ";index=" + strings.Join(p.indexFiles, ",")
	if p.exports != nil {
		fp += ";" + p.exports.Signature()
	} else {
		fp += ";exports=off"
	}
	return fp
}

// docComment is the rewrite.DocComment view of one comment in a file.
type docComment struct {
	value string
}

func (c *docComment) Text() string         { return c.value }
func (c *docComment) SetText(value string) { c.value = value }

// Process rewrites every documentation comment of one file.
//
// Description:
//
//	Parses the file, then processes its documentation comments in document
//	order against a fresh module context. Rewritten comments replace the
//	original comment text in place. A named typedef's export declaration is
//	inserted on its own line right after the comment, so it precedes the
//	statement the comment documented; only top-level comments may produce
//	one. Generated import declarations are appended at the end of the
//	file, one per line.
//
// Inputs:
//
//	ctx - Context for cancellation and tracing.
//	path - Path of the file. Drives relative path depth and export lookups.
//	content - File contents.
//
// Outputs:
//
//	*Result - Output text, edits, and statistics.
//	error - A *ProcessError for unreadable input. Comments that fail to
//	        converge are reported as diagnostics, not errors.
//
// Thread Safety: Safe for concurrent use.
func (p *Processor) Process(ctx context.Context, path string, content []byte) (*Result, error) {
	start := time.Now()
	ctx, span := startProcessSpan(ctx, path, len(content), p.engine.Options().Style)
	defer span.End()

	res, err := p.process(ctx, path, content)
	recordProcessMetrics(ctx, time.Since(start), res, err == nil)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, err
	}
	setProcessSpanResult(span, res)
	return res, nil
}

func (p *Processor) process(ctx context.Context, path string, content []byte) (*Result, error) {
	src, err := Parse(ctx, content, path, p.maxFileSize)
	if err != nil {
		return nil, newProcessError(path, err)
	}

	res := &Result{
		Path:       path,
		Hash:       src.Hash,
		Comments:   len(src.Comments),
		Strategies: make(map[string]int),
	}
	if src.HasErrors {
		res.Diagnostics = append(res.Diagnostics, Diagnostic{Message: "syntax errors recovered; comments were still processed"})
	}

	ctxOpts := []rewrite.ContextOption{
		rewrite.WithIndexFileNames(p.indexFiles...),
		rewrite.WithExistingImports(src.Bindings),
	}
	var lookup *FileLookup
	if p.exports != nil {
		lookup = p.exports.ForFile(ctx, path)
		ctxOpts = append(ctxOpts, rewrite.WithDefaultExportLookup(lookup))
	}
	mc := rewrite.NewModuleContext(path, ctxOpts...)

	var edits []textedit.Edit
	for _, c := range src.Comments {
		if err := ctx.Err(); err != nil {
			return nil, newProcessError(path, err)
		}
		dc := &docComment{value: c.Value(content)}
		cr, err := p.engine.Process(dc, mc, c.TopLevel)
		if err != nil {
			var commentErr *rewrite.CommentError
			if errors.As(err, &commentErr) {
				commentErr.Line = c.Line
			}
			p.logger.Warn("comment left unchanged",
				slog.String("file", path),
				slog.Int("line", c.Line+1),
				slog.String("error", err.Error()),
			)
			res.Diagnostics = append(res.Diagnostics, Diagnostic{Line: c.Line + 1, Message: err.Error()})
			continue
		}

		countStrategies(res.Strategies, cr.Resolutions)
		if cr.Typedef {
			res.Typedefs++
		}
		if cr.Changed {
			res.Rewritten++
			edits = append(edits, textedit.Edit{Start: c.Start + 2, End: c.End - 2, Text: dc.value})
		}
		if cr.Export != nil {
			edits = append(edits, textedit.Edit{Start: c.End, End: c.End, Text: "\n" + cr.Export.Declaration})
			res.Exports = append(res.Exports, cr.Export.Name)
		}
	}

	var decls rewrite.DeclarationList
	if rewrite.Inject(mc, &decls) > 0 {
		res.Imports = decls
		edits = append(edits, textedit.Edit{Start: len(content), End: len(content), Text: declarationBlock(content, decls)})
	}

	output, err := textedit.Apply(content, edits)
	if err != nil {
		return nil, newProcessError(path, err)
	}
	res.Edits = textedit.Sorted(edits)
	res.Output = output
	res.Changed = !bytes.Equal(output, content)
	if lookup != nil {
		res.Dependencies = lookup.Dependencies()
	}

	p.logger.Debug("processed file",
		slog.String("file", path),
		slog.Int("comments", res.Comments),
		slog.Int("rewritten", res.Rewritten),
		slog.Int("imports", len(res.Imports)),
		slog.Int("exports", len(res.Exports)),
	)
	return res, nil
}

// declarationBlock renders declarations for appending to content, one per
// line, starting on a fresh line.
func declarationBlock(content []byte, decls []string) string {
	var b bytes.Buffer
	if len(content) > 0 && content[len(content)-1] != '\n' {
		b.WriteByte('\n')
	}
	for _, d := range decls {
		b.WriteString(d)
		b.WriteByte('\n')
	}
	return b.String()
}
