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
	"fmt"
	"log/slog"
	"strings"
)

// Style selects how references become resolvable tokens.
type Style int

const (
	// StyleAlias replaces references with a flattened alias backed by a
	// generated import declaration.
	StyleAlias Style = iota

	// StyleReuse replaces references with the local name of an existing
	// import binding, falling back to a relative path token.
	StyleReuse

	// StylePath replaces references with a relative path token.
	StylePath
)

// String returns the configuration name of the style.
func (s Style) String() string {
	switch s {
	case StyleAlias:
		return "alias"
	case StyleReuse:
		return "reuse"
	case StylePath:
		return "path"
	default:
		return fmt.Sprintf("Style(%d)", int(s))
	}
}

// ParseStyle converts a configuration name to a Style.
func ParseStyle(s string) (Style, error) {
	switch strings.ToLower(s) {
	case "alias", "":
		return StyleAlias, nil
	case "reuse":
		return StyleReuse, nil
	case "path":
		return StylePath, nil
	}
	return StyleAlias, fmt.Errorf("unknown rewrite style %q", s)
}

// Syntax selects the shape of generated import declarations.
type Syntax int

const (
	// SyntaxCommonJS emits `const A = require('P');`.
	SyntaxCommonJS Syntax = iota

	// SyntaxESM emits `import A from 'P';`.
	SyntaxESM
)

// String returns the configuration name of the syntax.
func (s Syntax) String() string {
	if s == SyntaxESM {
		return "esm"
	}
	return "commonjs"
}

// ParseSyntax converts a configuration name to a Syntax.
func ParseSyntax(s string) (Syntax, error) {
	switch strings.ToLower(s) {
	case "commonjs", "cjs", "":
		return SyntaxCommonJS, nil
	case "esm", "module":
		return SyntaxESM, nil
	}
	return SyntaxCommonJS, fmt.Errorf("unknown declaration syntax %q", s)
}

// PathFormat selects how a relative path token is written.
type PathFormat int

const (
	// PathImport writes `import("P").member`.
	PathImport PathFormat = iota

	// PathBare writes `P.member`.
	PathBare
)

// String returns the configuration name of the format.
func (f PathFormat) String() string {
	if f == PathBare {
		return "bare"
	}
	return "import"
}

// ParsePathFormat converts a configuration name to a PathFormat.
func ParsePathFormat(s string) (PathFormat, error) {
	switch strings.ToLower(s) {
	case "import", "":
		return PathImport, nil
	case "bare":
		return PathBare, nil
	}
	return PathImport, fmt.Errorf("unknown path token format %q", s)
}

// DefaultMaxPasses bounds the fixpoint loop per comment. Each changing
// pass must remove at least one reference, so real comments finish in a
// handful of passes.
const DefaultMaxPasses = 32

// DefaultIndexFileNames are the directory-index file names that add one
// level to relative paths.
var DefaultIndexFileNames = []string{"index.js"}

// Options configures an Engine. Fixed for the duration of a run.
type Options struct {
	Style      Style
	Syntax     Syntax
	PathFormat PathFormat

	// MaxPasses is the fixpoint ceiling per comment. Zero means
	// DefaultMaxPasses.
	MaxPasses int

	// Logger receives debug output. Nil means slog.Default().
	Logger *slog.Logger
}

// Option mutates Options.
type Option func(*Options)

// WithStyle sets the rewrite style.
func WithStyle(s Style) Option {
	return func(o *Options) { o.Style = s }
}

// WithSyntax sets the declaration syntax.
func WithSyntax(s Syntax) Option {
	return func(o *Options) { o.Syntax = s }
}

// WithPathFormat sets the relative path token format.
func WithPathFormat(f PathFormat) Option {
	return func(o *Options) { o.PathFormat = f }
}

// WithMaxPasses sets the fixpoint ceiling.
func WithMaxPasses(n int) Option {
	return func(o *Options) { o.MaxPasses = n }
}

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) Option {
	return func(o *Options) { o.Logger = l }
}

// Fingerprint identifies option values that change rewrite output.
func (o Options) Fingerprint() string {
	return fmt.Sprintf("style=%s;syntax=%s;path=%s", o.Style, o.Syntax, o.PathFormat)
}
