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
	"path/filepath"
	"strconv"
	"strings"

	"github.com/AleutianAI/jsdocclosure/services/jsdoc/doctag"
)

// DefaultExportLookup answers whether a module's default export is bound
// to a given name.
//
// Description:
//
//	The resolver asks this when a reference names a symbol different from
//	the module's final path segment. If the symbol is the target's default
//	export, the generated import binds the module itself instead of a named
//	member.
//
// Thread Safety: Implementations may be shared across files and must be
// safe for concurrent use.
type DefaultExportLookup interface {
	// DefaultExportName returns the default export's name for a module path
	// relative to the file being processed, and false when the module or its
	// default export name is unknown.
	DefaultExportName(relativePath string) (string, bool)
}

// DefaultExportLookupFunc adapts a function to DefaultExportLookup.
type DefaultExportLookupFunc func(relativePath string) (string, bool)

// DefaultExportName implements DefaultExportLookup.
func (f DefaultExportLookupFunc) DefaultExportName(relativePath string) (string, bool) {
	return f(relativePath)
}

// ImportRecord is one generated import declaration.
type ImportRecord struct {
	// Key is the deduplication key: Path plus "."+Member when present.
	Key string

	// Alias is the local binding name.
	Alias string

	// Path is the relative module path.
	Path string

	// Member is the named export, empty for the module itself.
	Member string

	// Declaration is the statement text, e.g.
	// "const module1$Bar = require('../module1/Bar');".
	Declaration string
}

// ModuleContext holds the per-file resolution state.
//
// Description:
//
//	Created when a file begins and discarded when it ends. It records the
//	file's own module identity (from a "@module" tag), the number of path
//	levels to climb for relative paths, the tokens already chosen per
//	dedup key, and the generated import records in insertion order.
//
// Thread Safety: Not safe for concurrent use. One context per file.
type ModuleContext struct {
	resourcePath   string
	indexFileNames []string

	selfModulePath string
	hasSelf        bool
	upLevels       int

	resolved map[string]string
	journal  []string
	aliases  map[string]struct{}
	records  []ImportRecord

	existing map[string]string
	defaults DefaultExportLookup
}

// ContextOption configures a ModuleContext.
type ContextOption func(*ModuleContext)

// WithIndexFileNames overrides the directory-index file names.
func WithIndexFileNames(names ...string) ContextOption {
	return func(m *ModuleContext) {
		m.indexFileNames = append([]string(nil), names...)
	}
}

// WithExistingImports supplies the file's import bindings keyed by
// normalized module path, "path.member" for named imports and "path.*" for
// namespace imports.
func WithExistingImports(bindings map[string]string) ContextOption {
	return func(m *ModuleContext) { m.existing = bindings }
}

// WithDefaultExportLookup injects the default-export capability.
func WithDefaultExportLookup(l DefaultExportLookup) ContextOption {
	return func(m *ModuleContext) { m.defaults = l }
}

// NewModuleContext creates the state for one file.
//
// Inputs:
//
//	resourcePath - Path of the file being processed. Only its base name is
//	               used, to detect directory-index files.
//	opts - Optional configuration.
//
// Example:
//
//	mc := rewrite.NewModuleContext("src/module2/types.js",
//	    rewrite.WithDefaultExportLookup(index.ForFile("src/module2/types.js")))
func NewModuleContext(resourcePath string, opts ...ContextOption) *ModuleContext {
	m := &ModuleContext{indexFileNames: DefaultIndexFileNames}
	for _, opt := range opts {
		opt(m)
	}
	m.Reset(resourcePath)
	return m
}

// Reset clears every piece of per-file state and rebinds the context to a
// new resource. Capabilities and index file names are kept.
func (m *ModuleContext) Reset(resourcePath string) {
	m.resourcePath = resourcePath
	m.selfModulePath = ""
	m.hasSelf = false
	m.upLevels = 0
	m.resolved = make(map[string]string)
	m.journal = nil
	m.aliases = make(map[string]struct{})
	m.records = nil
}

// Establish records the file's module identity from a "@module" tag.
//
// Returns true when tag was a named module tag. Later module tags replace
// earlier ones.
func (m *ModuleContext) Establish(tag doctag.Tag) bool {
	if !tag.IsModule() || tag.Name == "" {
		return false
	}
	m.selfModulePath = tag.Name
	m.hasSelf = true
	m.upLevels = len(strings.Split(tag.Name, "/"))
	if m.isIndexFile() {
		m.upLevels++
	}
	return true
}

func (m *ModuleContext) isIndexFile() bool {
	base := filepath.Base(m.resourcePath)
	for _, name := range m.indexFileNames {
		if base == name {
			return true
		}
	}
	return false
}

// ResourcePath returns the file this context belongs to.
func (m *ModuleContext) ResourcePath() string {
	return m.resourcePath
}

// SelfModulePath returns the established module identity.
func (m *ModuleContext) SelfModulePath() (string, bool) {
	return m.selfModulePath, m.hasSelf
}

// UpLevels returns the relative path depth.
func (m *ModuleContext) UpLevels() int {
	return m.upLevels
}

// Records returns the generated import records in insertion order.
func (m *ModuleContext) Records() []ImportRecord {
	return append([]ImportRecord(nil), m.records...)
}

func (m *ModuleContext) token(key string) (string, bool) {
	t, ok := m.resolved[key]
	return t, ok
}

func (m *ModuleContext) remember(key, token string) {
	m.resolved[key] = token
	m.journal = append(m.journal, key)
}

func (m *ModuleContext) addRecord(rec ImportRecord) {
	m.records = append(m.records, rec)
	m.aliases[rec.Alias] = struct{}{}
}

// uniqueAlias returns alias, or alias with a numeric suffix if another key
// already claimed it.
func (m *ModuleContext) uniqueAlias(alias string) string {
	if _, taken := m.aliases[alias]; !taken {
		return alias
	}
	for n := 2; ; n++ {
		candidate := alias + "_" + strconv.Itoa(n)
		if _, taken := m.aliases[candidate]; !taken {
			return candidate
		}
	}
}

// checkpoint marks the resolution state before a comment is processed.
type checkpoint struct {
	records int
	keys    int
}

func (m *ModuleContext) checkpoint() checkpoint {
	return checkpoint{records: len(m.records), keys: len(m.journal)}
}

// rollback forgets tokens and records added after cp, so a comment that is
// left untouched contributes no declarations. The module identity is not
// restored: a @module tag in that comment still applies to later comments.
func (m *ModuleContext) rollback(cp checkpoint) {
	for _, key := range m.journal[cp.keys:] {
		delete(m.resolved, key)
	}
	m.journal = m.journal[:cp.keys]
	for _, rec := range m.records[cp.records:] {
		delete(m.aliases, rec.Alias)
	}
	m.records = m.records[:cp.records]
}
