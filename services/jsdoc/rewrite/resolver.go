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
	"strings"
)

// Strategy records how a reference was resolved.
type Strategy int

const (
	// StrategySelf elided a reference to the file's own module.
	StrategySelf Strategy = iota

	// StrategyDedup reused a token chosen earlier in the same file.
	StrategyDedup

	// StrategyAlias generated a new alias and import record.
	StrategyAlias

	// StrategyExisting reused an import binding already in the file.
	StrategyExisting

	// StrategyPath emitted a relative path token.
	StrategyPath
)

// String returns the metric label for the strategy.
func (s Strategy) String() string {
	switch s {
	case StrategySelf:
		return "self"
	case StrategyDedup:
		return "dedup"
	case StrategyAlias:
		return "alias"
	case StrategyExisting:
		return "existing"
	case StrategyPath:
		return "path"
	default:
		return "unknown"
	}
}

// Resolution is the outcome of resolving one reference.
type Resolution struct {
	// Token replaces the raw reference in the comment.
	Token string

	// Strategy says which rule produced Token.
	Strategy Strategy

	// Record is the import registered by this resolution, nil otherwise.
	Record *ImportRecord
}

// Resolver turns references into tokens according to a fixed Style.
//
// Thread Safety: Safe for concurrent use; all mutable state lives in the
// ModuleContext passed to Resolve.
type Resolver struct {
	opts Options
}

// NewResolver creates a resolver for the given options.
func NewResolver(opts Options) *Resolver {
	return &Resolver{opts: opts}
}

// Resolve chooses the replacement token for ref.
//
// Description:
//
//	Self references are elided first. Otherwise the relative path and the
//	imported member are computed, a previously chosen token for the same
//	dedup key is reused, and finally the configured style produces a new
//	token. Only StyleAlias registers an ImportRecord in mc.
//
// Inputs:
//
//	ref - A reference from Scan.
//	mc - The file's context. Mutated for new aliases and dedup tokens.
//
// Outputs:
//
//	Resolution - Token and strategy.
//	error - ErrEmptyReference when the reference has no module path.
//
// Example:
//
//	// mc established "module2/types" for "module2/types.js"
//	res, _ := r.Resolve(rewrite.ParseReference("module:module1/Bar"), mc)
//	// res.Token == "module1$Bar"
//	// res.Record.Declaration == "const module1$Bar = require('../module1/Bar');"
func (r *Resolver) Resolve(ref TypeReference, mc *ModuleContext) (Resolution, error) {
	if ref.ModulePath == "" || strings.HasSuffix(ref.ModulePath, "/") {
		return Resolution{}, fmt.Errorf("%q: %w", ref.Raw, ErrEmptyReference)
	}

	if self, ok := mc.SelfModulePath(); ok && ref.ModulePath == self {
		token := ref.SymbolPath
		if !ref.HasSymbol {
			token = ref.Name()
		}
		return Resolution{Token: token, Strategy: StrategySelf}, nil
	}

	path := RelativePath(ref, mc.UpLevels())
	member := r.member(ref, path, mc)
	key := dedupKey(path, member)

	if token, ok := mc.token(key); ok {
		return Resolution{Token: token, Strategy: StrategyDedup}, nil
	}

	var res Resolution
	switch r.opts.Style {
	case StyleReuse:
		res = r.reuse(path, member, mc)
	case StylePath:
		res = Resolution{Token: r.pathToken(path, member), Strategy: StrategyPath}
	default:
		res = r.alias(ref, path, member, key, mc)
	}
	mc.remember(key, res.Token)
	return res, nil
}

// member returns the named export to import, or "" for the module itself.
func (r *Resolver) member(ref TypeReference, path string, mc *ModuleContext) string {
	if !ref.HasSymbol || ref.SymbolPath == ref.Name() {
		return ""
	}
	if mc.defaults != nil {
		if name, ok := mc.defaults.DefaultExportName(path); ok && name == ref.SymbolPath {
			return ""
		}
	}
	return ref.SymbolPath
}

func (r *Resolver) alias(ref TypeReference, path, member, key string, mc *ModuleContext) Resolution {
	alias := mc.uniqueAlias(AliasFor(ref))
	token := alias

	imported := member
	if r.opts.Syntax == SyntaxESM {
		// Named ESM imports bind one export; deeper members are reached
		// through the alias.
		if head, rest, nested := strings.Cut(member, "."); nested {
			imported = head
			token = alias + "." + rest
		}
	}

	rec := ImportRecord{
		Key:         key,
		Alias:       alias,
		Path:        path,
		Member:      imported,
		Declaration: r.declaration(alias, path, imported),
	}
	mc.addRecord(rec)
	return Resolution{Token: token, Strategy: StrategyAlias, Record: &rec}
}

func (r *Resolver) reuse(path, member string, mc *ModuleContext) Resolution {
	normalized := NormalizeModulePath(path)
	if local, ok := mc.existing[dedupKey(normalized, member)]; ok {
		return Resolution{Token: local, Strategy: StrategyExisting}
	}
	if member != "" {
		if ns, ok := mc.existing[normalized+".*"]; ok {
			return Resolution{Token: ns + "." + member, Strategy: StrategyExisting}
		}
	}
	return Resolution{Token: r.pathToken(path, member), Strategy: StrategyPath}
}

func (r *Resolver) pathToken(path, member string) string {
	token := path
	if r.opts.PathFormat == PathImport {
		token = `import("` + path + `")`
	}
	if member != "" {
		token += "." + member
	}
	return token
}

func (r *Resolver) declaration(alias, path, member string) string {
	if r.opts.Syntax == SyntaxESM {
		if member == "" {
			return fmt.Sprintf("import %s from '%s';", alias, path)
		}
		return fmt.Sprintf("import {%s as %s} from '%s';", member, alias, path)
	}
	if member == "" {
		return fmt.Sprintf("const %s = require('%s');", alias, path)
	}
	return fmt.Sprintf("const %s = require('%s').%s;", alias, path, member)
}

// RelativePath computes the path from the current file to ref's module.
//
// upLevels is the depth of the current module identity; the result climbs
// upLevels-1 directories, or starts with "./" when that is zero.
//
// Example:
//
//	RelativePath(ParseReference("module:module1/Bar"), 2) // "../module1/Bar"
//	RelativePath(ParseReference("module:module1/Bar"), 3) // "../../module1/Bar"
func RelativePath(ref TypeReference, upLevels int) string {
	var b strings.Builder
	if upLevels <= 1 {
		b.WriteString("./")
	}
	for i := 1; i < upLevels; i++ {
		b.WriteString("../")
	}
	b.WriteString(ref.ModulePath)
	return b.String()
}

// AliasFor builds the flattened local alias for a reference.
//
// Without a symbol, path segments are joined with "$" (module1$Bar). With a
// symbol, segments and symbol parts are joined with "_" (module1_Bar_Bar,
// _types_foo). Bytes that cannot appear in an identifier become "_".
func AliasFor(ref TypeReference) string {
	dirs := ref.Dirs()
	var alias string
	if ref.HasSymbol {
		symbol := strings.NewReplacer(".", "_", "~", "_").Replace(ref.SymbolPath)
		alias = strings.Join(dirs, "_") + "_" + ref.Name() + "_" + symbol
	} else {
		alias = strings.Join(dirs, "$") + "$" + ref.Name()
	}
	return sanitizeIdentifier(alias)
}

func sanitizeIdentifier(s string) string {
	b := []byte(s)
	for i, c := range b {
		if !isIdentifierByte(c) {
			b[i] = '_'
		}
	}
	if len(b) > 0 && b[0] >= '0' && b[0] <= '9' {
		return "_" + string(b)
	}
	return string(b)
}

func isIdentifierByte(c byte) bool {
	return (c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z') || (c >= '0' && c <= '9') || c == '_' || c == '$'
}

// NormalizeModulePath strips a JavaScript file extension so that
// "../a/B.js" and "../a/B" compare equal.
func NormalizeModulePath(path string) string {
	for _, ext := range []string{".js", ".mjs", ".cjs"} {
		if strings.HasSuffix(path, ext) {
			return strings.TrimSuffix(path, ext)
		}
	}
	return path
}

func dedupKey(path, member string) string {
	if member == "" {
		return path
	}
	return path + "." + member
}
