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
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"strings"
	"unicode/utf8"

	sitter "github.com/smacker/go-tree-sitter"
	"github.com/smacker/go-tree-sitter/javascript"

	"github.com/AleutianAI/jsdocclosure/services/jsdoc/doctag"
	"github.com/AleutianAI/jsdocclosure/services/jsdoc/rewrite"
)

// DefaultMaxFileSize bounds the sources the host will parse.
const DefaultMaxFileSize = 10 * 1024 * 1024

// Comment is a documentation comment located in a source file.
type Comment struct {
	// Start is the offset of "/*", End the offset just past "*/".
	Start int
	End   int

	// Line is the 0-indexed row where the comment starts.
	Line int

	// TopLevel reports whether the comment sits directly in the program
	// body, where a typedef export may be inserted after it.
	TopLevel bool
}

// Value returns the text between "/*" and "*/".
func (c Comment) Value(src []byte) string {
	return string(src[c.Start+2 : c.End-2])
}

// Source is a parsed JavaScript file.
type Source struct {
	Path    string
	Content []byte

	// Hash is the hex SHA-256 of Content.
	Hash string

	// Comments are the documentation comments in document order.
	Comments []Comment

	// Bindings maps normalized import keys to local names. Keys are the
	// module path for default imports, "path.name" for named imports and
	// "path.*" for namespace imports.
	Bindings map[string]string

	// DefaultExport is the name bound to the default export, if known.
	DefaultExport string

	// HasErrors reports whether tree-sitter recovered from syntax errors.
	HasErrors bool
}

// ContentHash returns the hex SHA-256 of content.
func ContentHash(content []byte) string {
	sum := sha256.Sum256(content)
	return hex.EncodeToString(sum[:])
}

// Parse parses JavaScript source and extracts what the rewriter needs.
//
// Description:
//
//	Validates size and encoding, parses with tree-sitter, then collects the
//	documentation comments in tree order, the file's import bindings and
//	its default export name. Syntax errors do not fail the parse; they are
//	reported through HasErrors.
//
// Inputs:
//
//	ctx - Context for cancellation. Checked before and after parsing.
//	content - Source bytes. Must be valid UTF-8.
//	path - File path, recorded on the result.
//	maxSize - Maximum accepted size; zero means DefaultMaxFileSize.
//
// Outputs:
//
//	*Source - The parsed file.
//	error - ErrFileTooLarge, ErrInvalidContent, or a context error.
//
// Thread Safety: Safe for concurrent use. Each call creates its own parser.
func Parse(ctx context.Context, content []byte, path string, maxSize int) (*Source, error) {
	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("parse canceled before start: %w", err)
	}
	if maxSize <= 0 {
		maxSize = DefaultMaxFileSize
	}
	if len(content) > maxSize {
		return nil, ErrFileTooLarge
	}
	if !utf8.Valid(content) {
		return nil, ErrInvalidContent
	}

	src := &Source{
		Path:     path,
		Content:  content,
		Hash:     ContentHash(content),
		Bindings: make(map[string]string),
	}

	parser := sitter.NewParser()
	defer parser.Close()
	parser.SetLanguage(javascript.GetLanguage())

	tree, err := parser.ParseCtx(ctx, nil, content)
	if err != nil {
		return nil, fmt.Errorf("tree-sitter parse failed: %w", err)
	}
	defer tree.Close()

	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("parse canceled after tree-sitter: %w", err)
	}

	root := tree.RootNode()
	src.HasErrors = root.HasError()
	collectComments(root, content, src)

	for i := 0; i < int(root.ChildCount()); i++ {
		child := root.Child(i)
		switch child.Type() {
		case jsNodeImportStatement:
			collectImport(child, content, src.Bindings)
		case jsNodeLexicalDeclaration, jsNodeVariableDeclaration:
			collectRequire(child, content, src.Bindings)
		case jsNodeExportStatement:
			if name := defaultExportName(child, content); name != "" {
				src.DefaultExport = name
			}
		case jsNodeExpressionStatement:
			if name := moduleExportsName(child, content); name != "" && src.DefaultExport == "" {
				src.DefaultExport = name
			}
		}
	}
	return src, nil
}

// collectComments appends every documentation comment under node in tree
// order.
func collectComments(node *sitter.Node, content []byte, src *Source) {
	for i := 0; i < int(node.ChildCount()); i++ {
		child := node.Child(i)
		if child.Type() != jsNodeComment {
			collectComments(child, content, src)
			continue
		}
		start, end := int(child.StartByte()), int(child.EndByte())
		text := content[start:end]
		if len(text) < 4 || !strings.HasPrefix(string(text), "/*") || !strings.HasSuffix(string(text), "*/") {
			continue
		}
		if !doctag.IsDocComment(string(text[2 : len(text)-2])) {
			continue
		}
		src.Comments = append(src.Comments, Comment{
			Start:    start,
			End:      end,
			Line:     int(child.StartPoint().Row),
			TopLevel: node.Type() == jsNodeProgram,
		})
	}
}

// collectImport records the bindings of an ES module import statement.
func collectImport(node *sitter.Node, content []byte, bindings map[string]string) {
	var path string
	var clause *sitter.Node
	for i := 0; i < int(node.ChildCount()); i++ {
		child := node.Child(i)
		switch child.Type() {
		case jsNodeString:
			path = stringContent(child, content)
		case jsNodeImportClause:
			clause = child
		}
	}
	if path == "" || clause == nil {
		return
	}
	key := rewrite.NormalizeModulePath(path)

	for i := 0; i < int(clause.ChildCount()); i++ {
		child := clause.Child(i)
		switch child.Type() {
		case jsNodeIdentifier:
			bindings[key] = nodeText(child, content)
		case jsNodeNamespaceImport:
			for j := 0; j < int(child.ChildCount()); j++ {
				if gc := child.Child(j); gc.Type() == jsNodeIdentifier {
					bindings[key+".*"] = nodeText(gc, content)
				}
			}
		case jsNodeNamedImports:
			for j := 0; j < int(child.ChildCount()); j++ {
				spec := child.Child(j)
				if spec.Type() != jsNodeImportSpecifier {
					continue
				}
				imported, local := specifierNames(spec, content)
				if imported == "" {
					continue
				}
				if imported == "default" {
					bindings[key] = local
					continue
				}
				bindings[key+"."+imported] = local
			}
		}
	}
}

// specifierNames returns the imported and local names of an import
// specifier. They are equal when no alias is given.
func specifierNames(spec *sitter.Node, content []byte) (string, string) {
	var names []string
	for i := 0; i < int(spec.ChildCount()); i++ {
		child := spec.Child(i)
		switch child.Type() {
		case jsNodeIdentifier, jsNodeString, jsNodeDefault:
			names = append(names, nodeText(child, content))
		}
	}
	switch len(names) {
	case 0:
		return "", ""
	case 1:
		return names[0], names[0]
	default:
		return strings.Trim(names[0], `'"`), names[len(names)-1]
	}
}

// collectRequire records CommonJS bindings:
//
//	const a = require('p');
//	const a = require('p').m;
//	const {m, n: local} = require('p');
func collectRequire(node *sitter.Node, content []byte, bindings map[string]string) {
	for i := 0; i < int(node.ChildCount()); i++ {
		decl := node.Child(i)
		if decl.Type() != jsNodeVariableDeclarator {
			continue
		}
		name := decl.ChildByFieldName("name")
		value := decl.ChildByFieldName("value")
		if name == nil || value == nil {
			continue
		}

		var path, member string
		switch value.Type() {
		case jsNodeCallExpression:
			path = requirePath(value, content)
		case jsNodeMemberExpression:
			object := value.ChildByFieldName("object")
			property := value.ChildByFieldName("property")
			if object != nil && object.Type() == jsNodeCallExpression && property != nil {
				path = requirePath(object, content)
				member = nodeText(property, content)
			}
		}
		if path == "" {
			continue
		}
		key := rewrite.NormalizeModulePath(path)
		if member != "" {
			key += "." + member
		}

		switch name.Type() {
		case jsNodeIdentifier:
			bindings[key] = nodeText(name, content)
		case jsNodeObjectPattern:
			for imported, local := range destructuredNames(name, content) {
				bindings[key+"."+imported] = local
			}
		}
	}
}

// requirePath returns the literal argument of a require() call.
func requirePath(call *sitter.Node, content []byte) string {
	fn := call.ChildByFieldName("function")
	if fn == nil || fn.Type() != jsNodeIdentifier || nodeText(fn, content) != "require" {
		return ""
	}
	args := call.ChildByFieldName("arguments")
	if args == nil {
		return ""
	}
	for i := 0; i < int(args.ChildCount()); i++ {
		if arg := args.Child(i); arg.Type() == jsNodeString {
			return stringContent(arg, content)
		}
	}
	return ""
}

// destructuredNames maps exported property names to local bindings of an
// object pattern.
func destructuredNames(pattern *sitter.Node, content []byte) map[string]string {
	names := make(map[string]string)
	for i := 0; i < int(pattern.ChildCount()); i++ {
		child := pattern.Child(i)
		switch child.Type() {
		case jsNodeShorthandPattern:
			name := nodeText(child, content)
			names[name] = name
		case jsNodePairPattern:
			key := child.ChildByFieldName("key")
			value := child.ChildByFieldName("value")
			if key != nil && value != nil && value.Type() == jsNodeIdentifier {
				names[nodeText(key, content)] = nodeText(value, content)
			}
		}
	}
	return names
}

// defaultExportName returns the name bound by "export default X",
// "export default class X" or "export default function X".
func defaultExportName(node *sitter.Node, content []byte) string {
	isDefault := false
	for i := 0; i < int(node.ChildCount()); i++ {
		child := node.Child(i)
		if child.Type() == jsNodeDefault {
			isDefault = true
			continue
		}
		if !isDefault {
			continue
		}
		if child.Type() == jsNodeIdentifier {
			return nodeText(child, content)
		}
		if name := child.ChildByFieldName("name"); name != nil {
			return nodeText(name, content)
		}
	}
	return ""
}

// moduleExportsName returns X for "module.exports = X".
func moduleExportsName(node *sitter.Node, content []byte) string {
	for i := 0; i < int(node.ChildCount()); i++ {
		child := node.Child(i)
		if child.Type() != jsNodeAssignment {
			continue
		}
		left := child.ChildByFieldName("left")
		right := child.ChildByFieldName("right")
		if left == nil || right == nil || left.Type() != jsNodeMemberExpression {
			continue
		}
		if nodeText(left, content) != "module.exports" {
			continue
		}
		if right.Type() == jsNodeIdentifier {
			return nodeText(right, content)
		}
		if name := right.ChildByFieldName("name"); name != nil {
			return nodeText(name, content)
		}
	}
	return ""
}

// stringContent returns a string literal without quotes.
func stringContent(node *sitter.Node, content []byte) string {
	for i := 0; i < int(node.ChildCount()); i++ {
		if child := node.Child(i); child.Type() == jsNodeStringFragment {
			return nodeText(child, content)
		}
	}
	text := nodeText(node, content)
	if len(text) >= 2 {
		return text[1 : len(text)-1]
	}
	return text
}

func nodeText(node *sitter.Node, content []byte) string {
	return string(content[node.StartByte():node.EndByte()])
}
