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

// JavaScript Tree-sitter Node Types
//
// The host walks the tree directly rather than through tree-sitter queries.
// Only the node types needed to find documentation comments, import
// bindings and default exports are listed.
//
// Reference: https://github.com/tree-sitter/tree-sitter-javascript
const (
	jsNodeProgram = "program"
	jsNodeComment = "comment"

	// Imports
	jsNodeImportStatement = "import_statement"
	jsNodeImportClause    = "import_clause"
	jsNodeNamespaceImport = "namespace_import"
	jsNodeNamedImports    = "named_imports"
	jsNodeImportSpecifier = "import_specifier"
	jsNodeString          = "string"
	jsNodeStringFragment  = "string_fragment"

	// CommonJS
	jsNodeLexicalDeclaration  = "lexical_declaration"
	jsNodeVariableDeclaration = "variable_declaration"
	jsNodeVariableDeclarator  = "variable_declarator"
	jsNodeObjectPattern       = "object_pattern"
	jsNodeShorthandPattern    = "shorthand_property_identifier_pattern"
	jsNodePairPattern         = "pair_pattern"
	jsNodeCallExpression      = "call_expression"
	jsNodeMemberExpression    = "member_expression"
	jsNodeArguments           = "arguments"
	jsNodeExpressionStatement = "expression_statement"
	jsNodeAssignment          = "assignment_expression"

	// Exports
	jsNodeExportStatement = "export_statement"
	jsNodeDefault         = "default"

	jsNodeIdentifier         = "identifier"
	jsNodePropertyIdentifier = "property_identifier"
)

// JavaScript AST Structure Reference
//
// program
// ├── comment                              // "/** ... */" between statements
// ├── import_statement
// │   ├── import_clause
// │   │   ├── identifier                   // import X from
// │   │   ├── namespace_import             // import * as ns from
// │   │   │   └── identifier
// │   │   └── named_imports
// │   │       └── import_specifier+
// │   │           ├── identifier           // imported name
// │   │           └── identifier?          // local alias
// │   └── string
// │       └── string_fragment
// ├── lexical_declaration
// │   └── variable_declarator
// │       ├── identifier | object_pattern  // name
// │       └── call_expression              // require('p')
// │           | member_expression          // require('p').m
// ├── export_statement
// │   ├── default?
// │   └── identifier | class_declaration | function_declaration
// └── expression_statement
//     └── assignment_expression            // module.exports = X
