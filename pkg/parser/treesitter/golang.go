// Copyright 2025 KrakLabs
//
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published
// by the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
//
// This program is distributed in the hope that it will be useful,
// but WITHOUT ANY WARRANTY; without even the implied warranty of
// MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE. See the
// GNU Affero General Public License for more details.
//
// You should have received a copy of the GNU Affero General Public License
// along with this program. If not, see <https://www.gnu.org/licenses/>.
//
// For commercial licensing, contact: licensing@kraklabs.com
//
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package treesitter implements parser.Capability for Go using
// go-tree-sitter's bundled grammar. It extracts function and method
// declarations, struct/interface type declarations, import specs, and
// call-expression references, leaving cross-reference *resolution* to
// depgraph.Build — unlike a single-language extractor, this parser only
// reports what it sees in one file; the graph assembler's two-pass name
// resolution (imports, stdlib shortcuts, qualified-name fallback) is what
// turns a bare reference into an edge.
package treesitter

import (
	"context"
	"fmt"
	"strings"
	"sync"

	sitter "github.com/smacker/go-tree-sitter"
	"github.com/smacker/go-tree-sitter/golang"

	"github.com/kotadb/kotadb/pkg/depgraph"
	"github.com/kotadb/kotadb/pkg/sigparse"
	"github.com/kotadb/kotadb/pkg/symbols"
)

// GoParser parses Go source with tree-sitter. The underlying sitter.Parser
// is not safe for concurrent use, so instances are pooled per call.
type GoParser struct {
	pool sync.Pool
}

// NewGo returns a ready-to-use Go parser.
func NewGo() *GoParser {
	return &GoParser{
		pool: sync.Pool{
			New: func() any {
				p := sitter.NewParser()
				p.SetLanguage(golang.GetLanguage())
				return p
			},
		},
	}
}

// Parse implements parser.Capability.
func (g *GoParser) Parse(ctx context.Context, path string, content []byte) (depgraph.FileUnit, error) {
	raw := g.pool.Get()
	sp, ok := raw.(*sitter.Parser)
	if !ok {
		return depgraph.FileUnit{}, fmt.Errorf("treesitter: unexpected pooled parser type")
	}
	defer g.pool.Put(sp)

	tree, err := sp.ParseCtx(ctx, nil, content)
	if err != nil {
		return depgraph.FileUnit{}, fmt.Errorf("treesitter: parse %s: %w", path, err)
	}
	defer tree.Close()

	root := tree.RootNode()
	unit := depgraph.FileUnit{Path: path}

	w := &goWalker{content: content, path: path}
	w.walkTop(root, &unit)

	return unit, nil
}

type goWalker struct {
	content []byte
	path    string
}

// walkTop handles the file's top-level declarations: imports, then
// functions/methods/types, each of which contributes a SymbolDef and
// recurses into its body for references.
func (w *goWalker) walkTop(root *sitter.Node, unit *depgraph.FileUnit) {
	if root == nil {
		return
	}
	for i := 0; i < int(root.ChildCount()); i++ {
		child := root.Child(i)
		switch child.Type() {
		case "import_declaration":
			unit.Imports = append(unit.Imports, w.imports(child)...)
		case "function_declaration":
			w.declareFunc(child, unit, false)
		case "method_declaration":
			w.declareFunc(child, unit, true)
		case "type_declaration":
			w.declareTypes(child, unit)
		}
	}
}

func (w *goWalker) text(n *sitter.Node) string {
	if n == nil {
		return ""
	}
	return string(w.content[n.StartByte():n.EndByte()])
}

func (w *goWalker) line(n *sitter.Node) uint32   { return uint32(n.StartPoint().Row) + 1 }
func (w *goWalker) endLine(n *sitter.Node) uint32 { return uint32(n.EndPoint().Row) + 1 }
func (w *goWalker) col(n *sitter.Node) uint32    { return uint32(n.StartPoint().Column) + 1 }

func (w *goWalker) imports(node *sitter.Node) []depgraph.Import {
	var out []depgraph.Import
	var specs []*sitter.Node
	for i := 0; i < int(node.ChildCount()); i++ {
		child := node.Child(i)
		switch child.Type() {
		case "import_spec":
			specs = append(specs, child)
		case "import_spec_list":
			for j := 0; j < int(child.ChildCount()); j++ {
				if spec := child.Child(j); spec.Type() == "import_spec" {
					specs = append(specs, spec)
				}
			}
		}
	}
	for _, spec := range specs {
		pathNode := spec.ChildByFieldName("path")
		if pathNode == nil {
			continue
		}
		importPath := strings.Trim(w.text(pathNode), `"`)
		imp := depgraph.Import{Path: importPath, Line: w.line(spec)}
		if nameNode := spec.ChildByFieldName("name"); nameNode != nil {
			switch nameNode.Type() {
			case "dot":
				imp.Wildcard = true
			case "blank_identifier":
				// side-effect-only import, no referenceable name
			default:
				imp.Alias = w.text(nameNode)
			}
		}
		out = append(out, imp)
	}
	return out
}

// declareFunc records a function or method declaration as a SymbolDef and
// walks its body for call-expression references.
func (w *goWalker) declareFunc(node *sitter.Node, unit *depgraph.FileUnit, isMethod bool) {
	nameNode := node.ChildByFieldName("name")
	if nameNode == nil {
		return
	}
	name := w.text(nameNode)
	kind := symbols.Function
	qualified := w.path + "::" + name
	if isMethod {
		kind = symbols.Method
		if recv := node.ChildByFieldName("receiver"); recv != nil {
			if recvType := receiverTypeName(recv, w.content); recvType != "" {
				qualified = w.path + "::" + recvType + "." + name
			}
		}
	}

	id := symbols.NewID()
	unit.Symbols = append(unit.Symbols, depgraph.SymbolDef{
		ID:            id,
		Name:          name,
		QualifiedName: qualified,
		Kind:          kind,
		LineStart:     w.line(node),
		LineEnd:       w.endLine(node),
	})

	body := node.ChildByFieldName("body")
	if body == nil {
		return
	}
	w.walkCalls(body, unit)
}

// declareTypes records every struct/interface/type-alias spec in a
// `type (...)` block or a bare `type Foo struct{}` declaration.
func (w *goWalker) declareTypes(node *sitter.Node, unit *depgraph.FileUnit) {
	for i := 0; i < int(node.ChildCount()); i++ {
		child := node.Child(i)
		if child.Type() != "type_spec" {
			continue
		}
		nameNode := child.ChildByFieldName("name")
		if nameNode == nil {
			continue
		}
		name := w.text(nameNode)
		kind := symbols.Type
		if typeNode := child.ChildByFieldName("type"); typeNode != nil {
			switch typeNode.Type() {
			case "struct_type":
				kind = symbols.Struct
			case "interface_type":
				kind = symbols.Interface
			}
		}
		unit.Symbols = append(unit.Symbols, depgraph.SymbolDef{
			ID:            symbols.NewID(),
			Name:          name,
			QualifiedName: w.path + "::" + name,
			Kind:          kind,
			LineStart:     w.line(node),
			LineEnd:       w.endLine(node),
		})
	}
}

// walkCalls recurses through a function body collecting call_expression
// references. Selector calls (pkg.Foo(), recv.Method()) report the field
// name as Name and the full selector text as Text, so depgraph's
// import-aware resolution can use whichever form matches.
func (w *goWalker) walkCalls(node *sitter.Node, unit *depgraph.FileUnit) {
	if node == nil {
		return
	}
	if node.Type() == "call_expression" {
		if fn := node.ChildByFieldName("function"); fn != nil {
			if ref, ok := w.callReference(fn); ok {
				unit.References = append(unit.References, ref)
			}
		}
	}
	for i := 0; i < int(node.ChildCount()); i++ {
		w.walkCalls(node.Child(i), unit)
	}
}

func (w *goWalker) callReference(fn *sitter.Node) (depgraph.Reference, bool) {
	switch fn.Type() {
	case "identifier":
		name := w.text(fn)
		return depgraph.Reference{Name: name, Kind: depgraph.RefFunctionCall, Line: w.line(fn), Column: w.col(fn), Text: name}, true
	case "selector_expression":
		full := w.text(fn)
		field := fn.ChildByFieldName("field")
		name := w.text(field)
		if name == "" {
			name = full
		}
		return depgraph.Reference{Name: name, Kind: depgraph.RefMethodCall, Line: w.line(fn), Column: w.col(fn), Text: full}, true
	case "index_expression":
		if operand := fn.ChildByFieldName("operand"); operand != nil {
			return w.callReference(operand)
		}
	}
	return depgraph.Reference{}, false
}

// receiverTypeName extracts "Foo" from a receiver parameter list of shape
// `(s *Foo)` or `(s Foo)`, delegating pointer/qualifier stripping to
// sigparse.NormalizeType rather than a one-case TrimPrefix. Type
// parameters are cut off first, so a generic receiver `(s *Foo[T])` also
// normalizes to its base name "Foo".
func receiverTypeName(receiver *sitter.Node, content []byte) string {
	for i := 0; i < int(receiver.ChildCount()); i++ {
		child := receiver.Child(i)
		if child.Type() != "parameter_declaration" {
			continue
		}
		typeNode := child.ChildByFieldName("type")
		if typeNode == nil {
			continue
		}
		text := string(content[typeNode.StartByte():typeNode.EndByte()])
		if i := strings.Index(text, "["); i >= 0 {
			text = text[:i]
		}
		return sigparse.NormalizeType(text)
	}
	return ""
}
