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

// Package depgraph builds and queries the cross-file symbol dependency
// graph: typed edges between symbols (calls, references, implements,
// extends, child-of, imports), assembled in two passes over parsed source
// units, plus the pure graph analyses (dependents, dependencies, SCCs,
// GraphViz export) that sit on top of it.
package depgraph

import "github.com/kotadb/kotadb/pkg/symbols"

// EdgeKind classifies a dependency edge.
type EdgeKind uint8

const (
	EdgeCalls EdgeKind = iota
	EdgeReferences
	EdgeImplements
	EdgeExtends
	EdgeChildOf
	EdgeImports
	EdgeCustom
)

func (k EdgeKind) String() string {
	switch k {
	case EdgeCalls:
		return "calls"
	case EdgeReferences:
		return "references"
	case EdgeImplements:
		return "implements"
	case EdgeExtends:
		return "extends"
	case EdgeChildOf:
		return "child_of"
	case EdgeImports:
		return "imports"
	default:
		return "custom"
	}
}

// RefKind classifies a source reference discovered in a file's AST/text,
// before it is resolved to an Edge.
type RefKind uint8

const (
	RefFunctionCall RefKind = iota
	RefMethodCall
	RefTypeUsage
	RefFieldAccess
	RefMacroInvocation
	RefTraitImpl
)

// edgeKindForRef maps a raw reference kind to the dependency edge kind it
// produces once resolved.
func edgeKindForRef(k RefKind) EdgeKind {
	switch k {
	case RefTraitImpl:
		return EdgeImplements
	case RefFunctionCall, RefMethodCall:
		return EdgeCalls
	default:
		return EdgeReferences
	}
}

// Node is one symbol vertex in the graph.
type Node struct {
	SymbolID      symbols.ID
	Name          string
	QualifiedName string
	FilePath      string
	Kind          symbols.Kind
	LineStart     uint32
	LineEnd       uint32
}

// Edge is a directed, typed relationship between two symbols.
type Edge struct {
	From  symbols.ID
	To    symbols.ID
	Kind  EdgeKind
	Label string // only meaningful when Kind == EdgeCustom
	Line  uint32
}

// Import describes one file-level import statement.
type Import struct {
	Path     string   // resolved module/package path
	Items    []string // named imports, e.g. `use foo::{a, b}`
	Alias    string   // import alias, if any
	Wildcard bool     // `use foo::*`
	Line     uint32
}

// Reference is one unresolved name usage discovered in a file, to be
// resolved to a target symbol during graph assembly.
type Reference struct {
	Name   string
	Kind   RefKind
	Line   uint32
	Column uint32
	Text   string
}

// SymbolDef is one symbol definition within a FileUnit, prior to being
// turned into a graph Node (FilePath is filled in from the owning unit).
type SymbolDef struct {
	ID            symbols.ID
	Name          string
	QualifiedName string
	Kind          symbols.Kind
	LineStart     uint32
	LineEnd       uint32
}

// FileUnit is everything the graph assembler needs about one parsed
// source file: its symbol definitions, the references found in its body,
// and its import statements.
type FileUnit struct {
	Path       string
	Symbols    []SymbolDef
	References []Reference
	Imports    []Import
}

// Stats summarizes a Graph's size.
type Stats struct {
	NodeCount int `json:"node_count"`
	EdgeCount int `json:"edge_count"`
}

// Graph is the assembled dependency graph: nodes keyed by symbol ID, a
// flat edge list, and the name index used for reference resolution.
type Graph struct {
	Nodes        map[symbols.ID]*Node
	Edges        []Edge
	NameToSymbol map[string]symbols.ID
	FileImports  map[string][]Import
	Stats        Stats

	outAdj map[symbols.ID][]int
	inAdj  map[symbols.ID][]int
}

// newGraph returns an empty, ready-to-populate Graph.
func newGraph() *Graph {
	return &Graph{
		Nodes:        make(map[symbols.ID]*Node),
		NameToSymbol: make(map[string]symbols.ID),
		FileImports:  make(map[string][]Import),
		outAdj:       make(map[symbols.ID][]int),
		inAdj:        make(map[symbols.ID][]int),
	}
}

// rebuildAdjacency recomputes outAdj/inAdj from Edges — used both right
// after assembly and after deserializing a persisted graph.
func (g *Graph) rebuildAdjacency() {
	g.outAdj = make(map[symbols.ID][]int, len(g.Nodes))
	g.inAdj = make(map[symbols.ID][]int, len(g.Nodes))
	for i, e := range g.Edges {
		g.outAdj[e.From] = append(g.outAdj[e.From], i)
		g.inAdj[e.To] = append(g.inAdj[e.To], i)
	}
}

// OutEdges returns the edges leaving id (its dependencies).
func (g *Graph) OutEdges(id symbols.ID) []Edge {
	idxs := g.outAdj[id]
	out := make([]Edge, len(idxs))
	for i, idx := range idxs {
		out[i] = g.Edges[idx]
	}
	return out
}

// InEdges returns the edges arriving at id (its dependents).
func (g *Graph) InEdges(id symbols.ID) []Edge {
	idxs := g.inAdj[id]
	out := make([]Edge, len(idxs))
	for i, idx := range idxs {
		out[i] = g.Edges[idx]
	}
	return out
}
