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

// Package parser declares the narrow capability the core consumes to turn
// source bytes into symbols and references: source bytes in, a
// depgraph.FileUnit out. The core never imports a concrete grammar; it only
// depends on this interface, so swapping or adding a language binding never
// touches ingestion, the symbol writer, or graph assembly.
//
// pkg/parser/treesitter is one concrete implementation, backed by
// go-tree-sitter's Go grammar. Other languages plug in the same way without
// changing this interface.
package parser

import (
	"context"

	"github.com/kotadb/kotadb/pkg/depgraph"
	"github.com/kotadb/kotadb/pkg/symbols"
)

// Capability turns one file's source bytes into its symbol definitions,
// references, and imports. Implementations must be safe for concurrent use
// by multiple goroutines parsing different files.
type Capability interface {
	Parse(ctx context.Context, path string, content []byte) (depgraph.FileUnit, error)
}

// Registry dispatches to a Capability by file extension (including the
// leading dot, lowercased), letting an ingestion pipeline support several
// languages behind one value.
type Registry struct {
	byExt map[string]Capability
}

// NewRegistry returns an empty Registry.
func NewRegistry() *Registry {
	return &Registry{byExt: make(map[string]Capability)}
}

// Register associates ext (e.g. ".go") with a Capability.
func (r *Registry) Register(ext string, c Capability) {
	r.byExt[ext] = c
}

// For returns the Capability registered for ext, or nil if none.
func (r *Registry) For(ext string) Capability {
	return r.byExt[ext]
}

// Extensions returns every extension with a registered Capability.
func (r *Registry) Extensions() []string {
	out := make([]string, 0, len(r.byExt))
	for ext := range r.byExt {
		out = append(out, ext)
	}
	return out
}

// SymbolsFromUnit projects a parsed FileUnit's symbol definitions into the
// binary symbol table's record shape, so an ingestion pipeline can feed the
// same parse result to both symbols.Writer and depgraph.Build without
// parsing twice.
func SymbolsFromUnit(unit depgraph.FileUnit) []symbols.Symbol {
	out := make([]symbols.Symbol, len(unit.Symbols))
	for i, s := range unit.Symbols {
		out[i] = symbols.Symbol{
			ID:        s.ID,
			Kind:      s.Kind,
			LineStart: s.LineStart,
			LineEnd:   s.LineEnd,
			Name:      s.Name,
			FilePath:  unit.Path,
		}
	}
	return out
}
