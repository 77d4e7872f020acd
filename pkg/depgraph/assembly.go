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

package depgraph

import (
	"sort"
	"strings"

	"github.com/kotadb/kotadb/pkg/symbols"
)

// stdlibShortcuts maps bare common names to a synthetic standard-library
// node name, used as the third name-resolution fallback. This table is a
// small, language-agnostic stand-in: a generic dependency graph has no
// single host language, so unlike a single-language extractor it cannot
// ship an exhaustive per-language stdlib table. Unmatched names simply
// fall through to the next step rather than resolving here.
var stdlibShortcuts = map[string]string{
	"print":   "stdlib::print",
	"println": "stdlib::println",
	"len":     "stdlib::len",
	"string":  "stdlib::string",
	"error":   "stdlib::error",
}

// lineSpan indexes the symbols defined in one file by the lines they span,
// letting assembly locate the smallest enclosing symbol for a reference.
type lineSpan struct {
	start, end uint32
	id         symbols.ID
}

// Build assembles a Graph from parsed file units in two passes: first every
// symbol becomes a node and populates the name index, then every reference
// is resolved against that index and turned into an edge.
func Build(units []FileUnit) (*Graph, error) {
	g := newGraph()

	// Pass 1: nodes + name index.
	fileSpans := make(map[string][]lineSpan, len(units))
	qualifiedKeys := make(map[string]bool)
	for _, u := range units {
		spans := make([]lineSpan, 0, len(u.Symbols))
		for _, s := range u.Symbols {
			node := &Node{
				SymbolID:      s.ID,
				Name:          s.Name,
				QualifiedName: s.QualifiedName,
				FilePath:      u.Path,
				Kind:          s.Kind,
				LineStart:     s.LineStart,
				LineEnd:       s.LineEnd,
			}
			g.Nodes[s.ID] = node
			if s.QualifiedName != "" {
				g.NameToSymbol[s.QualifiedName] = s.ID
				qualifiedKeys[s.QualifiedName] = true
			}
			if s.Name != "" && !qualifiedKeys[s.Name] {
				// Simple-name collisions: last writer wins, but a key that
				// is some symbol's qualified name is never overwritten by a
				// simple name, so qualified matches take priority.
				g.NameToSymbol[s.Name] = s.ID
			}
			spans = append(spans, lineSpan{start: s.LineStart, end: s.LineEnd, id: s.ID})
		}
		sort.Slice(spans, func(i, j int) bool {
			if spans[i].start != spans[j].start {
				return spans[i].start < spans[j].start
			}
			return spans[i].end < spans[j].end
		})
		fileSpans[u.Path] = spans
		g.FileImports[u.Path] = u.Imports
	}

	// Pass 2: resolve references into edges.
	for _, u := range units {
		spans := fileSpans[u.Path]
		for _, ref := range u.References {
			source, ok := enclosingSymbol(spans, ref.Line)
			if !ok {
				continue
			}
			target, ok := resolveName(g, u.Imports, ref.Name)
			if !ok {
				continue
			}
			if target == source {
				continue // self-edges are silently dropped
			}
			g.Edges = append(g.Edges, Edge{
				From: source,
				To:   target,
				Kind: edgeKindForRef(ref.Kind),
				Line: ref.Line,
			})
		}
	}

	g.rebuildAdjacency()
	g.Stats = Stats{NodeCount: len(g.Nodes), EdgeCount: len(g.Edges)}
	return g, nil
}

// enclosingSymbol finds the smallest span in spans (pre-sorted by start
// line) that contains line, per the "smallest enclosing symbol" rule.
func enclosingSymbol(spans []lineSpan, line uint32) (symbols.ID, bool) {
	var best *lineSpan
	for i := range spans {
		s := &spans[i]
		if s.start > line {
			break
		}
		if line > s.end {
			continue
		}
		if best == nil || (s.end-s.start) < (best.end-best.start) {
			best = s
		}
	}
	if best == nil {
		return symbols.ID{}, false
	}
	return best.id, true
}

// resolveName implements the ordered fallback chain from the dependency
// graph's name-resolution rules: exact match, then import-aware forms,
// then the stdlib shortcut table, then failure.
func resolveName(g *Graph, imports []Import, name string) (symbols.ID, bool) {
	if id, ok := g.NameToSymbol[name]; ok {
		return id, true
	}

	for _, imp := range imports {
		if imp.Wildcard {
			base := strings.TrimSuffix(imp.Path, "::*")
			base = strings.TrimSuffix(base, "*")
			if id, ok := g.NameToSymbol[joinPath(base, name)]; ok {
				return id, true
			}
		}
		if imp.Alias != "" {
			if name == imp.Alias {
				if id, ok := g.NameToSymbol[imp.Path]; ok {
					return id, true
				}
			}
			if rest, ok := strings.CutPrefix(name, imp.Alias+"::"); ok {
				if id, ok := g.NameToSymbol[joinPath(imp.Path, rest)]; ok {
					return id, true
				}
			}
		}
		for _, item := range imp.Items {
			if item == name {
				if id, ok := g.NameToSymbol[joinPath(imp.Path, name)]; ok {
					return id, true
				}
			}
		}
		if strings.Contains(name, "::") {
			if strings.HasPrefix(name, imp.Path+"::") || strings.HasPrefix(imp.Path, name+"::") {
				if id, ok := g.NameToSymbol[name]; ok {
					return id, true
				}
			}
		}
	}

	if shortcut, ok := stdlibShortcuts[name]; ok {
		if id, ok := g.NameToSymbol[shortcut]; ok {
			return id, true
		}
	}

	return symbols.ID{}, false
}

func joinPath(base, name string) string {
	base = strings.TrimSuffix(base, "::")
	if base == "" {
		return name
	}
	return base + "::" + name
}
