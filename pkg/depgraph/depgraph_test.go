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
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kotadb/kotadb/pkg/symbols"
)

func TestBuildCreatesEdgeForDirectCall(t *testing.T) {
	mainID := symbols.NewID()
	fileStorageID := symbols.NewID()

	units := []FileUnit{
		{
			Path: "src/main.rs",
			Symbols: []SymbolDef{
				{ID: mainID, Name: "main", QualifiedName: "main", Kind: symbols.Function, LineStart: 40, LineEnd: 60},
			},
			References: []Reference{
				{Name: "FileStorage", Kind: RefFunctionCall, Line: 50},
			},
		},
		{
			Path: "src/file_storage.rs",
			Symbols: []SymbolDef{
				{ID: fileStorageID, Name: "FileStorage", QualifiedName: "FileStorage", Kind: symbols.Struct, LineStart: 100, LineEnd: 200},
			},
		},
	}

	g, err := Build(units)
	require.NoError(t, err)
	assert.Equal(t, 2, g.Stats.NodeCount)
	require.Len(t, g.Edges, 1)
	assert.Equal(t, mainID, g.Edges[0].From)
	assert.Equal(t, fileStorageID, g.Edges[0].To)
	assert.Equal(t, EdgeCalls, g.Edges[0].Kind)

	dependents := g.FindDependents(fileStorageID)
	require.Len(t, dependents, 1)
	assert.Equal(t, mainID, dependents[0])
}

func TestBuildDropsSelfEdge(t *testing.T) {
	id := symbols.NewID()
	units := []FileUnit{
		{
			Path: "src/a.rs",
			Symbols: []SymbolDef{
				{ID: id, Name: "recurse", QualifiedName: "recurse", Kind: symbols.Function, LineStart: 1, LineEnd: 10},
			},
			References: []Reference{
				{Name: "recurse", Kind: RefFunctionCall, Line: 5},
			},
		},
	}
	g, err := Build(units)
	require.NoError(t, err)
	assert.Empty(t, g.Edges)
}

func TestBuildDropsUnresolvedReference(t *testing.T) {
	id := symbols.NewID()
	units := []FileUnit{
		{
			Path: "src/a.rs",
			Symbols: []SymbolDef{
				{ID: id, Name: "caller", QualifiedName: "caller", Kind: symbols.Function, LineStart: 1, LineEnd: 10},
			},
			References: []Reference{
				{Name: "ghost_fn", Kind: RefFunctionCall, Line: 5},
			},
		},
	}
	g, err := Build(units)
	require.NoError(t, err)
	assert.Empty(t, g.Edges)
}

func TestResolveNameViaWildcardImport(t *testing.T) {
	callerID := symbols.NewID()
	targetID := symbols.NewID()
	units := []FileUnit{
		{
			Path: "src/a.rs",
			Symbols: []SymbolDef{
				{ID: callerID, Name: "caller", QualifiedName: "caller", Kind: symbols.Function, LineStart: 1, LineEnd: 20},
			},
			References: []Reference{
				{Name: "helper", Kind: RefFunctionCall, Line: 5},
			},
			Imports: []Import{
				{Path: "utils::*", Wildcard: true, Line: 1},
			},
		},
		{
			Path: "src/utils.rs",
			Symbols: []SymbolDef{
				{ID: targetID, Name: "helper", QualifiedName: "utils::helper", Kind: symbols.Function, LineStart: 1, LineEnd: 5},
			},
		},
	}
	g, err := Build(units)
	require.NoError(t, err)
	require.Len(t, g.Edges, 1)
	assert.Equal(t, targetID, g.Edges[0].To)
}

func TestEnclosingSymbolPicksSmallestSpan(t *testing.T) {
	outer := lineSpan{start: 1, end: 100, id: symbols.NewID()}
	inner := lineSpan{start: 40, end: 60, id: symbols.NewID()}
	spans := []lineSpan{inner, outer}
	// sort as Build would
	if spans[0].start > spans[1].start {
		spans[0], spans[1] = spans[1], spans[0]
	}
	id, ok := enclosingSymbol(spans, 50)
	require.True(t, ok)
	assert.Equal(t, inner.id, id)
}

func TestFindCircularDependenciesDetectsCycle(t *testing.T) {
	a, b, c := symbols.NewID(), symbols.NewID(), symbols.NewID()
	g := newGraph()
	for _, id := range []symbols.ID{a, b, c} {
		g.Nodes[id] = &Node{SymbolID: id, Name: id.String()}
	}
	g.Edges = []Edge{
		{From: a, To: b, Kind: EdgeCalls},
		{From: b, To: c, Kind: EdgeCalls},
		{From: c, To: a, Kind: EdgeCalls},
	}
	g.rebuildAdjacency()

	assert.True(t, g.HasCycle())
	cycles := g.FindCircularDependencies()
	require.Len(t, cycles, 1)
	assert.ElementsMatch(t, []symbols.ID{a, b, c}, cycles[0])
}

func TestHasCycleFalseForDAG(t *testing.T) {
	a, b, c := symbols.NewID(), symbols.NewID(), symbols.NewID()
	g := newGraph()
	for _, id := range []symbols.ID{a, b, c} {
		g.Nodes[id] = &Node{SymbolID: id}
	}
	g.Edges = []Edge{
		{From: a, To: b, Kind: EdgeCalls},
		{From: b, To: c, Kind: EdgeCalls},
	}
	g.rebuildAdjacency()
	assert.False(t, g.HasCycle())
	assert.Empty(t, g.FindCircularDependencies())
}

func TestReachableRespectsMaxDepth(t *testing.T) {
	a, b, c, d := symbols.NewID(), symbols.NewID(), symbols.NewID(), symbols.NewID()
	g := newGraph()
	for _, id := range []symbols.ID{a, b, c, d} {
		g.Nodes[id] = &Node{SymbolID: id}
	}
	g.Edges = []Edge{
		{From: a, To: b, Kind: EdgeCalls},
		{From: b, To: c, Kind: EdgeCalls},
		{From: c, To: d, Kind: EdgeCalls},
	}
	g.rebuildAdjacency()

	near := g.Reachable(a, 1)
	assert.Contains(t, near, b)
	assert.NotContains(t, near, c)

	far := g.Reachable(a, 3)
	assert.Contains(t, far, b)
	assert.Contains(t, far, c)
	assert.Contains(t, far, d)
	assert.NotContains(t, far, a)
}

func TestPageRankSumsToApproximatelyOne(t *testing.T) {
	a, b := symbols.NewID(), symbols.NewID()
	g := newGraph()
	g.Nodes[a] = &Node{SymbolID: a}
	g.Nodes[b] = &Node{SymbolID: b}
	g.Edges = []Edge{{From: a, To: b, Kind: EdgeCalls}, {From: b, To: a, Kind: EdgeCalls}}
	g.rebuildAdjacency()

	scores := g.PageRank(0.85, 20)
	total := 0.0
	for _, s := range scores {
		total += s
	}
	assert.InDelta(t, 1.0, total, 0.01)
}

func TestToDotContainsEveryNodeAndEdge(t *testing.T) {
	a, b := symbols.NewID(), symbols.NewID()
	g := newGraph()
	g.Nodes[a] = &Node{SymbolID: a, Name: "a"}
	g.Nodes[b] = &Node{SymbolID: b, Name: "b"}
	g.Edges = []Edge{{From: a, To: b, Kind: EdgeCalls}}
	g.rebuildAdjacency()

	dot := g.ToDot()
	assert.Contains(t, dot, "digraph dependencies")
	assert.Contains(t, dot, a.String())
	assert.Contains(t, dot, b.String())
	assert.Contains(t, dot, "calls")
}

func TestPersistenceRoundTrip(t *testing.T) {
	mainID := symbols.NewID()
	fileStorageID := symbols.NewID()
	units := []FileUnit{
		{
			Path: "src/main.rs",
			Symbols: []SymbolDef{
				{ID: mainID, Name: "main", QualifiedName: "main", Kind: symbols.Function, LineStart: 40, LineEnd: 60},
			},
			References: []Reference{{Name: "FileStorage", Kind: RefFunctionCall, Line: 50}},
			Imports:    []Import{{Path: "storage", Items: []string{"FileStorage"}, Line: 1}},
		},
		{
			Path: "src/storage.rs",
			Symbols: []SymbolDef{
				{ID: fileStorageID, Name: "FileStorage", QualifiedName: "storage::FileStorage", Kind: symbols.Struct, LineStart: 100, LineEnd: 200},
			},
		},
	}
	g, err := Build(units)
	require.NoError(t, err)

	path := filepath.Join(t.TempDir(), "dependency_graph.bin")
	require.NoError(t, g.WriteTo(path))

	loaded, err := ReadGraph(path)
	require.NoError(t, err)
	assert.Equal(t, g.Stats, loaded.Stats)
	assert.Len(t, loaded.Nodes, len(g.Nodes))
	assert.Len(t, loaded.Edges, len(g.Edges))
	assert.Equal(t, g.NameToSymbol, loaded.NameToSymbol)

	deps := loaded.FindDependencies(mainID)
	require.Len(t, deps, 1)
	assert.Equal(t, fileStorageID, deps[0])
}

func TestReadGraphSkipsEdgesWithUnresolvedEndpoints(t *testing.T) {
	a := symbols.NewID()
	b := symbols.NewID() // never added as a node
	g := newGraph()
	g.Nodes[a] = &Node{SymbolID: a}
	g.Edges = []Edge{{From: a, To: b, Kind: EdgeCalls}}
	g.rebuildAdjacency()

	path := filepath.Join(t.TempDir(), "dependency_graph.bin")
	require.NoError(t, g.WriteTo(path))

	loaded, err := ReadGraph(path)
	require.NoError(t, err)
	assert.Empty(t, loaded.Edges)
	assert.Equal(t, 0, loaded.Stats.EdgeCount)
}
