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

package relate

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kotadb/kotadb/pkg/depgraph"
	"github.com/kotadb/kotadb/pkg/symbols"
)

// chainGraph builds A -> B -> C -> D (A calls B, B calls C, C calls D) and
// returns an Engine opened against a directory containing both the binary
// symbol table and the serialized graph.
func chainGraph(t *testing.T) *Engine {
	t.Helper()
	dir := t.TempDir()
	idA, idB, idC, idD := symbols.NewID(), symbols.NewID(), symbols.NewID(), symbols.NewID()
	writeSymbolTable(t, dir,
		symbols.Symbol{ID: idA, Kind: symbols.Function, LineStart: 1, LineEnd: 5, Name: "A", FilePath: "src/a.rs"},
		symbols.Symbol{ID: idB, Kind: symbols.Function, LineStart: 1, LineEnd: 5, Name: "B", FilePath: "src/b.rs"},
		symbols.Symbol{ID: idC, Kind: symbols.Function, LineStart: 1, LineEnd: 5, Name: "C", FilePath: "src/c.rs"},
		symbols.Symbol{ID: idD, Kind: symbols.Function, LineStart: 1, LineEnd: 5, Name: "D", FilePath: "src/d.rs"},
	)
	units := []depgraph.FileUnit{
		{Path: "src/a.rs", Symbols: []depgraph.SymbolDef{{ID: idA, Name: "A", Kind: symbols.Function, LineStart: 1, LineEnd: 5}},
			References: []depgraph.Reference{{Name: "B", Kind: depgraph.RefFunctionCall, Line: 2}}},
		{Path: "src/b.rs", Symbols: []depgraph.SymbolDef{{ID: idB, Name: "B", Kind: symbols.Function, LineStart: 1, LineEnd: 5}},
			References: []depgraph.Reference{{Name: "C", Kind: depgraph.RefFunctionCall, Line: 2}}},
		{Path: "src/c.rs", Symbols: []depgraph.SymbolDef{{ID: idC, Name: "C", Kind: symbols.Function, LineStart: 1, LineEnd: 5}},
			References: []depgraph.Reference{{Name: "D", Kind: depgraph.RefFunctionCall, Line: 2}}},
		{Path: "src/d.rs", Symbols: []depgraph.SymbolDef{{ID: idD, Name: "D", Kind: symbols.Function, LineStart: 1, LineEnd: 5}}},
	}
	g, err := depgraph.Build(units)
	require.NoError(t, err)
	require.NoError(t, g.WriteTo(filepath.Join(dir, "dependency_graph.bin")))

	engine, err := Open(dir)
	require.NoError(t, err)
	return engine
}

// TestTracePathDirectChainsCallChain covers the no-waypoint case: tracing
// from A to D with no intermediate stops degrades to a single CallChain
// call and returns the full A->B->C->D path.
func TestTracePathDirectChainsCallChain(t *testing.T) {
	engine := chainGraph(t)

	result, err := engine.TracePath(context.Background(), TracePathQuery{From: "A", To: "D", MaxDepth: -1})
	require.NoError(t, err)

	names := make([]string, len(result.DirectRelationships))
	for i, m := range result.DirectRelationships {
		names[i] = m.SymbolName
	}
	assert.Equal(t, []string{"A", "B", "C", "D"}, names)
	assert.Equal(t, len(result.DirectRelationships), result.Stats.DirectCount)
}

// TestTracePathWithWaypointConcatenatesSegmentsWithoutDuplicateJunction
// traces A -> D via waypoints B and C, checking that the junction stops
// aren't duplicated across the three segments.
func TestTracePathWithWaypointConcatenatesSegmentsWithoutDuplicateJunction(t *testing.T) {
	engine := chainGraph(t)

	result, err := engine.TracePath(context.Background(), TracePathQuery{
		From: "A", To: "D", Waypoints: []string{"B", "C"}, MaxDepth: -1,
	})
	require.NoError(t, err)

	names := make([]string, len(result.DirectRelationships))
	for i, m := range result.DirectRelationships {
		names[i] = m.SymbolName
	}
	assert.Equal(t, []string{"A", "B", "C", "D"}, names)
}

// TestTracePathBrokenSegmentFailsWholeTrace covers the no-partial-path
// contract: if any consecutive stop pair has no chain between them, the
// whole trace errors rather than returning a path with a gap.
func TestTracePathBrokenSegmentFailsWholeTrace(t *testing.T) {
	engine := chainGraph(t)

	_, err := engine.TracePath(context.Background(), TracePathQuery{From: "D", To: "A", MaxDepth: -1})
	assert.Error(t, err)
}

// TestTracePathRequiresAtLeastTwoStops covers the degenerate call with only
// a From and no To.
func TestTracePathRequiresAtLeastTwoStops(t *testing.T) {
	engine := chainGraph(t)

	_, err := engine.TracePath(context.Background(), TracePathQuery{From: "A"})
	assert.Error(t, err)
}
