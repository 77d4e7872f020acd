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
	"fmt"
	"sort"
	"strings"

	"github.com/kotadb/kotadb/pkg/symbols"
)

// FindDependencies returns the direct, distinct targets of id's outgoing
// edges — what id depends on.
func (g *Graph) FindDependencies(id symbols.ID) []symbols.ID {
	seen := make(map[symbols.ID]struct{})
	var out []symbols.ID
	for _, e := range g.OutEdges(id) {
		if _, ok := seen[e.To]; !ok {
			seen[e.To] = struct{}{}
			out = append(out, e.To)
		}
	}
	return out
}

// FindDependents returns the direct, distinct sources of id's incoming
// edges — what depends on id.
func (g *Graph) FindDependents(id symbols.ID) []symbols.ID {
	seen := make(map[symbols.ID]struct{})
	var out []symbols.ID
	for _, e := range g.InEdges(id) {
		if _, ok := seen[e.From]; !ok {
			seen[e.From] = struct{}{}
			out = append(out, e.From)
		}
	}
	return out
}

// Reachable performs a breadth-first, depth-bounded traversal from start
// following outgoing edges (what start depends on) and returns every node
// reached within maxDepth hops, excluding start itself.
func (g *Graph) Reachable(start symbols.ID, maxDepth int) map[symbols.ID]struct{} {
	return reachableVia(start, maxDepth, g.FindDependencies)
}

// ReachableDependents performs the same bounded BFS as Reachable but
// follows incoming edges (what depends on start) instead — the direction
// impact analysis needs: who is affected if start changes.
func (g *Graph) ReachableDependents(start symbols.ID, maxDepth int) map[symbols.ID]struct{} {
	return reachableVia(start, maxDepth, g.FindDependents)
}

// reachableVia runs the shared bounded-BFS shape for Reachable and
// ReachableDependents, differing only in which edge direction neighbors
// walks. A node is marked visited as soon as it is discovered (not when
// dequeued), so maxDepth hops reaches exactly the nodes at distance
// 1..maxDepth from start.
func reachableVia(start symbols.ID, maxDepth int, neighbors func(symbols.ID) []symbols.ID) map[symbols.ID]struct{} {
	visited := map[symbols.ID]struct{}{start: {}}
	currentLevel := []symbols.ID{start}

	for depth := 0; depth < maxDepth && len(currentLevel) > 0; depth++ {
		var nextLevel []symbols.ID
		for _, node := range currentLevel {
			for _, neighbor := range neighbors(node) {
				if _, ok := visited[neighbor]; !ok {
					visited[neighbor] = struct{}{}
					nextLevel = append(nextLevel, neighbor)
				}
			}
		}
		currentLevel = nextLevel
	}

	delete(visited, start)
	return visited
}

// HasCycle reports whether the graph contains any directed cycle, via a
// depth-first search tracking the current recursion stack.
func (g *Graph) HasCycle() bool {
	visited := make(map[symbols.ID]struct{})
	recStack := make(map[symbols.ID]struct{})

	var dfs func(node symbols.ID) bool
	dfs = func(node symbols.ID) bool {
		visited[node] = struct{}{}
		recStack[node] = struct{}{}
		for _, next := range g.FindDependencies(node) {
			if _, ok := visited[next]; !ok {
				if dfs(next) {
					return true
				}
			} else if _, ok := recStack[next]; ok {
				return true
			}
		}
		delete(recStack, node)
		return false
	}

	for id := range g.Nodes {
		if _, ok := visited[id]; !ok {
			if dfs(id) {
				return true
			}
		}
	}
	return false
}

// FindCircularDependencies returns every strongly connected component of
// size greater than one — the cycles in the graph — found with Tarjan's
// algorithm, plus any single node that has an edge to itself.
func (g *Graph) FindCircularDependencies() [][]symbols.ID {
	t := &tarjan{
		g:       g,
		index:   make(map[symbols.ID]int),
		lowlink: make(map[symbols.ID]int),
		onStack: make(map[symbols.ID]bool),
	}
	for id := range g.Nodes {
		if _, visited := t.index[id]; !visited {
			t.strongconnect(id)
		}
	}

	var cycles [][]symbols.ID
	for _, scc := range t.sccs {
		if len(scc) > 1 {
			cycles = append(cycles, scc)
			continue
		}
		// A single-node SCC is still a cycle if it has a self-edge.
		id := scc[0]
		for _, e := range g.OutEdges(id) {
			if e.To == id {
				cycles = append(cycles, scc)
				break
			}
		}
	}
	return cycles
}

type tarjan struct {
	g       *Graph
	index   map[symbols.ID]int
	lowlink map[symbols.ID]int
	onStack map[symbols.ID]bool
	stack   []symbols.ID
	counter int
	sccs    [][]symbols.ID
}

func (t *tarjan) strongconnect(v symbols.ID) {
	t.index[v] = t.counter
	t.lowlink[v] = t.counter
	t.counter++
	t.stack = append(t.stack, v)
	t.onStack[v] = true

	for _, w := range t.g.FindDependencies(v) {
		if _, visited := t.index[w]; !visited {
			t.strongconnect(w)
			if t.lowlink[w] < t.lowlink[v] {
				t.lowlink[v] = t.lowlink[w]
			}
		} else if t.onStack[w] {
			if t.index[w] < t.lowlink[v] {
				t.lowlink[v] = t.index[w]
			}
		}
	}

	if t.lowlink[v] == t.index[v] {
		var scc []symbols.ID
		for {
			n := len(t.stack) - 1
			w := t.stack[n]
			t.stack = t.stack[:n]
			t.onStack[w] = false
			scc = append(scc, w)
			if w == v {
				break
			}
		}
		t.sccs = append(t.sccs, scc)
	}
}

// PageRank computes a PageRank score for every node using the standard
// damped power-iteration formula.
func (g *Graph) PageRank(dampingFactor float64, iterations int) map[symbols.ID]float64 {
	n := float64(len(g.Nodes))
	if n == 0 {
		return map[symbols.ID]float64{}
	}

	scores := make(map[symbols.ID]float64, len(g.Nodes))
	for id := range g.Nodes {
		scores[id] = 1.0 / n
	}

	for iter := 0; iter < iterations; iter++ {
		newScores := make(map[symbols.ID]float64, len(g.Nodes))
		for id := range g.Nodes {
			score := (1.0 - dampingFactor) / n
			for _, e := range g.InEdges(id) {
				outDegree := float64(len(g.OutEdges(e.From)))
				if outDegree > 0 {
					score += dampingFactor * scores[e.From] / outDegree
				}
			}
			newScores[id] = score
		}
		scores = newScores
	}
	return scores
}

// ToDot renders the graph as GraphViz DOT source, with nodes labeled by
// their simple name and edges labeled by their kind.
func (g *Graph) ToDot() string {
	ids := make([]symbols.ID, 0, len(g.Nodes))
	for id := range g.Nodes {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i].Compare(ids[j]) < 0 })

	var b strings.Builder
	b.WriteString("digraph dependencies {\n")
	for _, id := range ids {
		node := g.Nodes[id]
		fmt.Fprintf(&b, "  %q [label=%q];\n", id.String(), node.Name)
	}
	for _, e := range g.Edges {
		fmt.Fprintf(&b, "  %q -> %q [label=%q];\n", e.From.String(), e.To.String(), e.Kind.String())
	}
	b.WriteString("}\n")
	return b.String()
}
