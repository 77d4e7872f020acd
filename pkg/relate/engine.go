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
	"fmt"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/kotadb/kotadb/internal/kerrors"
	"github.com/kotadb/kotadb/internal/lazyload"
	"github.com/kotadb/kotadb/internal/logging"
	"github.com/kotadb/kotadb/pkg/depgraph"
	"github.com/kotadb/kotadb/pkg/symbols"
)

// queryPerformanceThreshold is the latency above which a query logs a
// warning instead of succeeding silently — it still returns its result.
const queryPerformanceThreshold = 10 * time.Millisecond

const dependencyGraphFileName = "dependency_graph.bin"
const symbolTableFileName = "symbols.kota"

// Engine answers relationship queries against a binary symbol table and a
// lazily-loaded dependency graph. The graph slot is guarded by a
// reader-writer lock: readers proceed in parallel, a single-flight loader
// handles the first load (or the next load after an explicit Reload).
type Engine struct {
	dbPath           string
	extractionConfig ExtractionConfig

	symbolsMu sync.RWMutex
	symbols   *symbols.Reader // nil if symbols.kota wasn't found

	graphMu sync.RWMutex
	graph   *depgraph.Graph
	loader  lazyload.Loader[*depgraph.Graph]
	meta    cacheMetadata

	log zerolog.Logger
}

// Open constructs an Engine rooted at dbPath, eagerly loading the binary
// symbol table if present (cheap — a single sequential read) but deferring
// the dependency graph to first query.
func Open(dbPath string) (*Engine, error) {
	return OpenWithExtractionConfig(dbPath, DefaultExtractionConfig())
}

// OpenWithExtractionConfig is Open with caller-supplied extraction limits
// and eviction policy.
func OpenWithExtractionConfig(dbPath string, cfg ExtractionConfig) (*Engine, error) {
	e := &Engine{
		dbPath:           dbPath,
		extractionConfig: cfg,
		log:              logging.Component("relate.engine"),
	}

	symPath := filepath.Join(dbPath, symbolTableFileName)
	reader, err := symbols.Open(symPath)
	if err != nil {
		e.log.Debug().Str("path", symPath).Err(err).Msg("binary symbol database not found or unreadable")
	} else {
		e.symbols = reader
		e.log.Info().Int("count", reader.SymbolCount()).Msg("loaded binary symbol database")
	}

	return e, nil
}

// ensureGraphLoaded implements the §4.8 single-flight load: the first
// caller loads dependency_graph.bin (falling back to on-demand extraction
// if it's missing), subsequent concurrent callers wait for that load, and
// a prior failure is returned to every caller without retrying I/O until
// Reload is called explicitly.
func (e *Engine) ensureGraphLoaded(ctx context.Context) (*depgraph.Graph, error) {
	g, err := e.loader.Ensure(ctx, func() (*depgraph.Graph, error) {
		graphPath := filepath.Join(e.dbPath, dependencyGraphFileName)
		loaded, loadErr := depgraph.ReadGraph(graphPath)
		if loadErr != nil {
			extracted, extractErr := e.extractOnDemand(ctx)
			if extractErr != nil {
				return nil, kerrors.New(kerrors.KindExtractionFailed, "relate.ensureGraphLoaded", e.dbPath,
					"ingest the repository with relationship extraction enabled, or check file permissions", extractErr)
			}
			loaded = extracted
		}
		e.graphMu.Lock()
		e.applyEvictionPolicyLocked(loaded)
		e.graph = loaded
		e.meta.accessCount++
		e.meta.lastAccess = timeNow()
		e.graphMu.Unlock()
		return loaded, nil
	})
	return g, err
}

// Reload clears the sticky loader state, forcing the next query to reload
// or re-extract the graph from disk.
func (e *Engine) Reload() {
	e.loader.Reset()
}

// applyEvictionPolicyLocked evaluates the configured policy against the
// about-to-be-installed graph, per §4.8.2. With a single-slot cache this
// engine never *retains* a stale graph once a fresh one is ready to
// install; the policy only decides whether to log the eviction and bump
// meta.evictionCount. Caller must hold graphMu for writing.
func (e *Engine) applyEvictionPolicyLocked(fresh *depgraph.Graph) {
	policy := e.extractionConfig.EvictionPolicy
	switch policy.Mode {
	case EvictionNever:
		return
	case EvictionMemoryBased:
		estimate := uint64(fresh.Stats.NodeCount)*64 + uint64(fresh.Stats.EdgeCount)*32
		if estimate > policy.ThresholdBytes {
			e.meta.evictionCount++
			e.log.Warn().Uint64("estimated_bytes", estimate).Msg("dependency graph exceeds memory threshold, evicting previous cache")
		}
	case EvictionTimeBased:
		if !e.meta.lastAccess.IsZero() && timeNow().Sub(e.meta.lastAccess) > policy.TTL {
			e.meta.evictionCount++
		}
	case EvictionLRU:
		if policy.MaxEntries <= 1 {
			e.meta.evictionCount++
		}
	}
}

// timeNow is the engine's only source of wall-clock time, isolated so it
// can be reasoned about deterministically in tests.
func timeNow() time.Time { return time.Now() }

// symbolNameMatch pairs a hydrated symbol record with the candidate
// dependency-graph node id it resolved to.
type symbolNameMatch struct {
	sym symbols.Symbol
	id  symbols.ID
}

// findAllSymbolsByName returns every symbol in the binary reader whose
// Name equals target — there may be several across files.
func (e *Engine) findAllSymbolsByName(target string) []symbols.Symbol {
	e.symbolsMu.RLock()
	defer e.symbolsMu.RUnlock()
	if e.symbols == nil {
		return nil
	}
	var out []symbols.Symbol
	for _, s := range e.symbols.Iter() {
		if s.Name == target {
			out = append(out, s)
		}
	}
	return out
}

// resolveSymbolUUIDWithFallback implements §4.8 step 3: the graph and the
// binary symbol table may have been built at different times and thus may
// disagree on UUIDs for the same logical symbol. If the symbol's own id
// isn't a node in the graph, fall back to a name-based lookup.
func resolveSymbolUUIDWithFallback(g *depgraph.Graph, name string, id symbols.ID) (symbols.ID, bool) {
	if _, ok := g.Nodes[id]; ok {
		return id, true
	}
	suffix := "::" + name
	for candidate, symID := range g.NameToSymbol {
		if candidate == name || strings.HasSuffix(candidate, suffix) {
			return symID, true
		}
	}
	return symbols.ID{}, false
}

// resolveTarget runs findAllSymbolsByName + resolveSymbolUUIDWithFallback
// across every same-named symbol instance and returns the deduplicated set
// of ids actually present in the graph.
func (e *Engine) resolveTarget(g *depgraph.Graph, target string) ([]symbols.ID, []symbols.Symbol, error) {
	all := e.findAllSymbolsByName(target)
	if len(all) == 0 {
		return nil, nil, kerrors.New(kerrors.KindNotFound, "relate.resolveTarget", target,
			"check the symbol name spelling, or re-ingest if the file was recently added", nil)
	}

	seen := make(map[symbols.ID]struct{})
	var ids []symbols.ID
	for _, sym := range all {
		effective, ok := resolveSymbolUUIDWithFallback(g, target, sym.ID)
		if !ok {
			continue
		}
		if _, dup := seen[effective]; dup {
			continue
		}
		seen[effective] = struct{}{}
		ids = append(ids, effective)
	}
	return ids, all, nil
}

// toMatch hydrates a graph node into a user-facing Match, using the node's
// own definition line as StartLine. Use toMatchAt when a specific edge's
// call-site line should be reported instead (e.g. "calls X at line 50").
func (e *Engine) toMatch(id symbols.ID, relation depgraph.EdgeKind, context string, g *depgraph.Graph) Match {
	return e.toMatchAt(id, relation, 0, context, g)
}

// toMatchAt is toMatch with an edge-specific line override: when edgeLine is
// nonzero it replaces the node's own definition-start line, so a caller
// match reports the call site rather than where the caller itself begins.
func (e *Engine) toMatchAt(id symbols.ID, relation depgraph.EdgeKind, edgeLine uint32, context string, g *depgraph.Graph) Match {
	node, ok := g.Nodes[id]
	if !ok {
		return Match{Relation: relation, Context: context, StartLine: edgeLine}
	}
	qualified := node.QualifiedName
	if qualified == "" {
		qualified = fmt.Sprintf("%s::%s", node.FilePath, node.Name)
	}
	line := node.LineStart
	if edgeLine != 0 {
		line = edgeLine
	}
	return Match{
		SymbolName:    node.Name,
		QualifiedName: qualified,
		FilePath:      node.FilePath,
		StartLine:     line,
		Relation:      relation,
		Context:       context,
	}
}

// Execute runs query and returns its result, or a kerrors-typed error. A
// query taking longer than queryPerformanceThreshold still succeeds — it
// only logs a warning.
func (e *Engine) Execute(ctx context.Context, q Query) (Result, error) {
	start := timeNow()

	if e.symbols == nil {
		return Result{}, kerrors.New(kerrors.KindGraphUnavailable, "relate.Execute", "",
			"ingest the repository with symbol extraction enabled before running relationship queries", nil)
	}

	g, err := e.ensureGraphLoaded(ctx)
	if err != nil {
		return e.extractionFailureResult(q, err), nil
	}

	e.graphMu.RLock()
	defer e.graphMu.RUnlock()

	result, execErr := e.dispatch(ctx, q, g)
	if execErr != nil {
		return Result{}, execErr
	}

	elapsed := timeNow().Sub(start)
	result.Stats.ExecutionTimeMS = elapsed.Milliseconds()
	if elapsed > queryPerformanceThreshold {
		e.log.Warn().Dur("elapsed", elapsed).Msg("relationship query exceeded 10ms target")
	}
	return result, nil
}

func (e *Engine) dispatch(ctx context.Context, q Query, g *depgraph.Graph) (Result, error) {
	switch q.Kind {
	case FindCallers:
		return e.executeFindCallers(q, g)
	case FindCallees:
		return e.executeFindCallees(q, g)
	case ImpactAnalysis:
		return e.executeImpactAnalysis(q, g)
	case CallChain:
		return e.executeCallChain(q, g)
	case CircularDependencies:
		return e.executeCircularDependencies(q, g)
	case UnusedSymbols:
		return e.executeUnusedSymbols(q, g)
	case HotPaths:
		return e.executeHotPaths(q, g)
	case DependenciesByType:
		return e.executeDependenciesByType(q, g)
	default:
		return Result{}, kerrors.New(kerrors.KindInvalidInput, "relate.dispatch", "", "unknown query kind", nil)
	}
}

func (e *Engine) extractionFailureResult(q Query, cause error) Result {
	count := 0
	e.symbolsMu.RLock()
	if e.symbols != nil {
		count = e.symbols.SymbolCount()
	}
	e.symbolsMu.RUnlock()
	return Result{
		Query: q,
		Stats: Stats{SymbolsAnalyzed: count},
		Summary: fmt.Sprintf(
			"dependency graph unavailable (%s); symbol table still reports %d symbols", cause, count),
	}
}

func (e *Engine) executeFindCallers(q Query, g *depgraph.Graph) (Result, error) {
	ids, all, err := e.resolveTarget(g, q.Target)
	if err != nil {
		return Result{}, err
	}
	seen := make(map[symbols.ID]struct{})
	var direct []Match
	for _, id := range ids {
		for _, edge := range g.InEdges(id) {
			if _, dup := seen[edge.From]; dup {
				continue
			}
			seen[edge.From] = struct{}{}
			direct = append(direct, e.toMatchAt(edge.From, edge.Kind, edge.Line,
				fmt.Sprintf("Calls %s at line %d", q.Target, edge.Line), g))
		}
	}
	summary := fmt.Sprintf("found %d caller(s) of %q", len(direct), q.Target)
	if len(direct) == 0 {
		summary = fmt.Sprintf(
			"symbol %q found in binary storage (%d instances) but no relationships found in dependency graph",
			q.Target, len(all))
	}
	return Result{
		Query:               q,
		DirectRelationships: direct,
		Stats:               Stats{DirectCount: len(direct), SymbolsAnalyzed: e.symbolCount()},
		Summary:              summary,
	}, nil
}

func (e *Engine) executeFindCallees(q Query, g *depgraph.Graph) (Result, error) {
	ids, _, err := e.resolveTarget(g, q.Target)
	if err != nil {
		return Result{}, err
	}
	seen := make(map[symbols.ID]struct{})
	var direct []Match
	for _, id := range ids {
		for _, edge := range g.OutEdges(id) {
			if _, dup := seen[edge.To]; dup {
				continue
			}
			seen[edge.To] = struct{}{}
			direct = append(direct, e.toMatchAt(edge.To, edge.Kind, edge.Line,
				fmt.Sprintf("Called by %s at line %d", q.Target, edge.Line), g))
		}
	}
	return Result{
		Query:               q,
		DirectRelationships: direct,
		Stats:               Stats{DirectCount: len(direct), SymbolsAnalyzed: e.symbolCount()},
		Summary:              fmt.Sprintf("found %d callee(s) of %q", len(direct), q.Target),
	}, nil
}

func (e *Engine) executeImpactAnalysis(q Query, g *depgraph.Graph) (Result, error) {
	ids, _, err := e.resolveTarget(g, q.Target)
	if err != nil {
		return Result{}, err
	}
	// §8 boundary: max_depth=0 means direct callers only (1 hop), not
	// DefaultImpactDepth — only a genuinely unset (negative) depth falls
	// back to the default.
	maxDepth := q.MaxDepth
	if maxDepth < 0 {
		maxDepth = DefaultImpactDepth
	} else if maxDepth == 0 {
		maxDepth = 1
	}

	seen := make(map[symbols.ID]struct{})
	var indirect []Match
	truncated := false
	for _, id := range ids {
		// Impact analysis follows incoming edges: who depends on id, not
		// what id depends on.
		for affected := range g.ReachableDependents(id, maxDepth) {
			if len(seen) >= DefaultMaxVisitedNodes {
				truncated = true
				break
			}
			if _, dup := seen[affected]; dup {
				continue
			}
			seen[affected] = struct{}{}
			if len(indirect) >= DefaultMaxIndirectPaths {
				truncated = true
				continue
			}
			indirect = append(indirect, e.toMatch(affected, depgraph.EdgeReferences,
				fmt.Sprintf("Would be impacted by changes to %s", q.Target), g))
		}
	}
	return Result{
		Query:                 q,
		IndirectRelationships: indirect,
		Stats:                 Stats{IndirectCount: len(indirect), SymbolsAnalyzed: e.symbolCount(), Truncated: truncated},
		Summary:               fmt.Sprintf("%d symbol(s) would be impacted by changes to %q", len(indirect), q.Target),
	}, nil
}

func (e *Engine) executeCallChain(q Query, g *depgraph.Graph) (Result, error) {
	fromIDs, _, err := e.resolveTarget(g, q.From)
	if err != nil {
		return Result{}, err
	}
	toIDs, _, err := e.resolveTarget(g, q.To)
	if err != nil {
		return Result{}, err
	}
	toSet := make(map[symbols.ID]struct{}, len(toIDs))
	for _, id := range toIDs {
		toSet[id] = struct{}{}
	}

	var bestPath []symbols.ID
	for _, start := range fromIDs {
		path := shortestPath(g, start, toSet)
		if path != nil && (bestPath == nil || len(path) < len(bestPath)) {
			bestPath = path
		}
	}

	if bestPath == nil {
		return Result{
			Query:   q,
			Summary: fmt.Sprintf("no dependency chain found from %q to %q", q.From, q.To),
		}, nil
	}

	matches := make([]Match, len(bestPath))
	for i, id := range bestPath {
		matches[i] = e.toMatch(id, depgraph.EdgeCalls, fmt.Sprintf("step %d of chain", i+1), g)
	}
	return Result{
		Query:               q,
		DirectRelationships: matches,
		Stats:               Stats{DirectCount: len(matches), SymbolsAnalyzed: e.symbolCount()},
		Summary:             fmt.Sprintf("chain of %d hop(s) from %q to %q", len(matches)-1, q.From, q.To),
	}, nil
}

// shortestPath runs uniform-weight BFS (equivalent to Dijkstra when every
// edge has weight 1) from start until any node in targets is reached.
func shortestPath(g *depgraph.Graph, start symbols.ID, targets map[symbols.ID]struct{}) []symbols.ID {
	type frame struct {
		id   symbols.ID
		path []symbols.ID
	}
	visited := map[symbols.ID]struct{}{start: {}}
	queue := []frame{{id: start, path: []symbols.ID{start}}}

	if _, ok := targets[start]; ok {
		return queue[0].path
	}

	for len(queue) > 0 {
		cur := queue[0]
		queue = queue[1:]
		for _, next := range g.FindDependencies(cur.id) {
			if _, ok := visited[next]; ok {
				continue
			}
			visited[next] = struct{}{}
			nextPath := append(append([]symbols.ID(nil), cur.path...), next)
			if _, hit := targets[next]; hit {
				return nextPath
			}
			queue = append(queue, frame{id: next, path: nextPath})
		}
	}
	return nil
}

func (e *Engine) executeCircularDependencies(q Query, g *depgraph.Graph) (Result, error) {
	cycles := g.FindCircularDependencies()

	var targetID symbols.ID
	filterByTarget := q.Target != ""
	if filterByTarget {
		ids, _, err := e.resolveTarget(g, q.Target)
		if err != nil {
			return Result{}, err
		}
		if len(ids) == 0 {
			return Result{Query: q, Summary: fmt.Sprintf("no cycles found containing %q", q.Target)}, nil
		}
		targetID = ids[0]
	}

	var direct []Match
	for _, cycle := range cycles {
		if filterByTarget {
			contains := false
			for _, id := range cycle {
				if id == targetID {
					contains = true
					break
				}
			}
			if !contains {
				continue
			}
		}
		for _, id := range cycle {
			direct = append(direct, e.toMatch(id, depgraph.EdgeCalls, "participates in a circular dependency", g))
		}
	}
	return Result{
		Query:               q,
		DirectRelationships: direct,
		Stats:               Stats{DirectCount: len(direct), SymbolsAnalyzed: e.symbolCount()},
		Summary:             fmt.Sprintf("found %d circular dependency group(s)", len(cycles)),
	}, nil
}

func (e *Engine) executeUnusedSymbols(q Query, g *depgraph.Graph) (Result, error) {
	var direct []Match
	for id, node := range g.Nodes {
		if len(g.InEdges(id)) != 0 {
			continue
		}
		if q.HasKind && node.Kind != q.SymbolKind {
			continue
		}
		direct = append(direct, e.toMatch(id, depgraph.EdgeReferences, "no incoming references found", g))
	}
	sort.Slice(direct, func(i, j int) bool { return direct[i].QualifiedName < direct[j].QualifiedName })
	return Result{
		Query:               q,
		DirectRelationships: direct,
		Stats:               Stats{DirectCount: len(direct), SymbolsAnalyzed: e.symbolCount()},
		Summary:             fmt.Sprintf("found %d unused symbol(s)", len(direct)),
	}, nil
}

func (e *Engine) executeHotPaths(q Query, g *depgraph.Graph) (Result, error) {
	limit := q.Limit
	if limit <= 0 {
		limit = 10
	}
	type ranked struct {
		id     symbols.ID
		degree int
	}
	ranked2 := make([]ranked, 0, len(g.Nodes))
	for id := range g.Nodes {
		ranked2 = append(ranked2, ranked{id: id, degree: len(g.InEdges(id))})
	}
	sort.Slice(ranked2, func(i, j int) bool {
		if ranked2[i].degree != ranked2[j].degree {
			return ranked2[i].degree > ranked2[j].degree
		}
		return ranked2[i].id.Compare(ranked2[j].id) < 0
	})
	if len(ranked2) > limit {
		ranked2 = ranked2[:limit]
	}
	direct := make([]Match, len(ranked2))
	for i, r := range ranked2 {
		direct[i] = e.toMatch(r.id, depgraph.EdgeReferences, fmt.Sprintf("%d incoming reference(s)", r.degree), g)
	}
	return Result{
		Query:               q,
		DirectRelationships: direct,
		Stats:               Stats{DirectCount: len(direct), SymbolsAnalyzed: e.symbolCount()},
		Summary:             fmt.Sprintf("top %d symbol(s) by incoming reference count", len(direct)),
	}, nil
}

func (e *Engine) executeDependenciesByType(q Query, g *depgraph.Graph) (Result, error) {
	ids, _, err := e.resolveTarget(g, q.Target)
	if err != nil {
		return Result{}, err
	}
	var direct []Match
	for _, id := range ids {
		for _, edge := range g.OutEdges(id) {
			if edge.Kind != q.Relation {
				continue
			}
			direct = append(direct, e.toMatchAt(edge.To, edge.Kind, edge.Line,
				fmt.Sprintf("%s %s at line %d", edge.Kind, q.Target, edge.Line), g))
		}
	}
	return Result{
		Query:               q,
		DirectRelationships: direct,
		Stats:               Stats{DirectCount: len(direct), SymbolsAnalyzed: e.symbolCount()},
		Summary:             fmt.Sprintf("found %d %s relationship(s) for %q", len(direct), q.Relation, q.Target),
	}, nil
}

func (e *Engine) symbolCount() int {
	e.symbolsMu.RLock()
	defer e.symbolsMu.RUnlock()
	if e.symbols == nil {
		return 0
	}
	return e.symbols.SymbolCount()
}

// EngineStats summarizes the engine's cache bookkeeping, per §4.8's
// CacheMetadata.
type EngineStats struct {
	SymbolCount   int
	AccessCount   uint64
	EvictionCount uint64
	GraphLoaded   bool
}

// Stats returns the current cache metadata. A poisoned read (best-effort,
// per §4.8.3) degrades to zero values rather than panicking — Go's
// sync.RWMutex can't actually be poisoned, so this only ever takes the
// fast path, but the signature mirrors the engine's degrade-don't-panic
// contract for callers porting from a poison-aware lock.
func (e *Engine) Stats() EngineStats {
	loaded := e.loader.State() == lazyload.Loaded
	e.graphMu.RLock()
	defer e.graphMu.RUnlock()
	return EngineStats{
		SymbolCount:   e.symbolCount(),
		AccessCount:   e.meta.accessCount,
		EvictionCount: e.meta.evictionCount,
		GraphLoaded:   loaded,
	}
}
