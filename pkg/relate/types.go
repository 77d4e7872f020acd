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

// Package relate answers relationship queries (callers, callees, impact
// analysis, call chains, cycles, unused symbols, hot paths) against a
// lazily-loaded dependency graph backed by the binary symbol table,
// falling back to on-demand extraction when no cached graph exists yet.
package relate

import (
	"time"

	"github.com/kotadb/kotadb/pkg/depgraph"
	"github.com/kotadb/kotadb/pkg/symbols"
)

// QueryKind names one of the eight supported relationship query shapes.
type QueryKind int

const (
	FindCallers QueryKind = iota
	FindCallees
	ImpactAnalysis
	CallChain
	CircularDependencies
	UnusedSymbols
	HotPaths
	DependenciesByType
)

// Query is a tagged union over the supported query kinds — only the
// fields relevant to Kind are populated.
type Query struct {
	Kind QueryKind

	Target     string            // FindCallers, FindCallees, ImpactAnalysis, CircularDependencies (optional), DependenciesByType
	From, To   string            // CallChain
	MaxDepth   int               // ImpactAnalysis; negative means unset -> DefaultImpactDepth, 0 means direct callers only (§8 boundary)
	SymbolKind symbols.Kind      // UnusedSymbols optional filter
	HasKind    bool              // whether SymbolKind was set
	Limit      int               // HotPaths
	Relation   depgraph.EdgeKind // DependenciesByType
}

// DefaultImpactDepth bounds ImpactAnalysis BFS when the caller doesn't
// specify one.
const DefaultImpactDepth = 5

// DefaultMaxVisitedNodes bounds how many distinct nodes ImpactAnalysis
// visits. CallChain's breadth-first search is not bounded by it.
const DefaultMaxVisitedNodes = 10_000

// DefaultMaxIndirectPaths caps how many indirect relationships ImpactAnalysis reports.
const DefaultMaxIndirectPaths = 1_000

// Match is one relationship hit: the symbol on the other end of the
// relationship, its location, and a human-readable context string.
type Match struct {
	SymbolName    string
	QualifiedName string
	FilePath      string
	StartLine     uint32
	Relation      depgraph.EdgeKind
	Context       string
}

// Stats summarizes one query execution.
type Stats struct {
	DirectCount     int
	IndirectCount   int
	SymbolsAnalyzed int
	ExecutionTimeMS int64
	Truncated       bool
}

// Result is the outcome of executing a Query.
type Result struct {
	Query                Query
	DirectRelationships  []Match
	IndirectRelationships []Match
	Stats                Stats
	Summary              string
}

// CacheEvictionPolicy selects how the engine decides whether to evict the
// currently cached dependency graph before installing a freshly loaded or
// extracted one.
type CacheEvictionPolicy struct {
	Mode           EvictionMode
	ThresholdBytes uint64        // MemoryBased
	TTL            time.Duration // TimeBased
	MaxEntries     int           // Lru
}

// EvictionMode enumerates the eviction strategies.
type EvictionMode int

const (
	EvictionNever EvictionMode = iota
	EvictionMemoryBased
	EvictionTimeBased
	EvictionLRU
)

// ExtractionConfig controls on-demand dependency-graph extraction when no
// cached dependency_graph.bin is found.
type ExtractionConfig struct {
	MaxFileSize           int64
	Extensions            []string
	MaxFilesPerExtraction int
	WarnOnLargeGraphs     bool
	MaxGraphMemory        int64
	EvictionPolicy        CacheEvictionPolicy
}

// DefaultExtractionConfig mirrors the engine's built-in defaults: a 10MB
// per-file cap, a 10000-file cap per extraction, and memory-based eviction
// at 100MB.
func DefaultExtractionConfig() ExtractionConfig {
	return ExtractionConfig{
		MaxFileSize: 10 * 1024 * 1024,
		Extensions: []string{
			".go", ".rs", ".py", ".js", ".ts", ".tsx", ".jsx",
			".c", ".h", ".cpp", ".hpp", ".java", ".rb",
		},
		MaxFilesPerExtraction: 10_000,
		WarnOnLargeGraphs:     true,
		MaxGraphMemory:        100 * 1024 * 1024,
		EvictionPolicy: CacheEvictionPolicy{
			Mode:           EvictionMemoryBased,
			ThresholdBytes: 100 * 1024 * 1024,
		},
	}
}

// cacheMetadata tracks access bookkeeping for the cached graph slot.
type cacheMetadata struct {
	lastAccess    time.Time
	accessCount   uint64
	evictionCount uint64
}
