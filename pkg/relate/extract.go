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
	"bufio"
	"bytes"
	"context"
	"os"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/kotadb/kotadb/internal/workerpool"
	"github.com/kotadb/kotadb/pkg/depgraph"
	"github.com/kotadb/kotadb/pkg/symbols"
)

// extractionWorkers bounds the goroutine pool extractOnDemand fans reads
// and regex extraction out to; it is not configurable because on-demand
// extraction is a best-effort fallback, not a tuned hot path.
const extractionWorkers = 8

// skipDirs are never descended into while discovering source files for
// on-demand extraction.
var skipDirs = map[string]bool{
	".git": true, ".hg": true, ".svn": true,
	"node_modules": true, "vendor": true, "target": true,
	"dist": true, "build": true, ".venv": true, "venv": true,
	"__pycache__": true, ".idea": true, ".vscode": true,
}

// funcDeclPattern recognizes a handful of common function/method/struct
// declaration shapes across the languages this fallback supports. It is a
// deliberately loose heuristic, not a parser: good enough to seed a usable
// dependency graph when no prior ingestion has run, not a replacement for
// full tree-sitter extraction.
var (
	funcDeclPattern = regexp.MustCompile(`^\s*(?:pub\s+|export\s+|async\s+)*(?:func|fn|def|function)\s+([A-Za-z_][A-Za-z0-9_]*)\s*\(`)
	typeDeclPattern = regexp.MustCompile(`^\s*(?:pub\s+|export\s+)*(?:type|struct|class|interface)\s+([A-Za-z_][A-Za-z0-9_]*)`)
	importPattern   = regexp.MustCompile(`^\s*(?:use|import|require)\s+([A-Za-z0-9_:./"'-]+)`)
	callPattern     = regexp.MustCompile(`([A-Za-z_][A-Za-z0-9_]*)\s*\(`)
)

// discoverSourceRoots implements §4.8.1's ordered location strategies: the
// cached storage directory, the current working directory, then up to 5
// parent directories bearing a VCS marker.
func discoverSourceRoots(dbPath string) []string {
	var roots []string
	storageDir := filepath.Join(dbPath, "storage")
	if info, err := os.Stat(storageDir); err == nil && info.IsDir() {
		roots = append(roots, storageDir)
	}

	cwd, err := os.Getwd()
	if err != nil {
		return roots
	}
	roots = append(roots, cwd)

	dir := cwd
	for i := 0; i < 5; i++ {
		parent := filepath.Dir(dir)
		if parent == dir {
			break
		}
		dir = parent
		if _, err := os.Stat(filepath.Join(dir, ".git")); err == nil {
			roots = append(roots, dir)
			break
		}
	}
	return roots
}

// enumerateFiles walks root collecting files whose extension is in
// allowedExt, skipping well-known build/VCS/venv directories, honoring
// maxFileSize and the global maxFiles cap.
func enumerateFiles(root string, allowedExt map[string]bool, maxFileSize int64, maxFiles int) ([]string, bool) {
	var files []string
	truncated := false
	_ = filepath.Walk(root, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			return nil
		}
		if info.IsDir() {
			if skipDirs[info.Name()] {
				return filepath.SkipDir
			}
			return nil
		}
		if len(files) >= maxFiles {
			truncated = true
			return filepath.SkipAll
		}
		if !allowedExt[strings.ToLower(filepath.Ext(path))] {
			return nil
		}
		if info.Size() > maxFileSize {
			return nil
		}
		files = append(files, path)
		return nil
	})
	return files, truncated
}

// extractFileUnit performs the regex-based best-effort extraction
// described at the top of this file: one pass over the file's lines
// recording symbol declarations, import-like statements, and call-shaped
// references, without tracking symbol line spans any more precisely than
// "from this declaration to the next".
func extractFileUnit(path string, content []byte) depgraph.FileUnit {
	unit := depgraph.FileUnit{Path: path}
	scanner := bufio.NewScanner(bytes.NewReader(content))
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)

	var lineNo uint32
	var openID symbols.ID
	var hasOpen bool

	closeOpen := func(endLine uint32) {
		if !hasOpen {
			return
		}
		for i := range unit.Symbols {
			if unit.Symbols[i].ID == openID {
				unit.Symbols[i].LineEnd = endLine
			}
		}
		hasOpen = false
	}

	for scanner.Scan() {
		lineNo++
		line := scanner.Text()

		if m := funcDeclPattern.FindStringSubmatch(line); m != nil {
			closeOpen(lineNo - 1)
			id := symbols.NewID()
			qualified := path + "::" + m[1]
			unit.Symbols = append(unit.Symbols, depgraph.SymbolDef{
				ID: id, Name: m[1], QualifiedName: qualified,
				Kind: symbols.Function, LineStart: lineNo, LineEnd: lineNo,
			})
			openID = id
			hasOpen = true
			continue
		}
		if m := typeDeclPattern.FindStringSubmatch(line); m != nil {
			closeOpen(lineNo - 1)
			id := symbols.NewID()
			qualified := path + "::" + m[1]
			unit.Symbols = append(unit.Symbols, depgraph.SymbolDef{
				ID: id, Name: m[1], QualifiedName: qualified,
				Kind: symbols.Struct, LineStart: lineNo, LineEnd: lineNo,
			})
			openID = id
			hasOpen = true
			continue
		}
		if m := importPattern.FindStringSubmatch(line); m != nil {
			unit.Imports = append(unit.Imports, depgraph.Import{Path: strings.Trim(m[1], `"'`), Line: lineNo})
			continue
		}

		for _, m := range callPattern.FindAllStringSubmatch(line, -1) {
			if isKeyword(m[1]) {
				continue
			}
			unit.References = append(unit.References, depgraph.Reference{
				Name: m[1], Kind: depgraph.RefFunctionCall, Line: lineNo,
			})
		}
	}
	closeOpen(lineNo)

	return unit
}

var controlKeywords = map[string]bool{
	"if": true, "for": true, "while": true, "switch": true, "match": true,
	"func": true, "fn": true, "def": true, "function": true, "return": true,
	"else": true, "catch": true, "try": true,
}

func isKeyword(name string) bool { return controlKeywords[name] }

// extractOnDemand implements §4.8.1: discover candidate source files, cap
// by size/count, extract a FileUnit per file, assemble a graph, then
// best-effort persist it. A failed persist does not fail the extraction.
func (e *Engine) extractOnDemand(ctx context.Context) (*depgraph.Graph, error) {
	allowedExt := make(map[string]bool, len(e.extractionConfig.Extensions))
	for _, ext := range e.extractionConfig.Extensions {
		allowedExt[strings.ToLower(ext)] = true
	}

	roots := discoverSourceRoots(e.dbPath)
	var allFiles []string
	truncated := false
	for _, root := range roots {
		files, wasTruncated := enumerateFiles(root, allowedExt, e.extractionConfig.MaxFileSize, e.extractionConfig.MaxFilesPerExtraction-len(allFiles))
		allFiles = append(allFiles, files...)
		if wasTruncated {
			truncated = true
		}
		if len(allFiles) >= e.extractionConfig.MaxFilesPerExtraction {
			truncated = true
			break
		}
	}
	if truncated {
		e.log.Warn().Int("file_count", len(allFiles)).Msg("on-demand extraction hit the file cap, results may be incomplete")
	}

	// Each index reads and extracts its own file independently, so workers
	// write to disjoint slots of rawUnits without any shared mutable state.
	rawUnits := make([]*depgraph.FileUnit, len(allFiles))
	pool := workerpool.New(extractionWorkers)
	if err := pool.Run(ctx, len(allFiles), func(_ context.Context, i int) error {
		data, err := os.ReadFile(allFiles[i])
		if err != nil {
			return nil // unreadable files are skipped, not fatal to the batch
		}
		unit := extractFileUnit(allFiles[i], data)
		rawUnits[i] = &unit
		return nil
	}); err != nil {
		return nil, err
	}

	units := make([]depgraph.FileUnit, 0, len(allFiles))
	for _, u := range rawUnits {
		if u != nil {
			units = append(units, *u)
		}
	}

	graph, err := depgraph.Build(units)
	if err != nil {
		return nil, err
	}

	graphPath := filepath.Join(e.dbPath, dependencyGraphFileName)
	if err := graph.WriteTo(graphPath); err != nil {
		e.log.Warn().Err(err).Msg("extracted dependency graph but failed to persist it to disk")
	}

	return graph, nil
}
