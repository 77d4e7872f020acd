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

package main

import (
	"context"
	"fmt"
	"io/fs"
	"os"
	"path"
	"path/filepath"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/schollz/progressbar/v3"
	flag "github.com/spf13/pflag"

	"github.com/kotadb/kotadb/internal/ui"
	"github.com/kotadb/kotadb/pkg/depgraph"
	"github.com/kotadb/kotadb/pkg/kota"
	"github.com/kotadb/kotadb/pkg/parser"
	"github.com/kotadb/kotadb/pkg/parser/treesitter"
	"github.com/kotadb/kotadb/pkg/primaryindex"
	"github.com/kotadb/kotadb/pkg/storage"
	"github.com/kotadb/kotadb/pkg/symbols"
	"github.com/kotadb/kotadb/pkg/trigram"
	"github.com/kotadb/kotadb/pkg/wrappers"
)

// indexResult summarizes one 'index' run for printIndexResult.
type indexResult struct {
	FilesIndexed   int
	FilesSkipped   int
	ParseErrors    int
	Symbols        int
	Edges          int
	Duration       time.Duration
}

// runIndex executes the 'index' CLI command: it walks the repository
// rooted at the current directory, parses every registered source
// extension, and rebuilds the document store, primary index, trigram
// index, binary symbol table, and dependency graph from scratch.
//
// Flags:
//   - --metrics-addr: expose Prometheus metrics on this address while indexing
func runIndex(args []string, configPath string, globals GlobalFlags) {
	fs2 := flag.NewFlagSet("index", flag.ExitOnError)
	metricsAddr := fs2.String("metrics-addr", "", "HTTP listen address for Prometheus metrics (empty to disable)")
	if err := fs2.Parse(args); err != nil {
		os.Exit(1)
	}

	cfg, err := LoadConfig(configPath)
	if err != nil {
		ui.Error(err.Error())
		os.Exit(1)
	}

	cwd, err := os.Getwd()
	if err != nil {
		ui.Error(err.Error())
		os.Exit(1)
	}

	if *metricsAddr != "" {
		startMetricsServer(*metricsAddr)
	}

	start := time.Now()
	result, err := indexRepository(context.Background(), cwd, cfg, globals)
	if err != nil {
		ui.Error(err.Error())
		os.Exit(1)
	}
	result.Duration = time.Since(start)

	if !globals.Quiet {
		printIndexResult(cfg, result)
	}
}

// registry returns a parser.Registry with every language binding this
// build ships wired in. Today that's Go; a second language plugs in here
// without touching the rest of the pipeline.
func registry() *parser.Registry {
	r := parser.NewRegistry()
	r.Register(".go", treesitter.NewGo())
	return r
}

// indexRepository walks root for files matching cfg's extensions, parses
// each with the language registry, and persists documents, the primary
// index, the trigram index, the binary symbol table, and the dependency
// graph into DataDir(root).
func indexRepository(ctx context.Context, root string, cfg *Config, globals GlobalFlags) (indexResult, error) {
	var result indexResult

	dataDir := DataDir(root)
	if err := os.RemoveAll(dataDir); err != nil {
		return result, fmt.Errorf("clear previous index: %w", err)
	}

	docStore, err := storage.Open(filepath.Join(dataDir, "documents"))
	if err != nil {
		return result, fmt.Errorf("open document store: %w", err)
	}
	backend, err := buildBackendStack(docStore)
	if err != nil {
		_ = docStore.Close()
		return result, err
	}
	defer backend.Close()

	primary, err := primaryindex.Open(filepath.Join(dataDir, "primary"))
	if err != nil {
		return result, fmt.Errorf("open primary index: %w", err)
	}
	defer primary.Close()

	trig, err := trigram.Open(filepath.Join(dataDir, "trigram"))
	if err != nil {
		return result, fmt.Errorf("open trigram index: %w", err)
	}
	defer trig.Close()

	reg := registry()
	symWriter := symbols.NewWriter()
	var units []depgraph.FileUnit

	paths, err := discoverFiles(root, cfg.Indexing)
	if err != nil {
		return result, err
	}

	var bar *progressbar.ProgressBar
	if !globals.Quiet {
		bar = progressbar.Default(int64(len(paths)), "indexing")
	}

	now := time.Now()
	for _, relPath := range paths {
		if bar != nil {
			_ = bar.Add(1)
		}

		ext := path.Ext(relPath)
		capability := reg.For(ext)
		if capability == nil {
			result.FilesSkipped++
			continue
		}

		content, err := os.ReadFile(filepath.Join(root, relPath))
		if err != nil {
			result.FilesSkipped++
			continue
		}

		unit, err := capability.Parse(ctx, relPath, content)
		if err != nil {
			result.ParseErrors++
			continue
		}
		units = append(units, unit)
		for _, s := range parser.SymbolsFromUnit(unit) {
			symWriter.Add(s)
		}

		docPath, err := kota.NewPath(relPath)
		if err != nil {
			result.FilesSkipped++
			continue
		}
		title, err := kota.NewTitle(path.Base(relPath))
		if err != nil {
			result.FilesSkipped++
			continue
		}
		doc := kota.NewDocument(kota.NewDocID(), docPath, title, content, nil, now)

		if err := backend.Insert(ctx, doc); err != nil {
			result.FilesSkipped++
			continue
		}
		if err := primary.Insert(ctx, doc.ID, docPath); err != nil {
			return result, fmt.Errorf("primary index insert %s: %w", relPath, err)
		}
		if err := trig.InsertWithContent(ctx, doc.ID, content); err != nil {
			return result, fmt.Errorf("trigram index insert %s: %w", relPath, err)
		}
		result.FilesIndexed++
	}

	graph, err := depgraph.Build(units)
	if err != nil {
		return result, fmt.Errorf("assemble dependency graph: %w", err)
	}
	result.Symbols = symWriter.Len()
	result.Edges = len(graph.Edges)

	if err := symWriter.WriteTo(filepath.Join(dataDir, symbolTableFileName)); err != nil {
		return result, fmt.Errorf("write symbol table: %w", err)
	}
	if err := graph.WriteTo(filepath.Join(dataDir, dependencyGraphFileName)); err != nil {
		return result, fmt.Errorf("write dependency graph: %w", err)
	}

	if err := backend.Flush(); err != nil {
		return result, fmt.Errorf("flush document store: %w", err)
	}
	if err := primary.Flush(); err != nil {
		return result, fmt.Errorf("flush primary index: %w", err)
	}
	if err := trig.Flush(); err != nil {
		return result, fmt.Errorf("flush trigram index: %w", err)
	}

	return result, nil
}

// buildBackendStack wraps the durable document store in the C9 decorator
// chain: retry transient I/O closest to the disk, cache hot gets, validate
// against a deserialization boundary, then trace and meter every call.
func buildBackendStack(inner *storage.Store) (wrappers.Backend, error) {
	retried := wrappers.NewRetryable(inner, 3, 50*time.Millisecond, time.Second)
	cached, err := wrappers.NewCached(retried, 1024)
	if err != nil {
		return nil, fmt.Errorf("build cache wrapper: %w", err)
	}
	validated := wrappers.NewValidated(cached, 0)
	traced := wrappers.NewTraced(validated, "cmd.kotadb.index")
	metered := wrappers.NewMetered(traced, prometheus.DefaultRegisterer)
	return metered, nil
}

// discoverFiles walks root, returning every regular file's root-relative,
// slash-separated path that isn't excluded and whose extension is
// registered for parsing.
func discoverFiles(root string, cfg IndexingConfig) ([]string, error) {
	extSet := make(map[string]bool, len(cfg.Extensions))
	for _, e := range cfg.Extensions {
		extSet[e] = true
	}

	var out []string
	err := filepath.WalkDir(root, func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		rel, relErr := filepath.Rel(root, p)
		if relErr != nil {
			return relErr
		}
		rel = filepath.ToSlash(rel)
		if rel == "." {
			return nil
		}
		if excluded(rel, cfg.Exclude) {
			if d.IsDir() {
				return filepath.SkipDir
			}
			return nil
		}
		if d.IsDir() {
			return nil
		}
		if !extSet[path.Ext(rel)] {
			return nil
		}
		if cfg.MaxFileSize > 0 {
			info, statErr := d.Info()
			if statErr == nil && info.Size() > cfg.MaxFileSize {
				return nil
			}
		}
		out = append(out, rel)
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("walk %s: %w", root, err)
	}
	return out, nil
}

// excluded reports whether rel matches one of the glob patterns. A pattern
// ending in "/**" excludes that whole directory subtree; any other pattern
// is matched with path.Match against rel.
func excluded(rel string, patterns []string) bool {
	for _, pat := range patterns {
		if dir, ok := cutSuffix(pat, "/**"); ok {
			if rel == dir || hasPathPrefix(rel, dir) {
				return true
			}
			continue
		}
		if ok, _ := path.Match(pat, rel); ok {
			return true
		}
	}
	return false
}

func cutSuffix(s, suffix string) (string, bool) {
	if len(s) < len(suffix) || s[len(s)-len(suffix):] != suffix {
		return s, false
	}
	return s[:len(s)-len(suffix)], true
}

func hasPathPrefix(rel, dir string) bool {
	return len(rel) > len(dir) && rel[:len(dir)] == dir && rel[len(dir)] == '/'
}

func printIndexResult(cfg *Config, r indexResult) {
	ui.Header("Indexing Complete")
	fmt.Printf("%s %s\n", ui.Label("Project ID:"), cfg.ProjectID)
	fmt.Printf("Files Indexed: %s\n", ui.CountText(r.FilesIndexed))
	fmt.Printf("Files Skipped: %s\n", ui.CountText(r.FilesSkipped))
	if r.ParseErrors > 0 {
		ui.Warningf("Parse Errors: %d", r.ParseErrors)
	}
	fmt.Printf("Symbols: %s\n", ui.CountText(r.Symbols))
	fmt.Printf("Dependency Edges: %s\n", ui.CountText(r.Edges))
	fmt.Printf("Duration: %s\n", ui.DimText(r.Duration.String()))
}
