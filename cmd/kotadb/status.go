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
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	flag "github.com/spf13/pflag"

	"github.com/kotadb/kotadb/internal/ui"
	"github.com/kotadb/kotadb/pkg/depgraph"
	"github.com/kotadb/kotadb/pkg/primaryindex"
	"github.com/kotadb/kotadb/pkg/symbols"
)

// StatusResult represents the project status for JSON output.
type StatusResult struct {
	ProjectID string    `json:"project_id"`
	DataDir   string    `json:"data_dir"`
	Indexed   bool      `json:"indexed"`
	Documents int       `json:"documents"`
	Symbols   int       `json:"symbols"`
	Edges     int       `json:"edges"`
	Error     string    `json:"error,omitempty"`
	Timestamp time.Time `json:"timestamp"`
}

// runStatus executes the 'status' CLI command: it reports how many
// documents are in the primary index, how many symbols are in the binary
// symbol table, and how many edges are in the last persisted dependency
// graph. It loads the primary index, opens the symbol table and reads the
// whole graph file to obtain these counts.
//
// Flags:
//   - --json: output as StatusResult JSON (also implied by globals.JSON)
func runStatus(args []string, configPath string, globals GlobalFlags) {
	fs := flag.NewFlagSet("status", flag.ExitOnError)
	jsonOut := fs.Bool("json", false, "Output as JSON")
	if err := fs.Parse(args); err != nil {
		os.Exit(1)
	}
	asJSON := *jsonOut || globals.JSON

	cfg, err := LoadConfig(configPath)
	if err != nil {
		reportStatusError(asJSON, err)
		return
	}

	cwd, err := os.Getwd()
	if err != nil {
		reportStatusError(asJSON, err)
		return
	}

	dataDir := DataDir(cwd)
	result := StatusResult{
		ProjectID: cfg.ProjectID,
		DataDir:   dataDir,
		Timestamp: time.Now(),
	}

	primary, err := primaryindex.Open(primaryIndexDir(dataDir))
	if err == nil {
		if loadErr := primary.EnsureLoaded(context.Background()); loadErr == nil {
			result.Documents = primary.DocumentCount()
			result.Indexed = true
		}
		_ = primary.Close()
	}

	if reader, err := symbols.Open(symbolTablePath(dataDir)); err == nil {
		result.Symbols = reader.SymbolCount()
		result.Indexed = true
	}

	if graph, err := depgraph.ReadGraph(dependencyGraphPath(dataDir)); err == nil {
		result.Edges = len(graph.Edges)
	}

	if asJSON {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		_ = enc.Encode(result)
		return
	}

	printStatus(result)
}

func reportStatusError(asJSON bool, err error) {
	if asJSON {
		enc := json.NewEncoder(os.Stdout)
		_ = enc.Encode(StatusResult{Error: err.Error(), Timestamp: time.Now()})
		return
	}
	ui.Error(err.Error())
	os.Exit(1)
}

func printStatus(r StatusResult) {
	ui.Header("KotaDB Project Status")
	fmt.Printf("%s %s\n", ui.Label("Project ID:"), r.ProjectID)
	fmt.Printf("%s  %s\n", ui.Label("Data Dir:"), ui.DimText(r.DataDir))
	if !r.Indexed {
		ui.Warning("no index found — run 'kotadb index'")
		return
	}
	fmt.Printf("Documents: %s\n", ui.CountText(r.Documents))
	fmt.Printf("Symbols: %s\n", ui.CountText(r.Symbols))
	fmt.Printf("Dependency Edges: %s\n", ui.CountText(r.Edges))
}

func primaryIndexDir(dataDir string) string     { return filepath.Join(dataDir, "primary") }
func symbolTablePath(dataDir string) string     { return filepath.Join(dataDir, symbolTableFileName) }
func dependencyGraphPath(dataDir string) string { return filepath.Join(dataDir, dependencyGraphFileName) }
