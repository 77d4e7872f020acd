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
	"text/tabwriter"

	flag "github.com/spf13/pflag"

	"github.com/kotadb/kotadb/internal/ui"
	"github.com/kotadb/kotadb/pkg/relate"
)

var queryKindByName = map[string]relate.QueryKind{
	"callers":   relate.FindCallers,
	"callees":   relate.FindCallees,
	"impact":    relate.ImpactAnalysis,
	"chain":     relate.CallChain,
	"cycles":    relate.CircularDependencies,
	"unused":    relate.UnusedSymbols,
	"hot-paths": relate.HotPaths,
	"by-kind":   relate.DependenciesByType,
}

// runQuery executes the 'query' CLI command: it dispatches one of the
// relationship queries pkg/relate answers against the last persisted
// dependency graph (or an on-demand extraction fallback).
//
// Usage: kotadb query <kind> <target> [flags]
//
// Flags:
//   - --max-depth: ImpactAnalysis traversal bound (default: engine default)
//   - --limit: HotPaths result cap
//   - --json: output Result as JSON (also implied by globals.JSON)
func runQuery(args []string, configPath string, globals GlobalFlags) {
	fs := flag.NewFlagSet("query", flag.ExitOnError)
	maxDepth := fs.Int("max-depth", -1, "Traversal depth bound for impact analysis (negative: engine default)")
	limit := fs.Int("limit", 20, "Result cap for hot-paths")
	jsonOut := fs.Bool("json", false, "Output as JSON")
	from := fs.String("from", "", "CallChain: starting symbol")
	to := fs.String("to", "", "CallChain: destination symbol")
	if err := fs.Parse(args); err != nil {
		os.Exit(1)
	}
	asJSON := *jsonOut || globals.JSON

	rest := fs.Args()
	if len(rest) == 0 {
		ui.Error("usage: kotadb query <callers|callees|impact|chain|cycles|unused|hot-paths|by-kind> [target]")
		os.Exit(1)
	}
	kind, ok := queryKindByName[rest[0]]
	if !ok {
		ui.Error(fmt.Sprintf("unknown query kind %q", rest[0]))
		os.Exit(1)
	}

	q := relate.Query{Kind: kind, MaxDepth: *maxDepth, Limit: *limit, From: *from, To: *to}
	if len(rest) > 1 {
		q.Target = rest[1]
	}

	cwd, err := os.Getwd()
	if err != nil {
		ui.Error(err.Error())
		os.Exit(1)
	}
	_, err = LoadConfig(configPath)
	if err != nil {
		ui.Error(err.Error())
		os.Exit(1)
	}

	engine, err := relate.Open(DataDir(cwd))
	if err != nil {
		ui.Error(err.Error())
		os.Exit(1)
	}

	result, err := engine.Execute(context.Background(), q)
	if err != nil {
		if asJSON {
			enc := json.NewEncoder(os.Stdout)
			_ = enc.Encode(map[string]string{"error": err.Error()})
			return
		}
		ui.Error(err.Error())
		os.Exit(1)
	}

	if asJSON {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		_ = enc.Encode(result)
		return
	}
	printQueryResult(result)
}

func printQueryResult(r relate.Result) {
	ui.Header(r.Summary)
	if len(r.DirectRelationships) == 0 && len(r.IndirectRelationships) == 0 {
		return
	}
	tw := tabwriter.NewWriter(os.Stdout, 0, 2, 2, ' ', 0)
	fmt.Fprintln(tw, "SYMBOL\tFILE\tLINE\tRELATION\tCONTEXT")
	for _, m := range r.DirectRelationships {
		fmt.Fprintf(tw, "%s\t%s\t%d\t%s\t%s\n", m.SymbolName, m.FilePath, m.StartLine, m.Relation, m.Context)
	}
	for _, m := range r.IndirectRelationships {
		fmt.Fprintf(tw, "%s\t%s\t%d\t%s\t%s (indirect)\n", m.SymbolName, m.FilePath, m.StartLine, m.Relation, m.Context)
	}
	_ = tw.Flush()
}
