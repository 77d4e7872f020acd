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
	"os"
	"strings"

	flag "github.com/spf13/pflag"

	"github.com/kotadb/kotadb/internal/ui"
	"github.com/kotadb/kotadb/pkg/relate"
)

// runTrace executes the 'trace' CLI command: a waypoint-chained call path
// from --from to --to, passing through each --via stop in order.
//
// Usage: kotadb trace --from <symbol> --to <symbol> [--via <symbol>]... [flags]
func runTrace(args []string, configPath string, globals GlobalFlags) {
	fs := flag.NewFlagSet("trace", flag.ExitOnError)
	from := fs.String("from", "", "Starting symbol")
	to := fs.String("to", "", "Destination symbol")
	via := fs.StringSlice("via", nil, "Intermediate waypoint symbol, repeatable, in order")
	maxDepth := fs.Int("max-depth", -1, "Per-segment traversal depth bound")
	jsonOut := fs.Bool("json", false, "Output as JSON")
	if err := fs.Parse(args); err != nil {
		os.Exit(1)
	}
	asJSON := *jsonOut || globals.JSON

	if *from == "" || *to == "" {
		ui.Error("usage: kotadb trace --from <symbol> --to <symbol> [--via <symbol>]...")
		os.Exit(1)
	}

	cwd, err := os.Getwd()
	if err != nil {
		ui.Error(err.Error())
		os.Exit(1)
	}
	if _, err := LoadConfig(configPath); err != nil {
		ui.Error(err.Error())
		os.Exit(1)
	}

	engine, err := relate.Open(DataDir(cwd))
	if err != nil {
		ui.Error(err.Error())
		os.Exit(1)
	}

	result, err := engine.TracePath(context.Background(), relate.TracePathQuery{
		From: *from, To: *to, Waypoints: *via, MaxDepth: *maxDepth,
	})
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

	ui.Header(result.Summary)
	names := make([]string, len(result.DirectRelationships))
	for i, m := range result.DirectRelationships {
		names[i] = m.SymbolName
	}
	if len(names) > 0 {
		ui.Info(strings.Join(names, " -> "))
	}
}
