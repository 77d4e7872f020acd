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

// Package main implements the kotadb CLI for indexing a repository into an
// embedded document+code-intelligence store and querying its relationship
// graph.
//
// Usage:
//
//	kotadb init                    Create .kotadb/project.yaml configuration
//	kotadb index                   Rebuild the document store and dependency graph
//	kotadb status [--json]         Show project index statistics
//	kotadb query <kind> <target>   Answer a relationship query
//	kotadb trace --from A --to B   Trace a waypoint-chained call path
package main

import (
	"fmt"
	"os"

	flag "github.com/spf13/pflag"

	"github.com/kotadb/kotadb/internal/logging"
	"github.com/kotadb/kotadb/internal/ui"
)

// Version information (set via ldflags during build)
var (
	version = "dev"
	commit  = "unknown"
	date    = "unknown"
)

// GlobalFlags holds the global CLI flags that apply to all commands.
type GlobalFlags struct {
	JSON    bool
	NoColor bool
	Verbose int
	Quiet   bool
}

func main() {
	var (
		showVersion = flag.BoolP("version", "V", false, "Show version and exit")
		configPath  = flag.StringP("config", "c", "", "Path to .kotadb/project.yaml (default: discovered from cwd)")
		jsonOutput  = flag.Bool("json", false, "Output in JSON format (for applicable commands)")
		noColor     = flag.Bool("no-color", false, "Disable color output")
		verbose     = flag.CountP("verbose", "v", "Increase verbosity (-v for info, -vv for debug)")
		quiet       = flag.BoolP("quiet", "q", false, "Suppress non-essential output (progress, info messages)")
	)

	// Stop parsing at the first non-flag argument so subcommand-specific
	// flags like "query impact --max-depth 2" reach the subcommand's own
	// flag set instead of being rejected here.
	flag.SetInterspersed(false)

	flag.Usage = func() {
		fmt.Fprintf(os.Stderr, `KotaDB - embeddable document and code-intelligence store

Usage:
  kotadb <command> [options]

Commands:
  init      Create .kotadb/project.yaml configuration
  index     Rebuild the document store, indexes, and dependency graph
  status    Show project index statistics
  query     Answer a relationship query (callers|callees|impact|chain|cycles|unused|hot-paths|by-kind)
  trace     Trace a waypoint-chained call path between two symbols

Global Options:
  --json          Output in JSON format (for applicable commands)
  --no-color      Disable color output (respects NO_COLOR env var)
  -v, --verbose   Increase verbosity (-v for info, -vv for debug)
  -q, --quiet     Suppress non-essential output
  -c, --config    Path to .kotadb/project.yaml
  -V, --version   Show version and exit

Examples:
  kotadb init
  kotadb index --metrics-addr localhost:9090
  kotadb status --json
  kotadb query callers main.Run
  kotadb query impact pkg/storage.Store --max-depth 2

`)
	}

	flag.Parse()

	if *showVersion {
		fmt.Printf("kotadb version %s\n", version)
		fmt.Printf("commit: %s\n", commit)
		fmt.Printf("built: %s\n", date)
		os.Exit(0)
	}

	if os.Getenv("NO_COLOR") != "" {
		*noColor = true
	}

	if *quiet && *verbose > 0 {
		fmt.Fprintln(os.Stderr, "Error: cannot use --quiet and --verbose together")
		os.Exit(1)
	}

	// JSON mode auto-enables quiet so progress bars can't corrupt the
	// machine-readable output.
	if *jsonOutput {
		*quiet = true
	}

	globals := GlobalFlags{
		JSON:    *jsonOutput,
		NoColor: *noColor,
		Verbose: *verbose,
		Quiet:   *quiet,
	}

	ui.InitColors(globals.NoColor)
	logging.Init(os.Stderr)

	args := flag.Args()
	if len(args) == 0 {
		flag.Usage()
		os.Exit(1)
	}

	command := args[0]
	cmdArgs := args[1:]

	switch command {
	case "init":
		runInit(cmdArgs, globals)
	case "index":
		runIndex(cmdArgs, *configPath, globals)
	case "status":
		runStatus(cmdArgs, *configPath, globals)
	case "query":
		runQuery(cmdArgs, *configPath, globals)
	case "trace":
		runTrace(cmdArgs, *configPath, globals)
	default:
		fmt.Fprintf(os.Stderr, "Unknown command: %s\n", command)
		flag.Usage()
		os.Exit(1)
	}
}
